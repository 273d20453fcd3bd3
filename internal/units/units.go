// Package units converts the imperial telemetry units delivered by
// dump1090 into their metric equivalents.
package units

const (
	metersPerFoot = 0.3048
	kmhPerKnot    = 1.852
	mpsPerFpm     = 0.00508
)

// FeetToMeters converts an altitude in feet to meters.
func FeetToMeters(feet float64) float64 {
	return feet * metersPerFoot
}

// KnotsToKmh converts a ground speed in knots to km/h.
func KnotsToKmh(knots float64) float64 {
	return knots * kmhPerKnot
}

// FpmToMps converts a vertical rate in feet/min to m/s.
func FpmToMps(fpm float64) float64 {
	return fpm * mpsPerFpm
}

// AltitudeMeters converts an optional altitude. Nil in, nil out.
func AltitudeMeters(feet *int) *float64 {
	if feet == nil {
		return nil
	}
	v := FeetToMeters(float64(*feet))
	return &v
}

// SpeedKmh converts an optional ground speed. Nil in, nil out.
func SpeedKmh(knots *int) *float64 {
	if knots == nil {
		return nil
	}
	v := KnotsToKmh(float64(*knots))
	return &v
}

// VerticalRateMps converts an optional vertical rate. Nil in, nil out.
func VerticalRateMps(fpm *int) *float64 {
	if fpm == nil {
		return nil
	}
	v := FpmToMps(float64(*fpm))
	return &v
}
