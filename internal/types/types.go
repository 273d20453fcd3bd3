package types

import (
	"time"
)

// Aircraft is one entry from a dump1090 aircraft.json snapshot.
// Telemetry fields are pointers because dump1090 omits anything it
// has not decoded yet; an absent field must stay absent downstream.
type Aircraft struct {
	Hex      string   `json:"hex"`
	Flight   string   `json:"flight"`
	Squawk   string   `json:"squawk"`
	Category string   `json:"category"`
	Lat      *float64 `json:"lat"`
	Lon      *float64 `json:"lon"`
	Altitude *int     `json:"altitude"`  // feet
	Speed    *int     `json:"speed"`     // knots
	Track    *int     `json:"track"`     // degrees
	VertRate *int     `json:"vert_rate"` // feet/min
	NUCp     *int     `json:"nucp"`
	SeenPos  *float64 `json:"seen_pos"`
	Messages *int     `json:"messages"`
	Seen     *float64 `json:"seen"`
	RSSI     *float64 `json:"rssi"`
	MLAT     []string `json:"mlat"`
	TISB     []string `json:"tisb"`
}

// Snapshot is the envelope dump1090 rewrites on every update cycle.
type Snapshot struct {
	Now      float64    `json:"now"`
	Messages int        `json:"messages"`
	Aircraft []Aircraft `json:"aircraft"`
}

// Observation is one stored aircraft observation, enriched with a
// flight session identity and metric conversions of the imperial
// telemetry. Nil means the feed omitted the field in that cycle.
type Observation struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	HexIdent  string    `json:"hex_ident"`
	Timestamp time.Time `json:"timestamp"`

	Flight   *string `json:"flight,omitempty"`
	Squawk   *string `json:"squawk,omitempty"`
	Category *string `json:"category,omitempty"`

	Lat *float64 `json:"lat,omitempty"`
	Lon *float64 `json:"lon,omitempty"`

	Altitude  *int     `json:"altitude,omitempty"`   // feet
	AltitudeM *float64 `json:"altitude_m,omitempty"` // meters

	Speed      *int     `json:"speed,omitempty"`        // knots
	SpeedKmh   *float64 `json:"speed_kmh,omitempty"`    // km/h
	Track      *int     `json:"track,omitempty"`        // degrees
	VertRate   *int     `json:"vert_rate,omitempty"`    // feet/min
	VertRateMS *float64 `json:"vert_rate_ms,omitempty"` // m/s

	NUCp     *int     `json:"nucp,omitempty"`
	SeenPos  *float64 `json:"seen_pos,omitempty"`
	Messages *int     `json:"messages,omitempty"`
	Seen     *float64 `json:"seen,omitempty"`
	RSSI     *float64 `json:"rssi,omitempty"`

	// MLAT and TISB are stored as JSON array text, as delivered.
	MLAT *string `json:"mlat,omitempty"`
	TISB *string `json:"tisb,omitempty"`
}

// HasPosition reports whether the observation carries a plottable
// 3D point (position plus metric altitude).
func (o *Observation) HasPosition() bool {
	return o.Lat != nil && o.Lon != nil && o.AltitudeM != nil
}
