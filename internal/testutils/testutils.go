// Package testutils provides fixtures shared by tests.
package testutils

import (
	"time"

	"github.com/saviobatista/adsb-tracker/internal/types"
)

// Float returns a pointer to v
func Float(v float64) *float64 {
	return &v
}

// Int returns a pointer to v
func Int(v int) *int {
	return &v
}

// String returns a pointer to v
func String(v string) *string {
	return &v
}

// MockAircraft creates a feed entry with full telemetry for testing
func MockAircraft(hexIdent string) types.Aircraft {
	return types.Aircraft{
		Hex:      hexIdent,
		Flight:   "TAM3886",
		Squawk:   "2044",
		Category: "A3",
		Lat:      Float(-23.4356),
		Lon:      Float(-46.4731),
		Altitude: Int(10000),
		Speed:    Int(100),
		Track:    Int(180),
		VertRate: Int(1000),
		Messages: Int(125),
		Seen:     Float(0.2),
		RSSI:     Float(-21.5),
	}
}

// MockObservation creates a stored observation with a position for testing
func MockObservation(hexIdent, sessionID string, timestamp time.Time) *types.Observation {
	return &types.Observation{
		ID:         "0d9a4861-7c93-4fcb-b5ab-a2b5f2b09dbd",
		SessionID:  sessionID,
		HexIdent:   hexIdent,
		Timestamp:  timestamp,
		Flight:     String("TAM3886"),
		Lat:        Float(-23.4356),
		Lon:        Float(-46.4731),
		Altitude:   Int(10000),
		AltitudeM:  Float(3048.0),
		Speed:      Int(100),
		SpeedKmh:   Float(185.2),
		VertRate:   Int(1000),
		VertRateMS: Float(5.08),
	}
}
