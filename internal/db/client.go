package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // postgres driver
	"github.com/saviobatista/adsb-tracker/internal/types"
)

// Client manages the Postgres/TimescaleDB connection
type Client struct {
	db *sql.DB
}

// New creates a new database client
func New(connStr string) (*Client, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}
	return &Client{db: db}, nil
}

// Ping verifies the database is reachable
func (c *Client) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

// Close closes the database connection
func (c *Client) Close() error {
	return c.db.Close()
}

const observationColumns = `id, session_id, hex_ident, time, flight, squawk, category,
			lat, lon, altitude, altitude_m, speed, speed_kmh, track,
			vert_rate, vert_rate_ms, nucp, seen_pos, messages, seen, rssi, mlat, tisb`

// StoreObservation appends one observation. Each observation is a
// single INSERT, so the session assignment and the telemetry commit
// atomically.
func (c *Client) StoreObservation(obs *types.Observation) error {
	query := `
		INSERT INTO observations (` + observationColumns + `
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12,
			$13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23)
	`
	_, err := c.db.Exec(query,
		obs.ID, obs.SessionID, obs.HexIdent, obs.Timestamp,
		obs.Flight, obs.Squawk, obs.Category,
		obs.Lat, obs.Lon, obs.Altitude, obs.AltitudeM,
		obs.Speed, obs.SpeedKmh, obs.Track,
		obs.VertRate, obs.VertRateMS, obs.NUCp, obs.SeenPos,
		obs.Messages, obs.Seen, obs.RSSI, obs.MLAT, obs.TISB,
	)
	return err
}

// LatestObservation returns the most recent observation of an
// aircraft, or nil if it has never been seen. Used to seed the
// session state cache after a restart.
func (c *Client) LatestObservation(hexIdent string) (*types.Observation, error) {
	query := `
		SELECT ` + observationColumns + `
		FROM observations
		WHERE hex_ident = $1
		ORDER BY time DESC
		LIMIT 1
	`
	obs, err := scanObservation(c.db.QueryRow(query, hexIdent))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return obs, nil
}

// TrajectoryFilter narrows the observations returned by Trajectories.
type TrajectoryFilter struct {
	HexIdent     string   // exact aircraft identifier, empty for all
	MaxAltitudeM *float64 // ceiling in meters, nil for none
}

// Trajectories returns all plottable observations (position and
// metric altitude present) in time order, optionally filtered by
// aircraft and altitude ceiling.
func (c *Client) Trajectories(filter TrajectoryFilter) ([]*types.Observation, error) {
	query := `
		SELECT ` + observationColumns + `
		FROM observations
		WHERE lat IS NOT NULL AND lon IS NOT NULL AND altitude_m IS NOT NULL
	`
	var args []interface{}
	if filter.HexIdent != "" {
		args = append(args, filter.HexIdent)
		query += fmt.Sprintf(" AND hex_ident = $%d", len(args))
	}
	if filter.MaxAltitudeM != nil {
		args = append(args, *filter.MaxAltitudeM)
		query += fmt.Sprintf(" AND altitude_m <= $%d", len(args))
	}
	query += " ORDER BY time ASC"

	rows, err := c.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var observations []*types.Observation
	for rows.Next() {
		obs, err := scanObservation(rows)
		if err != nil {
			return nil, err
		}
		observations = append(observations, obs)
	}
	return observations, rows.Err()
}

// IngestStats is one snapshot of ingestion counters.
type IngestStats struct {
	Time             time.Time
	Cycles           uint64
	FeedErrors       uint64
	Observations     uint64
	SessionsStarted  uint64
	SessionsResumed  uint64
	DroppedWrites    uint64
	ActiveAircraft   uint64
	ProcessingTimeMs int64
}

// StoreIngestStats persists an ingestion counters snapshot
func (c *Client) StoreIngestStats(stats *IngestStats) error {
	query := `
		INSERT INTO ingest_stats (
			time, cycles, feed_errors, observations,
			sessions_started, sessions_resumed, dropped_writes,
			active_aircraft, processing_time_ms
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := c.db.Exec(query,
		stats.Time, stats.Cycles, stats.FeedErrors, stats.Observations,
		stats.SessionsStarted, stats.SessionsResumed, stats.DroppedWrites,
		stats.ActiveAircraft, stats.ProcessingTimeMs,
	)
	return err
}

// scanner covers both *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanObservation(row scanner) (*types.Observation, error) {
	var (
		obs                          types.Observation
		flight, squawk, category     sql.NullString
		lat, lon, altM, speedKmh     sql.NullFloat64
		vertRateMS, seenPos, seen    sql.NullFloat64
		rssi                         sql.NullFloat64
		alt, speed, track, vertRate  sql.NullInt64
		nucp, messages               sql.NullInt64
		mlat, tisb                   sql.NullString
	)

	if err := row.Scan(
		&obs.ID, &obs.SessionID, &obs.HexIdent, &obs.Timestamp,
		&flight, &squawk, &category,
		&lat, &lon, &alt, &altM,
		&speed, &speedKmh, &track,
		&vertRate, &vertRateMS, &nucp, &seenPos,
		&messages, &seen, &rssi, &mlat, &tisb,
	); err != nil {
		return nil, err
	}

	obs.Flight = nullString(flight)
	obs.Squawk = nullString(squawk)
	obs.Category = nullString(category)
	obs.Lat = nullFloat(lat)
	obs.Lon = nullFloat(lon)
	obs.Altitude = nullInt(alt)
	obs.AltitudeM = nullFloat(altM)
	obs.Speed = nullInt(speed)
	obs.SpeedKmh = nullFloat(speedKmh)
	obs.Track = nullInt(track)
	obs.VertRate = nullInt(vertRate)
	obs.VertRateMS = nullFloat(vertRateMS)
	obs.NUCp = nullInt(nucp)
	obs.SeenPos = nullFloat(seenPos)
	obs.Messages = nullInt(messages)
	obs.Seen = nullFloat(seen)
	obs.RSSI = nullFloat(rssi)
	obs.MLAT = nullString(mlat)
	obs.TISB = nullString(tisb)

	return &obs, nil
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	return &v.String
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return &v.Float64
}

func nullInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}
