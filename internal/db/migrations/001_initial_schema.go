package migrations

// InitialSchema creates the observations hypertable and the
// ingestion stats table.
var InitialSchema = &Migration{
	ID:   "001_initial_schema",
	Name: "001_initial_schema",
	UpSQL: `
		-- Enable TimescaleDB extension
		CREATE EXTENSION IF NOT EXISTS timescaledb;

		-- One row per aircraft per poll cycle. Telemetry columns are
		-- nullable: the feed omits fields it has not decoded yet.
		CREATE TABLE IF NOT EXISTS observations (
			id UUID NOT NULL,
			session_id UUID NOT NULL,
			hex_ident TEXT NOT NULL,
			time TIMESTAMPTZ NOT NULL,
			flight TEXT,
			squawk TEXT,
			category TEXT,
			lat DOUBLE PRECISION,
			lon DOUBLE PRECISION,
			altitude INTEGER,
			altitude_m DOUBLE PRECISION,
			speed INTEGER,
			speed_kmh DOUBLE PRECISION,
			track INTEGER,
			vert_rate INTEGER,
			vert_rate_ms DOUBLE PRECISION,
			nucp INTEGER,
			seen_pos DOUBLE PRECISION,
			messages INTEGER,
			seen DOUBLE PRECISION,
			rssi DOUBLE PRECISION,
			mlat TEXT,
			tisb TEXT
		);

		-- Create hypertable
		SELECT create_hypertable('observations', 'time');

		-- hex_ident + time DESC serves the latest-observation lookup
		CREATE INDEX IF NOT EXISTS idx_observations_hex_ident_time ON observations (hex_ident, time DESC);
		CREATE INDEX IF NOT EXISTS idx_observations_session_id ON observations (session_id);

		-- Ingestion counters snapshots
		CREATE TABLE IF NOT EXISTS ingest_stats (
			time TIMESTAMPTZ NOT NULL,
			cycles BIGINT,
			feed_errors BIGINT,
			observations BIGINT,
			sessions_started BIGINT,
			sessions_resumed BIGINT,
			dropped_writes BIGINT,
			active_aircraft BIGINT,
			processing_time_ms BIGINT
		);

		SELECT create_hypertable('ingest_stats', 'time');
	`,
	DownSQL: `
		DROP TABLE IF EXISTS ingest_stats;
		DROP TABLE IF EXISTS observations;
	`,
}
