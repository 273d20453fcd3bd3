package migrations

// RetentionPolicies bounds on-disk growth and adds a daily rollup of
// the ingestion counters.
var RetentionPolicies = &Migration{
	ID:   "002_retention_policies",
	Name: "002_retention_policies",
	UpSQL: `
	-- Keep raw observations for 90 days
	SELECT add_retention_policy('observations', INTERVAL '90 days');

	-- Keep ingestion stats for 180 days
	SELECT add_retention_policy('ingest_stats', INTERVAL '180 days');

	-- Daily rollup of ingestion counters
	CREATE MATERIALIZED VIEW IF NOT EXISTS ingest_stats_daily
	WITH (timescaledb.continuous) AS
	SELECT
		time_bucket('1 day', time) AS day,
		SUM(cycles) AS cycles,
		SUM(feed_errors) AS feed_errors,
		SUM(observations) AS observations,
		SUM(sessions_started) AS sessions_started,
		SUM(sessions_resumed) AS sessions_resumed,
		SUM(dropped_writes) AS dropped_writes
	FROM ingest_stats
	GROUP BY day
	WITH NO DATA;
	`,
	DownSQL: `
	DROP MATERIALIZED VIEW IF EXISTS ingest_stats_daily;
	SELECT remove_retention_policy('observations');
	SELECT remove_retention_policy('ingest_stats');
	`,
}
