package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/saviobatista/adsb-tracker/internal/archive"
	"github.com/saviobatista/adsb-tracker/internal/config"
	"github.com/saviobatista/adsb-tracker/internal/db"
	"github.com/saviobatista/adsb-tracker/internal/feed"
	"github.com/saviobatista/adsb-tracker/internal/nats"
	"github.com/saviobatista/adsb-tracker/internal/redis"
	"github.com/saviobatista/adsb-tracker/internal/session"
	"github.com/saviobatista/adsb-tracker/internal/stats"
	"github.com/saviobatista/adsb-tracker/internal/types"
	"github.com/saviobatista/adsb-tracker/internal/units"
)

const (
	maxWriteRetries      = 3
	statsLogInterval     = 1 * time.Minute
	statsPersistInterval = 5 * time.Minute
	startupPingTimeout   = 10 * time.Second
)

// StoreClient interface for testability
type StoreClient interface {
	session.Store
	StoreObservation(obs *types.Observation) error
	Close() error
}

// Publisher is the optional observation fan-out
type Publisher interface {
	PublishObservation(obs *types.Observation) error
}

// SnapshotArchive is the optional raw feed retention
type SnapshotArchive interface {
	WriteSnapshot(data []byte) error
}

// Tracker polls the feed and turns each snapshot into stored,
// session-tagged observations.
type Tracker struct {
	feed      *feed.Reader
	store     StoreClient
	resolver  *session.Resolver
	stats     *stats.Stats
	publisher Publisher       // nil when NATS is not configured
	archive   SnapshotArchive // nil when archiving is not configured
	interval  time.Duration
	pretty    bool
}

// NewTracker creates a new Tracker
func NewTracker(reader *feed.Reader, store StoreClient, resolver *session.Resolver, st *stats.Stats, interval time.Duration) *Tracker {
	return &Tracker{
		feed:     reader,
		store:    store,
		resolver: resolver,
		stats:    st,
		interval: interval,
	}
}

// Run polls the feed until the context is cancelled. Cycles never
// overlap: each runs to completion before the next timer fire is
// consumed.
func (t *Tracker) Run(ctx context.Context) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	t.runCycle(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.runCycle(ctx)
		}
	}
}

// runCycle performs one poll: read, convert, resolve, persist. Feed
// errors skip the cycle; they never stop the loop.
func (t *Tracker) runCycle(ctx context.Context) {
	start := time.Now()

	raw, err := t.feed.ReadRaw()
	if errors.Is(err, feed.ErrNotReady) {
		log.Printf("Waiting for %s...", t.feed.Path())
		t.stats.IncrementFeedErrors()
		return
	}
	if err != nil {
		log.Printf("Failed to read feed: %v", err)
		t.stats.IncrementFeedErrors()
		return
	}

	snap, err := feed.Parse(raw)
	if err != nil {
		log.Printf("Failed to parse feed, skipping cycle: %v", err)
		t.stats.IncrementFeedErrors()
		return
	}

	if t.archive != nil {
		if err := t.archive.WriteSnapshot(raw); err != nil {
			log.Printf("Warning: Failed to archive snapshot: %v", err)
		}
	}

	observedAt := time.Now().UTC()
	started := t.ProcessSnapshot(ctx, snap, observedAt)

	t.stats.IncrementCycles()
	t.stats.SetActiveAircraft(uint64(len(snap.Aircraft)))
	t.stats.UpdateLastCycleTime()
	t.stats.AddProcessingTime(time.Since(start))

	if t.pretty {
		printCycle(snap, observedAt, started)
	} else if len(snap.Aircraft) > 0 {
		log.Printf("Processed %d aircraft, %d new sessions, %d total messages",
			len(snap.Aircraft), started, snap.Messages)
	}
}

// ProcessSnapshot converts, resolves and persists every aircraft in
// one snapshot. All entries share observedAt. Returns the number of
// sessions started.
func (t *Tracker) ProcessSnapshot(ctx context.Context, snap *types.Snapshot, observedAt time.Time) int {
	started := 0
	for i := range snap.Aircraft {
		ac := &snap.Aircraft[i]

		obs := buildObservation(ac, observedAt)
		sessionID, isNew := t.resolver.Resolve(ctx, ac.Hex, observedAt)
		obs.SessionID = sessionID
		if isNew {
			started++
			t.stats.IncrementSessionsStarted()
		} else {
			t.stats.IncrementSessionsResumed()
		}

		if err := t.storeWithRetry(obs); err != nil {
			// The record is lost; the batch is not.
			t.stats.IncrementDroppedWrites()
			log.Printf("Dropped observation for %s after %d attempts: %v", ac.Hex, maxWriteRetries+1, err)
			continue
		}
		t.stats.IncrementObservations()

		if t.publisher != nil {
			if err := t.publisher.PublishObservation(obs); err != nil {
				log.Printf("Warning: Failed to publish observation: %v", err)
			}
		}
	}
	return started
}

// storeWithRetry appends one observation with bounded exponential
// backoff around transient store errors.
func (t *Tracker) storeWithRetry(obs *types.Observation) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 100 * time.Millisecond
	policy.MaxElapsedTime = 10 * time.Second

	return backoff.Retry(func() error {
		return t.store.StoreObservation(obs)
	}, backoff.WithMaxRetries(policy, maxWriteRetries))
}

// buildObservation converts a feed entry into a stored observation,
// deriving metric units. Absent fields stay absent.
func buildObservation(ac *types.Aircraft, observedAt time.Time) *types.Observation {
	obs := &types.Observation{
		ID:         uuid.New().String(),
		HexIdent:   ac.Hex,
		Timestamp:  observedAt,
		Lat:        ac.Lat,
		Lon:        ac.Lon,
		Altitude:   ac.Altitude,
		AltitudeM:  units.AltitudeMeters(ac.Altitude),
		Speed:      ac.Speed,
		SpeedKmh:   units.SpeedKmh(ac.Speed),
		Track:      ac.Track,
		VertRate:   ac.VertRate,
		VertRateMS: units.VerticalRateMps(ac.VertRate),
		NUCp:       ac.NUCp,
		SeenPos:    ac.SeenPos,
		Messages:   ac.Messages,
		Seen:       ac.Seen,
		RSSI:       ac.RSSI,
	}
	if ac.Flight != "" {
		obs.Flight = &ac.Flight
	}
	if ac.Squawk != "" {
		obs.Squawk = &ac.Squawk
	}
	if ac.Category != "" {
		obs.Category = &ac.Category
	}
	obs.MLAT = jsonArray(ac.MLAT)
	obs.TISB = jsonArray(ac.TISB)
	return obs
}

// jsonArray serializes a feed array as JSON text, nil for absent
func jsonArray(values []string) *string {
	if values == nil {
		return nil
	}
	data, err := json.Marshal(values)
	if err != nil {
		return nil
	}
	s := string(data)
	return &s
}

// printCycle writes the human-readable per-cycle summary used in
// pretty mode.
func printCycle(snap *types.Snapshot, observedAt time.Time, started int) {
	fmt.Printf("%s | %d aircraft visible | %d new sessions | %d total messages\n",
		observedAt.Local().Format("15:04:05"), len(snap.Aircraft), started, snap.Messages)
	for _, ac := range snap.Aircraft {
		line := fmt.Sprintf("  %s", ac.Hex)
		if ac.Flight != "" {
			line += fmt.Sprintf(" %-8s", ac.Flight)
		}
		if ac.Altitude != nil {
			line += fmt.Sprintf(" %dft", *ac.Altitude)
		}
		if ac.Lat != nil && ac.Lon != nil {
			line += fmt.Sprintf(" %.5f,%.5f", *ac.Lat, *ac.Lon)
		}
		if ac.Speed != nil {
			line += fmt.Sprintf(" %dkt", *ac.Speed)
		}
		fmt.Println(line)
	}
}

// logStats periodically logs statistics
func logStats(ctx context.Context, st *stats.Stats) {
	ticker := time.NewTicker(statsLogInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			log.Printf("Statistics:\n%s", st)
		}
	}
}

func main() {
	pretty := flag.Bool("pretty", false, "Enable pretty console output (default: structured logging)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Printf("Failed to load configuration: %v", err)
		os.Exit(1)
	}

	// An unreachable store at startup is the one fatal error.
	dbClient, err := db.New(cfg.DBConnStr)
	if err != nil {
		log.Printf("Failed to create database client: %v", err)
		os.Exit(1)
	}
	pingCtx, cancelPing := context.WithTimeout(context.Background(), startupPingTimeout)
	err = dbClient.Ping(pingCtx)
	cancelPing()
	if err != nil {
		log.Printf("Failed to connect to database: %v", err)
		os.Exit(1)
	}

	// Optional layers degrade to warnings: ingestion must keep
	// working on the database alone.
	var cache session.Cache
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient, err = redis.New(cfg.RedisAddr)
		if err != nil {
			log.Printf("Warning: Redis unavailable, continuing without shared session cache: %v", err)
		} else {
			cache = redisClient
		}
	}

	var publisher Publisher
	var natsClient *nats.Client
	if cfg.NATSURL != "" {
		natsClient, err = nats.New(cfg.NATSURL)
		if err != nil {
			log.Printf("Warning: NATS unavailable, continuing without observation fan-out: %v", err)
		} else {
			publisher = natsClient
		}
	}

	var snapshotArchive *archive.Archive
	if cfg.ArchiveDir != "" {
		snapshotArchive = archive.New(cfg.ArchiveDir)
		if err := snapshotArchive.Start(); err != nil {
			log.Printf("Warning: Failed to start snapshot archive: %v", err)
			snapshotArchive = nil
		}
	}

	resolver := session.NewResolver(dbClient, cache, cfg.SessionTimeout)
	st := stats.New()
	st.SetDB(dbClient)

	tracker := NewTracker(feed.New(cfg.JSONFile), dbClient, resolver, st, cfg.PollInterval)
	tracker.pretty = *pretty
	if publisher != nil {
		tracker.publisher = publisher
	}
	if snapshotArchive != nil {
		tracker.archive = snapshotArchive
	}

	if *pretty {
		fmt.Println("Aircraft Tracker (pretty mode)")
	} else {
		log.Printf("Starting tracker: monitoring %s every %s, session timeout %s",
			cfg.JSONFile, cfg.PollInterval, cfg.SessionTimeout)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go st.StartPersistence(ctx, statsPersistInterval)
	go logStats(ctx, st)

	done := make(chan struct{})
	go func() {
		tracker.Run(ctx)
		close(done)
	}()

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutting down...")
	cancel()

	// Let an in-flight cycle finish before its clients go away.
	<-done

	if snapshotArchive != nil {
		if err := snapshotArchive.Stop(); err != nil {
			fmt.Fprintf(os.Stderr, "error stopping archive: %v\n", err)
		}
	}
	if natsClient != nil {
		natsClient.Close()
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "error closing redisClient: %v\n", err)
		}
	}
	if err := dbClient.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "error closing dbClient: %v\n", err)
	}
}
