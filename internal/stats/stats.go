package stats

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/saviobatista/adsb-tracker/internal/db"
)

// Stats tracks ingestion statistics
type Stats struct {
	// Counters
	Cycles          uint64
	FeedErrors      uint64
	Observations    uint64
	SessionsStarted uint64
	SessionsResumed uint64
	DroppedWrites   uint64

	// Active tracking
	ActiveAircraft uint64

	// Timing
	StartedAt      time.Time
	LastCycleTime  time.Time
	ProcessingTime time.Duration

	// Database client for persistence
	db *db.Client

	mu sync.RWMutex
}

// New creates a new Stats instance
func New() *Stats {
	now := time.Now()
	return &Stats{
		StartedAt:     now,
		LastCycleTime: now,
	}
}

// SetDB sets the database client for persistence
func (s *Stats) SetDB(db *db.Client) {
	s.mu.Lock()
	s.db = db
	s.mu.Unlock()
}

// IncrementCycles increments the poll cycles counter
func (s *Stats) IncrementCycles() {
	atomic.AddUint64(&s.Cycles, 1)
}

// IncrementFeedErrors increments the skipped-cycle counter
func (s *Stats) IncrementFeedErrors() {
	atomic.AddUint64(&s.FeedErrors, 1)
}

// IncrementObservations increments the stored observations counter
func (s *Stats) IncrementObservations() {
	atomic.AddUint64(&s.Observations, 1)
}

// IncrementSessionsStarted increments the new sessions counter
func (s *Stats) IncrementSessionsStarted() {
	atomic.AddUint64(&s.SessionsStarted, 1)
}

// IncrementSessionsResumed increments the continued sessions counter
func (s *Stats) IncrementSessionsResumed() {
	atomic.AddUint64(&s.SessionsResumed, 1)
}

// IncrementDroppedWrites increments the lost records counter
func (s *Stats) IncrementDroppedWrites() {
	atomic.AddUint64(&s.DroppedWrites, 1)
}

// SetActiveAircraft sets the number of aircraft currently visible
func (s *Stats) SetActiveAircraft(count uint64) {
	atomic.StoreUint64(&s.ActiveAircraft, count)
}

// UpdateLastCycleTime marks the completion of a poll cycle
func (s *Stats) UpdateLastCycleTime() {
	s.mu.Lock()
	s.LastCycleTime = time.Now()
	s.mu.Unlock()
}

// AddProcessingTime adds to the total processing time
func (s *Stats) AddProcessingTime(duration time.Duration) {
	s.mu.Lock()
	s.ProcessingTime += duration
	s.mu.Unlock()
}

// Snapshot returns a copy of the current counters
func (s *Stats) Snapshot() *db.IngestStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return &db.IngestStats{
		Time:             time.Now(),
		Cycles:           atomic.LoadUint64(&s.Cycles),
		FeedErrors:       atomic.LoadUint64(&s.FeedErrors),
		Observations:     atomic.LoadUint64(&s.Observations),
		SessionsStarted:  atomic.LoadUint64(&s.SessionsStarted),
		SessionsResumed:  atomic.LoadUint64(&s.SessionsResumed),
		DroppedWrites:    atomic.LoadUint64(&s.DroppedWrites),
		ActiveAircraft:   atomic.LoadUint64(&s.ActiveAircraft),
		ProcessingTimeMs: s.ProcessingTime.Milliseconds(),
	}
}

// Persist stores the current statistics in the database
func (s *Stats) Persist() error {
	s.mu.RLock()
	client := s.db
	s.mu.RUnlock()

	if client == nil {
		return fmt.Errorf("database client not set")
	}
	return client.StoreIngestStats(s.Snapshot())
}

// String returns a string representation of the statistics
func (s *Stats) String() string {
	snap := s.Snapshot()

	s.mu.RLock()
	uptime := time.Since(s.StartedAt)
	processing := s.ProcessingTime
	s.mu.RUnlock()

	return fmt.Sprintf(
		"Cycles: %d\n"+
			"Feed Errors: %d\n"+
			"Observations: %d\n"+
			"Sessions Started: %d\n"+
			"Sessions Resumed: %d\n"+
			"Dropped Writes: %d\n"+
			"Active Aircraft: %d\n"+
			"Processing Time: %s\n"+
			"Uptime: %s",
		snap.Cycles,
		snap.FeedErrors,
		snap.Observations,
		snap.SessionsStarted,
		snap.SessionsResumed,
		snap.DroppedWrites,
		snap.ActiveAircraft,
		processing,
		uptime,
	)
}

// StartPersistence starts periodic persistence of statistics
func (s *Stats) StartPersistence(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// Final persistence before shutdown
			if err := s.Persist(); err != nil {
				log.Printf("Failed to persist final statistics: %v", err)
			}
			return
		case <-ticker.C:
			if err := s.Persist(); err != nil {
				log.Printf("Failed to persist statistics: %v", err)
			}
		}
	}
}
