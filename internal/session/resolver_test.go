package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/saviobatista/adsb-tracker/internal/types"
)

// fakeStore returns a canned latest observation per aircraft
type fakeStore struct {
	latest  map[string]*types.Observation
	err     error
	lookups int
}

func (f *fakeStore) LatestObservation(hexIdent string) (*types.Observation, error) {
	f.lookups++
	if f.err != nil {
		return nil, f.err
	}
	return f.latest[hexIdent], nil
}

// fakeCache is an in-memory Cache with optional failure injection
type fakeCache struct {
	entries map[string]*State
	getErr  error
	setErr  error
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]*State)}
}

func (f *fakeCache) GetSession(_ context.Context, hexIdent string) (*State, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.entries[hexIdent], nil
}

func (f *fakeCache) SetSession(_ context.Context, hexIdent string, state *State) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.entries[hexIdent] = state
	return nil
}

func TestResolve_GapWithinTimeoutSharesSession(t *testing.T) {
	resolver := NewResolver(&fakeStore{}, nil, 30*time.Minute)
	ctx := context.Background()
	base := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)

	first, started := resolver.Resolve(ctx, "4C01E2", base)
	if !started {
		t.Error("Expected first observation to start a session")
	}

	gaps := []time.Duration{
		1 * time.Second,
		5 * time.Minute,
		30 * time.Minute, // exactly the timeout still continues
	}
	at := base
	for _, gap := range gaps {
		at = at.Add(gap)
		got, started := resolver.Resolve(ctx, "4C01E2", at)
		if got != first {
			t.Errorf("Gap %s: session = %s, want %s", gap, got, first)
		}
		if started {
			t.Errorf("Gap %s: unexpected new session", gap)
		}
	}
}

func TestResolve_GapOverTimeoutStartsNewSession(t *testing.T) {
	resolver := NewResolver(&fakeStore{}, nil, 30*time.Minute)
	ctx := context.Background()
	base := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)

	first, _ := resolver.Resolve(ctx, "4C01E2", base)
	second, started := resolver.Resolve(ctx, "4C01E2", base.Add(30*time.Minute+time.Second))

	if !started {
		t.Error("Expected gap over timeout to start a new session")
	}
	if second == first {
		t.Error("Expected a previously-unused session identity")
	}
}

func TestResolve_SingleObservationCreatesSession(t *testing.T) {
	resolver := NewResolver(&fakeStore{}, nil, 30*time.Minute)

	sessionID, started := resolver.Resolve(context.Background(), "ABC123", time.Now().UTC())
	if sessionID == "" {
		t.Error("Expected a session identity")
	}
	if !started {
		t.Error("Expected a new session for a never-seen aircraft")
	}
}

func TestResolve_IndependentAircraft(t *testing.T) {
	resolver := NewResolver(&fakeStore{}, nil, 30*time.Minute)
	ctx := context.Background()
	now := time.Now().UTC()

	a, _ := resolver.Resolve(ctx, "AAAAAA", now)
	b, _ := resolver.Resolve(ctx, "BBBBBB", now)
	if a == b {
		t.Error("Distinct aircraft must not share a session")
	}
}

// Cold start: the resolver must seed its cache from the store so
// session continuity survives restarts.
func TestResolve_ColdStartSeedsFromStore(t *testing.T) {
	base := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)
	store := &fakeStore{latest: map[string]*types.Observation{
		"4C01E2": {SessionID: "stored-session", HexIdent: "4C01E2", Timestamp: base},
	}}

	resolver := NewResolver(store, nil, 30*time.Minute)
	got, started := resolver.Resolve(context.Background(), "4C01E2", base.Add(5*time.Minute))

	if got != "stored-session" {
		t.Errorf("Session = %s, want stored-session", got)
	}
	if started {
		t.Error("Expected the stored session to continue")
	}
	if store.lookups != 1 {
		t.Errorf("Store lookups = %d, want 1", store.lookups)
	}

	// Subsequent resolutions hit the in-memory entry only.
	resolver.Resolve(context.Background(), "4C01E2", base.Add(6*time.Minute))
	if store.lookups != 1 {
		t.Errorf("Store lookups after warm cache = %d, want 1", store.lookups)
	}
}

func TestResolve_ColdStartOverTimeoutStartsFresh(t *testing.T) {
	base := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)
	store := &fakeStore{latest: map[string]*types.Observation{
		"4C01E2": {SessionID: "stored-session", HexIdent: "4C01E2", Timestamp: base},
	}}

	resolver := NewResolver(store, nil, 30*time.Minute)
	got, started := resolver.Resolve(context.Background(), "4C01E2", base.Add(40*time.Minute))

	if got == "stored-session" {
		t.Error("Expected a fresh session after the timeout elapsed across the restart")
	}
	if !started {
		t.Error("Expected a new session")
	}
}

// A failing store must degrade to a new session, not block ingestion.
func TestResolve_StoreFailureAssumesNewSession(t *testing.T) {
	store := &fakeStore{err: errors.New("connection refused")}
	resolver := NewResolver(store, nil, 30*time.Minute)

	sessionID, started := resolver.Resolve(context.Background(), "4C01E2", time.Now().UTC())
	if sessionID == "" || !started {
		t.Error("Expected resolution to degrade to a new session on store failure")
	}
}

func TestResolve_CacheLayerSeedsBeforeStore(t *testing.T) {
	base := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)
	store := &fakeStore{latest: map[string]*types.Observation{
		"4C01E2": {SessionID: "stored-session", HexIdent: "4C01E2", Timestamp: base.Add(-time.Hour)},
	}}
	cache := newFakeCache()
	cache.entries["4C01E2"] = &State{SessionID: "cached-session", LastSeen: base}

	resolver := NewResolver(store, cache, 30*time.Minute)
	got, _ := resolver.Resolve(context.Background(), "4C01E2", base.Add(time.Minute))

	if got != "cached-session" {
		t.Errorf("Session = %s, want cached-session", got)
	}
	if store.lookups != 0 {
		t.Errorf("Store lookups = %d, want 0 when cache layer has the entry", store.lookups)
	}
}

func TestResolve_CacheFailuresAreNotFatal(t *testing.T) {
	cache := newFakeCache()
	cache.getErr = errors.New("cache down")
	cache.setErr = errors.New("cache down")

	resolver := NewResolver(&fakeStore{}, cache, 30*time.Minute)
	sessionID, started := resolver.Resolve(context.Background(), "4C01E2", time.Now().UTC())
	if sessionID == "" || !started {
		t.Error("Expected resolution to succeed despite cache failures")
	}
}

func TestResolve_CacheUpdatedOnEveryObservation(t *testing.T) {
	cache := newFakeCache()
	resolver := NewResolver(&fakeStore{}, cache, 30*time.Minute)
	ctx := context.Background()
	base := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)

	resolver.Resolve(ctx, "4C01E2", base)
	resolver.Resolve(ctx, "4C01E2", base.Add(time.Minute))

	state := cache.entries["4C01E2"]
	if state == nil {
		t.Fatal("Expected cache entry for 4C01E2")
	}
	if !state.LastSeen.Equal(base.Add(time.Minute)) {
		t.Errorf("LastSeen = %s, want %s", state.LastSeen, base.Add(time.Minute))
	}
}

// An out-of-order timestamp continues the current session and never
// moves the recency watermark backwards.
func TestResolve_OutOfOrderTimestampContinuesSession(t *testing.T) {
	cache := newFakeCache()
	resolver := NewResolver(&fakeStore{}, cache, 30*time.Minute)
	ctx := context.Background()
	base := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)

	first, _ := resolver.Resolve(ctx, "4C01E2", base)
	got, started := resolver.Resolve(ctx, "4C01E2", base.Add(-10*time.Minute))

	if got != first || started {
		t.Errorf("Out-of-order observation: session = %s (started=%v), want %s continued", got, started, first)
	}
	if state := cache.entries["4C01E2"]; !state.LastSeen.Equal(base) {
		t.Errorf("Watermark moved backwards to %s, want %s", state.LastSeen, base)
	}
}

// Step-function invariant over a realistic observation sequence:
// 4C01E2 at t=0,30,65 then t=65+1900 with a 1800s timeout.
func TestResolve_SegmentationScenario(t *testing.T) {
	resolver := NewResolver(&fakeStore{}, nil, 1800*time.Second)
	ctx := context.Background()
	base := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)

	offsets := []int{0, 30, 65, 65 + 1900}
	var sessions []string
	for _, offset := range offsets {
		sessionID, _ := resolver.Resolve(ctx, "4C01E2", base.Add(time.Duration(offset)*time.Second))
		sessions = append(sessions, sessionID)
	}

	if sessions[0] != sessions[1] || sessions[1] != sessions[2] {
		t.Errorf("First three observations should share a session: %v", sessions[:3])
	}
	if sessions[3] == sessions[0] {
		t.Error("Fourth observation after a 1900s gap should start a new session")
	}
}

func TestNewResolver_ZeroTimeoutUsesDefault(t *testing.T) {
	resolver := NewResolver(&fakeStore{}, nil, 0)
	if resolver.Timeout() != DefaultTimeout {
		t.Errorf("Timeout = %s, want %s", resolver.Timeout(), DefaultTimeout)
	}
}
