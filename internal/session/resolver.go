// Package session assigns flight session identities to aircraft
// observations. Consecutive observations of one aircraft share a
// session as long as the gap between them stays within the
// inactivity timeout; a larger gap starts a new session.
package session

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/saviobatista/adsb-tracker/internal/types"
)

// DefaultTimeout is the inactivity gap that closes a flight session.
const DefaultTimeout = 30 * time.Minute

// State is the last known session identity for one aircraft.
type State struct {
	SessionID string    `json:"session_id"`
	LastSeen  time.Time `json:"last_seen"`
}

// Store is the durable source of truth, consulted when an aircraft
// is not present in any cache layer (typically after a restart).
type Store interface {
	LatestObservation(hexIdent string) (*types.Observation, error)
}

// Cache is an optional shared cache layer between the in-memory map
// and the store. Implementations are best-effort: errors degrade to
// a store lookup, never to a failed resolution.
type Cache interface {
	GetSession(ctx context.Context, hexIdent string) (*State, error)
	SetSession(ctx context.Context, hexIdent string, state *State) error
}

// Resolver decides the session identity of each new observation.
// It is not safe for concurrent use: ingestion runs one poll cycle
// at a time, so there is a single logical writer.
type Resolver struct {
	timeout time.Duration
	store   Store
	cache   Cache // may be nil
	entries map[string]*State
}

// NewResolver creates a Resolver backed by the given store and an
// optional shared cache. A timeout of zero selects DefaultTimeout.
func NewResolver(store Store, cache Cache, timeout time.Duration) *Resolver {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Resolver{
		timeout: timeout,
		store:   store,
		cache:   cache,
		entries: make(map[string]*State),
	}
}

// Timeout returns the configured inactivity timeout.
func (r *Resolver) Timeout() time.Duration {
	return r.timeout
}

// Resolve returns the session identity for an observation of
// hexIdent at observedAt, and whether that session was started by
// this observation. A new session begins when the aircraft has no
// known prior observation or when the gap since the last one
// exceeds the timeout.
//
// An observation older than the aircraft's recency watermark
// continues the current session; the watermark never moves
// backwards, so receiver clock steps cannot split a pass.
func (r *Resolver) Resolve(ctx context.Context, hexIdent string, observedAt time.Time) (string, bool) {
	prev := r.lookup(ctx, hexIdent)

	if prev == nil || observedAt.Sub(prev.LastSeen) > r.timeout {
		sessionID := uuid.New().String()
		r.remember(ctx, hexIdent, &State{SessionID: sessionID, LastSeen: observedAt})
		return sessionID, true
	}

	lastSeen := observedAt
	if prev.LastSeen.After(lastSeen) {
		lastSeen = prev.LastSeen
	}
	r.remember(ctx, hexIdent, &State{SessionID: prev.SessionID, LastSeen: lastSeen})
	return prev.SessionID, false
}

// lookup finds the last known state for an aircraft: in-memory map
// first, then the shared cache, then the store. A store failure is
// logged and treated as "never seen" so ingestion keeps going.
func (r *Resolver) lookup(ctx context.Context, hexIdent string) *State {
	if state, ok := r.entries[hexIdent]; ok {
		return state
	}

	if r.cache != nil {
		state, err := r.cache.GetSession(ctx, hexIdent)
		if err != nil {
			log.Printf("Warning: Failed to get session state from cache: %v", err)
		} else if state != nil {
			r.entries[hexIdent] = state
			return state
		}
	}

	if r.store == nil {
		return nil
	}
	obs, err := r.store.LatestObservation(hexIdent)
	if err != nil {
		log.Printf("Warning: Failed to load last observation for %s, assuming new session: %v", hexIdent, err)
		return nil
	}
	if obs == nil {
		return nil
	}

	state := &State{SessionID: obs.SessionID, LastSeen: obs.Timestamp}
	r.entries[hexIdent] = state
	return state
}

// remember updates the in-memory entry and, best-effort, the shared
// cache. Every observation refreshes the entry, including ones that
// continue an existing session.
func (r *Resolver) remember(ctx context.Context, hexIdent string, state *State) {
	r.entries[hexIdent] = state
	if r.cache != nil {
		if err := r.cache.SetSession(ctx, hexIdent, state); err != nil {
			log.Printf("Warning: Failed to store session state in cache: %v", err)
		}
	}
}
