// Package feed reads aircraft snapshots from the aircraft.json file
// periodically rewritten by dump1090.
package feed

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/saviobatista/adsb-tracker/internal/types"
)

// ErrNotReady indicates the snapshot file does not exist yet, which
// is normal while dump1090 is still starting up.
var ErrNotReady = errors.New("snapshot file not present yet")

// Reader reads snapshots from a dump1090 aircraft.json file
type Reader struct {
	path string
}

// New creates a new Reader for the given aircraft.json path
func New(path string) *Reader {
	return &Reader{path: path}
}

// Path returns the snapshot file path being polled
func (r *Reader) Path() string {
	return r.path
}

// Read loads and parses the current snapshot
func (r *Reader) Read() (*types.Snapshot, error) {
	data, err := r.ReadRaw()
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// ReadRaw loads the current snapshot document without parsing it,
// for callers that also archive the raw bytes.
func (r *Reader) ReadRaw() ([]byte, error) {
	data, err := os.ReadFile(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotReady
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	return data, nil
}

// Parse decodes a snapshot document. Unknown fields are ignored.
// Entries without an identifier are dropped; identifiers are
// normalized to upper case and callsigns trimmed.
func Parse(data []byte) (*types.Snapshot, error) {
	var snap types.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot: %w", err)
	}

	kept := snap.Aircraft[:0]
	for _, ac := range snap.Aircraft {
		hex := strings.ToUpper(strings.TrimSpace(ac.Hex))
		if hex == "" {
			continue
		}
		ac.Hex = hex
		ac.Flight = strings.TrimSpace(ac.Flight)
		kept = append(kept, ac)
	}
	snap.Aircraft = kept

	return &snap, nil
}
