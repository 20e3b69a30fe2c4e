package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// SnapshotVersion is bumped whenever the shape written into
// CachedOrder.RawSnapshot changes. Reads reject unknown versions
// instead of reinterpreting stale blobs.
const SnapshotVersion = 1

var ErrSnapshotVersion = fmt.Errorf("unsupported snapshot version")

// SnapshotEnvelope wraps the canonical remote order representation
// stored in the cache.
type SnapshotEnvelope struct {
	Version   int             `json:"version"`
	FetchedAt time.Time       `json:"fetched_at"`
	Order     json.RawMessage `json:"order"`
}

func EncodeSnapshot(order json.RawMessage, fetchedAt time.Time) ([]byte, error) {
	if len(order) == 0 {
		return nil, fmt.Errorf("encode snapshot: empty order payload")
	}
	return json.Marshal(&SnapshotEnvelope{
		Version:   SnapshotVersion,
		FetchedAt: fetchedAt,
		Order:     order,
	})
}

func DecodeSnapshot(raw []byte) (*SnapshotEnvelope, error) {
	var env SnapshotEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if env.Version != SnapshotVersion {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrSnapshotVersion, env.Version, SnapshotVersion)
	}
	if len(env.Order) == 0 {
		return nil, fmt.Errorf("decode snapshot: missing order payload")
	}
	return &env, nil
}
