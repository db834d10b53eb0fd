// Package metadata stores small key/value pairs of client state, such as the
// time of the last successful drain.
package metadata

import (
	"context"
	"time"
)

const (
	// KeyLastSyncAt holds the unix millis of the last confirmed drain.
	KeyLastSyncAt = "last_sync_at"
	// KeySeededAt holds the unix millis of the last completed demo seed.
	KeySeededAt = "seeded_at"
)

type Repository interface {
	// Get returns nil, nil for an absent key.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) (map[string][]byte, error)
	Clear(ctx context.Context) error

	// GetTime decodes a millisecond timestamp; the zero time when absent.
	GetTime(ctx context.Context, key string) (time.Time, error)
	SetTime(ctx context.Context, key string, t time.Time) error
}
