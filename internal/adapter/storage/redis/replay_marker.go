package redis

import (
	"context"
	"fmt"
	"time"

	"sacco-ledger/internal/core/domain"

	goredis "github.com/redis/go-redis/v9"
)

// ReplayMarker implements ports.ReplayMarker: a best-effort fast path in
// front of the durable idempotency guard. The database remains the single
// point of truth; a marker miss (or any Redis failure) just costs one
// extra round trip.
type ReplayMarker struct {
	client *goredis.Client
	prefix string
}

// NewReplayMarker creates a Redis-backed replay marker.
func NewReplayMarker(client *goredis.Client) *ReplayMarker {
	return &ReplayMarker{
		client: client,
		prefix: "replay:",
	}
}

// Seen reports whether the event was already marked.
func (m *ReplayMarker) Seen(ctx context.Context, kind domain.EventKind, key string) (bool, error) {
	n, err := m.client.Exists(ctx, m.prefix+domain.ReplayMarkerKey(kind, key)).Result()
	if err != nil {
		return false, fmt.Errorf("redis replay seen: %w", err)
	}
	return n > 0, nil
}

// Mark records the event as seen with a TTL.
func (m *ReplayMarker) Mark(ctx context.Context, kind domain.EventKind, key string, ttl time.Duration) error {
	err := m.client.Set(ctx, m.prefix+domain.ReplayMarkerKey(kind, key), 1, ttl).Err()
	if err != nil {
		return fmt.Errorf("redis replay mark: %w", err)
	}
	return nil
}
