package domain

import "time"

// EventKind partitions the idempotency key space per external event type.
type EventKind string

const (
	EventKindC2B        EventKind = "C2B_CONFIRMATION"
	EventKindSTK        EventKind = "STK_CALLBACK"
	EventKindB2CResult  EventKind = "B2C_RESULT"
	EventKindB2CTimeout EventKind = "B2C_TIMEOUT"
)

// IdempotencyRecord marks an external event as seen. Insertion of this
// row is the single point of truth for "first time": the unique
// constraint on (kind, key) decides races, never a check-then-insert.
type IdempotencyRecord struct {
	Kind        EventKind `json:"kind"`
	Key         string    `json:"key"`
	FirstSeenAt time.Time `json:"first_seen_at"`
}

// ReplayMarkerKey builds the cache key for the Redis fast-path marker.
func ReplayMarkerKey(kind EventKind, key string) string {
	return string(kind) + ":" + key
}
