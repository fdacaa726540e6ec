package postgres

import (
	"context"
	"fmt"
	"time"

	"sacco-ledger/internal/core/domain"
)

// IdempotencyRepo implements ports.IdempotencyRepository.
type IdempotencyRepo struct {
	pool Pool
}

// NewIdempotencyRepo creates a new IdempotencyRepo.
func NewIdempotencyRepo(pool Pool) *IdempotencyRepo {
	return &IdempotencyRepo{pool: pool}
}

// Ensure atomically inserts-if-absent the (kind, key) record. The primary
// key on (kind, key) makes the insert itself the race arbiter: of any
// number of concurrent calls, exactly one observes RowsAffected = 1.
// Errors abort the caller; this guard fails closed.
func (r *IdempotencyRepo) Ensure(ctx context.Context, kind domain.EventKind, key string) (bool, error) {
	query := `INSERT INTO idempotency_records (kind, key, first_seen_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (kind, key) DO NOTHING`

	tag, err := r.pool.Exec(ctx, query, kind, key, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("ensure idempotency record: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
