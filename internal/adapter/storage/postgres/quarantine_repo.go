package postgres

import (
	"context"
	"fmt"
	"time"

	"sacco-ledger/internal/core/domain"

	"github.com/google/uuid"
)

// QuarantineRepo implements ports.QuarantineRepository.
type QuarantineRepo struct {
	pool Pool
}

// NewQuarantineRepo creates a new QuarantineRepo.
func NewQuarantineRepo(pool Pool) *QuarantineRepo {
	return &QuarantineRepo{pool: pool}
}

// Create inserts a quarantine audit row.
func (r *QuarantineRepo) Create(ctx context.Context, rec *domain.QuarantineRecord) error {
	query := `INSERT INTO quarantine_records (id, payment_id, reason, snapshot, resolved, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.pool.Exec(ctx, query,
		rec.ID, rec.PaymentID, rec.Reason, rec.Snapshot, rec.Resolved, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert quarantine record: %w", err)
	}
	return nil
}

// List fetches quarantine records, optionally filtered by resolution state.
func (r *QuarantineRepo) List(ctx context.Context, resolved *bool) ([]domain.QuarantineRecord, error) {
	query := `SELECT id, payment_id, reason, snapshot, resolved, resolution_action, resolved_by, resolved_at, created_at
		FROM quarantine_records`
	args := []any{}
	if resolved != nil {
		query += ` WHERE resolved = $1`
		args = append(args, *resolved)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list quarantine records: %w", err)
	}
	defer rows.Close()

	var records []domain.QuarantineRecord
	for rows.Next() {
		rec := domain.QuarantineRecord{}
		if err := rows.Scan(
			&rec.ID, &rec.PaymentID, &rec.Reason, &rec.Snapshot, &rec.Resolved,
			&rec.ResolutionAction, &rec.ResolvedBy, &rec.ResolvedAt, &rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan quarantine record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// MarkResolved closes every open record for the payment.
func (r *QuarantineRepo) MarkResolved(ctx context.Context, paymentID uuid.UUID, action domain.ResolutionAction, actor string, at time.Time) error {
	query := `UPDATE quarantine_records
		SET resolved = TRUE, resolution_action = $1, resolved_by = $2, resolved_at = $3
		WHERE payment_id = $4 AND resolved = FALSE`

	_, err := r.pool.Exec(ctx, query, action, actor, at, paymentID)
	if err != nil {
		return fmt.Errorf("resolve quarantine records: %w", err)
	}
	return nil
}
