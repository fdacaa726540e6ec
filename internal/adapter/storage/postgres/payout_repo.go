package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sacco-ledger/internal/core/domain"
	"sacco-ledger/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// PayoutRepo implements ports.PayoutRepository.
type PayoutRepo struct {
	pool Pool
}

// NewPayoutRepo creates a new PayoutRepo.
func NewPayoutRepo(pool Pool) *PayoutRepo {
	return &PayoutRepo{pool: pool}
}

const batchColumns = `id, sacco_id, period_start, period_end, status, total_amount, created_by, created_at, submitted_at`

const itemColumns = `id, batch_id, wallet_id, amount, destination_type, destination_ref, idempotency_key,
		status, reason, conversation_id, provider_receipt, attempt_count, next_attempt_at,
		sent_at, completed_at, created_at, updated_at`

func scanBatch(row pgx.Row) (*domain.PayoutBatch, error) {
	b := &domain.PayoutBatch{}
	err := row.Scan(
		&b.ID, &b.SaccoID, &b.PeriodStart, &b.PeriodEnd, &b.Status,
		&b.TotalAmount, &b.CreatedBy, &b.CreatedAt, &b.SubmittedAt,
	)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func scanItemInto(row pgx.Row, it *domain.PayoutItem) error {
	return row.Scan(
		&it.ID, &it.BatchID, &it.WalletID, &it.Amount,
		&it.DestinationType, &it.DestinationRef, &it.IdempotencyKey,
		&it.Status, &it.Reason, &it.ConversationID, &it.ProviderReceipt,
		&it.AttemptCount, &it.NextAttemptAt, &it.SentAt, &it.CompletedAt,
		&it.CreatedAt, &it.UpdatedAt,
	)
}

// CreateBatch inserts a batch row inside the supplied transaction.
func (r *PayoutRepo) CreateBatch(ctx context.Context, tx pgx.Tx, b *domain.PayoutBatch) error {
	query := `INSERT INTO payout_batches (id, sacco_id, period_start, period_end, status, total_amount, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := tx.Exec(ctx, query,
		b.ID, b.SaccoID, b.PeriodStart, b.PeriodEnd, b.Status,
		b.TotalAmount, b.CreatedBy, b.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert payout batch: %w", err)
	}
	return nil
}

// CreateItem inserts an item row inside the supplied transaction.
func (r *PayoutRepo) CreateItem(ctx context.Context, tx pgx.Tx, it *domain.PayoutItem) error {
	query := `INSERT INTO payout_items
		(id, batch_id, wallet_id, amount, destination_type, destination_ref, idempotency_key,
		 status, reason, attempt_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := tx.Exec(ctx, query,
		it.ID, it.BatchID, it.WalletID, it.Amount,
		it.DestinationType, it.DestinationRef, it.IdempotencyKey,
		it.Status, it.Reason, it.AttemptCount, it.CreatedAt, it.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert payout item: %w", err)
	}
	return nil
}

// GetBatch fetches a batch by id.
func (r *PayoutRepo) GetBatch(ctx context.Context, id uuid.UUID) (*domain.PayoutBatch, error) {
	b, err := scanBatch(r.pool.QueryRow(ctx,
		`SELECT `+batchColumns+` FROM payout_batches WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get payout batch: %w", err)
	}
	return b, nil
}

// ListBatchesBySacco fetches a SACCO's batches, newest first.
func (r *PayoutRepo) ListBatchesBySacco(ctx context.Context, saccoID uuid.UUID) ([]domain.PayoutBatch, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+batchColumns+` FROM payout_batches WHERE sacco_id = $1 ORDER BY created_at DESC`, saccoID)
	if err != nil {
		return nil, fmt.Errorf("list payout batches: %w", err)
	}
	defer rows.Close()

	var batches []domain.PayoutBatch
	for rows.Next() {
		b := domain.PayoutBatch{}
		if err := rows.Scan(
			&b.ID, &b.SaccoID, &b.PeriodStart, &b.PeriodEnd, &b.Status,
			&b.TotalAmount, &b.CreatedBy, &b.CreatedAt, &b.SubmittedAt,
		); err != nil {
			return nil, fmt.Errorf("scan payout batch: %w", err)
		}
		batches = append(batches, b)
	}
	return batches, rows.Err()
}

// MarkBatchSubmitted moves DRAFT -> SUBMITTED. The WHERE clause arbitrates
// concurrent submissions; a batch that already moved returns ErrStatusConflict.
func (r *PayoutRepo) MarkBatchSubmitted(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `UPDATE payout_batches SET status = $1, submitted_at = $2 WHERE id = $3 AND status = $4`

	tag, err := r.pool.Exec(ctx, query, domain.BatchStatusSubmitted, at, id, domain.BatchStatusDraft)
	if err != nil {
		return fmt.Errorf("mark batch submitted: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ports.ErrStatusConflict
	}
	return nil
}

// ListItems fetches a batch's items in creation order.
func (r *PayoutRepo) ListItems(ctx context.Context, batchID uuid.UUID) ([]domain.PayoutItem, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+itemColumns+` FROM payout_items WHERE batch_id = $1 ORDER BY created_at`, batchID)
	if err != nil {
		return nil, fmt.Errorf("list payout items: %w", err)
	}
	defer rows.Close()
	return collectItems(rows)
}

func collectItems(rows pgx.Rows) ([]domain.PayoutItem, error) {
	var items []domain.PayoutItem
	for rows.Next() {
		it := domain.PayoutItem{}
		if err := scanItemInto(rows, &it); err != nil {
			return nil, fmt.Errorf("scan payout item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// GetItem fetches an item by id.
func (r *PayoutRepo) GetItem(ctx context.Context, id uuid.UUID) (*domain.PayoutItem, error) {
	it := &domain.PayoutItem{}
	err := scanItemInto(r.pool.QueryRow(ctx,
		`SELECT `+itemColumns+` FROM payout_items WHERE id = $1`, id), it)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get payout item: %w", err)
	}
	return it, nil
}

// GetItemForUpdate locks the item row. MUST be called within a transaction.
func (r *PayoutRepo) GetItemForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.PayoutItem, error) {
	it := &domain.PayoutItem{}
	err := scanItemInto(tx.QueryRow(ctx,
		`SELECT `+itemColumns+` FROM payout_items WHERE id = $1 FOR UPDATE`, id), it)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get payout item for update: %w", err)
	}
	return it, nil
}

// FindItemByProviderRef matches a callback to an item by our request id
// (the idempotency key) or the provider's conversation id. Matching never
// falls back to ordering.
func (r *PayoutRepo) FindItemByProviderRef(ctx context.Context, ref string) (*domain.PayoutItem, error) {
	it := &domain.PayoutItem{}
	err := scanItemInto(r.pool.QueryRow(ctx,
		`SELECT `+itemColumns+` FROM payout_items WHERE idempotency_key = $1 OR conversation_id = $1`, ref), it)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find payout item by provider ref: %w", err)
	}
	return it, nil
}

const updateItemQuery = `UPDATE payout_items SET
		status = $1, reason = $2, conversation_id = $3, provider_receipt = $4,
		attempt_count = $5, next_attempt_at = $6, sent_at = $7, completed_at = $8, updated_at = NOW()
		WHERE id = $9`

// UpdateItem writes the item's mutable fields.
func (r *PayoutRepo) UpdateItem(ctx context.Context, it *domain.PayoutItem) error {
	tag, err := r.pool.Exec(ctx, updateItemQuery,
		it.Status, it.Reason, it.ConversationID, it.ProviderReceipt,
		it.AttemptCount, it.NextAttemptAt, it.SentAt, it.CompletedAt, it.ID,
	)
	if err != nil {
		return fmt.Errorf("update payout item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("payout item not found: %s", it.ID)
	}
	return nil
}

// UpdateItemTx writes the item's mutable fields on the supplied transaction.
func (r *PayoutRepo) UpdateItemTx(ctx context.Context, tx pgx.Tx, it *domain.PayoutItem) error {
	tag, err := tx.Exec(ctx, updateItemQuery,
		it.Status, it.Reason, it.ConversationID, it.ProviderReceipt,
		it.AttemptCount, it.NextAttemptAt, it.SentAt, it.CompletedAt, it.ID,
	)
	if err != nil {
		return fmt.Errorf("update payout item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("payout item not found: %s", it.ID)
	}
	return nil
}

// ListStuckSent fetches SENT items whose last send predates olderThan and
// that have no retry already scheduled.
func (r *PayoutRepo) ListStuckSent(ctx context.Context, olderThan time.Time) ([]domain.PayoutItem, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+itemColumns+` FROM payout_items
		WHERE status = $1 AND sent_at < $2 AND next_attempt_at IS NULL`,
		domain.ItemStatusSent, olderThan)
	if err != nil {
		return nil, fmt.Errorf("list stuck payout items: %w", err)
	}
	defer rows.Close()
	return collectItems(rows)
}

// ListDueForRetry fetches non-terminal items whose scheduled retry time
// has passed.
func (r *PayoutRepo) ListDueForRetry(ctx context.Context, now time.Time) ([]domain.PayoutItem, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+itemColumns+` FROM payout_items
		WHERE status IN ($1, $2) AND next_attempt_at IS NOT NULL AND next_attempt_at <= $3`,
		domain.ItemStatusPending, domain.ItemStatusSent, now)
	if err != nil {
		return nil, fmt.Errorf("list due payout items: %w", err)
	}
	defer rows.Close()
	return collectItems(rows)
}

// AppendEvent inserts one audit trail entry. Events are never mutated.
func (r *PayoutRepo) AppendEvent(ctx context.Context, ev *domain.PayoutEvent) error {
	query := `INSERT INTO payout_events (id, batch_id, item_id, type, detail, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.pool.Exec(ctx, query, ev.ID, ev.BatchID, ev.ItemID, ev.Type, ev.Detail, ev.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert payout event: %w", err)
	}
	return nil
}

// ListEvents fetches a batch's audit trail in append order.
func (r *PayoutRepo) ListEvents(ctx context.Context, batchID uuid.UUID) ([]domain.PayoutEvent, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, batch_id, item_id, type, detail, created_at
		FROM payout_events WHERE batch_id = $1 ORDER BY created_at`, batchID)
	if err != nil {
		return nil, fmt.Errorf("list payout events: %w", err)
	}
	defer rows.Close()

	var events []domain.PayoutEvent
	for rows.Next() {
		ev := domain.PayoutEvent{}
		if err := rows.Scan(&ev.ID, &ev.BatchID, &ev.ItemID, &ev.Type, &ev.Detail, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan payout event: %w", err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// GetDestination fetches the payout destination mapped to a wallet.
func (r *PayoutRepo) GetDestination(ctx context.Context, walletID uuid.UUID) (*domain.PayoutDestination, error) {
	d := &domain.PayoutDestination{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, sacco_id, wallet_id, type, ref, verified
		FROM payout_destinations WHERE wallet_id = $1`, walletID).
		Scan(&d.ID, &d.SaccoID, &d.WalletID, &d.Type, &d.Ref, &d.Verified)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get payout destination: %w", err)
	}
	return d, nil
}
