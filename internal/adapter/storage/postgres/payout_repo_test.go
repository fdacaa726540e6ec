package postgres

import (
	"context"
	"testing"
	"time"

	"sacco-ledger/internal/core/domain"
	"sacco-ledger/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBatch() *domain.PayoutBatch {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.PayoutBatch{
		ID:          uuid.New(),
		SaccoID:     uuid.New(),
		PeriodStart: now.Add(-7 * 24 * time.Hour),
		PeriodEnd:   now,
		Status:      domain.BatchStatusDraft,
		TotalAmount: 250_000,
		CreatedBy:   "ops@sacco.example",
		CreatedAt:   now,
	}
}

func newTestItem(batchID uuid.UUID) *domain.PayoutItem {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.PayoutItem{
		ID:              uuid.New(),
		BatchID:         batchID,
		WalletID:        uuid.New(),
		Amount:          50_000,
		DestinationType: domain.DestinationMSISDN,
		DestinationRef:  "254712345678",
		IdempotencyKey:  "po-" + uuid.NewString(),
		Status:          domain.ItemStatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func testItemColumns() []string {
	return []string{
		"id", "batch_id", "wallet_id", "amount", "destination_type", "destination_ref",
		"idempotency_key", "status", "reason", "conversation_id", "provider_receipt",
		"attempt_count", "next_attempt_at", "sent_at", "completed_at", "created_at", "updated_at",
	}
}

func itemRow(it *domain.PayoutItem) *pgxmock.Rows {
	return pgxmock.NewRows(testItemColumns()).AddRow(
		it.ID, it.BatchID, it.WalletID, it.Amount, it.DestinationType, it.DestinationRef,
		it.IdempotencyKey, it.Status, it.Reason, it.ConversationID, it.ProviderReceipt,
		it.AttemptCount, it.NextAttemptAt, it.SentAt, it.CompletedAt, it.CreatedAt, it.UpdatedAt,
	)
}

func TestPayoutRepo_CreateBatchAndItems(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPayoutRepo(mock)
	b := newTestBatch()
	it := newTestItem(b.ID)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO payout_batches").
		WithArgs(b.ID, b.SaccoID, b.PeriodStart, b.PeriodEnd, b.Status,
			b.TotalAmount, b.CreatedBy, b.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO payout_items").
		WithArgs(it.ID, it.BatchID, it.WalletID, it.Amount,
			it.DestinationType, it.DestinationRef, it.IdempotencyKey,
			it.Status, it.Reason, it.AttemptCount, it.CreatedAt, it.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	require.NoError(t, repo.CreateBatch(context.Background(), tx, b))
	require.NoError(t, repo.CreateItem(context.Background(), tx, it))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPayoutRepo_GetBatch_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPayoutRepo(mock)
	id := uuid.New()

	mock.ExpectQuery("SELECT .+ FROM payout_batches WHERE id").
		WithArgs(id).
		WillReturnError(pgx.ErrNoRows)

	b, err := repo.GetBatch(context.Background(), id)
	require.NoError(t, err)
	assert.Nil(t, b)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPayoutRepo_MarkBatchSubmitted(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPayoutRepo(mock)
	id := uuid.New()
	at := time.Now().UTC()

	mock.ExpectExec("UPDATE payout_batches SET status").
		WithArgs(domain.BatchStatusSubmitted, at, id, domain.BatchStatusDraft).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err = repo.MarkBatchSubmitted(context.Background(), id, at)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPayoutRepo_MarkBatchSubmitted_Conflict(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPayoutRepo(mock)
	id := uuid.New()
	at := time.Now().UTC()

	// The batch already left DRAFT; the guarded update matches nothing.
	mock.ExpectExec("UPDATE payout_batches SET status").
		WithArgs(domain.BatchStatusSubmitted, at, id, domain.BatchStatusDraft).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err = repo.MarkBatchSubmitted(context.Background(), id, at)
	assert.ErrorIs(t, err, ports.ErrStatusConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPayoutRepo_FindItemByProviderRef(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPayoutRepo(mock)
	it := newTestItem(uuid.New())

	mock.ExpectQuery("SELECT .+ FROM payout_items WHERE idempotency_key").
		WithArgs(it.IdempotencyKey).
		WillReturnRows(itemRow(it))

	result, err := repo.FindItemByProviderRef(context.Background(), it.IdempotencyKey)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, it.ID, result.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPayoutRepo_FindItemByProviderRef_Unknown(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPayoutRepo(mock)

	mock.ExpectQuery("SELECT .+ FROM payout_items WHERE idempotency_key").
		WithArgs("po-unknown").
		WillReturnError(pgx.ErrNoRows)

	result, err := repo.FindItemByProviderRef(context.Background(), "po-unknown")
	require.NoError(t, err)
	assert.Nil(t, result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPayoutRepo_UpdateItem(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPayoutRepo(mock)
	it := newTestItem(uuid.New())
	it.Status = domain.ItemStatusSent
	convID := "AG_20250817_000012345"
	it.ConversationID = &convID
	sentAt := time.Now().UTC()
	it.SentAt = &sentAt
	it.AttemptCount = 1

	mock.ExpectExec("UPDATE payout_items SET").
		WithArgs(it.Status, it.Reason, it.ConversationID, it.ProviderReceipt,
			it.AttemptCount, it.NextAttemptAt, it.SentAt, it.CompletedAt, it.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err = repo.UpdateItem(context.Background(), it)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPayoutRepo_ListStuckSent(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPayoutRepo(mock)
	it := newTestItem(uuid.New())
	it.Status = domain.ItemStatusSent
	cutoff := time.Now().UTC().Add(-30 * time.Minute)

	mock.ExpectQuery("SELECT .+ FROM payout_items").
		WithArgs(domain.ItemStatusSent, cutoff).
		WillReturnRows(itemRow(it))

	items, err := repo.ListStuckSent(context.Background(), cutoff)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, it.ID, items[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPayoutRepo_ListDueForRetry(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPayoutRepo(mock)
	it := newTestItem(uuid.New())
	due := time.Now().UTC().Add(-time.Minute)
	it.NextAttemptAt = &due
	now := time.Now().UTC()

	mock.ExpectQuery("SELECT .+ FROM payout_items").
		WithArgs(domain.ItemStatusPending, domain.ItemStatusSent, now).
		WillReturnRows(itemRow(it))

	items, err := repo.ListDueForRetry(context.Background(), now)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, it.ID, items[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPayoutRepo_AppendEvent(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPayoutRepo(mock)
	itemID := uuid.New()
	ev := &domain.PayoutEvent{
		ID:        uuid.New(),
		BatchID:   uuid.New(),
		ItemID:    &itemID,
		Type:      domain.EventItemSent,
		Detail:    "attempt 1",
		CreatedAt: time.Now().UTC(),
	}

	mock.ExpectExec("INSERT INTO payout_events").
		WithArgs(ev.ID, ev.BatchID, ev.ItemID, ev.Type, ev.Detail, ev.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = repo.AppendEvent(context.Background(), ev)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPayoutRepo_GetDestination_None(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPayoutRepo(mock)
	walletID := uuid.New()

	mock.ExpectQuery("SELECT .+ FROM payout_destinations WHERE wallet_id").
		WithArgs(walletID).
		WillReturnError(pgx.ErrNoRows)

	d, err := repo.GetDestination(context.Background(), walletID)
	require.NoError(t, err)
	assert.Nil(t, d)
	assert.NoError(t, mock.ExpectationsWereMet())
}
