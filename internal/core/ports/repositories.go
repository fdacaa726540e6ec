package ports

import (
	"context"
	"errors"
	"time"

	"sacco-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Sentinel errors surfaced by repositories. Services translate these into
// apperror codes; repositories never import the HTTP layer.
var (
	// ErrInsufficientBalance: a debit would drive the wallet balance negative.
	ErrInsufficientBalance = errors.New("insufficient wallet balance")
	// ErrDuplicateReference: a ledger entry already exists for (wallet,
	// reference_type, reference_id).
	ErrDuplicateReference = errors.New("ledger entry already exists for reference")
	// ErrStatusConflict: a guarded status update found the row moved since
	// it was read.
	ErrStatusConflict = errors.New("status changed concurrently")
)

// WalletRepository persists wallets and their append-only ledger.
// Methods accepting pgx.Tx run inside transaction blocks; Credit and Debit
// insert the ledger entry and adjust the cached balance atomically.
// Single-row getters across all repositories return (nil, nil) when no row
// matches.
type WalletRepository interface {
	Create(ctx context.Context, w *domain.Wallet) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error)
	GetByAccountCode(ctx context.Context, code string) (*domain.Wallet, error)
	ListBySacco(ctx context.Context, saccoID uuid.UUID) ([]domain.Wallet, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Wallet, error)
	// Credit appends a CREDIT entry and increments the balance.
	Credit(ctx context.Context, tx pgx.Tx, entry *domain.LedgerEntry) error
	// Debit appends a DEBIT entry and decrements the balance; returns
	// ErrInsufficientBalance (writing nothing) if the balance would go
	// negative.
	Debit(ctx context.Context, tx pgx.Tx, entry *domain.LedgerEntry) error
	// EntryExists reports whether any ledger entry carries this reference.
	EntryExists(ctx context.Context, refType, refID string) (bool, error)
	ListEntries(ctx context.Context, walletID uuid.UUID) ([]domain.LedgerEntry, error)
}

// PaymentListParams holds filter + pagination for listing inbound payments.
type PaymentListParams struct {
	Status   *domain.PaymentStatus
	Channel  *domain.PaymentChannel
	From     *time.Time
	To       *time.Time
	Page     int
	PageSize int
}

// PaymentRepository persists inbound payments.
type PaymentRepository interface {
	// Upsert inserts the payment keyed by (channel, external key) or
	// returns the existing row. The bool is true when a row already
	// existed (duplicate delivery).
	Upsert(ctx context.Context, p *domain.InboundPayment) (*domain.InboundPayment, bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.InboundPayment, error)
	// GetByIDForUpdate locks the payment row. MUST be called inside a
	// transaction.
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.InboundPayment, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.PaymentStatus) error
	UpdateStatusTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.PaymentStatus) error
	SetRisk(ctx context.Context, id uuid.UUID, a domain.RiskAssessment) error
	SetWallet(ctx context.Context, id uuid.UUID, walletID uuid.UUID) error
	// SetReceipt backfills the provider receipt on STK payments once the
	// confirmation callback carries it.
	SetReceipt(ctx context.Context, id uuid.UUID, receipt string) error
	List(ctx context.Context, params PaymentListParams) ([]domain.InboundPayment, int64, error)
}

// QuarantineRepository persists quarantine audit rows.
type QuarantineRepository interface {
	Create(ctx context.Context, rec *domain.QuarantineRecord) error
	List(ctx context.Context, resolved *bool) ([]domain.QuarantineRecord, error)
	// MarkResolved closes every open record for the payment.
	MarkResolved(ctx context.Context, paymentID uuid.UUID, action domain.ResolutionAction, actor string, at time.Time) error
}

// IdempotencyRepository is the durable dedup guard for external events.
type IdempotencyRepository interface {
	// Ensure atomically inserts-if-absent the (kind, key) record and
	// reports whether this call was the first observation. The insert's
	// unique constraint is the single point of truth; concurrent callers
	// get firstTime=true exactly once. A storage error must abort the
	// caller (fail closed).
	Ensure(ctx context.Context, kind domain.EventKind, key string) (firstTime bool, err error)
}

// PayoutRepository persists payout batches, items, events and destinations.
type PayoutRepository interface {
	CreateBatch(ctx context.Context, tx pgx.Tx, b *domain.PayoutBatch) error
	CreateItem(ctx context.Context, tx pgx.Tx, item *domain.PayoutItem) error
	GetBatch(ctx context.Context, id uuid.UUID) (*domain.PayoutBatch, error)
	ListBatchesBySacco(ctx context.Context, saccoID uuid.UUID) ([]domain.PayoutBatch, error)
	// MarkBatchSubmitted moves DRAFT -> SUBMITTED; returns
	// ErrStatusConflict if the batch is not DRAFT.
	MarkBatchSubmitted(ctx context.Context, id uuid.UUID, at time.Time) error
	ListItems(ctx context.Context, batchID uuid.UUID) ([]domain.PayoutItem, error)
	GetItem(ctx context.Context, id uuid.UUID) (*domain.PayoutItem, error)
	GetItemForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.PayoutItem, error)
	// FindItemByProviderRef matches a callback to an item by provider
	// request id (the item's idempotency key) or conversation id.
	FindItemByProviderRef(ctx context.Context, ref string) (*domain.PayoutItem, error)
	UpdateItem(ctx context.Context, item *domain.PayoutItem) error
	UpdateItemTx(ctx context.Context, tx pgx.Tx, item *domain.PayoutItem) error
	ListStuckSent(ctx context.Context, olderThan time.Time) ([]domain.PayoutItem, error)
	ListDueForRetry(ctx context.Context, now time.Time) ([]domain.PayoutItem, error)
	AppendEvent(ctx context.Context, ev *domain.PayoutEvent) error
	ListEvents(ctx context.Context, batchID uuid.UUID) ([]domain.PayoutEvent, error)
	GetDestination(ctx context.Context, walletID uuid.UUID) (*domain.PayoutDestination, error)
}

// AuditRepository persists admin action audit logs.
type AuditRepository interface {
	Create(ctx context.Context, entry *domain.AuditLog) error
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
