package ports

import (
	"context"
	"time"

	"sacco-ledger/internal/core/domain"

	"github.com/google/uuid"
)

// InboundEvent is the strict normalized shape produced at the parse
// boundary. Nothing loosely typed travels past the DTO layer.
type InboundEvent struct {
	Channel      domain.PaymentChannel
	Receipt      string // provider receipt, empty for unconfirmed STK
	CheckoutID   string // STK checkout/session id
	Amount       int64  // minor units; may be non-positive, validated in the pipeline
	SenderMSISDN string
	Paybill      string
	AccountRef   string
	OccurredAt   time.Time
	SecretOK     bool // shared-secret header matched (or no secret configured)
	Raw          []byte
}

// ExternalKey returns the stable dedup key for the event.
func (e InboundEvent) ExternalKey() string {
	if e.Receipt != "" {
		return e.Receipt
	}
	return e.CheckoutID
}

// ResolveRequest is a manual decision on a payment.
type ResolveRequest struct {
	PaymentID uuid.UUID
	Action    domain.ResolutionAction
	WalletID  *uuid.UUID // required for CREDIT when the payment never resolved a wallet
	Actor     string
	ClientIP  string
}

// IntakeService drives the inbound payment state machine.
type IntakeService interface {
	// ProcessInbound runs the full pipeline for one webhook delivery.
	// It never returns transport-visible failures; persisted state is
	// the correctness signal.
	ProcessInbound(ctx context.Context, ev InboundEvent) error
	// Resolve applies a manual CREDIT/REJECT decision to a payment.
	// Repeating an identical action is a no-op returning the original
	// result; a conflicting action fails with a conflict error.
	Resolve(ctx context.Context, req ResolveRequest) (*domain.InboundPayment, error)
	// ValidateAccountRef answers the provider's synchronous pre-payment
	// validation: does the account reference route to a wallet.
	ValidateAccountRef(ctx context.Context, ref string) bool
}

// RiskGate classifies a payment after the listed conditions were observed.
// Implementations must be safe to call repeatedly for the same payment,
// must respect the request context deadline, and their failures are logged
// and swallowed by callers: a risk failure never blocks acknowledging a
// webhook.
type RiskGate interface {
	Apply(ctx context.Context, paymentID uuid.UUID, reasons []domain.QuarantineReason) (domain.RiskAssessment, error)
}

// ReplayMarker is the Redis fast path in front of the durable idempotency
// guard. Best effort: errors fall through to the database.
type ReplayMarker interface {
	Seen(ctx context.Context, kind domain.EventKind, key string) (bool, error)
	Mark(ctx context.Context, kind domain.EventKind, key string, ttl time.Duration) error
}

// BuildBatchRequest creates a payout run over a SACCO's wallet balances.
type BuildBatchRequest struct {
	SaccoID     uuid.UUID
	PeriodStart time.Time
	PeriodEnd   time.Time
	Actor       string
}

// BatchDetail is a batch with its derived status, items and audit trail.
type BatchDetail struct {
	Batch  domain.PayoutBatch  `json:"batch"`
	Status domain.BatchStatus  `json:"status"` // derived from items
	Items  []domain.PayoutItem `json:"items"`
	Events []domain.PayoutEvent `json:"events,omitempty"`
}

// ProviderResult is a normalized disbursement result callback.
type ProviderResult struct {
	RequestID      string // our idempotency key echoed back
	ConversationID string
	Success        bool
	ResultCode     int
	ResultDesc     string
	Receipt        string // provider receipt on success
}

// ProviderTimeout is a normalized queue-timeout callback.
type ProviderTimeout struct {
	RequestID      string
	ConversationID string
}

// PayoutService drives the payout batch/item state machine.
type PayoutService interface {
	BuildBatch(ctx context.Context, req BuildBatchRequest) (*BatchDetail, error)
	SubmitBatch(ctx context.Context, batchID uuid.UUID, actor string) (*BatchDetail, error)
	GetBatchDetail(ctx context.Context, batchID uuid.UUID) (*BatchDetail, error)
	// HandleResult reconciles a provider result callback into item status
	// and, on success, the ledger debit.
	HandleResult(ctx context.Context, cb ProviderResult) error
	// HandleTimeout schedules a bounded retry for a non-terminal item.
	HandleTimeout(ctx context.Context, cb ProviderTimeout) error
	// SweepStuck treats SENT items older than the threshold as timeouts.
	SweepStuck(ctx context.Context) error
	// RetryDue re-submits items whose scheduled retry time has passed.
	RetryDue(ctx context.Context) error
	// RetryItem schedules an immediate manual retry.
	RetryItem(ctx context.Context, itemID uuid.UUID, actor string) error
	// CancelItem cancels a BLOCKED or PENDING item.
	CancelItem(ctx context.Context, itemID uuid.UUID, reason, actor string) error
}

// B2CRequest is one disbursement instruction handed to the provider.
type B2CRequest struct {
	RequestID string // derived from the item's idempotency key
	Amount    int64
	MSISDN    string
	Remarks   string
}

// B2CAccepted acknowledges that the provider queued the disbursement.
type B2CAccepted struct {
	ConversationID string
}

// DisbursementProvider is the external B2C rail.
type DisbursementProvider interface {
	SendB2C(ctx context.Context, req B2CRequest) (*B2CAccepted, error)
}

// Alerter raises operational alerts (stuck payouts, confirm-time debit
// failures). Implementations must not block the caller.
type Alerter interface {
	Raise(ctx context.Context, code string, detail string, fields map[string]string)
}

// AuditService records administrative mutations.
type AuditService interface {
	Record(ctx context.Context, actor string, action domain.AuditAction, resourceType, resourceID, details, ip string)
}
