package domain

import (
	"time"

	"github.com/google/uuid"
)

// BatchStatus is the derived state of a payout batch. Only DRAFT and
// SUBMITTED are stored; everything else is computed from the items.
type BatchStatus string

const (
	BatchStatusDraft     BatchStatus = "DRAFT"
	BatchStatusSubmitted BatchStatus = "SUBMITTED"
	BatchStatusPartial   BatchStatus = "PARTIALLY_COMPLETED"
	BatchStatusCompleted BatchStatus = "COMPLETED"
	BatchStatusFailed    BatchStatus = "FAILED"
)

// PayoutBatch is one disbursement run per SACCO per date range.
type PayoutBatch struct {
	ID          uuid.UUID   `json:"id"`
	SaccoID     uuid.UUID   `json:"sacco_id"`
	PeriodStart time.Time   `json:"period_start"`
	PeriodEnd   time.Time   `json:"period_end"`
	Status      BatchStatus `json:"status"` // DRAFT or SUBMITTED; aggregate derived from items
	TotalAmount int64       `json:"total_amount"`
	CreatedBy   string      `json:"created_by"`
	CreatedAt   time.Time   `json:"created_at"`
	SubmittedAt *time.Time  `json:"submitted_at,omitempty"`
}

// ItemStatus is the lifecycle state of one disbursement instruction.
type ItemStatus string

const (
	ItemStatusPending   ItemStatus = "PENDING"
	ItemStatusBlocked   ItemStatus = "BLOCKED"
	ItemStatusSent      ItemStatus = "SENT"
	ItemStatusConfirmed ItemStatus = "CONFIRMED"
	ItemStatusFailed    ItemStatus = "FAILED"
	ItemStatusCancelled ItemStatus = "CANCELLED"
)

// itemTransitions is the single source of truth for legal item moves.
var itemTransitions = map[ItemStatus][]ItemStatus{
	ItemStatusPending: {ItemStatusSent, ItemStatusFailed, ItemStatusCancelled},
	ItemStatusBlocked: {ItemStatusCancelled},
	ItemStatusSent:    {ItemStatusConfirmed, ItemStatusFailed},
	// CONFIRMED, FAILED and CANCELLED are terminal for callbacks.
	ItemStatusConfirmed: {},
	ItemStatusFailed:    {},
	ItemStatusCancelled: {},
}

// CanTransition reports whether from -> to is a legal item status move.
func (from ItemStatus) CanTransition(to ItemStatus) bool {
	for _, s := range itemTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether a provider callback may still move this status.
func (s ItemStatus) IsTerminal() bool {
	return s == ItemStatusConfirmed || s == ItemStatusFailed || s == ItemStatusCancelled
}

// DestinationType is the kind of payout destination.
type DestinationType string

const (
	DestinationMSISDN DestinationType = "MSISDN"
	DestinationBank   DestinationType = "BANK"
)

// SupportedDestination reports whether the disbursement provider can pay
// this destination type. Bank transfers go through a different rail and
// are blocked at batch build.
func SupportedDestination(t DestinationType) bool {
	return t == DestinationMSISDN
}

// PayoutDestination maps a wallet to where its balance is paid out.
type PayoutDestination struct {
	ID       uuid.UUID       `json:"id"`
	SaccoID  uuid.UUID       `json:"sacco_id"`
	WalletID uuid.UUID       `json:"wallet_id"`
	Type     DestinationType `json:"type"`
	Ref      string          `json:"ref"` // phone number or account number
	Verified bool            `json:"verified"`
}

// Item block/failure reasons.
const (
	BlockReasonNoDestination         = "NO_DESTINATION"
	BlockReasonUnverifiedDestination = "UNVERIFIED_DESTINATION"
	BlockReasonUnsupportedType       = "UNSUPPORTED_DESTINATION_TYPE"
	FailReasonProviderRejected       = "PROVIDER_REJECTED"
	FailReasonProviderUnavailable    = "PROVIDER_UNAVAILABLE"
	FailReasonInsufficientAtConfirm  = "INSUFFICIENT_BALANCE_AT_CONFIRM"
)

// PayoutItem is one disbursement instruction.
type PayoutItem struct {
	ID                uuid.UUID       `json:"id"`
	BatchID           uuid.UUID       `json:"batch_id"`
	WalletID          uuid.UUID       `json:"wallet_id"`
	Amount            int64           `json:"amount"`
	DestinationType   DestinationType `json:"destination_type"`
	DestinationRef    string          `json:"destination_ref"`
	IdempotencyKey    string          `json:"idempotency_key"` // provider request id derives from this
	Status            ItemStatus      `json:"status"`
	Reason            *string         `json:"reason,omitempty"` // block or failure reason
	ConversationID    *string         `json:"conversation_id,omitempty"`
	ProviderReceipt   *string         `json:"provider_receipt,omitempty"`
	AttemptCount      int             `json:"attempt_count"`
	NextAttemptAt     *time.Time      `json:"next_attempt_at,omitempty"`
	SentAt            *time.Time      `json:"sent_at,omitempty"`
	CompletedAt       *time.Time      `json:"completed_at,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// PayoutEventType classifies batch/item audit trail entries.
type PayoutEventType string

const (
	EventBatchCreated   PayoutEventType = "BATCH_CREATED"
	EventBatchSubmitted PayoutEventType = "BATCH_SUBMITTED"
	EventItemSent       PayoutEventType = "ITEM_SENT"
	EventItemConfirmed  PayoutEventType = "ITEM_CONFIRMED"
	EventItemFailed     PayoutEventType = "ITEM_FAILED"
	EventItemCancelled  PayoutEventType = "ITEM_CANCELLED"
	EventItemRetry      PayoutEventType = "ITEM_RETRY_SCHEDULED"
	EventItemTimeout    PayoutEventType = "ITEM_TIMEOUT"
)

// PayoutEvent is one append-only audit trail entry.
type PayoutEvent struct {
	ID        uuid.UUID       `json:"id"`
	BatchID   uuid.UUID       `json:"batch_id"`
	ItemID    *uuid.UUID      `json:"item_id,omitempty"`
	Type      PayoutEventType `json:"type"`
	Detail    string          `json:"detail,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// DeriveBatchStatus computes the aggregate batch status from its items.
// A batch is never inspected through a stored aggregate.
func DeriveBatchStatus(b *PayoutBatch, items []PayoutItem) BatchStatus {
	if b.Status == BatchStatusDraft {
		return BatchStatusDraft
	}

	var open, confirmed, failed int
	for i := range items {
		switch items[i].Status {
		case ItemStatusConfirmed:
			confirmed++
		case ItemStatusFailed:
			failed++
		case ItemStatusPending, ItemStatusSent:
			open++
		}
	}

	switch {
	case open > 0:
		return BatchStatusSubmitted
	case failed == 0 && confirmed > 0:
		return BatchStatusCompleted
	case confirmed == 0 && failed > 0:
		return BatchStatusFailed
	case confirmed > 0 && failed > 0:
		return BatchStatusPartial
	default:
		// Only blocked/cancelled items remain.
		return BatchStatusSubmitted
	}
}
