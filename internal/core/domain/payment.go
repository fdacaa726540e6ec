package domain

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// PaymentStatus is the lifecycle state of an inbound payment.
type PaymentStatus string

const (
	PaymentStatusReceived    PaymentStatus = "RECEIVED"
	PaymentStatusCredited    PaymentStatus = "CREDITED"
	PaymentStatusRejected    PaymentStatus = "REJECTED"
	PaymentStatusQuarantined PaymentStatus = "QUARANTINED"
)

// paymentTransitions is the single source of truth for legal status moves.
// Monotonic except QUARANTINED, which a manual resolution may still move.
var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusReceived:    {PaymentStatusCredited, PaymentStatusRejected, PaymentStatusQuarantined},
	PaymentStatusQuarantined: {PaymentStatusCredited, PaymentStatusRejected},
	PaymentStatusCredited:    {},
	PaymentStatusRejected:    {},
}

// CanTransition reports whether from -> to is a legal payment status move.
func (from PaymentStatus) CanTransition(to PaymentStatus) bool {
	for _, s := range paymentTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// TransitionSources returns, sorted, the statuses from which a legal move
// to the given status exists. Storage layers use it to make status updates
// conditional on the transition table instead of trusting the caller's
// read of the row.
func TransitionSources(to PaymentStatus) []PaymentStatus {
	var from []PaymentStatus
	for s, targets := range paymentTransitions {
		for _, t := range targets {
			if t == to {
				from = append(from, s)
			}
		}
	}
	sort.Slice(from, func(i, j int) bool { return from[i] < from[j] })
	return from
}

// IsTerminal reports whether no webhook delivery may move this status.
// QUARANTINED is terminal for the pipeline; only manual resolution moves it.
func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusCredited || s == PaymentStatusRejected || s == PaymentStatusQuarantined
}

// PaymentChannel identifies how the payment arrived.
type PaymentChannel string

const (
	ChannelC2B PaymentChannel = "C2B"
	ChannelSTK PaymentChannel = "STK"
)

// RiskLevel is the risk gate's classification of a payment.
type RiskLevel string

const (
	RiskLevelLow    RiskLevel = "LOW"
	RiskLevelMedium RiskLevel = "MEDIUM"
	RiskLevelHigh   RiskLevel = "HIGH"
)

// RiskAssessment is the risk gate's verdict on a payment.
type RiskAssessment struct {
	Level RiskLevel `json:"risk_level"`
	Score int       `json:"risk_score"`
	Flags []string  `json:"flags,omitempty"`
}

// QuarantineReason codes why a payment or operation was held.
type QuarantineReason string

const (
	ReasonWebhookSecretMismatch QuarantineReason = "WEBHOOK_SECRET_MISMATCH"
	ReasonPaybillMismatch       QuarantineReason = "PAYBILL_MISMATCH"
	ReasonInvalidAmount         QuarantineReason = "INVALID_AMOUNT"
	ReasonInvalidChecksumRef    QuarantineReason = "INVALID_CHECKSUM_REF"
	ReasonUnknownAccountRef     QuarantineReason = "UNKNOWN_ACCOUNT_REF"
	ReasonDuplicateReceipt      QuarantineReason = "DUPLICATE_RECEIPT"
	ReasonIdempotentReplay      QuarantineReason = "IDEMPOTENT_REPLAY"
	ReasonHighRisk              QuarantineReason = "HIGH_RISK"
)

// InboundPayment is one record per provider notification, upserted by
// receipt (C2B) or checkout id (STK) to absorb provider retries.
type InboundPayment struct {
	ID              uuid.UUID      `json:"id"`
	Channel         PaymentChannel `json:"channel"`
	ProviderReceipt *string        `json:"provider_receipt,omitempty"` // nullable until known (STK)
	CheckoutID      *string        `json:"checkout_id,omitempty"`
	Amount          int64          `json:"amount"` // minor units
	SenderMSISDN    string         `json:"sender_msisdn"`
	Paybill         string         `json:"paybill"`
	AccountRef      string         `json:"account_ref"` // routing key into Wallet
	Status          PaymentStatus  `json:"status"`
	RiskLevel       *RiskLevel     `json:"risk_level,omitempty"`
	RiskScore       int            `json:"risk_score"`
	RiskFlags       []string       `json:"risk_flags,omitempty"`
	WalletID        *uuid.UUID     `json:"wallet_id,omitempty"` // resolved target wallet
	RawPayload      []byte         `json:"-"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	CreditedAt      *time.Time     `json:"credited_at,omitempty"`
}

// ExternalKey returns the stable dedup key for this payment: the provider
// receipt when known, otherwise the checkout id.
func (p *InboundPayment) ExternalKey() string {
	if p.ProviderReceipt != nil && *p.ProviderReceipt != "" {
		return *p.ProviderReceipt
	}
	if p.CheckoutID != nil {
		return *p.CheckoutID
	}
	return ""
}

// ResolutionAction is a manual decision on a quarantined payment.
type ResolutionAction string

const (
	ResolutionCredit ResolutionAction = "CREDIT"
	ResolutionReject ResolutionAction = "REJECT"
)

// statusForAction maps a resolution action to its terminal status.
func (a ResolutionAction) Status() PaymentStatus {
	if a == ResolutionCredit {
		return PaymentStatusCredited
	}
	return PaymentStatusRejected
}

// QuarantineRecord is the audit row written whenever something is held
// for a human instead of applied or rejected outright.
type QuarantineRecord struct {
	ID               uuid.UUID        `json:"id"`
	PaymentID        *uuid.UUID       `json:"payment_id,omitempty"`
	Reason           QuarantineReason `json:"reason"`
	Snapshot         []byte           `json:"-"` // payload at the time of quarantine
	Resolved         bool             `json:"resolved"`
	ResolutionAction *ResolutionAction `json:"resolution_action,omitempty"`
	ResolvedBy       *string          `json:"resolved_by,omitempty"`
	ResolvedAt       *time.Time       `json:"resolved_at,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
}
