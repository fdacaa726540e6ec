package domain

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestPaymentStatus_CanTransition(t *testing.T) {
	tests := []struct {
		from PaymentStatus
		to   PaymentStatus
		want bool
	}{
		{PaymentStatusReceived, PaymentStatusCredited, true},
		{PaymentStatusReceived, PaymentStatusRejected, true},
		{PaymentStatusReceived, PaymentStatusQuarantined, true},
		{PaymentStatusQuarantined, PaymentStatusCredited, true},
		{PaymentStatusQuarantined, PaymentStatusRejected, true},
		{PaymentStatusQuarantined, PaymentStatusReceived, false},
		{PaymentStatusCredited, PaymentStatusRejected, false},
		{PaymentStatusCredited, PaymentStatusReceived, false},
		{PaymentStatusRejected, PaymentStatusCredited, false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s->%s", tt.from, tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransition(tt.to))
		})
	}
}

func TestPaymentTransitionSources(t *testing.T) {
	assert.Equal(t, []PaymentStatus{PaymentStatusQuarantined, PaymentStatusReceived}, TransitionSources(PaymentStatusCredited))
	assert.Equal(t, []PaymentStatus{PaymentStatusQuarantined, PaymentStatusReceived}, TransitionSources(PaymentStatusRejected))
	assert.Equal(t, []PaymentStatus{PaymentStatusReceived}, TransitionSources(PaymentStatusQuarantined))
	// Nothing moves back to RECEIVED.
	assert.Empty(t, TransitionSources(PaymentStatusReceived))
}

func TestPaymentStatus_IsTerminal(t *testing.T) {
	assert.False(t, PaymentStatusReceived.IsTerminal())
	assert.True(t, PaymentStatusCredited.IsTerminal())
	assert.True(t, PaymentStatusRejected.IsTerminal())
	// Terminal for the pipeline; only a manual resolution moves it.
	assert.True(t, PaymentStatusQuarantined.IsTerminal())
}

func TestInboundPayment_ExternalKey(t *testing.T) {
	receipt := "RCPT123"
	checkout := "ws_CO_001"

	p := &InboundPayment{ProviderReceipt: &receipt, CheckoutID: &checkout}
	assert.Equal(t, "RCPT123", p.ExternalKey(), "receipt wins when present")

	p = &InboundPayment{CheckoutID: &checkout}
	assert.Equal(t, "ws_CO_001", p.ExternalKey())

	empty := ""
	p = &InboundPayment{ProviderReceipt: &empty, CheckoutID: &checkout}
	assert.Equal(t, "ws_CO_001", p.ExternalKey(), "empty receipt falls back to checkout id")

	p = &InboundPayment{}
	assert.Empty(t, p.ExternalKey())
}

func TestResolutionAction_Status(t *testing.T) {
	assert.Equal(t, PaymentStatusCredited, ResolutionCredit.Status())
	assert.Equal(t, PaymentStatusRejected, ResolutionReject.Status())
}

func TestLedgerEntry_Signed(t *testing.T) {
	credit := &LedgerEntry{Direction: DirectionCredit, Amount: 500}
	debit := &LedgerEntry{Direction: DirectionDebit, Amount: 300}

	assert.Equal(t, int64(500), credit.Signed())
	assert.Equal(t, int64(-300), debit.Signed())
}

func TestAccountCodeCheckDigit(t *testing.T) {
	// M=22, T=29, U=30, 0, 0, 1 with weights 7,3,1 repeating:
	// 22*7 + 29*3 + 30*1 + 0*7 + 0*3 + 1*1 = 154+87+30+1 = 272 -> 2
	assert.Equal(t, 2, AccountCodeCheckDigit("MTU001"))
	assert.Equal(t, -1, AccountCodeCheckDigit("MTU-01"), "non-alphanumeric body")
}

func TestValidAccountCode(t *testing.T) {
	body := "MTU001"
	good := fmt.Sprintf("%s%d", body, AccountCodeCheckDigit(body))
	assert.True(t, ValidAccountCode(good))

	assert.False(t, ValidAccountCode("MTU0019"), "wrong check digit")
	assert.False(t, ValidAccountCode("MTU001X"), "non-digit check position")
	assert.False(t, ValidAccountCode("AB1"), "too short")
}

func TestItemStatus_CanTransition(t *testing.T) {
	tests := []struct {
		from ItemStatus
		to   ItemStatus
		want bool
	}{
		{ItemStatusPending, ItemStatusSent, true},
		{ItemStatusPending, ItemStatusCancelled, true},
		{ItemStatusBlocked, ItemStatusSent, false},
		{ItemStatusBlocked, ItemStatusCancelled, true},
		{ItemStatusSent, ItemStatusConfirmed, true},
		{ItemStatusSent, ItemStatusFailed, true},
		{ItemStatusConfirmed, ItemStatusFailed, false},
		{ItemStatusFailed, ItemStatusSent, false},
		{ItemStatusCancelled, ItemStatusSent, false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s->%s", tt.from, tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransition(tt.to))
		})
	}
}

func TestItemStatus_IsTerminal(t *testing.T) {
	assert.False(t, ItemStatusPending.IsTerminal())
	assert.False(t, ItemStatusSent.IsTerminal())
	assert.False(t, ItemStatusBlocked.IsTerminal())
	assert.True(t, ItemStatusConfirmed.IsTerminal())
	assert.True(t, ItemStatusFailed.IsTerminal())
	assert.True(t, ItemStatusCancelled.IsTerminal())
}

func TestSupportedDestination(t *testing.T) {
	assert.True(t, SupportedDestination(DestinationMSISDN))
	assert.False(t, SupportedDestination(DestinationBank))
}

func TestDeriveBatchStatus(t *testing.T) {
	batch := func(s BatchStatus) *PayoutBatch {
		return &PayoutBatch{ID: uuid.New(), Status: s, CreatedAt: time.Now()}
	}
	items := func(statuses ...ItemStatus) []PayoutItem {
		out := make([]PayoutItem, len(statuses))
		for i, s := range statuses {
			out[i] = PayoutItem{ID: uuid.New(), Status: s}
		}
		return out
	}

	tests := []struct {
		name  string
		batch *PayoutBatch
		items []PayoutItem
		want  BatchStatus
	}{
		{"draft stays draft", batch(BatchStatusDraft), items(ItemStatusPending), BatchStatusDraft},
		{"open items keep it submitted", batch(BatchStatusSubmitted), items(ItemStatusSent, ItemStatusConfirmed), BatchStatusSubmitted},
		{"all confirmed", batch(BatchStatusSubmitted), items(ItemStatusConfirmed, ItemStatusConfirmed), BatchStatusCompleted},
		{"all failed", batch(BatchStatusSubmitted), items(ItemStatusFailed), BatchStatusFailed},
		{"mixed terminal", batch(BatchStatusSubmitted), items(ItemStatusConfirmed, ItemStatusFailed), BatchStatusPartial},
		{"confirmed with blocked leftover", batch(BatchStatusSubmitted), items(ItemStatusConfirmed, ItemStatusBlocked), BatchStatusCompleted},
		{"only blocked and cancelled", batch(BatchStatusSubmitted), items(ItemStatusBlocked, ItemStatusCancelled), BatchStatusSubmitted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveBatchStatus(tt.batch, tt.items))
		})
	}
}

func TestReplayMarkerKey(t *testing.T) {
	assert.Equal(t, "C2B_CONFIRMATION:RCPT123", ReplayMarkerKey(EventKindC2B, "RCPT123"))
}
