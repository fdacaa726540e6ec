package service

import (
	"context"
	"errors"
	"testing"

	"sacco-ledger/internal/core/domain"
	"sacco-ledger/internal/core/ports"
	"sacco-ledger/internal/core/ports/mocks"
	"sacco-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type intakeTestDeps struct {
	svc            *IntakeService
	transactor     *mocks.MockDBTransactor
	paymentRepo    *mocks.MockPaymentRepository
	walletRepo     *mocks.MockWalletRepository
	quarantineRepo *mocks.MockQuarantineRepository
	idemRepo       *mocks.MockIdempotencyRepository
	replay         *mocks.MockReplayMarker
	risk           *mocks.MockRiskGate
	audit          *mocks.MockAuditService
	ctrl           *gomock.Controller
}

func setupIntakeService(t *testing.T) *intakeTestDeps {
	ctrl := gomock.NewController(t)
	d := &intakeTestDeps{
		transactor:     mocks.NewMockDBTransactor(ctrl),
		paymentRepo:    mocks.NewMockPaymentRepository(ctrl),
		walletRepo:     mocks.NewMockWalletRepository(ctrl),
		quarantineRepo: mocks.NewMockQuarantineRepository(ctrl),
		idemRepo:       mocks.NewMockIdempotencyRepository(ctrl),
		replay:         mocks.NewMockReplayMarker(ctrl),
		risk:           mocks.NewMockRiskGate(ctrl),
		audit:          mocks.NewMockAuditService(ctrl),
		ctrl:           ctrl,
	}
	d.svc = NewIntakeService(
		IntakeConfig{Paybill: "600123"},
		d.transactor, d.paymentRepo, d.walletRepo, d.quarantineRepo,
		d.idemRepo, d.replay, d.risk, d.audit, zerolog.Nop(),
	)
	return d
}

// mockTx implements pgx.Tx for testing
type mockTx struct{ pgx.Tx }

func (m *mockTx) Rollback(_ context.Context) error { return nil }
func (m *mockTx) Commit(_ context.Context) error   { return nil }

func c2bEvent() ports.InboundEvent {
	return ports.InboundEvent{
		Channel:      domain.ChannelC2B,
		Receipt:      "TJ45HK921X",
		Amount:       10_000,
		SenderMSISDN: "254712345678",
		Paybill:      "600123",
		AccountRef:   "MTU0012",
		SecretOK:     true,
		Raw:          []byte(`{"TransID":"TJ45HK921X"}`),
	}
}

func appCode(t *testing.T, err error) string {
	t.Helper()
	var ae *apperror.AppError
	require.ErrorAs(t, err, &ae)
	return ae.Code
}

// ==================== ProcessInbound Tests ====================

func TestIntakeService_ProcessInbound_CreditsWallet(t *testing.T) {
	d := setupIntakeService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	ev := c2bEvent()
	tx := &mockTx{}

	receipt := ev.Receipt
	payment := &domain.InboundPayment{
		ID:              uuid.New(),
		Channel:         domain.ChannelC2B,
		ProviderReceipt: &receipt,
		Amount:          ev.Amount,
		AccountRef:      ev.AccountRef,
		Status:          domain.PaymentStatusReceived,
	}
	wallet := &domain.Wallet{ID: uuid.New(), AccountCode: ev.AccountRef, Balance: 0}

	d.replay.EXPECT().Seen(ctx, domain.EventKindC2B, "TJ45HK921X").Return(false, nil)
	d.idemRepo.EXPECT().Ensure(ctx, domain.EventKindC2B, "TJ45HK921X").Return(true, nil)
	d.paymentRepo.EXPECT().Upsert(ctx, gomock.Any()).Return(payment, false, nil)
	d.walletRepo.EXPECT().GetByAccountCode(ctx, "MTU0012").Return(wallet, nil)
	d.paymentRepo.EXPECT().SetWallet(ctx, payment.ID, wallet.ID).Return(nil)
	d.risk.EXPECT().Apply(ctx, payment.ID, gomock.Len(0)).
		Return(domain.RiskAssessment{Level: domain.RiskLevelLow}, nil)
	d.walletRepo.EXPECT().EntryExists(ctx, "INBOUND_PAYMENT", "TJ45HK921X").Return(false, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.paymentRepo.EXPECT().GetByIDForUpdate(ctx, tx, payment.ID).Return(payment, nil)
	d.walletRepo.EXPECT().Credit(ctx, tx, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ pgx.Tx, entry *domain.LedgerEntry) error {
			assert.Equal(t, wallet.ID, entry.WalletID)
			assert.Equal(t, int64(10_000), entry.Amount)
			assert.Equal(t, domain.EntryTypeC2BCredit, entry.EntryType)
			assert.Equal(t, "INBOUND_PAYMENT", entry.ReferenceType)
			assert.Equal(t, "TJ45HK921X", entry.ReferenceID)
			return nil
		})
	d.paymentRepo.EXPECT().UpdateStatusTx(ctx, tx, payment.ID, domain.PaymentStatusCredited).Return(nil)
	d.replay.EXPECT().Mark(ctx, domain.EventKindC2B, "TJ45HK921X", replayMarkerTTL).Return(nil)

	err := d.svc.ProcessInbound(ctx, ev)
	require.NoError(t, err)
}

func TestIntakeService_ProcessInbound_ReplayMarkerShortCircuits(t *testing.T) {
	d := setupIntakeService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	d.replay.EXPECT().Seen(ctx, domain.EventKindC2B, "TJ45HK921X").Return(true, nil)

	err := d.svc.ProcessInbound(ctx, c2bEvent())
	require.NoError(t, err)
}

func TestIntakeService_ProcessInbound_GuardFailureAborts(t *testing.T) {
	d := setupIntakeService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	d.replay.EXPECT().Seen(ctx, domain.EventKindC2B, "TJ45HK921X").Return(false, nil)
	d.idemRepo.EXPECT().Ensure(ctx, domain.EventKindC2B, "TJ45HK921X").
		Return(false, errors.New("db down"))

	// Fail closed: the provider redelivers later.
	err := d.svc.ProcessInbound(ctx, c2bEvent())
	require.Error(t, err)
}

func TestIntakeService_ProcessInbound_MissingKey(t *testing.T) {
	d := setupIntakeService(t)
	defer d.ctrl.Finish()

	ev := c2bEvent()
	ev.Receipt = ""
	ev.CheckoutID = ""

	err := d.svc.ProcessInbound(context.Background(), ev)
	require.Error(t, err)
}

func TestIntakeService_ProcessInbound_UnknownRefQuarantines(t *testing.T) {
	d := setupIntakeService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	ev := c2bEvent()
	receipt := ev.Receipt
	payment := &domain.InboundPayment{
		ID:              uuid.New(),
		Channel:         domain.ChannelC2B,
		ProviderReceipt: &receipt,
		Amount:          ev.Amount,
		Status:          domain.PaymentStatusReceived,
	}

	d.replay.EXPECT().Seen(ctx, domain.EventKindC2B, "TJ45HK921X").Return(false, nil)
	d.idemRepo.EXPECT().Ensure(ctx, domain.EventKindC2B, "TJ45HK921X").Return(true, nil)
	d.paymentRepo.EXPECT().Upsert(ctx, gomock.Any()).Return(payment, false, nil)
	// Checksum is valid but no wallet carries the code.
	d.walletRepo.EXPECT().GetByAccountCode(ctx, "MTU0012").Return(nil, nil)
	d.risk.EXPECT().Apply(ctx, payment.ID, []domain.QuarantineReason{domain.ReasonUnknownAccountRef}).
		Return(domain.RiskAssessment{Level: domain.RiskLevelMedium, Score: 35}, nil)
	d.paymentRepo.EXPECT().UpdateStatus(ctx, payment.ID, domain.PaymentStatusQuarantined).Return(nil)
	d.quarantineRepo.EXPECT().Create(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, rec *domain.QuarantineRecord) error {
			assert.Equal(t, domain.ReasonUnknownAccountRef, rec.Reason)
			require.NotNil(t, rec.PaymentID)
			assert.Equal(t, payment.ID, *rec.PaymentID)
			return nil
		})
	d.replay.EXPECT().Mark(ctx, domain.EventKindC2B, "TJ45HK921X", replayMarkerTTL).Return(nil)

	err := d.svc.ProcessInbound(ctx, ev)
	require.NoError(t, err)
}

func TestIntakeService_ProcessInbound_BadChecksumQuarantines(t *testing.T) {
	d := setupIntakeService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	ev := c2bEvent()
	ev.AccountRef = "MTU0013" // wrong check digit, no wallet lookup happens
	receipt := ev.Receipt
	payment := &domain.InboundPayment{
		ID:              uuid.New(),
		ProviderReceipt: &receipt,
		Amount:          ev.Amount,
		Status:          domain.PaymentStatusReceived,
	}

	d.replay.EXPECT().Seen(ctx, domain.EventKindC2B, "TJ45HK921X").Return(false, nil)
	d.idemRepo.EXPECT().Ensure(ctx, domain.EventKindC2B, "TJ45HK921X").Return(true, nil)
	d.paymentRepo.EXPECT().Upsert(ctx, gomock.Any()).Return(payment, false, nil)
	d.risk.EXPECT().Apply(ctx, payment.ID, []domain.QuarantineReason{domain.ReasonInvalidChecksumRef}).
		Return(domain.RiskAssessment{Level: domain.RiskLevelMedium, Score: 45}, nil)
	d.paymentRepo.EXPECT().UpdateStatus(ctx, payment.ID, domain.PaymentStatusQuarantined).Return(nil)
	d.quarantineRepo.EXPECT().Create(ctx, gomock.Any()).Return(nil)
	d.replay.EXPECT().Mark(ctx, domain.EventKindC2B, "TJ45HK921X", replayMarkerTTL).Return(nil)

	err := d.svc.ProcessInbound(ctx, ev)
	require.NoError(t, err)
}

func TestIntakeService_ProcessInbound_SettledReplayIsNoop(t *testing.T) {
	d := setupIntakeService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	ev := c2bEvent()
	receipt := ev.Receipt
	settled := &domain.InboundPayment{
		ID:              uuid.New(),
		ProviderReceipt: &receipt,
		Status:          domain.PaymentStatusCredited,
	}

	d.replay.EXPECT().Seen(ctx, domain.EventKindC2B, "TJ45HK921X").Return(false, nil)
	d.idemRepo.EXPECT().Ensure(ctx, domain.EventKindC2B, "TJ45HK921X").Return(false, nil)
	d.paymentRepo.EXPECT().Upsert(ctx, gomock.Any()).Return(settled, true, nil)
	// The gate is still told about the redelivery before the stop.
	d.risk.EXPECT().Apply(ctx, settled.ID, []domain.QuarantineReason{domain.ReasonIdempotentReplay}).
		Return(domain.RiskAssessment{Level: domain.RiskLevelLow, Score: 15}, nil)
	d.replay.EXPECT().Mark(ctx, domain.EventKindC2B, "TJ45HK921X", replayMarkerTTL).Return(nil)

	// No credit, no quarantine: one ledger entry per receipt, ever.
	err := d.svc.ProcessInbound(ctx, ev)
	require.NoError(t, err)
}

func TestIntakeService_ProcessInbound_CreditFailureRejects(t *testing.T) {
	d := setupIntakeService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	ev := c2bEvent()
	tx := &mockTx{}
	receipt := ev.Receipt
	payment := &domain.InboundPayment{
		ID:              uuid.New(),
		ProviderReceipt: &receipt,
		Amount:          ev.Amount,
		Status:          domain.PaymentStatusReceived,
	}
	wallet := &domain.Wallet{ID: uuid.New(), AccountCode: ev.AccountRef}

	d.replay.EXPECT().Seen(ctx, domain.EventKindC2B, "TJ45HK921X").Return(false, nil)
	d.idemRepo.EXPECT().Ensure(ctx, domain.EventKindC2B, "TJ45HK921X").Return(true, nil)
	d.paymentRepo.EXPECT().Upsert(ctx, gomock.Any()).Return(payment, false, nil)
	d.walletRepo.EXPECT().GetByAccountCode(ctx, "MTU0012").Return(wallet, nil)
	d.paymentRepo.EXPECT().SetWallet(ctx, payment.ID, wallet.ID).Return(nil)
	d.risk.EXPECT().Apply(ctx, payment.ID, gomock.Len(0)).
		Return(domain.RiskAssessment{Level: domain.RiskLevelLow}, nil)
	d.walletRepo.EXPECT().EntryExists(ctx, "INBOUND_PAYMENT", "TJ45HK921X").Return(false, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.paymentRepo.EXPECT().GetByIDForUpdate(ctx, tx, payment.ID).Return(payment, nil)
	// The ledger insert dies mid-transaction; everything rolls back.
	d.walletRepo.EXPECT().Credit(ctx, tx, gomock.Any()).Return(errors.New("connection reset"))
	// The failed attempt is recorded as REJECTED so the row does not sit
	// RECEIVED forever.
	d.paymentRepo.EXPECT().UpdateStatus(ctx, payment.ID, domain.PaymentStatusRejected).Return(nil)

	err := d.svc.ProcessInbound(ctx, ev)
	require.Error(t, err)
}

func TestIntakeService_ProcessInbound_DuplicateLedgerRefQuarantines(t *testing.T) {
	d := setupIntakeService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	ev := c2bEvent()
	tx := &mockTx{}
	receipt := ev.Receipt
	payment := &domain.InboundPayment{
		ID:              uuid.New(),
		ProviderReceipt: &receipt,
		Amount:          ev.Amount,
		Status:          domain.PaymentStatusReceived,
	}
	wallet := &domain.Wallet{ID: uuid.New(), AccountCode: ev.AccountRef}

	d.replay.EXPECT().Seen(ctx, domain.EventKindC2B, "TJ45HK921X").Return(false, nil)
	d.idemRepo.EXPECT().Ensure(ctx, domain.EventKindC2B, "TJ45HK921X").Return(true, nil)
	d.paymentRepo.EXPECT().Upsert(ctx, gomock.Any()).Return(payment, false, nil)
	d.walletRepo.EXPECT().GetByAccountCode(ctx, "MTU0012").Return(wallet, nil)
	d.paymentRepo.EXPECT().SetWallet(ctx, payment.ID, wallet.ID).Return(nil)
	d.risk.EXPECT().Apply(ctx, payment.ID, gomock.Len(0)).
		Return(domain.RiskAssessment{Level: domain.RiskLevelLow}, nil)
	// The pre-check misses the entry (raced in after it), the unique
	// constraint inside the transaction catches it.
	d.walletRepo.EXPECT().EntryExists(ctx, "INBOUND_PAYMENT", "TJ45HK921X").Return(false, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.paymentRepo.EXPECT().GetByIDForUpdate(ctx, tx, payment.ID).Return(payment, nil)
	d.walletRepo.EXPECT().Credit(ctx, tx, gomock.Any()).Return(ports.ErrDuplicateReference)
	d.paymentRepo.EXPECT().UpdateStatus(ctx, payment.ID, domain.PaymentStatusQuarantined).Return(nil)
	d.quarantineRepo.EXPECT().Create(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, rec *domain.QuarantineRecord) error {
			assert.Equal(t, domain.ReasonDuplicateReceipt, rec.Reason)
			return nil
		})
	d.replay.EXPECT().Mark(ctx, domain.EventKindC2B, "TJ45HK921X", replayMarkerTTL).Return(nil)

	err := d.svc.ProcessInbound(ctx, ev)
	require.NoError(t, err)
}

func TestIntakeService_ProcessInbound_GuardReplayWithoutRowStillCredits(t *testing.T) {
	d := setupIntakeService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	ev := c2bEvent()
	tx := &mockTx{}
	receipt := ev.Receipt
	payment := &domain.InboundPayment{
		ID:              uuid.New(),
		ProviderReceipt: &receipt,
		Amount:          ev.Amount,
		Status:          domain.PaymentStatusReceived,
	}
	wallet := &domain.Wallet{ID: uuid.New(), AccountCode: ev.AccountRef}

	d.replay.EXPECT().Seen(ctx, domain.EventKindC2B, "TJ45HK921X").Return(false, nil)
	// Guard says replay but no row exists: a previous attempt died between
	// guard and upsert, or a concurrent delivery is mid-flight.
	d.idemRepo.EXPECT().Ensure(ctx, domain.EventKindC2B, "TJ45HK921X").Return(false, nil)
	d.paymentRepo.EXPECT().Upsert(ctx, gomock.Any()).Return(payment, false, nil)
	d.walletRepo.EXPECT().GetByAccountCode(ctx, "MTU0012").Return(wallet, nil)
	d.paymentRepo.EXPECT().SetWallet(ctx, payment.ID, wallet.ID).Return(nil)
	// The gate sees the replay flag; alone it does not block the credit.
	d.risk.EXPECT().Apply(ctx, payment.ID, []domain.QuarantineReason{domain.ReasonIdempotentReplay}).
		Return(domain.RiskAssessment{Level: domain.RiskLevelLow, Score: 15}, nil)
	d.walletRepo.EXPECT().EntryExists(ctx, "INBOUND_PAYMENT", "TJ45HK921X").Return(false, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.paymentRepo.EXPECT().GetByIDForUpdate(ctx, tx, payment.ID).Return(payment, nil)
	d.walletRepo.EXPECT().Credit(ctx, tx, gomock.Any()).Return(nil)
	d.paymentRepo.EXPECT().UpdateStatusTx(ctx, tx, payment.ID, domain.PaymentStatusCredited).Return(nil)
	d.replay.EXPECT().Mark(ctx, domain.EventKindC2B, "TJ45HK921X", replayMarkerTTL).Return(nil)

	err := d.svc.ProcessInbound(ctx, ev)
	require.NoError(t, err)
}

func TestIntakeService_ProcessInbound_PreexistingEntryQuarantines(t *testing.T) {
	d := setupIntakeService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	ev := c2bEvent()
	receipt := ev.Receipt
	payment := &domain.InboundPayment{
		ID:              uuid.New(),
		ProviderReceipt: &receipt,
		Amount:          ev.Amount,
		Status:          domain.PaymentStatusReceived,
	}
	wallet := &domain.Wallet{ID: uuid.New(), AccountCode: ev.AccountRef}

	d.replay.EXPECT().Seen(ctx, domain.EventKindC2B, "TJ45HK921X").Return(false, nil)
	d.idemRepo.EXPECT().Ensure(ctx, domain.EventKindC2B, "TJ45HK921X").Return(true, nil)
	d.paymentRepo.EXPECT().Upsert(ctx, gomock.Any()).Return(payment, false, nil)
	d.walletRepo.EXPECT().GetByAccountCode(ctx, "MTU0012").Return(wallet, nil)
	d.paymentRepo.EXPECT().SetWallet(ctx, payment.ID, wallet.ID).Return(nil)
	d.risk.EXPECT().Apply(ctx, payment.ID, gomock.Len(0)).
		Return(domain.RiskAssessment{Level: domain.RiskLevelLow}, nil)
	// The recovery check finds the receipt already on the ledger while
	// this row is still open; no transaction is opened at all.
	d.walletRepo.EXPECT().EntryExists(ctx, "INBOUND_PAYMENT", "TJ45HK921X").Return(true, nil)
	d.paymentRepo.EXPECT().GetByID(ctx, payment.ID).Return(payment, nil)
	d.paymentRepo.EXPECT().UpdateStatus(ctx, payment.ID, domain.PaymentStatusQuarantined).Return(nil)
	d.quarantineRepo.EXPECT().Create(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, rec *domain.QuarantineRecord) error {
			assert.Equal(t, domain.ReasonDuplicateReceipt, rec.Reason)
			return nil
		})
	d.replay.EXPECT().Mark(ctx, domain.EventKindC2B, "TJ45HK921X", replayMarkerTTL).Return(nil)

	err := d.svc.ProcessInbound(ctx, ev)
	require.NoError(t, err)
}

func TestIntakeService_ProcessInbound_ConcurrentSettleSkipsCredit(t *testing.T) {
	d := setupIntakeService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	ev := c2bEvent()
	tx := &mockTx{}
	receipt := ev.Receipt
	payment := &domain.InboundPayment{
		ID:              uuid.New(),
		ProviderReceipt: &receipt,
		Amount:          ev.Amount,
		Status:          domain.PaymentStatusReceived,
	}
	settled := &domain.InboundPayment{
		ID:     payment.ID,
		Status: domain.PaymentStatusCredited,
	}
	wallet := &domain.Wallet{ID: uuid.New(), AccountCode: ev.AccountRef}

	d.replay.EXPECT().Seen(ctx, domain.EventKindC2B, "TJ45HK921X").Return(false, nil)
	d.idemRepo.EXPECT().Ensure(ctx, domain.EventKindC2B, "TJ45HK921X").Return(true, nil)
	d.paymentRepo.EXPECT().Upsert(ctx, gomock.Any()).Return(payment, false, nil)
	d.walletRepo.EXPECT().GetByAccountCode(ctx, "MTU0012").Return(wallet, nil)
	d.paymentRepo.EXPECT().SetWallet(ctx, payment.ID, wallet.ID).Return(nil)
	d.risk.EXPECT().Apply(ctx, payment.ID, gomock.Len(0)).
		Return(domain.RiskAssessment{Level: domain.RiskLevelLow}, nil)
	d.walletRepo.EXPECT().EntryExists(ctx, "INBOUND_PAYMENT", "TJ45HK921X").Return(false, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	// Under the row lock a concurrent delivery already settled it.
	d.paymentRepo.EXPECT().GetByIDForUpdate(ctx, tx, payment.ID).Return(settled, nil)
	d.replay.EXPECT().Mark(ctx, domain.EventKindC2B, "TJ45HK921X", replayMarkerTTL).Return(nil)

	err := d.svc.ProcessInbound(ctx, ev)
	require.NoError(t, err)
}

func TestIntakeService_ProcessInbound_HighRiskQuarantinesCleanPayment(t *testing.T) {
	d := setupIntakeService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	ev := c2bEvent()
	receipt := ev.Receipt
	payment := &domain.InboundPayment{
		ID:              uuid.New(),
		ProviderReceipt: &receipt,
		Amount:          ev.Amount,
		Status:          domain.PaymentStatusReceived,
	}
	wallet := &domain.Wallet{ID: uuid.New(), AccountCode: ev.AccountRef}

	d.replay.EXPECT().Seen(ctx, domain.EventKindC2B, "TJ45HK921X").Return(false, nil)
	d.idemRepo.EXPECT().Ensure(ctx, domain.EventKindC2B, "TJ45HK921X").Return(true, nil)
	d.paymentRepo.EXPECT().Upsert(ctx, gomock.Any()).Return(payment, false, nil)
	d.walletRepo.EXPECT().GetByAccountCode(ctx, "MTU0012").Return(wallet, nil)
	d.paymentRepo.EXPECT().SetWallet(ctx, payment.ID, wallet.ID).Return(nil)
	// All checks passed but the gate still flags it HIGH.
	d.risk.EXPECT().Apply(ctx, payment.ID, gomock.Len(0)).
		Return(domain.RiskAssessment{Level: domain.RiskLevelHigh, Score: 90}, nil)
	d.paymentRepo.EXPECT().UpdateStatus(ctx, payment.ID, domain.PaymentStatusQuarantined).Return(nil)
	d.quarantineRepo.EXPECT().Create(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, rec *domain.QuarantineRecord) error {
			assert.Equal(t, domain.ReasonHighRisk, rec.Reason)
			return nil
		})
	d.replay.EXPECT().Mark(ctx, domain.EventKindC2B, "TJ45HK921X", replayMarkerTTL).Return(nil)

	err := d.svc.ProcessInbound(ctx, ev)
	require.NoError(t, err)
}

// ==================== ValidateAccountRef Tests ====================

func TestIntakeService_ValidateAccountRef(t *testing.T) {
	d := setupIntakeService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()

	t.Run("bad checksum rejects without lookup", func(t *testing.T) {
		assert.False(t, d.svc.ValidateAccountRef(ctx, "MTU0013"))
	})

	t.Run("known wallet accepts", func(t *testing.T) {
		d.walletRepo.EXPECT().GetByAccountCode(ctx, "MTU0012").
			Return(&domain.Wallet{ID: uuid.New()}, nil)
		assert.True(t, d.svc.ValidateAccountRef(ctx, "MTU0012"))
	})

	t.Run("unknown wallet rejects", func(t *testing.T) {
		d.walletRepo.EXPECT().GetByAccountCode(ctx, "MTU0012").Return(nil, nil)
		assert.False(t, d.svc.ValidateAccountRef(ctx, "MTU0012"))
	})

	t.Run("storage failure accepts", func(t *testing.T) {
		d.walletRepo.EXPECT().GetByAccountCode(ctx, "MTU0012").
			Return(nil, errors.New("db down"))
		assert.True(t, d.svc.ValidateAccountRef(ctx, "MTU0012"))
	})
}

// ==================== Resolve Tests ====================

func TestIntakeService_Resolve_NotFound(t *testing.T) {
	d := setupIntakeService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	id := uuid.New()
	d.paymentRepo.EXPECT().GetByID(ctx, id).Return(nil, nil)

	_, err := d.svc.Resolve(ctx, ports.ResolveRequest{PaymentID: id, Action: domain.ResolutionReject})
	assert.Equal(t, "ADM_001", appCode(t, err))
}

func TestIntakeService_Resolve_IdenticalActionIsNoop(t *testing.T) {
	d := setupIntakeService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	payment := &domain.InboundPayment{ID: uuid.New(), Status: domain.PaymentStatusCredited}
	d.paymentRepo.EXPECT().GetByID(ctx, payment.ID).Return(payment, nil)

	got, err := d.svc.Resolve(ctx, ports.ResolveRequest{
		PaymentID: payment.ID,
		Action:    domain.ResolutionCredit,
	})
	require.NoError(t, err)
	assert.Equal(t, payment, got)
}

func TestIntakeService_Resolve_ConflictingAction(t *testing.T) {
	d := setupIntakeService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	payment := &domain.InboundPayment{ID: uuid.New(), Status: domain.PaymentStatusCredited}
	d.paymentRepo.EXPECT().GetByID(ctx, payment.ID).Return(payment, nil)

	_, err := d.svc.Resolve(ctx, ports.ResolveRequest{
		PaymentID: payment.ID,
		Action:    domain.ResolutionReject,
	})
	assert.Equal(t, "PMT_002", appCode(t, err))
}

func TestIntakeService_Resolve_CreditRequiresWallet(t *testing.T) {
	d := setupIntakeService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	payment := &domain.InboundPayment{
		ID:     uuid.New(),
		Amount: 10_000,
		Status: domain.PaymentStatusQuarantined,
	}
	d.paymentRepo.EXPECT().GetByID(ctx, payment.ID).Return(payment, nil)

	_, err := d.svc.Resolve(ctx, ports.ResolveRequest{
		PaymentID: payment.ID,
		Action:    domain.ResolutionCredit,
	})
	assert.Equal(t, "PMT_004", appCode(t, err))
}

func TestIntakeService_Resolve_Reject(t *testing.T) {
	d := setupIntakeService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	payment := &domain.InboundPayment{ID: uuid.New(), Status: domain.PaymentStatusQuarantined}
	rejected := &domain.InboundPayment{ID: payment.ID, Status: domain.PaymentStatusRejected}

	d.paymentRepo.EXPECT().GetByID(ctx, payment.ID).Return(payment, nil)
	d.paymentRepo.EXPECT().UpdateStatus(ctx, payment.ID, domain.PaymentStatusRejected).Return(nil)
	d.quarantineRepo.EXPECT().MarkResolved(ctx, payment.ID, domain.ResolutionReject, "ops@sacco", gomock.Any()).Return(nil)
	d.audit.EXPECT().Record(ctx, "ops@sacco", domain.AuditActionResolvePayment,
		"payment", payment.ID.String(), gomock.Any(), "10.0.0.1")
	d.paymentRepo.EXPECT().GetByID(ctx, payment.ID).Return(rejected, nil)

	got, err := d.svc.Resolve(ctx, ports.ResolveRequest{
		PaymentID: payment.ID,
		Action:    domain.ResolutionReject,
		Actor:     "ops@sacco",
		ClientIP:  "10.0.0.1",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusRejected, got.Status)
}

func TestIntakeService_Resolve_CreditQuarantined(t *testing.T) {
	d := setupIntakeService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	tx := &mockTx{}
	walletID := uuid.New()
	receipt := "TJ45HK921X"
	payment := &domain.InboundPayment{
		ID:              uuid.New(),
		ProviderReceipt: &receipt,
		Amount:          10_000,
		Status:          domain.PaymentStatusQuarantined,
		WalletID:        &walletID,
	}
	credited := &domain.InboundPayment{ID: payment.ID, Status: domain.PaymentStatusCredited}

	d.paymentRepo.EXPECT().GetByID(ctx, payment.ID).Return(payment, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.paymentRepo.EXPECT().GetByIDForUpdate(ctx, tx, payment.ID).Return(payment, nil)
	d.walletRepo.EXPECT().Credit(ctx, tx, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ pgx.Tx, entry *domain.LedgerEntry) error {
			assert.Equal(t, walletID, entry.WalletID)
			assert.Equal(t, domain.EntryTypeManualCredit, entry.EntryType)
			assert.Equal(t, "TJ45HK921X", entry.ReferenceID)
			return nil
		})
	d.paymentRepo.EXPECT().UpdateStatusTx(ctx, tx, payment.ID, domain.PaymentStatusCredited).Return(nil)
	d.quarantineRepo.EXPECT().MarkResolved(ctx, payment.ID, domain.ResolutionCredit, "ops@sacco", gomock.Any()).Return(nil)
	d.audit.EXPECT().Record(ctx, "ops@sacco", domain.AuditActionResolvePayment,
		"payment", payment.ID.String(), gomock.Any(), "10.0.0.1")
	d.paymentRepo.EXPECT().GetByID(ctx, payment.ID).Return(credited, nil)

	got, err := d.svc.Resolve(ctx, ports.ResolveRequest{
		PaymentID: payment.ID,
		Action:    domain.ResolutionCredit,
		Actor:     "ops@sacco",
		ClientIP:  "10.0.0.1",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusCredited, got.Status)
}

func TestIntakeService_Resolve_CreditDuplicateReference(t *testing.T) {
	d := setupIntakeService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	tx := &mockTx{}
	walletID := uuid.New()
	receipt := "TJ45HK921X"
	payment := &domain.InboundPayment{
		ID:              uuid.New(),
		ProviderReceipt: &receipt,
		Amount:          10_000,
		Status:          domain.PaymentStatusQuarantined,
		WalletID:        &walletID,
	}

	d.paymentRepo.EXPECT().GetByID(ctx, payment.ID).Return(payment, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.paymentRepo.EXPECT().GetByIDForUpdate(ctx, tx, payment.ID).Return(payment, nil)
	d.walletRepo.EXPECT().Credit(ctx, tx, gomock.Any()).Return(ports.ErrDuplicateReference)

	_, err := d.svc.Resolve(ctx, ports.ResolveRequest{
		PaymentID: payment.ID,
		Action:    domain.ResolutionCredit,
		Actor:     "ops@sacco",
	})
	assert.Equal(t, "LED_002", appCode(t, err))
}
