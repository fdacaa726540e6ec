package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sacco-ledger/internal/core/domain"
	"sacco-ledger/internal/core/ports"
	"sacco-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ledgerRefPayment is the reference_type used for inbound credit entries.
// The reference_id is the provider's external key, so the ledger unique
// constraint dedups even across channels carrying the same receipt.
const ledgerRefPayment = "INBOUND_PAYMENT"

// replayMarkerTTL bounds the Redis fast-path marker. The database guard
// outlives it.
const replayMarkerTTL = 48 * time.Hour

// IntakeConfig carries the intake pipeline's tunables.
type IntakeConfig struct {
	// Paybill is the shortcode this service collects for. Events quoting a
	// different shortcode are quarantined, not rejected.
	Paybill string
}

// IntakeService implements ports.IntakeService: idempotent ingestion of
// provider payment notifications into the wallet ledger.
type IntakeService struct {
	cfg            IntakeConfig
	transactor     ports.DBTransactor
	paymentRepo    ports.PaymentRepository
	walletRepo     ports.WalletRepository
	quarantineRepo ports.QuarantineRepository
	idemRepo       ports.IdempotencyRepository
	replay         ports.ReplayMarker
	risk           ports.RiskGate
	audit          ports.AuditService
	log            zerolog.Logger
}

// NewIntakeService creates a new IntakeService.
func NewIntakeService(
	cfg IntakeConfig,
	transactor ports.DBTransactor,
	paymentRepo ports.PaymentRepository,
	walletRepo ports.WalletRepository,
	quarantineRepo ports.QuarantineRepository,
	idemRepo ports.IdempotencyRepository,
	replay ports.ReplayMarker,
	risk ports.RiskGate,
	audit ports.AuditService,
	log zerolog.Logger,
) *IntakeService {
	return &IntakeService{
		cfg:            cfg,
		transactor:     transactor,
		paymentRepo:    paymentRepo,
		walletRepo:     walletRepo,
		quarantineRepo: quarantineRepo,
		idemRepo:       idemRepo,
		replay:         replay,
		risk:           risk,
		audit:          audit,
		log:            log,
	}
}

func eventKindFor(ch domain.PaymentChannel) domain.EventKind {
	if ch == domain.ChannelSTK {
		return domain.EventKindSTK
	}
	return domain.EventKindC2B
}

// ProcessInbound runs the full pipeline for one webhook delivery. The
// transport has already acked by the time this runs; every failure mode
// lands the payment in a persisted state a human can act on.
func (s *IntakeService) ProcessInbound(ctx context.Context, ev ports.InboundEvent) error {
	key := ev.ExternalKey()
	if key == "" {
		return fmt.Errorf("inbound event without receipt or checkout id")
	}
	kind := eventKindFor(ev.Channel)

	log := s.log.With().
		Str("channel", string(ev.Channel)).
		Str("external_key", key).
		Logger()

	// Fast path. The marker is only written after the payment reaches a
	// terminal state, so a hit means there is nothing left to do. Redis
	// failures fall through to the database guard.
	if seen, err := s.replay.Seen(ctx, kind, key); err != nil {
		log.Warn().Err(err).Msg("replay marker unavailable, falling through to durable guard")
	} else if seen {
		log.Debug().Msg("replayed delivery short-circuited by marker")
		return nil
	}

	// Durable guard. A storage failure here aborts processing entirely;
	// the provider redelivers and we try again.
	firstTime, err := s.idemRepo.Ensure(ctx, kind, key)
	if err != nil {
		return fmt.Errorf("idempotency guard: %w", err)
	}

	payment, existed, err := s.paymentRepo.Upsert(ctx, s.paymentFromEvent(ev))
	if err != nil {
		return fmt.Errorf("upsert payment: %w", err)
	}

	if existed {
		// STK rows are created under the checkout id; the confirmation
		// callback is the first carrier of the receipt.
		if ev.Receipt != "" && payment.ProviderReceipt == nil {
			if err := s.paymentRepo.SetReceipt(ctx, payment.ID, ev.Receipt); err != nil {
				log.Warn().Err(err).Msg("failed to backfill provider receipt")
			}
		}
		if payment.Status.IsTerminal() {
			log.Debug().Str("status", string(payment.Status)).Msg("replayed delivery for settled payment")
			// The gate still sees every redelivery of a settled payment;
			// its failures never block the ack path.
			if _, rerr := s.risk.Apply(ctx, payment.ID, []domain.QuarantineReason{domain.ReasonIdempotentReplay}); rerr != nil {
				log.Warn().Err(rerr).Msg("risk gate failed on settled replay")
			}
			s.markReplay(ctx, kind, key)
			return nil
		}
		// Non-terminal duplicate: a previous attempt crashed mid-pipeline.
		// Re-run processing against the existing row.
	}

	reasons := s.validate(ctx, ev, payment)
	riskReasons := reasons
	if !firstTime && !existed {
		// The guard fired but no payment row existed at upsert time: a
		// previous attempt died between guard and upsert, or a concurrent
		// delivery is racing this one. Feed the gate; the row lock in the
		// credit transaction settles the race either way.
		riskReasons = make([]domain.QuarantineReason, 0, len(reasons)+1)
		riskReasons = append(riskReasons, reasons...)
		riskReasons = append(riskReasons, domain.ReasonIdempotentReplay)
	}

	assessment, err := s.risk.Apply(ctx, payment.ID, riskReasons)
	if err != nil {
		// Risk never blocks the pipeline. With no hard reasons the payment
		// proceeds as unscored.
		log.Warn().Err(err).Msg("risk gate failed")
	}

	if len(reasons) > 0 || assessment.Level == domain.RiskLevelHigh {
		if len(reasons) == 0 {
			reasons = append(reasons, domain.ReasonHighRisk)
		}
		if err := s.quarantine(ctx, payment, reasons, ev.Raw); err != nil {
			return err
		}
		s.markReplay(ctx, kind, key)
		return nil
	}

	// Recovery check before opening the locking transaction: a different
	// payment row may already have produced the ledger entry for this
	// receipt (an STK row keyed by checkout id, say). A check failure
	// falls through to the unique constraint inside the transaction.
	if exists, err := s.walletRepo.EntryExists(ctx, ledgerRefPayment, key); err != nil {
		log.Warn().Err(err).Msg("ledger reference check failed, relying on constraint")
	} else if exists {
		// The entry and a terminal status commit together, so a fresh
		// terminal read means this row's own credit already landed.
		if fresh, ferr := s.paymentRepo.GetByID(ctx, payment.ID); ferr == nil && fresh != nil && fresh.Status.IsTerminal() {
			log.Debug().Msg("credit already committed by a concurrent delivery")
			s.markReplay(ctx, kind, key)
			return nil
		}
		if err := s.quarantine(ctx, payment, []domain.QuarantineReason{domain.ReasonDuplicateReceipt}, ev.Raw); err != nil {
			return err
		}
		s.markReplay(ctx, kind, key)
		return nil
	}

	if err := s.credit(ctx, payment, ev); err != nil {
		if errors.Is(err, ports.ErrDuplicateReference) {
			// Another payment row already produced the ledger entry for
			// this receipt. Park it for a human instead of double crediting.
			if qerr := s.quarantine(ctx, payment, []domain.QuarantineReason{domain.ReasonDuplicateReceipt}, ev.Raw); qerr != nil {
				return qerr
			}
			s.markReplay(ctx, kind, key)
			return nil
		}
		// The transaction rolled back without moving money. Record the
		// failed attempt as REJECTED so the row never sits RECEIVED
		// forever; best effort, the guarded update loses cleanly to any
		// concurrent settle.
		if uerr := s.paymentRepo.UpdateStatus(ctx, payment.ID, domain.PaymentStatusRejected); uerr != nil && !errors.Is(uerr, ports.ErrStatusConflict) {
			log.Warn().Err(uerr).Msg("failed to mark payment rejected after credit failure")
		}
		return err
	}

	log.Info().Str("payment_id", payment.ID.String()).Int64("amount", ev.Amount).Msg("payment credited")
	s.markReplay(ctx, kind, key)
	return nil
}

// paymentFromEvent builds the RECEIVED row for upsert.
func (s *IntakeService) paymentFromEvent(ev ports.InboundEvent) *domain.InboundPayment {
	p := &domain.InboundPayment{
		ID:           uuid.New(),
		Channel:      ev.Channel,
		Amount:       ev.Amount,
		SenderMSISDN: ev.SenderMSISDN,
		Paybill:      ev.Paybill,
		AccountRef:   ev.AccountRef,
		Status:       domain.PaymentStatusReceived,
		RawPayload:   ev.Raw,
	}
	if ev.Receipt != "" {
		r := ev.Receipt
		p.ProviderReceipt = &r
	}
	if ev.CheckoutID != "" {
		c := ev.CheckoutID
		p.CheckoutID = &c
	}
	return p
}

// validate runs the ordered business checks and resolves the target wallet.
// All failed checks are collected; the risk gate sees the full picture.
func (s *IntakeService) validate(ctx context.Context, ev ports.InboundEvent, p *domain.InboundPayment) []domain.QuarantineReason {
	var reasons []domain.QuarantineReason

	if !ev.SecretOK {
		reasons = append(reasons, domain.ReasonWebhookSecretMismatch)
	}
	if s.cfg.Paybill != "" && ev.Paybill != s.cfg.Paybill {
		reasons = append(reasons, domain.ReasonPaybillMismatch)
	}
	if ev.Amount <= 0 {
		reasons = append(reasons, domain.ReasonInvalidAmount)
	}

	switch {
	case !domain.ValidAccountCode(ev.AccountRef):
		reasons = append(reasons, domain.ReasonInvalidChecksumRef)
	default:
		wallet, err := s.walletRepo.GetByAccountCode(ctx, ev.AccountRef)
		if err != nil {
			s.log.Error().Err(err).Str("account_ref", ev.AccountRef).Msg("wallet lookup failed")
			reasons = append(reasons, domain.ReasonUnknownAccountRef)
			break
		}
		if wallet == nil {
			reasons = append(reasons, domain.ReasonUnknownAccountRef)
			break
		}
		if p.WalletID == nil {
			if err := s.paymentRepo.SetWallet(ctx, p.ID, wallet.ID); err != nil {
				s.log.Warn().Err(err).Msg("failed to pin wallet on payment")
			}
			p.WalletID = &wallet.ID
		}
	}

	return reasons
}

// quarantine moves the payment to QUARANTINED and writes one audit record
// per reason.
func (s *IntakeService) quarantine(ctx context.Context, p *domain.InboundPayment, reasons []domain.QuarantineReason, snapshot []byte) error {
	if err := s.paymentRepo.UpdateStatus(ctx, p.ID, domain.PaymentStatusQuarantined); err != nil {
		if errors.Is(err, ports.ErrStatusConflict) {
			// Someone settled it between validation and here; nothing to hold.
			return nil
		}
		return fmt.Errorf("quarantine payment: %w", err)
	}

	now := time.Now().UTC()
	for _, reason := range reasons {
		rec := &domain.QuarantineRecord{
			ID:        uuid.New(),
			PaymentID: &p.ID,
			Reason:    reason,
			Snapshot:  snapshot,
			CreatedAt: now,
		}
		if err := s.quarantineRepo.Create(ctx, rec); err != nil {
			return fmt.Errorf("create quarantine record: %w", err)
		}
	}

	s.log.Warn().
		Str("payment_id", p.ID.String()).
		Interface("reasons", reasons).
		Msg("payment quarantined")
	return nil
}

// credit performs the atomic crediting transaction: lock the payment,
// append the ledger entry, bump the balance, flip the status. Commit makes
// all of it visible at once.
func (s *IntakeService) credit(ctx context.Context, p *domain.InboundPayment, ev ports.InboundEvent) error {
	if p.WalletID == nil {
		return fmt.Errorf("credit without resolved wallet for payment %s", p.ID)
	}

	entryType := domain.EntryTypeC2BCredit
	if ev.Channel == domain.ChannelSTK {
		entryType = domain.EntryTypeSTKCredit
	}

	tx, err := s.transactor.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin credit tx: %w", err)
	}
	defer tx.Rollback(ctx)

	locked, err := s.paymentRepo.GetByIDForUpdate(ctx, tx, p.ID)
	if err != nil {
		return fmt.Errorf("lock payment: %w", err)
	}
	if locked == nil {
		return fmt.Errorf("payment vanished under lock: %s", p.ID)
	}
	if locked.Status != domain.PaymentStatusReceived {
		// Lost the race to a concurrent delivery or a manual resolution.
		s.log.Debug().
			Str("payment_id", p.ID.String()).
			Str("status", string(locked.Status)).
			Msg("credit skipped, payment already settled")
		return nil
	}

	entry := &domain.LedgerEntry{
		ID:            uuid.New(),
		WalletID:      *p.WalletID,
		Direction:     domain.DirectionCredit,
		Amount:        ev.Amount,
		EntryType:     entryType,
		ReferenceType: ledgerRefPayment,
		ReferenceID:   ev.ExternalKey(),
	}
	if err := s.walletRepo.Credit(ctx, tx, entry); err != nil {
		return err
	}

	if err := s.paymentRepo.UpdateStatusTx(ctx, tx, p.ID, domain.PaymentStatusCredited); err != nil {
		return fmt.Errorf("mark payment credited: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit credit tx: %w", err)
	}
	return nil
}

// markReplay writes the Redis fast-path marker. Best effort.
func (s *IntakeService) markReplay(ctx context.Context, kind domain.EventKind, key string) {
	if err := s.replay.Mark(ctx, kind, key, replayMarkerTTL); err != nil {
		s.log.Warn().Err(err).Msg("failed to write replay marker")
	}
}

// ValidateAccountRef answers the provider's synchronous C2B validation
// check. Checksum first, then a wallet lookup; any storage failure accepts
// the payment and lets the confirmation pipeline sort it out.
func (s *IntakeService) ValidateAccountRef(ctx context.Context, ref string) bool {
	if !domain.ValidAccountCode(ref) {
		return false
	}
	wallet, err := s.walletRepo.GetByAccountCode(ctx, ref)
	if err != nil {
		s.log.Warn().Err(err).Str("account_ref", ref).Msg("validation lookup failed, accepting")
		return true
	}
	return wallet != nil
}

// Resolve applies a manual CREDIT/REJECT decision. Repeating an identical
// decision is a no-op returning the settled payment; a conflicting decision
// is rejected.
func (s *IntakeService) Resolve(ctx context.Context, req ports.ResolveRequest) (*domain.InboundPayment, error) {
	payment, err := s.paymentRepo.GetByID(ctx, req.PaymentID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}
	if payment == nil {
		return nil, apperror.ErrNotFound("Payment")
	}

	target := req.Action.Status()
	if payment.Status == target {
		return payment, nil
	}
	if payment.Status.IsTerminal() && payment.Status != domain.PaymentStatusQuarantined {
		return nil, apperror.ErrConflictingResolution()
	}
	if !payment.Status.CanTransition(target) {
		return nil, apperror.ErrIllegalTransition(string(payment.Status), string(target))
	}

	switch req.Action {
	case domain.ResolutionCredit:
		walletID := payment.WalletID
		if walletID == nil {
			walletID = req.WalletID
		}
		if walletID == nil {
			return nil, apperror.ErrWalletRequired()
		}
		if err := s.resolveCredit(ctx, payment, *walletID); err != nil {
			return nil, err
		}
	case domain.ResolutionReject:
		if err := s.paymentRepo.UpdateStatus(ctx, payment.ID, domain.PaymentStatusRejected); err != nil {
			if errors.Is(err, ports.ErrStatusConflict) {
				return nil, apperror.ErrConflictingResolution()
			}
			return nil, apperror.ErrDatabaseError(err)
		}
	default:
		return nil, apperror.Validation("Unknown resolution action")
	}

	now := time.Now().UTC()
	if err := s.quarantineRepo.MarkResolved(ctx, payment.ID, req.Action, req.Actor, now); err != nil {
		s.log.Warn().Err(err).Str("payment_id", payment.ID.String()).Msg("failed to close quarantine records")
	}

	s.audit.Record(ctx, req.Actor, domain.AuditActionResolvePayment, "payment", payment.ID.String(),
		fmt.Sprintf("action=%s", req.Action), req.ClientIP)

	resolved, err := s.paymentRepo.GetByID(ctx, payment.ID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}
	return resolved, nil
}

// resolveCredit runs the same atomic crediting transaction as the pipeline,
// but with a MANUAL_CREDIT entry type.
func (s *IntakeService) resolveCredit(ctx context.Context, p *domain.InboundPayment, walletID uuid.UUID) error {
	if p.Amount <= 0 {
		return apperror.ErrInvalidAmount()
	}

	if p.WalletID == nil {
		if err := s.paymentRepo.SetWallet(ctx, p.ID, walletID); err != nil {
			return apperror.ErrDatabaseError(err)
		}
	}

	tx, err := s.transactor.Begin(ctx)
	if err != nil {
		return apperror.ErrDatabaseError(err)
	}
	defer tx.Rollback(ctx)

	locked, err := s.paymentRepo.GetByIDForUpdate(ctx, tx, p.ID)
	if err != nil {
		return apperror.ErrDatabaseError(err)
	}
	if locked == nil {
		return apperror.ErrNotFound("Payment")
	}
	if locked.Status == domain.PaymentStatusCredited {
		return nil
	}
	if !locked.Status.CanTransition(domain.PaymentStatusCredited) {
		return apperror.ErrConflictingResolution()
	}

	entry := &domain.LedgerEntry{
		ID:            uuid.New(),
		WalletID:      walletID,
		Direction:     domain.DirectionCredit,
		Amount:        p.Amount,
		EntryType:     domain.EntryTypeManualCredit,
		ReferenceType: ledgerRefPayment,
		ReferenceID:   p.ExternalKey(),
	}
	if err := s.walletRepo.Credit(ctx, tx, entry); err != nil {
		if errors.Is(err, ports.ErrDuplicateReference) {
			return apperror.ErrDuplicateLedgerReference()
		}
		return apperror.ErrDatabaseError(err)
	}

	if err := s.paymentRepo.UpdateStatusTx(ctx, tx, p.ID, domain.PaymentStatusCredited); err != nil {
		return apperror.ErrDatabaseError(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return apperror.ErrDatabaseError(err)
	}
	return nil
}
