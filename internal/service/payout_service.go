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
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// ledgerRefPayout is the reference_type used for payout debit entries. The
// reference_id is the item's idempotency key, so a result callback can only
// ever debit once.
const ledgerRefPayout = "PAYOUT_ITEM"

// retryDelays is the backoff ladder for provider timeouts and transport
// failures, indexed by completed attempts.
var retryDelays = []time.Duration{15 * time.Second, 2 * time.Minute, 10 * time.Minute}

// PayoutConfig carries the payout state machine's tunables.
type PayoutConfig struct {
	// StuckThreshold is how long an item may sit in SENT with no callback
	// before the sweeper treats it as timed out.
	StuckThreshold time.Duration
	// MaxAttempts bounds provider attempts per item.
	MaxAttempts int
}

// PayoutService implements ports.PayoutService.
type PayoutService struct {
	cfg        PayoutConfig
	transactor ports.DBTransactor
	payoutRepo ports.PayoutRepository
	walletRepo ports.WalletRepository
	idemRepo   ports.IdempotencyRepository
	provider   ports.DisbursementProvider
	alerter    ports.Alerter
	audit      ports.AuditService
	log        zerolog.Logger
}

// NewPayoutService creates a new PayoutService.
func NewPayoutService(
	cfg PayoutConfig,
	transactor ports.DBTransactor,
	payoutRepo ports.PayoutRepository,
	walletRepo ports.WalletRepository,
	idemRepo ports.IdempotencyRepository,
	provider ports.DisbursementProvider,
	alerter ports.Alerter,
	audit ports.AuditService,
	log zerolog.Logger,
) *PayoutService {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	return &PayoutService{
		cfg:        cfg,
		transactor: transactor,
		payoutRepo: payoutRepo,
		walletRepo: walletRepo,
		idemRepo:   idemRepo,
		provider:   provider,
		alerter:    alerter,
		audit:      audit,
		log:        log,
	}
}

// BuildBatch snapshots the SACCO's positive wallet balances into a DRAFT
// batch. Wallets without a usable destination become BLOCKED items so the
// money is visible in the run instead of silently skipped.
func (s *PayoutService) BuildBatch(ctx context.Context, req ports.BuildBatchRequest) (*ports.BatchDetail, error) {
	wallets, err := s.walletRepo.ListBySacco(ctx, req.SaccoID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}

	var candidates []domain.Wallet
	for _, w := range wallets {
		if w.Balance > 0 {
			candidates = append(candidates, w)
		}
	}
	if len(candidates) == 0 {
		return nil, apperror.ErrNothingToDisburse()
	}

	now := time.Now().UTC()
	batch := &domain.PayoutBatch{
		ID:          uuid.New(),
		SaccoID:     req.SaccoID,
		PeriodStart: req.PeriodStart,
		PeriodEnd:   req.PeriodEnd,
		Status:      domain.BatchStatusDraft,
		CreatedBy:   req.Actor,
		CreatedAt:   now,
	}

	items := make([]domain.PayoutItem, 0, len(candidates))
	for _, w := range candidates {
		item := domain.PayoutItem{
			ID:             uuid.New(),
			BatchID:        batch.ID,
			WalletID:       w.ID,
			Amount:         w.Balance,
			IdempotencyKey: fmt.Sprintf("po-%s", uuid.New()),
			Status:         domain.ItemStatusPending,
			CreatedAt:      now,
			UpdatedAt:      now,
		}

		dest, err := s.payoutRepo.GetDestination(ctx, w.ID)
		switch {
		case err != nil:
			return nil, apperror.ErrDatabaseError(err)
		case dest == nil:
			item.Status = domain.ItemStatusBlocked
			item.Reason = strptr(domain.BlockReasonNoDestination)
		case !domain.SupportedDestination(dest.Type):
			item.DestinationType = dest.Type
			item.DestinationRef = dest.Ref
			item.Status = domain.ItemStatusBlocked
			item.Reason = strptr(domain.BlockReasonUnsupportedType)
		case !dest.Verified:
			item.DestinationType = dest.Type
			item.DestinationRef = dest.Ref
			item.Status = domain.ItemStatusBlocked
			item.Reason = strptr(domain.BlockReasonUnverifiedDestination)
		default:
			item.DestinationType = dest.Type
			item.DestinationRef = dest.Ref
			batch.TotalAmount += item.Amount
		}
		items = append(items, item)
	}

	tx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}
	defer tx.Rollback(ctx)

	if err := s.payoutRepo.CreateBatch(ctx, tx, batch); err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}
	for i := range items {
		if err := s.payoutRepo.CreateItem(ctx, tx, &items[i]); err != nil {
			return nil, apperror.ErrDatabaseError(err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}

	s.appendEvent(ctx, batch.ID, nil, domain.EventBatchCreated,
		fmt.Sprintf("items=%d total=%d", len(items), batch.TotalAmount))
	s.audit.Record(ctx, req.Actor, domain.AuditActionBuildBatch, "payout_batch", batch.ID.String(),
		fmt.Sprintf("sacco_id=%s items=%d", req.SaccoID, len(items)), "")

	s.log.Info().
		Str("batch_id", batch.ID.String()).
		Str("sacco_id", req.SaccoID.String()).
		Int("items", len(items)).
		Int64("total_amount", batch.TotalAmount).
		Msg("payout batch built")

	return &ports.BatchDetail{Batch: *batch, Status: domain.BatchStatusDraft, Items: items}, nil
}

// SubmitBatch moves a DRAFT batch to SUBMITTED and dispatches its PENDING
// items to the provider.
func (s *PayoutService) SubmitBatch(ctx context.Context, batchID uuid.UUID, actor string) (*ports.BatchDetail, error) {
	batch, err := s.payoutRepo.GetBatch(ctx, batchID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}
	if batch == nil {
		return nil, apperror.ErrNotFound("Batch")
	}

	items, err := s.payoutRepo.ListItems(ctx, batchID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}
	pending := 0
	for i := range items {
		if items[i].Status == domain.ItemStatusPending {
			pending++
		}
	}
	if pending == 0 {
		return nil, apperror.ErrBatchNotSubmittable()
	}

	now := time.Now().UTC()
	if err := s.payoutRepo.MarkBatchSubmitted(ctx, batchID, now); err != nil {
		if errors.Is(err, ports.ErrStatusConflict) {
			return nil, apperror.ErrBatchNotSubmittable()
		}
		return nil, apperror.ErrDatabaseError(err)
	}
	batch.Status = domain.BatchStatusSubmitted
	batch.SubmittedAt = &now

	s.appendEvent(ctx, batchID, nil, domain.EventBatchSubmitted, fmt.Sprintf("pending=%d", pending))
	s.audit.Record(ctx, actor, domain.AuditActionSubmitBatch, "payout_batch", batchID.String(),
		fmt.Sprintf("pending=%d", pending), "")

	for i := range items {
		if items[i].Status != domain.ItemStatusPending {
			continue
		}
		s.send(ctx, &items[i])
	}

	return s.GetBatchDetail(ctx, batchID)
}

// GetBatchDetail returns the batch with its derived status, items and
// audit trail.
func (s *PayoutService) GetBatchDetail(ctx context.Context, batchID uuid.UUID) (*ports.BatchDetail, error) {
	batch, err := s.payoutRepo.GetBatch(ctx, batchID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}
	if batch == nil {
		return nil, apperror.ErrNotFound("Batch")
	}
	items, err := s.payoutRepo.ListItems(ctx, batchID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}
	events, err := s.payoutRepo.ListEvents(ctx, batchID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}
	return &ports.BatchDetail{
		Batch:  *batch,
		Status: domain.DeriveBatchStatus(batch, items),
		Items:  items,
		Events: events,
	}, nil
}

// send dispatches one item to the provider and records the outcome. The
// request id is the item's idempotency key, stable across retries, so the
// provider can dedup re-sends on its side.
func (s *PayoutService) send(ctx context.Context, item *domain.PayoutItem) {
	now := time.Now().UTC()
	item.AttemptCount++
	item.NextAttemptAt = nil

	acc, err := s.provider.SendB2C(ctx, ports.B2CRequest{
		RequestID: item.IdempotencyKey,
		Amount:    item.Amount,
		MSISDN:    item.DestinationRef,
		Remarks:   fmt.Sprintf("SACCO payout %s", item.BatchID),
	})
	if err != nil {
		s.log.Warn().Err(err).
			Str("item_id", item.ID.String()).
			Int("attempt", item.AttemptCount).
			Msg("disbursement dispatch failed")
		s.handleSendFailure(ctx, item, now)
		return
	}

	item.Status = domain.ItemStatusSent
	item.SentAt = &now
	item.UpdatedAt = now
	if acc.ConversationID != "" {
		item.ConversationID = &acc.ConversationID
	}
	if err := s.payoutRepo.UpdateItem(ctx, item); err != nil {
		s.log.Error().Err(err).Str("item_id", item.ID.String()).Msg("failed to persist SENT item")
		return
	}
	s.appendEvent(ctx, item.BatchID, &item.ID, domain.EventItemSent,
		fmt.Sprintf("attempt=%d", item.AttemptCount))
}

// handleSendFailure schedules a bounded retry or finalizes the item as
// FAILED once attempts are exhausted.
func (s *PayoutService) handleSendFailure(ctx context.Context, item *domain.PayoutItem, now time.Time) {
	item.UpdatedAt = now

	if item.AttemptCount >= s.cfg.MaxAttempts {
		item.Status = domain.ItemStatusFailed
		item.Reason = strptr(domain.FailReasonProviderUnavailable)
		item.CompletedAt = &now
		if err := s.payoutRepo.UpdateItem(ctx, item); err != nil {
			s.log.Error().Err(err).Str("item_id", item.ID.String()).Msg("failed to persist FAILED item")
			return
		}
		s.appendEvent(ctx, item.BatchID, &item.ID, domain.EventItemFailed, domain.FailReasonProviderUnavailable)
		s.alerter.Raise(ctx, AlertRetriesExhausted, "disbursement attempts exhausted", map[string]string{
			"item_id":  item.ID.String(),
			"batch_id": item.BatchID.String(),
		})
		return
	}

	next := now.Add(delayForAttempt(item.AttemptCount))
	item.NextAttemptAt = &next
	if err := s.payoutRepo.UpdateItem(ctx, item); err != nil {
		s.log.Error().Err(err).Str("item_id", item.ID.String()).Msg("failed to persist retry schedule")
		return
	}
	s.appendEvent(ctx, item.BatchID, &item.ID, domain.EventItemRetry,
		fmt.Sprintf("attempt=%d next=%s", item.AttemptCount, next.Format(time.RFC3339)))
}

func delayForAttempt(attempt int) time.Duration {
	idx := attempt - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(retryDelays) {
		idx = len(retryDelays) - 1
	}
	return retryDelays[idx]
}

// HandleResult reconciles a provider result callback. Success debits the
// wallet and confirms the item in one transaction; the ledger's unique
// reference constraint makes the debit exactly-once under replays.
func (s *PayoutService) HandleResult(ctx context.Context, cb ports.ProviderResult) error {
	ref := cb.RequestID
	if ref == "" {
		ref = cb.ConversationID
	}
	if ref == "" {
		return fmt.Errorf("result callback without request or conversation id")
	}

	if _, err := s.idemRepo.Ensure(ctx, domain.EventKindB2CResult, ref); err != nil {
		return fmt.Errorf("idempotency guard: %w", err)
	}

	item, err := s.payoutRepo.FindItemByProviderRef(ctx, ref)
	if err != nil {
		return fmt.Errorf("find payout item: %w", err)
	}
	if item == nil {
		s.log.Error().Str("ref", ref).Msg("result callback for unknown payout item")
		return nil
	}
	if item.Status.IsTerminal() {
		s.log.Debug().Str("item_id", item.ID.String()).Str("status", string(item.Status)).
			Msg("replayed result for settled item")
		return nil
	}

	if !cb.Success {
		return s.failItem(ctx, item, domain.FailReasonProviderRejected,
			fmt.Sprintf("code=%d desc=%s", cb.ResultCode, cb.ResultDesc))
	}
	return s.confirmItem(ctx, item, cb)
}

// confirmItem locks the item, debits the wallet and marks the item
// CONFIRMED, atomically.
func (s *PayoutService) confirmItem(ctx context.Context, item *domain.PayoutItem, cb ports.ProviderResult) error {
	tx, err := s.transactor.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin confirm tx: %w", err)
	}
	defer tx.Rollback(ctx)

	locked, err := s.payoutRepo.GetItemForUpdate(ctx, tx, item.ID)
	if err != nil {
		return fmt.Errorf("lock payout item: %w", err)
	}
	if locked == nil {
		return fmt.Errorf("payout item vanished under lock: %s", item.ID)
	}
	if !locked.Status.CanTransition(domain.ItemStatusConfirmed) {
		s.log.Debug().Str("item_id", item.ID.String()).Str("status", string(locked.Status)).
			Msg("confirm skipped, item moved concurrently")
		return nil
	}

	entry := &domain.LedgerEntry{
		ID:            uuid.New(),
		WalletID:      locked.WalletID,
		Direction:     domain.DirectionDebit,
		Amount:        locked.Amount,
		EntryType:     domain.EntryTypePayoutDebit,
		ReferenceType: ledgerRefPayout,
		ReferenceID:   locked.IdempotencyKey,
	}
	err = s.walletRepo.Debit(ctx, tx, entry)
	switch {
	case errors.Is(err, ports.ErrInsufficientBalance):
		tx.Rollback(ctx)
		s.alerter.Raise(ctx, AlertInsufficientAtConfirm, "wallet balance below confirmed payout", map[string]string{
			"item_id":   locked.ID.String(),
			"wallet_id": locked.WalletID.String(),
		})
		return s.failItem(ctx, locked, domain.FailReasonInsufficientAtConfirm, "")
	case errors.Is(err, ports.ErrDuplicateReference):
		// The debit already landed on an earlier attempt whose status
		// update never committed. Confirm without debiting again.
		tx.Rollback(ctx)
		return s.markConfirmed(ctx, locked, cb, nil)
	case err != nil:
		return fmt.Errorf("debit wallet: %w", err)
	}

	return s.markConfirmed(ctx, locked, cb, tx)
}

// markConfirmed finalizes the item. With a non-nil tx the update commits
// together with the debit.
func (s *PayoutService) markConfirmed(ctx context.Context, item *domain.PayoutItem, cb ports.ProviderResult, tx pgx.Tx) error {
	now := time.Now().UTC()
	item.Status = domain.ItemStatusConfirmed
	item.CompletedAt = &now
	item.UpdatedAt = now
	item.NextAttemptAt = nil
	if cb.Receipt != "" {
		item.ProviderReceipt = &cb.Receipt
	}
	if cb.ConversationID != "" && item.ConversationID == nil {
		item.ConversationID = &cb.ConversationID
	}

	if tx != nil {
		if err := s.payoutRepo.UpdateItemTx(ctx, tx, item); err != nil {
			return fmt.Errorf("confirm payout item: %w", err)
		}
		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit confirm tx: %w", err)
		}
	} else {
		if err := s.payoutRepo.UpdateItem(ctx, item); err != nil {
			return fmt.Errorf("confirm payout item: %w", err)
		}
	}

	s.appendEvent(ctx, item.BatchID, &item.ID, domain.EventItemConfirmed, "")
	s.log.Info().
		Str("item_id", item.ID.String()).
		Str("wallet_id", item.WalletID.String()).
		Int64("amount", item.Amount).
		Msg("payout confirmed")
	return nil
}

// failItem finalizes the item as FAILED with a reason.
func (s *PayoutService) failItem(ctx context.Context, item *domain.PayoutItem, reason, detail string) error {
	now := time.Now().UTC()
	item.Status = domain.ItemStatusFailed
	item.Reason = &reason
	item.CompletedAt = &now
	item.UpdatedAt = now
	item.NextAttemptAt = nil
	if err := s.payoutRepo.UpdateItem(ctx, item); err != nil {
		return fmt.Errorf("fail payout item: %w", err)
	}
	msg := reason
	if detail != "" {
		msg = reason + " " + detail
	}
	s.appendEvent(ctx, item.BatchID, &item.ID, domain.EventItemFailed, msg)
	s.log.Warn().
		Str("item_id", item.ID.String()).
		Str("reason", reason).
		Msg("payout failed")
	return nil
}

// HandleTimeout schedules a bounded retry for a SENT item after the
// provider's queue timeout callback. Past the attempt bound the item stays
// SENT and an alert fires: money may have moved, only reconciliation or a
// late result callback can settle it.
func (s *PayoutService) HandleTimeout(ctx context.Context, cb ports.ProviderTimeout) error {
	ref := cb.RequestID
	if ref == "" {
		ref = cb.ConversationID
	}
	if ref == "" {
		return fmt.Errorf("timeout callback without request or conversation id")
	}

	if _, err := s.idemRepo.Ensure(ctx, domain.EventKindB2CTimeout, ref); err != nil {
		return fmt.Errorf("idempotency guard: %w", err)
	}

	item, err := s.payoutRepo.FindItemByProviderRef(ctx, ref)
	if err != nil {
		return fmt.Errorf("find payout item: %w", err)
	}
	if item == nil {
		s.log.Error().Str("ref", ref).Msg("timeout callback for unknown payout item")
		return nil
	}
	return s.scheduleTimeoutRetry(ctx, item)
}

func (s *PayoutService) scheduleTimeoutRetry(ctx context.Context, item *domain.PayoutItem) error {
	if item.Status != domain.ItemStatusSent {
		s.log.Debug().Str("item_id", item.ID.String()).Str("status", string(item.Status)).
			Msg("timeout ignored, item not in flight")
		return nil
	}

	now := time.Now().UTC()
	if item.AttemptCount >= s.cfg.MaxAttempts {
		// Do not fail the item: the provider may have moved the money.
		s.appendEvent(ctx, item.BatchID, &item.ID, domain.EventItemTimeout,
			fmt.Sprintf("attempts exhausted at %d", item.AttemptCount))
		s.alerter.Raise(ctx, AlertRetriesExhausted, "payout stuck in SENT after timeout retries", map[string]string{
			"item_id":  item.ID.String(),
			"batch_id": item.BatchID.String(),
		})
		return nil
	}

	next := now.Add(delayForAttempt(item.AttemptCount))
	item.NextAttemptAt = &next
	item.UpdatedAt = now
	if err := s.payoutRepo.UpdateItem(ctx, item); err != nil {
		return fmt.Errorf("schedule timeout retry: %w", err)
	}
	s.appendEvent(ctx, item.BatchID, &item.ID, domain.EventItemTimeout,
		fmt.Sprintf("retry scheduled for %s", next.Format(time.RFC3339)))
	return nil
}

// SweepStuck treats SENT items older than the threshold with no scheduled
// retry as timed out.
func (s *PayoutService) SweepStuck(ctx context.Context) error {
	cutoff := time.Now().UTC().Add(-s.cfg.StuckThreshold)
	items, err := s.payoutRepo.ListStuckSent(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("list stuck items: %w", err)
	}
	for i := range items {
		if err := s.scheduleTimeoutRetry(ctx, &items[i]); err != nil {
			s.log.Error().Err(err).Str("item_id", items[i].ID.String()).Msg("stuck sweep failed for item")
		}
	}
	return nil
}

// RetryDue re-dispatches items whose scheduled retry time has passed.
func (s *PayoutService) RetryDue(ctx context.Context) error {
	items, err := s.payoutRepo.ListDueForRetry(ctx, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("list due retries: %w", err)
	}
	for i := range items {
		s.send(ctx, &items[i])
	}
	return nil
}

// RetryItem forces an immediate re-dispatch of a FAILED or SENT item.
// FAILED is terminal for callbacks but an operator may resurrect it once
// the underlying condition (provider outage, balance shortfall) clears.
func (s *PayoutService) RetryItem(ctx context.Context, itemID uuid.UUID, actor string) error {
	item, err := s.payoutRepo.GetItem(ctx, itemID)
	if err != nil {
		return apperror.ErrDatabaseError(err)
	}
	if item == nil {
		return apperror.ErrNotFound("Payout item")
	}

	switch item.Status {
	case domain.ItemStatusFailed:
		item.Status = domain.ItemStatusPending
		item.Reason = nil
		item.CompletedAt = nil
	case domain.ItemStatusSent:
		// Re-send with the same request id; the provider dedups.
	default:
		return apperror.ErrItemNotRetryable()
	}

	item.UpdatedAt = time.Now().UTC()
	if err := s.payoutRepo.UpdateItem(ctx, item); err != nil {
		return apperror.ErrDatabaseError(err)
	}
	s.appendEvent(ctx, item.BatchID, &item.ID, domain.EventItemRetry, "manual retry")
	s.audit.Record(ctx, actor, domain.AuditActionRetryItem, "payout_item", item.ID.String(), "", "")

	s.send(ctx, item)
	return nil
}

// CancelItem cancels a PENDING or BLOCKED item.
func (s *PayoutService) CancelItem(ctx context.Context, itemID uuid.UUID, reason, actor string) error {
	item, err := s.payoutRepo.GetItem(ctx, itemID)
	if err != nil {
		return apperror.ErrDatabaseError(err)
	}
	if item == nil {
		return apperror.ErrNotFound("Payout item")
	}
	if !item.Status.CanTransition(domain.ItemStatusCancelled) {
		return apperror.ErrItemNotCancellable()
	}

	now := time.Now().UTC()
	item.Status = domain.ItemStatusCancelled
	if reason != "" {
		item.Reason = &reason
	}
	item.CompletedAt = &now
	item.UpdatedAt = now
	if err := s.payoutRepo.UpdateItem(ctx, item); err != nil {
		return apperror.ErrDatabaseError(err)
	}

	s.appendEvent(ctx, item.BatchID, &item.ID, domain.EventItemCancelled, reason)
	s.audit.Record(ctx, actor, domain.AuditActionCancelItem, "payout_item", item.ID.String(), reason, "")
	return nil
}

// appendEvent writes one audit trail entry. Trail failures are logged and
// swallowed; the trail is advisory, the item row is the record.
func (s *PayoutService) appendEvent(ctx context.Context, batchID uuid.UUID, itemID *uuid.UUID, typ domain.PayoutEventType, detail string) {
	ev := &domain.PayoutEvent{
		ID:        uuid.New(),
		BatchID:   batchID,
		ItemID:    itemID,
		Type:      typ,
		Detail:    detail,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.payoutRepo.AppendEvent(ctx, ev); err != nil {
		s.log.Warn().Err(err).Str("batch_id", batchID.String()).Str("type", string(typ)).
			Msg("failed to append payout event")
	}
}

func strptr(s string) *string { return &s }
