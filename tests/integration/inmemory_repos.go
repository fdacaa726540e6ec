package integration

import (
	"context"
	"fmt"
	"sync"
	"time"

	"sacco-ledger/internal/core/domain"
	"sacco-ledger/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// --- Serialized Transactor ---

// lockingTransactor serializes transactions behind one mutex, standing in
// for row-level SELECT FOR UPDATE. Concurrent credit/debit paths observe
// each other's committed state exactly as they would against PostgreSQL.
type lockingTransactor struct {
	mu sync.Mutex
}

func newLockingTransactor() *lockingTransactor {
	return &lockingTransactor{}
}

func (t *lockingTransactor) Begin(ctx context.Context) (pgx.Tx, error) {
	t.mu.Lock()
	return &memTx{release: &t.mu}, nil
}

// memTx is a no-op pgx.Tx that releases the transactor lock on the first
// Commit or Rollback.
type memTx struct {
	release *sync.Mutex
	once    sync.Once
}

func (t *memTx) done() {
	t.once.Do(func() { t.release.Unlock() })
}

func (t *memTx) Begin(ctx context.Context) (pgx.Tx, error) { return t, nil }
func (t *memTx) Commit(ctx context.Context) error          { t.done(); return nil }
func (t *memTx) Rollback(ctx context.Context) error        { t.done(); return nil }
func (t *memTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *memTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (t *memTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (t *memTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *memTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (t *memTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (t *memTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}
func (t *memTx) Conn() *pgx.Conn { return nil }

// --- In-Memory Wallet Repo ---

type inMemoryWalletRepo struct {
	mu      sync.RWMutex
	wallets map[uuid.UUID]*domain.Wallet
	entries []domain.LedgerEntry
	refs    map[string]struct{} // walletID|refType|refID
}

func newInMemoryWalletRepo() *inMemoryWalletRepo {
	return &inMemoryWalletRepo{
		wallets: make(map[uuid.UUID]*domain.Wallet),
		refs:    make(map[string]struct{}),
	}
}

func entryRefKey(walletID uuid.UUID, refType, refID string) string {
	return walletID.String() + "|" + refType + "|" + refID
}

func (r *inMemoryWalletRepo) Create(ctx context.Context, w *domain.Wallet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *w
	r.wallets[w.ID] = &cp
	return nil
}

func (r *inMemoryWalletRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.wallets[id]
	if !ok {
		return nil, nil
	}
	cp := *w
	return &cp, nil
}

func (r *inMemoryWalletRepo) GetByAccountCode(ctx context.Context, code string) (*domain.Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, w := range r.wallets {
		if w.AccountCode == code {
			cp := *w
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *inMemoryWalletRepo) ListBySacco(ctx context.Context, saccoID uuid.UUID) ([]domain.Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.Wallet
	for _, w := range r.wallets {
		if w.SaccoID == saccoID {
			result = append(result, *w)
		}
	}
	return result, nil
}

func (r *inMemoryWalletRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Wallet, error) {
	return r.GetByID(ctx, id)
}

func (r *inMemoryWalletRepo) Credit(ctx context.Context, tx pgx.Tx, entry *domain.LedgerEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.wallets[entry.WalletID]
	if !ok {
		return fmt.Errorf("wallet not found: %s", entry.WalletID)
	}
	key := entryRefKey(entry.WalletID, entry.ReferenceType, entry.ReferenceID)
	if _, dup := r.refs[key]; dup {
		return ports.ErrDuplicateReference
	}
	r.refs[key] = struct{}{}

	cp := *entry
	cp.Direction = domain.DirectionCredit
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}
	r.entries = append(r.entries, cp)
	w.Balance += entry.Amount
	w.UpdatedAt = cp.CreatedAt
	return nil
}

func (r *inMemoryWalletRepo) Debit(ctx context.Context, tx pgx.Tx, entry *domain.LedgerEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.wallets[entry.WalletID]
	if !ok {
		return fmt.Errorf("wallet not found: %s", entry.WalletID)
	}
	key := entryRefKey(entry.WalletID, entry.ReferenceType, entry.ReferenceID)
	if _, dup := r.refs[key]; dup {
		return ports.ErrDuplicateReference
	}
	if w.Balance < entry.Amount {
		return ports.ErrInsufficientBalance
	}
	r.refs[key] = struct{}{}

	cp := *entry
	cp.Direction = domain.DirectionDebit
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}
	r.entries = append(r.entries, cp)
	w.Balance -= entry.Amount
	w.UpdatedAt = cp.CreatedAt
	return nil
}

func (r *inMemoryWalletRepo) EntryExists(ctx context.Context, refType, refID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i := range r.entries {
		if r.entries[i].ReferenceType == refType && r.entries[i].ReferenceID == refID {
			return true, nil
		}
	}
	return false, nil
}

func (r *inMemoryWalletRepo) ListEntries(ctx context.Context, walletID uuid.UUID) ([]domain.LedgerEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.LedgerEntry
	for i := range r.entries {
		if r.entries[i].WalletID == walletID {
			result = append(result, r.entries[i])
		}
	}
	return result, nil
}

// --- In-Memory Payment Repo ---

type inMemoryPaymentRepo struct {
	mu       sync.RWMutex
	payments map[uuid.UUID]*domain.InboundPayment
	byKey    map[string]uuid.UUID // channel|externalKey
}

func newInMemoryPaymentRepo() *inMemoryPaymentRepo {
	return &inMemoryPaymentRepo{
		payments: make(map[uuid.UUID]*domain.InboundPayment),
		byKey:    make(map[string]uuid.UUID),
	}
}

func paymentKey(ch domain.PaymentChannel, key string) string {
	return string(ch) + "|" + key
}

func (r *inMemoryPaymentRepo) Upsert(ctx context.Context, p *domain.InboundPayment) (*domain.InboundPayment, bool, error) {
	key := p.ExternalKey()
	if key == "" {
		return nil, false, fmt.Errorf("upsert payment: empty external key")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.byKey[paymentKey(p.Channel, key)]; ok {
		cp := *r.payments[id]
		return &cp, true, nil
	}

	now := time.Now().UTC()
	cp := *p
	cp.CreatedAt = now
	cp.UpdatedAt = now
	r.payments[cp.ID] = &cp
	r.byKey[paymentKey(p.Channel, key)] = cp.ID
	out := cp
	return &out, false, nil
}

func (r *inMemoryPaymentRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.InboundPayment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.payments[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *inMemoryPaymentRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.InboundPayment, error) {
	return r.GetByID(ctx, id)
}

func (r *inMemoryPaymentRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.PaymentStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[id]
	if !ok {
		return ports.ErrStatusConflict
	}
	// Same guard as the SQL: only legal edges of the transition table.
	if !p.Status.CanTransition(status) {
		return ports.ErrStatusConflict
	}
	now := time.Now().UTC()
	p.Status = status
	p.UpdatedAt = now
	if status == domain.PaymentStatusCredited {
		p.CreditedAt = &now
	}
	return nil
}

func (r *inMemoryPaymentRepo) UpdateStatusTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.PaymentStatus) error {
	return r.UpdateStatus(ctx, id, status)
}

func (r *inMemoryPaymentRepo) SetRisk(ctx context.Context, id uuid.UUID, a domain.RiskAssessment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.payments[id]; ok {
		p.RiskLevel = &a.Level
		p.RiskScore = a.Score
		p.RiskFlags = a.Flags
	}
	return nil
}

func (r *inMemoryPaymentRepo) SetWallet(ctx context.Context, id uuid.UUID, walletID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.payments[id]; ok {
		p.WalletID = &walletID
	}
	return nil
}

func (r *inMemoryPaymentRepo) SetReceipt(ctx context.Context, id uuid.UUID, receipt string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.payments[id]; ok {
		p.ProviderReceipt = &receipt
	}
	return nil
}

func (r *inMemoryPaymentRepo) List(ctx context.Context, params ports.PaymentListParams) ([]domain.InboundPayment, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.InboundPayment
	for _, p := range r.payments {
		if params.Status != nil && p.Status != *params.Status {
			continue
		}
		if params.Channel != nil && p.Channel != *params.Channel {
			continue
		}
		if params.From != nil && p.CreatedAt.Before(*params.From) {
			continue
		}
		if params.To != nil && p.CreatedAt.After(*params.To) {
			continue
		}
		result = append(result, *p)
	}
	total := int64(len(result))

	start := (params.Page - 1) * params.PageSize
	if start >= len(result) {
		return []domain.InboundPayment{}, total, nil
	}
	end := start + params.PageSize
	if end > len(result) {
		end = len(result)
	}
	return result[start:end], total, nil
}

// --- In-Memory Quarantine Repo ---

type inMemoryQuarantineRepo struct {
	mu      sync.RWMutex
	records []*domain.QuarantineRecord
}

func newInMemoryQuarantineRepo() *inMemoryQuarantineRepo {
	return &inMemoryQuarantineRepo{}
}

func (r *inMemoryQuarantineRepo) Create(ctx context.Context, rec *domain.QuarantineRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *rec
	r.records = append(r.records, &cp)
	return nil
}

func (r *inMemoryQuarantineRepo) List(ctx context.Context, resolved *bool) ([]domain.QuarantineRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.QuarantineRecord
	for _, rec := range r.records {
		if resolved != nil && rec.Resolved != *resolved {
			continue
		}
		result = append(result, *rec)
	}
	return result, nil
}

func (r *inMemoryQuarantineRepo) MarkResolved(ctx context.Context, paymentID uuid.UUID, action domain.ResolutionAction, actor string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.records {
		if rec.PaymentID != nil && *rec.PaymentID == paymentID && !rec.Resolved {
			rec.Resolved = true
			a := action
			rec.ResolutionAction = &a
			by := actor
			rec.ResolvedBy = &by
			t := at
			rec.ResolvedAt = &t
		}
	}
	return nil
}

// --- In-Memory Idempotency Repo ---

type inMemoryIdempotencyRepo struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func newInMemoryIdempotencyRepo() *inMemoryIdempotencyRepo {
	return &inMemoryIdempotencyRepo{seen: make(map[string]struct{})}
}

func (r *inMemoryIdempotencyRepo) Ensure(ctx context.Context, kind domain.EventKind, key string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := string(kind) + "|" + key
	if _, ok := r.seen[k]; ok {
		return false, nil
	}
	r.seen[k] = struct{}{}
	return true, nil
}

// --- In-Memory Payout Repo ---

type inMemoryPayoutRepo struct {
	mu           sync.RWMutex
	batches      map[uuid.UUID]*domain.PayoutBatch
	items        map[uuid.UUID]*domain.PayoutItem
	itemOrder    []uuid.UUID
	events       []domain.PayoutEvent
	destinations map[uuid.UUID]*domain.PayoutDestination // by wallet id
}

func newInMemoryPayoutRepo() *inMemoryPayoutRepo {
	return &inMemoryPayoutRepo{
		batches:      make(map[uuid.UUID]*domain.PayoutBatch),
		items:        make(map[uuid.UUID]*domain.PayoutItem),
		destinations: make(map[uuid.UUID]*domain.PayoutDestination),
	}
}

// seedDestination registers a payout destination, standing in for the
// onboarding flow that is out of scope for these tests.
func (r *inMemoryPayoutRepo) seedDestination(d *domain.PayoutDestination) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *d
	r.destinations[d.WalletID] = &cp
}

func (r *inMemoryPayoutRepo) CreateBatch(ctx context.Context, tx pgx.Tx, b *domain.PayoutBatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *b
	r.batches[b.ID] = &cp
	return nil
}

func (r *inMemoryPayoutRepo) CreateItem(ctx context.Context, tx pgx.Tx, item *domain.PayoutItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *item
	r.items[item.ID] = &cp
	r.itemOrder = append(r.itemOrder, item.ID)
	return nil
}

func (r *inMemoryPayoutRepo) GetBatch(ctx context.Context, id uuid.UUID) (*domain.PayoutBatch, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.batches[id]
	if !ok {
		return nil, nil
	}
	cp := *b
	return &cp, nil
}

func (r *inMemoryPayoutRepo) ListBatchesBySacco(ctx context.Context, saccoID uuid.UUID) ([]domain.PayoutBatch, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.PayoutBatch
	for _, b := range r.batches {
		if b.SaccoID == saccoID {
			result = append(result, *b)
		}
	}
	return result, nil
}

func (r *inMemoryPayoutRepo) MarkBatchSubmitted(ctx context.Context, id uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.batches[id]
	if !ok || b.Status != domain.BatchStatusDraft {
		return ports.ErrStatusConflict
	}
	b.Status = domain.BatchStatusSubmitted
	t := at
	b.SubmittedAt = &t
	return nil
}

func (r *inMemoryPayoutRepo) ListItems(ctx context.Context, batchID uuid.UUID) ([]domain.PayoutItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.PayoutItem
	for _, id := range r.itemOrder {
		if it := r.items[id]; it.BatchID == batchID {
			result = append(result, *it)
		}
	}
	return result, nil
}

func (r *inMemoryPayoutRepo) GetItem(ctx context.Context, id uuid.UUID) (*domain.PayoutItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	it, ok := r.items[id]
	if !ok {
		return nil, nil
	}
	cp := *it
	return &cp, nil
}

func (r *inMemoryPayoutRepo) GetItemForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.PayoutItem, error) {
	return r.GetItem(ctx, id)
}

func (r *inMemoryPayoutRepo) FindItemByProviderRef(ctx context.Context, ref string) (*domain.PayoutItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, it := range r.items {
		if it.IdempotencyKey == ref || (it.ConversationID != nil && *it.ConversationID == ref) {
			cp := *it
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *inMemoryPayoutRepo) UpdateItem(ctx context.Context, item *domain.PayoutItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[item.ID]; !ok {
		return fmt.Errorf("payout item not found: %s", item.ID)
	}
	cp := *item
	cp.UpdatedAt = time.Now().UTC()
	r.items[item.ID] = &cp
	return nil
}

func (r *inMemoryPayoutRepo) UpdateItemTx(ctx context.Context, tx pgx.Tx, item *domain.PayoutItem) error {
	return r.UpdateItem(ctx, item)
}

func (r *inMemoryPayoutRepo) ListStuckSent(ctx context.Context, olderThan time.Time) ([]domain.PayoutItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.PayoutItem
	for _, id := range r.itemOrder {
		it := r.items[id]
		if it.Status == domain.ItemStatusSent && it.SentAt != nil && it.SentAt.Before(olderThan) && it.NextAttemptAt == nil {
			result = append(result, *it)
		}
	}
	return result, nil
}

func (r *inMemoryPayoutRepo) ListDueForRetry(ctx context.Context, now time.Time) ([]domain.PayoutItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.PayoutItem
	for _, id := range r.itemOrder {
		it := r.items[id]
		if it.Status != domain.ItemStatusPending && it.Status != domain.ItemStatusSent {
			continue
		}
		if it.NextAttemptAt != nil && !it.NextAttemptAt.After(now) {
			result = append(result, *it)
		}
	}
	return result, nil
}

func (r *inMemoryPayoutRepo) AppendEvent(ctx context.Context, ev *domain.PayoutEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, *ev)
	return nil
}

func (r *inMemoryPayoutRepo) ListEvents(ctx context.Context, batchID uuid.UUID) ([]domain.PayoutEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.PayoutEvent
	for i := range r.events {
		if r.events[i].BatchID == batchID {
			result = append(result, r.events[i])
		}
	}
	return result, nil
}

func (r *inMemoryPayoutRepo) GetDestination(ctx context.Context, walletID uuid.UUID) (*domain.PayoutDestination, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.destinations[walletID]
	if !ok {
		return nil, nil
	}
	cp := *d
	return &cp, nil
}

// --- In-Memory Audit Repo ---

type inMemoryAuditRepo struct {
	mu      sync.Mutex
	entries []domain.AuditLog
}

func newInMemoryAuditRepo() *inMemoryAuditRepo {
	return &inMemoryAuditRepo{}
}

func (r *inMemoryAuditRepo) Create(ctx context.Context, entry *domain.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, *entry)
	return nil
}

// --- Fake Disbursement Provider ---

type fakeProvider struct {
	mu       sync.Mutex
	requests []ports.B2CRequest
	fail     bool
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{}
}

func (p *fakeProvider) SendB2C(ctx context.Context, req ports.B2CRequest) (*ports.B2CAccepted, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return nil, fmt.Errorf("provider unavailable")
	}
	p.requests = append(p.requests, req)
	return &ports.B2CAccepted{ConversationID: "AG-" + req.RequestID}, nil
}

func (p *fakeProvider) sent() []ports.B2CRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]ports.B2CRequest, len(p.requests))
	copy(out, p.requests)
	return out
}

// --- Fake Alerter ---

type fakeAlerter struct {
	mu    sync.Mutex
	codes []string
}

func newFakeAlerter() *fakeAlerter {
	return &fakeAlerter{}
}

func (a *fakeAlerter) Raise(ctx context.Context, code string, detail string, fields map[string]string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.codes = append(a.codes, code)
}
