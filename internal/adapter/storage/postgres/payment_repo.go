package postgres

import (
	"context"
	"errors"
	"fmt"

	"sacco-ledger/internal/core/domain"
	"sacco-ledger/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PaymentRepo implements ports.PaymentRepository.
type PaymentRepo struct {
	pool Pool
}

// NewPaymentRepo creates a new PaymentRepo.
func NewPaymentRepo(pool Pool) *PaymentRepo {
	return &PaymentRepo{pool: pool}
}

const paymentColumns = `id, channel, provider_receipt, checkout_id, amount, sender_msisdn, paybill,
		account_ref, status, risk_level, risk_score, risk_flags, wallet_id, raw_payload,
		created_at, updated_at, credited_at`

func scanPayment(row pgx.Row) (*domain.InboundPayment, error) {
	p := &domain.InboundPayment{}
	err := row.Scan(
		&p.ID, &p.Channel, &p.ProviderReceipt, &p.CheckoutID, &p.Amount,
		&p.SenderMSISDN, &p.Paybill, &p.AccountRef, &p.Status,
		&p.RiskLevel, &p.RiskScore, &p.RiskFlags, &p.WalletID, &p.RawPayload,
		&p.CreatedAt, &p.UpdatedAt, &p.CreditedAt,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Upsert inserts the payment keyed by (channel, external key), or returns
// the existing row when a provider retry already created one. The unique
// index decides the race; there is no check-then-insert window.
func (r *PaymentRepo) Upsert(ctx context.Context, p *domain.InboundPayment) (*domain.InboundPayment, bool, error) {
	key := p.ExternalKey()
	if key == "" {
		return nil, false, fmt.Errorf("upsert payment: empty external key")
	}

	insert := `INSERT INTO inbound_payments
		(id, channel, external_key, provider_receipt, checkout_id, amount, sender_msisdn, paybill,
		 account_ref, status, risk_score, raw_payload, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (channel, external_key) DO NOTHING
		RETURNING ` + paymentColumns

	row, err := scanPayment(r.pool.QueryRow(ctx, insert,
		p.ID, p.Channel, key, p.ProviderReceipt, p.CheckoutID, p.Amount,
		p.SenderMSISDN, p.Paybill, p.AccountRef, p.Status, p.RiskScore,
		p.RawPayload, p.CreatedAt, p.UpdatedAt,
	))
	if err == nil {
		return row, false, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fmt.Errorf("upsert payment: %w", err)
	}

	// Conflict: a row for this delivery already exists.
	existing, err := scanPayment(r.pool.QueryRow(ctx,
		`SELECT `+paymentColumns+` FROM inbound_payments WHERE channel = $1 AND external_key = $2`,
		p.Channel, key,
	))
	if err != nil {
		return nil, false, fmt.Errorf("fetch existing payment: %w", err)
	}
	return existing, true, nil
}

// GetByID fetches a payment by id.
func (r *PaymentRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.InboundPayment, error) {
	p, err := scanPayment(r.pool.QueryRow(ctx,
		`SELECT `+paymentColumns+` FROM inbound_payments WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get payment by id: %w", err)
	}
	return p, nil
}

// GetByIDForUpdate locks the payment row. MUST be called within a transaction.
func (r *PaymentRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.InboundPayment, error) {
	p, err := scanPayment(tx.QueryRow(ctx,
		`SELECT `+paymentColumns+` FROM inbound_payments WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get payment for update: %w", err)
	}
	return p, nil
}

// UpdateStatus sets the payment status outside any caller transaction.
func (r *PaymentRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.PaymentStatus) error {
	return r.updateStatus(ctx, r.pool, id, status)
}

// UpdateStatusTx sets the payment status on the supplied transaction.
func (r *PaymentRepo) UpdateStatusTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.PaymentStatus) error {
	return r.updateStatus(ctx, tx, id, status)
}

// execer is satisfied by both Pool and pgx.Tx.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// updateStatus flips the status, but only along a legal edge of the domain
// transition table. Zero rows means the row is gone or its current status
// does not permit the move; either way the caller's view was stale.
func (r *PaymentRepo) updateStatus(ctx context.Context, db execer, id uuid.UUID, status domain.PaymentStatus) error {
	sources := domain.TransitionSources(status)
	from := make([]string, len(sources))
	for i, s := range sources {
		from[i] = string(s)
	}

	query := `UPDATE inbound_payments SET status = $1, updated_at = NOW(),
		credited_at = CASE WHEN $1 = 'CREDITED' THEN NOW() ELSE credited_at END
		WHERE id = $2 AND status = ANY($3)`

	tag, err := db.Exec(ctx, query, status, id, from)
	if err != nil {
		return fmt.Errorf("update payment status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ports.ErrStatusConflict
	}
	return nil
}

// SetRisk persists the risk gate's assessment. Safe to call repeatedly.
func (r *PaymentRepo) SetRisk(ctx context.Context, id uuid.UUID, a domain.RiskAssessment) error {
	query := `UPDATE inbound_payments SET risk_level = $1, risk_score = $2, risk_flags = $3, updated_at = NOW()
		WHERE id = $4`

	_, err := r.pool.Exec(ctx, query, a.Level, a.Score, a.Flags, id)
	if err != nil {
		return fmt.Errorf("set payment risk: %w", err)
	}
	return nil
}

// SetWallet records the resolved target wallet.
func (r *PaymentRepo) SetWallet(ctx context.Context, id uuid.UUID, walletID uuid.UUID) error {
	query := `UPDATE inbound_payments SET wallet_id = $1, updated_at = NOW() WHERE id = $2`

	_, err := r.pool.Exec(ctx, query, walletID, id)
	if err != nil {
		return fmt.Errorf("set payment wallet: %w", err)
	}
	return nil
}

// SetReceipt backfills the provider receipt on STK payments.
func (r *PaymentRepo) SetReceipt(ctx context.Context, id uuid.UUID, receipt string) error {
	query := `UPDATE inbound_payments SET provider_receipt = $1, updated_at = NOW() WHERE id = $2`

	_, err := r.pool.Exec(ctx, query, receipt, id)
	if err != nil {
		return fmt.Errorf("set payment receipt: %w", err)
	}
	return nil
}

// List fetches payments matching the filters, newest first, with a total count.
func (r *PaymentRepo) List(ctx context.Context, params ports.PaymentListParams) ([]domain.InboundPayment, int64, error) {
	where := ` WHERE 1=1`
	args := []any{}
	n := 0

	if params.Status != nil {
		n++
		where += fmt.Sprintf(" AND status = $%d", n)
		args = append(args, *params.Status)
	}
	if params.Channel != nil {
		n++
		where += fmt.Sprintf(" AND channel = $%d", n)
		args = append(args, *params.Channel)
	}
	if params.From != nil {
		n++
		where += fmt.Sprintf(" AND created_at >= $%d", n)
		args = append(args, *params.From)
	}
	if params.To != nil {
		n++
		where += fmt.Sprintf(" AND created_at < $%d", n)
		args = append(args, *params.To)
	}

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM inbound_payments`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count payments: %w", err)
	}

	page := params.Page
	if page < 1 {
		page = 1
	}
	size := params.PageSize
	if size < 1 {
		size = 50
	}
	query := `SELECT ` + paymentColumns + ` FROM inbound_payments` + where +
		fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, n+1, n+2)
	args = append(args, size, (page-1)*size)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	var payments []domain.InboundPayment
	for rows.Next() {
		p := domain.InboundPayment{}
		if err := rows.Scan(
			&p.ID, &p.Channel, &p.ProviderReceipt, &p.CheckoutID, &p.Amount,
			&p.SenderMSISDN, &p.Paybill, &p.AccountRef, &p.Status,
			&p.RiskLevel, &p.RiskScore, &p.RiskFlags, &p.WalletID, &p.RawPayload,
			&p.CreatedAt, &p.UpdatedAt, &p.CreditedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("scan payment: %w", err)
		}
		payments = append(payments, p)
	}
	return payments, total, rows.Err()
}
