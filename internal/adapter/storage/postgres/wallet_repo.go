package postgres

import (
	"context"
	"errors"
	"fmt"

	"sacco-ledger/internal/core/domain"
	"sacco-ledger/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// WalletRepo implements ports.WalletRepository.
type WalletRepo struct {
	pool Pool
}

// NewWalletRepo creates a new WalletRepo.
func NewWalletRepo(pool Pool) *WalletRepo {
	return &WalletRepo{pool: pool}
}

const walletColumns = `id, owner_type, owner_id, sacco_id, kind, balance, account_code, created_at, updated_at`

func scanWallet(row pgx.Row) (*domain.Wallet, error) {
	w := &domain.Wallet{}
	err := row.Scan(
		&w.ID, &w.OwnerType, &w.OwnerID, &w.SaccoID, &w.Kind,
		&w.Balance, &w.AccountCode, &w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return w, nil
}

// Create inserts a new wallet.
func (r *WalletRepo) Create(ctx context.Context, w *domain.Wallet) error {
	query := `INSERT INTO wallets (id, owner_type, owner_id, sacco_id, kind, balance, account_code, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.pool.Exec(ctx, query,
		w.ID, w.OwnerType, w.OwnerID, w.SaccoID, w.Kind,
		w.Balance, w.AccountCode, w.CreatedAt, w.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert wallet: %w", err)
	}
	return nil
}

// GetByID fetches a wallet by its UUID (without locking).
func (r *WalletRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE id = $1`

	w, err := scanWallet(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get wallet by id: %w", err)
	}
	return w, nil
}

// GetByAccountCode fetches a wallet by its virtual account code.
func (r *WalletRepo) GetByAccountCode(ctx context.Context, code string) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE account_code = $1`

	w, err := scanWallet(r.pool.QueryRow(ctx, query, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get wallet by account code: %w", err)
	}
	return w, nil
}

// ListBySacco fetches all wallets belonging to one SACCO.
func (r *WalletRepo) ListBySacco(ctx context.Context, saccoID uuid.UUID) ([]domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE sacco_id = $1 ORDER BY kind, created_at`

	rows, err := r.pool.Query(ctx, query, saccoID)
	if err != nil {
		return nil, fmt.Errorf("list wallets by sacco: %w", err)
	}
	defer rows.Close()

	var wallets []domain.Wallet
	for rows.Next() {
		w := domain.Wallet{}
		if err := rows.Scan(
			&w.ID, &w.OwnerType, &w.OwnerID, &w.SaccoID, &w.Kind,
			&w.Balance, &w.AccountCode, &w.CreatedAt, &w.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan wallet: %w", err)
		}
		wallets = append(wallets, w)
	}
	return wallets, rows.Err()
}

// GetByIDForUpdate fetches a wallet with pessimistic locking.
// This MUST be called within a transaction.
func (r *WalletRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE id = $1 FOR UPDATE`

	w, err := scanWallet(tx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get wallet for update: %w", err)
	}
	return w, nil
}

// Credit appends a CREDIT ledger entry and increments the cached balance.
// Both writes happen on the supplied transaction; the unique constraint on
// (wallet_id, reference_type, reference_id) is the double-credit guard.
func (r *WalletRepo) Credit(ctx context.Context, tx pgx.Tx, entry *domain.LedgerEntry) error {
	entry.Direction = domain.DirectionCredit
	if err := r.insertEntry(ctx, tx, entry); err != nil {
		return err
	}

	query := `UPDATE wallets SET balance = balance + $1, updated_at = NOW() WHERE id = $2`
	tag, err := tx.Exec(ctx, query, entry.Amount, entry.WalletID)
	if err != nil {
		return fmt.Errorf("credit wallet balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("wallet not found: %s", entry.WalletID)
	}
	return nil
}

// Debit appends a DEBIT ledger entry and decrements the cached balance.
// The guarded UPDATE runs first so an insufficient balance writes nothing.
func (r *WalletRepo) Debit(ctx context.Context, tx pgx.Tx, entry *domain.LedgerEntry) error {
	entry.Direction = domain.DirectionDebit

	query := `UPDATE wallets SET balance = balance - $1, updated_at = NOW()
		WHERE id = $2 AND balance >= $1`
	tag, err := tx.Exec(ctx, query, entry.Amount, entry.WalletID)
	if err != nil {
		return fmt.Errorf("debit wallet balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ports.ErrInsufficientBalance
	}

	return r.insertEntry(ctx, tx, entry)
}

func (r *WalletRepo) insertEntry(ctx context.Context, tx pgx.Tx, entry *domain.LedgerEntry) error {
	query := `INSERT INTO ledger_entries (id, wallet_id, direction, amount, entry_type, reference_type, reference_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := tx.Exec(ctx, query,
		entry.ID, entry.WalletID, entry.Direction, entry.Amount,
		entry.EntryType, entry.ReferenceType, entry.ReferenceID, entry.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ports.ErrDuplicateReference
		}
		return fmt.Errorf("insert ledger entry: %w", err)
	}
	return nil
}

// EntryExists reports whether any ledger entry carries this reference.
func (r *WalletRepo) EntryExists(ctx context.Context, refType, refID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM ledger_entries WHERE reference_type = $1 AND reference_id = $2)`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, refType, refID).Scan(&exists); err != nil {
		return false, fmt.Errorf("ledger entry exists: %w", err)
	}
	return exists, nil
}

// ListEntries fetches a wallet's ledger entries in commit order.
func (r *WalletRepo) ListEntries(ctx context.Context, walletID uuid.UUID) ([]domain.LedgerEntry, error) {
	query := `SELECT id, wallet_id, direction, amount, entry_type, reference_type, reference_id, created_at
		FROM ledger_entries WHERE wallet_id = $1 ORDER BY created_at`

	rows, err := r.pool.Query(ctx, query, walletID)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.LedgerEntry
	for rows.Next() {
		e := domain.LedgerEntry{}
		if err := rows.Scan(
			&e.ID, &e.WalletID, &e.Direction, &e.Amount,
			&e.EntryType, &e.ReferenceType, &e.ReferenceID, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
