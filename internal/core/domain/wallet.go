package domain

import (
	"time"

	"github.com/google/uuid"
)

// WalletOwnerType identifies the entity a wallet belongs to.
type WalletOwnerType string

const (
	WalletOwnerVehicle WalletOwnerType = "VEHICLE"
	WalletOwnerSacco   WalletOwnerType = "SACCO"
)

// WalletKind distinguishes the ledger accounts held per entity.
type WalletKind string

const (
	WalletKindCollection WalletKind = "VEHICLE_COLLECTION"
	WalletKindFee        WalletKind = "SACCO_FEE"
	WalletKindLoan       WalletKind = "SACCO_LOAN"
	WalletKindSavings    WalletKind = "SACCO_SAVINGS"
)

// Wallet is one ledger account. Balance is a cached aggregate of the
// wallet's ledger entries (credit positive, debit negative) and is only
// ever mutated by appending an entry inside the same transaction.
type Wallet struct {
	ID          uuid.UUID       `json:"id"`
	OwnerType   WalletOwnerType `json:"owner_type"`
	OwnerID     uuid.UUID       `json:"owner_id"`
	SaccoID     uuid.UUID       `json:"sacco_id"`
	Kind        WalletKind      `json:"kind"`
	Balance     int64           `json:"balance"`      // minor units
	AccountCode string          `json:"account_code"` // virtual account routing alias, checksummed
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// EntryDirection is the sign of a ledger movement.
type EntryDirection string

const (
	DirectionCredit EntryDirection = "CREDIT"
	DirectionDebit  EntryDirection = "DEBIT"
)

// EntryType classifies what caused a ledger movement.
type EntryType string

const (
	EntryTypeC2BCredit    EntryType = "C2B_CREDIT"
	EntryTypeSTKCredit    EntryType = "STK_CREDIT"
	EntryTypeManualCredit EntryType = "MANUAL_CREDIT"
	EntryTypePayoutDebit  EntryType = "PAYOUT_DEBIT"
	EntryTypeManualDebit  EntryType = "MANUAL_DEBIT"
)

// LedgerEntry is one immutable signed money movement. The pair
// (reference_type, reference_id) is unique per wallet: at most one entry
// may ever be produced for a given external event.
type LedgerEntry struct {
	ID            uuid.UUID      `json:"id"`
	WalletID      uuid.UUID      `json:"wallet_id"`
	Direction     EntryDirection `json:"direction"`
	Amount        int64          `json:"amount"` // positive minor units
	EntryType     EntryType      `json:"entry_type"`
	ReferenceType string         `json:"reference_type"`
	ReferenceID   string         `json:"reference_id"`
	CreatedAt     time.Time      `json:"created_at"`
}

// Signed returns the entry's contribution to the wallet balance.
func (e *LedgerEntry) Signed() int64 {
	if e.Direction == DirectionDebit {
		return -e.Amount
	}
	return e.Amount
}

// accountCodeWeights drive the mod-10 check digit over the code's
// alphanumeric body.
var accountCodeWeights = []int{7, 3, 1}

// ValidAccountCode reports whether a virtual account code carries a
// correct trailing check digit. Codes are at least 4 characters: an
// alphanumeric body followed by one decimal check digit.
func ValidAccountCode(code string) bool {
	if len(code) < 4 {
		return false
	}
	body, check := code[:len(code)-1], code[len(code)-1]
	if check < '0' || check > '9' {
		return false
	}
	return AccountCodeCheckDigit(body) == int(check-'0')
}

// AccountCodeCheckDigit computes the weighted mod-10 check digit for an
// account code body. Returns -1 for bodies with characters outside
// [0-9A-Za-z].
func AccountCodeCheckDigit(body string) int {
	sum := 0
	for i, r := range body {
		var v int
		switch {
		case r >= '0' && r <= '9':
			v = int(r - '0')
		case r >= 'A' && r <= 'Z':
			v = int(r-'A') + 10
		case r >= 'a' && r <= 'z':
			v = int(r-'a') + 10
		default:
			return -1
		}
		sum += v * accountCodeWeights[i%len(accountCodeWeights)]
	}
	return sum % 10
}
