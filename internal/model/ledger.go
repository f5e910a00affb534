package model

import "time"

// LedgerEntry is one append-only line in an item's stock ledger. Quantity is
// always a positive magnitude; the direction follows from TransactionType,
// and BalanceAfter holds the on-hand quantity once the entry was applied.
type LedgerEntry struct {
	ID              int64     `json:"id" db:"id"`
	ItemID          int64     `json:"item_id" db:"item_id"`
	TransactionType string    `json:"transaction_type" db:"transaction_type"`
	Quantity        int       `json:"quantity" db:"quantity"`
	BalanceAfter    int       `json:"balance_after" db:"balance_after"`
	TransactionDate time.Time `json:"transaction_date" db:"transaction_date"`
	IssuanceID      *int64    `json:"issuance_id,omitempty" db:"issuance_id"`
}

// Ledger transaction types.
const (
	TransactionIssue   = "issue"
	TransactionReceive = "receive"
	TransactionAdjust  = "adjust"
)

// ValidTransactionType reports whether t is one of the known ledger types.
func ValidTransactionType(t string) bool {
	switch t {
	case TransactionIssue, TransactionReceive, TransactionAdjust:
		return true
	}
	return false
}
