package domain

import "time"

// Account is owned exclusively by the bank that holds it.
// Balances are tracked in integer cents, the same representation the
// gateway's upstream payment system uses for Money.
type Account struct {
	ID           string
	Username     string
	Password     string
	BalanceCents int64
}

// LedgerEntryKind distinguishes the two sides of every money movement.
type LedgerEntryKind string

const (
	LedgerDebit  LedgerEntryKind = "debit"
	LedgerCredit LedgerEntryKind = "credit"
)

// LedgerEntryStatus is currently always Completed: the ledger is
// append-only and never records an entry for a transaction that did not
// commit.
type LedgerEntryStatus string

const (
	LedgerStatusCompleted LedgerEntryStatus = "completed"
)

// LedgerEntry is an append-only record of one committed money movement
// against one account. EntryID equals the 2PC transaction id for
// 2PC-driven commits. On the direct ProcessTransaction path it is the
// caller's payment id; no separate entry id is minted.
type LedgerEntry struct {
	EntryID      string
	AccountID    string
	Kind         LedgerEntryKind
	AmountCents  int64
	Counterparty string
	Timestamp    time.Time
	Status       LedgerEntryStatus
}
