package domain

import "time"

// Vote is the bank's answer to a Prepare call.
type Vote string

const (
	VoteReady    Vote = "ready"
	VoteNotReady Vote = "not-ready"
)

// PreparedTransaction is the bank-side record that exists only between a
// successful Prepare and the matching Commit or Abort. A second
// Prepare for the same TransactionID must return the original vote
// verbatim; Prepare is idempotent.
type PreparedTransaction struct {
	TransactionID string
	AccountID     string
	Username      string
	Kind          LedgerEntryKind
	AmountCents   int64
	Counterparty  string
	PreparedAt    time.Time
	Vote          Vote
	Message       string
}
