package domain

import "time"

// PaymentStatus is the coordinator's terminal (or distinguished
// critical) outcome for one payment id.
type PaymentStatus string

const (
	StatusCompleted PaymentStatus = "completed"
	StatusFailed    PaymentStatus = "failed"
	StatusError     PaymentStatus = "error"
)

// PaymentResult is what the 2PC coordinator returns for a payment id and
// is also the shape cached by the idempotency layer.
//
// Retriable is set by the coordinator itself: true only for transport or
// timeout failures that occurred before any participant committed.
// Success and Error outcomes, and failures from an explicit NO vote or
// validation problem, are always non-retriable. The idempotency cache
// persists an entry only when Retriable is false.
type PaymentResult struct {
	Success             bool
	GlobalTransactionID string
	Status              PaymentStatus
	Message             string
	Retriable           bool
}

// IdempotencyEntry is the gateway-side cache entry keyed by the client's
// payment id. Only terminal (non-retriable) outcomes
// ever reach the store.
type IdempotencyEntry struct {
	PaymentID string
	Result    PaymentResult
	StoredAt  time.Time
}

// PendingPayment is the client-side durable queue record: written
// before the first send attempt, removed on definitive success or when
// a replay returns a non-retriable failure.
type PendingPayment struct {
	PaymentID       string
	ReceiverAccount string
	ReceiverBank    string
	AmountCents     int64
	CreatedAt       time.Time
}

// ProcessedTransaction is the bank-side cache for the direct,
// non-2PC ProcessTransaction path, a distinct concern from the
// prepared-transaction table.
type ProcessedTransaction struct {
	PaymentID string
	Success   bool
	Message   string
}
