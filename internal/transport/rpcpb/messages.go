package rpcpb

import "time"

// ---- Bank-facing messages (gateway -> bank) ----

type VerifyCredentialsRequest struct {
	Username string
	Password string
}

type VerifyCredentialsResponse struct {
	Valid     bool
	AccountID string
	Message   string
}

type GetBalanceRequest struct {
	AccountID string
}

type GetBalanceResponse struct {
	Success      bool
	BalanceCents int64
	Message      string
}

type TransactionRecord struct {
	EntryID      string
	Kind         string
	AmountCents  int64
	Counterparty string
	Timestamp    time.Time
	Status       string
}

type GetTransactionHistoryRequest struct {
	AccountID string
	Limit     int32
}

type GetTransactionHistoryResponse struct {
	Success      bool
	Transactions []TransactionRecord
	Message      string
}

type ProcessTransactionRequest struct {
	AccountID    string
	Kind         string
	AmountCents  int64
	Counterparty string
	PaymentID    string
}

type ProcessTransactionResponse struct {
	Success bool
	Message string
}

type PrepareTransactionRequest struct {
	TransactionID string
	AccountID     string
	Kind          string
	AmountCents   int64
	Counterparty  string
}

type PrepareTransactionResponse struct {
	Ready   bool
	Message string
}

type CommitTransactionRequest struct {
	TransactionID string
}

type CommitTransactionResponse struct {
	Success bool
	Message string
}

type AbortTransactionRequest struct {
	TransactionID string
}

type AbortTransactionResponse struct {
	Success bool
	Message string
}

// ---- Gateway-facing messages (client -> gateway) ----

type AuthenticateRequest struct {
	Username string
	Password string
	Bank     string
}

type AuthenticateResponse struct {
	Success bool
	Token   string
	Message string
}

type CheckBalanceRequest struct {
	AccountID string // optional: empty means "the token's own account"
}

type CheckBalanceResponse struct {
	Success      bool
	BalanceCents int64
	Message      string
}

type ProcessPaymentRequest struct {
	SenderAccount   string // "self" resolves to the token's account
	ReceiverAccount string
	ReceiverBank    string
	AmountCents     int64
	PaymentID       string
}

type ProcessPaymentResponse struct {
	Success       bool
	TransactionID string
	Status        string
	Message       string
	// Retriable tells the client whether this failure may still make
	// progress on a later attempt. Terminal failures are cached by the
	// gateway and replaying them only re-reads the cache.
	Retriable bool
}

type GetGatewayTransactionHistoryRequest struct {
	AccountID string
	Limit     int32
}

type GetGatewayTransactionHistoryResponse struct {
	Success      bool
	Transactions []TransactionRecord
	Message      string
}
