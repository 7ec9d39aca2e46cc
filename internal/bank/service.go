package bank

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/DanielPopoola/multibank-gateway/internal/domain"
	"github.com/DanielPopoola/multibank-gateway/internal/transport/rpcpb"
)

// Storage is the persistence surface the service needs. *Store
// implements it against Postgres; tests substitute an in-memory fake.
type Storage interface {
	GetAccount(ctx context.Context, accountID string) (*domain.Account, error)
	FindAccountByUsername(ctx context.Context, username string) (*domain.Account, error)
	GetLedger(ctx context.Context, accountID string, limit int32) ([]domain.LedgerEntry, error)
	ApplyCommit(ctx context.Context, entryID, accountID string, kind domain.LedgerEntryKind, amountCents int64, counterparty string) error
	ProcessDirect(ctx context.Context, paymentID, accountID string, kind domain.LedgerEntryKind, amountCents int64, counterparty string) (bool, string, error)
	HasSufficientFunds(ctx context.Context, accountID string, amountCents int64) (bool, error)
}

// Service implements rpcpb.BankServiceServer for one bank.
type Service struct {
	bankName string
	store    Storage
	prepared *PreparedTable
	logger   *slog.Logger
}

func NewService(bankName string, store Storage, logger *slog.Logger) *Service {
	return &Service{
		bankName: bankName,
		store:    store,
		prepared: NewPreparedTable(),
		logger:   logger,
	}
}

func (s *Service) VerifyCredentials(ctx context.Context, req *rpcpb.VerifyCredentialsRequest) (*rpcpb.VerifyCredentialsResponse, error) {
	acc, err := s.store.FindAccountByUsername(ctx, req.Username)
	if err != nil {
		var dErr *domain.DomainError
		if errors.As(err, &dErr) && dErr.Code == domain.ErrCodeAccountNotFound {
			return &rpcpb.VerifyCredentialsResponse{Valid: false, Message: "unknown user"}, nil
		}
		return nil, err
	}

	if acc.Password != req.Password {
		s.logger.Warn("credential check failed", "bank", s.bankName, "username", req.Username)
		return &rpcpb.VerifyCredentialsResponse{Valid: false, Message: "invalid credentials"}, nil
	}

	return &rpcpb.VerifyCredentialsResponse{Valid: true, AccountID: acc.ID, Message: "ok"}, nil
}

func (s *Service) GetBalance(ctx context.Context, req *rpcpb.GetBalanceRequest) (*rpcpb.GetBalanceResponse, error) {
	acc, err := s.store.GetAccount(ctx, req.AccountID)
	if err != nil {
		var dErr *domain.DomainError
		if errors.As(err, &dErr) && dErr.Code == domain.ErrCodeAccountNotFound {
			return &rpcpb.GetBalanceResponse{Success: false, Message: dErr.Message}, nil
		}
		return nil, err
	}
	return &rpcpb.GetBalanceResponse{Success: true, BalanceCents: acc.BalanceCents, Message: "ok"}, nil
}

func (s *Service) GetTransactionHistory(ctx context.Context, req *rpcpb.GetTransactionHistoryRequest) (*rpcpb.GetTransactionHistoryResponse, error) {
	if _, err := s.store.GetAccount(ctx, req.AccountID); err != nil {
		var dErr *domain.DomainError
		if errors.As(err, &dErr) && dErr.Code == domain.ErrCodeAccountNotFound {
			return &rpcpb.GetTransactionHistoryResponse{Success: false, Message: dErr.Message}, nil
		}
		return nil, err
	}

	entries, err := s.store.GetLedger(ctx, req.AccountID, req.Limit)
	if err != nil {
		return nil, err
	}

	records := make([]rpcpb.TransactionRecord, 0, len(entries))
	for _, e := range entries {
		records = append(records, rpcpb.TransactionRecord{
			EntryID:      e.EntryID,
			Kind:         string(e.Kind),
			AmountCents:  e.AmountCents,
			Counterparty: e.Counterparty,
			Timestamp:    e.Timestamp,
			Status:       string(e.Status),
		})
	}
	return &rpcpb.GetTransactionHistoryResponse{Success: true, Transactions: records, Message: "ok"}, nil
}

// ProcessTransaction is the direct, idempotent, non-2PC path.
// The processed-transaction cache lives inside the store so that the
// balance delta and the cached outcome land in one DB transaction.
func (s *Service) ProcessTransaction(ctx context.Context, req *rpcpb.ProcessTransactionRequest) (*rpcpb.ProcessTransactionResponse, error) {
	kind, err := parseKind(req.Kind)
	if err != nil {
		return &rpcpb.ProcessTransactionResponse{Success: false, Message: err.Error()}, nil
	}
	if req.AmountCents <= 0 {
		return &rpcpb.ProcessTransactionResponse{Success: false, Message: domain.NewInvalidAmountError(req.AmountCents).Message}, nil
	}
	if req.PaymentID == "" {
		return &rpcpb.ProcessTransactionResponse{Success: false, Message: "payment id is required"}, nil
	}

	success, message, err := s.store.ProcessDirect(ctx, req.PaymentID, req.AccountID, kind, req.AmountCents, req.Counterparty)
	if err != nil {
		var dErr *domain.DomainError
		if errors.As(err, &dErr) && dErr.Code == domain.ErrCodeAccountNotFound {
			return &rpcpb.ProcessTransactionResponse{Success: false, Message: dErr.Message}, nil
		}
		return nil, err
	}

	s.logger.Info("processed direct transaction",
		"bank", s.bankName, "payment_id", req.PaymentID, "account", req.AccountID,
		"kind", kind, "amount_cents", req.AmountCents, "success", success)
	return &rpcpb.ProcessTransactionResponse{Success: success, Message: message}, nil
}

// PrepareTransaction is phase one of 2PC at this participant. A ready
// vote is recorded in the prepared table; a not-ready vote leaves no
// trace, so a later Prepare with the same id gets a fresh evaluation.
// Prepare of a debit checks funds without reserving them: the
// authoritative check happens again under the row lock at commit time.
func (s *Service) PrepareTransaction(ctx context.Context, req *rpcpb.PrepareTransactionRequest) (*rpcpb.PrepareTransactionResponse, error) {
	if existing, ok := s.prepared.Get(req.TransactionID); ok {
		s.logger.Info("duplicate prepare, returning stored vote",
			"bank", s.bankName, "transaction_id", req.TransactionID, "vote", existing.Vote)
		return &rpcpb.PrepareTransactionResponse{Ready: existing.Vote == domain.VoteReady, Message: existing.Message}, nil
	}

	kind, err := parseKind(req.Kind)
	if err != nil {
		return &rpcpb.PrepareTransactionResponse{Ready: false, Message: err.Error()}, nil
	}
	if req.AmountCents <= 0 {
		return &rpcpb.PrepareTransactionResponse{Ready: false, Message: domain.NewInvalidAmountError(req.AmountCents).Message}, nil
	}

	acc, err := s.store.GetAccount(ctx, req.AccountID)
	if err != nil {
		var dErr *domain.DomainError
		if errors.As(err, &dErr) && dErr.Code == domain.ErrCodeAccountNotFound {
			return &rpcpb.PrepareTransactionResponse{Ready: false, Message: dErr.Message}, nil
		}
		return nil, err
	}

	if kind == domain.LedgerDebit {
		enough, err := s.store.HasSufficientFunds(ctx, req.AccountID, req.AmountCents)
		if err != nil {
			return nil, err
		}
		if !enough {
			s.logger.Warn("prepare voted not-ready: insufficient funds",
				"bank", s.bankName, "transaction_id", req.TransactionID, "account", req.AccountID)
			return &rpcpb.PrepareTransactionResponse{
				Ready:   false,
				Message: domain.NewInsufficientFundsError(req.AccountID).Message,
			}, nil
		}
	}

	stored := s.prepared.PutIfAbsent(&domain.PreparedTransaction{
		TransactionID: req.TransactionID,
		AccountID:     req.AccountID,
		Username:      acc.Username,
		Kind:          kind,
		AmountCents:   req.AmountCents,
		Counterparty:  req.Counterparty,
		Vote:          domain.VoteReady,
		Message:       "ready to commit",
	})

	s.logger.Info("prepared transaction",
		"bank", s.bankName, "transaction_id", req.TransactionID, "account", req.AccountID,
		"kind", kind, "amount_cents", req.AmountCents)
	return &rpcpb.PrepareTransactionResponse{Ready: stored.Vote == domain.VoteReady, Message: stored.Message}, nil
}

// CommitTransaction applies a prepared transaction. Unknown ids are
// rejected rather than silently accepted: after a bank restart the
// prepared table is empty, and a stale Commit must surface a clear
// non-success so the coordinator can flag the critical state.
func (s *Service) CommitTransaction(ctx context.Context, req *rpcpb.CommitTransactionRequest) (*rpcpb.CommitTransactionResponse, error) {
	tx, ok := s.prepared.Take(req.TransactionID)
	if !ok {
		s.logger.Warn("commit for unknown transaction", "bank", s.bankName, "transaction_id", req.TransactionID)
		return &rpcpb.CommitTransactionResponse{
			Success: false,
			Message: fmt.Sprintf("transaction %q is not prepared", req.TransactionID),
		}, nil
	}

	err := s.store.ApplyCommit(ctx, tx.TransactionID, tx.AccountID, tx.Kind, tx.AmountCents, tx.Counterparty)
	if err != nil {
		var dErr *domain.DomainError
		if errors.As(err, &dErr) {
			s.logger.Error("commit failed", "bank", s.bankName, "transaction_id", req.TransactionID, "error", err)
			return &rpcpb.CommitTransactionResponse{Success: false, Message: dErr.Message}, nil
		}
		return nil, err
	}

	s.logger.Info("committed transaction",
		"bank", s.bankName, "transaction_id", req.TransactionID, "account", tx.AccountID,
		"kind", tx.Kind, "amount_cents", tx.AmountCents)
	return &rpcpb.CommitTransactionResponse{Success: true, Message: "committed"}, nil
}

// AbortTransaction discards a prepared transaction. An unknown id is a
// success: it is considered already aborted, which makes the
// coordinator's best-effort abort retries safe.
func (s *Service) AbortTransaction(ctx context.Context, req *rpcpb.AbortTransactionRequest) (*rpcpb.AbortTransactionResponse, error) {
	if _, ok := s.prepared.Take(req.TransactionID); ok {
		s.logger.Info("aborted prepared transaction", "bank", s.bankName, "transaction_id", req.TransactionID)
		return &rpcpb.AbortTransactionResponse{Success: true, Message: "aborted"}, nil
	}
	return &rpcpb.AbortTransactionResponse{Success: true, Message: "already aborted"}, nil
}

func parseKind(kind string) (domain.LedgerEntryKind, error) {
	switch kind {
	case string(domain.LedgerDebit):
		return domain.LedgerDebit, nil
	case string(domain.LedgerCredit):
		return domain.LedgerCredit, nil
	default:
		return "", fmt.Errorf("unknown transaction type %q", kind)
	}
}
