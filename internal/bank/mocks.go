package bank

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/DanielPopoola/multibank-gateway/internal/domain"
)

// MockStorage is an in-memory Storage used by the service tests.
// Per-method Fn hooks override the default behavior the same way the
// happy path would run against Postgres.
type MockStorage struct {
	mu        sync.Mutex
	accounts  map[string]*domain.Account
	ledger    map[string][]domain.LedgerEntry
	processed map[string]domain.ProcessedTransaction

	ApplyCommitFn   func(ctx context.Context, entryID, accountID string, kind domain.LedgerEntryKind, amountCents int64, counterparty string) error
	ProcessDirectFn func(ctx context.Context, paymentID, accountID string, kind domain.LedgerEntryKind, amountCents int64, counterparty string) (bool, string, error)
}

func NewMockStorage(accounts ...domain.Account) *MockStorage {
	m := &MockStorage{
		accounts:  make(map[string]*domain.Account),
		ledger:    make(map[string][]domain.LedgerEntry),
		processed: make(map[string]domain.ProcessedTransaction),
	}
	for i := range accounts {
		acc := accounts[i]
		m.accounts[acc.ID] = &acc
	}
	return m
}

func (m *MockStorage) GetAccount(ctx context.Context, accountID string) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if acc, ok := m.accounts[accountID]; ok {
		cp := *acc
		return &cp, nil
	}
	return nil, domain.NewAccountNotFoundError(accountID)
}

func (m *MockStorage) FindAccountByUsername(ctx context.Context, username string) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, acc := range m.accounts {
		if acc.Username == username {
			cp := *acc
			return &cp, nil
		}
	}
	return nil, domain.NewAccountNotFoundError(username)
}

func (m *MockStorage) GetLedger(ctx context.Context, accountID string, limit int32) ([]domain.LedgerEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entries := m.ledger[accountID]
	if limit > 0 && int(limit) < len(entries) {
		entries = entries[len(entries)-int(limit):]
	}
	out := make([]domain.LedgerEntry, len(entries))
	copy(out, entries)
	return out, nil
}

func (m *MockStorage) ApplyCommit(ctx context.Context, entryID, accountID string, kind domain.LedgerEntryKind, amountCents int64, counterparty string) error {
	if m.ApplyCommitFn != nil {
		return m.ApplyCommitFn(ctx, entryID, accountID, kind, amountCents, counterparty)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	acc, ok := m.accounts[accountID]
	if !ok {
		return domain.NewAccountNotFoundError(accountID)
	}
	delta := amountCents
	if kind == domain.LedgerDebit {
		delta = -amountCents
	}
	if acc.BalanceCents+delta < 0 {
		return domain.NewInsufficientFundsError(accountID)
	}
	acc.BalanceCents += delta
	m.ledger[accountID] = append(m.ledger[accountID], domain.LedgerEntry{
		EntryID:      entryID,
		AccountID:    accountID,
		Kind:         kind,
		AmountCents:  amountCents,
		Counterparty: counterparty,
		Timestamp:    time.Now(),
		Status:       domain.LedgerStatusCompleted,
	})
	return nil
}

func (m *MockStorage) ProcessDirect(ctx context.Context, paymentID, accountID string, kind domain.LedgerEntryKind, amountCents int64, counterparty string) (bool, string, error) {
	if m.ProcessDirectFn != nil {
		return m.ProcessDirectFn(ctx, paymentID, accountID, kind, amountCents, counterparty)
	}
	m.mu.Lock()
	if cached, ok := m.processed[paymentID]; ok {
		m.mu.Unlock()
		return cached.Success, cached.Message, nil
	}
	m.mu.Unlock()

	success, message := true, "ok"
	if err := m.ApplyCommit(ctx, paymentID, accountID, kind, amountCents, counterparty); err != nil {
		var dErr *domain.DomainError
		if !errors.As(err, &dErr) || dErr.Code == domain.ErrCodeAccountNotFound {
			return false, "", err
		}
		success, message = false, dErr.Message
	}

	m.mu.Lock()
	m.processed[paymentID] = domain.ProcessedTransaction{PaymentID: paymentID, Success: success, Message: message}
	m.mu.Unlock()
	return success, message, nil
}

func (m *MockStorage) HasSufficientFunds(ctx context.Context, accountID string, amountCents int64) (bool, error) {
	acc, err := m.GetAccount(ctx, accountID)
	if err != nil {
		return false, err
	}
	return acc.BalanceCents >= amountCents, nil
}

// Balance is a test helper reading the current balance directly.
func (m *MockStorage) Balance(accountID string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if acc, ok := m.accounts[accountID]; ok {
		return acc.BalanceCents
	}
	return 0
}

// LedgerLen is a test helper counting entries for an account.
func (m *MockStorage) LedgerLen(accountID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.ledger[accountID])
}
