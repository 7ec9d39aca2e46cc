// Package bank implements the participant side of 2PC: the
// prepared-transaction state machine, the per-account commit
// serialization, the account/ledger/processed-transaction store, and
// the BankService gRPC surface.
package bank

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/DanielPopoola/multibank-gateway/internal/config"
	"github.com/DanielPopoola/multibank-gateway/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store owns a bank's accounts, ledger, and processed-transaction cache
// in Postgres. Every mutation is committed before the RPC that caused
// it returns.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, cfg config.DatabaseConfig) (*Store, error) {
	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s&pool_max_conns=%d",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Name, cfg.SSLMode, cfg.MaxOpenConns,
	)

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

// Pool exposes the underlying connection pool for test setup.
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

// Migrate creates the schema this bank needs. Idempotent: safe to call
// on every startup.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS accounts (
			id TEXT PRIMARY KEY,
			username TEXT NOT NULL,
			password TEXT NOT NULL,
			balance_cents BIGINT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS ledger_entries (
			entry_id TEXT NOT NULL,
			account_id TEXT NOT NULL REFERENCES accounts(id),
			kind TEXT NOT NULL,
			amount_cents BIGINT NOT NULL,
			counterparty TEXT NOT NULL,
			ts TIMESTAMPTZ NOT NULL,
			status TEXT NOT NULL,
			PRIMARY KEY (entry_id, account_id)
		);
		CREATE TABLE IF NOT EXISTS processed_transactions (
			payment_id TEXT PRIMARY KEY,
			success BOOLEAN NOT NULL,
			message TEXT NOT NULL
		);
	`)
	return err
}

// Seed provisions the bank's accounts if they don't already exist.
// There is no live account-creation API; a bank starts up with
// something to pay into and out of.
func (s *Store) Seed(ctx context.Context, accounts []domain.Account) error {
	for _, acc := range accounts {
		_, err := s.pool.Exec(ctx, `
			INSERT INTO accounts (id, username, password, balance_cents)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (id) DO NOTHING
		`, acc.ID, acc.Username, acc.Password, acc.BalanceCents)
		if err != nil {
			return fmt.Errorf("seeding account %s: %w", acc.ID, err)
		}
	}
	return nil
}

func (s *Store) GetAccount(ctx context.Context, accountID string) (*domain.Account, error) {
	return s.getAccount(ctx, s.pool, accountID)
}

func (s *Store) getAccount(ctx context.Context, q queryer, accountID string) (*domain.Account, error) {
	row := q.QueryRow(ctx, `SELECT id, username, password, balance_cents FROM accounts WHERE id = $1`, accountID)
	var acc domain.Account
	if err := row.Scan(&acc.ID, &acc.Username, &acc.Password, &acc.BalanceCents); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewAccountNotFoundError(accountID)
		}
		return nil, fmt.Errorf("querying account: %w", err)
	}
	return &acc, nil
}

func (s *Store) FindAccountByUsername(ctx context.Context, username string) (*domain.Account, error) {
	row := s.pool.QueryRow(ctx, `SELECT id, username, password, balance_cents FROM accounts WHERE username = $1`, username)
	var acc domain.Account
	if err := row.Scan(&acc.ID, &acc.Username, &acc.Password, &acc.BalanceCents); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewAccountNotFoundError(username)
		}
		return nil, fmt.Errorf("querying account by username: %w", err)
	}
	return &acc, nil
}

func (s *Store) GetLedger(ctx context.Context, accountID string, limit int32) ([]domain.LedgerEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT entry_id, account_id, kind, amount_cents, counterparty, ts, status
		FROM ledger_entries
		WHERE account_id = $1
		ORDER BY ts DESC
		LIMIT $2
	`, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying ledger: %w", err)
	}
	defer rows.Close()

	var entries []domain.LedgerEntry
	for rows.Next() {
		var e domain.LedgerEntry
		if err := rows.Scan(&e.EntryID, &e.AccountID, &e.Kind, &e.AmountCents, &e.Counterparty, &e.Timestamp, &e.Status); err != nil {
			return nil, fmt.Errorf("scanning ledger entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ApplyCommit applies the balance delta and appends a ledger entry for
// one prepared transaction, inside a single DB transaction with the
// account row locked FOR UPDATE for its duration. This is the
// per-account serialization point: two concurrent commits against the
// same account cannot both succeed if the account would go negative,
// even though both Prepares may have voted ready against the same
// funds.
func (s *Store) ApplyCommit(ctx context.Context, entryID, accountID string, kind domain.LedgerEntryKind, amountCents int64, counterparty string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning commit transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `SELECT balance_cents FROM accounts WHERE id = $1 FOR UPDATE`, accountID)
	var balance int64
	if err := row.Scan(&balance); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.NewAccountNotFoundError(accountID)
		}
		return fmt.Errorf("locking account: %w", err)
	}

	delta := amountCents
	if kind == domain.LedgerDebit {
		delta = -amountCents
	}

	newBalance := balance + delta
	if newBalance < 0 {
		return domain.NewInsufficientFundsError(accountID)
	}

	if _, err := tx.Exec(ctx, `UPDATE accounts SET balance_cents = $1 WHERE id = $2`, newBalance, accountID); err != nil {
		return fmt.Errorf("updating balance: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO ledger_entries (entry_id, account_id, kind, amount_cents, counterparty, ts, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, entryID, accountID, kind, amountCents, counterparty, time.Now(), domain.LedgerStatusCompleted); err != nil {
		return fmt.Errorf("appending ledger entry: %w", err)
	}

	return tx.Commit(ctx)
}

func (s *Store) FindProcessedTransaction(ctx context.Context, paymentID string) (*domain.ProcessedTransaction, error) {
	row := s.pool.QueryRow(ctx, `SELECT payment_id, success, message FROM processed_transactions WHERE payment_id = $1`, paymentID)
	var pt domain.ProcessedTransaction
	if err := row.Scan(&pt.PaymentID, &pt.Success, &pt.Message); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying processed transaction: %w", err)
	}
	return &pt, nil
}

// ProcessDirect implements the direct, idempotent, non-2PC path: it applies
// the balance delta and caches the outcome under paymentID in one DB
// transaction, so a retried call with the same payment id is a no-op.
func (s *Store) ProcessDirect(ctx context.Context, paymentID, accountID string, kind domain.LedgerEntryKind, amountCents int64, counterparty string) (bool, string, error) {
	if cached, err := s.FindProcessedTransaction(ctx, paymentID); err != nil {
		return false, "", err
	} else if cached != nil {
		return cached.Success, cached.Message, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return false, "", fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `SELECT balance_cents FROM accounts WHERE id = $1 FOR UPDATE`, accountID)
	var balance int64
	if err := row.Scan(&balance); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, "", domain.NewAccountNotFoundError(accountID)
		}
		return false, "", fmt.Errorf("locking account: %w", err)
	}

	delta := amountCents
	if kind == domain.LedgerDebit {
		delta = -amountCents
	}

	success := true
	message := "ok"
	newBalance := balance + delta
	if newBalance < 0 {
		success = false
		message = "insufficient funds"
	} else {
		if _, err := tx.Exec(ctx, `UPDATE accounts SET balance_cents = $1 WHERE id = $2`, newBalance, accountID); err != nil {
			return false, "", fmt.Errorf("updating balance: %w", err)
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO ledger_entries (entry_id, account_id, kind, amount_cents, counterparty, ts, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, paymentID, accountID, kind, amountCents, counterparty, time.Now(), domain.LedgerStatusCompleted); err != nil {
			return false, "", fmt.Errorf("appending ledger entry: %w", err)
		}
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO processed_transactions (payment_id, success, message) VALUES ($1, $2, $3)
		ON CONFLICT (payment_id) DO NOTHING
	`, paymentID, success, message); err != nil {
		return false, "", fmt.Errorf("caching processed transaction: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, "", fmt.Errorf("committing transaction: %w", err)
	}

	return success, message, nil
}

// HasSufficientFunds is the advisory check Prepare(debit) makes: it
// does not mutate the balance and does not lock the row, so two
// concurrent debit prepares may both vote ready against the same
// funds. The real check happens again, under the row lock, in
// ApplyCommit.
func (s *Store) HasSufficientFunds(ctx context.Context, accountID string, amountCents int64) (bool, error) {
	acc, err := s.GetAccount(ctx, accountID)
	if err != nil {
		return false, err
	}
	return acc.BalanceCents >= amountCents, nil
}

// queryer is the common subset of *pgxpool.Pool and pgx.Tx.
type queryer interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}
