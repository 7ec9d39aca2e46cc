// Package gateway implements the coordinator tier: the 2PC engine, the
// session-token and idempotency layers, the lazy bank-stub table, and
// the GatewayService gRPC surface.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/DanielPopoola/multibank-gateway/internal/domain"
	"github.com/google/uuid"
)

// TokenStore owns the gateway's session-token table.
// The table is persisted to a JSON file after every mutation; expired
// tokens are filtered on load and by a periodic sweep, and are rejected
// on Check even while physically present on disk.
type TokenStore struct {
	mu     sync.Mutex
	path   string
	ttl    time.Duration
	tokens map[string]domain.Token
	logger *slog.Logger
	now    func() time.Time
}

func NewTokenStore(path string, ttl time.Duration, logger *slog.Logger) (*TokenStore, error) {
	s := &TokenStore{
		path:   path,
		ttl:    ttl,
		tokens: make(map[string]domain.Token),
		logger: logger,
		now:    time.Now,
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *TokenStore) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading token store: %w", err)
	}

	var tokens map[string]domain.Token
	if err := json.Unmarshal(data, &tokens); err != nil {
		return fmt.Errorf("parsing token store: %w", err)
	}

	now := s.now()
	for value, tok := range tokens {
		if !tok.Expired(now) {
			s.tokens[value] = tok
		}
	}
	s.logger.Info("loaded token store", "path", s.path, "active", len(s.tokens), "dropped", len(tokens)-len(s.tokens))
	return nil
}

// save persists the table. Callers hold s.mu.
func (s *TokenStore) save() error {
	data, err := json.MarshalIndent(s.tokens, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding token store: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating token store directory: %w", err)
		}
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("writing token store: %w", err)
	}
	return nil
}

// Mint creates a token bound to one account and persists the table.
func (s *TokenStore) Mint(username, bankName, accountID string) (string, error) {
	tok := domain.Token{
		Value:     uuid.New().String(),
		Username:  username,
		Bank:      bankName,
		AccountID: accountID,
		ExpiresAt: s.now().Add(s.ttl),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[tok.Value] = tok
	if err := s.save(); err != nil {
		delete(s.tokens, tok.Value)
		return "", err
	}
	return tok.Value, nil
}

// Check satisfies authinterceptor.TokenChecker.
func (s *TokenStore) Check(ctx context.Context, token string) bool {
	_, ok := s.Lookup(token)
	return ok
}

// Lookup returns the token record if it exists and has not expired.
func (s *TokenStore) Lookup(token string) (domain.Token, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tok, ok := s.tokens[token]
	if !ok || tok.Expired(s.now()) {
		return domain.Token{}, false
	}
	return tok, true
}

// Revoke removes a token and persists.
func (s *TokenStore) Revoke(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tokens[token]; !ok {
		return nil
	}
	delete(s.tokens, token)
	return s.save()
}

// Sweep removes expired tokens and re-persists, returning how many were
// dropped.
func (s *TokenStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	dropped := 0
	for value, tok := range s.tokens {
		if tok.Expired(now) {
			delete(s.tokens, value)
			dropped++
		}
	}
	if dropped > 0 {
		if err := s.save(); err != nil {
			s.logger.Error("persisting token store after sweep", "error", err)
		}
	}
	return dropped
}

// StartSweeper runs the periodic expiry sweep until ctx is cancelled.
func (s *TokenStore) StartSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if dropped := s.Sweep(); dropped > 0 {
				s.logger.Info("token sweep", "dropped", dropped)
			}
		}
	}
}
