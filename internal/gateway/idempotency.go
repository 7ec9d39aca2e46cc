package gateway

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/DanielPopoola/multibank-gateway/internal/domain"
)

// IdempotencyCache is the gateway's per-payment-id outcome cache.
// Only terminal outcomes are stored: a retriable failure is never
// written, so a client retry of the same payment id gets a fresh 2PC
// attempt instead of a replayed transient error.
type IdempotencyCache struct {
	mu      sync.Mutex
	path    string
	entries map[string]domain.IdempotencyEntry
	logger  *slog.Logger
}

func NewIdempotencyCache(path string, logger *slog.Logger) (*IdempotencyCache, error) {
	c := &IdempotencyCache{
		path:    path,
		entries: make(map[string]domain.IdempotencyEntry),
		logger:  logger,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return nil, fmt.Errorf("reading idempotency cache: %w", err)
	}
	if err := json.Unmarshal(data, &c.entries); err != nil {
		return nil, fmt.Errorf("parsing idempotency cache: %w", err)
	}
	logger.Info("loaded idempotency cache", "path", path, "entries", len(c.entries))
	return c, nil
}

// Lookup returns the cached terminal outcome for paymentID, if any.
func (c *IdempotencyCache) Lookup(paymentID string) (domain.PaymentResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[paymentID]
	if !ok {
		return domain.PaymentResult{}, false
	}
	return entry.Result, true
}

// Store caches a terminal outcome under paymentID and persists. A
// retriable result is ignored: caching it would pin a transient failure
// onto every future retry.
func (c *IdempotencyCache) Store(paymentID string, result domain.PaymentResult) error {
	if paymentID == "" || result.Retriable {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[paymentID] = domain.IdempotencyEntry{
		PaymentID: paymentID,
		Result:    result,
		StoredAt:  time.Now(),
	}
	return c.save()
}

// save persists the cache. Callers hold c.mu.
func (c *IdempotencyCache) save() error {
	data, err := json.MarshalIndent(c.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding idempotency cache: %w", err)
	}
	if dir := filepath.Dir(c.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating idempotency cache directory: %w", err)
		}
	}
	if err := os.WriteFile(c.path, data, 0o600); err != nil {
		return fmt.Errorf("writing idempotency cache: %w", err)
	}
	return nil
}
