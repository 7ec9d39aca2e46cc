// Package client implements the user-facing tier: the durable
// pending-payment queue, the connectivity supervisor, and the gateway
// client wrapper the interactive CLI drives.
package client

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/DanielPopoola/multibank-gateway/internal/domain"
)

// Queue is the durable per-client pending-payment queue: one JSON file
// per payment id, written before the first send attempt and deleted
// only on a definitive outcome. One file per payment keeps the
// supervisor and the foreground conflict-free; they can race only on
// queue membership, which is tolerable.
type Queue struct {
	dir string
}

// NewQueue opens (creating if needed) the queue directory for one
// client id under baseDir.
func NewQueue(baseDir, clientID string) (*Queue, error) {
	dir := filepath.Join(baseDir, clientID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating pending queue directory: %w", err)
	}
	return &Queue{dir: dir}, nil
}

func (q *Queue) path(paymentID string) string {
	return filepath.Join(q.dir, paymentID+".json")
}

// Add writes the pending record durably. Must happen before the first
// send attempt so a crash mid-send leaves the payment replayable.
func (q *Queue) Add(p domain.PendingPayment) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encoding pending payment: %w", err)
	}
	if err := os.WriteFile(q.path(p.PaymentID), data, 0o600); err != nil {
		return fmt.Errorf("writing pending payment: %w", err)
	}
	return nil
}

// Remove deletes the record. Removing an already-removed record is a
// no-op: the supervisor may replay an entry the foreground just
// resolved.
func (q *Queue) Remove(paymentID string) error {
	err := os.Remove(q.path(paymentID))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing pending payment: %w", err)
	}
	return nil
}

// List returns all pending payments ordered oldest first. Unreadable
// entries are skipped, not fatal: a half-written file from a crash must
// not wedge the whole queue.
func (q *Queue) List() ([]domain.PendingPayment, error) {
	entries, err := os.ReadDir(q.dir)
	if err != nil {
		return nil, fmt.Errorf("reading pending queue: %w", err)
	}

	var pending []domain.PendingPayment
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(q.dir, entry.Name()))
		if err != nil {
			continue
		}
		var p domain.PendingPayment
		if err := json.Unmarshal(data, &p); err != nil {
			continue
		}
		pending = append(pending, p)
	}

	sort.Slice(pending, func(i, j int) bool { return pending[i].CreatedAt.Before(pending[j].CreatedAt) })
	return pending, nil
}

// Len counts pending records.
func (q *Queue) Len() int {
	pending, err := q.List()
	if err != nil {
		return 0
	}
	return len(pending)
}
