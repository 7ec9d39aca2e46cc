package bank

import (
	"sync"
	"time"

	"github.com/DanielPopoola/multibank-gateway/internal/domain"
)

// PreparedTable holds the bank's in-flight 2PC votes. Entries exist
// only between a successful Prepare and the matching Commit or Abort.
// The table is in-memory by design: a crash while prepared is
// equivalent to a NO vote on restart, and a Commit for an id the
// restarted bank no longer knows is rejected.
type PreparedTable struct {
	mu  sync.Mutex
	txs map[string]*domain.PreparedTransaction
}

func NewPreparedTable() *PreparedTable {
	return &PreparedTable{txs: make(map[string]*domain.PreparedTransaction)}
}

// Get returns the entry for id, if any. A second Prepare with the same
// id uses this to return the original vote verbatim.
func (t *PreparedTable) Get(id string) (*domain.PreparedTransaction, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	tx, ok := t.txs[id]
	return tx, ok
}

// PutIfAbsent records a ready vote unless one already exists for the
// same id, in which case the stored entry wins and is returned. This is
// the absent -> prepared transition and its idempotent self-loop in one
// atomic step.
func (t *PreparedTable) PutIfAbsent(tx *domain.PreparedTransaction) *domain.PreparedTransaction {
	t.mu.Lock()
	defer t.mu.Unlock()
	if existing, ok := t.txs[tx.TransactionID]; ok {
		return existing
	}
	tx.PreparedAt = time.Now()
	t.txs[tx.TransactionID] = tx
	return tx
}

// Take removes and returns the entry for id. Commit and Abort both
// consume the prepared entry through here, so two racing Commits for
// the same id cannot both apply the balance delta: the loser sees
// absent and gets a "not prepared" failure.
func (t *PreparedTable) Take(id string) (*domain.PreparedTransaction, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	tx, ok := t.txs[id]
	if ok {
		delete(t.txs, id)
	}
	return tx, ok
}

// Len reports how many transactions are currently prepared.
func (t *PreparedTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.txs)
}
