// Package ledger binds the history index and the chain store under the
// single lock spec §5 calls "history.lock": "guards the coin/transaction
// maps and the chain store's pool/chain for the duration of any mutation
// that spans both. Held across verification and mutation to preserve the
// invariants in §3." Neither history.History nor blockchain.Blockchain is
// safe for concurrent use by itself; Ledger is what makes the pair safe.
package ledger

import (
	"sync"

	"github.com/sjpacwa/sbchain-go/blockchain"
	"github.com/sjpacwa/sbchain-go/history"
)

// Ledger owns a node's History and Blockchain behind one mutex. Wallet
// locking nests strictly inside this lock, never the reverse (spec §5).
type Ledger struct {
	mu      sync.Mutex
	History *history.History
	Chain   *blockchain.Blockchain
}

// New creates a Ledger with a fresh History scoped to nodeID, wrapping the
// given chain store.
func New(nodeID string, chain *blockchain.Blockchain) *Ledger {
	return &Ledger{
		History: history.New(nodeID),
		Chain:   chain,
	}
}

// Lock acquires the ledger lock. Callers must call Unlock, typically via
// defer, before returning.
func (l *Ledger) Lock() { l.mu.Lock() }

// Unlock releases the ledger lock.
func (l *Ledger) Unlock() { l.mu.Unlock() }

// With runs fn while holding the ledger lock.
func (l *Ledger) With(fn func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fn()
}
