// Package mempool maintains the mempool for the ledger. Transactions are
// kept in the order they were submitted until a mining operation drains
// them into a block.
package mempool

import (
	"sync"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
)

// Mempool represents a cache of pending transactions in submission order.
type Mempool struct {
	mu   sync.RWMutex
	pool []database.Transaction
}

// New constructs a new mempool.
func New() *Mempool {
	return &Mempool{}
}

// Count returns the current number of transactions in the pool.
func (mp *Mempool) Count() int {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	return len(mp.pool)
}

// Enqueue adds the transaction to the end of the pool and returns the
// number of transactions now pending.
func (mp *Mempool) Enqueue(tx database.Transaction) int {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.pool = append(mp.pool, tx)

	return len(mp.pool)
}

// DrainAll atomically removes and returns every transaction in the pool in
// submission order. An Enqueue running concurrently lands either in this
// drain or in the next one.
func (mp *Mempool) DrainAll() []database.Transaction {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	trans := mp.pool
	mp.pool = nil

	return trans
}

// Copy returns a copy of the pending transactions without removing them.
func (mp *Mempool) Copy() []database.Transaction {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	trans := make([]database.Transaction, len(mp.pool))
	copy(trans, mp.pool)

	return trans
}
