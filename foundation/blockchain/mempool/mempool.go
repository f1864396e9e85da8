// Package mempool maintains the mempool for the blockchain.
package mempool

import (
	"sync"

	"github.com/ardanlabs/ledger/foundation/blockchain/chain"
)

// entry records a transaction with the order it arrived in.
type entry struct {
	tx       chain.Transaction
	sequence uint64
}

// Mempool represents a cache of transactions waiting to be mined, keyed by
// the transaction id.
type Mempool struct {
	pool     map[string]entry
	sequence uint64
	mu       sync.RWMutex
}

// New constructs a new mempool.
func New() *Mempool {
	return &Mempool{
		pool: make(map[string]entry),
	}
}

// Count returns the current number of transaction in the pool.
func (mp *Mempool) Count() int {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	return len(mp.pool)
}

// Upsert adds a transaction to the mempool. A transaction that is already
// in the pool keeps its original place in line.
func (mp *Mempool) Upsert(tx chain.Transaction) int {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	key := tx.ID()
	if _, exists := mp.pool[key]; !exists {
		mp.sequence++
		mp.pool[key] = entry{tx: tx, sequence: mp.sequence}
	}

	return len(mp.pool)
}

// Delete removes a transaction from the mempool.
func (mp *Mempool) Delete(tx chain.Transaction) {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	delete(mp.pool, tx.ID())
}

// Truncate clears all the transactions from the pool.
func (mp *Mempool) Truncate() {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.pool = make(map[string]entry)
}

// Copy returns the transactions in the pool in arrival order.
func (mp *Mempool) Copy() []chain.Transaction {
	return mp.PickBest(-1)
}

// PickBest returns the next set of transactions for the next block in the
// order they arrived, while respecting the nonce order of each account.
// Pass -1 for all the transactions.
func (mp *Mempool) PickBest(howMany int) []chain.Transaction {
	mp.mu.RLock()
	entries := make([]entry, 0, len(mp.pool))
	for _, e := range mp.pool {
		entries = append(entries, e)
	}
	mp.mu.RUnlock()

	return pickFIFO(entries, howMany)
}
