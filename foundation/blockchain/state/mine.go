package state

import (
	"context"
	"errors"

	"github.com/ardanlabs/ledger/foundation/blockchain/chain"
)

// ErrNoTransactions is returned when a block is requested to be created
// and there are not enough transactions.
var ErrNoTransactions = errors.New("no transactions in mempool")

// =============================================================================

// MineNewBlock takes the next set of transactions from the mempool, mines
// them into a new block and applies them to the accounts. Transactions that
// no longer pass the account rules are dropped from the mempool before
// mining starts.
func (s *State) MineNewBlock(ctx context.Context) (chain.Block, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.evHandler("state: MineNewBlock: MINING: check mempool count")

	// Are there enough transactions in the pool.
	if s.mempool.Count() == 0 {
		return chain.Block{}, ErrNoTransactions
	}

	// Run the picked transactions against a copy of the accounts so only
	// transactions that can be applied end up in the block.
	sim := s.accounts.Clone()

	var txs []chain.Transaction
	for _, tx := range s.mempool.PickBest(int(s.genesis.TransPerBlock)) {
		if err := sim.ApplyTransaction(tx); err != nil {
			s.evHandler("state: MineNewBlock: MINING: WARNING: dropping tx[%s]: %s", tx, err)
			s.mempool.Delete(tx)
			continue
		}
		txs = append(txs, tx)
	}

	if len(txs) == 0 {
		return chain.Block{}, ErrNoTransactions
	}

	s.evHandler("state: MineNewBlock: MINING: perform POW: txs[%d]", len(txs))

	// Attempt to create a new block by solving the POW puzzle. This can be cancelled.
	block, err := s.chain.AddBlock(ctx, txs)
	if err != nil {
		return chain.Block{}, err
	}

	s.evHandler("state: MineNewBlock: MINING: update local state: block[%s]", block)

	s.updateLocalState(block)

	return block, nil
}

// =============================================================================

// updateLocalState applies the block transactions to the accounts and
// removes them from the mempool.
func (s *State) updateLocalState(block chain.Block) {
	for _, tx := range block.Transactions {
		s.evHandler("state: updateLocalState: tx[%s] update and remove", tx)

		// Apply the balance changes based on this transaction.
		if err := s.accounts.ApplyTransaction(tx); err != nil {
			s.evHandler("state: updateLocalState: WARNING : %s", err)
		}

		// Remove this transaction from the mempool.
		s.mempool.Delete(tx)
	}
}

// SignalMining asks the worker to start a mining operation.
func (s *State) SignalMining() {
	if s.Worker != nil {
		s.Worker.SignalStartMining()
	}
}
