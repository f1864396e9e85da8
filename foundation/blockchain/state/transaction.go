package state

import (
	"fmt"

	"github.com/ardanlabs/ledger/foundation/blockchain/chain"
)

// SubmitTransaction accepts a signed transaction from a wallet for inclusion
// in a future block.
func (s *State) SubmitTransaction(tx chain.Transaction) error {
	if err := s.validateTransaction(tx); err != nil {
		return err
	}

	n := s.mempool.Upsert(tx)
	s.evHandler("state: SubmitTransaction: tx[%s] mempool[%d]", tx, n)

	s.SignalMining()

	return nil
}

// =============================================================================

// validateTransaction takes the signed transaction and validates it has
// a proper signature and passes the account rules.
func (s *State) validateTransaction(tx chain.Transaction) error {
	if err := tx.VerifySignature(); err != nil {
		return fmt.Errorf("tx[%s]: %w", tx, err)
	}

	if err := s.accounts.ValidateTransaction(tx); err != nil {
		return fmt.Errorf("tx[%s]: %w", tx, err)
	}

	return nil
}
