// Package genesis maintains access to the genesis file.
package genesis

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ardanlabs/ledger/foundation/blockchain/signature"
)

// Genesis represents the genesis file.
type Genesis struct {
	Date          time.Time         `json:"date"`
	ChainID       uint16            `json:"chain_id"`        // The chain id represents an unique id for this running instance.
	TransPerBlock uint16            `json:"trans_per_block"` // The maximum number of transactions that can be in a block.
	Difficulty    uint16            `json:"difficulty"`      // How difficult it needs to be to solve the work problem.
	Balances      map[string]uint64 `json:"balances"`        // Starting balances for the founders of the chain.
}

// =============================================================================

// Load opens and consumes the genesis file.
func Load(path string) (Genesis, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Genesis{}, fmt.Errorf("reading genesis file: %w", err)
	}

	var genesis Genesis
	if err := json.Unmarshal(content, &genesis); err != nil {
		return Genesis{}, fmt.Errorf("decoding genesis file: %w", err)
	}

	if err := genesis.Validate(); err != nil {
		return Genesis{}, err
	}

	return genesis, nil
}

// Validate checks the genesis values can be used to start a chain.
func (g Genesis) Validate() error {
	if g.Difficulty > signature.HashLength {
		return fmt.Errorf("difficulty %d exceeds hash length %d", g.Difficulty, signature.HashLength)
	}

	if g.TransPerBlock == 0 {
		return errors.New("trans_per_block must be greater than zero")
	}

	for address := range g.Balances {
		if !signature.IsAddress(address) {
			return fmt.Errorf("invalid balance address %q", address)
		}
	}

	return nil
}
