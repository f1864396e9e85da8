package state

import (
	"fmt"
	"strings"

	"github.com/ardanlabs/ledger/foundation/blockchain/accounts"
	"github.com/ardanlabs/ledger/foundation/blockchain/chain"
	"github.com/ardanlabs/ledger/foundation/blockchain/genesis"
)

// QueryLatest represents to query the latest block in the chain.
const QueryLatest = ^uint64(0) >> 1

// Proof is the merkle proof that a transaction is part of a block.
type Proof struct {
	Block       uint64            `json:"block"`
	Transaction chain.Transaction `json:"transaction"`
	Root        []byte            `json:"root"`
	Leaf        []byte            `json:"leaf"`
	Hashes      [][]byte          `json:"hashes"`
	Order       []int64           `json:"order"`
}

// =============================================================================

// Genesis returns a copy of the genesis information.
func (s *State) Genesis() genesis.Genesis {
	return s.genesis
}

// Difficulty returns the difficulty blocks are mined at.
func (s *State) Difficulty() uint {
	return s.chain.Difficulty()
}

// LatestBlock returns a copy of the current latest block.
func (s *State) LatestBlock() chain.Block {
	return s.chain.LatestBlock()
}

// Accounts returns a copy of the information for all accounts.
func (s *State) Accounts() map[string]accounts.Info {
	return s.accounts.Copy()
}

// QueryAccount returns a copy of the information for the specified account.
func (s *State) QueryAccount(address string) (accounts.Info, error) {
	return s.accounts.Query(address)
}

// Mempool returns a copy of the mempool in arrival order.
func (s *State) Mempool() []chain.Transaction {
	return s.mempool.Copy()
}

// QueryMempoolLength returns the current length of the mempool.
func (s *State) QueryMempoolLength() int {
	return s.mempool.Count()
}

// QueryBlocksByNumber returns the set of blocks based on block numbers.
func (s *State) QueryBlocksByNumber(from uint64, to uint64) []chain.Block {
	if from == QueryLatest {
		from = s.chain.LatestBlock().Index
		to = from
	}
	if to == QueryLatest {
		to = s.chain.LatestBlock().Index
	}

	return s.chain.BlocksRange(from, to)
}

// QueryBlocksByAccount returns the set of blocks holding a transaction sent
// or received by the account. If the account is empty, all blocks are returned.
func (s *State) QueryBlocksByAccount(address string) []chain.Block {
	blocks := s.chain.Blocks()
	if address == "" {
		return blocks
	}

	var out []chain.Block
	for _, block := range blocks {
		for _, tx := range block.Transactions {
			if strings.EqualFold(tx.From, address) || strings.EqualFold(tx.To, address) {
				out = append(out, block)
				break
			}
		}
	}

	return out
}

// QueryMerkleProof returns the proof that the transaction at the specified
// position is part of the block.
func (s *State) QueryMerkleProof(index uint64, txIndex int) (Proof, error) {
	block, err := s.chain.BlockByIndex(index)
	if err != nil {
		return Proof{}, err
	}

	if txIndex < 0 || txIndex >= len(block.Transactions) {
		return Proof{}, fmt.Errorf("transaction %d not in block %d", txIndex, index)
	}

	root, hashes, order, err := block.Proof(txIndex)
	if err != nil {
		return Proof{}, err
	}

	tx := block.Transactions[txIndex]
	leaf, err := tx.Hash()
	if err != nil {
		return Proof{}, err
	}

	proof := Proof{
		Block:       index,
		Transaction: tx,
		Root:        root,
		Leaf:        leaf,
		Hashes:      hashes,
		Order:       order,
	}

	return proof, nil
}

// ValidateChain replays every block's hash computation and link.
func (s *State) ValidateChain() error {
	return s.chain.Validate()
}

// ChainLength returns the number of blocks including genesis.
func (s *State) ChainLength() int {
	return s.chain.Length()
}
