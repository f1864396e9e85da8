package chain

import (
	"fmt"

	"github.com/ardanlabs/ledger/foundation/blockchain/merkle"
	"github.com/ardanlabs/ledger/foundation/blockchain/signature"
	"github.com/ethereum/go-ethereum/rlp"
)

// GenesisPrevHash is the previous hash recorded in the genesis block.
const GenesisPrevHash = "0"

// =============================================================================

// Block represents a group of transactions batched together and linked to
// the block before it.
type Block struct {
	Index        uint64        `json:"index"`        // Position in the chain, 0 is genesis.
	Timestamp    uint64        `json:"timestamp"`    // Unix seconds the block was assembled, informational.
	Transactions []Transaction `json:"transactions"` // Ordered set of transactions.
	PrevHash     string        `json:"prev_hash"`    // Hash of the previous block in the chain.
	Nonce        uint64        `json:"nonce"`        // Value identified to solve the hash solution.
	Hash         string        `json:"hash"`         // Cached result of hashing the fields above.
}

// ComputeHash recalculates the hash from the block's stored fields.
func (b Block) ComputeHash() string {
	return Hash(b.Index, b.Timestamp, b.Transactions, b.PrevHash, b.Nonce)
}

// ValidateBlock checks the block against its parent and the difficulty
// target. The genesis block has no parent and is never validated.
func (b Block) ValidateBlock(previousBlock Block, difficulty uint) error {
	if b.ComputeHash() != b.Hash {
		return ErrHashMismatch
	}

	if b.PrevHash != previousBlock.Hash {
		return ErrPrevHashMismatch
	}

	if !isHashSolved(difficulty, b.Hash) {
		return ErrDifficultyNotMet
	}

	return nil
}

// MerkleRoot returns the root hash of a merkle tree built from the block's
// transactions.
func (b Block) MerkleRoot() (string, error) {
	tree, err := merkle.NewTree(b.Transactions)
	if err != nil {
		return "", err
	}

	return tree.RootHex(), nil
}

// Proof returns the merkle proof that the transaction at the specified
// index is part of this block.
func (b Block) Proof(txIndex int) (root []byte, proof [][]byte, order []int64, err error) {
	tree, err := merkle.NewTree(b.Transactions)
	if err != nil {
		return nil, nil, nil, err
	}

	proof, order, err = tree.Proof(txIndex)
	if err != nil {
		return nil, nil, nil, err
	}

	return tree.Root(), proof, order, nil
}

// String implements the fmt.Stringer interface for logging.
func (b Block) String() string {
	return fmt.Sprintf("%d:%s", b.Index, b.Hash)
}

// clone returns a copy that shares no memory with the original.
func (b Block) clone() Block {
	b.Transactions = copyTransactions(b.Transactions)
	return b
}

// =============================================================================

// header is the canonical, ordered representation of a block that is hashed.
// The transactions are pre-encoded so the mining loop only re-encodes the
// small fixed part of the header for each nonce.
type header struct {
	Index        uint64
	Timestamp    uint64
	Transactions rlp.RawValue
	PrevHash     string
	Nonce        uint64
}

// Hash produces the block hash from its fields. The fields are serialized
// in a fixed order with length prefixes and hashed with sha256. The result
// is a 64 character hex string.
func Hash(index uint64, timestamp uint64, transactions []Transaction, prevHash string, nonce uint64) string {
	h := header{
		Index:        index,
		Timestamp:    timestamp,
		Transactions: encodeTransactions(transactions),
		PrevHash:     prevHash,
		Nonce:        nonce,
	}

	return signature.Hash(h)
}

// encodeTransactions produces the canonical encoding of the ordered list
// of transactions.
func encodeTransactions(transactions []Transaction) rlp.RawValue {
	if transactions == nil {
		transactions = []Transaction{}
	}

	data, err := rlp.EncodeToBytes(transactions)
	if err != nil {
		panic(fmt.Sprintf("chain: transaction encoding: %s", err))
	}

	return data
}
