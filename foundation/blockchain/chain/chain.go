// Package chain maintains the ordered sequence of blocks, the proof of work
// used to mine them and the rules used to validate the sequence.
package chain

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ardanlabs/ledger/foundation/blockchain/signature"
)

// MaxDifficulty is the largest difficulty a chain can be configured with.
const MaxDifficulty = signature.HashLength

// Set of errors returned when validating blocks.
var (
	ErrHashMismatch     = errors.New("block hash does not match its contents")
	ErrPrevHashMismatch = errors.New("previous hash does not match parent block")
	ErrDifficultyNotMet = errors.New("block hash does not satisfy difficulty")
	ErrBlockNotFound    = errors.New("block not found")
)

// ValidationError identifies the first block that failed validation.
type ValidationError struct {
	Index uint64
	Err   error
}

// Error implements the error interface.
func (ve *ValidationError) Error() string {
	return fmt.Sprintf("block %d: %s", ve.Index, ve.Err)
}

// Unwrap returns the underlying validation failure.
func (ve *ValidationError) Unwrap() error {
	return ve.Err
}

// =============================================================================

// Option represents a function that changes the default chain settings.
type Option func(c *Chain)

// WithWorkers sets the number of goroutines used to mine a block.
func WithWorkers(workers int) Option {
	return func(c *Chain) {
		c.workers = workers
	}
}

// WithGenesisTime sets the timestamp recorded in the genesis block.
func WithGenesisTime(t time.Time) Option {
	return func(c *Chain) {
		c.genesisTime = t
	}
}

// WithEvHandler sets the handler that receives mining events.
func WithEvHandler(ev EventHandler) Option {
	return func(c *Chain) {
		c.evHandler = ev
	}
}

// Chain is an append only sequence of blocks. Reads can happen while a
// block is being mined. Only one block is mined at a time.
type Chain struct {
	difficulty  uint
	workers     int
	genesisTime time.Time
	evHandler   EventHandler

	writeMu sync.Mutex
	mu      sync.RWMutex
	blocks  []Block
}

// New constructs a chain holding only the genesis block.
func New(difficulty uint, options ...Option) (*Chain, error) {
	if difficulty > MaxDifficulty {
		return nil, fmt.Errorf("difficulty %d exceeds maximum %d", difficulty, MaxDifficulty)
	}

	c := Chain{
		difficulty:  difficulty,
		workers:     1,
		genesisTime: time.Now(),
		evHandler:   func(v string, args ...any) {},
	}

	for _, option := range options {
		option(&c)
	}

	genesis := Block{
		Index:     0,
		Timestamp: uint64(c.genesisTime.UTC().Unix()),
		PrevHash:  GenesisPrevHash,
		Nonce:     0,
	}
	genesis.Hash = genesis.ComputeHash()

	c.blocks = []Block{genesis}

	c.evHandler("chain: New: genesis[%s] difficulty[%d]", genesis.Hash, difficulty)

	return &c, nil
}

// AddBlock mines a new block containing the transactions and appends it to
// the chain. Readers are not blocked while mining is in progress. If the
// context is cancelled the chain is left unchanged.
func (c *Chain) AddBlock(ctx context.Context, transactions []Transaction) (Block, error) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	prev := c.LatestBlock()

	candidate := Block{
		Index:        prev.Index + 1,
		Timestamp:    uint64(time.Now().UTC().Unix()),
		Transactions: copyTransactions(transactions),
		PrevHash:     prev.Hash,
	}

	block, _, err := Mine(ctx, candidate, c.difficulty, c.workers, c.evHandler)
	if err != nil {
		return Block{}, fmt.Errorf("mining block %d: %w", candidate.Index, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.blocks = append(c.blocks, block)

	c.evHandler("chain: AddBlock: block[%s] txs[%d]", block, len(block.Transactions))

	return block.clone(), nil
}

// Validate walks the chain and returns a ValidationError for the first block
// that fails a check. The genesis block is not checked.
func (c *Chain) Validate() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return ValidateBlocks(c.blocks, c.difficulty)
}

// IsValid reports whether every block in the chain passes validation.
func (c *Chain) IsValid() bool {
	return c.Validate() == nil
}

// =============================================================================

// Difficulty returns the number of leading zero hex digits required.
func (c *Chain) Difficulty() uint {
	return c.difficulty
}

// Length returns the number of blocks including genesis.
func (c *Chain) Length() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.blocks)
}

// Genesis returns the first block in the chain.
func (c *Chain) Genesis() Block {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.blocks[0].clone()
}

// LatestBlock returns the last block appended to the chain.
func (c *Chain) LatestBlock() Block {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.blocks[len(c.blocks)-1].clone()
}

// BlockByIndex returns the block at the specified index.
func (c *Chain) BlockByIndex(index uint64) (Block, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if index >= uint64(len(c.blocks)) {
		return Block{}, ErrBlockNotFound
	}

	return c.blocks[index].clone(), nil
}

// Blocks returns a copy of every block in the chain.
func (c *Chain) Blocks() []Block {
	c.mu.RLock()
	defer c.mu.RUnlock()

	blocks := make([]Block, len(c.blocks))
	for i, b := range c.blocks {
		blocks[i] = b.clone()
	}

	return blocks
}

// BlocksRange returns a copy of the blocks from the starting index through
// the ending index inclusive. The range is trimmed to the chain length.
func (c *Chain) BlocksRange(from uint64, to uint64) []Block {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var blocks []Block
	for i := from; i <= to && i < uint64(len(c.blocks)); i++ {
		blocks = append(blocks, c.blocks[i].clone())
	}

	return blocks
}

// =============================================================================

// ValidateBlocks checks each block after genesis against its parent and the
// difficulty target.
func ValidateBlocks(blocks []Block, difficulty uint) error {
	for i := 1; i < len(blocks); i++ {
		if err := blocks[i].ValidateBlock(blocks[i-1], difficulty); err != nil {
			return &ValidationError{Index: uint64(i), Err: err}
		}
	}

	return nil
}
