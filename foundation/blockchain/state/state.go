// Package state is the core API for the blockchain and implements all the
// business rules and processing.
package state

import (
	"fmt"
	"sync"

	"github.com/ardanlabs/ledger/foundation/blockchain/accounts"
	"github.com/ardanlabs/ledger/foundation/blockchain/chain"
	"github.com/ardanlabs/ledger/foundation/blockchain/contract"
	"github.com/ardanlabs/ledger/foundation/blockchain/genesis"
	"github.com/ardanlabs/ledger/foundation/blockchain/mempool"
)

// EventHandler defines a function that is called when events
// occur in the processing of blocks.
type EventHandler func(v string, args ...any)

// Worker interface represents the behavior required to be implemented by any
// package providing support for mining.
type Worker interface {
	Shutdown()
	SignalStartMining()
}

// =============================================================================

// Config represents the configuration required to start
// the blockchain node.
type Config struct {
	Genesis      genesis.Genesis
	MinerWorkers int
	EvHandler    EventHandler
}

// State manages the blockchain held in memory.
type State struct {
	evHandler EventHandler
	mu        sync.Mutex

	genesis  genesis.Genesis
	chain    *chain.Chain
	mempool  *mempool.Mempool
	accounts *accounts.Accounts
	vm       *contract.VM

	Worker Worker
}

// New constructs a new blockchain for data management.
func New(cfg Config) (*State, error) {

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	if err := cfg.Genesis.Validate(); err != nil {
		return nil, fmt.Errorf("validating genesis: %w", err)
	}

	workers := cfg.MinerWorkers
	if workers < 1 {
		workers = 1
	}

	options := []chain.Option{
		chain.WithWorkers(workers),
		chain.WithEvHandler(ev),
	}

	// The genesis date anchors the genesis block so every node started from
	// the same file agrees on the first hash.
	if !cfg.Genesis.Date.IsZero() {
		options = append(options, chain.WithGenesisTime(cfg.Genesis.Date))
	}

	chn, err := chain.New(uint(cfg.Genesis.Difficulty), options...)
	if err != nil {
		return nil, fmt.Errorf("constructing chain: %w", err)
	}

	state := State{
		evHandler: ev,

		genesis:  cfg.Genesis,
		chain:    chn,
		mempool:  mempool.New(),
		accounts: accounts.New(cfg.Genesis),
		vm:       contract.NewVM(ev),
	}

	// The Worker is not set here. The call to worker.Run will assign itself
	// and start everything up and running for the node.

	return &state, nil
}

// Shutdown cleanly brings the node down.
func (s *State) Shutdown() error {
	s.evHandler("state: shutdown: started")
	defer s.evHandler("state: shutdown: completed")

	// Stop all blockchain writing activity.
	if s.Worker != nil {
		s.Worker.Shutdown()
	}

	return nil
}
