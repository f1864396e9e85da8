// Package accounts maintains account balances and other account information.
package accounts

import (
	"errors"
	"fmt"
	"maps"
	"math"
	"sync"

	"github.com/ardanlabs/ledger/foundation/blockchain/chain"
	"github.com/ardanlabs/ledger/foundation/blockchain/genesis"
	"github.com/ardanlabs/ledger/foundation/blockchain/signature"
)

// Set of errors returned when a transaction breaks an account rule.
var (
	ErrAccountNotFound   = errors.New("account not found")
	ErrInvalidNonce      = errors.New("invalid nonce")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrSelfTransfer      = errors.New("sending money to yourself")
	ErrBalanceOverflow   = errors.New("balance overflow")
)

// Info represents information stored for an individual account.
type Info struct {
	Balance uint64 `json:"balance"`
	Nonce   uint64 `json:"nonce"`
}

// Accounts manages data related to accounts who have transacted on
// the blockchain. Accounts are keyed by their checksummed address so the
// case an address is written in never splits an account.
type Accounts struct {
	genesis genesis.Genesis
	info    map[string]Info
	mu      sync.RWMutex
}

// New constructs accounts holding the genesis balances.
func New(genesis genesis.Genesis) *Accounts {
	accts := Accounts{
		genesis: genesis,
		info:    make(map[string]Info),
	}

	for addr, balance := range genesis.Balances {
		accts.info[signature.ToAddress(addr)] = Info{Balance: balance}
	}

	return &accts
}

// Reset re-initalizes the accounts back to the genesis information.
func (act *Accounts) Reset() {
	act.mu.Lock()
	defer act.mu.Unlock()

	act.info = make(map[string]Info)
	for addr, balance := range act.genesis.Balances {
		act.info[signature.ToAddress(addr)] = Info{Balance: balance}
	}
}

// Clone makes a copy of the current accounts.
func (act *Accounts) Clone() *Accounts {
	act.mu.RLock()
	defer act.mu.RUnlock()

	return &Accounts{
		genesis: act.genesis,
		info:    maps.Clone(act.info),
	}
}

// Copy makes a copy of the current information for all accounts.
func (act *Accounts) Copy() map[string]Info {
	act.mu.RLock()
	defer act.mu.RUnlock()

	return maps.Clone(act.info)
}

// Query returns the information for the specified account.
func (act *Accounts) Query(address string) (Info, error) {
	act.mu.RLock()
	defer act.mu.RUnlock()

	info, exists := act.info[signature.ToAddress(address)]
	if !exists {
		return Info{}, fmt.Errorf("%w: %s", ErrAccountNotFound, address)
	}

	return info, nil
}

// ValidateTransaction checks the transaction against the sender's current
// nonce and balance without changing anything.
func (act *Accounts) ValidateTransaction(tx chain.Transaction) error {
	act.mu.RLock()
	defer act.mu.RUnlock()

	return act.validate(tx)
}

// ApplyTransaction performs the business logic for applying a transaction
// to the accounts information. The signature must already be verified.
func (act *Accounts) ApplyTransaction(tx chain.Transaction) error {
	act.mu.Lock()
	defer act.mu.Unlock()

	if err := act.validate(tx); err != nil {
		return err
	}

	from := signature.ToAddress(tx.From)
	to := signature.ToAddress(tx.To)

	fromInfo := act.info[from]
	toInfo := act.info[to]

	fromInfo.Balance -= tx.Amount
	toInfo.Balance += tx.Amount
	fromInfo.Nonce = tx.Nonce

	act.info[from] = fromInfo
	act.info[to] = toInfo

	return nil
}

// validate performs the account checks. The caller must hold a lock.
func (act *Accounts) validate(tx chain.Transaction) error {
	from := signature.ToAddress(tx.From)
	to := signature.ToAddress(tx.To)

	if from == to {
		return fmt.Errorf("%w: from %s, to %s", ErrSelfTransfer, tx.From, tx.To)
	}

	fromInfo := act.info[from]
	if tx.Nonce <= fromInfo.Nonce {
		return fmt.Errorf("%w: got %d, exp > %d", ErrInvalidNonce, tx.Nonce, fromInfo.Nonce)
	}

	if tx.Amount > fromInfo.Balance {
		return fmt.Errorf("%w: %s has %d, needs %d", ErrInsufficientFunds, tx.From, fromInfo.Balance, tx.Amount)
	}

	if act.info[to].Balance > math.MaxUint64-tx.Amount {
		return fmt.Errorf("%w: crediting %s", ErrBalanceOverflow, tx.To)
	}

	return nil
}
