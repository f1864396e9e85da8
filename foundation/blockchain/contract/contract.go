// Package contract implements a minimal contract virtual machine. Each
// contract owns an isolated balance table that is changed through a fixed
// set of operations.
package contract

import (
	"errors"
	"fmt"
	"maps"
	"math"
	"sync"

	"github.com/ardanlabs/ledger/foundation/blockchain/signature"
)

// Set of errors returned by contract execution.
var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrMethodNotFound      = errors.New("method not found")
	ErrContractNotFound    = errors.New("contract not found")
	ErrInvalidArguments    = errors.New("invalid arguments")
	ErrBalanceOverflow     = errors.New("balance overflow")
)

// Set of method names that can be called on a contract.
const (
	MethodTransfer   = "transfer"
	MethodGetBalance = "getBalance"
)

// =============================================================================

// Operation represents the closed set of operations a contract can execute.
type Operation interface {
	Method() string
	operation()
}

// Transfer moves an amount from the contract owner's balance to another
// address.
type Transfer struct {
	To     string `mapstructure:"to" json:"to"`
	Amount uint64 `mapstructure:"amount" json:"amount"`
}

// Method implements the Operation interface.
func (Transfer) Method() string { return MethodTransfer }
func (Transfer) operation()     {}

// GetBalance reads the balance of an address.
type GetBalance struct {
	Address string `mapstructure:"address" json:"address"`
}

// Method implements the Operation interface.
func (GetBalance) Method() string { return MethodGetBalance }
func (GetBalance) operation()     {}

// Result is the outcome of executing an operation. For a transfer it holds
// the owner's balance after the debit.
type Result struct {
	Address string `json:"address"`
	Balance uint64 `json:"balance"`
}

// =============================================================================

// Contract is an isolated state container. All access to its state is
// serialized by the contract's own lock. Hex addresses are stored in their
// checksummed form.
type Contract struct {
	address string
	owner   string
	code    []byte

	mu     sync.Mutex
	state  map[string]uint64
	nonces map[string]uint64
}

func newContract(address string, owner string, code []byte) *Contract {
	return &Contract{
		address: address,
		owner:   signature.ToAddress(owner),
		code:    append([]byte(nil), code...),
		state:   make(map[string]uint64),
		nonces:  make(map[string]uint64),
	}
}

// Address returns the address the contract was deployed at.
func (c *Contract) Address() string {
	return c.address
}

// Owner returns the address of the account that deployed the contract.
func (c *Contract) Owner() string {
	return c.owner
}

// Code returns a copy of the opaque code provided at deployment.
func (c *Contract) Code() []byte {
	return append([]byte(nil), c.code...)
}

// Seed sets the balance for an address directly.
func (c *Contract) Seed(address string, amount uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state[signature.ToAddress(address)] = amount
}

// Balances returns a copy of the contract's balance table.
func (c *Contract) Balances() map[string]uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	return maps.Clone(c.state)
}

// Execute runs the operation against the contract's state. Preconditions
// are checked before any balance is written.
func (c *Contract) Execute(op Operation) (Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.execute(op)
}

// Nonce returns the last nonce accepted from the sender.
func (c *Contract) Nonce(from string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.nonces[signature.ToAddress(from)]
}

// executeCall runs an authorized call. The nonce must be greater than the
// last one accepted from the sender and is recorded only when the operation
// succeeds.
func (c *Contract) executeCall(from string, nonce uint64, op Operation) (Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	from = signature.ToAddress(from)
	if from != c.owner {
		return Result{}, fmt.Errorf("%w: %s", ErrUnauthorized, from)
	}

	if nonce <= c.nonces[from] {
		return Result{}, fmt.Errorf("%w: got %d, exp > %d", ErrInvalidNonce, nonce, c.nonces[from])
	}

	result, err := c.execute(op)
	if err != nil {
		return Result{}, err
	}

	c.nonces[from] = nonce

	return result, nil
}

// execute dispatches the operation. The caller must hold the contract lock.
func (c *Contract) execute(op Operation) (Result, error) {
	switch op := op.(type) {
	case Transfer:
		return c.transfer(op)

	case GetBalance:
		if op.Address == "" {
			return Result{}, fmt.Errorf("%w: address is required", ErrInvalidArguments)
		}
		address := signature.ToAddress(op.Address)
		return Result{Address: address, Balance: c.state[address]}, nil

	default:
		return Result{}, ErrMethodNotFound
	}
}

// transfer debits the owner and credits the recipient. The caller must hold
// the contract lock.
func (c *Contract) transfer(op Transfer) (Result, error) {
	if op.To == "" {
		return Result{}, fmt.Errorf("%w: to is required", ErrInvalidArguments)
	}
	recipient := signature.ToAddress(op.To)

	from := c.state[c.owner]
	if from < op.Amount {
		return Result{}, fmt.Errorf("%w: owner %s has %d, needs %d", ErrInsufficientBalance, c.owner, from, op.Amount)
	}

	if recipient == c.owner {
		return Result{Address: c.owner, Balance: from}, nil
	}

	to := c.state[recipient]
	if to > math.MaxUint64-op.Amount {
		return Result{}, fmt.Errorf("%w: crediting %s", ErrBalanceOverflow, recipient)
	}

	c.state[c.owner] = from - op.Amount
	c.state[recipient] = to + op.Amount

	return Result{Address: c.owner, Balance: c.state[c.owner]}, nil
}
