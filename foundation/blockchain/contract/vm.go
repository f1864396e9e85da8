package contract

import (
	"fmt"
	"slices"
	"sync"

	"github.com/ardanlabs/ledger/foundation/blockchain/signature"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
)

// EventHandler defines a function that is called when events occur in the
// processing of contracts.
type EventHandler func(v string, args ...any)

// VM manages the set of deployed contracts. The VM lock only guards the
// contract registry, each contract guards its own state.
type VM struct {
	evHandler EventHandler

	mu        sync.RWMutex
	contracts map[string]*Contract
	sequence  uint64
	nonces    map[string]uint64
}

// NewVM constructs a VM with no contracts deployed.
func NewVM(ev EventHandler) *VM {
	if ev == nil {
		ev = func(v string, args ...any) {}
	}

	return &VM{
		evHandler: ev,
		contracts: make(map[string]*Contract),
		nonces:    make(map[string]uint64),
	}
}

// DeployContract creates a contract with empty state and returns its address.
func (vm *VM) DeployContract(owner string, code []byte) string {
	vm.mu.Lock()
	defer vm.mu.Unlock()

	return vm.deploy(owner, code).address
}

// Deploy verifies a signed deployment and creates the contract seeded with
// the deployment balances. The nonce must be greater than the last one
// accepted from the owner.
func (vm *VM) Deploy(d Deployment) (string, error) {
	if err := d.VerifySignature(); err != nil {
		return "", err
	}

	vm.mu.Lock()
	defer vm.mu.Unlock()

	owner := signature.ToAddress(d.Owner)
	if d.Nonce <= vm.nonces[owner] {
		return "", fmt.Errorf("%w: got %d, exp > %d", ErrInvalidNonce, d.Nonce, vm.nonces[owner])
	}
	vm.nonces[owner] = d.Nonce

	c := vm.deploy(owner, d.Code)
	for account, amount := range d.Balances {
		c.Seed(account, amount)
	}

	return c.address, nil
}

// deploy creates the contract. The caller must hold the VM lock.
func (vm *VM) deploy(owner string, code []byte) *Contract {
	vm.sequence++
	address := contractAddress(owner, vm.sequence)

	c := newContract(address, owner, code)
	vm.contracts[address] = c

	vm.evHandler("contract: DeployContract: address[%s] owner[%s] code[%d]", address, owner, len(code))

	return c
}

// Contract returns the contract deployed at the address.
func (vm *VM) Contract(address string) (*Contract, error) {
	vm.mu.RLock()
	defer vm.mu.RUnlock()

	c, exists := vm.contracts[address]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrContractNotFound, address)
	}

	return c, nil
}

// Addresses returns the sorted addresses of every deployed contract.
func (vm *VM) Addresses() []string {
	vm.mu.RLock()
	defer vm.mu.RUnlock()

	addresses := make([]string, 0, len(vm.contracts))
	for address := range vm.contracts {
		addresses = append(addresses, address)
	}
	slices.Sort(addresses)

	return addresses
}

// Call executes the operation against the contract at the address.
func (vm *VM) Call(address string, op Operation) (Result, error) {
	c, err := vm.Contract(address)
	if err != nil {
		return Result{}, err
	}

	result, err := c.Execute(op)
	if err != nil {
		vm.evHandler("contract: Call: address[%s] method[%s] ERROR: %s", address, op.Method(), err)
		return Result{}, err
	}

	vm.evHandler("contract: Call: address[%s] method[%s] result[%s:%d]", address, op.Method(), result.Address, result.Balance)

	return result, nil
}

// Execute verifies a signed call and runs its operation. Only the contract
// owner may call a contract.
func (vm *VM) Execute(call Call) (Result, error) {
	if err := call.VerifySignature(); err != nil {
		return Result{}, err
	}

	c, err := vm.Contract(call.Contract)
	if err != nil {
		return Result{}, err
	}

	result, err := c.executeCall(call.From, call.Nonce, call.Operation)
	if err != nil {
		vm.evHandler("contract: Execute: address[%s] from[%s] method[%s] ERROR: %s", call.Contract, call.From, call.Operation.Method(), err)
		return Result{}, err
	}

	vm.evHandler("contract: Execute: address[%s] from[%s] method[%s] result[%s:%d]", call.Contract, call.From, call.Operation.Method(), result.Address, result.Balance)

	return result, nil
}

// CallContract decodes the method and positional arguments into an operation
// and executes it against the contract at the address. A single map argument
// is treated as named arguments.
func (vm *VM) CallContract(address string, method string, args ...any) (Result, error) {
	if _, err := vm.Contract(address); err != nil {
		return Result{}, err
	}

	op, err := DecodeArgs(method, args...)
	if err != nil {
		return Result{}, err
	}

	return vm.Call(address, op)
}

// =============================================================================

// contractAddress derives an address from the owner and the deployment
// sequence.
func contractAddress(owner string, sequence uint64) string {
	data, err := rlp.EncodeToBytes(struct {
		Owner    string
		Sequence uint64
	}{
		Owner:    owner,
		Sequence: sequence,
	})
	if err != nil {
		panic(fmt.Sprintf("contract: address encoding: %s", err))
	}

	return common.BytesToAddress(crypto.Keccak256(data)[12:]).Hex()
}
