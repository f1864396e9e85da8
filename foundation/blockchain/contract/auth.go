package contract

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/ardanlabs/ledger/foundation/blockchain/signature"
	"github.com/ethereum/go-ethereum/rlp"
)

// Set of errors returned when authorizing a signed request.
var (
	ErrUnsigned         = errors.New("request is not signed")
	ErrInvalidSignature = errors.New("signature does not match sender")
	ErrUnauthorized     = errors.New("sender is not the contract owner")
	ErrInvalidNonce     = errors.New("invalid nonce")
)

// Signer represents the behavior required to sign a request. A wallet
// implements this interface.
type Signer interface {
	Address() string
	Sign(message []byte) ([]byte, error)
}

// =============================================================================

// Deployment is a signed request to deploy a contract owned by the signer
// with a starting balance table.
type Deployment struct {
	Owner     string
	Code      []byte
	Balances  map[string]uint64
	Nonce     uint64
	Signature []byte
}

// SigningMessage returns the canonical bytes that are signed for the
// deployment. Balances are encoded in account order.
func (d Deployment) SigningMessage() []byte {
	type balance struct {
		Account string
		Amount  uint64
	}

	accounts := make([]string, 0, len(d.Balances))
	for account := range d.Balances {
		accounts = append(accounts, account)
	}
	slices.Sort(accounts)

	balances := make([]balance, len(accounts))
	for i, account := range accounts {
		balances[i] = balance{Account: account, Amount: d.Balances[account]}
	}

	msg := struct {
		Owner    string
		Code     []byte
		Balances []balance
		Nonce    uint64
	}{
		Owner:    d.Owner,
		Code:     d.Code,
		Balances: balances,
		Nonce:    d.Nonce,
	}

	data, err := rlp.EncodeToBytes(msg)
	if err != nil {
		panic(fmt.Sprintf("contract: deployment encoding: %s", err))
	}

	return data
}

// Sign returns a copy of the deployment signed by the signer, who must be
// the owner.
func (d Deployment) Sign(signer Signer) (Deployment, error) {
	if !strings.EqualFold(signer.Address(), d.Owner) {
		return Deployment{}, fmt.Errorf("signer %s is not the owner %s", signer.Address(), d.Owner)
	}

	sig, err := signer.Sign(d.SigningMessage())
	if err != nil {
		return Deployment{}, fmt.Errorf("signing deployment: %w", err)
	}

	d.Signature = sig
	return d, nil
}

// VerifySignature confirms the deployment was signed by the owner.
func (d Deployment) VerifySignature() error {
	return verify(d.SigningMessage(), d.Signature, d.Owner)
}

// =============================================================================

// Call is a signed request to execute an operation against a contract.
type Call struct {
	Contract  string
	From      string
	Operation Operation
	Nonce     uint64
	Signature []byte
}

// NewCall constructs an unsigned call.
func NewCall(contract string, from string, op Operation, nonce uint64) Call {
	return Call{
		Contract:  contract,
		From:      from,
		Operation: op,
		Nonce:     nonce,
	}
}

// SigningMessage returns the canonical bytes that are signed for the call.
func (c Call) SigningMessage() ([]byte, error) {
	if c.Operation == nil {
		return nil, fmt.Errorf("%w: operation is required", ErrInvalidArguments)
	}

	op, err := rlp.EncodeToBytes(c.Operation)
	if err != nil {
		return nil, fmt.Errorf("encoding operation: %w", err)
	}

	msg := struct {
		Contract  string
		From      string
		Method    string
		Operation rlp.RawValue
		Nonce     uint64
	}{
		Contract:  c.Contract,
		From:      c.From,
		Method:    c.Operation.Method(),
		Operation: op,
		Nonce:     c.Nonce,
	}

	return rlp.EncodeToBytes(msg)
}

// Sign returns a copy of the call signed by the signer, who must be the
// sender.
func (c Call) Sign(signer Signer) (Call, error) {
	if !strings.EqualFold(signer.Address(), c.From) {
		return Call{}, fmt.Errorf("signer %s is not the sender %s", signer.Address(), c.From)
	}

	msg, err := c.SigningMessage()
	if err != nil {
		return Call{}, err
	}

	sig, err := signer.Sign(msg)
	if err != nil {
		return Call{}, fmt.Errorf("signing call: %w", err)
	}

	c.Signature = sig
	return c, nil
}

// VerifySignature confirms the call was signed by the sender.
func (c Call) VerifySignature() error {
	msg, err := c.SigningMessage()
	if err != nil {
		return err
	}

	return verify(msg, c.Signature, c.From)
}

// =============================================================================

// verify recovers the signer of the message and compares it to the
// expected address.
func verify(message []byte, sig []byte, expected string) error {
	if len(sig) == 0 {
		return ErrUnsigned
	}

	from, err := signature.FromAddress(message, sig)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidSignature, err)
	}

	if !strings.EqualFold(from, expected) {
		return fmt.Errorf("%w: signed by %s", ErrInvalidSignature, from)
	}

	return nil
}
