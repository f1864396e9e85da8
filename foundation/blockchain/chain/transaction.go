package chain

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/ardanlabs/ledger/foundation/blockchain/signature"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rlp"
)

// Set of errors returned when checking a transaction signature.
var (
	ErrUnsigned         = errors.New("transaction is not signed")
	ErrInvalidSignature = errors.New("transaction signature does not match sender")
)

// Signer represents the behavior required to sign a transaction. A wallet
// implements this interface.
type Signer interface {
	Address() string
	Sign(message []byte) ([]byte, error)
}

// =============================================================================

// Transaction is the transfer of value between two addresses. The field
// order is part of the hashing contract and must not change.
type Transaction struct {
	From      string        `json:"from"`                // Address of the account sending value.
	To        string        `json:"to"`                  // Address of the account receiving value.
	Amount    uint64        `json:"amount"`              // Value being transferred.
	Nonce     uint64        `json:"nonce"`               // Sequence number supplied by the sender.
	Signature hexutil.Bytes `json:"signature,omitempty"` // [R|S|V] signature over the signing message.
}

// NewTransaction constructs an unsigned transaction.
func NewTransaction(from string, to string, amount uint64, nonce uint64) Transaction {
	return Transaction{
		From:   from,
		To:     to,
		Amount: amount,
		Nonce:  nonce,
	}
}

// SigningMessage returns the canonical bytes that are signed for this
// transaction. The signature itself is not part of the message.
func (tx Transaction) SigningMessage() []byte {
	msg := struct {
		From   string
		To     string
		Amount uint64
		Nonce  uint64
	}{
		From:   tx.From,
		To:     tx.To,
		Amount: tx.Amount,
		Nonce:  tx.Nonce,
	}

	data, err := rlp.EncodeToBytes(msg)
	if err != nil {
		panic(fmt.Sprintf("chain: signing message encoding: %s", err))
	}

	return data
}

// Sign returns a copy of the transaction signed by the signer. The signer
// must be the sender of the transaction.
func (tx Transaction) Sign(signer Signer) (Transaction, error) {
	if !strings.EqualFold(signer.Address(), tx.From) {
		return Transaction{}, fmt.Errorf("signer %s is not the sender %s", signer.Address(), tx.From)
	}

	sig, err := signer.Sign(tx.SigningMessage())
	if err != nil {
		return Transaction{}, fmt.Errorf("signing transaction: %w", err)
	}

	tx.Signature = sig
	return tx, nil
}

// FromAddress extracts the address of the account that signed the transaction.
func (tx Transaction) FromAddress() (string, error) {
	if len(tx.Signature) == 0 {
		return "", ErrUnsigned
	}

	return signature.FromAddress(tx.SigningMessage(), tx.Signature)
}

// VerifySignature confirms the transaction was signed by the sender.
func (tx Transaction) VerifySignature() error {
	from, err := tx.FromAddress()
	if err != nil {
		if errors.Is(err, ErrUnsigned) {
			return err
		}
		return fmt.Errorf("%w: %s", ErrInvalidSignature, err)
	}

	if !strings.EqualFold(from, tx.From) {
		return ErrInvalidSignature
	}

	return nil
}

// ID returns the hex encoded hash that uniquely identifies the transaction.
func (tx Transaction) ID() string {
	return signature.Hash(tx)
}

// Hash implements the merkle Hashable interface for providing a hash
// of a transaction.
func (tx Transaction) Hash() ([]byte, error) {
	return hex.DecodeString(tx.ID())
}

// String implements the fmt.Stringer interface for logging.
func (tx Transaction) String() string {
	return fmt.Sprintf("%s:%d", tx.From, tx.Nonce)
}

// =============================================================================

// copyTransactions performs a deep copy so callers can't reach into the
// stored transactions of a block.
func copyTransactions(txs []Transaction) []Transaction {
	if txs == nil {
		return nil
	}

	out := make([]Transaction, len(txs))
	for i, tx := range txs {
		if tx.Signature != nil {
			tx.Signature = append(hexutil.Bytes(nil), tx.Signature...)
		}
		out[i] = tx
	}

	return out
}
