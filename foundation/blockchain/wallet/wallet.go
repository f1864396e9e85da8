// Package wallet provides the key pair and identity used to authorize
// transactions on the ledger.
package wallet

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/ardanlabs/ledger/foundation/blockchain/signature"
	"github.com/ethereum/go-ethereum/crypto"
)

// KeyExtension is the file extension used for stored private keys.
const KeyExtension = ".ecdsa"

// Wallet owns a private key and exposes the public identity derived from it.
// A Wallet holds no mutable state and is safe for concurrent use.
type Wallet struct {
	privateKey *ecdsa.PrivateKey
	address    string
}

// New generates a fresh key pair. An error here means the system entropy
// source failed and the caller should not continue.
func New() (*Wallet, error) {
	privateKey, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("generating key: %w", err)
	}

	return fromPrivateKey(privateKey), nil
}

// FromHex constructs a wallet from a hex-encoded private key.
func FromHex(hexKey string) (*Wallet, error) {
	privateKey, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fmt.Errorf("decoding key: %w", err)
	}

	return fromPrivateKey(privateKey), nil
}

// Load reads a private key from the specified file.
func Load(path string) (*Wallet, error) {
	privateKey, err := crypto.LoadECDSA(path)
	if err != nil {
		return nil, fmt.Errorf("loading key %q: %w", path, err)
	}

	return fromPrivateKey(privateKey), nil
}

// Save writes the private key to the specified file with restrictive
// permissions.
func (w *Wallet) Save(path string) error {
	if err := crypto.SaveECDSA(path, w.privateKey); err != nil {
		return fmt.Errorf("saving key %q: %w", path, err)
	}

	return nil
}

// Address returns the chain visible identity for this wallet.
func (w *Wallet) Address() string {
	return w.address
}

// PublicKey returns the uncompressed public key which can be freely shared.
func (w *Wallet) PublicKey() []byte {
	return signature.PublicKeyBytes(w.privateKey.PublicKey)
}

// Sign produces a signature over the digest of the message.
func (w *Wallet) Sign(message []byte) ([]byte, error) {
	return signature.Sign(message, w.privateKey)
}

// VerifySignature reports whether sig is a valid signature of message by
// the owner of publicKey. Verification failure is an expected outcome and
// never an error.
func VerifySignature(publicKey []byte, message []byte, sig []byte) bool {
	return signature.VerifySignature(publicKey, message, sig)
}

// =============================================================================

func fromPrivateKey(privateKey *ecdsa.PrivateKey) *Wallet {
	return &Wallet{
		privateKey: privateKey,
		address:    signature.PublicKeyToAddress(privateKey.PublicKey),
	}
}
