// Package signature provides helper functions for handling the blockchain
// hashing and signature needs.
package signature

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
)

// HashLength is the number of hex characters in a hash produced by Hash.
const HashLength = 2 * sha256.Size

// ZeroHash represents a hash code of zeros.
const ZeroHash string = "0000000000000000000000000000000000000000000000000000000000000000"

// SignatureLength is the size of a signature in the [R|S|V] format.
const SignatureLength = crypto.SignatureLength

// ledgerStamp is mixed into every digest we sign. This will make it clear
// that the signature comes from the Ardan ledger. Ethereum and Bitcoin do
// this as well with their own prefix.
const ledgerStamp = "\x19Ardan Ledger Signed Message:\n32"

// =============================================================================

// Hash returns a unique string for the value. The value is serialized with
// RLP which encodes struct fields in declaration order with length prefixes,
// so the same value always produces the same bytes. Only types RLP can encode
// are allowed: a failure here is a programming error.
func Hash(value any) string {
	data, err := rlp.EncodeToBytes(value)
	if err != nil {
		panic(fmt.Sprintf("signature: hash encoding: %s", err))
	}

	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// Sign uses the specified private key to sign the message. The signature
// is returned in the 65 byte [R|S|V] format.
func Sign(message []byte, privateKey *ecdsa.PrivateKey) ([]byte, error) {
	if privateKey == nil {
		return nil, errors.New("private key is nil")
	}

	data := stamp(message)

	sig, err := crypto.Sign(data, privateKey)
	if err != nil {
		return nil, err
	}

	// Check the public key extracted from the data and signature.
	publicKey, err := crypto.SigToPub(data, sig)
	if err != nil {
		return nil, err
	}

	if !crypto.VerifySignature(crypto.FromECDSAPub(publicKey), data, sig[:crypto.RecoveryIDOffset]) {
		return nil, errors.New("invalid signature")
	}

	return sig, nil
}

// VerifySignature reports whether sig is a valid signature of message by
// the owner of publicKey. Any malformed input simply fails verification.
func VerifySignature(publicKey []byte, message []byte, sig []byte) bool {
	if len(sig) != SignatureLength || len(publicKey) == 0 {
		return false
	}

	// The recovery id is not part of the verification.
	if sig[crypto.RecoveryIDOffset] > 1 {
		return false
	}

	return crypto.VerifySignature(publicKey, stamp(message), sig[:crypto.RecoveryIDOffset])
}

// FromAddress extracts the address for the account that signed the message.
func FromAddress(message []byte, sig []byte) (string, error) {

	// NOTE: If the same exact message for the given signature is not provided
	// we will get the wrong address back. The public key is being extracted
	// from the message and signature.

	if len(sig) != SignatureLength {
		return "", fmt.Errorf("invalid signature length %d", len(sig))
	}

	publicKey, err := crypto.SigToPub(stamp(message), sig)
	if err != nil {
		return "", err
	}

	return PublicKeyToAddress(*publicKey), nil
}

// PublicKeyToAddress converts the public key to an address string.
func PublicKeyToAddress(pk ecdsa.PublicKey) string {
	return crypto.PubkeyToAddress(pk).Hex()
}

// PublicKeyBytes returns the uncompressed 65 byte form of the public key.
func PublicKeyBytes(pk ecdsa.PublicKey) []byte {
	return crypto.FromECDSAPub(&pk)
}

// IsAddress verifies whether the string is a properly formatted address.
func IsAddress(s string) bool {
	if len(s) < 2 || s[0] != '0' || (s[1] != 'x' && s[1] != 'X') {
		return false
	}

	return common.IsHexAddress(s)
}

// ToAddress returns the checksummed form of a hex address so the same
// account always maps to the same key. Values that are not hex addresses
// are returned unchanged.
func ToAddress(s string) string {
	if !common.IsHexAddress(s) {
		return s
	}

	return common.HexToAddress(s).Hex()
}

// =============================================================================

// stamp returns a hash of 32 bytes that represents this message with
// the ledger stamp embedded into the final hash.
func stamp(message []byte) []byte {

	// Hash the message into a 32 byte array. This will provide
	// a data length consistency with all messages.
	msgHash := crypto.Keccak256(message)

	// Hash the stamp and msgHash together in a final 32 byte array
	// that represents the message.
	return crypto.Keccak256([]byte(ledgerStamp), msgHash)
}
