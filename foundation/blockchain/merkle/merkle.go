// Package merkle provides an implementation of a merkle tree for proving a
// transaction is part of a block.
package merkle

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"hash"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Hashable represents the behavior concrete data must exhibit to be used in
// the merkle tree.
type Hashable interface {
	Hash() ([]byte, error)
}

// Order values for a proof step.
const (
	ProofFirst  = 0 // Proof hash is concatenated before the running hash.
	ProofSecond = 1 // Proof hash is concatenated after the running hash.
)

// =============================================================================

// Tree represents a merkle tree that uses data of some type T that exhibits the
// behavior defined by the Hashable constraint. Level 0 holds the leaf hashes
// and the last level holds the single root hash. A level with an odd number of
// nodes pairs its last node with itself.
type Tree[T Hashable] struct {
	values       []T
	levels       [][][]byte
	hashStrategy func() hash.Hash
}

// WithHashStrategy is used to change the default hash strategy of using sha256
// when constructing a new tree.
func WithHashStrategy[T Hashable](hashStrategy func() hash.Hash) func(t *Tree[T]) {
	return func(t *Tree[T]) {
		t.hashStrategy = hashStrategy
	}
}

// NewTree constructs a new merkle tree that uses data of some type T that
// exhibits the behavior defined by the Hashable interface. A tree with no
// values has the hash of empty input as its root.
func NewTree[T Hashable](values []T, options ...func(t *Tree[T])) (*Tree[T], error) {
	t := Tree[T]{
		hashStrategy: sha256.New,
	}

	for _, option := range options {
		option(&t)
	}

	if err := t.generate(values); err != nil {
		return nil, err
	}

	return &t, nil
}

// Root returns the merkle root hash.
func (t *Tree[T]) Root() []byte {
	top := t.levels[len(t.levels)-1]
	return top[0]
}

// RootHex converts the merkle root byte hash to a hex encoded string.
func (t *Tree[T]) RootHex() string {
	return hexutil.Encode(t.Root())
}

// Values returns a copy of the values stored in the tree.
func (t *Tree[T]) Values() []T {
	values := make([]T, len(t.values))
	copy(values, t.values)
	return values
}

// Proof returns the set of hashes and the order of concatenating those hashes
// for proving the value at the specified index is in the tree. Starting with
// the hash of the value, each proof hash is concatenated before (ProofFirst)
// or after (ProofSecond) the running hash and hashed again. The final hash
// must match the merkle root.
func (t *Tree[T]) Proof(index int) ([][]byte, []int64, error) {
	if index < 0 || index >= len(t.values) {
		return nil, nil, fmt.Errorf("index %d out of range, values %d", index, len(t.values))
	}

	var proof [][]byte
	var order []int64

	for _, level := range t.levels[:len(t.levels)-1] {
		sibling := index ^ 1
		if sibling >= len(level) {
			sibling = index
		}

		proof = append(proof, level[sibling])
		if index%2 == 0 {
			order = append(order, ProofSecond)
		} else {
			order = append(order, ProofFirst)
		}

		index /= 2
	}

	return proof, order, nil
}

// Verify recalculates the tree from the stored values and confirms the
// resulting root matches the current root.
func (t *Tree[T]) Verify() error {
	cpy := Tree[T]{hashStrategy: t.hashStrategy}
	if err := cpy.generate(t.values); err != nil {
		return err
	}

	if !bytes.Equal(cpy.Root(), t.Root()) {
		return errors.New("root hash invalid")
	}

	return nil
}

// =============================================================================

// VerifyProof reports whether the leaf hash combined with the proof produces
// the specified root using sha256.
func VerifyProof(root []byte, leaf []byte, proof [][]byte, order []int64) bool {
	return VerifyProofWithStrategy(sha256.New, root, leaf, proof, order)
}

// VerifyProofWithStrategy is VerifyProof for trees built with a different
// hash strategy.
func VerifyProofWithStrategy(hashStrategy func() hash.Hash, root []byte, leaf []byte, proof [][]byte, order []int64) bool {
	if len(proof) != len(order) {
		return false
	}

	sum := leaf
	for i, p := range proof {
		var data []byte
		switch order[i] {
		case ProofFirst:
			data = concat(p, sum)
		case ProofSecond:
			data = concat(sum, p)
		default:
			return false
		}

		h := hashStrategy()
		h.Write(data)
		sum = h.Sum(nil)
	}

	return bytes.Equal(sum, root)
}

// =============================================================================

// generate constructs the levels of the tree from the specified data.
func (t *Tree[T]) generate(values []T) error {
	if len(values) == 0 {
		h := t.hashStrategy()
		t.values = nil
		t.levels = [][][]byte{{h.Sum(nil)}}
		return nil
	}

	leafs := make([][]byte, len(values))
	for i, value := range values {
		hash, err := value.Hash()
		if err != nil {
			return fmt.Errorf("hashing value %d: %w", i, err)
		}
		leafs[i] = hash
	}

	levels := [][][]byte{leafs}
	for current := leafs; len(current) > 1; {
		next := make([][]byte, 0, (len(current)+1)/2)

		for i := 0; i < len(current); i += 2 {
			left, right := current[i], current[i]
			if i+1 < len(current) {
				right = current[i+1]
			}

			h := t.hashStrategy()
			if _, err := h.Write(concat(left, right)); err != nil {
				return err
			}
			next = append(next, h.Sum(nil))
		}

		levels = append(levels, next)
		current = next
	}

	t.values = make([]T, len(values))
	copy(t.values, values)
	t.levels = levels

	return nil
}

// concat joins two hashes into a new slice so neither input is aliased.
func concat(a, b []byte) []byte {
	out := make([]byte, 0, len(a)+len(b))
	out = append(out, a...)
	return append(out, b...)
}
