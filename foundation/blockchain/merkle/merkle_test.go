package merkle_test

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/ardanlabs/ledger/foundation/blockchain/merkle"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

// Data uses the sha256 hashing algorithm for the merkle tree.
type Data struct {
	x string
}

// Hash hashes the values using sha256.
func (d Data) Hash() ([]byte, error) {
	h := sha256.Sum256([]byte(d.x))
	return h[:], nil
}

func values(xs ...string) []Data {
	data := make([]Data, len(xs))
	for i, x := range xs {
		data[i] = Data{x: x}
	}
	return data
}

// =============================================================================

func Test_MerkleRoot(t *testing.T) {
	tt := []struct {
		name string
		data []Data
		root string
	}{
		{"even", values("Hello", "Hi", "Hey", "Hola"), "5f30cc80133b9394156e24b233f0c4be32b24e44bb3381f02c7ba52619d0febc"},
		{"odd", values("Hello", "Hi", "Hey"), "bdd637c523ed5c0eab792b986db18850c239a2e23802b36aff26bb68fb3fe008"},
		{"single", values("Hello"), "185f8db32271fe25f561a6fc938b2e264306ec304eda518007d1764826381969"},
		{"empty", nil, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"},
	}

	t.Log("Given the need to calculate a merkle root.")
	{
		for testID, tst := range tt {
			f := func(t *testing.T) {
				tree, err := merkle.NewTree(tst.data)
				if err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould be able to build the tree: %v", failed, testID, err)
				}

				got := hex.EncodeToString(tree.Root())
				if got != tst.root {
					t.Logf("\t%s\tTest %d:\tgot: %s", failed, testID, got)
					t.Logf("\t%s\tTest %d:\texp: %s", failed, testID, tst.root)
					t.Fatalf("\t%s\tTest %d:\tShould get the expected root.", failed, testID)
				}
				t.Logf("\t%s\tTest %d:\tShould get the expected root.", success, testID)

				if tree.RootHex() != "0x"+tst.root {
					t.Fatalf("\t%s\tTest %d:\tShould render the root as hex.", failed, testID)
				}

				if err := tree.Verify(); err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould verify the tree: %v", failed, testID, err)
				}
			}

			t.Run(tst.name, f)
		}
	}
}

func Test_Proof(t *testing.T) {
	for _, n := range []int{1, 2, 3, 5, 8} {
		var xs []string
		for i := 0; i < n; i++ {
			xs = append(xs, string(rune('a'+i)))
		}
		data := values(xs...)

		tree, err := merkle.NewTree(data)
		if err != nil {
			t.Fatalf("Should be able to build the tree: %v", err)
		}

		for i, d := range data {
			proof, order, err := tree.Proof(i)
			if err != nil {
				t.Fatalf("n=%d i=%d: Should be able to produce a proof: %v", n, i, err)
			}

			leaf, _ := d.Hash()
			if !merkle.VerifyProof(tree.Root(), leaf, proof, order) {
				t.Fatalf("n=%d i=%d: Should verify the proof.", n, i)
			}

			other, _ := Data{x: "zzz"}.Hash()
			if merkle.VerifyProof(tree.Root(), other, proof, order) {
				t.Fatalf("n=%d i=%d: Should not verify a value not in the tree.", n, i)
			}
		}

		if _, _, err := tree.Proof(n); err == nil {
			t.Fatalf("n=%d: Should fail for an index out of range.", n)
		}
	}
}

func Test_HashStrategy(t *testing.T) {
	data := values("Hello", "Hi", "Hey")

	tree, err := merkle.NewTree(data, merkle.WithHashStrategy[Data](md5.New))
	if err != nil {
		t.Fatalf("Should be able to build the tree: %v", err)
	}

	if len(tree.Root()) != md5.Size {
		t.Fatalf("Should produce a root with the strategy's size, got %d", len(tree.Root()))
	}

	proof, order, err := tree.Proof(2)
	if err != nil {
		t.Fatalf("Should be able to produce a proof: %v", err)
	}

	leaf, _ := data[2].Hash()
	if !merkle.VerifyProofWithStrategy(md5.New, tree.Root(), leaf, proof, order) {
		t.Fatalf("Should verify the proof with the same strategy.")
	}

	if merkle.VerifyProof(tree.Root(), leaf, proof, order) {
		t.Fatalf("Should not verify the proof with a different strategy.")
	}
}

func Test_Values(t *testing.T) {
	data := values("Hello", "Hi", "Hey")

	tree, err := merkle.NewTree(data)
	if err != nil {
		t.Fatalf("Should be able to build the tree: %v", err)
	}

	got := tree.Values()
	if len(got) != len(data) {
		t.Fatalf("Should get back %d values, got %d", len(data), len(got))
	}

	got[0] = Data{x: "changed"}
	if tree.Values()[0].x != "Hello" {
		t.Fatalf("Should return a copy of the values.")
	}
}
