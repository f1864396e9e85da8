package nameservice_test

import (
	"path/filepath"
	"testing"

	"github.com/ardanlabs/ledger/foundation/blockchain/wallet"
	"github.com/ardanlabs/ledger/foundation/nameservice"
)

func Test_Lookup(t *testing.T) {
	root := t.TempDir()

	w, err := wallet.New()
	if err != nil {
		t.Fatalf("Should be able to generate a wallet: %v", err)
	}

	if err := w.Save(filepath.Join(root, "kennedy"+wallet.KeyExtension)); err != nil {
		t.Fatalf("Should be able to save the key: %v", err)
	}

	ns, err := nameservice.New(root)
	if err != nil {
		t.Fatalf("Should be able to build the name service: %v", err)
	}

	if name := ns.Lookup(w.Address()); name != "kennedy" {
		t.Fatalf("Should resolve the account name, got %q", name)
	}

	const unknown = "0xF01813E4B85e178A83e29B8E7bF26BD830a25f32"
	if name := ns.Lookup(unknown); name != unknown {
		t.Fatalf("Should return the account for an unknown name, got %q", name)
	}

	if len(ns.Copy()) != 1 {
		t.Fatalf("Should hold one account.")
	}
}
