package contract_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/ardanlabs/ledger/foundation/blockchain/contract"
	"github.com/ardanlabs/ledger/foundation/blockchain/signature"
	"github.com/ardanlabs/ledger/foundation/blockchain/wallet"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func balance(t *testing.T, vm *contract.VM, address string, account string) uint64 {
	t.Helper()

	result, err := vm.CallContract(address, contract.MethodGetBalance, account)
	if err != nil {
		t.Fatalf("Should be able to get the balance for %s: %v", account, err)
	}

	return result.Balance
}

// =============================================================================

func Test_Scenario(t *testing.T) {
	t.Log("Given the need to transfer value inside a contract.")
	{
		vm := contract.NewVM(nil)

		address := vm.DeployContract("A", []byte("token"))
		if !signature.IsAddress(address) {
			t.Fatalf("\t%s\tShould deploy at a valid address: %s", failed, address)
		}
		t.Logf("\t%s\tShould deploy at a valid address.", success)

		c, err := vm.Contract(address)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to find the contract: %v", failed, err)
		}
		c.Seed("A", 100)

		if _, err := vm.CallContract(address, contract.MethodTransfer, "B", 40); err != nil {
			t.Fatalf("\t%s\tShould be able to transfer 40: %v", failed, err)
		}
		t.Logf("\t%s\tShould be able to transfer 40.", success)

		if a, b := balance(t, vm, address, "A"), balance(t, vm, address, "B"); a != 60 || b != 40 {
			t.Fatalf("\t%s\tShould have balances 60 and 40, got %d and %d", failed, a, b)
		}
		t.Logf("\t%s\tShould have balances 60 and 40.", success)

		_, err = vm.CallContract(address, contract.MethodTransfer, "B", 1000)
		if !errors.Is(err, contract.ErrInsufficientBalance) {
			t.Fatalf("\t%s\tShould reject a transfer of 1000: %v", failed, err)
		}
		t.Logf("\t%s\tShould reject a transfer of 1000.", success)

		if a, b := balance(t, vm, address, "A"), balance(t, vm, address, "B"); a != 60 || b != 40 {
			t.Fatalf("\t%s\tShould leave balances unchanged, got %d and %d", failed, a, b)
		}
		t.Logf("\t%s\tShould leave balances unchanged.", success)
	}
}

func Test_Errors(t *testing.T) {
	vm := contract.NewVM(nil)
	address := vm.DeployContract("A", nil)

	tt := []struct {
		name    string
		address string
		method  string
		args    []any
		exp     error
	}{
		{"unknown-contract", "0x0000000000000000000000000000000000000001", contract.MethodGetBalance, []any{"A"}, contract.ErrContractNotFound},
		{"unknown-method", address, "mint", []any{"A", 10}, contract.ErrMethodNotFound},
		{"missing-args", address, contract.MethodTransfer, []any{"B"}, contract.ErrInvalidArguments},
		{"negative-amount", address, contract.MethodTransfer, []any{"B", -5}, contract.ErrInvalidArguments},
		{"fraction-amount", address, contract.MethodTransfer, []any{"B", 1.5}, contract.ErrInvalidArguments},
		{"string-amount", address, contract.MethodTransfer, []any{"B", "10"}, contract.ErrInvalidArguments},
		{"empty-to", address, contract.MethodTransfer, []any{"", 0}, contract.ErrInvalidArguments},
		{"unknown-named", address, contract.MethodGetBalance, []any{map[string]any{"account": "A"}}, contract.ErrInvalidArguments},
		{"missing-named", address, contract.MethodTransfer, []any{map[string]any{"to": "B"}}, contract.ErrInvalidArguments},
	}

	t.Log("Given the need to reject bad contract calls.")
	{
		for testID, tst := range tt {
			f := func(t *testing.T) {
				_, err := vm.CallContract(tst.address, tst.method, tst.args...)
				if !errors.Is(err, tst.exp) {
					t.Logf("\t%s\tTest %d:\tgot: %v", failed, testID, err)
					t.Logf("\t%s\tTest %d:\texp: %v", failed, testID, tst.exp)
					t.Fatalf("\t%s\tTest %d:\tShould get the expected error.", failed, testID)
				}
				t.Logf("\t%s\tTest %d:\tShould get the expected error.", success, testID)
			}

			t.Run(tst.name, f)
		}
	}
}

func Test_DecodeOperation(t *testing.T) {
	var args map[string]any
	if err := json.Unmarshal([]byte(`{"to":"B","amount":25}`), &args); err != nil {
		t.Fatalf("Should be able to unmarshal: %v", err)
	}

	op, err := contract.DecodeOperation(contract.MethodTransfer, args)
	if err != nil {
		t.Fatalf("Should decode a transfer from json values: %v", err)
	}

	exp := contract.Transfer{To: "B", Amount: 25}
	if op != exp {
		t.Fatalf("Should decode %+v, got %+v", exp, op)
	}

	op, err = contract.DecodeArgs(contract.MethodGetBalance, "A")
	if err != nil {
		t.Fatalf("Should decode positional arguments: %v", err)
	}

	if op != (contract.GetBalance{Address: "A"}) {
		t.Fatalf("Should decode a balance query, got %+v", op)
	}

	if _, err := contract.DecodeOperation(contract.MethodTransfer, map[string]any{"to": "B", "amount": float64(math.MaxUint64)}); !errors.Is(err, contract.ErrInvalidArguments) {
		t.Fatalf("Should reject an amount outside the range: %v", err)
	}
}

func Test_TransferEdges(t *testing.T) {
	vm := contract.NewVM(nil)
	address := vm.DeployContract("A", nil)
	c, _ := vm.Contract(address)

	c.Seed("A", 50)
	c.Seed("B", math.MaxUint64)

	if _, err := vm.Call(address, contract.Transfer{To: "B", Amount: 1}); !errors.Is(err, contract.ErrBalanceOverflow) {
		t.Fatalf("Should reject a credit past the maximum: %v", err)
	}

	if got := c.Balances()["A"]; got != 50 {
		t.Fatalf("Should leave the owner unchanged after an overflow, got %d", got)
	}

	result, err := vm.Call(address, contract.Transfer{To: "A", Amount: 20})
	if err != nil {
		t.Fatalf("Should allow a transfer to self: %v", err)
	}

	if result.Balance != 50 {
		t.Fatalf("Should not change the balance on a transfer to self, got %d", result.Balance)
	}

	if _, err := vm.Call(address, contract.Transfer{To: "A", Amount: 51}); !errors.Is(err, contract.ErrInsufficientBalance) {
		t.Fatalf("Should check funds on a transfer to self: %v", err)
	}

	if got := balance(t, vm, address, "nobody"); got != 0 {
		t.Fatalf("Should report zero for an unknown address, got %d", got)
	}
}

func Test_Isolation(t *testing.T) {
	vm := contract.NewVM(nil)

	first := vm.DeployContract("A", nil)
	second := vm.DeployContract("A", nil)

	if first == second {
		t.Fatalf("Should deploy each contract at a new address.")
	}

	c, _ := vm.Contract(first)
	c.Seed("A", 10)

	if got := balance(t, vm, second, "A"); got != 0 {
		t.Fatalf("Should not share state between contracts, got %d", got)
	}

	if len(vm.Addresses()) != 2 {
		t.Fatalf("Should list both contracts.")
	}
}

func Test_ConcurrentTransfers(t *testing.T) {
	const (
		goroutines = 32
		transfers  = 100
		start      = 1000
	)

	vm := contract.NewVM(nil)
	address := vm.DeployContract("owner", nil)
	c, _ := vm.Contract(address)
	c.Seed("owner", start)

	var wg sync.WaitGroup
	wg.Add(goroutines)

	var mu sync.Mutex
	var succeeded int

	for g := range goroutines {
		go func() {
			defer wg.Done()

			to := fmt.Sprintf("acct-%d", g%4)
			for range transfers {
				_, err := vm.CallContract(address, contract.MethodTransfer, to, 1)
				switch {
				case err == nil:
					mu.Lock()
					succeeded++
					mu.Unlock()
				case !errors.Is(err, contract.ErrInsufficientBalance):
					t.Errorf("Should only fail on insufficient balance: %v", err)
				}
			}
		}()
	}

	wg.Wait()

	var total uint64
	for _, v := range c.Balances() {
		total += v
	}

	if total != start {
		t.Fatalf("Should conserve value, got total %d", total)
	}

	if succeeded != start {
		t.Fatalf("Should succeed exactly %d times, got %d", start, succeeded)
	}

	if got := c.Balances()["owner"]; got != 0 {
		t.Fatalf("Should drain the owner, got %d", got)
	}
}

func Test_SignedCalls(t *testing.T) {
	owner, err := wallet.New()
	if err != nil {
		t.Fatalf("Should be able to generate a wallet: %v", err)
	}

	other, err := wallet.New()
	if err != nil {
		t.Fatalf("Should be able to generate a wallet: %v", err)
	}

	vm := contract.NewVM(nil)

	d, err := contract.Deployment{Owner: owner.Address(), Balances: map[string]uint64{owner.Address(): 100}, Nonce: 1}.Sign(owner)
	if err != nil {
		t.Fatalf("Should be able to sign the deployment: %v", err)
	}

	address, err := vm.Deploy(d)
	if err != nil {
		t.Fatalf("Should be able to deploy: %v", err)
	}

	transfer := contract.Transfer{To: other.Address(), Amount: 10}

	forged := d
	forged.Balances = map[string]uint64{owner.Address(): 1_000_000}

	otherDeploy, err := contract.Deployment{Owner: other.Address(), Nonce: 1}.Sign(other)
	if err != nil {
		t.Fatalf("Should be able to sign the deployment: %v", err)
	}
	otherDeploy.Owner = owner.Address()

	sign := func(signer *wallet.Wallet, from string, nonce uint64) contract.Call {
		c := contract.NewCall(address, from, transfer, nonce)
		msg, err := c.SigningMessage()
		if err != nil {
			t.Fatalf("Should be able to build the signing message: %v", err)
		}
		if c.Signature, err = signer.Sign(msg); err != nil {
			t.Fatalf("Should be able to sign: %v", err)
		}
		return c
	}

	tt := []struct {
		name string
		run  func() error
		exp  error
	}{
		{"unsigned-call", func() error {
			_, err := vm.Execute(contract.NewCall(address, owner.Address(), transfer, 1))
			return err
		}, contract.ErrUnsigned},
		{"wrong-key", func() error {
			_, err := vm.Execute(sign(other, owner.Address(), 1))
			return err
		}, contract.ErrInvalidSignature},
		{"not-owner", func() error {
			_, err := vm.Execute(sign(other, other.Address(), 1))
			return err
		}, contract.ErrUnauthorized},
		{"tampered-call", func() error {
			c := sign(owner, owner.Address(), 1)
			c.Operation = contract.Transfer{To: other.Address(), Amount: 90}
			_, err := vm.Execute(c)
			return err
		}, contract.ErrInvalidSignature},
		{"unsigned-deploy", func() error {
			_, err := vm.Deploy(contract.Deployment{Owner: owner.Address(), Nonce: 2})
			return err
		}, contract.ErrUnsigned},
		{"forged-balances", func() error {
			_, err := vm.Deploy(forged)
			return err
		}, contract.ErrInvalidSignature},
		{"deploy-for-someone-else", func() error {
			_, err := vm.Deploy(otherDeploy)
			return err
		}, contract.ErrInvalidSignature},
	}

	t.Log("Given the need to only run contract requests signed by the owner.")
	{
		for testID, tst := range tt {
			test := func(t *testing.T) {
				if err := tst.run(); !errors.Is(err, tst.exp) {
					t.Fatalf("\t%s\tTest %d:\tShould get %v, got %v", failed, testID, tst.exp, err)
				}
				t.Logf("\t%s\tTest %d:\tShould get %v.", success, testID, tst.exp)
			}

			t.Run(tst.name, test)
		}

		if got := balance(t, vm, address, owner.Address()); got != 100 {
			t.Fatalf("\t%s\tShould leave the owner untouched, got %d", failed, got)
		}
		t.Logf("\t%s\tShould leave the owner untouched.", success)

		if _, err := vm.Execute(sign(owner, strings.ToLower(owner.Address()), 1)); err != nil {
			t.Fatalf("\t%s\tShould run a call signed by the owner: %v", failed, err)
		}
		t.Logf("\t%s\tShould run a call signed by the owner.", success)

		if _, err := vm.Execute(sign(owner, owner.Address(), 1)); !errors.Is(err, contract.ErrInvalidNonce) {
			t.Fatalf("\t%s\tShould reject a reused nonce: %v", failed, err)
		}
		t.Logf("\t%s\tShould reject a reused nonce.", success)

		if got := balance(t, vm, address, strings.ToLower(other.Address())); got != 10 {
			t.Fatalf("\t%s\tShould credit the recipient in any case, got %d", failed, got)
		}
		t.Logf("\t%s\tShould credit the recipient in any case.", success)
	}
}

func Test_DecodeLargeAmounts(t *testing.T) {
	tt := []struct {
		name string
		body string
		exp  uint64
		err  bool
	}{
		{"above-float-precision", `{"to":"B","amount":9007199254740993}`, 9007199254740993, false},
		{"max", `{"to":"B","amount":18446744073709551615}`, math.MaxUint64, false},
		{"overflow", `{"to":"B","amount":18446744073709551616}`, 0, true},
		{"fraction", `{"to":"B","amount":1.5}`, 0, true},
		{"exponent", `{"to":"B","amount":1e3}`, 0, true},
		{"negative", `{"to":"B","amount":-5}`, 0, true},
		{"numeric-to", `{"to":5,"amount":1}`, 0, true},
	}

	t.Log("Given the need to decode amounts without losing precision.")
	{
		for testID, tst := range tt {
			test := func(t *testing.T) {
				decoder := json.NewDecoder(strings.NewReader(tst.body))
				decoder.UseNumber()

				var args map[string]any
				if err := decoder.Decode(&args); err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould be able to unmarshal: %v", failed, testID, err)
				}

				op, err := contract.DecodeOperation(contract.MethodTransfer, args)
				if tst.err {
					if !errors.Is(err, contract.ErrInvalidArguments) {
						t.Fatalf("\t%s\tTest %d:\tShould reject the amount: %v", failed, testID, err)
					}
					t.Logf("\t%s\tTest %d:\tShould reject the amount.", success, testID)
					return
				}

				if err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould decode the amount: %v", failed, testID, err)
				}

				if got := op.(contract.Transfer).Amount; got != tst.exp {
					t.Fatalf("\t%s\tTest %d:\tShould decode %d exactly, got %d", failed, testID, tst.exp, got)
				}
				t.Logf("\t%s\tTest %d:\tShould decode the amount exactly.", success, testID)
			}

			t.Run(tst.name, test)
		}
	}
}
