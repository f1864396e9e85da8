package chain_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ardanlabs/ledger/foundation/blockchain/chain"
	"github.com/ardanlabs/ledger/foundation/blockchain/merkle"
	"github.com/ardanlabs/ledger/foundation/blockchain/wallet"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func signedTx(t *testing.T, from *wallet.Wallet, to string, amount uint64, nonce uint64) chain.Transaction {
	t.Helper()

	tx, err := chain.NewTransaction(from.Address(), to, amount, nonce).Sign(from)
	if err != nil {
		t.Fatalf("Should be able to sign the transaction: %v", err)
	}

	return tx
}

func newWallet(t *testing.T) *wallet.Wallet {
	t.Helper()

	w, err := wallet.New()
	if err != nil {
		t.Fatalf("Should be able to generate a wallet: %v", err)
	}

	return w
}

// =============================================================================

func Test_Scenario(t *testing.T) {
	t.Log("Given the need to mine and validate a chain.")
	{
		a := newWallet(t)
		b := newWallet(t)

		c, err := chain.New(2)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to construct a chain: %v", failed, err)
		}
		t.Logf("\t%s\tShould be able to construct a chain.", success)

		if c.Length() != 1 || c.Genesis().PrevHash != chain.GenesisPrevHash || c.Genesis().Index != 0 {
			t.Fatalf("\t%s\tShould start with only the genesis block.", failed)
		}
		t.Logf("\t%s\tShould start with only the genesis block.", success)

		tx := signedTx(t, a, b.Address(), 10, 1)

		block, err := c.AddBlock(context.Background(), []chain.Transaction{tx})
		if err != nil {
			t.Fatalf("\t%s\tShould be able to add a block: %v", failed, err)
		}
		t.Logf("\t%s\tShould be able to add a block.", success)

		if block.Index != 1 {
			t.Fatalf("\t%s\tShould have index 1, got %d.", failed, block.Index)
		}

		if block.Hash[:2] != "00" {
			t.Fatalf("\t%s\tShould have a hash with two leading zeros: %s", failed, block.Hash)
		}
		t.Logf("\t%s\tShould have a hash with two leading zeros.", success)

		if block.PrevHash != c.Genesis().Hash {
			t.Fatalf("\t%s\tShould link to the genesis block.", failed)
		}

		if block.ComputeHash() != block.Hash {
			t.Fatalf("\t%s\tShould store the hash of its contents.", failed)
		}

		if err := block.Transactions[0].VerifySignature(); err != nil {
			t.Fatalf("\t%s\tShould keep a verifiable signature: %v", failed, err)
		}

		if !c.IsValid() {
			t.Fatalf("\t%s\tShould be a valid chain: %v", failed, c.Validate())
		}
		t.Logf("\t%s\tShould be a valid chain.", success)

		blocks := c.Blocks()
		blocks[1].Transactions[0].Amount = 11

		err = chain.ValidateBlocks(blocks, c.Difficulty())
		var ve *chain.ValidationError
		if !errors.As(err, &ve) || ve.Index != 1 || !errors.Is(err, chain.ErrHashMismatch) {
			t.Fatalf("\t%s\tShould detect the tampered amount at block 1: %v", failed, err)
		}
		t.Logf("\t%s\tShould detect the tampered amount at block 1.", success)

		if !c.IsValid() {
			t.Fatalf("\t%s\tShould not be affected by changes to a copy.", failed)
		}
		t.Logf("\t%s\tShould not be affected by changes to a copy.", success)
	}
}

func Test_Tamper(t *testing.T) {
	a := newWallet(t)
	b := newWallet(t)

	c, err := chain.New(1)
	if err != nil {
		t.Fatalf("Should be able to construct a chain: %v", err)
	}

	for i := range 3 {
		if _, err := c.AddBlock(context.Background(), []chain.Transaction{signedTx(t, a, b.Address(), uint64(i+1), uint64(i+1))}); err != nil {
			t.Fatalf("Should be able to add block %d: %v", i+1, err)
		}
	}

	tt := []struct {
		name   string
		index  uint64
		exp    error
		tamper func(blocks []chain.Block)
	}{
		{
			name:  "nonce",
			index: 2,
			exp:   chain.ErrHashMismatch,
			tamper: func(blocks []chain.Block) {
				blocks[2].Nonce++
			},
		},
		{
			name:  "recipient",
			index: 1,
			exp:   chain.ErrHashMismatch,
			tamper: func(blocks []chain.Block) {
				blocks[1].Transactions[0].To = a.Address()
			},
		},
		{
			name:  "prevhash",
			index: 3,
			exp:   chain.ErrPrevHashMismatch,
			tamper: func(blocks []chain.Block) {
				blocks[3].PrevHash = blocks[1].Hash
				mined, _, err := chain.Mine(context.Background(), blocks[3], 1, 1, nil)
				if err != nil {
					t.Fatalf("Should be able to re-mine: %v", err)
				}
				blocks[3] = mined
			},
		},
		{
			name:  "difficulty",
			index: 2,
			exp:   chain.ErrDifficultyNotMet,
			tamper: func(blocks []chain.Block) {
				for nonce := uint64(0); ; nonce++ {
					blocks[2].Nonce = nonce
					blocks[2].Hash = blocks[2].ComputeHash()
					if blocks[2].Hash[0] != '0' {
						break
					}
				}
				blocks[3].PrevHash = blocks[2].Hash
				blocks[3].Hash = blocks[3].ComputeHash()
			},
		},
	}

	t.Log("Given the need to detect tampered blocks.")
	{
		for testID, tst := range tt {
			f := func(t *testing.T) {
				blocks := c.Blocks()
				tst.tamper(blocks)

				err := chain.ValidateBlocks(blocks, c.Difficulty())

				var ve *chain.ValidationError
				if !errors.As(err, &ve) {
					t.Fatalf("\t%s\tTest %d:\tShould get a validation error: %v", failed, testID, err)
				}

				if ve.Index != tst.index || !errors.Is(err, tst.exp) {
					t.Logf("\t%s\tTest %d:\tgot: %v", failed, testID, err)
					t.Logf("\t%s\tTest %d:\texp: block %d: %v", failed, testID, tst.index, tst.exp)
					t.Fatalf("\t%s\tTest %d:\tShould identify the failing block.", failed, testID)
				}
				t.Logf("\t%s\tTest %d:\tShould identify the failing block.", success, testID)
			}

			t.Run(tst.name, f)
		}
	}
}

func Test_HashDeterminism(t *testing.T) {
	tx := chain.NewTransaction("0xF01813E4B85e178A83e29B8E7bF26BD830a25f32", "0xbEE6ACE826eC3DE1B6349888B9151B92522F7F76", 10, 1)
	txs := []chain.Transaction{tx}

	h1 := chain.Hash(1, 1700000000, txs, "abc", 42)
	h2 := chain.Hash(1, 1700000000, txs, "abc", 42)

	if h1 != h2 {
		t.Fatalf("Should produce the same hash for the same inputs.")
	}

	if len(h1) != 64 {
		t.Fatalf("Should produce a 64 character hash, got %d", len(h1))
	}

	variants := []string{
		chain.Hash(2, 1700000000, txs, "abc", 42),
		chain.Hash(1, 1700000001, txs, "abc", 42),
		chain.Hash(1, 1700000000, nil, "abc", 42),
		chain.Hash(1, 1700000000, txs, "abd", 42),
		chain.Hash(1, 1700000000, txs, "abc", 43),
	}

	for i, v := range variants {
		if v == h1 {
			t.Fatalf("Variant %d: Should change the hash when a field changes.", i)
		}
	}

	if chain.Hash(0, 0, nil, "0", 0) != chain.Hash(0, 0, []chain.Transaction{}, "0", 0) {
		t.Fatalf("Should hash nil and empty transaction lists the same.")
	}
}

func Test_MineDeterministic(t *testing.T) {
	candidate := chain.Block{Index: 1, Timestamp: 1700000000, PrevHash: "genesis"}

	b1, attempts1, err := chain.Mine(context.Background(), candidate, 2, 1, nil)
	if err != nil {
		t.Fatalf("Should be able to mine: %v", err)
	}

	b2, attempts2, err := chain.Mine(context.Background(), candidate, 2, 1, nil)
	if err != nil {
		t.Fatalf("Should be able to mine: %v", err)
	}

	if b1.Nonce != b2.Nonce || b1.Hash != b2.Hash {
		t.Fatalf("Should find the same nonce with a single worker.")
	}

	if attempts1 != b1.Nonce+1 || attempts2 != attempts1 {
		t.Fatalf("Should count each hash from nonce 0, got %d for nonce %d", attempts1, b1.Nonce)
	}

	for nonce := uint64(0); nonce < b1.Nonce; nonce++ {
		h := chain.Hash(candidate.Index, candidate.Timestamp, nil, candidate.PrevHash, nonce)
		if h[:2] == "00" {
			t.Fatalf("Should find the smallest solving nonce, %d also solves", nonce)
		}
	}
}

func Test_MineParallel(t *testing.T) {
	a := newWallet(t)

	c, err := chain.New(3, chain.WithWorkers(4))
	if err != nil {
		t.Fatalf("Should be able to construct a chain: %v", err)
	}

	for i := range 2 {
		block, err := c.AddBlock(context.Background(), []chain.Transaction{signedTx(t, a, a.Address(), 1, uint64(i+1))})
		if err != nil {
			t.Fatalf("Should be able to mine with multiple workers: %v", err)
		}

		if block.Hash[:3] != "000" {
			t.Fatalf("Should satisfy the difficulty: %s", block.Hash)
		}
	}

	if err := c.Validate(); err != nil {
		t.Fatalf("Should be a valid chain: %v", err)
	}
}

func Test_MineCancel(t *testing.T) {
	for _, workers := range []int{1, 4} {
		t.Run(fmt.Sprintf("workers-%d", workers), func(t *testing.T) {
			c, err := chain.New(chain.MaxDifficulty, chain.WithWorkers(workers))
			if err != nil {
				t.Fatalf("Should be able to construct a chain: %v", err)
			}

			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()

			if _, err := c.AddBlock(ctx, nil); !errors.Is(err, context.DeadlineExceeded) {
				t.Fatalf("Should stop mining when the context is done: %v", err)
			}

			if c.Length() != 1 {
				t.Fatalf("Should leave the chain unchanged, got length %d", c.Length())
			}
		})
	}
}

func Test_DifficultyScaling(t *testing.T) {
	const trials = 200

	mean := func(difficulty uint) float64 {
		var total uint64
		for i := range trials {
			candidate := chain.Block{Index: 1, Timestamp: 1700000000, PrevHash: fmt.Sprintf("trial-%d", i)}
			_, attempts, err := chain.Mine(context.Background(), candidate, difficulty, 1, nil)
			if err != nil {
				t.Fatalf("Should be able to mine: %v", err)
			}
			total += attempts
		}
		return float64(total) / trials
	}

	d1 := mean(1)
	d2 := mean(2)
	ratio := d2 / d1

	t.Logf("difficulty 1 mean[%.1f] difficulty 2 mean[%.1f] ratio[%.1f]", d1, d2, ratio)

	if ratio < 8 || ratio > 32 {
		t.Fatalf("Should need about 16 times more attempts per extra digit, got %.1f", ratio)
	}
}

func Test_NewDifficulty(t *testing.T) {
	if _, err := chain.New(chain.MaxDifficulty + 1); err == nil {
		t.Fatalf("Should reject a difficulty larger than the hash.")
	}

	c, err := chain.New(0)
	if err != nil {
		t.Fatalf("Should accept a zero difficulty: %v", err)
	}

	if _, err := c.AddBlock(context.Background(), nil); err != nil {
		t.Fatalf("Should mine immediately with zero difficulty: %v", err)
	}

	if _, err := c.BlockByIndex(5); !errors.Is(err, chain.ErrBlockNotFound) {
		t.Fatalf("Should not find a block past the tip: %v", err)
	}
}

func Test_GenesisTime(t *testing.T) {
	gt := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	c1, _ := chain.New(1, chain.WithGenesisTime(gt))
	c2, _ := chain.New(1, chain.WithGenesisTime(gt))

	if c1.Genesis().Hash != c2.Genesis().Hash {
		t.Fatalf("Should produce the same genesis for the same time.")
	}

	if c1.Genesis().Timestamp != uint64(gt.Unix()) {
		t.Fatalf("Should record the genesis time.")
	}
}

func Test_TransactionSignature(t *testing.T) {
	a := newWallet(t)
	b := newWallet(t)

	tx := signedTx(t, a, b.Address(), 10, 1)
	if err := tx.VerifySignature(); err != nil {
		t.Fatalf("Should verify a signed transaction: %v", err)
	}

	unsigned := chain.NewTransaction(a.Address(), b.Address(), 10, 1)
	if err := unsigned.VerifySignature(); !errors.Is(err, chain.ErrUnsigned) {
		t.Fatalf("Should reject an unsigned transaction: %v", err)
	}

	changed := tx
	changed.Amount = 1000
	if err := changed.VerifySignature(); !errors.Is(err, chain.ErrInvalidSignature) {
		t.Fatalf("Should reject a transaction changed after signing: %v", err)
	}

	if _, err := chain.NewTransaction(a.Address(), b.Address(), 10, 1).Sign(b); err == nil {
		t.Fatalf("Should not sign for another account.")
	}
}

func Test_BlockProof(t *testing.T) {
	a := newWallet(t)
	b := newWallet(t)

	c, _ := chain.New(1)

	txs := []chain.Transaction{
		signedTx(t, a, b.Address(), 1, 1),
		signedTx(t, a, b.Address(), 2, 2),
		signedTx(t, a, b.Address(), 3, 3),
	}

	block, err := c.AddBlock(context.Background(), txs)
	if err != nil {
		t.Fatalf("Should be able to add a block: %v", err)
	}

	if _, err := block.MerkleRoot(); err != nil {
		t.Fatalf("Should be able to calculate the merkle root: %v", err)
	}

	for i, tx := range block.Transactions {
		root, proof, order, err := block.Proof(i)
		if err != nil {
			t.Fatalf("Should be able to produce a proof: %v", err)
		}

		leaf, _ := tx.Hash()
		if !merkle.VerifyProof(root, leaf, proof, order) {
			t.Fatalf("Should prove transaction %d is in the block.", i)
		}
	}
}

func Test_ConcurrentAddBlock(t *testing.T) {
	const writers = 8
	const blocksPerWriter = 3

	t.Log("Given the need to add blocks from many goroutines while reading the chain.")
	{
		a := newWallet(t)
		b := newWallet(t)

		c, err := chain.New(1, chain.WithWorkers(2))
		if err != nil {
			t.Fatalf("\t%s\tShould be able to construct a chain: %v", failed, err)
		}

		txs := make([]chain.Transaction, writers*blocksPerWriter)
		for i := range txs {
			txs[i] = signedTx(t, a, b.Address(), 1, uint64(i+1))
		}

		done := make(chan struct{})
		var readers sync.WaitGroup
		for range 2 {
			readers.Add(1)
			go func() {
				defer readers.Done()
				for {
					select {
					case <-done:
						return
					default:
					}

					latest := c.LatestBlock()
					if latest.Hash != latest.ComputeHash() {
						t.Errorf("\t%s\tShould read a consistent latest block: %s", failed, latest)
					}
					if !c.IsValid() {
						t.Errorf("\t%s\tShould read a valid chain while blocks are added: %v", failed, c.Validate())
					}
				}
			}()
		}

		var writersWG sync.WaitGroup
		for w := range writers {
			writersWG.Add(1)
			go func() {
				defer writersWG.Done()
				for i := range blocksPerWriter {
					tx := txs[w*blocksPerWriter+i]
					if _, err := c.AddBlock(context.Background(), []chain.Transaction{tx}); err != nil {
						t.Errorf("\t%s\tShould be able to add a block: %v", failed, err)
					}
				}
			}()
		}

		writersWG.Wait()
		close(done)
		readers.Wait()

		if t.Failed() {
			t.FailNow()
		}

		blocks := c.Blocks()
		if len(blocks) != writers*blocksPerWriter+1 {
			t.Fatalf("\t%s\tShould hold %d blocks, got %d", failed, writers*blocksPerWriter+1, len(blocks))
		}
		t.Logf("\t%s\tShould hold every added block.", success)

		for i := 1; i < len(blocks); i++ {
			if blocks[i].Index != uint64(i) {
				t.Fatalf("\t%s\tShould have contiguous indexes, got %d at %d", failed, blocks[i].Index, i)
			}
			if blocks[i].PrevHash != blocks[i-1].Hash {
				t.Fatalf("\t%s\tShould link block %d to block %d", failed, i, i-1)
			}
		}
		t.Logf("\t%s\tShould have contiguous indexes and intact links.", success)

		if !c.IsValid() {
			t.Fatalf("\t%s\tShould be valid after concurrent writes: %v", failed, c.Validate())
		}
		t.Logf("\t%s\tShould be valid after concurrent writes.", success)
	}
}
