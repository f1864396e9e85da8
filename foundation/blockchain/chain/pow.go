package chain

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ardanlabs/ledger/foundation/blockchain/signature"
	"golang.org/x/sync/errgroup"
)

// EventHandler defines a function that is called when events occur in the
// processing of blocks.
type EventHandler func(v string, args ...any)

// errSolved is returned by a mining worker that found a solution so the
// group context is cancelled for the remaining workers.
var errSolved = errors.New("solved")

// Mine searches for a nonce that produces a hash with the required number of
// leading zero hex digits. With a single worker the search starts at nonce 0
// and increments by one, so the result is deterministic. With more workers
// the nonce space is partitioned and the first solution found wins. The
// context is checked on every attempt. The number of hashes computed is
// returned with the mined block.
func Mine(ctx context.Context, candidate Block, difficulty uint, workers int, ev EventHandler) (Block, uint64, error) {
	if ev == nil {
		ev = func(v string, args ...any) {}
	}

	if workers < 1 {
		workers = 1
	}

	ev("chain: Mine: POW: started: block[%d] difficulty[%d] workers[%d]", candidate.Index, difficulty, workers)
	defer ev("chain: Mine: POW: completed: block[%d]", candidate.Index)

	for _, tx := range candidate.Transactions {
		ev("chain: Mine: POW: tx[%s]", tx)
	}

	t := time.Now()

	h := header{
		Index:        candidate.Index,
		Timestamp:    candidate.Timestamp,
		Transactions: encodeTransactions(candidate.Transactions),
		PrevHash:     candidate.PrevHash,
	}

	if workers == 1 {
		nonce, hash, attempts, err := search(ctx, h, difficulty, 0, 1, ev)
		if err != nil {
			ev("chain: Mine: POW: CANCELLED: attempts[%d]", attempts)
			return Block{}, attempts, err
		}

		ev("chain: Mine: POW: SOLVED: nonce[%d] attempts[%d] duration[%v]", nonce, attempts, time.Since(t))
		return solved(candidate, nonce, hash), attempts, nil
	}

	var once sync.Once
	var nonce uint64
	var hash string
	var total atomic.Uint64

	g, gctx := errgroup.WithContext(ctx)
	for i := range workers {
		g.Go(func() error {
			n, hs, attempts, err := search(gctx, h, difficulty, uint64(i), uint64(workers), ev)
			total.Add(attempts)
			if err != nil {
				return nil
			}

			once.Do(func() {
				nonce = n
				hash = hs
			})
			return errSolved
		})
	}

	if err := g.Wait(); !errors.Is(err, errSolved) {
		ev("chain: Mine: POW: CANCELLED: attempts[%d]", total.Load())
		if err := ctx.Err(); err != nil {
			return Block{}, total.Load(), err
		}
		return Block{}, total.Load(), context.Canceled
	}

	ev("chain: Mine: POW: SOLVED: nonce[%d] attempts[%d] duration[%v]", nonce, total.Load(), time.Since(t))
	return solved(candidate, nonce, hash), total.Load(), nil
}

// search walks the nonce space from start in increments of step until a
// solution is found or the context is cancelled.
func search(ctx context.Context, h header, difficulty uint, start uint64, step uint64, ev EventHandler) (uint64, string, uint64, error) {
	var attempts uint64
	for nonce := start; ; nonce += step {
		if err := ctx.Err(); err != nil {
			return 0, "", attempts, err
		}

		attempts++
		if attempts%1_000_000 == 0 {
			ev("chain: Mine: POW: start[%d] attempts[%d]", start, attempts)
		}

		h.Nonce = nonce
		hash := signature.Hash(h)
		if isHashSolved(difficulty, hash) {
			return nonce, hash, attempts, nil
		}
	}
}

// solved returns a copy of the candidate with the solution applied.
func solved(candidate Block, nonce uint64, hash string) Block {
	b := candidate.clone()
	b.Nonce = nonce
	b.Hash = hash
	return b
}

// isHashSolved checks the hash to make sure it complies with the difficulty
// required to find a new block.
func isHashSolved(difficulty uint, hash string) bool {
	if len(hash) != signature.HashLength || difficulty > signature.HashLength {
		return false
	}

	return hash[:difficulty] == signature.ZeroHash[:difficulty]
}
