package mempool

import (
	"cmp"
	"slices"

	"github.com/ardanlabs/ledger/foundation/blockchain/chain"
	"github.com/ardanlabs/ledger/foundation/blockchain/signature"
)

// pickFIFO selects up to howMany transactions in arrival order. Each slot in
// the arrival order that belongs to an account is filled with that account's
// transaction holding the lowest remaining nonce.
//
//	arrival: Bill:2, Pavl:1, Bill:1
//	result:  Bill:1, Pavl:1, Bill:2
func pickFIFO(entries []entry, howMany int) []chain.Transaction {
	if howMany < 0 || howMany > len(entries) {
		howMany = len(entries)
	}

	slices.SortFunc(entries, func(a, b entry) int {
		return cmp.Compare(a.sequence, b.sequence)
	})

	// Group the transactions by account sorted by nonce.
	byAccount := make(map[string][]chain.Transaction)
	for _, e := range entries {
		from := signature.ToAddress(e.tx.From)
		byAccount[from] = append(byAccount[from], e.tx)
	}

	for from := range byAccount {
		slices.SortStableFunc(byAccount[from], func(a, b chain.Transaction) int {
			return cmp.Compare(a.Nonce, b.Nonce)
		})
	}

	final := make([]chain.Transaction, 0, howMany)
	for _, e := range entries {
		if len(final) == howMany {
			break
		}

		from := signature.ToAddress(e.tx.From)
		txs := byAccount[from]
		final = append(final, txs[0])
		byAccount[from] = txs[1:]
	}

	return final
}
