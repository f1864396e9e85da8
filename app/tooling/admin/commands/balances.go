// Package commands contains the functionality for the set of commands
// currently supported by the admin tool.
package commands

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/ardanlabs/ledger/foundation/blockchain/chain"
	"github.com/ardanlabs/ledger/foundation/blockchain/genesis"
	"github.com/ardanlabs/ledger/foundation/nameservice"
)

// Genesis prints the genesis settings along with the genesis block the
// ledger will construct from them.
func Genesis(w io.Writer, gen genesis.Genesis) error {
	var opts []chain.Option
	if !gen.Date.IsZero() {
		opts = append(opts, chain.WithGenesisTime(gen.Date))
	}

	c, err := chain.New(uint(gen.Difficulty), opts...)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "ChainID: %d  Difficulty: %d  TransPerBlock: %d\n", gen.ChainID, gen.Difficulty, gen.TransPerBlock)
	fmt.Fprintf(w, "GenesisBlock: %s\n", c.Genesis().Hash)

	return nil
}

// Balances prints the starting balances. A third argument limits the output
// to that account.
func Balances(w io.Writer, args []string, gen genesis.Genesis, ns *nameservice.NameService) error {
	var onlyAct string
	if len(args) == 3 {
		onlyAct = args[2]
	}

	accounts := make([]string, 0, len(gen.Balances))
	for account := range gen.Balances {
		if onlyAct != "" && !strings.EqualFold(onlyAct, account) {
			continue
		}
		accounts = append(accounts, account)
	}
	slices.Sort(accounts)

	if onlyAct != "" && len(accounts) == 0 {
		return fmt.Errorf("account %s not in genesis", onlyAct)
	}

	for _, account := range accounts {
		fmt.Fprintf(w, "Account: %s  Name: %s  Balance: %d\n", account, ns.Lookup(account), gen.Balances[account])
	}

	return nil
}
