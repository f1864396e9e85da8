// This program performs administrative tasks for the ledger service.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/ardanlabs/ledger/app/tooling/admin/commands"
	"github.com/ardanlabs/ledger/foundation/blockchain/genesis"
	"github.com/ardanlabs/ledger/foundation/logger"
	"github.com/ardanlabs/ledger/foundation/nameservice"
	"go.uber.org/zap"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

const (
	genesisPath  = "zblock/genesis.json"
	accountsPath = "zblock/accounts/"
)

func main() {

	// Construct the application logger.
	log, err := logger.New("ADMIN")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	// Perform the startup and shutdown sequence.
	if err := run(log); err != nil {
		log.Errorw("startup", "ERROR", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(log *zap.SugaredLogger) error {
	log.Infow("startup", "version", build)

	gen, err := genesis.Load(genesisPath)
	if err != nil {
		return err
	}

	ns, err := nameservice.New(accountsPath)
	if err != nil {
		return err
	}

	return processCommands(os.Args, gen, ns)
}

// processCommands handles the execution of the commands specified on
// the command line.
func processCommands(args []string, gen genesis.Genesis, ns *nameservice.NameService) error {
	if len(args) < 2 {
		return errors.New("usage: admin genesis | bals [account]")
	}

	switch args[1] {
	case "genesis":
		if err := commands.Genesis(os.Stdout, gen); err != nil {
			return fmt.Errorf("printing genesis: %w", err)
		}
	case "bals":
		if err := commands.Balances(os.Stdout, args, gen, ns); err != nil {
			return fmt.Errorf("getting balances: %w", err)
		}
	default:
		return fmt.Errorf("unknown command %q", args[1])
	}

	return nil
}
