package cmd

import (
	"fmt"

	"github.com/ardanlabs/ledger/foundation/blockchain/wallet"
	"github.com/spf13/cobra"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate new key pair",
	RunE:  generateRun,
}

func init() {
	rootCmd.AddCommand(generateCmd)
}

func generateRun(cmd *cobra.Command, args []string) error {
	w, err := wallet.New()
	if err != nil {
		return err
	}

	if err := w.Save(getPrivateKeyPath()); err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), w.Address())

	return nil
}
