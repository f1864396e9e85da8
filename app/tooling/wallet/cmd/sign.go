package cmd

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"
)

var message string

var signCmd = &cobra.Command{
	Use:   "sign",
	Short: "Sign a message with the wallet",
	RunE:  signRun,
}

func init() {
	rootCmd.AddCommand(signCmd)
	signCmd.Flags().StringVarP(&message, "message", "m", "", "Message to sign.")
	signCmd.MarkFlagRequired("message")
}

func signRun(cmd *cobra.Command, args []string) error {
	w, err := loadWallet()
	if err != nil {
		return err
	}

	sig, err := w.Sign([]byte(message))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "pubkey:", hexutil.Encode(w.PublicKey()))
	fmt.Fprintln(out, "sig:   ", hexutil.Encode(sig))

	return nil
}
