package cmd

import (
	"errors"
	"fmt"

	"github.com/ardanlabs/ledger/foundation/blockchain/wallet"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"
)

var (
	pubKey string
	sig    string
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify a signature against a public key",
	RunE:  verifyRun,
}

func init() {
	rootCmd.AddCommand(verifyCmd)
	verifyCmd.Flags().StringVarP(&pubKey, "pubkey", "k", "", "Hex encoded public key.")
	verifyCmd.Flags().StringVarP(&message, "message", "m", "", "Message that was signed.")
	verifyCmd.Flags().StringVarP(&sig, "sig", "s", "", "Hex encoded signature.")
	verifyCmd.MarkFlagRequired("pubkey")
	verifyCmd.MarkFlagRequired("sig")
}

func verifyRun(cmd *cobra.Command, args []string) error {
	pk, err := hexutil.Decode(pubKey)
	if err != nil {
		return fmt.Errorf("decoding pubkey: %w", err)
	}

	s, err := hexutil.Decode(sig)
	if err != nil {
		return fmt.Errorf("decoding sig: %w", err)
	}

	if !wallet.VerifySignature(pk, []byte(message), s) {
		return errors.New("signature is not valid")
	}

	fmt.Fprintln(cmd.OutOrStdout(), "signature is valid")

	return nil
}
