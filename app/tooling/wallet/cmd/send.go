package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/ardanlabs/ledger/foundation/blockchain/chain"
	"github.com/ardanlabs/ledger/foundation/blockchain/wallet"
	"github.com/spf13/cobra"
)

var (
	url    string
	to     string
	amount uint64
	nonce  uint64
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send transaction",
	RunE:  sendRun,
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().StringVarP(&url, "url", "u", "http://localhost:8080", "Url of the node.")
	sendCmd.Flags().StringVarP(&to, "to", "t", "", "Account to send value to.")
	sendCmd.Flags().Uint64VarP(&amount, "value", "v", 0, "Value to send.")
	sendCmd.Flags().Uint64VarP(&nonce, "nonce", "n", 0, "Nonce for the transaction, the next nonce is looked up when zero.")
	sendCmd.MarkFlagRequired("to")
}

func sendRun(cmd *cobra.Command, args []string) error {
	w, err := loadWallet()
	if err != nil {
		return err
	}

	if nonce == 0 {
		info, err := queryAccount(w.Address())
		if err != nil {
			return err
		}
		nonce = info.Nonce + 1
	}

	return sendWithDetails(cmd.OutOrStdout(), w)
}

func sendWithDetails(out io.Writer, w *wallet.Wallet) error {
	tx, err := chain.NewTransaction(w.Address(), to, amount, nonce).Sign(w)
	if err != nil {
		return err
	}

	data, err := json.Marshal(tx)
	if err != nil {
		return err
	}

	resp, err := http.Post(fmt.Sprintf("%s/v1/tx/submit", url), "application/json", bytes.NewBuffer(data))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("submit failed: %s: %s", resp.Status, body)
	}

	fmt.Fprintf(out, "%s\n", body)

	return nil
}
