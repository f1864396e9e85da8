package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
)

type info struct {
	Account string `json:"account"`
	Name    string `json:"name"`
	Balance uint64 `json:"balance"`
	Nonce   uint64 `json:"nonce"`
}

type actInfo struct {
	LatestBlock string `json:"latest_block"`
	Uncommitted int    `json:"uncommitted"`
	Accounts    []info `json:"accounts"`
}

var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Print your balance.",
	RunE:  balanceRun,
}

func init() {
	rootCmd.AddCommand(balanceCmd)
	balanceCmd.Flags().StringVarP(&url, "url", "u", "http://localhost:8080", "Url of the node.")
}

func balanceRun(cmd *cobra.Command, args []string) error {
	w, err := loadWallet()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "For Account:", w.Address())

	act, err := queryAccount(w.Address())
	if err != nil {
		return err
	}

	fmt.Fprintln(out, act.Balance)

	return nil
}

func queryAccount(account string) (info, error) {
	resp, err := http.Get(fmt.Sprintf("%s/v1/accounts/list/%s", url, account))
	if err != nil {
		return info{}, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return info{}, nil
	default:
		return info{}, fmt.Errorf("querying account: %s", resp.Status)
	}

	var ai actInfo
	if err := json.NewDecoder(resp.Body).Decode(&ai); err != nil {
		return info{}, err
	}

	if len(ai.Accounts) == 0 {
		return info{Account: account}, nil
	}

	return ai.Accounts[0], nil
}
