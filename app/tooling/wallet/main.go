package main

import "github.com/ardanlabs/ledger/app/tooling/wallet/cmd"

func main() {
	cmd.Execute()
}
