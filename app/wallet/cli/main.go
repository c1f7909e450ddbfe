// This is the starting point for the wallet CLI.
package main

import "github.com/nilotic/blockchain/app/wallet/cli/cmd"

func main() {
	cmd.Execute()
}
