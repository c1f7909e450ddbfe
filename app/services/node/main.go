// This is the starting point for running the node.
package main

import "github.com/nilotic/blockchain/app/services/node/cmd"

func main() {
	cmd.Execute()
}
