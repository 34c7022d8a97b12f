package main

import (
	"os"

	"dappconnect/cmd/dappconnect/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
