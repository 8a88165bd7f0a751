package main

import (
	"os"

	"github.com/wonny/dipscan/cmd/dipscan/commands"
)

// main is the entry point for the dipscan CLI
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
