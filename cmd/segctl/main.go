package main

import (
	"os"

	"github.com/dqtools/segments/cmd/segctl/commands"
)

// main is the entry point for the segctl CLI
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
