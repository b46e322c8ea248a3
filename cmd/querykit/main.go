package main

import (
	"os"

	"github.com/pawbazaar/querykit/internal/cli/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
