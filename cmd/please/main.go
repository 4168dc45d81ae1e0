package main

import (
	"os"

	"github.com/please-dev/please-gateway/internal/cli/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
