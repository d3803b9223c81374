package main

import (
	"os"

	"github.com/miradorstack/mirador-triage/cmd/triage-engine/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
