package main

import (
	"os"

	"github.com/aruanc/sentinela/cmd/sentinela/commands"
)

// main is the entry point for the Sentinela CLI
// ⭐ Ponto de entrada unificado: go run ./cmd/sentinela [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
