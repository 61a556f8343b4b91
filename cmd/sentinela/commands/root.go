package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "sentinela",
	Short: "Sentinela - triagem de anomalias contábeis em empresas listadas",
	Long: `Sentinela CLI

Reconciliação de dados financeiros públicos (EUA e B3) e triagem
determinística de anomalias contábeis.

Usage:
  go run ./cmd/sentinela [command]

Examples:
  go run ./cmd/sentinela investigate PETR4
  go run ./cmd/sentinela api
  go run ./cmd/sentinela cvm identity PETR4
  go run ./cmd/sentinela cache warm`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
