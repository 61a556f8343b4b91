package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aruanc/sentinela/internal/investigate"
)

// investigateCmd represents the investigate command
var investigateCmd = &cobra.Command{
	Use:   "investigate [query]",
	Short: "Investiga uma empresa por ticker ou nome",
	Long: `Resolve o alvo, coleta o conjunto de dados e executa a triagem
de anomalias contábeis.

Example:
  go run ./cmd/sentinela investigate PETR4
  go run ./cmd/sentinela investigate "petrobras" --json
  go run ./cmd/sentinela investigate AAPL --lookback-days 365`,
	Args: cobra.ExactArgs(1),
	RunE: runInvestigate,
}

var (
	investigateJSON     bool
	investigateLookback int
	investigateStmts    int
	investigateFilings  int
)

func init() {
	rootCmd.AddCommand(investigateCmd)

	investigateCmd.Flags().BoolVar(&investigateJSON, "json", false, "imprime o resultado completo em JSON")
	investigateCmd.Flags().IntVar(&investigateLookback, "lookback-days", 0, "janela do histórico de preços em dias")
	investigateCmd.Flags().IntVar(&investigateStmts, "statements-limit", 0, "máximo de demonstrativos por categoria")
	investigateCmd.Flags().IntVar(&investigateFilings, "filings-limit", 0, "máximo de documentos regulatórios")
}

func runInvestigate(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}

	result, err := a.pipeline.Run(cmd.Context(), investigate.Request{
		Query:           args[0],
		LookbackDays:    investigateLookback,
		StatementsLimit: investigateStmts,
		FilingsLimit:    investigateFilings,
	})
	if err != nil {
		return err
	}

	if investigateJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	fmt.Printf("=== %s (%s, %s) ===\n", result.Target.Label, result.Target.Ticker.Symbol, result.Target.Ticker.Market)
	if result.Dataset.Currency != "" {
		fmt.Printf("Moeda: %s", result.Dataset.Currency)
		if result.Dataset.FX != nil {
			fmt.Printf("  (PTAX %.4f)", result.Dataset.FX.Rate)
		}
		fmt.Println()
	}

	if len(result.Dataset.Errors) > 0 {
		fmt.Println("\nEtapas com falha:")
		for _, e := range result.Dataset.Errors {
			fmt.Printf("  - %s: %s\n", e.Step, e.Message)
		}
	}

	fmt.Printf("\nMétricas (%d):\n", len(result.Report.Metrics))
	for name, value := range result.Report.Metrics {
		fmt.Printf("  %-40s %12.4f\n", name, value)
	}

	if len(result.Report.Flags) == 0 {
		fmt.Println("\n✅ Nenhuma anomalia sinalizada")
		return nil
	}

	fmt.Printf("\n⚠️  Sinalizações (%d, severidade máxima: %s):\n", len(result.Report.Flags), result.Report.HighestSeverity())
	for _, f := range result.Report.Flags {
		fmt.Printf("  [%s] %s — %s\n", f.Severity, f.ID, f.Detail)
	}

	return nil
}
