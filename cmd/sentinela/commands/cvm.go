package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/aruanc/sentinela/internal/external/cvm"
)

// cvmCmd groups direct access to the bulk disclosure archives
var cvmCmd = &cobra.Command{
	Use:   "cvm",
	Short: "Consulta direta aos dados abertos da CVM",
	Long: `Consulta os arquivos de dados abertos da CVM sem passar pela
investigação completa.

Example:
  go run ./cmd/sentinela cvm identity PETR4
  go run ./cmd/sentinela cvm items PETR4 --doc DFP --year 2025
  go run ./cmd/sentinela cvm filings PETR4 --limit 10`,
}

var (
	cvmItemsDoc   string
	cvmFilingsDoc string
	cvmYear       int
	cvmQuarter    int
	cvmLimit      int
	cvmJSON       bool
)

// cvmIdentityCmd resolves a ticker to its registry identity
var cvmIdentityCmd = &cobra.Command{
	Use:   "identity [ticker]",
	Short: "Resolve código CVM, CNPJ e razão social de um ticker",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}

		identity, err := a.cvm.ResolveIdentity(cmd.Context(), args[0], resolveYear())
		if err != nil {
			return err
		}
		if !identity.Found {
			fmt.Printf("Ticker %s não encontrado no registro\n", strings.ToUpper(args[0]))
			return nil
		}

		fmt.Printf("Ticker:       %s\n", identity.Ticker)
		fmt.Printf("Código CVM:   %s\n", identity.CVMCode)
		fmt.Printf("CNPJ:         %s\n", identity.CNPJ)
		fmt.Printf("Razão social: %s\n", identity.LegalName)
		return nil
	},
}

// cvmItemsCmd extracts statement line items for one company and period
var cvmItemsCmd = &cobra.Command{
	Use:   "items [ticker]",
	Short: "Extrai linhas de demonstrativos do arquivo anual ou trimestral",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		year := resolveYear()

		identity, err := a.cvm.ResolveIdentity(ctx, args[0], year)
		if err != nil {
			return err
		}

		items, sourceURL, err := a.cvm.StatementLineItems(ctx, identity, cvm.LineItemQuery{
			DocType: cvm.DocType(strings.ToUpper(cvmItemsDoc)),
			Year:    year,
			Quarter: cvmQuarter,
		})
		if err != nil {
			return err
		}

		if cvmJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(items)
		}

		fmt.Printf("Fonte: %s\n", sourceURL)
		fmt.Printf("%d linhas extraídas:\n", len(items))
		for _, item := range items {
			fmt.Printf("  [%s/%s] %-12s %-50s %18.2f  (%s)\n",
				item.StatementKind, item.Consolidation, item.AccountCode,
				truncate(item.AccountName, 50), item.Value, item.Period)
		}
		return nil
	},
}

// cvmFilingsCmd lists filing metadata for one company
var cvmFilingsCmd = &cobra.Command{
	Use:   "filings [ticker]",
	Short: "Lista documentos entregues à CVM",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		year := resolveYear()

		identity, err := a.cvm.ResolveIdentity(ctx, args[0], year)
		if err != nil {
			return err
		}
		if !identity.Found {
			fmt.Printf("Ticker %s não encontrado no registro\n", strings.ToUpper(args[0]))
			return nil
		}

		docTypes := []cvm.DocType{cvm.DocIPE, cvm.DocFRE}
		if cvmFilingsDoc != "" {
			docTypes = []cvm.DocType{cvm.DocType(strings.ToUpper(cvmFilingsDoc))}
		}

		filings, _, err := a.cvm.Filings(ctx, identity, docTypes, year, cvmLimit)
		if err != nil {
			return err
		}

		if cvmJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(filings)
		}

		fmt.Printf("%d documentos:\n", len(filings))
		for _, f := range filings {
			fmt.Printf("  %s  [%s] %-20s %s\n", f.SortDate(), f.DocType,
				truncate(f.Category, 20), truncate(f.Subject, 60))
		}
		return nil
	},
}

func resolveYear() int {
	if cvmYear > 0 {
		return cvmYear
	}
	return time.Now().Year()
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}

func init() {
	rootCmd.AddCommand(cvmCmd)
	cvmCmd.AddCommand(cvmIdentityCmd)
	cvmCmd.AddCommand(cvmItemsCmd)
	cvmCmd.AddCommand(cvmFilingsCmd)

	cvmCmd.PersistentFlags().IntVar(&cvmYear, "year", 0, "ano de referência (padrão: ano corrente)")
	cvmCmd.PersistentFlags().BoolVar(&cvmJSON, "json", false, "imprime em JSON")

	cvmItemsCmd.Flags().StringVar(&cvmItemsDoc, "doc", "DFP", "tipo de documento (DFP|ITR)")
	cvmItemsCmd.Flags().IntVar(&cvmQuarter, "quarter", 0, "trimestre (1-4, somente ITR)")

	cvmFilingsCmd.Flags().StringVar(&cvmFilingsDoc, "doc", "", "tipo de documento (DFP|ITR|FRE|IPE)")
	cvmFilingsCmd.Flags().IntVar(&cvmLimit, "limit", 20, "máximo de documentos")
}
