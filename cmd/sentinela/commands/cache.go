package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/aruanc/sentinela/internal/external/cvm"
)

// cacheCmd groups cache maintenance subcommands
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manutenção dos caches locais",
}

// cacheCleanCmd removes the on-disk archive cache
var cacheCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove os arquivos da CVM em cache",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		if err := a.cvm.CleanCache(); err != nil {
			return fmt.Errorf("clean cache: %w", err)
		}
		fmt.Println("✅ Cache limpo")
		return nil
	},
}

// cacheWarmCmd pre-downloads the current year's archives and the FX rate
var cacheWarmCmd = &cobra.Command{
	Use:   "warm",
	Short: "Pré-baixa os arquivos do ano corrente e a taxa PTAX",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		rate, err := a.fx.Rate(ctx)
		if err != nil {
			fmt.Printf("⚠️  PTAX indisponível: %v\n", err)
		} else {
			fmt.Printf("PTAX: %.4f (%s)\n", rate.Rate, rate.Timestamp.Format(time.RFC3339))
		}

		year := time.Now().Year()
		for _, docType := range []cvm.DocType{cvm.DocDFP, cvm.DocITR, cvm.DocFRE, cvm.DocIPE} {
			path, err := a.cvm.EnsureArchive(ctx, docType, year)
			if err != nil {
				fmt.Printf("⚠️  %s %d: %v\n", docType, year, err)
				continue
			}
			fmt.Printf("%s %d: %s\n", docType, year, path)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheCleanCmd)
	cacheCmd.AddCommand(cacheWarmCmd)
}
