package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/aruanc/sentinela/internal/api"
	"github.com/aruanc/sentinela/internal/api/handlers"
	"github.com/aruanc/sentinela/internal/scheduler"
	"github.com/aruanc/sentinela/internal/scheduler/jobs"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Inicia o servidor da API",
	Long: `Inicia o servidor REST de investigações.

Este comando:
- inicia o servidor HTTP
- agenda o aquecimento dos caches (PTAX e arquivos da CVM)

Endpoints:
  GET  /healthz              - Health check
  POST /api/v1/investigate   - Executa uma investigação

Example:
  go run ./cmd/sentinela api
  go run ./cmd/sentinela api --port 8080`,
	RunE: runAPIServer,
}

var apiPort string

func init() {
	rootCmd.AddCommand(apiCmd)

	apiCmd.Flags().StringVar(&apiPort, "port", "", "porta do servidor")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Sentinela API Server ===")

	a, err := buildApp()
	if err != nil {
		return err
	}
	if apiPort != "" {
		a.config.Port = apiPort
	}
	log := a.logger

	// Handlers and router
	investigationHandler := handlers.NewInvestigationHandler(a.pipeline, log)
	router := api.NewRouter(investigationHandler, log)
	server := api.New(a.config, log, router)

	// Cache warm jobs
	sched := scheduler.New(log)
	if err := sched.AddJob(jobs.NewFXWarmJob(a.fx, log)); err != nil {
		return err
	}
	if err := sched.AddJob(jobs.NewArchiveWarmJob(a.cvm, log)); err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	go func() {
		if err := server.Start(); err != nil {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	fmt.Printf("\n✅ Server running on http://localhost:%s\n", a.config.Port)
	fmt.Println("\nAvailable endpoints:")
	fmt.Println("  GET  /healthz")
	fmt.Println("  POST /api/v1/investigate")
	fmt.Println("\nPress Ctrl+C to stop")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("Server stopped")
	return nil
}
