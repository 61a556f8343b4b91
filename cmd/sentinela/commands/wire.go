package commands

import (
	"fmt"

	"github.com/aruanc/sentinela/internal/external/bcb"
	"github.com/aruanc/sentinela/internal/external/brapi"
	"github.com/aruanc/sentinela/internal/external/cvm"
	"github.com/aruanc/sentinela/internal/external/yfbridge"
	"github.com/aruanc/sentinela/internal/gather"
	"github.com/aruanc/sentinela/internal/investigate"
	"github.com/aruanc/sentinela/internal/marketdata"
	"github.com/aruanc/sentinela/internal/statements"
	"github.com/aruanc/sentinela/internal/target"
	"github.com/aruanc/sentinela/pkg/config"
	"github.com/aruanc/sentinela/pkg/logger"
)

// app holds the wired object graph shared by the CLI commands
type app struct {
	config   *config.Config
	logger   *logger.Logger
	fx       *bcb.Resolver
	cvm      *cvm.Client
	pipeline *investigate.Pipeline
}

// buildApp loads configuration and wires the full pipeline
// ⭐ SSOT: a montagem do grafo de dependências acontece somente aqui
func buildApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	log := logger.New(cfg)

	bcbClient := bcb.NewClient(cfg, log)
	fx := bcb.NewResolver(bcbClient, cfg.BCB.TTL, log)

	brapiClient := brapi.NewClient(cfg, log)
	bridge := yfbridge.New(cfg, log)
	cvmClient := cvm.NewClient(cfg, log)

	market := marketdata.NewService(brapiClient, bridge, fx, log)
	stmts := statements.NewService(brapiClient, bridge, fx, log)
	resolver := target.NewResolver(bridge, log)
	gatherer := gather.NewGatherer(market, stmts, cvmClient, log)
	pipeline := investigate.NewPipeline(resolver, gatherer, log)

	return &app{
		config:   cfg,
		logger:   log,
		fx:       fx,
		cvm:      cvmClient,
		pipeline: pipeline,
	}, nil
}
