// Package investigate wires resolution, gathering and screening into the
// single inbound operation.
package investigate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aruanc/sentinela/internal/anomaly"
	"github.com/aruanc/sentinela/internal/contracts"
	"github.com/aruanc/sentinela/internal/gather"
	"github.com/aruanc/sentinela/pkg/logger"
)

// ErrUnsupportedMarket means the query resolved to an instrument this
// pipeline does not investigate.
var ErrUnsupportedMarket = errors.New("investigate: unsupported market")

// Resolver is the slice of the target resolver the pipeline needs
type Resolver interface {
	Resolve(ctx context.Context, query string) (contracts.ResolvedTarget, error)
}

// Gatherer is the slice of the dataset gatherer the pipeline needs
type Gatherer interface {
	Gather(ctx context.Context, target contracts.ResolvedTarget, opts gather.Options) contracts.Dataset
}

// Request is one investigation request
type Request struct {
	Query           string `json:"query"`
	LookbackDays    int    `json:"lookback_days,omitempty"`
	StatementsLimit int    `json:"statements_limit,omitempty"`
	FilingsLimit    int    `json:"filings_limit,omitempty"`
}

// Pipeline runs investigations end to end
type Pipeline struct {
	resolver Resolver
	gatherer Gatherer
	logger   *logger.Logger
	now      func() time.Time
}

// NewPipeline creates an investigation pipeline
func NewPipeline(resolver Resolver, gatherer Gatherer, log *logger.Logger) *Pipeline {
	return &Pipeline{
		resolver: resolver,
		gatherer: gatherer,
		logger:   log.WithField("module", "investigate"),
		now:      time.Now,
	}
}

// Run resolves the query, gathers the dataset and screens it. Resolution
// failure is fatal; everything downstream settles into a best-effort
// result annotated with per-step errors.
func (p *Pipeline) Run(ctx context.Context, req Request) (*contracts.InvestigationResult, error) {
	target, err := p.resolver.Resolve(ctx, req.Query)
	if err != nil {
		return nil, err
	}
	if target.Ticker.Market == contracts.MarketCrypto {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMarket, target.Ticker.Symbol)
	}

	p.logger.WithFields(map[string]interface{}{
		"query":      req.Query,
		"ticker":     target.Ticker.Symbol,
		"market":     target.Ticker.Market,
		"provenance": target.Provenance,
	}).Info("Investigating target")

	dataset := p.gatherer.Gather(ctx, target, gather.Options{
		LookbackDays:    req.LookbackDays,
		StatementsLimit: req.StatementsLimit,
		FilingsLimit:    req.FilingsLimit,
	})
	report := anomaly.Screen(&dataset)

	p.logger.WithFields(map[string]interface{}{
		"ticker":   target.Ticker.Symbol,
		"flags":    len(report.Flags),
		"severity": report.HighestSeverity(),
	}).Info("Investigation complete")

	return &contracts.InvestigationResult{
		Target:      target,
		Dataset:     &dataset,
		Report:      report,
		GeneratedAt: p.now().UTC(),
	}, nil
}
