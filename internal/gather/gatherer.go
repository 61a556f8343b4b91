// Package gather runs the eight retrieval steps of one investigation
// concurrently, isolating failures per step.
package gather

import (
	"context"
	"sync"
	"time"

	"github.com/aruanc/sentinela/internal/contracts"
	"github.com/aruanc/sentinela/internal/external/cvm"
	"github.com/aruanc/sentinela/internal/marketdata"
	"github.com/aruanc/sentinela/internal/statements"
	"github.com/aruanc/sentinela/pkg/logger"
)

// Defaults applied when an option is zero
const (
	DefaultLookbackDays    = 730
	DefaultStatementsLimit = 6
	DefaultFilingsLimit    = 20
)

// MarketData is the slice of the market data service the gatherer needs
type MarketData interface {
	CompanyFacts(ctx context.Context, t contracts.NormalizedTicker) (marketdata.FactsResult, error)
	Snapshot(ctx context.Context, t contracts.NormalizedTicker) (marketdata.SnapshotResult, error)
	History(ctx context.Context, t contracts.NormalizedTicker, lookbackDays int) (marketdata.HistoryResult, error)
	Ratios(ctx context.Context, t contracts.NormalizedTicker) (marketdata.RatiosResult, error)
}

// StatementFetcher is the slice of the statements service the gatherer needs
type StatementFetcher interface {
	Fetch(ctx context.Context, t contracts.NormalizedTicker, category contracts.StatementCategory, period contracts.PeriodType, opts statements.FetchOptions) (statements.FetchResult, error)
}

// Regulatory is the slice of the bulk extractor the gatherer needs
type Regulatory interface {
	ResolveIdentity(ctx context.Context, tickerSymbol string, year int) (contracts.CompanyIdentity, error)
	Filings(ctx context.Context, identity contracts.CompanyIdentity, docTypes []cvm.DocType, year, limit int) ([]contracts.Filing, []string, error)
}

// Options bounds one gather run
type Options struct {
	LookbackDays    int
	StatementsLimit int
	FilingsLimit    int
}

func (o Options) withDefaults() Options {
	if o.LookbackDays <= 0 {
		o.LookbackDays = DefaultLookbackDays
	}
	if o.StatementsLimit <= 0 {
		o.StatementsLimit = DefaultStatementsLimit
	}
	if o.FilingsLimit <= 0 {
		o.FilingsLimit = DefaultFilingsLimit
	}
	return o
}

// Gatherer fans out the retrieval steps for one target
type Gatherer struct {
	market     MarketData
	statements StatementFetcher
	regulatory Regulatory
	logger     *logger.Logger
	now        func() time.Time
}

// NewGatherer creates a dataset gatherer
func NewGatherer(market MarketData, stmts StatementFetcher, regulatory Regulatory, log *logger.Logger) *Gatherer {
	return &Gatherer{
		market:     market,
		statements: stmts,
		regulatory: regulatory,
		logger:     log.WithField("module", "gather"),
		now:        time.Now,
	}
}

// stepResult is one settled step, success or caught failure
type stepResult struct {
	step       string
	err        error
	apply      func(d *contracts.Dataset)
	sourceURLs []string
	currency   string
	fx         *contracts.FXRate
}

// Gather runs all eight steps concurrently and joins at a barrier. A
// failing step records {step, message} and leaves its dataset field
// empty; siblings are unaffected. The run itself never fails.
func (g *Gatherer) Gather(ctx context.Context, target contracts.ResolvedTarget, opts Options) contracts.Dataset {
	opts = opts.withDefaults()
	t := target.Ticker

	steps := []struct {
		name string
		run  func(ctx context.Context) stepResult
	}{
		{"company_facts", func(ctx context.Context) stepResult {
			res, err := g.market.CompanyFacts(ctx, t)
			if err != nil {
				return stepResult{err: err}
			}
			return stepResult{
				apply:      func(d *contracts.Dataset) { d.CompanyFacts = res.Facts },
				sourceURLs: res.SourceURLs,
			}
		}},
		{"price_snapshot", func(ctx context.Context) stepResult {
			res, err := g.market.Snapshot(ctx, t)
			if err != nil {
				return stepResult{err: err}
			}
			return stepResult{
				apply:      func(d *contracts.Dataset) { d.Quote = res.Quote },
				sourceURLs: res.SourceURLs,
				currency:   res.Currency,
				fx:         res.FX,
			}
		}},
		{"price_history", func(ctx context.Context) stepResult {
			res, err := g.market.History(ctx, t, opts.LookbackDays)
			if err != nil {
				return stepResult{err: err}
			}
			return stepResult{
				apply:      func(d *contracts.Dataset) { d.PriceHistory = res.Points },
				sourceURLs: res.SourceURLs,
				currency:   res.Currency,
				fx:         res.FX,
			}
		}},
		{"income_statements", g.statementStep(t, contracts.CategoryIncome, opts, func(d *contracts.Dataset, recs []contracts.Statement) {
			d.IncomeStatements = recs
		})},
		{"balance_sheets", g.statementStep(t, contracts.CategoryBalance, opts, func(d *contracts.Dataset, recs []contracts.Statement) {
			d.BalanceSheets = recs
		})},
		{"cashflow_statements", g.statementStep(t, contracts.CategoryCashflow, opts, func(d *contracts.Dataset, recs []contracts.Statement) {
			d.CashflowStatements = recs
		})},
		{"ratios", func(ctx context.Context) stepResult {
			res, err := g.market.Ratios(ctx, t)
			if err != nil {
				return stepResult{err: err}
			}
			return stepResult{
				apply:      func(d *contracts.Dataset) { d.Ratios = res.Ratios },
				sourceURLs: res.SourceURLs,
			}
		}},
		{"filings", g.filingsStep(t, opts)},
	}

	results := make([]stepResult, len(steps))
	var wg sync.WaitGroup
	for i, step := range steps {
		wg.Add(1)
		go func(i int, name string, run func(ctx context.Context) stepResult) {
			defer wg.Done()
			res := run(ctx)
			res.step = name
			results[i] = res
		}(i, step.name, step.run)
	}
	wg.Wait()

	dataset := contracts.Dataset{}
	seen := make(map[string]struct{})
	for _, res := range results {
		if res.err != nil {
			g.logger.WithError(res.err).WithField("step", res.step).Warn("Gather step failed")
			dataset.Errors = append(dataset.Errors, contracts.StepError{
				Step:    res.step,
				Message: res.err.Error(),
			})
			continue
		}
		res.apply(&dataset)
		for _, u := range res.sourceURLs {
			if _, dup := seen[u]; dup || u == "" {
				continue
			}
			seen[u] = struct{}{}
			dataset.SourceURLs = append(dataset.SourceURLs, u)
		}
		// First step in priority order that supplies currency metadata
		// wins; every BR step in one run shares the same cached rate.
		if dataset.Currency == "" && res.currency != "" {
			dataset.Currency = res.currency
			dataset.FX = res.fx
			dataset.FXSource = res.step
		}
	}

	g.logger.WithFields(map[string]interface{}{
		"ticker": t.Symbol,
		"errors": len(dataset.Errors),
	}).Info("Gather complete")

	return dataset
}

func (g *Gatherer) statementStep(t contracts.NormalizedTicker, category contracts.StatementCategory, opts Options, set func(*contracts.Dataset, []contracts.Statement)) func(ctx context.Context) stepResult {
	return func(ctx context.Context) stepResult {
		res, err := g.statements.Fetch(ctx, t, category, contracts.PeriodAnnual, statements.FetchOptions{
			Limit: opts.StatementsLimit,
		})
		if err != nil {
			return stepResult{err: err}
		}
		return stepResult{
			apply:      func(d *contracts.Dataset) { set(d, res.Records) },
			sourceURLs: res.SourceURLs,
			currency:   res.Currency,
			fx:         res.FX,
		}
	}
}

// filingsStep pulls regulatory filings for Brazilian targets. Other
// markets have no bulk-disclosure source here, so the step settles with
// an empty list rather than an error.
func (g *Gatherer) filingsStep(t contracts.NormalizedTicker, opts Options) func(ctx context.Context) stepResult {
	return func(ctx context.Context) stepResult {
		if t.Market != contracts.MarketBR {
			return stepResult{apply: func(d *contracts.Dataset) { d.Filings = []contracts.Filing{} }}
		}

		year := g.now().Year()
		identity, err := g.regulatory.ResolveIdentity(ctx, t.Symbol, year)
		if err != nil {
			return stepResult{err: err}
		}
		if !identity.Found {
			return stepResult{apply: func(d *contracts.Dataset) { d.Filings = []contracts.Filing{} }}
		}

		filings, sourceURLs, err := g.regulatory.Filings(ctx, identity,
			[]cvm.DocType{cvm.DocIPE, cvm.DocFRE}, year, opts.FilingsLimit)
		if err != nil {
			return stepResult{err: err}
		}
		return stepResult{
			apply:      func(d *contracts.Dataset) { d.Filings = filings },
			sourceURLs: sourceURLs,
		}
	}
}
