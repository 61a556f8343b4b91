// Package statements normalizes financial statements from the bulk-quote
// provider with a per-horizon fallback to the yfinance bridge.
package statements

import (
	"context"
	"fmt"

	"github.com/aruanc/sentinela/internal/contracts"
	"github.com/aruanc/sentinela/internal/external/bcb"
	"github.com/aruanc/sentinela/internal/external/brapi"
	"github.com/aruanc/sentinela/internal/external/yfbridge"
	"github.com/aruanc/sentinela/pkg/logger"
)

// QuoteAPI is the slice of the brapi client this service needs
type QuoteAPI interface {
	Quote(ctx context.Context, symbols []string, opts brapi.QuoteOptions) ([]brapi.QuoteResult, string, error)
}

// FXResolver hands out the shared official rate
type FXResolver interface {
	Rate(ctx context.Context) (contracts.FXRate, error)
}

// FetchOptions selects an optional date range and a result cap, applied
// after normalization and derivation.
type FetchOptions struct {
	From  string // ISO date, inclusive; "" = open
	To    string // ISO date, inclusive; "" = open
	Limit int    // 0 = no cap
}

// FetchResult is the normalized outcome of one statements fetch
type FetchResult struct {
	Records    []contracts.Statement
	Currency   string
	FX         *contracts.FXRate
	SourceURLs []string
}

// Service is the statement provider adapter
// ⭐ SSOT: normalização de demonstrativos acontece somente aqui
type Service struct {
	quotes QuoteAPI
	bridge yfbridge.Port
	fx     FXResolver
	logger *logger.Logger
}

// NewService creates a statements service
func NewService(quotes QuoteAPI, bridge yfbridge.Port, fx FXResolver, log *logger.Logger) *Service {
	return &Service{
		quotes: quotes,
		bridge: bridge,
		fx:     fx,
		logger: log.WithField("module", "statements"),
	}
}

// modulesFor maps a category to the provider's annual and quarterly modules
func modulesFor(category contracts.StatementCategory) (annual, quarterly string) {
	switch category {
	case contracts.CategoryIncome:
		return "incomeStatementHistory", "incomeStatementHistoryQuarterly"
	case contracts.CategoryBalance:
		return "balanceSheetHistory", "balanceSheetHistoryQuarterly"
	default:
		return "cashflowHistory", "cashflowHistoryQuarterly"
	}
}

// Fetch retrieves ticker × category × period statements. The primary
// provider is asked for both horizons in one call; any failure there is
// treated as no data. Each horizon independently falls back to the bridge
// only when the primary yielded zero records for it; horizons never
// cross-blend.
func (s *Service) Fetch(ctx context.Context, t contracts.NormalizedTicker, category contracts.StatementCategory, period contracts.PeriodType, opts FetchOptions) (FetchResult, error) {
	annualModule, quarterlyModule := modulesFor(category)

	var (
		annualRaw    []map[string]interface{}
		quarterlyRaw []map[string]interface{}
		currency     string
		sourceURLs   []string
	)

	results, sourceURL, err := s.quotes.Quote(ctx, []string{t.ProviderSymbol("brapi")}, brapi.QuoteOptions{
		Modules: []string{annualModule, quarterlyModule},
	})
	if err != nil {
		s.logger.WithError(err).WithField("symbol", t.Symbol).Debug("Primary statements fetch yielded no data")
	} else {
		first := results[0]
		annualRaw = extractRows(first, annualModule)
		quarterlyRaw = extractRows(first, quarterlyModule)
		if c, ok := first["currency"].(string); ok {
			currency = c
		}
		sourceURLs = append(sourceURLs, sourceURL)
	}

	needAnnual := period == contracts.PeriodAnnual
	needQuarterly := period == contracts.PeriodQuarterly || period == contracts.PeriodTTM

	if needAnnual && len(annualRaw) == 0 {
		annualRaw = s.bridgeHorizon(ctx, t, category, contracts.PeriodAnnual, &sourceURLs)
	}
	if needQuarterly && len(quarterlyRaw) == 0 {
		quarterlyRaw = s.bridgeHorizon(ctx, t, category, contracts.PeriodQuarterly, &sourceURLs)
	}

	var records []contracts.Statement
	switch period {
	case contracts.PeriodAnnual:
		records = normalizeAll(annualRaw, category, contracts.PeriodAnnual)
	case contracts.PeriodQuarterly:
		records = normalizeAll(quarterlyRaw, category, contracts.PeriodQuarterly)
	case contracts.PeriodTTM:
		records = BuildTTM(category, normalizeAll(quarterlyRaw, category, contracts.PeriodQuarterly))
	}
	sortByPeriodDesc(records)

	if category == contracts.CategoryCashflow {
		for i := range records {
			DeriveFreeCashFlow(&records[i])
		}
	}

	if category == contracts.CategoryBalance {
		s.backfillShares(ctx, t, records)
	}

	result := FetchResult{
		Records:    records,
		Currency:   currency,
		SourceURLs: sourceURLs,
	}
	if result.Currency == "" && len(records) > 0 {
		if t.Market == contracts.MarketBR {
			result.Currency = "BRL"
		} else {
			result.Currency = "USD"
		}
	}

	if result.Currency == "BRL" && len(records) > 0 {
		rate, err := s.fx.Rate(ctx)
		if err != nil {
			return FetchResult{}, fmt.Errorf("statements: resolve FX rate: %w", err)
		}
		for i := range result.Records {
			result.Records[i] = bcb.ConvertFields(result.Records[i], rate.Rate)
		}
		result.FX = &rate
	}

	result.Records = filterByRange(result.Records, opts.From, opts.To)
	if opts.Limit > 0 && len(result.Records) > opts.Limit {
		result.Records = result.Records[:opts.Limit]
	}

	s.logger.WithFields(map[string]interface{}{
		"symbol":   t.Symbol,
		"category": category,
		"period":   period,
		"count":    len(result.Records),
	}).Debug("Fetched statements")

	return result, nil
}

// bridgeHorizon falls back to the subprocess bridge for one horizon.
// Bridge failures are no-data, not errors; the caller still has whatever
// the primary produced for the other horizon.
func (s *Service) bridgeHorizon(ctx context.Context, t contracts.NormalizedTicker, category contracts.StatementCategory, period contracts.PeriodType, sourceURLs *[]string) []map[string]interface{} {
	payload, err := s.bridge.Statements(ctx, t.ProviderSymbol("yahoo"), string(category))
	if err != nil {
		s.logger.WithError(err).WithFields(map[string]interface{}{
			"symbol":   t.Symbol,
			"category": category,
			"period":   period,
		}).Warn("Bridge statements fallback failed")
		return nil
	}

	var rows []map[string]interface{}
	if period == contracts.PeriodAnnual {
		rows = payload.Annual
	} else {
		rows = payload.Quarterly
	}
	if len(rows) > 0 {
		*sourceURLs = append(*sourceURLs, yfbridge.Source)
	}
	return rows
}

// backfillShares fills shares_outstanding from a company-info lookup on
// records that lack it. One lookup serves every record.
func (s *Service) backfillShares(ctx context.Context, t contracts.NormalizedTicker, records []contracts.Statement) {
	missing := false
	for _, r := range records {
		if _, ok := r.Fields["shares_outstanding"]; !ok {
			missing = true
			break
		}
	}
	if !missing {
		return
	}

	shares, ok := s.lookupShares(ctx, t)
	if !ok {
		return
	}
	for i := range records {
		if _, exists := records[i].Fields["shares_outstanding"]; !exists {
			records[i].Fields["shares_outstanding"] = shares
		}
	}
}

func (s *Service) lookupShares(ctx context.Context, t contracts.NormalizedTicker) (float64, bool) {
	results, _, err := s.quotes.Quote(ctx, []string{t.ProviderSymbol("brapi")}, brapi.QuoteOptions{
		Modules: []string{"defaultKeyStatistics"},
	})
	if err == nil {
		if stats, ok := results[0]["defaultKeyStatistics"].(map[string]interface{}); ok {
			if v, ok := unwrapNumber(stats["sharesOutstanding"]); ok && v > 0 {
				return v, true
			}
		}
	}

	info, err := s.bridge.Info(ctx, t.ProviderSymbol("yahoo"))
	if err != nil {
		return 0, false
	}
	if v, ok := unwrapNumber(info["sharesOutstanding"]); ok && v > 0 {
		return v, true
	}
	return 0, false
}

// normalizeAll normalizes a raw horizon into canonical statements
func normalizeAll(raw []map[string]interface{}, category contracts.StatementCategory, period contracts.PeriodType) []contracts.Statement {
	out := make([]contracts.Statement, 0, len(raw))
	for _, row := range raw {
		out = append(out, Normalize(row, category, period))
	}
	return out
}

// extractRows digs the record array out of a provider module payload.
// brapi nests the array under the module's own name; some payloads carry
// the array directly.
func extractRows(result brapi.QuoteResult, module string) []map[string]interface{} {
	value, ok := result[module]
	if !ok {
		return nil
	}

	switch t := value.(type) {
	case []interface{}:
		return toMaps(t)
	case map[string]interface{}:
		if inner, ok := t[module].([]interface{}); ok {
			return toMaps(inner)
		}
		for _, v := range t {
			if arr, ok := v.([]interface{}); ok {
				return toMaps(arr)
			}
		}
	}
	return nil
}

func toMaps(items []interface{}) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(items))
	for _, item := range items {
		if m, ok := item.(map[string]interface{}); ok {
			out = append(out, m)
		}
	}
	return out
}
