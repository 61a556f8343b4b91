// Package marketdata retrieves company profile, quote snapshot, price
// history and ratio data from the bulk-quote provider with the yfinance
// bridge as secondary source.
package marketdata

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/aruanc/sentinela/internal/contracts"
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

// SnapshotResult is one quote snapshot plus its currency metadata
type SnapshotResult struct {
	Quote      map[string]interface{}
	Currency   string
	FX         *contracts.FXRate
	SourceURLs []string
}

// HistoryResult is a daily price series plus its currency metadata
type HistoryResult struct {
	Points     []contracts.PricePoint
	Currency   string
	FX         *contracts.FXRate
	SourceURLs []string
}

// FactsResult is the company profile payload
type FactsResult struct {
	Facts      map[string]interface{}
	SourceURLs []string
}

// RatiosResult is the flattened valuation/profitability snapshot
type RatiosResult struct {
	Ratios     map[string]float64
	SourceURLs []string
}

// Service retrieves non-statement market data for one ticker
type Service struct {
	quotes QuoteAPI
	bridge yfbridge.Port
	fx     FXResolver
	logger *logger.Logger
	now    func() time.Time
}

// NewService creates a market data service
func NewService(quotes QuoteAPI, bridge yfbridge.Port, fx FXResolver, log *logger.Logger) *Service {
	return &Service{
		quotes: quotes,
		bridge: bridge,
		fx:     fx,
		logger: log.WithField("module", "marketdata"),
		now:    time.Now,
	}
}

// snapshotFields is the whitelist of quote fields kept in the snapshot.
// The raw provider result carries dozens of presentation fields this
// pipeline never reads.
var snapshotFields = []string{
	"symbol", "shortName", "longName", "currency",
	"regularMarketPrice", "regularMarketChange", "regularMarketChangePercent",
	"regularMarketDayHigh", "regularMarketDayLow", "regularMarketVolume",
	"regularMarketPreviousClose", "regularMarketOpen", "regularMarketTime",
	"fiftyTwoWeekHigh", "fiftyTwoWeekLow", "marketCap", "priceEarnings",
	"earningsPerShare",
}

// CompanyFacts fetches the company profile: primary provider's summary
// profile module, bridge info on miss.
func (s *Service) CompanyFacts(ctx context.Context, t contracts.NormalizedTicker) (FactsResult, error) {
	results, sourceURL, err := s.quotes.Quote(ctx, []string{t.ProviderSymbol("brapi")}, brapi.QuoteOptions{
		Modules: []string{"summaryProfile"},
	})
	if err == nil {
		if profile, ok := results[0]["summaryProfile"].(map[string]interface{}); ok && len(profile) > 0 {
			facts := make(map[string]interface{}, len(profile)+2)
			for k, v := range profile {
				facts[k] = v
			}
			if name, ok := results[0]["longName"].(string); ok {
				facts["longName"] = name
			}
			facts["symbol"] = t.Symbol
			return FactsResult{Facts: facts, SourceURLs: []string{sourceURL}}, nil
		}
	} else {
		s.logger.WithError(err).WithField("symbol", t.Symbol).Debug("Primary company facts yielded no data")
	}

	info, err := s.bridge.Info(ctx, t.ProviderSymbol("yahoo"))
	if err != nil {
		return FactsResult{}, fmt.Errorf("marketdata: company facts for %s: %w", t.Symbol, err)
	}
	return FactsResult{Facts: info, SourceURLs: []string{yfbridge.Source}}, nil
}

// Snapshot fetches the latest quote for the ticker
func (s *Service) Snapshot(ctx context.Context, t contracts.NormalizedTicker) (SnapshotResult, error) {
	results, sourceURL, err := s.quotes.Quote(ctx, []string{t.ProviderSymbol("brapi")}, brapi.QuoteOptions{})
	if err != nil {
		return SnapshotResult{}, fmt.Errorf("marketdata: quote snapshot for %s: %w", t.Symbol, err)
	}

	raw := results[0]
	snapshot := make(map[string]interface{})
	for _, field := range snapshotFields {
		if v, ok := raw[field]; ok && v != nil {
			snapshot[field] = v
		}
	}

	res := SnapshotResult{
		Quote:      snapshot,
		SourceURLs: []string{sourceURL},
	}
	if c, ok := raw["currency"].(string); ok {
		res.Currency = c
	} else if t.Market == contracts.MarketBR {
		res.Currency = "BRL"
	}

	if res.Currency == "BRL" {
		rate, err := s.fx.Rate(ctx)
		if err != nil {
			return SnapshotResult{}, fmt.Errorf("marketdata: resolve FX rate: %w", err)
		}
		if price, ok := toFloat(raw["regularMarketPrice"]); ok && rate.Rate > 0 {
			snapshot["regularMarketPrice_usd"] = price / rate.Rate
		}
		if mcap, ok := toFloat(raw["marketCap"]); ok && rate.Rate > 0 {
			snapshot["marketCap_usd"] = mcap / rate.Rate
		}
		res.FX = &rate
	}

	return res, nil
}

// History fetches a daily price series covering lookbackDays up to today
func (s *Service) History(ctx context.Context, t contracts.NormalizedTicker, lookbackDays int) (HistoryResult, error) {
	if lookbackDays <= 0 {
		lookbackDays = 730
	}
	end := s.now().UTC()
	start := end.AddDate(0, 0, -lookbackDays)

	rows, err := s.bridge.History(ctx, t.ProviderSymbol("yahoo"),
		start.Format("2006-01-02"), end.Format("2006-01-02"), "1d")
	if err != nil {
		return HistoryResult{}, fmt.Errorf("marketdata: price history for %s: %w", t.Symbol, err)
	}

	points := make([]contracts.PricePoint, 0, len(rows))
	for _, row := range rows {
		p := contracts.PricePoint{}
		if d, ok := row["date"].(string); ok {
			p.Date = d
		}
		if p.Date == "" {
			continue
		}
		p.Open, _ = toFloat(row["open"])
		p.High, _ = toFloat(row["high"])
		p.Low, _ = toFloat(row["low"])
		p.Close, _ = toFloat(row["close"])
		p.Volume, _ = toFloat(row["volume"])
		points = append(points, p)
	}

	res := HistoryResult{Points: points, SourceURLs: []string{yfbridge.Source}}
	if t.Market == contracts.MarketBR && len(points) > 0 {
		res.Currency = "BRL"
		rate, err := s.fx.Rate(ctx)
		if err == nil {
			res.FX = &rate
		}
	} else if len(points) > 0 {
		res.Currency = "USD"
	}

	return res, nil
}

// ratioModules are the provider modules whose numeric leaves become the
// ratio snapshot
var ratioModules = []string{"financialData", "defaultKeyStatistics"}

// Ratios fetches the valuation and profitability snapshot as a flat
// numeric map. Nested provider modules are flattened one level; boxed
// {"raw": x} numbers are unwrapped.
func (s *Service) Ratios(ctx context.Context, t contracts.NormalizedTicker) (RatiosResult, error) {
	results, sourceURL, err := s.quotes.Quote(ctx, []string{t.ProviderSymbol("brapi")}, brapi.QuoteOptions{
		Modules: ratioModules,
	})
	if err != nil {
		return RatiosResult{}, fmt.Errorf("marketdata: ratios for %s: %w", t.Symbol, err)
	}

	ratios := make(map[string]float64)
	for _, module := range ratioModules {
		nested, ok := results[0][module].(map[string]interface{})
		if !ok {
			continue
		}
		for key, value := range nested {
			if v, ok := toFloat(value); ok {
				if _, exists := ratios[key]; !exists {
					ratios[key] = v
				}
			}
		}
	}
	if len(ratios) == 0 {
		return RatiosResult{}, fmt.Errorf("marketdata: no ratio data for %s", t.Symbol)
	}

	return RatiosResult{Ratios: ratios, SourceURLs: []string{sourceURL}}, nil
}

// toFloat extracts a finite float from plain numbers and {"raw": x} boxes
func toFloat(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return 0, false
		}
		return t, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case map[string]interface{}:
		if raw, ok := t["raw"]; ok {
			return toFloat(raw)
		}
	}
	return 0, false
}
