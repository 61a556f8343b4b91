// Package target maps a free-text query (ticker or company name) to a
// canonical investigation target.
package target

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aruanc/sentinela/internal/contracts"
	"github.com/aruanc/sentinela/internal/ticker"
	"github.com/aruanc/sentinela/pkg/logger"
)

// ErrNoTarget means the query matched nothing. No target, no
// investigation; callers treat this as fatal.
var ErrNoTarget = errors.New("target: no match for query")

// Searcher is the slice of the bridge this resolver needs
type Searcher interface {
	Search(ctx context.Context, query string) (map[string]interface{}, error)
}

// Resolver turns queries into investigation targets
type Resolver struct {
	search Searcher
	logger *logger.Logger
}

// NewResolver creates a target resolver
func NewResolver(search Searcher, log *logger.Logger) *Resolver {
	return &Resolver{
		search: search,
		logger: log.WithField("module", "target"),
	}
}

// Resolve maps a free-text query to a target. Resolution order: direct
// Brazilian-pattern match (no network), literal ticker interpretation,
// provider search with scoring. Short purely-alphabetic inputs are
// ambiguous between ticker and abbreviated company name, so search is
// tried first and its top result preferred when one exists.
func (r *Resolver) Resolve(ctx context.Context, query string) (contracts.ResolvedTarget, error) {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return contracts.ResolvedTarget{}, ErrNoTarget
	}

	if ticker.IsB3Symbol(trimmed) {
		t := ticker.Classify(trimmed)
		return contracts.ResolvedTarget{
			Query:      query,
			Label:      t.Symbol,
			Ticker:     t,
			Provenance: contracts.ProvenanceDirectTicker,
		}, nil
	}

	if looksLikeTicker(trimmed) {
		if isAmbiguousWord(trimmed) {
			if target, ok := r.searchTarget(ctx, query, trimmed); ok {
				return target, nil
			}
		}
		t := ticker.Classify(trimmed)
		return contracts.ResolvedTarget{
			Query:      query,
			Label:      t.Symbol,
			Ticker:     t,
			Provenance: contracts.ProvenanceDirectTicker,
		}, nil
	}

	if target, ok := r.searchTarget(ctx, query, trimmed); ok {
		return target, nil
	}
	return contracts.ResolvedTarget{}, fmt.Errorf("%w: %q", ErrNoTarget, trimmed)
}

// searchTarget runs a provider search and picks the best-scoring candidate
func (r *Resolver) searchTarget(ctx context.Context, query, trimmed string) (contracts.ResolvedTarget, bool) {
	payload, err := r.search.Search(ctx, trimmed)
	if err != nil {
		r.logger.WithError(err).WithField("query", trimmed).Debug("Provider search failed")
		return contracts.ResolvedTarget{}, false
	}

	best, ok := bestCandidate(payload)
	if !ok {
		return contracts.ResolvedTarget{}, false
	}

	// A searched symbol matching the Brazilian pattern is normalized to
	// the BR market regardless of the path that produced it.
	t := ticker.Classify(best.symbol)
	label := best.name
	if label == "" {
		label = t.Symbol
	}
	return contracts.ResolvedTarget{
		Query:      query,
		Label:      label,
		Ticker:     t,
		Provenance: contracts.ProvenanceSearch,
	}, true
}

type candidate struct {
	symbol string
	name   string
	score  int
}

// bestCandidate scores the search payload's quotes: symbol present +1,
// common-equity type +2, exchange label +1, display name +1. Highest
// score wins; ties keep provider order.
func bestCandidate(payload map[string]interface{}) (candidate, bool) {
	quotes, ok := payload["quotes"].([]interface{})
	if !ok {
		return candidate{}, false
	}

	var best candidate
	found := false
	for _, item := range quotes {
		quote, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		c := scoreQuote(quote)
		if c.symbol == "" {
			continue
		}
		if !found || c.score > best.score {
			best = c
			found = true
		}
	}
	return best, found
}

func scoreQuote(quote map[string]interface{}) candidate {
	c := candidate{}
	if s, ok := quote["symbol"].(string); ok && s != "" {
		c.symbol = s
		c.score++
	}
	if qt, ok := quote["quoteType"].(string); ok && strings.EqualFold(qt, "EQUITY") {
		c.score += 2
	}
	if hasStringField(quote, "exchange") || hasStringField(quote, "exchDisp") {
		c.score++
	}
	for _, key := range []string{"longname", "shortname"} {
		if name, ok := quote[key].(string); ok && name != "" {
			c.name = name
			c.score++
			break
		}
	}
	return c
}

func hasStringField(m map[string]interface{}, key string) bool {
	s, ok := m[key].(string)
	return ok && s != ""
}

// looksLikeTicker reports whether the input could be a literal symbol:
// no whitespace, at most 15 characters, ticker-safe charset.
func looksLikeTicker(s string) bool {
	if len(s) == 0 || len(s) > 15 {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'A' && r <= 'Z':
		case r >= 'a' && r <= 'z':
		case r >= '0' && r <= '9':
		case r == '.' || r == '-' || r == '^' || r == '=' || r == ':':
		default:
			return false
		}
	}
	return true
}

// isAmbiguousWord reports whether the input is short and purely
// alphabetic, equally plausible as a ticker or an abbreviated company
// name.
func isAmbiguousWord(s string) bool {
	if len(s) < 3 || len(s) > 10 {
		return false
	}
	for _, r := range s {
		if !(r >= 'A' && r <= 'Z') && !(r >= 'a' && r <= 'z') {
			return false
		}
	}
	return true
}
