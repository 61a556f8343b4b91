package target

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aruanc/sentinela/internal/contracts"
	"github.com/aruanc/sentinela/pkg/logger"
)

type stubSearcher struct {
	payload map[string]interface{}
	err     error
	calls   int
	queries []string
}

func (s *stubSearcher) Search(_ context.Context, query string) (map[string]interface{}, error) {
	s.calls++
	s.queries = append(s.queries, query)
	if s.err != nil {
		return nil, s.err
	}
	return s.payload, nil
}

func searchPayload(quotes ...map[string]interface{}) map[string]interface{} {
	items := make([]interface{}, len(quotes))
	for i, q := range quotes {
		items[i] = q
	}
	return map[string]interface{}{"quotes": items}
}

func TestResolve_DirectBrazilianTicker(t *testing.T) {
	search := &stubSearcher{err: errors.New("must not be called")}
	r := NewResolver(search, logger.NewNop())

	for _, input := range []string{"PETR4", "petr4.sa", " VALE3 "} {
		target, err := r.Resolve(context.Background(), input)
		require.NoError(t, err, input)
		assert.Equal(t, contracts.MarketBR, target.Ticker.Market)
		assert.Equal(t, contracts.ProvenanceDirectTicker, target.Provenance)
	}
	assert.Equal(t, 0, search.calls, "direct match never touches the network")
}

func TestResolve_AmbiguousWordPrefersSearchHit(t *testing.T) {
	search := &stubSearcher{payload: searchPayload(
		map[string]interface{}{
			"symbol": "AAPL", "quoteType": "EQUITY",
			"exchange": "NMS", "longname": "Apple Inc.",
		},
	)}
	r := NewResolver(search, logger.NewNop())

	target, err := r.Resolve(context.Background(), "AAPL")

	require.NoError(t, err)
	assert.Equal(t, 1, search.calls)
	assert.Equal(t, "AAPL", target.Ticker.Symbol)
	assert.Equal(t, "Apple Inc.", target.Label)
	assert.Equal(t, contracts.ProvenanceSearch, target.Provenance)
}

func TestResolve_AmbiguousWordFallsBackToLiteralTicker(t *testing.T) {
	search := &stubSearcher{err: errors.New("search unavailable")}
	r := NewResolver(search, logger.NewNop())

	target, err := r.Resolve(context.Background(), "MSFT")

	require.NoError(t, err)
	assert.Equal(t, "MSFT", target.Ticker.Symbol)
	assert.Equal(t, contracts.MarketUS, target.Ticker.Market)
	assert.Equal(t, contracts.ProvenanceDirectTicker, target.Provenance)
}

func TestResolve_SymbolWithSuffixIsLiteral(t *testing.T) {
	// "BRK-B" is not purely alphabetic, so no search is attempted.
	search := &stubSearcher{err: errors.New("must not be called")}
	r := NewResolver(search, logger.NewNop())

	target, err := r.Resolve(context.Background(), "BRK-B")

	require.NoError(t, err)
	assert.Equal(t, 0, search.calls)
	assert.Equal(t, "BRK-B", target.Ticker.Symbol)
	assert.Equal(t, contracts.MarketUS, target.Ticker.Market)
}

func TestResolve_CompanyNameScoring(t *testing.T) {
	search := &stubSearcher{payload: searchPayload(
		map[string]interface{}{"symbol": "PBR", "quoteType": "ETF", "exchange": "NYQ"},
		map[string]interface{}{
			"symbol": "PETR4.SA", "quoteType": "EQUITY",
			"exchange": "SAO", "longname": "Petróleo Brasileiro S.A. - Petrobras",
		},
	)}
	r := NewResolver(search, logger.NewNop())

	target, err := r.Resolve(context.Background(), "petrobras brazil oil")

	require.NoError(t, err)
	assert.Equal(t, contracts.ProvenanceSearch, target.Provenance)
	// The searched symbol matches the Brazilian pattern, so the target
	// normalizes to the BR market.
	assert.Equal(t, "PETR4", target.Ticker.Symbol)
	assert.Equal(t, contracts.MarketBR, target.Ticker.Market)
	assert.Equal(t, "PETR4.SA", target.Ticker.YahooSymbol)
	assert.Equal(t, "Petróleo Brasileiro S.A. - Petrobras", target.Label)
}

func TestResolve_NoCandidatesIsFatal(t *testing.T) {
	search := &stubSearcher{payload: searchPayload()}
	r := NewResolver(search, logger.NewNop())

	_, err := r.Resolve(context.Background(), "this company does not exist at all")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoTarget)
}

func TestResolve_EmptyQuery(t *testing.T) {
	r := NewResolver(&stubSearcher{}, logger.NewNop())

	_, err := r.Resolve(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrNoTarget)
}

func TestBestCandidate_ScoresEquityHigher(t *testing.T) {
	payload := searchPayload(
		map[string]interface{}{"symbol": "XYZ1", "exchange": "NYQ", "shortname": "XYZ Fund"},
		map[string]interface{}{"symbol": "XYZ", "quoteType": "EQUITY", "exchange": "NYQ", "shortname": "XYZ Corp"},
	)

	best, ok := bestCandidate(payload)
	require.True(t, ok)
	assert.Equal(t, "XYZ", best.symbol)
	assert.Equal(t, 5, best.score)
}

func TestLooksLikeTicker(t *testing.T) {
	assert.True(t, looksLikeTicker("AAPL"))
	assert.True(t, looksLikeTicker("BRK-B"))
	assert.True(t, looksLikeTicker("^GSPC"))
	assert.False(t, looksLikeTicker("apple inc"))
	assert.False(t, looksLikeTicker("averyveryverylongsymbol"))
	assert.False(t, looksLikeTicker(""))
}
