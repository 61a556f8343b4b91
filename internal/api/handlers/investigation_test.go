package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aruanc/sentinela/internal/contracts"
	"github.com/aruanc/sentinela/internal/investigate"
	"github.com/aruanc/sentinela/internal/target"
	"github.com/aruanc/sentinela/pkg/logger"
)

type stubRunner struct {
	result *contracts.InvestigationResult
	err    error
	req    investigate.Request
}

func (s *stubRunner) Run(_ context.Context, req investigate.Request) (*contracts.InvestigationResult, error) {
	s.req = req
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func postInvestigate(t *testing.T, h *InvestigationHandler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/investigate", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	h.Investigate(rec, req)
	return rec
}

func TestInvestigate_OK(t *testing.T) {
	runner := &stubRunner{result: &contracts.InvestigationResult{
		Target: contracts.ResolvedTarget{
			Query:  "PETR4",
			Ticker: contracts.NormalizedTicker{Symbol: "PETR4", Market: contracts.MarketBR},
		},
		Dataset:     &contracts.Dataset{Currency: "BRL"},
		Report:      &contracts.Report{Metrics: map[string]float64{}, Flags: []contracts.Flag{}},
		GeneratedAt: time.Now().UTC(),
	}}
	h := NewInvestigationHandler(runner, logger.NewNop())

	rec := postInvestigate(t, h, `{"query":"PETR4","lookback_days":365}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 365, runner.req.LookbackDays)

	var result contracts.InvestigationResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&result))
	assert.Equal(t, "PETR4", result.Target.Ticker.Symbol)
}

func TestInvestigate_MissingQuery(t *testing.T) {
	h := NewInvestigationHandler(&stubRunner{}, logger.NewNop())

	rec := postInvestigate(t, h, `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInvestigate_InvalidBody(t *testing.T) {
	h := NewInvestigationHandler(&stubRunner{}, logger.NewNop())

	rec := postInvestigate(t, h, `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInvestigate_NoTargetIs404(t *testing.T) {
	h := NewInvestigationHandler(&stubRunner{err: target.ErrNoTarget}, logger.NewNop())

	rec := postInvestigate(t, h, `{"query":"no such company"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestInvestigate_CryptoIs422(t *testing.T) {
	h := NewInvestigationHandler(&stubRunner{err: investigate.ErrUnsupportedMarket}, logger.NewNop())

	rec := postInvestigate(t, h, `{"query":"crypto:btc-usd"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}
