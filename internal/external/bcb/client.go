// Package bcb talks to the Banco Central do Brasil PTAX OData service and
// resolves the official USD/BRL reference rate.
package bcb

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/aruanc/sentinela/pkg/config"
	"github.com/aruanc/sentinela/pkg/httputil"
	"github.com/aruanc/sentinela/pkg/logger"
)

// Client handles communication with the PTAX OData API
// ⭐ SSOT: toda chamada ao serviço PTAX passa por este cliente
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
}

// NewClient creates a new PTAX API client
func NewClient(cfg *config.Config, log *logger.Logger) *Client {
	return &Client{
		httpClient: httputil.NewWithTimeout(log, 30*time.Second).WithRateLimit(2, 2),
		logger:     log.WithField("provider", "bcb"),
		baseURL:    cfg.BCB.BaseURL,
	}
}

// Bulletin is one PTAX quote bulletin
type Bulletin struct {
	BuyRate   float64 `json:"cotacaoCompra"`
	SellRate  float64 `json:"cotacaoVenda"`
	Timestamp string  `json:"dataHoraCotacao"`
	Type      string  `json:"tipoBoletim"` // Abertura, Intermediário, Fechamento
}

// ParsedTime parses the bulletin timestamp. PTAX uses a space-separated
// datetime with optional fractional seconds.
func (b Bulletin) ParsedTime() (time.Time, bool) {
	for _, layout := range []string{
		"2006-01-02 15:04:05.999",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05.999",
	} {
		if ts, err := time.Parse(layout, b.Timestamp); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

type bulletinResponse struct {
	Value []Bulletin `json:"value"`
}

// FetchBulletins fetches all USD bulletins published in [start, end]
func (c *Client) FetchBulletins(ctx context.Context, start, end time.Time) ([]Bulletin, error) {
	// The OData endpoint takes US-style dates.
	endpoint := fmt.Sprintf(
		"%s/CotacaoMoedaPeriodo(moeda=@moeda,dataInicial=@dataInicial,dataFinalCotacao=@dataFinalCotacao)?%s",
		c.baseURL,
		url.Values{
			"@moeda":             {"'USD'"},
			"@dataInicial":       {"'" + start.Format("01-02-2006") + "'"},
			"@dataFinalCotacao":  {"'" + end.Format("01-02-2006") + "'"},
			"$format":            {"json"},
			"$select":            {"cotacaoCompra,cotacaoVenda,dataHoraCotacao,tipoBoletim"},
		}.Encode(),
	)

	body, err := c.httpClient.GetJSON(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("fetch PTAX bulletins: %w", err)
	}

	var parsed bulletinResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("parse PTAX response: %w", err)
	}

	c.logger.WithFields(map[string]interface{}{
		"from":  start.Format("2006-01-02"),
		"to":    end.Format("2006-01-02"),
		"count": len(parsed.Value),
	}).Debug("Fetched PTAX bulletins")

	return parsed.Value, nil
}
