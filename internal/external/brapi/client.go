// Package brapi talks to the brapi.dev bulk-quote API.
package brapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/aruanc/sentinela/pkg/config"
	"github.com/aruanc/sentinela/pkg/httputil"
	"github.com/aruanc/sentinela/pkg/logger"
)

// Client handles communication with the brapi.dev API
// ⭐ SSOT: toda chamada à API brapi passa por este cliente
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
	token      string
}

// NewClient creates a new brapi API client. The access token is required;
// config.Load fails eagerly when it is absent.
func NewClient(cfg *config.Config, log *logger.Logger) *Client {
	return &Client{
		httpClient: httputil.NewWithTimeout(log, 30*time.Second).WithRateLimit(5, 5),
		logger:     log.WithField("provider", "brapi"),
		baseURL:    cfg.Brapi.BaseURL,
		token:      cfg.Brapi.Token,
	}
}

// QuoteResult is one raw result object from /api/quote. Provider schemas are
// heterogeneous, so rows stay open mappings until normalization.
type QuoteResult map[string]interface{}

// QuoteOptions selects optional quote parameters
type QuoteOptions struct {
	Modules  []string
	Range    string // e.g. 3mo, 1y, 2y
	Interval string // e.g. 1d
}

type quoteResponse struct {
	Results []QuoteResult `json:"results"`
	Error   interface{}   `json:"error,omitempty"`
	Message string        `json:"message,omitempty"`
}

// Quote fetches a batched quote for the given symbols with the requested
// modules in one call. Returns the results and the redacted request URL.
func (c *Client) Quote(ctx context.Context, symbols []string, opts QuoteOptions) ([]QuoteResult, string, error) {
	if len(symbols) == 0 {
		return nil, "", fmt.Errorf("brapi: no symbols given")
	}

	params := url.Values{"token": {c.token}}
	if len(opts.Modules) > 0 {
		params.Set("modules", strings.Join(opts.Modules, ","))
	}
	if opts.Range != "" {
		params.Set("range", opts.Range)
	}
	if opts.Interval != "" {
		params.Set("interval", opts.Interval)
	}

	endpoint := fmt.Sprintf("%s/api/quote/%s?%s",
		c.baseURL, url.PathEscape(strings.Join(symbols, ",")), params.Encode())

	body, err := c.httpClient.GetJSON(ctx, endpoint)
	if err != nil {
		return nil, "", fmt.Errorf("brapi quote: %w", err)
	}

	var parsed quoteResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, "", fmt.Errorf("brapi quote: parse response: %w", err)
	}
	if len(parsed.Results) == 0 {
		msg := parsed.Message
		if msg == "" {
			msg = "empty results"
		}
		return nil, "", fmt.Errorf("brapi quote: %s", msg)
	}

	c.logger.WithFields(map[string]interface{}{
		"symbols": symbols,
		"modules": opts.Modules,
		"count":   len(parsed.Results),
	}).Debug("Fetched brapi quote")

	return parsed.Results, redactToken(endpoint), nil
}

// ListedStock is one row from the /api/quote/list search endpoint
type ListedStock struct {
	Stock  string  `json:"stock"`
	Name   string  `json:"name"`
	Close  float64 `json:"close"`
	Sector string  `json:"sector"`
	Type   string  `json:"type"`
}

type listResponse struct {
	Stocks []ListedStock `json:"stocks"`
}

// Search looks up listed B3 symbols by ticker fragment or company name
func (c *Client) Search(ctx context.Context, query string) ([]ListedStock, string, error) {
	params := url.Values{
		"token":  {c.token},
		"search": {query},
	}
	endpoint := fmt.Sprintf("%s/api/quote/list?%s", c.baseURL, params.Encode())

	body, err := c.httpClient.GetJSON(ctx, endpoint)
	if err != nil {
		return nil, "", fmt.Errorf("brapi search: %w", err)
	}

	var parsed listResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, "", fmt.Errorf("brapi search: parse response: %w", err)
	}

	return parsed.Stocks, redactToken(endpoint), nil
}

// redactToken strips the access token before a URL lands in the source set
func redactToken(endpoint string) string {
	u, err := url.Parse(endpoint)
	if err != nil {
		return endpoint
	}
	q := u.Query()
	if q.Has("token") {
		q.Set("token", "redacted")
		u.RawQuery = q.Encode()
	}
	return u.String()
}
