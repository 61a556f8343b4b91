package contracts

import "time"

// FXRate is one official reference rate snapshot
type FXRate struct {
	Rate      float64   `json:"rate"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`
}

// Provenance tags how a target was resolved
type Provenance string

const (
	ProvenanceDirectTicker Provenance = "direct-ticker"
	ProvenanceSearch       Provenance = "search"
)

// ResolvedTarget is the canonical investigation target for a free-text query
type ResolvedTarget struct {
	Query      string           `json:"query"`
	Label      string           `json:"label"`
	Ticker     NormalizedTicker `json:"ticker"`
	Provenance Provenance       `json:"provenance"`
}

// StepError records one failed gather step without aborting the run
type StepError struct {
	Step    string `json:"step"`
	Message string `json:"error"`
}

// PricePoint is one bar of price history
type PricePoint struct {
	Date   string  `json:"date"`
	Open   float64 `json:"open,omitempty"`
	High   float64 `json:"high,omitempty"`
	Low    float64 `json:"low,omitempty"`
	Close  float64 `json:"close,omitempty"`
	Volume float64 `json:"volume,omitempty"`
}

// Dataset is the accretive bag of per-step outputs for one investigation.
// A step that failed leaves its field zero-valued and adds a StepError.
type Dataset struct {
	CompanyFacts map[string]interface{} `json:"company_facts,omitempty"`
	Quote        map[string]interface{} `json:"quote,omitempty"`
	PriceHistory []PricePoint           `json:"price_history,omitempty"`

	IncomeStatements   []Statement `json:"income_statements,omitempty"`
	BalanceSheets      []Statement `json:"balance_sheets,omitempty"`
	CashflowStatements []Statement `json:"cashflow_statements,omitempty"`

	Ratios  map[string]float64 `json:"ratios,omitempty"`
	Filings []Filing           `json:"filings,omitempty"`

	Currency   string  `json:"currency,omitempty"`
	FX         *FXRate `json:"fx,omitempty"`
	FXSource   string  `json:"fx_source,omitempty"` // step that supplied currency/FX
	Errors     []StepError `json:"errors,omitempty"`
	SourceURLs []string    `json:"source_urls,omitempty"`
}

// HasStep reports whether the named step produced data
func (d *Dataset) HasStep(step string) bool {
	switch step {
	case "company_facts":
		return d.CompanyFacts != nil
	case "price_snapshot":
		return d.Quote != nil
	case "price_history":
		return d.PriceHistory != nil
	case "income_statements":
		return d.IncomeStatements != nil
	case "balance_sheets":
		return d.BalanceSheets != nil
	case "cashflow_statements":
		return d.CashflowStatements != nil
	case "ratios":
		return d.Ratios != nil
	case "filings":
		return d.Filings != nil
	}
	return false
}
