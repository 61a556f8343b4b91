package contracts

// Market identifies the listing market of a symbol
type Market string

const (
	MarketUS      Market = "US"
	MarketBR      Market = "BR"
	MarketCrypto  Market = "CRYPTO"
	MarketUnknown Market = "UNKNOWN"
)

// NormalizedTicker is the canonical form of a raw symbol.
// Immutable once produced; copy it, never patch it.
type NormalizedTicker struct {
	Raw         string `json:"raw"`
	Symbol      string `json:"symbol"` // canonical uppercase symbol
	Market      Market `json:"market"`
	YahooSymbol string `json:"yahoo_symbol,omitempty"` // BR only: BASE.SA
	BrapiSymbol string `json:"brapi_symbol,omitempty"` // BR only: BASE
}

// ProviderSymbol returns the symbol variant preferred by the given provider,
// falling back to the canonical symbol.
func (t NormalizedTicker) ProviderSymbol(provider string) string {
	switch provider {
	case "yahoo":
		if t.YahooSymbol != "" {
			return t.YahooSymbol
		}
	case "brapi":
		if t.BrapiSymbol != "" {
			return t.BrapiSymbol
		}
	}
	return t.Symbol
}
