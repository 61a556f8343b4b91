// Package ticker classifies raw symbols into canonical tickers with
// per-provider variants. Pure functions, no I/O.
package ticker

import (
	"regexp"
	"strings"

	"github.com/aruanc/sentinela/internal/contracts"
)

const cryptoPrefix = "CRYPTO:"

// b3Pattern matches B3-listed instruments: four letters followed by one or
// two digits, optionally suffixed with the Yahoo market suffix.
var b3Pattern = regexp.MustCompile(`^([A-Z]{4}\d{1,2})(\.SA)?$`)

// Classify maps a raw symbol to its canonical form, market and provider
// symbol variants. Deterministic, never fails.
func Classify(raw string) contracts.NormalizedTicker {
	symbol := strings.ToUpper(strings.TrimSpace(raw))

	if strings.HasPrefix(symbol, cryptoPrefix) {
		return contracts.NormalizedTicker{
			Raw:    raw,
			Symbol: symbol,
			Market: contracts.MarketCrypto,
		}
	}

	if m := b3Pattern.FindStringSubmatch(symbol); m != nil {
		base := m[1]
		return contracts.NormalizedTicker{
			Raw:         raw,
			Symbol:      base,
			Market:      contracts.MarketBR,
			YahooSymbol: base + ".SA",
			BrapiSymbol: base,
		}
	}

	return contracts.NormalizedTicker{
		Raw:    raw,
		Symbol: symbol,
		Market: contracts.MarketUS,
	}
}

// IsB3Symbol reports whether the input matches the B3 ticker pattern,
// with or without the market suffix.
func IsB3Symbol(raw string) bool {
	return b3Pattern.MatchString(strings.ToUpper(strings.TrimSpace(raw)))
}
