package cvm

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/encoding/charmap"
)

// Logical fields resolved from the heterogeneous CSV headers. Candidate
// spellings are ordered; the first one present wins, matched exact or by
// substring against the normalized header name.
var columnAliases = map[string][]string{
	"value":          {"vlconta", "valor"},
	"account_code":   {"cdconta"},
	"account_name":   {"dsconta", "descrconta"},
	"period":         {"dtfimexerc", "dtrefer", "dtcomptc"},
	"cvm_code":       {"cdcvm", "codcvm"},
	"cnpj":           {"cnpjcia", "cnpjcompanhia", "cnpj"},
	"company_name":   {"denomcia", "denomsocial", "nomecia", "nomecompanhia"},
	"trading_code":   {"cdnegociacao", "codnegociacao", "cdnegoc"},
	"document_link":  {"linkdoc", "linkdocumento", "urldoc"},
	"filing_date":    {"dtreceb", "dtentrega", "dtenvio"},
	"category":       {"categdoc", "categoriadoc", "categoria"},
	"subject":        {"assunto"},
	"accession":      {"iddoc", "nroprotocolo", "protocoloentrega", "protocolo"},
}

// normalizeHeader lowercases a header and strips every non-alphanumeric rune
func normalizeHeader(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// resolveColumns maps logical fields to column indexes. Missing fields are
// simply absent from the result.
func resolveColumns(header []string) map[string]int {
	normalized := make([]string, len(header))
	for i, h := range header {
		normalized[i] = normalizeHeader(h)
	}

	out := make(map[string]int)
	for field, candidates := range columnAliases {
		if idx, ok := findColumn(normalized, candidates); ok {
			out[field] = idx
		}
	}
	return out
}

// findColumn applies exact-or-substring semantics, first candidate wins
func findColumn(normalized []string, candidates []string) (int, bool) {
	for _, candidate := range candidates {
		for i, h := range normalized {
			if h == candidate {
				return i, true
			}
		}
		for i, h := range normalized {
			if strings.Contains(h, candidate) {
				return i, true
			}
		}
	}
	return 0, false
}

// newArchiveCSVReader wraps an archive entry in a Latin-1 decoding
// semicolon-separated CSV reader.
func newArchiveCSVReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(charmap.ISO8859_1.NewDecoder().Reader(r))
	cr.Comma = ';'
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	return cr
}

// parseDecimal parses the thousands-dot/decimal-comma convention
func parseDecimal(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty value")
	}
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, ",", ".")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("non-finite value %q", s)
	}
	return v, nil
}

// parseDate normalizes ISO or day/month/year dates to ISO date-only
func parseDate(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	for _, layout := range []string{"2006-01-02", "02/01/2006"} {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.Format("2006-01-02"), true
		}
	}
	// Datetime variants: keep the date part.
	if len(s) > 10 {
		if ts, err := time.Parse("2006-01-02", s[:10]); err == nil {
			return ts.Format("2006-01-02"), true
		}
	}
	return "", false
}

// quarterOf maps a month to its calendar quarter
func quarterOf(month time.Month) int {
	return (int(month) + 2) / 3
}

// cell safely fetches a row cell by resolved column
func cell(row []string, cols map[string]int, field string) string {
	idx, ok := cols[field]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// digitsOnly strips everything but digits; used for tax-ID comparison
func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// trimLeadingZeros normalizes registry codes before exact comparison
func trimLeadingZeros(s string) string {
	trimmed := strings.TrimLeft(strings.TrimSpace(s), "0")
	if trimmed == "" && s != "" {
		return "0"
	}
	return trimmed
}
