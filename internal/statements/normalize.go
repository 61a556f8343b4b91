package statements

import (
	"encoding/json"
	"math"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/aruanc/sentinela/internal/contracts"
)

// snakeKey maps arbitrary provider casing and spacing to lowercase snake
// form: "Total Revenue" and "totalRevenue" both become "total_revenue".
func snakeKey(s string) string {
	var b strings.Builder
	prevWord := false
	for _, r := range s {
		switch {
		case unicode.IsUpper(r):
			if prevWord {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			prevWord = false
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			prevWord = true
		default:
			if b.Len() > 0 && !strings.HasSuffix(b.String(), "_") {
				b.WriteByte('_')
			}
			prevWord = false
		}
	}
	return strings.Trim(b.String(), "_")
}

// unwrapNumber extracts a finite numeric value from the shapes providers
// box numbers in: plain numbers, json.Number, and {"raw": x} objects.
func unwrapNumber(v interface{}) (float64, bool) {
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
	case json.Number:
		f, err := t.Float64()
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	case map[string]interface{}:
		if raw, ok := t["raw"]; ok {
			return unwrapNumber(raw)
		}
	}
	return 0, false
}

// Normalize converts one raw provider record into a canonical statement:
// snake keys, unboxed numerics, alias resolution, report-period backfill.
func Normalize(raw map[string]interface{}, category contracts.StatementCategory, periodType contracts.PeriodType) contracts.Statement {
	st := contracts.NewStatement()
	st.PeriodType = periodType

	for key, value := range raw {
		sk := snakeKey(key)
		if sk == "" {
			continue
		}
		if num, ok := unwrapNumber(value); ok {
			if _, exists := st.Fields[sk]; !exists {
				st.Fields[sk] = num
			}
			continue
		}
		if str, ok := value.(string); ok {
			if _, exists := st.Labels[sk]; !exists {
				st.Labels[sk] = str
			}
		}
	}

	// Alias resolution. First present alias wins; a canonical value
	// already populated is never overwritten.
	for _, entry := range aliasTables[category] {
		if _, exists := st.Fields[entry.canonical]; exists {
			continue
		}
		for _, alias := range entry.aliases {
			if v, ok := st.Fields[alias]; ok {
				st.Fields[entry.canonical] = v
				break
			}
		}
	}

	st.Period = backfillPeriod(st)

	return st
}

// backfillPeriod derives the ISO report period from the known end-of-period
// fields. String values may be ISO dates or datetimes; numeric values are
// epoch seconds.
func backfillPeriod(st contracts.Statement) string {
	for _, key := range periodKeys {
		if raw, ok := st.Labels[key]; ok {
			if iso, ok := parseISODate(raw); ok {
				return iso
			}
		}
		if num, ok := st.Fields[key]; ok && num > 0 {
			return time.Unix(int64(num), 0).UTC().Format("2006-01-02")
		}
	}
	return ""
}

func parseISODate(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if len(s) >= 10 {
		if ts, err := time.Parse("2006-01-02", s[:10]); err == nil {
			return ts.Format("2006-01-02"), true
		}
	}
	return "", false
}

// sortByPeriodDesc orders statements latest first. Stable so equal periods
// keep provider order.
func sortByPeriodDesc(records []contracts.Statement) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Period > records[j].Period
	})
}

// filterByRange applies an optional open, half-open or closed ISO date
// range over the report period. Records without a period survive an open
// bound only.
func filterByRange(records []contracts.Statement, from, to string) []contracts.Statement {
	if from == "" && to == "" {
		return records
	}
	out := make([]contracts.Statement, 0, len(records))
	for _, r := range records {
		if from != "" && r.Period < from {
			continue
		}
		if to != "" && r.Period > to {
			continue
		}
		out = append(out, r)
	}
	return out
}
