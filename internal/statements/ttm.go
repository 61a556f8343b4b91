package statements

import (
	"math"

	"github.com/aruanc/sentinela/internal/contracts"
)

// BuildTTM derives trailing-twelve-month records from quarterly statements.
//
// Point-in-time statements (balance sheet) take the single latest quarterly
// record re-tagged "ttm"; they are never summed. Flow statements (income,
// cashflow) require exactly four quarterlies summed field by field over
// finite numeric values, tagged with the latest quarter's period. Fewer
// than four quarterlies yields an empty result, never a partial aggregate.
func BuildTTM(category contracts.StatementCategory, quarterlies []contracts.Statement) []contracts.Statement {
	if len(quarterlies) == 0 {
		return nil
	}

	sorted := make([]contracts.Statement, len(quarterlies))
	copy(sorted, quarterlies)
	sortByPeriodDesc(sorted)

	if category == contracts.CategoryBalance {
		latest := sorted[0].Clone()
		latest.PeriodType = contracts.PeriodTTM
		return []contracts.Statement{latest}
	}

	if len(sorted) < 4 {
		return nil
	}
	window := sorted[:4]

	ttm := contracts.NewStatement()
	ttm.PeriodType = contracts.PeriodTTM
	ttm.Period = window[0].Period
	for k, v := range window[0].Labels {
		ttm.Labels[k] = v
	}

	for _, quarter := range window {
		for field, value := range quarter.Fields {
			if math.IsNaN(value) || math.IsInf(value, 0) {
				continue
			}
			ttm.Fields[field] += value
		}
	}

	return []contracts.Statement{ttm}
}
