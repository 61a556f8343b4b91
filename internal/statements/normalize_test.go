package statements

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aruanc/sentinela/internal/contracts"
)

func TestSnakeKey(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Total Revenue", "total_revenue"},
		{"totalRevenue", "total_revenue"},
		{"NetIncome", "net_income"},
		{"EBITDA", "ebitda"},
		{"operating cash  flow", "operating_cash_flow"},
		{"Cash And Cash Equivalents", "cash_and_cash_equivalents"},
		{"report_period", "report_period"},
		{"Net PPE Purchase And Sale", "net_ppe_purchase_and_sale"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, snakeKey(tt.in), tt.in)
	}
}

func TestUnwrapNumber(t *testing.T) {
	v, ok := unwrapNumber(12.5)
	assert.True(t, ok)
	assert.Equal(t, 12.5, v)

	v, ok = unwrapNumber(map[string]interface{}{"raw": 42.0, "fmt": "42"})
	assert.True(t, ok)
	assert.Equal(t, 42.0, v)

	_, ok = unwrapNumber("12.5")
	assert.False(t, ok)
	_, ok = unwrapNumber(nil)
	assert.False(t, ok)
}

func TestNormalize_AliasResolution(t *testing.T) {
	raw := map[string]interface{}{
		"Total Revenue": 1000.0,
		"revenue":       900.0, // later alias; must not win
		"netIncome":     200.0,
		"endDate":       "2025-12-31T00:00:00.000Z",
	}

	st := Normalize(raw, contracts.CategoryIncome, contracts.PeriodAnnual)

	assert.Equal(t, 1000.0, st.Fields["total_revenue"], "first present alias wins")
	assert.Equal(t, 200.0, st.Fields["net_income"])
	assert.Equal(t, "2025-12-31", st.Period)
	assert.Equal(t, contracts.PeriodAnnual, st.PeriodType)
}

func TestNormalize_CanonicalNeverOverwritten(t *testing.T) {
	raw := map[string]interface{}{
		"total_revenue": 1000.0,
		"Revenue":       500.0,
	}

	st := Normalize(raw, contracts.CategoryIncome, contracts.PeriodAnnual)
	assert.Equal(t, 1000.0, st.Fields["total_revenue"])
}

func TestNormalize_EpochPeriodBackfill(t *testing.T) {
	raw := map[string]interface{}{
		"endDate":   map[string]interface{}{"raw": 1735603200.0}, // 2024-12-31 UTC
		"netIncome": 50.0,
	}

	st := Normalize(raw, contracts.CategoryIncome, contracts.PeriodQuarterly)
	assert.Equal(t, "2024-12-31", st.Period)
}

func TestNormalize_BoxedNumbers(t *testing.T) {
	raw := map[string]interface{}{
		"totalAssets": map[string]interface{}{"raw": 5000.0, "fmt": "5k"},
	}

	st := Normalize(raw, contracts.CategoryBalance, contracts.PeriodAnnual)
	assert.Equal(t, 5000.0, st.Fields["total_assets"])
}

func TestBuildTTM_FlowNeedsExactlyFourQuarters(t *testing.T) {
	quarters := []contracts.Statement{
		quarterly("2025-03-31", map[string]float64{"net_income": 10, "total_revenue": 100}),
		quarterly("2025-06-30", map[string]float64{"net_income": 20, "total_revenue": 110}),
		quarterly("2025-09-30", map[string]float64{"net_income": 30, "total_revenue": 120}),
	}

	assert.Empty(t, BuildTTM(contracts.CategoryIncome, quarters), "three quarters yield no TTM")

	quarters = append(quarters, quarterly("2025-12-31", map[string]float64{"net_income": 40, "total_revenue": 130}))
	ttm := BuildTTM(contracts.CategoryIncome, quarters)

	if assert.Len(t, ttm, 1) {
		assert.Equal(t, contracts.PeriodTTM, ttm[0].PeriodType)
		assert.Equal(t, "2025-12-31", ttm[0].Period, "tagged with the latest quarter")
		assert.Equal(t, 100.0, ttm[0].Fields["net_income"])
		assert.Equal(t, 460.0, ttm[0].Fields["total_revenue"])
	}
}

func TestBuildTTM_BalanceTakesLatestQuarter(t *testing.T) {
	quarters := []contracts.Statement{
		quarterly("2025-06-30", map[string]float64{"total_assets": 900}),
		quarterly("2025-09-30", map[string]float64{"total_assets": 1000}),
	}

	ttm := BuildTTM(contracts.CategoryBalance, quarters)

	if assert.Len(t, ttm, 1) {
		assert.Equal(t, contracts.PeriodTTM, ttm[0].PeriodType)
		assert.Equal(t, "2025-09-30", ttm[0].Period)
		assert.Equal(t, 1000.0, ttm[0].Fields["total_assets"], "point-in-time, never summed")
	}
}

func TestDeriveFreeCashFlow(t *testing.T) {
	st := quarterly("2025-09-30", map[string]float64{"operating_cash_flow": 100, "capital_expenditure": -30})
	DeriveFreeCashFlow(&st)
	assert.Equal(t, 70.0, st.Fields["free_cash_flow"], "negative capex is spend")

	st = quarterly("2025-09-30", map[string]float64{"operating_cash_flow": 100, "capital_expenditure": 30})
	DeriveFreeCashFlow(&st)
	assert.Equal(t, 70.0, st.Fields["free_cash_flow"], "positive capex is spend too")

	st = quarterly("2025-09-30", map[string]float64{"operating_cash_flow": 100, "capital_expenditure": 30, "free_cash_flow": 55})
	DeriveFreeCashFlow(&st)
	assert.Equal(t, 55.0, st.Fields["free_cash_flow"], "reported value kept")
}

func TestROIC(t *testing.T) {
	income := annual("2025-12-31", map[string]float64{
		"operating_income": 200, "tax_expense": 30, "pretax_income": 150,
	})
	balance := annual("2025-12-31", map[string]float64{
		"total_debt": 500, "total_equity": 700, "cash": 200,
	})

	roic := ROIC(income, balance)
	if assert.NotNil(t, roic) {
		// ETR = 0.2, NOPAT = 160, IC = 1000.
		assert.InDelta(t, 0.16, *roic, 1e-9)
	}
}

func TestROIC_TaxRateOutOfBandUsesDefault(t *testing.T) {
	income := annual("2025-12-31", map[string]float64{
		"operating_income": 100, "tax_expense": 90, "pretax_income": 100, // 90% is implausible
	})
	balance := annual("2025-12-31", map[string]float64{
		"total_debt": 0, "total_equity": 1000, "cash": 0,
	})

	roic := ROIC(income, balance)
	if assert.NotNil(t, roic) {
		assert.InDelta(t, 0.075, *roic, 1e-9)
	}
}

func TestROIC_NullPropagation(t *testing.T) {
	// Missing operating income.
	assert.Nil(t, ROIC(annual("2025-12-31", nil), annual("2025-12-31", map[string]float64{
		"total_debt": 1, "total_equity": 1, "cash": 1,
	})))

	// Zero invested capital.
	assert.Nil(t, ROIC(
		annual("2025-12-31", map[string]float64{"operating_income": 100}),
		annual("2025-12-31", map[string]float64{"total_debt": 100, "total_equity": 100, "cash": 200}),
	))

	// Missing balance input.
	assert.Nil(t, ROIC(
		annual("2025-12-31", map[string]float64{"operating_income": 100}),
		annual("2025-12-31", map[string]float64{"total_debt": 100, "total_equity": 100}),
	))
}

func quarterly(period string, fields map[string]float64) contracts.Statement {
	return statementWith(period, contracts.PeriodQuarterly, fields)
}

func annual(period string, fields map[string]float64) contracts.Statement {
	return statementWith(period, contracts.PeriodAnnual, fields)
}

func statementWith(period string, pt contracts.PeriodType, fields map[string]float64) contracts.Statement {
	st := contracts.NewStatement()
	st.Period = period
	st.PeriodType = pt
	for k, v := range fields {
		st.Fields[k] = v
	}
	return st
}
