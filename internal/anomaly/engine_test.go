package anomaly

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aruanc/sentinela/internal/contracts"
)

func statement(period string, fields map[string]float64) contracts.Statement {
	st := contracts.NewStatement()
	st.Period = period
	st.PeriodType = contracts.PeriodAnnual
	for k, v := range fields {
		st.Fields[k] = v
	}
	return st
}

// fullDataset covers all five expected inputs so coverage flags stay quiet
func fullDataset() *contracts.Dataset {
	return &contracts.Dataset{
		Quote: map[string]interface{}{"regularMarketPrice": 40.0},
		IncomeStatements: []contracts.Statement{
			statement("2025-12-31", map[string]float64{"total_revenue": 1100, "net_income": 120}),
			statement("2024-12-31", map[string]float64{"total_revenue": 1000, "net_income": 100}),
		},
		BalanceSheets: []contracts.Statement{
			statement("2025-12-31", map[string]float64{
				"total_assets": 1000, "total_liabilities": 600, "total_equity": 400, "receivables": 110,
			}),
			statement("2024-12-31", map[string]float64{
				"total_assets": 950, "total_liabilities": 570, "total_equity": 380, "receivables": 100,
			}),
		},
		CashflowStatements: []contracts.Statement{
			statement("2025-12-31", map[string]float64{"operating_cash_flow": 130, "free_cash_flow": 90}),
			statement("2024-12-31", map[string]float64{"operating_cash_flow": 110, "free_cash_flow": 80}),
		},
		Filings: []contracts.Filing{{DocType: "IPE", Subject: "Fato Relevante"}},
	}
}

func flagByID(report *contracts.Report, id string) (contracts.Flag, bool) {
	for _, f := range report.Flags {
		if f.ID == id {
			return f, true
		}
	}
	return contracts.Flag{}, false
}

func TestScreen_HealthyDatasetHasMetricsAndNoFlags(t *testing.T) {
	report := Screen(fullDataset())

	assert.Empty(t, report.Flags)
	assert.InDelta(t, 0.10, report.Metrics["revenue_growth_yoy"], 1e-9)
	assert.InDelta(t, 0.20, report.Metrics["net_income_growth_yoy"], 1e-9)
	assert.InDelta(t, 130.0/120.0, report.Metrics["cfo_to_net_income"], 1e-9)
	assert.InDelta(t, -0.01, report.Metrics["accrual_ratio"], 1e-9)
	assert.Equal(t, 0.0, report.Metrics["balance_identity_residual"])
	assert.Equal(t, 1.0, report.Metrics["filing_count"])
	assert.Equal(t, 0.0, report.Metrics["coverage_missing_inputs"])
}

func TestScreen_PositiveEarningsNegativeCFO(t *testing.T) {
	ds := &contracts.Dataset{
		IncomeStatements: []contracts.Statement{
			statement("2025-12-31", map[string]float64{"net_income": 200}),
		},
		CashflowStatements: []contracts.Statement{
			statement("2025-12-31", map[string]float64{"operating_cash_flow": -10}),
		},
	}

	report := Screen(ds)

	flag, ok := flagByID(report, "earnings_quality_cfo_negative")
	require.True(t, ok)
	assert.Equal(t, contracts.SeverityHigh, flag.Severity)
	assert.Equal(t, map[string]float64{"net_income": 200, "cfo": -10}, flag.Evidence)

	_, low := flagByID(report, "earnings_quality_low_cfo")
	assert.False(t, low, "the negative-CFO flag supersedes the ratio flag")
}

func TestScreen_LowEarningsQuality(t *testing.T) {
	ds := fullDataset()
	ds.CashflowStatements[0].Fields["operating_cash_flow"] = 50 // 50/120 < 0.6

	report := Screen(ds)

	flag, ok := flagByID(report, "earnings_quality_low_cfo")
	require.True(t, ok)
	assert.Equal(t, contracts.SeverityMedium, flag.Severity)
	assert.InDelta(t, 50.0/120.0, flag.Evidence["cfo_to_net_income"], 1e-9)
}

func TestScreen_AccrualRatioBoundariesAreExclusive(t *testing.T) {
	build := func(netIncome float64) *contracts.Dataset {
		ds := fullDataset()
		// total_assets 1000, CFO 130; accrual ratio = (NI − 130) / 1000.
		ds.IncomeStatements[0].Fields["net_income"] = netIncome
		return ds
	}

	report := Screen(build(230)) // ratio exactly 0.10
	_, ok := flagByID(report, "accrual_ratio_elevated")
	assert.False(t, ok, "exactly 0.10 does not flag")

	report = Screen(build(230.1)) // 0.1001
	flag, ok := flagByID(report, "accrual_ratio_elevated")
	require.True(t, ok)
	assert.Equal(t, contracts.SeverityMedium, flag.Severity)

	report = Screen(build(330)) // exactly 0.20
	flag, ok = flagByID(report, "accrual_ratio_elevated")
	require.True(t, ok)
	assert.Equal(t, contracts.SeverityMedium, flag.Severity, "exactly 0.20 does not escalate")

	report = Screen(build(330.1)) // 0.2001
	flag, ok = flagByID(report, "accrual_ratio_elevated")
	require.True(t, ok)
	assert.Equal(t, contracts.SeverityHigh, flag.Severity)
}

func TestScreen_BalanceIdentityBoundaryIsExclusive(t *testing.T) {
	ds := fullDataset()
	report := Screen(ds)
	_, ok := flagByID(report, "balance_identity_mismatch")
	assert.False(t, ok, "residual 0 does not flag")

	ds = fullDataset()
	ds.BalanceSheets[0].Fields["total_equity"] = 420 // relative residual exactly 0.02
	report = Screen(ds)
	_, ok = flagByID(report, "balance_identity_mismatch")
	assert.False(t, ok, "exactly 2% does not flag")
	assert.InDelta(t, 0.02, report.Metrics["balance_identity_residual_relative"], 1e-9)

	ds = fullDataset()
	ds.BalanceSheets[0].Fields["total_equity"] = 425 // 2.5%
	report = Screen(ds)
	flag, ok := flagByID(report, "balance_identity_mismatch")
	require.True(t, ok)
	assert.Equal(t, contracts.SeverityLow, flag.Severity)

	ds = fullDataset()
	ds.BalanceSheets[0].Fields["total_equity"] = 460 // 6%
	report = Screen(ds)
	flag, ok = flagByID(report, "balance_identity_mismatch")
	require.True(t, ok)
	assert.Equal(t, contracts.SeverityMedium, flag.Severity)
}

func TestScreen_ReceivablesOutpacingRevenue(t *testing.T) {
	ds := fullDataset()
	ds.BalanceSheets[0].Fields["receivables"] = 140 // 40% growth vs 10% revenue → delta 0.30

	report := Screen(ds)

	flag, ok := flagByID(report, "receivables_outpacing_revenue")
	require.True(t, ok)
	assert.Equal(t, contracts.SeverityMedium, flag.Severity)
	assert.InDelta(t, 0.30, flag.Evidence["growth_delta"], 1e-9)

	ds.BalanceSheets[0].Fields["receivables"] = 165 // 65% growth → delta 0.55
	report = Screen(ds)
	flag, ok = flagByID(report, "receivables_outpacing_revenue")
	require.True(t, ok)
	assert.Equal(t, contracts.SeverityHigh, flag.Severity)
}

func TestScreen_RevenueSwing(t *testing.T) {
	ds := fullDataset()
	ds.IncomeStatements[0].Fields["total_revenue"] = 1400 // +40%
	// Keep receivables in line so only the swing flags.
	ds.BalanceSheets[0].Fields["receivables"] = 100

	report := Screen(ds)
	flag, ok := flagByID(report, "revenue_swing_yoy")
	require.True(t, ok)
	assert.Equal(t, contracts.SeverityLow, flag.Severity)

	ds.IncomeStatements[0].Fields["total_revenue"] = 300 // −70%
	report = Screen(ds)
	flag, ok = flagByID(report, "revenue_swing_yoy")
	require.True(t, ok)
	assert.Equal(t, contracts.SeverityMedium, flag.Severity)
}

func TestScreen_NoFilingsFlagsLow(t *testing.T) {
	ds := fullDataset()
	ds.Filings = []contracts.Filing{}

	report := Screen(ds)

	flag, ok := flagByID(report, "no_filings_found")
	require.True(t, ok)
	assert.Equal(t, contracts.SeverityLow, flag.Severity)
}

func TestScreen_CoverageGaps(t *testing.T) {
	ds := fullDataset()
	ds.Quote = nil
	ds.Filings = nil

	report := Screen(ds)
	flag, ok := flagByID(report, "data_coverage_gaps")
	require.True(t, ok)
	assert.Equal(t, contracts.SeverityLow, flag.Severity, "two missing inputs stay low")
	assert.Equal(t, 2.0, flag.Evidence["missing_inputs"])

	ds.CashflowStatements = nil
	report = Screen(ds)
	flag, ok = flagByID(report, "data_coverage_gaps")
	require.True(t, ok)
	assert.Equal(t, contracts.SeverityMedium, flag.Severity, "three missing inputs escalate")
}

func TestScreen_MissingInputsNeverProduceNaN(t *testing.T) {
	ds := &contracts.Dataset{
		IncomeStatements: []contracts.Statement{
			statement("2025-12-31", map[string]float64{"total_revenue": 1000}),
			statement("2024-12-31", map[string]float64{"total_revenue": 0}), // zero denominator
		},
	}

	report := Screen(ds)

	_, ok := report.Metrics["revenue_growth_yoy"]
	assert.False(t, ok, "zero prior revenue suppresses the metric")
	for name, v := range report.Metrics {
		assert.False(t, v != v, "metric %s is NaN", name)
	}
}

func TestScreen_NilDataset(t *testing.T) {
	report := Screen(nil)
	assert.NotNil(t, report.Metrics)
	assert.Empty(t, report.Flags)
}

func TestHighestSeverity(t *testing.T) {
	report := &contracts.Report{Flags: []contracts.Flag{
		{ID: "a", Severity: contracts.SeverityLow},
		{ID: "b", Severity: contracts.SeverityHigh},
		{ID: "c", Severity: contracts.SeverityMedium},
	}}
	assert.Equal(t, contracts.SeverityHigh, report.HighestSeverity())
}
