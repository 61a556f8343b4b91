// Package anomaly screens a gathered dataset for accounting and
// earnings-quality anomalies. Pure computation, no I/O; missing inputs
// suppress the corresponding metric or flag, never raise.
package anomaly

import (
	"fmt"
	"math"
	"sort"

	"github.com/aruanc/sentinela/internal/contracts"
)

// Exclusive flag thresholds. A value exactly on a boundary does not flag.
const (
	cfoToNetIncomeFloor = 0.6

	accrualRatioMedium = 0.1
	accrualRatioHigh   = 0.2

	receivablesDeltaMedium = 0.25
	receivablesDeltaHigh   = 0.5

	identityResidualLow    = 0.02
	identityResidualMedium = 0.05

	revenueSwingLow    = 0.3
	revenueSwingMedium = 0.6
)

// coverageInputs are the dataset fields screening quality depends on
var coverageInputs = []string{
	"price_snapshot", "income_statements", "balance_sheets",
	"cashflow_statements", "filings",
}

// Screen computes metrics and severity-tagged flags over one dataset
func Screen(ds *contracts.Dataset) *contracts.Report {
	report := &contracts.Report{
		Metrics: make(map[string]float64),
		Flags:   []contracts.Flag{},
	}
	if ds == nil {
		return report
	}

	income := latestAndPrior(ds.IncomeStatements)
	balance := latestAndPrior(ds.BalanceSheets)
	cashflow := latestAndPrior(ds.CashflowStatements)

	screenGrowth(report, income, cashflow)
	screenEarningsQuality(report, income, cashflow)
	screenAccruals(report, income, balance, cashflow)
	screenReceivables(report, income, balance)
	screenBalanceIdentity(report, balance)
	screenFilings(report, ds)
	screenCoverage(report, ds)

	return report
}

// pair is the latest and prior record of one statement category
type pair struct {
	latest *contracts.Statement
	prior  *contracts.Statement
}

// latestAndPrior sorts by report period descending and designates
// entries [0] and [1]
func latestAndPrior(records []contracts.Statement) pair {
	if len(records) == 0 {
		return pair{}
	}
	sorted := make([]contracts.Statement, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Period > sorted[j].Period
	})

	p := pair{latest: &sorted[0]}
	if len(sorted) > 1 {
		p.prior = &sorted[1]
	}
	return p
}

// growth computes (latest − prior) / |prior|; nil for missing inputs or
// a zero denominator.
func growth(p pair, field string) *float64 {
	if p.latest == nil || p.prior == nil {
		return nil
	}
	latest, ok := p.latest.Get(field)
	if !ok {
		return nil
	}
	prior, ok := p.prior.Get(field)
	if !ok || prior == 0 {
		return nil
	}
	g := (latest - prior) / math.Abs(prior)
	if math.IsNaN(g) || math.IsInf(g, 0) {
		return nil
	}
	return &g
}

func screenGrowth(report *contracts.Report, income, cashflow pair) {
	record := func(name string, g *float64) {
		if g != nil {
			report.Metrics[name] = *g
		}
	}
	revenueGrowth := growth(income, "total_revenue")
	record("revenue_growth_yoy", revenueGrowth)
	record("net_income_growth_yoy", growth(income, "net_income"))
	record("cfo_growth_yoy", growth(cashflow, "operating_cash_flow"))
	record("fcf_growth_yoy", growth(cashflow, "free_cash_flow"))

	if revenueGrowth == nil {
		return
	}
	swing := math.Abs(*revenueGrowth)
	severity := contracts.Severity("")
	switch {
	case swing > revenueSwingMedium:
		severity = contracts.SeverityMedium
	case swing > revenueSwingLow:
		severity = contracts.SeverityLow
	}
	if severity != "" {
		report.Flags = append(report.Flags, contracts.Flag{
			ID:       "revenue_swing_yoy",
			Severity: severity,
			Title:    "Large year-over-year revenue swing",
			Detail:   fmt.Sprintf("Revenue changed %.1f%% year over year.", *revenueGrowth*100),
			Evidence: map[string]float64{"revenue_growth_yoy": *revenueGrowth},
		})
	}
}

func screenEarningsQuality(report *contracts.Report, income, cashflow pair) {
	if income.latest == nil || cashflow.latest == nil {
		return
	}
	netIncome, hasNI := income.latest.Get("net_income")
	cfo, hasCFO := cashflow.latest.Get("operating_cash_flow")
	if !hasNI || !hasCFO {
		return
	}

	if netIncome != 0 {
		ratio := cfo / netIncome
		if !math.IsNaN(ratio) && !math.IsInf(ratio, 0) {
			report.Metrics["cfo_to_net_income"] = ratio
		}
	}

	if netIncome > 0 && cfo < 0 {
		report.Flags = append(report.Flags, contracts.Flag{
			ID:       "earnings_quality_cfo_negative",
			Severity: contracts.SeverityHigh,
			Title:    "Positive earnings with negative operating cash flow",
			Detail:   "Reported profit is not backed by cash from operations.",
			Evidence: map[string]float64{"net_income": netIncome, "cfo": cfo},
		})
		return
	}

	if netIncome > 0 {
		ratio := cfo / netIncome
		if ratio >= 0 && ratio < cfoToNetIncomeFloor {
			report.Flags = append(report.Flags, contracts.Flag{
				ID:       "earnings_quality_low_cfo",
				Severity: contracts.SeverityMedium,
				Title:    "Low earnings quality",
				Detail:   fmt.Sprintf("Operating cash flow covers only %.0f%% of net income.", ratio*100),
				Evidence: map[string]float64{
					"net_income":        netIncome,
					"cfo":               cfo,
					"cfo_to_net_income": ratio,
				},
			})
		}
	}
}

func screenAccruals(report *contracts.Report, income, balance, cashflow pair) {
	if income.latest == nil || balance.latest == nil || cashflow.latest == nil {
		return
	}
	netIncome, hasNI := income.latest.Get("net_income")
	cfo, hasCFO := cashflow.latest.Get("operating_cash_flow")
	totalAssets, hasAssets := balance.latest.Get("total_assets")
	if !hasNI || !hasCFO || !hasAssets || totalAssets == 0 {
		return
	}

	ratio := (netIncome - cfo) / totalAssets
	if math.IsNaN(ratio) || math.IsInf(ratio, 0) {
		return
	}
	report.Metrics["accrual_ratio"] = ratio

	severity := contracts.Severity("")
	switch {
	case ratio > accrualRatioHigh:
		severity = contracts.SeverityHigh
	case ratio > accrualRatioMedium:
		severity = contracts.SeverityMedium
	}
	if severity != "" {
		report.Flags = append(report.Flags, contracts.Flag{
			ID:       "accrual_ratio_elevated",
			Severity: severity,
			Title:    "Elevated accrual ratio",
			Detail:   fmt.Sprintf("Accruals are %.1f%% of total assets.", ratio*100),
			Evidence: map[string]float64{
				"net_income":    netIncome,
				"cfo":           cfo,
				"total_assets":  totalAssets,
				"accrual_ratio": ratio,
			},
		})
	}
}

func screenReceivables(report *contracts.Report, income, balance pair) {
	receivablesGrowth := growth(balance, "receivables")
	if receivablesGrowth != nil {
		report.Metrics["receivables_growth_yoy"] = *receivablesGrowth
	}
	revenueGrowth := growth(income, "total_revenue")
	if receivablesGrowth == nil || revenueGrowth == nil {
		return
	}

	delta := *receivablesGrowth - *revenueGrowth
	report.Metrics["receivables_vs_revenue_growth"] = delta

	severity := contracts.Severity("")
	switch {
	case delta > receivablesDeltaHigh:
		severity = contracts.SeverityHigh
	case delta > receivablesDeltaMedium:
		severity = contracts.SeverityMedium
	}
	if severity != "" {
		report.Flags = append(report.Flags, contracts.Flag{
			ID:       "receivables_outpacing_revenue",
			Severity: severity,
			Title:    "Receivables growing faster than revenue",
			Detail:   fmt.Sprintf("Receivables grew %.1f points faster than revenue.", delta*100),
			Evidence: map[string]float64{
				"receivables_growth_yoy": *receivablesGrowth,
				"revenue_growth_yoy":     *revenueGrowth,
				"growth_delta":           delta,
			},
		})
	}
}

func screenBalanceIdentity(report *contracts.Report, balance pair) {
	if balance.latest == nil {
		return
	}
	assets, hasAssets := balance.latest.Get("total_assets")
	liabilities, hasLiabilities := balance.latest.Get("total_liabilities")
	equity, hasEquity := balance.latest.Get("total_equity")
	if !hasAssets || !hasLiabilities || !hasEquity || assets == 0 {
		return
	}

	residual := assets - (liabilities + equity)
	relative := math.Abs(residual) / math.Abs(assets)
	report.Metrics["balance_identity_residual"] = residual
	report.Metrics["balance_identity_residual_relative"] = relative

	severity := contracts.Severity("")
	switch {
	case relative > identityResidualMedium:
		severity = contracts.SeverityMedium
	case relative > identityResidualLow:
		severity = contracts.SeverityLow
	}
	if severity != "" {
		report.Flags = append(report.Flags, contracts.Flag{
			ID:       "balance_identity_mismatch",
			Severity: severity,
			Title:    "Balance sheet identity does not hold",
			Detail:   fmt.Sprintf("Assets differ from liabilities plus equity by %.2f%%.", relative*100),
			Evidence: map[string]float64{
				"total_assets":      assets,
				"total_liabilities": liabilities,
				"total_equity":      equity,
				"residual":          residual,
				"relative_residual": relative,
			},
		})
	}
}

func screenFilings(report *contracts.Report, ds *contracts.Dataset) {
	if !ds.HasStep("filings") {
		return
	}
	report.Metrics["filing_count"] = float64(len(ds.Filings))
	if len(ds.Filings) == 0 {
		report.Flags = append(report.Flags, contracts.Flag{
			ID:       "no_filings_found",
			Severity: contracts.SeverityLow,
			Title:    "No regulatory filings found",
			Detail:   "No filing metadata was found for the covered period.",
		})
	}
}

func screenCoverage(report *contracts.Report, ds *contracts.Dataset) {
	missing := 0
	for _, step := range coverageInputs {
		if !ds.HasStep(step) {
			missing++
		}
	}
	report.Metrics["coverage_missing_inputs"] = float64(missing)
	if missing == 0 {
		return
	}

	severity := contracts.SeverityLow
	if missing >= 3 {
		severity = contracts.SeverityMedium
	}
	report.Flags = append(report.Flags, contracts.Flag{
		ID:       "data_coverage_gaps",
		Severity: severity,
		Title:    "Data coverage gaps",
		Detail:   fmt.Sprintf("%d of %d expected inputs are missing.", missing, len(coverageInputs)),
		Evidence: map[string]float64{"missing_inputs": float64(missing)},
	})
}
