package statements

import (
	"math"

	"github.com/aruanc/sentinela/internal/contracts"
)

// defaultTaxRate is used when the effective rate is not computable or
// falls outside the plausible [0, 0.5] band.
const defaultTaxRate = 0.25

// DeriveFreeCashFlow fills free_cash_flow on cashflow records that lack
// it: operating cash flow minus the magnitude of capital expenditure.
// Providers report capex with either sign, so the branch always subtracts
// spend.
func DeriveFreeCashFlow(st *contracts.Statement) {
	if _, ok := st.Fields["free_cash_flow"]; ok {
		return
	}
	cfo, hasCFO := st.Fields["operating_cash_flow"]
	capex, hasCapex := st.Fields["capital_expenditure"]
	if !hasCFO || !hasCapex {
		return
	}
	st.Fields["free_cash_flow"] = cfo - math.Abs(capex)
}

// ROIC computes return on invested capital from the latest income and
// balance records: NOPAT / invested capital. Nil whenever a required input
// is missing or invested capital is zero.
func ROIC(income, balance contracts.Statement) *float64 {
	operatingIncome, ok := income.Get("operating_income")
	if !ok {
		return nil
	}

	totalDebt, hasDebt := balance.Get("total_debt")
	totalEquity, hasEquity := balance.Get("total_equity")
	cash, hasCash := balance.Get("cash")
	if !hasDebt || !hasEquity || !hasCash {
		return nil
	}

	taxRate := defaultTaxRate
	if tax, hasTax := income.Get("tax_expense"); hasTax {
		if pretax, hasPretax := income.Get("pretax_income"); hasPretax && pretax != 0 {
			if ratio := tax / pretax; ratio >= 0 && ratio <= 0.5 {
				taxRate = ratio
			}
		}
	}

	investedCapital := totalDebt + totalEquity - cash
	if investedCapital == 0 {
		return nil
	}

	nopat := operatingIncome * (1 - taxRate)
	roic := nopat / investedCapital
	if math.IsNaN(roic) || math.IsInf(roic, 0) {
		return nil
	}
	return &roic
}
