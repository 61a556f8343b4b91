package statements

import "github.com/aruanc/sentinela/internal/contracts"

// Alias tables unify the heterogeneous provider schemas into canonical
// fields. One ordered list of known spellings per canonical field; the
// first alias present in a record wins and a populated canonical value is
// never overwritten. New providers and markets extend these tables, not
// the normalization code.
//
// Ordering is load-bearing: when a record carries several spellings the
// earlier alias decides the value. Review before reordering.
var aliasTables = map[contracts.StatementCategory]aliasTable{
	contracts.CategoryIncome: {
		{"total_revenue", []string{"total_revenue", "revenue", "operating_revenue", "total_revenues", "sales_revenue"}},
		{"gross_profit", []string{"gross_profit"}},
		{"operating_income", []string{"operating_income", "operating_income_or_loss", "ebit"}},
		{"pretax_income", []string{"pretax_income", "income_before_tax", "earnings_before_tax"}},
		{"tax_expense", []string{"tax_provision", "income_tax_expense", "provision_for_income_taxes"}},
		{"net_income", []string{"net_income", "net_income_common_stockholders", "net_income_applicable_to_common_shares", "net_income_from_continuing_ops"}},
		{"eps", []string{"diluted_eps", "basic_eps", "eps"}},
	},
	contracts.CategoryBalance: {
		{"total_assets", []string{"total_assets"}},
		{"total_liabilities", []string{"total_liabilities", "total_liab", "total_liabilities_net_minority_interest"}},
		{"total_equity", []string{"total_equity", "total_stockholder_equity", "stockholders_equity", "total_equity_gross_minority_interest"}},
		{"cash", []string{"cash", "cash_and_cash_equivalents", "cash_cash_equivalents_and_short_term_investments", "cash_financial"}},
		{"total_debt", []string{"total_debt", "short_long_term_debt_total", "net_debt"}},
		{"receivables", []string{"net_receivables", "receivables", "accounts_receivable"}},
		{"inventory", []string{"inventory"}},
		{"shares_outstanding", []string{"shares_outstanding", "ordinary_shares_number", "share_issued"}},
	},
	contracts.CategoryCashflow: {
		{"operating_cash_flow", []string{"operating_cash_flow", "total_cash_from_operating_activities", "cash_flow_from_continuing_operating_activities", "cash_from_operations"}},
		{"capital_expenditure", []string{"capital_expenditure", "capital_expenditures", "net_ppe_purchase_and_sale"}},
		{"free_cash_flow", []string{"free_cash_flow"}},
		{"investing_cash_flow", []string{"investing_cash_flow", "total_cashflows_from_investing_activities"}},
		{"financing_cash_flow", []string{"financing_cash_flow", "total_cash_from_financing_activities"}},
		{"dividends_paid", []string{"dividends_paid", "cash_dividends_paid", "common_stock_dividend_paid"}},
	},
}

// aliasTable is an ordered list so resolution order stays deterministic
type aliasTable []aliasEntry

type aliasEntry struct {
	canonical string
	aliases   []string
}

// periodKeys are the end-of-period fields a report period is backfilled
// from, in lookup order. Values may be ISO strings or epoch seconds.
var periodKeys = []string{"report_period", "end_date", "period_ending", "fiscal_date_ending", "date"}
