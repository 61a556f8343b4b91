package contracts

// PeriodType tags the horizon a statement record covers
type PeriodType string

const (
	PeriodAnnual    PeriodType = "annual"
	PeriodQuarterly PeriodType = "quarterly"
	PeriodTTM       PeriodType = "ttm"
)

// Statement is one normalized financial statement record.
// Fields holds canonical numeric line items; Labels holds the occasional
// string field providers attach (currency, financial currency).
// Canonical fields are never overwritten once populated.
type Statement struct {
	Period     string             `json:"report_period,omitempty"` // ISO date (YYYY-MM-DD)
	PeriodType PeriodType         `json:"period_type,omitempty"`
	Fields     map[string]float64 `json:"fields"`
	Labels     map[string]string  `json:"labels,omitempty"`
}

// NewStatement returns an empty statement with allocated maps
func NewStatement() Statement {
	return Statement{
		Fields: make(map[string]float64),
		Labels: make(map[string]string),
	}
}

// Get returns a field value and whether it is present
func (s Statement) Get(field string) (float64, bool) {
	v, ok := s.Fields[field]
	return v, ok
}

// Clone returns a deep copy of the statement
func (s Statement) Clone() Statement {
	out := Statement{
		Period:     s.Period,
		PeriodType: s.PeriodType,
		Fields:     make(map[string]float64, len(s.Fields)),
		Labels:     make(map[string]string, len(s.Labels)),
	}
	for k, v := range s.Fields {
		out.Fields[k] = v
	}
	for k, v := range s.Labels {
		out.Labels[k] = v
	}
	return out
}

// StatementCategory identifies which of the three statements a record belongs to
type StatementCategory string

const (
	CategoryIncome   StatementCategory = "income"
	CategoryBalance  StatementCategory = "balance"
	CategoryCashflow StatementCategory = "cashflow"
)
