package contracts

import "time"

// Severity ranks how serious a flag is
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Flag is one anomaly finding with the exact figures that triggered it
type Flag struct {
	ID       string             `json:"id"`
	Severity Severity           `json:"severity"`
	Title    string             `json:"title"`
	Detail   string             `json:"detail"`
	Evidence map[string]float64 `json:"evidence,omitempty"`
}

// Report is the output of the anomaly engine. Metrics are always populated
// when inputs allow, whether or not any flag fired.
type Report struct {
	Metrics map[string]float64 `json:"metrics"`
	Flags   []Flag             `json:"flags"`
}

// InvestigationResult is the single inbound operation's output
type InvestigationResult struct {
	Target      ResolvedTarget `json:"target"`
	Dataset     *Dataset       `json:"dataset"`
	Report      *Report        `json:"report"`
	GeneratedAt time.Time      `json:"generated_at"`
}

// HighestSeverity returns the most severe flag level in the report,
// or "" when no flag fired.
func (r *Report) HighestSeverity() Severity {
	rank := map[Severity]int{SeverityLow: 1, SeverityMedium: 2, SeverityHigh: 3}
	var out Severity
	best := 0
	for _, f := range r.Flags {
		if rank[f.Severity] > best {
			best = rank[f.Severity]
			out = f.Severity
		}
	}
	return out
}
