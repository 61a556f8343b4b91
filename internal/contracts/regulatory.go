package contracts

// CompanyIdentity is the regulatory identity of a listed company,
// resolved once per ticker and cached for the process lifetime.
// Found=false is an explicit negative result, cached too, so a ticker
// that is not in the registry is not looked up again.
type CompanyIdentity struct {
	Ticker    string `json:"ticker"`
	CVMCode   string `json:"cvm_code,omitempty"`
	CNPJ      string `json:"cnpj,omitempty"`
	LegalName string `json:"legal_name,omitempty"`
	Found     bool   `json:"found"`
}

// LineItem is one statement row extracted from a bulk disclosure archive
type LineItem struct {
	DocType       string  `json:"doc_type"`      // DFP, ITR
	StatementKind string  `json:"statement_kind"` // BPA, BPP, DRE, DFC_MI, DFC_MD, DVA, DRA
	Consolidation string  `json:"consolidation"`  // con, ind
	AccountCode   string  `json:"account_code,omitempty"`
	AccountName   string  `json:"account_name"`
	Value         float64 `json:"value"`
	Period        string  `json:"report_period"` // ISO date
	SourceFile    string  `json:"source_file"`
}

// Filing is one filing-metadata row extracted from a bulk disclosure archive
type Filing struct {
	DocType      string `json:"doc_type"` // DFP, ITR, FRE, IPE
	Category     string `json:"category,omitempty"`
	Subject      string `json:"subject,omitempty"`
	AccessionNo  string `json:"accession_number,omitempty"`
	FilingDate   string `json:"filing_date,omitempty"`  // ISO date
	ReportPeriod string `json:"report_period,omitempty"` // ISO date
	DocumentURL  string `json:"document_url"`
	SourceFile   string `json:"source_file"`
}

// SortDate is the date the filing is ordered by: filing date when present,
// else the report period.
func (f Filing) SortDate() string {
	if f.FilingDate != "" {
		return f.FilingDate
	}
	return f.ReportPeriod
}
