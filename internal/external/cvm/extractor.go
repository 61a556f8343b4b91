package cvm

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/aruanc/sentinela/internal/contracts"
)

// statementKinds are the recognized statement markers in archive entry
// names, longest first so DFC_MD is not read as an unrecognized DFC.
var statementKinds = []string{"DFC_MD", "DFC_MI", "DMPL", "BPA", "BPP", "DRE", "DVA", "DRA"}

// classifyEntry extracts the statement kind and consolidation scope from an
// archive entry name. Entries lacking either marker are skipped.
func classifyEntry(name string) (kind, consolidation string, ok bool) {
	upper := strings.ToUpper(filepath.Base(name))
	if !strings.HasSuffix(upper, ".CSV") {
		return "", "", false
	}

	for _, k := range statementKinds {
		if strings.Contains(upper, "_"+k+"_") {
			kind = k
			break
		}
	}
	if kind == "" {
		return "", "", false
	}

	switch {
	case strings.Contains(upper, "_CON_") || strings.HasSuffix(upper, "_CON.CSV"):
		consolidation = "con"
	case strings.Contains(upper, "_IND_") || strings.HasSuffix(upper, "_IND.CSV"):
		consolidation = "ind"
	default:
		return "", "", false
	}

	return kind, consolidation, true
}

// matchesCompany tests row admission rules in priority order: exact registry
// code, exact tax ID (digits only), legal-name containment, ticker
// containment in the negotiated-code column. First satisfied rule wins.
func matchesCompany(row []string, cols map[string]int, identity contracts.CompanyIdentity) bool {
	if identity.CVMCode != "" {
		if code := cell(row, cols, "cvm_code"); code != "" &&
			trimLeadingZeros(code) == trimLeadingZeros(identity.CVMCode) {
			return true
		}
	}

	if identity.CNPJ != "" {
		if cnpj := cell(row, cols, "cnpj"); cnpj != "" &&
			digitsOnly(cnpj) == digitsOnly(identity.CNPJ) {
			return true
		}
	}

	if identity.LegalName != "" {
		if name := cell(row, cols, "company_name"); name != "" {
			a := strings.ToUpper(name)
			b := strings.ToUpper(identity.LegalName)
			if strings.Contains(a, b) || strings.Contains(b, a) {
				return true
			}
		}
	}

	if identity.Ticker != "" {
		if trading := cell(row, cols, "trading_code"); trading != "" &&
			strings.Contains(strings.ToUpper(trading), strings.ToUpper(identity.Ticker)) {
			return true
		}
	}

	return false
}

// periodInScope reports whether an ISO date falls in the requested year and,
// when quarter > 0, the requested calendar quarter.
func periodInScope(isoDate string, year, quarter int) bool {
	ts, err := time.Parse("2006-01-02", isoDate)
	if err != nil {
		return false
	}
	if ts.Year() != year {
		return false
	}
	if quarter > 0 && quarterOf(ts.Month()) != quarter {
		return false
	}
	return true
}

// LineItemQuery selects which line items to extract from one archive
type LineItemQuery struct {
	DocType DocType
	Year    int
	Quarter int // 0 = whole year
}

// StatementLineItems extracts the company's statement rows from the
// (docType, year) archive. Returns the items and the archive source URL.
func (c *Client) StatementLineItems(ctx context.Context, identity contracts.CompanyIdentity, query LineItemQuery) ([]contracts.LineItem, string, error) {
	if !identity.Found {
		return nil, "", fmt.Errorf("cvm: unresolved company identity for %q", identity.Ticker)
	}

	zr, sourceURL, err := c.openArchive(ctx, query.DocType, query.Year)
	if err != nil {
		return nil, "", err
	}
	defer zr.Close()

	var items []contracts.LineItem
	for _, entry := range zr.File {
		kind, consolidation, ok := classifyEntry(entry.Name)
		if !ok {
			continue
		}

		entryItems, err := c.extractFromEntry(entry, kind, consolidation, identity, query)
		if err != nil {
			c.logger.WithError(err).WithField("entry", entry.Name).Warn("Skipping unreadable archive entry")
			continue
		}
		items = append(items, entryItems...)
	}

	c.logger.WithFields(map[string]interface{}{
		"doc_type": query.DocType,
		"year":     query.Year,
		"quarter":  query.Quarter,
		"count":    len(items),
	}).Debug("Extracted statement line items")

	return items, sourceURL, nil
}

func (c *Client) extractFromEntry(entry *zip.File, kind, consolidation string, identity contracts.CompanyIdentity, query LineItemQuery) ([]contracts.LineItem, error) {
	rc, err := entry.Open()
	if err != nil {
		return nil, fmt.Errorf("open entry: %w", err)
	}
	defer rc.Close()

	reader := newArchiveCSVReader(rc)

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	cols := resolveColumns(header)
	// A statement file is only usable with a value column and an
	// account-name column.
	if _, ok := cols["value"]; !ok {
		return nil, nil
	}
	if _, ok := cols["account_name"]; !ok {
		return nil, nil
	}

	var items []contracts.LineItem
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return items, fmt.Errorf("read row: %w", err)
		}

		if !matchesCompany(row, cols, identity) {
			continue
		}

		period, ok := parseDate(cell(row, cols, "period"))
		if !ok || !periodInScope(period, query.Year, query.Quarter) {
			continue
		}

		value, err := parseDecimal(cell(row, cols, "value"))
		if err != nil {
			continue
		}

		items = append(items, contracts.LineItem{
			DocType:       string(query.DocType),
			StatementKind: kind,
			Consolidation: consolidation,
			AccountCode:   cell(row, cols, "account_code"),
			AccountName:   cell(row, cols, "account_name"),
			Value:         value,
			Period:        period,
			SourceFile:    filepath.Base(entry.Name),
		})
	}

	return items, nil
}
