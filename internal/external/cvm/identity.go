package cvm

import (
	"archive/zip"
	"context"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aruanc/sentinela/internal/contracts"
)

// ResolveIdentity maps a B3 ticker to its regulatory identity. The scan runs
// once per ticker per process; the outcome is cached either way, including
// the explicit not-found result, so a missing company is not re-scanned.
func (c *Client) ResolveIdentity(ctx context.Context, tickerSymbol string, year int) (contracts.CompanyIdentity, error) {
	symbol := strings.ToUpper(strings.TrimSpace(tickerSymbol))

	c.identityMu.Lock()
	if cached, ok := c.identityCache[symbol]; ok {
		c.identityMu.Unlock()
		return cached, nil
	}
	c.identityMu.Unlock()

	identity := contracts.CompanyIdentity{Ticker: symbol}

	// The annual archive is scanned first, then the quarterly one.
	for _, docType := range []DocType{DocDFP, DocITR} {
		found, err := c.scanArchiveForIdentity(ctx, docType, year, symbol, &identity)
		if err != nil {
			return contracts.CompanyIdentity{}, err
		}
		if found {
			identity.Found = true
			break
		}
	}

	c.identityMu.Lock()
	c.identityCache[symbol] = identity
	c.identityMu.Unlock()

	c.logger.WithFields(map[string]interface{}{
		"ticker":   symbol,
		"found":    identity.Found,
		"cvm_code": identity.CVMCode,
	}).Debug("Resolved company identity")

	return identity, nil
}

// scanArchiveForIdentity walks one archive's identity-bearing CSVs for a
// negotiated-code column containing the ticker.
func (c *Client) scanArchiveForIdentity(ctx context.Context, docType DocType, year int, symbol string, identity *contracts.CompanyIdentity) (bool, error) {
	zr, _, err := c.openArchive(ctx, docType, year)
	if err != nil {
		return false, err
	}
	defer zr.Close()

	for _, entry := range identityEntries(zr.File) {
		found, err := c.scanEntryForIdentity(entry, symbol, identity)
		if err != nil {
			c.logger.WithError(err).WithField("entry", entry.Name).Warn("Skipping unreadable archive entry")
			continue
		}
		if found {
			return true, nil
		}
	}
	return false, nil
}

// identityEntries orders the archive's CSVs so that files whose names hint
// at capital composition or negotiated codes are scanned first.
func identityEntries(files []*zip.File) []*zip.File {
	var out []*zip.File
	for _, f := range files {
		if strings.HasSuffix(strings.ToLower(f.Name), ".csv") {
			out = append(out, f)
		}
	}

	hint := func(name string) int {
		lower := strings.ToLower(filepath.Base(name))
		switch {
		case strings.Contains(lower, "composicao") || strings.Contains(lower, "capital"):
			return 0
		case strings.Contains(lower, "negoc"):
			return 1
		default:
			return 2
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return hint(out[i].Name) < hint(out[j].Name)
	})
	return out
}

func (c *Client) scanEntryForIdentity(entry *zip.File, symbol string, identity *contracts.CompanyIdentity) (bool, error) {
	rc, err := entry.Open()
	if err != nil {
		return false, err
	}
	defer rc.Close()

	reader := newArchiveCSVReader(rc)

	header, err := reader.Read()
	if err != nil {
		return false, err
	}

	cols := resolveColumns(header)
	if _, ok := cols["trading_code"]; !ok {
		return false, nil
	}

	for {
		row, err := reader.Read()
		if err == io.EOF {
			return false, nil
		}
		if err != nil {
			return false, err
		}

		trading := strings.ToUpper(cell(row, cols, "trading_code"))
		if trading == "" || !strings.Contains(trading, symbol) {
			continue
		}

		identity.CVMCode = trimLeadingZeros(cell(row, cols, "cvm_code"))
		identity.CNPJ = digitsOnly(cell(row, cols, "cnpj"))
		identity.LegalName = cell(row, cols, "company_name")
		return true, nil
	}
}
