package cvm

import (
	"archive/zip"
	"context"
	"io"
	"path/filepath"
	"sort"

	"github.com/aruanc/sentinela/internal/contracts"
)

// Filings extracts filing metadata for the company from the requested
// document types, merging up to two years per type (the given year and the
// one before it), sorted by filing date descending and truncated to limit.
func (c *Client) Filings(ctx context.Context, identity contracts.CompanyIdentity, docTypes []DocType, year, limit int) ([]contracts.Filing, []string, error) {
	var (
		filings    []contracts.Filing
		sourceURLs []string
	)

	for _, docType := range docTypes {
		for _, y := range []int{year, year - 1} {
			zr, sourceURL, err := c.openArchive(ctx, docType, y)
			if err != nil {
				// Older or newer years may simply not be published yet.
				c.logger.WithError(err).WithFields(map[string]interface{}{
					"doc_type": docType,
					"year":     y,
				}).Debug("Skipping unavailable filings archive")
				continue
			}

			extracted := c.filingsFromArchive(zr, docType, identity)
			zr.Close()

			if len(extracted) > 0 {
				filings = append(filings, extracted...)
				sourceURLs = append(sourceURLs, sourceURL)
			}
		}
	}

	sort.SliceStable(filings, func(i, j int) bool {
		return filings[i].SortDate() > filings[j].SortDate()
	})

	if limit > 0 && len(filings) > limit {
		filings = filings[:limit]
	}

	c.logger.WithFields(map[string]interface{}{
		"ticker": identity.Ticker,
		"count":  len(filings),
	}).Debug("Extracted filings")

	return filings, sourceURLs, nil
}

// filingsFromArchive walks every CSV entry carrying a document-link column
func (c *Client) filingsFromArchive(zr *zip.ReadCloser, docType DocType, identity contracts.CompanyIdentity) []contracts.Filing {
	var filings []contracts.Filing
	for _, entry := range zr.File {
		extracted, err := c.filingsFromEntry(entry, docType, identity)
		if err != nil {
			c.logger.WithError(err).WithField("entry", entry.Name).Warn("Skipping unreadable archive entry")
			continue
		}
		filings = append(filings, extracted...)
	}
	return filings
}

func (c *Client) filingsFromEntry(entry *zip.File, docType DocType, identity contracts.CompanyIdentity) ([]contracts.Filing, error) {
	rc, err := entry.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	reader := newArchiveCSVReader(rc)

	header, err := reader.Read()
	if err != nil {
		return nil, nil
	}

	cols := resolveColumns(header)
	// Only metadata files carry a document link; statement files do not.
	if _, ok := cols["document_link"]; !ok {
		return nil, nil
	}

	var filings []contracts.Filing
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return filings, err
		}

		if !matchesCompany(row, cols, identity) {
			continue
		}

		link := cell(row, cols, "document_link")
		if link == "" {
			continue
		}

		filingDate, _ := parseDate(cell(row, cols, "filing_date"))
		reportPeriod, _ := parseDate(cell(row, cols, "period"))

		filings = append(filings, contracts.Filing{
			DocType:      string(docType),
			Category:     cell(row, cols, "category"),
			Subject:      cell(row, cols, "subject"),
			AccessionNo:  cell(row, cols, "accession"),
			FilingDate:   filingDate,
			ReportPeriod: reportPeriod,
			DocumentURL:  link,
			SourceFile:   filepath.Base(entry.Name),
		})
	}

	return filings, nil
}
