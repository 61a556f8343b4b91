// Package cvm downloads CVM bulk disclosure archives and extracts statement
// line items, filing metadata and company identity from them.
package cvm

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/aruanc/sentinela/internal/contracts"
	"github.com/aruanc/sentinela/pkg/config"
	"github.com/aruanc/sentinela/pkg/httputil"
	"github.com/aruanc/sentinela/pkg/logger"
)

// DocType identifies one bulk disclosure document type
type DocType string

const (
	DocDFP DocType = "DFP" // annual statements
	DocITR DocType = "ITR" // quarterly statements
	DocFRE DocType = "FRE" // reference forms
	DocIPE DocType = "IPE" // event disclosures
)

// Client downloads and caches bulk archives from the CVM open-data portal
// ⭐ SSOT: todo acesso ao portal de dados abertos da CVM passa por este cliente
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
	cacheDir   string
	ttl        time.Duration
	now        func() time.Time

	identityMu    sync.Mutex
	identityCache map[string]contracts.CompanyIdentity
}

// NewClient creates a new CVM client
func NewClient(cfg *config.Config, log *logger.Logger) *Client {
	ttl := cfg.CVM.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Client{
		httpClient:    httputil.NewWithTimeout(log, 120*time.Second).WithRateLimit(1, 2),
		logger:        log.WithField("provider", "cvm"),
		baseURL:       cfg.CVM.BaseURL,
		cacheDir:      filepath.Join(cfg.CacheDir, "cvm"),
		ttl:           ttl,
		now:           time.Now,
		identityCache: make(map[string]contracts.CompanyIdentity),
	}
}

// archiveURL builds the portal URL for one (docType, year) archive
func (c *Client) archiveURL(docType DocType, year int) string {
	name := fmt.Sprintf("%s_cia_aberta_%d.zip", strings.ToLower(string(docType)), year)
	return fmt.Sprintf("%s/%s/DADOS/%s", c.baseURL, docType, name)
}

// archivePath is the local cache location for one (docType, year) archive
func (c *Client) archivePath(docType DocType, year int) string {
	name := fmt.Sprintf("%s_cia_aberta_%d.zip", strings.ToLower(string(docType)), year)
	return filepath.Join(c.cacheDir, name)
}

// EnsureArchive returns the local path of a fresh archive copy, downloading
// when the cached file is missing or older than the TTL. Concurrent processes
// may race on the same cache file; content is year-versioned and re-download
// is idempotent, so no locking.
func (c *Client) EnsureArchive(ctx context.Context, docType DocType, year int) (string, error) {
	path := c.archivePath(docType, year)

	if info, err := os.Stat(path); err == nil {
		if c.now().Sub(info.ModTime()) < c.ttl {
			return path, nil
		}
	}

	if err := os.MkdirAll(c.cacheDir, 0o755); err != nil {
		return "", fmt.Errorf("cvm: create cache dir: %w", err)
	}

	url := c.archiveURL(docType, year)
	c.logger.WithFields(map[string]interface{}{
		"doc_type": docType,
		"year":     year,
		"url":      url,
	}).Info("Downloading CVM archive")

	resp, err := c.httpClient.Get(ctx, url)
	if err != nil {
		return "", fmt.Errorf("cvm: download archive: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return "", fmt.Errorf("cvm: download archive: unexpected status code: %d", resp.StatusCode)
	}

	tmp, err := os.CreateTemp(c.cacheDir, "download-*.zip")
	if err != nil {
		return "", fmt.Errorf("cvm: create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("cvm: write archive: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("cvm: close archive: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("cvm: move archive into cache: %w", err)
	}

	return path, nil
}

// openArchive ensures freshness and opens the zip for reading
func (c *Client) openArchive(ctx context.Context, docType DocType, year int) (*zip.ReadCloser, string, error) {
	path, err := c.EnsureArchive(ctx, docType, year)
	if err != nil {
		return nil, "", err
	}
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, "", fmt.Errorf("cvm: open archive %s: %w", filepath.Base(path), err)
	}
	return zr, c.archiveURL(docType, year), nil
}

// CleanCache removes every cached archive file
func (c *Client) CleanCache() error {
	entries, err := os.ReadDir(c.cacheDir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("cvm: read cache dir: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if err := os.Remove(filepath.Join(c.cacheDir, entry.Name())); err != nil {
			return fmt.Errorf("cvm: remove %s: %w", entry.Name(), err)
		}
	}
	return nil
}

// AvailableYears scrapes the portal directory listing for the years that
// have a published archive of the given document type.
func (c *Client) AvailableYears(ctx context.Context, docType DocType) ([]int, error) {
	url := fmt.Sprintf("%s/%s/DADOS/", c.baseURL, docType)

	resp, err := c.httpClient.Get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("cvm: list archives: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("cvm: list archives: unexpected status code: %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("cvm: parse archive listing: %w", err)
	}

	prefix := strings.ToLower(string(docType)) + "_cia_aberta_"
	seen := make(map[int]bool)
	doc.Find("a").Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok {
			return
		}
		name := strings.ToLower(filepath.Base(href))
		if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ".zip") {
			return
		}
		yearPart := strings.TrimSuffix(strings.TrimPrefix(name, prefix), ".zip")
		if year, err := strconv.Atoi(yearPart); err == nil && year > 1990 {
			seen[year] = true
		}
	})

	years := make([]int, 0, len(seen))
	for year := range seen {
		years = append(years, year)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(years)))
	return years, nil
}
