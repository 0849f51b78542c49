package arxiv

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// FetchOptions controls one fetch run.
type FetchOptions struct {
	Query      string
	Days       int  // only keep papers published within this many days; 0 keeps all
	MaxResults int  // page size for API pagination
	Download   bool // download PDFs for new papers
}

// FetchReport summarizes one fetch run. Downloaded holds only the PDF
// paths written during this run, so callers can ingest exactly the new
// papers.
type FetchReport struct {
	Seen       int
	New        int
	Downloaded []string
}

// Fetcher pulls new papers from arXiv into the catalog and optionally
// downloads their PDFs.
type Fetcher struct {
	client  *Client
	catalog *Catalog
	pdfDir  string
	logger  *slog.Logger
}

func NewFetcher(client *Client, catalog *Catalog, pdfDir string, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{client: client, catalog: catalog, pdfDir: pdfDir, logger: logger}
}

// Fetch pages through the query results newest first, storing papers
// not yet in the catalog. Pagination stops when a page comes back short
// or every remaining paper falls outside the day window.
func (f *Fetcher) Fetch(ctx context.Context, opts FetchOptions) (FetchReport, error) {
	if opts.Query == "" {
		return FetchReport{}, fmt.Errorf("empty query")
	}
	if opts.MaxResults <= 0 {
		opts.MaxResults = 25
	}

	var cutoff time.Time
	if opts.Days > 0 {
		cutoff = time.Now().UTC().AddDate(0, 0, -opts.Days)
	}

	var report FetchReport
	for start := 0; ; start += opts.MaxResults {
		papers, err := f.client.Search(ctx, opts.Query, start, opts.MaxResults)
		if err != nil {
			return report, err
		}
		if len(papers) == 0 {
			break
		}

		pageInWindow := 0
		for _, p := range papers {
			report.Seen++
			if !cutoff.IsZero() && p.Published.Before(cutoff) {
				continue
			}
			pageInWindow++

			exists, err := f.catalog.Has(p.ID)
			if err != nil {
				return report, fmt.Errorf("checking catalog: %w", err)
			}
			if exists {
				continue
			}

			if err := f.catalog.Insert(p); err != nil {
				return report, fmt.Errorf("storing paper %s: %w", p.ID, err)
			}
			report.New++
			f.logger.Info("new paper", "id", p.ID, "title", p.Title)

			if opts.Download && p.PDFURL != "" {
				path, err := f.downloadPDF(ctx, p)
				if err != nil {
					f.logger.Warn("pdf download failed", "id", p.ID, "error", err)
					continue
				}
				if err := f.catalog.SetLocalPath(p.ID, path); err != nil {
					return report, fmt.Errorf("recording pdf path for %s: %w", p.ID, err)
				}
				report.Downloaded = append(report.Downloaded, path)
			}
		}

		// Results are newest first, so once a full page falls outside
		// the window there is nothing left to fetch.
		if len(papers) < opts.MaxResults || (!cutoff.IsZero() && pageInWindow == 0) {
			break
		}
	}

	return report, nil
}

func (f *Fetcher) downloadPDF(ctx context.Context, p Paper) (string, error) {
	if err := os.MkdirAll(f.pdfDir, 0o755); err != nil {
		return "", fmt.Errorf("creating pdf directory: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.PDFURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := f.client.httpc.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("pdf server returned status %d", resp.StatusCode)
	}

	path := filepath.Join(f.pdfDir, p.ID+".pdf")
	out, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(path)
		return "", fmt.Errorf("writing pdf: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(path)
		return "", err
	}
	return path, nil
}
