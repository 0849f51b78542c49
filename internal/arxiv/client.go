package arxiv

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const defaultBaseURL = "http://export.arxiv.org/api/query"

// Paper is one arXiv entry as returned by the export API.
type Paper struct {
	ID        string
	Title     string
	Authors   string
	Summary   string
	PDFURL    string
	Published time.Time
	Updated   time.Time
	DOI       string
	LocalPath string
}

// Client queries the arXiv Atom API.
type Client struct {
	baseURL string
	httpc   *http.Client
	logger  *slog.Logger
}

func NewClient(baseURL string, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: baseURL,
		httpc:   &http.Client{Timeout: 60 * time.Second},
		logger:  logger,
	}
}

// atomFeed mirrors the subset of the arXiv Atom schema we consume.
type atomFeed struct {
	XMLName xml.Name    `xml:"feed"`
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	ID        string       `xml:"id"`
	Title     string       `xml:"title"`
	Summary   string       `xml:"summary"`
	Published string       `xml:"published"`
	Updated   string       `xml:"updated"`
	Authors   []atomAuthor `xml:"author"`
	Links     []atomLink   `xml:"link"`
	DOI       string       `xml:"doi"`
}

type atomAuthor struct {
	Name string `xml:"name"`
}

type atomLink struct {
	Href string `xml:"href,attr"`
	Type string `xml:"type,attr"`
}

// Search runs one page of an arXiv query sorted by submission date,
// newest first.
func (c *Client) Search(ctx context.Context, query string, start, maxResults int) ([]Paper, error) {
	q := url.Values{}
	q.Set("search_query", query)
	q.Set("start", strconv.Itoa(start))
	q.Set("max_results", strconv.Itoa(maxResults))
	q.Set("sortBy", "submittedDate")
	q.Set("sortOrder", "descending")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("querying arxiv: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("arxiv returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var feed atomFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("decoding arxiv feed: %w", err)
	}

	papers := make([]Paper, 0, len(feed.Entries))
	for _, e := range feed.Entries {
		p, err := paperFromEntry(e)
		if err != nil {
			c.logger.Warn("skipping malformed arxiv entry", "id", e.ID, "error", err)
			continue
		}
		papers = append(papers, p)
	}
	return papers, nil
}

func paperFromEntry(e atomEntry) (Paper, error) {
	id := shortID(e.ID)
	if id == "" {
		return Paper{}, fmt.Errorf("entry has no id")
	}

	published, err := time.Parse(time.RFC3339, e.Published)
	if err != nil {
		return Paper{}, fmt.Errorf("parsing published date: %w", err)
	}
	updated, _ := time.Parse(time.RFC3339, e.Updated)

	names := make([]string, 0, len(e.Authors))
	for _, a := range e.Authors {
		if a.Name != "" {
			names = append(names, a.Name)
		}
	}

	return Paper{
		ID:        id,
		Title:     collapseWhitespace(e.Title),
		Authors:   strings.Join(names, ", "),
		Summary:   collapseWhitespace(e.Summary),
		PDFURL:    pdfURL(e),
		Published: published,
		Updated:   updated,
		DOI:       e.DOI,
	}, nil
}

// shortID turns "http://arxiv.org/abs/2301.01234v1" into "2301.01234v1".
func shortID(full string) string {
	if i := strings.LastIndex(full, "/"); i >= 0 {
		return full[i+1:]
	}
	return full
}

func pdfURL(e atomEntry) string {
	for _, l := range e.Links {
		if l.Type == "application/pdf" {
			return l.Href
		}
	}
	if e.ID != "" {
		return strings.Replace(e.ID, "/abs/", "/pdf/", 1) + ".pdf"
	}
	return ""
}

// collapseWhitespace normalizes the hard-wrapped text arXiv returns in
// titles and abstracts.
func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
