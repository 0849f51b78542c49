package arxiv

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const feedTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom" xmlns:arxiv="http://arxiv.org/schemas/atom">
%s</feed>`

func entryXML(id, title, published string) string {
	return fmt.Sprintf(`<entry>
  <id>http://arxiv.org/abs/%s</id>
  <title>%s</title>
  <summary>Thermal transport in
  aligned nanotube films.</summary>
  <published>%s</published>
  <updated>%s</updated>
  <author><name>A. Researcher</name></author>
  <author><name>B. Colleague</name></author>
  <link href="http://arxiv.org/abs/%s" rel="alternate" type="text/html"/>
  <link title="pdf" href="http://arxiv.org/pdf/%s" rel="related" type="application/pdf"/>
</entry>
`, id, title, published, published, id, id)
}

func TestSearchParsesFeed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("search_query"); got != "all:SWCNT" {
			t.Errorf("search_query = %q", got)
		}
		if got := r.URL.Query().Get("sortBy"); got != "submittedDate" {
			t.Errorf("sortBy = %q", got)
		}
		fmt.Fprintf(w, feedTemplate, entryXML("2401.01234v1", "A   wrapped\n  title", "2024-01-05T12:00:00Z"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil)
	papers, err := c.Search(context.Background(), "all:SWCNT", 0, 25)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(papers) != 1 {
		t.Fatalf("got %d papers, want 1", len(papers))
	}

	p := papers[0]
	if p.ID != "2401.01234v1" {
		t.Errorf("ID = %q", p.ID)
	}
	if p.Title != "A wrapped title" {
		t.Errorf("Title = %q, want whitespace collapsed", p.Title)
	}
	if p.Summary != "Thermal transport in aligned nanotube films." {
		t.Errorf("Summary = %q", p.Summary)
	}
	if p.Authors != "A. Researcher, B. Colleague" {
		t.Errorf("Authors = %q", p.Authors)
	}
	if p.PDFURL != "http://arxiv.org/pdf/2401.01234v1" {
		t.Errorf("PDFURL = %q", p.PDFURL)
	}
	want := time.Date(2024, 1, 5, 12, 0, 0, 0, time.UTC)
	if !p.Published.Equal(want) {
		t.Errorf("Published = %v, want %v", p.Published, want)
	}
}

func TestSearchSkipsMalformedEntries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		bad := `<entry><id>http://arxiv.org/abs/9999.0000v1</id><title>No date</title></entry>`
		fmt.Fprintf(w, feedTemplate, bad+entryXML("2401.02222v1", "Good", "2024-01-06T00:00:00Z"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil)
	papers, err := c.Search(context.Background(), "all:SWCNT", 0, 25)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(papers) != 1 || papers[0].ID != "2401.02222v1" {
		t.Fatalf("papers = %+v, want only the well-formed entry", papers)
	}
}

func TestSearchServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "throttled", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil)
	if _, err := c.Search(context.Background(), "all:SWCNT", 0, 25); err == nil {
		t.Fatal("expected error on HTTP 503")
	}
}

func TestPDFURLFallback(t *testing.T) {
	e := atomEntry{
		ID:        "http://arxiv.org/abs/2401.03333v2",
		Title:     "t",
		Published: "2024-01-07T00:00:00Z",
	}
	p, err := paperFromEntry(e)
	if err != nil {
		t.Fatal(err)
	}
	if p.PDFURL != "http://arxiv.org/pdf/2401.03333v2.pdf" {
		t.Errorf("PDFURL = %q, want constructed fallback", p.PDFURL)
	}
}
