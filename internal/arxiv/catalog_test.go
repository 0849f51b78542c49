package arxiv

import (
	"errors"
	"testing"
	"time"
)

func testCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := OpenCatalog(":memory:")
	if err != nil {
		t.Fatalf("OpenCatalog: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func testPaper(id string, published time.Time) Paper {
	return Paper{
		ID:        id,
		Title:     "Phonon transport in nanotube films",
		Authors:   "A. Researcher",
		Summary:   "We measure thermal conductivity.",
		PDFURL:    "http://arxiv.org/pdf/" + id,
		Published: published,
		Updated:   published,
	}
}

func TestCatalogInsertAndGet(t *testing.T) {
	c := testCatalog(t)
	pub := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	if err := c.Insert(testPaper("2403.00001v1", pub)); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	got, err := c.Get("2403.00001v1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Title != "Phonon transport in nanotube films" {
		t.Errorf("Title = %q", got.Title)
	}
	if !got.Published.Equal(pub) {
		t.Errorf("Published = %v, want %v", got.Published, pub)
	}

	ok, err := c.Has("2403.00001v1")
	if err != nil || !ok {
		t.Errorf("Has = %v, %v; want true, nil", ok, err)
	}
	ok, err = c.Has("no-such-id")
	if err != nil || ok {
		t.Errorf("Has(missing) = %v, %v; want false, nil", ok, err)
	}
}

func TestCatalogGetMissing(t *testing.T) {
	c := testCatalog(t)
	if _, err := c.Get("nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get(missing) err = %v, want ErrNotFound", err)
	}
}

func TestCatalogDuplicateInsertFails(t *testing.T) {
	c := testCatalog(t)
	p := testPaper("2403.00002v1", time.Now().UTC())
	if err := c.Insert(p); err != nil {
		t.Fatal(err)
	}
	if err := c.Insert(p); err == nil {
		t.Fatal("expected duplicate insert to fail on primary key")
	}
}

func TestCatalogSetLocalPath(t *testing.T) {
	c := testCatalog(t)
	if err := c.Insert(testPaper("2403.00003v1", time.Now().UTC())); err != nil {
		t.Fatal(err)
	}

	if err := c.SetLocalPath("2403.00003v1", "/data/raw/2403.00003v1.pdf"); err != nil {
		t.Fatalf("SetLocalPath: %v", err)
	}
	got, err := c.Get("2403.00003v1")
	if err != nil {
		t.Fatal(err)
	}
	if got.LocalPath != "/data/raw/2403.00003v1.pdf" {
		t.Errorf("LocalPath = %q", got.LocalPath)
	}

	if err := c.SetLocalPath("missing", "x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("SetLocalPath(missing) err = %v, want ErrNotFound", err)
	}
}

func TestCatalogListNewestFirst(t *testing.T) {
	c := testCatalog(t)
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"2403.1v1", "2403.2v1", "2403.3v1"} {
		if err := c.Insert(testPaper(id, base.AddDate(0, 0, i))); err != nil {
			t.Fatal(err)
		}
	}

	papers, err := c.List(0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(papers) != 3 {
		t.Fatalf("got %d papers, want 3", len(papers))
	}
	if papers[0].ID != "2403.3v1" || papers[2].ID != "2403.1v1" {
		t.Errorf("order = [%s %s %s], want newest first", papers[0].ID, papers[1].ID, papers[2].ID)
	}

	limited, err := c.List(2)
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 2 {
		t.Errorf("List(2) returned %d papers", len(limited))
	}
}

func TestCatalogMigrationsApplied(t *testing.T) {
	c := testCatalog(t)
	var n int
	if err := c.db.QueryRow("SELECT COUNT(*) FROM schema_version").Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n == 0 {
		t.Error("no migrations recorded")
	}
}
