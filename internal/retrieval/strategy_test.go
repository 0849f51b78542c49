package retrieval

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hexcarb/labnotes/internal/note"
	"github.com/hexcarb/labnotes/internal/vector"
)

// hashProvider embeds text deterministically from its words so related
// texts land near each other.
type hashProvider struct {
	dim  int
	fail bool
}

func (p *hashProvider) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if p.fail {
		return nil, errors.New("model unavailable")
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v := make([]float32, p.dim)
		for _, w := range strings.Fields(strings.ToLower(t)) {
			h := 0
			for _, r := range w {
				h = h*31 + int(r)
			}
			v[((h%p.dim)+p.dim)%p.dim] += 1
		}
		out[i] = v
	}
	return out, nil
}

func (p *hashProvider) Model() string { return "stub/hash" }

func testStores(t *testing.T) (*note.Store, *vector.Store) {
	t.Helper()
	dir := t.TempDir()
	return note.NewStore(filepath.Join(dir, "notes.json")),
		vector.NewStore(filepath.Join(dir, "vectors.bin"), filepath.Join(dir, "vectors_map.json"))
}

func addRecord(t *testing.T, s *note.Store, text string, tags ...string) int {
	t.Helper()
	pos, err := s.Append(note.Record{
		ID:        "id-" + text,
		CreatedAt: time.Now().UTC(),
		Text:      text,
		Tags:      tags,
	})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	return pos
}

func TestNewStrategy_Selection(t *testing.T) {
	records, vectors := testStores(t)
	if s := NewStrategy(nil, records, vectors); s.Semantic() {
		t.Error("nil provider should select keyword strategy")
	}
	if s := NewStrategy(&hashProvider{dim: 8}, records, vectors); !s.Semantic() {
		t.Error("provider should select semantic strategy")
	}
}

func TestSemantic_LazyBuildAndSearch(t *testing.T) {
	records, vectors := testStores(t)
	addRecord(t, records, "CNT dispersion improved with SDS surfactant")
	addRecord(t, records, "oven calibration drifted two degrees")
	addRecord(t, records, "surfactant concentration sweep for dispersion")

	s := NewStrategy(&hashProvider{dim: 16}, records, vectors)
	hits, err := s.Search(context.Background(), "SDS surfactant dispersion", 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("got %d hits, want 2", len(hits))
	}
	if hits[0].Score < hits[1].Score {
		t.Error("hits not in descending score order")
	}
	if !strings.Contains(hits[0].Record.Text, "surfactant") {
		t.Errorf("top hit = %q", hits[0].Record.Text)
	}

	// The lazy build must have persisted an index.
	ix, err := vectors.Load()
	if err != nil || ix == nil {
		t.Fatalf("index not persisted after lazy build: ix=%v err=%v", ix, err)
	}
	if ix.Rows() != 3 {
		t.Errorf("index rows = %d, want 3", ix.Rows())
	}
}

func TestSemantic_BuildFailureIsAllOrNothing(t *testing.T) {
	records, vectors := testStores(t)
	addRecord(t, records, "some note")

	s := NewStrategy(&hashProvider{dim: 8, fail: true}, records, vectors)
	_, err := s.Search(context.Background(), "query", 3)
	if err == nil {
		t.Fatal("expected build failure")
	}
	if ix, _ := vectors.Load(); ix != nil {
		t.Error("partial index persisted after failed build")
	}
}

func TestSemantic_NoRecords(t *testing.T) {
	records, vectors := testStores(t)
	s := NewStrategy(&hashProvider{dim: 8}, records, vectors)
	if _, err := s.Search(context.Background(), "anything", 3); !errors.Is(err, ErrNoRecords) {
		t.Errorf("err = %v, want ErrNoRecords", err)
	}
}

func TestKeyword_NewestFirst(t *testing.T) {
	records, vectors := testStores(t)
	addRecord(t, records, "first dispersion note")
	addRecord(t, records, "unrelated")
	addRecord(t, records, "second dispersion note")

	s := NewStrategy(nil, records, vectors)
	hits, err := s.Search(context.Background(), "dispersion", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("got %d hits, want 2", len(hits))
	}
	if hits[0].Record.Text != "second dispersion note" {
		t.Errorf("newest match not first: %q", hits[0].Record.Text)
	}
	if hits[0].Row != -1 || hits[0].Score != 0 {
		t.Errorf("keyword hit carries row %d score %f", hits[0].Row, hits[0].Score)
	}
	if hits[0].Position != 2 || hits[1].Position != 0 {
		t.Errorf("positions = %d, %d", hits[0].Position, hits[1].Position)
	}
}

func TestKeyword_NoRecords(t *testing.T) {
	records, vectors := testStores(t)
	s := NewStrategy(nil, records, vectors)
	if _, err := s.Search(context.Background(), "term", 5); !errors.Is(err, ErrNoRecords) {
		t.Errorf("err = %v, want ErrNoRecords", err)
	}
}

func TestKeyword_ZeroMatchesIsNotAnError(t *testing.T) {
	records, vectors := testStores(t)
	addRecord(t, records, "note")

	s := NewStrategy(nil, records, vectors)
	hits, err := s.Search(context.Background(), "absent", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 0 {
		t.Errorf("got %d hits, want 0", len(hits))
	}
}
