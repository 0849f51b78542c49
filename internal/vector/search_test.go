package vector

import (
	"errors"
	"testing"
)

// buildIndex makes an in-memory index from rows, mapping row i → record i.
func buildIndex(t *testing.T, rows [][]float32) *Index {
	t.Helper()
	s := testVectorStore(t)
	positions := make([]int, len(rows))
	for i := range positions {
		positions[i] = i
	}
	if err := s.Append(rows, positions, testModel); err != nil {
		t.Fatalf("Append: %v", err)
	}
	ix, err := s.Load()
	if err != nil || ix == nil {
		t.Fatalf("Load: ix=%v err=%v", ix, err)
	}
	return ix
}

func TestSearch_RanksBySimilarity(t *testing.T) {
	ix := buildIndex(t, [][]float32{
		{0, 1, 0},       // orthogonal
		{1, 0.1, 0},     // close
		{1, 0, 0},       // exact direction
		{-1, 0, 0},      // opposite
	})

	hits, err := ix.Search([]float32{2, 0, 0}, 3)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	wantRows := []int{2, 1, 0}
	for i, h := range hits {
		if h.Row != wantRows[i] {
			t.Errorf("hit %d row = %d, want %d", i, h.Row, wantRows[i])
		}
	}
	if hits[0].Score < 0.999 {
		t.Errorf("top score = %f, want ~1 despite magnitude difference", hits[0].Score)
	}
}

func TestSearch_TiesBreakToLowerRow(t *testing.T) {
	// Rows 1 and 3 are identical; the earlier-inserted must win.
	ix := buildIndex(t, [][]float32{
		{0, 1},
		{1, 0},
		{0, -1},
		{1, 0},
	})

	for range 5 {
		hits, err := ix.Search([]float32{1, 0}, 2)
		if err != nil {
			t.Fatalf("Search: %v", err)
		}
		if hits[0].Row != 1 || hits[1].Row != 3 {
			t.Fatalf("tie order = [%d %d], want [1 3]", hits[0].Row, hits[1].Row)
		}
	}
}

func TestSearch_KLargerThanRows(t *testing.T) {
	ix := buildIndex(t, [][]float32{{1, 0}, {0, 1}})
	hits, err := ix.Search([]float32{1, 1}, 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 2 {
		t.Errorf("got %d hits, want 2", len(hits))
	}
}

func TestSearch_EmptyIndex(t *testing.T) {
	var ix *Index
	if _, err := ix.Search([]float32{1}, 1); !errors.Is(err, ErrIndexUnavailable) {
		t.Errorf("nil index err = %v, want ErrIndexUnavailable", err)
	}
}

func TestSearch_QueryDimensionMismatch(t *testing.T) {
	ix := buildIndex(t, [][]float32{{1, 0, 0}})
	if _, err := ix.Search([]float32{1, 0}, 1); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("err = %v, want ErrDimensionMismatch", err)
	}
}

func TestNormAndCosine(t *testing.T) {
	if got := Norm([]float32{3, 4}); got != 5 {
		t.Errorf("Norm = %v, want 5", got)
	}

	a := []float32{1, 0}
	aNorm := Norm(a)
	tests := []struct {
		name string
		b    []float32
		want float32
	}{
		{"aligned", []float32{2, 0}, 1},
		{"orthogonal", []float32{0, 1}, 0},
		{"opposed", []float32{-1, 0}, -1},
		{"zero vector", []float32{0, 0}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Cosine(a, tt.b, aNorm)
			if diff := got - tt.want; diff > 1e-6 || diff < -1e-6 {
				t.Errorf("Cosine = %v, want %v", got, tt.want)
			}
		})
	}
}
