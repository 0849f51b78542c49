package vector

import (
	"math"
	"sort"
)

// Hit is one nearest-neighbor result: the matrix row and its cosine
// similarity to the query.
type Hit struct {
	Row   int
	Score float32
}

// Search returns the k rows most similar to query by cosine similarity.
// Both query and stored vectors are normalized to unit length so document
// length carries no weight. Ties break toward the lower (earlier-inserted)
// row, making repeated calls deterministic. Returns ErrIndexUnavailable
// when the index holds no rows.
func (ix *Index) Search(query []float32, k int) ([]Hit, error) {
	if ix == nil || ix.Rows() == 0 {
		return nil, ErrIndexUnavailable
	}
	rows := ix.Rows()
	if len(query) != ix.Dim {
		return nil, ErrDimensionMismatch
	}
	if k <= 0 {
		return nil, nil
	}

	queryNorm := Norm(query)
	hits := make([]Hit, rows)
	for i := 0; i < rows; i++ {
		hits[i] = Hit{Row: i, Score: Cosine(query, ix.Row(i), queryNorm)}
	}

	// Stable sort keeps row order within equal scores: earlier-inserted wins.
	sort.SliceStable(hits, func(a, b int) bool {
		return hits[a].Score > hits[b].Score
	})

	if k > len(hits) {
		k = len(hits)
	}
	return hits[:k], nil
}

// Norm returns the L2 norm of a vector.
func Norm(v []float32) float32 {
	var sum float64
	for _, f := range v {
		sum += float64(f) * float64(f)
	}
	return float32(math.Sqrt(sum))
}

// Cosine computes dot(a,b) / (aNorm * |b|). aNorm is precomputed since the
// query is compared against every row.
func Cosine(a, b []float32, aNorm float32) float32 {
	var dot, bNormSq float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		bNormSq += float64(b[i]) * float64(b[i])
	}
	bNorm := math.Sqrt(bNormSq)
	if bNorm == 0 || aNorm == 0 {
		return 0
	}
	return float32(dot / (float64(aNorm) * bNorm))
}
