package retrieval

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hexcarb/labnotes/internal/embedding"
	"github.com/hexcarb/labnotes/internal/note"
	"github.com/hexcarb/labnotes/internal/vector"
)

// SemanticStrategy embeds the query and ranks records by cosine similarity
// over the vector store, building the store from the existing records when
// none is persisted yet.
type SemanticStrategy struct {
	provider embedding.Provider
	records  *note.Store
	vectors  *vector.Store
}

// Semantic reports that results carry real similarity scores.
func (s *SemanticStrategy) Semantic() bool { return true }

// Search returns the top-k records by descending similarity to query.
// Returns ErrNoRecords when the collection is empty.
func (s *SemanticStrategy) Search(ctx context.Context, query string, k int) ([]Hit, error) {
	records, err := s.records.Load()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNoRecords
	}

	qvecs, err := s.provider.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	ix, err := s.vectors.Load()
	if err != nil {
		return nil, err
	}
	if ix == nil {
		ix, err = s.buildIndex(ctx, records)
		if err != nil {
			return nil, err
		}
	}

	hits, err := ix.Search(qvecs[0], k)
	if err != nil {
		return nil, err
	}

	results := make([]Hit, 0, len(hits))
	for _, h := range hits {
		pos, ok := ix.Record(h.Row)
		if !ok || pos < 0 || pos >= len(records) {
			slog.Warn("vector row resolves to missing record, skipping", "row", h.Row, "position", pos)
			continue
		}
		results = append(results, Hit{
			Score:    h.Score,
			Row:      h.Row,
			Position: pos,
			Record:   records[pos],
		})
	}
	return results, nil
}

// buildIndex embeds every record's text in one bulk call and persists a
// fresh vector store. All-or-nothing: an embedding failure aborts the build
// rather than leaving a silently smaller index behind.
func (s *SemanticStrategy) buildIndex(ctx context.Context, records []note.Record) (*vector.Index, error) {
	texts := make([]string, len(records))
	positions := make([]int, len(records))
	for i, r := range records {
		texts[i] = r.Text
		positions[i] = i
	}

	vecs, err := s.provider.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("could not build index: %w", err)
	}
	if err := s.vectors.Append(vecs, positions, s.provider.Model()); err != nil {
		return nil, fmt.Errorf("could not build index: %w", err)
	}

	ix, err := s.vectors.Load()
	if err != nil {
		return nil, err
	}
	if ix == nil {
		return nil, fmt.Errorf("could not build index: store unreadable after write")
	}
	return ix, nil
}
