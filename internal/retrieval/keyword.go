package retrieval

import (
	"context"

	"github.com/hexcarb/labnotes/internal/note"
)

// KeywordStrategy is the degraded mode used when no embedding provider is
// available: case-insensitive substring matching over record text and tags,
// newest first, with no meaningful score.
type KeywordStrategy struct {
	records *note.Store
}

// Semantic reports that results carry no similarity scores.
func (s *KeywordStrategy) Semantic() bool { return false }

// Search returns up to k keyword matches, most recent first. Returns
// ErrNoRecords when the collection is empty.
func (s *KeywordStrategy) Search(_ context.Context, query string, k int) ([]Hit, error) {
	all, err := s.records.Load()
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, ErrNoRecords
	}

	matches, err := s.records.SearchKeyword(query)
	if err != nil {
		return nil, err
	}

	// SearchKeyword preserves insertion order; walk backwards for
	// newest-first. Positions are recovered by identity since records are
	// append-only.
	posByID := make(map[string]int, len(all))
	for i, r := range all {
		posByID[r.ID] = i
	}

	var hits []Hit
	for i := len(matches) - 1; i >= 0 && len(hits) < k; i-- {
		hits = append(hits, Hit{
			Score:    0,
			Row:      -1,
			Position: posByID[matches[i].ID],
			Record:   matches[i],
		})
	}
	return hits, nil
}
