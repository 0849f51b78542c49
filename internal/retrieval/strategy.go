// Package retrieval answers free-text queries over the record collection.
// The branching between semantic ranking and the keyword fallback happens
// exactly once, at startup, by choosing the Strategy implementation; call
// sites never re-check provider availability.
package retrieval

import (
	"context"
	"errors"

	"github.com/hexcarb/labnotes/internal/embedding"
	"github.com/hexcarb/labnotes/internal/note"
	"github.com/hexcarb/labnotes/internal/vector"
)

var (
	// ErrSemanticUnavailable is returned when the caller explicitly asked
	// for ranked search but no embedding provider is available. Distinct
	// from a query that ranks everything and finds nothing close.
	ErrSemanticUnavailable = errors.New("semantic search unavailable")
	// ErrNoRecords is returned when there is nothing to search at all.
	ErrNoRecords = errors.New("no records available")
)

// Hit is one retrieval result. Row is the vector matrix row the hit came
// from, or -1 for keyword matches, which carry no meaningful score.
type Hit struct {
	Score    float32
	Row      int
	Position int
	Record   note.Record
}

// Strategy executes a query with top-k results. Semantic reports whether
// results carry real similarity scores.
type Strategy interface {
	Search(ctx context.Context, query string, k int) ([]Hit, error)
	Semantic() bool
}

// NewStrategy picks the strategy for the process: semantic when a provider
// is available, keyword fallback otherwise.
func NewStrategy(provider embedding.Provider, records *note.Store, vectors *vector.Store) Strategy {
	if provider == nil {
		return &KeywordStrategy{records: records}
	}
	return &SemanticStrategy{provider: provider, records: records, vectors: vectors}
}
