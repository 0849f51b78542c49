// Package notebook is the engine's public surface: record creation with
// best-effort embedding and topic suggestion, listing, keyword and semantic
// search, bulk document ingestion, and export. Outer layers (the CLI, any
// future UI) call only through this package.
package notebook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hexcarb/labnotes/internal/embedding"
	"github.com/hexcarb/labnotes/internal/extract"
	"github.com/hexcarb/labnotes/internal/ingest"
	"github.com/hexcarb/labnotes/internal/note"
	"github.com/hexcarb/labnotes/internal/retrieval"
	"github.com/hexcarb/labnotes/internal/topics"
	"github.com/hexcarb/labnotes/internal/vector"
)

// ErrSemanticUnavailable mirrors retrieval.ErrSemanticUnavailable for
// callers that only import this package.
var ErrSemanticUnavailable = retrieval.ErrSemanticUnavailable

// Summary is a record as presented to callers.
type Summary struct {
	ID        string
	CreatedAt time.Time
	Text      string
	Tags      []string
	Topics    []string
	Source    string
	Embedded  bool
}

// Result is one semantic search hit.
type Result struct {
	Score  float32
	Record Summary
}

// Notebook wires the stores, the embedding provider, the topic classifier,
// and the retrieval strategy chosen at startup.
type Notebook struct {
	records    *note.Store
	vectors    *vector.Store
	provider   embedding.Provider
	classifier *topics.Classifier
	strategy   retrieval.Strategy
	chunkWords int
	logger     *slog.Logger
}

// New creates a Notebook. provider may be nil; the notebook then runs in
// keyword-only mode and skips embedding and topic suggestion.
func New(records *note.Store, vectors *vector.Store, provider embedding.Provider, classifier *topics.Classifier, chunkWords int) *Notebook {
	return &Notebook{
		records:    records,
		vectors:    vectors,
		provider:   provider,
		classifier: classifier,
		strategy:   retrieval.NewStrategy(provider, records, vectors),
		chunkWords: chunkWords,
		logger:     slog.Default(),
	}
}

// AddRecord creates a record from text and tags, then attempts embedding
// and topic suggestion. Embedding trouble never fails the call: the record
// is kept without a vector row and the caller gets its id.
func (n *Notebook) AddRecord(ctx context.Context, text string, tags []string) (string, error) {
	rec := note.Record{
		ID:        uuid.New().String(),
		CreatedAt: time.Now().UTC(),
		Text:      text,
		Tags:      tags,
	}
	pos, err := n.records.Append(rec)
	if err != nil {
		return "", fmt.Errorf("saving record: %w", err)
	}

	if n.provider != nil {
		n.embedRecord(ctx, rec, pos)
	}
	return rec.ID, nil
}

// embedRecord appends the record's vector and attaches row + suggested
// topics. Best effort throughout: every failure is logged and swallowed.
func (n *Notebook) embedRecord(ctx context.Context, rec note.Record, pos int) {
	vecs, err := n.provider.Embed(ctx, []string{rec.Text})
	if err != nil {
		n.logger.Warn("embedding record failed, keeping record without vector", "id", rec.ID, "error", err)
		return
	}
	vec := vecs[0]

	row := 0
	if ix, err := n.vectors.Load(); err == nil && ix != nil {
		row = ix.Rows()
	}
	if err := n.vectors.Append([][]float32{vec}, []int{pos}, n.provider.Model()); err != nil {
		n.logger.Warn("appending vector failed, keeping record without vector", "id", rec.ID, "error", err)
		return
	}

	rec.EmbeddingRow = &row
	if n.classifier != nil {
		rec.Topics = n.classifier.Suggest(ctx, vec)
	}
	if err := n.records.Update(pos, rec); err != nil {
		n.logger.Warn("attaching embedding row failed", "id", rec.ID, "error", err)
	}
}

// List returns up to limit record summaries, newest first. limit <= 0
// returns everything.
func (n *Notebook) List(limit int) ([]Summary, error) {
	records, err := n.records.Load()
	if err != nil {
		return nil, err
	}
	summaries := make([]Summary, 0, len(records))
	for i := len(records) - 1; i >= 0; i-- {
		summaries = append(summaries, toSummary(records[i]))
		if limit > 0 && len(summaries) == limit {
			break
		}
	}
	return summaries, nil
}

// SearchKeyword returns records matching term by case-insensitive substring
// over text and tags, newest first.
func (n *Notebook) SearchKeyword(term string) ([]Summary, error) {
	matches, err := n.records.SearchKeyword(term)
	if err != nil {
		return nil, err
	}
	summaries := make([]Summary, 0, len(matches))
	for i := len(matches) - 1; i >= 0; i-- {
		summaries = append(summaries, toSummary(matches[i]))
	}
	return summaries, nil
}

// SearchSemantic returns the topK records ranked by similarity to query.
// It fails with ErrSemanticUnavailable when no embedding provider is
// available — the caller asked for scores and substring matching cannot
// provide them. retrieval.ErrNoRecords distinguishes an empty collection
// from a query with zero close matches.
func (n *Notebook) SearchSemantic(ctx context.Context, query string, topK int) ([]Result, error) {
	if !n.strategy.Semantic() {
		return nil, ErrSemanticUnavailable
	}
	hits, err := n.strategy.Search(ctx, query, topK)
	if err != nil {
		return nil, err
	}
	results := make([]Result, len(hits))
	for i, h := range hits {
		results[i] = Result{Score: h.Score, Record: toSummary(h.Record)}
	}
	return results, nil
}

// Search runs whatever strategy the process has: ranked semantic search
// when a provider is available, keyword fallback otherwise.
func (n *Notebook) Search(ctx context.Context, query string, topK int) ([]Result, bool, error) {
	hits, err := n.strategy.Search(ctx, query, topK)
	if err != nil {
		return nil, n.strategy.Semantic(), err
	}
	results := make([]Result, len(hits))
	for i, h := range hits {
		results[i] = Result{Score: h.Score, Record: toSummary(h.Record)}
	}
	return results, n.strategy.Semantic(), nil
}

// Ingest extracts each file to text and runs the ingestion pipeline over
// the batch. Files that cannot be extracted are skipped and reported; they
// never abort the batch.
func (n *Notebook) Ingest(ctx context.Context, paths []string) (ingest.Report, error) {
	var docs []ingest.Document
	var extractFailures []ingest.Failure
	skipped := 0

	for _, path := range paths {
		text, err := extract.Extract(path)
		if err != nil {
			n.logger.Warn("extraction failed, skipping document", "path", path, "error", err)
			extractFailures = append(extractFailures, ingest.Failure{DocID: path, Err: err.Error()})
			skipped++
			continue
		}
		docs = append(docs, ingest.Document{ID: path, Text: text})
	}

	pipeline := ingest.NewPipeline(n.provider, n.records, n.vectors, n.chunkWords)
	report, err := pipeline.Run(ctx, docs)
	report.DocumentsSkipped += skipped
	report.Failures = append(extractFailures, report.Failures...)
	return report, err
}

// Embedded reports whether the notebook has an embedding provider.
func (n *Notebook) Embedded() bool {
	return n.provider != nil
}

func toSummary(r note.Record) Summary {
	return Summary{
		ID:        r.ID,
		CreatedAt: r.CreatedAt,
		Text:      r.Text,
		Tags:      r.Tags,
		Topics:    r.Topics,
		Source:    r.Source,
		Embedded:  r.EmbeddingRow != nil,
	}
}

// IsNoRecords reports whether err is the "nothing to search" condition.
func IsNoRecords(err error) bool {
	return errors.Is(err, retrieval.ErrNoRecords)
}
