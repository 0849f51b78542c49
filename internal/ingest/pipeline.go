// Package ingest turns batches of extracted document text into chunk
// pseudo-records and vector rows: chunk everything, embed the whole batch
// in one provider call, persist chunks and embeddings together with their
// source tags.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/hexcarb/labnotes/internal/chunker"
	"github.com/hexcarb/labnotes/internal/embedding"
	"github.com/hexcarb/labnotes/internal/note"
	"github.com/hexcarb/labnotes/internal/vector"
)

// Document is one source document, already extracted to plain text.
type Document struct {
	ID   string
	Text string
}

// Failure records one chunk that could not be embedded, attributed to its
// source document.
type Failure struct {
	DocID  string
	Source string
	Err    string
}

// Report summarizes one pipeline run.
type Report struct {
	DocumentsProcessed int
	ChunksProduced     int
	ChunksEmbedded     int
	DocumentsSkipped   int
	Failures           []Failure
}

// Pipeline orchestrates chunking, embedding, and persistence for bulk
// document ingestion. provider may be nil: chunks are then kept as records
// with no vector rows.
type Pipeline struct {
	provider   embedding.Provider
	records    *note.Store
	vectors    *vector.Store
	chunkWords int
	logger     *slog.Logger
}

// NewPipeline creates a Pipeline. chunkWords <= 0 selects the default
// chunk size.
func NewPipeline(provider embedding.Provider, records *note.Store, vectors *vector.Store, chunkWords int) *Pipeline {
	if chunkWords <= 0 {
		chunkWords = chunker.DefaultChunkWords
	}
	return &Pipeline{
		provider:   provider,
		records:    records,
		vectors:    vectors,
		chunkWords: chunkWords,
		logger:     slog.Default(),
	}
}

// sourcedChunk ties a chunk back to the document it came from.
type sourcedChunk struct {
	docID string
	chunk chunker.Chunk
}

// Run processes the batch. Documents with no extractable words are logged
// and skipped without aborting; embedding failures cost only the affected
// chunks and are reported per document in the Report.
func (p *Pipeline) Run(ctx context.Context, docs []Document) (Report, error) {
	var report Report
	var chunks []sourcedChunk

	for _, doc := range docs {
		n := 0
		for c := range chunker.Chunks(doc.ID, doc.Text, p.chunkWords) {
			chunks = append(chunks, sourcedChunk{docID: doc.ID, chunk: c})
			n++
		}
		if n == 0 {
			p.logger.Warn("no text in document, skipping", "doc", doc.ID)
			report.DocumentsSkipped++
			continue
		}
		report.DocumentsProcessed++
		report.ChunksProduced += n
	}
	if len(chunks) == 0 {
		return report, nil
	}

	vecs, failures := p.embedChunks(ctx, chunks)
	report.Failures = failures

	// Chunk records are appended first, vectors second: a crash in between
	// leaves records without rows, never rows without records.
	recs := make([]note.Record, len(chunks))
	now := time.Now().UTC()
	for i, sc := range chunks {
		recs[i] = note.Record{
			ID:        uuid.New().String(),
			CreatedAt: now,
			Text:      sc.chunk.Text,
			Tags:      []string{"ingested"},
			Source:    sc.chunk.Source,
		}
	}
	start, err := p.records.AppendAll(recs)
	if err != nil {
		return report, fmt.Errorf("persisting chunk records: %w", err)
	}

	var embedded [][]float32
	var positions []int
	for i, v := range vecs {
		if v != nil {
			embedded = append(embedded, v)
			positions = append(positions, start+i)
		}
	}
	if len(embedded) == 0 {
		return report, nil
	}

	baseRow := 0
	if ix, err := p.vectors.Load(); err != nil {
		return report, err
	} else if ix != nil {
		baseRow = ix.Rows()
	}

	if err := p.vectors.Append(embedded, positions, p.provider.Model()); err != nil {
		return report, fmt.Errorf("persisting embeddings: %w", err)
	}

	rowByPos := make(map[int]int, len(positions))
	for i, pos := range positions {
		rowByPos[pos] = baseRow + i
	}
	if err := p.records.SetEmbeddingRows(rowByPos); err != nil {
		return report, fmt.Errorf("linking records to rows: %w", err)
	}

	report.ChunksEmbedded = len(embedded)
	return report, nil
}

// embedChunks embeds the whole batch in one call; when that call fails it
// retries chunk by chunk so a single bad chunk costs only itself. The
// returned slice is parallel to chunks, nil where embedding failed.
func (p *Pipeline) embedChunks(ctx context.Context, chunks []sourcedChunk) ([][]float32, []Failure) {
	vecs := make([][]float32, len(chunks))
	if p.provider == nil {
		return vecs, nil
	}

	texts := make([]string, len(chunks))
	for i, sc := range chunks {
		texts[i] = sc.chunk.Text
	}

	batch, err := p.provider.Embed(ctx, texts)
	if err == nil && len(batch) == len(chunks) {
		return batch, nil
	}
	p.logger.Warn("batch embed failed, retrying per chunk", "chunks", len(chunks), "error", err)

	errs := make([]error, len(chunks))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i := range chunks {
		i := i
		g.Go(func() error {
			one, err := p.provider.Embed(gCtx, []string{texts[i]})
			if err != nil {
				errs[i] = err
				return nil // keep going; the failure is per-chunk
			}
			vecs[i] = one[0]
			return nil
		})
	}
	g.Wait()

	var failures []Failure
	for i, e := range errs {
		if e != nil {
			failures = append(failures, Failure{
				DocID:  chunks[i].docID,
				Source: chunks[i].chunk.Source,
				Err:    e.Error(),
			})
		}
	}
	return vecs, failures
}
