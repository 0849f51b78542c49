// Package note persists the ordered collection of research records as a
// JSON document on disk. The file is the source of truth: every operation
// re-reads it, and a corrupt file is quarantined rather than blocking work.
package note

import (
	"errors"
	"time"
)

// ErrStoreCorrupt indicates the record file failed to parse and could not
// be quarantined. A successful quarantine is recovered silently instead.
var ErrStoreCorrupt = errors.New("record store corrupt")

// Record is one logical unit of knowledge: a note, or a chunk of an
// ingested document. Records are append-only; after creation only Topics
// and EmbeddingRow change, once embedding succeeds.
type Record struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Text      string    `json:"text"`
	Tags      []string  `json:"tags"`
	Topics    []string  `json:"topics"`
	// EmbeddingRow points into the vector matrix; nil means not embedded.
	EmbeddingRow *int `json:"embedding_row"`
	// Source carries chunk provenance ("paper.pdf:chunk2") for records
	// generated by ingestion. Empty for hand-written notes.
	Source string `json:"source,omitempty"`
}
