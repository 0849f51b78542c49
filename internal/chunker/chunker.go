// Package chunker splits document text into bounded word-count chunks
// tagged with their origin.
package chunker

import (
	"fmt"
	"iter"
	"strings"
)

// DefaultChunkWords is the chunk size used when none is configured.
const DefaultChunkWords = 300

// Chunk is a fragment of a larger document. Source identifies where the
// fragment came from, in the form "<doc-id>:chunk<N>".
type Chunk struct {
	Source string
	Text   string
}

// Chunks returns a lazy sequence of word-boundary chunks of text, each at
// most size words, with no overlap. The sequence is restartable: ranging
// over it twice yields identical chunks. Empty or whitespace-only input
// yields an empty sequence.
func Chunks(docID, text string, size int) iter.Seq[Chunk] {
	if size <= 0 {
		size = DefaultChunkWords
	}
	return func(yield func(Chunk) bool) {
		words := strings.Fields(text)
		for i, n := 0, 0; i < len(words); i, n = i+size, n+1 {
			end := min(i+size, len(words))
			c := Chunk{
				Source: fmt.Sprintf("%s:chunk%d", docID, n),
				Text:   strings.Join(words[i:end], " "),
			}
			if !yield(c) {
				return
			}
		}
	}
}

// Split collects the chunk sequence into a slice.
func Split(docID, text string, size int) []Chunk {
	var chunks []Chunk
	for c := range Chunks(docID, text, size) {
		chunks = append(chunks, c)
	}
	return chunks
}
