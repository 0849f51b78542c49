// Package topics suggests taxonomy labels for a record by comparing its
// embedding against the embeddings of a fixed, curated topic list. The
// suggestions are advisory metadata: they augment a record but never block
// its creation.
package topics

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/hexcarb/labnotes/internal/embedding"
	"github.com/hexcarb/labnotes/internal/vector"
)

// Taxonomy is the curated set of research topic labels. Kept concise and
// descriptive; expand as the lab's focus widens.
var Taxonomy = []string{
	"Mechanical properties",
	"Electrical conductivity",
	"Thermal stability",
	"Dispersion & processing",
	"CNT functionalization",
	"Sensor performance",
	"Composite integration",
	"Manufacturing / scale-up",
	"Electrochemical performance",
	"Material characterization",
}

const (
	// DefaultThreshold is the minimum cosine similarity for a label to be
	// suggested. The value is inherited tuning, not a derived constant;
	// override it via config when it misbehaves on a new model.
	DefaultThreshold = 0.45
	// DefaultMaxSuggestions caps the labels attached to one record.
	DefaultMaxSuggestions = 3
)

// Classifier computes topic suggestions. Taxonomy embeddings are computed
// once on first use and cached for the process lifetime; Reset discards
// them, e.g. after swapping the embedding provider.
type Classifier struct {
	provider  embedding.Provider
	labels    []string
	threshold float32
	max       int
	logger    *slog.Logger

	mu   sync.Mutex
	vecs [][]float32
}

// Option adjusts a Classifier.
type Option func(*Classifier)

// WithThreshold overrides the acceptance threshold.
func WithThreshold(v float32) Option {
	return func(c *Classifier) { c.threshold = v }
}

// WithMaxSuggestions overrides the suggestion cap.
func WithMaxSuggestions(n int) Option {
	return func(c *Classifier) { c.max = n }
}

// WithLabels replaces the default taxonomy.
func WithLabels(labels []string) Option {
	return func(c *Classifier) { c.labels = labels }
}

// NewClassifier creates a Classifier over the default taxonomy. provider
// may be nil, in which case Suggest always returns no labels.
func NewClassifier(provider embedding.Provider, opts ...Option) *Classifier {
	c := &Classifier{
		provider:  provider,
		labels:    Taxonomy,
		threshold: DefaultThreshold,
		max:       DefaultMaxSuggestions,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Suggest returns up to the configured number of labels whose taxonomy
// embedding has cosine similarity ≥ threshold with vec, in descending
// similarity order. Returns nil — never an error — when no provider is
// available or the taxonomy could not be embedded.
func (c *Classifier) Suggest(ctx context.Context, vec []float32) []string {
	vecs := c.taxonomyVectors(ctx)
	if vecs == nil || len(vec) == 0 {
		return nil
	}

	type scored struct {
		label string
		score float32
	}
	var candidates []scored
	qNorm := vector.Norm(vec)
	for i, tv := range vecs {
		if len(tv) != len(vec) {
			return nil
		}
		if s := vector.Cosine(vec, tv, qNorm); s >= c.threshold {
			candidates = append(candidates, scored{label: c.labels[i], score: s})
		}
	}

	sort.SliceStable(candidates, func(a, b int) bool {
		return candidates[a].score > candidates[b].score
	})
	if len(candidates) > c.max {
		candidates = candidates[:c.max]
	}

	labels := make([]string, len(candidates))
	for i, s := range candidates {
		labels[i] = s.label
	}
	return labels
}

// Reset discards the cached taxonomy embeddings and swaps the provider.
func (c *Classifier) Reset(provider embedding.Provider) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.provider = provider
	c.vecs = nil
}

// taxonomyVectors embeds the taxonomy on first use and caches the result.
func (c *Classifier) taxonomyVectors(ctx context.Context) [][]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.vecs != nil {
		return c.vecs
	}
	if c.provider == nil {
		return nil
	}
	vecs, err := c.provider.Embed(ctx, c.labels)
	if err != nil {
		c.logger.Warn("embedding topic taxonomy failed, skipping suggestions", "error", err)
		return nil
	}
	if len(vecs) != len(c.labels) {
		return nil
	}
	c.vecs = vecs
	return c.vecs
}
