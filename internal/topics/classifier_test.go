package topics

import (
	"context"
	"errors"
	"testing"
)

// stubProvider returns canned unit-axis vectors per label text.
type stubProvider struct {
	vectors map[string][]float32
	err     error
	calls   int
}

func (p *stubProvider) Embed(_ context.Context, texts []string) ([][]float32, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, ok := p.vectors[t]
		if !ok {
			v = []float32{0, 0, 0, 1}
		}
		out[i] = v
	}
	return out, nil
}

func (p *stubProvider) Model() string { return "stub/test" }

func axisProvider() *stubProvider {
	return &stubProvider{vectors: map[string][]float32{
		"Dispersion & processing": {1, 0, 0, 0},
		"Thermal stability":       {0, 1, 0, 0},
		"Sensor performance":      {0, 0, 1, 0},
	}}
}

func TestSuggest_RankedAboveThreshold(t *testing.T) {
	c := NewClassifier(axisProvider())

	// Closest to dispersion, some thermal component, no sensor component.
	got := c.Suggest(context.Background(), []float32{0.9, 0.5, 0, 0})
	if len(got) != 2 {
		t.Fatalf("got %v, want 2 labels", got)
	}
	if got[0] != "Dispersion & processing" || got[1] != "Thermal stability" {
		t.Errorf("labels = %v", got)
	}
}

func TestSuggest_CapsAtMax(t *testing.T) {
	c := NewClassifier(axisProvider(), WithThreshold(0.1), WithMaxSuggestions(2))
	got := c.Suggest(context.Background(), []float32{1, 0.9, 0.8, 0})
	if len(got) != 2 {
		t.Fatalf("got %d labels, want 2", len(got))
	}
}

func TestSuggest_NoProvider(t *testing.T) {
	c := NewClassifier(nil)
	if got := c.Suggest(context.Background(), []float32{1, 0, 0, 0}); got != nil {
		t.Errorf("got %v, want nil", got)
	}
}

func TestSuggest_ProviderError(t *testing.T) {
	c := NewClassifier(&stubProvider{err: errors.New("model gone")})
	if got := c.Suggest(context.Background(), []float32{1, 0, 0, 0}); got != nil {
		t.Errorf("got %v, want nil", got)
	}
}

func TestSuggest_BelowThreshold(t *testing.T) {
	c := NewClassifier(axisProvider())
	// Anti-aligned with every taxonomy axis: cosine -0.5 throughout.
	got := c.Suggest(context.Background(), []float32{-0.2, -0.2, -0.2, -0.2})
	for _, l := range got {
		t.Errorf("unexpected suggestion %q for weak similarity", l)
	}
}

func TestTaxonomyEmbeddedOnce(t *testing.T) {
	p := axisProvider()
	c := NewClassifier(p)
	c.Suggest(context.Background(), []float32{1, 0, 0, 0})
	c.Suggest(context.Background(), []float32{0, 1, 0, 0})
	if p.calls != 1 {
		t.Errorf("taxonomy embedded %d times, want 1", p.calls)
	}

	c.Reset(p)
	c.Suggest(context.Background(), []float32{1, 0, 0, 0})
	if p.calls != 2 {
		t.Errorf("taxonomy not recomputed after Reset: %d calls", p.calls)
	}
}
