package embedding

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/hexcarb/labnotes/internal/ollama"
)

// ollamaBatchSize is the number of texts sent per /api/embed request.
// Large ingestion batches are split and embedded concurrently.
const ollamaBatchSize = 32

// OllamaProvider serves embeddings from a local Ollama instance.
type OllamaProvider struct {
	client *ollama.Client
	model  string
}

// NewOllamaProvider probes the Ollama server and verifies the embedding
// model is present. Returns ErrUnavailable (wrapped) when either check fails.
func NewOllamaProvider(ctx context.Context, baseURL, model string) (*OllamaProvider, error) {
	client := ollama.New(baseURL)
	if !client.IsRunning(ctx) {
		return nil, fmt.Errorf("%w: ollama not reachable at %s", ErrUnavailable, baseURL)
	}
	if !client.HasModel(ctx, model) {
		return nil, fmt.Errorf("%w: model %q not installed", ErrUnavailable, model)
	}
	return &OllamaProvider{client: client, model: model}, nil
}

// Model returns the backend-qualified model identity.
func (p *OllamaProvider) Model() string {
	return "ollama/" + p.model
}

// Embed returns one vector per text, in input order. Batches larger than
// ollamaBatchSize are split and requested concurrently, bounded to avoid
// overwhelming the local engine.
func (p *OllamaProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if len(texts) <= ollamaBatchSize {
		return p.client.Embed(ctx, p.model, texts)
	}

	results := make([][]float32, len(texts))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(4)

	for start := 0; start < len(texts); start += ollamaBatchSize {
		start := start
		end := min(start+ollamaBatchSize, len(texts))
		g.Go(func() error {
			vecs, err := p.client.Embed(gCtx, p.model, texts[start:end])
			if err != nil {
				return fmt.Errorf("embedding batch at %d: %w", start, err)
			}
			copy(results[start:end], vecs)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
