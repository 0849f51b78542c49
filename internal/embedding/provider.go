// Package embedding defines the text-embedding capability and its backend
// adapters. The engine treats the provider as a black box: ordered texts in,
// ordered fixed-dimension vectors out. Everything downstream must keep
// working when no provider is available.
package embedding

import (
	"context"
	"errors"
	"fmt"

	"github.com/hexcarb/labnotes/internal/config"
)

// ErrUnavailable indicates that no embedding backend could be initialized.
// Callers degrade to keyword search or skip topic suggestion; they never
// surface this as a hard failure for record creation.
var ErrUnavailable = errors.New("embedding provider unavailable")

// Provider turns texts into fixed-dimension vectors. Implementations must
// return exactly one vector per input, in input order, all of equal length.
// Model identifies the backend and model so persisted stores can reject
// vectors from a different model.
type Provider interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Model() string
}

// Detect builds a Provider from config, probing backend availability.
// Returns ErrUnavailable (wrapped) when the configured backend cannot serve
// embeddings; the caller decides whether to degrade or fail.
func Detect(ctx context.Context, cfg config.EmbeddingConfig) (Provider, error) {
	switch cfg.Backend {
	case "ollama", "":
		p, err := NewOllamaProvider(ctx, cfg.BaseURL, cfg.Model)
		if err != nil {
			return nil, err
		}
		return p, nil
	case "openai":
		p, err := NewOpenAIProvider(cfg.OpenAIModel)
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown embedding backend %q", cfg.Backend)
	}
}
