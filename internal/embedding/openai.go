package embedding

import (
	"context"
	"fmt"
	"os"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIProvider serves embeddings from the OpenAI API. Used when no local
// model is installed but an API key is configured.
type OpenAIProvider struct {
	client *openai.Client
	model  string
}

// NewOpenAIProvider creates a provider using OPENAI_API_KEY from the
// environment. Returns ErrUnavailable (wrapped) when the key is missing.
func NewOpenAIProvider(model string) (*OpenAIProvider, error) {
	key := os.Getenv("OPENAI_API_KEY")
	if key == "" {
		return nil, fmt.Errorf("%w: OPENAI_API_KEY not set", ErrUnavailable)
	}
	if model == "" {
		model = string(openai.SmallEmbedding3)
	}
	return &OpenAIProvider{client: openai.NewClient(key), model: model}, nil
}

// Model returns the backend-qualified model identity.
func (p *OpenAIProvider) Model() string {
	return "openai/" + p.model
}

// Embed returns one vector per text, in input order, via a single batched
// API call.
func (p *OpenAIProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	resp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(p.model),
		Input: texts,
	})
	if err != nil {
		return nil, fmt.Errorf("openai embeddings: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("openai embeddings: got %d vectors for %d inputs", len(resp.Data), len(texts))
	}

	vecs := make([][]float32, len(texts))
	for _, d := range resp.Data {
		src := d.Embedding
		v := make([]float32, len(src))
		for i := range src {
			v[i] = float32(src[i])
		}
		vecs[d.Index] = v
	}
	return vecs, nil
}
