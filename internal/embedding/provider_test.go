package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hexcarb/labnotes/internal/config"
)

// fakeOllama serves /api/tags and /api/embed, returning a vector whose first
// component encodes the request order so tests can verify ordering.
func fakeOllama(t *testing.T, model string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/tags":
			fmt.Fprintf(w, `{"models":[{"name":"%s:latest"}]}`, model)
		case "/api/embed":
			var req struct {
				Input []string `json:"input"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Fatalf("decoding embed request: %v", err)
			}
			out := make([][]float32, len(req.Input))
			for i, text := range req.Input {
				out[i] = []float32{float32(len(text)), 1, 2}
			}
			json.NewEncoder(w).Encode(map[string]any{"embeddings": out})
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestNewOllamaProvider_ModelMissing(t *testing.T) {
	srv := fakeOllama(t, "other-model")
	defer srv.Close()

	_, err := NewOllamaProvider(context.Background(), srv.URL, "nomic-embed-text")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
}

func TestNewOllamaProvider_ServerDown(t *testing.T) {
	srv := fakeOllama(t, "nomic-embed-text")
	srv.Close()

	_, err := NewOllamaProvider(context.Background(), srv.URL, "nomic-embed-text")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
}

func TestOllamaProvider_EmbedOrder(t *testing.T) {
	srv := fakeOllama(t, "nomic-embed-text")
	defer srv.Close()

	p, err := NewOllamaProvider(context.Background(), srv.URL, "nomic-embed-text")
	if err != nil {
		t.Fatalf("NewOllamaProvider: %v", err)
	}

	// More texts than one batch so the concurrent split path runs.
	texts := make([]string, 100)
	for i := range texts {
		texts[i] = fmt.Sprintf("%0*d", i+1, 0) // length i+1
	}
	vecs, err := p.Embed(context.Background(), texts)
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vecs) != len(texts) {
		t.Fatalf("got %d vectors, want %d", len(vecs), len(texts))
	}
	for i, v := range vecs {
		if int(v[0]) != len(texts[i]) {
			t.Fatalf("vector %d out of order: marker %v, want %d", i, v[0], len(texts[i]))
		}
	}
}

func TestOllamaProvider_Model(t *testing.T) {
	srv := fakeOllama(t, "nomic-embed-text")
	defer srv.Close()

	p, err := NewOllamaProvider(context.Background(), srv.URL, "nomic-embed-text")
	if err != nil {
		t.Fatalf("NewOllamaProvider: %v", err)
	}
	if got := p.Model(); got != "ollama/nomic-embed-text" {
		t.Errorf("Model() = %q", got)
	}
}

func TestNewOpenAIProvider_NoKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	_, err := NewOpenAIProvider("")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
}

func TestDetect_UnknownBackend(t *testing.T) {
	_, err := Detect(context.Background(), config.EmbeddingConfig{Backend: "cohere"})
	if err == nil {
		t.Fatal("expected error for unknown backend")
	}
}
