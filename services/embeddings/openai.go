package embeddings

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// embedTimeout bounds every embedding call; the library's default HTTP
// client has no timeout of its own.
var embedTimeout = 30 * time.Second

// OpenAIProvider embeds text through an OpenAI-compatible embeddings API.
// A custom base URL points it at local servers (Ollama, llama.cpp, TEI)
// that speak the same protocol.
type OpenAIProvider struct {
	client *openai.Client
	model  string
}

// NewOpenAIProvider creates a provider for the given model. baseURL is
// optional; empty means the public OpenAI endpoint.
func NewOpenAIProvider(apiKey, model, baseURL string) (*OpenAIProvider, error) {
	if apiKey == "" && baseURL == "" {
		return nil, fmt.Errorf("embedding API key is required for the default endpoint")
	}
	cfg := openai.DefaultConfig(apiKey)
	cfg.HTTPClient = &http.Client{Timeout: embedTimeout}
	if baseURL != "" {
		cfg.BaseURL = baseURL
		slog.Info("Using custom embedding endpoint", "baseURL", baseURL, "model", model)
	}
	return &OpenAIProvider{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}, nil
}

// Embed computes the embedding vector for text.
func (p *OpenAIProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(p.model),
	})
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("embedding service returned no vectors")
	}
	return resp.Data[0].Embedding, nil
}
