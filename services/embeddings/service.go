package embeddings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ServiceProvider embeds text through a plain REST embedding service
// exposing POST <url> with body {"text": ...} and response
// {"vector": [...], "dim": N}.
type ServiceProvider struct {
	httpClient *http.Client
	url        string
}

type serviceRequest struct {
	Text string `json:"text"`
}

type serviceResponse struct {
	Vector []float32 `json:"vector"`
	Dim    int       `json:"dim"`
}

// NewServiceProvider creates a provider for a REST embedding service.
func NewServiceProvider(url string) *ServiceProvider {
	return &ServiceProvider{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		url:        url,
	}
}

// Embed posts the text to the embedding service and returns its vector.
func (p *ServiceProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(serviceRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal embedding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding service request failed: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read embedding response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedding service returned status %d: %s", resp.StatusCode, string(respBytes))
	}

	var parsed serviceResponse
	if err := json.Unmarshal(respBytes, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse embedding response: %w", err)
	}
	if len(parsed.Vector) == 0 {
		return nil, fmt.Errorf("embedding service returned an empty vector")
	}
	return parsed.Vector, nil
}
