package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	anthropicAPIVersion = "2023-06-01"
	anthropicBaseURL    = "https://api.anthropic.com/v1/messages"

	defaultMaxTokens = 4096
)

type anthropicRequest struct {
	Model     string             `json:"model"`
	Messages  []anthropicMessage `json:"messages"`
	System    string             `json:"system,omitempty"`
	MaxTokens int                `json:"max_tokens"`
	Tools     []ToolDefinition   `json:"tools,omitempty"`

	Temperature *float32 `json:"temperature,omitempty"`
}

type anthropicMessage struct {
	Role    string           `json:"role"`
	Content []anthropicBlock `json:"content"`
}

// anthropicBlock is the wire form of a content block in both directions.
type anthropicBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`

	// tool_use (assistant -> us)
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`

	// tool_result (us -> assistant)
	ToolUseID string `json:"tool_use_id,omitempty"`
	Content   string `json:"content,omitempty"`
	IsError   bool   `json:"is_error,omitempty"`
}

type anthropicResponse struct {
	ID         string           `json:"id"`
	Role       string           `json:"role"`
	Content    []anthropicBlock `json:"content"`
	StopReason string           `json:"stop_reason"`
	Error      *anthropicError  `json:"error,omitempty"`
}

type anthropicError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// AnthropicClient speaks the Anthropic Messages REST API directly,
// including tool declarations and tool_use/tool_result content blocks.
type AnthropicClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
}

// NewAnthropicClient creates a client for the given model.
func NewAnthropicClient(apiKey, model string) (*AnthropicClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic API key is missing")
	}
	if model == "" {
		model = "claude-sonnet-4-20250514"
		slog.Info("Anthropic model not set, defaulting to", "model", model)
	}
	return &AnthropicClient{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		baseURL:    anthropicBaseURL,
		apiKey:     apiKey,
		model:      model,
	}, nil
}

// Complete implements the ToolCallingClient interface.
func (a *AnthropicClient) Complete(ctx context.Context, req *Request) (*Completion, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	payload := anthropicRequest{
		Model:       a.model,
		System:      req.System,
		MaxTokens:   maxTokens,
		Tools:       req.Tools,
		Temperature: req.Temperature,
	}
	for _, msg := range req.Messages {
		wire, err := toAnthropicMessage(msg)
		if err != nil {
			return nil, err
		}
		payload.Messages = append(payload.Messages, wire)
	}

	reqBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL, bytes.NewBuffer(reqBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("x-api-key", a.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicAPIVersion)
	httpReq.Header.Set("content-type", "application/json")

	slog.Debug("Sending request to Anthropic", "model", a.model, "tools", len(req.Tools))

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Backend: "anthropic", StatusCode: resp.StatusCode, Message: string(bodyBytes)}
	}

	var apiResp anthropicResponse
	if err := json.Unmarshal(bodyBytes, &apiResp); err != nil {
		return nil, fmt.Errorf("failed to parse response JSON: %w", err)
	}
	if apiResp.Error != nil {
		return nil, fmt.Errorf("anthropic API error: %s - %s", apiResp.Error.Type, apiResp.Error.Message)
	}
	if len(apiResp.Content) == 0 {
		return nil, fmt.Errorf("received empty content from Anthropic")
	}

	completion := &Completion{StopReason: apiResp.StopReason}
	var text strings.Builder
	for _, block := range apiResp.Content {
		switch block.Type {
		case BlockText:
			text.WriteString(block.Text)
		case BlockToolUse:
			input := map[string]interface{}{}
			if len(block.Input) > 0 {
				if err := json.Unmarshal(block.Input, &input); err != nil {
					return nil, fmt.Errorf("failed to parse tool input for %q: %w", block.Name, err)
				}
			}
			completion.ToolUses = append(completion.ToolUses, ToolUse{
				ID:    block.ID,
				Name:  block.Name,
				Input: input,
			})
		}
	}
	completion.Text = text.String()
	return completion, nil
}

// toAnthropicMessage converts a generic message into wire form.
func toAnthropicMessage(msg Message) (anthropicMessage, error) {
	wire := anthropicMessage{Role: msg.Role}
	for _, block := range msg.Content {
		switch block.Type {
		case BlockText:
			wire.Content = append(wire.Content, anthropicBlock{Type: BlockText, Text: block.Text})
		case BlockToolUse:
			if block.ToolUse == nil {
				return anthropicMessage{}, fmt.Errorf("tool_use block without tool use data")
			}
			input, err := json.Marshal(block.ToolUse.Input)
			if err != nil {
				return anthropicMessage{}, fmt.Errorf("failed to marshal tool input: %w", err)
			}
			wire.Content = append(wire.Content, anthropicBlock{
				Type:  BlockToolUse,
				ID:    block.ToolUse.ID,
				Name:  block.ToolUse.Name,
				Input: input,
			})
		case BlockToolResult:
			wire.Content = append(wire.Content, anthropicBlock{
				Type:      BlockToolResult,
				ToolUseID: block.ToolUseID,
				Content:   block.Content,
				IsError:   block.IsError,
			})
		default:
			return anthropicMessage{}, fmt.Errorf("unknown content block type %q", block.Type)
		}
	}
	return wire, nil
}
