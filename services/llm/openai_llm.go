package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// openAITimeout bounds every call to the OpenAI API; the library's
// default HTTP client has no timeout of its own.
var openAITimeout = 60 * time.Second

// OpenAIClient implements ToolCallingClient over the OpenAI chat
// completions API, mapping tool_use/tool_result blocks onto function
// tool calls and tool-role messages.
type OpenAIClient struct {
	client *openai.Client
	model  string
}

// NewOpenAIClient creates a client for the given model. baseURL is
// optional; set it to point at a local OpenAI-compatible server
// (Ollama, vLLM, llama.cpp) instead of the public endpoint.
func NewOpenAIClient(apiKey, model, baseURL string) (*OpenAIClient, error) {
	if apiKey == "" && baseURL == "" {
		return nil, fmt.Errorf("OpenAI API key is missing")
	}
	if model == "" {
		model = "gpt-4o-mini"
		slog.Warn("OPENAI_MODEL not set, defaulting to gpt-4o-mini")
	}
	cfg := openai.DefaultConfig(apiKey)
	cfg.HTTPClient = &http.Client{Timeout: openAITimeout}
	if baseURL != "" {
		cfg.BaseURL = baseURL
		slog.Info("Using custom OpenAI-compatible endpoint", "baseURL", baseURL, "model", model)
	}
	return &OpenAIClient{client: openai.NewClientWithConfig(cfg), model: model}, nil
}

// Complete implements the ToolCallingClient interface.
func (o *OpenAIClient) Complete(ctx context.Context, req *Request) (*Completion, error) {
	chatReq := openai.ChatCompletionRequest{Model: o.model}
	if req.Temperature != nil {
		chatReq.Temperature = *req.Temperature
	}
	if req.MaxTokens > 0 {
		chatReq.MaxCompletionTokens = req.MaxTokens
	}

	if req.System != "" {
		chatReq.Messages = append(chatReq.Messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	for _, msg := range req.Messages {
		converted, err := toOpenAIMessages(msg)
		if err != nil {
			return nil, err
		}
		chatReq.Messages = append(chatReq.Messages, converted...)
	}

	for _, tool := range req.Tools {
		chatReq.Tools = append(chatReq.Tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  tool.InputSchema,
			},
		})
	}

	resp, err := o.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return nil, fmt.Errorf("OpenAI API call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("OpenAI returned no choices")
	}

	choice := resp.Choices[0]
	completion := &Completion{
		Text:       choice.Message.Content,
		StopReason: string(choice.FinishReason),
	}
	for _, call := range choice.Message.ToolCalls {
		input := map[string]interface{}{}
		if call.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(call.Function.Arguments), &input); err != nil {
				return nil, fmt.Errorf("failed to parse tool arguments for %q: %w", call.Function.Name, err)
			}
		}
		completion.ToolUses = append(completion.ToolUses, ToolUse{
			ID:    call.ID,
			Name:  call.Function.Name,
			Input: input,
		})
	}
	return completion, nil
}

// toOpenAIMessages converts one generic message into OpenAI chat
// messages. A tool_result block becomes a separate tool-role message, so
// a single generic message can expand into several wire messages.
func toOpenAIMessages(msg Message) ([]openai.ChatCompletionMessage, error) {
	var out []openai.ChatCompletionMessage
	current := openai.ChatCompletionMessage{Role: msg.Role}
	hasContent := false

	flush := func() {
		if hasContent || len(current.ToolCalls) > 0 {
			out = append(out, current)
			current = openai.ChatCompletionMessage{Role: msg.Role}
			hasContent = false
		}
	}

	for _, block := range msg.Content {
		switch block.Type {
		case BlockText:
			current.Content += block.Text
			hasContent = true
		case BlockToolUse:
			if block.ToolUse == nil {
				return nil, fmt.Errorf("tool_use block without tool use data")
			}
			args, err := json.Marshal(block.ToolUse.Input)
			if err != nil {
				return nil, fmt.Errorf("failed to marshal tool arguments: %w", err)
			}
			current.ToolCalls = append(current.ToolCalls, openai.ToolCall{
				ID:   block.ToolUse.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      block.ToolUse.Name,
					Arguments: string(args),
				},
			})
			hasContent = true
		case BlockToolResult:
			flush()
			out = append(out, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    block.Content,
				ToolCallID: block.ToolUseID,
			})
		default:
			return nil, fmt.Errorf("unknown content block type %q", block.Type)
		}
	}
	flush()
	return out, nil
}
