// Package llm provides the reasoning-service capability: clients that take
// a prompt plus optional declared tool schemas and return either free text
// or a structured tool-invocation request. Backends are selected at
// startup; all of them speak the same content-block message model.
package llm

import (
	"context"
	"fmt"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Content block types.
const (
	BlockText       = "text"
	BlockToolUse    = "tool_use"
	BlockToolResult = "tool_result"
)

// ToolDefinition declares one invocable tool to the reasoning service.
// InputSchema is a JSON Schema object describing the parameters.
type ToolDefinition struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"input_schema"`
}

// ToolUse is a structured tool-invocation request emitted by the
// reasoning service.
type ToolUse struct {
	ID    string
	Name  string
	Input map[string]interface{}
}

// ContentBlock is one piece of a message. Exactly one of the variants is
// populated, selected by Type.
type ContentBlock struct {
	Type string

	// BlockText
	Text string

	// BlockToolUse
	ToolUse *ToolUse

	// BlockToolResult
	ToolUseID string
	Content   string
	IsError   bool
}

// Message is one conversation turn, composed of content blocks.
type Message struct {
	Role    string
	Content []ContentBlock
}

// UserText builds a plain-text user message.
func UserText(text string) Message {
	return Message{Role: RoleUser, Content: []ContentBlock{{Type: BlockText, Text: text}}}
}

// ToolResultMessage builds the user turn that carries a tool's textual
// result back to the reasoning service.
func ToolResultMessage(toolUseID, content string, isError bool) Message {
	return Message{Role: RoleUser, Content: []ContentBlock{{
		Type:      BlockToolResult,
		ToolUseID: toolUseID,
		Content:   content,
		IsError:   isError,
	}}}
}

// Request is one call to the reasoning service.
type Request struct {
	System      string
	Messages    []Message
	Tools       []ToolDefinition
	MaxTokens   int
	Temperature *float32
}

// Completion is the reasoning service's reply: the concatenated text
// blocks plus any structured tool-invocation requests.
type Completion struct {
	Text       string
	ToolUses   []ToolUse
	StopReason string
}

// WantsTool reports whether the reply requests a tool invocation.
func (c *Completion) WantsTool() bool {
	return len(c.ToolUses) > 0
}

// ToolCallingClient is the reasoning-service contract. Implementations
// must be safe for concurrent use and must respect ctx cancellation.
type ToolCallingClient interface {
	Complete(ctx context.Context, req *Request) (*Completion, error)
}

// APIError wraps a non-2xx response from a reasoning-service backend.
type APIError struct {
	Backend    string
	StatusCode int
	Message    string
}

// Error implements the error interface for APIError.
func (e *APIError) Error() string {
	return fmt.Sprintf("%s API returned status %d: %s", e.Backend, e.StatusCode, e.Message)
}

// IsAPIError checks if an error is an *APIError.
func IsAPIError(err error) bool {
	_, ok := err.(*APIError)
	return ok
}
