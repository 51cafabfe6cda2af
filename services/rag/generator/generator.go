// Package generator drives the two-phase tool-calling dialogue with the
// reasoning service: one completion that may request a tool, one tool
// execution, and one follow-up completion without tools. There is no
// recursion; a query costs at most two reasoning-service calls.
package generator

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/rossmck94/starting-ragchatbot-codebase/services/llm"
	"github.com/rossmck94/starting-ragchatbot-codebase/services/rag/observability"
	"github.com/rossmck94/starting-ragchatbot-codebase/services/rag/tools"
)

var tracer = otel.Tracer("ragserver.generator")

// DefaultSystemPrompt instructs the reasoning service on when to search
// and how to answer. It is fixed at construction and never mutated per
// query; conversation history travels in the user turn instead.
const DefaultSystemPrompt = `You are an AI assistant specialized in course materials and educational content, with access to a search tool for course information.

Search Tool Usage:
- Use the search tool only for questions about specific course content or detailed educational materials
- One search per query maximum
- Synthesize search results into accurate, fact-based responses
- If the search yields no results, state this clearly without offering alternatives

Response requirements:
- Answer general knowledge questions directly without searching
- Be brief, concise and focused
- Do not mention the search process or that you searched
- Provide only the direct answer to what was asked`

// Generator produces answers by combining the reasoning service with
// the registered retrieval tools.
//
// # Description
//
// For each query the Generator sends the question (plus any session
// history) to the reasoning service together with the declared tool
// schemas. If the reply requests a tool, the tool is executed exactly
// once and its textual result is fed back in a second call that offers
// no tools, forcing a final answer. Replies with no tool request are
// returned directly.
//
// # Assumptions
//
//   - The tracker passed to Generate is owned by the current query and
//     not shared with any concurrent query.
//   - Tool results are plain text; the reasoning service is responsible
//     for synthesis.
//
// # Limitations
//
//   - Only the first tool request in a reply is honoured; backends are
//     prompted to issue at most one.
type Generator struct {
	client    llm.ToolCallingClient
	registry  *tools.Registry
	system    string
	maxTokens int
}

// Option configures a Generator.
type Option func(*Generator)

// WithSystemPrompt overrides the default system prompt.
func WithSystemPrompt(prompt string) Option {
	return func(g *Generator) { g.system = prompt }
}

// WithMaxTokens sets the per-call completion token limit.
func WithMaxTokens(n int) Option {
	return func(g *Generator) { g.maxTokens = n }
}

// NewGenerator creates a Generator over the reasoning client and tool
// registry.
func NewGenerator(client llm.ToolCallingClient, registry *tools.Registry, opts ...Option) *Generator {
	g := &Generator{
		client:    client,
		registry:  registry,
		system:    DefaultSystemPrompt,
		maxTokens: 800,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate answers one query. history is the formatted prior
// conversation (empty for a fresh session); tracker collects provenance
// from any tool execution so the caller can attach citations.
func (g *Generator) Generate(ctx context.Context, query, history string, tracker *tools.SourceTracker) (string, error) {
	ctx, span := tracer.Start(ctx, "Generator.Generate")
	defer span.End()

	content := query
	if history != "" {
		content = fmt.Sprintf("Previous conversation:\n%s\n\nCurrent question: %s", history, query)
	}

	first := &llm.Request{
		System:    g.system,
		Messages:  []llm.Message{llm.UserText(content)},
		Tools:     g.registry.Definitions(),
		MaxTokens: g.maxTokens,
	}
	reply, err := g.client.Complete(ctx, first)
	if err != nil {
		span.RecordError(err)
		tracker.GetAndClearLastSources()
		return "", fmt.Errorf("reasoning call failed: %w", err)
	}
	span.SetAttributes(attribute.Bool("generate.tool_requested", reply.WantsTool()))

	if !reply.WantsTool() {
		return reply.Text, nil
	}

	use := reply.ToolUses[0]
	slog.Debug("Tool requested", "tool", use.Name, "id", use.ID)
	span.SetAttributes(attribute.String("generate.tool", use.Name))

	result, err := g.registry.Execute(ctx, use.Name, use.Input, tracker)
	if err != nil {
		span.RecordError(err)
		observability.ToolInvocationsTotal.WithLabelValues(use.Name, "error").Inc()
		tracker.GetAndClearLastSources()
		return "", fmt.Errorf("tool execution failed: %w", err)
	}
	observability.ToolInvocationsTotal.WithLabelValues(use.Name, "ok").Inc()

	assistantTurn := llm.Message{
		Role: llm.RoleAssistant,
		Content: []llm.ContentBlock{{
			Type:    llm.BlockToolUse,
			ToolUse: &llm.ToolUse{ID: use.ID, Name: use.Name, Input: use.Input},
		}},
	}
	second := &llm.Request{
		System: g.system,
		Messages: []llm.Message{
			llm.UserText(content),
			assistantTurn,
			llm.ToolResultMessage(use.ID, result, false),
		},
		MaxTokens: g.maxTokens,
	}
	final, err := g.client.Complete(ctx, second)
	if err != nil {
		span.RecordError(err)
		tracker.GetAndClearLastSources()
		return "", fmt.Errorf("follow-up reasoning call failed: %w", err)
	}
	return final.Text, nil
}
