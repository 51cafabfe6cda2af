// Package tools exposes retrieval capabilities to the reasoning service
// as declared, invocable tools, and tracks the provenance of the most
// recent invocation so answers can cite their sources.
package tools

import (
	"context"
	"fmt"
	"sync"

	"github.com/rossmck94/starting-ragchatbot-codebase/services/llm"
	"github.com/rossmck94/starting-ragchatbot-codebase/services/rag/datatypes"
)

// Tool is one invocable capability: it declares its parameter schema and
// executes with reasoning-service-supplied arguments, producing a textual
// result. Provenance of any retrieval performed goes into the tracker.
type Tool interface {
	Name() string
	Definition() llm.ToolDefinition
	Execute(ctx context.Context, args map[string]interface{}, tracker *SourceTracker) (string, error)
}

// UnknownToolError reports a request for a tool name that is not
// registered. Fatal for the query that produced it.
type UnknownToolError struct {
	Name string
}

// Error implements the error interface for UnknownToolError.
func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("unknown tool requested: %q", e.Name)
}

// IsUnknownTool checks if an error is an *UnknownToolError.
func IsUnknownTool(err error) bool {
	_, ok := err.(*UnknownToolError)
	return ok
}

// SourceTracker records the provenance of the most recent tool execution.
// One tracker is created per in-flight query and threaded through the
// call chain; it is never shared across concurrent queries, so one
// query's citations cannot leak into another's response.
type SourceTracker struct {
	mu   sync.Mutex
	last []datatypes.SourceRef
}

// NewSourceTracker creates an empty tracker.
func NewSourceTracker() *SourceTracker {
	return &SourceTracker{}
}

// Record replaces the tracked provenance with the given refs.
func (t *SourceTracker) Record(refs []datatypes.SourceRef) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.last = refs
}

// GetAndClearLastSources returns the tracked provenance and resets the
// tracker. The single hand-off point between a tool execution and the
// caller reporting citations; a second call before another execution
// returns nil.
func (t *SourceTracker) GetAndClearLastSources() []datatypes.SourceRef {
	t.mu.Lock()
	defer t.mu.Unlock()
	refs := t.last
	t.last = nil
	return refs
}

// Registry maps tool names to tools.
type Registry struct {
	tools map[string]Tool
	order []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool. Duplicate names are a wiring bug and rejected.
func (r *Registry) Register(t Tool) error {
	name := t.Name()
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool %q already registered", name)
	}
	r.tools[name] = t
	r.order = append(r.order, name)
	return nil
}

// Definitions returns the declared schemas of all registered tools in
// registration order, for inclusion in a reasoning-service request.
func (r *Registry) Definitions() []llm.ToolDefinition {
	defs := make([]llm.ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.tools[name].Definition())
	}
	return defs
}

// Execute looks up and runs the named tool. An unregistered name returns
// UnknownToolError.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]interface{}, tracker *SourceTracker) (string, error) {
	tool, ok := r.tools[name]
	if !ok {
		return "", &UnknownToolError{Name: name}
	}
	return tool.Execute(ctx, args, tracker)
}
