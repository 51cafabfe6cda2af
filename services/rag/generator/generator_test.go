package generator

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rossmck94/starting-ragchatbot-codebase/services/llm"
	"github.com/rossmck94/starting-ragchatbot-codebase/services/rag/datatypes"
	"github.com/rossmck94/starting-ragchatbot-codebase/services/rag/tools"
)

// scriptedClient replays canned completions and captures every request.
type scriptedClient struct {
	replies  []*llm.Completion
	requests []*llm.Request
	err      error
}

func (s *scriptedClient) Complete(_ context.Context, req *llm.Request) (*llm.Completion, error) {
	s.requests = append(s.requests, req)
	if s.err != nil {
		return nil, s.err
	}
	if len(s.requests) > len(s.replies) {
		return nil, fmt.Errorf("unexpected extra call %d", len(s.requests))
	}
	return s.replies[len(s.requests)-1], nil
}

type recordingTool struct {
	name   string
	result string
	err    error
	args   map[string]interface{}
}

func (r *recordingTool) Name() string { return r.name }

func (r *recordingTool) Definition() llm.ToolDefinition {
	return llm.ToolDefinition{Name: r.name, InputSchema: map[string]interface{}{"type": "object"}}
}

func (r *recordingTool) Execute(_ context.Context, args map[string]interface{}, tracker *tools.SourceTracker) (string, error) {
	r.args = args
	if r.err == nil {
		tracker.Record([]datatypes.SourceRef{{CourseTitle: "Testing 101"}})
	}
	return r.result, r.err
}

func newRegistry(t *testing.T, tool tools.Tool) *tools.Registry {
	t.Helper()
	r := tools.NewRegistry()
	require.NoError(t, r.Register(tool))
	return r
}

func TestGenerateDirectAnswerSkipsTools(t *testing.T) {
	client := &scriptedClient{replies: []*llm.Completion{
		{Text: "Paris.", StopReason: "end_turn"},
	}}
	gen := NewGenerator(client, newRegistry(t, &recordingTool{name: "search_course_content"}))

	answer, err := gen.Generate(context.Background(), "Capital of France?", "", tools.NewSourceTracker())
	require.NoError(t, err)
	assert.Equal(t, "Paris.", answer)
	require.Len(t, client.requests, 1)
	assert.NotEmpty(t, client.requests[0].Tools)
}

func TestGenerateTwoPhaseToolCall(t *testing.T) {
	client := &scriptedClient{replies: []*llm.Completion{
		{ToolUses: []llm.ToolUse{{
			ID:    "toolu_1",
			Name:  "search_course_content",
			Input: map[string]interface{}{"query": "bugs"},
		}}, StopReason: "tool_use"},
		{Text: "Bugs are fixed in lesson 0.", StopReason: "end_turn"},
	}}
	tool := &recordingTool{name: "search_course_content", result: "[Testing 101 - Lesson 0]\nBugs are fixed."}
	gen := NewGenerator(client, newRegistry(t, tool))

	tracker := tools.NewSourceTracker()
	answer, err := gen.Generate(context.Background(), "Tell me about bugs", "", tracker)
	require.NoError(t, err)
	assert.Equal(t, "Bugs are fixed in lesson 0.", answer)

	// The tool received the arguments from the first reply.
	assert.Equal(t, map[string]interface{}{"query": "bugs"}, tool.args)

	// The second request carries no tools and threads the result back.
	require.Len(t, client.requests, 2)
	second := client.requests[1]
	assert.Empty(t, second.Tools)
	require.Len(t, second.Messages, 3)
	assert.Equal(t, llm.RoleAssistant, second.Messages[1].Role)
	assert.Equal(t, llm.BlockToolResult, second.Messages[2].Content[0].Type)
	assert.Equal(t, "toolu_1", second.Messages[2].Content[0].ToolUseID)

	refs := tracker.GetAndClearLastSources()
	require.Len(t, refs, 1)
	assert.Equal(t, "Testing 101", refs[0].CourseTitle)
}

func TestGenerateHistoryInUserTurn(t *testing.T) {
	client := &scriptedClient{replies: []*llm.Completion{{Text: "ok"}}}
	gen := NewGenerator(client, newRegistry(t, &recordingTool{name: "search_course_content"}))

	_, err := gen.Generate(context.Background(), "And now?", "User: hi\nAssistant: hello", tools.NewSourceTracker())
	require.NoError(t, err)

	first := client.requests[0]
	text := first.Messages[0].Content[0].Text
	assert.Contains(t, text, "Previous conversation:")
	assert.Contains(t, text, "User: hi")
	assert.Contains(t, text, "Current question: And now?")
	// The system prompt stays free of per-query state.
	assert.Equal(t, DefaultSystemPrompt, first.System)
}

func TestGenerateUnknownToolFailsQuery(t *testing.T) {
	client := &scriptedClient{replies: []*llm.Completion{
		{ToolUses: []llm.ToolUse{{ID: "x", Name: "no_such_tool"}}, StopReason: "tool_use"},
	}}
	gen := NewGenerator(client, newRegistry(t, &recordingTool{name: "search_course_content"}))

	tracker := tools.NewSourceTracker()
	_, err := gen.Generate(context.Background(), "hm", "", tracker)
	require.Error(t, err)
	assert.Nil(t, tracker.GetAndClearLastSources())
}

func TestGenerateToolErrorClearsTracker(t *testing.T) {
	client := &scriptedClient{replies: []*llm.Completion{
		{ToolUses: []llm.ToolUse{{
			ID: "toolu_1", Name: "search_course_content",
			Input: map[string]interface{}{"query": "x"},
		}}},
	}}
	tool := &recordingTool{name: "search_course_content", err: fmt.Errorf("index unavailable")}
	gen := NewGenerator(client, newRegistry(t, tool))

	tracker := tools.NewSourceTracker()
	tracker.Record([]datatypes.SourceRef{{CourseTitle: "stale"}})

	_, err := gen.Generate(context.Background(), "hm", "", tracker)
	require.Error(t, err)
	assert.Nil(t, tracker.GetAndClearLastSources())
}

func TestGenerateReasoningErrorPropagates(t *testing.T) {
	client := &scriptedClient{err: fmt.Errorf("backend down")}
	gen := NewGenerator(client, newRegistry(t, &recordingTool{name: "search_course_content"}))

	_, err := gen.Generate(context.Background(), "hm", "", tools.NewSourceTracker())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backend down")
}
