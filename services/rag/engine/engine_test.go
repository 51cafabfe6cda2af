package engine

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rossmck94/starting-ragchatbot-codebase/services/llm"
	"github.com/rossmck94/starting-ragchatbot-codebase/services/rag/datatypes"
	"github.com/rossmck94/starting-ragchatbot-codebase/services/rag/generator"
	"github.com/rossmck94/starting-ragchatbot-codebase/services/rag/search"
	"github.com/rossmck94/starting-ragchatbot-codebase/services/rag/session"
	"github.com/rossmck94/starting-ragchatbot-codebase/services/rag/tools"
	"github.com/rossmck94/starting-ragchatbot-codebase/services/rag/vectorstore"
)

type stubEmbedder struct{}

func (stubEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}

type cannedClient struct {
	replies  []*llm.Completion
	requests []*llm.Request
	calls    int
	err      error
}

func (c *cannedClient) Complete(_ context.Context, req *llm.Request) (*llm.Completion, error) {
	c.requests = append(c.requests, req)
	if c.err != nil {
		return nil, c.err
	}
	reply := c.replies[c.calls%len(c.replies)]
	c.calls++
	return reply, nil
}

func newEngine(t *testing.T, client llm.ToolCallingClient) *Engine {
	t.Helper()

	store := search.NewCourseStore(vectorstore.NewMemoryIndex(), vectorstore.NewMemoryIndex(),
		stubEmbedder{}, 5, 0.5)
	zero := 0
	course := &datatypes.Course{Title: "Testing 101",
		Lessons: []datatypes.Lesson{{Number: 0, Title: "Basics"}}}
	chunks := []datatypes.CourseChunk{{
		Text: "Course Testing 101 Lesson 0 content: Bugs are fixed.",
		CourseTitle: "Testing 101", LessonNumber: &zero,
	}}
	require.NoError(t, store.UpsertCourse(context.Background(), course, chunks))

	registry := tools.NewRegistry()
	require.NoError(t, registry.Register(tools.NewCourseSearchTool(search.NewRetriever(store))))

	gen := generator.NewGenerator(client, registry)
	return NewEngine(store, gen, session.NewManager(2))
}

func TestQueryWithToolReturnsAnswerAndSources(t *testing.T) {
	client := &cannedClient{replies: []*llm.Completion{
		{ToolUses: []llm.ToolUse{{
			ID: "toolu_1", Name: "search_course_content",
			Input: map[string]interface{}{"query": "bugs"},
		}}, StopReason: "tool_use"},
		{Text: "Bugs are fixed in lesson 0.", StopReason: "end_turn"},
	}}
	eng := newEngine(t, client)

	id := eng.CreateSession()
	answer, sources, err := eng.Query(context.Background(), id, "Tell me about bugs")
	require.NoError(t, err)
	assert.Equal(t, "Bugs are fixed in lesson 0.", answer)
	require.Len(t, sources, 1)
	assert.Equal(t, "Testing 101 - Lesson 0", sources[0].Label())
}

func TestQueryDirectAnswerHasNoSources(t *testing.T) {
	client := &cannedClient{replies: []*llm.Completion{{Text: "Paris.", StopReason: "end_turn"}}}
	eng := newEngine(t, client)

	_, sources, err := eng.Query(context.Background(), eng.CreateSession(), "Capital of France?")
	require.NoError(t, err)
	assert.Empty(t, sources)
}

func TestQuerySourcesDoNotLeakAcrossQueries(t *testing.T) {
	client := &cannedClient{replies: []*llm.Completion{
		{ToolUses: []llm.ToolUse{{
			ID: "toolu_1", Name: "search_course_content",
			Input: map[string]interface{}{"query": "bugs"},
		}}, StopReason: "tool_use"},
		{Text: "answer one", StopReason: "end_turn"},
		{Text: "answer two", StopReason: "end_turn"},
	}}
	eng := newEngine(t, client)
	id := eng.CreateSession()

	_, first, err := eng.Query(context.Background(), id, "search something")
	require.NoError(t, err)
	assert.NotEmpty(t, first)

	_, second, err := eng.Query(context.Background(), id, "general question")
	require.NoError(t, err)
	assert.Empty(t, second)
}

func TestQueryFailureLeavesHistoryUntouched(t *testing.T) {
	client := &cannedClient{replies: []*llm.Completion{{Text: "fine", StopReason: "end_turn"}}}
	eng := newEngine(t, client)
	id := eng.CreateSession()

	_, _, err := eng.Query(context.Background(), id, "works")
	require.NoError(t, err)

	client.err = fmt.Errorf("backend down")
	_, _, err = eng.Query(context.Background(), id, "broken question")
	require.Error(t, err)
	client.err = nil

	_, _, err = eng.Query(context.Background(), id, "follow up")
	require.NoError(t, err)

	// The prompt of the last call carries the successful exchange but no
	// trace of the failed one.
	last := client.requests[len(client.requests)-1]
	prompt := last.Messages[0].Content[0].Text
	assert.Contains(t, prompt, "works")
	assert.NotContains(t, prompt, "broken question")
}

func TestCourseAnalytics(t *testing.T) {
	eng := newEngine(t, &cannedClient{replies: []*llm.Completion{{Text: "x"}}})

	stats, err := eng.CourseAnalytics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalCourses)
	assert.Equal(t, []string{"Testing 101"}, stats.CourseTitles)
}
