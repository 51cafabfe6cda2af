package tools

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rossmck94/starting-ragchatbot-codebase/services/rag/datatypes"
	"github.com/rossmck94/starting-ragchatbot-codebase/services/rag/search"
	"github.com/rossmck94/starting-ragchatbot-codebase/services/rag/vectorstore"
)

type stubEmbedder struct {
	vectors map[string][]float32
}

func (s *stubEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	v, ok := s.vectors[text]
	if !ok {
		return nil, fmt.Errorf("no stub vector for %q", text)
	}
	return v, nil
}

func newSearchTool(t *testing.T) *CourseSearchTool {
	t.Helper()

	embedder := &stubEmbedder{vectors: map[string][]float32{
		"Testing 101 Alice":      {1, 0, 0},
		"testng":                 {0.9, 0.1, 0},
		"Quantum Basket Weaving": {-1, 0, 0},
		"Course Testing 101 Lesson 0 content: Bugs are fixed.": {0, 1, 0},
		"bugs": {0, 1, 0},
	}}
	store := search.NewCourseStore(vectorstore.NewMemoryIndex(), vectorstore.NewMemoryIndex(),
		embedder, 5, 0.5)

	zero := 0
	course := &datatypes.Course{Title: "Testing 101", Instructor: "Alice",
		Lessons: []datatypes.Lesson{{Number: 0, Title: "Basics"}}}
	chunks := []datatypes.CourseChunk{{
		Text:         "Course Testing 101 Lesson 0 content: Bugs are fixed.",
		CourseTitle:  "Testing 101",
		LessonNumber: &zero,
	}}
	require.NoError(t, store.UpsertCourse(context.Background(), course, chunks))

	return NewCourseSearchTool(search.NewRetriever(store))
}

func TestCourseSearchToolFormatsResultsAndRecordsSources(t *testing.T) {
	tool := newSearchTool(t)
	tracker := NewSourceTracker()

	out, err := tool.Execute(context.Background(),
		map[string]interface{}{"query": "bugs", "course_name": "testng"}, tracker)
	require.NoError(t, err)

	assert.Contains(t, out, "[Testing 101 - Lesson 0]")
	assert.Contains(t, out, "Bugs are fixed.")

	refs := tracker.GetAndClearLastSources()
	require.Len(t, refs, 1)
	assert.Equal(t, "Testing 101", refs[0].CourseTitle)
	require.NotNil(t, refs[0].LessonNumber)
	assert.Equal(t, 0, *refs[0].LessonNumber)
}

func TestCourseSearchToolUnknownCourseIsTextNotError(t *testing.T) {
	tool := newSearchTool(t)
	tracker := NewSourceTracker()

	out, err := tool.Execute(context.Background(),
		map[string]interface{}{"query": "bugs", "course_name": "Quantum Basket Weaving"}, tracker)
	require.NoError(t, err)
	assert.Equal(t, "No course found matching 'Quantum Basket Weaving'.", out)
	assert.Nil(t, tracker.GetAndClearLastSources())
}

func TestCourseSearchToolEmptyResults(t *testing.T) {
	tool := newSearchTool(t)
	tracker := NewSourceTracker()

	// Lesson 5 exists in no chunk; JSON numbers arrive as float64.
	out, err := tool.Execute(context.Background(),
		map[string]interface{}{"query": "bugs", "course_name": "testng", "lesson_number": float64(5)}, tracker)
	require.NoError(t, err)
	assert.Contains(t, out, "No relevant content found")
	assert.Contains(t, out, "in course 'testng'")
	assert.Contains(t, out, "in lesson 5")
}

func TestCourseSearchToolRequiresQuery(t *testing.T) {
	tool := newSearchTool(t)
	_, err := tool.Execute(context.Background(), map[string]interface{}{}, NewSourceTracker())
	require.Error(t, err)
}

func TestCourseSearchToolDefinition(t *testing.T) {
	tool := newSearchTool(t)
	def := tool.Definition()
	assert.Equal(t, CourseSearchToolName, def.Name)

	props, ok := def.InputSchema["properties"].(map[string]interface{})
	require.True(t, ok)
	for _, key := range []string{"query", "course_name", "lesson_number"} {
		assert.Contains(t, props, key)
	}
	assert.Equal(t, []string{"query"}, def.InputSchema["required"])
}
