package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/rossmck94/starting-ragchatbot-codebase/services/llm"
	"github.com/rossmck94/starting-ragchatbot-codebase/services/rag/datatypes"
	"github.com/rossmck94/starting-ragchatbot-codebase/services/rag/search"
)

// CourseSearchToolName is the name the reasoning service uses to invoke
// course content search.
const CourseSearchToolName = "search_course_content"

// CourseSearchTool wraps the retrieval service as an invocable tool. It
// formats ranked results into labelled text blocks for the reasoning
// service and records their provenance in the per-query tracker.
type CourseSearchTool struct {
	retriever *search.Retriever
}

// NewCourseSearchTool creates the tool over the given retriever.
func NewCourseSearchTool(retriever *search.Retriever) *CourseSearchTool {
	return &CourseSearchTool{retriever: retriever}
}

// Name implements the Tool interface.
func (t *CourseSearchTool) Name() string { return CourseSearchToolName }

// Definition implements the Tool interface.
func (t *CourseSearchTool) Definition() llm.ToolDefinition {
	return llm.ToolDefinition{
		Name:        CourseSearchToolName,
		Description: "Search course materials with smart course name matching and optional lesson filtering",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "What to search for in the course content",
				},
				"course_name": map[string]interface{}{
					"type":        "string",
					"description": "Course title (partial matches work, e.g. 'MCP', 'Introduction')",
				},
				"lesson_number": map[string]interface{}{
					"type":        "integer",
					"description": "Specific lesson number to search within (e.g. 1, 2, 3)",
				},
			},
			"required": []string{"query"},
		},
	}
}

// Execute implements the Tool interface. A course reference that
// resolves to nothing is reported back to the reasoning service as text,
// not as an execution failure; infrastructure errors propagate as
// errors and are fatal for the query.
func (t *CourseSearchTool) Execute(ctx context.Context, args map[string]interface{}, tracker *SourceTracker) (string, error) {
	query, ok := args["query"].(string)
	if !ok || query == "" {
		return "", fmt.Errorf("tool %s requires a 'query' string argument", CourseSearchToolName)
	}
	courseName, _ := args["course_name"].(string)
	var lessonNumber *int
	if raw, ok := args["lesson_number"]; ok {
		switch n := raw.(type) {
		case float64:
			v := int(n)
			lessonNumber = &v
		case int:
			v := n
			lessonNumber = &v
		}
	}

	results, err := t.retriever.Retrieve(ctx, query, courseName, lessonNumber)
	if err != nil {
		if search.IsCourseNotFound(err) {
			tracker.Record(nil)
			return fmt.Sprintf("No course found matching '%s'.", courseName), nil
		}
		return "", err
	}

	if len(results) == 0 {
		tracker.Record(nil)
		return t.emptyMessage(courseName, lessonNumber), nil
	}

	blocks := make([]string, 0, len(results))
	refs := make([]datatypes.SourceRef, 0, len(results))
	for _, result := range results {
		ref := datatypes.SourceRef{
			CourseTitle:  result.CourseTitle,
			LessonNumber: result.LessonNumber,
		}
		refs = append(refs, ref)
		blocks = append(blocks, fmt.Sprintf("[%s]\n%s", ref.Label(), result.Text))
	}
	tracker.Record(refs)
	return strings.Join(blocks, "\n\n"), nil
}

// emptyMessage describes an empty result set, naming whatever filters
// were in effect.
func (t *CourseSearchTool) emptyMessage(courseName string, lessonNumber *int) string {
	msg := "No relevant content found"
	if courseName != "" {
		msg += fmt.Sprintf(" in course '%s'", courseName)
	}
	if lessonNumber != nil {
		msg += fmt.Sprintf(" in lesson %d", *lessonNumber)
	}
	return msg + "."
}
