// Package search implements the dual-index retrieval layer: a catalog
// index holding one compact record per course for fuzzy name resolution,
// and a content index holding every course chunk for filtered semantic
// lookup.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/rossmck94/starting-ragchatbot-codebase/services/embeddings"
	"github.com/rossmck94/starting-ragchatbot-codebase/services/rag/datatypes"
	"github.com/rossmck94/starting-ragchatbot-codebase/services/rag/observability"
	"github.com/rossmck94/starting-ragchatbot-codebase/services/rag/vectorstore"
)

var tracer = otel.Tracer("ragserver.search")

// CourseNotFoundError reports that fuzzy course resolution found no
// acceptable catalog match. It is distinct from an empty content result.
type CourseNotFoundError struct {
	Name string
}

// Error implements the error interface for CourseNotFoundError.
func (e *CourseNotFoundError) Error() string {
	return fmt.Sprintf("no course found matching %q", e.Name)
}

// IsCourseNotFound checks if an error is a *CourseNotFoundError.
func IsCourseNotFound(err error) bool {
	_, ok := err.(*CourseNotFoundError)
	return ok
}

// CourseStore composes the catalog and content indexes behind one
// ingestion and query surface. Ingestion runs during startup, before the
// store is exposed to query traffic; queries are read-only.
type CourseStore struct {
	catalog      vectorstore.Index
	content      vectorstore.Index
	embedder     embeddings.Provider
	maxResults   int
	minCertainty float64
}

// NewCourseStore creates a CourseStore over the two indexes.
// minCertainty is the catalog-match cutoff below which a fuzzy course
// reference resolves to nothing.
func NewCourseStore(catalog, content vectorstore.Index, embedder embeddings.Provider, maxResults int, minCertainty float64) *CourseStore {
	if maxResults <= 0 {
		maxResults = 5
	}
	return &CourseStore{
		catalog:      catalog,
		content:      content,
		embedder:     embedder,
		maxResults:   maxResults,
		minCertainty: minCertainty,
	}
}

// UpsertCourse replaces the catalog entry and all chunk entries for the
// course. Idempotent: re-ingesting the same title never accumulates
// duplicates.
func (s *CourseStore) UpsertCourse(ctx context.Context, course *datatypes.Course, chunks []datatypes.CourseChunk) error {
	ctx, span := tracer.Start(ctx, "CourseStore.UpsertCourse")
	defer span.End()
	span.SetAttributes(
		attribute.String("course.title", course.Title),
		attribute.Int("course.chunks", len(chunks)),
	)

	if err := course.Validate(); err != nil {
		return fmt.Errorf("invalid course: %w", err)
	}

	if err := s.catalog.DeleteWhere(ctx, "title", course.Title); err != nil {
		span.RecordError(err)
		return fmt.Errorf("clearing catalog entry: %w", err)
	}
	if err := s.content.DeleteWhere(ctx, "course_title", course.Title); err != nil {
		span.RecordError(err)
		return fmt.Errorf("clearing content entries: %w", err)
	}

	catalogText := course.Title
	if course.Instructor != "" {
		catalogText = course.Title + " " + course.Instructor
	}
	vector, err := s.embedder.Embed(ctx, catalogText)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("embedding catalog entry: %w", err)
	}

	lessonsJSON, err := json.Marshal(course.Lessons)
	if err != nil {
		return fmt.Errorf("encoding lesson list: %w", err)
	}
	catalogObj := vectorstore.Object{
		Vector: vector,
		Payload: map[string]interface{}{
			"title":        course.Title,
			"instructor":   course.Instructor,
			"course_link":  course.Link,
			"lessons_json": string(lessonsJSON),
		},
	}
	if err := s.catalog.Upsert(ctx, []vectorstore.Object{catalogObj}); err != nil {
		span.RecordError(err)
		return fmt.Errorf("storing catalog entry: %w", err)
	}

	objects := make([]vectorstore.Object, 0, len(chunks))
	for _, chunk := range chunks {
		v, err := s.embedder.Embed(ctx, chunk.Text)
		if err != nil {
			span.RecordError(err)
			return fmt.Errorf("embedding chunk %d: %w", chunk.ChunkIndex, err)
		}
		payload := map[string]interface{}{
			"content":      chunk.Text,
			"course_title": chunk.CourseTitle,
			"chunk_index":  chunk.ChunkIndex,
		}
		if chunk.LessonNumber != nil {
			payload["lesson_number"] = *chunk.LessonNumber
		}
		objects = append(objects, vectorstore.Object{Vector: v, Payload: payload})
	}
	if err := s.content.Upsert(ctx, objects); err != nil {
		span.RecordError(err)
		return fmt.Errorf("storing content entries: %w", err)
	}

	slog.Info("Course indexed", "title", course.Title, "lessons", len(course.Lessons), "chunks", len(chunks))
	return nil
}

// ResolveCourseName maps a possibly-fuzzy course reference onto a
// canonical catalog title via nearest-neighbour lookup. Returns
// CourseNotFoundError when the catalog is empty or the best match falls
// below the certainty cutoff.
func (s *CourseStore) ResolveCourseName(ctx context.Context, name string) (string, error) {
	ctx, span := tracer.Start(ctx, "CourseStore.ResolveCourseName")
	defer span.End()
	span.SetAttributes(attribute.String("course.query", name))

	vector, err := s.embedder.Embed(ctx, name)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("embedding course name: %w", err)
	}

	hits, err := s.catalog.Query(ctx, vector, 1, nil)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("catalog lookup: %w", err)
	}
	if len(hits) == 0 {
		return "", &CourseNotFoundError{Name: name}
	}

	best := hits[0]
	title := vectorstore.PayloadString(best.Payload, "title")
	span.SetAttributes(
		attribute.String("course.resolved", title),
		attribute.Float64("course.certainty", best.Score),
	)
	if title == "" || best.Score < s.minCertainty {
		slog.Debug("Best catalog match below certainty cutoff",
			"query", name, "match", title, "certainty", best.Score, "cutoff", s.minCertainty)
		return "", &CourseNotFoundError{Name: name}
	}
	return title, nil
}

// SearchContent embeds the query and runs a filtered nearest-neighbour
// search over the content index. courseTitle must already be canonical;
// pass empty string / nil lesson for unfiltered search. All four filter
// combinations are supported.
func (s *CourseStore) SearchContent(ctx context.Context, query, courseTitle string, lessonNumber *int) ([]datatypes.SearchResult, error) {
	ctx, span := tracer.Start(ctx, "CourseStore.SearchContent")
	defer span.End()

	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	var filter vectorstore.Filter
	if courseTitle != "" || lessonNumber != nil {
		filter = vectorstore.Filter{}
		if courseTitle != "" {
			filter["course_title"] = courseTitle
		}
		if lessonNumber != nil {
			filter["lesson_number"] = *lessonNumber
		}
	}

	start := time.Now()
	hits, err := s.content.Query(ctx, vector, s.maxResults, filter)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("content search: %w", err)
	}
	observability.SearchDuration.Observe(time.Since(start).Seconds())
	span.SetAttributes(attribute.Int("search.hits", len(hits)))

	results := make([]datatypes.SearchResult, 0, len(hits))
	for _, hit := range hits {
		result := datatypes.SearchResult{
			Text:        vectorstore.PayloadString(hit.Payload, "content"),
			CourseTitle: vectorstore.PayloadString(hit.Payload, "course_title"),
			Score:       hit.Score,
		}
		if n, ok := vectorstore.PayloadInt(hit.Payload, "lesson_number"); ok {
			num := n
			result.LessonNumber = &num
		}
		results = append(results, result)
	}
	return results, nil
}

// ListCourseTitles returns the canonical titles currently in the catalog.
func (s *CourseStore) ListCourseTitles(ctx context.Context) ([]string, error) {
	titles, err := s.catalog.List(ctx, "title", 1000)
	if err != nil {
		return nil, fmt.Errorf("listing catalog: %w", err)
	}
	return titles, nil
}

// HasCourse reports whether a course with the exact canonical title is
// already indexed. Used to skip unchanged documents on startup.
func (s *CourseStore) HasCourse(ctx context.Context, title string) (bool, error) {
	titles, err := s.ListCourseTitles(ctx)
	if err != nil {
		return false, err
	}
	for _, t := range titles {
		if strings.EqualFold(t, title) {
			return true, nil
		}
	}
	return false, nil
}
