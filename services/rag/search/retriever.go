package search

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"github.com/rossmck94/starting-ragchatbot-codebase/services/rag/datatypes"
)

// Retriever is the retrieval service: it resolves a possibly-fuzzy
// course reference against the catalog index, then runs a filtered
// content search with the canonical title. Resolution failure is
// reported as CourseNotFoundError rather than silently falling back to
// an unfiltered search, so "no course matched" stays distinguishable
// from "course matched but nothing relevant".
type Retriever struct {
	store *CourseStore
}

// NewRetriever creates a Retriever over the course store.
func NewRetriever(store *CourseStore) *Retriever {
	return &Retriever{store: store}
}

// Retrieve runs the fuzzy-then-exact retrieval pipeline. courseName and
// lessonNumber are optional; an empty result list with a nil error means
// the filter was valid but matched no content.
func (r *Retriever) Retrieve(ctx context.Context, query, courseName string, lessonNumber *int) ([]datatypes.SearchResult, error) {
	ctx, span := tracer.Start(ctx, "Retriever.Retrieve")
	defer span.End()
	span.SetAttributes(attribute.String("retrieve.query", query))

	resolved := ""
	if courseName != "" {
		title, err := r.store.ResolveCourseName(ctx, courseName)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		resolved = title
		span.SetAttributes(attribute.String("retrieve.course", resolved))
	}

	results, err := r.store.SearchContent(ctx, query, resolved, lessonNumber)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return results, nil
}
