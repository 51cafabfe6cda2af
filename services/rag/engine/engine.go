// Package engine composes the retrieval, reasoning, tooling, and
// session layers into the per-query pipeline the transport layer calls.
package engine

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/rossmck94/starting-ragchatbot-codebase/services/rag/datatypes"
	"github.com/rossmck94/starting-ragchatbot-codebase/services/rag/generator"
	"github.com/rossmck94/starting-ragchatbot-codebase/services/rag/observability"
	"github.com/rossmck94/starting-ragchatbot-codebase/services/rag/search"
	"github.com/rossmck94/starting-ragchatbot-codebase/services/rag/session"
	"github.com/rossmck94/starting-ragchatbot-codebase/services/rag/tools"
)

var tracer = otel.Tracer("ragserver.engine")

// Engine is the top-level query orchestrator.
//
// # Description
//
// Each call to Query allocates a fresh provenance tracker, folds the
// session history into the prompt, runs the two-phase generation loop,
// and collects citations. Session history is only updated after the
// whole pipeline succeeds, so a failed query leaves the conversation
// exactly as it was.
type Engine struct {
	store     *search.CourseStore
	generator *generator.Generator
	sessions  *session.Manager
}

// NewEngine wires the engine from its collaborators.
func NewEngine(store *search.CourseStore, gen *generator.Generator, sessions *session.Manager) *Engine {
	return &Engine{store: store, generator: gen, sessions: sessions}
}

// Query answers one user question within a session. Returns the answer
// text plus the provenance of any retrieval the answer drew on.
func (e *Engine) Query(ctx context.Context, sessionID, question string) (string, []datatypes.SourceRef, error) {
	ctx, span := tracer.Start(ctx, "Engine.Query")
	defer span.End()
	span.SetAttributes(attribute.String("query.session_id", sessionID))

	start := time.Now()
	tracker := tools.NewSourceTracker()
	history := e.sessions.FormatHistory(sessionID)

	answer, err := e.generator.Generate(ctx, question, history, tracker)
	if err != nil {
		span.RecordError(err)
		observability.QueriesTotal.WithLabelValues("generation_error").Inc()
		return "", nil, fmt.Errorf("answering query: %w", err)
	}

	sources := tracker.GetAndClearLastSources()
	e.sessions.AddExchange(sessionID, question, answer)

	observability.QueriesTotal.WithLabelValues("ok").Inc()
	observability.QueryDuration.Observe(time.Since(start).Seconds())
	span.SetAttributes(attribute.Int("query.sources", len(sources)))
	return answer, sources, nil
}

// CreateSession allocates a new conversation session.
func (e *Engine) CreateSession() string {
	return e.sessions.Create()
}

// ClearSession drops a conversation session and its history.
func (e *Engine) ClearSession(id string) {
	e.sessions.Clear(id)
}

// CourseAnalytics reports what the catalog currently holds.
func (e *Engine) CourseAnalytics(ctx context.Context) (*datatypes.CourseStats, error) {
	titles, err := e.store.ListCourseTitles(ctx)
	if err != nil {
		return nil, fmt.Errorf("gathering course analytics: %w", err)
	}
	return &datatypes.CourseStats{
		TotalCourses: len(titles),
		CourseTitles: titles,
	}, nil
}
