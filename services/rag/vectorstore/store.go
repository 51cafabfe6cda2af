// Package vectorstore provides the vector index abstraction used by the
// retrieval layer. Two implementations exist: a Weaviate-backed index for
// production and an in-memory index for tests and Weaviate-less
// development.
package vectorstore

import (
	"context"
	"fmt"
)

// Object is one stored record: a vector plus an arbitrary payload.
type Object struct {
	Vector  []float32
	Payload map[string]interface{}
}

// Filter is a conjunction of equality conditions on payload fields.
// Values must be strings or integers.
type Filter map[string]interface{}

// Hit is one ranked query result. Score is a certainty in [0, 1] where
// higher means closer.
type Hit struct {
	Payload map[string]interface{}
	Score   float64
}

// Index is the vector index capability consumed by the retrieval layer.
// One instance corresponds to one collection.
type Index interface {
	// Upsert stores the given objects.
	Upsert(ctx context.Context, objects []Object) error

	// DeleteWhere removes every object whose payload field equals value.
	DeleteWhere(ctx context.Context, field, value string) error

	// Query returns up to topK nearest neighbours of vector, restricted
	// to objects matching the filter. A nil filter matches everything.
	Query(ctx context.Context, vector []float32, topK int, filter Filter) ([]Hit, error)

	// List returns up to limit distinct string values of the given
	// payload field across all stored objects.
	List(ctx context.Context, field string, limit int) ([]string, error)
}

// IndexError wraps an infrastructure failure of the underlying index so
// callers can distinguish it from empty results.
type IndexError struct {
	Op  string
	Err error
}

// Error implements the error interface for IndexError.
func (e *IndexError) Error() string {
	return fmt.Sprintf("vector index %s failed: %v", e.Op, e.Err)
}

// Unwrap exposes the underlying cause.
func (e *IndexError) Unwrap() error { return e.Err }

// IsIndexError checks if an error is an *IndexError.
func IsIndexError(err error) bool {
	_, ok := err.(*IndexError)
	return ok
}

// PayloadString extracts a string field from a hit payload, tolerating a
// missing key.
func PayloadString(payload map[string]interface{}, key string) string {
	if v, ok := payload[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// PayloadInt extracts an integer field from a hit payload. GraphQL
// responses decode numbers as float64, so both representations are
// accepted. The second return reports whether the field was present.
func PayloadInt(payload map[string]interface{}, key string) (int, bool) {
	v, ok := payload[key]
	if !ok || v == nil {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	}
	return 0, false
}
