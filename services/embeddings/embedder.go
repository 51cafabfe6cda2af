// Package embeddings provides the embedding capability consumed by both
// indexes and the query path. All callers embed text the same way: one
// string in, one fixed-length vector out.
package embeddings

import "context"

// Provider computes a vector embedding for a piece of text. The vector is
// deterministic for identical input. Implementations must be safe for
// concurrent use.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
