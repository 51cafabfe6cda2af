package vectorstore

import (
	"context"
	"math"
	"sort"
	"sync"
)

// MemoryIndex is an in-process Index backed by a slice and brute-force
// cosine scan. It exists for tests and for running the server without a
// Weaviate instance; corpora small enough to re-embed on startup do not
// need a real ANN index.
type MemoryIndex struct {
	mu      sync.RWMutex
	objects []Object
}

// NewMemoryIndex creates an empty in-memory index.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{}
}

// Upsert stores the given objects.
func (m *MemoryIndex) Upsert(ctx context.Context, objects []Object) error {
	if err := ctx.Err(); err != nil {
		return &IndexError{Op: "upsert", Err: err}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects = append(m.objects, objects...)
	return nil
}

// DeleteWhere removes every object whose payload field equals value.
func (m *MemoryIndex) DeleteWhere(ctx context.Context, field, value string) error {
	if err := ctx.Err(); err != nil {
		return &IndexError{Op: "delete", Err: err}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.objects[:0]
	for _, obj := range m.objects {
		if PayloadString(obj.Payload, field) != value {
			kept = append(kept, obj)
		}
	}
	m.objects = kept
	return nil
}

// Query returns up to topK nearest neighbours by cosine similarity,
// reported as certainty in [0, 1].
func (m *MemoryIndex) Query(ctx context.Context, vector []float32, topK int, filter Filter) ([]Hit, error) {
	if err := ctx.Err(); err != nil {
		return nil, &IndexError{Op: "query", Err: err}
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	hits := make([]Hit, 0, topK)
	for _, obj := range m.objects {
		if !matches(obj.Payload, filter) {
			continue
		}
		hits = append(hits, Hit{
			Payload: obj.Payload,
			Score:   certainty(vector, obj.Vector),
		})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

// List returns up to limit distinct string values of the given field.
func (m *MemoryIndex) List(ctx context.Context, field string, limit int) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, &IndexError{Op: "list", Err: err}
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[string]bool)
	var values []string
	for _, obj := range m.objects {
		v := PayloadString(obj.Payload, field)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		values = append(values, v)
		if len(values) == limit {
			break
		}
	}
	return values, nil
}

// matches reports whether a payload satisfies every equality condition.
func matches(payload map[string]interface{}, filter Filter) bool {
	for field, want := range filter {
		switch w := want.(type) {
		case string:
			if PayloadString(payload, field) != w {
				return false
			}
		case int:
			got, ok := PayloadInt(payload, field)
			if !ok || got != w {
				return false
			}
		case int64:
			got, ok := PayloadInt(payload, field)
			if !ok || int64(got) != w {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// certainty maps cosine similarity onto [0, 1], matching the certainty
// scale Weaviate reports.
func certainty(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	cos := dot / (math.Sqrt(na) * math.Sqrt(nb))
	return (1 + cos) / 2
}
