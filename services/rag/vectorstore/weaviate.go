package vectorstore

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"
)

// batchSize is the number of objects imported per batch call.
const batchSize = 100

// WeaviateIndex is an Index backed by one Weaviate class. Vectors are
// supplied by the caller (vectorizer "none"); scores are Weaviate
// certainties.
type WeaviateIndex struct {
	client *weaviate.Client
	class  string
	fields []string
}

// NewWeaviateIndex creates an Index over the named class. fields lists
// the payload properties returned by queries.
func NewWeaviateIndex(client *weaviate.Client, class string, fields []string) *WeaviateIndex {
	return &WeaviateIndex{client: client, class: class, fields: fields}
}

// Upsert batch-imports the given objects into the class.
func (w *WeaviateIndex) Upsert(ctx context.Context, objects []Object) error {
	for i := 0; i < len(objects); i += batchSize {
		if err := ctx.Err(); err != nil {
			return &IndexError{Op: "upsert", Err: err}
		}
		end := i + batchSize
		if end > len(objects) {
			end = len(objects)
		}
		batch := make([]*models.Object, 0, end-i)
		for _, obj := range objects[i:end] {
			batch = append(batch, &models.Object{
				Class:      w.class,
				Properties: obj.Payload,
				Vector:     obj.Vector,
			})
		}
		result, err := w.client.Batch().ObjectsBatcher().WithObjects(batch...).Do(ctx)
		if err != nil {
			return &IndexError{Op: "upsert", Err: err}
		}
		for _, obj := range result {
			if obj.Result != nil && obj.Result.Errors != nil && len(obj.Result.Errors.Error) > 0 {
				return &IndexError{Op: "upsert",
					Err: fmt.Errorf("object rejected: %s", obj.Result.Errors.Error[0].Message)}
			}
		}
	}
	slog.Debug("Batch upsert complete", "class", w.class, "count", len(objects))
	return nil
}

// DeleteWhere removes every object whose field equals value.
func (w *WeaviateIndex) DeleteWhere(ctx context.Context, field, value string) error {
	where := filters.Where().
		WithPath([]string{field}).
		WithOperator(filters.Equal).
		WithValueString(value)

	_, err := w.client.Batch().ObjectsBatchDeleter().
		WithClassName(w.class).
		WithWhere(where).
		Do(ctx)
	if err != nil {
		return &IndexError{Op: "delete", Err: err}
	}
	return nil
}

// Query runs a NearVector search restricted by the equality filter.
func (w *WeaviateIndex) Query(ctx context.Context, vector []float32, topK int, filter Filter) ([]Hit, error) {
	fields := make([]graphql.Field, 0, len(w.fields)+1)
	for _, f := range w.fields {
		fields = append(fields, graphql.Field{Name: f})
	}
	fields = append(fields, graphql.Field{Name: "_additional", Fields: []graphql.Field{
		{Name: "certainty"},
	}})

	nearVector := w.client.GraphQL().NearVectorArgBuilder().WithVector(vector)

	builder := w.client.GraphQL().Get().
		WithClassName(w.class).
		WithFields(fields...).
		WithNearVector(nearVector).
		WithLimit(topK)

	if where := buildWhere(filter); where != nil {
		builder = builder.WithWhere(where)
	}

	result, err := builder.Do(ctx)
	if err != nil {
		return nil, &IndexError{Op: "query", Err: err}
	}
	if len(result.Errors) > 0 {
		return nil, &IndexError{Op: "query", Err: fmt.Errorf("%s", result.Errors[0].Message)}
	}
	return w.parseHits(result.Data), nil
}

// List fetches up to limit values of a single string property.
func (w *WeaviateIndex) List(ctx context.Context, field string, limit int) ([]string, error) {
	result, err := w.client.GraphQL().Get().
		WithClassName(w.class).
		WithFields(graphql.Field{Name: field}).
		WithLimit(limit).
		Do(ctx)
	if err != nil {
		return nil, &IndexError{Op: "list", Err: err}
	}
	if len(result.Errors) > 0 {
		return nil, &IndexError{Op: "list", Err: fmt.Errorf("%s", result.Errors[0].Message)}
	}

	var values []string
	seen := make(map[string]bool)
	for _, payload := range rawObjects(result.Data, w.class) {
		v := PayloadString(payload, field)
		if v != "" && !seen[v] {
			seen[v] = true
			values = append(values, v)
		}
	}
	return values, nil
}

// buildWhere converts an equality Filter into a Weaviate where clause.
// Fields are sorted so the generated query is deterministic.
func buildWhere(filter Filter) *filters.WhereBuilder {
	if len(filter) == 0 {
		return nil
	}
	keys := make([]string, 0, len(filter))
	for k := range filter {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	operands := make([]*filters.WhereBuilder, 0, len(keys))
	for _, k := range keys {
		clause := filters.Where().WithPath([]string{k}).WithOperator(filters.Equal)
		switch v := filter[k].(type) {
		case string:
			clause = clause.WithValueString(v)
		case int:
			clause = clause.WithValueInt(int64(v))
		case int64:
			clause = clause.WithValueInt(v)
		default:
			continue
		}
		operands = append(operands, clause)
	}
	if len(operands) == 1 {
		return operands[0]
	}
	return filters.Where().WithOperator(filters.And).WithOperands(operands)
}

// parseHits extracts payloads and certainties from a GraphQL Get result.
func (w *WeaviateIndex) parseHits(data map[string]models.JSONObject) []Hit {
	hits := []Hit{}
	for _, raw := range rawObjects(data, w.class) {
		hit := Hit{Payload: make(map[string]interface{}, len(w.fields))}
		for _, f := range w.fields {
			if v, ok := raw[f]; ok {
				hit.Payload[f] = v
			}
		}
		if add, ok := raw["_additional"].(map[string]interface{}); ok {
			if c, ok := add["certainty"].(float64); ok {
				hit.Score = c
			}
		}
		hits = append(hits, hit)
	}
	return hits
}

// rawObjects digs the per-class object list out of a GraphQL Get response.
func rawObjects(data map[string]models.JSONObject, class string) []map[string]interface{} {
	get, ok := data["Get"].(map[string]interface{})
	if !ok {
		return nil
	}
	list, ok := get[class].([]interface{})
	if !ok {
		return nil
	}
	out := make([]map[string]interface{}, 0, len(list))
	for _, item := range list {
		if m, ok := item.(map[string]interface{}); ok {
			out = append(out, m)
		}
	}
	return out
}
