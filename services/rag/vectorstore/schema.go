package vectorstore

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate/entities/models"
	"gopkg.in/yaml.v3"
)

// Class names for the two collections.
const (
	CatalogClass = "CourseCatalog"
	ContentClass = "CourseContent"
)

//go:embed schemas.yaml
var schemasYAML []byte

type schemaFile struct {
	Classes []classSpec `yaml:"classes"`
}

type classSpec struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Properties  []propertySpec `yaml:"properties"`
}

type propertySpec struct {
	Name         string `yaml:"name"`
	DataType     string `yaml:"dataType"`
	Tokenization string `yaml:"tokenization"`
	Filterable   bool   `yaml:"filterable"`
}

// EnsureSchemas creates any missing classes declared in schemas.yaml.
// Idempotent: classes that already exist are left untouched.
func EnsureSchemas(ctx context.Context, client *weaviate.Client) error {
	var file schemaFile
	if err := yaml.Unmarshal(schemasYAML, &file); err != nil {
		return fmt.Errorf("parsing embedded schema file: %w", err)
	}

	for _, spec := range file.Classes {
		_, err := client.Schema().ClassGetter().WithClassName(spec.Name).Do(ctx)
		if err == nil {
			slog.Info("Schema already exists", "class", spec.Name)
			continue
		}

		slog.Info("Creating schema", "class", spec.Name)
		if err := client.Schema().ClassCreator().WithClass(buildClass(spec)).Do(ctx); err != nil {
			return fmt.Errorf("creating class %s: %w", spec.Name, err)
		}
	}
	return nil
}

// buildClass converts a YAML class spec into the Weaviate class model.
// Vectorizer is always "none"; this system supplies its own vectors.
func buildClass(spec classSpec) *models.Class {
	props := make([]*models.Property, 0, len(spec.Properties))
	for _, p := range spec.Properties {
		prop := &models.Property{
			Name:     p.Name,
			DataType: []string{p.DataType},
		}
		if p.Tokenization != "" {
			prop.Tokenization = p.Tokenization
		}
		if p.Filterable {
			filterable := true
			prop.IndexFilterable = &filterable
		}
		props = append(props, prop)
	}
	return &models.Class{
		Class:       spec.Name,
		Description: spec.Description,
		Vectorizer:  "none",
		Properties:  props,
	}
}
