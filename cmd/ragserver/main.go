// Command ragserver runs the course materials chatbot.
//
// # Environment Variables
//
//   - RAG_SERVER_PORT: HTTP server port (default: 8000)
//   - LLM_BACKEND_TYPE: reasoning provider - anthropic, openai (default: anthropic)
//   - ANTHROPIC_API_KEY / OPENAI_API_KEY: credentials for the chosen backend
//   - WEAVIATE_SERVICE_URL: Weaviate vector DB URL (optional; in-process index otherwise)
//   - DOCS_PATH: course document folder ingested at startup (default: ./docs)
//   - WATCH_DOCS: set to "true" to re-ingest documents as they change
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OpenTelemetry collector (optional)
//
// # Usage
//
//	go build -o ragserver ./cmd/ragserver
//	./ragserver serve
//	./ragserver ingest ./docs
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/rossmck94/starting-ragchatbot-codebase/services/rag"
	"github.com/rossmck94/starting-ragchatbot-codebase/services/rag/config"
)

var (
	rootCmd = &cobra.Command{
		Use:   "ragserver",
		Short: "A retrieval-augmented chatbot for course materials",
		Long: `ragserver indexes course documents into semantic indexes and answers
questions about them through a tool-calling reasoning backend.`,
	}
	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Ingest the docs folder and serve the chatbot API",
		RunE:  runServe,
	}
	ingestCmd = &cobra.Command{
		Use:   "ingest [folder]",
		Short: "Ingest course documents without starting the server",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runIngest,
	}
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	rootCmd.AddCommand(serveCmd, ingestCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	slog.Info("Starting RAG server",
		"port", cfg.Port,
		"llm_backend", cfg.LLMBackend,
		"weaviate_url", cfg.WeaviateURL,
		"docs_path", cfg.DocsPath,
	)

	svc, err := rag.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to build service: %w", err)
	}
	return svc.Run()
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	if len(args) > 0 {
		cfg.DocsPath = args[0]
	}

	loader, store, err := rag.NewIngestor(cfg)
	if err != nil {
		return fmt.Errorf("failed to build ingestor: %w", err)
	}

	added, err := loader.LoadFolder(context.Background(), cfg.DocsPath)
	if err != nil {
		return err
	}

	titles, err := store.ListCourseTitles(context.Background())
	if err != nil {
		return err
	}
	slog.Info("Ingestion complete", "new_courses", added, "total_courses", len(titles))
	return nil
}
