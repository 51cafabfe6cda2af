// Package rag assembles the course chatbot service: configuration,
// telemetry, the vector indexes, the reasoning backend, document
// ingestion, and the HTTP API.
package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/rossmck94/starting-ragchatbot-codebase/services/embeddings"
	"github.com/rossmck94/starting-ragchatbot-codebase/services/llm"
	"github.com/rossmck94/starting-ragchatbot-codebase/services/rag/config"
	"github.com/rossmck94/starting-ragchatbot-codebase/services/rag/engine"
	"github.com/rossmck94/starting-ragchatbot-codebase/services/rag/generator"
	"github.com/rossmck94/starting-ragchatbot-codebase/services/rag/ingest"
	"github.com/rossmck94/starting-ragchatbot-codebase/services/rag/routes"
	"github.com/rossmck94/starting-ragchatbot-codebase/services/rag/search"
	"github.com/rossmck94/starting-ragchatbot-codebase/services/rag/session"
	"github.com/rossmck94/starting-ragchatbot-codebase/services/rag/tools"
	"github.com/rossmck94/starting-ragchatbot-codebase/services/rag/vectorstore"
)

// Service is the fully wired course chatbot.
//
// # Description
//
// New builds every layer from configuration: telemetry first (optional),
// then the catalog and content indexes (Weaviate when configured, an
// in-process index otherwise), the embedding provider, the reasoning
// backend, and finally the query engine. Run loads the document corpus
// and serves the HTTP API until the process receives a shutdown signal.
//
// # Assumptions
//
//   - When WEAVIATE_SERVICE_URL is set, the Weaviate server is reachable
//     at startup; schema creation happens before ingestion.
type Service struct {
	cfg     *config.Config
	engine  *engine.Engine
	store   *search.CourseStore
	loader  *ingest.Loader
	cleanup func(context.Context)
}

// New builds the service from configuration.
func New(cfg *config.Config) (*Service, error) {
	s := &Service{cfg: cfg}

	// Tracing is best-effort: a missing collector must never keep the
	// chatbot from starting.
	if err := s.initTracer(); err != nil {
		slog.Warn("Tracing disabled", "error", err)
	}

	catalog, content, err := s.initIndexes()
	if err != nil {
		return nil, err
	}

	embedder, err := s.initEmbedder()
	if err != nil {
		return nil, err
	}

	s.store = search.NewCourseStore(catalog, content, embedder, cfg.MaxResults, cfg.MinCertainty)
	retriever := search.NewRetriever(s.store)

	registry := tools.NewRegistry()
	if err := registry.Register(tools.NewCourseSearchTool(retriever)); err != nil {
		return nil, err
	}

	client, err := s.initLLMClient()
	if err != nil {
		return nil, err
	}

	gen := generator.NewGenerator(client, registry)
	sessions := session.NewManager(cfg.MaxHistory)
	s.engine = engine.NewEngine(s.store, gen, sessions)
	s.loader = ingest.NewLoader(s.store, ingest.NewChunker(cfg.ChunkSize, cfg.ChunkOverlap))
	return s, nil
}

// NewIngestor builds just the ingestion side: indexes, embedder,
// chunker, and loader. No reasoning backend is required, so the ingest
// CLI works without an LLM API key.
func NewIngestor(cfg *config.Config) (*ingest.Loader, *search.CourseStore, error) {
	s := &Service{cfg: cfg}

	catalog, content, err := s.initIndexes()
	if err != nil {
		return nil, nil, err
	}
	embedder, err := s.initEmbedder()
	if err != nil {
		return nil, nil, err
	}

	store := search.NewCourseStore(catalog, content, embedder, cfg.MaxResults, cfg.MinCertainty)
	loader := ingest.NewLoader(store, ingest.NewChunker(cfg.ChunkSize, cfg.ChunkOverlap))
	return loader, store, nil
}

// Engine exposes the query engine, mainly for the ingest CLI and tests.
func (s *Service) Engine() *engine.Engine { return s.engine }

// Loader exposes the document loader.
func (s *Service) Loader() *ingest.Loader { return s.loader }

// Run loads the docs folder, starts the HTTP server, and blocks until
// SIGINT/SIGTERM. Returns once shutdown completes.
func (s *Service) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	defer func() {
		if s.cleanup != nil {
			s.cleanup(context.Background())
		}
	}()

	if s.cfg.DocsPath != "" {
		if _, err := os.Stat(s.cfg.DocsPath); err == nil {
			if _, err := s.loader.LoadFolder(ctx, s.cfg.DocsPath); err != nil {
				return fmt.Errorf("loading document corpus: %w", err)
			}
		} else {
			slog.Warn("Docs folder not found, starting with an empty index", "path", s.cfg.DocsPath)
		}
		if s.cfg.WatchDocs {
			go func() {
				if err := s.loader.Watch(ctx, s.cfg.DocsPath); err != nil && !errors.Is(err, context.Canceled) {
					slog.Error("Docs watcher stopped", "error", err)
				}
			}()
		}
	}

	router := gin.New()
	router.Use(gin.Recovery())
	routes.SetupRoutes(router, s.engine, os.Getenv("UI_DIR"))

	srv := &http.Server{
		Addr:              ":" + s.cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("RAG server listening", "port", s.cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	slog.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// initTracer sets up the OTLP trace exporter when an endpoint is
// configured. Uses an insecure gRPC connection, appropriate for
// internal networks.
func (s *Service) initTracer() error {
	if s.cfg.OTELEndpoint == "" {
		return fmt.Errorf("OTEL_EXPORTER_OTLP_ENDPOINT not set")
	}
	ctx := context.Background()

	conn, err := grpc.NewClient(s.cfg.OTELEndpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return fmt.Errorf("failed to create gRPC connection: %w", err)
	}

	exporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return fmt.Errorf("failed to create trace exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String("rag-server")))
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(sdktrace.NewBatchSpanProcessor(exporter)))

	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{}))

	s.cleanup = func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := exporter.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown OTLP exporter", "error", err)
		}
	}
	return nil
}

// initIndexes creates the catalog and content indexes: Weaviate classes
// when a URL is configured, otherwise in-process indexes so development
// works without any external database.
func (s *Service) initIndexes() (catalog, content vectorstore.Index, err error) {
	weaviateURL := strings.Trim(s.cfg.WeaviateURL, "\"' ")
	if weaviateURL == "" {
		slog.Info("Weaviate URL not configured, using in-process vector indexes")
		return vectorstore.NewMemoryIndex(), vectorstore.NewMemoryIndex(), nil
	}

	parsed, err := url.Parse(weaviateURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, nil, fmt.Errorf("invalid Weaviate URL: %s", weaviateURL)
	}

	client, err := weaviate.NewClient(weaviate.Config{
		Host:             parsed.Host,
		Scheme:           parsed.Scheme,
		ConnectionClient: &http.Client{Timeout: 30 * time.Second},
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create Weaviate client: %w", err)
	}
	if err := vectorstore.EnsureSchemas(context.Background(), client); err != nil {
		return nil, nil, fmt.Errorf("ensuring Weaviate schemas: %w", err)
	}
	slog.Info("Weaviate client initialized", "url", weaviateURL)

	catalog = vectorstore.NewWeaviateIndex(client, vectorstore.CatalogClass,
		[]string{"title", "instructor", "course_link", "lessons_json"})
	content = vectorstore.NewWeaviateIndex(client, vectorstore.ContentClass,
		[]string{"content", "course_title", "lesson_number", "chunk_index"})
	return catalog, content, nil
}

// initEmbedder picks the embedding provider. A base URL without an API
// key means a bare REST embedding sidecar; anything else goes through
// the OpenAI-compatible protocol.
func (s *Service) initEmbedder() (embeddings.Provider, error) {
	if s.cfg.EmbeddingBaseURL != "" && s.cfg.EmbeddingAPIKey == "" {
		slog.Info("Using REST embedding service", "url", s.cfg.EmbeddingBaseURL)
		return embeddings.NewServiceProvider(s.cfg.EmbeddingBaseURL), nil
	}
	return embeddings.NewOpenAIProvider(s.cfg.EmbeddingAPIKey, s.cfg.EmbeddingModel, s.cfg.EmbeddingBaseURL)
}

// initLLMClient creates the reasoning backend named by LLM_BACKEND_TYPE.
func (s *Service) initLLMClient() (llm.ToolCallingClient, error) {
	switch s.cfg.LLMBackend {
	case "anthropic", "claude":
		return llm.NewAnthropicClient(s.cfg.AnthropicAPIKey, s.cfg.AnthropicModel)
	case "openai":
		return llm.NewOpenAIClient(s.cfg.OpenAIAPIKey, s.cfg.OpenAIModel, s.cfg.OpenAIBaseURL)
	default:
		return nil, fmt.Errorf("unsupported LLM backend: %s (want anthropic or openai)", s.cfg.LLMBackend)
	}
}
