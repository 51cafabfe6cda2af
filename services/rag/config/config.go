// Package config loads runtime configuration for the RAG server from the
// environment. Every knob has a default so the server can start in a
// development environment with nothing set except the API key for the
// configured reasoning backend.
package config

import (
	"log/slog"
	"os"
	"strconv"
)

// Defaults for the chunking and retrieval knobs. These mirror the values
// the document corpus was tuned against; override via environment.
const (
	DefaultChunkSize    = 800
	DefaultChunkOverlap = 100
	DefaultMaxResults   = 5
	DefaultMaxHistory   = 2

	// DefaultMinCertainty is the minimum catalog-match certainty below
	// which a fuzzy course reference is treated as "no such course".
	DefaultMinCertainty = 0.5
)

// Config holds all runtime configuration for the RAG server.
type Config struct {
	// Chunking
	ChunkSize    int
	ChunkOverlap int

	// Retrieval
	MaxResults   int
	MinCertainty float64

	// Session history
	MaxHistory int

	// External services
	WeaviateURL       string
	EmbeddingBaseURL  string
	EmbeddingModel    string
	EmbeddingAPIKey   string
	LLMBackend        string
	AnthropicAPIKey   string
	AnthropicModel    string
	OpenAIAPIKey      string
	OpenAIModel       string
	OpenAIBaseURL     string
	OTELEndpoint      string

	// Server
	Port      string
	DocsPath  string
	WatchDocs bool
}

// Load reads configuration from the environment, applying defaults and
// logging a warning for each value that falls back.
func Load() *Config {
	cfg := &Config{
		ChunkSize:    envInt("CHUNK_SIZE", DefaultChunkSize),
		ChunkOverlap: envInt("CHUNK_OVERLAP", DefaultChunkOverlap),
		MaxResults:   envInt("MAX_RESULTS", DefaultMaxResults),
		MaxHistory:   envInt("MAX_HISTORY", DefaultMaxHistory),
		MinCertainty: envFloat("COURSE_MATCH_MIN_CERTAINTY", DefaultMinCertainty),

		WeaviateURL:      os.Getenv("WEAVIATE_SERVICE_URL"),
		EmbeddingBaseURL: os.Getenv("EMBEDDING_BASE_URL"),
		EmbeddingModel:   envStr("EMBEDDING_MODEL", "text-embedding-3-small"),
		EmbeddingAPIKey:  os.Getenv("EMBEDDING_API_KEY"),
		LLMBackend:       envStr("LLM_BACKEND_TYPE", "anthropic"),
		AnthropicAPIKey:  os.Getenv("ANTHROPIC_API_KEY"),
		AnthropicModel:   envStr("CLAUDE_MODEL", "claude-sonnet-4-20250514"),
		OpenAIAPIKey:     os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:      envStr("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIBaseURL:    os.Getenv("OPENAI_BASE_URL"),
		OTELEndpoint:     os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),

		Port:      envStr("RAG_SERVER_PORT", "8000"),
		DocsPath:  envStr("DOCS_PATH", "./docs"),
		WatchDocs: os.Getenv("WATCH_DOCS") == "true",
	}

	if cfg.EmbeddingAPIKey == "" {
		cfg.EmbeddingAPIKey = cfg.OpenAIAPIKey
	}
	if cfg.ChunkOverlap >= cfg.ChunkSize {
		slog.Warn("CHUNK_OVERLAP must be smaller than CHUNK_SIZE, using defaults",
			"chunkSize", cfg.ChunkSize, "chunkOverlap", cfg.ChunkOverlap)
		cfg.ChunkSize = DefaultChunkSize
		cfg.ChunkOverlap = DefaultChunkOverlap
	}
	return cfg
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		slog.Warn("Invalid integer in environment, using default", "key", key, "value", v, "default", fallback)
		return fallback
	}
	return n
}

func envFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 || f > 1 {
		slog.Warn("Invalid float in environment, using default", "key", key, "value", v, "default", fallback)
		return fallback
	}
	return f
}
