// Package config loads pdfvec configuration: defaults, then an optional TOML
// file, then an optional .env file, then process environment (env wins).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	pdfvec "github.com/nevindra/pdfvec"
	"github.com/nevindra/pdfvec/internal/logger"
)

// DefaultPath and DefaultEnvFile are read when present; their absence is not an error.
const (
	DefaultPath    = "pdfvec.toml"
	DefaultEnvFile = ".env"
)

type Config struct {
	Store     StoreConfig     `toml:"store"`
	Astra     AstraConfig     `toml:"astra"`
	Postgres  PostgresConfig  `toml:"postgres"`
	Embedding EmbeddingConfig `toml:"embedding"`
	Ingest    IngestConfig    `toml:"ingest"`
	Query     QueryConfig     `toml:"query"`
	Retry     RetryConfig     `toml:"retry"`
	Log       LogConfig       `toml:"log"`
	Observer  ObserverConfig  `toml:"observer"`
}

type StoreConfig struct {
	Backend      string `toml:"backend"` // "astra" or "postgres"
	RateLimitRPM int    `toml:"rate_limit_rpm"`
}

type AstraConfig struct {
	Endpoint          string `toml:"endpoint"`
	Token             string `toml:"token"`
	Keyspace          string `toml:"keyspace"`
	VectorizeProvider string `toml:"vectorize_provider"`
	VectorizeModel    string `toml:"vectorize_model"`
	TimeoutSeconds    int    `toml:"timeout_seconds"`
}

type PostgresConfig struct {
	DSN            string `toml:"dsn"`
	HNSWM          int    `toml:"hnsw_m"`
	EFConstruction int    `toml:"ef_construction"`
	EFSearch       int    `toml:"ef_search"`
}

type EmbeddingConfig struct {
	Mode         string `toml:"mode"`     // "delegated" or "local"
	Provider     string `toml:"provider"` // local mode only
	Model        string `toml:"model"`
	Dimensions   int    `toml:"dimensions"`
	APIKey       string `toml:"api_key"`
	BaseURL      string `toml:"base_url"`
	RateLimitRPM int    `toml:"rate_limit_rpm"`
}

type IngestConfig struct {
	Collection   string `toml:"collection"`
	ChunkSize    int    `toml:"chunk_size"`
	ChunkOverlap int    `toml:"chunk_overlap"`
	BatchSize    int    `toml:"batch_size"`
	BatchDelayMS int    `toml:"batch_delay_ms"`
	Duplicates   string `toml:"duplicates"` // "upsert" or "reject"
}

type QueryConfig struct {
	Limit         int `toml:"limit"`
	PreviewLength int `toml:"preview_length"`
}

type RetryConfig struct {
	MaxAttempts    int `toml:"max_attempts"`
	BaseDelayMS    int `toml:"base_delay_ms"`
	TimeoutSeconds int `toml:"timeout_seconds"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type ObserverConfig struct {
	Enabled     bool   `toml:"enabled"`
	ServiceName string `toml:"service_name"`
}

// Default returns a Config with all defaults applied.
func Default() Config {
	return Config{
		Store: StoreConfig{Backend: "astra"},
		Astra: AstraConfig{
			Keyspace:          "default_keyspace",
			VectorizeProvider: "nvidia",
			VectorizeModel:    "NV-Embed-QA",
			TimeoutSeconds:    60,
		},
		Embedding: EmbeddingConfig{Mode: string(pdfvec.ModeDelegated), Provider: "openai", Model: "text-embedding-3-small", Dimensions: 1536},
		Ingest: IngestConfig{
			Collection:   "pdf_documents",
			ChunkSize:    1000,
			ChunkOverlap: 200,
			BatchSize:    20,
			BatchDelayMS: 500,
			Duplicates:   string(pdfvec.DuplicateUpsert),
		},
		Query:    QueryConfig{Limit: 5, PreviewLength: 500},
		Retry:    RetryConfig{MaxAttempts: 3, BaseDelayMS: 1000},
		Log:      LogConfig{Level: "info", Format: "text"},
		Observer: ObserverConfig{ServiceName: "pdfvec"},
	}
}

// Load reads config: defaults -> TOML file -> .env file -> env vars (env wins).
// An empty path or envFile selects the defaults; a missing default file is
// skipped, but a missing file that was named explicitly is an error.
func Load(path, envFile string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}
	if data, err := os.ReadFile(path); err == nil {
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parse %s: %w", path, err)
		}
	} else if explicit || !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}

	explicitEnv := envFile != ""
	if !explicitEnv {
		envFile = DefaultEnvFile
	}
	// godotenv.Load never overrides variables already set in the process.
	if err := godotenv.Load(envFile); err != nil {
		if explicitEnv || !errors.Is(err, fs.ErrNotExist) {
			return cfg, fmt.Errorf("config: load %s: %w", envFile, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	setString(&cfg.Astra.Endpoint, "ASTRA_DB_API_ENDPOINT", "API_ENDPOINT")
	setString(&cfg.Astra.Token, "ASTRA_DB_APPLICATION_TOKEN", "APPLICATION_TOKEN")
	setString(&cfg.Astra.Keyspace, "ASTRA_DB_KEYSPACE")
	setString(&cfg.Store.Backend, "PDFVEC_STORE")
	setString(&cfg.Postgres.DSN, "PDFVEC_POSTGRES_DSN", "DATABASE_URL")
	setString(&cfg.Embedding.Mode, "PDFVEC_EMBEDDING_MODE")
	setString(&cfg.Embedding.Provider, "PDFVEC_EMBEDDING_PROVIDER")
	setString(&cfg.Embedding.Model, "PDFVEC_EMBEDDING_MODEL")
	setString(&cfg.Log.Level, "PDFVEC_LOG_LEVEL")
	setString(&cfg.Log.Format, "PDFVEC_LOG_FORMAT")

	if v := os.Getenv("PDFVEC_EMBEDDING_DIMENSIONS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return &pdfvec.ConfigError{Field: "PDFVEC_EMBEDDING_DIMENSIONS", Reason: fmt.Sprintf("not an integer: %q", v)}
		}
		cfg.Embedding.Dimensions = n
	}
	if v := os.Getenv("PDFVEC_OBSERVER_ENABLED"); v != "" {
		cfg.Observer.Enabled = v == "true" || v == "1"
	}

	// The embedding API key variable follows the selected provider.
	if cfg.Embedding.Provider == "gemini" {
		setString(&cfg.Embedding.APIKey, "GEMINI_API_KEY")
	} else {
		setString(&cfg.Embedding.APIKey, "OPENAI_API_KEY")
	}
	return nil
}

// setString sets *dst to the first non-empty variable among names.
func setString(dst *string, names ...string) {
	for _, n := range names {
		if v := os.Getenv(n); v != "" {
			*dst = v
			return
		}
	}
}

// Validate checks the configuration once at startup. It returns a
// *pdfvec.ConfigError naming the first invalid field.
func (c Config) Validate() error {
	mode, err := pdfvec.ParseEmbeddingMode(c.Embedding.Mode)
	if err != nil {
		return &pdfvec.ConfigError{Field: "embedding.mode", Reason: err.Error()}
	}

	switch c.Store.Backend {
	case "astra":
		if c.Astra.Endpoint == "" {
			return &pdfvec.ConfigError{Field: "astra.endpoint", Reason: "missing (set ASTRA_DB_API_ENDPOINT)"}
		}
		if !strings.HasPrefix(c.Astra.Endpoint, "http://") && !strings.HasPrefix(c.Astra.Endpoint, "https://") {
			return &pdfvec.ConfigError{Field: "astra.endpoint", Reason: "must be an http(s) URL"}
		}
		if c.Astra.Token == "" {
			return &pdfvec.ConfigError{Field: "astra.token", Reason: "missing (set ASTRA_DB_APPLICATION_TOKEN)"}
		}
	case "postgres":
		if c.Postgres.DSN == "" {
			return &pdfvec.ConfigError{Field: "postgres.dsn", Reason: "missing (set PDFVEC_POSTGRES_DSN)"}
		}
		if mode == pdfvec.ModeDelegated {
			return &pdfvec.ConfigError{Field: "embedding.mode", Reason: "postgres requires local embeddings"}
		}
	default:
		return &pdfvec.ConfigError{Field: "store.backend", Reason: fmt.Sprintf("unknown backend %q", c.Store.Backend)}
	}

	if mode == pdfvec.ModeLocal {
		if c.Embedding.Provider == "" {
			return &pdfvec.ConfigError{Field: "embedding.provider", Reason: "required in local mode"}
		}
		if c.Embedding.Model == "" {
			return &pdfvec.ConfigError{Field: "embedding.model", Reason: "required in local mode"}
		}
		if c.Embedding.Dimensions <= 0 {
			return &pdfvec.ConfigError{Field: "embedding.dimensions", Reason: "must be positive in local mode"}
		}
		if c.Embedding.APIKey == "" && c.Embedding.Provider != "ollama" {
			return &pdfvec.ConfigError{Field: "embedding.api_key", Reason: "missing (set OPENAI_API_KEY or GEMINI_API_KEY)"}
		}
	}

	if err := pdfvec.ValidateCollectionName(c.Ingest.Collection); err != nil {
		return &pdfvec.ConfigError{Field: "ingest.collection", Reason: err.Error()}
	}
	if c.Ingest.ChunkSize <= 0 {
		return &pdfvec.ConfigError{Field: "ingest.chunk_size", Reason: "must be positive"}
	}
	if c.Ingest.ChunkOverlap < 0 || c.Ingest.ChunkOverlap >= c.Ingest.ChunkSize {
		return &pdfvec.ConfigError{Field: "ingest.chunk_overlap", Reason: "must be in [0, chunk_size)"}
	}
	if c.Ingest.BatchSize < 1 || c.Ingest.BatchSize > 100 {
		return &pdfvec.ConfigError{Field: "ingest.batch_size", Reason: "must be between 1 and 100"}
	}
	if c.Ingest.BatchDelayMS < 0 {
		return &pdfvec.ConfigError{Field: "ingest.batch_delay_ms", Reason: "must not be negative"}
	}
	if _, err := pdfvec.ParseDuplicatePolicy(c.Ingest.Duplicates); err != nil {
		return &pdfvec.ConfigError{Field: "ingest.duplicates", Reason: err.Error()}
	}
	if c.Query.Limit < 0 {
		return &pdfvec.ConfigError{Field: "query.limit", Reason: "must not be negative"}
	}
	if c.Retry.MaxAttempts < 1 {
		return &pdfvec.ConfigError{Field: "retry.max_attempts", Reason: "must be at least 1"}
	}
	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		return &pdfvec.ConfigError{Field: "log.level", Reason: err.Error()}
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return &pdfvec.ConfigError{Field: "log.format", Reason: fmt.Sprintf("unknown format %q", c.Log.Format)}
	}
	return nil
}

// EmbeddingMode returns the parsed embedding mode. Call after Validate.
func (c Config) EmbeddingMode() pdfvec.EmbeddingMode {
	m, _ := pdfvec.ParseEmbeddingMode(c.Embedding.Mode)
	return m
}

// DuplicatePolicy returns the parsed duplicate policy. Call after Validate.
func (c Config) DuplicatePolicy() pdfvec.DuplicatePolicy {
	p, _ := pdfvec.ParseDuplicatePolicy(c.Ingest.Duplicates)
	return p
}

// BatchDelay returns the pause between ingestion batches.
func (c Config) BatchDelay() time.Duration {
	return time.Duration(c.Ingest.BatchDelayMS) * time.Millisecond
}

// Logger returns the logger configuration. Call after Validate.
func (c Config) Logger() logger.Config {
	level, _ := logger.ParseLevel(c.Log.Level)
	return logger.Config{Level: level, Format: c.Log.Format}
}
