// Package resolve builds an embedding provider from provider-agnostic
// configuration.
package resolve

import (
	"fmt"
	"log/slog"

	pdfvec "github.com/nevindra/pdfvec"
	"github.com/nevindra/pdfvec/provider/gemini"
	"github.com/nevindra/pdfvec/provider/openai"
)

// EmbeddingConfig holds provider-agnostic configuration for creating an EmbeddingProvider.
type EmbeddingConfig struct {
	Provider   string // "gemini", "openai", "together", "mistral", "ollama"
	APIKey     string
	Model      string
	BaseURL    string // optional for OpenAI-compatible providers; auto-filled for known ones
	Dimensions int
	Logger     *slog.Logger
}

// EmbeddingProvider creates a pdfvec.EmbeddingProvider from a provider-agnostic EmbeddingConfig.
func EmbeddingProvider(cfg EmbeddingConfig) (pdfvec.EmbeddingProvider, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("resolve: embedding provider %q: model is required", cfg.Provider)
	}
	switch cfg.Provider {
	case "gemini":
		var opts []gemini.Option
		if cfg.Logger != nil {
			opts = append(opts, gemini.WithLogger(cfg.Logger))
		}
		return gemini.NewEmbedding(cfg.APIKey, cfg.Model, cfg.Dimensions, opts...), nil
	case "openai", "together", "mistral", "ollama":
		return openaiCompatEmbedding(cfg), nil
	default:
		return nil, fmt.Errorf("resolve: unknown embedding provider %q", cfg.Provider)
	}
}

func openaiCompatEmbedding(cfg EmbeddingConfig) pdfvec.EmbeddingProvider {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL(cfg.Provider)
	}
	opts := []openai.Option{openai.WithName(cfg.Provider), openai.WithBaseURL(baseURL)}
	if cfg.Provider != "openai" {
		// cl100k_base only describes OpenAI models.
		opts = append(opts, openai.WithMaxInputTokens(0))
	}
	if cfg.Logger != nil {
		opts = append(opts, openai.WithLogger(cfg.Logger))
	}
	return openai.NewEmbedding(cfg.APIKey, cfg.Model, cfg.Dimensions, opts...)
}

func defaultBaseURL(provider string) string {
	switch provider {
	case "openai":
		return "https://api.openai.com/v1"
	case "together":
		return "https://api.together.xyz/v1"
	case "mistral":
		return "https://api.mistral.ai/v1"
	case "ollama":
		return "http://localhost:11434/v1"
	default:
		return ""
	}
}
