// Package openai implements pdfvec.EmbeddingProvider on the OpenAI
// embeddings API (and OpenAI-compatible servers) using openai-go.
package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	pdfvec "github.com/nevindra/pdfvec"
)

// maxBatch is the number of inputs sent per embeddings request.
const maxBatch = 100

// DefaultMaxInputTokens is the input limit of the text-embedding-3 models.
const DefaultMaxInputTokens = 8191

// Embedding implements pdfvec.EmbeddingProvider for OpenAI embedding models.
type Embedding struct {
	client openai.Client
	model  string
	dims   int
	name   string

	baseURL        string
	httpClient     *http.Client
	maxInputTokens int
	tokens         *tokenCounter
	logger         *slog.Logger
}

var _ pdfvec.EmbeddingProvider = (*Embedding)(nil)

// NewEmbedding creates an OpenAI embedding provider. dims is the requested
// vector size; 0 keeps the model's native size and omits the parameter.
func NewEmbedding(apiKey, model string, dims int, opts ...Option) *Embedding {
	e := &Embedding{
		model:          model,
		dims:           dims,
		name:           "openai",
		maxInputTokens: DefaultMaxInputTokens,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.New(slog.DiscardHandler)
	}

	// Retries are handled by pdfvec.WithEmbeddingRetry.
	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if e.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(e.baseURL))
	}
	if e.httpClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(e.httpClient))
	}
	e.client = openai.NewClient(reqOpts...)
	if e.maxInputTokens > 0 {
		e.tokens = newTokenCounter(e.logger)
	}
	return e
}

// Name returns "openai" or the name set with WithName.
func (e *Embedding) Name() string { return e.name }

// Dimensions returns the configured embedding dimensionality.
func (e *Embedding) Dimensions() int { return e.dims }

// Embed embeds texts, at most 100 per request, and returns the vectors in
// input order. Inputs above the token limit are refused before any request.
func (e *Embedding) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := e.checkTokens(texts); err != nil {
		return nil, err
	}
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += maxBatch {
		end := min(start+maxBatch, len(texts))
		vecs, err := e.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}
	return out, nil
}

func (e *Embedding) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	params := openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(e.model),
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
	}
	if e.dims > 0 {
		params.Dimensions = openai.Int(int64(e.dims))
	}

	start := time.Now()
	resp, err := e.client.Embeddings.New(ctx, params)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, e.convertErr(err)
	}
	e.logger.Debug("openai embed", "model", e.model, "texts", len(texts),
		"tokens", resp.Usage.TotalTokens, "duration", time.Since(start))

	if len(resp.Data) != len(texts) {
		return nil, e.wrapErr(fmt.Sprintf("expected %d embeddings, got %d", len(texts), len(resp.Data)))
	}
	data := resp.Data
	sort.SliceStable(data, func(i, j int) bool { return data[i].Index < data[j].Index })

	vecs := make([][]float32, len(data))
	for i, d := range data {
		vec := make([]float32, len(d.Embedding))
		for j, v := range d.Embedding {
			vec[j] = float32(v)
		}
		vecs[i] = vec
	}
	return vecs, nil
}

func (e *Embedding) checkTokens(texts []string) error {
	if e.tokens == nil {
		return nil
	}
	for i, t := range texts {
		n, ok := e.tokens.count(t)
		if !ok {
			return nil
		}
		if n > e.maxInputTokens {
			return e.wrapErr(fmt.Sprintf("input %d has %d tokens, limit is %d", i, n, e.maxInputTokens))
		}
	}
	return nil
}

// convertErr maps API status errors onto pdfvec.ErrHTTP so retry
// wrappers can classify them.
func (e *Embedding) convertErr(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		httpErr := &pdfvec.ErrHTTP{Status: apiErr.StatusCode, Body: apiErr.Message}
		if apiErr.Response != nil {
			httpErr.RetryAfter = pdfvec.ParseRetryAfter(apiErr.Response.Header.Get("Retry-After"))
		}
		return httpErr
	}
	return e.wrapErr("embed request failed: " + err.Error())
}

func (e *Embedding) wrapErr(msg string) error {
	return &pdfvec.ErrProvider{Provider: e.name, Message: msg}
}
