// Package gemini implements pdfvec.EmbeddingProvider for Google Gemini
// embedding models over the Generative Language REST API.
package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	pdfvec "github.com/nevindra/pdfvec"
)

var baseURL = "https://generativelanguage.googleapis.com/v1beta"

// maxBatch is the batchEmbedContents request limit.
const maxBatch = 100

// Task types accepted by the embedding API.
const (
	TaskRetrievalDocument = "RETRIEVAL_DOCUMENT"
	TaskRetrievalQuery    = "RETRIEVAL_QUERY"
)

// Embedding implements pdfvec.EmbeddingProvider for Gemini embedding models.
type Embedding struct {
	apiKey     string
	model      string
	dims       int
	taskType   string
	httpClient *http.Client
	logger     *slog.Logger
}

var _ pdfvec.EmbeddingProvider = (*Embedding)(nil)

// NewEmbedding creates a Gemini embedding provider producing vectors of
// dims dimensions.
func NewEmbedding(apiKey, model string, dims int, opts ...Option) *Embedding {
	e := &Embedding{
		apiKey:     apiKey,
		model:      strings.TrimPrefix(model, "models/"),
		dims:       dims,
		taskType:   TaskRetrievalDocument,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.New(slog.DiscardHandler)
	}
	return e
}

// Name returns "gemini".
func (e *Embedding) Name() string { return "gemini" }

// Dimensions returns the configured embedding dimensionality.
func (e *Embedding) Dimensions() int { return e.dims }

// Embed embeds texts with batchEmbedContents, at most 100 texts per request,
// and returns the vectors in input order.
func (e *Embedding) Embed(ctx context.Context, texts []string) ([][]float32, error) {
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
	url := fmt.Sprintf("%s/models/%s:batchEmbedContents?key=%s", baseURL, e.model, e.apiKey)

	requests := make([]map[string]any, len(texts))
	for i, text := range texts {
		req := map[string]any{
			"model": "models/" + e.model,
			"content": map[string]any{
				"parts": []map[string]any{{"text": text}},
			},
			"taskType": e.taskType,
		}
		if e.dims > 0 {
			req["outputDimensionality"] = e.dims
		}
		requests[i] = req
	}

	payload, err := json.Marshal(map[string]any{"requests": requests})
	if err != nil {
		return nil, e.wrapErr("marshal embed body: " + err.Error())
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(string(payload)))
	if err != nil {
		return nil, e.wrapErr("create embed request: " + err.Error())
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := e.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, e.wrapErr("embed request failed: " + err.Error())
	}
	respBody, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, e.wrapErr("failed to read embed response: " + err.Error())
	}
	e.logger.Debug("gemini embed", "model", e.model, "texts", len(texts), "status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, httpErr(resp, string(respBody))
	}

	var parsed batchEmbedResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, e.wrapErr("failed to parse embed response: " + err.Error())
	}
	if len(parsed.Embeddings) != len(texts) {
		return nil, e.wrapErr(fmt.Sprintf("expected %d embeddings, got %d", len(texts), len(parsed.Embeddings)))
	}

	vecs := make([][]float32, len(parsed.Embeddings))
	for i, emb := range parsed.Embeddings {
		if len(emb.Values) == 0 {
			return nil, e.wrapErr(fmt.Sprintf("missing values for embedding %d", i))
		}
		vec := make([]float32, len(emb.Values))
		for j, v := range emb.Values {
			vec[j] = float32(v)
		}
		vecs[i] = vec
	}
	return vecs, nil
}

func (e *Embedding) wrapErr(msg string) error {
	return &pdfvec.ErrProvider{Provider: "gemini", Message: msg}
}

// httpErr creates an ErrHTTP from an HTTP response, extracting the retry delay
// from the Retry-After header or from the Gemini-specific google.rpc.RetryInfo
// detail in the JSON error body.
func httpErr(resp *http.Response, body string) *pdfvec.ErrHTTP {
	ra := pdfvec.ParseRetryAfter(resp.Header.Get("Retry-After"))
	if ra == 0 {
		ra = parseRetryInfo(body)
	}
	return &pdfvec.ErrHTTP{
		Status:     resp.StatusCode,
		Body:       body,
		RetryAfter: ra,
	}
}

// parseRetryInfo extracts the retryDelay from a Gemini error body containing
// a google.rpc.RetryInfo detail. Returns 0 if not found or unparseable.
func parseRetryInfo(body string) time.Duration {
	var envelope struct {
		Error struct {
			Details []json.RawMessage `json:"details"`
		} `json:"error"`
	}
	if json.Unmarshal([]byte(body), &envelope) != nil {
		return 0
	}
	for _, raw := range envelope.Error.Details {
		var detail struct {
			Type       string `json:"@type"`
			RetryDelay string `json:"retryDelay"`
		}
		if json.Unmarshal(raw, &detail) != nil {
			continue
		}
		if detail.Type == "type.googleapis.com/google.rpc.RetryInfo" && detail.RetryDelay != "" {
			if d, err := time.ParseDuration(detail.RetryDelay); err == nil {
				return d
			}
		}
	}
	return 0
}

type batchEmbedResponse struct {
	Embeddings []embedValues `json:"embeddings"`
}

type embedValues struct {
	Values []float64 `json:"values"`
}
