// Package astra implements pdfvec.VectorStore on the Astra DB Data API.
//
// Collections are vector-enabled Data API collections. In delegated mode
// chunk text is written to $vectorize and embedded by the collection's
// vectorize service; in local mode the precomputed embedding goes to $vector.
package astra

import (
	"bytes"
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

const (
	// DefaultKeyspace is the keyspace every new Astra database starts with.
	DefaultKeyspace = "default_keyspace"

	// DefaultVectorizeProvider and DefaultVectorizeModel are the vectorize
	// service used for delegated collections unless overridden.
	DefaultVectorizeProvider = "nvidia"
	DefaultVectorizeModel    = "NV-Embed-QA"

	apiPath = "/api/json/v1"
)

// Store is an Astra DB Data API client.
type Store struct {
	endpoint   string
	token      string
	keyspace   string
	httpClient *http.Client
	logger     *slog.Logger

	vectorizeProvider string
	vectorizeModel    string
}

var _ pdfvec.VectorStore = (*Store)(nil)

// New creates a Store for the database at endpoint
// (https://<db-id>-<region>.apps.astra.datastax.com) authenticated by token.
func New(endpoint, token string, opts ...Option) *Store {
	s := &Store{
		endpoint:          strings.TrimRight(endpoint, "/"),
		token:             token,
		keyspace:          DefaultKeyspace,
		httpClient:        &http.Client{Timeout: 60 * time.Second},
		vectorizeProvider: DefaultVectorizeProvider,
		vectorizeModel:    DefaultVectorizeModel,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	return s
}

// Name returns "astra".
func (s *Store) Name() string { return "astra" }

// Close releases idle HTTP connections.
func (s *Store) Close() error {
	s.httpClient.CloseIdleConnections()
	return nil
}

// command POSTs one Data API command. collection may be empty for
// keyspace-level commands. Transport failures and non-2xx statuses are
// returned as errors; command-level errors are left in the response.
func (s *Store) command(ctx context.Context, collection string, cmd any) (*response, error) {
	payload, err := json.Marshal(cmd)
	if err != nil {
		return nil, &pdfvec.ErrProvider{Provider: "astra", Message: "marshal command: " + err.Error()}
	}

	url := s.endpoint + apiPath + "/" + s.keyspace
	if collection != "" {
		url += "/" + collection
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, &pdfvec.ErrProvider{Provider: "astra", Message: "create request: " + err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Token", s.token)
	req.Header.Set("User-Agent", "pdfvec")

	start := time.Now()
	resp, err := s.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &pdfvec.ErrProvider{Provider: "astra", Message: "request failed: " + err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &pdfvec.ErrProvider{Provider: "astra", Message: "read response: " + err.Error()}
	}
	s.logger.Debug("astra command",
		"command", commandName(cmd),
		"collection", collection,
		"status", resp.StatusCode,
		"duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, httpErr(resp, string(body))
	}

	var out response
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, &pdfvec.ErrProvider{Provider: "astra", Message: "decode response: " + err.Error()}
	}
	return &out, nil
}

func httpErr(resp *http.Response, body string) *pdfvec.ErrHTTP {
	return &pdfvec.ErrHTTP{
		Status:     resp.StatusCode,
		Body:       body,
		RetryAfter: pdfvec.ParseRetryAfter(resp.Header.Get("Retry-After")),
	}
}

// commandName returns the single top-level key of a command object.
func commandName(cmd any) string {
	if m, ok := cmd.(map[string]any); ok {
		for k := range m {
			return k
		}
	}
	return fmt.Sprintf("%T", cmd)
}
