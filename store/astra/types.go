package astra

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Data API error codes this package reacts to.
const (
	codeDocumentExists = "DOCUMENT_ALREADY_EXISTS"
)

// APIError is a command-level error reported by the Data API, usually
// alongside HTTP 200.
type APIError struct {
	Code    string `json:"errorCode"`
	Message string `json:"message"`
	ID      string `json:"id,omitempty"`
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return "astra: " + e.Message
	}
	return fmt.Sprintf("astra: %s: %s", e.Code, e.Message)
}

// response is the envelope of every Data API reply.
type response struct {
	Status json.RawMessage `json:"status,omitempty"`
	Data   *responseData   `json:"data,omitempty"`
	Errors []APIError      `json:"errors,omitempty"`
}

type responseData struct {
	Documents []document `json:"documents"`
}

// err joins the command errors, or returns nil.
func (r *response) err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	errs := make([]error, len(r.Errors))
	for i := range r.Errors {
		errs[i] = &r.Errors[i]
	}
	return errors.Join(errs...)
}

// status decodes the status object into v. A missing status leaves v untouched.
func (r *response) status(v any) error {
	if len(r.Status) == 0 {
		return nil
	}
	return json.Unmarshal(r.Status, v)
}

type findCollectionsStatus struct {
	Collections []string `json:"collections"`
}

type insertManyStatus struct {
	InsertedIDs       []json.RawMessage  `json:"insertedIds"`
	DocumentResponses []documentResponse `json:"documentResponses"`
}

type documentResponse struct {
	ID        json.RawMessage `json:"_id"`
	Status    string          `json:"status"`
	ErrorsIdx []int           `json:"errorsIdx,omitempty"`
}

// document is a chunk record as stored in a collection.
type document struct {
	ID          string    `json:"_id"`
	Source      string    `json:"source"`
	ChunkID     int       `json:"chunk_id"`
	TotalChunks int       `json:"total_chunks"`
	Text        string    `json:"text,omitempty"`
	Vectorize   string    `json:"$vectorize,omitempty"`
	Vector      []float32 `json:"$vector,omitempty"`
	Similarity  *float64  `json:"$similarity,omitempty"`
	// Metadata holds the fields of documents written with a nested layout.
	Metadata *legacyMetadata `json:"metadata,omitempty"`
}

type legacyMetadata struct {
	Source      string `json:"source"`
	ChunkID     int    `json:"chunk_id"`
	TotalChunks int    `json:"total_chunks"`
}

// idString decodes a document id, which the Data API may return as a
// JSON string or as another JSON value.
func idString(raw json.RawMessage) string {
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	return string(raw)
}
