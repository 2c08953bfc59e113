package pdfvec

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrNoText means a document produced no embeddable text.
	ErrNoText = errors.New("no extractable text")
	// ErrDuplicateID means a record id already exists and the policy is DuplicateReject.
	ErrDuplicateID = errors.New("duplicate record id")
	// ErrUnsupportedMode means a store cannot serve the requested embedding mode.
	ErrUnsupportedMode = errors.New("unsupported embedding mode")
	// ErrDimensionMismatch means an embedding length differs from the expected dimension.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	// ErrInvalidCollection means a collection name is not accepted.
	ErrInvalidCollection = errors.New("invalid collection name")
)

// ConfigError reports missing or invalid startup configuration.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}

// ExtractionError means no usable text came out of a document.
type ExtractionError struct {
	Source string
	Err    error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.Source, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// QueryError is a search failure. It is never used for an empty result set.
type QueryError struct {
	Collection string
	Err        error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query %s: %v", e.Collection, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// ErrProvider is a failure inside a remote provider client that is not an
// HTTP status error: request building, transport, or response decoding.
type ErrProvider struct {
	Provider string
	Message  string
}

func (e *ErrProvider) Error() string {
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

// ErrHTTP is a non-2xx response from a remote API.
type ErrHTTP struct {
	Status int
	Body   string
	// RetryAfter is the server-requested wait, 0 if absent.
	RetryAfter time.Duration
}

func (e *ErrHTTP) Error() string {
	return fmt.Sprintf("http %d: %s", e.Status, e.Body)
}

// ParseRetryAfter parses a Retry-After header given in seconds or as an
// HTTP date. It returns 0 when the value is missing or malformed.
func ParseRetryAfter(v string) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}
