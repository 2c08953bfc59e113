package ingest

import (
	"errors"
	"fmt"
	"time"

	pdfvec "github.com/nevindra/pdfvec"
)

// BatchError is the failure of one batch submission. It is recorded in the
// Summary and never aborts the run.
type BatchError struct {
	Batch int // 0-based batch index
	Size  int
	Err   error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("batch %d (%d records): %v", e.Batch, e.Size, e.Err)
}

func (e *BatchError) Unwrap() error { return e.Err }

// BatchResult is the outcome of one batch.
type BatchResult struct {
	Index int
	Size  int
	// Inserted and Replaced count records the store accepted, which may be
	// non-zero for a failed batch when the store reports per-record errors.
	Inserted int
	Replaced int
	Duration time.Duration
	Err      *BatchError
}

// OK reports whether the whole batch was stored.
func (b BatchResult) OK() bool { return b.Err == nil }

// Summary reports an ingestion run.
type Summary struct {
	SourceID   string
	Collection string
	Mode       pdfvec.EmbeddingMode
	// TextLength is the character count of the normalised document text.
	// It is zero when chunks were supplied directly to Ingestor.Ingest.
	TextLength  int
	TotalChunks int
	// Submitted counts records handed to the store, including those of
	// batches that failed during submission.
	Submitted int
	Inserted  int
	Replaced  int
	Batches   []BatchResult
	Duration  time.Duration
}

// Stored returns the number of records persisted by the run.
func (s Summary) Stored() int { return s.Inserted + s.Replaced }

// SucceededBatches counts batches stored without error.
func (s Summary) SucceededBatches() int {
	n := 0
	for _, b := range s.Batches {
		if b.OK() {
			n++
		}
	}
	return n
}

// FailedBatches counts batches with an error.
func (s Summary) FailedBatches() int { return len(s.Batches) - s.SucceededBatches() }

// Failures returns the first error of every failed batch, in batch order.
func (s Summary) Failures() []*BatchError {
	var out []*BatchError
	for _, b := range s.Batches {
		if b.Err != nil {
			out = append(out, b.Err)
		}
	}
	return out
}

// Err joins the batch failures, or returns nil if every batch succeeded.
func (s Summary) Err() error {
	failures := s.Failures()
	if len(failures) == 0 {
		return nil
	}
	errs := make([]error, len(failures))
	for i, f := range failures {
		errs[i] = f
	}
	return errors.Join(errs...)
}
