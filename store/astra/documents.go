package astra

import (
	"context"
	"errors"
	"fmt"

	pdfvec "github.com/nevindra/pdfvec"
)

// maxInsert is the Data API limit of documents per insertMany.
const maxInsert = 100

// InsertMany inserts records with an unordered insertMany. Records whose id
// already exists are replaced one by one under DuplicateUpsert and reported
// as ErrDuplicateID under DuplicateReject.
func (s *Store) InsertMany(ctx context.Context, collection string, records []pdfvec.ChunkRecord, policy pdfvec.DuplicatePolicy) (pdfvec.InsertResult, error) {
	var result pdfvec.InsertResult
	if len(records) == 0 {
		return result, nil
	}
	if len(records) > maxInsert {
		return result, fmt.Errorf("astra: insert %d records: at most %d per call", len(records), maxInsert)
	}

	docs := make([]document, len(records))
	byID := make(map[string]document, len(records))
	for i, r := range records {
		docs[i] = toDocument(r)
		byID[r.ID] = docs[i]
	}

	cmd := map[string]any{"insertMany": map[string]any{
		"documents": docs,
		"options":   map[string]any{"ordered": false, "returnDocumentResponses": true},
	}}
	resp, err := s.command(ctx, collection, cmd)
	if err != nil {
		return result, fmt.Errorf("astra: insert many: %w", err)
	}
	var st insertManyStatus
	if err := resp.status(&st); err != nil {
		return result, fmt.Errorf("astra: decode insert status: %w", err)
	}

	if len(st.DocumentResponses) == 0 {
		// Older API versions report only the inserted ids.
		result.Inserted = len(st.InsertedIDs)
		if err := resp.err(); err != nil {
			return result, fmt.Errorf("astra: insert many: %w", err)
		}
		return result, nil
	}

	for _, dr := range st.DocumentResponses {
		id := idString(dr.ID)
		switch dr.Status {
		case "OK":
			result.Inserted++
			continue
		case "SKIPPED":
			result.Rejected = append(result.Rejected, pdfvec.RecordError{ID: id, Err: errors.New("skipped by server")})
			continue
		}

		apiErr := firstError(resp.Errors, dr.ErrorsIdx)
		if apiErr.Code != codeDocumentExists {
			result.Rejected = append(result.Rejected, pdfvec.RecordError{ID: id, Err: apiErr})
			continue
		}
		if policy == pdfvec.DuplicateReject {
			result.Rejected = append(result.Rejected, pdfvec.RecordError{ID: id, Err: fmt.Errorf("%w: %w", pdfvec.ErrDuplicateID, apiErr)})
			continue
		}
		if err := s.replace(ctx, collection, byID[id]); err != nil {
			result.Rejected = append(result.Rejected, pdfvec.RecordError{ID: id, Err: err})
			continue
		}
		result.Replaced++
	}

	if err := result.Err(); err != nil {
		return result, fmt.Errorf("astra: insert many: %d of %d records rejected: %w", len(result.Rejected), len(records), err)
	}
	return result, nil
}

// replace overwrites the document with the same _id, creating it if it
// vanished in the meantime.
func (s *Store) replace(ctx context.Context, collection string, doc document) error {
	cmd := map[string]any{"findOneAndReplace": map[string]any{
		"filter":      map[string]any{"_id": doc.ID},
		"replacement": doc,
		"options":     map[string]any{"upsert": true},
	}}
	resp, err := s.command(ctx, collection, cmd)
	if err != nil {
		return fmt.Errorf("replace %s: %w", doc.ID, err)
	}
	if err := resp.err(); err != nil {
		return fmt.Errorf("replace %s: %w", doc.ID, err)
	}
	return nil
}

// Search runs a vector-sorted find. A text query sorts by $vectorize, a
// vector query by $vector.
func (s *Store) Search(ctx context.Context, collection string, q pdfvec.SearchQuery) ([]pdfvec.Match, error) {
	var sort, projection map[string]any
	switch {
	case q.Text != "" && q.Vector == nil:
		sort = map[string]any{"$vectorize": q.Text}
		projection = map[string]any{"*": 1}
	case len(q.Vector) > 0:
		sort = map[string]any{"$vector": q.Vector}
		projection = map[string]any{"$vector": 0}
	default:
		return nil, errors.New("astra: search needs query text or vector")
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 5
	}

	cmd := map[string]any{"find": map[string]any{
		"sort":       sort,
		"projection": projection,
		"options":    map[string]any{"limit": limit, "includeSimilarity": true},
	}}
	resp, err := s.command(ctx, collection, cmd)
	if err != nil {
		return nil, fmt.Errorf("astra: find: %w", err)
	}
	if err := resp.err(); err != nil {
		return nil, fmt.Errorf("astra: find: %w", err)
	}
	if resp.Data == nil {
		return nil, nil
	}

	matches := make([]pdfvec.Match, 0, len(resp.Data.Documents))
	for _, d := range resp.Data.Documents {
		m := pdfvec.Match{Record: d.record()}
		if d.Similarity != nil {
			m.Similarity = *d.Similarity
			m.HasSimilarity = true
		}
		matches = append(matches, m)
	}
	return matches, nil
}

func toDocument(r pdfvec.ChunkRecord) document {
	d := document{
		ID:          r.ID,
		Source:      r.SourceID,
		ChunkID:     r.SequenceIndex,
		TotalChunks: r.TotalChunks,
	}
	if r.Embedding != nil {
		d.Text = r.Text
		d.Vector = r.Embedding
	} else {
		d.Vectorize = r.Text
	}
	return d
}

func (d document) record() pdfvec.ChunkRecord {
	source, chunkID, total := d.Source, d.ChunkID, d.TotalChunks
	if source == "" && d.Metadata != nil {
		source, chunkID, total = d.Metadata.Source, d.Metadata.ChunkID, d.Metadata.TotalChunks
	}
	text := d.Text
	if text == "" {
		text = d.Vectorize
	}
	return pdfvec.ChunkRecord{
		ID: d.ID,
		Chunk: pdfvec.Chunk{
			SourceID:      source,
			SequenceIndex: chunkID,
			Text:          text,
			TotalChunks:   total,
		},
	}
}

// firstError returns the first error referenced by idx, or a generic error.
func firstError(errs []APIError, idx []int) *APIError {
	for _, i := range idx {
		if i >= 0 && i < len(errs) {
			return &errs[i]
		}
	}
	return &APIError{Message: "document rejected without error detail"}
}
