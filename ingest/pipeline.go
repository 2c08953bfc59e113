package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	pdfvec "github.com/nevindra/pdfvec"
)

// Pipeline runs a document end to end: extract, normalise, chunk, ingest.
type Pipeline struct {
	chunker    Chunker
	ingestor   *Ingestor
	extractors map[ContentType]Extractor
	sourceID   string
	logger     *slog.Logger
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithSourceID overrides the source id, which defaults to the file's base name.
func WithSourceID(id string) PipelineOption {
	return func(p *Pipeline) { p.sourceID = id }
}

// WithExtractor registers an Extractor for a given ContentType.
func WithExtractor(ct ContentType, e Extractor) PipelineOption {
	return func(p *Pipeline) { p.extractors[ct] = e }
}

// WithPipelineLogger sets the structured logger.
func WithPipelineLogger(l *slog.Logger) PipelineOption {
	return func(p *Pipeline) { p.logger = l }
}

// NewPipeline creates a Pipeline with the built-in extractors.
func NewPipeline(chunker Chunker, ing *Ingestor, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		chunker:    chunker,
		ingestor:   ing,
		extractors: DefaultExtractors(),
	}
	for _, o := range opts {
		o(p)
	}
	if p.logger == nil {
		p.logger = slog.New(slog.DiscardHandler)
	}
	return p
}

// IngestFile reads the file at path and ingests it into collection.
func (p *Pipeline) IngestFile(ctx context.Context, path, collection string) (Summary, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Summary{}, fmt.Errorf("read %s: %w", path, err)
	}
	return p.IngestBytes(ctx, content, path, collection)
}

// IngestBytes extracts text from content, choosing the extractor by the
// extension of name, and ingests it. Documents without extractable text
// fail with *pdfvec.ExtractionError before any remote call.
func (p *Pipeline) IngestBytes(ctx context.Context, content []byte, name, collection string) (Summary, error) {
	source := p.source(name)
	ct := ContentTypeFromPath(name)
	extractor, ok := p.extractors[ct]
	if !ok {
		extractor = PlainTextExtractor{}
	}

	text, err := extractor.Extract(content)
	if err != nil {
		return Summary{SourceID: source, Collection: collection}, &pdfvec.ExtractionError{Source: source, Err: err}
	}
	p.logger.Info("text extracted",
		"source", source,
		"content_type", ct,
		"bytes", len(content))
	return p.IngestText(ctx, text, source, collection)
}

// IngestText normalises and chunks already-extracted text and ingests it
// as sourceID.
func (p *Pipeline) IngestText(ctx context.Context, text, sourceID, collection string) (Summary, error) {
	text = Normalize(text)
	summary := Summary{SourceID: sourceID, Collection: collection, TextLength: utf8.RuneCountInString(text)}
	if strings.TrimSpace(text) == "" {
		return summary, &pdfvec.ExtractionError{Source: sourceID, Err: pdfvec.ErrNoText}
	}

	chunks := p.chunker.Chunk(text)
	p.logger.Info("text chunked",
		"source", sourceID,
		"characters", summary.TextLength,
		"chunks", len(chunks))

	result, err := p.ingestor.Ingest(ctx, chunks, sourceID, collection)
	result.TextLength = summary.TextLength
	return result, err
}

func (p *Pipeline) source(name string) string {
	if p.sourceID != "" {
		return p.sourceID
	}
	return filepath.Base(name)
}
