package ingest

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// ErrInvalidChunkParams is returned for a non-positive chunk size or an
// overlap outside [0, chunk size).
var ErrInvalidChunkParams = errors.New("invalid chunk parameters")

// Chunker splits text into chunks suitable for embedding.
type Chunker interface {
	Chunk(text string) []string
}

// DefaultSeparators are tried in order: paragraph, line, word, character.
var DefaultSeparators = []string{"\n\n", "\n", " ", ""}

// --- ChunkerOption for configuring chunkers ---

// ChunkerOption configures a chunker implementation.
type ChunkerOption func(*chunkerConfig)

type chunkerConfig struct {
	chunkSize    int
	chunkOverlap int
	separators   []string
}

func defaultChunkerConfig() chunkerConfig {
	return chunkerConfig{chunkSize: 1000, chunkOverlap: 200, separators: DefaultSeparators}
}

// WithChunkSize sets the maximum chunk length in characters (default 1000).
func WithChunkSize(n int) ChunkerOption {
	return func(c *chunkerConfig) { c.chunkSize = n }
}

// WithChunkOverlap sets how many characters consecutive chunks share (default 200).
func WithChunkOverlap(n int) ChunkerOption {
	return func(c *chunkerConfig) { c.chunkOverlap = n }
}

// WithSeparators replaces the separator priority list. The empty separator
// is always appended if missing, so oversized words are still split.
func WithSeparators(seps ...string) ChunkerOption {
	return func(c *chunkerConfig) { c.separators = seps }
}

// --- RecursiveChunker ---

// RecursiveChunker splits text at the highest-priority separator present,
// merges the pieces into chunks of at most chunkSize characters, and recurses
// into pieces that are still too long with the remaining separators.
// Separators stay attached to the start of the piece that follows them.
// Consecutive chunks share up to chunkOverlap characters of trailing pieces.
//
// Lengths are counted in Unicode code points. Output is deterministic.
type RecursiveChunker struct {
	size       int
	overlap    int
	separators []string
}

// NewRecursiveChunker creates a RecursiveChunker with the given options.
func NewRecursiveChunker(opts ...ChunkerOption) (*RecursiveChunker, error) {
	cfg := defaultChunkerConfig()
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.chunkSize <= 0 || cfg.chunkOverlap < 0 || cfg.chunkOverlap >= cfg.chunkSize {
		return nil, fmt.Errorf("%w: size=%d overlap=%d", ErrInvalidChunkParams, cfg.chunkSize, cfg.chunkOverlap)
	}
	seps := make([]string, 0, len(cfg.separators)+1)
	for _, s := range cfg.separators {
		if s != "" {
			seps = append(seps, s)
		}
	}
	seps = append(seps, "")
	return &RecursiveChunker{size: cfg.chunkSize, overlap: cfg.chunkOverlap, separators: seps}, nil
}

// ChunkSize returns the configured maximum chunk length.
func (rc *RecursiveChunker) ChunkSize() int { return rc.size }

// ChunkOverlap returns the configured overlap.
func (rc *RecursiveChunker) ChunkOverlap() int { return rc.overlap }

// Chunk splits text into overlapping chunks. Empty or whitespace-only
// text yields no chunks.
func (rc *RecursiveChunker) Chunk(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return rc.split(text, rc.separators)
}

func (rc *RecursiveChunker) split(text string, separators []string) []string {
	sep := separators[len(separators)-1]
	var next []string
	for i, s := range separators {
		if s == "" {
			sep = ""
			break
		}
		if strings.Contains(text, s) {
			sep = s
			next = separators[i+1:]
			break
		}
	}

	var chunks, good []string
	for _, s := range splitKeep(text, sep) {
		if runeLen(s) < rc.size {
			good = append(good, s)
			continue
		}
		if len(good) > 0 {
			chunks = append(chunks, rc.merge(good)...)
			good = nil
		}
		if len(next) == 0 {
			if t := strings.TrimSpace(s); t != "" {
				chunks = append(chunks, t)
			}
		} else {
			chunks = append(chunks, rc.split(s, next)...)
		}
	}
	if len(good) > 0 {
		chunks = append(chunks, rc.merge(good)...)
	}
	return chunks
}

// merge packs pieces into chunks of at most rc.size characters. When a chunk
// is emitted, leading pieces are dropped until at most rc.overlap characters
// remain; those carry over into the next chunk.
func (rc *RecursiveChunker) merge(pieces []string) []string {
	var (
		chunks  []string
		current []string
		total   int
	)
	for _, p := range pieces {
		n := runeLen(p)
		if total+n > rc.size {
			if len(current) > 0 {
				if c := strings.TrimSpace(strings.Join(current, "")); c != "" {
					chunks = append(chunks, c)
				}
				for total > rc.overlap || (total+n > rc.size && total > 0) {
					total -= runeLen(current[0])
					current = current[1:]
				}
			}
		}
		current = append(current, p)
		total += n
	}
	if c := strings.TrimSpace(strings.Join(current, "")); c != "" {
		chunks = append(chunks, c)
	}
	return chunks
}

// splitKeep splits text on sep, keeping each separator at the start of the
// piece that follows it. Empty pieces are dropped. An empty sep splits into
// single code points.
func splitKeep(text, sep string) []string {
	if sep == "" {
		out := make([]string, 0, utf8.RuneCountInString(text))
		for _, r := range text {
			out = append(out, string(r))
		}
		return out
	}
	parts := strings.Split(text, sep)
	out := make([]string, 0, len(parts))
	if parts[0] != "" {
		out = append(out, parts[0])
	}
	for _, p := range parts[1:] {
		out = append(out, sep+p)
	}
	return out
}

func runeLen(s string) int { return utf8.RuneCountInString(s) }
