package openai

import (
	"log/slog"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// tokenCounter counts cl100k_base tokens. The encoding is loaded on first
// use; if loading fails counting is disabled for the process.
type tokenCounter struct {
	once     sync.Once
	encoding *tiktoken.Tiktoken
	logger   *slog.Logger
}

func newTokenCounter(logger *slog.Logger) *tokenCounter {
	return &tokenCounter{logger: logger}
}

// count returns the token count of text, or false when no encoding is available.
func (c *tokenCounter) count(text string) (int, bool) {
	c.once.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			c.logger.Warn("token counting disabled", "error", err)
			return
		}
		c.encoding = enc
	})
	if c.encoding == nil {
		return 0, false
	}
	return len(c.encoding.Encode(text, nil, nil)), true
}
