package ingest

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"crlf", "a\r\nb\rc", "a\nb\nc"},
		{"ligature", "ﬁnal ﬂow", "final flow"},
		{"combining", "Cafe\u0301", "Caf\u00e9"},
		{"zero width", "zero\u200bwidth\ufeff", "zerowidth"},
		{"control", "tab\there\x00nul", "tab\there nul"},
		{"blank lines", "\n\npara one  \n\n\n\n\npara two\n\n", "para one\n\npara two"},
		{"trailing spaces", "line one   \nline two\t", "line one\nline two"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestNormalizeInvalidUTF8(t *testing.T) {
	out := Normalize("ok\xff\xfeok")
	assert.True(t, utf8.ValidString(out))
	assert.Contains(t, out, "\uFFFD")
}

func TestNormalizeWhitespaceOnly(t *testing.T) {
	assert.Empty(t, Normalize(" \n\t\r\n \u200b "))
}
