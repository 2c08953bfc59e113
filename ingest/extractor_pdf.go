package ingest

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Compile-time interface check.
var _ Extractor = (*PDFExtractor)(nil)

// PDFExtractor extracts plain text from PDF documents page by page.
// Pages without a text layer (scanned images) contribute nothing, so an
// image-only PDF extracts to the empty string.
type PDFExtractor struct{}

// NewPDFExtractor creates a PDF extractor.
func NewPDFExtractor() *PDFExtractor { return &PDFExtractor{} }

// Extract joins the text of every page with a blank line.
func (e *PDFExtractor) Extract(content []byte) (string, error) {
	pages, err := e.Pages(content)
	if err != nil {
		return "", err
	}
	return strings.Join(pages, "\n\n"), nil
}

// Pages returns the trimmed text of each page that has any.
func (e *PDFExtractor) Pages(content []byte) (pages []string, err error) {
	if len(content) == 0 {
		return nil, errors.New("empty PDF content")
	}
	// The pdf reader panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("open pdf: malformed document: %v", r)
		}
	}()
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if text = strings.TrimSpace(text); text != "" {
			pages = append(pages, text)
		}
	}
	return pages, nil
}
