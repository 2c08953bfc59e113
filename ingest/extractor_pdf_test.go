package ingest

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildPDF assembles a minimal PDF with one Helvetica text line per page.
// An empty page string produces a page without text operators.
func buildPDF(pages ...string) []byte {
	n := len(pages)
	// Object layout: 1 catalog, 2 pages, 3 font, then (page, content) pairs.
	objs := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"",
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
	}
	kids := ""
	for i, text := range pages {
		pageNum := 4 + 2*i
		kids += fmt.Sprintf("%d 0 R ", pageNum)
		stream := "q Q"
		if text != "" {
			stream = fmt.Sprintf("BT /F1 12 Tf 72 720 Td (%s) Tj ET", text)
		}
		objs = append(objs,
			fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", pageNum+1),
			fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream),
		)
	}
	objs[1] = fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", kids, n)

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objs))
	for i, body := range objs {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, body)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objs)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objs)+1, xref)
	return buf.Bytes()
}

func TestPDFExtractEmptyContent(t *testing.T) {
	_, err := NewPDFExtractor().Extract(nil)
	assert.Error(t, err)
}

func TestPDFExtractGarbage(t *testing.T) {
	_, err := NewPDFExtractor().Extract([]byte("definitely not a pdf"))
	assert.Error(t, err)
}

func TestPDFExtractPages(t *testing.T) {
	doc := buildPDF("Hello World", "Second page")
	pages, err := NewPDFExtractor().Pages(doc)
	require.NoError(t, err)
	require.Len(t, pages, 2)
	assert.Contains(t, pages[0], "Hello World")
	assert.Contains(t, pages[1], "Second page")

	text, err := NewPDFExtractor().Extract(doc)
	require.NoError(t, err)
	assert.Contains(t, text, "\n\n")
}

func TestPDFExtractImageOnlyIsEmpty(t *testing.T) {
	text, err := NewPDFExtractor().Extract(buildPDF("", ""))
	require.NoError(t, err)
	assert.Empty(t, text)
}
