package ingest

import (
	"bytes"
	"fmt"
	"io"
	"net/url"
	"path/filepath"
	"strings"

	readability "github.com/go-shiori/go-readability"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
	"golang.org/x/net/html"
)

// Extractor converts raw content to plain text.
type Extractor interface {
	Extract(content []byte) (string, error)
}

// ContentType identifies the MIME type of content for extraction.
type ContentType string

const (
	TypePlainText ContentType = "text/plain"
	TypeHTML      ContentType = "text/html"
	TypeMarkdown  ContentType = "text/markdown"
	TypePDF       ContentType = "application/pdf"
)

// ContentTypeFromExtension maps file extensions, with or without the
// leading dot, to content types. Unknown extensions are plain text.
func ContentTypeFromExtension(ext string) ContentType {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "md", "markdown":
		return TypeMarkdown
	case "html", "htm":
		return TypeHTML
	case "pdf":
		return TypePDF
	default:
		return TypePlainText
	}
}

// ContentTypeFromPath maps a file path to its content type.
func ContentTypeFromPath(path string) ContentType {
	return ContentTypeFromExtension(filepath.Ext(path))
}

// DefaultExtractors returns a fresh registry of the built-in extractors.
func DefaultExtractors() map[ContentType]Extractor {
	return map[ContentType]Extractor{
		TypePlainText: PlainTextExtractor{},
		TypeHTML:      HTMLExtractor{},
		TypeMarkdown:  MarkdownExtractor{},
		TypePDF:       NewPDFExtractor(),
	}
}

// --- Built-in extractors ---

// PlainTextExtractor returns content as-is.
type PlainTextExtractor struct{}

func (PlainTextExtractor) Extract(content []byte) (string, error) {
	return string(content), nil
}

// HTMLExtractor extracts the main article text with readability and falls
// back to the visible text of the whole page.
type HTMLExtractor struct{}

func (HTMLExtractor) Extract(content []byte) (string, error) {
	base, _ := url.Parse("file:///document.html")
	article, err := readability.FromReader(bytes.NewReader(content), base)
	if err == nil && strings.TrimSpace(article.TextContent) != "" {
		return strings.TrimSpace(article.TextContent), nil
	}
	return visibleText(bytes.NewReader(content))
}

// visibleText returns the text nodes of an HTML document outside script,
// style and other non-content elements, breaking lines at block elements.
func visibleText(r io.Reader) (string, error) {
	z := html.NewTokenizer(r)
	var b strings.Builder
	skip := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			if err := z.Err(); err != io.EOF {
				return "", fmt.Errorf("parse html: %w", err)
			}
			return tidyLines(b.String()), nil
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if hiddenTags[tag] {
				skip++
			} else if blockTags[tag] {
				b.WriteByte('\n')
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if hiddenTags[tag] && skip > 0 {
				skip--
			} else if blockTags[tag] {
				b.WriteByte('\n')
			}
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
			}
		}
	}
}

var hiddenTags = map[string]bool{
	"script": true, "style": true, "noscript": true, "template": true, "head": true,
}

var blockTags = map[string]bool{
	"p": true, "div": true, "br": true, "hr": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"li": true, "ul": true, "ol": true, "table": true, "tr": true,
	"blockquote": true, "pre": true, "section": true, "article": true,
	"header": true, "footer": true, "nav": true, "main": true,
}

// MarkdownExtractor renders markdown to plain text by walking the goldmark
// AST: formatting is dropped, link and image text kept, code kept verbatim,
// raw HTML dropped, and block elements separated by blank lines.
type MarkdownExtractor struct{}

var markdownParser = goldmark.New(
	goldmark.WithExtensions(extension.Strikethrough, extension.Table),
).Parser()

func (MarkdownExtractor) Extract(content []byte) (string, error) {
	doc := markdownParser.Parse(text.NewReader(content))
	var b strings.Builder
	err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			switch n.(type) {
			case *ast.Paragraph, *ast.Heading, *ast.ThematicBreak:
				b.WriteString("\n\n")
			case *ast.TextBlock, *extast.TableRow, *extast.TableHeader:
				b.WriteByte('\n')
			case *extast.TableCell:
				b.WriteByte('\t')
			case *ast.List, *ast.Blockquote, *extast.Table:
				b.WriteByte('\n')
			}
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Text:
			b.Write(node.Segment.Value(content))
			if node.HardLineBreak() {
				b.WriteByte('\n')
			} else if node.SoftLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(node.Value)
		case *ast.AutoLink:
			b.Write(node.Label(content))
			return ast.WalkSkipChildren, nil
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			lines := n.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				b.Write(seg.Value(content))
			}
			b.WriteString("\n\n")
			return ast.WalkSkipChildren, nil
		case *ast.HTMLBlock, *ast.RawHTML:
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return tidyLines(b.String()), nil
}

// compile-time checks
var (
	_ Extractor = PlainTextExtractor{}
	_ Extractor = HTMLExtractor{}
	_ Extractor = MarkdownExtractor{}
)
