package ingest

import (
	"bufio"
	"bytes"
	"os"
	"path/filepath"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/PuerkitoBio/goquery"
	"github.com/athapong/pii-mcp/pkg/pii"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// SupportedExtensions lists the file types LoadFile understands
var SupportedExtensions = map[string]bool{
	".json": true, ".hocr": true, ".html": true, ".htm": true, ".pdf": true, ".txt": true, ".md": true,
}

// LoadFile reads a document from disk, choosing the parser by extension.
// HTML that is not hOCR is reduced to its readable text first.
func LoadFile(path string) (*pii.Document, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}

	ext := strings.ToLower(filepath.Ext(path))
	var doc *pii.Document
	switch ext {
	case ".json":
		doc, err = DecodeDocument(bytes.NewReader(content))
	case ".pdf":
		doc, err = ParsePDF(content)
	case ".hocr", ".html", ".htm":
		doc, err = ParseHTML(content)
	case ".txt", ".md":
		doc = ParseText(string(content))
	default:
		return nil, errors.Errorf("unsupported file type %q", ext)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "parse %s", path)
	}
	return doc, nil
}

// ParseHTML parses hOCR when line markup is present and otherwise converts
// the page to markdown and treats each line as a span.
func ParseHTML(content []byte) (*pii.Document, error) {
	html, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create document from HTML content")
	}
	if IsHOCR(html) {
		return hocrDocument(html), nil
	}

	markdown, err := htmltomarkdown.ConvertString(string(content))
	if err != nil {
		return nil, errors.Wrap(err, "failed to convert HTML to Markdown")
	}
	return ParseText(markdown), nil
}

// ParseText turns plain text into a single page with one span per
// non-empty line. Spans carry no geometry.
func ParseText(text string) *pii.Document {
	page := pii.Page{Number: 1}
	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		page.Spans = append(page.Spans, SpanFromText(line, 1))
	}
	return &pii.Document{
		ID:    uuid.New().String(),
		Pages: []pii.Page{page},
	}
}
