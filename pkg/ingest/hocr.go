package ingest

import (
	"io"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/athapong/pii-mcp/pkg/pii"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const hocrLineSelector = ".ocr_line, .ocr_header, .ocr_caption, .ocr_textfloat"

// IsHOCR reports whether an HTML document carries hOCR line markup
func IsHOCR(doc *goquery.Document) bool {
	return doc.Find(hocrLineSelector).Length() > 0
}

// ParseHOCR converts OCR engine hOCR output into a document. Every line
// becomes a span; its confidence is the mean word confidence.
func ParseHOCR(r io.Reader) (*pii.Document, error) {
	html, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create document from hOCR content")
	}
	return hocrDocument(html), nil
}

func hocrDocument(html *goquery.Document) *pii.Document {
	doc := &pii.Document{ID: uuid.New().String()}

	pages := html.Find(".ocr_page")
	if pages.Length() == 0 {
		page := pii.Page{Number: 1}
		page.Spans = hocrSpans(html.Selection, 1)
		doc.Pages = append(doc.Pages, page)
		return doc
	}

	pages.Each(func(i int, s *goquery.Selection) {
		title, _ := s.Attr("title")
		props := parseTitle(title)

		page := pii.Page{Number: i + 1}
		if n, ok := props["ppageno"]; ok && len(n) == 1 {
			if v, err := strconv.Atoi(n[0]); err == nil {
				page.Number = v + 1
			}
		}
		if box, ok := bboxProp(props); ok {
			page.Width, page.Height = box.X2, box.Y2
		}
		page.Spans = hocrSpans(s, page.Number)
		doc.Pages = append(doc.Pages, page)
	})
	return doc
}

func hocrSpans(root *goquery.Selection, pageNumber int) []pii.TextSpan {
	var spans []pii.TextSpan
	root.Find(hocrLineSelector).Each(func(_ int, line *goquery.Selection) {
		title, _ := line.Attr("title")
		props := parseTitle(title)

		var words []string
		var confSum float64
		var confCount int
		line.Find(".ocrx_word").Each(func(_ int, word *goquery.Selection) {
			text := strings.TrimSpace(word.Text())
			if text == "" {
				return
			}
			words = append(words, text)
			wtitle, _ := word.Attr("title")
			if c, ok := parseTitle(wtitle)["x_wconf"]; ok && len(c) == 1 {
				if v, err := strconv.ParseFloat(c[0], 64); err == nil {
					confSum += v
					confCount++
				}
			}
		})

		text := strings.Join(words, " ")
		if len(words) == 0 {
			text = strings.Join(strings.Fields(line.Text()), " ")
		}
		if text == "" {
			return
		}

		span := pii.TextSpan{
			ID:            uuid.New().String(),
			Text:          text,
			Page:          pageNumber,
			Language:      "en",
			OCRConfidence: 1.0,
		}
		if id, ok := line.Attr("id"); ok && id != "" {
			span.ID = id
		}
		if lang, ok := line.Attr("lang"); ok && lang != "" {
			span.Language = lang
		}
		if box, ok := bboxProp(props); ok {
			span.BBox = box
		}
		if confCount > 0 {
			span.OCRConfidence = confSum / float64(confCount) / 100
		}
		spans = append(spans, span)
	})
	return spans
}

// parseTitle splits an hOCR title attribute such as
// "bbox 10 20 30 40; x_wconf 93" into its properties.
func parseTitle(title string) map[string][]string {
	props := make(map[string][]string)
	for _, part := range strings.Split(title, ";") {
		fields := strings.Fields(part)
		if len(fields) == 0 {
			continue
		}
		props[fields[0]] = fields[1:]
	}
	return props
}

func bboxProp(props map[string][]string) (pii.BBox, bool) {
	coords, ok := props["bbox"]
	if !ok || len(coords) != 4 {
		return pii.BBox{}, false
	}
	var v [4]float64
	for i, c := range coords {
		f, err := strconv.ParseFloat(c, 64)
		if err != nil {
			return pii.BBox{}, false
		}
		v[i] = f
	}
	return pii.BBox{X1: v[0], Y1: v[1], X2: v[2], Y2: v[3]}, true
}
