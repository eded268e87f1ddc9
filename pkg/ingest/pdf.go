package ingest

import (
	"bytes"
	"math"
	"sort"
	"strings"

	"github.com/athapong/pii-mcp/pkg/pii"
	"github.com/google/uuid"
	"github.com/ledongthuc/pdf"
	"github.com/pkg/errors"
)

const (
	defaultPageWidth  = 612
	defaultPageHeight = 792
)

// ParsePDF reads the text layer of a PDF. Text runs sharing a baseline are
// joined into one span per row. Coordinates are flipped so that y grows
// downwards like OCR output.
func ParsePDF(content []byte) (*pii.Document, error) {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, errors.Wrap(err, "open pdf")
	}

	doc := &pii.Document{ID: uuid.New().String()}
	totalPage := r.NumPage()

	for pageIndex := 1; pageIndex <= totalPage; pageIndex++ {
		p := r.Page(pageIndex)
		if p.V.IsNull() {
			continue
		}

		width, height := mediaBox(p)
		page := pii.Page{Number: pageIndex, Width: width, Height: height}
		page.Spans = pdfRows(p.Content().Text, pageIndex, height)
		doc.Pages = append(doc.Pages, page)
	}

	return doc, nil
}

func mediaBox(p pdf.Page) (float64, float64) {
	box := p.V.Key("MediaBox")
	if box.IsNull() || box.Len() != 4 {
		return defaultPageWidth, defaultPageHeight
	}
	width := box.Index(2).Float64() - box.Index(0).Float64()
	height := box.Index(3).Float64() - box.Index(1).Float64()
	if width <= 0 || height <= 0 {
		return defaultPageWidth, defaultPageHeight
	}
	return width, height
}

type pdfRow struct {
	y    float64
	runs []pdf.Text
	size float64
}

func pdfRows(texts []pdf.Text, pageNumber int, pageHeight float64) []pii.TextSpan {
	rows := make(map[int64]*pdfRow)
	var keys []int64
	for _, t := range texts {
		if t.S == "" {
			continue
		}
		key := int64(math.Round(t.Y))
		row, ok := rows[key]
		if !ok {
			row = &pdfRow{y: t.Y}
			rows[key] = row
			keys = append(keys, key)
		}
		row.runs = append(row.runs, t)
		if t.FontSize > row.size {
			row.size = t.FontSize
		}
	}

	// Top of page first
	sort.Slice(keys, func(i, j int) bool { return keys[i] > keys[j] })

	spans := make([]pii.TextSpan, 0, len(keys))
	for _, key := range keys {
		row := rows[key]
		sort.SliceStable(row.runs, func(i, j int) bool { return row.runs[i].X < row.runs[j].X })

		var sb strings.Builder
		x1, x2 := math.Inf(1), math.Inf(-1)
		for _, run := range row.runs {
			sb.WriteString(run.S)
			x1 = math.Min(x1, run.X)
			x2 = math.Max(x2, run.X+run.W)
		}
		text := strings.TrimSpace(sb.String())
		if text == "" {
			continue
		}

		top := pageHeight - row.y - row.size
		spans = append(spans, pii.TextSpan{
			ID:   uuid.New().String(),
			Text: text,
			BBox: pii.BBox{
				X1: x1,
				Y1: math.Max(0, top),
				X2: x2,
				Y2: pageHeight - row.y,
			},
			Page:          pageNumber,
			Language:      "en",
			OCRConfidence: 1.0,
		})
	}
	return spans
}
