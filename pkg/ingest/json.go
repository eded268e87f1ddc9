package ingest

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/athapong/pii-mcp/pkg/pii"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

type rawSpan struct {
	ID            string          `json:"span_id"`
	Text          string          `json:"text"`
	BBox          json.RawMessage `json:"bbox"`
	Page          int             `json:"page_no"`
	Language      string          `json:"language"`
	OCRConfidence *float64        `json:"ocr_confidence"`
}

type rawPage struct {
	Number int       `json:"page_no"`
	Width  float64   `json:"width"`
	Height float64   `json:"height"`
	Size   []float64 `json:"page_size"`
	Spans  []rawSpan `json:"spans"`
}

type rawDocument struct {
	ID    string    `json:"document_id"`
	Pages []rawPage `json:"pages"`
	Spans []rawSpan `json:"spans"`
}

// DecodeDocument reads a document in JSON form. Three shapes are accepted:
// an object with pages, an object with a flat span list, or a bare span
// array.
func DecodeDocument(r io.Reader) (*pii.Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "read document")
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, errors.New("empty document")
	}

	var raw rawDocument
	if data[0] == '[' {
		if err := json.Unmarshal(data, &raw.Spans); err != nil {
			return nil, errors.Wrap(err, "decode span list")
		}
	} else if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(err, "decode document")
	}

	doc := &pii.Document{ID: raw.ID}
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}

	for _, rp := range raw.Pages {
		page := pii.Page{Number: rp.Number, Width: rp.Width, Height: rp.Height}
		if len(rp.Size) == 2 && page.Width == 0 && page.Height == 0 {
			page.Width, page.Height = rp.Size[0], rp.Size[1]
		}
		if page.Number == 0 {
			page.Number = len(doc.Pages) + 1
		}
		for _, rs := range rp.Spans {
			span, err := rs.toSpan(page.Number)
			if err != nil {
				return nil, err
			}
			page.Spans = append(page.Spans, span)
		}
		doc.Pages = append(doc.Pages, page)
	}

	if len(raw.Spans) > 0 {
		if err := appendFlatSpans(doc, raw.Spans); err != nil {
			return nil, err
		}
	}

	return doc, nil
}

// appendFlatSpans groups spans by page number, keeping first-seen page order
func appendFlatSpans(doc *pii.Document, spans []rawSpan) error {
	index := make(map[int]int)
	for i, page := range doc.Pages {
		index[page.Number] = i
	}
	for _, rs := range spans {
		number := rs.Page
		if number == 0 {
			number = 1
		}
		span, err := rs.toSpan(number)
		if err != nil {
			return err
		}
		i, ok := index[number]
		if !ok {
			doc.Pages = append(doc.Pages, pii.Page{Number: number})
			i = len(doc.Pages) - 1
			index[number] = i
		}
		doc.Pages[i].Spans = append(doc.Pages[i].Spans, span)
	}
	return nil
}

func (rs rawSpan) toSpan(pageNumber int) (pii.TextSpan, error) {
	span := pii.TextSpan{
		ID:            rs.ID,
		Text:          rs.Text,
		Page:          rs.Page,
		Language:      rs.Language,
		OCRConfidence: 1.0,
	}
	if span.ID == "" {
		span.ID = uuid.New().String()
	}
	if span.Page == 0 {
		span.Page = pageNumber
	}
	if span.Language == "" {
		span.Language = "en"
	}
	if rs.OCRConfidence != nil {
		span.OCRConfidence = *rs.OCRConfidence
	}
	bbox, err := decodeBBox(rs.BBox)
	if err != nil {
		return pii.TextSpan{}, errors.Wrapf(err, "span %s", span.ID)
	}
	span.BBox = bbox
	return span, nil
}

// decodeBBox accepts either [x1,y1,x2,y2] or {"x1":..,"y1":..,"x2":..,"y2":..}
func decodeBBox(raw json.RawMessage) (pii.BBox, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return pii.BBox{}, nil
	}
	if raw[0] == '{' {
		var box pii.BBox
		if err := json.Unmarshal(raw, &box); err != nil {
			return pii.BBox{}, errors.Wrap(err, "decode bbox")
		}
		return box, nil
	}
	var coords []float64
	if err := json.Unmarshal(raw, &coords); err != nil {
		return pii.BBox{}, errors.Wrap(err, "decode bbox")
	}
	if len(coords) != 4 {
		return pii.BBox{}, errors.Errorf("bbox must have 4 coordinates, got %d", len(coords))
	}
	return pii.BBox{X1: coords[0], Y1: coords[1], X2: coords[2], Y2: coords[3]}, nil
}

// SpanFromText builds a span with a fresh id, useful for inline text
func SpanFromText(text string, page int) pii.TextSpan {
	return pii.TextSpan{
		ID:            uuid.New().String(),
		Text:          text,
		Page:          page,
		Language:      "en",
		OCRConfidence: 1.0,
	}
}
