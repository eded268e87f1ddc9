package recognizers

import (
	"context"
	"regexp"
	"strings"
	"sync"
	"unicode"

	"github.com/athapong/pii-mcp/pkg/pii"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/jdkato/prose/v2"
	"github.com/pkg/errors"
)

// NERConfidence is assigned to every statistical NER match
const NERConfidence = 0.7

// Tag is a labelled region found by a Tagger. Offsets are bytes.
type Tag struct {
	Label string
	Start int
	End   int
}

// Tagger runs a named-entity model over text
type Tagger interface {
	Tag(ctx context.Context, text string) ([]Tag, error)
}

// NERRecognizer turns tagger output into candidates
type NERRecognizer struct {
	tagger Tagger
}

// NewNERRecognizer wraps tagger. A nil tagger yields a recognizer that
// reports pii.ErrDetectorUnavailable on every span.
func NewNERRecognizer(tagger Tagger) *NERRecognizer {
	return &NERRecognizer{tagger: tagger}
}

// Name implements pii.Recognizer
func (r *NERRecognizer) Name() string {
	return "statistical_ner"
}

// Recognize implements pii.Recognizer
func (r *NERRecognizer) Recognize(ctx context.Context, span pii.TextSpan) ([]pii.Candidate, error) {
	if r.tagger == nil {
		return nil, errors.Wrap(pii.ErrDetectorUnavailable, "no NER model loaded")
	}
	if strings.TrimSpace(span.Text) == "" {
		return nil, nil
	}

	tags, err := r.tagger.Tag(ctx, span.Text)
	if err != nil {
		return nil, errors.Wrap(err, "tagging span")
	}

	candidates := make([]pii.Candidate, 0, len(tags))
	for _, tag := range tags {
		if tag.Start < 0 || tag.End > len(span.Text) || tag.End <= tag.Start {
			continue
		}
		switch pii.NativeLabel(tag.Label) {
		case pii.LabelCardinal, pii.LabelQuantity:
			if !IsMedicalNumber(span.Text[tag.Start:tag.End]) {
				continue
			}
		}
		candidates = append(candidates, pii.Candidate{
			Label:      tag.Label,
			Start:      tag.Start,
			End:        tag.End,
			Confidence: NERConfidence,
			Method:     pii.MethodNER,
		})
	}
	return candidates, nil
}

var (
	numericDate = regexp.MustCompile(`\b\d{1,2}[/\-.]\d{1,2}[/\-.]\d{2,4}\b`)
	textualDate = regexp.MustCompile(`(?i)\b\d{1,2}\s+(?:jan|feb|mar|apr|may|jun|jul|aug|sep|sept|oct|nov|dec)[a-z]*\.?,?\s+\d{4}\b`)

	proseLabels = mapset.NewSet[string](
		string(pii.LabelPerson),
		string(pii.LabelGPE),
		string(pii.LabelOrg),
		string(pii.LabelLoc),
	)
)

// ProseTagger tags text with the prose model. prose has no date or
// cardinal entities, so dates come from a small pattern set and cardinals
// from number-bearing tokens. The model is loaded once and shared by every
// Tag call; mu serializes access to it.
type ProseTagger struct {
	mu    sync.Mutex
	model *prose.Model
}

// NewProseTagger loads the prose model and returns a tagger that reuses it
func NewProseTagger() (*ProseTagger, error) {
	doc, err := prose.NewDocument("model warm up", prose.WithSegmentation(false))
	if err != nil {
		return nil, errors.Wrap(err, "failed to load prose model")
	}
	if doc.Model == nil {
		return nil, errors.New("prose returned no model")
	}
	return &ProseTagger{model: doc.Model}, nil
}

// Tag implements Tagger
func (t *ProseTagger) Tag(ctx context.Context, text string) ([]Tag, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t.mu.Lock()
	doc, err := prose.NewDocument(text, prose.WithSegmentation(false), prose.UsingModel(t.model))
	t.mu.Unlock()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create prose document")
	}

	var tags []Tag

	cursor := 0
	for _, ent := range doc.Entities() {
		if !proseLabels.Contains(ent.Label) {
			continue
		}
		start, end, ok := locate(text, ent.Text, cursor)
		if !ok {
			continue
		}
		cursor = end
		tags = append(tags, Tag{Label: ent.Label, Start: start, End: end})
	}

	cursor = 0
	for _, tok := range doc.Tokens() {
		start, end, ok := locate(text, tok.Text, cursor)
		if !ok {
			continue
		}
		cursor = end
		if tok.Tag == "CD" || containsDigit(tok.Text) {
			tags = append(tags, Tag{Label: string(pii.LabelCardinal), Start: start, End: end})
		}
	}

	for _, re := range []*regexp.Regexp{numericDate, textualDate} {
		for _, loc := range re.FindAllStringIndex(text, -1) {
			tags = append(tags, Tag{Label: string(pii.LabelDate), Start: loc[0], End: loc[1]})
		}
	}

	return tags, nil
}

// locate finds needle in text at or after cursor, falling back to the
// first occurrence anywhere.
func locate(text, needle string, cursor int) (int, int, bool) {
	if needle == "" {
		return 0, 0, false
	}
	if cursor < len(text) {
		if i := strings.Index(text[cursor:], needle); i >= 0 {
			return cursor + i, cursor + i + len(needle), true
		}
	}
	if i := strings.Index(text, needle); i >= 0 {
		return i, i + len(needle), true
	}
	return 0, 0, false
}

func containsDigit(s string) bool {
	for _, r := range s {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
