package recognizers

import (
	"context"
	"sync"
	"testing"

	"github.com/athapong/pii-mcp/pkg/pii"
	"github.com/pkg/errors"
)

type fakeTagger struct {
	tags []Tag
	err  error
}

func (f fakeTagger) Tag(ctx context.Context, text string) ([]Tag, error) {
	return f.tags, f.err
}

func TestNERRecognizer(t *testing.T) {
	text := "Ravi Kumar MR123456789 visited 42 times"
	tagger := fakeTagger{tags: []Tag{
		{Label: "PERSON", Start: 0, End: 10},
		{Label: "CARDINAL", Start: 11, End: 22},
		{Label: "CARDINAL", Start: 31, End: 33},
		{Label: "NORP", Start: 0, End: 4},
		{Label: "PERSON", Start: 30, End: 99},
	}}

	candidates, err := NewNERRecognizer(tagger).Recognize(context.Background(), pii.TextSpan{Text: text})
	if err != nil {
		t.Fatalf("Recognize() error = %v", err)
	}

	// the bare count is not a medical number and the out of range tag is dropped;
	// unmapped labels are left for the detector to discard
	want := []struct {
		label string
		value string
	}{
		{"PERSON", "Ravi Kumar"},
		{"CARDINAL", "MR123456789"},
		{"NORP", "Ravi"},
	}
	if len(candidates) != len(want) {
		t.Fatalf("expected %d candidates, got %+v", len(want), candidates)
	}
	for i, w := range want {
		c := candidates[i]
		if c.Label != w.label || text[c.Start:c.End] != w.value {
			t.Errorf("candidate %d = %s %q, want %s %q", i, c.Label, text[c.Start:c.End], w.label, w.value)
		}
		if c.Confidence != NERConfidence || c.Method != pii.MethodNER {
			t.Errorf("candidate %d has confidence %v method %s", i, c.Confidence, c.Method)
		}
	}
}

func TestNERRecognizerWithoutModel(t *testing.T) {
	_, err := NewNERRecognizer(nil).Recognize(context.Background(), pii.TextSpan{Text: "Ravi"})
	if !errors.Is(err, pii.ErrDetectorUnavailable) {
		t.Fatalf("expected ErrDetectorUnavailable, got %v", err)
	}
}

func TestNERRecognizerTaggerError(t *testing.T) {
	_, err := NewNERRecognizer(fakeTagger{err: errors.New("oom")}).Recognize(context.Background(), pii.TextSpan{Text: "Ravi"})
	if err == nil {
		t.Fatal("expected tagger error to surface")
	}
}

func TestNERRecognizerSkipsBlankSpans(t *testing.T) {
	tagger := fakeTagger{err: errors.New("must not be called")}
	candidates, err := NewNERRecognizer(tagger).Recognize(context.Background(), pii.TextSpan{Text: "   "})
	if err != nil || len(candidates) != 0 {
		t.Fatalf("expected nothing for blank span, got %v, %v", candidates, err)
	}
}

func TestProseTaggerFindsDates(t *testing.T) {
	text := "Date of birth 12/05/1990"
	tagger, err := NewProseTagger()
	if err != nil {
		t.Fatalf("NewProseTagger() error = %v", err)
	}
	tags, err := tagger.Tag(context.Background(), text)
	if err != nil {
		t.Fatalf("Tag() error = %v", err)
	}
	found := false
	for _, tag := range tags {
		if tag.Label == "DATE" && text[tag.Start:tag.End] == "12/05/1990" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected DATE tag for 12/05/1990, got %+v", tags)
	}
}

func TestProseTaggerReusesModel(t *testing.T) {
	tagger, err := NewProseTagger()
	if err != nil {
		t.Fatalf("NewProseTagger() error = %v", err)
	}
	model := tagger.model

	for _, text := range []string{"Ravi Kumar lives in Mumbai", "Admitted on 3 March 2021"} {
		if _, err := tagger.Tag(context.Background(), text); err != nil {
			t.Fatalf("Tag(%q) error = %v", text, err)
		}
		if tagger.model != model {
			t.Fatal("Tag must reuse the model loaded at construction")
		}
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := tagger.Tag(context.Background(), "Asha Rao, Pune, 12/05/1990"); err != nil {
				t.Errorf("concurrent Tag() error = %v", err)
			}
		}()
	}
	wg.Wait()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := tagger.Tag(ctx, "Ravi"); err == nil {
		t.Fatal("expected cancelled context to stop tagging")
	}
}

func TestLocate(t *testing.T) {
	text := "Ravi met Ravi"
	if s, e, ok := locate(text, "Ravi", 1); !ok || s != 9 || e != 13 {
		t.Fatalf("locate after cursor = (%d, %d, %v)", s, e, ok)
	}
	if s, _, ok := locate(text, "Ravi", 12); !ok || s != 0 {
		t.Fatalf("locate fallback = (%d, %v)", s, ok)
	}
	if _, _, ok := locate(text, "Asha", 0); ok {
		t.Fatal("expected missing needle to fail")
	}
	if _, _, ok := locate(text, "", 0); ok {
		t.Fatal("expected empty needle to fail")
	}
}

func TestSignatureRecognizer(t *testing.T) {
	r := NewSignatureRecognizer()
	candidates, err := r.Recognize(context.Background(), pii.TextSpan{Text: SignatureMarker, OCRConfidence: 0.83})
	if err != nil {
		t.Fatal(err)
	}
	if len(candidates) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(candidates))
	}
	c := candidates[0]
	if c.Label != "SIGNATURE" || c.Confidence != 0.83 || c.Start != 0 || c.End != len(SignatureMarker) {
		t.Fatalf("unexpected candidate: %+v", c)
	}
	if c.Validations["regex_match"] != false {
		t.Fatalf("signature must not claim a regex match: %v", c.Validations)
	}

	candidates, _ = r.Recognize(context.Background(), pii.TextSpan{Text: "signed by Ravi"})
	if len(candidates) != 0 {
		t.Fatalf("expected no candidate for ordinary text, got %+v", candidates)
	}
}

func TestDefaultRegistry(t *testing.T) {
	if got := len(Default(nil)); got != 9 {
		t.Fatalf("expected 9 recognizers without NER, got %d", got)
	}

	d := pii.NewDetector()
	Register(d, fakeTagger{})
	names := d.Recognizers()
	if len(names) != 10 || names[len(names)-1] != "statistical_ner" {
		t.Fatalf("unexpected registry: %v", names)
	}
}

func TestDefaultRegistryEndToEnd(t *testing.T) {
	d := pii.NewDetector()
	Register(d, nil)

	doc := &pii.Document{ID: "d", Pages: []pii.Page{{Number: 1, Spans: []pii.TextSpan{
		{ID: "s1", Text: "PAN ABCDE1234F Mobile: 9876543210", BBox: pii.BBox{X2: 330, Y2: 12}, Page: 1},
		{ID: "s2", Text: "MRN: AB1234567", Page: 1},
	}}}}

	result, err := d.Detect(context.Background(), doc)
	if err != nil {
		t.Fatal(err)
	}
	counts := result.Summary.ByType
	if counts[pii.EntityTypePAN] != 1 || counts[pii.EntityTypePhone] != 1 || counts[pii.EntityTypeMedicalRecordNumber] != 1 {
		t.Fatalf("unexpected summary: %+v", result.Summary)
	}
	for _, e := range result.Entities {
		if e.Method != pii.MethodRule {
			t.Errorf("%s surfaced with method %s", e.Type, e.Method)
		}
	}
}
