package pipeline

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/athapong/pii-mcp/pkg/config"
	"github.com/athapong/pii-mcp/pkg/pii"
	"github.com/athapong/pii-mcp/pkg/pii/recognizers"
	"github.com/athapong/pii-mcp/pkg/pii/validator"
	"github.com/sirupsen/logrus"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func newDetector() *pii.Detector {
	d := pii.NewDetector(pii.WithLogger(quietLogger()))
	recognizers.Register(d, nil)
	return d
}

func document(id string, lines ...string) *pii.Document {
	page := pii.Page{Number: 1, Width: 600, Height: 800}
	for i, line := range lines {
		page.Spans = append(page.Spans, pii.TextSpan{
			ID:            fmt.Sprintf("%s-%d", id, i),
			Text:          line,
			BBox:          pii.BBox{X1: 10, Y1: float64(20 * i), X2: 410, Y2: float64(20*i + 15)},
			Page:          1,
			Language:      "en",
			OCRConfidence: 0.97,
		})
	}
	return &pii.Document{ID: id, Pages: []pii.Page{page}}
}

func TestProcessWithoutValidator(t *testing.T) {
	p := New(newDetector(), nil, quietLogger())

	result, err := p.Process(context.Background(), document("d1", "PAN ABCDE1234F", "Mobile: 9876543210"), true)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if result.Summary.TotalEntities != 2 {
		t.Fatalf("expected 2 entities, got %+v", result.Entities)
	}
	if len(result.Warnings) != 1 || !strings.Contains(result.Warnings[0], "not configured") {
		t.Fatalf("expected validation warning, got %v", result.Warnings)
	}
	if p.ValidationAvailable() {
		t.Fatal("validation must be unavailable without a validator")
	}
}

func TestProcessWithValidator(t *testing.T) {
	judge := validator.JudgeFunc(func(ctx context.Context, prompt string) (string, error) {
		if strings.Contains(prompt, "type: PHONE") {
			return `{"confidence": 0.1}`, nil
		}
		return `{"confidence": 0.9}`, nil
	})
	v := validator.New(judge, validator.WithLogger(quietLogger()))
	p := New(newDetector(), v, quietLogger())

	result, err := p.Process(context.Background(), document("d1", "PAN ABCDE1234F", "Mobile: 9876543210"), true)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if len(result.Entities) != 1 || result.Entities[0].Type != pii.EntityTypePAN {
		t.Fatalf("expected only PAN to survive, got %+v", result.Entities)
	}
	if result.Entities[0].Method != pii.MethodHybrid {
		t.Fatalf("validated entity method = %s", result.Entities[0].Method)
	}
	if len(result.FalsePositives) != 1 || result.FalsePositives[0].Type != pii.EntityTypePhone {
		t.Fatalf("expected phone false positive, got %+v", result.FalsePositives)
	}
	if result.Summary.TotalFalsePositives != 1 {
		t.Fatalf("summary not refreshed: %+v", result.Summary)
	}
}

func TestProcessSkipsValidationWhenNotRequested(t *testing.T) {
	judge := validator.JudgeFunc(func(ctx context.Context, prompt string) (string, error) {
		t.Error("judge must not be called")
		return "", nil
	})
	p := New(newDetector(), validator.New(judge, validator.WithLogger(quietLogger())), quietLogger())

	result, err := p.Process(context.Background(), document("d1", "PAN ABCDE1234F"), false)
	if err != nil {
		t.Fatal(err)
	}
	if result.Entities[0].Method != pii.MethodRule {
		t.Fatalf("unvalidated method = %s", result.Entities[0].Method)
	}
}

func TestProcessNilDocument(t *testing.T) {
	if _, err := New(newDetector(), nil, nil).Process(context.Background(), nil, false); err == nil {
		t.Fatal("expected error")
	}
}

func TestBatchProcessPreservesOrder(t *testing.T) {
	p := New(newDetector(), nil, quietLogger())
	p.SetBatchSize(2)

	docs := []*pii.Document{
		document("a", "PAN ABCDE1234F"),
		document("b", "nothing here"),
		document("c", "Aadhaar: 2345 6789 0123", "Mobile: 9876543210"),
		document("d", "MRN: AB1234567"),
		document("e"),
	}

	results, err := p.BatchProcess(context.Background(), docs, false)
	if err != nil {
		t.Fatalf("BatchProcess() error = %v", err)
	}
	want := []int{1, 0, 2, 1, 0}
	for i, result := range results {
		if result.DocumentID != docs[i].ID {
			t.Fatalf("result %d belongs to %s, want %s", i, result.DocumentID, docs[i].ID)
		}
		if result.Summary.TotalEntities != want[i] {
			t.Errorf("document %s: %d entities, want %d", docs[i].ID, result.Summary.TotalEntities, want[i])
		}
	}
}

func TestBatchProcessFailsOnNilDocument(t *testing.T) {
	p := New(newDetector(), nil, quietLogger())
	if _, err := p.BatchProcess(context.Background(), []*pii.Document{document("a", "x"), nil}, false); err == nil {
		t.Fatal("expected error")
	}
}

func TestFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Detection.NEREnabled = false
	cfg.Detection.Entities = []string{"PAN"}

	p, err := FromConfig(cfg, quietLogger())
	if err != nil {
		t.Fatalf("FromConfig() error = %v", err)
	}
	if p.ValidationAvailable() {
		t.Fatal("validation disabled by default")
	}
	if got := len(p.detector.Recognizers()); got != 9 {
		t.Fatalf("expected 9 recognizers without NER, got %d", got)
	}

	result, err := p.Process(context.Background(), document("d", "PAN ABCDE1234F Mobile: 9876543210"), false)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Entities) != 1 || result.Entities[0].Type != pii.EntityTypePAN {
		t.Fatalf("entity filter not applied: %+v", result.Entities)
	}
}

func TestFromConfigWithValidation(t *testing.T) {
	cfg := config.Default()
	cfg.Detection.NEREnabled = false
	cfg.Validation.Enabled = true
	cfg.Validation.APIKey = "test-key"
	cfg.Validation.BaseURL = "http://127.0.0.1:1/v1"
	cfg.Validation.Timeout = 50 * time.Millisecond

	p, err := FromConfig(cfg, quietLogger())
	if err != nil {
		t.Fatalf("FromConfig() error = %v", err)
	}
	if !p.ValidationAvailable() {
		t.Fatal("expected validator to be attached")
	}

	// the judge endpoint is unreachable, so the entity is scored 0 and demoted
	result, err := p.Process(context.Background(), document("d", "PAN ABCDE1234F"), true)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Entities) != 0 || len(result.FalsePositives) != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestFromConfigRejectsBadSettings(t *testing.T) {
	cfg := config.Default()
	cfg.Detection.OverlapPolicy = "bogus"
	if _, err := FromConfig(cfg, quietLogger()); err == nil {
		t.Fatal("expected error for unknown overlap policy")
	}

	cfg = config.Default()
	cfg.Detection.Entities = []string{"SSN"}
	if _, err := FromConfig(cfg, quietLogger()); err == nil {
		t.Fatal("expected error for unknown entity type")
	}
}
