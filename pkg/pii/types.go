package pii

import (
	"context"
	"strings"
)

// EntityType is the canonical category of a detected entity
type EntityType string

const (
	EntityTypeAadhaar             EntityType = "AADHAAR"
	EntityTypePAN                 EntityType = "PAN"
	EntityTypePhone               EntityType = "PHONE"
	EntityTypeEmail               EntityType = "EMAIL"
	EntityTypeName                EntityType = "NAME"
	EntityTypeAddress             EntityType = "ADDRESS"
	EntityTypeAge                 EntityType = "AGE"
	EntityTypeSex                 EntityType = "SEX"
	EntityTypeGender              EntityType = "GENDER"
	EntityTypeDateOfBirth         EntityType = "DATE_OF_BIRTH"
	EntityTypeMedicalRecordNumber EntityType = "MEDICAL_RECORD_NUMBER"
	EntityTypePatientID           EntityType = "PATIENT_ID"
	EntityTypeInsuranceNumber     EntityType = "INSURANCE_NUMBER"
	EntityTypeAccountNumber       EntityType = "ACCOUNT_NUMBER"
	EntityTypeMedicalCondition    EntityType = "MEDICAL_CONDITION"
	EntityTypeMedication          EntityType = "MEDICATION"
	EntityTypeTreatmentInfo       EntityType = "TREATMENT_INFO"
	EntityTypeSignature           EntityType = "SIGNATURE"

	// EntityTypeUnmapped is returned by MapLabel for labels outside the
	// known vocabulary. It is never emitted.
	EntityTypeUnmapped EntityType = "UNMAPPED"
)

var allEntityTypes = []EntityType{
	EntityTypeAadhaar,
	EntityTypePAN,
	EntityTypePhone,
	EntityTypeEmail,
	EntityTypeName,
	EntityTypeAddress,
	EntityTypeAge,
	EntityTypeSex,
	EntityTypeGender,
	EntityTypeDateOfBirth,
	EntityTypeMedicalRecordNumber,
	EntityTypePatientID,
	EntityTypeInsuranceNumber,
	EntityTypeAccountNumber,
	EntityTypeMedicalCondition,
	EntityTypeMedication,
	EntityTypeTreatmentInfo,
	EntityTypeSignature,
}

// AllEntityTypes returns the canonical vocabulary in declaration order
func AllEntityTypes() []EntityType {
	out := make([]EntityType, len(allEntityTypes))
	copy(out, allEntityTypes)
	return out
}

// Valid reports whether t belongs to the canonical vocabulary
func (t EntityType) Valid() bool {
	for _, known := range allEntityTypes {
		if t == known {
			return true
		}
	}
	return false
}

// ParseEntityType normalizes s and returns the matching canonical type
func ParseEntityType(s string) (EntityType, bool) {
	t := EntityType(strings.ToUpper(strings.TrimSpace(s)))
	if !t.Valid() {
		return EntityTypeUnmapped, false
	}
	return t, true
}

// Method identifies which signal produced or last revised an entity
type Method string

const (
	MethodRule    Method = "rule"
	MethodNER     Method = "ner"
	MethodPattern Method = "pattern"
	MethodHybrid  Method = "hybrid"
	MethodLLM     Method = "llm"
)

// BBox is a box in page-pixel space
type BBox struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// Width returns the horizontal extent of the box
func (b BBox) Width() float64 {
	return b.X2 - b.X1
}

// Height returns the vertical extent of the box
func (b BBox) Height() float64 {
	return b.Y2 - b.Y1
}

// TextSpan is a unit of recognized text produced by the ingestion stage.
// Spans are treated as immutable by every stage of the pipeline.
type TextSpan struct {
	ID            string  `json:"span_id"`
	Text          string  `json:"text"`
	BBox          BBox    `json:"bbox"`
	Page          int     `json:"page_no"`
	Language      string  `json:"language"`
	OCRConfidence float64 `json:"ocr_confidence"`
}

// Page groups the spans recovered from one page of a document
type Page struct {
	Number int        `json:"page_no"`
	Width  float64    `json:"width,omitempty"`
	Height float64    `json:"height,omitempty"`
	Spans  []TextSpan `json:"spans"`
}

// HasSize reports whether the page dimensions are known
func (p Page) HasSize() bool {
	return p.Width > 0 && p.Height > 0
}

// Document is the ordered span input for one detection session
type Document struct {
	ID    string `json:"document_id"`
	Pages []Page `json:"pages"`
}

// Spans flattens the document pages into reading order
func (d *Document) Spans() []TextSpan {
	var spans []TextSpan
	for _, page := range d.Pages {
		spans = append(spans, page.Spans...)
	}
	return spans
}

// Text joins every span text with a single space
func (d *Document) Text() string {
	spans := d.Spans()
	parts := make([]string, 0, len(spans))
	for _, span := range spans {
		parts = append(parts, span.Text)
	}
	return strings.Join(parts, " ")
}

// Candidate is a recognizer-local match before canonicalization.
// Start and End are byte offsets into the owning span's text.
type Candidate struct {
	Label       string
	Start       int
	End         int
	Confidence  float64
	Method      Method
	Validations map[string]interface{}
}

// Recognizer scans a single span and emits raw candidates
type Recognizer interface {
	Name() string
	Recognize(ctx context.Context, span TextSpan) ([]Candidate, error)
}

// DetectedEntity is a canonical, scored and maskable detection
type DetectedEntity struct {
	Type          EntityType             `json:"type"`
	Value         string                 `json:"value"`
	RedactedValue string                 `json:"redacted_value"`
	Confidence    float64                `json:"confidence"`
	Method        Method                 `json:"method"`
	Page          int                    `json:"page_no"`
	BBox          BBox                   `json:"bbox"`
	SpanIDs       []string               `json:"source_span_ids"`
	Language      string                 `json:"language"`
	Start         int                    `json:"start"`
	End           int                    `json:"end"`
	Validations   map[string]interface{} `json:"validations"`
}

// FalsePositive is the reason-coded record left behind when an entity is
// demoted by contextual validation.
type FalsePositive struct {
	Type          EntityType `json:"type"`
	Reason        string     `json:"reason"`
	RedactedValue string     `json:"redacted_value,omitempty"`
	Confidence    float64    `json:"confidence"`
	SpanIDs       []string   `json:"source_span_ids,omitempty"`
}

// Summary counts the final result lists
type Summary struct {
	TotalEntities       int                `json:"total_entities"`
	TotalFalsePositives int                `json:"total_false_positives"`
	ByType              map[EntityType]int `json:"by_type,omitempty"`
}

// Result is the output envelope of a detection session
type Result struct {
	DocumentID     string           `json:"document_id"`
	Entities       []DetectedEntity `json:"entities"`
	FalsePositives []FalsePositive  `json:"false_positives"`
	Summary        Summary          `json:"summary"`
	Warnings       []string         `json:"warnings"`
}

// Summarize recomputes the summary from the entity lists
func (r *Result) Summarize() {
	byType := make(map[EntityType]int)
	for _, entity := range r.Entities {
		byType[entity.Type]++
	}
	r.Summary = Summary{
		TotalEntities:       len(r.Entities),
		TotalFalsePositives: len(r.FalsePositives),
		ByType:              byType,
	}
}

// Validation keys whose values can carry unmasked text
const (
	ValidationValueCorrection        = "llm_value_correction"
	ValidationTypeCorrectionRejected = "llm_type_correction_rejected"
)

// WithholdValues strips every raw value from the result so only masked
// forms remain.
func (r *Result) WithholdValues() {
	for i := range r.Entities {
		r.Entities[i].WithholdValue()
	}
}

// WithholdValue clears Value and scrubs raw-bearing validation records.
// The validations map is replaced, never edited in place.
func (e *DetectedEntity) WithholdValue() {
	e.Value = ""
	if len(e.Validations) == 0 {
		return
	}

	validations := make(map[string]interface{}, len(e.Validations))
	for k, v := range e.Validations {
		switch k {
		case ValidationValueCorrection:
			record, ok := v.(map[string]interface{})
			if !ok {
				continue
			}
			v = map[string]interface{}{
				"previous_redacted": record["previous_redacted"],
				"redacted":          e.RedactedValue,
			}
		case ValidationTypeCorrectionRejected:
			v = true
		}
		validations[k] = v
	}
	e.Validations = validations
}
