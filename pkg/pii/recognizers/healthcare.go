package recognizers

import (
	"regexp"

	"github.com/athapong/pii-mcp/pkg/pii"
)

const healthcareScore = 0.8

var (
	mrnDeclared = regexp.MustCompile(`(?i)\b(?:MRN|Medical Record|Patient ID|Chart #):\s*([A-Z0-9-]{6,15})`)
	mrnShape    = regexp.MustCompile(`(?i)\b([A-Z]{2,3}\d{6,10})\b`)

	insuranceDeclared = regexp.MustCompile(`(?i)\b(?:Insurance|Policy):\s*([A-Z0-9-]{8,20})`)
	insuranceShape    = regexp.MustCompile(`(?i)\b([A-Z]{3}\d{6,12})\b`)

	conditionDeclared = regexp.MustCompile(`(?i)\b(?:diagnosed with|suffers from|condition:|history of)\s+([A-Za-z\s,]+?)(?:\.|,|$|\s+and|\s+or)`)
	conditionKeyword  = regexp.MustCompile(`(?i)\b(diabetes(?:\s+mellitus)?(?:\s+type\s+\d+)?|hypertension|asthma|cancer|depression|anxiety|arthritis)\b`)

	medicationDeclared = regexp.MustCompile(`(?i)\b(?:prescribed|taking|medication:|drug:)\s+([A-Za-z\s]{3,30})`)
	medicationKeyword  = regexp.MustCompile(`(?i)\b(aspirin|ibuprofen|metformin|lisinopril|atorvastatin)\b`)
)

// NewMedicalRecordRecognizer detects declared and bare medical record numbers
func NewMedicalRecordRecognizer() *PatternRecognizer {
	return NewPatternRecognizer("healthcare_mrn", string(pii.EntityTypeMedicalRecordNumber),
		[]Pattern{
			{Name: "MRN (declared)", Regex: mrnDeclared, Score: healthcareScore, Group: 1},
			{Name: "MRN (shape)", Regex: mrnShape, Score: healthcareScore, Group: 1},
		},
		WithMethod(pii.MethodPattern),
		WithTrim(),
	)
}

// NewInsuranceRecognizer detects insurance and policy numbers
func NewInsuranceRecognizer() *PatternRecognizer {
	return NewPatternRecognizer("healthcare_insurance", string(pii.EntityTypeInsuranceNumber),
		[]Pattern{
			{Name: "Insurance (declared)", Regex: insuranceDeclared, Score: healthcareScore, Group: 1},
			{Name: "Insurance (shape)", Regex: insuranceShape, Score: healthcareScore, Group: 1},
		},
		WithMethod(pii.MethodPattern),
		WithTrim(),
	)
}

// NewConditionRecognizer detects medical conditions
func NewConditionRecognizer() *PatternRecognizer {
	return NewPatternRecognizer("healthcare_condition", string(pii.EntityTypeMedicalCondition),
		[]Pattern{
			{Name: "Condition (declared)", Regex: conditionDeclared, Score: healthcareScore, Group: 1},
			{Name: "Condition (keyword)", Regex: conditionKeyword, Score: healthcareScore, Group: 1},
		},
		WithMethod(pii.MethodPattern),
		WithTrim(),
	)
}

// NewMedicationRecognizer detects prescribed medications
func NewMedicationRecognizer() *PatternRecognizer {
	return NewPatternRecognizer("healthcare_medication", string(pii.EntityTypeMedication),
		[]Pattern{
			{Name: "Medication (declared)", Regex: medicationDeclared, Score: healthcareScore, Group: 1},
			{Name: "Medication (keyword)", Regex: medicationKeyword, Score: healthcareScore, Group: 1},
		},
		WithMethod(pii.MethodPattern),
		WithTrim(),
	)
}
