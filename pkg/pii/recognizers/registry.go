package recognizers

import (
	"github.com/athapong/pii-mcp/pkg/pii"
)

// Default returns the standard recognizer set. The NER recognizer is only
// included when tagger is non-nil.
func Default(tagger Tagger) []pii.Recognizer {
	set := []pii.Recognizer{
		NewAadhaarRecognizer(),
		NewPANRecognizer(),
		NewPhoneRecognizer(),
		NewEmailRecognizer(),
		NewSignatureRecognizer(),
		NewMedicalRecordRecognizer(),
		NewInsuranceRecognizer(),
		NewConditionRecognizer(),
		NewMedicationRecognizer(),
	}
	if tagger != nil {
		set = append(set, NewNERRecognizer(tagger))
	}
	return set
}

// Register adds the standard recognizer set to d
func Register(d *pii.Detector, tagger Tagger) {
	for _, r := range Default(tagger) {
		d.AddRecognizer(r)
	}
}
