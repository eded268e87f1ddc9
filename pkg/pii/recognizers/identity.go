package recognizers

import (
	"regexp"

	"github.com/athapong/pii-mcp/pkg/pii"
)

var (
	aadhaarStrong = regexp.MustCompile(`\b[2-9]\d{3}[\s-]?\d{4}[\s-]?\d{4}\b`)
	aadhaarMedium = regexp.MustCompile(`\b\d{4}[\s-]?\d{4}[\s-]?\d{4}\b`)
	panPattern    = regexp.MustCompile(`\b[A-Z]{5}\d{4}[A-Z]\b`)
	phoneIntl     = regexp.MustCompile(`\+91[-\s]?[6-9]\d{9}\b`)
	phoneMobile   = regexp.MustCompile(`\b[6-9]\d{9}\b`)
	phoneLandline = regexp.MustCompile(`\b0\d{2,4}[-\s]?\d{6,8}\b`)
	emailPattern  = regexp.MustCompile(`\b[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}\b`)
)

// NewAadhaarRecognizer detects 12-digit national identity numbers
func NewAadhaarRecognizer() *PatternRecognizer {
	return NewPatternRecognizer("aadhaar", string(pii.EntityTypeAadhaar),
		[]Pattern{
			{Name: "Aadhaar (strong)", Regex: aadhaarStrong, Score: 0.9},
			{Name: "Aadhaar (medium)", Regex: aadhaarMedium, Score: 0.7, Accept: plausibleAadhaar},
		},
		WithContext("aadhaar", "adhar", "aadhaar card", "uid", "unique", "identification"),
	)
}

// plausibleAadhaar rejects numbers starting with 0 or 1 or with a repeated
// leading digit block.
func plausibleAadhaar(match string) bool {
	if len(match) < 4 {
		return false
	}
	if match[0] == '0' || match[0] == '1' {
		return false
	}
	return !(match[0] == match[1] && match[1] == match[2] && match[2] == match[3])
}

// NewPANRecognizer detects 10-character tax identifiers of the form LLLLLDDDDL
func NewPANRecognizer() *PatternRecognizer {
	return NewPatternRecognizer("pan", string(pii.EntityTypePAN),
		[]Pattern{
			{Name: "PAN", Regex: panPattern, Score: 0.9},
		},
		WithContext("pan", "permanent account number", "tax", "income tax", "financial", "account"),
	)
}

// NewPhoneRecognizer detects mobile and landline numbers
func NewPhoneRecognizer() *PatternRecognizer {
	return NewPatternRecognizer("phone", string(pii.EntityTypePhone),
		[]Pattern{
			{Name: "Phone (+91)", Regex: phoneIntl, Score: 0.9},
			{Name: "Phone (mobile)", Regex: phoneMobile, Score: 0.8},
			{Name: "Phone (landline)", Regex: phoneLandline, Score: 0.7},
		},
		WithContext("phone", "mobile", "contact", "number"),
	)
}

// NewEmailRecognizer detects email addresses using the generic engine label
func NewEmailRecognizer() *PatternRecognizer {
	return NewPatternRecognizer("email", string(pii.LabelEmailAddress),
		[]Pattern{
			{Name: "Email (medium)", Regex: emailPattern, Score: 0.5},
		},
		WithContext("email", "mail"),
	)
}
