package recognizers

import (
	"regexp"
	"strings"
)

var medicalNumberShapes = []*regexp.Regexp{
	regexp.MustCompile(`^[A-Z]{2,4}[0-9]{6,12}$`),
	regexp.MustCompile(`^[0-9]{8,15}$`),
	regexp.MustCompile(`^[A-Z]{3}[0-9]{3}[A-Z]{3}[0-9]{3}$`),
	regexp.MustCompile(`^[A-Z0-9]{6,15}$`),
}

var hasDigit = regexp.MustCompile(`[0-9]`)

// IsMedicalNumber reports whether text looks like a medical identifier.
// Spaces and hyphens are ignored; the cleaned text must hold a digit, be at
// least 6 characters long and match one of the known shapes.
func IsMedicalNumber(text string) bool {
	cleaned := strings.ToUpper(text)
	cleaned = strings.ReplaceAll(cleaned, " ", "")
	cleaned = strings.ReplaceAll(cleaned, "-", "")

	if len(cleaned) < 6 || !hasDigit.MatchString(cleaned) {
		return false
	}
	for _, shape := range medicalNumberShapes {
		if shape.MatchString(cleaned) {
			return true
		}
	}
	return false
}
