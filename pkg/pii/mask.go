package pii

import (
	"strings"
)

// placeholder is returned whenever a value is too short to partially reveal
const placeholder = "***"

const maxDefaultMaskRunes = 10

// Mask derives the redacted display form of value for the given type.
// A value is only partially revealed when it is strictly longer than the
// reveal length, so a mask never reproduces the whole input.
func Mask(value string, t EntityType) string {
	r := []rune(value)
	n := len(r)

	switch t {
	case EntityTypeAadhaar:
		if n > 4 {
			return "***-***-" + string(r[n-4:])
		}
		return placeholder

	case EntityTypePAN:
		// ABCDE1234F -> *****34F
		if n >= 10 {
			return "*****" + string(r[n-3:])
		}
		if n > 2 {
			return "*****" + string(r[n-2:])
		}
		return placeholder

	case EntityTypePhone:
		if n > 4 {
			return "******" + string(r[n-4:])
		}
		return placeholder

	case EntityTypeMedicalRecordNumber, EntityTypePatientID, EntityTypeInsuranceNumber, EntityTypeAccountNumber:
		if n > 3 {
			return "***" + string(r[n-3:])
		}
		return placeholder

	case EntityTypeDateOfBirth:
		if strings.Contains(value, "/") {
			return "**/**/****"
		}
		return placeholder

	case EntityTypeMedicalCondition, EntityTypeMedication, EntityTypeTreatmentInfo:
		words := strings.Fields(value)
		if len(words) > 1 {
			return words[0] + " ***"
		}
		if n > 2 {
			return string(r[:2]) + "***"
		}
		return placeholder

	case EntityTypeSignature:
		return placeholder

	default:
		if n <= 3 {
			return placeholder
		}
		stars := n - 3
		if stars > maxDefaultMaskRunes {
			stars = maxDefaultMaskRunes
		}
		return string(r[:3]) + strings.Repeat("*", stars)
	}
}
