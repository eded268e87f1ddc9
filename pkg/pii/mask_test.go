package pii

import (
	"strings"
	"testing"
)

func TestMask(t *testing.T) {
	tests := []struct {
		name  string
		value string
		typ   EntityType
		want  string
	}{
		{"aadhaar spaced", "2345 6789 0123", EntityTypeAadhaar, "***-***-0123"},
		{"aadhaar too short", "1234", EntityTypeAadhaar, "***"},
		{"pan standard", "ABCDE1234F", EntityTypePAN, "*****34F"},
		{"pan partial", "ABC", EntityTypePAN, "*****BC"},
		{"pan too short", "AB", EntityTypePAN, "***"},
		{"phone", "9876543210", EntityTypePhone, "******3210"},
		{"phone too short", "12", EntityTypePhone, "***"},
		{"mrn", "MR123456789", EntityTypeMedicalRecordNumber, "***789"},
		{"insurance", "POL12345678", EntityTypeInsuranceNumber, "***678"},
		{"patient id too short", "AB", EntityTypePatientID, "***"},
		{"account", "000123456", EntityTypeAccountNumber, "***456"},
		{"dob with slashes", "12/05/1990", EntityTypeDateOfBirth, "**/**/****"},
		{"dob without slashes", "May 12 1990", EntityTypeDateOfBirth, "***"},
		{"condition phrase", "type 2 diabetes", EntityTypeMedicalCondition, "type ***"},
		{"condition single word", "asthma", EntityTypeMedicalCondition, "as***"},
		{"medication single short", "ab", EntityTypeMedication, "***"},
		{"treatment phrase", "insulin therapy daily", EntityTypeTreatmentInfo, "insulin ***"},
		{"signature", "<signature>", EntityTypeSignature, "***"},
		{"name", "Ramesh Kumar", EntityTypeName, "Ram*********"},
		{"long address capped", "221B Baker Street, London", EntityTypeAddress, "221**********"},
		{"short default", "Bob", EntityTypeName, "***"},
		{"empty default", "", EntityTypeEmail, "***"},
		{"multibyte name", "Éloïse", EntityTypeName, "Élo***"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Mask(tt.value, tt.typ); got != tt.want {
				t.Errorf("Mask(%q, %s) = %q, want %q", tt.value, tt.typ, got, tt.want)
			}
		})
	}
}

func TestMaskShortValuesNeverRevealed(t *testing.T) {
	for _, typ := range AllEntityTypes() {
		for _, value := range []string{"", "7", "12"} {
			got := Mask(value, typ)
			if got != "***" {
				t.Errorf("Mask(%q, %s) = %q, want fully masked", value, typ, got)
			}
		}
	}
}

func TestMaskNeverReproducesValue(t *testing.T) {
	values := []string{"1234", "ABCD", "abcdefghij", "9876543210", "MR123456789", "A1"}
	for _, typ := range AllEntityTypes() {
		for _, value := range values {
			got := Mask(value, typ)
			if got == value {
				t.Errorf("Mask(%q, %s) returned the value unmasked", value, typ)
			}
			if !strings.Contains(got, "*") {
				t.Errorf("Mask(%q, %s) = %q, contains no mask characters", value, typ, got)
			}
		}
	}
}

func TestMaskDefaultRevealsOnlyPrefix(t *testing.T) {
	value := "someone@example.com"
	got := Mask(value, EntityTypeEmail)
	if !strings.HasPrefix(got, "som") {
		t.Fatalf("expected first three characters, got %q", got)
	}
	if strings.Count(got, "*") != maxDefaultMaskRunes {
		t.Fatalf("expected %d mask characters, got %q", maxDefaultMaskRunes, got)
	}
	if len([]rune(got)) != 3+maxDefaultMaskRunes {
		t.Fatalf("unexpected length of %q", got)
	}
}
