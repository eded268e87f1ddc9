package pii

import "testing"

func TestMapLabelCoversNativeVocabulary(t *testing.T) {
	for _, label := range NativeLabels() {
		got := MapLabel(string(label))
		if got == EntityTypeUnmapped || !got.Valid() {
			t.Errorf("native label %s has no canonical mapping", label)
		}
	}
}

func TestMapLabel(t *testing.T) {
	tests := map[string]EntityType{
		"PERSON":                EntityTypeName,
		"ORG":                   EntityTypeAddress,
		"GPE":                   EntityTypeAddress,
		"LOC":                   EntityTypeAddress,
		"DATE":                  EntityTypeDateOfBirth,
		"CARDINAL":              EntityTypeMedicalRecordNumber,
		"QUANTITY":              EntityTypeMedicalRecordNumber,
		"EMAIL_ADDRESS":         EntityTypeEmail,
		"PHONE_NUMBER":          EntityTypePhone,
		"AADHAAR":               EntityTypeAadhaar,
		"MEDICAL_RECORD_NUMBER": EntityTypeMedicalRecordNumber,
		"NORP":                  EntityTypeUnmapped,
		"":                      EntityTypeUnmapped,
		"person":                EntityTypeUnmapped,
	}
	for label, want := range tests {
		if got := MapLabel(label); got != want {
			t.Errorf("MapLabel(%q) = %s, want %s", label, got, want)
		}
	}
}

func TestCanonicalTypesPassThrough(t *testing.T) {
	for _, typ := range AllEntityTypes() {
		if got := MapLabel(string(typ)); got != typ {
			t.Errorf("MapLabel(%s) = %s", typ, got)
		}
	}
	if EntityTypeUnmapped.Valid() {
		t.Fatal("unmapped marker must not be a valid type")
	}
}

func TestParseEntityType(t *testing.T) {
	if got, ok := ParseEntityType(" pan "); !ok || got != EntityTypePAN {
		t.Fatalf("ParseEntityType(pan) = %s, %v", got, ok)
	}
	if _, ok := ParseEntityType("SSN"); ok {
		t.Fatal("SSN must not parse")
	}
}
