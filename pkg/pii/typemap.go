package pii

// NativeLabel is a label from a recognizer's own vocabulary
type NativeLabel string

const (
	LabelPerson       NativeLabel = "PERSON"
	LabelOrg          NativeLabel = "ORG"
	LabelGPE          NativeLabel = "GPE"
	LabelLoc          NativeLabel = "LOC"
	LabelDate         NativeLabel = "DATE"
	LabelCardinal     NativeLabel = "CARDINAL"
	LabelQuantity     NativeLabel = "QUANTITY"
	LabelEmailAddress NativeLabel = "EMAIL_ADDRESS"
	LabelPhoneNumber  NativeLabel = "PHONE_NUMBER"
)

// NativeLabels lists every non-canonical label MapLabel understands
func NativeLabels() []NativeLabel {
	return []NativeLabel{
		LabelPerson,
		LabelOrg,
		LabelGPE,
		LabelLoc,
		LabelDate,
		LabelCardinal,
		LabelQuantity,
		LabelEmailAddress,
		LabelPhoneNumber,
	}
}

// MapLabel translates a recognizer label into the canonical vocabulary.
// Canonical labels pass through. Anything else yields EntityTypeUnmapped.
//
// CARDINAL and QUANTITY map to MEDICAL_RECORD_NUMBER unconditionally; the
// NER recognizer only emits them for text that passes IsMedicalNumber.
func MapLabel(label string) EntityType {
	if t := EntityType(label); t.Valid() {
		return t
	}

	switch NativeLabel(label) {
	case LabelPerson:
		return EntityTypeName
	case LabelOrg, LabelGPE, LabelLoc:
		return EntityTypeAddress
	case LabelDate:
		return EntityTypeDateOfBirth
	case LabelCardinal, LabelQuantity:
		return EntityTypeMedicalRecordNumber
	case LabelEmailAddress:
		return EntityTypeEmail
	case LabelPhoneNumber:
		return EntityTypePhone
	default:
		return EntityTypeUnmapped
	}
}
