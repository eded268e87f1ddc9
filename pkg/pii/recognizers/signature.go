package recognizers

import (
	"context"
	"strings"

	"github.com/athapong/pii-mcp/pkg/pii"
)

// SignatureMarker is the text carried by spans produced by the signature
// localizer.
const SignatureMarker = "<signature>"

// SignatureRecognizer turns signature marker spans into SIGNATURE candidates
// scored with the localizer's confidence.
type SignatureRecognizer struct{}

func NewSignatureRecognizer() *SignatureRecognizer {
	return &SignatureRecognizer{}
}

func (r *SignatureRecognizer) Name() string {
	return "signature_marker"
}

func (r *SignatureRecognizer) Recognize(ctx context.Context, span pii.TextSpan) ([]pii.Candidate, error) {
	if strings.TrimSpace(span.Text) != SignatureMarker {
		return nil, nil
	}
	return []pii.Candidate{{
		Label:      string(pii.EntityTypeSignature),
		Start:      0,
		End:        len(span.Text),
		Confidence: span.OCRConfidence,
		Method:     pii.MethodRule,
		Validations: map[string]interface{}{
			"regex_match":      false,
			"signature_marker": true,
		},
	}}, nil
}
