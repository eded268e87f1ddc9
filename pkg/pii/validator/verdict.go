package validator

import (
	"regexp"
	"strings"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
)

var (
	// ErrTimeout is returned when the judgment service does not answer in time
	ErrTimeout = errors.New("validation timed out")
	// ErrParse is returned when no JSON object can be recovered from a reply
	ErrParse = errors.New("unparsable validation response")
	// ErrCanceled is returned when the caller abandons validation
	ErrCanceled = errors.New("validation canceled")
	// ErrTransport is returned for any other failure reaching the service
	ErrTransport = errors.New("validation transport failure")
)

var (
	thinkBlock = regexp.MustCompile(`(?is)<think>.*?</think>`)
	fenceOpen  = regexp.MustCompile("^```(?:json|JSON)?\\s*")
	fenceClose = regexp.MustCompile("\\s*```$")
)

// Verdict is the judgment returned for one entity
type Verdict struct {
	Confidence     float64
	HasConfidence  bool
	CorrectedType  string
	CorrectedValue string
}

// ParseVerdict recovers a verdict from a raw model reply. Code fences and
// reasoning blocks are stripped; when the remainder is not a JSON object the
// outermost {...} substring is tried. A missing confidence yields 0.
func ParseVerdict(raw string) (Verdict, error) {
	body := strings.TrimSpace(thinkBlock.ReplaceAllString(raw, ""))
	body = fenceOpen.ReplaceAllString(body, "")
	body = strings.TrimSpace(fenceClose.ReplaceAllString(body, ""))

	if !isObject(body) {
		open := strings.Index(body, "{")
		end := strings.LastIndex(body, "}")
		if open < 0 || end <= open {
			return Verdict{}, errors.Wrap(ErrParse, "no JSON object in response")
		}
		body = body[open : end+1]
		if !isObject(body) {
			return Verdict{}, errors.Wrap(ErrParse, "malformed JSON object in response")
		}
	}

	var v Verdict
	if conf := gjson.Get(body, "confidence"); conf.Exists() && (conf.Type == gjson.Number || conf.Type == gjson.String) {
		v.Confidence = clamp01(conf.Float())
		v.HasConfidence = true
	}
	if ct := gjson.Get(body, "corrected_type"); ct.Type == gjson.String {
		v.CorrectedType = strings.TrimSpace(ct.String())
	}
	if cv := gjson.Get(body, "corrected_value"); cv.Type == gjson.String {
		v.CorrectedValue = cv.String()
	}
	return v, nil
}

func isObject(s string) bool {
	return gjson.Valid(s) && gjson.Parse(s).IsObject()
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
