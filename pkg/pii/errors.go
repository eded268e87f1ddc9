package pii

import (
	"context"

	"github.com/pkg/errors"
)

var (
	// ErrRecognizerFailed wraps an error returned by a recognizer
	ErrRecognizerFailed = errors.New("recognizer failed")
	// ErrRecognizerPanic is reported when a recognizer panics
	ErrRecognizerPanic = errors.New("recognizer panicked")
	// ErrDetectorUnavailable means an underlying model could not be used
	ErrDetectorUnavailable = errors.New("detector unavailable")
)

// ErrorKind names the class of a recognizer error for logs and metrics
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrRecognizerPanic):
		return "panic"
	case errors.Is(err, ErrDetectorUnavailable):
		return "unavailable"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "failed"
	}
}
