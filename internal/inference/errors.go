package inference

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failed classification.
type ErrorKind string

const (
	// ErrKindMalformedInput: a feature vector could not be built from the input.
	ErrKindMalformedInput ErrorKind = "MALFORMED_INPUT"
	// ErrKindTransportUnavailable: the inference service could not be reached.
	ErrKindTransportUnavailable ErrorKind = "TRANSPORT_UNAVAILABLE"
	// ErrKindModelFailure: the model rejected or failed on a well-formed vector.
	ErrKindModelFailure ErrorKind = "MODEL_FAILURE"
)

// Error is the structured failure carried in a Result.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Is matches the kind sentinels below.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrMalformedInput:
		return e.Kind == ErrKindMalformedInput
	case ErrTransportUnavailable:
		return e.Kind == ErrKindTransportUnavailable
	case ErrModelFailure:
		return e.Kind == ErrKindModelFailure
	}
	return false
}

// Sentinels for errors.Is checks against an *Error.
var (
	ErrMalformedInput       = errors.New("malformed input")
	ErrTransportUnavailable = errors.New("transport unavailable")
	ErrModelFailure         = errors.New("model failure")
)

func newError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}
