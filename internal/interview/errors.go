package interview

import (
	"errors"
	"fmt"
)

// Kind is the stable machine-readable category of an engine error.
type Kind string

// Error kinds
const (
	KindInvalidConfiguration  Kind = "invalid_configuration"
	KindInvalidState          Kind = "invalid_state"
	KindNotFound              Kind = "resource_not_found"
	KindAnswerTooShort        Kind = "answer_too_short"
	KindTranscriptionTooShort Kind = "transcription_too_short"
	KindTranscriptionFailed   Kind = "transcription_failed"
	KindGenerationFailed      Kind = "generation_failed"
	KindEvaluationFailed      Kind = "evaluation_failed"
	KindConflict              Kind = "conflict"
	KindInternal              Kind = "internal"
)

// Error is returned by every Engine operation.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Op, e.Message)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so errors.Is(err, ErrConflict) works.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind && t.Op == "" && t.Message == ""
}

// Sentinels for errors.Is checks
var (
	ErrInvalidConfiguration  = &Error{Kind: KindInvalidConfiguration}
	ErrInvalidState          = &Error{Kind: KindInvalidState}
	ErrNotFound              = &Error{Kind: KindNotFound}
	ErrAnswerTooShort        = &Error{Kind: KindAnswerTooShort}
	ErrTranscriptionTooShort = &Error{Kind: KindTranscriptionTooShort}
	ErrTranscriptionFailed   = &Error{Kind: KindTranscriptionFailed}
	ErrGenerationFailed      = &Error{Kind: KindGenerationFailed}
	ErrEvaluationFailed      = &Error{Kind: KindEvaluationFailed}
	ErrConflict              = &Error{Kind: KindConflict}
)

// ErrStoreConflict is returned by a Store when an optimistic version check fails.
var ErrStoreConflict = errors.New("session version conflict")

// KindOf returns the kind of err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func newError(kind Kind, op, msg string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Message: msg, Err: cause}
}

func invalidState(op, format string, args ...any) *Error {
	return newError(KindInvalidState, op, fmt.Sprintf(format, args...), nil)
}

func notFound(op, what string) *Error {
	return newError(KindNotFound, op, what+" not found", nil)
}
