package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jonathan/interview-coach/internal/interview"
	"github.com/jonathan/interview-coach/internal/usage"
)

// ErrValidation indicates a malformed request that never reached the engine
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// ErrorResponse is the body of every error reply
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

var kindStatus = map[interview.Kind]int{
	interview.KindInvalidConfiguration:  http.StatusBadRequest,
	interview.KindInvalidState:          http.StatusConflict,
	interview.KindNotFound:              http.StatusNotFound,
	interview.KindAnswerTooShort:        http.StatusUnprocessableEntity,
	interview.KindTranscriptionTooShort: http.StatusUnprocessableEntity,
	interview.KindTranscriptionFailed:   http.StatusBadGateway,
	interview.KindGenerationFailed:      http.StatusBadGateway,
	interview.KindEvaluationFailed:      http.StatusBadGateway,
	interview.KindConflict:              http.StatusConflict,
	interview.KindInternal:              http.StatusInternalServerError,
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var verr *ErrValidation
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest
	case errors.Is(err, usage.ErrQuotaExceeded):
		return http.StatusTooManyRequests
	}
	if status, ok := kindStatus[interview.KindOf(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// toErrorResponse maps err to its stable code and a client-safe message.
// Internal causes are not exposed.
func toErrorResponse(err error) ErrorResponse {
	var (
		verr *ErrValidation
		ierr *interview.Error
	)
	switch {
	case errors.As(err, &verr):
		return ErrorResponse{Error: "invalid_request", Message: verr.Error()}
	case errors.Is(err, usage.ErrQuotaExceeded):
		return ErrorResponse{Error: "quota_exceeded", Message: "monthly session quota exceeded for your plan"}
	case errors.As(err, &ierr) && ierr.Kind != interview.KindInternal:
		return ErrorResponse{Error: string(ierr.Kind), Message: ierr.Message}
	}
	return ErrorResponse{Error: string(interview.KindInternal), Message: "internal server error"}
}
