package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

type ErrorCode string

const (
	ErrorInvalid          ErrorCode = "invalid"
	ErrorForbidden        ErrorCode = "forbidden"
	ErrorNotFound         ErrorCode = "not_found"
	ErrorConflict         ErrorCode = "conflict"
	ErrorUnauthorized     ErrorCode = "unauthorized"
	ErrorIdentityRequired ErrorCode = "identity_required"
	ErrorSchemaMismatch   ErrorCode = "schema_mismatch"
	ErrorValidation       ErrorCode = "validation_failed"
	ErrorClosed           ErrorCode = "closed"
)

type ServiceError struct {
	Code    ErrorCode
	Message string
}

func (e *ServiceError) Error() string { return e.Message }

// Is matches on code so wrapped sentinels compare with errors.Is.
func (e *ServiceError) Is(target error) bool {
	t, ok := target.(*ServiceError)
	return ok && t.Code == e.Code && (t.Message == "" || t.Message == e.Message)
}

func NewInvalidError(msg string) error   { return &ServiceError{Code: ErrorInvalid, Message: msg} }
func NewForbiddenError(msg string) error { return &ServiceError{Code: ErrorForbidden, Message: msg} }
func NewNotFoundError(msg string) error  { return &ServiceError{Code: ErrorNotFound, Message: msg} }
func NewConflictError(msg string) error  { return &ServiceError{Code: ErrorConflict, Message: msg} }
func NewUnauthorizedError(msg string) error {
	return &ServiceError{Code: ErrorUnauthorized, Message: msg}
}

func AsServiceError(err error) (*ServiceError, bool) {
	var se *ServiceError
	if errors.As(err, &se) {
		return se, true
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return &ServiceError{Code: ErrorValidation, Message: ve.Error()}, true
	}
	return nil, false
}

var (
	ErrSurveyNotFound   = &ServiceError{Code: ErrorNotFound, Message: "survey not found"}
	ErrResponseNotFound = &ServiceError{Code: ErrorNotFound, Message: "response not found"}
	ErrIdentityRequired = &ServiceError{Code: ErrorIdentityRequired, Message: "respondent identity required"}
	ErrSchemaMismatch   = &ServiceError{Code: ErrorSchemaMismatch, Message: "answer does not match survey schema"}
	ErrSurveyClosed     = &ServiceError{Code: ErrorClosed, Message: "survey is closed"}
	ErrSessionClosed    = &ServiceError{Code: ErrorClosed, Message: "session already submitted"}
)

// schemaMismatch wraps ErrSchemaMismatch with the offending question.
func schemaMismatch(questionID, format string, args ...any) error {
	return fmt.Errorf("question %s: %s: %w", questionID, fmt.Sprintf(format, args...), ErrSchemaMismatch)
}

// ValidationError carries per-question verdicts for a rejected submission.
type ValidationError struct {
	Verdicts VerdictMap
}

func (e *ValidationError) Error() string {
	ids := e.Verdicts.Invalid()
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, id+": "+string(e.Verdicts[id].Reason))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

func shortID(n int) string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:n]
}
