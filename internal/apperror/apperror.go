// Package apperror defines the typed failures surfaced by the attempt service.
package apperror

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindNotFound             Kind = "NOT_FOUND"
	KindForbidden            Kind = "FORBIDDEN"
	KindValidationFailed     Kind = "VALIDATION_FAILED"
	KindRestrictionViolation Kind = "RESTRICTION_VIOLATION"
	KindAlreadyCompleted     Kind = "ALREADY_COMPLETED"
	KindAttemptInProgress    Kind = "ATTEMPT_IN_PROGRESS"
	KindEmptyTest            Kind = "EMPTY_TEST"
	KindNotStarted           Kind = "NOT_STARTED"
	KindEnded                Kind = "ENDED"
	KindMaxAttemptsReached   Kind = "MAX_ATTEMPTS_REACHED"
	KindQuestionNotInAttempt Kind = "QUESTION_NOT_IN_ATTEMPT"
	KindServerError          Kind = "SERVER_ERROR"
	KindUnauthorized         Kind = "UNAUTHORIZED"
)

// Restriction dimensions reported with KindRestrictionViolation.
const (
	DimensionClass      = "class"
	DimensionSemester   = "semester"
	DimensionBatch      = "batch"
	DimensionDepartment = "department"
)

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type Error struct {
	Kind      Kind
	Message   string
	AttemptID uint         // set for KindAttemptInProgress
	Dimension string       // set for KindRestrictionViolation
	Fields    []FieldError // set for KindValidationFailed
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so errors.Is(err, &Error{Kind: k}) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func NotFound(message string) *Error  { return New(KindNotFound, message) }
func Forbidden(message string) *Error { return New(KindForbidden, message) }

func Validation(message string, fields ...FieldError) *Error {
	return &Error{Kind: KindValidationFailed, Message: message, Fields: fields}
}

func Restriction(dimension, required string) *Error {
	return &Error{
		Kind:      KindRestrictionViolation,
		Message:   fmt.Sprintf("This test is restricted to %s %s students only", required, dimension),
		Dimension: dimension,
	}
}

func AttemptInProgress(attemptID uint) *Error {
	return &Error{Kind: KindAttemptInProgress, Message: "You have an ongoing attempt for this test", AttemptID: attemptID}
}

func AlreadyCompleted() *Error {
	return New(KindAlreadyCompleted, "Test attempt already completed")
}

// Internal wraps an unexpected failure; the message is safe to show clients.
func Internal(message string, err error) *Error {
	return &Error{Kind: KindServerError, Message: message, Err: err}
}

// KindOf reports the kind of err, or KindServerError for untyped errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindServerError
}

// As is a shorthand for errors.As into *Error.
func As(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}
