package usecase

import (
	"errors"
	"fmt"
)

const (
	CodeNotFound             = "NOT_FOUND"
	CodeValidation           = "VALIDATION_ERROR"
	CodeExternalService      = "EXTERNAL_SERVICE_ERROR"
	CodePermissionDenied     = "PERMISSION_DENIED"
	CodeUnauthenticated      = "UNAUTHENTICATED"
	CodeTransitionNotAllowed = "TRANSITION_NOT_ALLOWED"
	CodeSameStage            = "SAME_STAGE"
	CodeMissingEventType     = "MISSING_EVENT_TYPE"
	CodeDatabase             = "DATABASE_ERROR"
)

// DomainError is a business rule failure the caller can act on.
type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

func IsDomainError(err error) bool {
	var de *DomainError
	return errors.As(err, &de)
}

// HasCode reports whether err is a DomainError with the given code.
func HasCode(err error, code string) bool {
	var de *DomainError
	return errors.As(err, &de) && de.Code == code
}

// TechnicalError is an infrastructure failure (database, network).
type TechnicalError struct {
	Code    string
	Message string
	Err     error
}

func (e *TechnicalError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *TechnicalError) Unwrap() error {
	return e.Err
}

func IsTechnicalError(err error) bool {
	var te *TechnicalError
	return errors.As(err, &te)
}

func notFound(format string, args ...any) error {
	return &DomainError{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

func invalid(format string, args ...any) error {
	return &DomainError{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

func denied(format string, args ...any) error {
	return &DomainError{Code: CodePermissionDenied, Message: fmt.Sprintf(format, args...)}
}

func externalErr(service string, err error) error {
	return &TechnicalError{Code: CodeExternalService, Message: service + " indisponível", Err: err}
}

func dbErr(op string, err error) error {
	return &TechnicalError{Code: CodeDatabase, Message: op, Err: err}
}
