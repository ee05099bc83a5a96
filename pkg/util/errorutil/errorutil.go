package errorutil

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	CodePermissionDenied = "PERMISSION_DENIED"
	CodeNotFound         = "NOT_FOUND"
	CodeConflict         = "CONFLICT"
	CodeValidation       = "VALIDATION_FAILED"
	CodeTransientStore   = "TRANSIENT_STORE_ERROR"
	CodeUnauthorized     = "UNAUTHORIZED"
	CodeInternal         = "INTERNAL_ERROR"
)

// postgres SQLSTATEs.
const (
	pgUniqueViolation           = "23505"
	pgInvalidTextRepresentation = "22P02"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

// NewPermissionDenied reports an authorization failure with the engine's reason.
func NewPermissionDenied(reason string) error {
	return NewDomainError(CodePermissionDenied, reason, http.StatusForbidden, map[string]any{"reason": reason})
}

func NewNotFound(entity string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	details["entity"] = entity
	return &DomainError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", entity),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

// NewConflict reports a state conflict: the caller expected one value and the store holds another.
func NewConflict(message string, expected, actual any) error {
	return NewDomainError(CodeConflict, message, http.StatusConflict, map[string]any{
		"expected": expected,
		"actual":   actual,
	})
}

func NewValidationError(field, reason string) error {
	return NewDomainError(CodeValidation, fmt.Sprintf("%s: %s", field, reason), http.StatusBadRequest, map[string]any{
		"field":  field,
		"reason": reason,
	})
}

func NewTransientStoreError(err error) error {
	return &DomainError{
		Code:       CodeTransientStore,
		Message:    "store temporarily unavailable",
		HTTPStatus: http.StatusServiceUnavailable,
		Err:        err,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError(CodeUnauthorized, message, http.StatusUnauthorized, nil)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return NewNotFound("resource", nil).(*DomainError)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return NewDomainError(CodeConflict, "already exists", http.StatusConflict, map[string]any{"constraint": pgErr.ConstraintName})
	}
	if IsMalformedValue(err) {
		return NewNotFound("resource", nil).(*DomainError)
	}
	if isTransientCause(err) {
		return NewTransientStoreError(err).(*DomainError)
	}
	return NewInternalError(err).(*DomainError)
}

func MapError(err error) error {
	if err == nil {
		return nil
	}
	return ToDomainError(err)
}

func isTransientCause(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if pgconn.SafeToRetry(err) || pgconn.Timeout(err) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// IsMalformedValue reports whether postgres rejected a value that does not parse
// as its column type, such as an ID that is not a UUID. No row can match it.
func IsMalformedValue(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgInvalidTextRepresentation
}

func hasCode(err error, code string) bool {
	var domainErr *DomainError
	return errors.As(err, &domainErr) && domainErr.Code == code
}

func IsPermissionDenied(err error) bool { return hasCode(err, CodePermissionDenied) }
func IsNotFound(err error) bool { return hasCode(err, CodeNotFound) }
func IsConflict(err error) bool { return hasCode(err, CodeConflict) }
func IsValidation(err error) bool { return hasCode(err, CodeValidation) }

// IsTransient reports whether err is worth retrying, whether already classified or raw.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if hasCode(err, CodeTransientStore) {
		return true
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return false
	}
	return isTransientCause(err)
}
