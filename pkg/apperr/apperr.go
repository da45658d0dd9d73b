// Package apperr defines the application error taxonomy. Services return an
// *Error with a stable machine-readable code; the transport layer translates
// the code into an HTTP status and a JSON envelope without leaking internals.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidation      Code = "VALIDATION_ERROR"
	CodeCatalogNotFound Code = "CATALOG_NOT_FOUND"
	CodeInvalidFileType Code = "INVALID_FILE_TYPE"
	CodeFileUpload      Code = "FILE_UPLOAD_ERROR"
	CodeBadRequest      Code = "BAD_REQUEST"
	CodeBadCredentials  Code = "BAD_CREDENTIALS"
	CodeUnauthorized    Code = "UNAUTHORIZED"
	CodeNotFound        Code = "NOT_FOUND"
	CodeConflict        Code = "CONFLICT"
	CodeRateLimited     Code = "RATE_LIMITED"
	CodeUpstream        Code = "UPSTREAM_ERROR"
	CodeInternal        Code = "INTERNAL_ERROR"
)

// Issue is one field-level validation finding.
type Issue struct {
	Path    string `json:"path"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error carries a stable code plus optional validation detail. Missing lists
// the fields absent from the input entirely, distinct from present-but-invalid
// fields which only appear in Issues.
type Error struct {
	Code    Code     `json:"error"`
	Message string   `json:"message,omitempty"`
	Issues  []Issue  `json:"issues,omitempty"`
	Missing []string `json:"missing,omitempty"`
	cause   error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New builds an Error with a code and human message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a cause for logging; the cause is never serialized.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

// Validation builds the structured validation failure the intake pipeline
// reports: every issue plus the subset of fields missing entirely.
func Validation(issues []Issue, missing []string) *Error {
	return &Error{Code: CodeValidation, Message: "validation failed", Issues: issues, Missing: missing}
}

// Is reports whether err is an *Error carrying the given code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// ToHTTPStatus maps an error code to the HTTP status the transport layer
// responds with.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeValidation, CodeCatalogNotFound, CodeInvalidFileType, CodeFileUpload, CodeBadRequest:
		return http.StatusBadRequest
	case CodeBadCredentials, CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeRateLimited:
		return http.StatusTooManyRequests
	case CodeUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
