// internal/pkg/apperror/apperror.go
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies an error for callers and for the HTTP layer
type Code string

const (
	CodeValidation      Code = "VALIDATION_ERROR"
	CodeUnauthenticated Code = "UNAUTHENTICATED"
	CodeForbidden       Code = "FORBIDDEN"
	CodeNotFound        Code = "NOT_FOUND"
	CodeConflict        Code = "CONFLICT"
	CodeProvider        Code = "PROVIDER_ERROR"
	CodeVerification    Code = "VERIFICATION_FAILED"
	CodeIntegrity       Code = "INTEGRITY_ERROR"
	CodeInternal        Code = "INTERNAL_ERROR"
)

// Kind groups codes into the four handling policies of the pipeline
type Kind int

const (
	KindInternal Kind = iota
	KindUser
	KindConflict
	KindProvider
	KindIntegrity
)

// Metadata describes how a code is surfaced over HTTP
type Metadata struct {
	HTTPStatus    int
	Kind          Kind
	PublicMessage string
}

var metadataByCode = map[Code]Metadata{
	CodeValidation:      {HTTPStatus: http.StatusBadRequest, Kind: KindUser, PublicMessage: "validation failed"},
	CodeUnauthenticated: {HTTPStatus: http.StatusUnauthorized, Kind: KindUser, PublicMessage: "authentication required"},
	CodeForbidden:       {HTTPStatus: http.StatusForbidden, Kind: KindUser, PublicMessage: "access denied"},
	CodeNotFound:        {HTTPStatus: http.StatusNotFound, Kind: KindUser, PublicMessage: "resource not found"},
	CodeConflict:        {HTTPStatus: http.StatusConflict, Kind: KindConflict, PublicMessage: "conflict detected"},
	CodeProvider:        {HTTPStatus: http.StatusBadGateway, Kind: KindProvider, PublicMessage: "payment provider unavailable"},
	CodeVerification:    {HTTPStatus: http.StatusBadRequest, Kind: KindProvider, PublicMessage: "event verification failed"},
	CodeIntegrity:       {HTTPStatus: http.StatusInternalServerError, Kind: KindIntegrity, PublicMessage: "data integrity violation"},
	CodeInternal:        {HTTPStatus: http.StatusInternalServerError, Kind: KindInternal, PublicMessage: "internal server error"},
}

// MetadataFor returns the metadata for code, defaulting to internal
func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

// Error is the typed error carried through the domain services
type Error struct {
	code    Code
	message string
	details map[string]any
	cause   error
}

// New creates an error with the given code and message
func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

// Wrap creates an error with the given code that wraps err
func Wrap(code Code, err error, message string) *Error {
	if err == nil {
		return New(code, message)
	}
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() map[string]any {
	if e == nil {
		return nil
	}
	return e.details
}

// WithDetail returns a copy of e carrying an additional detail entry.
// Sentinels are shared, so the receiver is never mutated.
func (e *Error) WithDetail(key string, value any) *Error {
	if e == nil {
		return nil
	}
	details := make(map[string]any, len(e.details)+1)
	for k, v := range e.details {
		details[k] = v
	}
	details[key] = value
	return &Error{code: e.code, message: e.message, details: details, cause: e.cause}
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// Is matches another *Error with the same code and message, which lets
// package sentinels be compared with errors.Is after wrapping.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.code == t.code && e.message == t.message
}

// As extracts the outermost *Error from err's chain
func As(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if errors.As(err, &typed) {
		return typed
	}
	return nil
}

// CodeOf returns the code of err, or CodeInternal for untyped errors
func CodeOf(err error) Code {
	if typed := As(err); typed != nil {
		return typed.Code()
	}
	return CodeInternal
}

// KindOf returns the handling policy of err
func KindOf(err error) Kind {
	return MetadataFor(CodeOf(err)).Kind
}

// HasCode reports whether any typed error in err's chain has the given code
func HasCode(err error, code Code) bool {
	for err != nil {
		var typed *Error
		if !errors.As(err, &typed) {
			return false
		}
		if typed.code == code {
			return true
		}
		err = typed.cause
	}
	return false
}

func Validation(message string) *Error      { return New(CodeValidation, message) }
func Unauthenticated(message string) *Error { return New(CodeUnauthenticated, message) }
func NotFound(message string) *Error        { return New(CodeNotFound, message) }
func Conflict(message string) *Error        { return New(CodeConflict, message) }
func Integrity(message string) *Error       { return New(CodeIntegrity, message) }
