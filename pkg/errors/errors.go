package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorType classifies failures of a crawl run
type ErrorType string

const (
	ErrorTypeBootstrap         ErrorType = "bootstrap"
	ErrorTypeTransport         ErrorType = "transport"
	ErrorTypeMalformedResponse ErrorType = "malformed_response"
	ErrorTypeMalformedTree     ErrorType = "malformed_tree"
	ErrorTypeDuplicateEntity   ErrorType = "duplicate_entity"
	ErrorTypeIntegrity         ErrorType = "integrity"
	ErrorTypeStorage           ErrorType = "storage"
	ErrorTypeConfig            ErrorType = "config"
	ErrorTypeUnknown           ErrorType = "unknown"
)

// Sentinels for errors.Is comparisons. Only the Type is compared.
var (
	ErrBootstrap         = &Error{Type: ErrorTypeBootstrap}
	ErrTransport         = &Error{Type: ErrorTypeTransport}
	ErrMalformedResponse = &Error{Type: ErrorTypeMalformedResponse}
	ErrMalformedTree     = &Error{Type: ErrorTypeMalformedTree}
	ErrDuplicateEntity   = &Error{Type: ErrorTypeDuplicateEntity}
	ErrIntegrity         = &Error{Type: ErrorTypeIntegrity}
	ErrStorage           = &Error{Type: ErrorTypeStorage}
)

// Error is a typed failure. Op names the operation that failed
// (for example "selector.get" or "store.insert_region").
type Error struct {
	Type    ErrorType
	Op      string
	Message string
	Code    int
	Err     error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s error", e.Type)
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Code != 0 {
		msg += fmt.Sprintf(" (code %d)", e.Code)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is a sentinel of the same type.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Op == "" && t.Err == nil && t.Type == e.Type
}

// New creates a typed error
func New(t ErrorType, op, message string) *Error {
	return &Error{Type: t, Op: op, Message: message}
}

// Newf creates a typed error with a formatted message
func Newf(t ErrorType, op, format string, args ...interface{}) *Error {
	return &Error{Type: t, Op: op, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a type and operation to err
func Wrap(t ErrorType, op string, err error) *Error {
	return &Error{Type: t, Op: op, Err: err}
}

// TypeOf returns the type of the first *Error in err's chain
func TypeOf(err error) ErrorType {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Type
	}
	return ErrorTypeUnknown
}

// IsRetryable checks if an error type should be retried.
// Transport failures are the only class absorbed locally.
func IsRetryable(errorType ErrorType) bool {
	return errorType == ErrorTypeTransport
}

// IsRetryableStatusCode checks if an HTTP status code indicates a transient failure
func IsRetryableStatusCode(statusCode int) bool {
	switch statusCode {
	case 0, 429:
		return true
	case 500, 502, 503, 504:
		return true
	default:
		return statusCode >= 500
	}
}

// phaser is implemented by errors that know which phase they interrupted.
// It names the phase of untyped errors such as context cancellation.
type phaser interface {
	Phase() string
}

// Phase maps an error onto the crawl phase reported to the user
func Phase(err error) string {
	t := TypeOf(err)
	if t == ErrorTypeUnknown {
		var p phaser
		if stderrors.As(err, &p) {
			return p.Phase()
		}
	}
	switch t {
	case ErrorTypeBootstrap:
		return "bootstrap"
	case ErrorTypeTransport, ErrorTypeMalformedResponse:
		return "fetch"
	case ErrorTypeDuplicateEntity, ErrorTypeIntegrity, ErrorTypeStorage:
		return "persist"
	case ErrorTypeMalformedTree:
		return "crawl"
	case ErrorTypeConfig:
		return "config"
	default:
		return "run"
	}
}
