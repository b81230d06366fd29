package domain

import (
	"errors"
	"fmt"
)

// Transport and stream sentinels. Only ErrTransportOpen, ErrStreamRead and
// ErrMissingCursor drive a session into the Errored state; ErrFrameDecode is
// absorbed per frame.
var (
	ErrTransportOpen = fmt.Errorf("transport open failed")
	ErrMissingCursor = fmt.Errorf("%w: response has no body", ErrTransportOpen)
	ErrStreamRead    = fmt.Errorf("stream read failed")
	ErrFrameTooLarge = fmt.Errorf("%w: frame exceeds size limit", ErrStreamRead)
	ErrFrameDecode   = fmt.Errorf("frame decode failed")
)

// HTTP status categories, always wrapped together with ErrTransportOpen.
var (
	ErrRateLimit   = fmt.Errorf("rate limit exceeded")
	ErrServerError = fmt.Errorf("agent server error")
	ErrBreakerOpen = fmt.Errorf("circuit breaker open")
)

// Session lifecycle errors.
var (
	ErrSessionStarted  = fmt.Errorf("session already started")
	ErrSessionCanceled = fmt.Errorf("session canceled")
	ErrEmptyQuery      = fmt.Errorf("query is empty")
	ErrConfigLoad      = fmt.Errorf("failed to load configuration")
)

// DomainError wraps a sentinel error with context.
type DomainError struct {
	Op     string // operation name (e.g., "Session.Start")
	Err    error  // underlying sentinel or wrapped error
	Detail string // human-readable detail
}

func (e *DomainError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

func (e *DomainError) Unwrap() error { return e.Err }

// NewDomainError creates a new DomainError.
func NewDomainError(op string, err error, detail string) *DomainError {
	return &DomainError{Op: op, Err: err, Detail: detail}
}

// WrapOp adds operation context to an error using fmt.Errorf wrapping.
// Returns nil if err is nil, enabling idiomatic use: return domain.WrapOp("op", err)
func WrapOp(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}

// IsTerminalError reports whether err must move a session to Errored.
func IsTerminalError(err error) bool {
	return errors.Is(err, ErrTransportOpen) || errors.Is(err, ErrStreamRead)
}

// ErrorCode is a machine-parseable error category for logs and exit codes.
type ErrorCode string

const (
	CodeUnknown        ErrorCode = "UNKNOWN"
	CodeTransportOpen  ErrorCode = "TRANSPORT_OPEN"
	CodeMissingCursor  ErrorCode = "MISSING_CURSOR"
	CodeStreamRead     ErrorCode = "STREAM_READ"
	CodeFrameTooLarge  ErrorCode = "FRAME_TOO_LARGE"
	CodeFrameDecode    ErrorCode = "FRAME_DECODE"
	CodeRateLimit      ErrorCode = "RATE_LIMIT"
	CodeServerError    ErrorCode = "SERVER_ERROR"
	CodeBreakerOpen    ErrorCode = "BREAKER_OPEN"
	CodeSessionStarted ErrorCode = "SESSION_STARTED"
	CodeCanceled       ErrorCode = "CANCELED"
	CodeEmptyQuery     ErrorCode = "EMPTY_QUERY"
	CodeConfigLoad     ErrorCode = "CONFIG_LOAD"
)

// errorCodeOrder lists sentinels from most to least specific, so a wrapped
// ErrMissingCursor resolves before its parent ErrTransportOpen.
var errorCodeOrder = []struct {
	err  error
	code ErrorCode
}{
	{ErrMissingCursor, CodeMissingCursor},
	{ErrFrameTooLarge, CodeFrameTooLarge},
	{ErrRateLimit, CodeRateLimit},
	{ErrServerError, CodeServerError},
	{ErrBreakerOpen, CodeBreakerOpen},
	{ErrTransportOpen, CodeTransportOpen},
	{ErrStreamRead, CodeStreamRead},
	{ErrFrameDecode, CodeFrameDecode},
	{ErrSessionStarted, CodeSessionStarted},
	{ErrSessionCanceled, CodeCanceled},
	{ErrEmptyQuery, CodeEmptyQuery},
	{ErrConfigLoad, CodeConfigLoad},
}

// ErrorCodeOf returns the machine-parseable error code for the given error.
// Returns CodeUnknown if no matching sentinel is found.
func ErrorCodeOf(err error) ErrorCode {
	if err == nil {
		return CodeUnknown
	}
	for _, e := range errorCodeOrder {
		if errors.Is(err, e.err) {
			return e.code
		}
	}
	return CodeUnknown
}

// Code returns the ErrorCode for this DomainError's underlying sentinel.
func (e *DomainError) Code() ErrorCode {
	return ErrorCodeOf(e.Err)
}
