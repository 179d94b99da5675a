package apperrors

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"

	"google.golang.org/genai"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var (
	// ErrInvalidConfig is returned for bad parameters. It is always raised before any I/O.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrSourceUnavailable is returned when a folder or repository cannot be read.
	ErrSourceUnavailable = errors.New("source unavailable")
	// ErrEmbeddingFailure is returned when the embedding service fails.
	ErrEmbeddingFailure = errors.New("embedding failure")
	// ErrIndexFailure is returned when the vector index fails.
	ErrIndexFailure = errors.New("index failure")
	// ErrNotFound is returned when a requested resource is not found.
	ErrNotFound = errors.New("not found")
)

// ValidationError represents a validation error with a field name.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field %s: %s", e.Field, e.Message)
}

// Unwrap makes every ValidationError match ErrInvalidConfig.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidConfig
}

// Invalid is shorthand for a ValidationError.
func Invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// OpError is a user-visible failure. It names the failing operation,
// the offending path or id, and whether the caller can retry.
type OpError struct {
	Op        string
	Path      string
	Kind      error
	Retryable bool
	Err       error
}

func (e *OpError) Error() string {
	msg := e.Op
	if e.Path != "" {
		msg += " " + e.Path
	}
	if e.Kind != nil {
		msg += ": " + e.Kind.Error()
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Retryable {
		msg += " (retryable)"
	}
	return msg
}

// Unwrap exposes both the kind sentinel and the cause to errors.Is/As.
func (e *OpError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// NewOpError builds an OpError, deriving Retryable from the cause.
func NewOpError(op, path string, kind, err error) *OpError {
	return &OpError{
		Op:        op,
		Path:      path,
		Kind:      kind,
		Retryable: IsRetryable(err),
		Err:       err,
	}
}

// StatusError carries an HTTP status code returned by a remote collaborator.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

// IsRetryable reports whether err is a transient failure worth retrying.
// Timeouts, rate limits, refused or reset connections and server-side
// errors qualify, whether they arrive as HTTP statuses, gRPC statuses or
// genai API errors.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrInvalidConfig) || errors.Is(err, context.Canceled) {
		return false
	}
	var opErr *OpError
	if errors.As(err, &opErr) {
		return opErr.Retryable
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return retryableStatus(statusErr.StatusCode)
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return retryableStatus(apiErr.Code)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return retryableStatus(apiErrPtr.Code)
	}
	switch status.Code(err) {
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted, codes.Aborted:
		return true
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}

func retryableStatus(code int) bool {
	return code == 429 || code >= 500
}

// WrapError wraps an error with additional context.
func WrapError(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}
