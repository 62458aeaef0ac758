package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unified error code across the pipeline.
type ErrorCode string

// Stage failure codes. Each maps to a contained, degraded-but-valid
// pipeline outcome; none of them propagate to the caller as a fault.
const (
	ErrExtractionFailure ErrorCode = "EXTRACTION_FAILURE" // degrade to unexpanded query
	ErrEmbeddingFailure  ErrorCode = "EMBEDDING_FAILURE"  // degrade to sparse-only retrieval
	ErrRetrievalEmpty    ErrorCode = "RETRIEVAL_EMPTY"    // short-circuit to insufficient-information answer
	ErrRerankFailure     ErrorCode = "RERANK_FAILURE"     // fall back to fused-score ordering
	ErrGenerationFailure ErrorCode = "GENERATION_FAILURE" // one retry, then suppressed
	ErrValidationFailure ErrorCode = "VALIDATION_FAILURE" // treated as unsupported, never supported
)

// Caller-facing codes.
const (
	ErrInvalidQuery         ErrorCode = "INVALID_QUERY"
	ErrConversationNotFound ErrorCode = "CONVERSATION_NOT_FOUND"
	ErrTimeout              ErrorCode = "TIMEOUT"
	ErrStoreUnavailable     ErrorCode = "STORE_UNAVAILABLE"
	ErrProviderUnavailable  ErrorCode = "PROVIDER_UNAVAILABLE"
	ErrIndexClosed          ErrorCode = "INDEX_CLOSED"
	ErrEmbeddingDimMismatch ErrorCode = "EMBEDDING_DIM_MISMATCH"
)

// Error represents a structured pipeline error with code, stage, and cause.
type Error struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Stage     string    `json:"stage,omitempty"`
	Retryable bool      `json:"retryable"`
	Cause     error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithStage records the pipeline stage the error occurred in.
func (e *Error) WithStage(stage string) *Error {
	e.Stage = stage
	return e
}

// WithRetryable marks the error as retryable.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// GetErrorCode extracts the error code from an error, unwrapping as needed.
func GetErrorCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	return false
}
