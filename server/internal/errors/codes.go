package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/hrygo/decorchat/plugin/ai/agent"
)

// ErrorCode represents a specific error type for chat operations.
type ErrorCode string

const (
	// ErrCodeUnauthorized indicates the model provider rejected the API key.
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	// ErrCodeRateLimitExceeded indicates rate limit has been exceeded.
	ErrCodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"
	// ErrCodeInvalidArgument indicates invalid input parameters.
	ErrCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
	// ErrCodeAgentExecutionFailed indicates agent execution failure.
	ErrCodeAgentExecutionFailed ErrorCode = "AGENT_EXECUTION_FAILED"
	// ErrCodeRecursionLimit indicates the agent ran out of steps.
	ErrCodeRecursionLimit ErrorCode = "RECURSION_LIMIT"
	// ErrCodeContextCanceled indicates the operation was canceled.
	ErrCodeContextCanceled ErrorCode = "CONTEXT_CANCELED"
	// ErrCodeTimeout indicates the operation timed out.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
)

// InternalServerErrorMessage is the only failure text shown for non rate-limit errors.
const InternalServerErrorMessage = "Internal server error"

// AIError represents a structured error for chat operations.
type AIError struct {
	Code    ErrorCode
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface.
func (e *AIError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *AIError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error.
func (e *AIError) WithContext(key string, value interface{}) *AIError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// HTTPStatus is the response status for the error code.
func (e *AIError) HTTPStatus() int {
	switch e.Code {
	case ErrCodeInvalidArgument:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage is the text returned to the client. Only rate limits carry
// their own user-safe text, everything else is reported generically.
func (e *AIError) PublicMessage() string {
	switch e.Code {
	case ErrCodeInvalidArgument:
		return e.Message
	case ErrCodeRateLimitExceeded:
		var classified *agent.ClassifiedError
		if stderrors.As(e.Cause, &classified) {
			return classified.UserMessage()
		}
		return e.Message
	default:
		return InternalServerErrorMessage
	}
}

// InvalidArgument creates an invalid argument error.
func InvalidArgument(msg string) *AIError {
	return &AIError{Code: ErrCodeInvalidArgument, Message: msg}
}

// AgentExecutionFailed creates an agent execution failed error.
func AgentExecutionFailed(msg string, cause error) *AIError {
	return &AIError{Code: ErrCodeAgentExecutionFailed, Message: msg, Cause: cause}
}

// Wrap wraps an existing error with additional context.
func Wrap(cause error, code ErrorCode, msg string) *AIError {
	return &AIError{Code: code, Message: msg, Cause: cause}
}

// FromAgentError maps an agent loop failure to its error code.
func FromAgentError(err error) *AIError {
	var aiErr *AIError
	if stderrors.As(err, &aiErr) {
		return aiErr
	}
	classified := agent.ClassifyError(err)
	switch classified.Class {
	case agent.ErrorClassRateLimited:
		return Wrap(classified, ErrCodeRateLimitExceeded, classified.UserMessage())
	case agent.ErrorClassUnauthorized:
		return Wrap(classified, ErrCodeUnauthorized, "model provider rejected credentials")
	case agent.ErrorClassRecursionLimit:
		return Wrap(classified, ErrCodeRecursionLimit, "agent exceeded its step limit")
	case agent.ErrorClassTimeout:
		return Wrap(classified, ErrCodeTimeout, "agent timed out")
	}
	if stderrors.Is(err, context.Canceled) {
		return Wrap(classified, ErrCodeContextCanceled, "operation canceled")
	}
	return AgentExecutionFailed("agent execution failed", classified)
}

// IsCode checks if an error is of a specific code.
func IsCode(err error, code ErrorCode) bool {
	var aiErr *AIError
	if stderrors.As(err, &aiErr) {
		return aiErr.Code == code
	}
	return false
}

// GetCodeFromError extracts the error code from any error.
// Returns the provided default code if the error is not an AIError.
func GetCodeFromError(err error, defaultCode ErrorCode) ErrorCode {
	var aiErr *AIError
	if stderrors.As(err, &aiErr) {
		return aiErr.Code
	}
	return defaultCode
}
