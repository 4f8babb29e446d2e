package agent

import (
	"context"
	"errors"
	"fmt"

	"github.com/hrygo/decorchat/plugin/ai"
)

// ErrorClass represents the category of an agent failure.
type ErrorClass int

const (
	// ErrorClassInternal covers every failure without a more specific class.
	ErrorClassInternal ErrorClass = iota

	// ErrorClassRateLimited means the model provider kept throttling past the retry budget.
	ErrorClassRateLimited

	// ErrorClassUnauthorized means the provider rejected the API key.
	ErrorClassUnauthorized

	// ErrorClassRecursionLimit means the step ceiling was hit.
	ErrorClassRecursionLimit

	// ErrorClassTimeout means the request deadline expired.
	ErrorClassTimeout
)

const (
	rateLimitedMessage  = "Service temporarily unavailable due to rate limits. Please try again in a minute."
	unauthorizedMessage = "Authentication failed. Please check your API configuration."
	genericMessage      = "Sorry, something went wrong while answering. Please try again."
)

// String returns the string representation of ErrorClass.
func (e ErrorClass) String() string {
	switch e {
	case ErrorClassInternal:
		return "internal"
	case ErrorClassRateLimited:
		return "rate_limited"
	case ErrorClassUnauthorized:
		return "unauthorized"
	case ErrorClassRecursionLimit:
		return "recursion_limit"
	case ErrorClassTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// ClassifiedError wraps an agent failure with its classification.
type ClassifiedError struct {
	Class    ErrorClass
	Original error
}

// Error returns the diagnostic message. It may contain provider details and
// must not be shown to end users; use UserMessage for that.
func (c *ClassifiedError) Error() string {
	switch c.Class {
	case ErrorClassRateLimited:
		return rateLimitedMessage
	case ErrorClassUnauthorized:
		return unauthorizedMessage
	}
	if c.Original == nil {
		return "Agent failed"
	}
	return fmt.Sprintf("Agent failed: %v", c.Original)
}

// Unwrap returns the original error for errors.Is/As.
func (c *ClassifiedError) Unwrap() error {
	return c.Original
}

// UserMessage returns text that is safe to show to the end user.
func (c *ClassifiedError) UserMessage() string {
	switch c.Class {
	case ErrorClassRateLimited:
		return rateLimitedMessage
	case ErrorClassUnauthorized:
		return unauthorizedMessage
	default:
		return genericMessage
	}
}

// IsRetryable reports whether the caller may retry the same request later.
func (c *ClassifiedError) IsRetryable() bool {
	return c.Class == ErrorClassRateLimited || c.Class == ErrorClassTimeout
}

// ClassifyError analyzes an error and determines its class.
// An error that is already classified is returned unchanged.
func ClassifyError(err error) *ClassifiedError {
	if err == nil {
		return nil
	}

	var classified *ClassifiedError
	if errors.As(err, &classified) {
		return classified
	}

	class := ErrorClassInternal
	switch {
	case ai.IsRateLimited(err):
		class = ErrorClassRateLimited
	case ai.IsUnauthorized(err):
		class = ErrorClassUnauthorized
	case errors.Is(err, ErrRecursionLimit):
		class = ErrorClassRecursionLimit
	case errors.Is(err, context.DeadlineExceeded):
		class = ErrorClassTimeout
	}
	return &ClassifiedError{Class: class, Original: err}
}
