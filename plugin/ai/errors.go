package ai

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"
)

var (
	// ErrRateLimited means the provider throttled the request (HTTP 429 or equivalent).
	ErrRateLimited = errors.New("rate limited by model provider")

	// ErrUnauthorized means the provider rejected the credentials.
	ErrUnauthorized = errors.New("model provider rejected credentials")
)

// classifyProviderError tags go-openai errors with ErrRateLimited or ErrUnauthorized
// so callers can branch with errors.Is. Other errors are returned unchanged.
func classifyProviderError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrRateLimited) || errors.Is(err, ErrUnauthorized) {
		return err
	}

	switch statusCode(err) {
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %w", ErrRateLimited, err)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "resource_exhausted"),
		strings.Contains(msg, "rate limit"),
		strings.Contains(msg, "too many requests"):
		return fmt.Errorf("%w: %w", ErrRateLimited, err)
	case strings.Contains(msg, "api key not valid"),
		strings.Contains(msg, "permission_denied"),
		strings.Contains(msg, "unauthenticated"):
		return fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}
	return err
}

func statusCode(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}

// IsRateLimited reports whether err signals provider throttling.
func IsRateLimited(err error) bool {
	return errors.Is(classifyProviderError(err), ErrRateLimited)
}

// IsUnauthorized reports whether err signals an authentication failure.
func IsUnauthorized(err error) bool {
	return errors.Is(classifyProviderError(err), ErrUnauthorized)
}
