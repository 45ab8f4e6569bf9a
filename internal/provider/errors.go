package provider

import "errors"

// Sentinel errors for provider operations.
var (
	// ErrRateLimit indicates the provider returned a rate limit response.
	ErrRateLimit = errors.New("provider rate limited")

	// ErrContextLength indicates the request exceeded the model's context window.
	ErrContextLength = errors.New("context length exceeded")

	// ErrProviderDown indicates the provider is temporarily unavailable.
	ErrProviderDown = errors.New("provider unavailable")

	// ErrAuth indicates the provider rejected the API key.
	ErrAuth = errors.New("provider authentication failed")

	// ErrNoProvider indicates no provider module is loaded.
	ErrNoProvider = errors.New("no provider configured")
)

// IsTransient reports whether the error is likely to clear on its own.
// Requests are never retried; the classification only feeds logs and
// health tracking.
func IsTransient(err error) bool {
	return errors.Is(err, ErrRateLimit) || errors.Is(err, ErrProviderDown)
}
