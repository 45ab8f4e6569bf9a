package openaicompat

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/openai/openai-go"

	"github.com/flemzord/tgrelay/internal/provider"
)

// mapError classifies an SDK error into the provider sentinels so the
// completer can report transient failures. The original error stays in
// the chain.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var apiErr *openai.Error
	if !errors.As(err, &apiErr) {
		// Transport failure: DNS, refused connection, TLS.
		return fmt.Errorf("%w: %w", provider.ErrProviderDown, err)
	}

	switch code := apiErr.StatusCode; {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return fmt.Errorf("%w: %w", provider.ErrAuth, err)
	case code == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %w", provider.ErrRateLimit, err)
	case code >= http.StatusInternalServerError:
		return fmt.Errorf("%w: %w", provider.ErrProviderDown, err)
	case code == http.StatusBadRequest && isContextLength(apiErr):
		return fmt.Errorf("%w: %w", provider.ErrContextLength, err)
	}
	return err
}

func isContextLength(e *openai.Error) bool {
	if e.Code == "context_length_exceeded" {
		return true
	}
	// Some compatible servers only put the hint in the raw body, which
	// Error() includes.
	for _, s := range []string{e.Message, e.Error()} {
		s = strings.ToLower(s)
		if strings.Contains(s, "context length") || strings.Contains(s, "context_length") {
			return true
		}
	}
	return false
}
