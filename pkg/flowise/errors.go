package flowise

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrProviderUnavailable wraps transport failures (dial, timeout, reset).
var ErrProviderUnavailable = errors.New("provider unavailable")

// ProviderError is a non-2xx answer from the provider.
type ProviderError struct {
	StatusCode int
	Path       string
	Body       string
}

func (e *ProviderError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("provider %s: http %d", e.Path, e.StatusCode)
	}
	return fmt.Sprintf("provider %s: http %d: %s", e.Path, e.StatusCode, e.Body)
}

// Temporary reports whether retrying the same request can succeed.
func (e *ProviderError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// IsTransient reports whether err is a network failure or a retryable status.
func IsTransient(err error) bool {
	if errors.Is(err, ErrProviderUnavailable) {
		return true
	}
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Temporary()
}
