package extraction

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors the selector and controller branch on.
var (
	// ErrNoProviderAvailable means every configured backend is demoted or
	// failed within the same turn.
	ErrNoProviderAvailable = errors.New("nenhum provedor de extração disponível")

	// ErrMalformed means the backend answered but the payload is not the
	// JSON object the prompt demanded.
	ErrMalformed = errors.New("resposta de extração malformada")
)

// BackendError wraps a failure from a specific backend with enough
// classification for the selector to decide between demotion and plain
// failover.
type BackendError struct {
	Backend     string
	StatusCode  int
	RateLimited bool
	Cause       error
}

func (e *BackendError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("backend %s: %v", e.Backend, e.Cause)
	}
	return fmt.Sprintf("backend %s: status %d", e.Backend, e.StatusCode)
}

func (e *BackendError) Unwrap() error { return e.Cause }

// classifyHTTP builds a BackendError from an HTTP status. 429 and the
// quota-style 5xx answers some providers return under load both count as
// rate limiting and demote the backend.
func classifyHTTP(backend string, status int, body string) *BackendError {
	be := &BackendError{Backend: backend, StatusCode: status}
	if status == 429 || status == 503 {
		be.RateLimited = true
	}
	lower := strings.ToLower(body)
	if strings.Contains(lower, "rate_limit") || strings.Contains(lower, "rate limit") ||
		strings.Contains(lower, "quota") {
		be.RateLimited = true
	}
	return be
}

// IsRateLimited reports whether err carries a rate-limit classification.
func IsRateLimited(err error) bool {
	var be *BackendError
	return errors.As(err, &be) && be.RateLimited
}
