package ai

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a provider failure so callers can decide whether
// to retry, back off, or give up.
type ErrorKind string

const (
	// KindRateLimited indicates the provider rejected the request due to
	// rate limiting. Safe to retry after backing off.
	KindRateLimited ErrorKind = "rate_limited"

	// KindUnavailable indicates the provider could not be reached or
	// returned a server-side error.
	KindUnavailable ErrorKind = "unavailable"

	// KindBadResponse indicates the provider answered but the response
	// was unusable (empty, malformed, wrong shape).
	KindBadResponse ErrorKind = "bad_response"
)

// ProviderError wraps a failure from an AI provider with enough context
// to log and classify it.
type ProviderError struct {
	Provider string    // "openai" or "ollama"
	Op       string    // operation that failed, e.g. "completion"
	Kind     ErrorKind // failure classification
	Err      error     // underlying error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s %s failed (%s): %v", e.Provider, e.Op, e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// IsRateLimited reports whether err is a provider error caused by rate
// limiting.
func IsRateLimited(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Kind == KindRateLimited
}

// IsRetryable reports whether err is worth retrying: rate limits and
// transient provider outages qualify, malformed responses do not.
func IsRetryable(err error) bool {
	var pe *ProviderError
	if !errors.As(err, &pe) {
		return false
	}
	return pe.Kind == KindRateLimited || pe.Kind == KindUnavailable
}
