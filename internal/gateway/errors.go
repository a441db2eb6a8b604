package gateway

import (
	"fmt"
	"time"
)

// RateLimitedError reports that the upstream kept returning 429 after
// the retry budget was exhausted. Attempts counts every call made,
// including the first.
type RateLimitedError struct {
	Attempts   int
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited by upstream after %d attempts", e.Attempts)
}

// UpstreamError carries a non-2xx upstream response verbatim. The
// gateway does not interpret domain-specific error bodies.
type UpstreamError struct {
	Status int
	Body   []byte
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream error: status %d", e.Status)
}

// TransportError wraps a network-level failure (DNS, connection
// refused). The gateway does not retry these; idempotent callers may.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
