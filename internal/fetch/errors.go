package fetch

import (
	"errors"
	"fmt"
)

// Kind is the error taxonomy for refresh failures. Each kind has a
// fixed recovery story; callers branch on it, never on error strings.
type Kind string

const (
	// KindQuotaExhausted: a budget counter is at its limit or the
	// governor is blocking. Recoverable next period; never retried
	// within the same period.
	KindQuotaExhausted Kind = "quota_exhausted"

	// KindAlreadyUpdated: the sport was refreshed today. Recoverable
	// at the next day boundary.
	KindAlreadyUpdated Kind = "already_updated_today"

	// KindRateLimited: HTTP 429. No quota unit was consumed; retried
	// with backoff on a later tick.
	KindRateLimited Kind = "rate_limited"

	// KindUnauthorized: bad or expired key. Fatal; the scheduler
	// halts until configuration is fixed.
	KindUnauthorized Kind = "unauthorized"

	// KindNetwork: transport failure, timeout, or 5xx. Transient;
	// retried with backoff up to a bounded attempt count, then the
	// sport is marked failed for today.
	KindNetwork Kind = "network_or_timeout"
)

// Error is a typed refresh failure.
type Error struct {
	Kind  Kind
	Sport string
	Err   error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("fetch %s: %s", e.Sport, e.Kind)
	}
	return fmt.Sprintf("fetch %s: %s: %v", e.Sport, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf extracts the taxonomy kind, or "" for untyped errors.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}
