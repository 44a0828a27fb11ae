package contracts

import (
	"context"
	"errors"

	"github.com/XavierBriggs/Moneta/pkg/models"
)

// Sentinel errors a provider implementation maps vendor failures onto.
// Callers branch with errors.Is; the concrete HTTP detail stays inside
// the adapter.
var (
	// ErrUnauthorized marks a bad or expired API key (HTTP 401/403).
	// Fatal: scheduling halts until configuration is fixed.
	ErrUnauthorized = errors.New("provider: unauthorized")

	// ErrRateLimited marks HTTP 429. The call did not consume a quota
	// unit and is retried on a later tick, never within the same tick.
	ErrRateLimited = errors.New("provider: rate limited")

	// ErrUnavailable marks transport failures, timeouts and 5xx
	// responses. Transient; retried with backoff.
	ErrUnavailable = errors.New("provider: unavailable")
)

// OddsProvider is the interface to the upstream odds vendor.
// RateLimits are returned whenever response headers were received,
// including on error responses -- they are the authoritative quota
// signal and must be read on every response.
type OddsProvider interface {
	// FetchOdds retrieves head-to-head odds for one sport key.
	FetchOdds(ctx context.Context, sportKey string) ([]models.RawMatch, *models.RateLimits, error)

	// FetchSports retrieves the vendor's sport catalog.
	FetchSports(ctx context.Context) ([]models.RawSport, *models.RateLimits, error)
}
