// Package fetch executes a single bounded refresh: serve from cache if
// possible, otherwise spend one quota unit on the vendor and cache the
// normalized result. All failures come back as typed errors; the
// fetcher itself never retries.
package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/XavierBriggs/Moneta/internal/cache"
	"github.com/XavierBriggs/Moneta/internal/metrics"
	"github.com/XavierBriggs/Moneta/internal/normalize"
	"github.com/XavierBriggs/Moneta/internal/quota"
	"github.com/XavierBriggs/Moneta/pkg/contracts"
	"github.com/XavierBriggs/Moneta/pkg/models"
)

// Result is the outcome of a successful refresh.
type Result struct {
	Matches   []models.NormalizedMatch
	FromCache bool
	FetchedAt time.Time
	Dropped   int
}

// Fetcher performs the bounded vendor call.
type Fetcher struct {
	provider   contracts.OddsProvider
	store      cache.Store
	ledger     *quota.Ledger
	normalizer *normalize.Normalizer
	limiter    *rate.Limiter
	met        *metrics.Set
	log        *logrus.Entry
	oddsTTL    time.Duration
	catalogTTL time.Duration
}

// Config holds fetcher tunables.
type Config struct {
	OddsTTL    time.Duration // defaults to cache.OddsTTL
	CatalogTTL time.Duration // defaults to cache.CatalogTTL
	MinCallGap time.Duration // floor pacing between vendor calls
}

// New creates a fetcher.
func New(provider contracts.OddsProvider, store cache.Store, ledger *quota.Ledger, normalizer *normalize.Normalizer, met *metrics.Set, cfg Config, logger *logrus.Logger) *Fetcher {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if cfg.OddsTTL == 0 {
		cfg.OddsTTL = cache.OddsTTL
	}
	if cfg.CatalogTTL == 0 {
		cfg.CatalogTTL = cache.CatalogTTL
	}
	if cfg.MinCallGap == 0 {
		cfg.MinCallGap = time.Second
	}

	return &Fetcher{
		provider:   provider,
		store:      store,
		ledger:     ledger,
		normalizer: normalizer,
		limiter:    rate.NewLimiter(rate.Every(cfg.MinCallGap), 1),
		met:        met,
		log:        logger.WithField("component", "fetch"),
		oddsTTL:    cfg.OddsTTL,
		catalogTTL: cfg.CatalogTTL,
	}
}

// Fetch refreshes one sport. A cache hit returns without consuming
// quota. Zero matches is a success: it simply yields no opportunities.
func (f *Fetcher) Fetch(ctx context.Context, sportKey string) (*Result, error) {
	key := cache.OddsKeyPrefix + sportKey

	if entry, err := f.store.Get(ctx, key); err == nil && entry != nil {
		var matches []models.NormalizedMatch
		if err := json.Unmarshal(entry.Payload, &matches); err == nil {
			f.met.CacheHits.Inc()
			return &Result{Matches: matches, FromCache: true, FetchedAt: entry.StoredAt}, nil
		}
		// Corrupt cache entry: fall through to a real fetch.
	} else if err != nil {
		f.log.WithError(err).Warn("cache read failed, fetching from vendor")
	}
	f.met.CacheMisses.Inc()

	if !f.ledger.CanRefreshSport(sportKey) {
		if f.ledger.AlreadyUpdated(sportKey) {
			return nil, &Error{Kind: KindAlreadyUpdated, Sport: sportKey}
		}
		return nil, &Error{Kind: KindQuotaExhausted, Sport: sportKey}
	}

	// Floor pacing between consecutive vendor calls, independent of
	// the governor.
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, &Error{Kind: KindNetwork, Sport: sportKey, Err: err}
	}

	raw, limits, err := f.provider.FetchOdds(ctx, sportKey)
	if err != nil {
		// Error responses still carry the quota headers when one was
		// received; the telemetry is authoritative either way.
		f.ledger.ObserveLimits(limits)
		return nil, f.mapProviderError(sportKey, err)
	}

	// A response was received: charge the unit and reconcile against
	// the vendor's counters.
	f.ledger.RecordRequest(sportKey, limits)
	f.met.RequestsTotal.WithLabelValues("ok").Inc()
	if limits != nil && limits.RequestsRemaining >= 0 {
		f.met.RemainingRequests.Set(float64(limits.RequestsRemaining))
	}

	matches, dropped := f.normalizer.Normalize(raw)
	if dropped > 0 {
		f.met.DroppedMatches.Add(float64(dropped))
	}

	payload, err := json.Marshal(matches)
	if err == nil {
		if err := f.store.Set(ctx, key, payload, f.oddsTTL); err != nil {
			// Cache failure is not a fetch failure.
			f.log.WithError(err).Warn("cache write failed")
		}
	}

	f.log.WithFields(logrus.Fields{
		"sport":   sportKey,
		"matches": len(matches),
		"dropped": dropped,
	}).Info("refreshed from vendor")

	return &Result{Matches: matches, FetchedAt: time.Now().UTC(), Dropped: dropped}, nil
}

// FetchCatalog returns the vendor's sport catalog, served from the
// long-TTL cache when possible. Catalog requests do not count against
// the plan, but their headers still carry quota telemetry.
func (f *Fetcher) FetchCatalog(ctx context.Context) ([]models.RawSport, error) {
	if entry, err := f.store.Get(ctx, cache.CatalogKey); err == nil && entry != nil {
		var sports []models.RawSport
		if err := json.Unmarshal(entry.Payload, &sports); err == nil {
			return sports, nil
		}
	}

	if err := f.limiter.Wait(ctx); err != nil {
		return nil, &Error{Kind: KindNetwork, Sport: "catalog", Err: err}
	}

	sports, limits, err := f.provider.FetchSports(ctx)
	f.ledger.ObserveLimits(limits)
	if err != nil {
		return nil, f.mapProviderError("catalog", err)
	}

	if payload, err := json.Marshal(sports); err == nil {
		if err := f.store.Set(ctx, cache.CatalogKey, payload, f.catalogTTL); err != nil {
			f.log.WithError(err).Warn("catalog cache write failed")
		}
	}
	return sports, nil
}

// mapProviderError folds provider sentinels into the taxonomy.
func (f *Fetcher) mapProviderError(sportKey string, err error) error {
	var kind Kind
	switch {
	case errors.Is(err, contracts.ErrUnauthorized):
		kind = KindUnauthorized
	case errors.Is(err, contracts.ErrRateLimited):
		// The vendor refused the call; no quota unit was consumed and
		// the ledger stays untouched.
		kind = KindRateLimited
	default:
		kind = KindNetwork
	}

	f.met.RequestsTotal.WithLabelValues(string(kind)).Inc()
	f.met.FetchErrorsByKind.WithLabelValues(string(kind)).Inc()
	return &Error{Kind: kind, Sport: sportKey, Err: err}
}
