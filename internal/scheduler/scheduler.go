// Package scheduler drives the refresh loop. One tick at a time it
// picks the highest-priority eligible sport, runs the fetch and
// analysis pipeline, and hands the report to the result sink. At most
// one fetch is ever in flight; a tick that lands during a fetch is a
// no-op.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/XavierBriggs/Moneta/internal/analyze"
	"github.com/XavierBriggs/Moneta/internal/cache"
	"github.com/XavierBriggs/Moneta/internal/calendar"
	"github.com/XavierBriggs/Moneta/internal/fetch"
	"github.com/XavierBriggs/Moneta/internal/governor"
	"github.com/XavierBriggs/Moneta/internal/metrics"
	"github.com/XavierBriggs/Moneta/internal/quota"
	"github.com/XavierBriggs/Moneta/internal/sports"
	"github.com/XavierBriggs/Moneta/pkg/contracts"
	"github.com/XavierBriggs/Moneta/pkg/models"
)

// ErrBusy is returned when a forced refresh arrives while a fetch is
// already in flight. The caller retries later; the scheduler never
// queues.
var ErrBusy = errors.New("scheduler: refresh in flight")

// ErrHalted is returned after an unauthorized response from the
// vendor. Only a restart with a fixed key clears it.
var ErrHalted = errors.New("scheduler: halted on unauthorized response")

// ErrUnknownSport is returned for force-refresh requests naming a
// sport that is not in the catalog.
var ErrUnknownSport = errors.New("scheduler: unknown sport")

// Config holds scheduler tunables.
type Config struct {
	Tick        time.Duration // refresh loop period, default 60s
	MaxAttempts int           // transient-failure attempts per sport per day, default 3
	BackoffBase time.Duration // first retry delay, doubled per attempt, default 2s
}

func (c *Config) applyDefaults() {
	if c.Tick == 0 {
		c.Tick = time.Minute
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = 3
	}
	if c.BackoffBase == 0 {
		c.BackoffBase = 2 * time.Second
	}
}

// retryState tracks cross-tick retries for one sport. Entries are
// scoped to a calendar day and cleared at the boundary.
type retryState struct {
	dayKey        string
	attempts      int
	nextAttemptAt time.Time
	failedToday   bool
}

// Scheduler owns the refresh loop and all operator entry points.
type Scheduler struct {
	cfg      Config
	cal      *calendar.Boundary
	ledger   *quota.Ledger
	gov      *governor.Governor
	registry *sports.Registry
	fetcher  *fetch.Fetcher
	cache    cache.Store
	store    contracts.StateStore
	sink     contracts.ResultSink
	met      *metrics.Set
	log      *logrus.Entry

	inFlight atomic.Bool
	halted   atomic.Bool
	dropped  atomic.Int64

	mu    sync.Mutex
	retry map[string]*retryState

	cron     *cron.Cron
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// New creates a scheduler. The sink may be nil when no presentation
// layer is attached.
func New(
	cfg Config,
	cal *calendar.Boundary,
	ledger *quota.Ledger,
	gov *governor.Governor,
	registry *sports.Registry,
	fetcher *fetch.Fetcher,
	cacheStore cache.Store,
	store contracts.StateStore,
	sink contracts.ResultSink,
	met *metrics.Set,
	logger *logrus.Logger,
) *Scheduler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	cfg.applyDefaults()

	return &Scheduler{
		cfg:      cfg,
		cal:      cal,
		ledger:   ledger,
		gov:      gov,
		registry: registry,
		fetcher:  fetcher,
		cache:    cacheStore,
		store:    store,
		sink:     sink,
		met:      met,
		log:      logger.WithField("component", "scheduler"),
		retry:    make(map[string]*retryState),
		stopChan: make(chan struct{}),
	}
}

// Start restores persisted state, installs the persistence hook and
// launches the tick loop plus the calendar cron jobs.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.registry.Count() == 0 {
		return fmt.Errorf("no sports registered")
	}

	st, err := s.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}
	s.ledger.Restore(st.Quota)
	s.gov.Restore(st.Emergency)
	s.ledger.SetPersist(func(q models.QuotaState) {
		s.saveState(q)
	})

	s.cron = cron.New(cron.WithLocation(s.cal.Location()))
	// Midnight rollover: the ledger resets lazily anyway, this makes
	// the reset prompt and clears the retry book.
	if _, err := s.cron.AddFunc("0 0 * * *", s.rollover); err != nil {
		return fmt.Errorf("register rollover job: %w", err)
	}
	if _, err := s.cron.AddFunc("0 * * * *", s.sweepCache); err != nil {
		return fmt.Errorf("register sweep job: %w", err)
	}
	s.cron.Start()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(ctx)
	}()

	s.log.WithFields(logrus.Fields{
		"tick":   s.cfg.Tick,
		"sports": s.registry.Count(),
	}).Info("scheduler started")
	return nil
}

// Stop shuts the loop down and waits for an in-flight refresh to
// finish.
func (s *Scheduler) Stop() {
	close(s.stopChan)
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
	s.wg.Wait()
}

func (s *Scheduler) run(ctx context.Context) {
	// First tick immediately so a fresh start does not idle a full
	// period.
	s.tick(ctx)

	ticker := time.NewTicker(s.cfg.Tick)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.tick(ctx)
		case <-s.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

// tick runs one scheduling decision. It never blocks on a concurrent
// refresh: if one is in flight the tick is simply skipped.
func (s *Scheduler) tick(ctx context.Context) {
	if s.halted.Load() {
		return
	}
	if !s.inFlight.CompareAndSwap(false, true) {
		return
	}
	defer s.inFlight.Store(false)

	now := s.cal.Now()
	desc := s.registry.NextEligible(eligibilityFunc(func(key string) bool {
		return !s.retryBlocked(key, now) && s.ledger.CanRefreshSport(key)
	}))
	if desc == nil {
		return
	}

	if _, err := s.refresh(ctx, desc.Key); err != nil {
		s.log.WithError(err).WithField("sport", desc.Key).Warn("scheduled refresh failed")
	}
}

// ForceRefresh refreshes one sport outside the tick cadence. An empty
// sport key refreshes the next eligible sport. The same eligibility
// rules apply either way: forcing never bypasses the quota ledger or
// the governor.
func (s *Scheduler) ForceRefresh(ctx context.Context, sportKey string) (*models.RefreshReport, error) {
	if s.halted.Load() {
		return nil, ErrHalted
	}
	if sportKey != "" {
		if _, ok := s.registry.Get(sportKey); !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownSport, sportKey)
		}
	}
	if !s.inFlight.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer s.inFlight.Store(false)

	if sportKey == "" {
		now := s.cal.Now()
		desc := s.registry.NextEligible(eligibilityFunc(func(key string) bool {
			return !s.retryBlocked(key, now) && s.ledger.CanRefreshSport(key)
		}))
		if desc == nil {
			if !s.ledger.CanRequest() {
				return nil, &fetch.Error{Kind: fetch.KindQuotaExhausted}
			}
			return nil, &fetch.Error{Kind: fetch.KindAlreadyUpdated}
		}
		sportKey = desc.Key
	}

	return s.refresh(ctx, sportKey)
}

// refresh runs the fetch and analysis pipeline for one sport. Caller
// holds the in-flight flag.
func (s *Scheduler) refresh(ctx context.Context, sportKey string) (*models.RefreshReport, error) {
	res, err := s.fetcher.Fetch(ctx, sportKey)
	if err != nil {
		s.noteFailure(sportKey, err)
		return nil, err
	}
	s.clearRetry(sportKey)

	best, opps, nearMisses := analyze.Run(res.Matches)

	s.met.RefreshesBySport.WithLabelValues(sportKey).Inc()
	if n := len(opps); n > 0 {
		s.met.Opportunities.Add(float64(n))
	}
	if n := len(nearMisses); n > 0 {
		s.met.NearMisses.Add(float64(n))
	}
	if res.Dropped > 0 {
		s.dropped.Add(int64(res.Dropped))
	}

	report := &models.RefreshReport{
		SportKey:      sportKey,
		FetchedAt:     res.FetchedAt,
		FromCache:     res.FromCache,
		Matches:       res.Matches,
		Best:          best,
		Opportunities: opps,
		NearMisses:    nearMisses,
		Dropped:       res.Dropped,
	}

	if s.sink != nil {
		s.sink.HandleReport(ctx, report)
	}

	s.log.WithFields(logrus.Fields{
		"sport":         sportKey,
		"from_cache":    res.FromCache,
		"matches":       len(res.Matches),
		"opportunities": len(opps),
		"near_misses":   len(nearMisses),
	}).Info("refresh complete")

	return report, nil
}

// Catalog returns the vendor's sport catalog via the long-TTL cache.
func (s *Scheduler) Catalog(ctx context.Context) ([]models.RawSport, error) {
	if s.halted.Load() {
		return nil, ErrHalted
	}
	return s.fetcher.FetchCatalog(ctx)
}

// noteFailure updates the per-sport retry book from a typed fetch
// error. Unauthorized halts scheduling entirely; transient kinds get
// bounded backoff; quota kinds need no bookkeeping because the ledger
// already blocks them.
func (s *Scheduler) noteFailure(sportKey string, err error) {
	switch fetch.KindOf(err) {
	case fetch.KindUnauthorized:
		s.halted.Store(true)
		s.log.WithError(err).Error("vendor rejected the API key, scheduling halted until restart")
	case fetch.KindNetwork, fetch.KindRateLimited:
		s.bumpRetry(sportKey)
	}
}

func (s *Scheduler) bumpRetry(sportKey string) {
	now := s.cal.Now()
	day := s.cal.DayKey(now)

	s.mu.Lock()
	defer s.mu.Unlock()

	rs := s.retry[sportKey]
	if rs == nil || rs.dayKey != day {
		rs = &retryState{dayKey: day}
		s.retry[sportKey] = rs
	}

	rs.attempts++
	if rs.attempts >= s.cfg.MaxAttempts {
		rs.failedToday = true
		s.log.WithFields(logrus.Fields{
			"sport":    sportKey,
			"attempts": rs.attempts,
		}).Warn("sport marked failed for today")
		return
	}

	backoff := s.cfg.BackoffBase << (rs.attempts - 1)
	if backoff > s.cfg.Tick {
		backoff = s.cfg.Tick
	}
	rs.nextAttemptAt = now.Add(backoff)
}

func (s *Scheduler) clearRetry(sportKey string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.retry, sportKey)
}

// retryBlocked reports whether the retry book currently excludes the
// sport. Stale entries from a previous day are dropped on sight.
func (s *Scheduler) retryBlocked(key string, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	rs := s.retry[key]
	if rs == nil {
		return false
	}
	if rs.dayKey != s.cal.DayKey(now) {
		delete(s.retry, key)
		return false
	}
	return rs.failedToday || now.Before(rs.nextAttemptAt)
}

// Status assembles the read-only snapshot served by the operator
// interface.
func (s *Scheduler) Status() models.StatusSnapshot {
	now := s.cal.Now()
	day := s.cal.DayKey(now)

	s.mu.Lock()
	sportStatuses := make([]models.SportStatus, 0, s.registry.Count())
	for _, d := range s.registry.All() {
		st := models.SportStatus{
			Key:         d.Key,
			DisplayName: d.DisplayName,
			Priority:    d.Priority,
			Enabled:     d.Enabled,
		}
		if rs := s.retry[d.Key]; rs != nil && rs.dayKey == day {
			st.FailedToday = rs.failedToday
			if !rs.failedToday && !rs.nextAttemptAt.IsZero() {
				next := rs.nextAttemptAt
				st.NextAttempt = &next
			}
		}
		sportStatuses = append(sportStatuses, st)
	}
	s.mu.Unlock()

	for i := range sportStatuses {
		sportStatuses[i].UpdatedToday = s.ledger.AlreadyUpdated(sportStatuses[i].Key)
	}

	return models.StatusSnapshot{
		Quota:          s.ledger.Status(),
		Emergency:      s.gov.Snapshot(),
		Sports:         sportStatuses,
		Halted:         s.halted.Load(),
		InFlight:       s.inFlight.Load(),
		DroppedMatches: s.dropped.Load(),
		GeneratedAt:    now,
	}
}

// Reset clears all counters, the governor and the retry book.
// Operator escape hatch, not part of normal operation.
func (s *Scheduler) Reset() {
	s.mu.Lock()
	s.retry = make(map[string]*retryState)
	s.mu.Unlock()

	s.gov.Reset()
	s.ledger.Reset()
	s.halted.Store(false)
	s.log.Warn("all quota and governor state reset by operator")
}

func (s *Scheduler) rollover() {
	// Touching the ledger runs its lazy rollover.
	s.ledger.Snapshot()

	now := s.cal.Now()
	day := s.cal.DayKey(now)

	s.mu.Lock()
	for key, rs := range s.retry {
		if rs.dayKey != day {
			delete(s.retry, key)
		}
	}
	s.mu.Unlock()

	s.log.WithField("day", day).Info("calendar rollover processed")
}

func (s *Scheduler) sweepCache() {
	sweepCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	removed, err := s.cache.Sweep(sweepCtx)
	if err != nil {
		s.log.WithError(err).Warn("cache sweep failed")
		return
	}
	if removed > 0 {
		s.log.WithField("removed", removed).Debug("cache sweep removed expired entries")
	}
}

// saveState persists the combined blob. Persistence failures are
// logged, never propagated: the counters can be rebuilt from vendor
// headers on the next response.
func (s *Scheduler) saveState(q models.QuotaState) {
	st := &models.PersistedState{
		Quota:         q,
		Emergency:     s.gov.Snapshot(),
		SchemaVersion: models.SchemaVersion,
	}

	saveCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.store.Save(saveCtx, st); err != nil {
		s.log.WithError(err).Warn("state save failed")
	}
}

// eligibilityFunc adapts a closure to the registry's Eligibility
// interface.
type eligibilityFunc func(key string) bool

func (f eligibilityFunc) CanRefreshSport(key string) bool { return f(key) }
