// Package quota tracks the daily and monthly request budget. The
// vendor's plan is shared and irreplaceable, so the ledger is strict:
// counters never pass their limits, each sport is refreshed at most
// once per calendar day, and the vendor's self-reported used count is
// the source of truth for the monthly counter.
package quota

import (
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/XavierBriggs/Moneta/internal/calendar"
	"github.com/XavierBriggs/Moneta/pkg/models"
)

// Brake is the emergency governor surface the ledger consults before
// allowing a request.
type Brake interface {
	Update(remaining, used int)
	Permits() bool
}

// Ledger owns the QuotaState. All mutation goes through RecordRequest;
// day and month rollovers are checked lazily on every call, so no
// background timer is required for correctness.
type Ledger struct {
	cal          *calendar.Boundary
	brake        Brake
	dailyQuota   int
	monthlyLimit int
	log          *logrus.Entry

	mu      sync.Mutex
	st      models.QuotaState
	updated map[string]bool // sports refreshed today
	persist func(models.QuotaState)
}

// New creates a ledger with empty counters keyed to the current day
// and month.
func New(cal *calendar.Boundary, brake Brake, dailyQuota, monthlyLimit int, logger *logrus.Logger) *Ledger {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	now := cal.Now()
	return &Ledger{
		cal:          cal,
		brake:        brake,
		dailyQuota:   dailyQuota,
		monthlyLimit: monthlyLimit,
		log:          logger.WithField("component", "quota"),
		st: models.QuotaState{
			DayKey:   cal.DayKey(now),
			MonthKey: cal.MonthKey(now),
		},
		updated: make(map[string]bool),
	}
}

// SetPersist installs the hook invoked after every state mutation.
// The hook receives a copy of the new state and must not call back
// into the ledger.
func (l *Ledger) SetPersist(fn func(models.QuotaState)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.persist = fn
}

// CanRequest reports whether both budget counters are below their
// limits and the governor currently permits a call.
func (l *Ledger) CanRequest() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rolloverLocked()

	return l.st.RequestsToday < l.dailyQuota &&
		l.st.RequestsThisMonth < l.monthlyLimit &&
		l.brake.Permits()
}

// AlreadyUpdated reports whether the sport was refreshed today.
func (l *Ledger) AlreadyUpdated(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rolloverLocked()
	return l.updated[key]
}

// CanRefreshSport reports whether the sport may be refreshed now:
// budget available and not yet refreshed today.
func (l *Ledger) CanRefreshSport(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rolloverLocked()

	return l.st.RequestsToday < l.dailyQuota &&
		l.st.RequestsThisMonth < l.monthlyLimit &&
		l.brake.Permits() &&
		!l.updated[key]
}

// RecordRequest charges one request against both counters and marks
// the sport as refreshed today. If the vendor's counters are supplied
// they are forwarded to the governor and the monthly counter is
// reconciled to the vendor's authoritative used value; the local
// counter is a best-effort shadow that may drift. Returns whether a
// unit was actually charged. Never fails: at-limit calls are a no-op
// on the counters.
func (l *Ledger) RecordRequest(key string, limits *models.RateLimits) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rolloverLocked()

	recorded := false
	if l.st.RequestsToday < l.dailyQuota && l.st.RequestsThisMonth < l.monthlyLimit {
		l.st.RequestsToday++
		l.st.RequestsThisMonth++
		l.updated[key] = true
		recorded = true
	}

	l.observeLocked(limits)
	l.persistLocked()
	return recorded
}

// ObserveLimits reconciles against vendor counters without charging a
// unit. Used for responses that do not count against the plan, e.g.
// the sport catalog endpoint.
func (l *Ledger) ObserveLimits(limits *models.RateLimits) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rolloverLocked()

	if limits == nil {
		return
	}
	l.observeLocked(limits)
	l.persistLocked()
}

func (l *Ledger) observeLocked(limits *models.RateLimits) {
	if limits == nil || limits.RequestsRemaining < 0 {
		// A response without a parsable remaining count carries no
		// telemetry worth acting on.
		return
	}

	l.brake.Update(limits.RequestsRemaining, limits.RequestsUsed)

	if limits.RequestsUsed >= 0 {
		month := limits.RequestsUsed
		if month > l.monthlyLimit {
			month = l.monthlyLimit
		}
		if month != l.st.RequestsThisMonth {
			l.log.WithFields(logrus.Fields{
				"local":  l.st.RequestsThisMonth,
				"vendor": limits.RequestsUsed,
			}).Debug("reconciled monthly counter to vendor value")
		}
		l.st.RequestsThisMonth = month
	}
}

// Snapshot returns a copy of the current quota state.
func (l *Ledger) Snapshot() models.QuotaState {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rolloverLocked()
	return l.snapshotLocked()
}

// Status returns the quota view for the status snapshot.
func (l *Ledger) Status() models.QuotaStatus {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rolloverLocked()

	remaining := l.dailyQuota - l.st.RequestsToday
	if remaining < 0 {
		remaining = 0
	}
	return models.QuotaStatus{
		QuotaState:     l.snapshotLocked(),
		DailyQuota:     l.dailyQuota,
		MonthlyLimit:   l.monthlyLimit,
		RemainingToday: remaining,
	}
}

// Restore replaces the ledger state from a persisted blob. Stale day
// or month keys are handled by the next lazy rollover check.
func (l *Ledger) Restore(st models.QuotaState) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.st = st
	l.updated = make(map[string]bool, len(st.SportsUpdatedToday))
	for _, key := range st.SportsUpdatedToday {
		l.updated[key] = true
	}
	l.st.SportsUpdatedToday = nil
}

// Reset clears all counters. Operator/test use only.
func (l *Ledger) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.cal.Now()
	l.st = models.QuotaState{
		DayKey:   l.cal.DayKey(now),
		MonthKey: l.cal.MonthKey(now),
	}
	l.updated = make(map[string]bool)
	l.persistLocked()
}

func (l *Ledger) snapshotLocked() models.QuotaState {
	st := l.st
	st.SportsUpdatedToday = make([]string, 0, len(l.updated))
	for key := range l.updated {
		st.SportsUpdatedToday = append(st.SportsUpdatedToday, key)
	}
	sort.Strings(st.SportsUpdatedToday)
	return st
}

func (l *Ledger) persistLocked() {
	if l.persist != nil {
		l.persist(l.snapshotLocked())
	}
}

// rolloverLocked resets daily state when the day key changed and the
// monthly counter when the month key changed.
func (l *Ledger) rolloverLocked() {
	now := l.cal.Now()

	if day := l.cal.DayKey(now); day != l.st.DayKey {
		l.log.WithFields(logrus.Fields{"from": l.st.DayKey, "to": day}).Info("daily quota reset")
		l.st.DayKey = day
		l.st.RequestsToday = 0
		l.updated = make(map[string]bool)
	}

	if month := l.cal.MonthKey(now); month != l.st.MonthKey {
		l.log.WithFields(logrus.Fields{"from": l.st.MonthKey, "to": month}).Info("monthly quota reset")
		l.st.MonthKey = month
		l.st.RequestsThisMonth = 0
	}
}
