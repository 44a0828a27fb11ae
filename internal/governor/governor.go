// Package governor implements the emergency brake derived from the
// vendor's remaining-request telemetry. It is a second, independent
// guard: even if the scheduler mis-plans, the governor blocks calls
// before the shared upstream budget is exhausted.
package governor

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/XavierBriggs/Moneta/internal/calendar"
	"github.com/XavierBriggs/Moneta/pkg/models"
)

// Config holds the governor thresholds.
type Config struct {
	// EmergencyThreshold is the remaining-request count at or below
	// which calls are spaced out by MinInterval.
	EmergencyThreshold int

	// CriticalThreshold is the remaining-request count at or below
	// which all calls are blocked for Cooldown.
	CriticalThreshold int

	// MinInterval separates consecutive allowed calls in emergency
	// mode.
	MinInterval time.Duration

	// Cooldown is the block window entered in critical mode.
	Cooldown time.Duration
}

// DefaultConfig returns the thresholds for a 500-request vendor plan.
func DefaultConfig() Config {
	return Config{
		EmergencyThreshold: 50,
		CriticalThreshold:  10,
		MinInterval:        2 * time.Hour,
		Cooldown:           24 * time.Hour,
	}
}

// Governor is the Normal -> Emergency -> Critical state machine. The
// mode is re-derived from the latest remaining count on every Update,
// so recovery happens naturally once the vendor reports a higher
// remaining count (e.g. after a plan reset).
type Governor struct {
	cfg Config
	cal *calendar.Boundary
	log *logrus.Entry

	mu sync.Mutex
	st models.EmergencyState
}

// New creates a governor in normal mode.
func New(cfg Config, cal *calendar.Boundary, logger *logrus.Logger) *Governor {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Governor{
		cfg: cfg,
		cal: cal,
		log: logger.WithField("component", "governor"),
		st: models.EmergencyState{
			Mode:           models.ModeNormal,
			CanMakeRequest: true,
		},
	}
}

// Update feeds the vendor's self-reported counters into the state
// machine. Called after every response that carried quota headers.
func (g *Governor) Update(remaining, used int) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.cal.Now()
	prev := g.st.Mode

	g.st.RemainingRequests = remaining
	g.st.UsedRequests = used

	switch {
	case remaining <= g.cfg.CriticalThreshold:
		g.st.Mode = models.ModeCritical
		g.st.CanMakeRequest = false
		g.st.NextAllowedAt = now.Add(g.cfg.Cooldown)
	case remaining <= g.cfg.EmergencyThreshold:
		g.st.Mode = models.ModeEmergency
		g.st.CanMakeRequest = false
		g.st.NextAllowedAt = now.Add(g.cfg.MinInterval)
	default:
		g.st.Mode = models.ModeNormal
		g.st.CanMakeRequest = true
		g.st.NextAllowedAt = time.Time{}
	}

	if g.st.Mode != prev {
		g.st.LastTransitionAt = now
		g.log.WithFields(logrus.Fields{
			"from":      prev,
			"to":        g.st.Mode,
			"remaining": remaining,
			"used":      used,
		}).Warn("governor mode changed")
	}
}

// Permits reports whether a call is currently allowed. Pure read: it
// never advances the state machine.
func (g *Governor) Permits() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.permitsLocked()
}

func (g *Governor) permitsLocked() bool {
	switch g.st.Mode {
	case models.ModeNormal:
		return true
	default:
		// Emergency: next call allowed once MinInterval has elapsed.
		// Critical: a single call allowed once the cooldown window
		// has passed, so the governor can learn about a plan reset.
		return !g.cal.Now().Before(g.st.NextAllowedAt)
	}
}

// Mode returns the current mode.
func (g *Governor) Mode() models.GovernorMode {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.st.Mode
}

// Snapshot returns a copy of the governor state for persistence and
// status reporting. CanMakeRequest reflects the current allowance, not
// the value recorded at the last Update, so a snapshot taken after a
// cooldown or interval has elapsed reports true.
func (g *Governor) Snapshot() models.EmergencyState {
	g.mu.Lock()
	defer g.mu.Unlock()
	st := g.st
	st.CanMakeRequest = g.permitsLocked()
	return st
}

// Restore replaces the governor state from a persisted blob.
func (g *Governor) Restore(st models.EmergencyState) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if st.Mode == "" {
		st.Mode = models.ModeNormal
		st.CanMakeRequest = true
	}
	g.st = st
}

// Reset clears the governor back to normal mode. Operator use only.
func (g *Governor) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.st = models.EmergencyState{
		Mode:           models.ModeNormal,
		CanMakeRequest: true,
	}
}
