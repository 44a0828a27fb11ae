package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/XavierBriggs/Moneta/internal/cache"
	"github.com/XavierBriggs/Moneta/internal/calendar"
	"github.com/XavierBriggs/Moneta/internal/fetch"
	"github.com/XavierBriggs/Moneta/internal/governor"
	"github.com/XavierBriggs/Moneta/internal/metrics"
	"github.com/XavierBriggs/Moneta/internal/normalize"
	"github.com/XavierBriggs/Moneta/internal/quota"
	"github.com/XavierBriggs/Moneta/internal/sports"
	"github.com/XavierBriggs/Moneta/internal/state"
	"github.com/XavierBriggs/Moneta/pkg/contracts"
	"github.com/XavierBriggs/Moneta/pkg/models"
	"github.com/XavierBriggs/Moneta/pkg/testutil"
)

type stubProvider struct {
	mu      sync.Mutex
	matches []models.RawMatch
	err     error
	calls   int
}

func (p *stubProvider) FetchOdds(ctx context.Context, sportKey string) ([]models.RawMatch, *models.RateLimits, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.err != nil {
		return nil, nil, p.err
	}
	return p.matches, nil, nil
}

func (p *stubProvider) FetchSports(ctx context.Context) ([]models.RawSport, *models.RateLimits, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	return nil, nil, nil
}

func (p *stubProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

type captureSink struct {
	mu      sync.Mutex
	reports []*models.RefreshReport
}

func (c *captureSink) HandleReport(ctx context.Context, report *models.RefreshReport) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reports = append(c.reports, report)
}

func (c *captureSink) all() []*models.RefreshReport {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*models.RefreshReport(nil), c.reports...)
}

type harness struct {
	sched    *Scheduler
	provider *stubProvider
	sink     *captureSink
	ledger   *quota.Ledger
	store    *state.MemoryStore
	now      *time.Time
}

func newHarness(t *testing.T, daily int, descs []sports.Descriptor) *harness {
	t.Helper()

	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	cal := calendar.New(time.UTC)
	cal.SetNow(func() time.Time { return now })

	gov := governor.New(governor.DefaultConfig(), cal, nil)
	ledger := quota.New(cal, gov, daily, 500, nil)

	registry, err := sports.NewRegistry(descs)
	require.NoError(t, err)

	provider := &stubProvider{matches: []models.RawMatch{testutil.RawMatch("m1", "Arsenal", "Chelsea")}}
	cacheStore := cache.NewMemoryStore()
	met := metrics.New()
	fetcher := fetch.New(provider, cacheStore, ledger, normalize.New(nil), met, fetch.Config{MinCallGap: time.Millisecond}, nil)

	sink := &captureSink{}
	store := state.NewMemoryStore()
	sched := New(Config{Tick: time.Minute, MaxAttempts: 3, BackoffBase: 2 * time.Second},
		cal, ledger, gov, registry, fetcher, cacheStore, store, sink, met, nil)

	h := &harness{sched: sched, provider: provider, sink: sink, ledger: ledger, store: store, now: &now}
	cal.SetNow(func() time.Time { return *h.now })
	return h
}

func twoSports() []sports.Descriptor {
	return []sports.Descriptor{
		{Key: "basketball_nba", DisplayName: "NBA", Priority: 2, Enabled: true},
		{Key: "soccer_epl", DisplayName: "EPL", Priority: 1, Enabled: true},
	}
}

func TestTickRefreshesHighestPriorityFirst(t *testing.T) {
	h := newHarness(t, 16, twoSports())
	ctx := context.Background()

	h.sched.tick(ctx)
	reports := h.sink.all()
	require.Len(t, reports, 1)
	assert.Equal(t, "soccer_epl", reports[0].SportKey)
	assert.True(t, h.ledger.AlreadyUpdated("soccer_epl"))

	h.sched.tick(ctx)
	reports = h.sink.all()
	require.Len(t, reports, 2)
	assert.Equal(t, "basketball_nba", reports[1].SportKey)

	// Everything refreshed: further ticks are no-ops.
	h.sched.tick(ctx)
	assert.Len(t, h.sink.all(), 2)
	assert.Equal(t, 2, h.provider.callCount())
}

func TestTickDuringFetchIsNoOp(t *testing.T) {
	h := newHarness(t, 16, twoSports())

	h.sched.inFlight.Store(true)
	h.sched.tick(context.Background())
	assert.Equal(t, 0, h.provider.callCount())
	assert.Empty(t, h.sink.all())
}

func TestForceRefreshWhileBusyReturnsBusy(t *testing.T) {
	h := newHarness(t, 16, twoSports())

	h.sched.inFlight.Store(true)
	_, err := h.sched.ForceRefresh(context.Background(), "soccer_epl")
	assert.ErrorIs(t, err, ErrBusy)
}

func TestForceRefreshEmptyKeySelectsNextEligible(t *testing.T) {
	h := newHarness(t, 16, twoSports())
	ctx := context.Background()

	report, err := h.sched.ForceRefresh(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "soccer_epl", report.SportKey)

	report, err = h.sched.ForceRefresh(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "basketball_nba", report.SportKey)

	// Budget remains but every sport is spent for today.
	_, err = h.sched.ForceRefresh(ctx, "")
	require.Error(t, err)
	assert.Equal(t, fetch.KindAlreadyUpdated, fetch.KindOf(err))
}

func TestForceRefreshUnknownSport(t *testing.T) {
	h := newHarness(t, 16, twoSports())

	_, err := h.sched.ForceRefresh(context.Background(), "curling_olympics")
	assert.ErrorIs(t, err, ErrUnknownSport)
}

func TestForceRefreshHonorsQuota(t *testing.T) {
	h := newHarness(t, 1, twoSports())
	ctx := context.Background()

	h.sched.tick(ctx)
	require.Len(t, h.sink.all(), 1)

	_, err := h.sched.ForceRefresh(ctx, "basketball_nba")
	require.Error(t, err)
	assert.Equal(t, fetch.KindQuotaExhausted, fetch.KindOf(err))
}

func TestForceRefreshAlreadyUpdatedToday(t *testing.T) {
	h := newHarness(t, 16, twoSports())
	ctx := context.Background()

	// Mark the sport as spent without populating the cache, so the
	// forced refresh reaches the eligibility check.
	h.ledger.RecordRequest("soccer_epl", nil)

	_, err := h.sched.ForceRefresh(ctx, "soccer_epl")
	require.Error(t, err)
	assert.Equal(t, fetch.KindAlreadyUpdated, fetch.KindOf(err))
}

func TestUnauthorizedHaltsScheduling(t *testing.T) {
	h := newHarness(t, 16, twoSports())
	ctx := context.Background()
	h.provider.err = contracts.ErrUnauthorized

	h.sched.tick(ctx)
	assert.Equal(t, 1, h.provider.callCount())
	assert.True(t, h.sched.Status().Halted)

	// Halted: no further vendor traffic from ticks or forces.
	h.sched.tick(ctx)
	assert.Equal(t, 1, h.provider.callCount())

	_, err := h.sched.ForceRefresh(ctx, "soccer_epl")
	assert.ErrorIs(t, err, ErrHalted)
}

func TestTransientFailuresBackOffThenFailForToday(t *testing.T) {
	h := newHarness(t, 16, []sports.Descriptor{
		{Key: "soccer_epl", DisplayName: "EPL", Priority: 1, Enabled: true},
	})
	ctx := context.Background()
	h.provider.err = contracts.ErrUnavailable

	h.sched.tick(ctx)
	assert.Equal(t, 1, h.provider.callCount())

	// Within the backoff window nothing is eligible.
	h.sched.tick(ctx)
	assert.Equal(t, 1, h.provider.callCount())

	*h.now = h.now.Add(3 * time.Second)
	h.sched.tick(ctx)
	assert.Equal(t, 2, h.provider.callCount())

	*h.now = h.now.Add(5 * time.Second)
	h.sched.tick(ctx)
	assert.Equal(t, 3, h.provider.callCount())

	// Third failure exhausted the attempts: failed for today.
	*h.now = h.now.Add(time.Hour)
	h.sched.tick(ctx)
	assert.Equal(t, 3, h.provider.callCount())

	status := h.sched.Status()
	require.Len(t, status.Sports, 1)
	assert.True(t, status.Sports[0].FailedToday)
}

func TestRetryBookClearsAtDayBoundary(t *testing.T) {
	h := newHarness(t, 16, []sports.Descriptor{
		{Key: "soccer_epl", DisplayName: "EPL", Priority: 1, Enabled: true},
	})
	ctx := context.Background()
	h.provider.err = contracts.ErrUnavailable

	for i := 0; i < 3; i++ {
		h.sched.tick(ctx)
		*h.now = h.now.Add(time.Minute)
	}
	assert.Equal(t, 3, h.provider.callCount())

	h.provider.mu.Lock()
	h.provider.err = nil
	h.provider.mu.Unlock()

	*h.now = h.now.Add(24 * time.Hour)
	h.sched.tick(ctx)
	assert.Equal(t, 4, h.provider.callCount())
	assert.Len(t, h.sink.all(), 1)
}

func TestArbitrageFlowsThroughToSink(t *testing.T) {
	h := newHarness(t, 16, twoSports())
	h.provider.matches = []models.RawMatch{testutil.ArbitrageRawMatch("m9", "Lakers", "Celtics")}

	h.sched.tick(context.Background())

	reports := h.sink.all()
	require.Len(t, reports, 1)
	require.Len(t, reports[0].Opportunities, 1)
	opp := reports[0].Opportunities[0]
	assert.Equal(t, "m9", opp.MatchID)
	assert.InDelta(t, 25.0, opp.ProfitPercent, 0.01)
	assert.Empty(t, reports[0].NearMisses)
}

func TestStatusSnapshotShape(t *testing.T) {
	h := newHarness(t, 16, twoSports())

	h.sched.tick(context.Background())
	status := h.sched.Status()

	assert.Equal(t, 1, status.Quota.RequestsToday)
	assert.Equal(t, 16, status.Quota.DailyQuota)
	assert.Equal(t, 15, status.Quota.RemainingToday)
	assert.Equal(t, models.ModeNormal, status.Emergency.Mode)
	assert.False(t, status.Halted)
	assert.False(t, status.InFlight)
	require.Len(t, status.Sports, 2)
	// Eligibility order: priorities ascending.
	assert.Equal(t, "soccer_epl", status.Sports[0].Key)
	assert.True(t, status.Sports[0].UpdatedToday)
	assert.False(t, status.Sports[1].UpdatedToday)
}

func TestResetClearsCountersAndHalt(t *testing.T) {
	h := newHarness(t, 1, twoSports())
	ctx := context.Background()

	h.sched.tick(ctx)
	h.sched.halted.Store(true)

	h.sched.Reset()

	status := h.sched.Status()
	assert.Equal(t, 0, status.Quota.RequestsToday)
	assert.False(t, status.Halted)
	assert.False(t, h.ledger.AlreadyUpdated("soccer_epl"))
}

func TestStartRestoresPersistedState(t *testing.T) {
	h := newHarness(t, 16, twoSports())
	ctx := context.Background()

	require.NoError(t, h.store.Save(ctx, &models.PersistedState{
		Quota: models.QuotaState{
			DayKey:             "2026-08-29",
			MonthKey:           "2026-08",
			RequestsToday:      16,
			RequestsThisMonth:  480,
			SportsUpdatedToday: []string{"soccer_epl", "basketball_nba"},
		},
		Emergency:     models.EmergencyState{Mode: models.ModeNormal, CanMakeRequest: true},
		SchemaVersion: models.SchemaVersion,
	}))

	require.NoError(t, h.sched.Start(ctx))
	h.sched.Stop()

	// The restored ledger is exhausted for today, so the initial tick
	// must not have touched the vendor.
	assert.Equal(t, 0, h.provider.callCount())
	st := h.ledger.Snapshot()
	assert.Equal(t, 16, st.RequestsToday)
	assert.Equal(t, 480, st.RequestsThisMonth)
}

func TestPersistenceHookWritesCombinedBlob(t *testing.T) {
	h := newHarness(t, 16, twoSports())
	ctx := context.Background()

	require.NoError(t, h.sched.Start(ctx))
	_, err := h.sched.ForceRefresh(ctx, "basketball_nba")
	if err != nil {
		// The initial tick may have claimed the in-flight slot; only
		// busy is acceptable here.
		require.ErrorIs(t, err, ErrBusy)
	}
	h.sched.Stop()

	assert.Greater(t, h.store.Saves, 0)
	st, loadErr := h.store.Load(ctx)
	require.NoError(t, loadErr)
	assert.Equal(t, models.SchemaVersion, st.SchemaVersion)
	assert.GreaterOrEqual(t, st.Quota.RequestsToday, 1)
}

func TestDisabledSportIsNeverScheduled(t *testing.T) {
	h := newHarness(t, 16, []sports.Descriptor{
		{Key: "soccer_epl", DisplayName: "EPL", Priority: 1, Enabled: false},
	})

	h.sched.tick(context.Background())
	assert.Equal(t, 0, h.provider.callCount())
	assert.Empty(t, h.sink.all())
}
