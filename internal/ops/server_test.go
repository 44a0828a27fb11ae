package ops

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
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
	"github.com/XavierBriggs/Moneta/internal/scheduler"
	"github.com/XavierBriggs/Moneta/internal/sports"
	"github.com/XavierBriggs/Moneta/internal/state"
	"github.com/XavierBriggs/Moneta/pkg/models"
	"github.com/XavierBriggs/Moneta/pkg/testutil"
)

type stubProvider struct {
	matches []models.RawMatch
	sports  []models.RawSport
}

func (p *stubProvider) FetchOdds(ctx context.Context, sportKey string) ([]models.RawMatch, *models.RateLimits, error) {
	return p.matches, nil, nil
}

func (p *stubProvider) FetchSports(ctx context.Context) ([]models.RawSport, *models.RateLimits, error) {
	return p.sports, nil, nil
}

func testServer(t *testing.T, daily int) (*Server, *quota.Ledger) {
	t.Helper()

	cal := calendar.New(time.UTC)
	gov := governor.New(governor.DefaultConfig(), cal, nil)
	ledger := quota.New(cal, gov, daily, 500, nil)

	registry, err := sports.NewRegistry([]sports.Descriptor{
		{Key: "soccer_epl", DisplayName: "EPL", Priority: 1, Enabled: true},
		{Key: "basketball_nba", DisplayName: "NBA", Priority: 2, Enabled: true},
	})
	require.NoError(t, err)

	provider := &stubProvider{
		matches: []models.RawMatch{testutil.RawMatch("m1", "Arsenal", "Chelsea")},
		sports:  []models.RawSport{{Key: "soccer_epl", Group: "Soccer", Title: "EPL", Active: true}},
	}
	met := metrics.New()
	cacheStore := cache.NewMemoryStore()
	fetcher := fetch.New(provider, cacheStore, ledger, normalize.New(nil), met, fetch.Config{MinCallGap: time.Millisecond}, nil)

	sched := scheduler.New(scheduler.Config{}, cal, ledger, gov, registry, fetcher,
		cacheStore, state.NewMemoryStore(), nil, met, nil)

	return NewServer(":0", sched, met, nil), ledger
}

func do(t *testing.T, s *Server, method, path string) (*httptest.ResponseRecorder, response) {
	t.Helper()

	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	var body response
	if strings.Contains(rec.Header().Get("Content-Type"), "application/json") {
		_ = json.Unmarshal(rec.Body.Bytes(), &body)
	}
	return rec, body
}

func TestHealthz(t *testing.T) {
	s, _ := testServer(t, 16)

	rec, _ := do(t, s, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStatusEndpoint(t *testing.T) {
	s, _ := testServer(t, 16)

	rec, body := do(t, s, http.MethodGet, "/v1/status")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.CodeOK, body.Code)
	require.NotNil(t, body.Status)
	assert.Equal(t, 16, body.Status.Quota.DailyQuota)
	assert.Len(t, body.Status.Sports, 2)
}

func TestForceRefreshReturnsReport(t *testing.T) {
	s, _ := testServer(t, 16)

	rec, body := do(t, s, http.MethodPost, "/v1/force-refresh?sport=soccer_epl")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.CodeOK, body.Code)
	require.NotNil(t, body.Report)
	assert.Equal(t, "soccer_epl", body.Report.SportKey)
	assert.Len(t, body.Report.Matches, 1)
}

func TestForceRefreshWithoutSportPicksNextEligible(t *testing.T) {
	s, _ := testServer(t, 16)

	rec, body := do(t, s, http.MethodPost, "/v1/force-refresh")
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, body.Report)
	// Priority 1 sport wins.
	assert.Equal(t, "soccer_epl", body.Report.SportKey)
}

func TestForceRefreshUnknownSport(t *testing.T) {
	s, _ := testServer(t, 16)

	rec, _ := do(t, s, http.MethodPost, "/v1/force-refresh?sport=curling_olympics")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestForceRefreshQuotaExhausted(t *testing.T) {
	s, _ := testServer(t, 1)

	rec, _ := do(t, s, http.MethodPost, "/v1/force-refresh?sport=soccer_epl")
	require.Equal(t, http.StatusOK, rec.Code)

	rec, body := do(t, s, http.MethodPost, "/v1/force-refresh?sport=basketball_nba")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, models.CodeQuotaExhausted, body.Code)
}

func TestForceRefreshAlreadyUpdated(t *testing.T) {
	s, ledger := testServer(t, 16)

	// Spend the sport without populating the cache.
	ledger.RecordRequest("soccer_epl", nil)

	rec, body := do(t, s, http.MethodPost, "/v1/force-refresh?sport=soccer_epl")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, models.CodeAlreadyUpdated, body.Code)
}

func TestCatalogEndpoint(t *testing.T) {
	s, ledger := testServer(t, 16)

	rec, body := do(t, s, http.MethodGet, "/v1/catalog")
	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, body.Sports, 1)
	assert.Equal(t, "soccer_epl", body.Sports[0].Key)
	assert.Equal(t, 0, ledger.Snapshot().RequestsToday)
}

func TestResetEndpoint(t *testing.T) {
	s, ledger := testServer(t, 16)

	_, _ = do(t, s, http.MethodPost, "/v1/force-refresh?sport=soccer_epl")
	require.Equal(t, 1, ledger.Snapshot().RequestsToday)

	rec, body := do(t, s, http.MethodPost, "/v1/reset")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.CodeOK, body.Code)
	assert.Equal(t, 0, ledger.Snapshot().RequestsToday)
}

func TestMetricsEndpoint(t *testing.T) {
	s, _ := testServer(t, 16)

	_, _ = do(t, s, http.MethodPost, "/v1/force-refresh?sport=soccer_epl")

	rec, _ := do(t, s, http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "moneta_refreshes_total")
}
