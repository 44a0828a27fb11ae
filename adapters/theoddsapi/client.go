// Package theoddsapi implements the OddsProvider contract against The
// Odds API v4. Every response's x-requests-remaining / x-requests-used
// headers are surfaced to the caller; they are the authoritative quota
// signal for the whole system.
package theoddsapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker"

	"github.com/XavierBriggs/Moneta/pkg/contracts"
	"github.com/XavierBriggs/Moneta/pkg/models"
)

const (
	defaultBaseURL = "https://api.the-odds-api.com"
	apiVersion     = "v4"
	userAgent      = "Moneta/1.0 (Odds Comparison)"
	defaultTimeout = 15 * time.Second
)

// Config holds client configuration.
type Config struct {
	APIKey  string
	BaseURL string        // defaults to the public endpoint
	Regions string        // defaults to "eu"
	Timeout time.Duration // defaults to 15s
}

// Client is The Odds API adapter. A circuit breaker guards the
// transport: repeated network failures or 5xx responses open it, and
// an open breaker surfaces as ErrUnavailable without touching the
// network.
type Client struct {
	cfg        Config
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
}

var _ contracts.OddsProvider = (*Client)(nil)

// NewClient creates a client for The Odds API.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Regions == "" {
		cfg.Regions = "eu"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "theoddsapi",
		Timeout: 2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.Requests >= 3 && counts.ConsecutiveFailures >= 3
		},
	})

	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		breaker:    breaker,
	}
}

// FetchOdds retrieves head-to-head decimal odds for one sport key.
func (c *Client) FetchOdds(ctx context.Context, sportKey string) ([]models.RawMatch, *models.RateLimits, error) {
	endpoint := fmt.Sprintf("%s/%s/sports/%s/odds", c.cfg.BaseURL, apiVersion, url.PathEscape(sportKey))

	params := url.Values{}
	params.Set("apiKey", c.cfg.APIKey)
	params.Set("regions", c.cfg.Regions)
	params.Set("markets", "h2h")
	params.Set("oddsFormat", "decimal")
	params.Set("dateFormat", "iso")

	body, limits, err := c.doRequest(ctx, endpoint+"?"+params.Encode())
	if err != nil {
		return nil, limits, fmt.Errorf("fetch odds: %w", err)
	}

	var apiResp []oddsResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, limits, fmt.Errorf("parse odds response: %w", err)
	}

	return parseOddsResponse(apiResp, time.Now().UTC()), limits, nil
}

// FetchSports retrieves the vendor's sport catalog.
func (c *Client) FetchSports(ctx context.Context) ([]models.RawSport, *models.RateLimits, error) {
	endpoint := fmt.Sprintf("%s/%s/sports", c.cfg.BaseURL, apiVersion)

	params := url.Values{}
	params.Set("apiKey", c.cfg.APIKey)

	body, limits, err := c.doRequest(ctx, endpoint+"?"+params.Encode())
	if err != nil {
		return nil, limits, fmt.Errorf("fetch sports: %w", err)
	}

	var apiResp []sportResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, limits, fmt.Errorf("parse sports response: %w", err)
	}

	sports := make([]models.RawSport, 0, len(apiResp))
	for _, s := range apiResp {
		sports = append(sports, models.RawSport{
			Key:    s.Key,
			Group:  s.Group,
			Title:  s.Title,
			Active: s.Active,
		})
	}
	return sports, limits, nil
}

// requestResult carries a completed HTTP exchange out of the breaker.
type requestResult struct {
	status  int
	body    []byte
	headers http.Header
}

// doRequest performs a single HTTP request. No in-call retries: the
// scheduler retries across ticks so a failing vendor never sees a
// burst from one tick. The breaker only counts transport failures and
// 5xx responses; 4xx responses pass through as typed errors.
func (c *Client) doRequest(ctx context.Context, fullURL string) ([]byte, *models.RateLimits, error) {
	res, err := c.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("User-Agent", userAgent)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("execute request: %w", err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("read response body: %w", err)
		}

		result := requestResult{status: resp.StatusCode, body: body, headers: resp.Header}
		if resp.StatusCode >= 500 {
			return result, fmt.Errorf("server error: HTTP %d", resp.StatusCode)
		}
		return result, nil
	})

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, nil, fmt.Errorf("%w: circuit open", contracts.ErrUnavailable)
		}
		if result, ok := res.(requestResult); ok {
			// 5xx: headers may still carry quota telemetry.
			return nil, parseRateLimits(result.headers), fmt.Errorf("%w: %v", contracts.ErrUnavailable, err)
		}
		return nil, nil, fmt.Errorf("%w: %v", contracts.ErrUnavailable, err)
	}

	result := res.(requestResult)
	limits := parseRateLimits(result.headers)

	switch {
	case result.status == http.StatusOK:
		return result.body, limits, nil
	case result.status == http.StatusUnauthorized || result.status == http.StatusForbidden:
		return nil, limits, fmt.Errorf("%w: HTTP %d: %s", contracts.ErrUnauthorized, result.status, result.body)
	case result.status == http.StatusTooManyRequests:
		return nil, limits, fmt.Errorf("%w: HTTP %d", contracts.ErrRateLimited, result.status)
	default:
		return nil, limits, fmt.Errorf("%w: HTTP %d: %s", contracts.ErrUnavailable, result.status, result.body)
	}
}

// parseRateLimits extracts quota telemetry from response headers.
// Returns nil when the headers are absent.
func parseRateLimits(headers http.Header) *models.RateLimits {
	remaining := headers.Get("x-requests-remaining")
	used := headers.Get("x-requests-used")
	if remaining == "" && used == "" {
		return nil
	}

	limits := &models.RateLimits{RequestsRemaining: -1, RequestsUsed: -1}
	if val, err := strconv.Atoi(remaining); err == nil {
		limits.RequestsRemaining = val
	}
	if val, err := strconv.Atoi(used); err == nil {
		limits.RequestsUsed = val
	}
	return limits
}

// parseOddsResponse converts the API payload into raw matches.
func parseOddsResponse(apiResp []oddsResponse, receivedAt time.Time) []models.RawMatch {
	matches := make([]models.RawMatch, 0, len(apiResp))

	for _, event := range apiResp {
		commenceTime, err := time.Parse(time.RFC3339, event.CommenceTime)
		if err != nil {
			commenceTime = receivedAt
		}

		books := make([]models.RawBook, 0, len(event.Bookmakers))
		for _, bm := range event.Bookmakers {
			lastUpdate, err := time.Parse(time.RFC3339, bm.LastUpdate)
			if err != nil {
				lastUpdate = receivedAt
			}

			markets := make([]models.RawMarket, 0, len(bm.Markets))
			for _, market := range bm.Markets {
				outcomes := make([]models.RawOutcome, 0, len(market.Outcomes))
				for _, outcome := range market.Outcomes {
					outcomes = append(outcomes, models.RawOutcome{
						Name:  outcome.Name,
						Price: outcome.Price,
					})
				}
				markets = append(markets, models.RawMarket{Key: market.Key, Outcomes: outcomes})
			}

			books = append(books, models.RawBook{
				Key:        bm.Key,
				Title:      bm.Title,
				LastUpdate: lastUpdate,
				Markets:    markets,
			})
		}

		matches = append(matches, models.RawMatch{
			ID:           event.ID,
			SportKey:     event.SportKey,
			SportTitle:   event.SportTitle,
			HomeTeam:     event.HomeTeam,
			AwayTeam:     event.AwayTeam,
			CommenceTime: commenceTime,
			Books:        books,
		})
	}
	return matches
}

// API response structures matching The Odds API JSON format.

type oddsResponse struct {
	ID           string      `json:"id"`
	SportKey     string      `json:"sport_key"`
	SportTitle   string      `json:"sport_title"`
	CommenceTime string      `json:"commence_time"`
	HomeTeam     string      `json:"home_team"`
	AwayTeam     string      `json:"away_team"`
	Bookmakers   []bookmaker `json:"bookmakers"`
}

type bookmaker struct {
	Key        string   `json:"key"`
	Title      string   `json:"title"`
	LastUpdate string   `json:"last_update"`
	Markets    []market `json:"markets"`
}

type market struct {
	Key      string    `json:"key"`
	Outcomes []outcome `json:"outcomes"`
}

type outcome struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

type sportResponse struct {
	Key    string `json:"key"`
	Group  string `json:"group"`
	Title  string `json:"title"`
	Active bool   `json:"active"`
}
