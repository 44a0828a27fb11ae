// Package testutil provides fixture builders shared across test
// packages.
package testutil

import (
	"time"

	"github.com/XavierBriggs/Moneta/pkg/models"
)

// FixtureTime is the commence time used by all fixtures.
var FixtureTime = time.Date(2026, 8, 30, 15, 0, 0, 0, time.UTC)

// Float64 returns a pointer to f.
func Float64(f float64) *float64 { return &f }

// RawMatch builds a three-way vendor match with a single bookmaker at
// prices that carry a healthy margin, so it never produces an
// arbitrage signal.
func RawMatch(id, home, away string) models.RawMatch {
	return models.RawMatch{
		ID:           id,
		SportKey:     "soccer_epl",
		SportTitle:   "EPL",
		HomeTeam:     home,
		AwayTeam:     away,
		CommenceTime: FixtureTime,
		Books: []models.RawBook{
			Book("williamhill", "William Hill", home, 2.1, away, 3.8, Float64(3.4)),
		},
	}
}

// ArbitrageRawMatch builds a two-way vendor match whose best prices
// across two bookmakers imply a probability sum of 0.8, i.e. a 25%
// arbitrage.
func ArbitrageRawMatch(id, home, away string) models.RawMatch {
	return models.RawMatch{
		ID:           id,
		SportKey:     "basketball_nba",
		SportTitle:   "NBA",
		HomeTeam:     home,
		AwayTeam:     away,
		CommenceTime: FixtureTime,
		Books: []models.RawBook{
			Book("pinnacle", "Pinnacle", home, 2.5, away, 1.5, nil),
			Book("bet365", "Bet365", home, 1.5, away, 2.5, nil),
		},
	}
}

// Book builds a single-bookmaker h2h quote set. A nil draw yields a
// two-way market.
func Book(key, title, home string, homeOdds float64, away string, awayOdds float64, draw *float64) models.RawBook {
	outcomes := []models.RawOutcome{
		{Name: home, Price: homeOdds},
		{Name: away, Price: awayOdds},
	}
	if draw != nil {
		outcomes = append(outcomes, models.RawOutcome{Name: "Draw", Price: *draw})
	}
	return models.RawBook{
		Key:        key,
		Title:      title,
		LastUpdate: FixtureTime,
		Markets:    []models.RawMarket{{Key: "h2h", Outcomes: outcomes}},
	}
}
