package normalize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/XavierBriggs/Moneta/pkg/models"
)

func h2hBook(key string, home, away float64, draw *float64) models.RawBook {
	outcomes := []models.RawOutcome{
		{Name: "Arsenal", Price: home},
		{Name: "Chelsea", Price: away},
	}
	if draw != nil {
		outcomes = append(outcomes, models.RawOutcome{Name: "Draw", Price: *draw})
	}
	return models.RawBook{
		Key:        key,
		Title:      key,
		LastUpdate: time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC),
		Markets:    []models.RawMarket{{Key: "h2h", Outcomes: outcomes}},
	}
}

func rawMatch(books ...models.RawBook) models.RawMatch {
	return models.RawMatch{
		ID:           "m1",
		SportKey:     "soccer_epl",
		HomeTeam:     "Arsenal",
		AwayTeam:     "Chelsea",
		CommenceTime: time.Date(2026, 8, 30, 15, 0, 0, 0, time.UTC),
		Books:        books,
	}
}

func ptr(f float64) *float64 { return &f }

func TestNormalizeThreeWayMatch(t *testing.T) {
	n := New(nil)

	matches, dropped := n.Normalize([]models.RawMatch{
		rawMatch(h2hBook("williamhill", 2.10, 3.80, ptr(3.40))),
	})

	require.Len(t, matches, 1)
	assert.Equal(t, 0, dropped)

	m := matches[0]
	assert.Equal(t, "English Premier League", m.League)
	assert.Equal(t, "Soccer", m.SportCategory)
	require.Len(t, m.Quotes, 1)

	q := m.Quotes[0]
	assert.Equal(t, "williamhill", q.BookmakerID)
	assert.Equal(t, 2.10, q.Home)
	assert.Equal(t, 3.80, q.Away)
	require.NotNil(t, q.Draw)
	assert.Equal(t, 3.40, *q.Draw)
}

func TestMalformedRecordDoesNotDropBatch(t *testing.T) {
	n := New(nil)

	bad := rawMatch(h2hBook("bet365", 2.0, 2.0, nil))
	bad.HomeTeam = ""

	matches, dropped := n.Normalize([]models.RawMatch{
		bad,
		rawMatch(h2hBook("bet365", 2.0, 2.0, nil)),
	})

	assert.Len(t, matches, 1)
	assert.Equal(t, 1, dropped)
}

func TestMatchWithoutUsableQuoteIsDiscarded(t *testing.T) {
	n := New(nil)

	// Odds at or below 1.0 are invalid decimal odds.
	matches, dropped := n.Normalize([]models.RawMatch{
		rawMatch(h2hBook("bet365", 1.0, 2.5, nil)),
	})

	assert.Empty(t, matches)
	assert.Equal(t, 1, dropped)
}

func TestInvalidDrawIsDroppedNotFatal(t *testing.T) {
	n := New(nil)

	matches, dropped := n.Normalize([]models.RawMatch{
		rawMatch(h2hBook("bet365", 2.0, 2.5, ptr(0.9))),
	})

	require.Len(t, matches, 1)
	assert.Equal(t, 0, dropped)
	assert.Nil(t, matches[0].Quotes[0].Draw)
}

func TestUnknownSportKeyPassesThrough(t *testing.T) {
	n := New(nil)

	m := rawMatch(h2hBook("bet365", 2.0, 2.5, nil))
	m.SportKey = "cricket_ipl"

	matches, dropped := n.Normalize([]models.RawMatch{m})
	require.Len(t, matches, 1)
	assert.Equal(t, 0, dropped)
	assert.Equal(t, "Cricket", matches[0].SportCategory)
	assert.Equal(t, "cricket_ipl", matches[0].League)
}

func TestMissingSportKeyPassesThrough(t *testing.T) {
	n := New(nil)

	m := rawMatch(h2hBook("bet365", 2.0, 2.5, nil))
	m.SportKey = ""

	matches, dropped := n.Normalize([]models.RawMatch{m})
	require.Len(t, matches, 1)
	assert.Equal(t, 0, dropped)
	assert.Equal(t, "Unknown", matches[0].SportCategory)
	assert.Equal(t, "unknown", matches[0].League)
}

func TestTeamNamesNormalized(t *testing.T) {
	n := New(nil)

	m := models.RawMatch{
		ID:       "m2",
		SportKey: "soccer_epl",
		HomeTeam: "Man United",
		AwayTeam: "Spurs",
		Books: []models.RawBook{{
			Key: "bet365",
			Markets: []models.RawMarket{{
				Key: "h2h",
				Outcomes: []models.RawOutcome{
					{Name: "Man United", Price: 2.2},
					{Name: "Spurs", Price: 3.1},
				},
			}},
		}},
	}

	matches, _ := n.Normalize([]models.RawMatch{m})
	require.Len(t, matches, 1)
	assert.Equal(t, "Manchester United", matches[0].HomeTeam)
	assert.Equal(t, "Tottenham Hotspur", matches[0].AwayTeam)
}

func TestCanonicalBookmaker(t *testing.T) {
	cases := []struct {
		in     string
		wantID string
	}{
		{"williamhill", "williamhill"},
		{"Bookmaker WilliamHill IT", "williamhill"},
		{"WILLIAM HILL", "williamhill"},
		{"Sky Bet", "skybet"},
		{"Paddy Power UK", "paddypower"},
	}
	for _, tc := range cases {
		id, _ := CanonicalBookmaker(tc.in)
		assert.Equalf(t, tc.wantID, id, "input %q", tc.in)
	}
}

func TestCanonicalBookmakerFallbackIsDeterministic(t *testing.T) {
	id1, display := CanonicalBookmaker("Shiny New-Book")
	id2, _ := CanonicalBookmaker("shiny new book")

	assert.Equal(t, id1, id2)
	assert.Equal(t, "Shiny New-book", display)
}
