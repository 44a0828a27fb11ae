package models

import "time"

// RawMatch represents a single event as returned by the odds vendor,
// before any normalization has been applied.
type RawMatch struct {
	ID           string
	SportKey     string
	SportTitle   string
	HomeTeam     string
	AwayTeam     string
	CommenceTime time.Time
	Books        []RawBook
}

// RawBook is one bookmaker's quote set within a RawMatch.
type RawBook struct {
	Key        string
	Title      string
	LastUpdate time.Time
	Markets    []RawMarket
}

// RawMarket is a market (e.g. "h2h") offered by a bookmaker.
type RawMarket struct {
	Key      string
	Outcomes []RawOutcome
}

// RawOutcome is a single priced outcome. Price is in decimal odds.
type RawOutcome struct {
	Name  string
	Price float64
}

// RawSport describes one entry of the vendor's sport catalog.
type RawSport struct {
	Key    string
	Group  string
	Title  string
	Active bool
}

// BookmakerQuote is a normalized two- or three-way price set from a
// single bookmaker. Decimal odds are always > 1.0; Draw is nil for
// two-way markets.
type BookmakerQuote struct {
	BookmakerID string    `json:"bookmaker_id"`
	Bookmaker   string    `json:"bookmaker"`
	Home        float64   `json:"home"`
	Away        float64   `json:"away"`
	Draw        *float64  `json:"draw,omitempty"`
	ObservedAt  time.Time `json:"observed_at"`
}

// NormalizedMatch is the canonical match shape produced by the
// normalizer. Invariant: at least one quote.
type NormalizedMatch struct {
	ID            string           `json:"id"`
	HomeTeam      string           `json:"home_team"`
	AwayTeam      string           `json:"away_team"`
	League        string           `json:"league"`
	SportCategory string           `json:"sport_category"`
	StartTime     time.Time        `json:"start_time"`
	Quotes        []BookmakerQuote `json:"quotes"`
}

// BestPrice is the best available decimal odds for one outcome and the
// bookmaker offering it.
type BestPrice struct {
	Label       string  `json:"label"`
	Odds        float64 `json:"odds"`
	BookmakerID string  `json:"bookmaker_id"`
}

// BestOdds is the best price per outcome for a match. Draw is nil for
// two-way markets.
type BestOdds struct {
	MatchID string     `json:"match_id"`
	Home    BestPrice  `json:"home"`
	Away    BestPrice  `json:"away"`
	Draw    *BestPrice `json:"draw,omitempty"`
}

// Outcomes returns the available outcomes in home/draw/away order.
func (b BestOdds) Outcomes() []BestPrice {
	out := []BestPrice{b.Home}
	if b.Draw != nil {
		out = append(out, *b.Draw)
	}
	out = append(out, b.Away)
	return out
}

// ArbitrageOpportunity is a guaranteed-profit price set. Only
// materialized when ImpliedProbabilitySum < 1.
type ArbitrageOpportunity struct {
	ID                    string      `json:"id"`
	MatchID               string      `json:"match_id"`
	Outcomes              []BestPrice `json:"outcomes"`
	ImpliedProbabilitySum float64     `json:"implied_probability_sum"`
	ProfitPercent         float64     `json:"profit_percent"`
}

// NearMiss is a value-betting signal: implied probabilities sum to
// just over 1. Never a guaranteed profit and never conflated with one.
type NearMiss struct {
	MatchID               string      `json:"match_id"`
	Outcomes              []BestPrice `json:"outcomes"`
	ImpliedProbabilitySum float64     `json:"implied_probability_sum"`
}

// RateLimits carries the vendor's self-reported quota counters, read
// from the x-requests-remaining / x-requests-used response headers.
type RateLimits struct {
	RequestsRemaining int
	RequestsUsed      int
}
