// Package normalize maps raw vendor records into the canonical
// match/odds shape. One malformed record never drops the rest of the
// batch; a match with no usable quote after normalization is discarded
// and tallied.
package normalize

import (
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/XavierBriggs/Moneta/pkg/models"
)

const h2hMarket = "h2h"

// Normalizer shapes raw vendor payloads. Stateless apart from logging.
type Normalizer struct {
	log *logrus.Entry
}

// New creates a normalizer.
func New(logger *logrus.Logger) *Normalizer {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Normalizer{log: logger.WithField("component", "normalize")}
}

// Normalize converts a raw batch into canonical matches. Returns the
// usable matches and how many records were dropped (malformed records
// and matches with no usable quotes).
func (n *Normalizer) Normalize(raw []models.RawMatch) ([]models.NormalizedMatch, int) {
	matches := make([]models.NormalizedMatch, 0, len(raw))
	dropped := 0

	for _, rm := range raw {
		match, ok := n.normalizeMatch(rm)
		if !ok {
			dropped++
			continue
		}
		matches = append(matches, match)
	}
	return matches, dropped
}

func (n *Normalizer) normalizeMatch(rm models.RawMatch) (models.NormalizedMatch, bool) {
	if rm.ID == "" || rm.HomeTeam == "" || rm.AwayTeam == "" || rm.HomeTeam == rm.AwayTeam {
		n.log.WithFields(logrus.Fields{
			"match_id": rm.ID,
			"home":     rm.HomeTeam,
			"away":     rm.AwayTeam,
		}).Warn("malformed record dropped")
		return models.NormalizedMatch{}, false
	}

	meta, known := SportMetaFor(rm.SportKey)
	if !known {
		n.log.WithField("sport_key", rm.SportKey).Warn("unknown sport key, passing through")
	}

	quotes := make([]models.BookmakerQuote, 0, len(rm.Books))
	for _, book := range rm.Books {
		if quote, ok := n.normalizeBook(rm, book); ok {
			quotes = append(quotes, quote)
		}
	}

	// Fewer than one usable quote: discard, not merely flag.
	if len(quotes) == 0 {
		n.log.WithField("match_id", rm.ID).Debug("no usable quotes, match dropped")
		return models.NormalizedMatch{}, false
	}

	return models.NormalizedMatch{
		ID:            rm.ID,
		HomeTeam:      NormalizeTeamName(rm.HomeTeam),
		AwayTeam:      NormalizeTeamName(rm.AwayTeam),
		League:        meta.League,
		SportCategory: meta.Category,
		StartTime:     rm.CommenceTime,
		Quotes:        quotes,
	}, true
}

// normalizeBook extracts a usable h2h quote from one bookmaker, or
// reports false if the bookmaker offers no valid h2h prices.
func (n *Normalizer) normalizeBook(rm models.RawMatch, book models.RawBook) (models.BookmakerQuote, bool) {
	var market *models.RawMarket
	for i := range book.Markets {
		if book.Markets[i].Key == h2hMarket {
			market = &book.Markets[i]
			break
		}
	}
	if market == nil {
		return models.BookmakerQuote{}, false
	}

	var home, away float64
	var draw *float64
	for _, outcome := range market.Outcomes {
		switch {
		case outcome.Name == rm.HomeTeam:
			home = outcome.Price
		case outcome.Name == rm.AwayTeam:
			away = outcome.Price
		case strings.EqualFold(outcome.Name, "draw"):
			price := outcome.Price
			draw = &price
		}
	}

	// Decimal odds are payout multiples and must exceed 1.0.
	if home <= 1.0 || away <= 1.0 {
		return models.BookmakerQuote{}, false
	}
	if draw != nil && *draw <= 1.0 {
		draw = nil
	}

	name := book.Title
	if name == "" {
		name = book.Key
	}
	id, display := CanonicalBookmaker(name)

	observedAt := book.LastUpdate
	if observedAt.IsZero() {
		observedAt = time.Now().UTC()
	}

	return models.BookmakerQuote{
		BookmakerID: id,
		Bookmaker:   display,
		Home:        home,
		Away:        away,
		Draw:        draw,
		ObservedAt:  observedAt,
	}, true
}
