// Package analyze derives decision-grade output from normalized odds:
// best price per outcome, arbitrage opportunities, and near-miss value
// signals. Everything here is a pure function over its inputs.
package analyze

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/XavierBriggs/Moneta/pkg/models"
)

// NearMissCeiling closes the value-signal band: implied probability
// sums in [1.0, NearMissCeiling] are reported as near-misses.
const NearMissCeiling = 1.03

const (
	labelHome = "home"
	labelAway = "away"
	labelDraw = "draw"
)

// Classification separates guaranteed-profit results from value
// signals. They are never conflated.
type Classification int

const (
	ClassNone Classification = iota
	ClassNearMiss
	ClassArbitrage
)

// Evaluation is the outcome of analyzing one match's best odds.
type Evaluation struct {
	Class       Classification
	ImpliedSum  float64
	Outcomes    []models.BestPrice
	Opportunity *models.ArbitrageOpportunity // non-nil only for ClassArbitrage
}

// BestOdds returns, per outcome, the maximum decimal odds across all
// quotes with the originating bookmaker. Ties go to the first
// bookmaker in input order, so the result is stable.
func BestOdds(match models.NormalizedMatch) models.BestOdds {
	best := models.BestOdds{
		MatchID: match.ID,
		Home:    models.BestPrice{Label: labelHome},
		Away:    models.BestPrice{Label: labelAway},
	}

	for _, q := range match.Quotes {
		if q.Home > best.Home.Odds {
			best.Home = models.BestPrice{Label: labelHome, Odds: q.Home, BookmakerID: q.BookmakerID}
		}
		if q.Away > best.Away.Odds {
			best.Away = models.BestPrice{Label: labelAway, Odds: q.Away, BookmakerID: q.BookmakerID}
		}
		if q.Draw != nil {
			if best.Draw == nil || *q.Draw > best.Draw.Odds {
				best.Draw = &models.BestPrice{Label: labelDraw, Odds: *q.Draw, BookmakerID: q.BookmakerID}
			}
		}
	}
	return best
}

// Evaluate computes the implied probability sum over the available
// outcomes (2-way or 3-way) and classifies the result. An arbitrage
// opportunity is materialized only for a strict sum < 1.
func Evaluate(best models.BestOdds) Evaluation {
	outcomes := best.Outcomes()

	sum := 0.0
	for _, o := range outcomes {
		if o.Odds <= 1.0 {
			// Defective input: no valid price for this outcome.
			return Evaluation{Class: ClassNone, Outcomes: outcomes}
		}
		sum += 1.0 / o.Odds
	}

	eval := Evaluation{ImpliedSum: sum, Outcomes: outcomes}

	switch {
	case sum < 1.0:
		eval.Class = ClassArbitrage
		eval.Opportunity = &models.ArbitrageOpportunity{
			ID:                    uuid.NewString(),
			MatchID:               best.MatchID,
			Outcomes:              outcomes,
			ImpliedProbabilitySum: sum,
			ProfitPercent:         (1.0/sum - 1.0) * 100.0,
		}
	case sum <= NearMissCeiling:
		eval.Class = ClassNearMiss
	default:
		eval.Class = ClassNone
	}
	return eval
}

// StakeSplit distributes totalStake across the opportunity's outcomes
// proportionally to their implied probabilities, rounded down to
// currency precision. Rounding down guarantees the stakes never sum
// past totalStake.
func StakeSplit(opp models.ArbitrageOpportunity, totalStake decimal.Decimal) map[string]decimal.Decimal {
	one := decimal.New(1, 0)

	inverses := make([]decimal.Decimal, len(opp.Outcomes))
	sum := decimal.Zero
	for i, o := range opp.Outcomes {
		inverses[i] = one.Div(decimal.NewFromFloat(o.Odds))
		sum = sum.Add(inverses[i])
	}

	stakes := make(map[string]decimal.Decimal, len(opp.Outcomes))
	for i, o := range opp.Outcomes {
		stakes[o.Label] = totalStake.Mul(inverses[i]).Div(sum).RoundFloor(2)
	}
	return stakes
}

// Run analyzes a batch of matches and collects the best odds plus all
// arbitrage and near-miss signals.
func Run(matches []models.NormalizedMatch) (best []models.BestOdds, opps []models.ArbitrageOpportunity, nearMisses []models.NearMiss) {
	best = make([]models.BestOdds, 0, len(matches))

	for _, match := range matches {
		b := BestOdds(match)
		best = append(best, b)

		eval := Evaluate(b)
		switch eval.Class {
		case ClassArbitrage:
			opps = append(opps, *eval.Opportunity)
		case ClassNearMiss:
			nearMisses = append(nearMisses, models.NearMiss{
				MatchID:               b.MatchID,
				Outcomes:              eval.Outcomes,
				ImpliedProbabilitySum: eval.ImpliedSum,
			})
		}
	}
	return best, opps, nearMisses
}
