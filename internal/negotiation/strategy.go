// Package negotiation derives the acceptance thresholds for a dock
// appointment and applies them to offered times.
package negotiation

import (
	"github.com/iwvelando/dock-negotiator/internal/contract"
	"github.com/iwvelando/dock-negotiator/internal/cost"
	"github.com/iwvelando/dock-negotiator/pkg/constants"
	"github.com/iwvelando/dock-negotiator/pkg/mathutil"
	"github.com/iwvelando/dock-negotiator/pkg/timeofday"
)

// Params are the cost inputs for the negotiation plus the caller's expected
// delay, which is informational only.
type Params struct {
	cost.Params
	DelayMinutes int
}

// Options tune threshold derivation.
type Options struct {
	// FallbackSpanMinutes widens a zone when no further tier boundary exists.
	FallbackSpanMinutes int
}

func (o Options) fallbackSpan() int {
	if o.FallbackSpanMinutes <= 0 {
		return constants.DefaultFallbackSpanMinutes
	}
	return o.FallbackSpanMinutes
}

// Zone is the latest offered time still inside a zone and the cost at that time.
// MaxMinutes wraps past midnight and is for display; membership is decided on
// DelayMinutes, the unwrapped shift from the original appointment.
type Zone struct {
	MaxMinutes   timeofday.TimeOfDay `json:"maxMinutes"`
	MaxCost      float64             `json:"maxCost"`
	DelayMinutes int                 `json:"delayMinutes"`
}

// Strategy holds the three negotiation zones for one appointment.
type Strategy struct {
	Original   timeofday.TimeOfDay `json:"original"`
	Ideal      Zone                `json:"ideal"`
	Acceptable Zone                `json:"acceptable"`
	Reluctant  Zone                `json:"reluctant"`
}

// Decision is the verdict for one offer.
type Decision struct {
	Accept       bool                 `json:"accept"`
	Reason       string               `json:"reason"`
	CounterOffer *timeofday.TimeOfDay `json:"counterOffer,omitempty"`
}

// CounterOfferSpeech renders the counter-offer for speech, or "" when none.
func (d Decision) CounterOfferSpeech() string {
	if d.CounterOffer == nil {
		return ""
	}
	return timeofday.FormatTimeForSpeech(*d.CounterOffer)
}

// Evaluation bundles the cost, thresholds and verdict for one offer.
type Evaluation struct {
	Cost     cost.Result `json:"cost"`
	Strategy Strategy    `json:"strategy"`
	Decision Decision    `json:"decision"`
}

// CreateNegotiationStrategy evaluates the cost engine at the compliance window
// edge and at the next dwell tier boundaries to derive the Ideal, Acceptable
// and Reluctant zones. No dollar thresholds are hardcoded.
func CreateNegotiationStrategy(params Params, rules contract.RuleSet, opts Options) Strategy {
	span := opts.fallbackSpan()
	boundaries := rules.Boundaries()

	idealDelay := rules.ComplianceWindowMinutes
	acceptableDelay := nextBoundary(boundaries, idealDelay, span)
	reluctantDelay := nextBoundary(boundaries, acceptableDelay, span)

	return Strategy{
		Original:   params.OriginalMinutes,
		Ideal:      zoneAt(params.Params, rules, idealDelay),
		Acceptable: zoneAt(params.Params, rules, acceptableDelay),
		Reluctant:  zoneAt(params.Params, rules, reluctantDelay),
	}
}

func nextBoundary(boundaries []int, after, span int) int {
	for _, b := range boundaries {
		if b > after {
			return b
		}
	}
	return after + span
}

// zoneAt prices an offer delay minutes after the original appointment. The
// offered time handed to the cost engine is left unwrapped so the shift it
// sees is exactly delay, even past midnight.
func zoneAt(params cost.Params, rules contract.RuleSet, delay int) Zone {
	params.OfferedMinutes = params.OriginalMinutes + timeofday.TimeOfDay(delay)
	return Zone{
		MaxMinutes:   timeofday.AddMinutesToTime(params.OriginalMinutes, delay),
		MaxCost:      cost.CalculateTotalCostImpact(params, rules).TotalCost,
		DelayMinutes: delay,
	}
}

// Within reports whether an offer at the given time is no later than the zone
// edge. Offers are compared by shift from the original appointment, the same
// unwrapped offset the cost engine uses, so zones crossing midnight hold.
func (s Strategy) Within(zone Zone, offered timeofday.TimeOfDay) bool {
	return int(offered)-int(s.Original) <= zone.DelayMinutes
}

// Decide applies the zone rules in order; the first match wins.
//  1. within Ideal time and cost: accept
//  2. within Acceptable time and cost: accept
//  3. later than Acceptable, or costlier than Reluctant: reject and counter
//  4. otherwise accept within tolerance
func Decide(strategy Strategy, offered timeofday.TimeOfDay, offerCost float64) Decision {
	switch {
	case strategy.Within(strategy.Ideal, offered) && CostWithin(offerCost, strategy.Ideal.MaxCost):
		return Decision{Accept: true, Reason: constants.ReasonIdeal}
	case strategy.Within(strategy.Acceptable, offered) && CostWithin(offerCost, strategy.Acceptable.MaxCost):
		return Decision{Accept: true, Reason: constants.ReasonAcceptable}
	case !strategy.Within(strategy.Acceptable, offered) || !CostWithin(offerCost, strategy.Reluctant.MaxCost):
		counter := timeofday.RoundTimeToFiveMinutes(strategy.Ideal.MaxMinutes)
		return Decision{Accept: false, Reason: constants.ReasonReject, CounterOffer: &counter}
	default:
		return Decision{Accept: true, Reason: constants.ReasonTolerance}
	}
}

// Evaluate computes the cost of the offer, the strategy and the verdict.
func Evaluate(params Params, rules contract.RuleSet, opts Options) Evaluation {
	result := cost.CalculateTotalCostImpact(params.Params, rules)
	strategy := CreateNegotiationStrategy(params, rules, opts)
	return Evaluation{
		Cost:     result,
		Strategy: strategy,
		Decision: Decide(strategy, params.OfferedMinutes, result.TotalCost),
	}
}

// CostWithin reports whether a cent-rounded amount does not exceed limit.
func CostWithin(amount, limit float64) bool {
	return amount <= limit || mathutil.WithinTolerance(amount, limit, constants.CurrencyTolerance/2)
}
