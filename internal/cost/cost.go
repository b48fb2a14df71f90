// Package cost computes the financial impact of moving a dock appointment
// from its original time to an offered time under a contract rule set.
package cost

import (
	"fmt"

	"github.com/iwvelando/dock-negotiator/internal/contract"
	"github.com/iwvelando/dock-negotiator/pkg/constants"
	"github.com/iwvelando/dock-negotiator/pkg/mathutil"
	"github.com/iwvelando/dock-negotiator/pkg/timeofday"
	"github.com/shopspring/decimal"
)

// Line item kinds
const (
	KindDwell = "dwell"
	KindOTIF  = "otif"
	KindParty = "party"
)

// Params identifies one candidate offer.
type Params struct {
	OriginalMinutes timeofday.TimeOfDay
	OfferedMinutes  timeofday.TimeOfDay
	ShipmentValue   float64
	Retailer        string
}

// LineItem is one contributing charge.
type LineItem struct {
	Kind   string  `json:"kind"`
	Label  string  `json:"label"`
	Amount float64 `json:"amount"`
}

// Result is the cost breakdown for one offer. Amounts are rounded to cents.
type Result struct {
	DwellTotal        float64    `json:"dwellTotal"`
	OTIFTotal         float64    `json:"otifTotal"`
	PartyPenaltyTotal float64    `json:"partyPenaltyTotal"`
	TotalCost         float64    `json:"totalCost"`
	OutsideWindow     bool       `json:"outsideWindow"`
	DelayMinutes      int        `json:"delayMinutes"`
	LineItems         []LineItem `json:"lineItems,omitempty"`
}

var (
	minutesPerHour = decimal.NewFromInt(constants.MinutesPerHour)
	hundred        = decimal.NewFromInt(100)
)

// CalculateTotalCostImpact returns the dwell, OTIF and party-penalty cost of
// the offered time. It is a pure function of its inputs; an empty rule set
// always costs zero.
func CalculateTotalCostImpact(params Params, rules contract.RuleSet) Result {
	shift := int(params.OfferedMinutes) - int(params.OriginalMinutes)
	delay := mathutil.MaxInt(0, shift)

	result := Result{
		DelayMinutes:  delay,
		OutsideWindow: mathutil.AbsInt(shift) > rules.ComplianceWindowMinutes,
	}

	dwell := decimal.Zero
	for _, tier := range rules.DwellTiers {
		amount := tierCharge(tier, delay)
		if !amount.IsPositive() {
			continue
		}
		dwell = dwell.Add(amount)
		result.LineItems = append(result.LineItems, LineItem{
			Kind:   KindDwell,
			Label:  tierLabel(tier),
			Amount: amount.InexactFloat64(),
		})
	}

	otif := decimal.Zero
	if result.OutsideWindow && rules.OTIFPenalty != nil {
		otif = penaltyAmount(rules.OTIFPenalty.FlatFee, rules.OTIFPenalty.Percentage, params.ShipmentValue)
		if otif.IsPositive() {
			result.LineItems = append(result.LineItems, LineItem{
				Kind:   KindOTIF,
				Label:  fmt.Sprintf("OTIF penalty (outside +/-%d min window)", rules.ComplianceWindowMinutes),
				Amount: otif.InexactFloat64(),
			})
		}
	}

	party := decimal.Zero
	for _, p := range rules.PartyPenalties {
		flat := p.FlatFee
		if flat == nil {
			// one occurrence per evaluated offer
			flat = p.PerOccurrence
		}
		amount := penaltyAmount(flat, p.Percentage, params.ShipmentValue)
		if !amount.IsPositive() {
			continue
		}
		party = party.Add(amount)
		result.LineItems = append(result.LineItems, LineItem{
			Kind:   KindParty,
			Label:  p.PenaltyType,
			Amount: amount.InexactFloat64(),
		})
	}

	total := dwell.Add(otif).Add(party)
	if total.IsNegative() {
		total = decimal.Zero
	}

	result.DwellTotal = dwell.InexactFloat64()
	result.OTIFTotal = otif.InexactFloat64()
	result.PartyPenaltyTotal = party.InexactFloat64()
	result.TotalCost = total.InexactFloat64()
	return result
}

// tierCharge prices the part of [0, delay) that falls inside the tier.
func tierCharge(tier contract.DwellTier, delay int) decimal.Decimal {
	end := delay
	if tier.ToMinutes != nil {
		end = mathutil.MinInt(end, *tier.ToMinutes)
	}
	overlap := end - tier.FromMinutes
	if overlap <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(overlap)).
		Mul(decimal.NewFromFloat(tier.RatePerHour)).
		Div(minutesPerHour).
		Round(constants.CurrencyPlaces)
}

// penaltyAmount prefers a fixed amount over a percentage of shipment value.
func penaltyAmount(fixed, percentage *float64, shipmentValue float64) decimal.Decimal {
	var amount decimal.Decimal
	switch {
	case fixed != nil:
		amount = decimal.NewFromFloat(*fixed)
	case percentage != nil:
		amount = decimal.NewFromFloat(shipmentValue).Mul(decimal.NewFromFloat(*percentage)).Div(hundred)
	default:
		return decimal.Zero
	}
	amount = amount.Round(constants.CurrencyPlaces)
	if amount.IsNegative() {
		return decimal.Zero
	}
	return amount
}

func tierLabel(tier contract.DwellTier) string {
	if tier.ToMinutes == nil {
		return fmt.Sprintf("dwell %d+ min", tier.FromMinutes)
	}
	return fmt.Sprintf("dwell %d-%d min", tier.FromMinutes, *tier.ToMinutes)
}
