package contract

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/iwvelando/dock-negotiator/pkg/format"
	"go.uber.org/zap"
)

// DwellTier charges RatePerHour for delay minutes in [FromMinutes, ToMinutes).
// A nil ToMinutes is open-ended.
type DwellTier struct {
	FromMinutes int     `json:"fromMinutes"`
	ToMinutes   *int    `json:"toMinutes"`
	RatePerHour float64 `json:"ratePerHour"`
}

// Penalty is an OTIF charge: a percentage of shipment value or a flat fee.
type Penalty struct {
	Percentage *float64 `json:"percentage,omitempty"`
	FlatFee    *float64 `json:"flatFee,omitempty"`
}

// PartyPenalty is a contract-specific charge. At most one amount is set.
type PartyPenalty struct {
	PenaltyType   string   `json:"penaltyType"`
	Party         string   `json:"party,omitempty"`
	FlatFee       *float64 `json:"flatFee,omitempty"`
	Percentage    *float64 `json:"percentage,omitempty"`
	PerOccurrence *float64 `json:"perOccurrence,omitempty"`
	SourceClause  string   `json:"sourceClause,omitempty"`
}

// RuleSet is the concrete, per-negotiation cost model derived from contract
// terms. Absent sections stay empty; nothing is synthesized.
type RuleSet struct {
	DwellTiers              []DwellTier    `json:"dwellTiers"`
	ComplianceWindowMinutes int            `json:"complianceWindowMinutes"`
	OTIFPenalty             *Penalty       `json:"otifPenalty,omitempty"`
	PartyPenalties          []PartyPenalty `json:"partyPenalties"`
	Sources                 []string       `json:"sources,omitempty"`
}

// Empty reports whether the rule set can produce any cost at all.
func (r RuleSet) Empty() bool {
	return len(r.DwellTiers) == 0 && r.OTIFPenalty == nil && len(r.PartyPenalties) == 0
}

// Boundaries returns the distinct tier boundaries in ascending order.
func (r RuleSet) Boundaries() []int {
	seen := make(map[int]bool)
	var out []int
	add := func(v int) {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	for _, tier := range r.DwellTiers {
		add(tier.FromMinutes)
		if tier.ToMinutes != nil {
			add(*tier.ToMinutes)
		}
	}
	sort.Ints(out)
	return out
}

// Describe renders one audit line per rule.
func (r RuleSet) Describe() []string {
	var lines []string
	for _, tier := range r.DwellTiers {
		upper := "open"
		if tier.ToMinutes != nil {
			upper = fmt.Sprintf("%d", *tier.ToMinutes)
		}
		lines = append(lines, fmt.Sprintf("dwell %d-%s min at %s/hr", tier.FromMinutes, upper, format.Currency(tier.RatePerHour)))
	}
	lines = append(lines, fmt.Sprintf("compliance window +/-%d min", r.ComplianceWindowMinutes))
	if r.OTIFPenalty != nil {
		switch {
		case r.OTIFPenalty.Percentage != nil:
			lines = append(lines, fmt.Sprintf("OTIF penalty %.2f%% of shipment value", *r.OTIFPenalty.Percentage))
		case r.OTIFPenalty.FlatFee != nil:
			lines = append(lines, fmt.Sprintf("OTIF penalty %s flat", format.Currency(*r.OTIFPenalty.FlatFee)))
		}
	}
	for _, p := range r.PartyPenalties {
		lines = append(lines, fmt.Sprintf("%s penalty (%s): %s", p.PenaltyType, partyOrAny(p.Party), describeAmount(p)))
	}
	return lines
}

func partyOrAny(party string) string {
	if party == "" {
		return "any party"
	}
	return party
}

func describeAmount(p PartyPenalty) string {
	switch {
	case p.FlatFee != nil:
		return format.Currency(*p.FlatFee) + " flat"
	case p.Percentage != nil:
		return fmt.Sprintf("%.2f%% of shipment value", *p.Percentage)
	case p.PerOccurrence != nil:
		return format.Currency(*p.PerOccurrence) + " per occurrence"
	default:
		return "no amount"
	}
}

// DeriveRules turns extracted terms into a RuleSet for the given retailer.
// nil terms yield an empty rule set. Invalid tiers and amounts are dropped and
// logged rather than failing the derivation.
func DeriveRules(logger *zap.Logger, terms *ExtractedTerms, retailer string) RuleSet {
	if logger == nil {
		logger = zap.NewNop()
	}
	log := logger.With(zap.String("op", "contract.DeriveRules"), zap.String("retailer", retailer))

	var rules RuleSet
	if terms == nil {
		log.Debug("no contract terms supplied, using empty rule set")
		return rules
	}

	if terms.Confidence != nil {
		log.Info("contract extraction confidence", zap.Float64("confidence", *terms.Confidence))
	}
	for _, w := range terms.Warnings {
		log.Info("contract extraction warning", zap.String("warning", w))
	}

	if terms.DelayPenalties != nil {
		rules.DwellTiers = deriveTiers(log, terms.DelayPenalties.Tiers)
		addSource(&rules, terms.DelayPenalties.SourceClause)
	}

	if cw, ok := matchComplianceWindow(terms.ComplianceWindows, retailer); ok {
		rules.ComplianceWindowMinutes = cw.WindowMinutes
		if cw.WindowMinutes < 0 {
			log.Warn("negative compliance window ignored", zap.Int("windowMinutes", cw.WindowMinutes))
			rules.ComplianceWindowMinutes = 0
		}
		rules.OTIFPenalty = deriveOTIF(log, cw)
		addSource(&rules, cw.SourceClause)
	} else {
		log.Debug("no compliance window matches retailer")
	}

	for _, term := range terms.PartyPenalties {
		rules.PartyPenalties = append(rules.PartyPenalties, derivePartyPenalty(log, term))
		addSource(&rules, term.SourceClause)
	}

	log.Debug("derived contract rules",
		zap.Int("dwellTiers", len(rules.DwellTiers)),
		zap.Int("complianceWindowMinutes", rules.ComplianceWindowMinutes),
		zap.Bool("otifPenalty", rules.OTIFPenalty != nil),
		zap.Int("partyPenalties", len(rules.PartyPenalties)))
	return rules
}

func deriveTiers(log *zap.Logger, terms []DwellTierTerm) []DwellTier {
	var candidates []DwellTier
	for i, t := range terms {
		if t.FromMinutes < 0 || t.RatePerHour < 0 || (t.ToMinutes != nil && *t.ToMinutes <= t.FromMinutes) {
			log.Warn("dropping invalid dwell tier",
				zap.Int("index", i),
				zap.Int("fromMinutes", t.FromMinutes),
				zap.Float64("ratePerHour", t.RatePerHour))
			continue
		}
		tier := DwellTier{FromMinutes: t.FromMinutes, RatePerHour: t.RatePerHour}
		if t.ToMinutes != nil {
			to := *t.ToMinutes
			tier.ToMinutes = &to
		}
		candidates = append(candidates, tier)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].FromMinutes < candidates[j].FromMinutes
	})

	var tiers []DwellTier
	openEnded := false
	end := 0
	for _, tier := range candidates {
		if len(tiers) > 0 && (openEnded || tier.FromMinutes < end) {
			log.Warn("dropping overlapping dwell tier", zap.Int("fromMinutes", tier.FromMinutes))
			continue
		}
		tiers = append(tiers, tier)
		if tier.ToMinutes == nil {
			openEnded = true
		} else {
			end = *tier.ToMinutes
		}
	}
	return tiers
}

func matchComplianceWindow(windows []ComplianceWindowTerm, retailer string) (ComplianceWindowTerm, bool) {
	want := normalizeRetailer(retailer)
	for _, cw := range windows {
		name := normalizeRetailer(cw.Retailer)
		if name == "" || name == want {
			return cw, true
		}
	}
	return ComplianceWindowTerm{}, false
}

func normalizeRetailer(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func deriveOTIF(log *zap.Logger, cw ComplianceWindowTerm) *Penalty {
	pct := nonNegative(log, "otifPenaltyPercentage", cw.OTIFPenaltyPercentage)
	flat := nonNegative(log, "otifFlatFee", cw.OTIFFlatFee)
	switch {
	case pct != nil:
		if flat != nil {
			log.Warn("OTIF penalty has both percentage and flat fee, keeping percentage")
		}
		return &Penalty{Percentage: pct}
	case flat != nil:
		return &Penalty{FlatFee: flat}
	}
	return nil
}

func derivePartyPenalty(log *zap.Logger, term PartyPenaltyTerm) PartyPenalty {
	p := PartyPenalty{
		PenaltyType:  term.PenaltyType,
		Party:        term.Party,
		SourceClause: term.SourceClause,
	}
	flat := nonNegative(log, "flatFee", term.FlatFee)
	pct := nonNegative(log, "percentage", term.Percentage)
	per := nonNegative(log, "perOccurrence", term.PerOccurrence)

	populated := 0
	for _, v := range []*float64{flat, pct, per} {
		if v != nil {
			populated++
		}
	}
	switch {
	case flat != nil:
		p.FlatFee = flat
	case pct != nil:
		p.Percentage = pct
	case per != nil:
		p.PerOccurrence = per
	}

	if populated > 1 {
		log.Warn("party penalty has multiple amounts, keeping one by precedence",
			zap.String("penaltyType", term.PenaltyType))
	}
	if populated == 0 {
		log.Warn("party penalty has no amount, contributes $0",
			zap.String("penaltyType", term.PenaltyType))
	}
	return p
}

func nonNegative(log *zap.Logger, field string, v *float64) *float64 {
	if v == nil {
		return nil
	}
	if *v < 0 {
		log.Warn("ignoring negative penalty amount", zap.String("field", field), zap.Float64("value", *v))
		return nil
	}
	value := *v
	return &value
}

func addSource(rules *RuleSet, clause string) {
	clause = strings.TrimSpace(clause)
	if clause == "" {
		return
	}
	for _, s := range rules.Sources {
		if s == clause {
			return
		}
	}
	rules.Sources = append(rules.Sources, clause)
}
