package contract

import (
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }

const walmartTerms = `{
  "delayPenalties": {
    "tiers": [
      {"fromMinutes": 60, "toMinutes": null, "ratePerHour": 50},
      {"fromMinutes": 0, "toMinutes": 60, "ratePerHour": 0}
    ],
    "sourceClause": "Section 4.2 Detention"
  },
  "complianceWindows": [
    {"retailer": "Target", "windowMinutes": 15, "otifFlatFee": 500},
    {"retailer": "Wal-Mart", "windowMinutes": 30, "otifPenaltyPercentage": 3, "sourceClause": "Exhibit B"}
  ],
  "partyPenalties": [
    {"penaltyType": "lumper", "party": "carrier", "flatFee": 75, "sourceClause": "Section 7"}
  ],
  "confidence": 0.82,
  "warnings": ["tier table partially illegible"]
}`

func TestParseExtractedTerms(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		expectNil bool
		expectErr bool
	}{
		{name: "Empty payload", raw: "", expectNil: true},
		{name: "Whitespace payload", raw: "   \n", expectNil: true},
		{name: "Null payload", raw: "null", expectNil: true},
		{name: "Full terms", raw: walmartTerms},
		{name: "Only warnings", raw: `{"warnings": ["nothing found"]}`},
		{name: "Truncated JSON", raw: `{"delayPenalties": {"tiers": [`, expectNil: true, expectErr: true},
		{name: "Wrong top-level type", raw: `[1, 2, 3]`, expectNil: true, expectErr: true},
		{name: "String minutes", raw: `{"delayPenalties": {"tiers": [{"fromMinutes": "sixty", "ratePerHour": 50}]}}`, expectNil: true, expectErr: true},
		{name: "Fractional minutes", raw: `{"complianceWindows": [{"windowMinutes": 30.5}]}`, expectNil: true, expectErr: true},
		{name: "Party penalty without type", raw: `{"partyPenalties": [{"flatFee": 10}]}`, expectNil: true, expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			terms, err := ParseExtractedTerms(tt.raw)
			if tt.expectErr {
				if err == nil {
					t.Fatalf("expected error, got nil")
				}
				if !errors.Is(err, ErrInvalidTerms) {
					t.Errorf("expected ErrInvalidTerms, got %v", err)
				}
			} else if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if (terms == nil) != tt.expectNil {
				t.Errorf("terms nil = %v, expected %v", terms == nil, tt.expectNil)
			}
		})
	}
}

func TestDeriveRulesFromExtractedTerms(t *testing.T) {
	terms, err := ParseExtractedTerms(walmartTerms)
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}

	core, logs := observer.New(zap.InfoLevel)
	rules := DeriveRules(zap.New(core), terms, "walmart")

	if len(rules.DwellTiers) != 2 {
		t.Fatalf("expected 2 dwell tiers, got %d", len(rules.DwellTiers))
	}
	if rules.DwellTiers[0].FromMinutes != 0 || rules.DwellTiers[1].FromMinutes != 60 {
		t.Errorf("expected tiers sorted by start, got %+v", rules.DwellTiers)
	}
	if rules.DwellTiers[1].ToMinutes != nil {
		t.Errorf("expected open-ended final tier")
	}
	if rules.ComplianceWindowMinutes != 30 {
		t.Errorf("expected Walmart window 30, got %d", rules.ComplianceWindowMinutes)
	}
	if rules.OTIFPenalty == nil || rules.OTIFPenalty.Percentage == nil || *rules.OTIFPenalty.Percentage != 3 {
		t.Errorf("expected 3%% OTIF penalty, got %+v", rules.OTIFPenalty)
	}
	if len(rules.PartyPenalties) != 1 || rules.PartyPenalties[0].FlatFee == nil {
		t.Errorf("expected one flat party penalty, got %+v", rules.PartyPenalties)
	}
	if len(rules.Sources) != 3 {
		t.Errorf("expected 3 cited sources, got %v", rules.Sources)
	}
	if logs.FilterMessage("contract extraction confidence").Len() != 1 {
		t.Errorf("expected confidence to be logged")
	}
	if logs.FilterMessage("contract extraction warning").Len() != 1 {
		t.Errorf("expected extraction warning to be logged")
	}
}

func TestDeriveRulesNilTerms(t *testing.T) {
	rules := DeriveRules(nil, nil, "Walmart")
	if !rules.Empty() {
		t.Errorf("expected empty rule set, got %+v", rules)
	}
	if rules.ComplianceWindowMinutes != 0 {
		t.Errorf("expected zero window, got %d", rules.ComplianceWindowMinutes)
	}
}

func TestDeriveTiersDropsInvalidAndOverlapping(t *testing.T) {
	tests := []struct {
		name          string
		tiers         []DwellTierTerm
		expectedFroms []int
		expectedWarns int
	}{
		{
			name: "Contiguous tiers kept",
			tiers: []DwellTierTerm{
				{FromMinutes: 0, ToMinutes: intPtr(60), RatePerHour: 0},
				{FromMinutes: 60, ToMinutes: intPtr(120), RatePerHour: 25},
				{FromMinutes: 120, RatePerHour: 50},
			},
			expectedFroms: []int{0, 60, 120},
		},
		{
			name: "Non-increasing bounds dropped",
			tiers: []DwellTierTerm{
				{FromMinutes: 60, ToMinutes: intPtr(60), RatePerHour: 25},
				{FromMinutes: 90, ToMinutes: intPtr(30), RatePerHour: 25},
				{FromMinutes: 120, RatePerHour: 50},
			},
			expectedFroms: []int{120},
			expectedWarns: 2,
		},
		{
			name: "Negative values dropped",
			tiers: []DwellTierTerm{
				{FromMinutes: -10, ToMinutes: intPtr(30), RatePerHour: 10},
				{FromMinutes: 30, RatePerHour: -5},
			},
			expectedWarns: 2,
		},
		{
			name: "Overlap with earlier tier dropped",
			tiers: []DwellTierTerm{
				{FromMinutes: 0, ToMinutes: intPtr(90), RatePerHour: 10},
				{FromMinutes: 60, ToMinutes: intPtr(120), RatePerHour: 20},
				{FromMinutes: 90, RatePerHour: 30},
			},
			expectedFroms: []int{0, 90},
			expectedWarns: 1,
		},
		{
			name: "Tier after open-ended tier dropped",
			tiers: []DwellTierTerm{
				{FromMinutes: 30, RatePerHour: 10},
				{FromMinutes: 120, RatePerHour: 20},
			},
			expectedFroms: []int{30},
			expectedWarns: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zap.WarnLevel)
			tiers := deriveTiers(zap.New(core), tt.tiers)

			if len(tiers) != len(tt.expectedFroms) {
				t.Fatalf("expected %d tiers, got %+v", len(tt.expectedFroms), tiers)
			}
			for i, from := range tt.expectedFroms {
				if tiers[i].FromMinutes != from {
					t.Errorf("tier %d from = %d, expected %d", i, tiers[i].FromMinutes, from)
				}
			}
			if logs.Len() != tt.expectedWarns {
				t.Errorf("expected %d warnings, got %d", tt.expectedWarns, logs.Len())
			}
		})
	}
}

func TestComplianceWindowMatching(t *testing.T) {
	windows := []ComplianceWindowTerm{
		{Retailer: "Costco", WindowMinutes: 10},
		{Retailer: "Whole Foods", WindowMinutes: 20},
		{Retailer: "", WindowMinutes: 45},
		{Retailer: "Kroger", WindowMinutes: 5},
	}

	tests := []struct {
		name     string
		retailer string
		expected int
	}{
		{"Exact match", "Costco", 10},
		{"Case and space insensitive", "wholefoods", 20},
		{"Wildcard before later entry", "Kroger", 45},
		{"Unknown retailer uses wildcard", "Aldi", 45},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			terms := &ExtractedTerms{ComplianceWindows: windows}
			rules := DeriveRules(nil, terms, tt.retailer)
			if rules.ComplianceWindowMinutes != tt.expected {
				t.Errorf("window for %q = %d, expected %d", tt.retailer, rules.ComplianceWindowMinutes, tt.expected)
			}
		})
	}

	t.Run("No match and no wildcard", func(t *testing.T) {
		terms := &ExtractedTerms{ComplianceWindows: []ComplianceWindowTerm{{Retailer: "Costco", WindowMinutes: 10, OTIFFlatFee: floatPtr(100)}}}
		rules := DeriveRules(nil, terms, "Target")
		if rules.ComplianceWindowMinutes != 0 || rules.OTIFPenalty != nil {
			t.Errorf("expected no window and no OTIF penalty, got %+v", rules)
		}
	})
}

func TestPartyPenaltyAmounts(t *testing.T) {
	tests := []struct {
		name          string
		term          PartyPenaltyTerm
		expectFlat    bool
		expectPct     bool
		expectPer     bool
		expectWarning string
	}{
		{
			name:       "Flat fee only",
			term:       PartyPenaltyTerm{PenaltyType: "lumper", FlatFee: floatPtr(75)},
			expectFlat: true,
		},
		{
			name:          "Flat wins over percentage",
			term:          PartyPenaltyTerm{PenaltyType: "chargeback", FlatFee: floatPtr(75), Percentage: floatPtr(2)},
			expectFlat:    true,
			expectWarning: "multiple amounts",
		},
		{
			name:          "Percentage wins over per occurrence",
			term:          PartyPenaltyTerm{PenaltyType: "chargeback", Percentage: floatPtr(2), PerOccurrence: floatPtr(40)},
			expectPct:     true,
			expectWarning: "multiple amounts",
		},
		{
			name:      "Per occurrence only",
			term:      PartyPenaltyTerm{PenaltyType: "redelivery", PerOccurrence: floatPtr(40)},
			expectPer: true,
		},
		{
			name:          "No amount kept with warning",
			term:          PartyPenaltyTerm{PenaltyType: "unknown-fee"},
			expectWarning: "no amount",
		},
		{
			name:          "Negative amount ignored",
			term:          PartyPenaltyTerm{PenaltyType: "rebate", FlatFee: floatPtr(-20)},
			expectWarning: "negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zap.WarnLevel)
			rules := DeriveRules(zap.New(core), &ExtractedTerms{PartyPenalties: []PartyPenaltyTerm{tt.term}}, "")

			if len(rules.PartyPenalties) != 1 {
				t.Fatalf("expected party penalty to be retained, got %d", len(rules.PartyPenalties))
			}
			p := rules.PartyPenalties[0]
			if (p.FlatFee != nil) != tt.expectFlat || (p.Percentage != nil) != tt.expectPct || (p.PerOccurrence != nil) != tt.expectPer {
				t.Errorf("unexpected amounts: %+v", p)
			}

			if tt.expectWarning == "" {
				if logs.Len() != 0 {
					t.Errorf("expected no warnings, got %d", logs.Len())
				}
				return
			}
			found := false
			for _, entry := range logs.All() {
				if strings.Contains(entry.Message, tt.expectWarning) {
					found = true
				}
			}
			if !found {
				t.Errorf("expected a warning containing %q", tt.expectWarning)
			}
		})
	}
}

func TestRuleSetBoundariesAndDescribe(t *testing.T) {
	rules := RuleSet{
		DwellTiers: []DwellTier{
			{FromMinutes: 0, ToMinutes: intPtr(60), RatePerHour: 0},
			{FromMinutes: 60, ToMinutes: intPtr(120), RatePerHour: 25},
			{FromMinutes: 120, RatePerHour: 50},
		},
		ComplianceWindowMinutes: 30,
		OTIFPenalty:             &Penalty{FlatFee: floatPtr(250)},
		PartyPenalties:          []PartyPenalty{{PenaltyType: "lumper", PerOccurrence: floatPtr(40)}},
	}

	boundaries := rules.Boundaries()
	expected := []int{0, 60, 120}
	if len(boundaries) != len(expected) {
		t.Fatalf("Boundaries() = %v, expected %v", boundaries, expected)
	}
	for i := range expected {
		if boundaries[i] != expected[i] {
			t.Errorf("Boundaries()[%d] = %d, expected %d", i, boundaries[i], expected[i])
		}
	}

	lines := rules.Describe()
	joined := strings.Join(lines, "\n")
	for _, want := range []string{"dwell 120-open min at $50.00/hr", "+/-30 min", "OTIF penalty $250.00 flat", "lumper penalty (any party): $40.00 per occurrence"} {
		if !strings.Contains(joined, want) {
			t.Errorf("Describe() missing %q in:\n%s", want, joined)
		}
	}
}
