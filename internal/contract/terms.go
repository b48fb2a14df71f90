// Package contract models the contract terms supplied by the extraction
// service and derives the concrete rule set that drives cost computation.
package contract

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ErrInvalidTerms is returned when an extracted-terms payload cannot be
// decoded or does not have the expected shape.
var ErrInvalidTerms = errors.New("invalid extracted contract terms")

// ExtractedTerms is the possibly-partial output of contract extraction. Every
// section is optional.
type ExtractedTerms struct {
	DelayPenalties    *DelayPenaltySection   `json:"delayPenalties,omitempty"`
	ComplianceWindows []ComplianceWindowTerm `json:"complianceWindows,omitempty"`
	PartyPenalties    []PartyPenaltyTerm     `json:"partyPenalties,omitempty"`
	Confidence        *float64               `json:"confidence,omitempty"`
	Warnings          []string               `json:"warnings,omitempty"`
}

// DelayPenaltySection lists the tiered dwell (delay) charges.
type DelayPenaltySection struct {
	Tiers        []DwellTierTerm `json:"tiers"`
	SourceClause string          `json:"sourceClause,omitempty"`
}

// DwellTierTerm is one tier as extracted. A nil ToMinutes is open-ended.
type DwellTierTerm struct {
	FromMinutes int     `json:"fromMinutes"`
	ToMinutes   *int    `json:"toMinutes"`
	RatePerHour float64 `json:"ratePerHour"`
}

// ComplianceWindowTerm is an on-time window, optionally scoped to a retailer.
// An empty Retailer applies to all retailers.
type ComplianceWindowTerm struct {
	Retailer              string   `json:"retailer,omitempty"`
	WindowMinutes         int      `json:"windowMinutes"`
	OTIFPenaltyPercentage *float64 `json:"otifPenaltyPercentage,omitempty"`
	OTIFFlatFee           *float64 `json:"otifFlatFee,omitempty"`
	SourceClause          string   `json:"sourceClause,omitempty"`
}

// PartyPenaltyTerm is a contract-specific charge between the parties.
type PartyPenaltyTerm struct {
	PenaltyType   string   `json:"penaltyType"`
	Party         string   `json:"party,omitempty"`
	FlatFee       *float64 `json:"flatFee,omitempty"`
	Percentage    *float64 `json:"percentage,omitempty"`
	PerOccurrence *float64 `json:"perOccurrence,omitempty"`
	SourceClause  string   `json:"sourceClause,omitempty"`
}

const termsSchemaJSON = `{
  "type": "object",
  "properties": {
    "delayPenalties": {
      "type": ["object", "null"],
      "properties": {
        "tiers": {
          "type": "array",
          "items": {
            "type": "object",
            "required": ["fromMinutes", "ratePerHour"],
            "properties": {
              "fromMinutes": {"type": "integer"},
              "toMinutes": {"type": ["integer", "null"]},
              "ratePerHour": {"type": "number"}
            }
          }
        },
        "sourceClause": {"type": "string"}
      }
    },
    "complianceWindows": {
      "type": ["array", "null"],
      "items": {
        "type": "object",
        "required": ["windowMinutes"],
        "properties": {
          "retailer": {"type": "string"},
          "windowMinutes": {"type": "integer"},
          "otifPenaltyPercentage": {"type": ["number", "null"]},
          "otifFlatFee": {"type": ["number", "null"]},
          "sourceClause": {"type": "string"}
        }
      }
    },
    "partyPenalties": {
      "type": ["array", "null"],
      "items": {
        "type": "object",
        "required": ["penaltyType"],
        "properties": {
          "penaltyType": {"type": "string"},
          "party": {"type": "string"},
          "flatFee": {"type": ["number", "null"]},
          "percentage": {"type": ["number", "null"]},
          "perOccurrence": {"type": ["number", "null"]},
          "sourceClause": {"type": "string"}
        }
      }
    },
    "confidence": {"type": ["number", "null"]},
    "warnings": {"type": ["array", "null"], "items": {"type": "string"}}
  }
}`

var termsSchema = jsonschema.MustCompileString("extracted-terms.json", termsSchemaJSON)

// ParseExtractedTerms decodes a serialized extracted-terms blob. A blank or
// "null" payload means no terms were supplied and returns nil without error.
// Syntax and shape problems are reported as ErrInvalidTerms; callers treat
// those as absent terms.
func ParseExtractedTerms(raw string) (*ExtractedTerms, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || trimmed == "null" {
		return nil, nil
	}

	dec := json.NewDecoder(strings.NewReader(trimmed))
	dec.UseNumber()
	var doc interface{}
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrInvalidTerms, err)
	}
	if err := termsSchema.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTerms, err)
	}

	var terms ExtractedTerms
	if err := json.NewDecoder(bytes.NewReader([]byte(trimmed))).Decode(&terms); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTerms, err)
	}
	return &terms, nil
}
