// Package output provides utilities for formatting and displaying offer
// evaluations.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/iwvelando/dock-negotiator/internal/decision"
	"github.com/iwvelando/dock-negotiator/internal/hos"
	"github.com/iwvelando/dock-negotiator/pkg/constants"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Write renders result in the named format.
func Write(w io.Writer, format string, result decision.Result) error {
	switch format {
	case constants.OutputFormatJSON:
		return JSONFormat(w, result)
	case constants.OutputFormatPretty, "":
		PrettyFormat(w, result)
		return nil
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

// JSONFormat outputs v as indented JSON.
func JSONFormat(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// PrettyFormat outputs a human-readable rather than machine-readable summary.
func PrettyFormat(w io.Writer, result decision.Result) {
	p := message.NewPrinter(language.English)

	verdict := "REJECT"
	if result.Acceptable {
		verdict = "ACCEPT"
	}
	_, _ = fmt.Fprintf(w, "--- Offer %s ---\n", orDash(result.OfferedTime12h))
	_, _ = fmt.Fprintf(w, "Verdict  | %s (%s)\n", verdict, result.InternalReason)
	_, _ = fmt.Fprintf(w, "Reason   | %s\n", result.Reason)
	if result.OriginalTime != "" {
		_, _ = fmt.Fprintf(w, "Original | %s (%+d min)\n", result.OriginalTime, result.MinutesFromOriginal)
	}
	if result.ExpectedArrival != "" {
		_, _ = fmt.Fprintf(w, "Arrival  | %s\n", result.ExpectedArrival)
	}
	if counter := result.CounterOffer(); counter != "" {
		_, _ = fmt.Fprintf(w, "Counter  | %s\n", counter)
	}

	if c := result.Cost; c != nil {
		_, _ = fmt.Fprintf(w, "\nCost     | Amount\n")
		_, _ = fmt.Fprintf(w, "____     | ______\n")
		_, _ = p.Fprintf(w, "Dwell    | $%.2f\n", c.DwellCost)
		_, _ = p.Fprintf(w, "OTIF     | $%.2f\n", c.OTIFPenalty)
		_, _ = p.Fprintf(w, "Party    | $%.2f\n", c.PartyPenalties)
		_, _ = p.Fprintf(w, "Total    | $%.2f\n", c.TotalCost)
		for _, item := range c.LineItems {
			_, _ = p.Fprintf(w, "  %s: $%.2f\n", item.Label, item.Amount)
		}
	}

	if s := result.Strategy; s != nil {
		_, _ = fmt.Fprintf(w, "\nZone       | Latest | Max cost\n")
		_, _ = fmt.Fprintf(w, "____       | ______ | ________\n")
		_, _ = p.Fprintf(w, "Ideal      | %s  | $%.2f\n", s.IdealMaxTime, s.IdealMaxCost)
		_, _ = p.Fprintf(w, "Acceptable | %s  | $%.2f\n", s.AcceptableMaxTime, s.AcceptableMaxCost)
		_, _ = p.Fprintf(w, "Reluctant  | %s  | $%.2f\n", s.ReluctantMaxTime, s.ReluctantMaxCost)
	}

	if h := result.HOS; h != nil {
		_, _ = fmt.Fprintf(w, "\nHours of service | %s\n", feasibility(h))
		if h.LatestLegalDockTime != "" {
			_, _ = fmt.Fprintf(w, "Latest legal dock | %s\n", h.LatestLegalDockTime)
		}
		_, _ = fmt.Fprintf(w, "Wait | %d min, duty needed %d min\n", h.WaitMinutes, h.RequiredDutyMinutes)
		if h.DetentionCost > 0 {
			_, _ = p.Fprintf(w, "Detention | $%.2f\n", h.DetentionCost)
		}
		if len(h.Margins) > 0 {
			_, _ = fmt.Fprintf(w, "Margins | %s\n", margins(h.Margins))
		}
	}

	if len(result.RuleSources) > 0 {
		_, _ = fmt.Fprintf(w, "\nSources | %s\n", strings.Join(result.RuleSources, "; "))
	}
	for _, warning := range result.Warnings {
		_, _ = fmt.Fprintf(w, "Warning | %s\n", warning)
	}
}

func feasibility(h *decision.HOSSummary) string {
	switch {
	case h.Feasible:
		return "feasible"
	case h.RequiresNextShift:
		return fmt.Sprintf("infeasible (%s), next shift required", h.BindingConstraint)
	default:
		return fmt.Sprintf("infeasible (%s)", h.BindingConstraint)
	}
}

func margins(m map[hos.Constraint]int) string {
	keys := make([]hos.Constraint, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s %+d", k, m[k])
	}
	return strings.Join(parts, ", ")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
