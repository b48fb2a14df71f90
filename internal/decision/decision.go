// Package decision combines time parsing, contract rules, cost, negotiation
// thresholds and hours-of-service feasibility into a single verdict for an
// offered dock time. It is the entry point used by the voice-tool webhook and
// the text negotiation loop.
package decision

import (
	"fmt"
	"time"

	"github.com/iwvelando/dock-negotiator/internal/contract"
	"github.com/iwvelando/dock-negotiator/internal/cost"
	"github.com/iwvelando/dock-negotiator/internal/hos"
	"github.com/iwvelando/dock-negotiator/internal/negotiation"
	"github.com/iwvelando/dock-negotiator/pkg/constants"
	"github.com/iwvelando/dock-negotiator/pkg/format"
	"github.com/iwvelando/dock-negotiator/pkg/mathutil"
	"github.com/iwvelando/dock-negotiator/pkg/timeofday"
	"go.uber.org/zap"
)

// Request is one candidate offer as received from a caller.
type Request struct {
	ProposedTime         string   `json:"proposedTime"`
	OriginalAppointment  string   `json:"originalAppointment"`
	DelayMinutes         int      `json:"delayMinutes,omitempty"`
	ShipmentValue        float64  `json:"shipmentValue,omitempty"`
	Retailer             string   `json:"retailer,omitempty"`
	ExtractedTermsJSON   string   `json:"extractedTermsJson,omitempty"`
	DriverHOSJSON        string   `json:"driverHosJson,omitempty"`
	CurrentTime          string   `json:"currentTime,omitempty"`
	EstimatedDockMinutes *int     `json:"estimatedDockMinutes,omitempty"`
	DetentionRatePerHour *float64 `json:"detentionRatePerHour,omitempty"`
	PriorPushbacks       int      `json:"priorPushbacks,omitempty"`
	CallID               string   `json:"callId,omitempty"`
}

// Options carry the configured negotiation policy.
type Options struct {
	FallbackSpanMinutes  int
	MaxPushbacks         int
	DefaultDockMinutes   int
	DefaultDetentionRate float64
	Location             *time.Location
	Now                  func() time.Time
}

// DefaultOptions returns the built-in negotiation policy.
func DefaultOptions() Options {
	return Options{
		FallbackSpanMinutes: constants.DefaultFallbackSpanMinutes,
		MaxPushbacks:        constants.DefaultMaxPushbacks,
		DefaultDockMinutes:  constants.DefaultEstimatedDockMinutes,
	}
}

func (o Options) currentTime() timeofday.TimeOfDay {
	now := time.Now
	if o.Now != nil {
		now = o.Now
	}
	loc := o.Location
	if loc == nil {
		loc = time.Local
	}
	return timeofday.FromTime(now().In(loc))
}

// CostBreakdown summarizes the cost engine output.
type CostBreakdown struct {
	DwellCost      float64         `json:"dwellCost"`
	OTIFPenalty    float64         `json:"otifPenalty"`
	PartyPenalties float64         `json:"partyPenalties"`
	TotalCost      float64         `json:"totalCost"`
	IsLate         bool            `json:"isLate"`
	LineItems      []cost.LineItem `json:"lineItems,omitempty"`
}

// StrategySummary reports the negotiation zones in 24-hour form.
type StrategySummary struct {
	IdealMaxTime      string  `json:"idealMaxTime"`
	IdealMaxCost      float64 `json:"idealMaxCost"`
	AcceptableMaxTime string  `json:"acceptableMaxTime"`
	AcceptableMaxCost float64 `json:"acceptableMaxCost"`
	ReluctantMaxTime  string  `json:"reluctantMaxTime"`
	ReluctantMaxCost  float64 `json:"reluctantMaxCost"`
}

// HOSSummary reports the hours-of-service verdict.
type HOSSummary struct {
	Feasible            bool                   `json:"feasible"`
	BindingConstraint   string                 `json:"bindingConstraint,omitempty"`
	LatestLegalDockTime string                 `json:"latestLegalDockTime,omitempty"`
	RequiresNextShift   bool                   `json:"requiresNextShift"`
	WaitMinutes         int                    `json:"waitMinutes"`
	RequiredDutyMinutes int                    `json:"requiredDutyMinutes"`
	DetentionCost       float64                `json:"detentionCost"`
	Margins             map[hos.Constraint]int `json:"margins,omitempty"`
}

// Result is the verdict for one offer. It is always populated, even when the
// request could not be understood.
type Result struct {
	Acceptable            bool             `json:"acceptable"`
	OfferedTime           string           `json:"offeredTime,omitempty"`
	OfferedTime12h        string           `json:"offeredTime12h,omitempty"`
	OriginalTime          string           `json:"originalTime,omitempty"`
	MinutesFromOriginal   int              `json:"minutesFromOriginal"`
	Reason                string           `json:"reason"`
	InternalReason        string           `json:"internalReason"`
	SuggestedCounterOffer *string          `json:"suggestedCounterOffer,omitempty"`
	Cost                  *CostBreakdown   `json:"costAnalysis,omitempty"`
	Strategy              *StrategySummary `json:"strategy,omitempty"`
	HOS                   *HOSSummary      `json:"hos,omitempty"`
	ExpectedArrival       string           `json:"expectedArrival,omitempty"`
	RuleSources           []string         `json:"ruleSources,omitempty"`
	Warnings              []string         `json:"warnings,omitempty"`
}

// CounterOffer returns the suggested counter-offer or "".
func (r Result) CounterOffer() string {
	if r.SuggestedCounterOffer == nil {
		return ""
	}
	return *r.SuggestedCounterOffer
}

// EvaluateOffer decides whether the proposed time is acceptable. It never
// returns an error and never panics; every failure degrades to a negative,
// explainable result.
func EvaluateOffer(logger *zap.Logger, req Request, opts Options) (result Result) {
	if logger == nil {
		logger = zap.NewNop()
	}
	log := logger.With(zap.String("op", "decision.EvaluateOffer"), zap.String("callId", req.CallID))

	defer func() {
		if r := recover(); r != nil {
			log.Error("recovered from panic while evaluating offer", zap.Any("panic", r))
			result = Result{
				Acceptable:     false,
				Reason:         "could not evaluate the offer",
				InternalReason: constants.ReasonError,
			}
		}
	}()

	offered, okOffered := timeofday.ParseTimeToMinutes(req.ProposedTime)
	original, okOriginal := timeofday.ParseTimeToMinutes(req.OriginalAppointment)
	if !okOffered || !okOriginal {
		result = unparseable(req, okOffered, okOriginal)
		log.Info("offer could not be parsed",
			zap.String("proposedTime", req.ProposedTime),
			zap.String("originalAppointment", req.OriginalAppointment))
		return result
	}

	result = Result{
		OfferedTime:         timeofday.MinutesToTime(offered),
		OfferedTime12h:      timeofday.MinutesToTime12Hour(offered),
		OriginalTime:        timeofday.MinutesToTime(original),
		MinutesFromOriginal: int(offered) - int(original),
	}
	if req.DelayMinutes > 0 {
		result.ExpectedArrival = timeofday.FormatTimeForSpeech(timeofday.AddMinutesToTime(original, req.DelayMinutes))
	}

	terms, err := contract.ParseExtractedTerms(req.ExtractedTermsJSON)
	if err != nil {
		log.Warn("ignoring malformed contract terms", zap.Error(err))
		result.Warnings = append(result.Warnings, "contract terms could not be read; no contract costs applied")
		terms = nil
	}
	rules := contract.DeriveRules(logger, terms, req.Retailer)
	result.RuleSources = rules.Sources

	eval := negotiation.Evaluate(negotiation.Params{
		Params: cost.Params{
			OriginalMinutes: original,
			OfferedMinutes:  offered,
			ShipmentValue:   req.ShipmentValue,
			Retailer:        req.Retailer,
		},
		DelayMinutes: req.DelayMinutes,
	}, rules, negotiation.Options{FallbackSpanMinutes: opts.FallbackSpanMinutes})

	result.Cost = &CostBreakdown{
		DwellCost:      eval.Cost.DwellTotal,
		OTIFPenalty:    eval.Cost.OTIFTotal,
		PartyPenalties: eval.Cost.PartyPenaltyTotal,
		TotalCost:      eval.Cost.TotalCost,
		IsLate:         eval.Cost.OutsideWindow,
		LineItems:      eval.Cost.LineItems,
	}
	result.Strategy = summarizeStrategy(eval.Strategy)

	acceptable := eval.Decision.Accept
	internal := eval.Decision.Reason
	counter := eval.Decision.CounterOffer
	if !acceptable && reluctantlyAcceptable(eval, offered, req.PriorPushbacks, opts.MaxPushbacks) {
		acceptable = true
		internal = fmt.Sprintf("%s (after %d pushbacks)", constants.ReasonReluctant, req.PriorPushbacks)
		counter = nil
	}
	reason := costReason(internal, offered, eval.Cost.TotalCost, counter)
	if counter != nil && req.DelayMinutes > eval.Strategy.Ideal.DelayMinutes {
		reason += fmt.Sprintf(" The driver is not expected until %s.", result.ExpectedArrival)
	}

	if status := parseStatus(log, req.DriverHOSJSON, &result); status != nil {
		current := opts.currentTime()
		if req.CurrentTime != "" {
			if parsed, ok := timeofday.ParseTimeToMinutes(req.CurrentTime); ok {
				current = parsed
			} else {
				log.Warn("ignoring unparseable current time override", zap.String("currentTime", req.CurrentTime))
				result.Warnings = append(result.Warnings, "current time override could not be read; using the clock")
			}
		}

		hr := hos.CheckHOSFeasibility(offered, current, *status, dockMinutes(req, opts), detentionRate(req, opts))
		result.HOS = summarizeHOS(hr)
		if !hr.Feasible {
			acceptable = false
			internal = constants.ReasonHOS
			if hr.RequiresNextShift {
				counter = nil
				reason = fmt.Sprintf("The driver cannot legally complete a dock today (%s limit) and needs the next shift.", hr.BindingConstraint)
			} else {
				latest := timeofday.FloorToFiveMinutes(*hr.LatestLegalDockTime)
				counter = &latest
				reason = fmt.Sprintf("The driver cannot legally make %s (%s limit); the latest legal dock time is %s.",
					timeofday.FormatTimeForSpeech(offered), hr.BindingConstraint, timeofday.FormatTimeForSpeech(latest))
			}
		}
	}

	result.Acceptable = acceptable
	result.InternalReason = internal
	result.Reason = reason
	if counter != nil {
		speech := timeofday.FormatTimeForSpeech(*counter)
		result.SuggestedCounterOffer = &speech
	}

	log.Info("evaluated offer",
		zap.String("offered", result.OfferedTime),
		zap.String("original", result.OriginalTime),
		zap.Bool("acceptable", result.Acceptable),
		zap.String("internalReason", result.InternalReason),
		zap.Float64("totalCost", eval.Cost.TotalCost),
		zap.String("counterOffer", result.CounterOffer()),
		zap.Int("priorPushbacks", req.PriorPushbacks))
	return result
}

func unparseable(req Request, okOffered, okOriginal bool) Result {
	var what string
	switch {
	case !okOffered && !okOriginal:
		what = fmt.Sprintf("the proposed time %q or the original appointment %q", req.ProposedTime, req.OriginalAppointment)
	case !okOffered:
		what = fmt.Sprintf("the proposed time %q", req.ProposedTime)
	default:
		what = fmt.Sprintf("the original appointment %q", req.OriginalAppointment)
	}
	return Result{
		Acceptable:     false,
		Reason:         "could not parse " + what,
		InternalReason: constants.ReasonUnparseable,
	}
}

// reluctantlyAcceptable accepts a rejected offer once the pushback budget is
// spent, provided it is still inside the reluctant zone.
func reluctantlyAcceptable(eval negotiation.Evaluation, offered timeofday.TimeOfDay, pushbacks, maxPushbacks int) bool {
	if maxPushbacks <= 0 || pushbacks < maxPushbacks {
		return false
	}
	return eval.Strategy.Within(eval.Strategy.Reluctant, offered) &&
		negotiation.CostWithin(eval.Cost.TotalCost, eval.Strategy.Reluctant.MaxCost)
}

func costReason(internal string, offered timeofday.TimeOfDay, total float64, counter *timeofday.TimeOfDay) string {
	at := timeofday.FormatTimeForSpeech(offered)
	switch internal {
	case constants.ReasonIdeal:
		return fmt.Sprintf("%s is inside the compliance window at %s.", at, spokenCost(total))
	case constants.ReasonAcceptable:
		return fmt.Sprintf("%s is acceptable at %s.", at, spokenCost(total))
	case constants.ReasonTolerance:
		return fmt.Sprintf("%s is within tolerance at %s.", at, spokenCost(total))
	case constants.ReasonReject:
		if counter != nil {
			return fmt.Sprintf("%s would cost %s; counter with %s.", at, format.SpokenCurrency(total), timeofday.FormatTimeForSpeech(*counter))
		}
		return fmt.Sprintf("%s would cost %s.", at, format.SpokenCurrency(total))
	default:
		return fmt.Sprintf("%s accepted reluctantly at %s.", at, spokenCost(total))
	}
}

func spokenCost(total float64) string {
	if mathutil.IsZero(total) {
		return "no cost"
	}
	return "a cost of " + format.SpokenCurrency(total)
}

func parseStatus(log *zap.Logger, raw string, result *Result) *hos.DriverStatus {
	status, err := hos.ParseDriverStatus(raw)
	if err != nil {
		log.Warn("ignoring malformed driver HOS status", zap.Error(err))
		result.Warnings = append(result.Warnings, "driver HOS status could not be read; HOS check skipped")
		return nil
	}
	return status
}

func dockMinutes(req Request, opts Options) int {
	if req.EstimatedDockMinutes != nil {
		return *req.EstimatedDockMinutes
	}
	if opts.DefaultDockMinutes > 0 {
		return opts.DefaultDockMinutes
	}
	return constants.DefaultEstimatedDockMinutes
}

func detentionRate(req Request, opts Options) float64 {
	if req.DetentionRatePerHour != nil {
		return *req.DetentionRatePerHour
	}
	return opts.DefaultDetentionRate
}

func summarizeStrategy(s negotiation.Strategy) *StrategySummary {
	return &StrategySummary{
		IdealMaxTime:      timeofday.MinutesToTime(s.Ideal.MaxMinutes),
		IdealMaxCost:      s.Ideal.MaxCost,
		AcceptableMaxTime: timeofday.MinutesToTime(s.Acceptable.MaxMinutes),
		AcceptableMaxCost: s.Acceptable.MaxCost,
		ReluctantMaxTime:  timeofday.MinutesToTime(s.Reluctant.MaxMinutes),
		ReluctantMaxCost:  s.Reluctant.MaxCost,
	}
}

func summarizeHOS(r hos.Result) *HOSSummary {
	summary := &HOSSummary{
		Feasible:            r.Feasible,
		RequiresNextShift:   r.RequiresNextShift,
		WaitMinutes:         r.WaitMinutes,
		RequiredDutyMinutes: r.RequiredDutyMinutes,
		DetentionCost:       r.DetentionCost,
		Margins:             r.Margins,
	}
	if r.BindingConstraint != nil {
		summary.BindingConstraint = r.BindingConstraint.String()
	}
	if r.LatestLegalDockTime != nil {
		summary.LatestLegalDockTime = timeofday.MinutesToTime(*r.LatestLegalDockTime)
	}
	return summary
}
