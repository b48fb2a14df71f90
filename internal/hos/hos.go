// Package hos checks whether a driver can legally be at the dock at an
// offered time given their remaining hours-of-service allowances.
package hos

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/iwvelando/dock-negotiator/pkg/constants"
	"github.com/iwvelando/dock-negotiator/pkg/timeofday"
	"github.com/shopspring/decimal"
)

// Constraint names one hours-of-service limit.
type Constraint int

// Constraints in tie-break order.
const (
	Drive Constraint = iota
	Duty
	Window
	Cycle
)

var constraintNames = [...]string{"drive", "duty", "window", "cycle"}

// AllConstraints lists every constraint in tie-break order.
var AllConstraints = []Constraint{Drive, Duty, Window, Cycle}

func (c Constraint) String() string {
	if c < Drive || c > Cycle {
		return fmt.Sprintf("constraint(%d)", int(c))
	}
	return constraintNames[c]
}

// MarshalText implements encoding.TextMarshaler so constraints serialize by
// name, including as map keys.
func (c Constraint) MarshalText() ([]byte, error) {
	if c < Drive || c > Cycle {
		return nil, fmt.Errorf("unknown constraint %d", int(c))
	}
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Constraint) UnmarshalText(text []byte) error {
	name := strings.ToLower(string(text))
	for i, n := range constraintNames {
		if n == name {
			*c = Constraint(i)
			return nil
		}
	}
	return fmt.Errorf("unknown constraint %q", string(text))
}

// DriverStatus is the driver's remaining allowance on each clock, in minutes.
type DriverStatus struct {
	RemainingDriveMinutes  int `json:"remainingDriveMinutes"`
	RemainingDutyMinutes   int `json:"remainingDutyMinutes"`
	RemainingWindowMinutes int `json:"remainingWindowMinutes"`
	RemainingCycleMinutes  int `json:"remainingCycleMinutes"`
}

func (s DriverStatus) remaining(c Constraint) int {
	switch c {
	case Drive:
		return s.RemainingDriveMinutes
	case Duty:
		return s.RemainingDutyMinutes
	case Window:
		return s.RemainingWindowMinutes
	default:
		return s.RemainingCycleMinutes
	}
}

// ParseDriverStatus decodes a serialized driver status.
func ParseDriverStatus(raw string) (*DriverStatus, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || trimmed == "null" {
		return nil, nil
	}
	dec := json.NewDecoder(strings.NewReader(trimmed))
	dec.DisallowUnknownFields()
	var status DriverStatus
	if err := dec.Decode(&status); err != nil {
		return nil, fmt.Errorf("failed to decode driver HOS status: %w", err)
	}
	return &status, nil
}

// Result is the feasibility verdict for one offered time.
type Result struct {
	Feasible            bool                 `json:"feasible"`
	BindingConstraint   *Constraint          `json:"bindingConstraint,omitempty"`
	LatestLegalDockTime *timeofday.TimeOfDay `json:"latestLegalDockTime,omitempty"`
	RequiresNextShift   bool                 `json:"requiresNextShift"`
	WaitMinutes         int                  `json:"waitMinutes"`
	RequiredDutyMinutes int                  `json:"requiredDutyMinutes"`
	DetentionCost       float64              `json:"detentionCost"`
	Margins             map[Constraint]int   `json:"margins"`
}

// CheckHOSFeasibility checks the offered time against every clock. The drive
// clock only needs to cover the wait until the dock; the duty, window and
// cycle clocks must also cover the dock work itself. When infeasible the
// constraint with the smallest margin binds and determines the latest legal
// dock time.
func CheckHOSFeasibility(offered, current timeofday.TimeOfDay, status DriverStatus, estimatedDockMinutes int, detentionRatePerHour float64) Result {
	if estimatedDockMinutes < 0 {
		estimatedDockMinutes = 0
	}
	wait := timeofday.MinutesBetween(current, offered)
	duty := wait + estimatedDockMinutes

	result := Result{
		Feasible:            true,
		WaitMinutes:         wait,
		RequiredDutyMinutes: duty,
		DetentionCost:       detentionCost(wait, detentionRatePerHour),
		Margins:             make(map[Constraint]int, len(AllConstraints)),
	}

	var binding *Constraint
	for _, c := range AllConstraints {
		margin := status.remaining(c) - required(c, wait, estimatedDockMinutes)
		result.Margins[c] = margin
		if margin >= 0 {
			continue
		}
		result.Feasible = false
		if binding == nil || margin < result.Margins[*binding] {
			c := c
			binding = &c
		}
	}

	if result.Feasible {
		return result
	}

	result.BindingConstraint = binding
	offset := status.remaining(*binding) - dockConsumption(*binding, estimatedDockMinutes)
	if offset < 0 {
		result.RequiresNextShift = true
		offset = 0
	}
	latest := timeofday.AddMinutesToTime(current, offset)
	result.LatestLegalDockTime = &latest
	return result
}

func required(c Constraint, wait, dock int) int {
	return wait + dockConsumption(c, dock)
}

// dockConsumption is how much of a clock the dock work itself uses.
func dockConsumption(c Constraint, dock int) int {
	if c == Drive {
		return 0
	}
	return dock
}

func detentionCost(wait int, ratePerHour float64) float64 {
	if wait <= 0 || ratePerHour <= 0 {
		return 0
	}
	return decimal.NewFromInt(int64(wait)).
		Mul(decimal.NewFromFloat(ratePerHour)).
		Div(decimal.NewFromInt(constants.MinutesPerHour)).
		Round(constants.CurrencyPlaces).
		InexactFloat64()
}
