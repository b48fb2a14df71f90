package hos

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/iwvelando/dock-negotiator/pkg/timeofday"
)

func TestCheckHOSFeasibility(t *testing.T) {
	current := timeofday.FromClock(12, 0)

	tests := []struct {
		name              string
		offset            int
		status            DriverStatus
		dock              int
		expectFeasible    bool
		expectBinding     string
		expectLatest      string
		expectNextShift   bool
		expectWait        int
		expectRequiredDut int
	}{
		{
			name:              "Plenty of time",
			offset:            60,
			status:            DriverStatus{RemainingDriveMinutes: 300, RemainingDutyMinutes: 400, RemainingWindowMinutes: 500, RemainingCycleMinutes: 2000},
			dock:              60,
			expectFeasible:    true,
			expectWait:        60,
			expectRequiredDut: 120,
		},
		{
			name:              "Drive clock binds",
			offset:            90,
			status:            DriverStatus{RemainingDriveMinutes: 45, RemainingDutyMinutes: 600, RemainingWindowMinutes: 600, RemainingCycleMinutes: 3000},
			dock:              60,
			expectBinding:     "drive",
			expectLatest:      "12:45",
			expectWait:        90,
			expectRequiredDut: 150,
		},
		{
			name:              "Duty clock binds and includes dock time",
			offset:            120,
			status:            DriverStatus{RemainingDriveMinutes: 500, RemainingDutyMinutes: 150, RemainingWindowMinutes: 600, RemainingCycleMinutes: 3000},
			dock:              60,
			expectBinding:     "duty",
			expectLatest:      "13:30",
			expectWait:        120,
			expectRequiredDut: 180,
		},
		{
			name:              "Smallest margin wins",
			offset:            180,
			status:            DriverStatus{RemainingDriveMinutes: 170, RemainingDutyMinutes: 200, RemainingWindowMinutes: 100, RemainingCycleMinutes: 3000},
			dock:              30,
			expectBinding:     "window",
			expectLatest:      "13:10",
			expectWait:        180,
			expectRequiredDut: 210,
		},
		{
			name:              "Tie goes to earlier constraint",
			offset:            120,
			status:            DriverStatus{RemainingDriveMinutes: 500, RemainingDutyMinutes: 100, RemainingWindowMinutes: 100, RemainingCycleMinutes: 100},
			dock:              30,
			expectBinding:     "duty",
			expectLatest:      "13:10",
			expectWait:        120,
			expectRequiredDut: 150,
		},
		{
			name:              "Dock work cannot fit today",
			offset:            30,
			status:            DriverStatus{RemainingDriveMinutes: 500, RemainingDutyMinutes: 20, RemainingWindowMinutes: 600, RemainingCycleMinutes: 3000},
			dock:              45,
			expectBinding:     "duty",
			expectLatest:      "12:00",
			expectNextShift:   true,
			expectWait:        30,
			expectRequiredDut: 75,
		},
		{
			name:              "Exact fit is feasible",
			offset:            60,
			status:            DriverStatus{RemainingDriveMinutes: 60, RemainingDutyMinutes: 120, RemainingWindowMinutes: 120, RemainingCycleMinutes: 120},
			dock:              60,
			expectFeasible:    true,
			expectWait:        60,
			expectRequiredDut: 120,
		},
		{
			name:              "Offer wraps past midnight",
			offset:            13 * 60,
			status:            DriverStatus{RemainingDriveMinutes: 600, RemainingDutyMinutes: 840, RemainingWindowMinutes: 840, RemainingCycleMinutes: 3000},
			dock:              60,
			expectFeasible:    true,
			expectWait:        780,
			expectRequiredDut: 840,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			offered := timeofday.AddMinutesToTime(current, tt.offset)
			result := CheckHOSFeasibility(offered, current, tt.status, tt.dock, 0)

			if result.Feasible != tt.expectFeasible {
				t.Fatalf("Feasible = %v, expected %v (margins %v)", result.Feasible, tt.expectFeasible, result.Margins)
			}
			if result.WaitMinutes != tt.expectWait {
				t.Errorf("WaitMinutes = %d, expected %d", result.WaitMinutes, tt.expectWait)
			}
			if result.RequiredDutyMinutes != tt.expectRequiredDut {
				t.Errorf("RequiredDutyMinutes = %d, expected %d", result.RequiredDutyMinutes, tt.expectRequiredDut)
			}
			if len(result.Margins) != len(AllConstraints) {
				t.Errorf("expected margins for every constraint, got %v", result.Margins)
			}
			if tt.expectFeasible {
				if result.BindingConstraint != nil || result.LatestLegalDockTime != nil {
					t.Errorf("feasible result should have no binding constraint or latest time")
				}
				return
			}
			if result.BindingConstraint == nil || result.BindingConstraint.String() != tt.expectBinding {
				t.Errorf("BindingConstraint = %v, expected %s", result.BindingConstraint, tt.expectBinding)
			}
			if result.LatestLegalDockTime == nil || timeofday.MinutesToTime(*result.LatestLegalDockTime) != tt.expectLatest {
				t.Errorf("LatestLegalDockTime = %v, expected %s", result.LatestLegalDockTime, tt.expectLatest)
			}
			if result.RequiresNextShift != tt.expectNextShift {
				t.Errorf("RequiresNextShift = %v, expected %v", result.RequiresNextShift, tt.expectNextShift)
			}
		})
	}
}

func TestDetentionCost(t *testing.T) {
	tests := []struct {
		name     string
		wait     int
		rate     float64
		expected float64
	}{
		{"No wait", 0, 75, 0},
		{"No rate", 90, 0, 0},
		{"Ninety minutes", 90, 75, 112.5},
		{"Rounded to cents", 7, 10, 1.17},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			current := timeofday.FromClock(8, 0)
			result := CheckHOSFeasibility(timeofday.AddMinutesToTime(current, tt.wait), current, DriverStatus{
				RemainingDriveMinutes:  1000,
				RemainingDutyMinutes:   1000,
				RemainingWindowMinutes: 1000,
				RemainingCycleMinutes:  1000,
			}, 0, tt.rate)
			if result.DetentionCost != tt.expected {
				t.Errorf("DetentionCost = %.2f, expected %.2f", result.DetentionCost, tt.expected)
			}
		})
	}
}

func TestParseDriverStatus(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		expectNil bool
		expectErr bool
	}{
		{name: "Empty", raw: "", expectNil: true},
		{name: "Null", raw: "null", expectNil: true},
		{name: "Valid", raw: `{"remainingDriveMinutes": 45, "remainingDutyMinutes": 300, "remainingWindowMinutes": 400, "remainingCycleMinutes": 2000}`},
		{name: "Malformed", raw: `{"remainingDriveMinutes": 45`, expectNil: true, expectErr: true},
		{name: "Unknown field", raw: `{"driveLeft": 45}`, expectNil: true, expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, err := ParseDriverStatus(tt.raw)
			if (err != nil) != tt.expectErr {
				t.Fatalf("error = %v, expectErr %v", err, tt.expectErr)
			}
			if (status == nil) != tt.expectNil {
				t.Errorf("status nil = %v, expected %v", status == nil, tt.expectNil)
			}
		})
	}
}

func TestConstraintJSON(t *testing.T) {
	c := Window
	data, err := json.Marshal(Result{BindingConstraint: &c, Margins: map[Constraint]int{Drive: 10, Window: -5}})
	if err != nil {
		t.Fatalf("unexpected marshal error: %v", err)
	}
	text := string(data)
	for _, want := range []string{`"bindingConstraint":"window"`, `"drive":10`, `"window":-5`} {
		if !strings.Contains(text, want) {
			t.Errorf("expected %s in %s", want, text)
		}
	}

	var decoded Constraint
	if err := json.Unmarshal([]byte(`"Cycle"`), &decoded); err != nil || decoded != Cycle {
		t.Errorf("expected Cycle, got %v (err %v)", decoded, err)
	}
	if err := json.Unmarshal([]byte(`"nap"`), &decoded); err == nil {
		t.Errorf("expected error for unknown constraint")
	}
}
