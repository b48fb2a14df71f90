package testutil

import (
	"testing"
	"time"

	"github.com/iwvelando/dock-negotiator/internal/contract"
	"github.com/iwvelando/dock-negotiator/internal/hos"
)

func TestWalmartTermsJSONIsValid(t *testing.T) {
	terms, err := contract.ParseExtractedTerms(WalmartTermsJSON)
	if err != nil {
		t.Fatalf("ParseExtractedTerms() error = %v", err)
	}
	if terms == nil || terms.DelayPenalties == nil || len(terms.DelayPenalties.Tiers) != 2 {
		t.Fatalf("expected two dwell tiers, got %+v", terms)
	}
	if len(terms.ComplianceWindows) != 1 || terms.ComplianceWindows[0].WindowMinutes != 30 {
		t.Errorf("expected a 30 minute compliance window, got %+v", terms.ComplianceWindows)
	}
}

func TestDriverStatusJSON(t *testing.T) {
	status, err := hos.ParseDriverStatus(DriverStatusJSON(45, 400, 500, 2000))
	if err != nil {
		t.Fatalf("ParseDriverStatus() error = %v", err)
	}
	expected := hos.DriverStatus{
		RemainingDriveMinutes:  45,
		RemainingDutyMinutes:   400,
		RemainingWindowMinutes: 500,
		RemainingCycleMinutes:  2000,
	}
	if status == nil || *status != expected {
		t.Errorf("DriverStatusJSON round trip = %+v, expected %+v", status, expected)
	}
}

func TestFixedClock(t *testing.T) {
	now := FixedClock(12, 30)()
	if now.Hour() != 12 || now.Minute() != 30 || now.Location() != time.UTC {
		t.Errorf("FixedClock(12, 30)() = %s, expected 12:30 UTC", now)
	}
}
