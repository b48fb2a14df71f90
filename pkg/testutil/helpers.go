// Package testutil provides shared fixtures for testing.
package testutil

import (
	"fmt"
	"time"
)

// WalmartTermsJSON is an extracted-terms blob with free dwell for the first
// hour, $50/hr after that and a 30 minute Walmart compliance window.
const WalmartTermsJSON = `{"delayPenalties":{"tiers":[` +
	`{"fromMinutes":0,"toMinutes":60,"ratePerHour":0},` +
	`{"fromMinutes":60,"toMinutes":null,"ratePerHour":50}]},` +
	`"complianceWindows":[{"retailer":"Walmart","windowMinutes":30}]}`

// DriverStatusJSON renders a driver hours-of-service blob with the given
// remaining minutes.
func DriverStatusJSON(drive, duty, window, cycle int) string {
	return fmt.Sprintf(`{"remainingDriveMinutes":%d,"remainingDutyMinutes":%d,"remainingWindowMinutes":%d,"remainingCycleMinutes":%d}`,
		drive, duty, window, cycle)
}

// FixedClock returns a clock stuck at hour:minute UTC on a fixed day.
func FixedClock(hour, minute int) func() time.Time {
	return func() time.Time {
		return time.Date(2026, 10, 15, hour, minute, 0, 0, time.UTC)
	}
}
