// Package timeofday provides the minutes-since-midnight representation used
// throughout negotiation, along with renderers for display and speech.
package timeofday

import (
	"fmt"
	"time"

	"github.com/iwvelando/dock-negotiator/pkg/constants"
)

// TimeOfDay is a clock time expressed as minutes since midnight, 0-1439.
type TimeOfDay int

// Normalize wraps any minute count into the 0-1439 range.
func Normalize(minutes int) TimeOfDay {
	m := minutes % constants.MinutesPerDay
	if m < 0 {
		m += constants.MinutesPerDay
	}
	return TimeOfDay(m)
}

// FromClock builds a TimeOfDay from hour and minute components.
func FromClock(hour, minute int) TimeOfDay {
	return Normalize(hour*constants.MinutesPerHour + minute)
}

// FromTime extracts the wall-clock time of t in its own location.
func FromTime(t time.Time) TimeOfDay {
	return FromClock(t.Hour(), t.Minute())
}

// Hour returns the 0-23 hour component.
func (t TimeOfDay) Hour() int {
	return int(Normalize(int(t))) / constants.MinutesPerHour
}

// Minute returns the 0-59 minute component.
func (t TimeOfDay) Minute() int {
	return int(Normalize(int(t))) % constants.MinutesPerHour
}

// String renders the canonical 24-hour form.
func (t TimeOfDay) String() string {
	return MinutesToTime(t)
}

// MinutesToTime renders t as "HH:MM".
func MinutesToTime(t TimeOfDay) string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

// MinutesToTime12Hour renders t as "h:MM AM" / "h:MM PM".
func MinutesToTime12Hour(t TimeOfDay) string {
	hour, suffix := twelveHour(t.Hour())
	return fmt.Sprintf("%d:%02d %s", hour, t.Minute(), suffix)
}

// FormatTimeForSpeech renders t the way a person would say it on a call:
// "noon", "midnight", "2 PM", "2:30 PM".
func FormatTimeForSpeech(t TimeOfDay) string {
	t = Normalize(int(t))
	switch t {
	case 0:
		return "midnight"
	case 12 * constants.MinutesPerHour:
		return "noon"
	}
	hour, suffix := twelveHour(t.Hour())
	if t.Minute() == 0 {
		return fmt.Sprintf("%d %s", hour, suffix)
	}
	return fmt.Sprintf("%d:%02d %s", hour, t.Minute(), suffix)
}

func twelveHour(hour int) (int, string) {
	suffix := "AM"
	if hour >= 12 {
		suffix = "PM"
	}
	hour %= 12
	if hour == 0 {
		hour = 12
	}
	return hour, suffix
}

// AddMinutesToTime adds delta minutes, wrapping modulo one day. Day rollover
// is not signaled.
func AddMinutesToTime(t TimeOfDay, delta int) TimeOfDay {
	return Normalize(int(t) + delta)
}

// MinutesBetween returns the forward distance from one time to another,
// wrapping past midnight (0-1439).
func MinutesBetween(from, to TimeOfDay) int {
	return int(Normalize(int(to) - int(from)))
}

// RoundTimeToFiveMinutes rounds up to the next five-minute boundary
// (18:03 -> 18:05, 18:00 -> 18:00). 23:56 and later wrap to 00:00.
func RoundTimeToFiveMinutes(t TimeOfDay) TimeOfDay {
	inc := constants.RoundingIncrementMinutes
	m := int(Normalize(int(t)))
	return Normalize((m + inc - 1) / inc * inc)
}

// FloorToFiveMinutes rounds down to the previous five-minute boundary.
func FloorToFiveMinutes(t TimeOfDay) TimeOfDay {
	inc := constants.RoundingIncrementMinutes
	m := int(Normalize(int(t)))
	return TimeOfDay(m / inc * inc)
}

// RoundTimeStringToFiveMinutes parses text, rounds it up to five minutes and
// returns the canonical 24-hour form.
func RoundTimeStringToFiveMinutes(text string) (string, bool) {
	t, ok := ParseTimeToMinutes(text)
	if !ok {
		return "", false
	}
	return MinutesToTime(RoundTimeToFiveMinutes(t)), true
}
