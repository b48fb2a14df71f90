// Package validation provides configuration validation utilities.
package validation

import (
	"fmt"
	"strings"
	"time"

	"github.com/iwvelando/dock-negotiator/pkg/constants"
)

// NegotiationSettings mirrors the tunables that shape zone probing and
// pushback handling.
type NegotiationSettings struct {
	FallbackSpanMinutes  int
	MaxPushbacks         int
	EstimatedDockMinutes int
	DetentionRatePerHour float64
	Timezone             string
}

// SessionSettings mirrors the call-state store configuration.
type SessionSettings struct {
	Backend       string
	TTL           string
	SweepInterval string
	RedisAddr     string
}

// ConfigValidator performs general validation of the settings and reports
// problems as warnings rather than failing startup.
type ConfigValidator struct {
	Negotiation NegotiationSettings
	Session     SessionSettings
}

// ValidateAll validates the entire configuration and returns warnings
func (cv *ConfigValidator) ValidateAll() []string {
	var warnings []string
	warnings = append(warnings, ValidateNegotiation(cv.Negotiation)...)
	warnings = append(warnings, ValidateSession(cv.Session)...)
	return warnings
}

// ValidateNegotiation checks negotiation tunables for values that would
// silently disable part of the strategy.
func ValidateNegotiation(n NegotiationSettings) []string {
	var warnings []string

	if n.FallbackSpanMinutes <= 0 {
		warnings = append(warnings, fmt.Sprintf("negotiation.fallbackSpanMinutes is %d; acceptable and reluctant zones collapse onto the ideal boundary when a contract has no further tiers",
			n.FallbackSpanMinutes))
	}
	if n.MaxPushbacks < 0 {
		warnings = append(warnings, fmt.Sprintf("negotiation.maxPushbacks is negative (%d); reluctant acceptance is disabled", n.MaxPushbacks))
	}
	if n.EstimatedDockMinutes < 0 {
		warnings = append(warnings, fmt.Sprintf("negotiation.estimatedDockMinutes is negative (%d); it will be treated as 0", n.EstimatedDockMinutes))
	}
	if n.DetentionRatePerHour < 0 {
		warnings = append(warnings, fmt.Sprintf("negotiation.detentionRatePerHour is negative (%.2f); detention cost will be reported as 0", n.DetentionRatePerHour))
	}
	if tz := strings.TrimSpace(n.Timezone); tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			warnings = append(warnings, fmt.Sprintf("negotiation.timezone %q is not a known location; falling back to %s", tz, constants.DefaultTimezone))
		}
	}

	return warnings
}

// ValidateSession checks the call-state store settings.
func ValidateSession(s SessionSettings) []string {
	var warnings []string

	backend := strings.ToLower(strings.TrimSpace(s.Backend))
	switch backend {
	case "", constants.SessionBackendMemory:
	case constants.SessionBackendRedis:
		if strings.TrimSpace(s.RedisAddr) == "" {
			warnings = append(warnings, "session.backend is redis but session.redis.addr is empty")
		}
	default:
		warnings = append(warnings, fmt.Sprintf("session.backend %q is not supported; using %s", s.Backend, constants.SessionBackendMemory))
	}

	for name, value := range map[string]string{"session.ttl": s.TTL, "session.sweepInterval": s.SweepInterval} {
		if strings.TrimSpace(value) == "" {
			continue
		}
		d, err := time.ParseDuration(value)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("%s %q is not a valid duration", name, value))
			continue
		}
		if d <= 0 {
			warnings = append(warnings, fmt.Sprintf("%s must be positive, got %s", name, value))
		}
	}

	return warnings
}
