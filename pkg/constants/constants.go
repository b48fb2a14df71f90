// Package constants provides shared constants for the dock-negotiator application.
package constants

// Clock constants
const (
	// MinutesPerHour is the number of minutes in an hour
	MinutesPerHour = 60

	// MinutesPerDay is the number of minutes in a day; TimeOfDay values wrap at this bound
	MinutesPerDay = 24 * MinutesPerHour

	// RoundingIncrementMinutes is the granularity used for counter-offer suggestions
	RoundingIncrementMinutes = 5
)

// Financial constants
const (
	// CurrencyPlaces is the number of decimal places kept on cost amounts
	CurrencyPlaces = 2

	// CurrencyTolerance is the tolerance for currency comparisons (1 cent)
	CurrencyTolerance = 0.01
)

// Negotiation defaults
const (
	// DefaultFallbackSpanMinutes widens a zone when the contract has no further tier boundary to price
	DefaultFallbackSpanMinutes = 60

	// DefaultMaxPushbacks is how many counter-offers are made before reluctant offers are taken
	DefaultMaxPushbacks = 2

	// DefaultEstimatedDockMinutes is the assumed unload duration when the caller omits one
	DefaultEstimatedDockMinutes = 60

	// DefaultTimezone is used to resolve "now" when no current time override is given
	DefaultTimezone = "Local"
)

// Decision reasons
const (
	ReasonIdeal       = "IDEAL"
	ReasonAcceptable  = "ACCEPTABLE"
	ReasonTolerance   = "OK (within tolerance)"
	ReasonReject      = "REJECT"
	ReasonReluctant   = "RELUCTANT"
	ReasonUnparseable = "UNPARSEABLE"
	ReasonHOS         = "HOS_INFEASIBLE"
	ReasonError       = "ERROR"
)

// Output format constants
const (
	// OutputFormatPretty is the human-readable output format
	OutputFormatPretty = "pretty"

	// OutputFormatJSON is the machine-readable output format
	OutputFormatJSON = "json"
)

// Session store backends
const (
	SessionBackendMemory = "memory"
	SessionBackendRedis  = "redis"
)

// Configuration file constants
const (
	// DefaultConfigFile is the default configuration file name
	DefaultConfigFile = "config.yaml"

	// DefaultServerConfigFile is the default server configuration file name
	DefaultServerConfigFile = "server-config.yaml"
)

// Server configuration defaults
const (
	// DefaultServerAddress is the default HTTP listen address for the webhook API
	DefaultServerAddress = ":8080"

	// DefaultMaxRequestSizeBytes is the default maximum request body size (64 KB)
	DefaultMaxRequestSizeBytes int64 = 64 * 1024

	// DefaultSessionTTL is how long an idle call's state is retained
	DefaultSessionTTL = "2h"

	// DefaultSweepInterval is how often expired in-memory call state is removed
	DefaultSweepInterval = "5m"
)
