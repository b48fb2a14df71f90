// Package config defines the data structures related to configuration and
// includes functions for loading and interpreting the config.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/iwvelando/dock-negotiator/internal/decision"
	"github.com/iwvelando/dock-negotiator/internal/session"
	"github.com/iwvelando/dock-negotiator/pkg/constants"
	"github.com/iwvelando/dock-negotiator/pkg/validation"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. DOCK_SESSION_BACKEND.
const EnvPrefix = "DOCK"

// Configuration holds all configuration for dock-negotiator.
type Configuration struct {
	Logging     LoggingConfig     `yaml:"logging,omitempty"`
	Output      OutputConfig      `yaml:"output,omitempty"`
	Negotiation NegotiationConfig `yaml:"negotiation,omitempty"`
	Session     SessionConfig     `yaml:"session,omitempty"`
}

// LoggingConfig holds logging configuration options
type LoggingConfig struct {
	Level      string `yaml:"level,omitempty"`      // debug, info, warn, error
	Format     string `yaml:"format,omitempty"`     // json, console
	OutputFile string `yaml:"outputFile,omitempty"` // optional file output
}

// OutputConfig holds output format configuration options
type OutputConfig struct {
	Format string `yaml:"format,omitempty"` // pretty, json
}

// NegotiationConfig tunes the negotiation policy.
type NegotiationConfig struct {
	FallbackSpanMinutes  int     `yaml:"fallbackSpanMinutes"`
	MaxPushbacks         int     `yaml:"maxPushbacks"`
	EstimatedDockMinutes int     `yaml:"estimatedDockMinutes"`
	DetentionRatePerHour float64 `yaml:"detentionRatePerHour"`
	Timezone             string  `yaml:"timezone"`
}

// SessionConfig selects the call-state store.
type SessionConfig struct {
	Backend       string      `yaml:"backend"` // memory, redis
	TTL           string      `yaml:"ttl"`
	SweepInterval string      `yaml:"sweepInterval"`
	Redis         RedisConfig `yaml:"redis,omitempty"`
}

// RedisConfig holds redis connection settings.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.outputFile", "")
	v.SetDefault("output.format", constants.OutputFormatPretty)
	v.SetDefault("negotiation.fallbackSpanMinutes", constants.DefaultFallbackSpanMinutes)
	v.SetDefault("negotiation.maxPushbacks", constants.DefaultMaxPushbacks)
	v.SetDefault("negotiation.estimatedDockMinutes", constants.DefaultEstimatedDockMinutes)
	v.SetDefault("negotiation.detentionRatePerHour", 0.0)
	v.SetDefault("negotiation.timezone", constants.DefaultTimezone)
	v.SetDefault("session.backend", constants.SessionBackendMemory)
	v.SetDefault("session.ttl", constants.DefaultSessionTTL)
	v.SetDefault("session.sweepInterval", constants.DefaultSweepInterval)
	v.SetDefault("session.redis.addr", "")
	v.SetDefault("session.redis.password", "")
	v.SetDefault("session.redis.db", 0)
}

// LoadConfiguration takes a file path as input and loads the YAML-formatted
// configuration there. An empty path loads defaults plus environment
// overrides only.
func LoadConfiguration(configPath string) (*Configuration, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file, %s", err)
		}
	}

	var configuration Configuration
	if err := v.Unmarshal(&configuration); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %s", err)
	}

	return &configuration, nil
}

// ValidateConfiguration performs general validation of the configuration and returns warnings
func (c *Configuration) ValidateConfiguration() []string {
	validator := validation.ConfigValidator{
		Negotiation: validation.NegotiationSettings{
			FallbackSpanMinutes:  c.Negotiation.FallbackSpanMinutes,
			MaxPushbacks:         c.Negotiation.MaxPushbacks,
			EstimatedDockMinutes: c.Negotiation.EstimatedDockMinutes,
			DetentionRatePerHour: c.Negotiation.DetentionRatePerHour,
			Timezone:             c.Negotiation.Timezone,
		},
		Session: validation.SessionSettings{
			Backend:       c.Session.Backend,
			TTL:           c.Session.TTL,
			SweepInterval: c.Session.SweepInterval,
			RedisAddr:     c.Session.Redis.Addr,
		},
	}

	warnings := validator.ValidateAll()
	if err := validation.ValidateOutputFormat(c.Output.Format); err != nil {
		warnings = append(warnings, fmt.Sprintf("output.format: %v", err))
	}
	return warnings
}

// Location resolves the configured timezone, falling back to local time.
func (c *Configuration) Location() *time.Location {
	tz := strings.TrimSpace(c.Negotiation.Timezone)
	if tz == "" || tz == constants.DefaultTimezone {
		return time.Local
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.Local
	}
	return loc
}

// DecisionOptions converts the negotiation settings into decision options.
func (c *Configuration) DecisionOptions() decision.Options {
	opts := decision.Options{
		FallbackSpanMinutes:  c.Negotiation.FallbackSpanMinutes,
		MaxPushbacks:         c.Negotiation.MaxPushbacks,
		DefaultDockMinutes:   c.Negotiation.EstimatedDockMinutes,
		DefaultDetentionRate: c.Negotiation.DetentionRatePerHour,
		Location:             c.Location(),
	}
	if opts.FallbackSpanMinutes <= 0 {
		opts.FallbackSpanMinutes = constants.DefaultFallbackSpanMinutes
	}
	if opts.MaxPushbacks < 0 {
		opts.MaxPushbacks = 0
	}
	if opts.DefaultDockMinutes < 0 {
		opts.DefaultDockMinutes = 0
	}
	if opts.DefaultDetentionRate < 0 {
		opts.DefaultDetentionRate = 0
	}
	return opts
}

// SessionStoreConfig converts the session settings into a store config.
// Invalid durations fall back to the defaults.
func (c *Configuration) SessionStoreConfig() session.Config {
	return session.Config{
		Backend: c.Session.Backend,
		TTL:     durationOrDefault(c.Session.TTL, constants.DefaultSessionTTL),
		Redis: session.RedisConfig{
			Addr:     c.Session.Redis.Addr,
			Password: c.Session.Redis.Password,
			DB:       c.Session.Redis.DB,
		},
	}
}

// SweepInterval returns how often expired call state should be swept.
func (c *Configuration) SweepInterval() time.Duration {
	return durationOrDefault(c.Session.SweepInterval, constants.DefaultSweepInterval)
}

func durationOrDefault(value, fallback string) time.Duration {
	if d, err := time.ParseDuration(strings.TrimSpace(value)); err == nil && d > 0 {
		return d
	}
	d, _ := time.ParseDuration(fallback)
	return d
}
