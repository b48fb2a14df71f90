package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/iwvelando/dock-negotiator/pkg/constants"
)

const sampleConfig = `
logging:
  level: debug
  format: json
output:
  format: json
negotiation:
  fallbackSpanMinutes: 45
  maxPushbacks: 3
  estimatedDockMinutes: 90
  detentionRatePerHour: 75
  timezone: America/Chicago
session:
  backend: redis
  ttl: 30m
  sweepInterval: 1m
  redis:
    addr: localhost:6379
    db: 2
`

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoadConfiguration(t *testing.T) {
	tests := []struct {
		name       string
		configPath string
		wantError  bool
	}{
		{
			name:       "Non-existent config file",
			configPath: "nonexistent.yaml",
			wantError:  true,
		},
		{
			name:       "Defaults only",
			configPath: "",
		},
		{
			name:       "Sample config",
			configPath: writeConfig(t, sampleConfig),
		},
		{
			name:       "Malformed YAML",
			configPath: writeConfig(t, "negotiation: [unterminated"),
			wantError:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config, err := LoadConfiguration(tt.configPath)
			if tt.wantError {
				if err == nil {
					t.Errorf("LoadConfiguration() expected error but got none")
				}
				return
			}
			if err != nil {
				t.Errorf("LoadConfiguration() error = %v", err)
				return
			}
			if config == nil {
				t.Errorf("LoadConfiguration() returned nil config")
			}
		})
	}
}

func TestLoadConfigurationDefaults(t *testing.T) {
	config, err := LoadConfiguration("")
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}

	if config.Output.Format != constants.OutputFormatPretty {
		t.Errorf("Output.Format = %q, expected %q", config.Output.Format, constants.OutputFormatPretty)
	}
	if config.Negotiation.FallbackSpanMinutes != constants.DefaultFallbackSpanMinutes {
		t.Errorf("FallbackSpanMinutes = %d, expected %d", config.Negotiation.FallbackSpanMinutes, constants.DefaultFallbackSpanMinutes)
	}
	if config.Negotiation.MaxPushbacks != constants.DefaultMaxPushbacks {
		t.Errorf("MaxPushbacks = %d, expected %d", config.Negotiation.MaxPushbacks, constants.DefaultMaxPushbacks)
	}
	if config.Session.Backend != constants.SessionBackendMemory {
		t.Errorf("Session.Backend = %q, expected memory", config.Session.Backend)
	}
	if warnings := config.ValidateConfiguration(); len(warnings) != 0 {
		t.Errorf("expected defaults to validate cleanly, got %v", warnings)
	}
}

func TestLoadConfigurationStructure(t *testing.T) {
	config, err := LoadConfiguration(writeConfig(t, sampleConfig))
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}

	if config.Logging.Level != "debug" || config.Logging.Format != "json" {
		t.Errorf("unexpected logging config: %+v", config.Logging)
	}
	if config.Negotiation.FallbackSpanMinutes != 45 || config.Negotiation.MaxPushbacks != 3 {
		t.Errorf("unexpected negotiation config: %+v", config.Negotiation)
	}
	if config.Negotiation.DetentionRatePerHour != 75 {
		t.Errorf("DetentionRatePerHour = %.2f, expected 75", config.Negotiation.DetentionRatePerHour)
	}
	if config.Session.Redis.Addr != "localhost:6379" || config.Session.Redis.DB != 2 {
		t.Errorf("unexpected redis config: %+v", config.Session.Redis)
	}

	opts := config.DecisionOptions()
	if opts.FallbackSpanMinutes != 45 || opts.MaxPushbacks != 3 || opts.DefaultDockMinutes != 90 {
		t.Errorf("unexpected decision options: %+v", opts)
	}
	if opts.Location == nil || opts.Location.String() != "America/Chicago" {
		t.Errorf("Location = %v, expected America/Chicago", opts.Location)
	}

	store := config.SessionStoreConfig()
	if store.Backend != "redis" || store.TTL != 30*time.Minute || store.Redis.DB != 2 {
		t.Errorf("unexpected session store config: %+v", store)
	}
	if config.SweepInterval() != time.Minute {
		t.Errorf("SweepInterval() = %s, expected 1m", config.SweepInterval())
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("DOCK_SESSION_BACKEND", "redis")
	t.Setenv("DOCK_SESSION_REDIS_ADDR", "cache:6379")
	t.Setenv("DOCK_NEGOTIATION_MAXPUSHBACKS", "5")

	config, err := LoadConfiguration(writeConfig(t, sampleConfig))
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}
	if config.Session.Redis.Addr != "cache:6379" {
		t.Errorf("Session.Redis.Addr = %q, expected env override", config.Session.Redis.Addr)
	}
	if config.Negotiation.MaxPushbacks != 5 {
		t.Errorf("MaxPushbacks = %d, expected env override 5", config.Negotiation.MaxPushbacks)
	}
}

func TestValidateConfiguration(t *testing.T) {
	tests := []struct {
		name         string
		config       Configuration
		expectSubstr []string
	}{
		{
			name: "Clean",
			config: Configuration{
				Output:      OutputConfig{Format: "json"},
				Negotiation: NegotiationConfig{FallbackSpanMinutes: 60, Timezone: "UTC"},
				Session:     SessionConfig{Backend: "memory", TTL: "1h"},
			},
		},
		{
			name: "Several problems",
			config: Configuration{
				Output:      OutputConfig{Format: "csv"},
				Negotiation: NegotiationConfig{FallbackSpanMinutes: 0, MaxPushbacks: -1},
				Session:     SessionConfig{Backend: "redis"},
			},
			expectSubstr: []string{"fallbackSpanMinutes", "maxPushbacks", "session.redis.addr", "output.format"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			warnings := tt.config.ValidateConfiguration()
			if len(warnings) != len(tt.expectSubstr) {
				t.Fatalf("expected %d warnings, got %d: %v", len(tt.expectSubstr), len(warnings), warnings)
			}
			joined := strings.Join(warnings, "\n")
			for _, s := range tt.expectSubstr {
				if !strings.Contains(joined, s) {
					t.Errorf("expected a warning mentioning %q in %v", s, warnings)
				}
			}
		})
	}
}

func TestDecisionOptionsClampsInvalidValues(t *testing.T) {
	config := Configuration{Negotiation: NegotiationConfig{
		FallbackSpanMinutes:  -5,
		MaxPushbacks:         -2,
		EstimatedDockMinutes: -10,
		DetentionRatePerHour: -1,
		Timezone:             "Nowhere/Special",
	}}

	opts := config.DecisionOptions()
	if opts.FallbackSpanMinutes != constants.DefaultFallbackSpanMinutes {
		t.Errorf("FallbackSpanMinutes = %d, expected default", opts.FallbackSpanMinutes)
	}
	if opts.MaxPushbacks != 0 || opts.DefaultDockMinutes != 0 || opts.DefaultDetentionRate != 0 {
		t.Errorf("expected negative values clamped to zero, got %+v", opts)
	}
	if opts.Location != time.Local {
		t.Errorf("expected unknown timezone to fall back to local time")
	}
}

func TestSessionDurationsFallBack(t *testing.T) {
	config := Configuration{Session: SessionConfig{TTL: "soon", SweepInterval: "-1m"}}

	if got := config.SessionStoreConfig().TTL; got != 2*time.Hour {
		t.Errorf("TTL = %s, expected default 2h", got)
	}
	if got := config.SweepInterval(); got != 5*time.Minute {
		t.Errorf("SweepInterval() = %s, expected default 5m", got)
	}
}
