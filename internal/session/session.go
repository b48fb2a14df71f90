// Package session keeps per-call negotiation state (pushback counts and
// transcripts) for the layer that drives a live call.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iwvelando/dock-negotiator/pkg/constants"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ErrInvalidCallID is returned for blank call identifiers.
var ErrInvalidCallID = errors.New("invalid call id")

// Transcript speakers
const (
	SpeakerWarehouse = "warehouse"
	SpeakerAgent     = "agent"
)

// Entry is one transcript line.
type Entry struct {
	Speaker string    `json:"speaker"`
	Text    string    `json:"text"`
	At      time.Time `json:"at"`
}

// CallState is everything stored for one call. An unknown call has zero
// pushbacks and an empty transcript.
type CallState struct {
	CallID     string    `json:"callId"`
	Pushbacks  int       `json:"pushbacks"`
	Transcript []Entry   `json:"transcript"`
	UpdatedAt  time.Time `json:"updatedAt,omitempty"`
}

// Store persists call state between decisions.
type Store interface {
	Get(ctx context.Context, callID string) (CallState, error)
	IncrementPushbacks(ctx context.Context, callID string) (int, error)
	AppendTranscript(ctx context.Context, callID string, entry Entry) error
	Delete(ctx context.Context, callID string) error
	// Sweep removes expired calls and reports how many were removed.
	Sweep(ctx context.Context) (int, error)
	Close() error
}

// Config selects and tunes a Store backend.
type Config struct {
	Backend string
	TTL     time.Duration
	Redis   RedisConfig
}

// RedisConfig holds connection settings for the redis backend.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewStore builds the configured backend. The redis backend is pinged before
// it is returned.
func NewStore(ctx context.Context, cfg Config, logger *zap.Logger) (Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl, _ = time.ParseDuration(constants.DefaultSessionTTL)
	}

	switch strings.ToLower(cfg.Backend) {
	case "", constants.SessionBackendMemory:
		logger.Info("using in-memory session store", zap.String("op", "session.NewStore"), zap.Duration("ttl", ttl))
		return NewMemoryStore(ttl, nil), nil
	case constants.SessionBackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Redis.Addr, err)
		}
		logger.Info("using redis session store",
			zap.String("op", "session.NewStore"),
			zap.String("addr", cfg.Redis.Addr),
			zap.Duration("ttl", ttl))
		return NewRedisStore(client, ttl), nil
	default:
		return nil, fmt.Errorf("unknown session backend %q", cfg.Backend)
	}
}

func validateCallID(callID string) error {
	if strings.TrimSpace(callID) == "" {
		return ErrInvalidCallID
	}
	return nil
}
