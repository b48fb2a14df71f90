package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "dock:call:"

// RedisStore keeps call state in redis so several webhook replicas share it.
// Every write refreshes the TTL; redis expires idle calls itself.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func pushbacksKey(callID string) string {
	return fmt.Sprintf("%s%s:pushbacks", keyPrefix, callID)
}

func transcriptKey(callID string) string {
	return fmt.Sprintf("%s%s:transcript", keyPrefix, callID)
}

// Get reads the pushback count and transcript.
func (s *RedisStore) Get(ctx context.Context, callID string) (CallState, error) {
	if err := validateCallID(callID); err != nil {
		return CallState{}, err
	}
	state := CallState{CallID: callID}

	count, err := s.client.Get(ctx, pushbacksKey(callID)).Int()
	if err != nil && !errors.Is(err, redis.Nil) {
		return CallState{}, fmt.Errorf("failed to read pushbacks for call %s: %w", callID, err)
	}
	state.Pushbacks = count

	raw, err := s.client.LRange(ctx, transcriptKey(callID), 0, -1).Result()
	if err != nil {
		return CallState{}, fmt.Errorf("failed to read transcript for call %s: %w", callID, err)
	}
	for _, item := range raw {
		var entry Entry
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			return CallState{}, fmt.Errorf("failed to decode transcript entry for call %s: %w", callID, err)
		}
		state.Transcript = append(state.Transcript, entry)
		if entry.At.After(state.UpdatedAt) {
			state.UpdatedAt = entry.At
		}
	}
	return state, nil
}

// IncrementPushbacks atomically adds one pushback and returns the new count.
func (s *RedisStore) IncrementPushbacks(ctx context.Context, callID string) (int, error) {
	if err := validateCallID(callID); err != nil {
		return 0, err
	}
	key := pushbacksKey(callID)
	var incr *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		s.expire(ctx, pipe, key)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to increment pushbacks for call %s: %w", callID, err)
	}
	return int(incr.Val()), nil
}

// AppendTranscript pushes one JSON-encoded entry onto the call transcript.
func (s *RedisStore) AppendTranscript(ctx context.Context, callID string, entry Entry) error {
	if err := validateCallID(callID); err != nil {
		return err
	}
	if entry.At.IsZero() {
		entry.At = time.Now()
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode transcript entry: %w", err)
	}
	key := transcriptKey(callID)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, data)
		s.expire(ctx, pipe, key)
		s.expire(ctx, pipe, pushbacksKey(callID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to append transcript for call %s: %w", callID, err)
	}
	return nil
}

func (s *RedisStore) expire(ctx context.Context, pipe redis.Pipeliner, key string) {
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}
}

// Delete removes both keys for the call.
func (s *RedisStore) Delete(ctx context.Context, callID string) error {
	if err := validateCallID(callID); err != nil {
		return err
	}
	if err := s.client.Del(ctx, pushbacksKey(callID), transcriptKey(callID)).Err(); err != nil {
		return fmt.Errorf("failed to delete call %s: %w", callID, err)
	}
	return nil
}

// Sweep is a no-op; redis expires keys server-side.
func (s *RedisStore) Sweep(context.Context) (int, error) {
	return 0, nil
}

// Close closes the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
