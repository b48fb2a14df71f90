package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps call state in process. Expired calls are hidden on read
// and removed by Sweep.
type MemoryStore struct {
	mu    sync.Mutex
	ttl   time.Duration
	now   func() time.Time
	calls map[string]*CallState
}

// NewMemoryStore creates a MemoryStore. A nil clock uses time.Now; a
// non-positive ttl never expires.
func NewMemoryStore(ttl time.Duration, clock func() time.Time) *MemoryStore {
	if clock == nil {
		clock = time.Now
	}
	return &MemoryStore{
		ttl:   ttl,
		now:   clock,
		calls: make(map[string]*CallState),
	}
}

func (s *MemoryStore) expired(state *CallState, now time.Time) bool {
	return s.ttl > 0 && now.Sub(state.UpdatedAt) > s.ttl
}

// lookup returns the live state for callID, dropping it if expired. The
// caller must hold s.mu.
func (s *MemoryStore) lookup(callID string, now time.Time) *CallState {
	state, ok := s.calls[callID]
	if !ok {
		return nil
	}
	if s.expired(state, now) {
		delete(s.calls, callID)
		return nil
	}
	return state
}

func (s *MemoryStore) touch(callID string, now time.Time) *CallState {
	state := s.lookup(callID, now)
	if state == nil {
		state = &CallState{CallID: callID}
		s.calls[callID] = state
	}
	state.UpdatedAt = now
	return state
}

// Get returns a copy of the call state.
func (s *MemoryStore) Get(_ context.Context, callID string) (CallState, error) {
	if err := validateCallID(callID); err != nil {
		return CallState{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	state := s.lookup(callID, s.now())
	if state == nil {
		return CallState{CallID: callID}, nil
	}
	out := *state
	out.Transcript = append([]Entry(nil), state.Transcript...)
	return out, nil
}

// IncrementPushbacks adds one pushback and returns the new count.
func (s *MemoryStore) IncrementPushbacks(_ context.Context, callID string) (int, error) {
	if err := validateCallID(callID); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	state := s.touch(callID, s.now())
	state.Pushbacks++
	return state.Pushbacks, nil
}

// AppendTranscript records one transcript line. A zero At is stamped with the
// store clock.
func (s *MemoryStore) AppendTranscript(_ context.Context, callID string, entry Entry) error {
	if err := validateCallID(callID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if entry.At.IsZero() {
		entry.At = now
	}
	state := s.touch(callID, now)
	state.Transcript = append(state.Transcript, entry)
	return nil
}

// Delete forgets a call.
func (s *MemoryStore) Delete(_ context.Context, callID string) error {
	if err := validateCallID(callID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.calls, callID)
	return nil
}

// Sweep removes every expired call.
func (s *MemoryStore) Sweep(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, state := range s.calls {
		if s.expired(state, now) {
			delete(s.calls, id)
			removed++
		}
	}
	return removed, nil
}

// Len reports how many calls are held, including expired ones not yet swept.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }
