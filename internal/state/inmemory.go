package state

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"cogcore/internal/pipeline"
	"cogcore/internal/telemetry"
)

// NewInMemoryStore returns a mutex-guarded Store for tests and local runs.
// clock lets tests control expiry deterministically; pass nil to use
// telemetry.SystemClock.
func NewInMemoryStore(clock telemetry.Clock) *InMemoryStore {
	if clock == nil {
		clock = telemetry.SystemClock{}
	}
	return &InMemoryStore{
		clock:        clock,
		rows:         map[string]ConversationState{},
		timeouts:     map[string]time.Duration{},
		history:      map[string][]Transition{},
		interrupted:  map[string]InterruptedSession{},
	}
}

type InMemoryStore struct {
	mu          sync.Mutex
	clock       telemetry.Clock
	rows        map[string]ConversationState
	timeouts    map[string]time.Duration // original timeout per key, for UpdateStep's extension
	history     map[string][]Transition
	interrupted map[string]InterruptedSession
}

func stateKey(orgID, roomID, userID string) string {
	return orgID + "|" + roomID + "|" + userID
}

func (s *InMemoryStore) GetCurrent(_ context.Context, orgID, roomID, userID string) (ConversationState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := stateKey(orgID, roomID, userID)
	row, ok := s.rows[key]
	if !ok {
		return ConversationState{}, ErrNotFound
	}
	if row.expired(s.clock.Now()) {
		delete(s.rows, key)
		delete(s.timeouts, key)
		return ConversationState{}, ErrNotFound
	}
	return row, nil
}

func (s *InMemoryStore) TransitionTo(_ context.Context, orgID, roomID, userID string, toType pipeline.StateType, toStep string, data map[string]any, refType, refID string, timeout time.Duration, reason string) (ConversationState, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := stateKey(orgID, roomID, userID)
	now := s.clock.Now()

	prev, existed := s.rows[key]
	if existed && prev.expired(now) {
		existed = false
	}

	next := ConversationState{
		StateID:       prev.StateID,
		OrgID:         orgID,
		RoomID:        roomID,
		UserID:        userID,
		StateType:     toType,
		Step:          toStep,
		Data:          copyMap(data),
		ReferenceType: refType,
		ReferenceID:   refID,
		ExpiresAt:     now.Add(timeout),
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if next.StateID == "" {
		next.StateID = uuid.NewString()
	}
	if existed {
		next.CreatedAt = prev.CreatedAt
		next.Version = prev.Version + 1
	}

	s.rows[key] = next
	s.timeouts[key] = timeout

	t := Transition{OrgID: orgID, RoomID: roomID, UserID: userID, ToType: toType, ToStep: toStep, Reason: reason, At: now}
	if existed {
		t.FromType = prev.StateType
		t.FromStep = prev.Step
	}
	s.history[key] = append(s.history[key], t)

	return next, nil
}

func (s *InMemoryStore) UpdateStep(_ context.Context, orgID, roomID, userID, step string, dataDelta map[string]any, expectedVersion int) (ConversationState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := stateKey(orgID, roomID, userID)
	now := s.clock.Now()

	row, ok := s.rows[key]
	if !ok || row.expired(now) {
		return ConversationState{}, ErrNotFound
	}
	if row.Version != expectedVersion {
		return ConversationState{}, ErrStale
	}

	merged := copyMap(row.Data)
	for k, v := range dataDelta {
		merged[k] = v
	}
	row.Data = merged
	row.Step = step
	row.Version++
	row.UpdatedAt = now
	row.ExpiresAt = now.Add(s.timeouts[key])
	s.rows[key] = row
	return row, nil
}

func (s *InMemoryStore) Clear(_ context.Context, orgID, roomID, userID, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := stateKey(orgID, roomID, userID)
	row, existed := s.rows[key]
	delete(s.rows, key)
	delete(s.timeouts, key)
	if existed {
		s.history[key] = append(s.history[key], Transition{
			OrgID: orgID, RoomID: roomID, UserID: userID,
			FromType: row.StateType, FromStep: row.Step,
			Reason: reason, At: s.clock.Now(),
		})
	}
	return nil
}

func (s *InMemoryStore) CleanupExpired(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock.Now()
	removed := 0
	for key, row := range s.rows {
		if row.expired(now) {
			delete(s.rows, key)
			delete(s.timeouts, key)
			removed++
		}
	}
	return removed, nil
}

func (s *InMemoryStore) SaveInterruptedSession(_ context.Context, sess InterruptedSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess.InterruptedAt.IsZero() {
		sess.InterruptedAt = s.clock.Now()
	}
	s.interrupted[stateKey(sess.OrgID, sess.RoomID, sess.UserID)] = sess
	return nil
}

func (s *InMemoryStore) GetInterruptedSession(_ context.Context, orgID, roomID, userID string) (InterruptedSession, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.interrupted[stateKey(orgID, roomID, userID)]
	return sess, ok, nil
}

func copyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
