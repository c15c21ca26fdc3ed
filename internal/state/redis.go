package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"

	"cogcore/internal/pipeline"
	"cogcore/internal/telemetry"
)

// NewRedisStore builds a Redis-backed Store and pings the server to
// validate the connection, mirroring the dedupe-store construction pattern
// used elsewhere in this codebase for Redis-backed collaborators.
func NewRedisStore(addr, password string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%w: redis ping: %v", pipeline.ErrState, err)
	}
	return &RedisStore{client: client, clock: telemetry.SystemClock{}}, nil
}

// RedisStore is the production Store. Each (org, room, user) triple maps to
// one JSON document under a deterministic key; the document's version field
// is the optimistic-concurrency token, enforced through client.Watch.
type RedisStore struct {
	client *redis.Client
	clock  telemetry.Clock
}

func (s *RedisStore) Close() error { return s.client.Close() }

func stateRedisKey(orgID, roomID, userID string) string {
	return fmt.Sprintf("state:%s:%s:%s", orgID, roomID, userID)
}

func historyRedisKey(orgID, roomID, userID string) string {
	return fmt.Sprintf("statehist:%s:%s:%s", orgID, roomID, userID)
}

func interruptedRedisKey(orgID, roomID, userID string) string {
	return fmt.Sprintf("interrupted:%s:%s:%s", orgID, roomID, userID)
}

// redisDoc is the wire shape stored at the state key; ExpiresAt is kept
// alongside the native Redis TTL for a belt-and-suspenders expiry check in
// GetCurrent (the explicit "now > expires_at" invariant from spec.md §3
// holds even if a value somehow outlives its PEXPIRE).
type redisDoc struct {
	ConversationState
	Timeout time.Duration
}

func (s *RedisStore) GetCurrent(ctx context.Context, orgID, roomID, userID string) (ConversationState, error) {
	key := stateRedisKey(orgID, roomID, userID)
	raw, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ConversationState{}, ErrNotFound
	}
	if err != nil {
		return ConversationState{}, fmt.Errorf("%w: get: %v", pipeline.ErrState, err)
	}
	var doc redisDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return ConversationState{}, fmt.Errorf("%w: decode: %v", pipeline.ErrState, err)
	}
	if doc.expired(s.clock.Now()) {
		_ = s.client.Del(ctx, key).Err()
		return ConversationState{}, ErrNotFound
	}
	return doc.ConversationState, nil
}

func (s *RedisStore) TransitionTo(ctx context.Context, orgID, roomID, userID string, toType pipeline.StateType, toStep string, data map[string]any, refType, refID string, timeout time.Duration, reason string) (ConversationState, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	key := stateRedisKey(orgID, roomID, userID)
	now := s.clock.Now()

	var result ConversationState
	txf := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		var prev redisDoc
		existed := false
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return err
		default:
			if jerr := json.Unmarshal(raw, &prev); jerr == nil && !prev.expired(now) {
				existed = true
			}
		}

		next := redisDoc{
			ConversationState: ConversationState{
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
			},
			Timeout: timeout,
		}
		if next.StateID == "" {
			next.StateID = uuid.NewString()
		}
		if existed {
			next.CreatedAt = prev.CreatedAt
			next.Version = prev.Version + 1
		}

		encoded, merr := json.Marshal(next)
		if merr != nil {
			return merr
		}

		t := Transition{OrgID: orgID, RoomID: roomID, UserID: userID, ToType: toType, ToStep: toStep, Reason: reason, At: now}
		if existed {
			t.FromType = prev.StateType
			t.FromStep = prev.Step
		}
		tEncoded, terr := json.Marshal(t)
		if terr != nil {
			return terr
		}

		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, key, encoded, timeout)
			p.RPush(ctx, historyRedisKey(orgID, roomID, userID), tEncoded)
			p.Expire(ctx, historyRedisKey(orgID, roomID, userID), 7*24*time.Hour)
			return nil
		})
		if err != nil {
			return err
		}
		result = next.ConversationState
		return nil
	}

	if err := s.client.Watch(ctx, txf, key); err != nil {
		if errors.Is(err, redis.TxFailedErr) {
			return ConversationState{}, ErrStale
		}
		return ConversationState{}, fmt.Errorf("%w: transition_to: %v", pipeline.ErrState, err)
	}
	return result, nil
}

func (s *RedisStore) UpdateStep(ctx context.Context, orgID, roomID, userID, step string, dataDelta map[string]any, expectedVersion int) (ConversationState, error) {
	key := stateRedisKey(orgID, roomID, userID)
	now := s.clock.Now()

	var result ConversationState
	var notFound, stale bool

	txf := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			notFound = true
			return nil
		}
		if err != nil {
			return err
		}
		var doc redisDoc
		if err := json.Unmarshal(raw, &doc); err != nil {
			return err
		}
		if doc.expired(now) {
			notFound = true
			return nil
		}
		if doc.Version != expectedVersion {
			stale = true
			return nil
		}

		merged := copyMap(doc.Data)
		for k, v := range dataDelta {
			merged[k] = v
		}
		doc.Data = merged
		doc.Step = step
		doc.Version++
		doc.UpdatedAt = now
		doc.ExpiresAt = now.Add(doc.Timeout)

		encoded, merr := json.Marshal(doc)
		if merr != nil {
			return merr
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, key, encoded, doc.Timeout)
			return nil
		})
		if err != nil {
			return err
		}
		result = doc.ConversationState
		return nil
	}

	if err := s.client.Watch(ctx, txf, key); err != nil {
		if errors.Is(err, redis.TxFailedErr) {
			return ConversationState{}, ErrStale
		}
		return ConversationState{}, fmt.Errorf("%w: update_step: %v", pipeline.ErrState, err)
	}
	if notFound {
		return ConversationState{}, ErrNotFound
	}
	if stale {
		return ConversationState{}, ErrStale
	}
	return result, nil
}

func (s *RedisStore) Clear(ctx context.Context, orgID, roomID, userID, reason string) error {
	key := stateRedisKey(orgID, roomID, userID)
	raw, err := s.client.Get(ctx, key).Bytes()
	var prev redisDoc
	existed := err == nil && json.Unmarshal(raw, &prev) == nil

	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("%w: clear: %v", pipeline.ErrState, err)
	}
	if existed {
		t := Transition{OrgID: orgID, RoomID: roomID, UserID: userID, FromType: prev.StateType, FromStep: prev.Step, Reason: reason, At: s.clock.Now()}
		if encoded, merr := json.Marshal(t); merr == nil {
			s.client.RPush(ctx, historyRedisKey(orgID, roomID, userID), encoded)
		}
	}
	return nil
}

// CleanupExpired is a best-effort sweep: Redis already expires rows via
// native TTL, so this exists only to catch rows written without one
// (legacy or cross-version migration) and normally removes nothing.
func (s *RedisStore) CleanupExpired(ctx context.Context) (int, error) {
	removed := 0
	iter := s.client.Scan(ctx, 0, "state:*", 200).Iterator()
	now := s.clock.Now()
	for iter.Next(ctx) {
		key := iter.Val()
		raw, err := s.client.Get(ctx, key).Bytes()
		if err != nil {
			continue
		}
		var doc redisDoc
		if json.Unmarshal(raw, &doc) != nil {
			continue
		}
		if doc.expired(now) {
			if s.client.Del(ctx, key).Err() == nil {
				removed++
			}
		}
	}
	return removed, iter.Err()
}

func (s *RedisStore) SaveInterruptedSession(ctx context.Context, sess InterruptedSession) error {
	if sess.InterruptedAt.IsZero() {
		sess.InterruptedAt = s.clock.Now()
	}
	encoded, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	key := interruptedRedisKey(sess.OrgID, sess.RoomID, sess.UserID)
	return s.client.Set(ctx, key, encoded, 24*time.Hour).Err()
}

func (s *RedisStore) GetInterruptedSession(ctx context.Context, orgID, roomID, userID string) (InterruptedSession, bool, error) {
	raw, err := s.client.Get(ctx, interruptedRedisKey(orgID, roomID, userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return InterruptedSession{}, false, nil
	}
	if err != nil {
		return InterruptedSession{}, false, fmt.Errorf("%w: get_interrupted: %v", pipeline.ErrState, err)
	}
	var sess InterruptedSession
	if err := json.Unmarshal(raw, &sess); err != nil {
		return InterruptedSession{}, false, fmt.Errorf("%w: decode_interrupted: %v", pipeline.ErrState, err)
	}
	return sess, true, nil
}
