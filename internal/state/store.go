package state

import (
	"context"
	"time"

	"cogcore/internal/pipeline"
)

// Store is the uniform state-store contract. Implementations: Redis-backed
// (production) and in-memory (tests, local runs).
type Store interface {
	// GetCurrent returns ErrNotFound when no row exists or the row has
	// expired; an expired row is deleted opportunistically before the
	// error is returned.
	GetCurrent(ctx context.Context, orgID, roomID, userID string) (ConversationState, error)

	// TransitionTo is an UPSERT keyed by (org, room, user) with an
	// optimistic version bump, and appends one Transition to the history
	// log. A zero timeout applies DefaultTimeout.
	TransitionTo(ctx context.Context, orgID, roomID, userID string, toType pipeline.StateType, toStep string, data map[string]any, refType, refID string, timeout time.Duration, reason string) (ConversationState, error)

	// UpdateStep merges dataDelta into the existing state's Data (shallow),
	// extends ExpiresAt by the state's original timeout, and bumps Version.
	// Returns ErrStale if expectedVersion does not match the stored version.
	UpdateStep(ctx context.Context, orgID, roomID, userID, step string, dataDelta map[string]any, expectedVersion int) (ConversationState, error)

	// Clear deletes the active state row, recording reason in the history
	// log as a transition to the zero StateType.
	Clear(ctx context.Context, orgID, roomID, userID, reason string) error

	// CleanupExpired opportunistically purges expired rows and returns how
	// many were removed; safe to call on a schedule or skip entirely, since
	// GetCurrent already purges lazily per spec.md §4.2.
	CleanupExpired(ctx context.Context) (int, error)

	// SaveInterruptedSession records a GOAL_SETTING (or similar) session
	// abandoned mid-flow so a later turn can offer to resume it.
	SaveInterruptedSession(ctx context.Context, sess InterruptedSession) error

	// GetInterruptedSession returns the most recently saved interrupted
	// session for (org, room, user), if any.
	GetInterruptedSession(ctx context.Context, orgID, roomID, userID string) (InterruptedSession, bool, error)
}
