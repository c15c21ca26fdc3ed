// Package state implements the State Store (C2): per-(tenant,room,user)
// conversation state with optimistic concurrency, auto-expiry, and an
// append-only transition history, backed by Redis.
package state

import (
	"fmt"
	"time"

	"cogcore/internal/pipeline"
)

// DefaultTimeout is the default time-to-live applied to a new state unless
// the caller requests a different one.
const DefaultTimeout = 30 * time.Minute

// ListContextTimeout is the shorter TTL applied to LIST_CONTEXT state:
// referenceable list items stay resolvable for five minutes only.
const ListContextTimeout = 5 * time.Minute

// MaxConfirmationRetries caps how many unparseable confirmation replies are
// tolerated before the session is abandoned with a safe fallback.
const MaxConfirmationRetries = 2

// ConversationState is the durable multi-step session record, unique per
// (organization_id, room_id, user_id).
type ConversationState struct {
	StateID        string
	OrgID          string
	RoomID         string
	UserID         string
	StateType      pipeline.StateType
	Step           string
	Data           map[string]any
	ReferenceType  string
	ReferenceID    string
	ExpiresAt      time.Time
	Version        int
	CreatedAt      time.Time
	UpdatedAt      time.Time
	ConfirmRetries int
}

func (s ConversationState) expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// Transition is one append-only history row recorded by transition_to.
type Transition struct {
	OrgID    string
	RoomID   string
	UserID   string
	FromType pipeline.StateType
	FromStep string
	ToType   pipeline.StateType
	ToStep   string
	Reason   string
	At       time.Time
}

// InterruptedSession is the supplemented side-record saved when a
// multi-step flow is abandoned mid-way for a new intent (spec.md §4.8,
// GOAL_SETTING interruption case).
type InterruptedSession struct {
	OrgID         string
	RoomID        string
	UserID        string
	StateType     pipeline.StateType
	Step          string
	PartialAnswers map[string]any
	ReferenceID   string
	InterruptedAt time.Time
}

// ErrStale is returned by TransitionTo/UpdateStep when the stored version
// no longer matches the caller's expectation: another turn won the race for
// this (org, room, user) triple and should retry its read.
var ErrStale = fmt.Errorf("%w: version conflict, retry", pipeline.ErrState)

// ErrNotFound is returned when no active (non-expired) state row exists.
var ErrNotFound = fmt.Errorf("%w: no active state", pipeline.ErrState)
