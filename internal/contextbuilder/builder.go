// Package contextbuilder implements the Context Builder (C4): it assembles
// an immutable per-turn pipeline.Context from Memory Access slices plus the
// incoming message, bounded by a fixed time budget (spec.md §4.4).
package contextbuilder

import (
	"context"
	"time"

	"cogcore/internal/memory"
	"cogcore/internal/pipeline"
	"cogcore/internal/telemetry"
)

// DefaultBudget is the target wall-clock ceiling for one Build call
// (spec.md §5: "Context build ≈ 300 ms"). Build never fails on timeout; it
// returns whatever slices resolved in time, empty for the rest.
const DefaultBudget = 300 * time.Millisecond

// Builder assembles Context snapshots. It holds no per-turn state: every
// call is independent and safe for concurrent use.
type Builder struct {
	access *memory.Access
	budget time.Duration
	clock  telemetry.Clock
}

// Option configures a Builder.
type Option func(*Builder)

// WithBudget overrides DefaultBudget.
func WithBudget(d time.Duration) Option { return func(b *Builder) { b.budget = d } }

// WithClock overrides the wall-clock source (tests only).
func WithClock(c telemetry.Clock) Option { return func(b *Builder) { b.clock = c } }

// New constructs a Builder over a Memory Access façade.
func New(access *memory.Access, opts ...Option) *Builder {
	b := &Builder{access: access, budget: DefaultBudget, clock: telemetry.SystemClock{}}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Build fetches every memory slice concurrently, bounded by the
// configured budget, and always returns a well-formed Context — total
// failure yields empty slices, never a nil Context or an error
// (spec.md §4.4).
func (b *Builder) Build(ctx context.Context, orgID, roomID, userID, sender string, msg pipeline.Message) pipeline.Context {
	bctx, cancel := context.WithTimeout(ctx, b.budget)
	defer cancel()

	all := b.access.GetAllContext(bctx, orgID, roomID, userID)

	return pipeline.Context{
		OrgID:               orgID,
		RoomID:              roomID,
		UserID:              userID,
		Sender:              sender,
		RecentConversation:  all.RecentConversation,
		ConversationSummary: all.ConversationSummary,
		Preferences:         all.Preferences,
		Persons:             all.Persons,
		ActiveTasks:         all.ActiveTasks,
		ActiveGoals:         all.ActiveGoals,
		RecentInsights:      all.RecentInsights,
		RecalledEpisodes:    all.RecalledEpisodes,
		BuiltAt:             b.clock.Now(),
	}
}
