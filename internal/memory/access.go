package memory

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"cogcore/internal/pipeline"
	"cogcore/internal/telemetry"
)

// defaultRecentConversationWindow is the bounded N from spec.md §3.
const defaultRecentConversationWindow = 20

// Access is the public façade C4 (Context Builder) depends on. It never
// returns an aggregate error from GetAllContext: any per-slice failure is
// logged (kind only, never content) and replaced with an empty result.
type Access struct {
	source Source
	log    telemetry.Logger
}

// New constructs an Access façade over a Source implementation.
func New(source Source, log telemetry.Logger) *Access {
	if log == nil {
		log = telemetry.NoopLogger{}
	}
	return &Access{source: source, log: log}
}

// AllContext is the fan-out result of every memory slice for one turn.
type AllContext struct {
	RecentConversation  []pipeline.ConversationTurn
	ConversationSummary string
	Preferences         pipeline.Preferences
	Persons             []pipeline.Person
	ActiveTasks         []pipeline.Task
	ActiveGoals         []pipeline.Goal
	RecentInsights      []pipeline.Insight
	RecalledEpisodes    []pipeline.Episode
}

// GetAllContext fans out every memory slice concurrently, bounded by the
// caller's context deadline, and tolerates partial failure: a slow or
// erroring source yields an empty value for that slice, never an aggregate
// failure (spec.md §4.1, §4.4).
func (a *Access) GetAllContext(ctx context.Context, orgID, roomID, userID string) AllContext {
	if err := requireOrgID(orgID); err != nil {
		a.log.Error("memory_missing_org_id", map[string]any{"error_kind": "programmer_error"})
		return AllContext{}
	}

	var out AllContext
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		v, err := a.source.GetRecentConversation(gctx, orgID, roomID, userID, defaultRecentConversationWindow)
		out.RecentConversation = orEmpty(a, v, err, "recent_conversation")
		return nil
	})
	g.Go(func() error {
		v, err := a.source.GetConversationSummary(gctx, orgID, roomID, userID)
		if err != nil {
			a.logSliceError("conversation_summary", err)
			v = ""
		}
		out.ConversationSummary = v
		return nil
	})
	g.Go(func() error {
		v, err := a.source.GetUserPreferences(gctx, orgID, userID)
		if err != nil {
			a.logSliceError("user_preferences", err)
			v = pipeline.Preferences{}
		}
		out.Preferences = v
		return nil
	})
	g.Go(func() error {
		v, err := a.source.GetPersonInfo(gctx, orgID)
		out.Persons = orEmpty(a, v, err, "person_info")
		return nil
	})
	g.Go(func() error {
		v, err := a.source.GetRecentTasks(gctx, orgID, userID, defaultRecentConversationWindow)
		out.ActiveTasks = orEmpty(a, v, err, "recent_tasks")
		return nil
	})
	g.Go(func() error {
		v, err := a.source.GetActiveGoals(gctx, orgID, userID)
		out.ActiveGoals = orEmpty(a, v, err, "active_goals")
		return nil
	})
	g.Go(func() error {
		v, err := a.source.GetRecentInsights(gctx, orgID, userID, defaultRecentConversationWindow)
		out.RecentInsights = orEmpty(a, v, err, "recent_insights")
		return nil
	})
	g.Go(func() error {
		v, err := a.source.GetRecentEpisodes(gctx, orgID, userID, defaultRecentConversationWindow)
		out.RecalledEpisodes = orEmpty(a, v, err, "recent_episodes")
		return nil
	})

	_ = g.Wait() // every goroutine above always returns nil; errors are absorbed per-slice
	return out
}

func orEmpty[T any](a *Access, v []T, err error, slice string) []T {
	if err != nil {
		a.logSliceError(slice, err)
		return nil
	}
	return v
}

func (a *Access) logSliceError(slice string, err error) {
	a.log.Error("memory_slice_failed", map[string]any{
		"slice":      slice,
		"error_kind": "memory_access_error",
	})
	_ = err // content of err is never logged, only that a failure of this kind occurred
}

// AppendEpisode writes a PII-safe long-term memory record.
func (a *Access) AppendEpisode(ctx context.Context, ep pipeline.Episode) error {
	if err := requireOrgID(ep.OrgID); err != nil {
		return err
	}
	if ep.CreatedAt.IsZero() {
		ep.CreatedAt = time.Now().UTC()
	}
	return a.source.AppendEpisode(ctx, ep)
}

// CreateTask persists a new tracked task. Handlers call this rather than a
// Source directly, so the org-id guard applies uniformly to every write.
func (a *Access) CreateTask(ctx context.Context, t pipeline.Task) (pipeline.Task, error) {
	if err := requireOrgID(t.OrgID); err != nil {
		return pipeline.Task{}, err
	}
	if t.Status == "" {
		t.Status = "open"
	}
	return a.source.CreateTask(ctx, t)
}

// CreateGoal persists a new active goal for userID.
func (a *Access) CreateGoal(ctx context.Context, orgID, userID string, g pipeline.Goal) (pipeline.Goal, error) {
	if err := requireOrgID(orgID); err != nil {
		return pipeline.Goal{}, err
	}
	g.OrgID = orgID
	g.Active = true
	return a.source.CreateGoal(ctx, userID, g)
}

// SetPreference writes a single user-preference key/value pair.
func (a *Access) SetPreference(ctx context.Context, orgID, userID, key, value string) error {
	if err := requireOrgID(orgID); err != nil {
		return err
	}
	return a.source.SetPreference(ctx, orgID, userID, key, value)
}
