// Package memory implements Memory Access (C1): a uniform, tenant-scoped
// read API over durable stores (conversations, persons, tasks, goals,
// preferences, insights, episodes). Every query filters by organization_id;
// a query missing that filter is a programmer error rejected before
// execution (spec.md §4.1).
package memory

import (
	"context"
	"fmt"

	"cogcore/internal/pipeline"
)

// ErrMissingOrgID is returned when a query would execute without a tenant
// filter.
var ErrMissingOrgID = fmt.Errorf("memory: organization_id filter is required")

func requireOrgID(orgID string) error {
	if orgID == "" {
		return ErrMissingOrgID
	}
	return nil
}

// Source is the uniform read API each durable-store backend implements.
// Every method returns an empty slice/zero value and a non-nil error only
// for the specific failure kind being reported; Access.GetAllContext
// translates any error into an empty slice per spec.md §4.1.
type Source interface {
	GetRecentConversation(ctx context.Context, orgID, roomID, userID string, limit int) ([]pipeline.ConversationTurn, error)
	GetConversationSummary(ctx context.Context, orgID, roomID, userID string) (string, error)
	GetUserPreferences(ctx context.Context, orgID, userID string) (pipeline.Preferences, error)
	GetPersonInfo(ctx context.Context, orgID string) ([]pipeline.Person, error)
	GetRecentTasks(ctx context.Context, orgID, userID string, limit int) ([]pipeline.Task, error)
	GetActiveGoals(ctx context.Context, orgID, userID string) ([]pipeline.Goal, error)
	GetRecentInsights(ctx context.Context, orgID, userID string, limit int) ([]pipeline.Insight, error)
	GetRecentEpisodes(ctx context.Context, orgID, userID string, limit int) ([]pipeline.Episode, error)
	AppendEpisode(ctx context.Context, ep pipeline.Episode) error

	// CreateTask, CreateGoal, and SetPreference are the write side of the
	// same durable tables GetRecentTasks/GetActiveGoals/GetUserPreferences
	// read from; handlers call them through Access, never through a
	// Source directly.
	CreateTask(ctx context.Context, t pipeline.Task) (pipeline.Task, error)
	CreateGoal(ctx context.Context, userID string, g pipeline.Goal) (pipeline.Goal, error)
	SetPreference(ctx context.Context, orgID, userID, key, value string) error
}
