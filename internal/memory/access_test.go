package memory

import (
	"context"
	"errors"
	"testing"

	"cogcore/internal/pipeline"
)

// failingSource always errors, used to exercise GetAllContext's partial
// failure tolerance.
type failingSource struct{}

func (failingSource) GetRecentConversation(context.Context, string, string, string, int) ([]pipeline.ConversationTurn, error) {
	return nil, errors.New("boom")
}
func (failingSource) GetConversationSummary(context.Context, string, string, string) (string, error) {
	return "", errors.New("boom")
}
func (failingSource) GetUserPreferences(context.Context, string, string) (pipeline.Preferences, error) {
	return nil, errors.New("boom")
}
func (failingSource) GetPersonInfo(context.Context, string) ([]pipeline.Person, error) {
	return nil, errors.New("boom")
}
func (failingSource) GetRecentTasks(context.Context, string, string, int) ([]pipeline.Task, error) {
	return nil, errors.New("boom")
}
func (failingSource) GetActiveGoals(context.Context, string, string) ([]pipeline.Goal, error) {
	return nil, errors.New("boom")
}
func (failingSource) GetRecentInsights(context.Context, string, string, int) ([]pipeline.Insight, error) {
	return nil, errors.New("boom")
}
func (failingSource) GetRecentEpisodes(context.Context, string, string, int) ([]pipeline.Episode, error) {
	return nil, errors.New("boom")
}
func (failingSource) AppendEpisode(context.Context, pipeline.Episode) error { return errors.New("boom") }
func (failingSource) CreateTask(context.Context, pipeline.Task) (pipeline.Task, error) {
	return pipeline.Task{}, errors.New("boom")
}
func (failingSource) CreateGoal(context.Context, string, pipeline.Goal) (pipeline.Goal, error) {
	return pipeline.Goal{}, errors.New("boom")
}
func (failingSource) SetPreference(context.Context, string, string, string, string) error {
	return errors.New("boom")
}

func TestAccess_GetAllContext_PartialFailureNeverErrors(t *testing.T) {
	a := New(failingSource{}, nil)
	out := a.GetAllContext(context.Background(), "org-1", "room-1", "user-1")

	if out.RecentConversation != nil {
		t.Fatalf("expected nil slice on source failure, got %#v", out.RecentConversation)
	}
	if out.ConversationSummary != "" {
		t.Fatalf("expected empty summary on source failure")
	}
	if out.Persons != nil || out.ActiveTasks != nil || out.ActiveGoals != nil || out.RecentInsights != nil || out.RecalledEpisodes != nil {
		t.Fatalf("expected every slice empty on total source failure, got %#v", out)
	}
}

func TestAccess_GetAllContext_MissingOrgIDReturnsEmpty(t *testing.T) {
	a := New(NewInMemorySource(), nil)
	out := a.GetAllContext(context.Background(), "", "room-1", "user-1")
	if out.RecentConversation != nil || out.ConversationSummary != "" {
		t.Fatalf("expected empty AllContext when organization_id is missing, got %#v", out)
	}
}

func TestAccess_GetAllContext_HappyPath(t *testing.T) {
	src := NewInMemorySource()
	src.SeedConversation("org-1", "room-1", pipeline.ConversationTurn{SenderName: "alice", Text: "hi"})
	src.SeedGoals("org-1", "user-1", pipeline.Goal{GoalID: "g1", Title: "ship it", Active: true})

	a := New(src, nil)
	out := a.GetAllContext(context.Background(), "org-1", "room-1", "user-1")

	if len(out.RecentConversation) != 1 {
		t.Fatalf("expected 1 conversation turn, got %d", len(out.RecentConversation))
	}
	if len(out.ActiveGoals) != 1 {
		t.Fatalf("expected 1 active goal, got %d", len(out.ActiveGoals))
	}
}

func TestAccess_AppendEpisode_RequiresOrgID(t *testing.T) {
	a := New(NewInMemorySource(), nil)
	err := a.AppendEpisode(context.Background(), pipeline.Episode{Summary: "no org"})
	if !errors.Is(err, ErrMissingOrgID) {
		t.Fatalf("expected ErrMissingOrgID, got %v", err)
	}
}
