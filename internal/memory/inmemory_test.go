package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"cogcore/internal/pipeline"
)

func TestInMemorySource_RequiresOrgID(t *testing.T) {
	src := NewInMemorySource()
	ctx := context.Background()

	if _, err := src.GetRecentConversation(ctx, "", "room", "user", 10); !errors.Is(err, ErrMissingOrgID) {
		t.Fatalf("expected ErrMissingOrgID, got %v", err)
	}
	if err := src.AppendEpisode(ctx, pipeline.Episode{Summary: "x"}); !errors.Is(err, ErrMissingOrgID) {
		t.Fatalf("expected ErrMissingOrgID on append, got %v", err)
	}
}

func TestInMemorySource_RecentConversationWindow(t *testing.T) {
	src := NewInMemorySource()
	ctx := context.Background()
	base := time.Now()
	for i := 0; i < 5; i++ {
		src.SeedConversation("org-1", "room-1", pipeline.ConversationTurn{
			SenderName: "alice",
			Text:       "msg",
			SentAt:     base.Add(time.Duration(i) * time.Minute),
		})
	}

	turns, err := src.GetRecentConversation(ctx, "org-1", "room-1", "user-1", 3)
	if err != nil {
		t.Fatalf("GetRecentConversation: %v", err)
	}
	if len(turns) != 3 {
		t.Fatalf("expected 3 turns, got %d", len(turns))
	}

	// a different org never sees org-1's room.
	other, err := src.GetRecentConversation(ctx, "org-2", "room-1", "user-1", 3)
	if err != nil {
		t.Fatalf("GetRecentConversation other org: %v", err)
	}
	if len(other) != 0 {
		t.Fatalf("expected tenant isolation, got %d turns", len(other))
	}
}

func TestInMemorySource_ActiveGoalsFiltersInactive(t *testing.T) {
	src := NewInMemorySource()
	ctx := context.Background()
	src.SeedGoals("org-1", "user-1",
		pipeline.Goal{GoalID: "g1", Title: "ship v2", Active: true},
		pipeline.Goal{GoalID: "g2", Title: "done already", Active: false},
	)

	goals, err := src.GetActiveGoals(ctx, "org-1", "user-1")
	if err != nil {
		t.Fatalf("GetActiveGoals: %v", err)
	}
	if len(goals) != 1 || goals[0].GoalID != "g1" {
		t.Fatalf("expected only the active goal, got %#v", goals)
	}
}

func TestInMemorySource_AppendEpisodeIsolatedByOrgAndUser(t *testing.T) {
	src := NewInMemorySource()
	ctx := context.Background()
	if err := src.AppendEpisode(ctx, pipeline.Episode{OrgID: "org-1", UserID: "user-1", Type: "fact", Summary: "likes tea"}); err != nil {
		t.Fatalf("AppendEpisode: %v", err)
	}
	if err := src.AppendEpisode(ctx, pipeline.Episode{OrgID: "org-1", UserID: "user-2", Type: "fact", Summary: "likes coffee"}); err != nil {
		t.Fatalf("AppendEpisode: %v", err)
	}

	eps, err := src.GetRecentEpisodes(ctx, "org-1", "user-1", 10)
	if err != nil {
		t.Fatalf("GetRecentEpisodes: %v", err)
	}
	if len(eps) != 1 || eps[0].Summary != "likes tea" {
		t.Fatalf("expected only user-1's episode, got %#v", eps)
	}
}
