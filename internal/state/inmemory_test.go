package state

import (
	"context"
	"errors"
	"testing"
	"time"

	"cogcore/internal/pipeline"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func TestInMemoryStore_TransitionAndGetCurrent(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	store := NewInMemoryStore(clock)
	ctx := context.Background()

	st, err := store.TransitionTo(ctx, "org-1", "room-1", "user-1", pipeline.StateGoalSetting, "ask_why", nil, "", "", 0, "user started goal flow")
	if err != nil {
		t.Fatalf("TransitionTo: %v", err)
	}
	if st.Version != 1 {
		t.Fatalf("expected version 1 on first transition, got %d", st.Version)
	}

	got, err := store.GetCurrent(ctx, "org-1", "room-1", "user-1")
	if err != nil {
		t.Fatalf("GetCurrent: %v", err)
	}
	if got.StateType != pipeline.StateGoalSetting || got.Step != "ask_why" {
		t.Fatalf("unexpected state: %#v", got)
	}
}

func TestInMemoryStore_GetCurrentAutoExpires(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	store := NewInMemoryStore(clock)
	ctx := context.Background()

	if _, err := store.TransitionTo(ctx, "org-1", "room-1", "user-1", pipeline.StateListContext, "", nil, "", "", ListContextTimeout, "list shown"); err != nil {
		t.Fatalf("TransitionTo: %v", err)
	}

	clock.now = clock.now.Add(ListContextTimeout + time.Second)
	_, err := store.GetCurrent(ctx, "org-1", "room-1", "user-1")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after expiry, got %v", err)
	}
}

func TestInMemoryStore_UpdateStepStaleVersionRejected(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	store := NewInMemoryStore(clock)
	ctx := context.Background()

	st, err := store.TransitionTo(ctx, "org-1", "room-1", "user-1", pipeline.StateTaskPending, "collect_fields", map[string]any{"task_body": "buy milk"}, "", "", 0, "started task capture")
	if err != nil {
		t.Fatalf("TransitionTo: %v", err)
	}

	if _, err := store.UpdateStep(ctx, "org-1", "room-1", "user-1", "collect_fields", map[string]any{"assigned_to": "alice"}, st.Version); err != nil {
		t.Fatalf("UpdateStep: %v", err)
	}

	// Stale caller still holds the original version.
	_, err = store.UpdateStep(ctx, "org-1", "room-1", "user-1", "collect_fields", map[string]any{"limit_date": "tomorrow"}, st.Version)
	if !errors.Is(err, ErrStale) {
		t.Fatalf("expected ErrStale, got %v", err)
	}

	updated, err := store.GetCurrent(ctx, "org-1", "room-1", "user-1")
	if err != nil {
		t.Fatalf("GetCurrent: %v", err)
	}
	if updated.Data["task_body"] != "buy milk" || updated.Data["assigned_to"] != "alice" {
		t.Fatalf("expected merged data, got %#v", updated.Data)
	}
}

func TestInMemoryStore_ClearRemovesRow(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	store := NewInMemoryStore(clock)
	ctx := context.Background()

	if _, err := store.TransitionTo(ctx, "org-1", "room-1", "user-1", pipeline.StateConfirmation, "", nil, "", "", 0, "awaiting yes/no"); err != nil {
		t.Fatalf("TransitionTo: %v", err)
	}
	if err := store.Clear(ctx, "org-1", "room-1", "user-1", "user_cancel"); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	_, err := store.GetCurrent(ctx, "org-1", "room-1", "user-1")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after clear, got %v", err)
	}
}

func TestInMemoryStore_InterruptedSessionRoundTrip(t *testing.T) {
	store := NewInMemoryStore(nil)
	ctx := context.Background()

	err := store.SaveInterruptedSession(ctx, InterruptedSession{
		OrgID: "org-1", RoomID: "room-1", UserID: "user-1",
		StateType: pipeline.StateGoalSetting, Step: "ask_why",
		PartialAnswers: map[string]any{"why": "wellbeing"},
	})
	if err != nil {
		t.Fatalf("SaveInterruptedSession: %v", err)
	}

	sess, ok, err := store.GetInterruptedSession(ctx, "org-1", "room-1", "user-1")
	if err != nil {
		t.Fatalf("GetInterruptedSession: %v", err)
	}
	if !ok || sess.Step != "ask_why" {
		t.Fatalf("expected saved interrupted session, got %#v ok=%v", sess, ok)
	}
}
