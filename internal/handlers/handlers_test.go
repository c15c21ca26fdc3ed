package handlers

import (
	"context"
	"testing"

	"cogcore/internal/capability"
	"cogcore/internal/knowledge"
	"cogcore/internal/knowledge/vectorstore"
	"cogcore/internal/llm"
	"cogcore/internal/memory"
	"cogcore/internal/pipeline"
)

func testRegistry(t *testing.T) *capability.Registry {
	t.Helper()
	reg, err := capability.NewRegistry([]capability.Capability{
		{Name: "create_task", Enabled: true, PrimaryKeywords: []string{"remind me"}},
		{Name: "list_tasks", Enabled: true, PrimaryKeywords: []string{"show my tasks"}},
		{Name: "register_goal", Enabled: true, PrimaryKeywords: []string{"set a goal"}},
		{Name: "goal_setting_continue", Enabled: true},
		{Name: "search_knowledge", Enabled: true, PrimaryKeywords: []string{"what is"}},
		{Name: "send_message", Enabled: true, PrimaryKeywords: []string{"tell"}},
		{Name: "set_preference", Enabled: true, PrimaryKeywords: []string{"prefer"}},
		{Name: "general_conversation", Enabled: true},
		{Name: "announcement_continue", Enabled: true},
		{Name: "task_detail", Enabled: true},
	})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	return reg
}

type fakeProvider struct {
	content string
	err     error
}

func (f fakeProvider) Chat(context.Context, []llm.Message, []llm.ToolSchema, string) (llm.Message, error) {
	if f.err != nil {
		return llm.Message{}, f.err
	}
	return llm.Message{Role: "assistant", Content: f.content}, nil
}

func testDeps(t *testing.T) (Deps, *memory.InMemorySource) {
	t.Helper()
	src := memory.NewInMemorySource()
	access := memory.New(src, nil)
	vector := vectorstore.NewMemory()
	embedder := knowledge.NewDeterministicEmbedder(0, 0)
	chunks := knowledge.NewInMemoryChunkStore()
	ks := knowledge.New(vector, embedder, chunks, fakeProvider{content: "synthesized answer"})
	return Deps{Memory: access, Knowledge: ks}, src
}

func TestRegister_BindsOnlyCapabilitiesPresentInRegistry(t *testing.T) {
	reg, err := capability.NewRegistry([]capability.Capability{
		{Name: "create_task", Enabled: true},
	})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	deps, _ := testDeps(t)
	if err := Register(reg, deps); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, ok := reg.Handler("create_task"); !ok {
		t.Fatalf("expected create_task to be bound")
	}
	if _, ok := reg.Handler("search_knowledge"); ok {
		t.Fatalf("expected search_knowledge to be skipped, it is absent from the registry")
	}
}

func TestCreateTask_PersistsAndReturnsTaskID(t *testing.T) {
	deps, _ := testDeps(t)
	reg := testRegistry(t)
	if err := Register(reg, deps); err != nil {
		t.Fatalf("Register: %v", err)
	}
	handler, _ := reg.Handler("create_task")

	result, err := handler(context.Background(), map[string]any{
		"task_body":   "call Bob",
		"assigned_to": "user1",
		"limit_date":  "2026-08-01",
	}, "room1", "org1", "alice", pipeline.Context{UserID: "user1"})
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if !result.Success || result.Data["task_id"] == "" {
		t.Fatalf("expected a successful result with a task id, got %#v", result)
	}
}

func TestListTasks_EmptyContextReturnsNoTasksMessage(t *testing.T) {
	deps, _ := testDeps(t)
	reg := testRegistry(t)
	if err := Register(reg, deps); err != nil {
		t.Fatalf("Register: %v", err)
	}
	handler, _ := reg.Handler("list_tasks")

	result, err := handler(context.Background(), nil, "room1", "org1", "alice", pipeline.Context{})
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if !result.Success || result.Metadata.AwaitingInput {
		t.Fatalf("expected a plain no-tasks reply, got %#v", result)
	}
}

func TestListTasks_WithTasksRequestsFollowUpSelection(t *testing.T) {
	deps, _ := testDeps(t)
	reg := testRegistry(t)
	if err := Register(reg, deps); err != nil {
		t.Fatalf("Register: %v", err)
	}
	handler, _ := reg.Handler("list_tasks")

	turnCtx := pipeline.Context{ActiveTasks: []pipeline.Task{{TaskID: "t1", Body: "call Bob"}}}
	result, err := handler(context.Background(), nil, "room1", "org1", "alice", turnCtx)
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if !result.Metadata.AwaitingInput || result.Metadata.NewState != string(pipeline.StateListContext) {
		t.Fatalf("expected a LIST_CONTEXT follow-up, got %#v", result.Metadata)
	}
}

func TestRegisterGoal_AsksForTitleFirst(t *testing.T) {
	deps, _ := testDeps(t)
	reg := testRegistry(t)
	if err := Register(reg, deps); err != nil {
		t.Fatalf("Register: %v", err)
	}
	handler, _ := reg.Handler("register_goal")

	result, err := handler(context.Background(), nil, "room1", "org1", "alice", pipeline.Context{})
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if result.Metadata.PendingData["_next_step"] != "title" {
		t.Fatalf("expected the first question to ask for a title, got %#v", result.Metadata)
	}
}

func TestGoalSettingContinue_CompletesAndPersistsOnceAllFieldsPresent(t *testing.T) {
	deps, src := testDeps(t)
	reg := testRegistry(t)
	if err := Register(reg, deps); err != nil {
		t.Fatalf("Register: %v", err)
	}
	handler, _ := reg.Handler("goal_setting_continue")

	result, err := handler(context.Background(), map[string]any{"title": "ship it", "why": "deadline"}, "room1", "org1", "alice", pipeline.Context{UserID: "user1"})
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if result.Metadata.AwaitingInput {
		t.Fatalf("expected the flow to complete once both fields are present, got %#v", result.Metadata)
	}

	goals, err := src.GetActiveGoals(context.Background(), "org1", "user1")
	if err != nil {
		t.Fatalf("GetActiveGoals: %v", err)
	}
	if len(goals) != 1 || goals[0].Title != "ship it" {
		t.Fatalf("expected the goal to be persisted, got %#v", goals)
	}
}

func TestSearchKnowledge_NoMatchingChunksRefusesPolitely(t *testing.T) {
	deps, _ := testDeps(t)
	reg := testRegistry(t)
	if err := Register(reg, deps); err != nil {
		t.Fatalf("Register: %v", err)
	}
	handler, _ := reg.Handler("search_knowledge")

	result, err := handler(context.Background(), map[string]any{"question": "what is the refund policy"}, "room1", "org1", "alice", pipeline.Context{})
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected a graceful refusal rather than a failure, got %#v", result)
	}
}

func TestSearchKnowledge_TruthResolverPrefersExactPreferenceMatch(t *testing.T) {
	deps, _ := testDeps(t)
	deps.EnableTruthResolver = true
	reg := testRegistry(t)
	if err := Register(reg, deps); err != nil {
		t.Fatalf("Register: %v", err)
	}
	handler, _ := reg.Handler("search_knowledge")

	turnCtx := pipeline.Context{Preferences: pipeline.Preferences{"timezone": "JST"}}
	result, err := handler(context.Background(), map[string]any{"question": "what is my timezone"}, "room1", "org1", "alice", turnCtx)
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if result.Message != "JST" {
		t.Fatalf("expected the durable-store preference to win over synthesis, got %#v", result)
	}
}

func TestSendMessage_ResolvesKnownAlias(t *testing.T) {
	deps, _ := testDeps(t)
	reg := testRegistry(t)
	if err := Register(reg, deps); err != nil {
		t.Fatalf("Register: %v", err)
	}
	handler, _ := reg.Handler("send_message")

	turnCtx := pipeline.Context{Persons: []pipeline.Person{{Name: "Bob Tanaka", Aliases: []string{"Bob"}}}}
	result, err := handler(context.Background(), map[string]any{"recipient": "Bob", "message": "running late"}, "room1", "org1", "alice", turnCtx)
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if result.Data["recipient"] != "Bob Tanaka" {
		t.Fatalf("expected alias resolution to Bob Tanaka, got %#v", result.Data)
	}
}

func TestSetPreference_PersistsValue(t *testing.T) {
	deps, src := testDeps(t)
	reg := testRegistry(t)
	if err := Register(reg, deps); err != nil {
		t.Fatalf("Register: %v", err)
	}
	handler, _ := reg.Handler("set_preference")

	result, err := handler(context.Background(), map[string]any{"preference_key": "timezone", "preference_value": "JST"}, "room1", "org1", "alice", pipeline.Context{UserID: "user1"})
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success, got %#v", result)
	}

	prefs, err := src.GetUserPreferences(context.Background(), "org1", "user1")
	if err != nil {
		t.Fatalf("GetUserPreferences: %v", err)
	}
	if prefs["timezone"] != "JST" {
		t.Fatalf("expected the preference to be persisted, got %#v", prefs)
	}
}

func TestGeneralConversation_NoProviderFallsBackToFixedAck(t *testing.T) {
	deps, _ := testDeps(t)
	reg := testRegistry(t)
	if err := Register(reg, deps); err != nil {
		t.Fatalf("Register: %v", err)
	}
	handler, _ := reg.Handler("general_conversation")

	result, err := handler(context.Background(), nil, "room1", "org1", "alice", pipeline.Context{})
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if !result.Success || result.Message == "" {
		t.Fatalf("expected a non-empty fallback reply, got %#v", result)
	}
}

func TestAnnouncementContinue_AdvancesThroughParts(t *testing.T) {
	deps, _ := testDeps(t)
	reg := testRegistry(t)
	if err := Register(reg, deps); err != nil {
		t.Fatalf("Register: %v", err)
	}
	handler, _ := reg.Handler("announcement_continue")

	parts := []string{"part one", "part two"}
	result, err := handler(context.Background(), map[string]any{"parts": parts, "part_index": 0}, "room1", "org1", "alice", pipeline.Context{})
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if !result.Metadata.AwaitingInput {
		t.Fatalf("expected more parts to remain, got %#v", result.Metadata)
	}

	result, err = handler(context.Background(), map[string]any{"parts": parts, "part_index": 1}, "room1", "org1", "alice", pipeline.Context{})
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if result.Metadata.AwaitingInput {
		t.Fatalf("expected the last part to close the flow, got %#v", result.Metadata)
	}
}
