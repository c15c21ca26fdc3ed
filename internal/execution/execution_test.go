package execution

import (
	"context"
	"testing"

	"cogcore/internal/capability"
	"cogcore/internal/pipeline"
)

type fakeDeduper struct {
	seen map[string]bool
}

func newFakeDeduper() *fakeDeduper { return &fakeDeduper{seen: map[string]bool{}} }

func (f *fakeDeduper) Seen(ctx context.Context, key string) (bool, error) { return f.seen[key], nil }
func (f *fakeDeduper) Mark(ctx context.Context, key string) error {
	f.seen[key] = true
	return nil
}

type fakeAuditor struct {
	events []pipeline.AuditEvent
}

func (f *fakeAuditor) EmitToolCall(ctx context.Context, evt pipeline.AuditEvent) {
	f.events = append(f.events, evt)
}

func testRegistry(t *testing.T, handler capability.HandlerFunc) *capability.Registry {
	t.Helper()
	reg, err := capability.NewRegistry([]capability.Capability{
		{Name: "create_task", Enabled: true},
	})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	if err := reg.BindHandler("create_task", handler); err != nil {
		t.Fatalf("BindHandler: %v", err)
	}
	return reg
}

func TestExecute_UnboundHandlerReturnsFailureWithoutPanicking(t *testing.T) {
	reg, err := capability.NewRegistry([]capability.Capability{{Name: "create_task", Enabled: true}})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	svc := New(reg)
	result := svc.Execute(context.Background(), pipeline.DecisionResult{Action: "create_task"}, pipeline.Context{}, pipeline.Message{})
	if result.Success {
		t.Fatalf("expected failure for a capability with no bound handler")
	}
}

func TestExecute_InvokesBoundHandlerAndEmitsAuditEvent(t *testing.T) {
	auditor := &fakeAuditor{}
	reg := testRegistry(t, func(ctx context.Context, params map[string]any, roomID, orgID, senderName string, turnCtx pipeline.Context) (pipeline.HandlerResult, error) {
		return pipeline.HandlerResult{Success: true, Message: "task created"}, nil
	})
	svc := New(reg, WithAuditor(auditor))

	result := svc.Execute(context.Background(), pipeline.DecisionResult{Action: "create_task", Params: map[string]any{"message": "secret", "assigned_to": "bob"}}, pipeline.Context{}, pipeline.Message{OrgID: "org1", UserID: "user1"})

	if !result.Success || result.Message != "task created" {
		t.Fatalf("expected handler result passed through, got %#v", result)
	}
	if len(auditor.events) != 1 {
		t.Fatalf("expected exactly one audit event, got %d", len(auditor.events))
	}
	if _, leaked := auditor.events[0].Params["message"]; leaked {
		t.Fatalf("expected PII key 'message' stripped from audit event params")
	}
	if _, ok := auditor.events[0].Params["assigned_to"]; !ok {
		t.Fatalf("expected non-PII param to survive stripping")
	}
}

func TestExecute_PanicIsRecoveredAsFailure(t *testing.T) {
	reg := testRegistry(t, func(ctx context.Context, params map[string]any, roomID, orgID, senderName string, turnCtx pipeline.Context) (pipeline.HandlerResult, error) {
		panic("boom")
	})
	svc := New(reg)
	result := svc.Execute(context.Background(), pipeline.DecisionResult{Action: "create_task"}, pipeline.Context{}, pipeline.Message{})
	if result.Success {
		t.Fatalf("expected a panicking handler to be normalized into a failure result")
	}
}

func TestExecute_DedupedCallSkipsHandlerInvocation(t *testing.T) {
	calls := 0
	reg := testRegistry(t, func(ctx context.Context, params map[string]any, roomID, orgID, senderName string, turnCtx pipeline.Context) (pipeline.HandlerResult, error) {
		calls++
		return pipeline.HandlerResult{Success: true}, nil
	})
	dedupe := newFakeDeduper()
	svc := New(reg, WithDeduper(dedupe))

	dec := pipeline.DecisionResult{Action: "create_task", Params: map[string]any{"assigned_to": "bob"}}
	msg := pipeline.Message{OrgID: "org1", RoomID: "room1", UserID: "user1"}

	first := svc.Execute(context.Background(), dec, pipeline.Context{}, msg)
	second := svc.Execute(context.Background(), dec, pipeline.Context{}, msg)

	if !first.Success || !second.Success {
		t.Fatalf("expected both calls to report success, got %#v / %#v", first, second)
	}
	if calls != 1 {
		t.Fatalf("expected the handler to run exactly once across a deduped pair, got %d", calls)
	}
}
