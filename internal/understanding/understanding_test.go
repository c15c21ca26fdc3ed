package understanding

import (
	"context"
	"errors"
	"testing"

	"cogcore/internal/capability"
	"cogcore/internal/llm"
	"cogcore/internal/pipeline"
)

func testRegistry(t *testing.T) *capability.Registry {
	t.Helper()
	reg, err := capability.NewRegistry([]capability.Capability{
		{Name: "create_task", Enabled: true, PrimaryKeywords: []string{"remind me", "add a task"}},
	})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	return reg
}

func TestUnderstand_StrongKeywordMatchSkipsRefinement(t *testing.T) {
	svc := New(testRegistry(t))
	result := svc.Understand(context.Background(), pipeline.Message{Text: "remind me to call Bob"}, pipeline.Context{})

	if result.Intent != "create_task" {
		t.Fatalf("expected create_task, got %q", result.Intent)
	}
	if result.IntentConfidence < 0.9 {
		t.Fatalf("expected high confidence for a direct primary-keyword match, got %f", result.IntentConfidence)
	}
}

func TestUnderstand_WeakMatchForcesGeneralConversation(t *testing.T) {
	svc := New(testRegistry(t))
	result := svc.Understand(context.Background(), pipeline.Message{Text: "what a nice day"}, pipeline.Context{})

	if result.Intent != "general_conversation" || !result.NeedsClarification {
		t.Fatalf("expected forced general_conversation with clarification, got %#v", result)
	}
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

func TestUnderstand_LLMRefinementOverridesWeakKeywordMatch(t *testing.T) {
	svc := New(testRegistry(t), WithRefiner(fakeProvider{content: `{"intent": "create_task", "confidence": 0.95}`}, "test-model"))
	result := svc.Understand(context.Background(), pipeline.Message{Text: "don't forget about that thing"}, pipeline.Context{})

	if result.Intent != "create_task" {
		t.Fatalf("expected LLM-refined intent create_task, got %q", result.Intent)
	}
}

func TestUnderstand_LLMFailureKeepsKeywordResult(t *testing.T) {
	svc := New(testRegistry(t), WithRefiner(fakeProvider{err: errors.New("boom")}, "test-model"))
	result := svc.Understand(context.Background(), pipeline.Message{Text: "remind me to call Bob"}, pipeline.Context{})

	if result.Intent != "create_task" {
		t.Fatalf("expected keyword result retained on LLM failure, got %q", result.Intent)
	}
}

func TestUnderstand_PersonAliasAmbiguousNeedsConfirmation(t *testing.T) {
	svc := New(testRegistry(t))
	persons := []pipeline.Person{
		{Name: "Bob Smith", Aliases: []string{"bob"}},
		{Name: "Bob Jones", Aliases: []string{"bob"}},
	}
	result := svc.Understand(context.Background(), pipeline.Message{Text: "tell bob about the meeting"}, pipeline.Context{Persons: persons})

	if !result.NeedsConfirmation {
		t.Fatalf("expected ambiguous alias match to require confirmation, got %#v", result)
	}
}

func TestClassifyUrgency_CriticalBeatsHigh(t *testing.T) {
	if got := classifyUrgency("this is urgent, I need it asap"); got != pipeline.UrgencyCritical {
		t.Fatalf("expected CRITICAL, got %s", got)
	}
}

func TestClassifyEmotion_NegativeLexicon(t *testing.T) {
	if got := classifyEmotion("I'm so frustrated with this"); got != "negative" {
		t.Fatalf("expected negative emotion, got %s", got)
	}
}
