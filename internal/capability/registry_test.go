package capability

import (
	"context"
	"errors"
	"testing"

	"cogcore/internal/pipeline"
)

func sampleCaps() []Capability {
	return []Capability{
		{Name: "create_task", Enabled: true, PrimaryKeywords: []string{"remind me", "add a task"}, SecondaryKeywords: []string{"todo"}, RiskLevel: pipeline.RiskLow},
		{Name: "delete_account", Enabled: true, PrimaryKeywords: []string{"delete my account"}, RiskLevel: pipeline.RiskCritical, Dangerous: true, RequiresConfirmation: true},
		{Name: "disabled_tool", Enabled: false, PrimaryKeywords: []string{"remind me"}, RiskLevel: pipeline.RiskLow},
	}
}

func TestNewRegistry_RejectsDuplicateNames(t *testing.T) {
	_, err := NewRegistry([]Capability{{Name: "x"}, {Name: "x"}})
	if err == nil {
		t.Fatal("expected error for duplicate capability name")
	}
}

func TestRegistry_BindHandler_UnknownNameRejected(t *testing.T) {
	reg, err := NewRegistry(sampleCaps())
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	err = reg.BindHandler("does_not_exist", func(context.Context, map[string]any, string, string, string, pipeline.Context) (pipeline.HandlerResult, error) {
		return pipeline.HandlerResult{}, nil
	})
	if !errors.Is(err, pipeline.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func TestRegistry_Candidates_SkipsDisabledAndNegative(t *testing.T) {
	reg, err := NewRegistry(sampleCaps())
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	candidates := reg.Candidates("Remind me to call Bob tomorrow")

	var names []string
	for _, c := range candidates {
		names = append(names, c.Capability.Name)
	}
	if len(names) != 1 || names[0] != "create_task" {
		t.Fatalf("expected only create_task to match, got %v", names)
	}
}

func TestRegistry_Candidates_NegativeKeywordVetoes(t *testing.T) {
	caps := []Capability{
		{Name: "create_task", Enabled: true, PrimaryKeywords: []string{"remind me"}, NegativeKeywords: []string{"don't remind me"}},
	}
	reg, err := NewRegistry(caps)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	candidates := reg.Candidates("please don't remind me about that again")
	if len(candidates) != 0 {
		t.Fatalf("expected negative keyword to veto the match, got %#v", candidates)
	}
}

func TestRegistry_Candidates_OrderedByScoreDescending(t *testing.T) {
	caps := []Capability{
		{Name: "weak_match", Enabled: true, SecondaryKeywords: []string{"task"}},
		{Name: "strong_match", Enabled: true, PrimaryKeywords: []string{"create a task"}, SecondaryKeywords: []string{"task"}},
	}
	reg, err := NewRegistry(caps)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	candidates := reg.Candidates("please create a task for me")
	if len(candidates) != 2 || candidates[0].Capability.Name != "strong_match" {
		t.Fatalf("expected strong_match ranked first, got %#v", candidates)
	}
}
