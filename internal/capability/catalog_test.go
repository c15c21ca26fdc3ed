package capability

import "testing"

func TestDefaultCatalog_BuildsAValidRegistry(t *testing.T) {
	if _, err := NewRegistry(DefaultCatalog()); err != nil {
		t.Fatalf("NewRegistry(DefaultCatalog()): %v", err)
	}
}

func TestDefaultCatalog_CoversEveryHandlerName(t *testing.T) {
	want := []string{
		"create_task", "list_tasks", "register_goal", "goal_setting_continue",
		"search_knowledge", "send_message", "set_preference",
		"general_conversation", "announcement_continue", "task_detail",
	}
	got := make(map[string]bool)
	for _, c := range DefaultCatalog() {
		got[c.Name] = true
	}
	for _, name := range want {
		if !got[name] {
			t.Errorf("expected DefaultCatalog to carry a %q row", name)
		}
	}
}

func TestDefaultCatalog_CreateTaskMatchesKeyword(t *testing.T) {
	reg, err := NewRegistry(DefaultCatalog())
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	candidates := reg.Candidates("remind me to call Bob tomorrow")
	var matched bool
	for _, c := range candidates {
		if c.Capability.Name == "create_task" {
			matched = true
		}
	}
	if !matched {
		t.Fatalf("expected create_task to score against a reminder phrase, got %#v", candidates)
	}
}
