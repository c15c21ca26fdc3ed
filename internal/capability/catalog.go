package capability

import "cogcore/internal/pipeline"

// DefaultCatalog is the production capability table: one row per tool
// handlers.Register binds. It is a plain data literal, never a code
// change, so adding a capability means appending a row here and a
// handler method in internal/handlers, nothing else (spec.md §3).
func DefaultCatalog() []Capability {
	return []Capability{
		{
			Name:              "create_task",
			Enabled:           true,
			PrimaryKeywords:   []string{"remind me", "add a task", "タスクを追加", "タスク登録"},
			SecondaryKeywords: []string{"task", "todo", "やること"},
			RiskLevel:         pipeline.RiskLow,
			HandlerRef:        "create_task",
			IntentHints:       []string{"create_task"},
		},
		{
			Name:              "list_tasks",
			Enabled:           true,
			PrimaryKeywords:   []string{"list my tasks", "what are my tasks", "タスク一覧", "タスクを教えて"},
			SecondaryKeywords: []string{"tasks", "todo list", "タスク"},
			RiskLevel:         pipeline.RiskLow,
			HandlerRef:        "list_tasks",
			IntentHints:       []string{"list_tasks"},
		},
		{
			Name:              "register_goal",
			Enabled:           true,
			PrimaryKeywords:   []string{"set a goal", "new goal", "目標を設定"},
			SecondaryKeywords: []string{"goal", "目標"},
			RiskLevel:         pipeline.RiskLow,
			HandlerRef:        "register_goal",
			IntentHints:       []string{"register_goal"},
		},
		{
			// Never scored directly: only ever dispatched by the
			// orchestrator while GOAL_SETTING is the active state.
			Name:       "goal_setting_continue",
			Enabled:    true,
			HandlerRef: "goal_setting_continue",
		},
		{
			Name:              "search_knowledge",
			Enabled:           true,
			PrimaryKeywords:   []string{"what is", "how do i", "教えて", "どうやって"},
			SecondaryKeywords: []string{"policy", "document", "規定", "マニュアル"},
			RiskLevel:         pipeline.RiskLow,
			HandlerRef:        "search_knowledge",
			IntentHints:       []string{"search_knowledge"},
		},
		{
			Name:              "send_message",
			Enabled:           true,
			PrimaryKeywords:   []string{"tell", "send a message", "伝えて", "メッセージを送って"},
			SecondaryKeywords: []string{"message", "let them know"},
			RiskLevel:         pipeline.RiskMedium,
			HandlerRef:        "send_message",
			IntentHints:       []string{"send_message"},
		},
		{
			Name:              "set_preference",
			Enabled:           true,
			PrimaryKeywords:   []string{"always", "from now on", "今後は", "設定を変更"},
			SecondaryKeywords: []string{"preference", "setting", "設定"},
			RiskLevel:         pipeline.RiskLow,
			HandlerRef:        "set_preference",
			IntentHints:       []string{"set_preference"},
		},
		{
			// Decision's fallback when nothing else clears the score
			// threshold; never carries its own keywords.
			Name:       "general_conversation",
			Enabled:    true,
			RiskLevel:  pipeline.RiskLow,
			HandlerRef: "general_conversation",
		},
		{
			// Only ever dispatched while ANNOUNCEMENT is active, started
			// by a proactive trigger rather than a user utterance.
			Name:       "announcement_continue",
			Enabled:    true,
			RiskLevel:  pipeline.RiskLow,
			HandlerRef: "announcement_continue",
		},
		{
			// Keyword-less: reached only as the list_action target
			// listTasks points LIST_CONTEXT resolution at.
			Name:       "task_detail",
			Enabled:    true,
			RiskLevel:  pipeline.RiskLow,
			HandlerRef: "task_detail",
		},
	}
}
