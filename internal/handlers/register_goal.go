package handlers

import (
	"context"

	"cogcore/internal/pipeline"
)

// requiredGoalFields lists the answers a goal needs before GOAL_SETTING can
// complete: what the goal is, and why it matters (spec.md §4.8 example).
var requiredGoalFields = []string{"title", "why"}

var goalPrompts = map[string]string{
	"title": "What's the goal?",
	"why":   "Why does this matter to you?",
}

// registerGoal starts the GOAL_SETTING flow. It never writes a goal
// itself; it only asks the first question and hands the orchestrator the
// field name ("_next_step") the reply should be merged into.
func (h *handlerSet) registerGoal(ctx context.Context, params map[string]any, roomID, orgID, senderName string, turnCtx pipeline.Context) (pipeline.HandlerResult, error) {
	return pipeline.HandlerResult{
		Success: true,
		Message: goalPrompts["title"],
		Metadata: pipeline.HandlerMetadata{
			AwaitingInput: true,
			NewState:      string(pipeline.StateGoalSetting),
			PendingData:   map[string]any{"_next_step": "title"},
		},
	}, nil
}

// goalSettingContinue is invoked on every GOAL_SETTING reply. It decides
// which field is still missing and either asks the next question or, once
// every field is answered, persists the goal and closes the flow.
func (h *handlerSet) goalSettingContinue(ctx context.Context, params map[string]any, roomID, orgID, senderName string, turnCtx pipeline.Context) (pipeline.HandlerResult, error) {
	missing := firstMissingGoalField(params)
	if missing != "" {
		return pipeline.HandlerResult{
			Success: true,
			Message: goalPrompts[missing],
			Metadata: pipeline.HandlerMetadata{
				AwaitingInput: true,
				PendingData:   map[string]any{"_next_step": missing},
			},
		}, nil
	}

	goal, err := h.deps.Memory.CreateGoal(ctx, orgID, turnCtx.UserID, pipeline.Goal{
		Title: stringParam(params, "title"),
		Why:   stringParam(params, "why"),
	})
	if err != nil {
		h.deps.Log.Error("register_goal_failed", map[string]any{"error_kind": "memory_access_error"})
		return pipeline.HandlerResult{Success: false, Message: "目標の保存に失敗しました。"}, nil
	}

	return pipeline.HandlerResult{Success: true, Message: "目標を登録しました: " + goal.Title}, nil
}

func firstMissingGoalField(data map[string]any) string {
	for _, f := range requiredGoalFields {
		if v, ok := data[f]; !ok || v == "" {
			return f
		}
	}
	return ""
}
