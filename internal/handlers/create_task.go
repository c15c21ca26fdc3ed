package handlers

import (
	"context"

	"cogcore/internal/pipeline"
)

// createTask persists one task from the fields task_pending.go assembled
// over however many turns it took to collect task_body/assigned_to/limit_date.
func (h *handlerSet) createTask(ctx context.Context, params map[string]any, roomID, orgID, senderName string, turnCtx pipeline.Context) (pipeline.HandlerResult, error) {
	body := stringParam(params, "task_body")
	assignedTo := stringParam(params, "assigned_to")
	if assignedTo == "" {
		assignedTo = turnCtx.UserID
	}

	task, err := h.deps.Memory.CreateTask(ctx, pipeline.Task{
		OrgID:      orgID,
		Body:       body,
		AssignedTo: assignedTo,
		LimitDate:  parseLimitDate(params, "limit_date"),
	})
	if err != nil {
		h.deps.Log.Error("create_task_failed", map[string]any{"error_kind": "memory_access_error"})
		return pipeline.HandlerResult{Success: false, Message: "タスクの作成に失敗しました。もう一度お試しください。"}, nil
	}

	return pipeline.HandlerResult{
		Success: true,
		Message: "タスクを登録しました: " + task.Body,
		Data:    map[string]any{"task_id": task.TaskID},
	}, nil
}
