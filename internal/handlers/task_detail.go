package handlers

import (
	"context"
	"fmt"

	"cogcore/internal/pipeline"
)

// taskDetail is never matched by keyword score; it exists only as a
// list_action target that listTasks points LIST_CONTEXT resolution at, so
// the capability catalog must still carry a (keyword-less, disabled-to-
// direct-match) "task_detail" row for Register to bind it.
func (h *handlerSet) taskDetail(ctx context.Context, params map[string]any, roomID, orgID, senderName string, turnCtx pipeline.Context) (pipeline.HandlerResult, error) {
	selected := stringParam(params, "selected_item")
	for _, t := range turnCtx.ActiveTasks {
		if t.TaskID == selected {
			dueText := "期限なし"
			if t.LimitDate != nil {
				dueText = t.LimitDate.Format(dateLayout)
			}
			return pipeline.HandlerResult{
				Success: true,
				Message: fmt.Sprintf("%s\n担当: %s\n期限: %s", t.Body, t.AssignedTo, dueText),
			}, nil
		}
	}
	return pipeline.HandlerResult{Success: false, Message: "そのタスクはもう見つかりませんでした。"}, nil
}
