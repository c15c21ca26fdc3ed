package handlers

import (
	"context"
	"fmt"
	"strings"

	"cogcore/internal/pipeline"
)

// listTasks reads straight off the turn's Context snapshot rather than
// re-querying memory; ActiveTasks was already fetched for this turn by the
// Context Builder, and a second round trip here would just duplicate it.
func (h *handlerSet) listTasks(ctx context.Context, params map[string]any, roomID, orgID, senderName string, turnCtx pipeline.Context) (pipeline.HandlerResult, error) {
	if len(turnCtx.ActiveTasks) == 0 {
		return pipeline.HandlerResult{Success: true, Message: "現在、未完了のタスクはありません。"}, nil
	}

	var sb strings.Builder
	items := make([]string, 0, len(turnCtx.ActiveTasks))
	sb.WriteString("未完了のタスク:\n")
	for i, t := range turnCtx.ActiveTasks {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, t.Body)
		items = append(items, t.TaskID)
	}

	return pipeline.HandlerResult{
		Success: true,
		Message: strings.TrimRight(sb.String(), "\n"),
		Data: map[string]any{
			"items":       items,
			"list_action": "task_detail",
		},
		Metadata: pipeline.HandlerMetadata{
			AwaitingInput: true,
			NewState:      string(pipeline.StateListContext),
			PendingData:   map[string]any{"items": items, "list_action": "task_detail"},
		},
	}, nil
}
