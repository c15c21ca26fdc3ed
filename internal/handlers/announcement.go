package handlers

import (
	"context"

	"cogcore/internal/pipeline"
)

// announcementContinue delivers one part of a scripted, multi-part
// broadcast per turn. "parts" and "part_index" are supplied by whatever
// started the ANNOUNCEMENT flow (e.g. a scheduled proactive trigger wired
// through the orchestrator); this handler only advances the cursor.
func (h *handlerSet) announcementContinue(ctx context.Context, params map[string]any, roomID, orgID, senderName string, turnCtx pipeline.Context) (pipeline.HandlerResult, error) {
	parts, _ := params["parts"].([]string)
	index, _ := params["part_index"].(int)

	if index < 0 || index >= len(parts) {
		return pipeline.HandlerResult{Success: true, Message: "以上です。"}, nil
	}

	text := parts[index]
	next := index + 1
	if next >= len(parts) {
		return pipeline.HandlerResult{Success: true, Message: text}, nil
	}

	return pipeline.HandlerResult{
		Success: true,
		Message: text,
		Metadata: pipeline.HandlerMetadata{
			AwaitingInput: true,
			PendingData:   map[string]any{"parts": parts, "part_index": next},
		},
	}, nil
}
