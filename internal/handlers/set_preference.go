package handlers

import (
	"context"

	"cogcore/internal/pipeline"
)

// setPreference writes a single user-preference key/value pair.
func (h *handlerSet) setPreference(ctx context.Context, params map[string]any, roomID, orgID, senderName string, turnCtx pipeline.Context) (pipeline.HandlerResult, error) {
	key := stringParam(params, "preference_key")
	value := stringParam(params, "preference_value")
	if key == "" {
		return pipeline.HandlerResult{Success: false, Message: "何の設定を変更しますか?"}, nil
	}

	if err := h.deps.Memory.SetPreference(ctx, orgID, turnCtx.UserID, key, value); err != nil {
		h.deps.Log.Error("set_preference_failed", map[string]any{"error_kind": "memory_access_error"})
		return pipeline.HandlerResult{Success: false, Message: "設定の保存に失敗しました。"}, nil
	}

	return pipeline.HandlerResult{Success: true, Message: "設定を更新しました。"}, nil
}
