package handlers

import (
	"context"

	"cogcore/internal/llm"
	"cogcore/internal/pipeline"
)

// generalConversationSystemPrompt keeps the fallback reply grounded in the
// turn's own Context rather than inventing facts the core never retrieved.
const generalConversationSystemPrompt = "You are a helpful conversational assistant. Answer plainly and briefly using only the conversation context given to you; do not invent facts about the user or their tasks and goals."

// generalConversation is Decision's fallback action when nothing scored
// above CapabilityMinScoreThreshold. Without a configured Conversation
// provider it degenerates to a fixed acknowledgement rather than failing.
func (h *handlerSet) generalConversation(ctx context.Context, params map[string]any, roomID, orgID, senderName string, turnCtx pipeline.Context) (pipeline.HandlerResult, error) {
	if h.deps.Conversation == nil {
		return pipeline.HandlerResult{Success: true, Message: "了解しました。"}, nil
	}

	msgs := []llm.Message{
		{Role: "system", Content: generalConversationSystemPrompt},
		{Role: "user", Content: contextSummary(turnCtx)},
	}
	resp, err := h.deps.Conversation.Chat(ctx, msgs, nil, h.deps.ChatModel)
	if err != nil {
		h.deps.Log.Error("general_conversation_failed", map[string]any{"error_kind": "llm_error"})
		return pipeline.HandlerResult{Success: true, Message: "了解しました。"}, nil
	}
	return pipeline.HandlerResult{Success: true, Message: resp.Content}, nil
}

func contextSummary(turnCtx pipeline.Context) string {
	if turnCtx.ConversationSummary != "" {
		return turnCtx.ConversationSummary
	}
	if len(turnCtx.RecentConversation) > 0 {
		return turnCtx.RecentConversation[len(turnCtx.RecentConversation)-1].Text
	}
	return ""
}
