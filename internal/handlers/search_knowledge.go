package handlers

import (
	"context"
	"strings"

	"cogcore/internal/knowledge"
	"cogcore/internal/knowledge/truthsource"
	"cogcore/internal/pipeline"
)

// searchKnowledge runs Knowledge Retrieval + Synthesis (C10) against the
// turn's raw question. Entitlement resolution (which claims map to which
// AccessibleDepartmentIDs) belongs to the caller that authenticates the
// chat platform session, not this handler; absent an explicit scope in
// params this defaults to public+internal only, never confidential, so a
// missing upstream scope fails closed rather than over-exposing content.
func (h *handlerSet) searchKnowledge(ctx context.Context, params map[string]any, roomID, orgID, senderName string, turnCtx pipeline.Context) (pipeline.HandlerResult, error) {
	question := stringParam(params, "question")
	if question == "" && len(turnCtx.RecentConversation) > 0 {
		question = turnCtx.RecentConversation[len(turnCtx.RecentConversation)-1].Text
	}

	if h.deps.EnableTruthResolver {
		if answer, ok := h.resolveFromDurableStore(ctx, turnCtx, question); ok {
			return pipeline.HandlerResult{Success: true, Message: answer}, nil
		}
	}

	scope := knowledge.AccessScope{
		AccessibleClassifications: []pipeline.Classification{pipeline.ClassificationPublic, pipeline.ClassificationInternal},
	}
	if deptIDs, ok := params["department_ids"].([]string); ok && len(deptIDs) > 0 {
		scope.AccessibleClassifications = append(scope.AccessibleClassifications, pipeline.ClassificationConfidential)
		scope.AccessibleDepartmentIDs = deptIDs
	}

	answer, err := h.deps.Knowledge.Ask(ctx, knowledge.Query{Tenant: orgID, Question: question, Scope: scope})
	if err != nil {
		h.deps.Log.Error("search_knowledge_failed", map[string]any{"error_kind": "synthesis_error"})
		return pipeline.HandlerResult{Success: false, Message: "その質問には今お答えできませんでした。"}, nil
	}
	if answer.AnswerRefused {
		return pipeline.HandlerResult{Success: true, Message: "関連する情報が見つかりませんでした。"}, nil
	}

	citations := make([]string, 0, len(answer.Citations))
	for _, c := range answer.Citations {
		citations = append(citations, c.ChunkID)
	}

	return pipeline.HandlerResult{
		Success: true,
		Message: answer.Text,
		Data:    map[string]any{"citations": citations},
	}, nil
}

// resolveFromDurableStore is the durable-store rung of the truth-priority
// ladder (realtime API > durable store > spec/docs > memory): if the
// question names a preference the user already told the assistant
// directly, that beats a freeform retrieval+synthesis answer. No
// realtime-API or spec-docs rung is registered here, since this handler
// has no such source to ask; the resolver still refuses to guess past
// whatever rungs are registered.
func (h *handlerSet) resolveFromDurableStore(ctx context.Context, turnCtx pipeline.Context, question string) (string, bool) {
	resolver := truthsource.New()
	lower := strings.ToLower(question)
	_ = resolver.Register(truthsource.SourceDurableStore, func(context.Context) (string, bool, error) {
		for key, value := range turnCtx.Preferences {
			if value != "" && strings.Contains(lower, strings.ToLower(key)) {
				return value, true, nil
			}
		}
		return "", false, nil
	})

	value, _, err := resolver.Resolve(ctx)
	if err != nil {
		return "", false
	}
	return value, true
}
