package orchestrator

import (
	"context"
	"strconv"
	"strings"

	"cogcore/internal/pipeline"
	"cogcore/internal/state"
)

var firstItemTokens = []string{"最初の", "これ", "that one", "the first one", "first"}

// handleListContext resolves "1", "最初の", "これ" and similar references
// against the list of items stored after the prior list-producing tool ran.
// The state store's own ListContextTimeout already enforces the five-minute
// window: GetCurrent returns ErrNotFound once it has lapsed, so RouteTurn
// never reaches this handler for an expired list (spec.md §4.8).
func (o *Orchestrator) handleListContext(ctx context.Context, current state.ConversationState, msg pipeline.Message, turnCtx pipeline.Context) pipeline.Response {
	var items []string
	switch v := current.Data["items"].(type) {
	case []string:
		items = v
	case []any: // a JSON-backed store decodes string slices as []any
		for _, it := range v {
			if s, ok := it.(string); ok {
				items = append(items, s)
			}
		}
	}
	index, ok := resolveListReference(msg.Text, len(items))
	if !ok {
		return o.runNormalPipeline(ctx, msg, turnCtx)
	}

	action, _ := current.Data["list_action"].(string)
	if action == "" {
		action = "general_conversation"
	}

	dec := pipeline.DecisionResult{Action: action, Params: map[string]any{"selected_item": items[index]}}
	handlerResult := o.execute.Execute(ctx, dec, turnCtx, msg)
	return responseFromHandlerResult(dec, handlerResult)
}

// resolveListReference returns the zero-based index referenced by text, or
// ok=false if the text references nothing recognizable.
func resolveListReference(text string, itemCount int) (int, bool) {
	if itemCount == 0 {
		return 0, false
	}
	trimmed := strings.TrimSpace(text)
	if n, err := strconv.Atoi(trimmed); err == nil {
		if n >= 1 && n <= itemCount {
			return n - 1, true
		}
		return 0, false
	}

	lower := strings.ToLower(trimmed)
	for _, tok := range firstItemTokens {
		if strings.Contains(lower, tok) {
			return 0, true
		}
	}
	return 0, false
}
