package handlers

import (
	"context"
	"fmt"

	"cogcore/internal/pipeline"
)

// sendMessage resolves a recipient alias against the turn's known Persons
// and hands the composed message back to the caller. Actual delivery to the
// chat platform is a transport concern outside the core (spec.md §1
// non-goals); this handler only resolves "who" and confirms "what".
func (h *handlerSet) sendMessage(ctx context.Context, params map[string]any, roomID, orgID, senderName string, turnCtx pipeline.Context) (pipeline.HandlerResult, error) {
	recipientAlias := stringParam(params, "recipient")
	body := stringParam(params, "message")

	recipient := recipientAlias
	for _, p := range turnCtx.Persons {
		if matchesAlias(p, recipientAlias) {
			recipient = p.Name
			break
		}
	}

	if recipient == "" || body == "" {
		return pipeline.HandlerResult{Success: false, Message: "誰に何を送るか教えてください。"}, nil
	}

	return pipeline.HandlerResult{
		Success: true,
		Message: fmt.Sprintf("%sさんに伝えます: %s", recipient, body),
		Data:    map[string]any{"recipient": recipient},
	}, nil
}

func matchesAlias(p pipeline.Person, alias string) bool {
	if alias == "" {
		return false
	}
	if p.Name == alias {
		return true
	}
	for _, a := range p.Aliases {
		if a == alias {
			return true
		}
	}
	return false
}
