package orchestrator

import (
	"context"

	"cogcore/internal/pipeline"
	"cogcore/internal/state"
)

// handleAnnouncement passes the reply straight to the handler bound to the
// active announcement flow; the state is cleared once the handler signals
// completion or an explicit return to normal (spec.md §4.8).
func (o *Orchestrator) handleAnnouncement(ctx context.Context, current state.ConversationState, msg pipeline.Message, turnCtx pipeline.Context) pipeline.Response {
	dec := pipeline.DecisionResult{Action: "announcement_continue", Params: current.Data}
	handlerResult := o.execute.Execute(ctx, dec, turnCtx, msg)

	if handlerResult.Metadata.NewState == string(pipeline.StateNormal) || !handlerResult.Metadata.AwaitingInput {
		if err := o.store.Clear(ctx, msg.OrgID, msg.RoomID, msg.UserID, "announcement_completed"); err != nil {
			o.log.Warn("orchestrator_announcement_clear_failed", map[string]any{"error_kind": "state_store_error"})
		}
	} else {
		o.advancePendingData(ctx, msg, current, handlerResult)
	}

	resp := responseFromHandlerResult(dec, handlerResult)
	if !handlerResult.Metadata.AwaitingInput {
		resp.StateChanged = true
		resp.NewState = string(pipeline.StateNormal)
	}
	return resp
}
