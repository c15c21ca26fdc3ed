package orchestrator

import (
	"context"

	"cogcore/internal/pipeline"
	"cogcore/internal/state"
)

// requiredTaskFields lists the fields a task needs before TASK_PENDING can
// complete (spec.md §4.8).
var requiredTaskFields = []string{"task_body", "assigned_to", "limit_date"}

// handleTaskPending prompts for exactly the fields still missing. The
// current reply is assumed to answer current.Step; it is merged into Data
// and the next missing field (if any) becomes the new Step.
func (o *Orchestrator) handleTaskPending(ctx context.Context, current state.ConversationState, msg pipeline.Message, turnCtx pipeline.Context) pipeline.Response {
	delta := map[string]any{current.Step: msg.Text}

	merged := make(map[string]any, len(current.Data)+1)
	for k, v := range current.Data {
		merged[k] = v
	}
	merged[current.Step] = msg.Text

	missing := firstMissingTaskField(merged)
	if missing == "" {
		dec := pipeline.DecisionResult{Action: "create_task", Params: merged}
		handlerResult := o.execute.Execute(ctx, dec, turnCtx, msg)
		if err := o.store.Clear(ctx, msg.OrgID, msg.RoomID, msg.UserID, "task_pending_completed"); err != nil {
			o.log.Warn("orchestrator_task_clear_failed", map[string]any{"error_kind": "state_store_error"})
		}
		resp := responseFromHandlerResult(dec, handlerResult)
		resp.StateChanged = true
		resp.NewState = string(pipeline.StateNormal)
		return resp
	}

	if _, err := o.store.UpdateStep(ctx, msg.OrgID, msg.RoomID, msg.UserID, missing, delta, current.Version); err != nil {
		o.log.Warn("orchestrator_task_update_failed", map[string]any{"error_kind": "state_store_error"})
		return pipeline.Response{Message: "Something went wrong with that task; let's start over.", Success: false}
	}

	return pipeline.Response{
		Message:       promptForField(missing),
		AwaitingInput: true,
		Success:       true,
	}
}

func firstMissingTaskField(data map[string]any) string {
	for _, f := range requiredTaskFields {
		if v, ok := data[f]; !ok || v == "" {
			return f
		}
	}
	return ""
}

func promptForField(field string) string {
	switch field {
	case "task_body":
		return "What's the task?"
	case "assigned_to":
		return "Who should this be assigned to?"
	case "limit_date":
		return "When's it due?"
	default:
		return "What else do you need to tell me?"
	}
}
