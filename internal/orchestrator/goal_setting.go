package orchestrator

import (
	"context"

	"cogcore/internal/pipeline"
	"cogcore/internal/state"
)

// handleGoalSetting re-runs Understanding on the reply before treating it
// as the session's next answer. A continuation intent keeps the session
// alive; anything else interrupts it: the partial progress is saved, the
// state cleared, the new intent executed, and a reminder appended so the
// user knows the goal flow can be resumed (spec.md §4.8).
func (o *Orchestrator) handleGoalSetting(ctx context.Context, current state.ConversationState, msg pipeline.Message, turnCtx pipeline.Context) pipeline.Response {
	understood := o.understand.Understand(ctx, msg, turnCtx)
	if isContinuationIntent(msg.Text, understood) {
		return o.continueGoalSetting(ctx, current, msg, turnCtx)
	}

	sess := state.InterruptedSession{
		OrgID:          msg.OrgID,
		RoomID:         msg.RoomID,
		UserID:         msg.UserID,
		StateType:      current.StateType,
		Step:           current.Step,
		PartialAnswers: current.Data,
		ReferenceID:    current.ReferenceID,
	}
	if err := o.store.SaveInterruptedSession(ctx, sess); err != nil {
		o.log.Warn("orchestrator_save_interrupted_failed", map[string]any{"error_kind": "state_store_error"})
	}
	if err := o.store.Clear(ctx, msg.OrgID, msg.RoomID, msg.UserID, "interrupted_by_new_intent"); err != nil {
		o.log.Warn("orchestrator_clear_failed", map[string]any{"error_kind": "state_store_error"})
	}

	resp := o.runNormalPipeline(ctx, msg, turnCtx)
	resp.Message += "\n\n(You can pick your goal-setting conversation back up any time.)"
	return resp
}

// continueGoalSetting merges the reply into the session's Data and hands
// control to the capability handler bound to this session's goal-setting
// flow via a raw UpdateStep; the handler reached through Execution decides
// what Data key to populate and whether the flow is complete.
func (o *Orchestrator) continueGoalSetting(ctx context.Context, current state.ConversationState, msg pipeline.Message, turnCtx pipeline.Context) pipeline.Response {
	delta := map[string]any{current.Step: msg.Text}
	updated, err := o.store.UpdateStep(ctx, msg.OrgID, msg.RoomID, msg.UserID, current.Step, delta, current.Version)
	if err != nil {
		o.log.Warn("orchestrator_update_step_failed", map[string]any{"error_kind": "state_store_error"})
		return pipeline.Response{Message: "Something went wrong continuing that; let's start over.", Success: false}
	}

	dec := pipeline.DecisionResult{Action: "goal_setting_continue", Params: updated.Data}
	handlerResult := o.execute.Execute(ctx, dec, turnCtx, msg)

	if !handlerResult.Metadata.AwaitingInput {
		if err := o.store.Clear(ctx, msg.OrgID, msg.RoomID, msg.UserID, "goal_setting_completed"); err != nil {
			o.log.Warn("orchestrator_goal_clear_failed", map[string]any{"error_kind": "state_store_error"})
		}
		resp := responseFromHandlerResult(dec, handlerResult)
		resp.StateChanged = true
		resp.NewState = string(pipeline.StateNormal)
		return resp
	}

	o.advancePendingData(ctx, msg, updated, handlerResult)
	return responseFromHandlerResult(dec, handlerResult)
}
