package orchestrator

import (
	"context"
	"strconv"
	"strings"

	"cogcore/internal/pipeline"
	"cogcore/internal/state"
)

var positiveTokens = []string{"yes", "ok", "okay", "sure", "go ahead", "お願い", "はい"}
var negativeTokens = []string{"no", "nope", "don't", "stop that", "やめる", "いいえ"}

const confirmRetriesKey = "_confirm_retries"

// beginConfirmation transitions into CONFIRMATION state with the decision
// awaiting a yes/no/numeric reply (spec.md §4.8).
func (o *Orchestrator) beginConfirmation(ctx context.Context, msg pipeline.Message, dec pipeline.DecisionResult) pipeline.Response {
	data := map[string]any{
		"pending_action": dec.Action,
		"pending_params": dec.Params,
	}
	if len(dec.ConfirmationOptions) > 0 {
		data["confirmation_options"] = dec.ConfirmationOptions
	}

	_, err := o.store.TransitionTo(ctx, msg.OrgID, msg.RoomID, msg.UserID, pipeline.StateConfirmation, "await_reply", data, "", "", 0, "confirmation_required")
	if err != nil {
		o.log.Warn("orchestrator_begin_confirmation_failed", map[string]any{"error_kind": "state_store_error"})
		return pipeline.Response{Message: "I couldn't set that up right now, sorry.", Success: false}
	}

	return pipeline.Response{
		Message:              "Should I go ahead with that?",
		StateChanged:         true,
		NewState:             string(pipeline.StateConfirmation),
		AwaitingConfirmation: true,
		Success:              true,
	}
}

// handleConfirmation parses the reply against the stored options. A parse
// failure increments a retry counter; after MaxConfirmationRetries failures
// the session is abandoned with a safe fallback (spec.md §4.8).
func (o *Orchestrator) handleConfirmation(ctx context.Context, current state.ConversationState, msg pipeline.Message, turnCtx pipeline.Context) pipeline.Response {
	decision, ok := parseConfirmationReply(msg.Text, optionsFromData(current.Data))

	if !ok {
		retries := 0
		switch v := current.Data[confirmRetriesKey].(type) {
		case int:
			retries = v
		case float64: // a JSON-backed store decodes numbers as float64
			retries = int(v)
		}
		retries++
		if retries >= state.MaxConfirmationRetries {
			_ = o.store.Clear(ctx, msg.OrgID, msg.RoomID, msg.UserID, "confirmation_retries_exhausted")
			return pipeline.Response{
				Message:      "I'm not sure what you meant, so I've cancelled that for now.",
				StateChanged: true,
				NewState:     string(pipeline.StateNormal),
				Success:      true,
			}
		}
		if _, err := o.store.UpdateStep(ctx, msg.OrgID, msg.RoomID, msg.UserID, current.Step, map[string]any{confirmRetriesKey: retries}, current.Version); err != nil {
			o.log.Warn("orchestrator_confirmation_retry_update_failed", map[string]any{"error_kind": "state_store_error"})
		}
		return pipeline.Response{Message: "Sorry, yes or no?", AwaitingConfirmation: true, Success: true}
	}

	if err := o.store.Clear(ctx, msg.OrgID, msg.RoomID, msg.UserID, "confirmation_resolved"); err != nil {
		o.log.Warn("orchestrator_confirmation_clear_failed", map[string]any{"error_kind": "state_store_error"})
	}

	if !decision {
		return pipeline.Response{Message: "Okay, I won't do that.", StateChanged: true, NewState: string(pipeline.StateNormal), Success: true}
	}

	action, _ := current.Data["pending_action"].(string)
	params, _ := current.Data["pending_params"].(map[string]any)
	dec := pipeline.DecisionResult{Action: action, Params: params}

	handlerResult := o.execute.Execute(ctx, dec, turnCtx, msg)
	o.recordOutcome(dec, msg.OrgID, handlerResult.Success, "confirmation_resolved")
	resp := responseFromHandlerResult(dec, handlerResult)
	resp.StateChanged = true
	resp.NewState = string(pipeline.StateNormal)
	return resp
}

func optionsFromData(data map[string]any) []pipeline.ConfirmationOption {
	opts, _ := data["confirmation_options"].([]pipeline.ConfirmationOption)
	return opts
}

// parseConfirmationReply returns (approved, matched). matched is false when
// the reply could not be parsed as numeric, positive, or negative.
func parseConfirmationReply(text string, options []pipeline.ConfirmationOption) (bool, bool) {
	trimmed := strings.TrimSpace(text)
	lower := strings.ToLower(trimmed)

	if n, err := strconv.Atoi(trimmed); err == nil {
		if n >= 1 && n <= len(options) {
			return true, true
		}
		return false, false
	}

	for _, tok := range positiveTokens {
		if strings.Contains(lower, tok) {
			return true, true
		}
	}
	for _, tok := range negativeTokens {
		if strings.Contains(lower, tok) {
			return false, true
		}
	}
	return false, false
}
