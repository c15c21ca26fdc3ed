// Package orchestrator implements the State Orchestrator (C8): routing a
// turn to its matching continuation when a multi-step session is active,
// or running the normal Understanding → Decision → Execution pipeline
// otherwise (spec.md §4.8).
package orchestrator

import (
	"context"
	"errors"
	"time"

	"cogcore/internal/authorization"
	"cogcore/internal/decision"
	"cogcore/internal/pipeline"
	"cogcore/internal/state"
	"cogcore/internal/telemetry"
	"cogcore/internal/understanding"
)

// autoApproveDefault is the floor auth verdict handed to Decide: it never
// loosens anything, since Decide re-runs the gate itself against the
// winning candidate once scoring picks one and keeps whichever verdict is
// stricter (see decision.Decide). It only matters when no candidate clears
// the score threshold at all, in which case Decide falls back to
// general_conversation without a gate re-evaluation.
func autoApproveDefault() authorization.Result {
	return authorization.Result{Decision: pipeline.AuthAutoApprove, EnforcementAction: pipeline.EnforcementNone}
}

// Executor runs a finalized DecisionResult and normalizes its outcome.
// Defined here rather than imported so orchestrator has no dependency on
// Execution's construction details, only its contract.
type Executor interface {
	Execute(ctx context.Context, dec pipeline.DecisionResult, turnCtx pipeline.Context, msg pipeline.Message) pipeline.HandlerResult
}

// Orchestrator routes inbound turns against active ConversationState.
type Orchestrator struct {
	store      state.Store
	understand *understanding.Service
	decide     *decision.Service
	execute    Executor
	auditor    Auditor
	learn      Learner
	log        telemetry.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

func WithLogger(l telemetry.Logger) Option { return func(o *Orchestrator) { o.log = l } }

// WithAuditor wires C13: every state write is wrapped to emit a
// state_transition event, and every normal-pipeline decision emits a
// gate_decision event.
func WithAuditor(a Auditor) Option { return func(o *Orchestrator) { o.auditor = a } }

// WithLearner wires C11: every completed decision (normal pipeline or
// confirmation-resolved) records an outcome.
func WithLearner(l Learner) Option { return func(o *Orchestrator) { o.learn = l } }

// New constructs an Orchestrator.
func New(store state.Store, understand *understanding.Service, decide *decision.Service, execute Executor, opts ...Option) *Orchestrator {
	o := &Orchestrator{store: store, understand: understand, decide: decide, execute: execute, log: telemetry.NoopLogger{}}
	for _, opt := range opts {
		opt(o)
	}
	o.store = newAuditingStore(o.store, o.auditor)
	return o
}

// emitGateDecision records Decision's verdict for one turn, fire-and-forget.
func (o *Orchestrator) emitGateDecision(msg pipeline.Message, dec pipeline.DecisionResult) {
	if o.auditor == nil {
		return
	}
	outcome := "auto_approved"
	switch {
	case isForcedEnforcement(dec.EnforcementAction):
		outcome = "enforcement_action"
	case dec.NeedsConfirmation:
		outcome = "confirmation_required"
	}
	go o.auditor.EmitGateDecision(context.Background(), pipeline.AuditEvent{
		Event:             "gate_decision",
		Tenant:            msg.OrgID,
		UserHash:          hashUser(msg.UserID),
		Action:            dec.Action,
		RiskLevel:         dec.RiskLevel,
		Confidence:        dec.Confidence,
		EnforcementAction: dec.EnforcementAction,
		Outcome:           outcome,
		At:                time.Now(),
	})
}

// isForcedEnforcement reports whether dec's EnforcementAction mandates
// bypassing normal confirmation/execution entirely (spec.md §4.6 S6).
func isForcedEnforcement(action pipeline.EnforcementAction) bool {
	return action == pipeline.EnforcementForceListening || action == pipeline.EnforcementBlockAndSuggest
}

// recordOutcome logs one completed decision to C11, fire-and-forget.
func (o *Orchestrator) recordOutcome(dec pipeline.DecisionResult, tenant string, success bool, reasonCode string) {
	if o.learn == nil {
		return
	}
	go o.learn.RecordOutcome(context.Background(), dec, tenant, success, reasonCode)
}

// RouteTurn is the single entry point for every inbound message.
func (o *Orchestrator) RouteTurn(ctx context.Context, msg pipeline.Message, turnCtx pipeline.Context) pipeline.Response {
	start := time.Now()

	if containsStopWord(msg.Text) {
		_ = o.store.Clear(ctx, msg.OrgID, msg.RoomID, msg.UserID, "explicit_stop_word")
		return finalize(pipeline.Response{
			Message:      "Okay, cancelled.",
			StateChanged: true,
			NewState:     string(pipeline.StateNormal),
			Success:      true,
		}, start)
	}

	current, err := o.store.GetCurrent(ctx, msg.OrgID, msg.RoomID, msg.UserID)
	if err != nil {
		if !errors.Is(err, state.ErrNotFound) {
			o.log.Warn("orchestrator_get_current_failed", map[string]any{"error_kind": "state_store_error"})
		}
		return finalize(o.runNormalPipeline(ctx, msg, turnCtx), start)
	}

	resp := o.routeActive(ctx, current, msg, turnCtx)
	return finalize(resp, start)
}

// routeActive dispatches to the handler matching the active state's type.
func (o *Orchestrator) routeActive(ctx context.Context, current state.ConversationState, msg pipeline.Message, turnCtx pipeline.Context) pipeline.Response {
	switch current.StateType {
	case pipeline.StateGoalSetting:
		return o.handleGoalSetting(ctx, current, msg, turnCtx)
	case pipeline.StateAnnouncement:
		return o.handleAnnouncement(ctx, current, msg, turnCtx)
	case pipeline.StateConfirmation:
		return o.handleConfirmation(ctx, current, msg, turnCtx)
	case pipeline.StateTaskPending:
		return o.handleTaskPending(ctx, current, msg, turnCtx)
	case pipeline.StateListContext:
		return o.handleListContext(ctx, current, msg, turnCtx)
	default:
		return o.runNormalPipeline(ctx, msg, turnCtx)
	}
}

// runNormalPipeline runs Understanding → Decision → Execution with no
// active session state. Decide internally re-evaluates the Authorization
// Gate against whichever capability scoring picks, so passing a plain
// auto-approve placeholder here is safe: it never overrides the gate's own
// verdict, it only supplies a floor for when Decide has no winner to
// evaluate against.
func (o *Orchestrator) runNormalPipeline(ctx context.Context, msg pipeline.Message, turnCtx pipeline.Context) pipeline.Response {
	result := o.understand.Understand(ctx, msg, turnCtx)

	dec := o.decide.Decide(msg.OrgID, msg.UserID, msg.Text, result, turnCtx, autoApproveDefault())
	o.emitGateDecision(msg, dec)

	if isForcedEnforcement(dec.EnforcementAction) {
		o.recordOutcome(dec, msg.OrgID, true, "enforcement_action")
		return pipeline.Response{
			Message:     dec.RedirectMessage,
			ActionTaken: dec.Action,
			Success:     true,
		}
	}

	if dec.NeedsConfirmation {
		return o.beginConfirmation(ctx, msg, dec)
	}

	handlerResult := o.execute.Execute(ctx, dec, turnCtx, msg)
	o.recordOutcome(dec, msg.OrgID, handlerResult.Success, "normal_pipeline")

	if handlerResult.Metadata.AwaitingInput {
		o.beginPendingState(ctx, msg, handlerResult)
	}

	return responseFromHandlerResult(dec, handlerResult)
}

// beginPendingState opens a new multi-step session when a handler reports
// it needs another turn of input. The handler names the target state type
// via Metadata.NewState (e.g. "LIST_CONTEXT", "GOAL_SETTING") rather than
// the orchestrator guessing it from the data shape. A handler starting a
// field-by-field flow names the Data key the next reply answers through
// the "_next_step" convention in PendingData (see advancePendingData).
func (o *Orchestrator) beginPendingState(ctx context.Context, msg pipeline.Message, hr pipeline.HandlerResult) {
	stateType := pipeline.StateType(hr.Metadata.NewState)
	if stateType == "" || stateType == pipeline.StateNormal {
		return
	}
	step, data := splitNextStep(hr.Metadata.PendingData)
	timeout := time.Duration(0)
	if stateType == pipeline.StateListContext {
		timeout = state.ListContextTimeout
	}
	if _, err := o.store.TransitionTo(ctx, msg.OrgID, msg.RoomID, msg.UserID, stateType, step, data, "", "", timeout, "awaiting_input"); err != nil {
		o.log.Warn("orchestrator_begin_pending_state_failed", map[string]any{"error_kind": "state_store_error"})
	}
}

// advancePendingData persists a handler's continuation data for a session
// that stays active across another turn (as opposed to beginPendingState,
// which opens one). Handlers never touch the state store themselves; this
// is the only place PendingData from a mid-flow HandlerResult is written.
func (o *Orchestrator) advancePendingData(ctx context.Context, msg pipeline.Message, current state.ConversationState, hr pipeline.HandlerResult) {
	if !hr.Metadata.AwaitingInput || hr.Metadata.PendingData == nil {
		return
	}
	step, data := splitNextStep(hr.Metadata.PendingData)
	if step == "" {
		step = current.Step
	}
	if _, err := o.store.UpdateStep(ctx, msg.OrgID, msg.RoomID, msg.UserID, step, data, current.Version); err != nil {
		o.log.Warn("orchestrator_advance_pending_data_failed", map[string]any{"error_kind": "state_store_error"})
	}
}

// splitNextStep pulls the reserved "_next_step" key out of a handler's
// PendingData, if present, and returns it alongside the remaining map.
func splitNextStep(pendingData map[string]any) (step string, data map[string]any) {
	if pendingData == nil {
		return "", nil
	}
	data = make(map[string]any, len(pendingData))
	for k, v := range pendingData {
		if k == "_next_step" {
			step, _ = v.(string)
			continue
		}
		data[k] = v
	}
	return step, data
}

func finalize(resp pipeline.Response, start time.Time) pipeline.Response {
	resp.LatencyMS = time.Since(start).Milliseconds()
	return resp
}

func responseFromHandlerResult(dec pipeline.DecisionResult, hr pipeline.HandlerResult) pipeline.Response {
	return pipeline.Response{
		Message:              hr.Message,
		StateChanged:         hr.Metadata.NewState != "",
		NewState:             hr.Metadata.NewState,
		ActionTaken:          dec.Action,
		Success:              hr.Success,
		Suggestions:          hr.Suggestions,
		AwaitingConfirmation: hr.Metadata.AwaitingConfirmation,
		AwaitingInput:        hr.Metadata.AwaitingInput,
	}
}
