package orchestrator

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"cogcore/internal/pipeline"
	"cogcore/internal/state"
)

// Auditor is the minimal event sink Orchestrator needs from C13: one
// gate_decision event per decided turn, and one state_transition event per
// state write. Declared locally so this package has no dependency on
// audit's construction details.
type Auditor interface {
	EmitGateDecision(ctx context.Context, evt pipeline.AuditEvent)
	EmitStateTransition(ctx context.Context, evt pipeline.AuditEvent)
}

// Learner is the minimal outcome sink Orchestrator needs from C11.
type Learner interface {
	RecordOutcome(ctx context.Context, dec pipeline.DecisionResult, tenant string, success bool, reasonCode string)
}

// hashUser one-way hashes a user id for audit events; the raw id never
// appears in an emitted event (spec.md §4.13).
func hashUser(userID string) string {
	sum := sha256.Sum256([]byte(userID))
	return hex.EncodeToString(sum[:])[:16]
}

// auditingStore wraps a state.Store so every TransitionTo/UpdateStep/Clear
// call emits a state_transition event, fire-and-forget on a detached
// context (spec.md §5: audit writes must not block the response).
// Centralizing the emission here means the half-dozen call sites spread
// across orchestrator.go, confirmation.go, goal_setting.go, task_pending.go
// and announcement.go never have to remember to audit their own writes.
type auditingStore struct {
	state.Store
	auditor Auditor
}

// newAuditingStore returns inner unwrapped when auditor is nil, so a
// deployment without an Auditor configured pays no overhead.
func newAuditingStore(inner state.Store, auditor Auditor) state.Store {
	if auditor == nil {
		return inner
	}
	return &auditingStore{Store: inner, auditor: auditor}
}

func (s *auditingStore) TransitionTo(ctx context.Context, orgID, roomID, userID string, toType pipeline.StateType, toStep string, data map[string]any, refType, refID string, timeout time.Duration, reason string) (state.ConversationState, error) {
	result, err := s.Store.TransitionTo(ctx, orgID, roomID, userID, toType, toStep, data, refType, refID, timeout, reason)
	s.emit(orgID, userID, "transition_to:"+string(toType), reason, err)
	return result, err
}

func (s *auditingStore) UpdateStep(ctx context.Context, orgID, roomID, userID, step string, dataDelta map[string]any, expectedVersion int) (state.ConversationState, error) {
	result, err := s.Store.UpdateStep(ctx, orgID, roomID, userID, step, dataDelta, expectedVersion)
	s.emit(orgID, userID, "update_step:"+step, "", err)
	return result, err
}

func (s *auditingStore) Clear(ctx context.Context, orgID, roomID, userID, reason string) error {
	err := s.Store.Clear(ctx, orgID, roomID, userID, reason)
	s.emit(orgID, userID, "clear", reason, err)
	return err
}

func (s *auditingStore) emit(orgID, userID, action, reason string, err error) {
	outcome := "ok"
	errKind := ""
	if err != nil {
		outcome = "error"
		errKind = "state_store_error"
	}
	var params map[string]any
	if reason != "" {
		params = map[string]any{"reason": reason}
	}
	evt := pipeline.AuditEvent{
		Tenant:    orgID,
		UserHash:  hashUser(userID),
		Action:    action,
		Params:    params,
		Outcome:   outcome,
		ErrorKind: errKind,
		At:        time.Now(),
	}
	go s.auditor.EmitStateTransition(context.Background(), evt)
}
