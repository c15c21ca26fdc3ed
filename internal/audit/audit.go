// Package audit implements the Audit & Observability Bridge (C13):
// structured, PII-redacted emission of every gate decision, tool call,
// state transition, and proactive attempt (spec.md §4.13).
package audit

import (
	"context"

	"cogcore/internal/pipeline"
	"cogcore/internal/telemetry"
)

// piiKeys are redacted from AuditEvent.Params defensively, even though
// Execution (C9) already strips them before constructing an event — a
// caller outside Execution (Orchestrator, Proactive) may emit directly.
var piiKeys = []string{"message", "body", "content", "text"}

// Sink is one durable or streaming destination for audit events.
type Sink interface {
	Write(ctx context.Context, evt pipeline.AuditEvent) error
}

// Service fans an event out to every configured Sink, fire-and-forget: a
// sink failure is logged, never returned to the caller and never allowed
// to block the hot path that triggered the event.
type Service struct {
	sinks []Sink
	log   telemetry.Logger
}

// Option configures a Service.
type Option func(*Service)

func WithLogger(l telemetry.Logger) Option { return func(s *Service) { s.log = l } }

// New constructs a Service over zero or more sinks. Zero sinks is valid:
// events are redacted and then simply dropped, useful for local runs.
func New(sinks []Sink, opts ...Option) *Service {
	s := &Service{sinks: sinks, log: telemetry.NoopLogger{}}
	for _, o := range opts {
		o(s)
	}
	return s
}

// EmitToolCall satisfies execution.Auditor.
func (s *Service) EmitToolCall(ctx context.Context, evt pipeline.AuditEvent) {
	s.emit(ctx, evt)
}

// EmitGateDecision records an Authorization Gate verdict.
func (s *Service) EmitGateDecision(ctx context.Context, evt pipeline.AuditEvent) {
	evt.Event = "gate_decision"
	s.emit(ctx, evt)
}

// EmitStateTransition records a ConversationState transition.
func (s *Service) EmitStateTransition(ctx context.Context, evt pipeline.AuditEvent) {
	evt.Event = "state_transition"
	s.emit(ctx, evt)
}

// EmitProactiveAttempt records a scheduler-triggered proactive run,
// including ones the gate silently dropped (spec.md §4.12 invariant 10).
func (s *Service) EmitProactiveAttempt(ctx context.Context, evt pipeline.AuditEvent) {
	evt.Event = "proactive_attempt"
	s.emit(ctx, evt)
}

// emit redacts the event and writes it on a detached context: the request
// that triggered it may already be done by the time this goroutine runs,
// and a fire-and-forget audit write must not inherit its cancellation.
func (s *Service) emit(ctx context.Context, evt pipeline.AuditEvent) {
	evt.Params = redact(evt.Params)
	if evt.Event == "" {
		evt.Event = "tool_call"
	}

	go func() {
		defer func() {
			if r := recover(); r != nil {
				s.log.Error("audit_sink_panic", map[string]any{"error_kind": "audit_sink_panic"})
			}
		}()
		writeCtx := context.Background()
		for _, sink := range s.sinks {
			if err := sink.Write(writeCtx, evt); err != nil {
				s.log.Warn("audit_sink_write_failed", map[string]any{"error_kind": "audit_sink_error"})
			}
		}
	}()
}

func redact(params map[string]any) map[string]any {
	if params == nil {
		return nil
	}
	clean := make(map[string]any, len(params))
	for k, v := range params {
		redacted := false
		for _, pk := range piiKeys {
			if k == pk {
				redacted = true
				break
			}
		}
		if !redacted {
			clean[k] = v
		}
	}
	return clean
}
