// Package execution implements Execution (C9): handler lookup by action
// name, a per-handler timeout with a zero-retry policy, HandlerResult
// normalization, and PII-safe pre-audit param stripping (spec.md §4.9).
package execution

import (
	"context"
	"time"

	"cogcore/internal/capability"
	"cogcore/internal/pipeline"
	"cogcore/internal/telemetry"
)

// DefaultHandlerTimeout bounds a single handler invocation. Retries are the
// handler's own business; Execution never retries on its behalf.
const DefaultHandlerTimeout = 30 * time.Second

// DedupeWindow is the minimum window a handler must tolerate identical
// params being replayed without a duplicate side effect (spec.md §4.9
// handler contract, "deduplication window ≥ 5 s").
const DedupeWindow = 5 * time.Second

// piiKeys are stripped from params before any audit emission.
var piiKeys = []string{"message", "body", "content", "text"}

// Auditor is the minimal event sink Execution needs from C13. Declared
// locally so this package has no dependency on the audit package's
// construction details.
type Auditor interface {
	EmitToolCall(ctx context.Context, evt pipeline.AuditEvent)
}

// Deduper guards against replaying an identical handler call within
// DedupeWindow. Seen returns true if key was already marked within the
// window; Mark records it.
type Deduper interface {
	Seen(ctx context.Context, key string) (bool, error)
	Mark(ctx context.Context, key string) error
}

// Service runs capability handlers.
type Service struct {
	registry *capability.Registry
	auditor  Auditor
	dedupe   Deduper
	timeout  time.Duration
	log      telemetry.Logger
}

// Option configures a Service.
type Option func(*Service)

func WithAuditor(a Auditor) Option          { return func(s *Service) { s.auditor = a } }
func WithDeduper(d Deduper) Option          { return func(s *Service) { s.dedupe = d } }
func WithTimeout(d time.Duration) Option    { return func(s *Service) { s.timeout = d } }
func WithLogger(l telemetry.Logger) Option  { return func(s *Service) { s.log = l } }

// New constructs a Service over a capability Registry. Without a Deduper,
// deduplication is skipped (local/test runs); without an Auditor, no event
// is emitted.
func New(registry *capability.Registry, opts ...Option) *Service {
	s := &Service{registry: registry, timeout: DefaultHandlerTimeout, log: telemetry.NoopLogger{}}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Execute looks up the handler bound to dec.Action, applies the dedupe
// check, runs it under a timeout, normalizes its result, and emits an
// audit event with PII-bearing param keys stripped.
func (s *Service) Execute(ctx context.Context, dec pipeline.DecisionResult, turnCtx pipeline.Context, msg pipeline.Message) pipeline.HandlerResult {
	start := time.Now()

	handler, ok := s.registry.Handler(dec.Action)
	if !ok {
		return s.finish(ctx, dec, turnCtx, msg, start, pipeline.HandlerResult{
			Success: false,
			Message: "I don't know how to do that yet.",
		}, "handler_not_bound")
	}

	key := dedupeKey(msg.OrgID, msg.RoomID, msg.UserID, dec.Action, dec.Params)
	if s.dedupe != nil {
		seen, err := s.dedupe.Seen(ctx, key)
		if err != nil {
			s.log.Warn("execution_dedupe_check_failed", map[string]any{"error_kind": "dedupe_error"})
		} else if seen {
			return s.finish(ctx, dec, turnCtx, msg, start, pipeline.HandlerResult{
				Success: true,
				Message: "Already on it.",
			}, "deduplicated")
		}
	}

	hctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	result, err := s.invoke(hctx, handler, dec.Params, msg.RoomID, msg.OrgID, msg.SenderName, turnCtx)
	if err != nil {
		return s.finish(ctx, dec, turnCtx, msg, start, pipeline.HandlerResult{
			Success: false,
			Message: "That didn't go through; let's try again.",
		}, "handler_error")
	}

	if s.dedupe != nil {
		if err := s.dedupe.Mark(ctx, key); err != nil {
			s.log.Warn("execution_dedupe_mark_failed", map[string]any{"error_kind": "dedupe_error"})
		}
	}

	return s.finish(ctx, dec, turnCtx, msg, start, result, "success")
}

// invoke runs the handler and recovers from a panic so one broken handler
// cannot take down the turn; a panic is normalized into an error.
func (s *Service) invoke(ctx context.Context, handler capability.HandlerFunc, params map[string]any, roomID, orgID, senderName string, turnCtx pipeline.Context) (result pipeline.HandlerResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("execution_handler_panic", map[string]any{"error_kind": "handler_panic"})
			err = errHandlerPanic
		}
	}()
	return handler(ctx, params, roomID, orgID, senderName, turnCtx)
}

func (s *Service) finish(ctx context.Context, dec pipeline.DecisionResult, turnCtx pipeline.Context, msg pipeline.Message, start time.Time, result pipeline.HandlerResult, outcome string) pipeline.HandlerResult {
	if s.auditor != nil {
		s.auditor.EmitToolCall(ctx, pipeline.AuditEvent{
			Event:      "tool_call",
			Tenant:     msg.OrgID,
			UserHash:   hashUser(msg.UserID),
			Action:     dec.Action,
			RiskLevel:  dec.RiskLevel,
			Confidence: dec.Confidence,
			Params:     stripPII(dec.Params),
			LatencyMS:  time.Since(start).Milliseconds(),
			Outcome:    outcome,
			At:         start,
		})
	}
	return result
}

func dedupeKey(orgID, roomID, userID, action string, params map[string]any) string {
	return orgID + "|" + roomID + "|" + userID + "|" + action + "|" + stableParamsKey(params)
}

func stripPII(params map[string]any) map[string]any {
	if params == nil {
		return nil
	}
	stripped := make(map[string]any, len(params))
	for k, v := range params {
		skip := false
		for _, pk := range piiKeys {
			if k == pk {
				skip = true
				break
			}
		}
		if skip {
			continue
		}
		stripped[k] = v
	}
	return stripped
}
