// Package proactive implements the Proactive Generator (C12): a
// scheduler-triggered entry point that builds a trimmed Context, drafts a
// message, and mandatorily traverses the Authorization Gate (C6) before
// anything reaches transport (spec.md §4.12).
package proactive

import (
	"context"
	"fmt"
	"time"

	"cogcore/internal/authorization"
	"cogcore/internal/contextbuilder"
	"cogcore/internal/llm"
	"cogcore/internal/pipeline"
	"cogcore/internal/telemetry"
)

// Trigger is the inbound scheduler call.
type Trigger struct {
	TriggerType string
	UserID      string
	TenantID    string
	RoomID      string
}

// TriggerProfile describes the capability-shaped risk metadata a trigger
// type carries, since a proactive message has no capability candidate of
// its own to look up in the registry.
type TriggerProfile struct {
	RiskLevel            pipeline.RiskLevel
	RequiresConfirmation bool
	DraftPrompt          string // system instruction used to draft the message
}

// Auditor is the minimal event sink this package needs from C13.
type Auditor interface {
	EmitProactiveAttempt(ctx context.Context, evt pipeline.AuditEvent)
}

// Generator drafts and gates proactive messages. Callers should construct
// its Builder with a shorter budget than a live conversational turn (e.g.
// contextbuilder.WithBudget(150*time.Millisecond)) since a proactive draft
// needs less context than a user-initiated turn.

type Generator struct {
	builder  *contextbuilder.Builder
	provider llm.Provider
	model    string
	profiles map[string]TriggerProfile
	auditor  Auditor
	log      telemetry.Logger
}

// Option configures a Generator.
type Option func(*Generator)

func WithAuditor(a Auditor) Option           { return func(g *Generator) { g.auditor = a } }
func WithLogger(l telemetry.Logger) Option   { return func(g *Generator) { g.log = l } }

// New constructs a Generator. profiles maps trigger_type to its risk
// profile; an unknown trigger type is treated as an unknown capability by
// the gate and defaults to REQUIRE_CONFIRMATION, which always drops a
// proactive message since there is no user turn to confirm against.
func New(access *contextbuilder.Builder, provider llm.Provider, model string, profiles map[string]TriggerProfile, opts ...Option) *Generator {
	g := &Generator{builder: access, provider: provider, model: model, profiles: profiles, log: telemetry.NoopLogger{}}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Run drafts a message for trigger and returns it only if it clears the
// gate as AUTO_APPROVE. Any other gate outcome drops the message with a
// logged reason; it is never handed back to a caller that could forward it
// to transport (spec.md §4.12 invariant).
func (g *Generator) Run(ctx context.Context, trigger Trigger) (string, bool) {
	start := time.Now()

	profile, known := g.profiles[trigger.TriggerType]

	turnCtx := g.builder.Build(ctx, trigger.TenantID, trigger.RoomID, trigger.UserID, "", pipeline.Message{})

	draft, err := g.draft(ctx, trigger, profile, turnCtx)
	if err != nil {
		g.emit(ctx, trigger, "", "draft_failed")
		return "", false
	}

	result := authorization.Evaluate(authorization.Input{
		CapabilityKnown:      known,
		RiskLevel:            profile.RiskLevel,
		RequiresConfirmation: profile.RequiresConfirmation,
		RawMessage:           draft,
	})

	if result.Decision != pipeline.AuthAutoApprove {
		g.log.Info("proactive_message_dropped", map[string]any{
			"trigger_type": trigger.TriggerType,
			"reason":       result.Reason,
			"latency_ms":   time.Since(start).Milliseconds(),
		})
		g.emit(ctx, trigger, result.Reason, "dropped")
		return "", false
	}

	g.emit(ctx, trigger, result.Reason, "emitted")
	return draft, true
}

func (g *Generator) draft(ctx context.Context, trigger Trigger, profile TriggerProfile, turnCtx pipeline.Context) (string, error) {
	prompt := profile.DraftPrompt
	if prompt == "" {
		prompt = fmt.Sprintf("Write a brief proactive message for trigger %q.", trigger.TriggerType)
	}

	msgs := []llm.Message{
		{Role: "system", Content: prompt},
		{Role: "user", Content: fmt.Sprintf("Conversation summary: %s\nActive goals: %d\nActive tasks: %d",
			turnCtx.ConversationSummary, len(turnCtx.ActiveGoals), len(turnCtx.ActiveTasks))},
	}
	resp, err := g.provider.Chat(ctx, msgs, nil, g.model)
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

func (g *Generator) emit(ctx context.Context, trigger Trigger, reason, outcome string) {
	if g.auditor == nil {
		return
	}
	g.auditor.EmitProactiveAttempt(ctx, pipeline.AuditEvent{
		Tenant:    trigger.TenantID,
		Action:    trigger.TriggerType,
		Outcome:   outcome,
		ErrorKind: reason,
	})
}
