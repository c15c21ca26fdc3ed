// Package understanding implements Understanding (C5): intent, entity,
// pronoun, and alias resolution plus urgency/emotion detection, with an
// optional LLM refinement pass when keyword confidence is weak
// (spec.md §4.5).
package understanding

import (
	"context"
	"strings"

	"cogcore/internal/capability"
	"cogcore/internal/llm"
	"cogcore/internal/pipeline"
	"cogcore/internal/telemetry"
)

// llmConfidenceFloor is the keyword-confidence threshold below which an
// optional LLM refinement pass is attempted.
const llmConfidenceFloor = 0.7

// minAcceptableConfidence below this, the result is forced to general
// conversation with a clarification flag (spec.md §4.5 step "Confidence
// combines...").
const minAcceptableConfidence = 0.5

// Service resolves UnderstandingResult for one turn.
type Service struct {
	registry *capability.Registry
	refiner  llm.Provider
	model    string
	log      telemetry.Logger
	metrics  telemetry.Metrics
}

// Option configures a Service.
type Option func(*Service)

func WithRefiner(p llm.Provider, model string) Option {
	return func(s *Service) { s.refiner = p; s.model = model }
}
func WithLogger(l telemetry.Logger) Option   { return func(s *Service) { s.log = l } }
func WithMetrics(m telemetry.Metrics) Option { return func(s *Service) { s.metrics = m } }

// New constructs a Service over a capability Registry. The LLM refiner is
// optional; without one, Understand runs on keyword signals alone.
func New(registry *capability.Registry, opts ...Option) *Service {
	s := &Service{registry: registry, log: telemetry.NoopLogger{}, metrics: telemetry.NoopMetrics{}}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Understand runs the full resolution pipeline for one message against its
// turn Context.
func (s *Service) Understand(ctx context.Context, msg pipeline.Message, turnCtx pipeline.Context) pipeline.UnderstandingResult {
	text := msg.Text
	candidates := s.registry.Candidates(text)

	intent := "general_conversation"
	keywordConfidence := 0.0
	if len(candidates) > 0 {
		intent = candidates[0].Capability.Name
		keywordConfidence = candidates[0].KeywordScore
	}

	entities := map[string]string{}

	pronouns, pronounConfidence, needsClarificationFromPronoun := resolvePronouns(text, turnCtx.RecentConversation)

	needsConfirmation := false
	if alias, multiMatch := resolvePersonAlias(text, turnCtx.Persons); alias != "" {
		entities["person"] = alias
		if multiMatch {
			entities["person_ambiguous"] = "true"
			needsConfirmation = true
		}
	}

	expr, exprAmbiguous := resolveContextExpression(text, turnCtx)
	if expr != "" {
		entities["context_expression"] = expr
	}

	urgency := classifyUrgency(text)
	emotion := classifyEmotion(text)

	needsClarification := needsClarificationFromPronoun || exprAmbiguous

	confidence := keywordConfidence
	if s.refiner != nil && keywordConfidence < llmConfidenceFloor {
		if refined, ok := s.refine(ctx, text, turnCtx, intent); ok {
			intent = refined.intent
			confidence = combineConfidence(keywordConfidence, refined.confidence)
		}
	}

	if confidence < minAcceptableConfidence {
		intent = "general_conversation"
		needsClarification = true
	}

	if pronounConfidence > 0 && pronounConfidence < 0.7 {
		needsClarification = true
	}

	return pipeline.UnderstandingResult{
		Intent:             intent,
		IntentConfidence:   confidence,
		Entities:           entities,
		ResolvedPronouns:   pronouns,
		Urgency:            urgency,
		Emotion:            emotion,
		RawMessage:         text,
		NeedsClarification: needsClarification,
		NeedsConfirmation:  needsConfirmation,
	}
}

// combineConfidence weights the LLM's verdict more heavily than the
// keyword score that triggered refinement in the first place — the
// refinement pass only runs when the keyword signal was already weak.
func combineConfidence(keyword, llmAgreement float64) float64 {
	combined := 0.3*keyword + 0.7*llmAgreement
	if combined > 1.0 {
		combined = 1.0
	}
	return combined
}

func normalize(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}
