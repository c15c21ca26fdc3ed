// Package learning implements Learning / Outcome Recording (C11):
// fire-and-forget outcome logging, explicit-feedback capture tied to a
// prior decision id, and low-confidence review-queue seeding (spec.md
// §4.11). Content is never written — only factual meta.
package learning

import (
	"context"
	"fmt"

	"cogcore/internal/pipeline"
	"cogcore/internal/telemetry"
)

// LowConfidenceReviewThreshold: outcomes at or below this confidence are
// additionally seeded into the review queue, separate from the hot-path
// outcome log (spec.md §9, "Low-confidence decisions seed a review queue").
const LowConfidenceReviewThreshold = 0.5

// Outcome is the PII-free record written for every completed decision.
type Outcome struct {
	DecisionID string
	Tenant     string
	Action     string
	Confidence float64
	Success    bool
	RiskLevel  pipeline.RiskLevel
	ReasonCode string
}

// FeedbackSentiment is the closed set of explicit feedback tokens.
type FeedbackSentiment string

const (
	FeedbackHelpful   FeedbackSentiment = "helpful"
	FeedbackWrong     FeedbackSentiment = "wrong"
	FeedbackIncomplete FeedbackSentiment = "incomplete"
)

// Feedback ties an explicit user reaction back to the decision it judges.
type Feedback struct {
	DecisionID string
	Tenant     string
	Sentiment  FeedbackSentiment
}

// OutcomeSink persists the hot-path outcome log.
type OutcomeSink interface {
	WriteOutcome(ctx context.Context, o Outcome) error
}

// FeedbackSink persists explicit feedback records.
type FeedbackSink interface {
	WriteFeedback(ctx context.Context, f Feedback) error
}

// ReviewQueueSink seeds the low-confidence review queue, a distinct table
// from the outcome log (spec.md §9).
type ReviewQueueSink interface {
	Enqueue(ctx context.Context, o Outcome) error
}

// Service records outcomes and feedback, fire-and-forget.
type Service struct {
	outcomes OutcomeSink
	feedback FeedbackSink
	review   ReviewQueueSink
	log      telemetry.Logger
}

// Option configures a Service.
type Option func(*Service)

func WithFeedbackSink(s FeedbackSink) Option { return func(svc *Service) { svc.feedback = s } }
func WithReviewQueueSink(s ReviewQueueSink) Option { return func(svc *Service) { svc.review = s } }
func WithLogger(l telemetry.Logger) Option   { return func(svc *Service) { svc.log = l } }

// New constructs a Service over the hot-path outcome sink.
func New(outcomes OutcomeSink, opts ...Option) *Service {
	svc := &Service{outcomes: outcomes, log: telemetry.NoopLogger{}}
	for _, o := range opts {
		o(svc)
	}
	return svc
}

// RecordOutcome appends {action, confidence, success, risk_level,
// reason_code} fire-and-forget, and seeds the review queue when confidence
// is at or below LowConfidenceReviewThreshold.
func (s *Service) RecordOutcome(ctx context.Context, dec pipeline.DecisionResult, tenant string, success bool, reasonCode string) {
	outcome := Outcome{
		DecisionID: dec.DecisionID,
		Tenant:     tenant,
		Action:     dec.Action,
		Confidence: dec.Confidence,
		Success:    success,
		RiskLevel:  dec.RiskLevel,
		ReasonCode: reasonCode,
	}

	go func() {
		defer func() {
			if r := recover(); r != nil {
				s.log.Error("learning_record_outcome_panic", map[string]any{"error_kind": "learning_panic"})
			}
		}()
		writeCtx := context.Background()
		if s.outcomes != nil {
			if err := s.outcomes.WriteOutcome(writeCtx, outcome); err != nil {
				s.log.Warn("learning_write_outcome_failed", map[string]any{"error_kind": "learning_sink_error"})
			}
		}
		if s.review != nil && outcome.Confidence <= LowConfidenceReviewThreshold {
			if err := s.review.Enqueue(writeCtx, outcome); err != nil {
				s.log.Warn("learning_enqueue_review_failed", map[string]any{"error_kind": "learning_sink_error"})
			}
		}
	}()
}

// RecordFeedback appends explicit feedback tied to a prior decision id.
// Returns an error synchronously only for an unrecognized sentiment; the
// write itself is still fire-and-forget.
func (s *Service) RecordFeedback(ctx context.Context, decisionID, tenant string, sentiment FeedbackSentiment) error {
	if !validSentiment(sentiment) {
		return fmt.Errorf("learning: unrecognized feedback sentiment %q", sentiment)
	}
	if s.feedback == nil {
		return nil
	}

	fb := Feedback{DecisionID: decisionID, Tenant: tenant, Sentiment: sentiment}
	go func() {
		defer func() {
			if r := recover(); r != nil {
				s.log.Error("learning_record_feedback_panic", map[string]any{"error_kind": "learning_panic"})
			}
		}()
		if err := s.feedback.WriteFeedback(context.Background(), fb); err != nil {
			s.log.Warn("learning_write_feedback_failed", map[string]any{"error_kind": "learning_sink_error"})
		}
	}()
	return nil
}

func validSentiment(s FeedbackSentiment) bool {
	switch s {
	case FeedbackHelpful, FeedbackWrong, FeedbackIncomplete:
		return true
	default:
		return false
	}
}
