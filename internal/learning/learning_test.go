package learning

import (
	"context"
	"sync"
	"testing"
	"time"

	"cogcore/internal/pipeline"
)

type fakeOutcomeSink struct {
	mu       sync.Mutex
	outcomes []Outcome
}

func (f *fakeOutcomeSink) WriteOutcome(ctx context.Context, o Outcome) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outcomes = append(f.outcomes, o)
	return nil
}

func (f *fakeOutcomeSink) snapshot() []Outcome {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Outcome, len(f.outcomes))
	copy(out, f.outcomes)
	return out
}

type fakeReviewQueue struct {
	mu      sync.Mutex
	queued  []Outcome
}

func (f *fakeReviewQueue) Enqueue(ctx context.Context, o Outcome) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queued = append(f.queued, o)
	return nil
}

func (f *fakeReviewQueue) snapshot() []Outcome {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Outcome, len(f.queued))
	copy(out, f.queued)
	return out
}

type fakeFeedbackSink struct {
	mu        sync.Mutex
	feedbacks []Feedback
}

func (f *fakeFeedbackSink) WriteFeedback(ctx context.Context, fb Feedback) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.feedbacks = append(f.feedbacks, fb)
	return nil
}

func (f *fakeFeedbackSink) snapshot() []Feedback {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Feedback, len(f.feedbacks))
	copy(out, f.feedbacks)
	return out
}

func waitUntil(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("condition never became true")
}

func TestRecordOutcome_WritesToOutcomeSink(t *testing.T) {
	outcomes := &fakeOutcomeSink{}
	svc := New(outcomes)

	svc.RecordOutcome(context.Background(), pipeline.DecisionResult{DecisionID: "d1", Action: "create_task", Confidence: 0.9, RiskLevel: pipeline.RiskLow}, "org1", true, "completed")

	waitUntil(t, func() bool { return len(outcomes.snapshot()) == 1 })
	got := outcomes.snapshot()[0]
	if got.Action != "create_task" || !got.Success {
		t.Fatalf("unexpected outcome recorded: %#v", got)
	}
}

func TestRecordOutcome_LowConfidenceSeedsReviewQueue(t *testing.T) {
	outcomes := &fakeOutcomeSink{}
	review := &fakeReviewQueue{}
	svc := New(outcomes, WithReviewQueueSink(review))

	svc.RecordOutcome(context.Background(), pipeline.DecisionResult{DecisionID: "d2", Action: "send_message", Confidence: 0.3, RiskLevel: pipeline.RiskMedium}, "org1", false, "low_confidence")

	waitUntil(t, func() bool { return len(review.snapshot()) == 1 })
}

func TestRecordOutcome_HighConfidenceSkipsReviewQueue(t *testing.T) {
	outcomes := &fakeOutcomeSink{}
	review := &fakeReviewQueue{}
	svc := New(outcomes, WithReviewQueueSink(review))

	svc.RecordOutcome(context.Background(), pipeline.DecisionResult{DecisionID: "d3", Action: "send_message", Confidence: 0.95, RiskLevel: pipeline.RiskMedium}, "org1", true, "completed")

	waitUntil(t, func() bool { return len(outcomes.snapshot()) == 1 })
	if len(review.snapshot()) != 0 {
		t.Fatalf("expected no review queue entry for high-confidence outcome")
	}
}

func TestRecordFeedback_RejectsUnrecognizedSentiment(t *testing.T) {
	svc := New(&fakeOutcomeSink{})
	if err := svc.RecordFeedback(context.Background(), "d1", "org1", FeedbackSentiment("angry")); err == nil {
		t.Fatalf("expected an error for an unrecognized sentiment")
	}
}

func TestRecordFeedback_WritesValidSentiment(t *testing.T) {
	feedback := &fakeFeedbackSink{}
	svc := New(&fakeOutcomeSink{}, WithFeedbackSink(feedback))

	if err := svc.RecordFeedback(context.Background(), "d1", "org1", FeedbackWrong); err != nil {
		t.Fatalf("RecordFeedback: %v", err)
	}
	waitUntil(t, func() bool { return len(feedback.snapshot()) == 1 })
	if feedback.snapshot()[0].Sentiment != FeedbackWrong {
		t.Fatalf("unexpected feedback recorded: %#v", feedback.snapshot()[0])
	}
}
