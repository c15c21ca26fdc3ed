// Package decision implements Decision (C7): a weighted scoring function
// over candidate capabilities, multi-action split detection, and the
// confirmation-required rule that combines confidence, capability danger,
// and the Authorization Gate's verdict (spec.md §4.7).
package decision

import (
	"strings"

	"github.com/google/uuid"

	"cogcore/internal/authorization"
	"cogcore/internal/capability"
	"cogcore/internal/pipeline"
)

// Scoring weights. They sum to 1.0, with w_l fixed near 0.15 per spec.md
// §4.7 ("w_l ≈ 0.15"); the remaining weight is split across the other four
// positive terms and the negative penalty.
const (
	weightKeyword       = 0.30
	weightIntentMatch   = 0.20
	weightRecentUse     = 0.15
	weightLifeAxis      = 0.15
	weightContextFit    = 0.15
	weightNegativePenalty = 0.05
)

// CapabilityMinScoreThreshold is the floor a candidate's score must clear to
// be selected at all; below it, the result falls back to general_conversation.
const CapabilityMinScoreThreshold = 0.45

// confirmationConfidenceFloor below this combined confidence, confirmation
// is always required regardless of risk (spec.md §4.7).
const confirmationConfidenceFloor = 0.7

var multiActionSplitters = []string{"and then", "then", "、それから", "それから"}

// Signals supplies the usage-history scoring terms Decision cannot compute
// on its own: recent use and negative feedback. Life-axis alignment is
// computed from Context, not through Signals. Without a configured Signals,
// New uses neutralSignals.
type Signals interface {
	RecentUseScore(orgID, userID, capabilityName string) float64
	NegativeFeedbackScore(orgID, userID, capabilityName string) float64
}

// neutralSignals is the default Signals: recent use is a neutral 0.5 and
// negative feedback is 0.0 (no penalty).
type neutralSignals struct{}

func (neutralSignals) RecentUseScore(string, string, string) float64       { return 0.5 }
func (neutralSignals) NegativeFeedbackScore(string, string, string) float64 { return 0.0 }

// Service scores capability candidates into a DecisionResult.
type Service struct {
	registry *capability.Registry
	signals  Signals
}

// Option configures a Service.
type Option func(*Service)

// WithSignals supplies a non-neutral usage/feedback source.
func WithSignals(s Signals) Option { return func(svc *Service) { svc.signals = s } }

// New constructs a Service over a capability Registry.
func New(registry *capability.Registry, opts ...Option) *Service {
	svc := &Service{registry: registry, signals: neutralSignals{}}
	for _, o := range opts {
		o(svc)
	}
	return svc
}

// scored pairs a capability candidate with its computed weighted score.
type scored struct {
	candidate capability.Candidate
	score     float64
}

// Decide scores every keyword candidate for rawMessage, selects the winner
// (or general_conversation if none clears the threshold), detects a
// multi-action split, and applies the confirmation-required rule using the
// Authorization Gate's verdict on the winning candidate.
func (s *Service) Decide(orgID, userID, rawMessage string, understanding pipeline.UnderstandingResult, turnCtx pipeline.Context, auth authorization.Result) pipeline.DecisionResult {
	candidates := s.registry.Candidates(rawMessage)
	if len(candidates) == 0 {
		return generalConversation(understanding, evaluateUnknownCapability(rawMessage, understanding, auth))
	}

	scoredCandidates := make([]scored, 0, len(candidates))
	for _, c := range candidates {
		scoredCandidates = append(scoredCandidates, scored{
			candidate: c,
			score:     s.score(orgID, userID, rawMessage, c, understanding, turnCtx),
		})
	}

	winner, ok := topAboveThreshold(scoredCandidates)
	if !ok {
		return generalConversation(understanding, evaluateUnknownCapability(rawMessage, understanding, auth))
	}

	// The caller may only have a blanket placeholder to pass in (it cannot
	// know the winning capability before scoring runs); run the gate for
	// real against the winner here and take whichever verdict is stricter,
	// so a caller with no pre-computed per-candidate auth still gets a real
	// safety-pattern/risk-level check rather than an unconditional pass.
	auth = stricterAuth(auth, authorization.Evaluate(authorization.Input{
		CapabilityKnown:      true,
		RiskLevel:            winner.candidate.Capability.RiskLevel,
		RequiresConfirmation: winner.candidate.Capability.RequiresConfirmation,
		Dangerous:            winner.candidate.Capability.Dangerous,
		IntentConfidence:     understanding.IntentConfidence,
		RawMessage:           rawMessage,
	}))

	result := toDecisionResult(winner, understanding, auth)

	if plan, isMulti := s.detectMultiAction(rawMessage, scoredCandidates, understanding, auth); isMulti {
		result.CoordinatedPlan = plan
	}

	return result
}

// score computes the weighted sum for one candidate.
func (s *Service) score(orgID, userID, rawMessage string, c capability.Candidate, understanding pipeline.UnderstandingResult, turnCtx pipeline.Context) float64 {
	intentMatch := 0.0
	if understanding.Intent == c.Capability.Name {
		intentMatch = 1.0
	}

	recentUse := s.signals.RecentUseScore(orgID, userID, c.Capability.Name)
	lifeAxis := lifeAxisAlignment(c.Capability, turnCtx)
	contextFit := contextFit(c.Capability, turnCtx)
	negativePenalty := s.signals.NegativeFeedbackScore(orgID, userID, c.Capability.Name)

	return weightKeyword*c.KeywordScore +
		weightIntentMatch*intentMatch +
		weightRecentUse*recentUse +
		weightLifeAxis*lifeAxis +
		weightContextFit*contextFit -
		weightNegativePenalty*negativePenalty
}

// lifeAxisAlignment returns 0.5 (neutral) unless one of the user's active
// goals mentions the capability by name or one of its intent hints, in
// which case alignment is boosted.
func lifeAxisAlignment(cap capability.Capability, turnCtx pipeline.Context) float64 {
	for _, goal := range turnCtx.ActiveGoals {
		if !goal.Active {
			continue
		}
		haystack := strings.ToLower(goal.Title + " " + goal.Why)
		if strings.Contains(haystack, strings.ToLower(cap.Name)) {
			return 0.8
		}
		for _, hint := range cap.IntentHints {
			if strings.Contains(haystack, strings.ToLower(hint)) {
				return 0.8
			}
		}
	}
	return 0.5
}

// contextFit returns 0.5 (neutral) unless the conversation summary or most
// recent insight references the capability's domain.
func contextFit(cap capability.Capability, turnCtx pipeline.Context) float64 {
	haystack := strings.ToLower(turnCtx.ConversationSummary)
	if len(turnCtx.RecentInsights) > 0 {
		haystack += " " + strings.ToLower(turnCtx.RecentInsights[0].Summary)
	}
	if haystack == "" {
		return 0.5
	}
	for _, hint := range cap.IntentHints {
		if strings.Contains(haystack, strings.ToLower(hint)) {
			return 0.75
		}
	}
	return 0.5
}

func topAboveThreshold(scoredCandidates []scored) (scored, bool) {
	best := scored{score: -1}
	for _, sc := range scoredCandidates {
		if sc.score > best.score {
			best = sc
		} else if sc.score == best.score && sc.candidate.MatchedAt >= 0 &&
			(best.candidate.MatchedAt < 0 || sc.candidate.MatchedAt < best.candidate.MatchedAt) {
			// tie-break: earliest keyword match in the raw text wins (spec.md §9.3)
			best = sc
		}
	}
	if best.score < CapabilityMinScoreThreshold {
		return scored{}, false
	}
	return best, true
}

// evaluateUnknownCapability runs the gate against the raw message even when
// no capability scored above threshold, so a safety pattern (spec.md §4.6
// S6) is still caught for a message that never matches a keyword list —
// general_conversation is not exempt from the gate.
func evaluateUnknownCapability(rawMessage string, understanding pipeline.UnderstandingResult, auth authorization.Result) authorization.Result {
	return stricterAuth(auth, authorization.Evaluate(authorization.Input{
		CapabilityKnown:  false,
		IntentConfidence: understanding.IntentConfidence,
		RawMessage:       rawMessage,
	}))
}

// stricterAuth returns whichever of a/b carries the more restrictive
// decision, so an externally-asserted restriction is never loosened by an
// internally re-derived one.
func stricterAuth(a, b authorization.Result) authorization.Result {
	if authSeverity(b.Decision) > authSeverity(a.Decision) {
		return b
	}
	return a
}

func authSeverity(d pipeline.AuthDecision) int {
	switch d {
	case pipeline.AuthRequireDoubleCheck:
		return 2
	case pipeline.AuthRequireConfirmation:
		return 1
	default:
		return 0
	}
}

// isForcedEnforcement reports whether the gate's verdict mandates bypassing
// normal scoring/confirmation entirely rather than merely requiring a yes/no
// (spec.md §4.6, scenario S6).
func isForcedEnforcement(action pipeline.EnforcementAction) bool {
	return action == pipeline.EnforcementForceListening || action == pipeline.EnforcementBlockAndSuggest
}

func toDecisionResult(winner scored, understanding pipeline.UnderstandingResult, auth authorization.Result) pipeline.DecisionResult {
	cap := winner.candidate.Capability

	if isForcedEnforcement(auth.EnforcementAction) {
		return pipeline.DecisionResult{
			DecisionID:        uuid.NewString(),
			Action:            "forced_listening",
			Params:            map[string]any{},
			Confidence:        1.0,
			NeedsConfirmation: false,
			RiskLevel:         pipeline.RiskCritical,
			Reasoning:         "enforcement_action",
			EnforcementAction: auth.EnforcementAction,
			RedirectMessage:   auth.RedirectMessage,
		}
	}

	needsConfirmation := understanding.IntentConfidence < confirmationConfidenceFloor ||
		cap.Dangerous ||
		auth.Decision != pipeline.AuthAutoApprove

	return pipeline.DecisionResult{
		DecisionID:        uuid.NewString(),
		Action:            cap.Name,
		Params:            map[string]any{},
		Confidence:        winner.score,
		NeedsConfirmation: needsConfirmation,
		RiskLevel:         cap.RiskLevel,
		Reasoning:         "weighted_keyword_score",
		EnforcementAction: auth.EnforcementAction,
	}
}

func generalConversation(understanding pipeline.UnderstandingResult, auth authorization.Result) pipeline.DecisionResult {
	if isForcedEnforcement(auth.EnforcementAction) {
		return pipeline.DecisionResult{
			DecisionID:        uuid.NewString(),
			Action:            "forced_listening",
			Params:            map[string]any{},
			Confidence:        1.0,
			NeedsConfirmation: false,
			RiskLevel:         pipeline.RiskCritical,
			Reasoning:         "enforcement_action",
			EnforcementAction: auth.EnforcementAction,
			RedirectMessage:   auth.RedirectMessage,
		}
	}

	return pipeline.DecisionResult{
		DecisionID:        uuid.NewString(),
		Action:            "general_conversation",
		Params:            map[string]any{},
		Confidence:        understanding.IntentConfidence,
		NeedsConfirmation: false,
		RiskLevel:         pipeline.RiskLow,
		Reasoning:         "no_candidate_above_threshold",
		EnforcementAction: auth.EnforcementAction,
	}
}

// detectMultiAction checks for a splitter pattern in the raw message AND at
// least two distinct-capability candidates clearing the threshold; when
// both hold, it returns a coordinated plan ordered by each candidate's
// position of first keyword match in the text (spec.md §4.7).
func (s *Service) detectMultiAction(rawMessage string, scoredCandidates []scored, understanding pipeline.UnderstandingResult, auth authorization.Result) ([]pipeline.DecisionResult, bool) {
	if !containsSplitter(rawMessage) {
		return nil, false
	}

	clearing := make([]scored, 0, len(scoredCandidates))
	seen := map[string]bool{}
	for _, sc := range scoredCandidates {
		if sc.score < CapabilityMinScoreThreshold {
			continue
		}
		if seen[sc.candidate.Capability.Name] {
			continue
		}
		seen[sc.candidate.Capability.Name] = true
		clearing = append(clearing, sc)
	}
	if len(clearing) < 2 {
		return nil, false
	}

	sortByMatchPosition(clearing)

	plan := make([]pipeline.DecisionResult, 0, len(clearing))
	for _, sc := range clearing {
		plan = append(plan, toDecisionResult(sc, understanding, auth))
	}
	return plan, true
}

func containsSplitter(rawMessage string) bool {
	lower := strings.ToLower(rawMessage)
	for _, splitter := range multiActionSplitters {
		if strings.Contains(lower, splitter) {
			return true
		}
	}
	return false
}

func sortByMatchPosition(items []scored) {
	for i := 1; i < len(items); i++ {
		for j := i; j > 0 && items[j].candidate.MatchedAt < items[j-1].candidate.MatchedAt; j-- {
			items[j], items[j-1] = items[j-1], items[j]
		}
	}
}
