package orchestrator

import (
	"strings"

	"cogcore/internal/decision"
	"cogcore/internal/pipeline"
)

// ShortContinuationCharThreshold: a reply this short or shorter, with no
// other signal, is treated as an acknowledgement continuing the active
// GOAL_SETTING flow rather than a new request (spec.md §9.1 open question;
// kept as a named heuristic rather than re-derived).
const ShortContinuationCharThreshold = 20

var doubtWords = []string{"really?", "are you sure", "本当に", "マジで"}
var reflectionWords = []string{"i think", "hmm", "let me think", "思うに", "うーん"}
var feedbackWords = []string{"good point", "that's not right", "actually", "それは違う"}
var goalKeywords = []string{"goal", "目標", "objective"}

// isContinuationIntent decides whether a reply should be treated as
// continuing the active goal-setting session rather than a new intent
// (spec.md §4.8: doubt, reflection, feedback, short acknowledgement, or
// goal-related keywords all continue the session). understood is
// Understanding (C5) re-run against the reply itself; a strong match
// against a different capability interrupts the session even when the
// reply is short enough to otherwise pass the length heuristic (spec.md
// §4.8 S2: "タスクを見せて" is 7 runes but clearly means list_tasks).
func isContinuationIntent(text string, understood pipeline.UnderstandingResult) bool {
	trimmed := strings.TrimSpace(text)
	lower := strings.ToLower(trimmed)
	for _, bucket := range [][]string{doubtWords, reflectionWords, feedbackWords, goalKeywords} {
		for _, w := range bucket {
			if strings.Contains(lower, strings.ToLower(w)) {
				return true
			}
		}
	}

	if understood.Intent != "" && understood.Intent != "general_conversation" &&
		understood.IntentConfidence >= decision.CapabilityMinScoreThreshold {
		return false
	}

	return len([]rune(trimmed)) <= ShortContinuationCharThreshold
}
