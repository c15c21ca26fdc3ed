package understanding

import (
	"strings"

	"cogcore/internal/pipeline"
)

var urgencyLexicon = map[pipeline.Urgency][]string{
	pipeline.UrgencyCritical: {"emergency", "right now", "immediately", "urgent", "緊急", "今すぐ"},
	pipeline.UrgencyHigh:     {"asap", "as soon as possible", "today", "急いで", "至急"},
	pipeline.UrgencyMedium:   {"soon", "this week", "近いうちに"},
}

// classifyUrgency matches the highest urgency lexicon tier present in
// text, defaulting to LOW.
func classifyUrgency(text string) pipeline.Urgency {
	lower := normalize(text)
	for _, tier := range []pipeline.Urgency{pipeline.UrgencyCritical, pipeline.UrgencyHigh, pipeline.UrgencyMedium} {
		for _, kw := range urgencyLexicon[tier] {
			if strings.Contains(lower, kw) {
				return tier
			}
		}
	}
	return pipeline.UrgencyLow
}

var positiveEmotionWords = []string{"thanks", "thank you", "great", "happy", "嬉しい", "ありがとう"}
var negativeEmotionWords = []string{"angry", "frustrated", "sad", "worried", "悲しい", "つらい", "困った"}

// classifyEmotion buckets text into positive/negative/neutral using a
// small keyword lexicon (spec.md §4.5 step 6).
func classifyEmotion(text string) string {
	lower := normalize(text)
	for _, kw := range negativeEmotionWords {
		if strings.Contains(lower, kw) {
			return "negative"
		}
	}
	for _, kw := range positiveEmotionWords {
		if strings.Contains(lower, kw) {
			return "positive"
		}
	}
	return "neutral"
}
