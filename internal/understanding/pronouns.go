package understanding

import (
	"strings"

	"cogcore/internal/pipeline"
)

// pronounWords covers the third-person and deictic pronouns this core
// resolves against recent conversation.
var pronounWords = []string{"he", "she", "they", "him", "her", "them", "it", "彼", "彼女", "それ"}

// distanceWeights gives near turns higher resolution confidence than far
// ones; index 0 is the most recent turn.
var distanceWeights = []float64{1.0, 0.85, 0.7, 0.55, 0.4}

// resolvePronouns finds pronoun mentions in text and resolves each against
// the most recent matching sender in recent, weighting confidence by how
// many turns back the referent appeared. needsClarification is set if any
// resolved pronoun's confidence falls below 0.7 (spec.md §4.5 step 2).
func resolvePronouns(text string, recent []pipeline.ConversationTurn) (resolved []string, confidence float64, needsClarification bool) {
	lower := normalize(text)
	var found []string
	for _, p := range pronounWords {
		if strings.Contains(lower, p) {
			found = append(found, p)
		}
	}
	if len(found) == 0 {
		return nil, 0, false
	}

	minConfidence := 1.0
	for range found {
		referent, conf, ok := nearestReferent(recent)
		if !ok {
			minConfidence = 0
			continue
		}
		resolved = append(resolved, referent)
		if conf < minConfidence {
			minConfidence = conf
		}
	}

	return resolved, minConfidence, minConfidence < 0.7
}

// nearestReferent walks recent from most-recent to least-recent and
// returns the first sender found, with a distance-weighted confidence.
func nearestReferent(recent []pipeline.ConversationTurn) (string, float64, bool) {
	n := len(recent)
	if n == 0 {
		return "", 0, false
	}
	for i := 0; i < n && i < len(distanceWeights); i++ {
		turn := recent[n-1-i]
		if turn.SenderName != "" {
			return turn.SenderName, distanceWeights[i], true
		}
	}
	return "", 0.3, true
}
