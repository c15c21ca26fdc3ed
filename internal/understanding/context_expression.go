package understanding

import (
	"strings"

	"cogcore/internal/pipeline"
)

// contextExpressions are deictic references to something already
// established in the conversation ("the usual", "that one").
var contextExpressions = []string{"the usual", "that one", "like before", "as usual", "いつもの", "それ"}

// resolveContextExpression checks for a deictic expression and tries to
// resolve it against the conversation summary or most recent insight.
// ambiguous is true when an expression is present but nothing in Context
// disambiguates it, signaling the caller to ask a clarifying question
// rather than guess (spec.md §4.5 step 4).
func resolveContextExpression(text string, turnCtx pipeline.Context) (resolved string, ambiguous bool) {
	lower := normalize(text)
	matched := false
	for _, expr := range contextExpressions {
		if strings.Contains(lower, expr) {
			matched = true
			break
		}
	}
	if !matched {
		return "", false
	}

	if turnCtx.ConversationSummary != "" {
		return turnCtx.ConversationSummary, false
	}
	if len(turnCtx.RecentInsights) > 0 {
		return turnCtx.RecentInsights[0].Summary, false
	}
	return "", true
}
