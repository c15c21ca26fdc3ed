package orchestrator

import "strings"

// stopWords always clear the current state regardless of what it is
// (spec.md §4.8, interruption rule).
var stopWords = []string{
	"やめる", "キャンセル", "中断",
	"cancel", "never mind", "nevermind", "stop",
}

func containsStopWord(text string) bool {
	lower := strings.ToLower(text)
	for _, w := range stopWords {
		if strings.Contains(lower, strings.ToLower(w)) {
			return true
		}
	}
	return false
}
