package understanding

import (
	"strings"

	"cogcore/internal/pipeline"
)

// honorifics are stripped before alias matching so "Bob-san" and "Bob"
// resolve to the same candidate alias.
var honorifics = []string{"-san", "-さん", "-様", "-sama", " sensei", "-sensei"}

// resolvePersonAlias strips honorifics from each known person's name and
// aliases and looks for each result as a substring of the lower-cased
// message. A single unambiguous
// match returns that person's name; more than one match returns the first
// match with multiMatch=true so the caller requires confirmation rather
// than guessing (spec.md §4.5 step 3).
func resolvePersonAlias(text string, persons []pipeline.Person) (name string, multiMatch bool) {
	lower := normalize(text)
	var matches []string
	for _, p := range persons {
		if personMentioned(lower, p) {
			matches = append(matches, p.Name)
		}
	}
	switch len(matches) {
	case 0:
		return "", false
	case 1:
		return matches[0], false
	default:
		return matches[0], true
	}
}

func personMentioned(lowerText string, p pipeline.Person) bool {
	candidates := append([]string{p.Name}, p.Aliases...)
	for _, c := range candidates {
		c = stripHonorifics(strings.ToLower(strings.TrimSpace(c)))
		if c == "" {
			continue
		}
		if strings.Contains(lowerText, c) {
			return true
		}
	}
	return false
}

func stripHonorifics(s string) string {
	for _, h := range honorifics {
		s = strings.TrimSuffix(s, strings.ToLower(h))
	}
	return strings.TrimSpace(s)
}
