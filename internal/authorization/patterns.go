package authorization

import (
	"strings"

	"cogcore/internal/pipeline"
)

// safetyPattern is a keyword-bucket detector that forces REQUIRE_DOUBLE_CHECK
// regardless of the triggering capability's own risk level, mirroring the
// "unknown tools and unsafe content fail safe" principle named in
// approval_gate.py's docstring.
type safetyPattern struct {
	name            string
	keywords        []string
	enforcement     pipeline.EnforcementAction
	redirectMessage string
	reason          string
}

var safetyPatterns = []safetyPattern{
	{
		name: "distress",
		keywords: []string{
			"want to die", "kill myself", "end it all", "no reason to live",
			"死にたい", "消えたい",
		},
		enforcement:     pipeline.EnforcementForceListening,
		redirectMessage: "I hear you, and I want to make sure you get real support right now.",
		reason:          "distress_pattern_detected",
	},
	{
		name: "security_leak",
		keywords: []string{
			"api key", "private key", "password is", "secret key",
			"access token", "credit card number",
		},
		enforcement:     pipeline.EnforcementBlockAndSuggest,
		redirectMessage: "I can't help post or store that kind of credential directly.",
		reason:          "security_leak_pattern_detected",
	},
	{
		name: "company_criticism",
		keywords: []string{
			"our company sucks", "management is incompetent", "i hate this company",
			"会社最悪", "上司が無能",
		},
		enforcement:     pipeline.EnforcementWarnOnly,
		redirectMessage: "",
		reason:          "company_criticism_pattern_detected",
	},
}

// detectSafetyPattern scans raw message text for any configured safety
// pattern. The first match wins; patterns are checked in the fixed order
// above (distress before leak before criticism) since distress is the
// highest-stakes category.
func detectSafetyPattern(text string) (safetyPattern, bool) {
	lower := strings.ToLower(text)
	for _, p := range safetyPatterns {
		for _, kw := range p.keywords {
			if strings.Contains(lower, strings.ToLower(kw)) {
				return p, true
			}
		}
	}
	return safetyPattern{}, false
}
