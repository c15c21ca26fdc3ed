package capability

import (
	"fmt"
	"sort"
	"strings"

	"cogcore/internal/pipeline"
)

// Candidate is one scored capability match against a raw message, used by
// Understanding for intent hinting and by Decision as the keyword term of
// its weighted score.
type Candidate struct {
	Capability   Capability
	KeywordScore float64 // in [0,1], primary hits weigh more than secondary
	MatchedAt    int     // byte offset of the earliest matched keyword, -1 if none
}

// Registry is the immutable, process-wide capability table plus the
// name -> callable binding map resolved once at startup.
type Registry struct {
	byName   map[string]Capability
	ordered  []string // registration order, used for stable iteration/tie-break
	handlers map[string]HandlerFunc
}

// NewRegistry builds a Registry from a fixed set of capability rows. An
// empty or duplicate name is rejected: the table is meant to be validated
// once at boot, not defensively at every call.
func NewRegistry(caps []Capability) (*Registry, error) {
	r := &Registry{
		byName:   make(map[string]Capability, len(caps)),
		ordered:  make([]string, 0, len(caps)),
		handlers: make(map[string]HandlerFunc, len(caps)),
	}
	for _, c := range caps {
		if c.Name == "" {
			return nil, fmt.Errorf("capability: empty name")
		}
		if _, dup := r.byName[c.Name]; dup {
			return nil, fmt.Errorf("capability: duplicate name %q", c.Name)
		}
		r.byName[c.Name] = c
		r.ordered = append(r.ordered, c.Name)
	}
	return r, nil
}

// BindHandler resolves name -> callable. Called once at startup for every
// enabled capability; an unresolved binding for an enabled capability is a
// configuration error the caller should surface at boot, not at request
// time (spec.md §7, ErrConfiguration).
func (r *Registry) BindHandler(name string, handler HandlerFunc) error {
	if _, ok := r.byName[name]; !ok {
		return fmt.Errorf("%w: unknown capability %q", pipeline.ErrConfiguration, name)
	}
	r.handlers[name] = handler
	return nil
}

// Handler returns the bound callable for name, if any.
func (r *Registry) Handler(name string) (HandlerFunc, bool) {
	h, ok := r.handlers[name]
	return h, ok
}

// Get returns the capability row by name.
func (r *Registry) Get(name string) (Capability, bool) {
	c, ok := r.byName[name]
	return c, ok
}

// All returns every capability in registration order.
func (r *Registry) All() []Capability {
	out := make([]Capability, 0, len(r.ordered))
	for _, name := range r.ordered {
		out = append(out, r.byName[name])
	}
	return out
}

// Candidates scores every enabled capability's keyword lists against the
// raw message and returns them ordered by descending score. A negative
// keyword hit excludes a capability outright (score 0, no further
// consideration) rather than merely penalizing it — the capability-level
// negative list is a hard veto; Decision's weighted negative_penalty term
// operates on top of this at the scoring stage, not here.
func (r *Registry) Candidates(message string) []Candidate {
	lower := strings.ToLower(message)
	out := make([]Candidate, 0, len(r.ordered))
	for _, name := range r.ordered {
		c := r.byName[name]
		if !c.Enabled {
			continue
		}
		if anyContains(lower, c.NegativeKeywords) {
			continue
		}
		score, pos := keywordScore(lower, c.PrimaryKeywords, c.SecondaryKeywords)
		if score <= 0 {
			continue
		}
		out = append(out, Candidate{Capability: c, KeywordScore: score, MatchedAt: pos})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].KeywordScore > out[j].KeywordScore
	})
	return out
}

// keywordScore returns a [0,1] score: the best-matching primary keyword
// contributes 1.0, the best-matching secondary keyword contributes 0.5;
// both may combine up to 1.0. pos is the earliest match's byte offset
// across both lists, or -1 if nothing matched.
func keywordScore(lowerMessage string, primary, secondary []string) (float64, int) {
	score := 0.0
	pos := -1

	if idx := firstMatchIndex(lowerMessage, primary); idx >= 0 {
		score += 1.0
		pos = idx
	}
	if idx := firstMatchIndex(lowerMessage, secondary); idx >= 0 {
		score += 0.5
		if pos < 0 || idx < pos {
			pos = idx
		}
	}
	if score > 1.0 {
		score = 1.0
	}
	return score, pos
}

func firstMatchIndex(lowerMessage string, keywords []string) int {
	best := -1
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		if idx := strings.Index(lowerMessage, kw); idx >= 0 {
			if best < 0 || idx < best {
				best = idx
			}
		}
	}
	return best
}

func anyContains(lowerMessage string, keywords []string) bool {
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		if strings.Contains(lowerMessage, kw) {
			return true
		}
	}
	return false
}
