package vectorstore

import "github.com/qdrant/go-client/qdrant"

// Filter is the vector-store-agnostic filter grammar from spec.md §6:
// {field ∈ values}, {field = value}, $and[...], $or[...]. It is built by
// the access-control step in internal/knowledge and translated per-backend
// here, so the knowledge package never imports the Qdrant SDK directly.
type Filter struct {
	// Eq applies an equality condition per field; combined with AND.
	Eq map[string]string
	// In applies a membership condition per field ({field ∈ values});
	// combined with AND alongside Eq.
	In map[string][]string
	// Or holds alternative sub-filters; at least one must match ($or[...]).
	// Ignored when empty.
	Or []Filter
}

// IsZero reports whether the filter carries no constraints at all.
func (f Filter) IsZero() bool {
	return len(f.Eq) == 0 && len(f.In) == 0 && len(f.Or) == 0
}

func translate(f Filter) *qdrant.Filter {
	if f.IsZero() {
		return nil
	}
	out := &qdrant.Filter{}
	for field, value := range f.Eq {
		out.Must = append(out.Must, qdrant.NewMatch(field, value))
	}
	for field, values := range f.In {
		out.Must = append(out.Must, matchAny(field, values))
	}
	for _, sub := range f.Or {
		if nested := translate(sub); nested != nil {
			out.Should = append(out.Should, qdrant.NewFilterAsCondition(nested))
		}
	}
	return out
}

// matchAny builds an OR-of-equals condition for a single field's membership
// test, since the Qdrant match helper only supports a single value.
func matchAny(field string, values []string) *qdrant.Condition {
	if len(values) == 1 {
		return qdrant.NewMatch(field, values[0])
	}
	sub := &qdrant.Filter{}
	for _, v := range values {
		sub.Should = append(sub.Should, qdrant.NewMatch(field, v))
	}
	return qdrant.NewFilterAsCondition(sub)
}
