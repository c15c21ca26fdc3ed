package knowledge

import (
	"cogcore/internal/knowledge/vectorstore"
	"cogcore/internal/pipeline"
)

// AccessScope describes what a caller is allowed to see, per spec.md §4.10.
type AccessScope struct {
	// AccessibleClassifications always contains at least "public" and
	// "internal"; may also contain "confidential".
	AccessibleClassifications []pipeline.Classification
	// AccessibleDepartmentIDs gates which confidential chunks are visible;
	// empty means no confidential department access.
	AccessibleDepartmentIDs []string
}

func (s AccessScope) allows(c pipeline.Classification) bool {
	for _, allowed := range s.AccessibleClassifications {
		if allowed == c {
			return true
		}
	}
	return false
}

// BuildFilter implements spec.md §4.10 step 2: the three-case filter
// construction (non-confidential only / confidential+department / exclude
// confidential), expressed against the vector-store-agnostic Filter grammar.
func BuildFilter(tenant string, scope AccessScope) vectorstore.Filter {
	base := vectorstore.Filter{Eq: map[string]string{"tenant": tenant}}

	if !scope.allows(pipeline.ClassificationConfidential) {
		// Case: non-confidential only.
		base.In = map[string][]string{"classification": classificationStrings(scope.AccessibleClassifications)}
		return base
	}

	if len(scope.AccessibleDepartmentIDs) > 0 {
		// Case: confidential allowed AND department ids present — OR of
		// {public/internal} with {confidential AND department ∈ ids}.
		base.Or = []vectorstore.Filter{
			{Eq: map[string]string{"tenant": tenant}, In: map[string][]string{"classification": {"public", "internal"}}},
			{Eq: map[string]string{"tenant": tenant, "classification": "confidential"}, In: map[string][]string{"department_id": scope.AccessibleDepartmentIDs}},
		}
		return vectorstore.Filter{Or: base.Or}
	}

	// Case: confidential allowed but no department list — exclude confidential.
	base.In = map[string][]string{"classification": {"public", "internal"}}
	return base
}

func classificationStrings(cs []pipeline.Classification) []string {
	out := make([]string, 0, len(cs))
	for _, c := range cs {
		out = append(out, string(c))
	}
	return out
}

// ChunkAllowed re-checks access at the application layer after a vector hit
// is joined to chunk metadata, so a stale or permissive index entry can
// never leak a confidential chunk outside its department (invariant 7).
func ChunkAllowed(scope AccessScope, chunk pipeline.KnowledgeChunk) bool {
	if chunk.Classification != pipeline.ClassificationConfidential {
		return scope.allows(chunk.Classification)
	}
	if !scope.allows(pipeline.ClassificationConfidential) {
		return false
	}
	for _, id := range scope.AccessibleDepartmentIDs {
		if id == chunk.DepartmentID {
			return true
		}
	}
	return false
}
