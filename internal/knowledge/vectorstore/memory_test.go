package vectorstore

import (
	"context"
	"testing"
)

func TestMemory_SimilaritySearch_RanksByCosineSimilarity(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	_ = m.Upsert(ctx, "close", []float32{1, 0}, nil)
	_ = m.Upsert(ctx, "far", []float32{0, 1}, nil)
	_ = m.Upsert(ctx, "exact", []float32{2, 0}, nil)

	hits, err := m.SimilaritySearch(ctx, []float32{1, 0}, 10, Filter{})
	if err != nil {
		t.Fatalf("SimilaritySearch: %v", err)
	}
	if len(hits) != 3 {
		t.Fatalf("expected 3 hits, got %d", len(hits))
	}
	if hits[0].ID != "exact" && hits[0].ID != "close" {
		t.Fatalf("expected exact or close ranked first, got %q", hits[0].ID)
	}
	if hits[len(hits)-1].ID != "far" {
		t.Fatalf("expected far ranked last, got %q", hits[len(hits)-1].ID)
	}
}

func TestMemory_SimilaritySearch_RespectsK(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		_ = m.Upsert(ctx, id, []float32{1, 0}, nil)
	}

	hits, err := m.SimilaritySearch(ctx, []float32{1, 0}, 2, Filter{})
	if err != nil {
		t.Fatalf("SimilaritySearch: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected k=2 hits, got %d", len(hits))
	}
}

func TestMemory_SimilaritySearch_FiltersByEqAndIn(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	_ = m.Upsert(ctx, "public1", []float32{1, 0}, map[string]string{"tenant": "org1", "classification": "public"})
	_ = m.Upsert(ctx, "confidential1", []float32{1, 0}, map[string]string{"tenant": "org1", "classification": "confidential"})
	_ = m.Upsert(ctx, "other_tenant", []float32{1, 0}, map[string]string{"tenant": "org2", "classification": "public"})

	filter := Filter{Eq: map[string]string{"tenant": "org1"}, In: map[string][]string{"classification": {"public", "internal"}}}
	hits, err := m.SimilaritySearch(ctx, []float32{1, 0}, 10, filter)
	if err != nil {
		t.Fatalf("SimilaritySearch: %v", err)
	}
	if len(hits) != 1 || hits[0].ID != "public1" {
		t.Fatalf("expected only public1 to survive the filter, got %#v", hits)
	}
}

func TestMemory_SimilaritySearch_OrFilterMatchesEitherBranch(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	_ = m.Upsert(ctx, "public_doc", []float32{1, 0}, map[string]string{"tenant": "org1", "classification": "public"})
	_ = m.Upsert(ctx, "dept_confidential", []float32{1, 0}, map[string]string{"tenant": "org1", "classification": "confidential", "department_id": "eng"})
	_ = m.Upsert(ctx, "other_dept_confidential", []float32{1, 0}, map[string]string{"tenant": "org1", "classification": "confidential", "department_id": "sales"})

	filter := Filter{Or: []Filter{
		{Eq: map[string]string{"tenant": "org1"}, In: map[string][]string{"classification": {"public", "internal"}}},
		{Eq: map[string]string{"tenant": "org1", "classification": "confidential"}, In: map[string][]string{"department_id": {"eng"}}},
	}}

	hits, err := m.SimilaritySearch(ctx, []float32{1, 0}, 10, filter)
	if err != nil {
		t.Fatalf("SimilaritySearch: %v", err)
	}
	ids := make(map[string]bool)
	for _, h := range hits {
		ids[h.ID] = true
	}
	if !ids["public_doc"] || !ids["dept_confidential"] || ids["other_dept_confidential"] {
		t.Fatalf("expected public_doc and dept_confidential only, got %#v", hits)
	}
}

func TestMemory_Delete_RemovesPoint(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	_ = m.Upsert(ctx, "gone", []float32{1, 0}, nil)
	if err := m.Delete(ctx, "gone"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	hits, err := m.SimilaritySearch(ctx, []float32{1, 0}, 10, Filter{})
	if err != nil {
		t.Fatalf("SimilaritySearch: %v", err)
	}
	if len(hits) != 0 {
		t.Fatalf("expected deleted point to be absent, got %#v", hits)
	}
}
