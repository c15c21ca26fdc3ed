package vectorstore

import (
	"context"
	"math"
	"sort"
	"sync"
)

// Memory is an in-process Store used by tests and by deployments without a
// configured Qdrant endpoint. It performs brute-force cosine similarity.
type Memory struct {
	mu     sync.RWMutex
	points map[string]memPoint
}

type memPoint struct {
	vector   []float32
	metadata map[string]string
}

// NewMemory constructs an empty in-memory vector store.
func NewMemory() *Memory {
	return &Memory{points: make(map[string]memPoint)}
}

var _ Store = (*Memory)(nil)

func (m *Memory) Upsert(_ context.Context, id string, vector []float32, metadata map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	vec := make([]float32, len(vector))
	copy(vec, vector)
	meta := make(map[string]string, len(metadata))
	for k, v := range metadata {
		meta[k] = v
	}
	m.points[id] = memPoint{vector: vec, metadata: meta}
	return nil
}

func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.points, id)
	return nil
}

func (m *Memory) SimilaritySearch(_ context.Context, vector []float32, k int, filter Filter) ([]Hit, error) {
	if k <= 0 {
		k = 10
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var hits []Hit
	for id, p := range m.points {
		if !matches(p.metadata, filter) {
			continue
		}
		hits = append(hits, Hit{ID: id, Score: cosine(vector, p.vector), Metadata: p.metadata})
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func (m *Memory) Close() error { return nil }

func matches(meta map[string]string, f Filter) bool {
	for field, want := range f.Eq {
		if meta[field] != want {
			return false
		}
	}
	for field, wants := range f.In {
		if !contains(wants, meta[field]) {
			return false
		}
	}
	if len(f.Or) > 0 {
		any := false
		for _, sub := range f.Or {
			if matches(meta, sub) {
				any = true
				break
			}
		}
		if !any {
			return false
		}
	}
	return true
}

func contains(values []string, v string) bool {
	for _, c := range values {
		if c == v {
			return true
		}
	}
	return false
}

func cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
