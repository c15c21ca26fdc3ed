package knowledge

import (
	"context"
	"fmt"

	"cogcore/internal/pipeline"
)

// ChunkMetadataStore resolves vector-hit ids to durable chunk metadata
// (classification, department, quality, content). Kept separate from the
// vector index per spec.md §3: "vector lives outside; chunk metadata lives
// in durable store".
type ChunkMetadataStore interface {
	GetChunks(ctx context.Context, ids []string) (map[string]pipeline.KnowledgeChunk, error)
}

// ChunkID builds the idempotency key for a chunk, per spec.md §4.10:
// {tenant}_{document}_v{version}_chunk{index}.
func ChunkID(tenant, documentID string, version, index int) string {
	return fmt.Sprintf("%s_%s_v%d_chunk%d", tenant, documentID, version, index)
}

// InMemoryChunkStore is a map-backed ChunkMetadataStore for tests.
type InMemoryChunkStore struct {
	Chunks map[string]pipeline.KnowledgeChunk
}

func NewInMemoryChunkStore() *InMemoryChunkStore {
	return &InMemoryChunkStore{Chunks: make(map[string]pipeline.KnowledgeChunk)}
}

func (s *InMemoryChunkStore) GetChunks(_ context.Context, ids []string) (map[string]pipeline.KnowledgeChunk, error) {
	out := make(map[string]pipeline.KnowledgeChunk, len(ids))
	for _, id := range ids {
		if c, ok := s.Chunks[id]; ok {
			out[id] = c
		}
	}
	return out, nil
}
