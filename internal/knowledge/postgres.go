package knowledge

import (
	"context"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"cogcore/internal/pipeline"
)

// PostgresChunkStore is a durable ChunkMetadataStore, mirroring the
// memory package's per-table pgSource: one row per chunk, tenant-scoped,
// with the vector index holding only the id and embedding.
type PostgresChunkStore struct {
	pool *pgxpool.Pool
}

// NewPostgresChunkStore returns a Postgres-backed ChunkMetadataStore over
// the given pool.
func NewPostgresChunkStore(pool *pgxpool.Pool) *PostgresChunkStore {
	return &PostgresChunkStore{pool: pool}
}

// Init creates the chunk metadata table.
func (s *PostgresChunkStore) Init(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS knowledge_chunks (
    chunk_id TEXT PRIMARY KEY,
    tenant TEXT NOT NULL,
    document_id TEXT NOT NULL,
    version INT NOT NULL,
    content TEXT NOT NULL,
    classification TEXT NOT NULL,
    department_id TEXT NOT NULL DEFAULT '',
    category TEXT NOT NULL DEFAULT '',
    page INT NOT NULL DEFAULT 0,
    quality_score DOUBLE PRECISION NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_knowledge_chunks_tenant ON knowledge_chunks (tenant);
`)
	return err
}

// Upsert writes or replaces one chunk's durable metadata. The vector store
// holds only the id and embedding; this is the other half of an ingested
// chunk.
func (s *PostgresChunkStore) Upsert(ctx context.Context, tenant string, c pipeline.KnowledgeChunk) error {
	_, err := s.pool.Exec(ctx, `
INSERT INTO knowledge_chunks (chunk_id, tenant, document_id, version, content, classification, department_id, category, page, quality_score)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (chunk_id) DO UPDATE SET
    document_id = EXCLUDED.document_id,
    version = EXCLUDED.version,
    content = EXCLUDED.content,
    classification = EXCLUDED.classification,
    department_id = EXCLUDED.department_id,
    category = EXCLUDED.category,
    page = EXCLUDED.page,
    quality_score = EXCLUDED.quality_score`,
		c.ChunkID, tenant, c.DocumentID, c.Version, c.Content, string(c.Classification), c.DepartmentID, c.Category, c.Page, c.QualityScore)
	return err
}

// GetChunks implements ChunkMetadataStore.
func (s *PostgresChunkStore) GetChunks(ctx context.Context, ids []string) (map[string]pipeline.KnowledgeChunk, error) {
	out := make(map[string]pipeline.KnowledgeChunk, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "$" + strconv.Itoa(i+1)
		args[i] = id
	}

	rows, err := s.pool.Query(ctx, `
SELECT chunk_id, document_id, version, content, classification, department_id, category, page, quality_score
FROM knowledge_chunks WHERE chunk_id IN (`+strings.Join(placeholders, ",")+`)`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var c pipeline.KnowledgeChunk
		var classification string
		if err := rows.Scan(&c.ChunkID, &c.DocumentID, &c.Version, &c.Content, &classification, &c.DepartmentID, &c.Category, &c.Page, &c.QualityScore); err != nil {
			return nil, err
		}
		c.Classification = pipeline.Classification(classification)
		out[c.ChunkID] = c
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
