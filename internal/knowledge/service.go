// Package knowledge implements Knowledge Retrieval + Synthesis (C10):
// access-filtered vector search, quality filtering, and LLM-grounded
// synthesis that never fabricates facts outside the retrieved chunks
// (spec.md §4.10, invariant 6).
package knowledge

import (
	"context"
	"fmt"
	"strings"

	"cogcore/internal/knowledge/vectorstore"
	"cogcore/internal/llm"
	"cogcore/internal/pipeline"
	"cogcore/internal/telemetry"
)

const (
	defaultTopK    = 5
	maxTopK        = 20
	minQualityScore = 0.4
)

// Query describes a single knowledge-retrieval request.
type Query struct {
	Tenant    string
	Question  string
	TopK      int
	Scope     AccessScope
}

// Answer is C10's synthesized result.
type Answer struct {
	Text           string
	Citations      []pipeline.KnowledgeChunk
	AnswerRefused  bool
	RefusalReason  string // "no_results" per spec.md §4.10 step 5 / scenario S5
}

// Service wires the embedder, vector store, chunk metadata store, and LLM
// provider into the retrieval+synthesis pipeline.
type Service struct {
	vector   vectorstore.Store
	embedder llm.Embedder
	chunks   ChunkMetadataStore
	synth    llm.Provider
	synthModel string
	log      telemetry.Logger
	metrics  telemetry.Metrics
}

// Option configures a Service during construction.
type Option func(*Service)

func WithLogger(l telemetry.Logger) Option     { return func(s *Service) { s.log = l } }
func WithMetrics(m telemetry.Metrics) Option   { return func(s *Service) { s.metrics = m } }
func WithSynthModel(model string) Option        { return func(s *Service) { s.synthModel = model } }

// New constructs a knowledge Service.
func New(vector vectorstore.Store, embedder llm.Embedder, chunks ChunkMetadataStore, synth llm.Provider, opts ...Option) *Service {
	s := &Service{
		vector:   vector,
		embedder: embedder,
		chunks:   chunks,
		synth:    synth,
		log:      telemetry.NoopLogger{},
		metrics:  telemetry.NoopMetrics{},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Retrieve runs steps 1-4 of spec.md §4.10: access-filter construction,
// single embedding of the query, vector search, quality filtering. It never
// calls the LLM; callers that also want synthesis should use Ask.
func (s *Service) Retrieve(ctx context.Context, q Query) ([]pipeline.KnowledgeChunk, error) {
	topK := q.TopK
	if topK <= 0 {
		topK = defaultTopK
	}
	if topK > maxTopK {
		topK = maxTopK
	}

	filter := BuildFilter(q.Tenant, q.Scope)

	vec, err := s.embedder.Embed(ctx, q.Question)
	if err != nil {
		s.log.Error("knowledge_embed_failed", map[string]any{"error_kind": "embed_error"})
		return nil, fmt.Errorf("knowledge: embed query: %w", err)
	}

	hits, err := s.vector.SimilaritySearch(ctx, vec, topK, filter)
	if err != nil {
		s.log.Error("knowledge_vector_query_failed", map[string]any{"error_kind": "vector_query_error"})
		return nil, fmt.Errorf("knowledge: vector search: %w", err)
	}
	if len(hits) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(hits))
	for _, h := range hits {
		ids = append(ids, h.ID)
	}
	chunkMeta, err := s.chunks.GetChunks(ctx, ids)
	if err != nil {
		s.log.Error("knowledge_chunk_lookup_failed", map[string]any{"error_kind": "memory_access_error"})
		return nil, fmt.Errorf("knowledge: lookup chunk metadata: %w", err)
	}

	out := make([]pipeline.KnowledgeChunk, 0, len(hits))
	for _, h := range hits {
		chunk, ok := chunkMeta[h.ID]
		if !ok {
			continue
		}
		if chunk.QualityScore < minQualityScore {
			continue
		}
		if isBoilerplate(chunk.Content) {
			continue
		}
		// Defense in depth: re-check access at the application layer even
		// though the vector filter should have already excluded this.
		if !ChunkAllowed(q.Scope, chunk) {
			continue
		}
		out = append(out, chunk)
	}
	return out, nil
}

func isBoilerplate(content string) bool {
	lower := strings.ToLower(strings.TrimSpace(content))
	if lower == "" {
		return true
	}
	for _, marker := range []string{"table of contents", "目次", "index of topics"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// Ask runs the full retrieval+synthesis pipeline (spec.md §4.10 steps 1-6).
// When no chunks survive filtering, it refuses rather than guessing
// (invariant 6 / scenario S5).
func (s *Service) Ask(ctx context.Context, q Query) (Answer, error) {
	chunks, err := s.Retrieve(ctx, q)
	if err != nil {
		return Answer{}, err
	}
	if len(chunks) == 0 {
		s.metrics.IncCounter("knowledge_answer_refused_total", map[string]string{"reason": "no_results"})
		return Answer{AnswerRefused: true, RefusalReason: "no_results"}, nil
	}

	prompt := synthesisPrompt(q.Question, chunks)
	msgs := []llm.Message{
		{Role: "system", Content: synthesisSystemPrompt},
		{Role: "user", Content: prompt},
	}
	resp, err := s.synth.Chat(ctx, msgs, nil, s.synthModel)
	if err != nil {
		s.log.Error("knowledge_synthesis_failed", map[string]any{"error_kind": "synthesis_error"})
		return Answer{}, fmt.Errorf("knowledge: synthesis: %w", pipeline.ErrSynthesisRefused)
	}

	return Answer{Text: resp.Content, Citations: chunks}, nil
}

const synthesisSystemPrompt = "Answer only using the provided excerpts. Cite each excerpt you rely on by its chunk id. If the excerpts do not contain the answer, say so plainly; never state a fact that is not present in the excerpts."

func synthesisPrompt(question string, chunks []pipeline.KnowledgeChunk) string {
	var sb strings.Builder
	sb.WriteString("Question: ")
	sb.WriteString(question)
	sb.WriteString("\n\nExcerpts:\n")
	for _, c := range chunks {
		sb.WriteString(fmt.Sprintf("[%s] %s\n", c.ChunkID, c.Content))
	}
	return sb.String()
}
