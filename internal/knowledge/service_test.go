package knowledge

import (
	"context"
	"errors"
	"testing"

	"cogcore/internal/knowledge/vectorstore"
	"cogcore/internal/llm"
	"cogcore/internal/pipeline"
)

type fakeSynth struct {
	content string
	err     error
}

func (f fakeSynth) Chat(context.Context, []llm.Message, []llm.ToolSchema, string) (llm.Message, error) {
	if f.err != nil {
		return llm.Message{}, f.err
	}
	return llm.Message{Role: "assistant", Content: f.content}, nil
}

func seedChunk(t *testing.T, vec *vectorstore.Memory, chunks *InMemoryChunkStore, tenant, id string, embed []float32, c pipeline.KnowledgeChunk) {
	t.Helper()
	meta := map[string]string{"tenant": tenant, "classification": string(c.Classification), "department_id": c.DepartmentID}
	if err := vec.Upsert(context.Background(), id, embed, meta); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	c.ChunkID = id
	chunks.Chunks[id] = c
}

func TestAsk_SynthesizesFromRetrievedChunks(t *testing.T) {
	vec := vectorstore.NewMemory()
	chunks := NewInMemoryChunkStore()
	seedChunk(t, vec, chunks, "org1", "chunk1", []float32{1, 0}, pipeline.KnowledgeChunk{
		Classification: pipeline.ClassificationPublic, Content: "the office closes at 6pm", QualityScore: 0.9,
	})
	svc := New(vec, NewDeterministicEmbedder(2, 0), chunks, fakeSynth{content: "the office closes at 6pm"})

	answer, err := svc.Ask(context.Background(), Query{
		Tenant:   "org1",
		Question: "when does the office close",
		Scope:    AccessScope{AccessibleClassifications: []pipeline.Classification{pipeline.ClassificationPublic, pipeline.ClassificationInternal}},
	})
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if answer.AnswerRefused {
		t.Fatalf("expected an answer, got refusal: %q", answer.RefusalReason)
	}
	if answer.Text == "" {
		t.Fatalf("expected non-empty synthesized text")
	}
}

func TestAsk_RefusesWhenNoChunksSurvive(t *testing.T) {
	vec := vectorstore.NewMemory()
	chunks := NewInMemoryChunkStore()
	svc := New(vec, NewDeterministicEmbedder(8, 0), chunks, fakeSynth{content: "should never be called"})

	answer, err := svc.Ask(context.Background(), Query{Tenant: "org1", Question: "anything"})
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if !answer.AnswerRefused || answer.RefusalReason != "no_results" {
		t.Fatalf("expected a no_results refusal, got %#v", answer)
	}
}

func TestAsk_SynthesisErrorWrapsErrSynthesisRefused(t *testing.T) {
	vec := vectorstore.NewMemory()
	chunks := NewInMemoryChunkStore()
	embedder := NewDeterministicEmbedder(8, 0)
	vec2, err := embedder.Embed(context.Background(), "policy document")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	seedChunk(t, vec, chunks, "org1", "chunk1", vec2, pipeline.KnowledgeChunk{
		Classification: pipeline.ClassificationPublic, Content: "policy document", QualityScore: 0.9,
	})
	svc := New(vec, embedder, chunks, fakeSynth{err: errors.New("provider down")})

	_, err = svc.Ask(context.Background(), Query{
		Tenant:   "org1",
		Question: "policy document",
		Scope:    AccessScope{AccessibleClassifications: []pipeline.Classification{pipeline.ClassificationPublic}},
	})
	if !errors.Is(err, pipeline.ErrSynthesisRefused) {
		t.Fatalf("expected ErrSynthesisRefused, got %v", err)
	}
}

func TestRetrieve_DropsLowQualityAndBoilerplateChunks(t *testing.T) {
	vec := vectorstore.NewMemory()
	chunks := NewInMemoryChunkStore()
	embedder := NewDeterministicEmbedder(8, 0)

	q, _ := embedder.Embed(context.Background(), "anything")
	seedChunk(t, vec, chunks, "org1", "low_quality", q, pipeline.KnowledgeChunk{
		Classification: pipeline.ClassificationPublic, Content: "some content", QualityScore: 0.1,
	})
	seedChunk(t, vec, chunks, "org1", "boilerplate", q, pipeline.KnowledgeChunk{
		Classification: pipeline.ClassificationPublic, Content: "Table of Contents", QualityScore: 0.9,
	})
	seedChunk(t, vec, chunks, "org1", "good", q, pipeline.KnowledgeChunk{
		Classification: pipeline.ClassificationPublic, Content: "real content here", QualityScore: 0.9,
	})

	svc := New(vec, embedder, chunks, fakeSynth{})
	out, err := svc.Retrieve(context.Background(), Query{
		Tenant:   "org1",
		Question: "anything",
		Scope:    AccessScope{AccessibleClassifications: []pipeline.Classification{pipeline.ClassificationPublic}},
	})
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(out) != 1 || out[0].ChunkID != "good" {
		t.Fatalf("expected only the good chunk to survive, got %#v", out)
	}
}

func TestRetrieve_ExcludesConfidentialOutsideAccessibleDepartments(t *testing.T) {
	vec := vectorstore.NewMemory()
	chunks := NewInMemoryChunkStore()
	embedder := NewDeterministicEmbedder(8, 0)
	q, _ := embedder.Embed(context.Background(), "salary bands")

	seedChunk(t, vec, chunks, "org1", "confidential_eng", q, pipeline.KnowledgeChunk{
		Classification: pipeline.ClassificationConfidential, DepartmentID: "eng", Content: "engineering salary bands", QualityScore: 0.9,
	})
	seedChunk(t, vec, chunks, "org1", "confidential_sales", q, pipeline.KnowledgeChunk{
		Classification: pipeline.ClassificationConfidential, DepartmentID: "sales", Content: "sales salary bands", QualityScore: 0.9,
	})

	svc := New(vec, embedder, chunks, fakeSynth{})
	out, err := svc.Retrieve(context.Background(), Query{
		Tenant:   "org1",
		Question: "salary bands",
		Scope: AccessScope{
			AccessibleClassifications: []pipeline.Classification{pipeline.ClassificationPublic, pipeline.ClassificationInternal, pipeline.ClassificationConfidential},
			AccessibleDepartmentIDs:   []string{"eng"},
		},
	})
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(out) != 1 || out[0].ChunkID != "confidential_eng" {
		t.Fatalf("expected only the eng-department chunk to survive, got %#v", out)
	}
}

func TestBuildFilter_ThreeCasesMatchAccessScope(t *testing.T) {
	nonConfidential := BuildFilter("org1", AccessScope{AccessibleClassifications: []pipeline.Classification{pipeline.ClassificationPublic, pipeline.ClassificationInternal}})
	if nonConfidential.Or != nil {
		t.Fatalf("expected a plain Eq/In filter for the non-confidential case, got %#v", nonConfidential)
	}

	withDept := BuildFilter("org1", AccessScope{
		AccessibleClassifications: []pipeline.Classification{pipeline.ClassificationPublic, pipeline.ClassificationInternal, pipeline.ClassificationConfidential},
		AccessibleDepartmentIDs:   []string{"eng"},
	})
	if len(withDept.Or) != 2 {
		t.Fatalf("expected a 2-branch Or filter when departments are present, got %#v", withDept)
	}

	confidentialNoDept := BuildFilter("org1", AccessScope{AccessibleClassifications: []pipeline.Classification{pipeline.ClassificationPublic, pipeline.ClassificationInternal, pipeline.ClassificationConfidential}})
	if confidentialNoDept.Or != nil {
		t.Fatalf("expected confidential-without-department to exclude confidential via a plain In filter, got %#v", confidentialNoDept)
	}
}
