package understanding

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"cogcore/internal/llm"
	"cogcore/internal/pipeline"
)

// refinedVerdict is the structured judgment requested from the LLM when
// keyword confidence is weak.
type refinedVerdict struct {
	intent     string
	confidence float64
}

const refineSystemPrompt = "You classify a single chat message into an intent. " +
	"Reply with exactly one line of JSON: {\"intent\": \"<name>\", \"confidence\": <0..1>}. " +
	"Use only the provided candidate intent or \"general_conversation\". Never invent a new intent name."

// refine asks the configured LLM provider to confirm or override the
// keyword-derived intent, using a strictly bounded context: the raw
// message, the keyword candidate, and nothing else from Context (spec.md
// §4.5 step 7 — "the LLM receives a strictly bounded context"). A failed
// call keeps the keyword result, signaled by ok=false.
func (s *Service) refine(ctx context.Context, text string, turnCtx pipeline.Context, keywordIntent string) (refinedVerdict, bool) {
	prompt := fmt.Sprintf("Message: %q\nCandidate intent: %q", text, keywordIntent)
	msgs := []llm.Message{
		{Role: "system", Content: refineSystemPrompt},
		{Role: "user", Content: prompt},
	}

	resp, err := s.refiner.Chat(ctx, msgs, nil, s.model)
	if err != nil {
		s.log.Warn("understanding_refine_failed", map[string]any{"error_kind": "llm_error"})
		return refinedVerdict{}, false
	}

	verdict, ok := parseVerdict(resp.Content)
	if !ok {
		s.log.Warn("understanding_refine_unparseable", map[string]any{})
		return refinedVerdict{}, false
	}
	return verdict, true
}

func parseVerdict(content string) (refinedVerdict, bool) {
	line := strings.TrimSpace(content)
	if idx := strings.IndexByte(line, '\n'); idx >= 0 {
		line = line[:idx]
	}
	var raw struct {
		Intent     string  `json:"intent"`
		Confidence float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(line), &raw); err != nil || raw.Intent == "" {
		return refinedVerdict{}, false
	}
	if raw.Confidence < 0 {
		raw.Confidence = 0
	}
	if raw.Confidence > 1 {
		raw.Confidence = 1
	}
	return refinedVerdict{intent: raw.Intent, confidence: raw.Confidence}, true
}
