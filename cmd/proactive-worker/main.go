// Command proactive-worker runs the Proactive Generator's (C12) external
// entry point: an HTTP endpoint an outside scheduler calls per trigger
// (spec.md §4.12). It shares the Context Builder and LLM wiring with the
// conversational core but never touches Decision or Execution directly —
// every draft is gated and delivered (or dropped) inside Generator.Run.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"cogcore/internal/audit"
	"cogcore/internal/config"
	"cogcore/internal/contextbuilder"
	"cogcore/internal/llm"
	"cogcore/internal/llm/anthropic"
	"cogcore/internal/llm/openai"
	"cogcore/internal/memory"
	"cogcore/internal/pipeline"
	"cogcore/internal/proactive"
	"cogcore/internal/telemetry"
)

// defaultTriggerProfiles covers the trigger types spec.md §4.12 names. An
// unrecognized trigger_type still reaches Generator.Run, which treats it as
// an unknown capability and always drops the message. Only AUTO_APPROVE
// drafts are emitted, so stale_conversation_followup, whose profile
// requires confirmation, is always dropped as well.
func defaultTriggerProfiles() map[string]proactive.TriggerProfile {
	return map[string]proactive.TriggerProfile{
		"goal_checkin": {
			RiskLevel:   pipeline.RiskLow,
			DraftPrompt: "Write a brief, warm check-in about the user's active goal, grounded only in the given context.",
		},
		"task_reminder": {
			RiskLevel:   pipeline.RiskLow,
			DraftPrompt: "Write a brief reminder about the user's active task, grounded only in the given context.",
		},
		"stale_conversation_followup": {
			RiskLevel:            pipeline.RiskMedium,
			RequiresConfirmation: true,
			DraftPrompt:          "Write a brief, low-pressure follow-up re-opening a conversation that has gone quiet.",
		},
	}
}

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	logger := telemetry.NewZerologLogger(cfg.LogLevel)

	pool, err := pgxpool.New(context.Background(), cfg.Postgres.DSN)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open postgres pool")
	}
	defer pool.Close()

	memSource := memory.NewPostgresSource(pool)
	memAccess := memory.New(memSource, logger)

	httpClient := &http.Client{Timeout: 30 * time.Second}
	var chat llm.Provider
	chatModel := cfg.LLM.Anthropic.Model
	switch cfg.LLM.Backend {
	case "openai":
		chat = openai.New(cfg.LLM.OpenAI, httpClient)
		chatModel = cfg.LLM.OpenAI.Model
	default:
		chat = anthropic.New(cfg.LLM.Anthropic, httpClient)
	}

	// A proactive draft budgets far less context than a live turn: no
	// point fanning out the full set of memory slices for a scheduled
	// check-in message.
	builder := contextbuilder.New(memAccess, contextbuilder.WithBudget(150*time.Millisecond))

	auditSinks := buildAuditSinks(cfg)
	auditSvc := audit.New(auditSinks, audit.WithLogger(logger))

	gen := proactive.New(builder, chat, chatModel, defaultTriggerProfiles(),
		proactive.WithAuditor(auditSvc), proactive.WithLogger(logger))

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/trigger", triggerHandler(gen))

	addr := ":8081"
	log.Info().Str("addr", addr).Msg("proactive-worker listening")
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
}

type triggerRequest struct {
	TriggerType string `json:"trigger_type"`
	UserID      string `json:"user_id"`
	TenantID    string `json:"tenant_id"`
	RoomID      string `json:"room_id"`
}

type triggerResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message,omitempty"`
}

func triggerHandler(gen *proactive.Generator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req triggerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
		defer cancel()

		message, sent := gen.Run(ctx, proactive.Trigger{
			TriggerType: req.TriggerType,
			UserID:      req.UserID,
			TenantID:    req.TenantID,
			RoomID:      req.RoomID,
		})

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(triggerResponse{Sent: sent, Message: message})
	}
}

func buildAuditSinks(cfg config.Config) []audit.Sink {
	var sinks []audit.Sink
	if cfg.ClickHouse.DSN != "" {
		sink, err := audit.NewClickHouseSink(context.Background(), cfg.ClickHouse.DSN, cfg.ClickHouse.Table)
		if err != nil {
			log.Warn().Err(err).Msg("clickhouse audit sink unavailable")
		} else {
			sinks = append(sinks, sink)
		}
	}
	if len(cfg.Kafka.Brokers) > 0 {
		sinks = append(sinks, audit.NewKafkaSink(cfg.Kafka.Brokers, cfg.Kafka.AuditTopic))
	}
	return sinks
}
