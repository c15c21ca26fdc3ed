// Command assistant runs the cognitive pipeline's HTTP entry point: one
// webhook handler that turns an inbound chat-platform message into a
// Context, routes it through the Orchestrator, and returns the turn's
// Response (spec.md §6).
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"cogcore/internal/audit"
	"cogcore/internal/capability"
	"cogcore/internal/config"
	"cogcore/internal/contextbuilder"
	"cogcore/internal/decision"
	"cogcore/internal/execution"
	"cogcore/internal/handlers"
	"cogcore/internal/knowledge"
	"cogcore/internal/knowledge/vectorstore"
	"cogcore/internal/learning"
	"cogcore/internal/llm"
	"cogcore/internal/llm/anthropic"
	"cogcore/internal/llm/openai"
	"cogcore/internal/memory"
	"cogcore/internal/orchestrator"
	"cogcore/internal/pipeline"
	"cogcore/internal/state"
	"cogcore/internal/telemetry"
	"cogcore/internal/understanding"
)

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
	if initer, ok := memSource.(interface{ Init(context.Context) error }); ok {
		if err := initer.Init(context.Background()); err != nil {
			log.Fatal().Err(err).Msg("failed to initialize memory schema")
		}
	}
	memAccess := memory.New(memSource, logger)

	chunkStore := knowledge.NewPostgresChunkStore(pool)
	if err := chunkStore.Init(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("failed to initialize knowledge chunk schema")
	}

	vectorStore, err := vectorstore.New(cfg.Vector.DSN, cfg.Vector.Collection, cfg.Vector.Dimensions, cfg.Vector.Metric)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to vector store")
	}
	defer vectorStore.Close()

	stateStore, err := state.NewRedisStore(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to state store")
	}

	httpClient := &http.Client{Timeout: 30 * time.Second}
	var chatProvider llm.Provider
	chatModel := cfg.LLM.Anthropic.Model
	switch cfg.LLM.Backend {
	case "openai":
		chatProvider = openai.New(cfg.LLM.OpenAI, httpClient)
		chatModel = cfg.LLM.OpenAI.Model
	default:
		chatProvider = anthropic.New(cfg.LLM.Anthropic, httpClient)
	}

	// No production embedding endpoint is wired yet: DeterministicEmbedder
	// covers both local/dev runs and the synthesis path until a real
	// embedding client lands alongside the chat providers above.
	embedder := knowledge.NewDeterministicEmbedder(cfg.Vector.Dimensions, 0)

	knowledgeSvc := knowledge.New(vectorStore, embedder, chunkStore, chatProvider,
		knowledge.WithLogger(logger), knowledge.WithSynthModel(chatModel))

	auditSinks := buildAuditSinks(cfg, logger)
	auditSvc := audit.New(auditSinks, audit.WithLogger(logger))

	outcomeSink, err := learning.NewClickHouseStore(context.Background(), cfg.ClickHouse.DSN)
	if err != nil {
		log.Warn().Err(err).Msg("clickhouse outcome sink unavailable, learning outcomes will be dropped")
	}
	var learningSvc *learning.Service
	if outcomeSink != nil {
		learningSvc = learning.New(outcomeSink, learning.WithLogger(logger))
	} else {
		learningSvc = learning.New(noopOutcomeSink{}, learning.WithLogger(logger))
	}

	reg, err := capability.NewRegistry(capability.DefaultCatalog())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build capability registry")
	}

	if err := handlers.Register(reg, handlers.Deps{
		Memory:              memAccess,
		Knowledge:           knowledgeSvc,
		Conversation:        chatProvider,
		ChatModel:           chatModel,
		Log:                 logger,
		EnableTruthResolver: cfg.Flags.EnableTruthResolver,
	}); err != nil {
		log.Fatal().Err(err).Msg("failed to register capability handlers")
	}

	builder := contextbuilder.New(memAccess, contextbuilder.WithBudget(cfg.Timeouts.ContextBuildBudget))
	understand := understanding.New(reg, understanding.WithRefiner(chatProvider, chatModel), understanding.WithLogger(logger))
	decide := decision.New(reg)

	var dedupe execution.Deduper
	if d, err := execution.NewRedisDeduper(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB); err != nil {
		log.Warn().Err(err).Msg("execution dedupe store unavailable, duplicate handler calls will not be caught")
	} else {
		dedupe = d
	}
	exec := execution.New(reg, execution.WithAuditor(auditSvc), execution.WithDeduper(dedupe),
		execution.WithTimeout(cfg.Timeouts.HandlerTimeout), execution.WithLogger(logger))

	orch := orchestrator.New(stateStore, understand, decide, exec,
		orchestrator.WithAuditor(auditSvc), orchestrator.WithLearner(learningSvc), orchestrator.WithLogger(logger))

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "ok")
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "ready")
	})
	mux.HandleFunc("/message", messageHandler(cfg, builder, orch, logger))

	addr := ":8080"
	log.Info().Str("addr", addr).Msg("assistant listening")
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
}

// inboundMessage mirrors spec.md §6's inbound webhook payload.
type inboundMessage struct {
	TenantID    string `json:"tenant_id"`
	RoomID      string `json:"room_id"`
	UserID      string `json:"user_id"`
	SenderName  string `json:"sender_name"`
	Text        string `json:"text"`
	Attachments []struct {
		Handle string `json:"handle"`
		Kind   string `json:"kind"`
	} `json:"attachments"`
}

// outboundResponse mirrors spec.md §6's outbound response shape.
type outboundResponse struct {
	Message              string   `json:"message"`
	StateChanged         bool     `json:"state_changed"`
	NewState             string   `json:"new_state,omitempty"`
	ActionTaken          string   `json:"action_taken,omitempty"`
	Success              bool     `json:"success"`
	Suggestions          []string `json:"suggestions,omitempty"`
	AwaitingConfirmation bool     `json:"awaiting_confirmation,omitempty"`
	AwaitingInput        bool     `json:"awaiting_input,omitempty"`
	LatencyMS            int64    `json:"latency_ms"`
}

// messageHandler is the single inbound entry point for every turn. When
// EnableBrainArchitecture is off, every message is refused with a fixed
// "system unavailable" response rather than running a partial core
// (spec.md §6, §7's ErrConfiguration contract).
func messageHandler(cfg config.Config, builder *contextbuilder.Builder, orch *orchestrator.Orchestrator, logger telemetry.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		if !cfg.Flags.EnableBrainArchitecture {
			writeJSON(w, outboundResponse{Message: "system unavailable", Success: false})
			return
		}

		var in inboundMessage
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), cfg.Timeouts.MessageBudget)
		defer cancel()

		msg := pipeline.Message{
			OrgID:      in.TenantID,
			RoomID:     in.RoomID,
			UserID:     in.UserID,
			SenderName: in.SenderName,
			Text:       in.Text,
			ReceivedAt: time.Now(),
		}
		for _, a := range in.Attachments {
			msg.Attachments = append(msg.Attachments, pipeline.AttachmentRef{Handle: a.Handle, Kind: a.Kind})
		}

		turnCtx := builder.Build(ctx, in.TenantID, in.RoomID, in.UserID, in.SenderName, msg)
		resp := orch.RouteTurn(ctx, msg, turnCtx)

		writeJSON(w, outboundResponse{
			Message:              resp.Message,
			StateChanged:         resp.StateChanged,
			NewState:             resp.NewState,
			ActionTaken:          resp.ActionTaken,
			Success:              resp.Success,
			Suggestions:          resp.Suggestions,
			AwaitingConfirmation: resp.AwaitingConfirmation,
			AwaitingInput:        resp.AwaitingInput,
			LatencyMS:            resp.LatencyMS,
		})
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// buildAuditSinks wires whichever of ClickHouse/Kafka has a configured DSN
// or brokers; either, both, or neither may be present, matching audit.New's
// zero-sinks-is-valid contract.
func buildAuditSinks(cfg config.Config, logger telemetry.Logger) []audit.Sink {
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

// noopOutcomeSink is used when no ClickHouse outcome store could be
// reached, so learning.Service still has a valid (silently dropping) sink
// rather than main failing to boot over a non-critical dependency.
type noopOutcomeSink struct{}

func (noopOutcomeSink) WriteOutcome(context.Context, learning.Outcome) error { return nil }
