package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"cogcore/internal/pipeline"
)

// kafkaWriter is the subset of *kafka.Writer this sink needs, mirroring
// internal/tools/kafka.Writer's narrow interface for testability.
type kafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// KafkaSink streams every audit event to a topic for downstream log
// aggregation, independent of the durable ClickHouseSink.
type KafkaSink struct {
	writer kafkaWriter
	topic  string
}

// NewKafkaSink constructs a sink writing to topic over brokers.
func NewKafkaSink(brokers []string, topic string) *KafkaSink {
	return &KafkaSink{
		writer: &kafka.Writer{Addr: kafka.TCP(brokers...), Topic: topic, Balancer: &kafka.LeastBytes{}},
		topic:  topic,
	}
}

// Write serializes evt as JSON and publishes it keyed by tenant, so all of
// one tenant's events land on the same partition.
func (k *KafkaSink) Write(ctx context.Context, evt pipeline.AuditEvent) error {
	payload, err := json.Marshal(auditEventJSON(evt))
	if err != nil {
		return fmt.Errorf("audit: marshal event: %w", err)
	}
	return k.writer.WriteMessages(ctx, kafka.Message{
		Topic: k.topic,
		Key:   []byte(evt.Tenant),
		Value: payload,
	})
}

type auditEventPayload struct {
	Event      string         `json:"event"`
	Tenant     string         `json:"tenant"`
	UserHash   string         `json:"user_hash"`
	Action     string         `json:"action"`
	RiskLevel  string         `json:"risk_level"`
	Confidence float64        `json:"confidence"`
	EnforcementAction string  `json:"enforcement_action,omitempty"`
	Params     map[string]any `json:"params,omitempty"`
	LatencyMS  int64          `json:"latency_ms"`
	Outcome    string         `json:"outcome"`
	ErrorKind  string         `json:"error_kind,omitempty"`
}

func auditEventJSON(evt pipeline.AuditEvent) auditEventPayload {
	return auditEventPayload{
		Event:      evt.Event,
		Tenant:     evt.Tenant,
		UserHash:   evt.UserHash,
		Action:     evt.Action,
		RiskLevel:  string(evt.RiskLevel),
		Confidence: evt.Confidence,
		EnforcementAction: string(evt.EnforcementAction),
		Params:     evt.Params,
		LatencyMS:  evt.LatencyMS,
		Outcome:    evt.Outcome,
		ErrorKind:  evt.ErrorKind,
	}
}
