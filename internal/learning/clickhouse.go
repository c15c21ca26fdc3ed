package learning

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
)

// ClickHouseStore implements OutcomeSink, FeedbackSink, and ReviewQueueSink
// against three MergeTree tables, grounded on the same
// ParseDSN→Open→Ping constructor shape used throughout the teacher's
// ClickHouse-backed components (internal/agentd/logs_clickhouse.go).
type ClickHouseStore struct {
	conn    clickhouse.Conn
	timeout time.Duration
}

// NewClickHouseStore opens and pings the connection at construction time.
func NewClickHouseStore(ctx context.Context, dsn string) (*ClickHouseStore, error) {
	opts, err := clickhouse.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("learning: parse clickhouse dsn: %w", err)
	}
	conn, err := clickhouse.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("learning: open clickhouse connection: %w", err)
	}

	timeout := 5 * time.Second
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := conn.Ping(pingCtx); err != nil {
		return nil, fmt.Errorf("learning: clickhouse ping: %w", err)
	}

	return &ClickHouseStore{conn: conn, timeout: timeout}, nil
}

// Init creates the outcomes, feedback, and review_queue tables.
func (c *ClickHouseStore) Init(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS outcomes (
			at          DateTime64(3) DEFAULT now64(3),
			decision_id String,
			tenant      String,
			action      String,
			confidence  Float64,
			success     UInt8,
			risk_level  String,
			reason_code String
		) ENGINE = MergeTree() ORDER BY (tenant, at)`,
		`CREATE TABLE IF NOT EXISTS feedback (
			at          DateTime64(3) DEFAULT now64(3),
			decision_id String,
			tenant      String,
			sentiment   String
		) ENGINE = MergeTree() ORDER BY (tenant, at)`,
		`CREATE TABLE IF NOT EXISTS review_queue (
			at          DateTime64(3) DEFAULT now64(3),
			decision_id String,
			tenant      String,
			action      String,
			confidence  Float64,
			risk_level  String,
			reason_code String
		) ENGINE = MergeTree() ORDER BY (tenant, at)`,
	}
	for _, stmt := range statements {
		if err := c.conn.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("learning: init table: %w", err)
		}
	}
	return nil
}

// WriteOutcome inserts one outcome row.
func (c *ClickHouseStore) WriteOutcome(ctx context.Context, o Outcome) error {
	writeCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	success := uint8(0)
	if o.Success {
		success = 1
	}
	return c.conn.Exec(writeCtx,
		`INSERT INTO outcomes (decision_id, tenant, action, confidence, success, risk_level, reason_code) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		o.DecisionID, o.Tenant, o.Action, o.Confidence, success, string(o.RiskLevel), o.ReasonCode)
}

// WriteFeedback inserts one feedback row.
func (c *ClickHouseStore) WriteFeedback(ctx context.Context, f Feedback) error {
	writeCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.conn.Exec(writeCtx,
		`INSERT INTO feedback (decision_id, tenant, sentiment) VALUES (?, ?, ?)`,
		f.DecisionID, f.Tenant, string(f.Sentiment))
}

// Enqueue inserts one review_queue row.
func (c *ClickHouseStore) Enqueue(ctx context.Context, o Outcome) error {
	writeCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.conn.Exec(writeCtx,
		`INSERT INTO review_queue (decision_id, tenant, action, confidence, risk_level, reason_code) VALUES (?, ?, ?, ?, ?, ?)`,
		o.DecisionID, o.Tenant, o.Action, o.Confidence, string(o.RiskLevel), o.ReasonCode)
}
