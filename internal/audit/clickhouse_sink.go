package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"

	"cogcore/internal/pipeline"
)

// ClickHouseSink is the durable analytics sink, separate from the hot
// request path: a write here never blocks or fails a turn (spec.md §4.13).
type ClickHouseSink struct {
	conn    clickhouse.Conn
	table   string
	timeout time.Duration
}

// NewClickHouseSink opens and pings the connection at construction time,
// matching the teacher's connect-then-ping-then-fail-fast constructor
// shape for every ClickHouse-backed component.
func NewClickHouseSink(ctx context.Context, dsn, table string) (*ClickHouseSink, error) {
	opts, err := clickhouse.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("audit: parse clickhouse dsn: %w", err)
	}
	conn, err := clickhouse.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("audit: open clickhouse connection: %w", err)
	}
	if table == "" {
		table = "audit_events"
	}

	timeout := 5 * time.Second
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := conn.Ping(pingCtx); err != nil {
		return nil, fmt.Errorf("audit: clickhouse ping: %w", err)
	}

	return &ClickHouseSink{conn: conn, table: table, timeout: timeout}, nil
}

// Init creates the audit_events table if it does not already exist.
func (c *ClickHouseSink) Init(ctx context.Context) error {
	ddl := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
  at          DateTime64(3),
  event       String,
  tenant      String,
  user_hash   String,
  action      String,
  risk_level  String,
  confidence  Float64,
  enforcement_action String,
  params      String,
  latency_ms  Int64,
  outcome     String,
  error_kind  String
) ENGINE = MergeTree()
ORDER BY (tenant, at)
`, c.table)
	return c.conn.Exec(ctx, ddl)
}

// Write inserts a single audit event row.
func (c *ClickHouseSink) Write(ctx context.Context, evt pipeline.AuditEvent) error {
	paramsJSON, err := json.Marshal(evt.Params)
	if err != nil {
		paramsJSON = []byte("{}")
	}

	writeCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	at := evt.At
	if at.IsZero() {
		at = time.Now()
	}

	return c.conn.Exec(writeCtx, fmt.Sprintf(`INSERT INTO %s
		(at, event, tenant, user_hash, action, risk_level, confidence, enforcement_action, params, latency_ms, outcome, error_kind)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, c.table),
		at, evt.Event, evt.Tenant, evt.UserHash, evt.Action, string(evt.RiskLevel),
		evt.Confidence, string(evt.EnforcementAction), string(paramsJSON), evt.LatencyMS, evt.Outcome, evt.ErrorKind)
}
