// Package capability implements the Capability Registry (C3): a
// process-wide immutable table of tool definitions loaded once at startup.
// Adding a capability is a pure data change — a new Capability row — never
// a code change in Understanding or Decision.
package capability

import (
	"context"

	"cogcore/internal/pipeline"
)

// Capability is the static, declarative definition of one tool (spec.md
// §3). PrimaryKeywords/SecondaryKeywords/NegativeKeywords and IntentHints
// drive keyword scoring in Understanding and Decision; HandlerRef is
// resolved to a callable at registration time, never invoked by name at
// call time.
type Capability struct {
	Name               string
	Enabled            bool
	PrimaryKeywords    []string
	SecondaryKeywords  []string
	NegativeKeywords   []string
	RiskLevel          pipeline.RiskLevel
	RequiresConfirmation bool
	Dangerous          bool
	HandlerRef         string
	IntentHints        []string
}

// HandlerFunc is the callable bound to a Capability's HandlerRef. params
// carries Decision's resolved arguments; ctxSnapshot is the Context for the
// turn; identity fields let a handler act on behalf of the right tenant.
type HandlerFunc func(ctx context.Context, params map[string]any, roomID, orgID, senderName string, turnCtx pipeline.Context) (pipeline.HandlerResult, error)
