// Package pipeline defines the per-turn data shapes shared across every
// component (spec.md §3) and wires the fixed Context → Understanding →
// Authorization → Decision → Execution → Response → Learning sequence
// (spec.md §2). It is the only package every other component may depend on
// without creating an import cycle; component packages depend on pipeline's
// types, never the reverse.
package pipeline

import "time"

// Urgency levels, ordered low to critical (spec.md §3).
type Urgency string

const (
	UrgencyLow      Urgency = "LOW"
	UrgencyMedium   Urgency = "MEDIUM"
	UrgencyHigh     Urgency = "HIGH"
	UrgencyCritical Urgency = "CRITICAL"
)

// RiskLevel mirrors Capability.risk_level / DecisionResult.risk_level.
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// EnforcementAction is the gate's override instruction to the orchestrator.
type EnforcementAction string

const (
	EnforcementNone           EnforcementAction = "NONE"
	EnforcementForceListening EnforcementAction = "FORCE_LISTENING"
	EnforcementBlockAndSuggest EnforcementAction = "BLOCK_AND_SUGGEST"
	EnforcementWarnOnly       EnforcementAction = "WARN_ONLY"
)

// AuthDecision is the gate's three-level risk decision (spec.md §4.6).
type AuthDecision string

const (
	AuthAutoApprove          AuthDecision = "AUTO_APPROVE"
	AuthRequireConfirmation  AuthDecision = "REQUIRE_CONFIRMATION"
	AuthRequireDoubleCheck   AuthDecision = "REQUIRE_DOUBLE_CHECK"
)

// StateType enumerates ConversationState.state_type values.
type StateType string

const (
	StateNormal       StateType = "NORMAL"
	StateGoalSetting  StateType = "GOAL_SETTING"
	StateAnnouncement StateType = "ANNOUNCEMENT"
	StateConfirmation StateType = "CONFIRMATION"
	StateTaskPending  StateType = "TASK_PENDING"
	StateListContext  StateType = "LIST_CONTEXT"
	StateMultiAction  StateType = "MULTI_ACTION"
)

// StateExitCode is the audit-visible reason a session's state ended.
type StateExitCode string

const (
	ExitCompleted   StateExitCode = "completed"
	ExitUserCancel  StateExitCode = "user_cancel"
	ExitTimeout     StateExitCode = "timeout"
	ExitError       StateExitCode = "error"
	ExitInterrupted StateExitCode = "interrupted"
)

// Message is the ephemeral inbound chat message (spec.md §3).
type Message struct {
	OrgID       string
	RoomID      string
	UserID      string
	SenderName  string
	Text        string
	Attachments []AttachmentRef
	ReceivedAt  time.Time
}

// AttachmentRef is an opaque handle; the core never reads attachment bytes.
type AttachmentRef struct {
	Handle string
	Kind   string
}

// Classification levels for knowledge chunks (spec.md §3, §4.10).
type Classification string

const (
	ClassificationPublic       Classification = "public"
	ClassificationInternal     Classification = "internal"
	ClassificationConfidential Classification = "confidential"
)

// KnowledgeChunk is a unit of retrievable text with access-control metadata.
type KnowledgeChunk struct {
	ChunkID        string
	DocumentID     string
	Version        int
	Content        string
	Classification Classification
	DepartmentID   string
	Category       string
	Page           int
	QualityScore   float64
}

// Episode is a PII-safe long-term memory record (spec.md §3). The body of
// user content is never stored here, only factual meta.
type Episode struct {
	EpisodeID string
	OrgID     string
	UserID    string
	Type      string
	Summary   string // <= 200 chars, PII-safe
	Entities  []string
	Keywords  []string
	Importance float64
	CreatedAt time.Time
}

// Person is a resolved contact/colleague record used by alias resolution.
type Person struct {
	PersonID  string
	OrgID     string
	Name      string
	Aliases   []string
	Honorific string
}

// Task is a lightweight projection of a tracked task item.
type Task struct {
	TaskID     string
	OrgID      string
	Body       string
	AssignedTo string
	LimitDate  *time.Time
	Status     string
}

// Goal is a lightweight projection of a tracked goal.
type Goal struct {
	GoalID string
	OrgID  string
	Title  string
	Why    string
	Active bool
}

// Insight is a recent derived observation surfaced into Context.
type Insight struct {
	InsightID string
	OrgID     string
	Summary   string
	CreatedAt time.Time
}

// ConversationTurn is one entry in the bounded recent-conversation window.
type ConversationTurn struct {
	SenderName string
	Text       string
	SentAt     time.Time
}

// Preferences holds user-level preference key/values.
type Preferences map[string]string

// Context is the per-turn, immutable snapshot produced by the Context
// Builder (C4). Every slice is independently optional: a failure to fetch
// any one source yields an empty slice, never an error (spec.md §3).
type Context struct {
	OrgID   string
	RoomID  string
	UserID  string
	Sender  string

	RecentConversation []ConversationTurn
	ConversationSummary string
	Preferences         Preferences
	Persons             []Person
	ActiveTasks         []Task
	ActiveGoals         []Goal
	RecentInsights      []Insight
	KnowledgeChunks     []KnowledgeChunk // lazily filled by C10 when a knowledge tool runs
	RecalledEpisodes    []Episode

	BuiltAt time.Time
}

// UnderstandingResult is C5's output.
type UnderstandingResult struct {
	Intent             string
	IntentConfidence   float64
	Entities           map[string]string
	ResolvedPronouns   []string
	Urgency            Urgency
	Emotion            string
	RawMessage         string
	NeedsClarification bool
	NeedsConfirmation  bool
}

// ConfirmationOption is one selectable choice offered during CONFIRMATION
// state (spec.md §4.8).
type ConfirmationOption struct {
	Label string
	Value string
}

// DecisionResult is C7's output.
type DecisionResult struct {
	DecisionID           string
	Action               string
	Params               map[string]any
	Confidence           float64
	NeedsConfirmation    bool
	ConfirmationOptions  []ConfirmationOption
	RiskLevel            RiskLevel
	Reasoning            string
	EnforcementAction    EnforcementAction
	RedirectMessage      string // set when EnforcementAction forces a fixed response (spec.md §4.6 S6)
	CoordinatedPlan      []DecisionResult // populated for multi-action decisions
}

// HandlerMetadata signals state changes a handler wants the orchestrator to
// apply. Handlers never write ConversationState directly (spec.md §3).
type HandlerMetadata struct {
	AwaitingInput       bool
	AwaitingConfirmation bool
	PendingData         map[string]any
	NewState            string // a StateType name, e.g. "GOAL_SETTING"; "NORMAL" signals ANNOUNCEMENT completion
}

// HandlerResult is C9's normalized output from any capability handler.
type HandlerResult struct {
	Success     bool
	Message     string
	Data        map[string]any
	Suggestions []string
	Metadata    HandlerMetadata
}

// Response is the structured reply the core hands back to Transport
// (spec.md §6). Empty Message is illegal.
type Response struct {
	Message              string
	StateChanged         bool
	NewState             string
	ActionTaken          string
	Success              bool
	Suggestions          []string
	AwaitingConfirmation bool
	AwaitingInput        bool
	LatencyMS            int64
}

// AuditEvent is the structured, PII-redacted record emitted for every gate
// decision, tool call, state transition, and proactive attempt (spec.md
// §4.13). Original user text never appears in a value here.
type AuditEvent struct {
	Event             string
	Tenant            string
	UserHash          string
	Action            string
	RiskLevel         RiskLevel
	Confidence        float64
	EnforcementAction EnforcementAction // set for a gate_decision forced by a safety pattern (spec.md §4.13 S6)
	Params            map[string]any    // PII keys already stripped by the caller
	LatencyMS         int64
	Outcome           string
	ErrorKind         string
	At                time.Time
}
