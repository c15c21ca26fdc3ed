// Package authorization implements the Authorization Gate (C6): a pure,
// no-I/O three-level risk decision consuming capability risk level,
// detected safety patterns, and understanding confidence (spec.md §4.6).
package authorization

import "cogcore/internal/pipeline"

// Input is every value the gate needs; it never reaches outside itself for
// more, by design — exhaustively unit-testable with table-driven tests.
type Input struct {
	CapabilityKnown     bool
	RiskLevel           pipeline.RiskLevel
	RequiresConfirmation bool
	Dangerous           bool
	IntentConfidence    float64
	RawMessage          string
}

// Result is the gate's verdict.
type Result struct {
	Decision          pipeline.AuthDecision
	EnforcementAction pipeline.EnforcementAction
	RedirectMessage   string
	Reason            string
}

// confidenceConfirmLow and confidenceConfirmHigh bound the
// understanding-confidence window that alone
// forces REQUIRE_CONFIRMATION regardless of risk level (spec.md §4.6).
const (
	confidenceConfirmLow  = 0.5
	confidenceConfirmHigh = 0.7
)

// Evaluate is the gate. It performs no I/O and has no side effects.
func Evaluate(in Input) Result {
	if pattern, ok := detectSafetyPattern(in.RawMessage); ok {
		return Result{
			Decision:          pipeline.AuthRequireDoubleCheck,
			EnforcementAction: pattern.enforcement,
			RedirectMessage:   pattern.redirectMessage,
			Reason:            pattern.reason,
		}
	}

	if !in.CapabilityKnown {
		return Result{
			Decision:          pipeline.AuthRequireConfirmation,
			EnforcementAction: pipeline.EnforcementNone,
			Reason:            "unknown_capability",
		}
	}

	if in.RiskLevel == pipeline.RiskCritical {
		return Result{
			Decision:          pipeline.AuthRequireDoubleCheck,
			EnforcementAction: pipeline.EnforcementNone,
			Reason:            "critical_risk_level",
		}
	}

	if in.RiskLevel == pipeline.RiskHigh || in.RequiresConfirmation || in.Dangerous {
		return Result{
			Decision:          pipeline.AuthRequireConfirmation,
			EnforcementAction: pipeline.EnforcementNone,
			Reason:            "high_risk_or_confirmation_required",
		}
	}

	if in.IntentConfidence >= confidenceConfirmLow && in.IntentConfidence < confidenceConfirmHigh {
		return Result{
			Decision:          pipeline.AuthRequireConfirmation,
			EnforcementAction: pipeline.EnforcementNone,
			Reason:            "low_understanding_confidence",
		}
	}

	return Result{
		Decision:          pipeline.AuthAutoApprove,
		EnforcementAction: pipeline.EnforcementNone,
		Reason:            "low_or_medium_risk",
	}
}
