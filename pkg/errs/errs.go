package errs

import (
	"errors"
	"fmt"
	"time"
)

// Severity labels an orchestration error for the suspension UI.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeveritySystem   Severity = "system"
	SeverityWarning  Severity = "warning"
)

// FrozenState captures where the orchestrator stood when an error fired.
// The fields are plain strings so the snapshot survives JSON round-trips
// without dragging orchestrator types into this package.
type FrozenState struct {
	Schedule   string
	Process    string
	LastAction string
	FlowCode   string
}

// OrchestrationError is the structured error handed to the suspension
// handler. It freezes position, names the violated rule and proposes
// recovery options.
type OrchestrationError struct {
	Code        Code
	Severity    Severity
	Component   string
	Message     string
	Rule        string
	Timestamp   time.Time
	State       FrozenState
	Solutions   []string
	Recoverable bool
}

func (e *OrchestrationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Severity, e.Message)
}

// AppError carries a taxonomy code plus free-form context. It is the
// ordinary error currency between packages; OrchestrationError is reserved
// for faults that suspend the run.
type AppError struct {
	Code      Code
	Message   string
	Cause     error
	Context   map[string]interface{}
	Timestamp int64
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates an AppError with the given code and message.
func New(code Code, message string) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Timestamp: time.Now().Unix(),
	}
}

// Wrap attaches a taxonomy code to an existing error.
func Wrap(err error, code Code, message string) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Cause:     err,
		Timestamp: time.Now().Unix(),
	}
}

// WithContext adds a key/value pair to the error context.
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// GetMetadata returns the registry entry for this error's code.
func (e *AppError) GetMetadata() (Metadata, bool) {
	return GetMetadata(e.Code)
}

// GetImpact returns the impact grade for this error's code.
func (e *AppError) GetImpact() Impact {
	return GetImpact(e.Code)
}

// CodeOf extracts the taxonomy code from an error chain. Returns an empty
// code and false when no AppError or OrchestrationError is present.
func CodeOf(err error) (Code, bool) {
	var app *AppError
	if errors.As(err, &app) {
		return app.Code, true
	}
	var orch *OrchestrationError
	if errors.As(err, &orch) {
		return orch.Code, true
	}
	return "", false
}

// NewNavigationError creates an E001 error for an illegal process jump.
func NewNavigationError(message string, state FrozenState) *OrchestrationError {
	return &OrchestrationError{
		Code:        ErrInvalidTransition,
		Severity:    SeverityWarning,
		Component:   "Orchestrator",
		Message:     message,
		Rule:        "P1↔P2↔P3 navigation rule",
		Timestamp:   time.Now(),
		State:       state,
		Solutions:   []string{"Follow 1-2-3 sequence", "Reset to P1"},
		Recoverable: true,
	}
}

// NewBacktrackError creates an E006 error for re-entering a terminated schedule.
func NewBacktrackError(message string, state FrozenState) *OrchestrationError {
	return &OrchestrationError{
		Code:        ErrIllegalBacktrack,
		Severity:    SeverityWarning,
		Component:   "Orchestrator",
		Message:     message,
		Rule:        "terminated schedules stay closed",
		Timestamp:   time.Now(),
		State:       state,
		Solutions:   []string{"Restore a checkpoint instead", "Continue with an open schedule"},
		Recoverable: true,
	}
}

// NewOrchestratorViolationError flags the orchestrator performing agent work.
func NewOrchestratorViolationError(message string, state FrozenState) *OrchestrationError {
	return &OrchestrationError{
		Code:        ErrForbiddenAction,
		Severity:    SeverityCritical,
		Component:   "Orchestrator",
		Message:     message,
		Rule:        "TOOLER violation: orchestrator cannot perform agent actions",
		Timestamp:   time.Now(),
		State:       state,
		Solutions:   []string{"Delegate to Agent", "Refactor orchestration logic"},
		Recoverable: false,
	}
}

// NewAgentViolationError flags an agent making orchestration decisions.
func NewAgentViolationError(message string, state FrozenState) *OrchestrationError {
	return &OrchestrationError{
		Code:        ErrForbiddenAction,
		Severity:    SeverityCritical,
		Component:   "Agent",
		Message:     message,
		Rule:        "EXECUTOR violation: agent cannot perform orchestration decisions",
		Timestamp:   time.Now(),
		State:       state,
		Solutions:   []string{"Limit agent scope", "Check system prompts"},
		Recoverable: false,
	}
}
