// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package errs defines the closed error taxonomy used across the
// orchestration core. Every failure surfaced to the suspension handler or
// the CLI carries one of the codes below.
package errs

import "fmt"

// Code identifies one error condition in the taxonomy.
type Code string

const (
	// Navigation violations (E001-E009)

	// ErrInvalidTransition: jump between non-adjacent processes (e.g. P1 to P3).
	ErrInvalidTransition Code = "E001"
	// ErrAgentTermination: an agent tried to terminate a schedule on its own.
	ErrAgentTermination Code = "E002"
	// ErrOrchestratorBypass: the orchestrator skipped a required process.
	ErrOrchestratorBypass Code = "E003"
	// ErrCircularNavigation: a loop was detected in the process flow.
	ErrCircularNavigation Code = "E004"
	// ErrStateMismatch: state inconsistency detected during navigation.
	ErrStateMismatch Code = "E005"
	// ErrIllegalBacktrack: attempt to re-enter a terminated schedule or process.
	ErrIllegalBacktrack Code = "E006"
	// ErrProcessSkip: a mandatory validation step was skipped.
	ErrProcessSkip Code = "E007"
	// ErrConcurrentNavigation: more than one actor navigating the same flow.
	ErrConcurrentNavigation Code = "E008"
	// ErrTargetNotFound: the navigation target does not exist.
	ErrTargetNotFound Code = "E009"

	// System errors (E010-E015)

	// ErrOllamaUnavailable: the Ollama daemon is not reachable.
	ErrOllamaUnavailable Code = "E010"
	// ErrModelNotFound: a configured model is not present in the daemon.
	ErrModelNotFound Code = "E011"
	// ErrResourceExhausted: memory, CPU or disk is critically low.
	ErrResourceExhausted Code = "E012"
	// ErrFileSystemAccess: reading or writing the file system failed.
	ErrFileSystemAccess Code = "E013"
	// ErrNetworkTimeout: a network operation exceeded its deadline.
	ErrNetworkTimeout Code = "E014"
	// ErrGitConflict: a git operation hit unmanaged conflicts.
	ErrGitConflict Code = "E015"

	// Validation errors (E016-E020)

	// ErrInvalidInput: user input failed validation.
	ErrInvalidInput Code = "E016"
	// ErrMissingParameter: a required parameter was not provided.
	ErrMissingParameter Code = "E017"
	// ErrOutOfRange: a value is outside its allowed range.
	ErrOutOfRange Code = "E018"
	// ErrFormatMismatch: input does not match the expected format.
	ErrFormatMismatch Code = "E019"
	// ErrIncompatibleVersion: version mismatch between components.
	ErrIncompatibleVersion Code = "E020"

	// Authentication and permission errors (E021-E025)

	// ErrUnauthorized: actor is not authorized for the action.
	ErrUnauthorized Code = "E021"
	// ErrTokenExpired: an API token or session has expired.
	ErrTokenExpired Code = "E022"
	// ErrInsufficientScope: credentials lack the necessary scope.
	ErrInsufficientScope Code = "E023"
	// ErrForbiddenAction: the action is forbidden by role policy.
	ErrForbiddenAction Code = "E024"
	// ErrKeyMissing: a required API key or secret is missing.
	ErrKeyMissing Code = "E025"
)

// Impact grades how badly an error affects the run.
type Impact int

const (
	ImpactNone Impact = iota
	ImpactLow
	ImpactMedium
	ImpactHigh
	ImpactCritical
	ImpactFatal
)

func (i Impact) String() string {
	switch i {
	case ImpactLow:
		return "LOW"
	case ImpactMedium:
		return "MEDIUM"
	case ImpactHigh:
		return "HIGH"
	case ImpactCritical:
		return "CRITICAL"
	case ImpactFatal:
		return "FATAL"
	default:
		return "NONE"
	}
}

// Metadata describes one code in the taxonomy.
type Metadata struct {
	Code        Code
	Description string
	Impact      Impact
	Recoverable bool
	ActionHint  string
}

// Registry maps every code to its metadata. The set is closed; codes are
// never minted at runtime.
var Registry = map[Code]Metadata{
	ErrInvalidTransition: {
		Code:        ErrInvalidTransition,
		Description: "Invalid process transition (e.g., P1 to P3).",
		Impact:      ImpactHigh,
		Recoverable: true,
		ActionHint:  "Ensure process navigation follows the strict 1-2-3 sequence.",
	},
	ErrAgentTermination: {
		Code:        ErrAgentTermination,
		Description: "Agent attempted to terminate schedule prematurely.",
		Impact:      ImpactCritical,
		Recoverable: false,
		ActionHint:  "Check agent prompts and termination conditions.",
	},
	ErrOrchestratorBypass: {
		Code:        ErrOrchestratorBypass,
		Description: "Orchestrator bypassed a mandatory process step.",
		Impact:      ImpactHigh,
		Recoverable: true,
		ActionHint:  "Verify orchestration logic and flow code generation.",
	},
	ErrCircularNavigation: {
		Code:        ErrCircularNavigation,
		Description: "Circular dependency detected in process flow.",
		Impact:      ImpactMedium,
		Recoverable: true,
		ActionHint:  "Analyze flow code for loops and simplify transitions.",
	},
	ErrStateMismatch: {
		Code:        ErrStateMismatch,
		Description: "Inconsistent state detected during navigation.",
		Impact:      ImpactHigh,
		Recoverable: true,
		ActionHint:  "Check for concurrent modifications to the session state.",
	},
	ErrIllegalBacktrack: {
		Code:        ErrIllegalBacktrack,
		Description: "Illegal attempt to backtrack to a finalized process.",
		Impact:      ImpactMedium,
		Recoverable: true,
		ActionHint:  "If backtracking is necessary, use the checkpoint restore functionality.",
	},
	ErrProcessSkip: {
		Code:        ErrProcessSkip,
		Description: "Mandatory process step was skipped.",
		Impact:      ImpactHigh,
		Recoverable: true,
		ActionHint:  "Ensure all required processes (P1, P2) are executed before P3.",
	},
	ErrConcurrentNavigation: {
		Code:        ErrConcurrentNavigation,
		Description: "Multiple agents attempting concurrent navigation.",
		Impact:      ImpactCritical,
		Recoverable: false,
		ActionHint:  "Implement locking or sequence the agent requests.",
	},
	ErrTargetNotFound: {
		Code:        ErrTargetNotFound,
		Description: "Navigation target process was not found.",
		Impact:      ImpactHigh,
		Recoverable: true,
		ActionHint:  "Check the flow code for valid process IDs.",
	},
	ErrOllamaUnavailable: {
		Code:        ErrOllamaUnavailable,
		Description: "Ollama service is not running or unreachable.",
		Impact:      ImpactFatal,
		Recoverable: true,
		ActionHint:  "Run 'ollama serve' and ensure the API is accessible at 127.0.0.1:11434.",
	},
	ErrModelNotFound: {
		Code:        ErrModelNotFound,
		Description: "The requested LLM model is not available in Ollama.",
		Impact:      ImpactFatal,
		Recoverable: true,
		ActionHint:  "Run 'ollama pull <model_name>' to download the required model.",
	},
	ErrResourceExhausted: {
		Code:        ErrResourceExhausted,
		Description: "Critical system resource exhaustion (Memory/CPU/Disk).",
		Impact:      ImpactCritical,
		Recoverable: true,
		ActionHint:  "Free up system resources or reduce the context window size.",
	},
	ErrFileSystemAccess: {
		Code:        ErrFileSystemAccess,
		Description: "Failed to access or modify files on disk.",
		Impact:      ImpactHigh,
		Recoverable: false,
		ActionHint:  "Check file permissions and disk space.",
	},
	ErrNetworkTimeout: {
		Code:        ErrNetworkTimeout,
		Description: "Network operation timed out.",
		Impact:      ImpactMedium,
		Recoverable: true,
		ActionHint:  "Check your internet connection or increase the timeout settings.",
	},
	ErrGitConflict: {
		Code:        ErrGitConflict,
		Description: "Git operation failed due to merge conflicts.",
		Impact:      ImpactHigh,
		Recoverable: true,
		ActionHint:  "Manually resolve the conflicts or use the 'fix' command.",
	},
	ErrInvalidInput: {
		Code:        ErrInvalidInput,
		Description: "Invalid user input or command parameters.",
		Impact:      ImpactLow,
		Recoverable: true,
		ActionHint:  "Check the command usage and try again.",
	},
	ErrMissingParameter: {
		Code:        ErrMissingParameter,
		Description: "A required parameter is missing from the request.",
		Impact:      ImpactLow,
		Recoverable: true,
		ActionHint:  "Provide all required parameters.",
	},
	ErrOutOfRange: {
		Code:        ErrOutOfRange,
		Description: "Value provided is outside the allowed boundaries.",
		Impact:      ImpactLow,
		Recoverable: true,
		ActionHint:  "Ensure values are within specified limits.",
	},
	ErrFormatMismatch: {
		Code:        ErrFormatMismatch,
		Description: "Input format does not match the expected pattern.",
		Impact:      ImpactLow,
		Recoverable: true,
		ActionHint:  "Check formatting (e.g., JSON structure, date formats).",
	},
	ErrIncompatibleVersion: {
		Code:        ErrIncompatibleVersion,
		Description: "Incompatible version detected between client and server.",
		Impact:      ImpactMedium,
		Recoverable: false,
		ActionHint:  "Update the obot CLI to the latest version.",
	},
	ErrUnauthorized: {
		Code:        ErrUnauthorized,
		Description: "User or agent is not authorized to perform this action.",
		Impact:      ImpactHigh,
		Recoverable: false,
		ActionHint:  "Check your credentials and permissions.",
	},
	ErrTokenExpired: {
		Code:        ErrTokenExpired,
		Description: "The authentication token or session has expired.",
		Impact:      ImpactMedium,
		Recoverable: true,
		ActionHint:  "Re-authenticate to obtain a new token.",
	},
	ErrInsufficientScope: {
		Code:        ErrInsufficientScope,
		Description: "The credentials provided lack the required scope/permissions.",
		Impact:      ImpactHigh,
		Recoverable: false,
		ActionHint:  "Request elevated permissions for the required resource.",
	},
	ErrForbiddenAction: {
		Code:        ErrForbiddenAction,
		Description: "This action is explicitly forbidden by security policy.",
		Impact:      ImpactCritical,
		Recoverable: false,
		ActionHint:  "Consult the security documentation for allowed operations.",
	},
	ErrKeyMissing: {
		Code:        ErrKeyMissing,
		Description: "A required API key or secret is missing from the environment.",
		Impact:      ImpactFatal,
		Recoverable: true,
		ActionHint:  "Set the required environment variables (e.g., OLLAMA_TOKEN).",
	},
}

// GetMetadata returns the metadata for a code.
func GetMetadata(code Code) (Metadata, bool) {
	meta, ok := Registry[code]
	return meta, ok
}

// IsRecoverable reports whether the code is marked recoverable.
func IsRecoverable(code Code) bool {
	meta, ok := Registry[code]
	return ok && meta.Recoverable
}

// GetImpact returns the impact grade for a code, ImpactNone when unknown.
func GetImpact(code Code) Impact {
	meta, ok := Registry[code]
	if !ok {
		return ImpactNone
	}
	return meta.Impact
}

// FormatCode renders a code with its description and impact.
func FormatCode(code Code) string {
	meta, ok := Registry[code]
	if !ok {
		return fmt.Sprintf("Unknown Error (%s)", code)
	}
	return fmt.Sprintf("[%s] %s (Impact: %s)", code, meta.Description, meta.Impact)
}

// GetActionHint returns the suggested operator action for a code.
func GetActionHint(code Code) string {
	meta, ok := Registry[code]
	if !ok {
		return "No action hint available."
	}
	return meta.ActionHint
}
