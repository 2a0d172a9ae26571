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

// Package suspend implements the suspension pause that follows a critical
// orchestration error. The run freezes, the error is analyzed (canned for
// hardcoded codes, model-generated otherwise) and the operator picks how
// to continue.
package suspend

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/kadirpekel/obot/pkg/errs"
	"github.com/kadirpekel/obot/pkg/ollama"
	"github.com/kadirpekel/obot/pkg/orchestrate"
	"github.com/kadirpekel/obot/pkg/ui"
)

// Action is the operator's continuation choice.
type Action string

const (
	ActionRetry       Action = "R"
	ActionSkip        Action = "S"
	ActionAbort       Action = "A"
	ActionInvestigate Action = "I"
)

// Advances reports whether the action moves the run past the fault. The
// suspension marker in the flow code is removed only for advancing
// verdicts.
func (a Action) Advances() bool {
	return a == ActionRetry || a == ActionSkip
}

// Analysis is the structured account of what went wrong.
type Analysis struct {
	WhatHappened      string
	Component         string
	RuleViolated      string
	RootCause         string
	Factors           []string
	ProposedSolutions []string
}

// Handler freezes the terminal on a critical error and collects the
// operator verdict.
type Handler struct {
	reader  io.Reader
	writer  io.Writer
	analyst ollama.Generator
}

type Option func(*Handler)

// WithIO overrides the terminal streams.
func WithIO(r io.Reader, w io.Writer) Option {
	return func(h *Handler) { h.reader, h.writer = r, w }
}

// WithAnalyst sets the model used to analyze non-hardcoded errors.
func WithAnalyst(gen ollama.Generator) Option {
	return func(h *Handler) { h.analyst = gen }
}

// NewHandler creates a suspension handler bound to stdin/stdout unless
// overridden.
func NewHandler(opts ...Option) *Handler {
	h := &Handler{reader: os.Stdin, writer: os.Stdout}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Handle renders the suspension, analyzes the error and blocks until the
// operator selects an action.
func (h *Handler) Handle(ctx context.Context, orchErr *errs.OrchestrationError) Action {
	h.displaySuspension(orchErr)

	analysis := h.Analyze(ctx, orchErr)
	h.displayAnalysis(analysis)
	h.displaySolutions(analysis.ProposedSolutions)

	return h.waitForAction()
}

func (h *Handler) displaySuspension(orchErr *errs.OrchestrationError) {
	flowCode := orchErr.State.FlowCode
	if !strings.HasSuffix(flowCode, "X") {
		flowCode += "X"
	}

	box := ui.NewBox().
		Title("Orchestrator • SUSPENDED").
		Blank().
		Label("ERROR CODE", string(orchErr.Code)).
		Label("MESSAGE", orchErr.Message).
		Blank().
		Line("FROZEN STATE:").
		Label("  Schedule", orchErr.State.Schedule).
		Label("  Process", orchErr.State.Process).
		Label("  LastAction", orchErr.State.LastAction).
		Label("  Flow Code", flowCode)

	fmt.Fprint(h.writer, box.Render())
	fmt.Fprintln(h.writer, "  "+orchestrate.FormatFlowCodeColored(flowCode))
}

// Analyze produces the error analysis. Hardcoded codes use their canned
// messages; anything else goes through the analyst model when present.
func (h *Handler) Analyze(ctx context.Context, orchErr *errs.OrchestrationError) Analysis {
	if errs.IsHardcoded(orchErr.Code) {
		return Analysis{
			WhatHappened:      errs.HardcodedMessage(orchErr.Code),
			Component:         orchErr.Component,
			RuleViolated:      orchErr.Rule,
			ProposedSolutions: orchErr.Solutions,
		}
	}

	if h.analyst == nil {
		return Analysis{
			WhatHappened:      orchErr.Message,
			Component:         orchErr.Component,
			RuleViolated:      orchErr.Rule,
			RootCause:         "An unexpected state transition or component failure occurred.",
			Factors:           []string{"Component misconfiguration", "Environmental factors"},
			ProposedSolutions: orchErr.Solutions,
		}
	}

	response, _, err := h.analyst.Generate(ctx, analysisPrompt(orchErr))
	if err != nil {
		return Analysis{
			WhatHappened:      orchErr.Message,
			Component:         orchErr.Component,
			RuleViolated:      orchErr.Rule,
			RootCause:         fmt.Sprintf("model analysis failed: %v", err),
			ProposedSolutions: orchErr.Solutions,
		}
	}

	return parseAnalysis(response, orchErr)
}

func analysisPrompt(orchErr *errs.OrchestrationError) string {
	return fmt.Sprintf(`Analyze the following orchestration error and provide a structured analysis.
Error Code: %s
Message: %s
Component: %s
Rule: %s
State: Schedule=%s, Process=%s, LastAction=%s, FlowCode=%s

Format your response exactly as follows:
WHAT_HAPPENED: <description>
ROOT_CAUSE: <description>
FACTORS:
- <factor 1>
- <factor 2>
PROPOSED_SOLUTIONS:
- <solution 1>
- <solution 2>
`, orchErr.Code, orchErr.Message, orchErr.Component, orchErr.Rule,
		orchErr.State.Schedule, orchErr.State.Process, orchErr.State.LastAction, orchErr.State.FlowCode)
}

func parseAnalysis(response string, orchErr *errs.OrchestrationError) Analysis {
	analysis := Analysis{
		Component:    orchErr.Component,
		RuleViolated: orchErr.Rule,
	}

	section := ""
	for _, line := range strings.Split(response, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case line == "":
		case strings.HasPrefix(line, "WHAT_HAPPENED:"):
			analysis.WhatHappened = strings.TrimSpace(strings.TrimPrefix(line, "WHAT_HAPPENED:"))
			section = ""
		case strings.HasPrefix(line, "ROOT_CAUSE:"):
			analysis.RootCause = strings.TrimSpace(strings.TrimPrefix(line, "ROOT_CAUSE:"))
			section = ""
		case strings.HasPrefix(line, "FACTORS:"):
			section = "factors"
		case strings.HasPrefix(line, "PROPOSED_SOLUTIONS:"):
			section = "solutions"
		case strings.HasPrefix(line, "-"):
			item := strings.TrimSpace(strings.TrimPrefix(line, "-"))
			if section == "factors" {
				analysis.Factors = append(analysis.Factors, item)
			} else if section == "solutions" {
				analysis.ProposedSolutions = append(analysis.ProposedSolutions, item)
			}
		}
	}

	if analysis.WhatHappened == "" {
		analysis.WhatHappened = orchErr.Message
	}
	if len(analysis.ProposedSolutions) == 0 {
		analysis.ProposedSolutions = orchErr.Solutions
	}
	return analysis
}

func (h *Handler) displayAnalysis(analysis Analysis) {
	box := ui.NewBox().
		Title("ERROR ANALYSIS").
		Blank().
		Line("WHAT HAPPENED:").
		Wrapped(analysis.WhatHappened).
		Blank()

	if analysis.RootCause != "" {
		box.Line("ROOT CAUSE:").Wrapped(analysis.RootCause).Blank()
	}
	if len(analysis.Factors) > 0 {
		box.Line("CONTRIBUTING FACTORS:")
		for _, factor := range analysis.Factors {
			box.Wrapped("• " + factor)
		}
		box.Blank()
	}

	box.Label("VIOLATED COMPONENT", analysis.Component).
		Label("RULE VIOLATED", analysis.RuleViolated)

	fmt.Fprint(h.writer, box.Render())
}

func (h *Handler) displaySolutions(solutions []string) {
	var sb strings.Builder
	sb.WriteString("\nPROPOSED SOLUTIONS:\n")
	for i, sol := range solutions {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, sol)
	}

	sb.WriteString("\nCONTINUATION OPTIONS:\n")
	sb.WriteString("  [R]etry      Attempt to re-execute the failed process\n")
	sb.WriteString("  [S]kip       Advance to the next valid process state\n")
	sb.WriteString("  [A]bort      Terminate the current session\n")
	sb.WriteString("  [I]nvestigate Start an interactive shell at this state\n")
	sb.WriteString("\nSelect action: ")

	fmt.Fprint(h.writer, sb.String())
}

func (h *Handler) waitForAction() Action {
	scanner := bufio.NewScanner(h.reader)
	for scanner.Scan() {
		switch strings.ToUpper(strings.TrimSpace(scanner.Text())) {
		case "R":
			return ActionRetry
		case "S":
			return ActionSkip
		case "A":
			return ActionAbort
		case "I":
			return ActionInvestigate
		}
		fmt.Fprint(h.writer, "Invalid option. Please select [R/S/A/I]: ")
	}
	return ActionAbort
}
