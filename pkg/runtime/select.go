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

package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kadirpekel/obot/pkg/errs"
	"github.com/kadirpekel/obot/pkg/ollama"
	"github.com/kadirpekel/obot/pkg/orchestrate"
)

const scheduleSelectionSystem = `You are the orchestrator for obot. Select the next schedule based on history and intent.
Valid schedules:
1: Knowledge (Research, Crawl, Retrieve) - For gathering information.
2: Plan (Brainstorm, Clarify, Plan) - For designing solutions.
3: Implement (Implement, Verify, Feedback) - For executing code.
4: Scale (Scale, Benchmark, Optimize) - For performance tuning.
5: Production (Analyze, Systemize, Harmonize) - For final polish and consistency.

Rules:
- You must run all 5 schedules at least once before terminating.
- The last schedule MUST be Production.
- Respond ONLY with the schedule number (1-5) or 0 to terminate prompt.`

// generate calls the model with exponential backoff, giving up after
// maxModelRetries attempts. Tokens are booked against the role as the
// response streams in.
func (h *RunHandle) generate(ctx context.Context, gen ollama.Generator, role orchestrate.Role, prompt string) (string, *ollama.InferenceStats, error) {
	return h.generateChecked(ctx, gen, role, prompt, nil)
}

// generateChecked is generate with a per-line validator. A non-nil check
// runs over every completed output line; on a streaming client a check
// failure aborts the stream mid-flight. Check failures carry the error
// taxonomy and are returned without retrying.
func (h *RunHandle) generateChecked(ctx context.Context, gen ollama.Generator, role orchestrate.Role, prompt string, check func(line string) error) (string, *ollama.InferenceStats, error) {
	var lastErr error
	for attempt := 0; attempt < maxModelRetries; attempt++ {
		if attempt > 0 {
			backoff := h.o.backoff * time.Duration(1<<(attempt-1))
			slog.Debug("retrying model call", "attempt", attempt+1, "backoff", backoff)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", nil, ctx.Err()
			}
		}
		resp, stats, err := h.generateOnce(ctx, gen, role, prompt, check)
		if err == nil {
			return resp, stats, nil
		}
		var orchErr *errs.OrchestrationError
		if errors.As(err, &orchErr) {
			// Validation failures are not transport flakes
			return "", nil, err
		}
		lastErr = err
	}
	return "", nil, fmt.Errorf("model call failed after %d attempts: %w", maxModelRetries, lastErr)
}

func (h *RunHandle) generateOnce(ctx context.Context, gen ollama.Generator, role orchestrate.Role, prompt string, check func(line string) error) (string, *ollama.InferenceStats, error) {
	sg, ok := gen.(ollama.StreamingGenerator)
	if !ok {
		resp, stats, err := gen.Generate(ctx, prompt)
		if err != nil {
			return "", nil, err
		}
		if check != nil {
			for _, line := range strings.Split(resp, "\n") {
				if cerr := check(line); cerr != nil {
					return "", nil, cerr
				}
			}
		}
		h.recordTokens(role, stats)
		return resp, stats, nil
	}

	streamCtx, stop := context.WithCancel(ctx)
	defer stop()

	var checkErr error
	var pending strings.Builder
	var streamed int64
	result, err := sg.GenerateStream(streamCtx, prompt, func(token string) {
		streamed++
		h.o.coord.RecordTokens(role, 1)
		if check == nil || checkErr != nil {
			return
		}
		pending.WriteString(token)
		for {
			text := pending.String()
			nl := strings.IndexByte(text, '\n')
			if nl < 0 {
				return
			}
			line, rest := text[:nl], text[nl+1:]
			pending.Reset()
			pending.WriteString(rest)
			if cerr := check(line); cerr != nil {
				checkErr = cerr
				stop() // abort the in-flight stream
				return
			}
		}
	})
	if checkErr != nil {
		return "", nil, checkErr
	}
	if err != nil {
		return "", nil, err
	}
	if check != nil {
		if cerr := check(pending.String()); cerr != nil {
			return "", nil, cerr
		}
	}

	stats := result.Stats
	if stats != nil && int64(stats.TotalTokens) > streamed {
		h.o.coord.RecordTokens(role, int64(stats.TotalTokens)-streamed)
	}
	return result.Content, stats, nil
}

// selectSchedule asks the orchestrator model for the next schedule. A
// terminate answer before the run may end forces Production; unparseable
// answers and model failures fall back to the first open schedule.
func (h *RunHandle) selectSchedule(ctx context.Context) (orchestrate.ScheduleID, bool) {
	open := h.machine.OpenSchedules()
	if len(open) == 0 {
		return 0, true
	}

	client := h.o.coord.Orchestrator()
	if client == nil {
		return h.heuristicSchedule(open), false
	}

	history := "None"
	if entered := h.enteredSchedules(); len(entered) > 0 {
		history = strings.Join(entered, " -> ")
	}
	prompt := fmt.Sprintf(`%s

Initial Prompt: %s
Schedule History: %s
Flow Code: %s

Next Schedule (1-5, or 0 to terminate):`,
		scheduleSelectionSystem, h.sess.Task.Description, history, h.machine.FlowCode())

	resp, _, err := h.generate(ctx, client, orchestrate.RoleOrchestrator, prompt)
	if err != nil {
		slog.Warn("schedule selection failed, using heuristic", "error", err)
		return h.heuristicSchedule(open), false
	}

	resp = strings.TrimSpace(resp)
	if strings.HasPrefix(resp, "0") || strings.EqualFold(resp, "TERMINATE") {
		if h.machine.CanTerminateRun() {
			return 0, true
		}
		// Early terminate attempts route through Production first
		if !h.machine.IsTerminated(orchestrate.ScheduleProduction) {
			return orchestrate.ScheduleProduction, false
		}
		return h.heuristicSchedule(open), false
	}

	for _, c := range resp {
		if c >= '1' && c <= '5' {
			id := orchestrate.ScheduleID(c - '0')
			if !h.machine.IsTerminated(id) {
				return id, false
			}
			break
		}
	}
	return h.heuristicSchedule(open), false
}

// heuristicSchedule runs every schedule once in numeric order, which
// leaves Production last.
func (h *RunHandle) heuristicSchedule(open []orchestrate.ScheduleID) orchestrate.ScheduleID {
	return open[0]
}

// selectProcess asks the orchestrator model for the next process within
// the active schedule. The returned process is NOT pre-validated; the
// machine is the sole authority on navigation legality.
func (h *RunHandle) selectProcess(ctx context.Context) (orchestrate.ProcessID, bool) {
	pos := h.machine.Position()
	rule := orchestrate.NavigationRules[pos.Process]

	client := h.o.coord.Orchestrator()
	if client == nil {
		return h.heuristicProcess(pos.Process)
	}

	var options []string
	for _, next := range rule.AllowedTo {
		options = append(options, fmt.Sprintf("%d: %s", next, orchestrate.ProcessNames[pos.Schedule][next]))
	}
	if rule.CanTerminate {
		options = append(options, "0: Terminate schedule")
	}

	prompt := fmt.Sprintf(`You are the orchestrator for obot. Select the next process for the %s schedule.
Valid options from current state (P%d):
%s

Rules:
- You must complete P3 to terminate the schedule.
- Respond ONLY with the process number (1-3) or 0 to terminate.

Schedule: %s
Last Process: P%d
Flow Code: %s

Next Process (1-3, or 0 to terminate):`,
		pos.Schedule, pos.Process, strings.Join(options, "\n"),
		pos.Schedule, pos.Process, h.machine.FlowCode())

	resp, _, err := h.generate(ctx, client, orchestrate.RoleOrchestrator, prompt)
	if err != nil {
		slog.Warn("process selection failed, using heuristic", "error", err)
		return h.heuristicProcess(pos.Process)
	}

	resp = strings.TrimSpace(resp)
	if strings.HasPrefix(resp, "0") || strings.EqualFold(resp, "TERMINATE") {
		if rule.CanTerminate {
			return 0, true
		}
		return orchestrate.Process3, false
	}

	for _, c := range resp {
		if c >= '1' && c <= '3' {
			return orchestrate.ProcessID(c - '0'), false
		}
	}
	return h.heuristicProcess(pos.Process)
}

// heuristicProcess is the linear fallback: P1, P2, P3, terminate.
func (h *RunHandle) heuristicProcess(last orchestrate.ProcessID) (orchestrate.ProcessID, bool) {
	switch last {
	case 0:
		return orchestrate.Process1, false
	case orchestrate.Process1:
		return orchestrate.Process2, false
	case orchestrate.Process2:
		return orchestrate.Process3, false
	default:
		return 0, true
	}
}

func (h *RunHandle) enteredSchedules() []string {
	var names []string
	for id := orchestrate.ScheduleKnowledge; id <= orchestrate.ScheduleProduction; id++ {
		if h.machine.Stats().SchedulingsByID[id] > 0 {
			names = append(names, id.String())
		}
	}
	return names
}

func (h *RunHandle) recordTokens(role orchestrate.Role, stats *ollama.InferenceStats) {
	if stats == nil {
		return
	}
	h.o.coord.RecordTokens(role, int64(stats.TotalTokens))
}
