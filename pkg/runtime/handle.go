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

	"github.com/kadirpekel/obot/pkg/consult"
	"github.com/kadirpekel/obot/pkg/contextbudget"
	"github.com/kadirpekel/obot/pkg/errs"
	"github.com/kadirpekel/obot/pkg/intent"
	"github.com/kadirpekel/obot/pkg/judge"
	"github.com/kadirpekel/obot/pkg/orchestrate"
	"github.com/kadirpekel/obot/pkg/schedule"
	"github.com/kadirpekel/obot/pkg/session"
	"github.com/kadirpekel/obot/pkg/suspend"
	"github.com/kadirpekel/obot/pkg/telemetry"
)

// RunHandle is one live orchestration run. Step advances the run by one
// decision; Wait drives Step until the run ends.
type RunHandle struct {
	o          *Orchestrator
	ctx        context.Context
	cancel     context.CancelFunc
	machine    *orchestrate.Machine
	sess       *session.UnifiedSession
	writer     *session.Writer
	events     chan Event
	taskIntent intent.Intent

	finished bool
	runErr   error
	steps    int
	analysis *judge.Analysis
}

// Events returns the run's event stream. The channel is bounded; events
// for a slow subscriber are dropped with a diagnostic.
func (h *RunHandle) Events() <-chan Event {
	return h.events
}

// State returns the current navigation position.
func (h *RunHandle) State() orchestrate.Position {
	return h.machine.Position()
}

// FlowCode returns the journaled flow code.
func (h *RunHandle) FlowCode() string {
	return h.machine.FlowCode()
}

// Session returns the backing session document.
func (h *RunHandle) Session() *session.UnifiedSession {
	return h.sess
}

// Steps returns how many process executions have completed.
func (h *RunHandle) Steps() int {
	return h.steps
}

// Cancel aborts the run. Idempotent.
func (h *RunHandle) Cancel() {
	h.cancel()
}

// Wait drives the run to completion and returns its final error.
func (h *RunHandle) Wait() error {
	for {
		done, err := h.Step()
		if err != nil || done {
			return err
		}
	}
}

// Step advances the run by one decision: entering a schedule, moving to a
// process and executing it, or terminating a schedule. It returns done
// when the whole run has ended.
func (h *RunHandle) Step() (bool, error) {
	if h.finished {
		return true, h.runErr
	}
	if err := h.ctx.Err(); err != nil {
		return true, h.finish(err)
	}

	// A snapshot the write-behind writer could not persist suspends the
	// run before it takes another decision.
	select {
	case saveErr := <-h.writer.Failures():
		return h.handleFailure(h.persistFailure(saveErr))
	default:
	}

	pos := h.machine.Position()
	if pos.IsSentinel() {
		return h.stepSchedule()
	}
	return h.stepProcess()
}

func (h *RunHandle) stepSchedule() (bool, error) {
	id, terminate := h.selectSchedule(h.ctx)
	if terminate {
		h.finalizeAnalysis()
		h.emit(Event{Type: EventTerminated, FlowCode: h.machine.FlowCode()})
		return true, h.finish(nil)
	}

	if err := h.machine.EnterSchedule(id); err != nil {
		return h.handleFailure(err)
	}

	pos := h.machine.Position()
	h.sess.Orchestration.CurrentSchedule = int(pos.Schedule)
	h.sess.Orchestration.CurrentProcess = 0
	h.syncSession()
	h.emit(Event{Type: EventPositionChanged, Schedule: pos.Schedule, FlowCode: h.machine.FlowCode()})
	return false, nil
}

func (h *RunHandle) stepProcess() (bool, error) {
	pos := h.machine.Position()
	p, terminate := h.selectProcess(h.ctx)

	if terminate {
		if err := h.machine.TerminateSchedule(); err != nil {
			return h.handleFailure(err)
		}
		h.sess.Orchestration.CompletedSchedules = append(
			h.sess.Orchestration.CompletedSchedules, pos.Schedule.String())
		h.sess.Orchestration.CurrentSchedule = 0
		h.sess.Orchestration.CurrentProcess = 0
		h.syncSession()
		h.emit(Event{Type: EventPositionChanged, FlowCode: h.machine.FlowCode()})
		return false, nil
	}

	if err := h.machine.Navigate(p); err != nil {
		return h.handleFailure(err)
	}

	pos = h.machine.Position()
	h.sess.Orchestration.CurrentProcess = int(pos.Process)
	h.emit(Event{Type: EventPositionChanged, Schedule: pos.Schedule, Process: pos.Process, FlowCode: h.machine.FlowCode()})

	if err := h.executeProcess(pos); err != nil {
		return h.handleFailure(err)
	}
	return false, nil
}

// executeProcess runs one process body: build the context package, call
// the selected model, consult when the process requires it, commit the
// step.
func (h *RunHandle) executeProcess(pos orchestrate.Position) error {
	desc, err := schedule.New(pos.Schedule)
	if err != nil {
		return err
	}
	proc := desc.Process(pos.Process)

	role := h.o.coord.Select(pos.Schedule, pos.Process, h.taskIntent)
	client := h.o.coord.Client(role)
	if client == nil {
		return &errs.OrchestrationError{
			Code:      errs.ErrModelNotFound,
			Severity:  errs.SeverityCritical,
			Component: "runtime",
			Message:   fmt.Sprintf("no client for role %s", role),
			Timestamp: time.Now(),
			State:     h.frozen(),
		}
	}
	h.o.coord.Handoff(role)

	prompt := h.buildPrompt(desc, pos)
	start := time.Now()
	output, stats, err := h.generateChecked(h.ctx, client, role, prompt, h.checkToolLine)
	if err != nil {
		if ctxErr := h.ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		var orchErr *errs.OrchestrationError
		if !errors.As(err, &orchErr) {
			orchErr = &errs.OrchestrationError{
				Code:        errs.ErrOllamaUnavailable,
				Severity:    errs.SeveritySystem,
				Component:   "runtime",
				Message:     err.Error(),
				Timestamp:   time.Now(),
				State:       h.frozen(),
				Solutions:   []string{errs.HardcodedMessage(errs.ErrOllamaUnavailable)},
				Recoverable: true,
			}
		}
		h.recordStepFailure(pos, proc, time.Since(start))
		return orchErr
	}

	var note *session.USFConsultation
	if proc.RequiresConsultation() {
		output, note = h.consultOn(pos, proc, output)
	}

	tokens := 0
	if stats != nil {
		tokens = stats.TotalTokens
	}
	step := h.sess.AddStep(
		fmt.Sprintf("schedule.S%dP%d", pos.Schedule, pos.Process),
		proc.Name, output, true, tokens, time.Since(start).Milliseconds())
	step.Consultation = note
	h.steps++
	h.syncSession()
	h.emit(Event{Type: EventStepCompleted, Schedule: pos.Schedule, Process: pos.Process, FlowCode: h.machine.FlowCode(), Detail: proc.Name})
	return nil
}

// recordStepFailure commits a failed step record. When the failure routes
// into suspension, handleFailure upgrades the outcome to suspended.
func (h *RunHandle) recordStepFailure(pos orchestrate.Position, proc *schedule.Process, elapsed time.Duration) {
	h.sess.AddStep(
		fmt.Sprintf("schedule.S%dP%d", pos.Schedule, pos.Process),
		proc.Name, "", false, 0, elapsed.Milliseconds())
	h.syncSession()
}

// buildPrompt assembles the process prompt plus the budgeted context
// package for this step.
func (h *RunHandle) buildPrompt(desc *schedule.Schedule, pos orchestrate.Position) string {
	budget := contextbudget.NewBudget(h.o.cfg.Context.MaxTokens, h.o.cfg.Context.BudgetAllocation)
	assembler := contextbudget.NewAssembler(h.o.counter, budget)

	var history strings.Builder
	recent := h.sess.Steps
	if len(recent) > 5 {
		recent = recent[len(recent)-5:]
	}
	for _, step := range recent {
		fmt.Fprintf(&history, "%s (%s):\n%s\n", step.ToolID, step.Input, step.Output)
	}

	pack := assembler.Assemble(contextbudget.Parts{
		Task:    h.sess.Task.Description,
		History: history.String(),
	})
	return desc.Prompt(pos.Process) + "\n\n" + pack
}

// consultOn runs the consultation a process requires. Plan's Clarify
// consults only when the task reads ambiguous; Implement's Feedback
// always demonstrates the work. The returned record is stored on the
// step so a resumed session knows who approved what.
func (h *RunHandle) consultOn(pos orchestrate.Position, proc *schedule.Process, output string) (string, *session.USFConsultation) {
	if h.o.consult == nil {
		return output, nil
	}
	if proc.Consultation == orchestrate.ConsultationOptional {
		result := h.o.router.Classify(h.sess.Task.Description)
		if !result.IsAmbiguous(0.4) {
			return output, nil
		}
	}

	kind := consult.KindClarify
	if proc.Consultation == orchestrate.ConsultationMandatory {
		kind = consult.KindFeedback
	}
	req := consult.Request{
		Kind:     kind,
		Question: fmt.Sprintf("Review the %s output before the run continues.", proc.Name),
		Context:  output,
	}

	h.emit(Event{Type: EventConsultationRequested, Schedule: pos.Schedule, Process: pos.Process, Detail: string(kind)})
	resp, err := h.o.consult.Request(h.ctx, req)
	if err != nil {
		slog.Warn("consultation failed", "kind", kind, "error", err)
		return output, nil
	}
	h.emit(Event{Type: EventConsultationAnswered, Schedule: pos.Schedule, Process: pos.Process, Detail: string(resp.Source)})
	note := &session.USFConsultation{Type: string(kind), Source: string(resp.Source)}
	return output + "\n\nCONSULTATION (" + string(resp.Source) + "): " + resp.Content, note
}

// handleFailure routes an error through suspension when it carries the
// structured taxonomy, or fails the run outright.
func (h *RunHandle) handleFailure(err error) (bool, error) {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true, h.finish(err)
	}

	var orchErr *errs.OrchestrationError
	if !errors.As(err, &orchErr) {
		return true, h.finish(err)
	}

	h.machine.Suspend()
	if n := len(h.sess.Steps); n > 0 && h.sess.Steps[n-1].Outcome == session.OutcomeFailed {
		h.sess.Steps[n-1].Outcome = session.OutcomeSuspended
	}
	h.syncSession()
	h.emit(Event{Type: EventSuspended, FlowCode: h.machine.FlowCode(), Detail: string(orchErr.Code)})

	action := h.o.suspender.Handle(h.ctx, orchErr)
	h.machine.ResumeFromSuspension(action.Advances())
	h.syncSession()
	h.emit(Event{Type: EventResumed, FlowCode: h.machine.FlowCode(), Detail: string(action)})

	if action == suspend.ActionAbort {
		return true, h.finish(orchErr)
	}
	return false, nil
}

// persistFailure wraps a write-behind save failure for the suspension
// cycle.
func (h *RunHandle) persistFailure(err error) error {
	return &errs.OrchestrationError{
		Code:        errs.ErrFileSystemAccess,
		Severity:    errs.SeveritySystem,
		Component:   "session",
		Message:     err.Error(),
		Timestamp:   time.Now(),
		State:       h.frozen(),
		Solutions:   []string{"Free disk space or fix permissions on the session directory, then retry."},
		Recoverable: true,
	}
}

func (h *RunHandle) frozen() errs.FrozenState {
	pos := h.machine.Position()
	return errs.FrozenState{
		Schedule:   pos.Schedule.String(),
		Process:    "P" + pos.Process.String(),
		LastAction: "execute process",
		FlowCode:   h.machine.FlowCode(),
	}
}

// syncSession mirrors machine state into the session and queues a save.
func (h *RunHandle) syncSession() {
	h.sess.Orchestration.FlowCode = h.machine.FlowCode()
	h.persist()
}

func (h *RunHandle) persist() {
	h.writer.Enqueue(h.sess)
}

// finish seals the run: final session state, telemetry, event channel.
func (h *RunHandle) finish(err error) error {
	if h.finished {
		return h.runErr
	}
	h.finished = true
	h.runErr = err

	if err == nil {
		h.sess.Complete()
	} else {
		h.sess.Fail()
	}
	h.sess.Orchestration.FlowCode = h.machine.FlowCode()
	h.recordTelemetry(err == nil)
	h.persist()
	h.writer.Close()
	close(h.events)
	h.cancel()
	return err
}

func (h *RunHandle) recordTelemetry(success bool) {
	if h.o.telemetry == nil {
		return
	}
	total := h.o.coord.TotalTokens()
	calc := telemetry.NewSavingsCalculator()
	var rec telemetry.SessionTelemetry
	if h.o.monitor != nil {
		rec = h.o.monitor.Snapshot(h.sess.SessionID, total, success)
	} else {
		rec = telemetry.SessionTelemetry{
			SessionID:   h.sess.SessionID,
			Platform:    h.sess.PlatformOrigin,
			Success:     success,
			TotalTokens: total,
			DurationSec: h.sess.Stats.DurationSeconds,
		}
	}
	// Rough split: prompts dominate local agent traffic
	rec.EstimatedCostSaved = calc.Savings(total*2/3, total/3)
	h.sess.Stats.EstimatedCostSaved = rec.EstimatedCostSaved
	if err := h.o.telemetry.Record(rec); err != nil {
		slog.Warn("telemetry record failed", "error", err)
	}
}

func (h *RunHandle) emit(ev Event) {
	ev.Timestamp = time.Now()
	select {
	case h.events <- ev:
	default:
		slog.Debug("event dropped, slow subscriber", "type", ev.Type)
	}
}
