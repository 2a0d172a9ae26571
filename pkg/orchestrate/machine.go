package orchestrate

import (
	"fmt"

	"github.com/kadirpekel/obot/pkg/errs"
)

// Machine is the navigation state machine for one run. It owns the current
// position, the set of terminated schedules and the flow code journal, and
// rejects every move the transition table does not allow. Machine is pure
// state; it performs no I/O and is not safe for concurrent use.
type Machine struct {
	pos            Position
	terminated     map[ScheduleID]bool
	lastTerminated ScheduleID
	flow           *FlowCode
	stats          *Stats
}

// NewMachine creates a machine at the sentinel position.
func NewMachine() *Machine {
	return &Machine{
		terminated: make(map[ScheduleID]bool),
		flow:       NewFlowCode(),
		stats:      NewStats(),
	}
}

// ResumeMachine rebuilds a machine from a journaled flow code. Schedules
// that were exited for a later schedule count as terminated; the final
// schedule in the code stays open at its last visited process.
func ResumeMachine(code string) (*Machine, error) {
	flow, err := ParseFlowCode(code)
	if err != nil {
		return nil, err
	}

	events, _ := Parse(code)
	m := NewMachine()
	m.flow = flow

	var current ScheduleID
	var lastProcess ProcessID
	for _, ev := range events {
		switch ev.Type {
		case EventSchedule:
			if current != 0 {
				m.terminated[current] = true
				m.lastTerminated = current
			}
			current = ev.Schedule
			lastProcess = 0
		case EventProcess:
			lastProcess = ev.Process
		}
	}

	if current != 0 {
		m.pos = Position{Schedule: current, Process: lastProcess}
	}
	return m, nil
}

// Position returns the current position.
func (m *Machine) Position() Position {
	return m.pos
}

// FlowCode returns the journaled flow code string.
func (m *Machine) FlowCode() string {
	return m.flow.String()
}

// Stats returns the run counters.
func (m *Machine) Stats() *Stats {
	return m.stats
}

// IsTerminated reports whether a schedule has terminated.
func (m *Machine) IsTerminated(id ScheduleID) bool {
	return m.terminated[id]
}

// TerminatedCount returns how many schedules have terminated.
func (m *Machine) TerminatedCount() int {
	return len(m.terminated)
}

// OpenSchedules returns the schedules that have not yet terminated, in
// numeric order.
func (m *Machine) OpenSchedules() []ScheduleID {
	open := make([]ScheduleID, 0, 5)
	for id := ScheduleKnowledge; id <= ScheduleProduction; id++ {
		if !m.terminated[id] {
			open = append(open, id)
		}
	}
	return open
}

func (m *Machine) frozen(action string) errs.FrozenState {
	return errs.FrozenState{
		Schedule:   m.pos.Schedule.String(),
		Process:    "P" + m.pos.Process.String(),
		LastAction: action,
		FlowCode:   m.flow.String(),
	}
}

// EnterSchedule activates a schedule from the sentinel position. The new
// schedule starts at P1 pending the first Navigate call.
func (m *Machine) EnterSchedule(id ScheduleID) error {
	if !id.Valid() {
		return errs.New(errs.ErrTargetNotFound, fmt.Sprintf("no such schedule %d", id))
	}
	if !m.pos.IsSentinel() {
		return errs.NewNavigationError(
			fmt.Sprintf("cannot enter %s while %s is active", id, m.pos.Schedule),
			m.frozen("enter schedule"))
	}
	if m.terminated[id] {
		return errs.NewBacktrackError(
			fmt.Sprintf("schedule %s has already terminated", id),
			m.frozen("enter schedule"))
	}

	m.pos = Position{Schedule: id, Process: 0}
	m.flow.AddSchedule(id)
	m.stats.TotalSchedulings++
	m.stats.SchedulingsByID[id]++
	return nil
}

// Navigate moves to a process within the active schedule. Only the moves
// in NavigationRules are accepted; anything else is an E001.
func (m *Machine) Navigate(to ProcessID) error {
	if m.pos.Schedule == 0 {
		return errs.NewNavigationError("no schedule active", m.frozen("navigate"))
	}
	if !IsValidNavigation(m.pos.Process, to) {
		return errs.NewNavigationError(
			fmt.Sprintf("invalid navigation from P%s to P%s in %s (only adjacent moves allowed)",
				m.pos.Process, to, m.pos.Schedule),
			m.frozen("navigate"))
	}

	m.pos.Process = to
	m.flow.AddProcess(to)
	m.stats.TotalProcesses++
	m.stats.ProcessesBySchedule[m.pos.Schedule][to]++
	return nil
}

// TerminateSchedule closes the active schedule. Legal only from P3.
func (m *Machine) TerminateSchedule() error {
	if m.pos.Schedule == 0 {
		return errs.NewNavigationError("no schedule to terminate", m.frozen("terminate schedule"))
	}
	if !IsValidNavigation(m.pos.Process, 0) {
		return errs.NewNavigationError(
			fmt.Sprintf("cannot terminate %s from P%s; P3 must complete first", m.pos.Schedule, m.pos.Process),
			m.frozen("terminate schedule"))
	}

	m.terminated[m.pos.Schedule] = true
	m.lastTerminated = m.pos.Schedule
	m.pos = Position{}
	return nil
}

// CanTerminateRun reports whether the whole run may end: all five
// schedules terminated, Production last.
func (m *Machine) CanTerminateRun() bool {
	if len(m.terminated) != 5 {
		return false
	}
	return m.lastTerminated == ScheduleProduction
}

// Suspend journals a suspension marker.
func (m *Machine) Suspend() {
	m.flow.MarkSuspended()
}

// ResumeFromSuspension clears the suspension marker when the operator
// verdict advanced the run. A verdict that leaves the position unchanged
// keeps the marker.
func (m *Machine) ResumeFromSuspension(advanced bool) {
	if advanced {
		m.flow.ClearSuspended()
	}
}

// Suspended reports whether the flow code ends in a suspension marker.
func (m *Machine) Suspended() bool {
	return m.flow.Suspended()
}
