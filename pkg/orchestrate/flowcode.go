package orchestrate

import (
	"fmt"
	"strings"
)

// FlowCode journals the orchestration flow as a compact string.
//
// Each schedule entry appends "S<n>P" and each process visit appends a
// single digit, so Schedule 1 run straight through reads "S1P123". A
// suspension appends a trailing "X", which is removed again when the
// operator verdict advances the run. A full happy-path run reads
// "S1P123S2P123S3P123S4P123S5P123".
type FlowCode struct {
	code            string
	currentSchedule ScheduleID
	suspended       bool
}

// NewFlowCode creates an empty flow code tracker.
func NewFlowCode() *FlowCode {
	return &FlowCode{}
}

// ParseFlowCode reconstructs a tracker from a journaled string, for
// resuming a persisted session.
func ParseFlowCode(code string) (*FlowCode, error) {
	events, err := Parse(code)
	if err != nil {
		return nil, err
	}

	f := &FlowCode{code: code}
	for _, ev := range events {
		switch ev.Type {
		case EventSchedule:
			f.currentSchedule = ev.Schedule
			f.suspended = false
		case EventProcess:
			f.suspended = false
		case EventSuspended:
			f.suspended = true
		}
	}
	return f, nil
}

// AddSchedule records entry into a schedule.
func (f *FlowCode) AddSchedule(scheduleID ScheduleID) {
	f.code += fmt.Sprintf("S%dP", scheduleID)
	f.currentSchedule = scheduleID
	f.suspended = false
}

// AddProcess records a process visit in the current schedule.
func (f *FlowCode) AddProcess(processID ProcessID) {
	f.code += processID.String()
	f.suspended = false
}

// MarkSuspended appends the suspension marker. Idempotent while suspended.
func (f *FlowCode) MarkSuspended() {
	if f.suspended {
		return
	}
	f.code += "X"
	f.suspended = true
}

// ClearSuspended removes the trailing suspension marker. Called when an
// operator verdict advanced the run past the fault.
func (f *FlowCode) ClearSuspended() {
	if !f.suspended {
		return
	}
	f.code = strings.TrimSuffix(f.code, "X")
	f.suspended = false
}

// Suspended reports whether the code currently ends in a suspension.
func (f *FlowCode) Suspended() bool {
	return f.suspended
}

// CurrentSchedule returns the most recently entered schedule.
func (f *FlowCode) CurrentSchedule() ScheduleID {
	return f.currentSchedule
}

func (f *FlowCode) String() string {
	return f.code
}

// FlowEventType identifies the type of flow event.
type FlowEventType string

const (
	EventSchedule  FlowEventType = "schedule"
	EventProcess   FlowEventType = "process"
	EventSuspended FlowEventType = "suspended"
)

// FlowEvent is a single journaled transition.
type FlowEvent struct {
	Type     FlowEventType
	Schedule ScheduleID
	Process  ProcessID
}

// Parse decodes a flow code string into its event sequence. Parse is the
// exact inverse of the journaling operations: re-applying the events to a
// fresh FlowCode reproduces the input string.
func Parse(code string) ([]FlowEvent, error) {
	events := make([]FlowEvent, 0)
	inSchedule := false
	i := 0

	for i < len(code) {
		switch c := code[i]; {
		case c == 'S':
			if i+2 >= len(code) {
				return nil, fmt.Errorf("truncated schedule marker at position %d", i)
			}
			n := int(code[i+1] - '0')
			if n < 1 || n > 5 {
				return nil, fmt.Errorf("invalid schedule number %q at position %d", code[i+1], i+1)
			}
			if code[i+2] != 'P' {
				return nil, fmt.Errorf("expected 'P' at position %d, got %q", i+2, code[i+2])
			}
			events = append(events, FlowEvent{Type: EventSchedule, Schedule: ScheduleID(n)})
			inSchedule = true
			i += 3

		case c >= '1' && c <= '3':
			if !inSchedule {
				return nil, fmt.Errorf("process digit %q outside a schedule at position %d", c, i)
			}
			events = append(events, FlowEvent{Type: EventProcess, Process: ProcessID(c - '0')})
			i++

		case c == 'X':
			events = append(events, FlowEvent{Type: EventSuspended})
			i++

		default:
			return nil, fmt.Errorf("unexpected character %q at position %d", c, i)
		}
	}

	return events, nil
}

// Positions decodes a flow code into the sequence of positions visited.
func Positions(code string) ([]Position, error) {
	events, err := Parse(code)
	if err != nil {
		return nil, err
	}

	positions := make([]Position, 0, len(events))
	var current ScheduleID
	for _, ev := range events {
		switch ev.Type {
		case EventSchedule:
			current = ev.Schedule
		case EventProcess:
			if current == 0 {
				return nil, fmt.Errorf("process visit before any schedule")
			}
			positions = append(positions, Position{Schedule: current, Process: ev.Process})
		}
	}
	return positions, nil
}

// FlowStats summarizes a flow code.
type FlowStats struct {
	TotalSchedulings int
	TotalProcesses   int
	ScheduleCounts   map[ScheduleID]int
	ProcessCounts    map[ScheduleID]map[ProcessID]int
	Suspended        bool
}

// CalculateFlowStats tallies schedule and process visits from a flow code.
func CalculateFlowStats(code string) (*FlowStats, error) {
	events, err := Parse(code)
	if err != nil {
		return nil, err
	}

	stats := &FlowStats{
		ScheduleCounts: make(map[ScheduleID]int),
		ProcessCounts:  make(map[ScheduleID]map[ProcessID]int),
	}
	for s := ScheduleKnowledge; s <= ScheduleProduction; s++ {
		stats.ProcessCounts[s] = make(map[ProcessID]int)
	}

	var current ScheduleID
	suspended := false
	for _, ev := range events {
		switch ev.Type {
		case EventSchedule:
			stats.TotalSchedulings++
			stats.ScheduleCounts[ev.Schedule]++
			current = ev.Schedule
			suspended = false
		case EventProcess:
			stats.TotalProcesses++
			stats.ProcessCounts[current][ev.Process]++
			suspended = false
		case EventSuspended:
			suspended = true
		}
	}
	stats.Suspended = suspended

	return stats, nil
}

// FormatFlowCodeColored renders a flow code with ANSI colors: schedule
// markers white, process digits blue, suspension marker red.
func FormatFlowCodeColored(code string) string {
	const (
		white = "\033[37m"
		blue  = "\033[34m"
		red   = "\033[31m"
		reset = "\033[0m"
	)

	var result strings.Builder
	i := 0
	for i < len(code) {
		switch c := code[i]; {
		case c == 'S' && i+2 < len(code):
			result.WriteString(white)
			result.WriteString(code[i : i+2])
			result.WriteString(reset)
			result.WriteString(blue)
			result.WriteByte(code[i+2])
			result.WriteString(reset)
			i += 3
		case c >= '1' && c <= '3':
			result.WriteString(blue)
			result.WriteByte(c)
			result.WriteString(reset)
			i++
		case c == 'X':
			result.WriteString(red)
			result.WriteByte('X')
			result.WriteString(reset)
			i++
		default:
			result.WriteByte(c)
			i++
		}
	}

	return result.String()
}
