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

// Package orchestrate defines the 5x3 schedule/process state machine at the
// heart of obot: five fixed schedules of three processes each, strict
// adjacent-only navigation, and the flow code that journals every accepted
// transition.
package orchestrate

import (
	"fmt"
	"time"
)

// ScheduleID identifies one of the 5 schedules.
type ScheduleID int

const (
	// ScheduleKnowledge is the Knowledge schedule (Research, Crawl, Retrieve).
	ScheduleKnowledge ScheduleID = 1
	// SchedulePlan is the Plan schedule (Brainstorm, Clarify, Plan).
	SchedulePlan ScheduleID = 2
	// ScheduleImplement is the Implement schedule (Implement, Verify, Feedback).
	ScheduleImplement ScheduleID = 3
	// ScheduleScale is the Scale schedule (Scale, Benchmark, Optimize).
	ScheduleScale ScheduleID = 4
	// ScheduleProduction is the Production schedule (Analyze, Systemize, Harmonize).
	ScheduleProduction ScheduleID = 5
)

// ScheduleNames maps schedule IDs to display names.
var ScheduleNames = map[ScheduleID]string{
	ScheduleKnowledge:  "Knowledge",
	SchedulePlan:       "Plan",
	ScheduleImplement:  "Implement",
	ScheduleScale:      "Scale",
	ScheduleProduction: "Production",
}

func (id ScheduleID) String() string {
	if name, ok := ScheduleNames[id]; ok {
		return name
	}
	return "Unknown"
}

// IsProduction reports whether this is the Production schedule.
func (id ScheduleID) IsProduction() bool {
	return id == ScheduleProduction
}

// Valid reports whether the id names a real schedule.
func (id ScheduleID) Valid() bool {
	return id >= ScheduleKnowledge && id <= ScheduleProduction
}

// ProcessID identifies a process within a schedule (1, 2 or 3). Zero is
// the sentinel meaning "no process active".
type ProcessID int

const (
	Process1 ProcessID = 1
	Process2 ProcessID = 2
	Process3 ProcessID = 3
)

func (id ProcessID) String() string {
	switch id {
	case Process1:
		return "1"
	case Process2:
		return "2"
	case Process3:
		return "3"
	default:
		return "0"
	}
}

// ProcessNames maps schedule+process to display names.
var ProcessNames = map[ScheduleID]map[ProcessID]string{
	ScheduleKnowledge: {
		Process1: "Research",
		Process2: "Crawl",
		Process3: "Retrieve",
	},
	SchedulePlan: {
		Process1: "Brainstorm",
		Process2: "Clarify",
		Process3: "Plan",
	},
	ScheduleImplement: {
		Process1: "Implement",
		Process2: "Verify",
		Process3: "Feedback",
	},
	ScheduleScale: {
		Process1: "Scale",
		Process2: "Benchmark",
		Process3: "Optimize",
	},
	ScheduleProduction: {
		Process1: "Analyze",
		Process2: "Systemize",
		Process3: "Harmonize",
	},
}

// Position is a (schedule, process) pair. The zero value is the sentinel
// position before any schedule has been entered.
type Position struct {
	Schedule ScheduleID
	Process  ProcessID
}

// IsSentinel reports whether no schedule is active.
func (p Position) IsSentinel() bool {
	return p.Schedule == 0 && p.Process == 0
}

func (p Position) String() string {
	if p.IsSentinel() {
		return "(idle)"
	}
	return fmt.Sprintf("%s.P%d", p.Schedule, p.Process)
}

// Name returns the display name of the process at this position.
func (p Position) Name() string {
	if names, ok := ProcessNames[p.Schedule]; ok {
		if name, ok := names[p.Process]; ok {
			return name
		}
	}
	return "Unknown"
}

// State represents the orchestrator lifecycle state.
type State string

const (
	// StateBegin is the initial state.
	StateBegin State = "Begin"
	// StateSelecting means the orchestrator is choosing a schedule/process.
	StateSelecting State = "Selecting"
	// StateActive means an agent is executing a process.
	StateActive State = "Active"
	// StateSuspended means a fault is awaiting an operator verdict.
	StateSuspended State = "Suspended"
	// StateTerminated means the run has completed.
	StateTerminated State = "Prompt Terminated"
)

func (s State) String() string {
	return string(s)
}

// IsTerminal reports whether the state ends the run.
func (s State) IsTerminal() bool {
	return s == StateTerminated
}

// Role identifies a model role.
type Role string

const (
	// RoleOrchestrator is the planner model (TOOLER: decides, never executes).
	RoleOrchestrator Role = "orchestrator"
	// RoleCoder is the coding model.
	RoleCoder Role = "coder"
	// RoleResearcher is the research/RAG model.
	RoleResearcher Role = "researcher"
	// RoleVision is the vision model.
	RoleVision Role = "vision"
)

func (r Role) String() string {
	return string(r)
}

// ConsultationType classifies human consultation for a process.
type ConsultationType string

const (
	ConsultationNone      ConsultationType = "none"
	ConsultationOptional  ConsultationType = "optional"
	ConsultationMandatory ConsultationType = "mandatory"
)

func (c ConsultationType) String() string {
	return string(c)
}

// NavigationRule defines the legal moves out of one process.
type NavigationRule struct {
	From         ProcessID
	AllowedTo    []ProcessID
	CanTerminate bool
}

// NavigationRules is the full transition table. Process 0 is the state on
// schedule entry; termination is only reachable from P3.
var NavigationRules = map[ProcessID]NavigationRule{
	0: {
		From:         0,
		AllowedTo:    []ProcessID{Process1},
		CanTerminate: false,
	},
	Process1: {
		From:         Process1,
		AllowedTo:    []ProcessID{Process1, Process2},
		CanTerminate: false,
	},
	Process2: {
		From:         Process2,
		AllowedTo:    []ProcessID{Process1, Process2, Process3},
		CanTerminate: false,
	},
	Process3: {
		From:         Process3,
		AllowedTo:    []ProcessID{Process2, Process3},
		CanTerminate: true,
	},
}

// IsValidNavigation checks one process transition. to == 0 asks whether
// the schedule may terminate from the current process.
func IsValidNavigation(from, to ProcessID) bool {
	rule, ok := NavigationRules[from]
	if !ok {
		return false
	}

	if to == 0 {
		return rule.CanTerminate
	}

	for _, allowed := range rule.AllowedTo {
		if allowed == to {
			return true
		}
	}

	return false
}

// ScheduleModel returns the default model role for a schedule. The vision
// model joins Production.P3 separately; the schedule default stays coder.
func ScheduleModel(scheduleID ScheduleID) Role {
	switch scheduleID {
	case ScheduleKnowledge:
		return RoleResearcher
	default:
		return RoleCoder
	}
}

// ProcessConsultation returns the consultation type for a process:
// Plan.Clarify is optional, Implement.Feedback is mandatory, everything
// else is none.
func ProcessConsultation(scheduleID ScheduleID, processID ProcessID) ConsultationType {
	if scheduleID == SchedulePlan && processID == Process2 {
		return ConsultationOptional
	}
	if scheduleID == ScheduleImplement && processID == Process3 {
		return ConsultationMandatory
	}
	return ConsultationNone
}

// ProcessExecution records a single process run for accounting.
type ProcessExecution struct {
	Schedule  ScheduleID
	Process   ProcessID
	StartTime time.Time
	EndTime   time.Time
	Tokens    int64
	Actions   int
}

// Stats accumulates orchestration counters over a run.
type Stats struct {
	TotalSchedulings    int
	TotalProcesses      int
	SchedulingsByID     map[ScheduleID]int
	ProcessesBySchedule map[ScheduleID]map[ProcessID]int
	TotalTokens         int64
	TotalActions        int
	StartTime           time.Time
	EndTime             time.Time
}

// NewStats creates an initialized stats accumulator.
func NewStats() *Stats {
	s := &Stats{
		SchedulingsByID:     make(map[ScheduleID]int),
		ProcessesBySchedule: make(map[ScheduleID]map[ProcessID]int),
		StartTime:           time.Now(),
	}
	for id := ScheduleKnowledge; id <= ScheduleProduction; id++ {
		s.ProcessesBySchedule[id] = make(map[ProcessID]int)
	}
	return s
}
