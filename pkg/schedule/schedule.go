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

// Package schedule declares the five schedules and their fifteen
// processes: names, preferred model roles, consultation requirements and
// the prompt each process puts in front of its agent.
package schedule

import (
	"fmt"

	"github.com/kadirpekel/obot/pkg/orchestrate"
)

// Process is one of the three steps of a schedule.
type Process struct {
	ID           orchestrate.ProcessID
	Name         string
	Schedule     orchestrate.ScheduleID
	Consultation orchestrate.ConsultationType
	Prompt       string
}

// RequiresConsultation reports whether the process pauses for the
// operator.
func (p *Process) RequiresConsultation() bool {
	return p.Consultation != orchestrate.ConsultationNone
}

// Schedule is one of the five orchestration phases.
type Schedule struct {
	ID        orchestrate.ScheduleID
	Name      string
	Model     orchestrate.Role
	Processes [3]Process
	Summary   string
}

// Process returns the process with the given ID, or nil.
func (s *Schedule) Process(id orchestrate.ProcessID) *Process {
	if id < orchestrate.Process1 || id > orchestrate.Process3 {
		return nil
	}
	return &s.Processes[id-1]
}

// Prompt returns the agent prompt for a process of this schedule.
func (s *Schedule) Prompt(id orchestrate.ProcessID) string {
	if p := s.Process(id); p != nil {
		return p.Prompt
	}
	return ""
}

// New builds the schedule descriptor for an ID.
func New(id orchestrate.ScheduleID) (*Schedule, error) {
	if !id.Valid() {
		return nil, fmt.Errorf("no such schedule %d", id)
	}

	s := &Schedule{
		ID:      id,
		Name:    orchestrate.ScheduleNames[id],
		Model:   orchestrate.ScheduleModel(id),
		Summary: summaries[id],
	}
	for i := 0; i < 3; i++ {
		pid := orchestrate.ProcessID(i + 1)
		s.Processes[i] = Process{
			ID:           pid,
			Name:         orchestrate.ProcessNames[id][pid],
			Schedule:     id,
			Consultation: orchestrate.ProcessConsultation(id, pid),
			Prompt:       prompts[id][pid],
		}
	}
	return s, nil
}

// All returns the five schedules in numeric order.
func All() []*Schedule {
	out := make([]*Schedule, 0, 5)
	for id := orchestrate.ScheduleKnowledge; id <= orchestrate.ScheduleProduction; id++ {
		s, _ := New(id)
		out = append(out, s)
	}
	return out
}

// summaries are the one-line completion messages per schedule.
var summaries = map[orchestrate.ScheduleID]string{
	orchestrate.ScheduleKnowledge:  "Knowledge phase completed. Gaps identified, sources crawled, and context structured.",
	orchestrate.SchedulePlan:       "Plan phase completed. Approaches weighed, ambiguities resolved, and steps sequenced.",
	orchestrate.ScheduleImplement:  "Implement phase completed. Changes applied, verified, and approved.",
	orchestrate.ScheduleScale:      "Scale phase completed. Performance concerns identified, benchmarks executed, and optimizations applied.",
	orchestrate.ScheduleProduction: "Production phase completed. Code analyzed, systemized, and harmonized for quality.",
}
