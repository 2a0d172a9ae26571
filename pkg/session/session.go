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

// Package session persists orchestration runs in the unified session
// format (USF v1.0). CLI and IDE both read and write this format, so a
// run started on one platform can be resumed on the other.
package session

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
)

// Version is the USF format version written by this build.
const Version = "1.0"

// Task status values.
const (
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Step outcome values.
const (
	OutcomeOK        = "ok"
	OutcomeFailed    = "failed"
	OutcomeSuspended = "suspended"
)

// UnifiedSession is one orchestration run in USF v1.0.
type UnifiedSession struct {
	Version        string           `json:"version"`
	SessionID      string           `json:"session_id"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
	PlatformOrigin string           `json:"platform_origin"`
	Task           USFTask          `json:"task"`
	Workspace      USFWorkspace     `json:"workspace"`
	Orchestration  USFOrchestration `json:"orchestration"`
	Steps          []USFStep        `json:"steps"`
	Checkpoints    []USFCheckpoint  `json:"checkpoints"`
	Stats          USFStats         `json:"stats"`
	TLDR           *USFTLDR         `json:"tldr,omitempty"`
}

// USFTask describes the task being worked on.
type USFTask struct {
	Description   string `json:"description"`
	Intent        string `json:"intent"`
	QualityPreset string `json:"quality_preset"`
	Status        string `json:"status"`
}

// USFWorkspace describes the workspace the run operates on.
type USFWorkspace struct {
	Path      string `json:"path"`
	GitBranch string `json:"git_branch,omitempty"`
	GitCommit string `json:"git_commit,omitempty"`
}

// USFOrchestration tracks the navigation state of the run.
type USFOrchestration struct {
	FlowCode           string   `json:"flow_code"`
	CurrentSchedule    int      `json:"current_schedule"`
	CurrentProcess     int      `json:"current_process"`
	CompletedSchedules []string `json:"completed_schedules"`
}

// USFStep records a single agent step.
type USFStep struct {
	StepNumber   int              `json:"step_number"`
	ToolID       string           `json:"tool_id"`
	Input        string           `json:"input,omitempty"`
	Output       string           `json:"output,omitempty"`
	Success      bool             `json:"success"`
	Outcome      string           `json:"outcome"`
	Consultation *USFConsultation `json:"consultation,omitempty"`
	Tokens       int              `json:"tokens,omitempty"`
	Duration     int64            `json:"duration_ms,omitempty"`
	Timestamp    time.Time        `json:"timestamp"`
}

// USFConsultation records a human-in-the-loop exchange attached to a step.
type USFConsultation struct {
	Type   string `json:"type"`
	Source string `json:"source"`
}

// USFCheckpoint is a named restore point within a run.
type USFCheckpoint struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	GitCommit string    `json:"git_commit,omitempty"`
	FlowCode  string    `json:"flow_code"`
	Timestamp time.Time `json:"timestamp"`
}

// USFTLDR is the judge's final verdict stored with the run.
type USFTLDR struct {
	PromptGoal            string   `json:"prompt_goal"`
	ImplementationSummary string   `json:"implementation_summary"`
	QualityAssessment     string   `json:"quality_assessment"`
	Justification         string   `json:"justification,omitempty"`
	PromptAdherenceAvg    float64  `json:"avg_prompt_adherence"`
	ProjectQualityAvg     float64  `json:"avg_project_quality"`
	Discoveries           []string `json:"discoveries,omitempty"`
	Learnings             []string `json:"learnings,omitempty"`
	Issues                []string `json:"issues,omitempty"`
	Recommendations       []string `json:"recommendations,omitempty"`
}

// USFStats accumulates run statistics.
type USFStats struct {
	TotalTokens        int     `json:"total_tokens"`
	FilesModified      int     `json:"files_modified"`
	FilesCreated       int     `json:"files_created"`
	CommandsRun        int     `json:"commands_run"`
	Delegations        int     `json:"delegations"`
	EstimatedCostSaved float64 `json:"estimated_cost_saved"`
	DurationSeconds    int64   `json:"duration_seconds"`
}

// New creates a fresh CLI session for the given task.
func New(task, intent, qualityPreset string) *UnifiedSession {
	now := time.Now()
	wd, _ := os.Getwd()

	return &UnifiedSession{
		Version:        Version,
		SessionID:      fmt.Sprintf("sess_%s_%s", now.Format("20060102_150405"), uuid.NewString()[:8]),
		CreatedAt:      now,
		UpdatedAt:      now,
		PlatformOrigin: "cli",
		Task: USFTask{
			Description:   task,
			Intent:        intent,
			QualityPreset: qualityPreset,
			Status:        StatusInProgress,
		},
		Workspace: USFWorkspace{
			Path: wd,
		},
		Steps:       make([]USFStep, 0),
		Checkpoints: make([]USFCheckpoint, 0),
	}
}

// AddStep appends an agent step and folds its tokens into the stats. The
// returned step may be annotated in place before the session is persisted;
// a failed step defaults to the failed outcome and the caller marks it
// suspended when the run suspends on it.
func (s *UnifiedSession) AddStep(toolID, input, output string, success bool, tokens int, durationMS int64) *USFStep {
	outcome := OutcomeOK
	if !success {
		outcome = OutcomeFailed
	}
	s.Steps = append(s.Steps, USFStep{
		StepNumber: len(s.Steps) + 1,
		ToolID:     toolID,
		Input:      input,
		Output:     output,
		Success:    success,
		Outcome:    outcome,
		Tokens:     tokens,
		Duration:   durationMS,
		Timestamp:  time.Now(),
	})
	s.UpdatedAt = time.Now()
	s.Stats.TotalTokens += tokens
	return &s.Steps[len(s.Steps)-1]
}

// AddCheckpoint records a restore point at the current flow code.
func (s *UnifiedSession) AddCheckpoint(name, gitCommit string) *USFCheckpoint {
	cp := USFCheckpoint{
		ID:        fmt.Sprintf("cp-%d", len(s.Checkpoints)+1),
		Name:      name,
		GitCommit: gitCommit,
		FlowCode:  s.Orchestration.FlowCode,
		Timestamp: time.Now(),
	}
	s.Checkpoints = append(s.Checkpoints, cp)
	s.UpdatedAt = time.Now()
	return &s.Checkpoints[len(s.Checkpoints)-1]
}

// Checkpoint returns the checkpoint with the given ID or name, or nil.
func (s *UnifiedSession) Checkpoint(idOrName string) *USFCheckpoint {
	for i := range s.Checkpoints {
		if s.Checkpoints[i].ID == idOrName || s.Checkpoints[i].Name == idOrName {
			return &s.Checkpoints[i]
		}
	}
	return nil
}

// Restore rewinds the orchestration state to a checkpoint. Steps recorded
// after the checkpoint are kept for audit; only the navigation state moves.
func (s *UnifiedSession) Restore(idOrName string) error {
	cp := s.Checkpoint(idOrName)
	if cp == nil {
		return fmt.Errorf("checkpoint %q not found", idOrName)
	}
	s.Orchestration.FlowCode = cp.FlowCode
	s.Task.Status = StatusInProgress
	s.UpdatedAt = time.Now()
	return nil
}

// Complete marks the session finished and seals the duration.
func (s *UnifiedSession) Complete() {
	s.Task.Status = StatusCompleted
	s.UpdatedAt = time.Now()
	s.Stats.DurationSeconds = int64(time.Since(s.CreatedAt).Seconds())
}

// Fail marks the session failed and seals the duration.
func (s *UnifiedSession) Fail() {
	s.Task.Status = StatusFailed
	s.UpdatedAt = time.Now()
	s.Stats.DurationSeconds = int64(time.Since(s.CreatedAt).Seconds())
}

// Clone returns a deep copy safe to hand to another goroutine.
func (s *UnifiedSession) Clone() *UnifiedSession {
	out := *s
	out.Orchestration.CompletedSchedules = append([]string(nil), s.Orchestration.CompletedSchedules...)
	out.Steps = append([]USFStep(nil), s.Steps...)
	for i := range out.Steps {
		if c := out.Steps[i].Consultation; c != nil {
			cc := *c
			out.Steps[i].Consultation = &cc
		}
	}
	out.Checkpoints = append([]USFCheckpoint(nil), s.Checkpoints...)
	if s.TLDR != nil {
		tldr := *s.TLDR
		tldr.Discoveries = append([]string(nil), s.TLDR.Discoveries...)
		tldr.Learnings = append([]string(nil), s.TLDR.Learnings...)
		tldr.Issues = append([]string(nil), s.TLDR.Issues...)
		tldr.Recommendations = append([]string(nil), s.TLDR.Recommendations...)
		out.TLDR = &tldr
	}
	return &out
}
