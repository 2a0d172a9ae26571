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

// Package judge implements the multi-expert review that closes a run.
// Each expert model scores the session from its own perspective; the
// orchestrator model synthesizes the reports into a final verdict.
package judge

import "time"

// ExpertType identifies an expert reviewer.
type ExpertType string

const (
	ExpertCoder      ExpertType = "coder"
	ExpertResearcher ExpertType = "researcher"
	ExpertVision     ExpertType = "vision"
)

// Report is one expert's structured review.
type Report struct {
	Expert          ExpertType
	PromptAdherence float64 // 0-100
	ProjectQuality  float64 // 0-100
	ActionsTaken    int
	ErrorsMade      int
	Observations    []string
	Recommendations []string
	Timestamp       time.Time
}

// Consensus aggregates the non-failed expert scores.
type Consensus struct {
	PromptAdherenceAvg float64
	ProjectQualityAvg  float64
	PromptAdherence    map[ExpertType]float64
	ProjectQuality     map[ExpertType]float64
}

// QualityLevel is the overall verdict band.
type QualityLevel string

const (
	QualityExceptional      QualityLevel = "EXCEPTIONAL"
	QualityAcceptable       QualityLevel = "ACCEPTABLE"
	QualityNeedsImprovement QualityLevel = "NEEDS_IMPROVEMENT"
)

// AssessQuality maps an aggregate score to a quality band.
func AssessQuality(score float64) QualityLevel {
	switch {
	case score >= 90:
		return QualityExceptional
	case score >= 70:
		return QualityAcceptable
	default:
		return QualityNeedsImprovement
	}
}

// Issue is a problem surfaced during synthesis.
type Issue struct {
	Description string
	Resolution  string
}

// TLDR is the synthesized final verdict.
type TLDR struct {
	PromptGoal            string
	ImplementationSummary string
	Consensus             Consensus
	Discoveries           []string
	Learnings             []string
	Issues                []Issue
	QualityAssessment     QualityLevel
	Justification         string
	Recommendations       []string
}

// TestResults carries test outcomes into the review.
type TestResults struct {
	Passed int
	Failed int
	Total  int
}

// LintResults carries lint outcomes into the review.
type LintResults struct {
	Errors   int
	Warnings int
}

// Input is the session material put in front of the experts.
type Input struct {
	OriginalPrompt string
	FlowCode       string
	Actions        []string
	Errors         []string
	FileChanges    map[string]int // filename -> lines changed
	TestResults    *TestResults
	LintResults    *LintResults
}

// Analysis is the complete result of one evaluation pass.
type Analysis struct {
	Reports   map[ExpertType]*Report
	Failures  []string
	Consensus *Consensus
	TLDR      *TLDR
	StartTime time.Time
	EndTime   time.Time
}
