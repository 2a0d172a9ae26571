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

// Package intent classifies task descriptions into coarse intents that
// seed model selection and the starting schedule. Classification is
// weighted keyword scoring; no model call is involved.
package intent

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/kadirpekel/obot/pkg/orchestrate"
)

// Intent is the classified intent of a task description.
type Intent string

const (
	Coding   Intent = "coding"
	Research Intent = "research"
	Writing  Intent = "writing"
	Vision   Intent = "vision"
	General  Intent = "general"
)

// Result contains the details of one classification.
type Result struct {
	Intent          Intent
	Confidence      float64
	Scores          map[Intent]float64
	MatchedKeywords map[Intent][]string
	Prompt          string
}

// Router classifies prompts by keyword scoring. Safe for concurrent use.
type Router struct {
	mu       sync.Mutex
	keywords map[Intent][]string
	weights  map[Intent]float64
}

// NewRouter creates a router with the default keyword sets and weights.
func NewRouter() *Router {
	r := &Router{
		keywords: make(map[Intent][]string),
		weights:  make(map[Intent]float64),
	}

	r.keywords[Coding] = []string{
		"implement", "fix", "refactor", "code", "bug", "build", "test",
		"feature", "function", "class", "method", "variable", "script",
		"compile", "debug", "deployment", "github", "git", "repo", "pr",
	}
	r.keywords[Research] = []string{
		"explain", "analyze", "how", "what", "why", "research", "search",
		"find", "crawl", "web", "docs", "documentation", "tutorial",
		"investigate", "compare", "evaluate", "summary", "information",
	}
	r.keywords[Writing] = []string{
		"document", "draft", "write", "comment", "readme", "text",
		"description", "blog", "article", "email", "report", "memo",
		"essay", "note", "content", "copy", "grammar", "style",
	}
	r.keywords[Vision] = []string{
		"image", "screenshot", "ui", "visual", "look", "see", "layout",
		"design", "color", "font", "css", "styling", "appearance",
		"icon", "logo", "button", "display", "view",
	}

	r.weights[Coding] = 1.0
	r.weights[Research] = 1.0
	r.weights[Writing] = 1.0
	r.weights[Vision] = 1.2 // vision keywords are very specific when present

	return r
}

// Route classifies the prompt and returns the detected intent.
func (r *Router) Route(prompt string) Intent {
	return r.Classify(prompt).Intent
}

// Classify performs a detailed classification of the prompt.
func (r *Router) Classify(prompt string) *Result {
	r.mu.Lock()
	defer r.mu.Unlock()

	promptLower := strings.ToLower(prompt)
	scores := make(map[Intent]float64)
	matched := make(map[Intent][]string)

	for intent, keywords := range r.keywords {
		score := 0.0
		for _, kw := range keywords {
			if strings.Contains(promptLower, kw) {
				score += 1.0
				matched[intent] = append(matched[intent], kw)
			}
		}
		scores[intent] = score * r.weights[intent]
	}

	top := General
	maxScore := 0.0
	totalScore := 0.0
	for intent, score := range scores {
		totalScore += score
		if score > maxScore {
			maxScore = score
			top = intent
		}
	}

	confidence := 0.0
	if totalScore > 0 {
		confidence = maxScore / totalScore
	}

	return &Result{
		Intent:          top,
		Confidence:      confidence,
		Scores:          scores,
		MatchedKeywords: matched,
		Prompt:          prompt,
	}
}

// AddKeywords extends the keyword set for an intent.
func (r *Router) AddKeywords(intent Intent, keywords ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keywords[intent] = append(r.keywords[intent], keywords...)
}

// SetWeight overrides the scoring weight for an intent.
func (r *Router) SetWeight(intent Intent, weight float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.weights[intent] = weight
}

// ModelFor returns the model role an intent suggests as default agent.
func ModelFor(intent Intent) orchestrate.Role {
	switch intent {
	case Coding:
		return orchestrate.RoleCoder
	case Research:
		return orchestrate.RoleResearcher
	case Vision:
		return orchestrate.RoleVision
	case Writing:
		return orchestrate.RoleCoder
	default:
		return orchestrate.RoleOrchestrator
	}
}

// RecommendSchedule returns the most natural starting schedule for an
// intent. Only a hint; the orchestrator model makes the real call.
func RecommendSchedule(intent Intent) orchestrate.ScheduleID {
	switch intent {
	case Coding:
		return orchestrate.ScheduleImplement
	case Research:
		return orchestrate.ScheduleKnowledge
	case Vision:
		return orchestrate.ScheduleProduction
	case Writing:
		return orchestrate.SchedulePlan
	default:
		return orchestrate.ScheduleKnowledge
	}
}

// IsAmbiguous reports whether confidence falls below the threshold.
func (r *Result) IsAmbiguous(threshold float64) bool {
	return r.Confidence < threshold
}

// SecondaryIntent returns the second most likely intent, or General when
// nothing else scored.
func (r *Result) SecondaryIntent() Intent {
	var others []Intent
	for intent := range r.Scores {
		if intent != r.Intent {
			others = append(others, intent)
		}
	}
	sort.Slice(others, func(i, j int) bool {
		return r.Scores[others[i]] > r.Scores[others[j]]
	})
	if len(others) > 0 && r.Scores[others[0]] > 0 {
		return others[0]
	}
	return General
}

// Explain renders a human-readable account of the classification.
func (r *Result) Explain() string {
	if r.Intent == General {
		return "Could not determine intent from prompt."
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Detected intent: %s (confidence: %.2f)\n", r.Intent, r.Confidence)

	if keywords := r.MatchedKeywords[r.Intent]; len(keywords) > 0 {
		fmt.Fprintf(&sb, "Matched keywords: %s\n", strings.Join(keywords, ", "))
	}

	var others []Intent
	for intent, score := range r.Scores {
		if intent != r.Intent && score > 0 {
			others = append(others, intent)
		}
	}
	if len(others) > 0 {
		sort.Slice(others, func(i, j int) bool {
			return r.Scores[others[i]] > r.Scores[others[j]]
		})
		sb.WriteString("Other possibilities:\n")
		for _, intent := range others {
			fmt.Fprintf(&sb, "- %s (score: %.1f)\n", intent, r.Scores[intent])
		}
	}

	return sb.String()
}
