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

// Package model coordinates the four model roles behind one facade. Each
// role gets its own Ollama client configured for the detected hardware
// tier, and selection maps schedule, process and intent onto a role.
package model

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/kadirpekel/obot/pkg/config"
	"github.com/kadirpekel/obot/pkg/errs"
	"github.com/kadirpekel/obot/pkg/intent"
	"github.com/kadirpekel/obot/pkg/ollama"
	"github.com/kadirpekel/obot/pkg/orchestrate"
	"github.com/kadirpekel/obot/pkg/tier"
)

// RoleConfig holds the per-role model parameters.
type RoleConfig struct {
	Role         orchestrate.Role
	Name         string
	SystemPrompt string
	Temperature  float64
	MaxTokens    int
}

const orchestratorPrompt = `You are the orchestrator of an agentic coding system.
Your role is TOOLER ONLY. You select schedules and processes but do NOT perform agent actions.
You cannot: create files, edit files, run commands, or generate code.
You can only: select schedules (1-5), select processes (1-3), terminate schedules, terminate the run.

Navigation rules (STRICT):
- From P1: you may go to P1 or P2
- From P2: you may go to P1, P2, or P3
- From P3: you may go to P2, P3, or terminate the schedule
- A schedule can ONLY terminate after P3

Run termination requires:
1. All 5 schedules have run at least once
2. Production was the last terminated schedule
3. You can justify that no further improvement is possible`

const coderPrompt = `You are the coding agent of an agentic coding system.
You execute processes by performing file operations and running commands.
You are an EXECUTOR ONLY. You cannot make orchestration decisions.
You cannot: select schedules, navigate processes, terminate schedules, terminate the run.
You can only: create/edit/delete files, create/delete directories, run commands.

Report your actions clearly using the format:
- Created {filename}
- Edited {filename} at lines {ranges}
- Deleted {filename}
- Ran {command} (exit {code})

Signal completion with: {ProcessName} Completed`

const researcherPrompt = `You are the researcher agent of an agentic coding system.
You execute Knowledge schedule processes: Research, Crawl, Retrieve.
Focus on gathering accurate, relevant information.
Validate sources and structure information for use in other schedules.`

const visionPrompt = `You are the vision agent of an agentic coding system.
You analyze UI components during the Production schedule's Harmonize process.
Focus on visual consistency, accessibility, and production readiness.
Report specific issues and recommendations for UI polish.`

// defaultRoleConfigs builds the per-role configurations, resolving model
// names from the configuration for the given tier.
func defaultRoleConfigs(cfg *config.Config, t tier.Tier) map[orchestrate.Role]*RoleConfig {
	return map[orchestrate.Role]*RoleConfig{
		orchestrate.RoleOrchestrator: {
			Role:         orchestrate.RoleOrchestrator,
			Name:         cfg.GetModelForRole("orchestrator", string(t)),
			SystemPrompt: orchestratorPrompt,
			Temperature:  0.3,
			MaxTokens:    4096,
		},
		orchestrate.RoleCoder: {
			Role:         orchestrate.RoleCoder,
			Name:         cfg.GetModelForRole("coder", string(t)),
			SystemPrompt: coderPrompt,
			Temperature:  0.7,
			MaxTokens:    8192,
		},
		orchestrate.RoleResearcher: {
			Role:         orchestrate.RoleResearcher,
			Name:         cfg.GetModelForRole("researcher", string(t)),
			SystemPrompt: researcherPrompt,
			Temperature:  0.5,
			MaxTokens:    4096,
		},
		orchestrate.RoleVision: {
			Role:         orchestrate.RoleVision,
			Name:         cfg.GetModelForRole("vision", string(t)),
			SystemPrompt: visionPrompt,
			Temperature:  0.5,
			MaxTokens:    4096,
		},
	}
}

// Coordinator owns one client per role and answers which role should act
// at any point of a run. Token counters are atomic; everything else is
// guarded by the mutex.
type Coordinator struct {
	mu sync.Mutex

	probe   *ollama.Client
	tier    tier.Tier
	configs map[orchestrate.Role]*RoleConfig
	clients map[orchestrate.Role]ollama.LLM
	active  orchestrate.Role
	tokens  map[orchestrate.Role]*atomic.Int64
}

type Option func(*Coordinator)

// WithTier overrides the detected hardware tier.
func WithTier(t tier.Tier) Option {
	return func(c *Coordinator) { c.tier = t }
}

// WithClient substitutes the client for one role. Used to inject fakes.
func WithClient(role orchestrate.Role, client ollama.LLM) Option {
	return func(c *Coordinator) { c.clients[role] = client }
}

// WithProbe substitutes the client used for daemon and model checks.
func WithProbe(probe *ollama.Client) Option {
	return func(c *Coordinator) { c.probe = probe }
}

// NewCoordinator builds the coordinator from the configuration. One
// client per role is created unless overridden via WithClient.
func NewCoordinator(cfg *config.Config, opts ...Option) *Coordinator {
	c := &Coordinator{
		tier:    tier.Detect().DetectedTier,
		clients: make(map[orchestrate.Role]ollama.LLM),
		tokens: map[orchestrate.Role]*atomic.Int64{
			orchestrate.RoleOrchestrator: {},
			orchestrate.RoleCoder:        {},
			orchestrate.RoleResearcher:   {},
			orchestrate.RoleVision:       {},
		},
	}
	for _, opt := range opts {
		opt(c)
	}

	c.configs = defaultRoleConfigs(cfg, c.tier)
	if c.probe == nil {
		c.probe = ollama.NewClient(
			ollama.WithBaseURL(cfg.Ollama.URL),
			ollama.WithTimeout(cfg.Ollama.Timeout()),
		)
	}

	for role, rc := range c.configs {
		if _, ok := c.clients[role]; ok {
			continue
		}
		c.clients[role] = ollama.NewClient(
			ollama.WithBaseURL(cfg.Ollama.URL),
			ollama.WithModel(rc.Name),
			ollama.WithTimeout(cfg.Ollama.Timeout()),
			ollama.WithOptions(map[string]any{
				"temperature": rc.Temperature,
				"num_predict": rc.MaxTokens,
			}),
		)
	}

	return c
}

// Client returns the client for a role.
func (c *Coordinator) Client(role orchestrate.Role) ollama.LLM {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.clients[role]
}

// Orchestrator returns the orchestrator client.
func (c *Coordinator) Orchestrator() ollama.LLM {
	return c.Client(orchestrate.RoleOrchestrator)
}

// Tier returns the tier the coordinator was built for.
func (c *Coordinator) Tier() tier.Tier {
	return c.tier
}

// RoleFor returns the role configuration, or nil for an unknown role.
func (c *Coordinator) RoleFor(role orchestrate.Role) *RoleConfig {
	c.mu.Lock()
	defer c.mu.Unlock()
	if rc, ok := c.configs[role]; ok {
		cp := *rc
		return &cp
	}
	return nil
}

// SetModelName overrides the model name for a role.
func (c *Coordinator) SetModelName(role orchestrate.Role, name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if rc, ok := c.configs[role]; ok {
		rc.Name = name
	}
}

// UpdateSystemPrompt replaces the system prompt for a role.
func (c *Coordinator) UpdateSystemPrompt(role orchestrate.Role, prompt string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if rc, ok := c.configs[role]; ok {
		rc.SystemPrompt = prompt
	}
}

// Select returns the role that should execute the given process. The
// Knowledge schedule always uses the researcher and Production's
// Harmonize process uses the vision role; everything else falls to the
// intent's preferred executor, defaulting to the coder. On the minimal
// tier the heavy roles are demoted to lighter ones.
func (c *Coordinator) Select(schedule orchestrate.ScheduleID, process orchestrate.ProcessID, taskIntent intent.Intent) orchestrate.Role {
	role := orchestrate.RoleCoder
	switch {
	case schedule == orchestrate.ScheduleProduction && process == orchestrate.Process3:
		role = orchestrate.RoleVision
	case schedule == orchestrate.ScheduleKnowledge:
		role = orchestrate.RoleResearcher
	case taskIntent == intent.Research:
		role = orchestrate.RoleResearcher
	case taskIntent == intent.Vision:
		role = orchestrate.RoleVision
	}

	if c.tier == tier.Minimal {
		switch role {
		case orchestrate.RoleCoder:
			role = orchestrate.RoleOrchestrator
		case orchestrate.RoleVision:
			role = orchestrate.RoleCoder
		}
	}
	return role
}

// SystemPrompt returns the system prompt for the role Select would pick.
func (c *Coordinator) SystemPrompt(schedule orchestrate.ScheduleID, process orchestrate.ProcessID) string {
	role := c.Select(schedule, process, intent.General)
	c.mu.Lock()
	defer c.mu.Unlock()
	if rc, ok := c.configs[role]; ok {
		return rc.SystemPrompt
	}
	return ""
}

// fallbacks maps a role to the next role to try when its model is not
// installed. Resolution walks the chain with a visited set so the
// coder/researcher pair cannot loop; the orchestrator is the terminus.
var fallbacks = map[orchestrate.Role]orchestrate.Role{
	orchestrate.RoleVision:     orchestrate.RoleCoder,
	orchestrate.RoleCoder:      orchestrate.RoleResearcher,
	orchestrate.RoleResearcher: orchestrate.RoleCoder,
}

// Fallback resolves a role against the set of installed model names.
func (c *Coordinator) Fallback(role orchestrate.Role, installed map[string]bool) orchestrate.Role {
	c.mu.Lock()
	defer c.mu.Unlock()

	visited := make(map[orchestrate.Role]bool)
	for {
		rc, ok := c.configs[role]
		if ok && installed[rc.Name] {
			return role
		}
		visited[role] = true
		next, ok := fallbacks[role]
		if !ok || visited[next] {
			return orchestrate.RoleOrchestrator
		}
		role = next
	}
}

// Handoff records that control moved to another role.
func (c *Coordinator) Handoff(to orchestrate.Role) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.active = to
}

// ActiveRole returns the role currently holding control.
func (c *Coordinator) ActiveRole() orchestrate.Role {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// RecordTokens adds to a role's token counter.
func (c *Coordinator) RecordTokens(role orchestrate.Role, tokens int64) {
	if counter, ok := c.tokens[role]; ok {
		counter.Add(tokens)
	}
}

// TokenCounts returns a snapshot of token usage per role.
func (c *Coordinator) TokenCounts() map[orchestrate.Role]int64 {
	counts := make(map[orchestrate.Role]int64, len(c.tokens))
	for role, counter := range c.tokens {
		counts[role] = counter.Load()
	}
	return counts
}

// TotalTokens returns the sum of all role counters.
func (c *Coordinator) TotalTokens() int64 {
	var total int64
	for _, counter := range c.tokens {
		total += counter.Load()
	}
	return total
}

// Validate checks that the daemon is reachable and every configured
// model is installed. A dead daemon is an E010; a missing model an E011.
// Both are fatal.
func (c *Coordinator) Validate(ctx context.Context) error {
	if err := c.probe.CheckConnection(ctx); err != nil {
		return errs.Wrap(err, errs.ErrOllamaUnavailable, errs.HardcodedMessage(errs.ErrOllamaUnavailable))
	}

	available, err := c.probe.ListModels(ctx)
	if err != nil {
		return errs.Wrap(err, errs.ErrOllamaUnavailable, "failed to list installed models")
	}
	installed := make(map[string]bool, len(available))
	for _, m := range available {
		installed[m.Name] = true
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for role, rc := range c.configs {
		if !installed[rc.Name] {
			return errs.New(errs.ErrModelNotFound,
				fmt.Sprintf("model %s for role %s is not installed (run: ollama pull %s)", rc.Name, role, rc.Name))
		}
	}
	return nil
}
