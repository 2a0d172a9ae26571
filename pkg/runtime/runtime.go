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

// Package runtime drives complete orchestration runs. It connects the
// navigation machine, the model coordinator, the schedule bodies, the
// consultation and suspension handlers and the session store into the
// step loop that executes a task end to end.
package runtime

import (
	"context"
	"strings"
	"time"

	"github.com/kadirpekel/obot/pkg/config"
	"github.com/kadirpekel/obot/pkg/consult"
	"github.com/kadirpekel/obot/pkg/contextbudget"
	"github.com/kadirpekel/obot/pkg/errs"
	"github.com/kadirpekel/obot/pkg/intent"
	"github.com/kadirpekel/obot/pkg/model"
	"github.com/kadirpekel/obot/pkg/orchestrate"
	"github.com/kadirpekel/obot/pkg/session"
	"github.com/kadirpekel/obot/pkg/suspend"
	"github.com/kadirpekel/obot/pkg/telemetry"
	"github.com/kadirpekel/obot/pkg/tools"
)

const (
	maxModelRetries = 3
	eventBuffer     = 64
)

// Orchestrator builds and runs orchestration sessions.
type Orchestrator struct {
	cfg       *config.Config
	coord     *model.Coordinator
	consult   *consult.Handler
	suspender *suspend.Handler
	store     *session.Store
	router    *intent.HistoryRouter
	tools     *tools.Registry
	counter   *contextbudget.Counter
	telemetry *telemetry.Service
	monitor   *telemetry.Monitor

	quality   string
	backoff   time.Duration
	preflight func(context.Context) error
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithCoordinator replaces the model coordinator.
func WithCoordinator(c *model.Coordinator) Option {
	return func(o *Orchestrator) { o.coord = c }
}

// WithConsultHandler sets the consultation handler. A nil handler skips
// consultations entirely.
func WithConsultHandler(h *consult.Handler) Option {
	return func(o *Orchestrator) { o.consult = h }
}

// WithSuspendHandler sets the suspension handler.
func WithSuspendHandler(h *suspend.Handler) Option {
	return func(o *Orchestrator) { o.suspender = h }
}

// WithStore sets the session store.
func WithStore(st *session.Store) Option {
	return func(o *Orchestrator) { o.store = st }
}

// WithTelemetry wires the local telemetry sink and resource monitor.
func WithTelemetry(svc *telemetry.Service, mon *telemetry.Monitor) Option {
	return func(o *Orchestrator) { o.telemetry = svc; o.monitor = mon }
}

// WithQuality sets the quality preset recorded in the session.
func WithQuality(preset string) Option {
	return func(o *Orchestrator) { o.quality = preset }
}

// WithRetryBackoff overrides the base backoff between model retries.
func WithRetryBackoff(d time.Duration) Option {
	return func(o *Orchestrator) { o.backoff = d }
}

// WithPreflight overrides the pre-run model validation probe.
func WithPreflight(fn func(context.Context) error) Option {
	return func(o *Orchestrator) { o.preflight = fn }
}

// New creates an orchestrator from the configuration.
func New(cfg *config.Config, opts ...Option) *Orchestrator {
	if cfg == nil {
		cfg = config.Default()
	}
	o := &Orchestrator{
		cfg: cfg,
		// History-aware classification: ambiguous prompts lean on what
		// recent runs were doing.
		router:  intent.NewHistoryRouter(intent.NewRouter()),
		tools:   tools.NewRegistry(),
		counter: contextbudget.NewHeuristicCounter(),
		quality: "balanced",
		backoff: 500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.coord == nil {
		o.coord = model.NewCoordinator(cfg)
	}
	if o.suspender == nil {
		o.suspender = suspend.NewHandler(suspend.WithAnalyst(o.coord.Orchestrator()))
	}
	if o.store == nil {
		o.store = session.NewStore("")
	}
	if o.preflight == nil {
		o.preflight = o.coord.Validate
	}
	return o
}

// Start validates the environment and opens a run for the task. The task
// must be non-empty and the configured models reachable before any
// session file is created.
func (o *Orchestrator) Start(ctx context.Context, task string) (*RunHandle, error) {
	task = strings.TrimSpace(task)
	if task == "" {
		return nil, errs.New(errs.ErrMissingParameter, "task prompt is required")
	}
	if err := o.preflight(ctx); err != nil {
		return nil, err
	}

	result := o.router.Classify(task)
	sess := session.New(task, string(result.Intent), o.quality)

	return o.newHandle(ctx, sess, orchestrate.NewMachine(), result.Intent), nil
}

// Resume reopens a stored session, restoring the navigation position from
// its flow code.
func (o *Orchestrator) Resume(ctx context.Context, sessionID string) (*RunHandle, error) {
	if err := o.preflight(ctx); err != nil {
		return nil, err
	}

	sess, err := o.store.LoadAny(sessionID)
	if err != nil {
		return nil, err
	}
	machine, err := orchestrate.ResumeMachine(sess.Orchestration.FlowCode)
	if err != nil {
		return nil, err
	}
	sess.Task.Status = session.StatusInProgress

	result := o.router.Classify(sess.Task.Description)
	return o.newHandle(ctx, sess, machine, result.Intent), nil
}

func (o *Orchestrator) newHandle(ctx context.Context, sess *session.UnifiedSession, machine *orchestrate.Machine, taskIntent intent.Intent) *RunHandle {
	runCtx, cancel := context.WithCancel(ctx)
	h := &RunHandle{
		o:          o,
		ctx:        runCtx,
		cancel:     cancel,
		machine:    machine,
		sess:       sess,
		writer:     session.NewWriter(o.store),
		events:     make(chan Event, eventBuffer),
		taskIntent: taskIntent,
	}
	h.persist()
	return h
}
