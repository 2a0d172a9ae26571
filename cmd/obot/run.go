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

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/kadirpekel/obot/pkg/consult"
	"github.com/kadirpekel/obot/pkg/judge"
	"github.com/kadirpekel/obot/pkg/runtime"
	"github.com/kadirpekel/obot/pkg/telemetry"
	"github.com/kadirpekel/obot/pkg/ui"
)

// RunCmd executes a task through the full orchestration loop.
type RunCmd struct {
	Task []string `arg:"" optional:"" help:"Task prompt for the run."`

	Quality  string `help:"Quality preset (fast, balanced, max)." default:"balanced"`
	Platform string `help:"Platform origin recorded in the session." default:"cli"`
	Resume   string `help:"Resume a stored session by ID instead of starting a new run." placeholder:"SESSION_ID"`
}

func (c *RunCmd) Run(cli *CLI) error {
	cfg, err := loadConfig(cli)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		slog.Info("Interrupt received, cancelling run")
		cancel()
	}()

	svc := telemetry.NewService()
	mon, monErr := telemetry.NewMonitor()
	if monErr != nil {
		slog.Warn("Resource monitoring unavailable", "error", monErr)
	} else {
		mon.Start(0)
		defer mon.Stop()
	}

	orch := runtime.New(cfg,
		runtime.WithQuality(c.Quality),
		runtime.WithConsultHandler(consult.NewHandler()),
		runtime.WithTelemetry(svc, mon),
	)

	var h *runtime.RunHandle
	if c.Resume != "" {
		h, err = orch.Resume(ctx, c.Resume)
	} else {
		h, err = orch.Start(ctx, strings.Join(c.Task, " "))
	}
	if err != nil {
		return err
	}
	if c.Platform != "" {
		h.Session().PlatformOrigin = c.Platform
	}

	fmt.Printf("Session %s\n\n", ui.Primary(h.Session().SessionID))

	drained := make(chan struct{})
	go func() {
		defer close(drained)
		for ev := range h.Events() {
			switch ev.Type {
			case runtime.EventPositionChanged:
				fmt.Printf("%s %s\n", ui.Muted("»"), ui.Muted(ev.FlowCode))
			case runtime.EventStepCompleted:
				fmt.Printf("  %s S%dP%d %s\n", ui.Primary("✓"), ev.Schedule, ev.Process, ev.Detail)
			case runtime.EventConsultationRequested:
				fmt.Printf("  %s\n", ui.Warn("? consultation requested"))
			case runtime.EventSuspended:
				fmt.Printf("  %s\n", ui.Warn("‼ suspended: "+ev.Detail))
			case runtime.EventResumed:
				fmt.Printf("  %s\n", ui.Muted("resumed: "+ev.Detail))
			case runtime.EventTerminated:
				fmt.Printf("%s %s\n", ui.Muted("■"), ui.Muted("run terminated"))
			}
		}
	}()

	runErr := h.Wait()
	<-drained

	if analysis := h.Analysis(); analysis != nil && analysis.TLDR != nil {
		fmt.Println(judge.RenderTLDR(analysis.TLDR))
	}

	sess := h.Session()
	box := ui.NewBox().
		Title("obot • Run Summary").
		Blank().
		Label("SESSION", sess.SessionID).
		Label("STATUS", string(sess.Task.Status)).
		Label("FLOW CODE", sess.Orchestration.FlowCode).
		Label("STEPS", fmt.Sprintf("%d", len(sess.Steps))).
		Label("TOKENS", fmt.Sprintf("%d", sess.Stats.TotalTokens)).
		Label("COST SAVED", telemetry.FormatSavings(sess.Stats.EstimatedCostSaved)).
		Label("DURATION", ui.FormatDuration(int(sess.Stats.DurationSeconds)))
	fmt.Println(box.Render())

	return runErr
}
