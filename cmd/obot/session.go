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
	"fmt"
	"os"

	"github.com/kadirpekel/obot/pkg/session"
	"github.com/kadirpekel/obot/pkg/ui"
)

// SessionCmd groups the stored-session subcommands.
type SessionCmd struct {
	List    SessionListCmd    `cmd:"" help:"List stored sessions."`
	Show    SessionShowCmd    `cmd:"" help:"Show one session in detail."`
	Export  SessionExportCmd  `cmd:"" help:"Export a session as JSON."`
	Migrate SessionMigrateCmd `cmd:"" help:"Migrate legacy sessions to the unified format."`
}

// SessionListCmd lists stored sessions, newest first.
type SessionListCmd struct{}

func (c *SessionListCmd) Run() error {
	store := session.NewStore("")
	infos, err := store.Infos()
	if err != nil {
		return err
	}
	if len(infos) == 0 {
		fmt.Println("No stored sessions.")
		return nil
	}
	for _, info := range infos {
		fmt.Printf("%s  %-12s %-11s %3d steps  %s\n",
			info.ID, info.Platform, info.Status, info.Steps, ui.Muted(info.Description))
	}
	return nil
}

// SessionShowCmd shows one session in detail.
type SessionShowCmd struct {
	ID string `arg:"" help:"Session ID."`
}

func (c *SessionShowCmd) Run() error {
	store := session.NewStore("")
	s, err := store.LoadAny(c.ID)
	if err != nil {
		return err
	}

	box := ui.NewBox().
		Title("obot • Session").
		Blank().
		Label("ID", s.SessionID).
		Label("PLATFORM", s.PlatformOrigin).
		Label("STATUS", string(s.Task.Status)).
		Label("INTENT", s.Task.Intent).
		Label("QUALITY", s.Task.QualityPreset).
		Label("FLOW CODE", s.Orchestration.FlowCode).
		Label("STEPS", fmt.Sprintf("%d", len(s.Steps))).
		Label("CHECKPOINTS", fmt.Sprintf("%d", len(s.Checkpoints))).
		Label("TOKENS", fmt.Sprintf("%d", s.Stats.TotalTokens)).
		Blank().
		Line("TASK:").
		Wrapped(s.Task.Description)
	fmt.Println(box.Render())
	return nil
}

// SessionExportCmd writes a session's JSON to stdout or a file.
type SessionExportCmd struct {
	ID     string `arg:"" help:"Session ID."`
	Output string `short:"o" help:"Write to file instead of stdout." type:"path"`
}

func (c *SessionExportCmd) Run() error {
	store := session.NewStore("")
	if c.Output == "" {
		return store.Export(c.ID, os.Stdout)
	}
	f, err := os.Create(c.Output)
	if err != nil {
		return err
	}
	defer f.Close()
	return store.Export(c.ID, f)
}

// SessionMigrateCmd converts legacy directory-layout sessions in place.
type SessionMigrateCmd struct{}

func (c *SessionMigrateCmd) Run() error {
	store := session.NewStore("")
	n, err := store.Migrate()
	if err != nil {
		return err
	}
	fmt.Printf("Migrated %d session(s).\n", n)
	return nil
}
