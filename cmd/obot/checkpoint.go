package main

import (
	"fmt"
	"os/exec"
	"strings"

	"github.com/kadirpekel/obot/pkg/session"
)

// CheckpointCmd groups the checkpoint subcommands.
type CheckpointCmd struct {
	Save    CheckpointSaveCmd    `cmd:"" help:"Save a named checkpoint on a session."`
	List    CheckpointListCmd    `cmd:"" help:"List a session's checkpoints."`
	Restore CheckpointRestoreCmd `cmd:"" help:"Rewind a session to a checkpoint."`
}

// CheckpointSaveCmd snapshots the session's current orchestration state.
type CheckpointSaveCmd struct {
	Session string `arg:"" help:"Session ID."`
	Name    string `arg:"" help:"Checkpoint name."`
}

func (c *CheckpointSaveCmd) Run() error {
	store := session.NewStore("")
	s, err := store.LoadAny(c.Session)
	if err != nil {
		return err
	}
	cp := s.AddCheckpoint(c.Name, headCommit())
	if err := store.Save(s); err != nil {
		return err
	}
	fmt.Printf("Saved checkpoint %s (%s) at flow code %s\n", cp.ID, cp.Name, cp.FlowCode)
	return nil
}

// CheckpointListCmd lists a session's checkpoints.
type CheckpointListCmd struct {
	Session string `arg:"" help:"Session ID."`
}

func (c *CheckpointListCmd) Run() error {
	store := session.NewStore("")
	s, err := store.LoadAny(c.Session)
	if err != nil {
		return err
	}
	if len(s.Checkpoints) == 0 {
		fmt.Println("No checkpoints.")
		return nil
	}
	for _, cp := range s.Checkpoints {
		fmt.Printf("%-6s %-20s %s  %s\n",
			cp.ID, cp.Name, cp.FlowCode, cp.Timestamp.Format("2006-01-02 15:04:05"))
	}
	return nil
}

// CheckpointRestoreCmd rewinds the session to a checkpoint's flow code.
type CheckpointRestoreCmd struct {
	Session    string `arg:"" help:"Session ID."`
	Checkpoint string `arg:"" help:"Checkpoint ID or name."`
}

func (c *CheckpointRestoreCmd) Run() error {
	store := session.NewStore("")
	s, err := store.LoadAny(c.Session)
	if err != nil {
		return err
	}
	if err := s.Restore(c.Checkpoint); err != nil {
		return err
	}
	if err := store.Save(s); err != nil {
		return err
	}
	fmt.Printf("Restored session %s to flow code %s\n", s.SessionID, s.Orchestration.FlowCode)
	return nil
}

// headCommit returns the current git HEAD, or empty outside a repo.
func headCommit() string {
	out, err := exec.Command("git", "rev-parse", "HEAD").Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}
