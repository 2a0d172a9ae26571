package session

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// migratedPrefix marks legacy session directories that have been converted.
const migratedPrefix = "migrated_"

// legacySession is the pre-USF on-disk layout: one directory per session
// holding a session.usf file plus states/, notes/ and metrics/ subdirs.
type legacySession struct {
	SessionID string    `json:"session_id"`
	Platform  string    `json:"platform"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Task      struct {
		Prompt string `json:"prompt"`
		Status string `json:"status"`
	} `json:"task"`
	Workspace struct {
		Path      string `json:"path"`
		GitBranch string `json:"git_branch"`
		GitCommit string `json:"git_commit"`
	} `json:"workspace"`
	OrchestrationState struct {
		FlowCode string `json:"flow_code"`
		Schedule int    `json:"schedule"`
		Process  int    `json:"process"`
	} `json:"orchestration_state"`
	History []struct {
		Sequence  int       `json:"sequence"`
		Schedule  int       `json:"schedule"`
		Process   int       `json:"process"`
		Timestamp time.Time `json:"timestamp"`
	} `json:"history"`
	Checkpoints []struct {
		ID        string    `json:"id"`
		Name      string    `json:"name"`
		Timestamp time.Time `json:"timestamp"`
	} `json:"checkpoints"`
	Stats struct {
		TotalTokens     int64 `json:"total_tokens"`
		DurationSeconds int64 `json:"duration_seconds"`
	} `json:"stats"`
	FilesModified []string `json:"files_modified"`
}

func loadLegacy(dir, id string) (*legacySession, error) {
	data, err := os.ReadFile(filepath.Join(dir, id, "session.usf"))
	if err != nil {
		return nil, err
	}
	var legacy legacySession
	if err := json.Unmarshal(data, &legacy); err != nil {
		return nil, fmt.Errorf("parse legacy session %s: %w", id, err)
	}
	if legacy.SessionID == "" {
		legacy.SessionID = id
	}
	return &legacy, nil
}

func convertLegacy(legacy *legacySession) *UnifiedSession {
	platform := legacy.Platform
	if platform == "" {
		platform = "cli"
	}
	s := &UnifiedSession{
		Version:        Version,
		SessionID:      legacy.SessionID,
		CreatedAt:      legacy.CreatedAt,
		UpdatedAt:      legacy.UpdatedAt,
		PlatformOrigin: platform,
		Task: USFTask{
			Description: legacy.Task.Prompt,
			Status:      legacy.Task.Status,
		},
		Workspace: USFWorkspace{
			Path:      legacy.Workspace.Path,
			GitBranch: legacy.Workspace.GitBranch,
			GitCommit: legacy.Workspace.GitCommit,
		},
		Orchestration: USFOrchestration{
			FlowCode:        legacy.OrchestrationState.FlowCode,
			CurrentSchedule: legacy.OrchestrationState.Schedule,
			CurrentProcess:  legacy.OrchestrationState.Process,
		},
		Steps:       make([]USFStep, 0, len(legacy.History)),
		Checkpoints: make([]USFCheckpoint, 0, len(legacy.Checkpoints)),
		Stats: USFStats{
			TotalTokens:     int(legacy.Stats.TotalTokens),
			FilesModified:   len(legacy.FilesModified),
			DurationSeconds: legacy.Stats.DurationSeconds,
		},
	}

	for _, h := range legacy.History {
		s.Steps = append(s.Steps, USFStep{
			StepNumber: h.Sequence,
			ToolID:     fmt.Sprintf("schedule.S%dP%d", h.Schedule, h.Process),
			Success:    true,
			Outcome:    OutcomeOK,
			Timestamp:  h.Timestamp,
		})
	}
	for _, cp := range legacy.Checkpoints {
		s.Checkpoints = append(s.Checkpoints, USFCheckpoint{
			ID:        cp.ID,
			Name:      cp.Name,
			FlowCode:  legacy.OrchestrationState.FlowCode,
			Timestamp: cp.Timestamp,
		})
	}
	return s
}

// LoadAny loads a session in either format, returning the unified form.
func (st *Store) LoadAny(id string) (*UnifiedSession, error) {
	if s, err := st.Load(id); err == nil {
		return s, nil
	}
	legacy, err := loadLegacy(st.dir, id)
	if err != nil {
		return nil, fmt.Errorf("session %s not found in either format: %w", id, err)
	}
	return convertLegacy(legacy), nil
}

// listLegacy returns IDs of unconverted legacy session directories.
func (st *Store) listLegacy() ([]string, error) {
	entries, err := os.ReadDir(st.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var ids []string
	for _, entry := range entries {
		if !entry.IsDir() || len(entry.Name()) >= len(migratedPrefix) && entry.Name()[:len(migratedPrefix)] == migratedPrefix {
			continue
		}
		if _, err := os.Stat(filepath.Join(st.dir, entry.Name(), "session.usf")); err == nil {
			ids = append(ids, entry.Name())
		}
	}
	return ids, nil
}

// Migrate converts every legacy session directory to the unified format.
// Converted directories are renamed with a migrated_ prefix so reruns skip
// them and nothing is destroyed. Returns the number of sessions migrated.
func (st *Store) Migrate() (int, error) {
	ids, err := st.listLegacy()
	if err != nil {
		return 0, fmt.Errorf("list legacy sessions: %w", err)
	}

	migrated := 0
	for _, id := range ids {
		if !st.Exists(id) {
			legacy, err := loadLegacy(st.dir, id)
			if err != nil {
				slog.Warn("skipping unreadable legacy session", "id", id, "error", err)
				continue
			}
			if err := st.Save(convertLegacy(legacy)); err != nil {
				slog.Warn("legacy session conversion failed", "id", id, "error", err)
				continue
			}
		}
		oldDir := filepath.Join(st.dir, id)
		newDir := filepath.Join(st.dir, migratedPrefix+id)
		if err := os.Rename(oldDir, newDir); err != nil {
			slog.Warn("could not archive legacy session dir", "id", id, "error", err)
		}
		migrated++
	}
	return migrated, nil
}
