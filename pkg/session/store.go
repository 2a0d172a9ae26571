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

package session

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/kadirpekel/obot/pkg/config"
	"github.com/kadirpekel/obot/pkg/errs"
)

// Store reads and writes USF sessions under a directory.
// The zero directory resolves to <config dir>/sessions.
type Store struct {
	dir string
}

// NewStore creates a store rooted at dir.
func NewStore(dir string) *Store {
	if dir == "" {
		dir = filepath.Join(config.Dir(), "sessions")
	}
	return &Store{dir: dir}
}

// Dir returns the store's root directory.
func (st *Store) Dir() string {
	return st.dir
}

func (st *Store) path(id string) string {
	return filepath.Join(st.dir, id+".json")
}

// Save writes the session atomically. The JSON is written to a temp file
// in the same directory and renamed over the target, so readers never see
// a half-written session.
func (st *Store) Save(s *UnifiedSession) error {
	if err := os.MkdirAll(st.dir, 0o755); err != nil {
		return fmt.Errorf("create sessions dir: %w", err)
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	tmp, err := os.CreateTemp(st.dir, "."+s.SessionID+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp session file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write session: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close session file: %w", err)
	}
	if err := os.Rename(tmpName, st.path(s.SessionID)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("commit session file: %w", err)
	}
	return nil
}

// Load reads a session by ID.
func (st *Store) Load(id string) (*UnifiedSession, error) {
	data, err := os.ReadFile(st.path(id))
	if err != nil {
		return nil, fmt.Errorf("read session %s: %w", id, err)
	}
	var s UnifiedSession
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse session %s: %w", id, err)
	}
	return &s, nil
}

// Exists reports whether a session with the given ID is on disk.
func (st *Store) Exists(id string) bool {
	_, err := os.Stat(st.path(id))
	return err == nil
}

// Delete removes a session file.
func (st *Store) Delete(id string) error {
	return os.Remove(st.path(id))
}

// List returns all session IDs, newest first by filename.
func (st *Store) List() ([]string, error) {
	entries, err := os.ReadDir(st.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, err
	}

	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") || strings.HasPrefix(name, ".") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".json"))
	}
	sort.Sort(sort.Reverse(sort.StringSlice(ids)))
	return ids, nil
}

// Info summarizes a session for listings.
type Info struct {
	ID          string
	Description string
	Platform    string
	Status      string
	Steps       int
	CreatedAt   string
	UpdatedAt   string
}

// Infos loads summary metadata for every stored session. Unreadable
// files are skipped.
func (st *Store) Infos() ([]Info, error) {
	ids, err := st.List()
	if err != nil {
		return nil, err
	}
	infos := make([]Info, 0, len(ids))
	for _, id := range ids {
		s, err := st.Load(id)
		if err != nil {
			slog.Warn("skipping unreadable session", "id", id, "error", err)
			continue
		}
		infos = append(infos, Info{
			ID:          s.SessionID,
			Description: s.Task.Description,
			Platform:    s.PlatformOrigin,
			Status:      s.Task.Status,
			Steps:       len(s.Steps),
			CreatedAt:   s.CreatedAt.Format("2006-01-02 15:04:05"),
			UpdatedAt:   s.UpdatedAt.Format("2006-01-02 15:04:05"),
		})
	}
	return infos, nil
}

// Export writes the session's JSON to w, for handing a run to the IDE
// or to another machine.
func (st *Store) Export(id string, w io.Writer) error {
	s, err := st.Load(id)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

// saveAttempts is how many times a queued snapshot is written before the
// failure is reported to the run.
const saveAttempts = 3

// saveRetryPause separates consecutive write attempts.
const saveRetryPause = 25 * time.Millisecond

// Writer persists sessions off the orchestration hot path. Snapshots are
// queued and written by a single background goroutine, so a slow disk
// never stalls a step. A snapshot that cannot be written after
// saveAttempts tries surfaces on Failures.
type Writer struct {
	store    *Store
	queue    chan *UnifiedSession
	failures chan error
	wg       sync.WaitGroup
	once     sync.Once
}

// NewWriter starts a write-behind writer over the store.
func NewWriter(store *Store) *Writer {
	w := &Writer{
		store:    store,
		queue:    make(chan *UnifiedSession, 16),
		failures: make(chan error, 1),
	}
	w.wg.Add(1)
	go w.run()
	return w
}

// Failures delivers saves that kept failing after every retry. Only the
// first undelivered failure is retained; the run is expected to suspend
// on it.
func (w *Writer) Failures() <-chan error {
	return w.failures
}

func (w *Writer) run() {
	defer w.wg.Done()
	for s := range w.queue {
		var err error
		for attempt := 0; attempt < saveAttempts; attempt++ {
			if attempt > 0 {
				time.Sleep(saveRetryPause)
			}
			if err = w.store.Save(s); err == nil {
				break
			}
		}
		if err == nil {
			continue
		}
		slog.Error("session write failed", "id", s.SessionID, "attempts", saveAttempts, "error", err)
		select {
		case w.failures <- errs.Wrap(err, errs.ErrFileSystemAccess, "session persistence failed"):
		default:
		}
	}
}

// Enqueue snapshots the session and queues it for persistence. The caller
// may keep mutating the original.
func (w *Writer) Enqueue(s *UnifiedSession) {
	w.queue <- s.Clone()
}

// Close drains the queue and stops the writer. Safe to call more than once.
func (w *Writer) Close() {
	w.once.Do(func() {
		close(w.queue)
	})
	w.wg.Wait()
}
