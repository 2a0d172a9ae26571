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

package telemetry

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/kadirpekel/obot/pkg/config"
)

// maxRecords caps the stats file to the most recent sessions.
const maxRecords = 1000

// SessionTelemetry is the per-run record appended to the stats file.
type SessionTelemetry struct {
	SessionID string    `json:"session_id"`
	Timestamp time.Time `json:"timestamp"`
	Platform  string    `json:"platform"`
	Success   bool      `json:"success"`

	PeakMemoryGB  float64 `json:"peak_memory_gb"`
	TotalTokens   int64   `json:"total_tokens"`
	DiskWrittenMB float64 `json:"disk_written_mb"`
	DiskDeletedMB float64 `json:"disk_deleted_mb"`
	DurationSec   int64   `json:"duration_sec"`

	EstimatedCostSaved float64 `json:"estimated_cost_saved"`
}

// Service appends session records to a local JSON file and aggregates
// them on demand. Storage is strictly local.
type Service struct {
	mu sync.Mutex

	path string
}

// NewService creates a service storing under the shared config directory.
func NewService() *Service {
	return NewServiceAt(filepath.Join(config.Dir(), "telemetry", "stats.json"))
}

// NewServiceAt creates a service with an explicit storage path.
func NewServiceAt(path string) *Service {
	return &Service{path: path}
}

// Path returns the storage file path.
func (s *Service) Path() string {
	return s.path
}

// Record appends a session record, trimming the file to the most recent
// thousand sessions.
func (s *Service) Record(data SessionTelemetry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}

	records := s.load()
	if data.Timestamp.IsZero() {
		data.Timestamp = time.Now()
	}
	records = append(records, data)
	if len(records) > maxRecords {
		records = records[len(records)-maxRecords:]
	}

	out, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, out, 0o644)
}

func (s *Service) load() []SessionTelemetry {
	records := make([]SessionTelemetry, 0)
	if data, err := os.ReadFile(s.path); err == nil {
		_ = json.Unmarshal(data, &records)
	}
	return records
}

// GlobalStats aggregates every stored session record.
type GlobalStats struct {
	TotalSessions      int     `json:"total_sessions"`
	SuccessRate        float64 `json:"success_rate"`
	TotalTokens        int64   `json:"total_tokens"`
	TotalEstimatedCost float64 `json:"total_estimated_cost_saved"`
	AverageMemoryGB    float64 `json:"average_memory_gb"`
	TotalDiskWrittenMB float64 `json:"total_disk_written_mb"`
	TotalDurationHours float64 `json:"total_duration_hours"`
}

// Summary aggregates all stored sessions. A missing file yields zeroes.
func (s *Service) Summary() (GlobalStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return GlobalStats{}, nil
		}
		return GlobalStats{}, err
	}

	var records []SessionTelemetry
	if err := json.Unmarshal(data, &records); err != nil {
		return GlobalStats{}, err
	}
	if len(records) == 0 {
		return GlobalStats{}, nil
	}

	summary := GlobalStats{TotalSessions: len(records)}
	var memSum float64
	var successCount int
	var durationSec int64
	for _, rec := range records {
		summary.TotalTokens += rec.TotalTokens
		summary.TotalEstimatedCost += rec.EstimatedCostSaved
		summary.TotalDiskWrittenMB += rec.DiskWrittenMB
		memSum += rec.PeakMemoryGB
		durationSec += rec.DurationSec
		if rec.Success {
			successCount++
		}
	}
	summary.SuccessRate = float64(successCount) / float64(len(records))
	summary.AverageMemoryGB = memSum / float64(len(records))
	summary.TotalDurationHours = float64(durationSec) / 3600.0
	return summary, nil
}

// Reset removes all stored telemetry.
func (s *Service) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		return nil
	}
	return os.Remove(s.path)
}
