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

// Package tier grades the host machine into a memory tier that drives
// model selection. Tiers are decided purely by installed RAM.
package tier

import (
	"runtime"

	"github.com/shirou/gopsutil/v4/mem"
)

// Tier is a memory class of the host machine.
type Tier string

const (
	Minimal     Tier = "minimal"     // < 16 GB
	Compact     Tier = "compact"     // 16-23 GB
	Balanced    Tier = "balanced"    // 24-31 GB
	Performance Tier = "performance" // 32-63 GB
	Advanced    Tier = "advanced"    // >= 64 GB
)

// SystemInfo describes the detected host.
type SystemInfo struct {
	RAMGB        int
	OS           string
	Arch         string
	NumCPU       int
	DetectedTier Tier
}

// ForGB maps installed RAM in GB to a tier.
func ForGB(ramGB int) Tier {
	switch {
	case ramGB >= 64:
		return Advanced
	case ramGB >= 32:
		return Performance
	case ramGB >= 24:
		return Balanced
	case ramGB >= 16:
		return Compact
	default:
		return Minimal
	}
}

// Detect inspects the host and returns its system info. When total memory
// cannot be read, 16 GB is assumed as a safe middle ground.
func Detect() SystemInfo {
	ramGB := 16
	if vm, err := mem.VirtualMemory(); err == nil && vm.Total > 0 {
		ramGB = int(vm.Total / (1024 * 1024 * 1024))
	}

	return SystemInfo{
		RAMGB:        ramGB,
		OS:           runtime.GOOS,
		Arch:         runtime.GOARCH,
		NumCPU:       runtime.NumCPU(),
		DetectedTier: ForGB(ramGB),
	}
}
