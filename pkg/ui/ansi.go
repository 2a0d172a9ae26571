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

// Package ui holds the terminal rendering primitives shared by the CLI:
// the Tokyo Night color palette and the framed box layout used for
// consultations, suspensions and verdict summaries.
package ui

import (
	"os"

	"golang.org/x/term"
)

// colorEnabled gates the inline color helpers so piped output stays free
// of escape codes.
var colorEnabled = term.IsTerminal(int(os.Stdout.Fd()))

// Tokyo Night theme, true color (24-bit) ANSI codes.
const (
	Reset = "\033[0m"

	TextPrimary   = "\033[38;2;192;202;245m" // #c0caf5
	TextSecondary = "\033[38;2;154;165;206m" // #9aa5ce
	TextMuted     = "\033[38;2;86;95;137m"   // #565f89
	TextBorder    = "\033[38;2;59;66;97m"    // #3b4261

	Blue     = "\033[38;2;122;162;247m" // #7aa2f7
	BlueBold = "\033[1;38;2;122;162;247m"
	Green    = "\033[38;2;158;206;106m" // #9ece6a
	Yellow   = "\033[38;2;224;175;104m" // #e0af68
	Red      = "\033[38;2;247;118;142m" // #f7768e
	Magenta  = "\033[38;2;187;154;247m" // #bb9af7
)

// Primary wraps a value in the primary text color.
func Primary(value string) string {
	return paint(TextPrimary, value)
}

// Muted wraps a value in the muted text color.
func Muted(value string) string {
	return paint(TextMuted, value)
}

// Warn wraps a value in the warning color.
func Warn(value string) string {
	return paint(Yellow, value)
}

func paint(color, value string) string {
	if !colorEnabled {
		return value
	}
	return color + value + Reset
}
