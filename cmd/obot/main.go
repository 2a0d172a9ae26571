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

// Command obot is the local-first orchestration CLI.
//
// Usage:
//
//	obot run "refactor the session store"
//	obot session list
//	obot stats
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"github.com/kadirpekel/obot/pkg/config"
	"github.com/kadirpekel/obot/pkg/errs"
)

// CLI defines the command-line interface.
type CLI struct {
	Run        RunCmd        `cmd:"" help:"Run a task through the orchestration loop."`
	Session    SessionCmd    `cmd:"" help:"Inspect stored sessions."`
	Checkpoint CheckpointCmd `cmd:"" help:"Manage session checkpoints."`
	Config     ConfigCmd     `cmd:"" help:"Manage configuration."`
	Stats      StatsCmd      `cmd:"" help:"Show local usage statistics."`
	Tools      ToolsCmd      `cmd:"" help:"List the unified tool catalogue."`
	Version    VersionCmd    `cmd:"" help:"Show version information."`

	ConfigFile string `short:"c" name:"config" help:"Path to config file." type:"path"`
	LogLevel   string `help:"Log level (debug, info, warn, error)." default:"info"`
	LogFile    string `help:"Log file path (empty = stderr)."`
	LogFormat  string `help:"Log format (simple, verbose, or custom)." default:"simple"`
}

// configError marks a failure to load or migrate configuration so main
// can map it to its own exit code.
type configError struct{ err error }

func (e *configError) Error() string { return e.err.Error() }
func (e *configError) Unwrap() error { return e.err }

// loadConfig layers the config file over defaults. A missing file is not
// an error; a malformed one is.
func loadConfig(cli *CLI) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if cli.ConfigFile != "" {
		cfg, err = config.LoadFile(cli.ConfigFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, &configError{err: err}
	}
	return cfg, nil
}

// Exit codes: 0 success, 1 user error, 2 orchestration suspended,
// 3 configuration or environment error.
func exitCodeFor(err error) int {
	if err == nil {
		return 0
	}
	var cfgErr *configError
	if errors.As(err, &cfgErr) {
		return 3
	}
	code, ok := errs.CodeOf(err)
	if !ok {
		return 1
	}
	switch code {
	case errs.ErrOllamaUnavailable, errs.ErrModelNotFound, errs.ErrIncompatibleVersion:
		return 3
	}
	if code >= "E001" && code <= "E009" {
		return 2
	}
	return 1
}

func main() {
	_ = config.LoadDotEnv()

	cli := CLI{}
	ctx := kong.Parse(&cli,
		kong.Name("obot"),
		kong.Description("obot - local-first agentic coding orchestrator"),
		kong.UsageOnError(),
	)

	cleanup, err := initLoggerFromCLI(cli.LogLevel, cli.LogFile, cli.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(3)
	}
	if cleanup != nil {
		defer cleanup()
	}

	if err := ctx.Run(&cli); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		if hint := hintFor(err); hint != "" {
			fmt.Fprintln(os.Stderr, hint)
		}
		os.Exit(exitCodeFor(err))
	}
}

// hintFor surfaces the hardcoded recovery instructions for environment
// errors instead of leaving the user with a bare code.
func hintFor(err error) string {
	code, ok := errs.CodeOf(err)
	if !ok || !errs.IsHardcoded(code) {
		return ""
	}
	var orchErr *errs.OrchestrationError
	if errors.As(err, &orchErr) && len(orchErr.Solutions) > 0 {
		return orchErr.Solutions[0]
	}
	return ""
}
