package main

import (
	"fmt"

	obot "github.com/kadirpekel/obot"
	"github.com/kadirpekel/obot/pkg/config"
	"github.com/kadirpekel/obot/pkg/telemetry"
	"github.com/kadirpekel/obot/pkg/ui"
)

// StatsCmd shows the aggregated local usage statistics.
type StatsCmd struct {
	Reset bool `help:"Clear all recorded statistics."`
}

func (c *StatsCmd) Run() error {
	svc := telemetry.NewService()

	if c.Reset {
		if err := svc.Reset(); err != nil {
			return err
		}
		fmt.Println("Statistics cleared.")
		return nil
	}

	stats, err := svc.Summary()
	if err != nil {
		return err
	}

	box := ui.NewBox().
		Title("obot • Local Stats").
		Blank().
		Label("SESSIONS", fmt.Sprintf("%d", stats.TotalSessions)).
		Label("SUCCESS RATE", fmt.Sprintf("%.1f%%", stats.SuccessRate*100)).
		Label("TOTAL TOKENS", fmt.Sprintf("%d", stats.TotalTokens)).
		Label("COST SAVED", telemetry.FormatSavings(stats.TotalEstimatedCost)).
		Label("AVG MEMORY", fmt.Sprintf("%.2f GB", stats.AverageMemoryGB)).
		Label("DISK WRITTEN", fmt.Sprintf("%.1f MB", stats.TotalDiskWrittenMB)).
		Label("TOTAL HOURS", fmt.Sprintf("%.2f", stats.TotalDurationHours)).
		Blank().
		Line("All statistics are collected locally. Nothing leaves this machine.")
	fmt.Println(box.Render())
	return nil
}

// ConfigCmd groups configuration subcommands.
type ConfigCmd struct {
	Migrate ConfigMigrateCmd `cmd:"" help:"Migrate a legacy config file to the unified format."`
}

// ConfigMigrateCmd converts the legacy configuration in place.
type ConfigMigrateCmd struct{}

func (c *ConfigMigrateCmd) Run() error {
	cfg, err := config.MigrateLegacy()
	if err != nil {
		return &configError{err: err}
	}
	if err := config.Save(cfg); err != nil {
		return &configError{err: err}
	}
	fmt.Printf("Configuration migrated to %s\n", config.Path())
	return nil
}

// VersionCmd shows version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Println(obot.GetVersion().String())
	return nil
}
