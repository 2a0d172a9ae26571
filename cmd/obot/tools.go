package main

import (
	"fmt"

	"github.com/kadirpekel/obot/pkg/tools"
	"github.com/kadirpekel/obot/pkg/ui"
)

// ToolsCmd prints the unified tool catalogue with the legacy aliases the
// CLI and IDE front-ends resolve against.
type ToolsCmd struct {
	Category string `help:"Only show tools in this category."`
	Tier     int    `help:"Only show tools of this tier (1 executor, 2 autonomous)."`
}

func (c *ToolsCmd) Run() error {
	reg := tools.NewRegistry()

	var defs []*tools.Def
	switch {
	case c.Category != "":
		defs = reg.ListByCategory(c.Category)
	case c.Tier != 0:
		defs = reg.ListByTier(c.Tier)
	default:
		defs = reg.List()
	}
	if len(defs) == 0 {
		fmt.Println("No matching tools.")
		return nil
	}

	for _, def := range defs {
		aliases := ""
		if def.CLIAlias != "" {
			aliases += " cli:" + def.CLIAlias
		}
		if def.IDEAlias != "" {
			aliases += " ide:" + def.IDEAlias
		}
		fmt.Printf("%-24s T%d %-10s %s%s\n",
			def.ID, def.Tier, def.Category, def.Description, ui.Muted(aliases))
	}
	return nil
}
