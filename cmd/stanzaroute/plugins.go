package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/meszmate/stanzaroute/internal/logging"
	"github.com/meszmate/stanzaroute/pkg/plugin"
)

var pluginsCmd = &cobra.Command{
	Use:   "plugins",
	Short: "List the feature plugins that would be loaded",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		host := plugin.NewHost(cfg.Plugins.PluginDir, cfg.Plugins.Enabled, logging.Discard())
		defer host.UnloadAll()
		if err := host.LoadAll(); err != nil {
			return err
		}

		loaded := host.List()
		if len(loaded) == 0 {
			fmt.Printf("no plugins in %s\n", cfg.Plugins.PluginDir)
			return nil
		}
		for _, m := range loaded {
			fmt.Printf("%s %s (%s)\n", m.Name, m.Version, m.Path)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(pluginsCmd)
}
