package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/meszmate/stanzaroute/internal/config"
	"github.com/meszmate/stanzaroute/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "stanzaroute",
	Short: "stanzaroute classifies inbound XMPP stanzas into events",
	Long: `stanzaroute signs in to an XMPP account, classifies every inbound stanza
into a named event and answers service discovery queries from its own
configuration and feature plugins.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to the config file (default: XDG config dir)")
}

// loadConfig honours --config, falling back to the XDG location
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		return config.Load()
	}

	paths, err := config.GetPaths()
	if err != nil {
		return nil, err
	}
	return config.LoadFrom(path, paths.DataDir)
}

// setupLogging initializes the default logger from cfg
func setupLogging(cfg *config.Config) (*logging.Logger, error) {
	logger, err := logging.New(logging.Config{
		Level:   cfg.Logging.Level,
		File:    cfg.Logging.File,
		Console: cfg.Logging.Console,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to set up logging: %w", err)
	}
	return logger, nil
}
