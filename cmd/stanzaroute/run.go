package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/meszmate/stanzaroute/internal/app"
	"github.com/meszmate/stanzaroute/internal/config"
	"github.com/meszmate/stanzaroute/internal/ui"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Connect and route inbound stanzas",
	Long:  `Connects the configured account and routes inbound stanzas until interrupted. With --monitor a live event view is shown.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("monitor") {
			cfg.UI.Monitor, _ = cmd.Flags().GetBool("monitor")
		}
		return run(cfg)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().BoolP("monitor", "m", false, "Show the live event monitor")
}

func run(cfg *config.Config) error {
	logger, err := setupLogging(cfg)
	if err != nil {
		return err
	}
	defer logger.Close()

	application, err := app.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize app: %w", err)
	}
	defer application.Close()

	if !cfg.UI.Monitor {
		if err := application.Start(); err != nil {
			return err
		}
		logger.Info("routing stanzas for %s", application.Gateway().JID())

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
		sig := <-shutdown
		logger.Info("shutting down on %v", sig)
		return nil
	}

	p := tea.NewProgram(
		ui.NewModel(ui.Options{
			MaxRows:    cfg.UI.MaxRows,
			TimeFormat: cfg.UI.TimeFormat,
			Theme:      cfg.UI.Theme,
			ThemeDirs:  themeDirs(),
		}),
		tea.WithAltScreen(),
	)
	application.SetProgram(p)

	go func() {
		if err := application.Start(); err != nil {
			logger.Error("failed to start: %v", err)
		}
	}()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running monitor: %w", err)
	}
	return nil
}

func themeDirs() []string {
	paths, err := config.GetPaths()
	if err != nil {
		return nil
	}
	return []string{filepath.Join(paths.ConfigDir, "themes")}
}
