package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/meszmate/stanzaroute/internal/storage/sqlite"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Inspect the event journal",
}

var journalRecentCmd = &cobra.Command{
	Use:   "recent",
	Short: "List the most recent journaled events",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		name, _ := cmd.Flags().GetString("event")

		db, err := openJournal(cmd)
		if err != nil {
			return err
		}
		defer db.Close()

		var entries []sqlite.Entry
		if name != "" {
			entries, err = db.ByName(name, limit)
		} else {
			entries, err = db.Recent(limit)
		}
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "TIME\tEVENT\tFROM\tTO\tID")
		for _, e := range entries {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				e.Timestamp.Format("2006-01-02 15:04:05"), e.Name, e.Sender, e.Recipient, e.StanzaID)
		}
		return w.Flush()
	},
}

var journalPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete journaled events older than the retention window",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		days := cfg.Journal.RetentionDays
		if cmd.Flags().Changed("days") {
			days, _ = cmd.Flags().GetInt("days")
		}

		db, err := sqlite.New(cfg.General.DataDir)
		if err != nil {
			return err
		}
		defer db.Close()

		removed, err := db.Prune(days)
		if err != nil {
			return err
		}
		if vacuum, _ := cmd.Flags().GetBool("vacuum"); vacuum {
			if err := db.Vacuum(); err != nil {
				return err
			}
		}
		fmt.Printf("removed %d events\n", removed)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalRecentCmd, journalPruneCmd)

	journalRecentCmd.Flags().IntP("limit", "n", 50, "Number of events to show")
	journalRecentCmd.Flags().StringP("event", "e", "", "Only show events with this name")

	journalPruneCmd.Flags().Int("days", 0, "Retention in days (default: journal.retention_days)")
	journalPruneCmd.Flags().Bool("vacuum", false, "Reclaim disk space after pruning")
}

func openJournal(cmd *cobra.Command) (*sqlite.DB, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return sqlite.New(cfg.General.DataDir)
}
