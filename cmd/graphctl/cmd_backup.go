package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kgraph-ai/kgraph/internal/config"
	"github.com/kgraph-ai/kgraph/internal/persistence"
)

var (
	backupConfigPath string
	backupJSONOutput bool
)

// backupCmd is the parent for local backup-tier inspection. Unlike stats
// and recall, this talks to the filesystem directly rather than through
// kgraphd: the tiered backup files are static once written, so an operator
// can inspect them without the daemon running.
var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Inspect a store's local tiered backup files",
}

var backupStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "List the recent/daily/weekly backup slots and their ages",
	Long: `Reads the config file's user_path and reports, for each backup
tier slot, whether the file exists and when it was last written. Does not
contact kgraphd and does not modify anything.`,
	RunE: runBackupStatus,
}

func init() {
	backupCmd.PersistentFlags().StringVar(&backupConfigPath, "config", "kgraphd.yaml", "path to kgraphd's config file")
	backupStatusCmd.Flags().BoolVar(&backupJSONOutput, "json", false, "output as JSON")
	backupCmd.AddCommand(backupStatusCmd)
}

func runBackupStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(backupConfigPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	status := persistence.BackupStatus(cfg.UserPath)

	if backupJSONOutput {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(status)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TIER\tSLOT\tPRESENT\tMODIFIED")
	for _, f := range status {
		modified := "-"
		if f.Present {
			modified = f.Modified.Format("2006-01-02 15:04:05")
		}
		fmt.Fprintf(w, "%s\t%d\t%t\t%s\n", f.Tier, f.Slot, f.Present, modified)
	}
	return w.Flush()
}
