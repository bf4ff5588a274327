package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var (
	recallLevel      string
	recallProjectKey string
	recallID         string
)

// recallCmd restores a single archived node back to active, via kgraphd's
// recall operation.
var recallCmd = &cobra.Command{
	Use:   "recall",
	Short: "Recall an archived node back to active",
	Long: `Calls kgraphd's recall operation for a single node. The node must
be archived; recalling an active node returns an error.`,
	RunE: runRecall,
}

func init() {
	recallCmd.Flags().StringVar(&recallLevel, "level", "user", `graph level: "user" or "project"`)
	recallCmd.Flags().StringVar(&recallProjectKey, "project", "", "project key (required when --level=project)")
	recallCmd.Flags().StringVar(&recallID, "id", "", "node ID to recall")
	recallCmd.MarkFlagRequired("id")
}

func runRecall(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()

	client := newRPCClient(addr)
	params := map[string]any{
		"level":       recallLevel,
		"project_key": recallProjectKey,
		"id":          recallID,
	}
	if err := client.Call(ctx, "recall", params, nil); err != nil {
		return err
	}

	fmt.Printf("recalled %s/%s\n", recallLevel, recallID)
	return nil
}
