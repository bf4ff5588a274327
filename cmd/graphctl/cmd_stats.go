package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var statsJSONOutput bool

// statsCmd reports per-level node/edge/token counts and live session count
// by calling kgraphd's ping operation.
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show live graph size and session counts",
	Long: `Calls kgraphd's ping operation and prints, per graph level, the
active/archived/orphaned node counts, edge count, and estimated token cost,
along with the number of currently registered sessions.`,
	RunE: runStats,
}

func init() {
	statsCmd.Flags().BoolVar(&statsJSONOutput, "json", false, "output as JSON")
}

type pingLevelView struct {
	ActiveNodes   int `json:"active_nodes"`
	ArchivedNodes int `json:"archived_nodes"`
	OrphanedNodes int `json:"orphaned_nodes"`
	Edges         int `json:"edges"`
	TokenEstimate int `json:"token_estimate"`
}

type pingResultView struct {
	Sessions int                      `json:"sessions"`
	Levels   map[string]pingLevelView `json:"levels"`
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()

	client := newRPCClient(addr)

	var result pingResultView
	if err := client.Call(ctx, "ping", nil, &result); err != nil {
		return err
	}

	if statsJSONOutput {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(result)
	}

	fmt.Printf("sessions: %d\n\n", result.Sessions)

	levels := make([]string, 0, len(result.Levels))
	for key := range result.Levels {
		levels = append(levels, key)
	}
	sort.Strings(levels)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "LEVEL\tACTIVE\tARCHIVED\tORPHANED\tEDGES\tTOKENS")
	for _, key := range levels {
		lv := result.Levels[key]
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%d\n", key, lv.ActiveNodes, lv.ArchivedNodes, lv.OrphanedNodes, lv.Edges, lv.TokenEstimate)
	}
	return w.Flush()
}
