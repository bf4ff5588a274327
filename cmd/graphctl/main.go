// Command graphctl is the operator CLI for a running kgraphd. It talks to
// the daemon exclusively over its HTTP JSON-RPC endpoint (POST /v1/rpc); it
// never opens a graph file directly, so it is always a true client of
// whatever process currently holds the store's lock.
//
// Usage:
//
//	graphctl stats
//	graphctl recall --level project --project myapp --id n42
//	graphctl backup status --config kgraphd.yaml
//	graphctl inspect
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var addr string

var rootCmd = &cobra.Command{
	Use:   "graphctl",
	Short: "Inspect and operate a running kgraphd instance",
	Long: `graphctl is a small CLI client for kgraphd, the knowledge-graph
memory store daemon. It reads live graph state and session counts over
kgraphd's HTTP JSON-RPC endpoint, and can browse the local backup tiers of
a store it has filesystem access to.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&addr, "addr", "http://localhost:8088", "kgraphd HTTP address")
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(recallCmd)
	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(inspectCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
