package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

var (
	putLevel       string
	putProjectKey  string
	putID          string
	putGist        string
	putInteractive bool
)

// putCmd writes or updates a single node. With --interactive (or when
// --gist is omitted and stdin is a terminal), it collects the gist through a
// terminal form instead of requiring a --gist flag, for operators typing a
// memory by hand.
var putCmd = &cobra.Command{
	Use:   "put-node",
	Short: "Create or update a node",
	Long: `Calls kgraphd's put_node operation. Pass --gist directly for
scripting, or --interactive to be prompted for it in a terminal form.`,
	RunE: runPut,
}

func init() {
	putCmd.Flags().StringVar(&putLevel, "level", "user", `graph level: "user" or "project"`)
	putCmd.Flags().StringVar(&putProjectKey, "project", "", "project key (required when --level=project)")
	putCmd.Flags().StringVar(&putID, "id", "", "node ID")
	putCmd.Flags().StringVar(&putGist, "gist", "", "one-line summary of the node")
	putCmd.Flags().BoolVar(&putInteractive, "interactive", false, "prompt for the gist instead of reading --gist")
	putCmd.MarkFlagRequired("id")
	rootCmd.AddCommand(putCmd)
}

func runPut(cmd *cobra.Command, args []string) error {
	gist := putGist
	wantsPrompt := putInteractive || (gist == "" && isatty.IsTerminal(os.Stdin.Fd()))
	if wantsPrompt {
		var err error
		gist, err = promptForGist(putID, gist)
		if err != nil {
			return fmt.Errorf("reading gist: %w", err)
		}
	}
	if strings.TrimSpace(gist) == "" {
		return fmt.Errorf("gist must not be empty")
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()

	client := newRPCClient(addr)
	params := map[string]any{
		"level":       putLevel,
		"project_key": putProjectKey,
		"id":          putID,
		"gist":        gist,
	}

	var result struct {
		Action string `json:"action"`
	}
	if err := client.Call(ctx, "put_node", params, &result); err != nil {
		return err
	}

	fmt.Printf("%s %s/%s\n", result.Action, putLevel, putID)
	return nil
}

// promptForGist opens a single-field huh form for the node's gist,
// pre-filled with whatever was already passed on the command line.
func promptForGist(id, initial string) (string, error) {
	gist := initial
	field := huh.NewText().
		Title(fmt.Sprintf("gist for %s", id)).
		CharLimit(500).
		Value(&gist)

	form := huh.NewForm(huh.NewGroup(field))
	if err := form.Run(); err != nil {
		return "", err
	}
	return gist, nil
}
