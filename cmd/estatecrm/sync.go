package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/estateops/estatecrm/internal/db"
)

var (
	pushLimit   int
	importAgent string
	daysBack    int
	daysForward int
)

var pushCmd = &cobra.Command{
	Use:   "push",
	Short: "Push locally edited appointments to the team calendar",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		engine, err := newEngine(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to initialize sync engine: %v\n", err)
			os.Exit(1)
		}

		result, err := engine.PushPending(ctx, pushLimit)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Push failed: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("Checked: %d\nPushed:  %d\nErrors:  %d\n", result.Checked, result.Pushed, result.Errors)
		if result.Errors > 0 {
			os.Exit(1)
		}
	},
}

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import appointments from the team calendar",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		engine, err := newEngine(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to initialize sync engine: %v\n", err)
			os.Exit(1)
		}

		var agent *db.Agent
		if importAgent != "" {
			agent, err = database.GetAgentByEmail(importAgent)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Unknown agent %q: %v\n", importAgent, err)
				os.Exit(1)
			}
		}

		result, err := engine.ImportForAgent(ctx, agent, daysBack, daysForward)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Import failed: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("Created: %d\nUpdated: %d\nSkipped: %d\n", result.Created, result.Updated, result.Skipped)
	},
}

func init() {
	pushCmd.Flags().IntVar(&pushLimit, "limit", 50, "maximum appointments to push in one run")
	importCmd.Flags().StringVar(&importAgent, "agent", "", "agent email to record the run under")
	importCmd.Flags().IntVar(&daysBack, "days-back", 10, "how many days back to scan")
	importCmd.Flags().IntVar(&daysForward, "days-forward", 60, "how many days forward to scan")
}
