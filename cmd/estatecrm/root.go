package main

import (
	"context"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/estateops/estatecrm/internal/config"
	"github.com/estateops/estatecrm/internal/db"
	"github.com/estateops/estatecrm/internal/gcal"
	syncengine "github.com/estateops/estatecrm/internal/sync"
)

var (
	cfg      *config.Config
	database *db.DB
)

var rootCmd = &cobra.Command{
	Use:   "estatecrm",
	Short: "Real-estate CRM with team calendar synchronization",
	Long: `EstateCRM manages agents, contacts, properties and appointments,
and keeps appointments synchronized with the shared team Google Calendar.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		log.SetFlags(log.LstdFlags | log.Lshortfile)

		var err error
		cfg, err = config.Load()
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}

		database, err = db.New(cfg.Database.Path)
		if err != nil {
			log.Fatalf("Failed to initialize database: %v", err)
		}
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if database != nil {
			if err := database.Close(); err != nil {
				log.Printf("Error closing database: %v", err)
			}
		}
	},
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(pushCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(authorizeCmd)
	rootCmd.AddCommand(alertsCmd)
	rootCmd.AddCommand(digestCmd)
}

// newEngine wires the sync engine against the live calendar API.
func newEngine(ctx context.Context) (*syncengine.Engine, error) {
	refresher := gcal.NewRefresher(database, cfg.Google)
	client, err := gcal.NewClient(ctx, refresher.TokenSource(ctx), cfg.Google.CalendarID)
	if err != nil {
		return nil, err
	}
	return syncengine.NewEngine(database, client, refresher), nil
}
