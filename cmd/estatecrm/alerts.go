package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/estateops/estatecrm/internal/notify"
)

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "Send reminders for appointments starting soon",
	Run: func(cmd *cobra.Command, args []string) {
		alerter := newAlerter()
		sent, err := alerter.RunAppointmentAlerts()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Alerts failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Sent %d appointment alert(s)\n", sent)
	},
}

var digestCmd = &cobra.Command{
	Use:   "digest",
	Short: "Send each agent a digest of to-do items due soon",
	Run: func(cmd *cobra.Command, args []string) {
		alerter := newAlerter()
		sent, err := alerter.RunTodoDigest()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Digest failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Sent %d digest(s)\n", sent)
	},
}

func newAlerter() *notify.Alerter {
	notifier := notify.New(cfg.Notify)
	lead := time.Duration(cfg.Notify.AlertLeadMinutes) * time.Minute
	return notify.NewAlerter(database, notifier, lead)
}
