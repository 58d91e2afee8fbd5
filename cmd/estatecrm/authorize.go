package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/estateops/estatecrm/internal/gcal"
)

var authorizeCmd = &cobra.Command{
	Use:   "authorize",
	Short: "Connect the shared team Google account",
	Long: `Prints the Google consent URL for the team account. After approving
access, paste the authorization code back to complete the setup.`,
	Run: func(cmd *cobra.Command, args []string) {
		flow := gcal.NewOAuthFlow(database, cfg.Google)

		fmt.Println("Open the following URL in a browser and approve access:")
		fmt.Println()
		fmt.Println("  " + flow.AuthCodeURL("cli"))
		fmt.Println()
		fmt.Print("Authorization code: ")

		reader := bufio.NewReader(os.Stdin)
		code, err := reader.ReadString('\n')
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to read code: %v\n", err)
			os.Exit(1)
		}
		code = strings.TrimSpace(code)
		if code == "" {
			fmt.Fprintln(os.Stderr, "No authorization code provided")
			os.Exit(1)
		}

		account, err := flow.Exchange(context.Background(), code)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Authorization failed: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("Team account %s connected.\n", account.Email)
	},
}
