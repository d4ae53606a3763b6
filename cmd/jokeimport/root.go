package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for jokeimport.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jokeimport",
		Short: "Import jokes from a JSON API into a content store",
		Long: `jokeimport fetches random jokes from an HTTP JSON API and saves each one
as a content node in SQLite or MongoDB.

One import issues page_size GET requests against api_url concurrently,
waits for all of them to settle and saves every valid joke. Requests that
fail or time out are logged and the rest of the batch continues.

Run 'jokeimport install' once to write the default settings.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().Bool("json-log", false, "Write logs as JSON lines")
	cmd.PersistentFlags().StringP("settings", "s", "",
		"Settings file path (default: .jokeimport.yaml or ~/.config/jokeimport/settings.yaml)")

	cmd.AddCommand(NewInstallCmd())
	cmd.AddCommand(NewImportCmd())
	cmd.AddCommand(NewListCmd())
	cmd.AddCommand(NewSettingsCmd())
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewUninstallCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
