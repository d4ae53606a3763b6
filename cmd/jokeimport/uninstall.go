package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nao1215/jokeimport/internal/app"
)

// NewUninstallCmd creates the uninstall command.
func NewUninstallCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "uninstall",
		Short: "Delete imported jokes and the settings",
		Long: `Uninstall deletes every node of node_type from the store and then
removes the settings file. Nodes of other types are not touched.`,
		Args: cobra.NoArgs,
		RunE: runUninstallCmd,
	}

	addStoreFlags(cmd)

	return cmd
}

// runUninstallCmd executes the uninstall command.
func runUninstallCmd(cmd *cobra.Command, _ []string) error {
	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		nodeType := a.Settings().NodeType
		path := a.SettingsStore().Path()

		deleted, err := a.Uninstall(ctx)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Deleted %d %q nodes\n", deleted, nodeType)
		fmt.Fprintf(out, "Removed settings: %s\n", path)
		return nil
	})
}
