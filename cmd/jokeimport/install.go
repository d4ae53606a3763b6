package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nao1215/jokeimport/internal/config"
)

// NewInstallCmd creates the install command.
func NewInstallCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "install",
		Short: "Write the default settings",
		Long: `Install writes the default settings file:

  api_url:   ` + config.DefaultAPIURL + `
  node_type: ` + config.DefaultNodeType + `
  page_size: 5

Existing settings are left alone unless --force is given.`,
		Args: cobra.NoArgs,
		RunE: runInstallCmd,
	}

	cmd.Flags().BoolP("force", "f", false, "Overwrite existing settings")

	return cmd
}

// runInstallCmd executes the install command.
func runInstallCmd(cmd *cobra.Command, _ []string) error {
	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	store := config.NewSettingsStore(config.ResolveSettingsPath(getStringFlag(cmd, "settings")))
	if err := store.Install(force); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Installed settings: %s\n", store.Path())
	printSettings(cmd, store.Settings())
	return nil
}
