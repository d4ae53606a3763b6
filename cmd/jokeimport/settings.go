package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nao1215/jokeimport/internal/config"
)

// settingKeys lists the settings in display order.
var settingKeys = []string{config.KeyAPIURL, config.KeyNodeType, config.KeyPageSize}

// NewSettingsCmd creates the settings command and its get/set subcommands.
func NewSettingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change the import settings",
		Long: `Settings reads and writes the ` + config.SettingsID + ` object.

Keys:
  api_url    upstream endpoint, one joke per GET
  node_type  content type imported jokes are stored under
  page_size  jokes requested per import`,
	}

	cmd.AddCommand(newSettingsGetCmd())
	cmd.AddCommand(newSettingsSetCmd())

	return cmd
}

func newSettingsGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get [key]",
		Short: "Print one setting, or all of them",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			if len(args) == 0 {
				printSettings(cmd, store.Settings())
				return nil
			}
			v, err := store.Get(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), v)
			return nil
		},
	}
}

func newSettingsSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change one setting and save it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			if err := store.Set(args[0], args[1]); err != nil {
				return err
			}
			if err := store.Save(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", args[0], args[1])
			return nil
		},
	}
}

// loadSettings opens the settings file selected by --settings.
func loadSettings(cmd *cobra.Command) (*config.SettingsStore, error) {
	return config.OpenSettingsStore(config.ResolveSettingsPath(getStringFlag(cmd, "settings")))
}

// printSettings writes every setting as "key: value".
func printSettings(cmd *cobra.Command, s config.Settings) {
	values := map[string]any{
		config.KeyAPIURL:   s.APIURL,
		config.KeyNodeType: s.NodeType,
		config.KeyPageSize: s.PageSize,
	}
	for _, k := range settingKeys {
		fmt.Fprintf(cmd.OutOrStdout(), "  %-10s %v\n", k+":", values[k])
	}
}
