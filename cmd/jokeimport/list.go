package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nao1215/jokeimport/internal/app"
	"github.com/nao1215/jokeimport/internal/model"
)

// NewListCmd creates the list command.
func NewListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List imported jokes, newest first",
		Long: `List prints one page of imported jokes of node_type, newest first.
A page holds page_size jokes unless --limit says otherwise.

Examples:
  # Latest jokes
  jokeimport list

  # Second page as JSON
  jokeimport list --page 1 --json`,
		Args: cobra.NoArgs,
		RunE: runListCmd,
	}

	cmd.Flags().IntP("page", "p", 0, "Zero-based page number")
	cmd.Flags().IntP("limit", "n", 0, "Jokes per page (default: page_size setting)")
	addStoreFlags(cmd)
	addReportFlags(cmd)

	return cmd
}

// runListCmd executes the list command.
func runListCmd(cmd *cobra.Command, _ []string) error {
	page, err := cmd.Flags().GetInt("page")
	if err != nil {
		return err
	}
	if page < 0 {
		return fmt.Errorf("%w: %d", model.ErrInvalidPage, page)
	}
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	if err := checkReportFlags(cmd); err != nil {
		return err
	}

	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		size := limit
		if size <= 0 {
			size = a.Settings().PageSize
		}

		offset, err := model.PageOffset(page, size)
		if err != nil {
			return err
		}

		nodes := []*model.Node{}
		if size > 0 {
			nodes, err = a.ListNodes(ctx, size, offset)
			if err != nil {
				return err
			}
		}

		writer, _, closeOutput, err := openReportWriter(cmd)
		if err != nil {
			return err
		}
		defer closeOutput() //nolint:errcheck

		if _, err := writer.WriteJokes(nodes); err != nil {
			return fmt.Errorf("failed to write listing: %w", err)
		}
		return nil
	})
}
