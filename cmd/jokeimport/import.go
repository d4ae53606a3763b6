package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/nao1215/jokeimport/internal/app"
	"github.com/nao1215/jokeimport/internal/model"
)

// NewImportCmd creates the import command.
func NewImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Fetch a batch of jokes and save them as nodes",
		Long: `Import issues page_size GET requests against api_url, waits for all of
them to settle, and saves every valid joke as a node of node_type.

Failed or timed-out requests are logged and skipped; the batch always
completes. The summary line reports how many jokes were saved.

Examples:
  # Import with the installed settings
  jokeimport import

  # Import 20 jokes with at most 4 requests in flight
  jokeimport import --count 20 --concurrency 4

  # Fetch without saving and print the raw records
  jokeimport import --dry-run --json

  # Write a Markdown report
  jokeimport import --markdown -o report.md`,
		Args: cobra.NoArgs,
		RunE: runImportCmd,
	}

	cmd.Flags().String("url", "", "Upstream URL (default: api_url setting)")
	cmd.Flags().Int("count", 0, "Number of jokes to request (default: page_size setting)")
	cmd.Flags().Bool("dry-run", false, "Fetch and decode without saving")
	addFetchFlags(cmd)
	addStoreFlags(cmd)
	addReportFlags(cmd)

	return cmd
}

// runImportCmd executes the import command.
func runImportCmd(cmd *cobra.Command, _ []string) error {
	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		req, err := buildImportRequest(cmd, a)
		if err != nil {
			return err
		}

		dryRun, err := cmd.Flags().GetBool("dry-run")
		if err != nil {
			return err
		}

		if err := checkReportFlags(cmd); err != nil {
			return err
		}

		writer, out, closeOutput, err := openReportWriter(cmd)
		if err != nil {
			return err
		}
		defer closeOutput() //nolint:errcheck

		if dryRun {
			records, err := a.RunImport(ctx, req.SourceURL, req.Count)
			if err != nil {
				return err
			}
			return writeRecords(out, records)
		}

		importReport, err := a.Import(ctx, req)
		if err != nil {
			return err
		}

		if _, err := writer.Write(importReport); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
		return nil
	})
}

// buildImportRequest fills the request from the installed settings and
// overrides them with --url and --count when given.
func buildImportRequest(cmd *cobra.Command, a *app.App) (model.ImportRequest, error) {
	settings := a.Settings()
	req := model.ImportRequest{SourceURL: settings.APIURL, Count: settings.PageSize}

	if cmd.Flags().Changed("url") {
		u, err := cmd.Flags().GetString("url")
		if err != nil {
			return req, err
		}
		req.SourceURL = u
	}
	if cmd.Flags().Changed("count") {
		n, err := cmd.Flags().GetInt("count")
		if err != nil {
			return req, err
		}
		req.Count = n
	}
	return req, nil
}

// writeRecords prints decoded records as an indented JSON array.
func writeRecords(out io.Writer, records []model.JokeRecord) error {
	if records == nil {
		records = []model.JokeRecord{}
	}
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(records)
}
