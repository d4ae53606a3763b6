package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/jokeimport/internal/model"
)

// SimpleWriter outputs human-readable text reports.
type SimpleWriter struct {
	baseWriter

	// verbose lists every record, not only failures.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the import report in human-readable format.
func (w *SimpleWriter) Write(report *model.ImportReport) (int, error) {
	var sb strings.Builder

	writeRule(&sb, "=")
	sb.WriteString("JOKE IMPORT REPORT\n")
	writeRule(&sb, "=")
	sb.WriteString("\n")

	fmt.Fprintf(&sb, "Source:      %s\n", report.URL)
	fmt.Fprintf(&sb, "Node type:   %s\n", report.NodeType)
	fmt.Fprintf(&sb, "Started:     %s\n", report.StartedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&sb, "Duration:    %s\n", report.Duration.Round(1e6))
	fmt.Fprintf(&sb, "Concurrency: %d\n\n", report.Concurrency)

	writeRule(&sb, "-")
	sb.WriteString("SUMMARY\n")
	writeRule(&sb, "-")
	fmt.Fprintf(&sb, "  Requested:     %d\n", report.Requested)
	fmt.Fprintf(&sb, "  Fetched:       %d\n", report.Fetched)
	fmt.Fprintf(&sb, "  Fetch failed:  %d\n", report.FetchFailed)
	fmt.Fprintf(&sb, "  Decode failed: %d\n", report.DecodeFailed)
	fmt.Fprintf(&sb, "  Saved:         %d\n", report.Saved)
	fmt.Fprintf(&sb, "  Invalid:       %d\n", report.Invalid)
	fmt.Fprintf(&sb, "  Store failed:  %d\n\n", report.StoreFailed)

	records := failures(report)
	if w.verbose {
		records = report.Records
	}
	if len(records) > 0 {
		writeRule(&sb, "-")
		sb.WriteString("RECORDS\n")
		writeRule(&sb, "-")
		for _, r := range records {
			fmt.Fprintf(&sb, "  [%s] %s", r.Status, r.ExternalID)
			if r.NID != "" {
				fmt.Fprintf(&sb, " (nid %s)", r.NID)
			}
			if msg := r.ErrorMessage(); msg != "" {
				fmt.Fprintf(&sb, ": %s", msg)
			}
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	sb.WriteString(report.Message())
	sb.WriteString("\n")

	return io.WriteString(w.output, sb.String())
}

// WriteJokes outputs a joke listing, one block per joke.
func (w *SimpleWriter) WriteJokes(nodes []*model.Node) (int, error) {
	var sb strings.Builder

	if len(nodes) == 0 {
		sb.WriteString("No jokes imported yet.\n")
		return io.WriteString(w.output, sb.String())
	}

	for i, n := range nodes {
		s := n.Summary()
		fmt.Fprintf(&sb, "%d. %s\n", i+1, s.Content)
		fmt.Fprintf(&sb, "   id: %s  created: %s  categories: %s\n", s.ID, s.Created, categoryLabel(n.Categories))
		fmt.Fprintf(&sb, "   %s\n", s.URL)
	}
	return io.WriteString(w.output, sb.String())
}

func writeRule(sb *strings.Builder, char string) {
	sb.WriteString(strings.Repeat(char, 60))
	sb.WriteString("\n")
}
