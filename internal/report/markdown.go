package report

import (
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/jokeimport/internal/model"
)

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for documentation and sharing.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the import report in Markdown format.
func (w *MarkdownWriter) Write(report *model.ImportReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Joke Import Report")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Source", "`" + report.URL + "`"},
			{"Node Type", report.NodeType},
			{"Started", report.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Duration", report.Duration.Round(1e6).String()},
			{"Concurrency", strconv.Itoa(report.Concurrency)},
		},
	})
	md.PlainText("")

	w.writeAlert(md, report)
	w.writeSummary(md, report)
	w.writeFailures(md, report)

	md.HorizontalRule()
	md.PlainText("")
	md.PlainText(report.Message())

	return len(md.String()), md.Build()
}

// writeAlert picks an alert matching how much of the batch was saved.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, report *model.ImportReport) {
	switch {
	case report.Requested == 0:
		md.Note("Nothing was requested.")
	case report.Saved == 0:
		md.Cautionf("No jokes were saved out of %d requested.", report.Requested)
	case report.Saved < report.Requested:
		md.Warningf("%d of %d requested jokes were not saved.", report.Requested-report.Saved, report.Requested)
	default:
		md.Tip("Every requested joke was saved.")
	}
	md.PlainText("")
}

// writeSummary writes the outcome table and pie chart.
func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, report *model.ImportReport) {
	md.H2("Summary")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Outcome", "Count"},
		Rows: [][]string{
			{"Requested", strconv.Itoa(report.Requested)},
			{"Fetched", strconv.Itoa(report.Fetched)},
			{"Fetch failed", strconv.Itoa(report.FetchFailed)},
			{"Decode failed", strconv.Itoa(report.DecodeFailed)},
			{"Saved", strconv.Itoa(report.Saved)},
			{"Invalid", strconv.Itoa(report.Invalid)},
			{"Store failed", strconv.Itoa(report.StoreFailed)},
		},
	})
	md.PlainText("")

	if report.Requested == 0 {
		return
	}

	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Import Outcomes"),
		piechart.WithShowData(true),
	)
	outcomes := []struct {
		label string
		count int
	}{
		{"Saved", report.Saved},
		{"Fetch failed", report.FetchFailed},
		{"Decode failed", report.DecodeFailed},
		{"Invalid", report.Invalid},
		{"Store failed", report.StoreFailed},
	}
	for _, o := range outcomes {
		if o.count > 0 {
			chart.LabelAndIntValue(o.label, uint64(o.count))
		}
	}
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeFailures lists records the sink rejected.
func (w *MarkdownWriter) writeFailures(md *markdown.Markdown, report *model.ImportReport) {
	failed := failures(report)
	if len(failed) == 0 {
		return
	}

	md.H2("Failed Records")
	md.PlainText("")
	rows := make([][]string, 0, len(failed))
	for _, r := range failed {
		rows = append(rows, []string{r.ExternalID, string(r.Status), r.ErrorMessage()})
	}
	md.Table(markdown.TableSet{
		Header: []string{"ID", "Status", "Reason"},
		Rows:   rows,
	})
	md.PlainText("")
}

// WriteJokes outputs the listing as a Markdown table.
func (w *MarkdownWriter) WriteJokes(nodes []*model.Node) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Jokes")
	md.PlainText("")

	if len(nodes) == 0 {
		md.PlainText("No jokes imported yet.")
		return len(md.String()), md.Build()
	}

	rows := make([][]string, 0, len(nodes))
	for _, n := range nodes {
		s := n.Summary()
		rows = append(rows, []string{
			truncateString(s.Content, 80),
			"[" + s.ID + "](" + s.URL + ")",
			categoryLabel(n.Categories),
			s.Created,
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Joke", "ID", "Categories", "Created"},
		Rows:   rows,
	})

	return len(md.String()), md.Build()
}

// truncateString truncates a string to maxLen runes with ellipsis.
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
