package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/jokeimport/internal/model"
)

// JSONWriter outputs reports in JSON format.
type JSONWriter struct {
	baseWriter

	// version is recorded in every report.
	version string

	// indent enables pretty-printed JSON output.
	indent bool
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithPrettyPrint enables pretty-printed JSON with two-space indentation.
func WithPrettyPrint() JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
	}
}

// WithVersion sets the version recorded in import reports.
func WithVersion(version string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.version = version
	}
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// JSONRecord is one sink result with its error flattened to text.
type JSONRecord struct {
	ID     string           `json:"id"`
	NID    string           `json:"nid,omitempty"`
	Status model.SaveStatus `json:"status"`
	Error  string           `json:"error,omitempty"`
}

// JSONReport wraps an import report with output metadata.
type JSONReport struct {
	Version    string              `json:"version,omitempty"`
	Message    string              `json:"message"`
	DurationMS int64               `json:"duration_ms"`
	Report     *model.ImportReport `json:"report"`
	Records    []JSONRecord        `json:"records"`
}

// NewJSONReport builds the JSON form of a report.
func NewJSONReport(report *model.ImportReport, version string) *JSONReport {
	records := make([]JSONRecord, 0, len(report.Records))
	for _, r := range report.Records {
		records = append(records, JSONRecord{
			ID:     r.ExternalID,
			NID:    r.NID,
			Status: r.Status,
			Error:  r.ErrorMessage(),
		})
	}
	return &JSONReport{
		Version:    version,
		Message:    report.Message(),
		DurationMS: report.Duration.Milliseconds(),
		Report:     report,
		Records:    records,
	}
}

// Write outputs the import report in JSON format.
func (w *JSONWriter) Write(report *model.ImportReport) (int, error) {
	return w.writeJSON(NewJSONReport(report, w.version))
}

// WriteJokes outputs the listing rows as a JSON array.
func (w *JSONWriter) WriteJokes(nodes []*model.Node) (int, error) {
	rows := make([]model.JokeSummary, 0, len(nodes))
	for _, n := range nodes {
		rows = append(rows, n.Summary())
	}
	return w.writeJSON(rows)
}

// writeJSON marshals the given value to JSON and writes it to the output.
func (w *JSONWriter) writeJSON(v any) (int, error) {
	var data []byte
	var err error

	if w.indent {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return 0, err
	}

	// Add trailing newline for better terminal output
	data = append(data, '\n')

	return w.output.Write(data)
}
