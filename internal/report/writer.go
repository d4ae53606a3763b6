package report

import (
	"io"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nao1215/jokeimport/internal/model"
)

// Writer defines the interface for report output.
type Writer interface {
	// Write outputs the result of one import run.
	// Returns the number of bytes written and any error encountered.
	Write(report *model.ImportReport) (int, error)

	// WriteJokes outputs a joke listing.
	WriteJokes(nodes []*model.Node) (int, error)
}

// MultiWriter writes to multiple Writers simultaneously.
// This is useful for outputting to both terminal and file.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the report to all configured Writers.
// Stops on first error encountered.
func (m *MultiWriter) Write(report *model.ImportReport) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(report)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// WriteJokes outputs the listing to all configured Writers.
func (m *MultiWriter) WriteJokes(nodes []*model.Node) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.WriteJokes(nodes)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// categoryLabel title-cases upstream categories for display.
func categoryLabel(categories []string) string {
	if len(categories) == 0 {
		return "Uncategorized"
	}
	caser := cases.Title(language.English)
	labels := make([]string, 0, len(categories))
	for _, c := range categories {
		labels = append(labels, caser.String(c))
	}
	return strings.Join(labels, ", ")
}

// failures returns the records that were not saved.
func failures(report *model.ImportReport) []model.SaveResult {
	var out []model.SaveResult
	for _, r := range report.Records {
		if !r.OK() {
			out = append(out, r)
		}
	}
	return out
}
