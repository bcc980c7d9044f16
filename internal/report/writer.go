package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nao1215/filterpipe/internal/model"
)

// Format names accepted by New.
const (
	FormatText     = "text"
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
)

// Writer defines the interface for report output.
type Writer interface {
	// Write outputs one report.
	// Returns the number of bytes written and any error encountered.
	Write(report *model.RunReport) (int, error)

	// WriteSummary outputs an overview of several reports, such as the
	// results of a batch.
	WriteSummary(reports []*model.RunReport) (int, error)
}

// New returns the writer for format. Unknown formats return an error.
func New(format string, output io.Writer) (Writer, error) {
	switch strings.ToLower(format) {
	case FormatText, "":
		return NewSimpleWriter(output), nil
	case FormatJSON:
		return NewJSONWriter(output, WithPrettyPrint()), nil
	case FormatMarkdown, "md":
		return NewMarkdownWriter(output), nil
	default:
		return nil, fmt.Errorf("unknown report format %q", format)
	}
}

// MultiWriter writes to multiple Writers in order.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the report to all configured Writers.
// Returns the total bytes written across all writers.
// Stops on first error encountered.
func (m *MultiWriter) Write(report *model.RunReport) (int, error) {
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

// WriteSummary outputs the summary to all configured Writers.
func (m *MultiWriter) WriteSummary(reports []*model.RunReport) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.WriteSummary(reports)
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

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

var titleCaser = cases.Title(language.English)

// modeTitle returns "Run" or "Preflight".
func modeTitle(mode model.RunMode) string {
	if mode == "" {
		mode = model.RunModeRun
	}
	return titleCaser.String(string(mode))
}

// timeLayout is used for every timestamp in rendered reports.
const timeLayout = "2006-01-02 15:04:05 MST"

// formatDuration rounds d for display.
func formatDuration(d time.Duration) string {
	switch {
	case d <= 0:
		return "-"
	case d < time.Second:
		return d.Round(time.Millisecond).String()
	default:
		return d.Round(10 * time.Millisecond).String()
	}
}

// messageLocation describes where a message came from.
func messageLocation(m model.PipelineMessage) string {
	if m.PipelineIndex == model.PipelineIndexNone {
		return "pipeline"
	}
	label := m.FilterHumanLabel
	if label == "" {
		label = m.FilterName
	}
	return fmt.Sprintf("[%d] %s", m.PipelineIndex, label)
}

// truncateString truncates a string to maxLen runes with ellipsis.
func truncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}
