package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/filterpipe/internal/model"
)

// SimpleWriter outputs human-readable text reports for terminal display.
type SimpleWriter struct {
	baseWriter

	// showEmpty controls whether sections with nothing in them are shown.
	showEmpty bool

	// verbose includes status and output messages, not only problems.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to show empty sections.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// WithVerbose includes every message, not only errors and warnings.
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

// Write outputs the report in human-readable format.
func (w *SimpleWriter) Write(report *model.RunReport) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, report)
	w.writeFilters(&sb, report)
	w.writeProblems(&sb, report)
	if w.verbose {
		w.writeLog(&sb, report)
	}
	w.writeFooter(&sb)

	return w.output.Write([]byte(sb.String()))
}

// WriteSummary outputs one line per report followed by totals.
func (w *SimpleWriter) WriteSummary(reports []*model.RunReport) (int, error) {
	var sb strings.Builder

	w.writeRule(&sb, "=")
	sb.WriteString("                         BATCH SUMMARY\n")
	w.writeRule(&sb, "=")
	sb.WriteString("\n")

	succeeded := 0
	for _, r := range reports {
		if r.Succeeded() {
			succeeded++
		}
		fmt.Fprintf(&sb, "  %-10s %-9s %-30s errors=%d warnings=%d\n",
			r.Status, modeTitle(r.Mode), r.PipelineName, len(r.Errors()), len(r.Warnings()))
	}

	fmt.Fprintf(&sb, "\n  %d of %d pipelines succeeded\n", succeeded, len(reports))
	w.writeFooter(&sb)

	return w.output.Write([]byte(sb.String()))
}

func (w *SimpleWriter) writeRule(sb *strings.Builder, char string) {
	sb.WriteString(strings.Repeat(char, 70))
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeSection(sb *strings.Builder, title string) {
	w.writeRule(sb, "-")
	sb.WriteString(title)
	sb.WriteString("\n")
	w.writeRule(sb, "-")
	sb.WriteString("\n")
}

// writeHeader writes the report header with run information.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, report *model.RunReport) {
	sb.WriteString("\n")
	w.writeRule(sb, "=")
	fmt.Fprintf(sb, "                       FILTERPIPE %s REPORT\n", strings.ToUpper(modeTitle(report.Mode)))
	w.writeRule(sb, "=")
	sb.WriteString("\n")

	fmt.Fprintf(sb, "Pipeline:   %s\n", report.PipelineName)
	if report.Source != "" {
		fmt.Fprintf(sb, "Source:     %s\n", report.Source)
	}
	fmt.Fprintf(sb, "Run ID:     %s\n", report.RunID)
	fmt.Fprintf(sb, "Started:    %s\n", report.StartedAt.Format(timeLayout))
	fmt.Fprintf(sb, "Duration:   %s\n", formatDuration(report.Duration()))
	fmt.Fprintf(sb, "Status:     %s\n", report.Status)
	if report.PreflightErrors > 0 {
		fmt.Fprintf(sb, "Preflight:  %d filter(s) failed\n", report.PreflightErrors)
	}
	sb.WriteString("\n")
}

// writeFilters writes the state of every filter slot.
func (w *SimpleWriter) writeFilters(sb *strings.Builder, report *model.RunReport) {
	if len(report.Filters) == 0 && !w.showEmpty {
		return
	}

	w.writeSection(sb, "FILTERS")

	if len(report.Filters) == 0 {
		sb.WriteString("  No filters\n\n")
		return
	}
	for _, f := range report.Filters {
		marker := "[+]"
		switch {
		case f.Failed():
			marker = "[!]"
		case !f.Enabled:
			marker = "[-]"
		}
		fmt.Fprintf(sb, "  %s %2d %-36s %s", marker, f.Index, f.HumanLabel, f.State)
		if f.ErrorCode != 0 {
			fmt.Fprintf(sb, " (error %d)", f.ErrorCode)
		}
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
}

// writeProblems writes errors followed by warnings.
func (w *SimpleWriter) writeProblems(sb *strings.Builder, report *model.RunReport) {
	errs, warns := report.Errors(), report.Warnings()
	if len(errs) == 0 && len(warns) == 0 && !w.showEmpty {
		return
	}

	w.writeSection(sb, "PROBLEMS")

	if len(errs) == 0 && len(warns) == 0 {
		sb.WriteString("  No errors or warnings\n\n")
		return
	}
	for _, m := range errs {
		fmt.Fprintf(sb, "  [!!] %s code=%d: %s\n", messageLocation(m), m.Code, m.Text)
	}
	for _, m := range warns {
		fmt.Fprintf(sb, "  [!]  %s code=%d: %s\n", messageLocation(m), m.Code, m.Text)
	}
	sb.WriteString("\n")
}

// writeLog writes status and standard output messages.
func (w *SimpleWriter) writeLog(sb *strings.Builder, report *model.RunReport) {
	w.writeSection(sb, "LOG")

	for _, m := range report.Messages {
		switch m.Type {
		case model.MessageStatus, model.MessageStandardOutput, model.MessageStatusAndProgress:
			fmt.Fprintf(sb, "  %s: %s\n", messageLocation(m), m.Text)
		}
	}
	sb.WriteString("\n")
}

// writeFooter writes the report footer.
func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	w.writeRule(sb, "=")
	sb.WriteString("Report generated by filterpipe\n")
	sb.WriteString("https://github.com/nao1215/filterpipe\n")
	w.writeRule(sb, "=")
}
