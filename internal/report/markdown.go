package report

import (
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/filterpipe/internal/model"
)

// MarkdownWriter outputs reports in Markdown format for documentation and sharing.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the report in Markdown format.
func (w *MarkdownWriter) Write(report *model.RunReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	w.writeMessageSummary(md, report)
	w.writeFilters(md, report)
	w.writeProblems(md, report)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// WriteSummary outputs a table with one row per report.
func (w *MarkdownWriter) WriteSummary(reports []*model.RunReport) (int, error) {
	md := markdown.NewMarkdown(w.output)
	summary := NewSummary(reports)

	md.H1("filterpipe Batch Summary")
	md.PlainText("")

	rows := make([][]string, len(reports))
	for i, r := range reports {
		rows[i] = []string{
			r.PipelineName,
			modeTitle(r.Mode),
			statusText(r.Status),
			strconv.Itoa(len(r.Errors())),
			strconv.Itoa(len(r.Warnings())),
			formatDuration(r.Duration()),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Pipeline", "Mode", "Status", "Errors", "Warnings", "Duration"},
		Rows:   rows,
	})
	md.PlainText("")

	switch {
	case summary.Failed > 0:
		md.Warningf("%d of %d pipelines failed.", summary.Failed, summary.Total)
	case summary.Cancelled > 0:
		md.Importantf("%d of %d pipelines were cancelled.", summary.Cancelled, summary.Total)
	default:
		md.Tip("Every pipeline succeeded.")
	}
	md.PlainText("")
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with run information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.RunReport) {
	md.H1("filterpipe " + modeTitle(report.Mode) + " Report")
	md.PlainText("")

	rows := [][]string{
		{"Pipeline", "`" + report.PipelineName + "`"},
		{"Run ID", "`" + report.RunID + "`"},
		{"Started", report.StartedAt.Format(timeLayout)},
		{"Duration", formatDuration(report.Duration())},
		{"Status", statusText(report.Status)},
	}
	if report.Source != "" {
		rows = append(rows, []string{"Source", "`" + report.Source + "`"})
	}
	if report.Fingerprint != "" {
		rows = append(rows, []string{"Fingerprint", "`" + truncateString(report.Fingerprint, 16) + "`"})
	}

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")
}

func statusText(status string) string {
	switch status {
	case "Success":
		return "✅ Success"
	case "Cancelled":
		return "⚠️ Cancelled"
	default:
		return "❌ " + status
	}
}

// messageTypes lists the types shown in summaries, in display order.
var messageTypes = []model.MessageType{
	model.MessageError,
	model.MessageWarning,
	model.MessageStatus,
	model.MessageStandardOutput,
}

// writeMessageSummary writes message counts, a chart and an alert.
func (w *MarkdownWriter) writeMessageSummary(md *markdown.Markdown, report *model.RunReport) {
	md.H2("Messages")
	md.PlainText("")

	counts := report.CountByType()
	rows := make([][]string, 0, len(messageTypes))
	for _, t := range messageTypes {
		rows = append(rows, []string{titleCaser.String(t.String()), strconv.Itoa(counts[t])})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Type", "Count"},
		Rows:   rows,
	})
	md.PlainText("")

	w.writePieChart(md, counts)
	w.writeAlert(md, report)
}

// writePieChart writes a mermaid pie chart of message types.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, counts map[model.MessageType]int) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Message Types"),
		piechart.WithShowData(true),
	)

	charted := false
	for _, t := range messageTypes {
		if counts[t] > 0 {
			chart.LabelAndIntValue(titleCaser.String(t.String()), uint64(counts[t]))
			charted = true
		}
	}
	if !charted {
		return
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeAlert writes an alert matching the outcome.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, report *model.RunReport) {
	errs := len(report.Errors())
	warns := len(report.Warnings())
	switch {
	case report.PreflightErrors > 0:
		md.Cautionf("Preflight failed for %d filter(s). The pipeline was not executed.", report.PreflightErrors)
	case errs > 0:
		md.Cautionf("%d error(s) reported.", errs)
	case report.Status == "Cancelled":
		md.Importantf("The %s was cancelled.", report.Mode)
	case warns > 0:
		md.Warningf("%d warning(s) reported.", warns)
	default:
		md.Tip("No errors or warnings.")
	}
	md.PlainText("")
}

// writeFilters writes a table of filter states.
func (w *MarkdownWriter) writeFilters(md *markdown.Markdown, report *model.RunReport) {
	md.H2("Filters")
	md.PlainText("")

	if len(report.Filters) == 0 {
		md.PlainText("The pipeline has no filters.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(report.Filters))
	for i, f := range report.Filters {
		enabled := "yes"
		if !f.Enabled {
			enabled = "no"
		}
		code := "-"
		if f.ErrorCode != 0 {
			code = strconv.Itoa(f.ErrorCode)
		}
		rows[i] = []string{strconv.Itoa(f.Index), f.HumanLabel, "`" + f.Name + "`", enabled, f.State, code}
	}
	md.Table(markdown.TableSet{
		Header: []string{"#", "Filter", "Type", "Enabled", "State", "Error"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeProblems writes error and warning tables.
func (w *MarkdownWriter) writeProblems(md *markdown.Markdown, report *model.RunReport) {
	sections := []struct {
		header   string
		messages []model.PipelineMessage
	}{
		{"### ❌ Errors", report.Errors()},
		{"### ⚠️ Warnings", report.Warnings()},
	}

	for _, s := range sections {
		if len(s.messages) == 0 {
			continue
		}
		md.PlainText(s.header)
		md.PlainText("")

		rows := make([][]string, len(s.messages))
		for i, m := range s.messages {
			rows[i] = []string{messageLocation(m), strconv.Itoa(m.Code), truncateString(m.Text, 120)}
		}
		md.Table(markdown.TableSet{
			Header: []string{"Source", "Code", "Message"},
			Rows:   rows,
		})
		md.PlainText("")
	}
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [filterpipe](https://github.com/nao1215/filterpipe)*")
}
