package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/filterpipe/internal/model"
)

// JSONWriter outputs reports in JSON format for programmatic processing.
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed JSON output.
	indent bool

	indentPrefix string
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
// The prefix is prepended to each line, and indent is used for each level.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint enables pretty-printed JSON with default indentation.
// This is a convenience wrapper for WithIndent("", "  ").
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
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

// Write outputs the report as one JSON document.
func (w *JSONWriter) Write(report *model.RunReport) (int, error) {
	return w.writeJSON(report)
}

// Summary is the JSON shape written by WriteSummary.
type Summary struct {
	Total     int                `json:"total"`
	Succeeded int                `json:"succeeded"`
	Failed    int                `json:"failed"`
	Cancelled int                `json:"cancelled"`
	Reports   []*model.RunReport `json:"reports"`
}

// NewSummary counts report outcomes.
func NewSummary(reports []*model.RunReport) *Summary {
	s := &Summary{Total: len(reports), Reports: reports}
	if s.Reports == nil {
		s.Reports = make([]*model.RunReport, 0)
	}
	for _, r := range reports {
		switch r.Status {
		case "Success":
			s.Succeeded++
		case "Cancelled":
			s.Cancelled++
		default:
			s.Failed++
		}
	}
	return s
}

// WriteSummary outputs every report wrapped with outcome counts.
func (w *JSONWriter) WriteSummary(reports []*model.RunReport) (int, error) {
	return w.writeJSON(NewSummary(reports))
}

// writeJSON marshals the given value to JSON and writes it to the output.
func (w *JSONWriter) writeJSON(v any) (int, error) {
	var data []byte
	var err error

	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}

	if err != nil {
		return 0, err
	}

	data = append(data, '\n')

	return w.output.Write(data)
}
