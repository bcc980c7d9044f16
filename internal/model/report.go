package model

import "time"

// RunMode tells whether a report describes a preflight or a full run.
type RunMode string

const (
	// RunModePreflight is a validation-only pass.
	RunModePreflight RunMode = "preflight"
	// RunModeRun is a full preflight plus execution.
	RunModeRun RunMode = "run"
)

// RunReport is the record of one preflight or run of a pipeline.
// It is what the report writers render and the history database stores.
type RunReport struct {
	// RunID uniquely identifies the run.
	RunID string `json:"run_id"`

	// PipelineName is the name stored in the pipeline document.
	PipelineName string `json:"pipeline_name"`

	// Source is the file the pipeline was read from, if any.
	Source string `json:"source,omitempty"`

	// Fingerprint is the hex SHA3-256 digest of the pipeline document.
	Fingerprint string `json:"fingerprint,omitempty"`

	// Mode tells whether only a preflight was performed.
	Mode RunMode `json:"mode"`

	// Status is the outcome: Success, Failure or Cancelled.
	Status string `json:"status"`

	// StartedAt is when the call began.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt is when the call returned.
	FinishedAt time.Time `json:"finished_at"`

	// PreflightErrors is the number of filters left in an error state by preflight.
	PreflightErrors int `json:"preflight_errors"`

	// Filters summarizes each filter slot in pipeline order.
	Filters []FilterSummary `json:"filters"`

	// Messages holds every message in emission order.
	Messages []PipelineMessage `json:"messages"`
}

// FilterSummary is the final state of one filter slot.
type FilterSummary struct {
	Index       int    `json:"index"`
	Name        string `json:"name"`
	HumanLabel  string `json:"human_label"`
	Enabled     bool   `json:"enabled"`
	State       string `json:"state"`
	ErrorCode   int    `json:"error_code,omitempty"`
	WarningCode int    `json:"warning_code,omitempty"`
}

// Failed reports whether the filter ended with a negative error code.
func (s FilterSummary) Failed() bool {
	return s.ErrorCode < 0
}

// NewRunReport creates an empty report for the named pipeline.
func NewRunReport(runID, pipelineName string, mode RunMode) *RunReport {
	return &RunReport{
		RunID:        runID,
		PipelineName: pipelineName,
		Mode:         mode,
		StartedAt:    time.Now(),
		Filters:      make([]FilterSummary, 0),
		Messages:     make([]PipelineMessage, 0),
	}
}

// AddMessage appends a message.
func (r *RunReport) AddMessage(m PipelineMessage) {
	r.Messages = append(r.Messages, m)
}

// CountByType counts messages per type.
func (r *RunReport) CountByType() map[MessageType]int {
	counts := make(map[MessageType]int)
	for _, m := range r.Messages {
		counts[m.Type]++
	}
	return counts
}

// Errors returns the error messages in emission order.
func (r *RunReport) Errors() []PipelineMessage {
	return r.filterMessages(MessageError)
}

// Warnings returns the warning messages in emission order.
func (r *RunReport) Warnings() []PipelineMessage {
	return r.filterMessages(MessageWarning)
}

func (r *RunReport) filterMessages(t MessageType) []PipelineMessage {
	out := make([]PipelineMessage, 0)
	for _, m := range r.Messages {
		if m.Type == t {
			out = append(out, m)
		}
	}
	return out
}

// FailedFilters returns the summaries of filters with a negative error code.
func (r *RunReport) FailedFilters() []FilterSummary {
	out := make([]FilterSummary, 0)
	for _, f := range r.Filters {
		if f.Failed() {
			out = append(out, f)
		}
	}
	return out
}

// Duration returns how long the call took. It is zero until FinishedAt is set.
func (r *RunReport) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Succeeded reports whether the status is Success.
func (r *RunReport) Succeeded() bool {
	return r.Status == "Success"
}
