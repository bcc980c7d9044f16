package model

import (
	"fmt"
	"strings"
)

// MessageType classifies a PipelineMessage.
type MessageType int

const (
	// MessageError reports a failure. Filters that emit it end in an error state.
	MessageError MessageType = iota
	// MessageWarning reports a problem that does not stop the pipeline.
	MessageWarning
	// MessageStatus carries human-readable progress text.
	MessageStatus
	// MessageStandardOutput carries output a filter would print.
	MessageStandardOutput
	// MessageProgressValue carries a completion percentage.
	MessageProgressValue
	// MessageStatusAndProgress carries both text and a percentage.
	MessageStatusAndProgress
	// MessageUnknown is used for values that could not be decoded.
	MessageUnknown
)

var messageTypeNames = map[MessageType]string{
	MessageError:             "error",
	MessageWarning:           "warning",
	MessageStatus:            "status",
	MessageStandardOutput:    "stdout",
	MessageProgressValue:     "progress",
	MessageStatusAndProgress: "status+progress",
	MessageUnknown:           "unknown",
}

// String returns the lower-case name of the message type.
func (t MessageType) String() string {
	if name, ok := messageTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

// ParseMessageType is the inverse of MessageType.String.
// Unrecognized names map to MessageUnknown.
func ParseMessageType(s string) MessageType {
	s = strings.ToLower(strings.TrimSpace(s))
	for t, name := range messageTypeNames {
		if name == s {
			return t
		}
	}
	return MessageUnknown
}

// PipelineIndexNone marks a message that was not emitted by a filter.
const PipelineIndexNone = -1

// PipelineMessage is a single notification from a filter or from the
// pipeline itself. It is a value; copies never alias.
type PipelineMessage struct {
	// FilterName is the registered type name of the emitting filter.
	// It is empty for pipeline-level messages.
	FilterName string `json:"filter_name,omitempty"`

	// FilterHumanLabel is the display label of the emitting filter.
	FilterHumanLabel string `json:"filter_human_label,omitempty"`

	// PipelineIndex is the position of the emitting filter, or
	// PipelineIndexNone.
	PipelineIndex int `json:"pipeline_index"`

	// Text is the message body.
	Text string `json:"text"`

	// Code is the error or warning code; zero for other types.
	Code int `json:"code,omitempty"`

	// Type classifies the message.
	Type MessageType `json:"type"`

	// Progress is a percentage in [0, 100] for progress messages.
	Progress int `json:"progress,omitempty"`
}

// Source identifies the filter a message is attributed to.
type Source struct {
	Name  string
	Label string
	Index int
}

// PipelineSource is the Source used for messages emitted by the pipeline.
var PipelineSource = Source{Index: PipelineIndexNone}

func newMessage(src Source, t MessageType, code int, text string) PipelineMessage {
	return PipelineMessage{
		FilterName:       src.Name,
		FilterHumanLabel: src.Label,
		PipelineIndex:    src.Index,
		Text:             text,
		Code:             code,
		Type:             t,
	}
}

// NewErrorMessage returns an error message with the given code.
func NewErrorMessage(src Source, code int, text string) PipelineMessage {
	return newMessage(src, MessageError, code, text)
}

// NewWarningMessage returns a warning message with the given code.
func NewWarningMessage(src Source, code int, text string) PipelineMessage {
	return newMessage(src, MessageWarning, code, text)
}

// NewStatusMessage returns a status message.
func NewStatusMessage(src Source, text string) PipelineMessage {
	return newMessage(src, MessageStatus, 0, text)
}

// NewStandardOutputMessage returns a standard output message.
func NewStandardOutputMessage(src Source, text string) PipelineMessage {
	return newMessage(src, MessageStandardOutput, 0, text)
}

// NewProgressMessage returns a progress message. The percentage is
// clamped to [0, 100].
func NewProgressMessage(src Source, progress int) PipelineMessage {
	m := newMessage(src, MessageProgressValue, 0, "")
	m.Progress = clampPercent(progress)
	return m
}

// NewStatusAndProgressMessage returns a message carrying text and a percentage.
func NewStatusAndProgressMessage(src Source, progress int, text string) PipelineMessage {
	m := newMessage(src, MessageStatusAndProgress, 0, text)
	m.Progress = clampPercent(progress)
	return m
}

func clampPercent(v int) int {
	return max(0, min(100, v))
}

// IsError reports whether the message is an error.
func (m PipelineMessage) IsError() bool {
	return m.Type == MessageError
}

// IsWarning reports whether the message is a warning.
func (m PipelineMessage) IsWarning() bool {
	return m.Type == MessageWarning
}

// String renders the message as a single log line.
func (m PipelineMessage) String() string {
	var b strings.Builder
	b.WriteString("[")
	b.WriteString(m.Type.String())
	b.WriteString("]")
	if m.PipelineIndex != PipelineIndexNone {
		fmt.Fprintf(&b, " (%d) %s", m.PipelineIndex, m.FilterHumanLabel)
	}
	if m.Code != 0 {
		fmt.Fprintf(&b, " code=%d", m.Code)
	}
	if m.Type == MessageProgressValue || m.Type == MessageStatusAndProgress {
		fmt.Fprintf(&b, " %d%%", m.Progress)
	}
	if m.Text != "" {
		b.WriteString(": ")
		b.WriteString(m.Text)
	}
	return b.String()
}

// MarshalText encodes the type by name.
func (t MessageType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText decodes a name written by MarshalText.
func (t *MessageType) UnmarshalText(text []byte) error {
	*t = ParseMessageType(string(text))
	return nil
}
