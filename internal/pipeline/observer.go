package pipeline

import (
	"sync"

	"github.com/nao1215/filterpipe/internal/model"
)

// Observer receives the messages emitted during Preflight and Run.
// Observe is called synchronously from the pipeline's goroutine and must
// not modify the pipeline or its filters.
type Observer interface {
	Observe(m model.PipelineMessage)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(m model.PipelineMessage)

// Observe implements Observer.
func (f ObserverFunc) Observe(m model.PipelineMessage) { f(m) }

// Recorder is an Observer that keeps every message it receives.
// It is safe for concurrent use.
type Recorder struct {
	mu       sync.Mutex
	messages []model.PipelineMessage
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{messages: make([]model.PipelineMessage, 0)}
}

// Observe implements Observer.
func (r *Recorder) Observe(m model.PipelineMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, m)
}

// Messages returns a copy of the recorded messages in emission order.
func (r *Recorder) Messages() []model.PipelineMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.PipelineMessage, len(r.messages))
	copy(out, r.messages)
	return out
}

// Len returns the number of recorded messages.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.messages)
}

// Reset discards the recorded messages.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = r.messages[:0]
}
