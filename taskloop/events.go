package taskloop

import (
	"sync"
	"time"
)

// EventKind identifies the type of presentation event.
type EventKind string

const (
	EventSessionStart EventKind = "session_start"
	EventSessionEnd   EventKind = "session_end"
	EventStepStart    EventKind = "step_start"
	EventThought      EventKind = "thought"
	EventAction       EventKind = "action"
	EventResult       EventKind = "result"
	EventProgress     EventKind = "progress"
	EventRetry        EventKind = "retry"
	EventWarning      EventKind = "warning"
	EventErrorBox     EventKind = "error_box"
	EventDebug        EventKind = "debug"
	EventTaskComplete EventKind = "task_complete"
	EventStepLimit    EventKind = "step_limit"
)

// Event is a typed event emitted by the task loop for a presentation
// layer to render. The loop has no dependency on how it is displayed.
type Event struct {
	Kind      EventKind              `json:"kind"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// EventEmitter delivers typed events to the host application via a
// buffered channel.
type EventEmitter struct {
	ch     chan Event
	closed bool
	mu     sync.Mutex
}

// NewEventEmitter creates an EventEmitter with a buffered channel.
func NewEventEmitter(bufferSize int) *EventEmitter {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	return &EventEmitter{
		ch: make(chan Event, bufferSize),
	}
}

// Emit sends an event to the channel. A full channel drops the event
// rather than blocking the loop; a closed emitter drops it silently.
func (e *EventEmitter) Emit(kind EventKind, data map[string]interface{}) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	event := Event{
		Kind:      kind,
		Timestamp: time.Now(),
		Data:      data,
	}
	select {
	case e.ch <- event:
	default:
	}
}

// Events returns the read-only event channel.
func (e *EventEmitter) Events() <-chan Event {
	return e.ch
}

// Close closes the event channel. Safe to call multiple times.
func (e *EventEmitter) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.closed {
		e.closed = true
		close(e.ch)
	}
}
