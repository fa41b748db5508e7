// Package events carries generation lifecycle updates to observers
// (logging, monitors, UI).
package events

const (
	GenerateStart = "generate_start"
	GenerateEnd   = "generate_end"
	GenerateError = "generate_error"
)

// Event captures a single generation lifecycle update.
type Event struct {
	Type     string
	Guidance string
	Reply    string
	Tokens   int
	Err      error
}

// Sink consumes events.
type Sink interface {
	Emit(Event)
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(Event)

func (f SinkFunc) Emit(e Event) { f(e) }
