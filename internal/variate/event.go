package variate

import "time"

// Event describes one observable simulation transition: a delay being
// applied, a response dropped, a snapshot switch. Used for streaming to
// the debug dashboard; emission is best-effort and never blocks the
// request path on anything but the sink itself.
type Event struct {
	Time    time.Time `json:"time"`
	Module  string    `json:"module"` // "delay" or "multiplex"
	Subtree string    `json:"subtree,omitempty"`
	OID     string    `json:"oid,omitempty"`
	Kind    string    `json:"kind"` // e.g. "delay", "drop", "switch", "pin"
	Detail  string    `json:"detail,omitempty"`
}

// Sink receives simulation events.
type Sink interface {
	Emit(Event)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(Event)

func (f SinkFunc) Emit(e Event) { f(e) }

// emit sends e to sink if one is configured.
func emit(sink Sink, e Event) {
	if sink != nil {
		sink.Emit(e)
	}
}
