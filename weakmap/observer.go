package weakmap

import "github.com/tailored-agentic-units/ephemeron/observability"

// Weak map event types.
const (
	EventAttach    observability.EventType = "weakmap.sidetable.attach"
	EventPut       observability.EventType = "weakmap.put"
	EventRemove    observability.EventType = "weakmap.remove"
	EventReclaimed observability.EventType = "weakmap.entry.reclaimed"
)
