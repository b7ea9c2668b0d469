package catalog

import "github.com/schemakeep/schemakeep/internal/metadata"

// EventKind labels what happened to a catalog object.
type EventKind string

const (
	EventAdded   EventKind = "added"
	EventUpdated EventKind = "updated"
	EventRemoved EventKind = "removed"
)

// Event describes one committed catalog change.
type Event struct {
	Kind   EventKind       `json:"kind"`
	Family metadata.Family `json:"family"`
	ID     int64           `json:"id"`
	Name   string          `json:"name,omitempty"`
}

// Notifier receives committed change events. Notify runs while the
// catalog operation lock is held, so implementations hand the event off
// and return without calling back into the catalog.
type Notifier interface {
	Notify(Event)
}
