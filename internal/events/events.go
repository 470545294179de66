// Package events carries change notifications from the services to
// connected clients.
package events

import "time"

// Event types.
const (
	ProcessCreated    = "process.created"
	ProcessUpdated    = "process.updated"
	ProcessDeleted    = "process.deleted"
	ProductionUpdated = "production.updated"
	CatalogSynced     = "catalog.synced"
)

// Event describes records that changed.
type Event struct {
	Type string    `json:"type"`
	IDs  []uint    `json:"ids,omitempty"`
	At   time.Time `json:"at"`
}

// New stamps an event with the current time.
func New(eventType string, ids ...uint) Event {
	return Event{Type: eventType, IDs: ids, At: time.Now().UTC()}
}

// Broadcaster receives events. The websocket hub implements it.
type Broadcaster interface {
	Broadcast(Event)
}

// Nop discards events.
type Nop struct{}

func (Nop) Broadcast(Event) {}
