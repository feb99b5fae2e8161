package store

import "time"

// EventType represents lifecycle phases of the salaries store
type EventType string

const (
	EventInsert        EventType = "insert"
	EventBulkLoadStart EventType = "bulk_load_start"
	EventBulkLoadEnd   EventType = "bulk_load_end"
	EventSnapshotSaved EventType = "snapshot_saved"
	EventRecoveryDone  EventType = "recovery_done"
)

// Event represents a lifecycle event in the store
type Event struct {
	Type      EventType   // Type of event
	Timestamp time.Time   // When the event occurred
	Data      interface{} // Event-specific data (ids, counts, batch ids)
}

// Observer interface for event subscribers
// Observers receive events at major store lifecycle phases
type Observer interface {
	OnEvent(event Event)
}

// notifyAll stamps and delivers an event to every observer
func notifyAll(observers []Observer, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	for _, observer := range observers {
		observer.OnEvent(event)
	}
}
