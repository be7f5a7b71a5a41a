package sync

import "time"

// EventType classifies an entry in the per-item audit trail.
type EventType string

const (
	EventQueued         EventType = "queued"
	EventProcessing     EventType = "processing"
	EventCompleted      EventType = "completed"
	EventRetryScheduled EventType = "retry_scheduled"
	EventFailed         EventType = "failed"
	EventCancelled      EventType = "cancelled"
	EventConflict       EventType = "conflict"
)

// Event is one append-only audit record for a sync item. The queue is the
// only writer; events are never mutated after insert.
type Event struct {
	ItemID    string    `json:"sync_item_id"`
	Type      EventType `json:"event_type"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}
