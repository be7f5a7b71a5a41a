// Package sync defines the domain model for durable synchronization items.
package sync

import (
	"time"
)

// Status represents the current state of a sync item.
type Status string

const (
	StatusPending    Status = "pending"    // Waiting for dispatch
	StatusProcessing Status = "processing" // Claimed by a worker
	StatusCompleted  Status = "completed"  // Delivered successfully
	StatusFailed     Status = "failed"     // Retries exhausted
	StatusCancelled  Status = "cancelled"  // Cancelled by an operator
)

// IsTerminal reports whether the status permits no further transitions.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// validTransitions encodes the item state machine. An item never leaves a
// terminal state, and a retry moves processing back to pending.
var validTransitions = map[Status][]Status{
	StatusPending:    {StatusProcessing, StatusCancelled},
	StatusProcessing: {StatusCompleted, StatusPending, StatusFailed, StatusCancelled},
}

// CanTransition reports whether the state machine permits moving from one
// status to another.
func CanTransition(from, to Status) bool {
	for _, next := range validTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ItemType identifies the domain category of a sync item.
type ItemType string

const (
	ItemReport       ItemType = "report"
	ItemTemplate     ItemType = "template"
	ItemLayout       ItemType = "layout"
	ItemVoiceSession ItemType = "voice_session"
)

// Queue defaults.
const (
	// DefaultPriority is the priority assigned when the producer does not
	// specify one; lower values are more urgent.
	DefaultPriority = 5

	// DefaultMaxRetries bounds delivery attempts before an item turns failed.
	DefaultMaxRetries = 3

	// UnlimitedRetries disables the retry bound for an item.
	UnlimitedRetries = -1
)

// Item represents a single pending change destined for remote delivery.
type Item struct {
	ID           string     // Unique item identifier
	Type         ItemType   // Domain category (report, template, ...)
	Action       string     // Operation to replay remotely (create, update, submit, ...)
	Payload      Payload    // Change data carried to the remote side
	Priority     int        // Lower = more urgent
	Status       Status     // Current state machine position
	CreatedAt    time.Time  // When the item was enqueued
	ScheduledAt  time.Time  // Earliest eligible dispatch time
	AttemptedAt  *time.Time // Last delivery attempt (nil if never attempted)
	CompletedAt  *time.Time // When the item reached completed (nil otherwise)
	RetryCount   int        // Delivery attempts so far
	MaxRetries   int        // Attempt bound, or UnlimitedRetries
	LastError    string     // Message from the most recent failure
	Dependencies []string   // Item IDs that must complete first
}

// RetriesRemaining reports whether the item may be attempted again.
func (i *Item) RetriesRemaining() bool {
	return i.MaxRetries == UnlimitedRetries || i.RetryCount < i.MaxRetries
}

// Backoff bounds.
const (
	backoffBase = 30 * time.Second
	backoffCap  = 300 * time.Second
)

// Backoff returns the retry delay after the given number of attempts:
// min(300s, 30s * 2^n). Non-decreasing in n and capped at five minutes.
func Backoff(retryCount int) time.Duration {
	if retryCount < 0 {
		retryCount = 0
	}
	// 30s << 4 already exceeds the cap; avoid shifting into overflow.
	if retryCount > 4 {
		return backoffCap
	}
	delay := backoffBase << uint(retryCount)
	if delay > backoffCap {
		return backoffCap
	}
	return delay
}

// QueueStats summarizes the queue for dashboards and the stats CLI.
type QueueStats struct {
	StatusCounts  map[Status]int   `json:"status_counts"`
	TypeCounts    map[ItemType]int `json:"type_counts"` // pending+processing only
	OldestPending *time.Time       `json:"oldest_pending,omitempty"`
	TotalItems    int              `json:"total_items"`
}
