package ports

import (
	"context"
	"time"

	"github.com/jbctechsolutions/medsync/internal/domain/sync"
)

// QueueStoragePort defines the durable queue persistence interface.
// It is the single source of truth for item state; every transition is a
// transactional update so a crash leaves either the old or the new state,
// never a partial write.
type QueueStoragePort interface {
	// Create persists a new item in pending state and appends its
	// queued event.
	Create(ctx context.Context, item *sync.Item) error

	// Get retrieves an item by ID.
	// Returns ErrItemNotFound if it doesn't exist.
	Get(ctx context.Context, id string) (*sync.Item, error)

	// Eligible returns up to limit items ready for dispatch: pending,
	// scheduled at or before now, with every dependency completed.
	// Ordered by priority ascending then created_at ascending.
	Eligible(ctx context.Context, limit int, now time.Time) ([]*sync.Item, error)

	// MarkProcessing atomically claims a pending item. Returns false
	// when the item was not pending, so two workers never double-claim.
	MarkProcessing(ctx context.Context, id string, now time.Time) (bool, error)

	// MarkCompleted transitions a processing item to completed.
	// Returns false when the item was not processing.
	MarkCompleted(ctx context.Context, id string, now time.Time) (bool, error)

	// MarkFailed records a delivery failure: reschedules with backoff
	// while retries remain, otherwise transitions to terminal failed.
	MarkFailed(ctx context.Context, id, errMsg string, now time.Time) error

	// Cancel transitions a pending or processing item to cancelled.
	// Returns false when the item already reached a terminal state.
	Cancel(ctx context.Context, id string, now time.Time) (bool, error)

	// Events returns the audit trail for an item, oldest first.
	Events(ctx context.Context, id string) ([]*sync.Event, error)

	// Stats aggregates queue counts by status and type.
	Stats(ctx context.Context) (*sync.QueueStats, error)

	// PendingCount returns the number of items awaiting delivery.
	PendingCount(ctx context.Context) (int, error)

	// LastSyncTime returns the most recent completion time, nil when
	// nothing has completed yet.
	LastSyncTime(ctx context.Context) (*time.Time, error)

	// CleanupTerminal deletes completed and cancelled items older than
	// the cutoff. Returns the number removed.
	CleanupTerminal(ctx context.Context, olderThan time.Time) (int, error)

	// Clear deletes all items with the given status, or every item when
	// status is empty. Returns the number removed.
	Clear(ctx context.Context, status sync.Status) (int, error)
}
