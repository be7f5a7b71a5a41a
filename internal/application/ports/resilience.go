package ports

import (
	"context"
	"time"

	"github.com/jbctechsolutions/medsync/internal/domain/resilience"
)

// ResilienceStoragePort persists connectivity observations and the
// derived offline-period bookkeeping. Writes here back a monitoring
// subsystem; callers treat failures as degraded metrics, never as
// critical-path errors.
type ResilienceStoragePort interface {
	// OpenPeriod starts a new offline period and returns its ID.
	OpenPeriod(ctx context.Context, period *resilience.OfflinePeriod) (int64, error)

	// CurrentOpenPeriod returns the most recent period without an end
	// time, or nil when the node is considered online.
	CurrentOpenPeriod(ctx context.Context) (*resilience.OfflinePeriod, error)

	// ClosePeriod fills in the end-of-period fields on an open period.
	ClosePeriod(ctx context.Context, period *resilience.OfflinePeriod) error

	// RecordAttempt appends a sync attempt record.
	RecordAttempt(ctx context.Context, attempt *resilience.SyncAttempt) error

	// RecordSnapshot appends a queue snapshot.
	RecordSnapshot(ctx context.Context, snapshot *resilience.QueueSnapshot) error

	// RecordNetworkStatus appends a connectivity observation.
	RecordNetworkStatus(ctx context.Context, record *resilience.NetworkStatusRecord) error

	// PeriodsSince returns offline periods starting at or after the
	// cutoff, oldest first, including a still-open period.
	PeriodsSince(ctx context.Context, since time.Time) ([]*resilience.OfflinePeriod, error)

	// AttemptsSince returns sync attempts at or after the cutoff.
	AttemptsSince(ctx context.Context, since time.Time) ([]*resilience.SyncAttempt, error)

	// LatestSnapshot returns the most recent queue snapshot, or nil
	// when none has been taken.
	LatestSnapshot(ctx context.Context) (*resilience.QueueSnapshot, error)

	// LastSuccessfulAttempt returns the time of the most recent
	// successful sync attempt, or nil.
	LastSuccessfulAttempt(ctx context.Context) (*time.Time, error)
}
