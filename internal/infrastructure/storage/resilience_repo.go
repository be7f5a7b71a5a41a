package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jbctechsolutions/medsync/internal/application/ports"
	domainErrors "github.com/jbctechsolutions/medsync/internal/domain/errors"
	"github.com/jbctechsolutions/medsync/internal/domain/resilience"
)

// Compile-time check that ResilienceRepository implements ResilienceStoragePort.
var _ ports.ResilienceStoragePort = (*ResilienceRepository)(nil)

// ResilienceRepository implements ResilienceStoragePort using SQLite.
type ResilienceRepository struct {
	db *sql.DB
}

// NewResilienceRepository creates a new resilience repository.
func NewResilienceRepository(db *sql.DB) *ResilienceRepository {
	return &ResilienceRepository{db: db}
}

// OpenPeriod starts a new offline period and returns its ID.
func (r *ResilienceRepository) OpenPeriod(ctx context.Context, period *resilience.OfflinePeriod) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO offline_periods (started_at, reason, queue_size_at_start, storage_used_at_start_mb)
		VALUES (?, ?, ?, ?)
	`, formatTime(period.StartedAt), period.Reason, period.QueueSizeAtStart, period.StorageUsedAtStartMB)
	if err != nil {
		return 0, fmt.Errorf("failed to open offline period: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read offline period id: %w", err)
	}
	return id, nil
}

// CurrentOpenPeriod returns the most recent period without an end time.
func (r *ResilienceRepository) CurrentOpenPeriod(ctx context.Context) (*resilience.OfflinePeriod, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+periodColumns+`
		FROM offline_periods
		WHERE ended_at IS NULL
		ORDER BY started_at DESC
		LIMIT 1
	`)
	period, err := scanPeriod(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get open offline period: %w", err)
	}
	return period, nil
}

// ClosePeriod fills in the end-of-period fields on an open period.
func (r *ResilienceRepository) ClosePeriod(ctx context.Context, period *resilience.OfflinePeriod) error {
	if period.EndedAt == nil {
		return domainErrors.NewError(domainErrors.CodeValidation, "offline period end time required", nil)
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE offline_periods
		SET ended_at = ?, duration_seconds = ?, queue_size_at_end = ?, storage_used_at_end_mb = ?, synced_items_when_online = ?
		WHERE id = ? AND ended_at IS NULL
	`, formatTime(*period.EndedAt), period.Duration, period.QueueSizeAtEnd, period.StorageUsedAtEndMB, period.SyncedItemsWhenOnline, period.ID)
	if err != nil {
		return fmt.Errorf("failed to close offline period: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read close result: %w", err)
	}
	if affected == 0 {
		return domainErrors.NewError(domainErrors.CodeNotFound, fmt.Sprintf("open offline period not found: %d", period.ID), domainErrors.ErrNoOpenPeriod)
	}
	return nil
}

// RecordAttempt appends a sync attempt record.
func (r *ResilienceRepository) RecordAttempt(ctx context.Context, attempt *resilience.SyncAttempt) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sync_attempts (attempted_at, success, items_synced, items_failed, reason, duration_seconds)
		VALUES (?, ?, ?, ?, ?, ?)
	`, formatTime(attempt.AttemptedAt), boolToInt(attempt.Success), attempt.ItemsSynced, attempt.ItemsFailed, attempt.Reason, attempt.Duration)
	if err != nil {
		return fmt.Errorf("failed to record sync attempt: %w", err)
	}
	return nil
}

// RecordSnapshot appends a queue snapshot.
func (r *ResilienceRepository) RecordSnapshot(ctx context.Context, snapshot *resilience.QueueSnapshot) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO queue_snapshots (taken_at, pending_items, storage_used_mb, storage_available_mb, oldest_item_age_hours)
		VALUES (?, ?, ?, ?, ?)
	`, formatTime(snapshot.TakenAt), snapshot.PendingItems, snapshot.StorageUsedMB, snapshot.StorageAvailableMB, snapshot.OldestItemAgeHours)
	if err != nil {
		return fmt.Errorf("failed to record queue snapshot: %w", err)
	}
	return nil
}

// RecordNetworkStatus appends a connectivity observation.
func (r *ResilienceRepository) RecordNetworkStatus(ctx context.Context, record *resilience.NetworkStatusRecord) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO network_status (observed_at, status, bandwidth_kbps, latency_ms, reason)
		VALUES (?, ?, ?, ?, ?)
	`, formatTime(record.ObservedAt), string(record.Status), record.BandwidthKbps, record.LatencyMs, record.Reason)
	if err != nil {
		return fmt.Errorf("failed to record network status: %w", err)
	}
	return nil
}

// PeriodsSince returns offline periods starting at or after the cutoff,
// oldest first.
func (r *ResilienceRepository) PeriodsSince(ctx context.Context, since time.Time) ([]*resilience.OfflinePeriod, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+periodColumns+`
		FROM offline_periods
		WHERE started_at >= ?
		ORDER BY started_at ASC
	`, formatTime(since))
	if err != nil {
		return nil, fmt.Errorf("failed to query offline periods: %w", err)
	}
	defer rows.Close()

	var periods []*resilience.OfflinePeriod
	for rows.Next() {
		period, err := scanPeriod(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan offline period: %w", err)
		}
		periods = append(periods, period)
	}
	return periods, rows.Err()
}

// AttemptsSince returns sync attempts at or after the cutoff.
func (r *ResilienceRepository) AttemptsSince(ctx context.Context, since time.Time) ([]*resilience.SyncAttempt, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, attempted_at, success, items_synced, items_failed, COALESCE(reason, ''), duration_seconds
		FROM sync_attempts
		WHERE attempted_at >= ?
		ORDER BY attempted_at ASC
	`, formatTime(since))
	if err != nil {
		return nil, fmt.Errorf("failed to query sync attempts: %w", err)
	}
	defer rows.Close()

	var attempts []*resilience.SyncAttempt
	for rows.Next() {
		var (
			attempt     resilience.SyncAttempt
			attemptedAt string
			success     int
		)
		if err := rows.Scan(&attempt.ID, &attemptedAt, &success, &attempt.ItemsSynced, &attempt.ItemsFailed, &attempt.Reason, &attempt.Duration); err != nil {
			return nil, fmt.Errorf("failed to scan sync attempt: %w", err)
		}
		attempt.Success = success != 0
		ts, err := parseTime(attemptedAt)
		if err != nil {
			return nil, err
		}
		attempt.AttemptedAt = ts
		attempts = append(attempts, &attempt)
	}
	return attempts, rows.Err()
}

// LatestSnapshot returns the most recent queue snapshot, or nil.
func (r *ResilienceRepository) LatestSnapshot(ctx context.Context) (*resilience.QueueSnapshot, error) {
	var (
		snapshot resilience.QueueSnapshot
		takenAt  string
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, taken_at, pending_items, storage_used_mb, storage_available_mb, oldest_item_age_hours
		FROM queue_snapshots
		ORDER BY taken_at DESC
		LIMIT 1
	`).Scan(&snapshot.ID, &takenAt, &snapshot.PendingItems, &snapshot.StorageUsedMB, &snapshot.StorageAvailableMB, &snapshot.OldestItemAgeHours)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest snapshot: %w", err)
	}
	ts, err := parseTime(takenAt)
	if err != nil {
		return nil, err
	}
	snapshot.TakenAt = ts
	return &snapshot, nil
}

// LastSuccessfulAttempt returns the time of the most recent successful
// sync attempt.
func (r *ResilienceRepository) LastSuccessfulAttempt(ctx context.Context) (*time.Time, error) {
	var last sql.NullString
	err := r.db.QueryRowContext(ctx, `SELECT MAX(attempted_at) FROM sync_attempts WHERE success = 1`).Scan(&last)
	if err != nil {
		return nil, fmt.Errorf("failed to query last successful attempt: %w", err)
	}
	if !last.Valid {
		return nil, nil
	}
	ts, err := parseTime(last.String)
	if err != nil {
		return nil, err
	}
	return &ts, nil
}

const periodColumns = `id, started_at, ended_at, duration_seconds, COALESCE(reason, ''), queue_size_at_start, queue_size_at_end, storage_used_at_start_mb, storage_used_at_end_mb, synced_items_when_online`

func scanPeriod(row rowScanner) (*resilience.OfflinePeriod, error) {
	var (
		period    resilience.OfflinePeriod
		startedAt string
		endedAt   sql.NullString
	)
	err := row.Scan(
		&period.ID,
		&startedAt,
		&endedAt,
		&period.Duration,
		&period.Reason,
		&period.QueueSizeAtStart,
		&period.QueueSizeAtEnd,
		&period.StorageUsedAtStartMB,
		&period.StorageUsedAtEndMB,
		&period.SyncedItemsWhenOnline,
	)
	if err != nil {
		return nil, err
	}

	if period.StartedAt, err = parseTime(startedAt); err != nil {
		return nil, err
	}
	if period.EndedAt, err = parseNullableTime(endedAt); err != nil {
		return nil, err
	}
	return &period, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
