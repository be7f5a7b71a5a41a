// Package storage provides SQLite-based repositories for the sync engine.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jbctechsolutions/medsync/internal/application/ports"
	domainErrors "github.com/jbctechsolutions/medsync/internal/domain/errors"
	domainSync "github.com/jbctechsolutions/medsync/internal/domain/sync"
)

// Compile-time check that QueueRepository implements QueueStoragePort.
var _ ports.QueueStoragePort = (*QueueRepository)(nil)

// QueueRepository implements QueueStoragePort using SQLite.
type QueueRepository struct {
	db *sql.DB
}

// NewQueueRepository creates a new queue repository.
func NewQueueRepository(db *sql.DB) *QueueRepository {
	return &QueueRepository{db: db}
}

const itemColumns = `id, item_type, action, payload, priority, status, created_at, scheduled_at, attempted_at, completed_at, retry_count, max_retries, last_error, dependencies`

// Create persists a new item in pending state and appends its queued event.
func (r *QueueRepository) Create(ctx context.Context, item *domainSync.Item) error {
	payload, err := json.Marshal(item.Payload)
	if err != nil {
		return domainErrors.NewError(domainErrors.CodeValidation, "could not encode payload", err)
	}
	deps, err := json.Marshal(item.Dependencies)
	if err != nil {
		return domainErrors.NewError(domainErrors.CodeValidation, "could not encode dependencies", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sync_items (`+itemColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		item.ID,
		string(item.Type),
		item.Action,
		string(payload),
		item.Priority,
		string(item.Status),
		formatTime(item.CreatedAt),
		formatTime(item.ScheduledAt),
		nullableTime(item.AttemptedAt),
		nullableTime(item.CompletedAt),
		item.RetryCount,
		item.MaxRetries,
		item.LastError,
		string(deps),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return domainErrors.NewError(domainErrors.CodeValidation, fmt.Sprintf("sync item already exists: %s", item.ID), err)
		}
		return fmt.Errorf("failed to create sync item: %w", err)
	}

	if err := appendEvent(ctx, tx, item.ID, domainSync.EventQueued,
		fmt.Sprintf("enqueued %s %s with priority %d", item.Type, item.Action, item.Priority), item.CreatedAt); err != nil {
		return err
	}

	return tx.Commit()
}

// Get retrieves an item by ID.
func (r *QueueRepository) Get(ctx context.Context, id string) (*domainSync.Item, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM sync_items WHERE id = ?`, id)
	item, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, domainErrors.NewError(domainErrors.CodeNotFound, fmt.Sprintf("sync item not found: %s", id), domainErrors.ErrItemNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sync item: %w", err)
	}
	return item, nil
}

// Eligible returns up to limit dispatchable items: pending, due, and with
// every dependency completed. Ordering is priority then FIFO, so the
// result is deterministic for a given store content.
func (r *QueueRepository) Eligible(ctx context.Context, limit int, now time.Time) ([]*domainSync.Item, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+itemColumns+`
		FROM sync_items
		WHERE status = 'pending' AND scheduled_at <= ?
		ORDER BY priority ASC, created_at ASC
	`, formatTime(now))
	if err != nil {
		return nil, fmt.Errorf("failed to query eligible items: %w", err)
	}
	defer rows.Close()

	var candidates []*domainSync.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sync item: %w", err)
		}
		candidates = append(candidates, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate eligible items: %w", err)
	}

	var eligible []*domainSync.Item
	for _, item := range candidates {
		ready, err := r.dependenciesCompleted(ctx, item)
		if err != nil {
			return nil, err
		}
		if !ready {
			continue
		}
		eligible = append(eligible, item)
		if limit > 0 && len(eligible) >= limit {
			break
		}
	}
	return eligible, nil
}

// dependenciesCompleted reports whether every dependency of the item has
// reached completed. A dependency that no longer exists counts as unmet.
func (r *QueueRepository) dependenciesCompleted(ctx context.Context, item *domainSync.Item) (bool, error) {
	for _, depID := range item.Dependencies {
		var status string
		err := r.db.QueryRowContext(ctx, `SELECT status FROM sync_items WHERE id = ?`, depID).Scan(&status)
		if err == sql.ErrNoRows {
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("failed to check dependency %s: %w", depID, err)
		}
		if domainSync.Status(status) != domainSync.StatusCompleted {
			return false, nil
		}
	}
	return true, nil
}

// MarkProcessing atomically claims a pending item. The single UPDATE with
// a status guard is the claim; losers of a race observe zero rows.
func (r *QueueRepository) MarkProcessing(ctx context.Context, id string, now time.Time) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE sync_items
		SET status = 'processing', attempted_at = ?, retry_count = retry_count + 1
		WHERE id = ? AND status = 'pending'
	`, formatTime(now), id)
	if err != nil {
		return false, fmt.Errorf("failed to claim sync item: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read claim result: %w", err)
	}
	if affected == 0 {
		return false, nil
	}

	if err := appendEvent(ctx, tx, id, domainSync.EventProcessing, "claimed for delivery", now); err != nil {
		return false, err
	}
	return true, tx.Commit()
}

// MarkCompleted transitions a processing item to completed. A repeat call
// on an already-completed item is a no-op.
func (r *QueueRepository) MarkCompleted(ctx context.Context, id string, now time.Time) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE sync_items
		SET status = 'completed', completed_at = ?, last_error = ''
		WHERE id = ? AND status = 'processing'
	`, formatTime(now), id)
	if err != nil {
		return false, fmt.Errorf("failed to complete sync item: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read completion result: %w", err)
	}
	if affected == 0 {
		return false, nil
	}

	if err := appendEvent(ctx, tx, id, domainSync.EventCompleted, "delivered successfully", now); err != nil {
		return false, err
	}
	return true, tx.Commit()
}

// MarkFailed records a delivery failure on a processing item. While
// retries remain the item goes back to pending with a backoff schedule;
// otherwise it turns terminally failed.
func (r *QueueRepository) MarkFailed(ctx context.Context, id, errMsg string, now time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var retryCount, maxRetries int
	err = tx.QueryRowContext(ctx, `
		SELECT retry_count, max_retries FROM sync_items WHERE id = ? AND status = 'processing'
	`, id).Scan(&retryCount, &maxRetries)
	if err == sql.ErrNoRows {
		// The item left the processing state, typically through a
		// concurrent cancel. Nothing to record.
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read sync item for failure: %w", err)
	}

	retriesRemain := maxRetries == domainSync.UnlimitedRetries || retryCount < maxRetries
	if retriesRemain {
		delay := domainSync.Backoff(retryCount)
		_, err = tx.ExecContext(ctx, `
			UPDATE sync_items
			SET status = 'pending', scheduled_at = ?, last_error = ?
			WHERE id = ? AND status = 'processing'
		`, formatTime(now.Add(delay)), errMsg, id)
		if err != nil {
			return fmt.Errorf("failed to reschedule sync item: %w", err)
		}
		if err := appendEvent(ctx, tx, id, domainSync.EventRetryScheduled,
			fmt.Sprintf("attempt %d failed, retry in %s: %s", retryCount, delay, errMsg), now); err != nil {
			return err
		}
		return tx.Commit()
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE sync_items
		SET status = 'failed', completed_at = ?, last_error = ?
		WHERE id = ? AND status = 'processing'
	`, formatTime(now), errMsg, id)
	if err != nil {
		return fmt.Errorf("failed to mark sync item failed: %w", err)
	}
	if err := appendEvent(ctx, tx, id, domainSync.EventFailed,
		fmt.Sprintf("retries exhausted after %d attempts: %s", retryCount, errMsg), now); err != nil {
		return err
	}
	return tx.Commit()
}

// Cancel transitions a pending or processing item to cancelled. Items in a
// terminal state are left alone and the call reports a no-op. A worker still
// holding a cancelled item finds its completion or failure update affects no
// rows.
func (r *QueueRepository) Cancel(ctx context.Context, id string, now time.Time) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE sync_items
		SET status = 'cancelled', completed_at = ?
		WHERE id = ? AND status IN ('pending', 'processing')
	`, formatTime(now), id)
	if err != nil {
		return false, fmt.Errorf("failed to cancel sync item: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read cancel result: %w", err)
	}
	if affected == 0 {
		return false, nil
	}

	if err := appendEvent(ctx, tx, id, domainSync.EventCancelled, "cancelled by operator", now); err != nil {
		return false, err
	}
	return true, tx.Commit()
}

// Events returns the audit trail for an item, oldest first.
func (r *QueueRepository) Events(ctx context.Context, id string) ([]*domainSync.Event, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT item_id, event_type, message, created_at
		FROM sync_events
		WHERE item_id = ?
		ORDER BY id ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync events: %w", err)
	}
	defer rows.Close()

	var events []*domainSync.Event
	for rows.Next() {
		var (
			ev        domainSync.Event
			eventType string
			createdAt string
		)
		if err := rows.Scan(&ev.ItemID, &eventType, &ev.Message, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan sync event: %w", err)
		}
		ev.Type = domainSync.EventType(eventType)
		ts, err := parseTime(createdAt)
		if err != nil {
			return nil, err
		}
		ev.Timestamp = ts
		events = append(events, &ev)
	}
	return events, rows.Err()
}

// Stats aggregates queue counts by status and type.
func (r *QueueRepository) Stats(ctx context.Context) (*domainSync.QueueStats, error) {
	stats := &domainSync.QueueStats{
		StatusCounts: make(map[domainSync.Status]int),
		TypeCounts:   make(map[domainSync.ItemType]int),
	}

	rows, err := r.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM sync_items GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to query status counts: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan status count: %w", err)
		}
		stats.StatusCounts[domainSync.Status(status)] = count
		stats.TotalItems += count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	typeRows, err := r.db.QueryContext(ctx, `
		SELECT item_type, COUNT(*)
		FROM sync_items
		WHERE status IN ('pending', 'processing')
		GROUP BY item_type
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query type counts: %w", err)
	}
	defer typeRows.Close()
	for typeRows.Next() {
		var itemType string
		var count int
		if err := typeRows.Scan(&itemType, &count); err != nil {
			return nil, fmt.Errorf("failed to scan type count: %w", err)
		}
		stats.TypeCounts[domainSync.ItemType(itemType)] = count
	}
	if err := typeRows.Err(); err != nil {
		return nil, err
	}

	var oldest sql.NullString
	err = r.db.QueryRowContext(ctx, `SELECT MIN(created_at) FROM sync_items WHERE status = 'pending'`).Scan(&oldest)
	if err != nil {
		return nil, fmt.Errorf("failed to query oldest pending: %w", err)
	}
	if oldest.Valid {
		ts, err := parseTime(oldest.String)
		if err != nil {
			return nil, err
		}
		stats.OldestPending = &ts
	}

	return stats, nil
}

// PendingCount returns the number of items awaiting delivery.
func (r *QueueRepository) PendingCount(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sync_items WHERE status = 'pending'`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending items: %w", err)
	}
	return count, nil
}

// LastSyncTime returns the most recent completion time.
func (r *QueueRepository) LastSyncTime(ctx context.Context) (*time.Time, error) {
	var last sql.NullString
	err := r.db.QueryRowContext(ctx, `SELECT MAX(completed_at) FROM sync_items WHERE status = 'completed'`).Scan(&last)
	if err != nil {
		return nil, fmt.Errorf("failed to query last sync time: %w", err)
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

// CleanupTerminal deletes completed and cancelled items older than the
// cutoff. Failed items are kept for operator inspection.
func (r *QueueRepository) CleanupTerminal(ctx context.Context, olderThan time.Time) (int, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM sync_items
		WHERE status IN ('completed', 'cancelled') AND completed_at < ?
	`, formatTime(olderThan))
	if err != nil {
		return 0, fmt.Errorf("failed to clean up terminal items: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read cleanup result: %w", err)
	}
	return int(affected), nil
}

// Clear deletes all items with the given status, or every item when
// status is empty.
func (r *QueueRepository) Clear(ctx context.Context, status domainSync.Status) (int, error) {
	var (
		res sql.Result
		err error
	)
	if status == "" {
		res, err = r.db.ExecContext(ctx, `DELETE FROM sync_items`)
	} else {
		res, err = r.db.ExecContext(ctx, `DELETE FROM sync_items WHERE status = ?`, string(status))
	}
	if err != nil {
		return 0, fmt.Errorf("failed to clear sync items: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read clear result: %w", err)
	}
	return int(affected), nil
}

// appendEvent inserts one audit record inside the caller's transaction.
func appendEvent(ctx context.Context, tx *sql.Tx, itemID string, eventType domainSync.EventType, message string, at time.Time) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO sync_events (item_id, event_type, message, created_at)
		VALUES (?, ?, ?, ?)
	`, itemID, string(eventType), message, formatTime(at))
	if err != nil {
		return fmt.Errorf("failed to append sync event: %w", err)
	}
	return nil
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanItem(row rowScanner) (*domainSync.Item, error) {
	var (
		item        domainSync.Item
		itemType    string
		payload     string
		status      string
		createdAt   string
		scheduledAt string
		attemptedAt sql.NullString
		completedAt sql.NullString
		lastError   sql.NullString
		deps        string
	)

	err := row.Scan(
		&item.ID,
		&itemType,
		&item.Action,
		&payload,
		&item.Priority,
		&status,
		&createdAt,
		&scheduledAt,
		&attemptedAt,
		&completedAt,
		&item.RetryCount,
		&item.MaxRetries,
		&lastError,
		&deps,
	)
	if err != nil {
		return nil, err
	}

	item.Type = domainSync.ItemType(itemType)
	item.Status = domainSync.Status(status)
	item.LastError = lastError.String

	if err := json.Unmarshal([]byte(payload), &item.Payload); err != nil {
		return nil, domainErrors.NewError(domainErrors.CodeStorage, fmt.Sprintf("corrupt payload for item %s", item.ID), err)
	}
	if err := json.Unmarshal([]byte(deps), &item.Dependencies); err != nil {
		return nil, domainErrors.NewError(domainErrors.CodeStorage, fmt.Sprintf("corrupt dependencies for item %s", item.ID), err)
	}

	if item.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if item.ScheduledAt, err = parseTime(scheduledAt); err != nil {
		return nil, err
	}
	if item.AttemptedAt, err = parseNullableTime(attemptedAt); err != nil {
		return nil, err
	}
	if item.CompletedAt, err = parseNullableTime(completedAt); err != nil {
		return nil, err
	}

	return &item, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func nullableTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, domainErrors.NewError(domainErrors.CodeStorage, fmt.Sprintf("corrupt timestamp: %s", s), err)
	}
	return t, nil
}

func parseNullableTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	t, err := parseTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
