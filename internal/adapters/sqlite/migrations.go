package sqlite

import (
	"database/sql"
	"fmt"
)

// applyMigrations applies all database migrations in order.
func applyMigrations(db *sql.DB) error {
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("could not enable foreign keys: %w", err)
	}

	if err := createMigrationsTable(db); err != nil {
		return err
	}

	migrations := []struct {
		version int
		name    string
		sql     string
	}{
		{1, "create_sync_items_table", createSyncItemsTable},
		{2, "create_sync_events_table", createSyncEventsTable},
		{3, "create_queue_indices", createQueueIndices},
		{4, "create_offline_periods_table", createOfflinePeriodsTable},
		{5, "create_sync_attempts_table", createSyncAttemptsTable},
		{6, "create_queue_snapshots_table", createQueueSnapshotsTable},
		{7, "create_network_status_table", createNetworkStatusTable},
		{8, "create_resilience_indices", createResilienceIndices},
	}

	for _, m := range migrations {
		applied, err := isMigrationApplied(db, m.version)
		if err != nil {
			return fmt.Errorf("could not check migration %d: %w", m.version, err)
		}

		if applied {
			continue
		}

		if _, err := db.Exec(m.sql); err != nil {
			return fmt.Errorf("could not apply migration %d (%s): %w", m.version, m.name, err)
		}

		if err := recordMigration(db, m.version, m.name); err != nil {
			return fmt.Errorf("could not record migration %d: %w", m.version, err)
		}
	}

	return nil
}

// createMigrationsTable creates the migrations tracking table.
func createMigrationsTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	return err
}

// isMigrationApplied checks if a migration has been applied.
func isMigrationApplied(db *sql.DB, version int) (bool, error) {
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM migrations WHERE version = ?", version).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// recordMigration records that a migration has been applied.
func recordMigration(db *sql.DB, version int, name string) error {
	_, err := db.Exec("INSERT INTO migrations (version, name) VALUES (?, ?)", version, name)
	return err
}

// Migration SQL statements

// Timestamps are stored as RFC3339 UTC text so lexicographic comparison
// matches chronological order.
const createSyncItemsTable = `
CREATE TABLE sync_items (
	id TEXT PRIMARY KEY,
	item_type TEXT NOT NULL,
	action TEXT NOT NULL,
	payload TEXT NOT NULL,
	priority INTEGER NOT NULL DEFAULT 5,
	status TEXT NOT NULL DEFAULT 'pending',
	created_at TEXT NOT NULL,
	scheduled_at TEXT NOT NULL,
	attempted_at TEXT,
	completed_at TEXT,
	retry_count INTEGER NOT NULL DEFAULT 0,
	max_retries INTEGER NOT NULL DEFAULT 3,
	last_error TEXT,
	dependencies TEXT NOT NULL DEFAULT '[]'
);
`

const createSyncEventsTable = `
CREATE TABLE sync_events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	item_id TEXT NOT NULL,
	event_type TEXT NOT NULL,
	message TEXT,
	created_at TEXT NOT NULL,
	FOREIGN KEY (item_id) REFERENCES sync_items(id) ON DELETE CASCADE
);
`

const createQueueIndices = `
CREATE INDEX IF NOT EXISTS idx_sync_items_status ON sync_items(status);
CREATE INDEX IF NOT EXISTS idx_sync_items_priority_created ON sync_items(priority, created_at);
CREATE INDEX IF NOT EXISTS idx_sync_items_type ON sync_items(item_type);
CREATE INDEX IF NOT EXISTS idx_sync_items_scheduled ON sync_items(scheduled_at);
CREATE INDEX IF NOT EXISTS idx_sync_events_item ON sync_events(item_id);
`

const createOfflinePeriodsTable = `
CREATE TABLE offline_periods (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	started_at TEXT NOT NULL,
	ended_at TEXT,
	duration_seconds REAL DEFAULT 0,
	reason TEXT,
	queue_size_at_start INTEGER DEFAULT 0,
	queue_size_at_end INTEGER DEFAULT 0,
	storage_used_at_start_mb REAL DEFAULT 0,
	storage_used_at_end_mb REAL DEFAULT 0,
	synced_items_when_online INTEGER DEFAULT 0
);
`

const createSyncAttemptsTable = `
CREATE TABLE sync_attempts (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	attempted_at TEXT NOT NULL,
	success INTEGER NOT NULL DEFAULT 0,
	items_synced INTEGER DEFAULT 0,
	items_failed INTEGER DEFAULT 0,
	reason TEXT,
	duration_seconds REAL DEFAULT 0
);
`

const createQueueSnapshotsTable = `
CREATE TABLE queue_snapshots (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	taken_at TEXT NOT NULL,
	pending_items INTEGER DEFAULT 0,
	storage_used_mb REAL DEFAULT 0,
	storage_available_mb REAL DEFAULT 0,
	oldest_item_age_hours REAL DEFAULT 0
);
`

const createNetworkStatusTable = `
CREATE TABLE network_status (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	observed_at TEXT NOT NULL,
	status TEXT NOT NULL,
	bandwidth_kbps REAL DEFAULT 0,
	latency_ms REAL DEFAULT 0,
	reason TEXT
);
`

const createResilienceIndices = `
CREATE INDEX IF NOT EXISTS idx_offline_periods_started ON offline_periods(started_at);
CREATE INDEX IF NOT EXISTS idx_offline_periods_ended ON offline_periods(ended_at);
CREATE INDEX IF NOT EXISTS idx_sync_attempts_attempted ON sync_attempts(attempted_at);
CREATE INDEX IF NOT EXISTS idx_queue_snapshots_taken ON queue_snapshots(taken_at);
CREATE INDEX IF NOT EXISTS idx_network_status_observed ON network_status(observed_at);
`
