package resilience

import "time"

// NetworkStatus labels a connectivity observation.
type NetworkStatus string

const (
	NetworkOnline   NetworkStatus = "online"
	NetworkOffline  NetworkStatus = "offline"
	NetworkDegraded NetworkStatus = "degraded"
)

const (
	// SustainabilityThresholdDays is the projected backlog runway below
	// which queue health degrades to warning.
	SustainabilityThresholdDays = 30.0

	// MaxRunwayDays is reported when no growth can be measured, meaning
	// the backlog is effectively not growing.
	MaxRunwayDays = 999.0

	battleReadyUptimePercent  = 99.0
	battleReadySuccessPercent = 99.0
)

// HealthStatus summarizes backlog sustainability.
type HealthStatus string

const (
	HealthHealthy HealthStatus = "healthy"
	HealthWarning HealthStatus = "warning"
)

// OfflinePeriod is a contiguous interval without connectivity to the
// remote authority. EndedAt is nil while the period is still open.
type OfflinePeriod struct {
	ID                    int64      `json:"id"`
	StartedAt             time.Time  `json:"started_at"`
	EndedAt               *time.Time `json:"ended_at,omitempty"`
	Duration              float64    `json:"duration_seconds"`
	Reason                string     `json:"reason"`
	QueueSizeAtStart      int        `json:"queue_size_at_start"`
	QueueSizeAtEnd        int        `json:"queue_size_at_end"`
	StorageUsedAtStartMB  float64    `json:"storage_used_at_start_mb"`
	StorageUsedAtEndMB    float64    `json:"storage_used_at_end_mb"`
	SyncedItemsWhenOnline int        `json:"synced_items_when_online"`
}

// Open reports whether the period has not been closed yet.
func (p OfflinePeriod) Open() bool {
	return p.EndedAt == nil
}

// SyncAttempt records one pass of the delivery loop.
type SyncAttempt struct {
	ID          int64     `json:"id"`
	AttemptedAt time.Time `json:"attempted_at"`
	Success     bool      `json:"success"`
	ItemsSynced int       `json:"items_synced"`
	ItemsFailed int       `json:"items_failed"`
	Reason      string    `json:"reason,omitempty"`
	Duration    float64   `json:"duration_seconds"`
}

// QueueSnapshot samples backlog size and local storage use at a point in
// time, independent of connectivity state.
type QueueSnapshot struct {
	ID                 int64     `json:"id"`
	TakenAt            time.Time `json:"taken_at"`
	PendingItems       int       `json:"pending_items"`
	StorageUsedMB      float64   `json:"storage_used_mb"`
	StorageAvailableMB float64   `json:"storage_available_mb"`
	OldestItemAgeHours float64   `json:"oldest_item_age_hours"`
}

// NetworkStatusRecord is one connectivity observation.
type NetworkStatusRecord struct {
	ID            int64         `json:"id"`
	ObservedAt    time.Time     `json:"observed_at"`
	Status        NetworkStatus `json:"status"`
	BandwidthKbps float64       `json:"bandwidth_kbps"`
	LatencyMs     float64       `json:"latency_ms"`
	Reason        string        `json:"reason,omitempty"`
}

// Statistics aggregates offline behavior over a reporting window.
type Statistics struct {
	WindowHours          float64 `json:"window_hours"`
	PeriodCount          int     `json:"period_count"`
	TotalOfflineHours    float64 `json:"total_offline_hours"`
	LongestOfflineHours  float64 `json:"longest_offline_hours"`
	TotalSyncedWhenBack  int     `json:"total_synced_when_back"`
	UptimePercent        float64 `json:"uptime_percent"`
	CurrentlyOffline     bool    `json:"currently_offline"`
	CurrentOfflineReason string  `json:"current_offline_reason,omitempty"`
}

// QueueHealth is the predictive backlog sustainability check.
type QueueHealth struct {
	PendingItems           int          `json:"pending_items"`
	StorageUsedMB          float64      `json:"storage_used_mb"`
	StorageAvailableMB     float64      `json:"storage_available_mb"`
	GrowthRateMBPerHour    float64      `json:"growth_rate_mb_per_hour"`
	EstimatedDaysUntilFull float64      `json:"estimated_days_until_full"`
	CanSustain30Days       bool         `json:"can_sustain_30_days"`
	Status                 HealthStatus `json:"status"`
}

// Report is the composite operational readiness view.
type Report struct {
	PeriodHours        float64     `json:"period_hours"`
	Statistics         Statistics  `json:"statistics"`
	Health             QueueHealth `json:"health"`
	SyncAttempts       int         `json:"sync_attempts"`
	SyncSuccessRate    float64     `json:"sync_success_rate"`
	AvgSyncDurationS   float64     `json:"avg_sync_duration_seconds"`
	LastSuccessfulSync *time.Time  `json:"last_successful_sync,omitempty"`
	BattleReady        bool        `json:"battle_ready"`
}

// EstimateRunway projects how long the available storage lasts at the
// observed growth rate. A non-positive growth rate means the backlog is
// not growing and the runway is unbounded.
func EstimateRunway(storageUsedMB, hoursSinceStart, availableMB float64) (growthMBPerHour, estimatedDays float64) {
	if hoursSinceStart <= 0 {
		return 0, MaxRunwayDays
	}
	growthMBPerHour = storageUsedMB / hoursSinceStart
	if growthMBPerHour <= 0 {
		return growthMBPerHour, MaxRunwayDays
	}
	estimatedDays = availableMB / (growthMBPerHour * 24)
	if estimatedDays > MaxRunwayDays {
		estimatedDays = MaxRunwayDays
	}
	return growthMBPerHour, estimatedDays
}

// HealthFor classifies a projected runway against the sustainability
// threshold.
func HealthFor(estimatedDays float64) (HealthStatus, bool) {
	sustainable := estimatedDays >= SustainabilityThresholdDays
	if sustainable {
		return HealthHealthy, true
	}
	return HealthWarning, false
}

// BattleReady reports whether the node sustained both high uptime and a
// high sync success rate over the reporting window.
func BattleReady(uptimePercent, syncSuccessRate float64) bool {
	return uptimePercent >= battleReadyUptimePercent && syncSuccessRate >= battleReadySuccessPercent
}
