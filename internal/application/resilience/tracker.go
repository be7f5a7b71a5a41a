// Package resilience tracks offline periods, sync attempts and queue
// snapshots, and derives the operational readiness view from them.
package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/jbctechsolutions/medsync/internal/application/ports"
	domainResilience "github.com/jbctechsolutions/medsync/internal/domain/resilience"
	"github.com/jbctechsolutions/medsync/internal/infrastructure/logging"
)

// Config holds tracker tuning parameters.
type Config struct {
	SnapshotInterval time.Duration
	ReportWindow     time.Duration
}

// DefaultConfig returns sensible tracker defaults.
func DefaultConfig() Config {
	return Config{
		SnapshotInterval: 10 * time.Minute,
		ReportWindow:     24 * time.Hour,
	}
}

// Tracker observes connectivity and backlog behavior. It is a monitoring
// subsystem: recording failures degrade the metrics and are logged, but
// they never interrupt the delivery path.
type Tracker struct {
	cfg    Config
	store  ports.ResilienceStoragePort
	queue  ports.QueueStoragePort
	probe  ports.StorageProbePort
	logger *logging.Logger

	now func() time.Time

	snapshotMu sync.Mutex
}

// NewTracker creates a tracker over the given stores.
func NewTracker(store ports.ResilienceStoragePort, queue ports.QueueStoragePort, probe ports.StorageProbePort, cfg Config, logger *logging.Logger) *Tracker {
	if cfg.SnapshotInterval <= 0 {
		cfg.SnapshotInterval = DefaultConfig().SnapshotInterval
	}
	if cfg.ReportWindow <= 0 {
		cfg.ReportWindow = DefaultConfig().ReportWindow
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Tracker{
		cfg:    cfg,
		store:  store,
		queue:  queue,
		probe:  probe,
		logger: logger,
		now:    time.Now,
	}
}

// StartOfflinePeriod opens a new offline period. Starting while a period
// is already open is a no-op; the existing period keeps running.
func (t *Tracker) StartOfflinePeriod(ctx context.Context, reason string) error {
	current, err := t.store.CurrentOpenPeriod(ctx)
	if err != nil {
		return err
	}
	if current != nil {
		t.logger.WarnContext(ctx, "offline period already open, ignoring start",
			"open_since", current.StartedAt.Format(time.RFC3339),
			"reason", reason,
		)
		return nil
	}

	queueSize := t.pendingCount(ctx)
	usedMB := t.storageUsed(ctx)

	period := &domainResilience.OfflinePeriod{
		StartedAt:            t.now().UTC(),
		Reason:               reason,
		QueueSizeAtStart:     queueSize,
		StorageUsedAtStartMB: usedMB,
	}
	if _, err := t.store.OpenPeriod(ctx, period); err != nil {
		return err
	}

	t.recordNetworkChange(ctx, domainResilience.NetworkOffline, reason)
	logging.LogOfflinePeriodStart(ctx, t.logger, reason, queueSize)
	return nil
}

// EndOfflinePeriod closes the open offline period, recording how many
// queued items went out once connectivity returned. Ending with no open
// period is a no-op.
func (t *Tracker) EndOfflinePeriod(ctx context.Context, syncedItems int) error {
	current, err := t.store.CurrentOpenPeriod(ctx)
	if err != nil {
		return err
	}
	if current == nil {
		t.logger.WarnContext(ctx, "no open offline period, ignoring end")
		return nil
	}

	now := t.now().UTC()
	current.EndedAt = &now
	current.Duration = now.Sub(current.StartedAt).Seconds()
	current.QueueSizeAtEnd = t.pendingCount(ctx)
	current.StorageUsedAtEndMB = t.storageUsed(ctx)
	current.SyncedItemsWhenOnline = syncedItems

	if err := t.store.ClosePeriod(ctx, current); err != nil {
		return err
	}

	t.recordNetworkChange(ctx, domainResilience.NetworkOnline, "")
	logging.LogOfflinePeriodEnd(ctx, t.logger, now.Sub(current.StartedAt), syncedItems)
	return nil
}

// RecordSyncAttempt persists the outcome of one delivery cycle. It
// implements the engine's attempt recorder; failures are logged and
// swallowed so a broken metrics store never stalls deliveries.
func (t *Tracker) RecordSyncAttempt(ctx context.Context, success bool, itemsSynced, itemsFailed int, reason string, duration time.Duration) {
	attempt := &domainResilience.SyncAttempt{
		AttemptedAt: t.now().UTC(),
		Success:     success,
		ItemsSynced: itemsSynced,
		ItemsFailed: itemsFailed,
		Reason:      reason,
		Duration:    duration.Seconds(),
	}
	if err := t.store.RecordAttempt(ctx, attempt); err != nil {
		t.logger.WarnContext(ctx, "failed to record sync attempt", "error", err.Error())
	}
}

// RecordNetworkStatus persists a connectivity observation.
func (t *Tracker) RecordNetworkStatus(ctx context.Context, status domainResilience.NetworkStatus, bandwidthKbps, latencyMs float64, reason string) error {
	return t.store.RecordNetworkStatus(ctx, &domainResilience.NetworkStatusRecord{
		ObservedAt:    t.now().UTC(),
		Status:        status,
		BandwidthKbps: bandwidthKbps,
		LatencyMs:     latencyMs,
		Reason:        reason,
	})
}

// RecordQueueSnapshot samples the backlog and local storage right now.
func (t *Tracker) RecordQueueSnapshot(ctx context.Context) error {
	t.snapshotMu.Lock()
	defer t.snapshotMu.Unlock()

	now := t.now().UTC()
	snapshot := &domainResilience.QueueSnapshot{
		TakenAt:      now,
		PendingItems: t.pendingCount(ctx),
	}

	if t.probe != nil {
		if used, err := t.probe.UsedMB(); err == nil {
			snapshot.StorageUsedMB = used
		} else {
			t.logger.WarnContext(ctx, "failed to probe used storage", "error", err.Error())
		}
		if available, err := t.probe.AvailableMB(); err == nil {
			snapshot.StorageAvailableMB = available
		} else {
			t.logger.WarnContext(ctx, "failed to probe available storage", "error", err.Error())
		}
	}

	if stats, err := t.queue.Stats(ctx); err == nil && stats.OldestPending != nil {
		snapshot.OldestItemAgeHours = now.Sub(*stats.OldestPending).Hours()
	}

	return t.store.RecordSnapshot(ctx, snapshot)
}

// Run takes periodic queue snapshots until the context is cancelled.
func (t *Tracker) Run(ctx context.Context) {
	ticker := time.NewTicker(t.cfg.SnapshotInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := t.RecordQueueSnapshot(ctx); err != nil {
				t.logger.WarnContext(ctx, "failed to record queue snapshot", "error", err.Error())
			}
		}
	}
}

// OfflineStatistics aggregates offline behavior over the trailing window.
// A still-open period contributes its elapsed time.
func (t *Tracker) OfflineStatistics(ctx context.Context, window time.Duration) (*domainResilience.Statistics, error) {
	if window <= 0 {
		window = t.cfg.ReportWindow
	}
	now := t.now().UTC()
	since := now.Add(-window)

	periods, err := t.store.PeriodsSince(ctx, since)
	if err != nil {
		return nil, err
	}

	stats := &domainResilience.Statistics{
		WindowHours: window.Hours(),
		PeriodCount: len(periods),
	}
	for _, p := range periods {
		end := now
		if p.EndedAt != nil {
			end = *p.EndedAt
		} else {
			stats.CurrentlyOffline = true
			stats.CurrentOfflineReason = p.Reason
		}
		offline := end.Sub(p.StartedAt).Hours()
		if offline < 0 {
			offline = 0
		}
		stats.TotalOfflineHours += offline
		if offline > stats.LongestOfflineHours {
			stats.LongestOfflineHours = offline
		}
		stats.TotalSyncedWhenBack += p.SyncedItemsWhenOnline
	}

	if stats.TotalOfflineHours > stats.WindowHours {
		stats.TotalOfflineHours = stats.WindowHours
	}
	stats.UptimePercent = (stats.WindowHours - stats.TotalOfflineHours) / stats.WindowHours * 100

	return stats, nil
}

// CheckQueueHealth projects whether local storage can absorb the backlog
// for the sustainability threshold. Growth is measured across the current
// offline period; with connectivity up the backlog drains and the runway
// is reported as unbounded.
func (t *Tracker) CheckQueueHealth(ctx context.Context) (*domainResilience.QueueHealth, error) {
	health := &domainResilience.QueueHealth{
		PendingItems: t.pendingCount(ctx),
	}

	if t.probe != nil {
		if used, err := t.probe.UsedMB(); err == nil {
			health.StorageUsedMB = used
		} else {
			t.logger.WarnContext(ctx, "failed to probe used storage", "error", err.Error())
		}
		if available, err := t.probe.AvailableMB(); err == nil {
			health.StorageAvailableMB = available
		} else {
			t.logger.WarnContext(ctx, "failed to probe available storage", "error", err.Error())
		}
	}

	var grownMB, hours float64
	current, err := t.store.CurrentOpenPeriod(ctx)
	if err != nil {
		return nil, err
	}
	if current != nil {
		hours = t.now().UTC().Sub(current.StartedAt).Hours()
		grownMB = health.StorageUsedMB - current.StorageUsedAtStartMB
		if grownMB < 0 {
			grownMB = 0
		}
	}

	growth, days := domainResilience.EstimateRunway(grownMB, hours, health.StorageAvailableMB)
	health.GrowthRateMBPerHour = growth
	health.EstimatedDaysUntilFull = days
	health.Status, health.CanSustain30Days = domainResilience.HealthFor(days)

	if !health.CanSustain30Days {
		t.logger.WarnContext(ctx, "queue storage runway below sustainability threshold",
			"estimated_days", health.EstimatedDaysUntilFull,
			"growth_mb_per_hour", health.GrowthRateMBPerHour,
		)
	}
	return health, nil
}

// ResilienceReport builds the composite readiness view over the trailing
// window.
func (t *Tracker) ResilienceReport(ctx context.Context, window time.Duration) (*domainResilience.Report, error) {
	if window <= 0 {
		window = t.cfg.ReportWindow
	}

	stats, err := t.OfflineStatistics(ctx, window)
	if err != nil {
		return nil, err
	}
	health, err := t.CheckQueueHealth(ctx)
	if err != nil {
		return nil, err
	}

	report := &domainResilience.Report{
		PeriodHours: window.Hours(),
		Statistics:  *stats,
		Health:      *health,
	}

	attempts, err := t.store.AttemptsSince(ctx, t.now().UTC().Add(-window))
	if err != nil {
		return nil, err
	}
	report.SyncAttempts = len(attempts)
	if len(attempts) > 0 {
		succeeded := 0
		var totalDuration float64
		for _, a := range attempts {
			if a.Success {
				succeeded++
			}
			totalDuration += a.Duration
		}
		report.SyncSuccessRate = float64(succeeded) / float64(len(attempts)) * 100
		report.AvgSyncDurationS = totalDuration / float64(len(attempts))
	}

	last, err := t.store.LastSuccessfulAttempt(ctx)
	if err != nil {
		t.logger.WarnContext(ctx, "failed to load last successful sync", "error", err.Error())
	} else {
		report.LastSuccessfulSync = last
	}

	report.BattleReady = domainResilience.BattleReady(stats.UptimePercent, report.SyncSuccessRate)
	return report, nil
}

func (t *Tracker) pendingCount(ctx context.Context) int {
	count, err := t.queue.PendingCount(ctx)
	if err != nil {
		t.logger.WarnContext(ctx, "failed to count pending items", "error", err.Error())
		return 0
	}
	return count
}

func (t *Tracker) storageUsed(ctx context.Context) float64 {
	if t.probe == nil {
		return 0
	}
	used, err := t.probe.UsedMB()
	if err != nil {
		t.logger.WarnContext(ctx, "failed to probe used storage", "error", err.Error())
		return 0
	}
	return used
}

func (t *Tracker) recordNetworkChange(ctx context.Context, status domainResilience.NetworkStatus, reason string) {
	if err := t.RecordNetworkStatus(ctx, status, 0, 0, reason); err != nil {
		t.logger.WarnContext(ctx, "failed to record network status", "error", err.Error())
	}
}
