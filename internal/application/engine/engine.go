// Package engine implements the offline-first synchronization engine: a
// durable queue with retry, backoff and dependency scheduling, plus the
// worker loop that drains it.
package engine

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jbctechsolutions/medsync/internal/application/ports"
	domainErrors "github.com/jbctechsolutions/medsync/internal/domain/errors"
	domainSync "github.com/jbctechsolutions/medsync/internal/domain/sync"
	"github.com/jbctechsolutions/medsync/internal/infrastructure/logging"
	"github.com/jbctechsolutions/medsync/internal/infrastructure/tracing"
)

// Config holds engine tuning parameters.
type Config struct {
	Workers         int
	BatchSize       int
	PollInterval    time.Duration
	DeliveryTimeout time.Duration
}

// DefaultConfig returns sensible engine defaults.
func DefaultConfig() Config {
	return Config{
		Workers:         2,
		BatchSize:       10,
		PollInterval:    5 * time.Second,
		DeliveryTimeout: 30 * time.Second,
	}
}

// AttemptRecorder receives the outcome of each delivery cycle. The engine
// treats recording failures as non-fatal.
type AttemptRecorder interface {
	RecordSyncAttempt(ctx context.Context, success bool, itemsSynced, itemsFailed int, reason string, duration time.Duration)
}

// EnqueueRequest carries the parameters of a new sync item.
type EnqueueRequest struct {
	Type         domainSync.ItemType
	Action       string
	Payload      domainSync.Payload
	Priority     int // 0 means DefaultPriority
	MaxRetries   *int
	Dependencies []string
}

// Engine coordinates the durable queue, the delivery transport and the
// optional conflict reconciler.
type Engine struct {
	cfg        Config
	queue      ports.QueueStoragePort
	transport  ports.TransportPort
	reconciler *Reconciler
	recorder   AttemptRecorder
	logger     *logging.Logger
	tracer     *tracing.Tracer

	now func() time.Time

	stop chan struct{}
	done chan struct{}
}

// NewEngine creates a new engine. The reconciler and recorder are optional.
func NewEngine(queue ports.QueueStoragePort, transport ports.TransportPort, cfg Config, logger *logging.Logger, tracer *tracing.Tracer) *Engine {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.BatchSize < 1 {
		cfg.BatchSize = 1
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultConfig().PollInterval
	}
	if cfg.DeliveryTimeout <= 0 {
		cfg.DeliveryTimeout = DefaultConfig().DeliveryTimeout
	}
	if logger == nil {
		logger = logging.Default()
	}
	if tracer == nil {
		tracer = tracing.Default()
	}

	return &Engine{
		cfg:       cfg,
		queue:     queue,
		transport: transport,
		logger:    logger,
		tracer:    tracer,
		now:       time.Now,
	}
}

// SetReconciler installs the conflict reconciler consulted before updates
// are delivered.
func (e *Engine) SetReconciler(r *Reconciler) {
	e.reconciler = r
}

// SetAttemptRecorder installs the recorder notified after each cycle.
func (e *Engine) SetAttemptRecorder(r AttemptRecorder) {
	e.recorder = r
}

// Enqueue validates and persists a new sync item. It is the sole external
// write entry point.
func (e *Engine) Enqueue(ctx context.Context, req EnqueueRequest) (*domainSync.Item, error) {
	if req.Type == "" {
		return nil, domainErrors.NewError(domainErrors.CodeValidation, "item type required", domainErrors.ErrItemTypeRequired)
	}
	if req.Action == "" {
		return nil, domainErrors.NewError(domainErrors.CodeValidation, "action required", domainErrors.ErrActionRequired)
	}

	priority := req.Priority
	if priority == 0 {
		priority = domainSync.DefaultPriority
	}
	maxRetries := domainSync.DefaultMaxRetries
	if req.MaxRetries != nil {
		maxRetries = *req.MaxRetries
	}

	now := e.now().UTC()
	item := &domainSync.Item{
		ID:           uuid.New().String(),
		Type:         req.Type,
		Action:       req.Action,
		Payload:      req.Payload,
		Priority:     priority,
		Status:       domainSync.StatusPending,
		CreatedAt:    now,
		ScheduledAt:  now,
		MaxRetries:   maxRetries,
		Dependencies: req.Dependencies,
	}

	if err := e.queue.Create(ctx, item); err != nil {
		return nil, err
	}

	e.logger.InfoContext(ctx, "sync item enqueued",
		"item_id", item.ID,
		"item_type", string(item.Type),
		"action", item.Action,
		"priority", item.Priority,
	)
	return item, nil
}

// ItemStatus returns the current state of an item.
func (e *Engine) ItemStatus(ctx context.Context, id string) (*domainSync.Item, error) {
	return e.queue.Get(ctx, id)
}

// ItemLog returns the audit trail of an item, oldest first.
func (e *Engine) ItemLog(ctx context.Context, id string) ([]*domainSync.Event, error) {
	if _, err := e.queue.Get(ctx, id); err != nil {
		return nil, err
	}
	return e.queue.Events(ctx, id)
}

// QueueStats aggregates queue counts by status and type.
func (e *Engine) QueueStats(ctx context.Context) (*domainSync.QueueStats, error) {
	return e.queue.Stats(ctx)
}

// Cancel cancels a pending or processing item. Items already in a terminal
// state are left alone; the caller learns whether the cancel took effect.
func (e *Engine) Cancel(ctx context.Context, id string) (bool, error) {
	if _, err := e.queue.Get(ctx, id); err != nil {
		return false, err
	}

	cancelled, err := e.queue.Cancel(ctx, id, e.now().UTC())
	if err != nil {
		return false, err
	}
	if cancelled {
		e.logger.InfoContext(ctx, "sync item cancelled", "item_id", id)
	}
	return cancelled, nil
}

// CleanupCompleted removes completed and cancelled items older than the
// retention cutoff.
func (e *Engine) CleanupCompleted(ctx context.Context, retention time.Duration) (int, error) {
	cutoff := e.now().UTC().Add(-retention)
	removed, err := e.queue.CleanupTerminal(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		e.logger.InfoContext(ctx, "terminal items cleaned up", "removed", removed)
	}
	return removed, nil
}

// Clear removes all items with the given status, or everything when the
// status is empty. Intended for maintenance tooling only.
func (e *Engine) Clear(ctx context.Context, status domainSync.Status) (int, error) {
	return e.queue.Clear(ctx, status)
}
