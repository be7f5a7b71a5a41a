package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	domainErrors "github.com/jbctechsolutions/medsync/internal/domain/errors"
	domainSync "github.com/jbctechsolutions/medsync/internal/domain/sync"
	"github.com/jbctechsolutions/medsync/internal/infrastructure/logging"
)

// Start launches the delivery workers. They poll the store until Stop is
// called or the context is cancelled.
func (e *Engine) Start(ctx context.Context) {
	e.stop = make(chan struct{})
	e.done = make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < e.cfg.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			e.runWorker(logging.WithWorkerID(ctx, workerID))
		}(i)
	}

	go func() {
		wg.Wait()
		close(e.done)
	}()

	e.logger.InfoContext(ctx, "sync engine started",
		"workers", e.cfg.Workers,
		"poll_interval", e.cfg.PollInterval.String(),
	)
}

// Stop signals the workers and waits for in-flight deliveries to finish.
func (e *Engine) Stop() {
	if e.stop == nil {
		return
	}
	close(e.stop)
	<-e.done
	e.stop = nil
	e.logger.Info("sync engine stopped")
}

func (e *Engine) runWorker(ctx context.Context) {
	ticker := time.NewTicker(e.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-e.stop:
			return
		case <-ticker.C:
			e.RunCycle(ctx)
		}
	}
}

// RunCycle performs one delivery pass: dequeue eligible items, claim each
// one, and deliver it. Returns the count of synced and failed items.
func (e *Engine) RunCycle(ctx context.Context) (synced, failed int) {
	started := e.now()

	items, err := e.queue.Eligible(ctx, e.cfg.BatchSize, e.now().UTC())
	if err != nil {
		e.logger.ErrorContext(ctx, "failed to poll eligible items", "error", err.Error())
		e.recordAttempt(ctx, false, 0, 0, err.Error(), e.now().Sub(started))
		return 0, 0
	}
	if len(items) == 0 {
		return 0, 0
	}

	for _, item := range items {
		select {
		case <-ctx.Done():
			return synced, failed
		case <-e.stop:
			return synced, failed
		default:
		}

		claimed, err := e.queue.MarkProcessing(ctx, item.ID, e.now().UTC())
		if err != nil {
			e.logger.ErrorContext(ctx, "failed to claim item", "item_id", item.ID, "error", err.Error())
			failed++
			continue
		}
		if !claimed {
			// Another worker won the claim, or the item was cancelled.
			continue
		}
		item.RetryCount++

		if e.deliverItem(ctx, item) {
			synced++
		} else {
			failed++
		}
	}

	reason := ""
	if failed > 0 {
		reason = "one or more deliveries failed"
	}
	e.recordAttempt(ctx, failed == 0, synced, failed, reason, e.now().Sub(started))
	return synced, failed
}

// deliverItem runs one bounded delivery attempt for a claimed item and
// records the outcome in the store.
func (e *Engine) deliverItem(ctx context.Context, item *domainSync.Item) bool {
	itemCtx := logging.WithItemID(logging.WithItemType(ctx, string(item.Type)), item.ID)
	spanCtx, span := e.tracer.StartDeliverySpan(itemCtx, item.ID, string(item.Type), item.Action)
	span.SetRetryCount(item.RetryCount)
	span.SetPriority(item.Priority)

	logging.LogDeliveryStart(spanCtx, e.logger, item.ID, string(item.Type), item.Action)
	started := e.now()

	err := e.deliver(spanCtx, item)
	if err != nil {
		span.EndWithError(err)
		logging.LogDeliveryFailed(spanCtx, e.logger, item.ID, err, item.RetryCount)
		if markErr := e.queue.MarkFailed(ctx, item.ID, err.Error(), e.now().UTC()); markErr != nil {
			e.logger.ErrorContext(spanCtx, "failed to record delivery failure", "item_id", item.ID, "error", markErr.Error())
		}
		return false
	}

	done, err := e.queue.MarkCompleted(ctx, item.ID, e.now().UTC())
	if err != nil {
		span.EndWithError(err)
		e.logger.ErrorContext(spanCtx, "failed to record delivery success", "item_id", item.ID, "error", err.Error())
		return false
	}
	span.End()
	if done {
		logging.LogDeliveryComplete(spanCtx, e.logger, item.ID, e.now().Sub(started))
	}
	return true
}

// deliver reconciles conflicts when configured, then hands the item to the
// transport under the delivery timeout.
func (e *Engine) deliver(ctx context.Context, item *domainSync.Item) error {
	deliverCtx, cancel := context.WithTimeout(ctx, e.cfg.DeliveryTimeout)
	defer cancel()

	if e.reconciler != nil && item.Action == "update" {
		merged, err := e.reconciler.Reconcile(deliverCtx, item)
		if err != nil {
			return err
		}
		if merged != nil {
			item.Payload = *merged
		}
	}

	if err := e.transport.Deliver(deliverCtx, item); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return &domainErrors.DeliveryError{Reason: "delivery timed out", Cause: err}
		}
		return err
	}
	return nil
}

func (e *Engine) recordAttempt(ctx context.Context, success bool, synced, failed int, reason string, duration time.Duration) {
	if e.recorder == nil {
		return
	}
	e.recorder.RecordSyncAttempt(ctx, success, synced, failed, reason, duration)
}
