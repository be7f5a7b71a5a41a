package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/jbctechsolutions/medsync/internal/application/ports"
	"github.com/jbctechsolutions/medsync/internal/domain/conflict"
	domainErrors "github.com/jbctechsolutions/medsync/internal/domain/errors"
	domainSync "github.com/jbctechsolutions/medsync/internal/domain/sync"
	"github.com/jbctechsolutions/medsync/internal/infrastructure/logging"
	"github.com/jbctechsolutions/medsync/internal/infrastructure/tracing"
)

// PolicySource provides the resolution policy in effect. The policy
// manager satisfies it; tests pass a fixed policy.
type PolicySource interface {
	Current() conflict.Policy
}

// FixedPolicy is a PolicySource that always returns the same policy.
type FixedPolicy conflict.Policy

// Current returns the wrapped policy.
func (p FixedPolicy) Current() conflict.Policy {
	return conflict.Policy(p)
}

// Reconciler detects and resolves conflicts between the local payload of
// an item and the remote copy of the same entity before delivery.
type Reconciler struct {
	snapshots ports.SnapshotProviderPort
	policies  PolicySource
	logger    *logging.Logger
	tracer    *tracing.Tracer
}

// NewReconciler creates a reconciler.
func NewReconciler(snapshots ports.SnapshotProviderPort, policies PolicySource, logger *logging.Logger, tracer *tracing.Tracer) *Reconciler {
	if logger == nil {
		logger = logging.Default()
	}
	if tracer == nil {
		tracer = tracing.Default()
	}
	return &Reconciler{
		snapshots: snapshots,
		policies:  policies,
		logger:    logger,
		tracer:    tracer,
	}
}

// Reconcile fetches the remote copy of the item's entity and resolves any
// divergence. It returns the merged payload to deliver, or nil when the
// local payload should go out unchanged. Conflicts the policy routes to
// user review abort the delivery with ErrConflictUnresolved; the local
// state stays untouched pending a human decision.
func (r *Reconciler) Reconcile(ctx context.Context, item *domainSync.Item) (*domainSync.Payload, error) {
	if item.Payload.EntityID == "" {
		return nil, nil
	}

	entityCtx := logging.WithEntityID(ctx, item.Payload.EntityID)
	spanCtx, span := r.tracer.StartReconcileSpan(entityCtx, item.Payload.EntityID)

	remote, err := r.snapshots.Fetch(spanCtx, item.Payload.EntityID)
	if err != nil {
		// The remote copy is unavailable; delivery proceeds and the
		// remote side applies its own checks.
		span.EndWithError(err)
		r.logger.WarnContext(spanCtx, "remote snapshot unavailable, skipping conflict check",
			"entity_id", item.Payload.EntityID,
			"error", err.Error(),
		)
		return nil, nil
	}
	if remote == nil {
		span.End()
		return nil, nil
	}

	conflicts, skipReason := conflict.Detect(&item.Payload, remote)
	if skipReason != "" {
		span.End()
		r.logger.DebugContext(spanCtx, "conflict detection skipped",
			"entity_id", item.Payload.EntityID,
			"reason", skipReason,
		)
		return nil, nil
	}
	if len(conflicts) == 0 {
		span.End()
		return nil, nil
	}

	span.SetConflictCount(len(conflicts))
	logging.LogConflictDetected(spanCtx, r.logger, item.Payload.EntityID, len(conflicts))

	result := conflict.Resolve(conflicts, &item.Payload, remote, r.policies.Current())
	for _, line := range result.Log {
		r.logger.InfoContext(spanCtx, "conflict resolution",
			"entity_id", item.Payload.EntityID,
			"detail", line,
		)
	}

	if len(result.NeedsReview) > 0 {
		span.SetNeedsReview(len(result.NeedsReview))
		err := domainErrors.NewError(domainErrors.CodeConflict,
			fmt.Sprintf("%d conflict(s) require user review for entity %s", len(result.NeedsReview), item.Payload.EntityID),
			domainErrors.ErrConflictUnresolved)
		span.EndWithError(err)
		return nil, err
	}

	span.End()
	return result.Merged, nil
}

// IsUnresolvedConflict reports whether an error means the delivery was
// held for user review.
func IsUnresolvedConflict(err error) bool {
	return errors.Is(err, domainErrors.ErrConflictUnresolved)
}
