package engine

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jbctechsolutions/medsync/internal/domain/conflict"
	domainErrors "github.com/jbctechsolutions/medsync/internal/domain/errors"
	domainSync "github.com/jbctechsolutions/medsync/internal/domain/sync"
)

type fakeSnapshots struct {
	mu      sync.Mutex
	payload *domainSync.Payload
	err     error
	calls   int
}

func (f *fakeSnapshots) Fetch(ctx context.Context, entityID string) (*domainSync.Payload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.payload, f.err
}

type fakeRecorder struct {
	mu       sync.Mutex
	attempts []recordedAttempt
}

type recordedAttempt struct {
	success bool
	synced  int
	failed  int
	reason  string
}

func (f *fakeRecorder) RecordSyncAttempt(ctx context.Context, success bool, itemsSynced, itemsFailed int, reason string, duration time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts = append(f.attempts, recordedAttempt{success, itemsSynced, itemsFailed, reason})
}

func reportPayload(entityID string, modified time.Time, status string, content, metadata map[string]interface{}) domainSync.Payload {
	return domainSync.Payload{
		Kind:       domainSync.PayloadReport,
		EntityID:   entityID,
		ModifiedAt: &modified,
		Report: &domainSync.ReportContent{
			Content:  content,
			Status:   status,
			Metadata: metadata,
		},
	}
}

func TestRunCycleDeliversByPriority(t *testing.T) {
	transport := &fakeTransport{}
	e, _ := newTestEngine(t, transport)
	ctx := context.Background()

	routine, err := e.Enqueue(ctx, EnqueueRequest{Type: domainSync.ItemReport, Action: "create"})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	urgent, err := e.Enqueue(ctx, EnqueueRequest{Type: domainSync.ItemReport, Action: "create", Priority: 1})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	synced, failed := e.RunCycle(ctx)
	if synced != 2 || failed != 0 {
		t.Fatalf("synced=%d failed=%d, want 2/0", synced, failed)
	}

	ids := transport.deliveredIDs()
	if len(ids) != 2 || ids[0] != urgent.ID || ids[1] != routine.ID {
		t.Errorf("delivery order = %v, want urgent %s before routine %s", ids, urgent.ID, routine.ID)
	}
}

func TestRunCycleRespectsDependencies(t *testing.T) {
	transport := &fakeTransport{}
	e, _ := newTestEngine(t, transport)
	ctx := context.Background()

	parent, err := e.Enqueue(ctx, EnqueueRequest{Type: domainSync.ItemReport, Action: "create"})
	if err != nil {
		t.Fatalf("enqueue parent: %v", err)
	}
	child, err := e.Enqueue(ctx, EnqueueRequest{
		Type:         domainSync.ItemReport,
		Action:       "submit",
		Priority:     1,
		Dependencies: []string{parent.ID},
	})
	if err != nil {
		t.Fatalf("enqueue child: %v", err)
	}

	// The child outranks the parent but stays held until the parent
	// completes, so the first pass delivers the parent alone.
	synced, _ := e.RunCycle(ctx)
	if synced != 1 {
		t.Fatalf("first cycle synced %d, want 1", synced)
	}
	if ids := transport.deliveredIDs(); ids[0] != parent.ID {
		t.Fatalf("first delivery = %s, want parent %s", ids[0], parent.ID)
	}

	synced, _ = e.RunCycle(ctx)
	if synced != 1 {
		t.Fatalf("second cycle synced %d, want 1", synced)
	}
	if ids := transport.deliveredIDs(); ids[1] != child.ID {
		t.Errorf("second delivery = %s, want child %s", ids[1], child.ID)
	}
}

func TestRunCycleRetriesWithBackoff(t *testing.T) {
	transport := &fakeTransport{fail: errors.New("remote unreachable")}
	e, clock := newTestEngine(t, transport)
	ctx := context.Background()

	item, err := e.Enqueue(ctx, EnqueueRequest{Type: domainSync.ItemReport, Action: "create"})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	if _, failed := e.RunCycle(ctx); failed != 1 {
		t.Fatalf("expected one failed delivery")
	}

	stored, err := e.ItemStatus(ctx, item.ID)
	if err != nil {
		t.Fatalf("item status: %v", err)
	}
	if stored.Status != domainSync.StatusPending {
		t.Fatalf("status after first failure = %s, want pending", stored.Status)
	}
	if stored.RetryCount != 1 {
		t.Errorf("retry count = %d, want 1", stored.RetryCount)
	}
	if stored.LastError != "remote unreachable" {
		t.Errorf("last error = %q", stored.LastError)
	}
	wantSchedule := clock.Now().UTC().Add(domainSync.Backoff(1))
	if !stored.ScheduledAt.Equal(wantSchedule) {
		t.Errorf("scheduled at = %s, want %s", stored.ScheduledAt, wantSchedule)
	}

	// Backoff still pending, nothing is eligible.
	if synced, failed := e.RunCycle(ctx); synced != 0 || failed != 0 {
		t.Fatalf("cycle inside backoff synced=%d failed=%d, want 0/0", synced, failed)
	}

	clock.Advance(domainSync.Backoff(1) + time.Second)
	if _, failed := e.RunCycle(ctx); failed != 1 {
		t.Fatalf("expected second failure after backoff elapsed")
	}
}

func TestRunCycleExhaustsRetries(t *testing.T) {
	transport := &fakeTransport{fail: errors.New("remote unreachable")}
	e, clock := newTestEngine(t, transport)
	ctx := context.Background()

	maxRetries := 2
	item, err := e.Enqueue(ctx, EnqueueRequest{
		Type:       domainSync.ItemReport,
		Action:     "create",
		MaxRetries: &maxRetries,
	})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	for attempt := 0; attempt < maxRetries; attempt++ {
		if _, failed := e.RunCycle(ctx); failed != 1 {
			t.Fatalf("attempt %d: expected a failed delivery", attempt+1)
		}
		clock.Advance(10 * time.Minute)
	}

	stored, err := e.ItemStatus(ctx, item.ID)
	if err != nil {
		t.Fatalf("item status: %v", err)
	}
	if stored.Status != domainSync.StatusFailed {
		t.Errorf("status = %s, want failed after retries exhausted", stored.Status)
	}
	if stored.RetryCount != maxRetries {
		t.Errorf("retry count = %d, want %d", stored.RetryCount, maxRetries)
	}

	if synced, failed := e.RunCycle(ctx); synced != 0 || failed != 0 {
		t.Errorf("terminal item must never run again, synced=%d failed=%d", synced, failed)
	}
}

func TestRunCycleDeliveryTimeout(t *testing.T) {
	transport := &fakeTransport{
		deliverFn: func(ctx context.Context, item *domainSync.Item) error {
			<-ctx.Done()
			return ctx.Err()
		},
	}
	e, _ := newTestEngine(t, transport)
	e.cfg.DeliveryTimeout = 50 * time.Millisecond
	ctx := context.Background()

	item, err := e.Enqueue(ctx, EnqueueRequest{Type: domainSync.ItemReport, Action: "create"})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	if _, failed := e.RunCycle(ctx); failed != 1 {
		t.Fatalf("expected the delivery to time out")
	}

	stored, err := e.ItemStatus(ctx, item.ID)
	if err != nil {
		t.Fatalf("item status: %v", err)
	}
	if !strings.Contains(stored.LastError, "delivery timed out") {
		t.Errorf("last error = %q, want timeout message", stored.LastError)
	}
	if stored.Status != domainSync.StatusPending {
		t.Errorf("status = %s, want pending for retry", stored.Status)
	}
}

func TestRunCycleRecordsAttempts(t *testing.T) {
	transport := &fakeTransport{}
	recorder := &fakeRecorder{}
	e, _ := newTestEngine(t, transport)
	e.SetAttemptRecorder(recorder)
	ctx := context.Background()

	if _, err := e.Enqueue(ctx, EnqueueRequest{Type: domainSync.ItemReport, Action: "create"}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	e.RunCycle(ctx)

	// Empty cycles record nothing.
	e.RunCycle(ctx)

	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	if len(recorder.attempts) != 1 {
		t.Fatalf("recorded %d attempts, want 1", len(recorder.attempts))
	}
	got := recorder.attempts[0]
	if !got.success || got.synced != 1 || got.failed != 0 {
		t.Errorf("attempt = %+v, want success with one synced item", got)
	}
}

func TestReconcilerMergesBeforeDelivery(t *testing.T) {
	localModified := time.Date(2025, 3, 10, 7, 0, 0, 0, time.UTC)
	remoteModified := localModified.Add(30 * time.Minute)

	content := map[string]interface{}{"findings": "clear lungs"}
	remote := reportPayload("rep-1", remoteModified, "draft",
		map[string]interface{}{"findings": "clear lungs"},
		map[string]interface{}{"ward": "icu", "modality": "CR"},
	)

	transport := &fakeTransport{}
	e, _ := newTestEngine(t, transport)
	snapshots := &fakeSnapshots{payload: &remote}
	e.SetReconciler(NewReconciler(snapshots, FixedPolicy(conflict.DefaultPolicy()), nil, nil))
	ctx := context.Background()

	local := reportPayload("rep-1", localModified, "draft", content,
		map[string]interface{}{"ward": "er"})
	if _, err := e.Enqueue(ctx, EnqueueRequest{
		Type:    domainSync.ItemReport,
		Action:  "update",
		Payload: local,
	}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	if synced, failed := e.RunCycle(ctx); synced != 1 || failed != 0 {
		t.Fatalf("synced=%d failed=%d, want merged delivery", synced, failed)
	}

	if len(transport.delivered) != 1 {
		t.Fatalf("delivered %d items, want 1", len(transport.delivered))
	}
	merged := transport.delivered[0].Payload
	if merged.Report == nil {
		t.Fatal("merged payload lost its report content")
	}
	wantMetadata := map[string]interface{}{"ward": "icu", "modality": "CR"}
	for k, v := range wantMetadata {
		if merged.Report.Metadata[k] != v {
			t.Errorf("metadata[%s] = %v, want %v", k, merged.Report.Metadata[k], v)
		}
	}
}

func TestReconcilerHoldsConflictForReview(t *testing.T) {
	localModified := time.Date(2025, 3, 10, 7, 0, 0, 0, time.UTC)
	remoteModified := localModified.Add(30 * time.Minute)

	remote := reportPayload("rep-2", remoteModified, "draft",
		map[string]interface{}{"findings": "nodule in right upper lobe"}, nil)

	transport := &fakeTransport{}
	e, _ := newTestEngine(t, transport)
	snapshots := &fakeSnapshots{payload: &remote}
	e.SetReconciler(NewReconciler(snapshots, FixedPolicy(conflict.Policy{
		Strategy:         conflict.StrategyUserReview,
		AutoResolveMinor: true,
	}), nil, nil))
	ctx := context.Background()

	local := reportPayload("rep-2", localModified, "draft",
		map[string]interface{}{"findings": "no acute findings"}, nil)
	item, err := e.Enqueue(ctx, EnqueueRequest{
		Type:    domainSync.ItemReport,
		Action:  "update",
		Payload: local,
	})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	if synced, failed := e.RunCycle(ctx); synced != 0 || failed != 1 {
		t.Fatalf("synced=%d failed=%d, want the delivery held", synced, failed)
	}
	if got := transport.deliveredIDs(); len(got) != 0 {
		t.Errorf("transport received %v, want nothing while under review", got)
	}

	stored, err := e.ItemStatus(ctx, item.ID)
	if err != nil {
		t.Fatalf("item status: %v", err)
	}
	if stored.Status != domainSync.StatusPending {
		t.Errorf("status = %s, want pending for a later retry", stored.Status)
	}
	if !strings.Contains(stored.LastError, "user review") {
		t.Errorf("last error = %q, want review message", stored.LastError)
	}
}

func TestReconcilerSkippedForCreates(t *testing.T) {
	transport := &fakeTransport{}
	e, _ := newTestEngine(t, transport)
	snapshots := &fakeSnapshots{err: errors.New("must not be called")}
	e.SetReconciler(NewReconciler(snapshots, FixedPolicy(conflict.DefaultPolicy()), nil, nil))
	ctx := context.Background()

	if _, err := e.Enqueue(ctx, EnqueueRequest{
		Type:    domainSync.ItemReport,
		Action:  "create",
		Payload: domainSync.Payload{Kind: domainSync.PayloadReport, EntityID: "rep-3"},
	}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	if synced, _ := e.RunCycle(ctx); synced != 1 {
		t.Fatal("create must be delivered without reconciliation")
	}
	snapshots.mu.Lock()
	defer snapshots.mu.Unlock()
	if snapshots.calls != 0 {
		t.Errorf("snapshot provider consulted %d times for a create", snapshots.calls)
	}
}

func TestReconcilerToleratesFetchFailure(t *testing.T) {
	transport := &fakeTransport{}
	e, _ := newTestEngine(t, transport)
	snapshots := &fakeSnapshots{err: errors.New("remote snapshot unavailable")}
	e.SetReconciler(NewReconciler(snapshots, FixedPolicy(conflict.DefaultPolicy()), nil, nil))
	ctx := context.Background()

	if _, err := e.Enqueue(ctx, EnqueueRequest{
		Type:    domainSync.ItemReport,
		Action:  "update",
		Payload: domainSync.Payload{Kind: domainSync.PayloadReport, EntityID: "rep-4"},
	}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	if synced, failed := e.RunCycle(ctx); synced != 1 || failed != 0 {
		t.Errorf("synced=%d failed=%d, want delivery despite fetch failure", synced, failed)
	}
}

func TestIsUnresolvedConflict(t *testing.T) {
	err := domainErrors.NewError(domainErrors.CodeConflict, "held", domainErrors.ErrConflictUnresolved)
	if !IsUnresolvedConflict(err) {
		t.Error("wrapped review error not recognized")
	}
	if IsUnresolvedConflict(errors.New("other")) {
		t.Error("unrelated error misclassified")
	}
}
