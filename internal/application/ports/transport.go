package ports

import (
	"context"

	"github.com/jbctechsolutions/medsync/internal/domain/sync"
)

// TransportPort delivers a sync item to the remote authority. The engine
// treats the outcome as binary; a *errors.DeliveryError return lets the
// transport annotate the failure reason.
type TransportPort interface {
	Deliver(ctx context.Context, item *sync.Item) error
}

// SnapshotProviderPort fetches the remote copy of an entity for conflict
// detection. The returned payload carries the remote modified_at.
type SnapshotProviderPort interface {
	Fetch(ctx context.Context, entityID string) (*sync.Payload, error)
}

// StorageProbePort reports local disk usage for the queue's data
// directory, in megabytes.
type StorageProbePort interface {
	UsedMB() (float64, error)
	AvailableMB() (float64, error)
}
