package remote

import (
	"time"

	domainSync "github.com/jbctechsolutions/medsync/internal/domain/sync"
)

// DefaultBaseURL is the default remote authority endpoint.
const DefaultBaseURL = "http://localhost:8080"

// API endpoints
const (
	EndpointSyncItems = "/api/v1/sync/items"
	EndpointSnapshots = "/api/v1/snapshots"
)

// DeliverRequest is the wire form of a sync item delivery.
type DeliverRequest struct {
	ItemID     string             `json:"item_id"`
	ItemType   string             `json:"item_type"`
	Action     string             `json:"action"`
	Payload    domainSync.Payload `json:"payload"`
	Priority   int                `json:"priority"`
	RetryCount int                `json:"retry_count"`
	CreatedAt  time.Time          `json:"created_at"`
}

// DeliverResponse acknowledges an accepted delivery.
type DeliverResponse struct {
	ItemID     string    `json:"item_id"`
	AcceptedAt time.Time `json:"accepted_at"`
}

// SnapshotResponse carries the remote copy of an entity.
type SnapshotResponse struct {
	EntityID string             `json:"entity_id"`
	Payload  domainSync.Payload `json:"payload"`
}

// ErrorResponse represents an error from the remote authority.
type ErrorResponse struct {
	Error string `json:"error"`
}
