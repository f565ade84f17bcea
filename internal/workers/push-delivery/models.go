// internal/workers/push-delivery/models.go
package pushdelivery

// Channel name as it appears in queue messages and metrics labels.
const Channel = "push"

// Delivery statuses recorded in the audit index.
const (
	StatusDelivered    = "delivered"
	StatusFailed       = "failed"
	StatusDeadLettered = "dead_lettered"
)
