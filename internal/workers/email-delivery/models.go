// internal/workers/email-delivery/models.go
package emaildelivery

// Channel name as it appears in queue messages and metrics labels.
const Channel = "email"

// Delivery statuses recorded in the audit index.
const (
	StatusDelivered    = "delivered"
	StatusFailed       = "failed"
	StatusDeadLettered = "dead_lettered"
)
