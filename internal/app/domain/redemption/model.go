// Package redemption holds the points-for-item purchase record.
package redemption

import "time"

// Status of a redemption. Redemptions settle atomically today, so the
// processor only ever writes StatusCompleted; the other states exist for
// records imported from systems that settle asynchronously.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Redemption records a user spending points to take an item.
type Redemption struct {
	ID         string
	UserID     string
	ItemID     string
	PointsUsed int64
	Status     Status
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
