// Package swap holds the item-for-item exchange model and its state
// machine.
package swap

import "time"

// Status is the swap lifecycle state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusAccepted  Status = "accepted"
	StatusRejected  Status = "rejected"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusRejected, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

// Terminal reports whether no further transition leaves s.
func (s Status) Terminal() bool {
	switch s {
	case StatusRejected, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

// Role is a user's relationship to a swap.
type Role string

const (
	RoleInitiator Role = "initiator"
	RoleReceiver  Role = "receiver"
	RoleNone      Role = "none"
)

// Swap is a proposed exchange: the initiator offers their item for the
// receiver's item. Version increments on every status change and guards
// concurrent transitions.
type Swap struct {
	ID              string
	InitiatorID     string
	ReceiverID      string
	InitiatorItemID string
	ReceiverItemID  string
	Status          Status
	Message         string
	Version         int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// RoleOf returns userID's role in the swap.
func (s Swap) RoleOf(userID string) Role {
	switch userID {
	case s.InitiatorID:
		return RoleInitiator
	case s.ReceiverID:
		return RoleReceiver
	}
	return RoleNone
}
