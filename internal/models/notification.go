package models

import (
	"time"

	"github.com/tracker-tokens/internal/types"
)

// Notification represents a user-facing notification.
// States are {unread, read} with a single one-way transition: once read,
// a notification never becomes unread again.
type Notification struct {
	NotificationID string                 `json:"notificationId"`
	UserID         string                 `json:"userId"`
	Kind           types.NotificationKind `json:"type"`
	Message        string                 `json:"message"`
	Timestamp      time.Time              `json:"timestamp"`
	Read           bool                   `json:"read"`
}
