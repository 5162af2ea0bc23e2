package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/tracker-tokens/internal/errors"
	"github.com/tracker-tokens/internal/models"
	"github.com/tracker-tokens/internal/types"
)

// NotificationStore is the persistence contract for notifications.
type NotificationStore interface {
	Create(ctx context.Context, n *models.Notification) error
	ListByUser(ctx context.Context, userID string, unreadOnly bool) ([]*models.Notification, error)
	MarkRead(ctx context.Context, notificationID string, read bool) (*models.Notification, error)
}

// NotificationService manages the notification lifecycle: create, list, and
// the one-way unread→read transition.
type NotificationService struct {
	store NotificationStore
}

// NewNotificationService creates a new notification service
func NewNotificationService(store NotificationStore) *NotificationService {
	return &NotificationService{store: store}
}

// CreateInput represents input for creating a notification
type CreateInput struct {
	UserID  string                 `json:"userId"`
	Kind    types.NotificationKind `json:"type"`
	Message string                 `json:"message"`
}

// Create creates a new unread notification with a fresh id and timestamp.
func (s *NotificationService) Create(ctx context.Context, input *CreateInput) (*models.Notification, error) {
	if strings.TrimSpace(input.UserID) == "" {
		return nil, apperrors.NewInvalidArgumentError("userId", "must not be empty")
	}
	if !types.ValidNotificationKind(input.Kind) {
		return nil, apperrors.NewInvalidArgumentError("type", fmt.Sprintf("unknown notification type: %s", input.Kind))
	}
	if strings.TrimSpace(input.Message) == "" {
		return nil, apperrors.NewInvalidArgumentError("message", "must not be empty")
	}

	n := &models.Notification{
		NotificationID: uuid.New().String(),
		UserID:         input.UserID,
		Kind:           input.Kind,
		Message:        input.Message,
		Timestamp:      time.Now().UTC(),
		Read:           false,
	}

	if err := s.store.Create(ctx, n); err != nil {
		return nil, err
	}

	return n, nil
}

// List returns the user's notifications most recent first.
func (s *NotificationService) List(ctx context.Context, userID string, unreadOnly bool) ([]*models.Notification, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, apperrors.NewInvalidArgumentError("userId", "must not be empty")
	}

	notifications, err := s.store.ListByUser(ctx, userID, unreadOnly)
	if err != nil {
		return nil, err
	}
	if notifications == nil {
		notifications = []*models.Notification{}
	}

	return notifications, nil
}

// MarkRead acknowledges a notification. The transition is idempotent and
// one-way: acknowledging twice is a no-op, and read=false never reverts an
// acknowledged notification.
func (s *NotificationService) MarkRead(ctx context.Context, notificationID string, read bool) (*models.Notification, error) {
	if strings.TrimSpace(notificationID) == "" {
		return nil, apperrors.NewInvalidArgumentError("notificationId", "must not be empty")
	}

	return s.store.MarkRead(ctx, notificationID, read)
}
