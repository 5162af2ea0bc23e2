package service

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "github.com/tracker-tokens/internal/errors"
	"github.com/tracker-tokens/internal/models"
	"github.com/tracker-tokens/internal/types"
)

// fakeNotificationStore is an in-memory NotificationStore with the one-way
// read transition enforced the same way the Postgres repository does.
type fakeNotificationStore struct {
	notifications map[string]*models.Notification
}

func newFakeNotificationStore() *fakeNotificationStore {
	return &fakeNotificationStore{notifications: make(map[string]*models.Notification)}
}

func (s *fakeNotificationStore) Create(ctx context.Context, n *models.Notification) error {
	copied := *n
	s.notifications[n.NotificationID] = &copied
	return nil
}

func (s *fakeNotificationStore) ListByUser(ctx context.Context, userID string, unreadOnly bool) ([]*models.Notification, error) {
	var out []*models.Notification
	for _, n := range s.notifications {
		if n.UserID != userID {
			continue
		}
		if unreadOnly && n.Read {
			continue
		}
		copied := *n
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out, nil
}

func (s *fakeNotificationStore) MarkRead(ctx context.Context, notificationID string, read bool) (*models.Notification, error) {
	n, ok := s.notifications[notificationID]
	if !ok {
		return nil, apperrors.NewNotFoundError("notification", notificationID)
	}
	// read=false never reverts an acknowledged notification
	n.Read = n.Read || read
	copied := *n
	return &copied, nil
}

func TestCreateNotification_AssignsIDAndUnread(t *testing.T) {
	svc := NewNotificationService(newFakeNotificationStore())

	n, err := svc.Create(context.Background(), &CreateInput{
		UserID:  "u1",
		Kind:    types.NotificationTokenUpdate,
		Message: "You earned 0.05 TT",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, n.NotificationID)
	assert.False(t, n.Read)
	assert.False(t, n.Timestamp.IsZero())
}

func TestCreateNotification_RejectsInvalidInput(t *testing.T) {
	svc := NewNotificationService(newFakeNotificationStore())
	ctx := context.Background()

	tests := []struct {
		name  string
		input *CreateInput
	}{
		{"empty user", &CreateInput{UserID: "", Kind: types.NotificationTokenUpdate, Message: "m"}},
		{"unknown kind", &CreateInput{UserID: "u1", Kind: "spam", Message: "m"}},
		{"empty message", &CreateInput{UserID: "u1", Kind: types.NotificationTokenUpdate, Message: " "}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tt.input)
			require.Error(t, err)
			assert.Equal(t, types.CodeInvalidArgument, apperrors.Categorize(err).Code)
		})
	}
}

func TestMarkRead_IdempotentOneWayTransition(t *testing.T) {
	svc := NewNotificationService(newFakeNotificationStore())
	ctx := context.Background()

	n, err := svc.Create(ctx, &CreateInput{
		UserID:  "u1",
		Kind:    types.NotificationDataBreach,
		Message: "Data breach detected!",
	})
	require.NoError(t, err)

	read, err := svc.MarkRead(ctx, n.NotificationID, true)
	require.NoError(t, err)
	assert.True(t, read.Read)

	// Marking again is a no-op, not an error
	again, err := svc.MarkRead(ctx, n.NotificationID, true)
	require.NoError(t, err)
	assert.True(t, again.Read)

	// read=false never transitions back to unread
	reverted, err := svc.MarkRead(ctx, n.NotificationID, false)
	require.NoError(t, err)
	assert.True(t, reverted.Read)
}

func TestMarkRead_UnknownID(t *testing.T) {
	svc := NewNotificationService(newFakeNotificationStore())

	_, err := svc.MarkRead(context.Background(), "no-such-id", true)
	require.Error(t, err)
	assert.Equal(t, types.CodeNotFound, apperrors.Categorize(err).Code)
}

func TestMarkRead_EmptyID(t *testing.T) {
	svc := NewNotificationService(newFakeNotificationStore())

	_, err := svc.MarkRead(context.Background(), "  ", true)
	require.Error(t, err)
	assert.Equal(t, types.CodeInvalidArgument, apperrors.Categorize(err).Code)
}

func TestList_UnreadOnlyNeverReturnsRead(t *testing.T) {
	svc := NewNotificationService(newFakeNotificationStore())
	ctx := context.Background()

	n, err := svc.Create(ctx, &CreateInput{
		UserID:  "u1",
		Kind:    types.NotificationDataBreach,
		Message: "Data breach detected!",
	})
	require.NoError(t, err)

	unread, err := svc.List(ctx, "u1", true)
	require.NoError(t, err)
	require.Len(t, unread, 1)

	_, err = svc.MarkRead(ctx, n.NotificationID, true)
	require.NoError(t, err)

	unread, err = svc.List(ctx, "u1", true)
	require.NoError(t, err)
	assert.Empty(t, unread)

	// The full list still contains the acknowledged notification
	all, err := svc.List(ctx, "u1", false)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.True(t, all[0].Read)
}

func TestList_EmptyUser(t *testing.T) {
	svc := NewNotificationService(newFakeNotificationStore())

	_, err := svc.List(context.Background(), "", false)
	require.Error(t, err)
	assert.Equal(t, types.CodeInvalidArgument, apperrors.Categorize(err).Code)
}
