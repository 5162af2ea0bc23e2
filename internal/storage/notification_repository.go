package storage

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	apperrors "github.com/tracker-tokens/internal/errors"
	"github.com/tracker-tokens/internal/models"
	"github.com/tracker-tokens/internal/types"
)

// pgForeignKeyViolation is the Postgres SQLSTATE for a foreign key violation.
const pgForeignKeyViolation = "23503"

// NotificationRepository persists user notifications.
type NotificationRepository struct {
	db *PostgresDB
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *PostgresDB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create inserts a new notification. The caller assigns the id and timestamp.
// An unknown user surfaces as NotFound rather than a database failure.
func (r *NotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	_, err := r.db.Pool().Exec(ctx, `
		INSERT INTO notifications (notification_id, user_id, kind, message, created_at, read)
		VALUES ($1, $2, $3, $4, $5, $6)
	`,
		n.NotificationID,
		n.UserID,
		string(n.Kind),
		n.Message,
		n.Timestamp,
		n.Read,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
			return apperrors.NewNotFoundError("user", n.UserID)
		}
		return apperrors.NewDatabaseError("notification insert", err)
	}
	return nil
}

// ListByUser returns the user's notifications most recent first.
// When unreadOnly is set, read notifications are excluded.
func (r *NotificationRepository) ListByUser(ctx context.Context, userID string, unreadOnly bool) ([]*models.Notification, error) {
	query := `
		SELECT notification_id, user_id, kind, message, created_at, read
		FROM notifications
		WHERE user_id = $1
	`
	if unreadOnly {
		query += ` AND read = FALSE`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.Pool().Query(ctx, query, userID)
	if err != nil {
		return nil, apperrors.NewDatabaseError("notification list", err)
	}
	defer rows.Close()

	var notifications []*models.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.NewDatabaseError("notification list", err)
	}

	return notifications, nil
}

// MarkRead transitions a notification to read. The transition is one-way and
// idempotent: `read = read OR $2` never clears the flag, and marking an
// already-read notification again simply returns the current record.
func (r *NotificationRepository) MarkRead(ctx context.Context, notificationID string, read bool) (*models.Notification, error) {
	row := r.db.Pool().QueryRow(ctx, `
		UPDATE notifications
		SET read = read OR $2
		WHERE notification_id = $1
		RETURNING notification_id, user_id, kind, message, created_at, read
	`, notificationID, read)

	n, err := scanNotification(row)
	if err != nil {
		var catErr *apperrors.CategorizedError
		if errors.As(err, &catErr) && errors.Is(catErr.Cause, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFoundError("notification", notificationID)
		}
		return nil, err
	}

	return n, nil
}

func scanNotification(row rowScanner) (*models.Notification, error) {
	var (
		n    models.Notification
		kind string
	)

	err := row.Scan(
		&n.NotificationID,
		&n.UserID,
		&kind,
		&n.Message,
		&n.Timestamp,
		&n.Read,
	)
	if err != nil {
		return nil, apperrors.NewDatabaseError("notification scan", err)
	}

	n.Kind = types.NotificationKind(kind)
	return &n, nil
}
