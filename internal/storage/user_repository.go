package storage

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	apperrors "github.com/tracker-tokens/internal/errors"
	"github.com/tracker-tokens/internal/models"
)

// UserRepository handles user data persistence
type UserRepository struct {
	db *PostgresDB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *PostgresDB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user and, when welcome is non-nil, mints the
// welcome-bonus ledger entry in the same database transaction. A user is
// never visible without their bonus, and the bonus never exists without the
// user.
func (r *UserRepository) Create(ctx context.Context, user *models.User, welcome *models.TokenTransaction) error {
	settingsJSON, err := json.Marshal(user.PrivacySettings)
	if err != nil {
		return apperrors.NewInternalError("failed to marshal privacy settings", err)
	}
	flagsJSON, err := json.Marshal(user.DataSharing)
	if err != nil {
		return apperrors.NewInternalError("failed to marshal data sharing flags", err)
	}

	tx, err := r.db.Pool().Begin(ctx)
	if err != nil {
		return apperrors.NewDatabaseError("user create", err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck // no-op after commit

	_, err = tx.Exec(ctx, `
		INSERT INTO users (user_id, eth_address, email_hash, token_balance, privacy_settings, data_sharing_flags, created_at, updated_at)
		VALUES ($1, $2, $3, 0, $4, $5, $6, $7)
	`,
		user.UserID,
		user.EthAddress,
		user.EmailHash,
		settingsJSON,
		flagsJSON,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		return apperrors.NewDatabaseError("user insert", err)
	}

	if welcome != nil {
		if err := insertLedgerEntry(ctx, tx, welcome); err != nil {
			return err
		}
		if err := applyBalanceDelta(ctx, tx, user.UserID, welcome.SignedAmount()); err != nil {
			return err
		}
		user.TokenBalance = welcome.SignedAmount()
	} else {
		user.TokenBalance = decimal.Zero
	}

	if err := tx.Commit(ctx); err != nil {
		return apperrors.NewDatabaseError("user create commit", err)
	}

	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, userID string) (*models.User, error) {
	row := r.db.Pool().QueryRow(ctx, `
		SELECT user_id, eth_address, email_hash, token_balance::text, privacy_settings, data_sharing_flags, created_at, updated_at
		FROM users
		WHERE user_id = $1
	`, userID)

	user, err := scanUser(row)
	if err != nil {
		var catErr *apperrors.CategorizedError
		if errors.As(err, &catErr) && errors.Is(catErr.Cause, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFoundError("user", userID)
		}
		return nil, err
	}

	return user, nil
}

// UpdateSettings merges the provided privacy settings and data sharing flags
// into the user's record. Nil arguments leave the corresponding field as-is.
// The read-merge-write runs in one transaction with the user row locked, so
// concurrent updates to different sections cannot overwrite each other.
func (r *UserRepository) UpdateSettings(ctx context.Context, userID string, settings *models.PrivacySettings, flags *models.DataSharingFlags) (*models.User, error) {
	tx, err := r.db.Pool().Begin(ctx)
	if err != nil {
		return nil, apperrors.NewDatabaseError("settings update", err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck // no-op after commit

	if err := lockUser(ctx, tx, userID); err != nil {
		return nil, err
	}

	var (
		merged      models.User
		settingsRaw []byte
		flagsRaw    []byte
	)
	err = tx.QueryRow(ctx, `
		SELECT privacy_settings, data_sharing_flags
		FROM users
		WHERE user_id = $1
	`, userID).Scan(&settingsRaw, &flagsRaw)
	if err != nil {
		return nil, apperrors.NewDatabaseError("settings read", err)
	}
	if err := json.Unmarshal(settingsRaw, &merged.PrivacySettings); err != nil {
		return nil, apperrors.NewInternalError("failed to unmarshal privacy settings", err)
	}
	if err := json.Unmarshal(flagsRaw, &merged.DataSharing); err != nil {
		return nil, apperrors.NewInternalError("failed to unmarshal data sharing flags", err)
	}

	if settings != nil {
		merged.PrivacySettings = *settings
	}
	if flags != nil {
		merged.DataSharing = *flags
	}

	settingsJSON, err := json.Marshal(merged.PrivacySettings)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to marshal privacy settings", err)
	}
	flagsJSON, err := json.Marshal(merged.DataSharing)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to marshal data sharing flags", err)
	}

	row := tx.QueryRow(ctx, `
		UPDATE users
		SET privacy_settings = $2, data_sharing_flags = $3, updated_at = NOW()
		WHERE user_id = $1
		RETURNING user_id, eth_address, email_hash, token_balance::text, privacy_settings, data_sharing_flags, created_at, updated_at
	`, userID, settingsJSON, flagsJSON)

	updated, err := scanUser(row)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, apperrors.NewDatabaseError("settings update commit", err)
	}

	return updated, nil
}

// Exists checks if a user exists by ID
func (r *UserRepository) Exists(ctx context.Context, userID string) (bool, error) {
	var exists bool
	err := r.db.Pool().QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE user_id = $1)`, userID,
	).Scan(&exists)
	if err != nil {
		return false, apperrors.NewDatabaseError("user existence check", err)
	}
	return exists, nil
}

func scanUser(row rowScanner) (*models.User, error) {
	var (
		user         models.User
		balanceStr   string
		settingsJSON []byte
		flagsJSON    []byte
	)

	err := row.Scan(
		&user.UserID,
		&user.EthAddress,
		&user.EmailHash,
		&balanceStr,
		&settingsJSON,
		&flagsJSON,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, apperrors.NewDatabaseError("user scan", err)
	}

	user.TokenBalance, err = decimal.NewFromString(balanceStr)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to parse token balance", err)
	}

	if err := json.Unmarshal(settingsJSON, &user.PrivacySettings); err != nil {
		return nil, apperrors.NewInternalError("failed to unmarshal privacy settings", err)
	}
	if err := json.Unmarshal(flagsJSON, &user.DataSharing); err != nil {
		return nil, apperrors.NewInternalError("failed to unmarshal data sharing flags", err)
	}

	return &user, nil
}
