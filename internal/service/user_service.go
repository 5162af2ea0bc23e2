package service

import (
	"context"
	"crypto/sha256"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	apperrors "github.com/tracker-tokens/internal/errors"
	"github.com/tracker-tokens/internal/logging"
	"github.com/tracker-tokens/internal/models"
	"github.com/tracker-tokens/internal/types"
)

// userIDPrefix namespaces internal identifiers after the Farcaster FID scheme.
const userIDPrefix = "fc_fid_"

// UserStore is the persistence contract for users.
type UserStore interface {
	Create(ctx context.Context, user *models.User, welcome *models.TokenTransaction) error
	GetByID(ctx context.Context, userID string) (*models.User, error)
	UpdateSettings(ctx context.Context, userID string, settings *models.PrivacySettings, flags *models.DataSharingFlags) (*models.User, error)
	Exists(ctx context.Context, userID string) (bool, error)
}

// UserService handles registration and settings management.
type UserService struct {
	users        UserStore
	cache        BalanceCache
	welcomeBonus decimal.Decimal
}

// NewUserService creates a new user service. welcomeBonus is the amount of TT
// minted atomically with registration; zero disables the bonus.
func NewUserService(users UserStore, cache BalanceCache, welcomeBonus decimal.Decimal) *UserService {
	return &UserService{
		users:        users,
		cache:        cache,
		welcomeBonus: welcomeBonus,
	}
}

// RegisterInput represents input for user registration
type RegisterInput struct {
	EthAddress string `json:"ethAddress"`
	Email      string `json:"email,omitempty"`
}

// Register creates a new user with default privacy settings and mints the
// welcome bonus in the same transaction. The raw email is hashed immediately
// and never stored.
func (s *UserService) Register(ctx context.Context, input *RegisterInput) (*models.User, error) {
	if strings.TrimSpace(input.EthAddress) == "" {
		return nil, apperrors.NewInvalidArgumentError("ethAddress", "must not be empty")
	}
	if !common.IsHexAddress(input.EthAddress) {
		return nil, apperrors.NewInvalidArgumentError("ethAddress", fmt.Sprintf("not a valid Ethereum address: %s", input.EthAddress))
	}

	now := time.Now().UTC()
	user := &models.User{
		UserID:          userIDPrefix + uuid.New().String(),
		EthAddress:      input.EthAddress,
		PrivacySettings: models.DefaultPrivacySettings(),
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if email := strings.TrimSpace(input.Email); email != "" {
		if !strings.Contains(email, "@") {
			return nil, apperrors.NewInvalidArgumentError("email", "must be a valid email address")
		}
		hash := hashEmailSHA256(email)
		user.EmailHash = &hash
	}

	var welcome *models.TokenTransaction
	if s.welcomeBonus.IsPositive() {
		welcome = &models.TokenTransaction{
			UserID:      user.UserID,
			Kind:        types.KindEarn,
			Amount:      s.welcomeBonus,
			Timestamp:   now,
			Description: "Welcome bonus",
		}
	}

	if err := s.users.Create(ctx, user, welcome); err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.InvalidateUser(ctx, user.UserID); err != nil {
			logging.FromContext(ctx).WithError(err).WithField("userId", user.UserID).Warn("failed to invalidate balance cache")
		}
	}

	return user, nil
}

// Get retrieves a user by ID
func (s *UserService) Get(ctx context.Context, userID string) (*models.User, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, apperrors.NewInvalidArgumentError("userId", "must not be empty")
	}
	return s.users.GetByID(ctx, userID)
}

// Exists checks if a user exists by ID
func (s *UserService) Exists(ctx context.Context, userID string) (bool, error) {
	return s.users.Exists(ctx, userID)
}

// UpdateSettingsInput represents input for a settings update. Nil fields are
// left unchanged.
type UpdateSettingsInput struct {
	PrivacySettings *models.PrivacySettings  `json:"privacySettings,omitempty"`
	DataSharing     *models.DataSharingFlags `json:"optedInDataFlags,omitempty"`
}

// UpdateSettings merges new privacy settings and data sharing flags into the
// user's record.
func (s *UserService) UpdateSettings(ctx context.Context, userID string, input *UpdateSettingsInput) (*models.User, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, apperrors.NewInvalidArgumentError("userId", "must not be empty")
	}
	if input.PrivacySettings != nil && !types.ValidBlockingLevel(input.PrivacySettings.BlockingLevel) {
		return nil, apperrors.NewInvalidArgumentError("blockingLevel", fmt.Sprintf("unknown blocking level: %s", input.PrivacySettings.BlockingLevel))
	}

	return s.users.UpdateSettings(ctx, userID, input.PrivacySettings, input.DataSharing)
}

// hashEmailSHA256 hashes an email for at-rest storage. This is distinct from
// the SHA-1 protocol hash used for breach-feed range queries.
func hashEmailSHA256(email string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(email))))
	return fmt.Sprintf("%x", sum)
}
