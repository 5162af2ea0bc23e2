package service

import (
	"context"
	"crypto/sha1"
	"fmt"
	"strings"

	apperrors "github.com/tracker-tokens/internal/errors"
	"github.com/tracker-tokens/internal/logging"
	"github.com/tracker-tokens/internal/models"
	"github.com/tracker-tokens/internal/types"
)

// HashPrefixLength is the number of leading hex characters disclosed to the
// breach provider. The provider never sees the full hash, only this prefix.
const HashPrefixLength = 5

// RangeCandidate is one entry of a k-anonymity range response: a hash suffix
// sharing the queried prefix, plus the breach records attached to it.
type RangeCandidate struct {
	Suffix   string
	Breaches []*models.BreachResult
}

// RangeProvider is the contract with the external breach-intelligence
// provider. Implementations receive only a hash prefix, never the email or
// the full hash.
type RangeProvider interface {
	QueryRange(ctx context.Context, prefix string) ([]*RangeCandidate, error)
}

// UserChecker verifies that a user exists before a notification is raised on
// their behalf.
type UserChecker interface {
	Exists(ctx context.Context, userID string) (bool, error)
}

// Notifier creates notifications for breach hits.
type Notifier interface {
	Create(ctx context.Context, input *CreateInput) (*models.Notification, error)
}

// BreachService implements the privacy-preserving breach lookup. The raw
// email never leaves the process: only a short hash prefix is transmitted,
// and suffix matching happens locally.
type BreachService struct {
	provider RangeProvider
	users    UserChecker
	notifier Notifier
	logger   *logging.Logger
}

// NewBreachService creates a new breach-check service
func NewBreachService(provider RangeProvider, users UserChecker, notifier Notifier, logger *logging.Logger) *BreachService {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &BreachService{
		provider: provider,
		users:    users,
		notifier: notifier,
		logger:   logger,
	}
}

// HashEmail computes the protocol hash of an email: SHA-1 over the trimmed,
// lower-cased address, encoded as uppercase hex.
func HashEmail(email string) string {
	normalized := strings.ToLower(strings.TrimSpace(email))
	sum := sha1.Sum([]byte(normalized))
	return strings.ToUpper(fmt.Sprintf("%x", sum))
}

// CheckEmail runs a k-anonymity breach lookup for the given email. An empty
// result means the email was not found in any known breach; provider failures
// surface as GatewayUnavailable and are never conflated with an empty result.
func (s *BreachService) CheckEmail(ctx context.Context, email string) ([]*models.BreachResult, error) {
	if strings.TrimSpace(email) == "" {
		return nil, apperrors.NewInvalidArgumentError("email", "must not be empty")
	}
	if !strings.Contains(email, "@") {
		return nil, apperrors.NewInvalidArgumentError("email", "must be a valid email address")
	}

	hash := HashEmail(email)
	prefix := hash[:HashPrefixLength]
	suffix := hash[HashPrefixLength:]

	candidates, err := s.provider.QueryRange(ctx, prefix)
	if err != nil {
		return nil, err
	}

	// Suffix comparison happens here, not at the provider. The provider only
	// ever learns the prefix.
	results := []*models.BreachResult{}
	for _, candidate := range candidates {
		if strings.EqualFold(candidate.Suffix, suffix) {
			results = append(results, candidate.Breaches...)
		}
	}

	s.logger.WithFields(map[string]interface{}{
		"prefix":     prefix,
		"candidates": len(candidates),
		"matches":    len(results),
	}).Debug("Breach range lookup completed")

	return results, nil
}

// CheckResult represents the outcome of a breach check with notification
type CheckResult struct {
	Breaches []*models.BreachResult `json:"breaches"`
	Checked  bool                   `json:"checked"`
	Message  string                 `json:"message"`
}

// CheckAndNotify runs a breach lookup for a registered user and raises a
// dataBreach notification when the result is non-empty. The notification is
// created only after a result is obtained, so a cancelled or failed lookup
// leaves nothing behind.
func (s *BreachService) CheckAndNotify(ctx context.Context, userID string, email string) (*CheckResult, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, apperrors.NewInvalidArgumentError("userId", "must not be empty")
	}

	exists, err := s.users.Exists(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, apperrors.NewNotFoundError("user", userID)
	}

	breaches, err := s.CheckEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	message := "No breaches found. Your email appears secure."
	if len(breaches) > 0 {
		message = fmt.Sprintf("Data breach detected! Your email was found in %d breach(es). Check your account security.", len(breaches))

		if _, err := s.notifier.Create(ctx, &CreateInput{
			UserID:  userID,
			Kind:    types.NotificationDataBreach,
			Message: message,
		}); err != nil {
			// The lookup itself succeeded; log and still return the result.
			s.logger.WithError(err).WithField("user_id", userID).Error("Failed to create breach notification")
		}
	}

	return &CheckResult{
		Breaches: breaches,
		Checked:  true,
		Message:  message,
	}, nil
}
