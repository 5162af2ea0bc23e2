package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	apperrors "github.com/tracker-tokens/internal/errors"
	"github.com/tracker-tokens/internal/logging"
	"github.com/tracker-tokens/internal/models"
	"github.com/tracker-tokens/internal/types"
)

// SiteStore is the persistence contract for tracked site counters.
// RecordVisit must upsert the (user, site) row and persist the reward ledger
// entry atomically: partial application of either half is not allowed.
type SiteStore interface {
	RecordVisit(ctx context.Context, site *models.TrackedSite, entry *models.TokenTransaction) (*models.TrackedSite, error)
	ListByUser(ctx context.Context, userID string) ([]*models.TrackedSite, error)
}

// EngagementService turns raw site-visit events into idempotent per-site
// counters and token rewards.
type EngagementService struct {
	sites SiteStore
	cache BalanceCache
	rate  decimal.Decimal // TT minted per blocked tracker
}

// NewEngagementService creates a new engagement service. cache may be nil.
func NewEngagementService(sites SiteStore, cache BalanceCache, trackerBlockedRate decimal.Decimal) *EngagementService {
	return &EngagementService{
		sites: sites,
		cache: cache,
		rate:  trackerBlockedRate,
	}
}

// RecordVisitInput represents a single site-visit event. Category is the
// optional tracker category the client reports for the blocked trackers.
type RecordVisitInput struct {
	UserID               string                `json:"userId"`
	SiteURL              string                `json:"siteUrl"`
	BlockedTrackersCount int64                 `json:"blockedTrackersCount"`
	Category             types.TrackerCategory `json:"category,omitempty"`
}

// RecordVisitResult represents the outcome of recording a visit
type RecordVisitResult struct {
	Success      bool                `json:"success"`
	TokensEarned decimal.Decimal     `json:"tokensEarned"`
	Message      string              `json:"message"`
	Site         *models.TrackedSite `json:"site"`
}

// RecordVisit records tracker-blocking activity for a (user, site) pair.
// The first visit creates the counter; subsequent visits increment it. The
// token reward (blockedCount × rate) is minted as an earn ledger entry in the
// same transaction as the counter update.
func (s *EngagementService) RecordVisit(ctx context.Context, input *RecordVisitInput) (*RecordVisitResult, error) {
	if strings.TrimSpace(input.UserID) == "" {
		return nil, apperrors.NewInvalidArgumentError("userId", "must not be empty")
	}
	if strings.TrimSpace(input.SiteURL) == "" {
		return nil, apperrors.NewInvalidArgumentError("siteUrl", "must not be empty")
	}
	if input.Category != "" && !types.ValidTrackerCategory(input.Category) {
		return nil, apperrors.NewInvalidArgumentError("category", fmt.Sprintf("unknown tracker category '%s'", input.Category))
	}

	blocked := input.BlockedTrackersCount
	if blocked <= 0 {
		blocked = 1
	}

	tokensEarned := s.rate.Mul(decimal.NewFromInt(blocked))
	now := time.Now().UTC()
	siteURL := input.SiteURL

	site := &models.TrackedSite{
		UserID:               input.UserID,
		SiteURL:              siteURL,
		BlockedTrackersCount: blocked,
		LastVisit:            now,
		UserConsent:          true,
		Category:             input.Category,
	}

	entry := &models.TokenTransaction{
		UserID:          input.UserID,
		Kind:            types.KindEarn,
		Amount:          tokensEarned,
		Timestamp:       now,
		Description:     fmt.Sprintf("Blocked %d trackers on %s", blocked, siteURL),
		RelatedEntityID: &siteURL,
	}

	updated, err := s.sites.RecordVisit(ctx, site, entry)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.InvalidateUser(ctx, input.UserID); err != nil {
			logging.FromContext(ctx).WithError(err).WithField("userId", input.UserID).Warn("failed to invalidate balance cache")
		}
	}

	return &RecordVisitResult{
		Success:      true,
		TokensEarned: tokensEarned,
		Message:      fmt.Sprintf("Blocked %d trackers and earned %s TT", blocked, tokensEarned.String()),
		Site:         updated,
	}, nil
}

// ListSites returns the user's tracked sites ordered by most recent visit.
func (s *EngagementService) ListSites(ctx context.Context, userID string) ([]*models.TrackedSite, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, apperrors.NewInvalidArgumentError("userId", "must not be empty")
	}

	sites, err := s.sites.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if sites == nil {
		sites = []*models.TrackedSite{}
	}

	return sites, nil
}
