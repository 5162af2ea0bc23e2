package storage

import (
	"context"

	apperrors "github.com/tracker-tokens/internal/errors"
	"github.com/tracker-tokens/internal/models"
	"github.com/tracker-tokens/internal/types"
)

// SiteRepository persists per-(user, site) tracker blocking counters.
type SiteRepository struct {
	db *PostgresDB
}

// NewSiteRepository creates a new tracked site repository
func NewSiteRepository(db *PostgresDB) *SiteRepository {
	return &SiteRepository{db: db}
}

// RecordVisit upserts the (user, site) counter and mints the reward ledger
// entry in a single database transaction. Either both the site row and the
// ledger entry (with its balance effect) are committed, or neither is.
//
// The (user_id, site_url) primary key plus ON CONFLICT increment guarantees a
// single row per pair even under concurrent recordings; the user row lock
// serializes those recordings so counter increments never race.
func (r *SiteRepository) RecordVisit(ctx context.Context, site *models.TrackedSite, entry *models.TokenTransaction) (*models.TrackedSite, error) {
	tx, err := r.db.Pool().Begin(ctx)
	if err != nil {
		return nil, apperrors.NewDatabaseError("visit record", err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck // no-op after commit

	if err := lockUser(ctx, tx, site.UserID); err != nil {
		return nil, err
	}

	var (
		updated  models.TrackedSite
		category string
	)
	err = tx.QueryRow(ctx, `
		INSERT INTO tracked_sites (user_id, site_url, blocked_trackers_count, last_visit, user_consent, tracker_category)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, site_url) DO UPDATE
		SET blocked_trackers_count = tracked_sites.blocked_trackers_count + EXCLUDED.blocked_trackers_count,
		    last_visit = EXCLUDED.last_visit,
		    tracker_category = CASE WHEN EXCLUDED.tracker_category = ''
		        THEN tracked_sites.tracker_category
		        ELSE EXCLUDED.tracker_category END
		RETURNING user_id, site_url, blocked_trackers_count, last_visit, user_consent, tracker_category
	`,
		site.UserID,
		site.SiteURL,
		site.BlockedTrackersCount,
		site.LastVisit,
		site.UserConsent,
		string(site.Category),
	).Scan(
		&updated.UserID,
		&updated.SiteURL,
		&updated.BlockedTrackersCount,
		&updated.LastVisit,
		&updated.UserConsent,
		&category,
	)
	if err != nil {
		return nil, apperrors.NewDatabaseError("site upsert", err)
	}
	updated.Category = types.TrackerCategory(category)

	if err := insertLedgerEntry(ctx, tx, entry); err != nil {
		return nil, err
	}

	if err := applyBalanceDelta(ctx, tx, entry.UserID, entry.SignedAmount()); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, apperrors.NewDatabaseError("visit record commit", err)
	}

	return &updated, nil
}

// ListByUser returns the user's tracked sites ordered by most recent visit.
func (r *SiteRepository) ListByUser(ctx context.Context, userID string) ([]*models.TrackedSite, error) {
	rows, err := r.db.Pool().Query(ctx, `
		SELECT user_id, site_url, blocked_trackers_count, last_visit, user_consent, tracker_category
		FROM tracked_sites
		WHERE user_id = $1
		ORDER BY last_visit DESC
	`, userID)
	if err != nil {
		return nil, apperrors.NewDatabaseError("site list", err)
	}
	defer rows.Close()

	var sites []*models.TrackedSite
	for rows.Next() {
		var (
			site     models.TrackedSite
			category string
		)
		err := rows.Scan(
			&site.UserID,
			&site.SiteURL,
			&site.BlockedTrackersCount,
			&site.LastVisit,
			&site.UserConsent,
			&category,
		)
		if err != nil {
			return nil, apperrors.NewDatabaseError("site scan", err)
		}
		site.Category = types.TrackerCategory(category)
		sites = append(sites, &site)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.NewDatabaseError("site list", err)
	}

	return sites, nil
}
