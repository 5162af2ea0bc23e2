package models

import (
	"time"

	"github.com/tracker-tokens/internal/types"
)

// TrackedSite represents per-(user, site) tracker blocking activity.
// There is exactly one row per (UserID, SiteURL); concurrent recordings of the
// same site increment the same row. Category holds the most recently blocked
// tracker category, empty when the client never reported one.
type TrackedSite struct {
	UserID               string                `json:"userId"`
	SiteURL              string                `json:"siteUrl"`
	BlockedTrackersCount int64                 `json:"blockedTrackersCount"`
	LastVisit            time.Time             `json:"lastVisit"`
	UserConsent          bool                  `json:"userConsent"`
	Category             types.TrackerCategory `json:"category,omitempty"`
}
