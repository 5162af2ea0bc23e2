package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/tracker-tokens/internal/types"
)

// User represents a registered identity in the system.
// UserID is a Farcaster-style identifier ("fc_fid_" prefix); the FID namespace
// is opaque to the engine.
type User struct {
	UserID          string           `json:"userId"`
	EthAddress      string           `json:"ethAddress"`
	EmailHash       *string          `json:"emailHash,omitempty"`
	TokenBalance    decimal.Decimal  `json:"tokenBalance"`
	PrivacySettings PrivacySettings  `json:"privacySettings"`
	DataSharing     DataSharingFlags `json:"optedInDataFlags"`
	CreatedAt       time.Time        `json:"createdAt"`
	UpdatedAt       time.Time        `json:"updatedAt"`
}

// PrivacySettings holds per-user tracker blocking preferences
type PrivacySettings struct {
	BlockingLevel       types.BlockingLevel `json:"blockingLevel"`
	AllowAnalytics      bool                `json:"allowAnalytics"`
	AllowSocial         bool                `json:"allowSocial"`
	AllowAdvertising    bool                `json:"allowAdvertising"`
	AllowFingerprinting bool                `json:"allowFingerprinting"`
}

// DataSharingFlags holds per-user opt-in data sharing consents
type DataSharingFlags struct {
	AnonymizedBrowsing bool `json:"anonymizedBrowsing"`
	AttentionData      bool `json:"attentionData"`
	PerformanceMetrics bool `json:"performanceMetrics"`
}

// DefaultPrivacySettings returns the settings assigned at registration:
// standard blocking with all sharing categories denied.
func DefaultPrivacySettings() PrivacySettings {
	return PrivacySettings{
		BlockingLevel: types.BlockingStandard,
	}
}
