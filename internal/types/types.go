// Package types provides common type definitions for the tracker tokens engine.
package types

// TransactionKind represents the direction of a token movement in the ledger
type TransactionKind string

const (
	// KindEarn represents tokens credited to a user (rewards, bonuses)
	KindEarn TransactionKind = "earn"
	// KindSpend represents tokens debited by the user
	KindSpend TransactionKind = "spend"
	// KindTransfer represents tokens moved out of the user's balance
	KindTransfer TransactionKind = "transfer"
)

// ValidTransactionKind reports whether k is one of the closed ledger kinds.
// Invalid kinds are rejected at the API boundary, never stored.
func ValidTransactionKind(k TransactionKind) bool {
	switch k {
	case KindEarn, KindSpend, KindTransfer:
		return true
	default:
		return false
	}
}

// NotificationKind represents the category of a user-facing notification
type NotificationKind string

const (
	// NotificationDataBreach represents a breach-check hit on the user's email
	NotificationDataBreach NotificationKind = "dataBreach"
	// NotificationTokenUpdate represents a balance-affecting event
	NotificationTokenUpdate NotificationKind = "tokenUpdate"
	// NotificationPrivacyAlert represents a privacy or settings alert
	NotificationPrivacyAlert NotificationKind = "privacyAlert"
)

// ValidNotificationKind reports whether k is one of the closed notification kinds.
func ValidNotificationKind(k NotificationKind) bool {
	switch k {
	case NotificationDataBreach, NotificationTokenUpdate, NotificationPrivacyAlert:
		return true
	default:
		return false
	}
}

// BlockingLevel represents the tracker blocking aggressiveness for a user
type BlockingLevel string

const (
	// BlockingBasic blocks known malicious trackers only
	BlockingBasic BlockingLevel = "basic"
	// BlockingStandard blocks most advertising and analytics trackers
	BlockingStandard BlockingLevel = "standard"
	// BlockingStrict blocks all trackers
	BlockingStrict BlockingLevel = "strict"
)

// ValidBlockingLevel reports whether l is one of the closed blocking levels.
func ValidBlockingLevel(l BlockingLevel) bool {
	switch l {
	case BlockingBasic, BlockingStandard, BlockingStrict:
		return true
	default:
		return false
	}
}

// TrackerCategory classifies the kind of tracker blocked on a site
type TrackerCategory string

const (
	// TrackerAnalytics represents website analytics and behavior tracking
	TrackerAnalytics TrackerCategory = "analytics"
	// TrackerAdvertising represents ad networks and marketing trackers
	TrackerAdvertising TrackerCategory = "advertising"
	// TrackerSocial represents social media widgets and tracking
	TrackerSocial TrackerCategory = "social"
	// TrackerFingerprinting represents device and browser fingerprinting
	TrackerFingerprinting TrackerCategory = "fingerprinting"
)

// ValidTrackerCategory reports whether c is one of the closed tracker
// categories.
func ValidTrackerCategory(c TrackerCategory) bool {
	switch c {
	case TrackerAnalytics, TrackerAdvertising, TrackerSocial, TrackerFingerprinting:
		return true
	default:
		return false
	}
}

// ServiceError represents a structured error response
type ServiceError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func (e *ServiceError) Error() string {
	return e.Message
}

// Service error codes shared between the service layer and the API boundary.
const (
	// CodeInvalidArgument is returned for missing or malformed input
	CodeInvalidArgument = "INVALID_ARGUMENT"
	// CodeInvalidAmount is returned for non-positive ledger amounts
	CodeInvalidAmount = "INVALID_AMOUNT"
	// CodeNotFound is returned for unknown users, notifications or transactions
	CodeNotFound = "NOT_FOUND"
	// CodeGatewayUnavailable is returned when the breach provider is unreachable
	CodeGatewayUnavailable = "GATEWAY_UNAVAILABLE"
	// CodeInternal is returned for unexpected failures
	CodeInternal = "INTERNAL_ERROR"
)
