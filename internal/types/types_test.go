package types

import "testing"

func TestValidTransactionKind(t *testing.T) {
	valid := []TransactionKind{KindEarn, KindSpend, KindTransfer}
	for _, k := range valid {
		if !ValidTransactionKind(k) {
			t.Errorf("Expected %q to be valid", k)
		}
	}

	invalid := []TransactionKind{"", "refund", "EARN", "Earn "}
	for _, k := range invalid {
		if ValidTransactionKind(k) {
			t.Errorf("Expected %q to be invalid", k)
		}
	}
}

func TestValidNotificationKind(t *testing.T) {
	valid := []NotificationKind{NotificationDataBreach, NotificationTokenUpdate, NotificationPrivacyAlert}
	for _, k := range valid {
		if !ValidNotificationKind(k) {
			t.Errorf("Expected %q to be valid", k)
		}
	}

	if ValidNotificationKind("databreach") {
		t.Error("Kind matching is case sensitive")
	}
	if ValidNotificationKind("") {
		t.Error("Empty kind must be invalid")
	}
}

func TestValidBlockingLevel(t *testing.T) {
	for _, l := range []BlockingLevel{BlockingBasic, BlockingStandard, BlockingStrict} {
		if !ValidBlockingLevel(l) {
			t.Errorf("Expected %q to be valid", l)
		}
	}
	if ValidBlockingLevel("paranoid") {
		t.Error("Unknown level must be invalid")
	}
}

func TestValidTrackerCategory(t *testing.T) {
	for _, c := range []TrackerCategory{TrackerAnalytics, TrackerAdvertising, TrackerSocial, TrackerFingerprinting} {
		if !ValidTrackerCategory(c) {
			t.Errorf("Expected %q to be valid", c)
		}
	}
	if ValidTrackerCategory("adware") {
		t.Error("Unknown category must be invalid")
	}
	if ValidTrackerCategory("") {
		t.Error("Empty category must be invalid")
	}
}
