package service

import (
	"context"
	"sort"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "github.com/tracker-tokens/internal/errors"
	"github.com/tracker-tokens/internal/models"
	"github.com/tracker-tokens/internal/types"
)

// fakeSiteStore mirrors the Postgres repository's upsert-plus-mint semantics
// in memory: one row per (user, site), ledger entry applied atomically with
// the counter increment.
type fakeSiteStore struct {
	sites    map[string]*models.TrackedSite // key: userID + "|" + siteURL
	ledger   *fakeLedgerStore
	failNext bool
}

func newFakeSiteStore(ledger *fakeLedgerStore) *fakeSiteStore {
	return &fakeSiteStore{
		sites:  make(map[string]*models.TrackedSite),
		ledger: ledger,
	}
}

func (s *fakeSiteStore) RecordVisit(ctx context.Context, site *models.TrackedSite, entry *models.TokenTransaction) (*models.TrackedSite, error) {
	if s.failNext {
		s.failNext = false
		return nil, apperrors.NewDatabaseError("record visit", nil)
	}
	if !s.ledger.users[site.UserID] {
		return nil, apperrors.NewNotFoundError("user", site.UserID)
	}

	key := site.UserID + "|" + site.SiteURL
	existing, ok := s.sites[key]
	if ok {
		existing.BlockedTrackersCount += site.BlockedTrackersCount
		existing.LastVisit = site.LastVisit
		if site.Category != "" {
			existing.Category = site.Category
		}
	} else {
		copied := *site
		existing = &copied
		s.sites[key] = existing
	}

	if err := s.ledger.Append(ctx, entry); err != nil {
		return nil, err
	}

	result := *existing
	return &result, nil
}

func (s *fakeSiteStore) ListByUser(ctx context.Context, userID string) ([]*models.TrackedSite, error) {
	var out []*models.TrackedSite
	for _, site := range s.sites {
		if site.UserID == userID {
			copied := *site
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastVisit.After(out[j].LastVisit)
	})
	return out, nil
}

func TestRecordVisit_RejectsMissingFields(t *testing.T) {
	ledger := newFakeLedgerStore("u1")
	svc := NewEngagementService(newFakeSiteStore(ledger), nil, decimal.RequireFromString("0.01"))
	ctx := context.Background()

	_, err := svc.RecordVisit(ctx, &RecordVisitInput{UserID: "", SiteURL: "a.com"})
	assert.Equal(t, types.CodeInvalidArgument, apperrors.Categorize(err).Code)

	_, err = svc.RecordVisit(ctx, &RecordVisitInput{UserID: "u1", SiteURL: "  "})
	assert.Equal(t, types.CodeInvalidArgument, apperrors.Categorize(err).Code)

	// Validation failures happen before any mutation
	assert.Empty(t, ledger.entries)
}

func TestRecordVisit_TrackerCategory(t *testing.T) {
	ledger := newFakeLedgerStore("u1")
	svc := NewEngagementService(newFakeSiteStore(ledger), nil, decimal.RequireFromString("0.01"))
	ctx := context.Background()

	// Unknown categories are rejected before any mutation
	_, err := svc.RecordVisit(ctx, &RecordVisitInput{UserID: "u1", SiteURL: "a.com", Category: "adware"})
	assert.Equal(t, types.CodeInvalidArgument, apperrors.Categorize(err).Code)
	assert.Empty(t, ledger.entries)

	// A valid category is stored with the site
	result, err := svc.RecordVisit(ctx, &RecordVisitInput{
		UserID:   "u1",
		SiteURL:  "a.com",
		Category: types.TrackerAdvertising,
	})
	require.NoError(t, err)
	assert.Equal(t, types.TrackerAdvertising, result.Site.Category)

	// Omitting the category on a later visit keeps the recorded one
	result, err = svc.RecordVisit(ctx, &RecordVisitInput{UserID: "u1", SiteURL: "a.com"})
	require.NoError(t, err)
	assert.Equal(t, types.TrackerAdvertising, result.Site.Category)
}

func TestRecordVisit_WelcomeBonusScenario(t *testing.T) {
	// User starts at 10 TT (welcome bonus); blocking 5 trackers at rate 0.01
	// earns 0.05 and brings the balance to 10.05.
	ledger := newFakeLedgerStore("u1")
	ledgerSvc := NewLedgerService(ledger, nil)
	ctx := context.Background()

	_, err := ledgerSvc.Append(ctx, &AppendInput{
		UserID:      "u1",
		Kind:        types.KindEarn,
		Amount:      decimal.NewFromInt(10),
		Description: "Welcome bonus",
	})
	require.NoError(t, err)

	svc := NewEngagementService(newFakeSiteStore(ledger), nil, decimal.RequireFromString("0.01"))

	result, err := svc.RecordVisit(ctx, &RecordVisitInput{
		UserID:               "u1",
		SiteURL:              "a.com",
		BlockedTrackersCount: 5,
	})
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.True(t, result.TokensEarned.Equal(decimal.RequireFromString("0.05")), "got %s", result.TokensEarned)

	balance, err := ledgerSvc.BalanceOf(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.RequireFromString("10.05")), "got %s", balance)

	// The mint is an earn entry pointing back at the site
	minted := ledger.entries[len(ledger.entries)-1]
	assert.Equal(t, types.KindEarn, minted.Kind)
	require.NotNil(t, minted.RelatedEntityID)
	assert.Equal(t, "a.com", *minted.RelatedEntityID)
}

func TestRecordVisit_DefaultsToOneTracker(t *testing.T) {
	ledger := newFakeLedgerStore("u1")
	store := newFakeSiteStore(ledger)
	svc := NewEngagementService(store, nil, decimal.RequireFromString("0.01"))

	result, err := svc.RecordVisit(context.Background(), &RecordVisitInput{
		UserID:               "u1",
		SiteURL:              "a.com",
		BlockedTrackersCount: 0,
	})
	require.NoError(t, err)

	assert.Equal(t, int64(1), result.Site.BlockedTrackersCount)
	assert.True(t, result.TokensEarned.Equal(decimal.RequireFromString("0.01")))

	result, err = svc.RecordVisit(context.Background(), &RecordVisitInput{
		UserID:               "u1",
		SiteURL:              "a.com",
		BlockedTrackersCount: -7,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.Site.BlockedTrackersCount)
}

func TestRecordVisit_UpsertsSingleRow(t *testing.T) {
	ledger := newFakeLedgerStore("u1")
	store := newFakeSiteStore(ledger)
	svc := NewEngagementService(store, nil, decimal.RequireFromString("0.01"))
	ctx := context.Background()

	for _, n := range []int64{5, 3, 2} {
		_, err := svc.RecordVisit(ctx, &RecordVisitInput{
			UserID:               "u1",
			SiteURL:              "a.com",
			BlockedTrackersCount: n,
		})
		require.NoError(t, err)
	}

	sites, err := svc.ListSites(ctx, "u1")
	require.NoError(t, err)

	require.Len(t, sites, 1)
	assert.Equal(t, int64(10), sites[0].BlockedTrackersCount)
}

func TestRecordVisit_UnknownUser(t *testing.T) {
	ledger := newFakeLedgerStore("u1")
	svc := NewEngagementService(newFakeSiteStore(ledger), nil, decimal.RequireFromString("0.01"))

	_, err := svc.RecordVisit(context.Background(), &RecordVisitInput{
		UserID:  "ghost",
		SiteURL: "a.com",
	})
	require.Error(t, err)
	assert.Equal(t, types.CodeNotFound, apperrors.Categorize(err).Code)
}

func TestRecordVisit_InvalidatesCache(t *testing.T) {
	ledger := newFakeLedgerStore("u1")
	cache := newFakeBalanceCache()
	cache.values["u1"] = decimal.NewFromInt(10)
	svc := NewEngagementService(newFakeSiteStore(ledger), cache, decimal.RequireFromString("0.01"))

	_, err := svc.RecordVisit(context.Background(), &RecordVisitInput{
		UserID:  "u1",
		SiteURL: "a.com",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"u1"}, cache.invalidated)
}

func TestListSites_OrderedByLastVisitDesc(t *testing.T) {
	ledger := newFakeLedgerStore("u1")
	store := newFakeSiteStore(ledger)
	svc := NewEngagementService(store, nil, decimal.RequireFromString("0.01"))
	ctx := context.Background()

	for _, site := range []string{"a.com", "b.com", "c.com"} {
		_, err := svc.RecordVisit(ctx, &RecordVisitInput{UserID: "u1", SiteURL: site})
		require.NoError(t, err)
	}

	sites, err := svc.ListSites(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, sites, 3)
	for i := 1; i < len(sites); i++ {
		assert.False(t, sites[i].LastVisit.After(sites[i-1].LastVisit))
	}
}

// Property: for any sequence of visits, the final counter equals the sum of
// the per-visit counts (default-of-1 rule applied), and the balance increases
// by exactly sum × rate.
func TestRecordVisit_CounterAndBalanceProperties(t *testing.T) {
	rate := decimal.RequireFromString("0.01")

	properties := gopter.NewProperties(nil)

	properties.Property("counter equals sum of counts, balance equals sum times rate", prop.ForAll(
		func(counts []int64) bool {
			ledger := newFakeLedgerStore("u1")
			svc := NewEngagementService(newFakeSiteStore(ledger), nil, rate)
			ctx := context.Background()

			expected := int64(0)
			for _, n := range counts {
				if _, err := svc.RecordVisit(ctx, &RecordVisitInput{
					UserID:               "u1",
					SiteURL:              "a.com",
					BlockedTrackersCount: n,
				}); err != nil {
					return false
				}
				if n <= 0 {
					expected++
				} else {
					expected += n
				}
			}

			sites, err := svc.ListSites(ctx, "u1")
			if err != nil {
				return false
			}
			if len(counts) == 0 {
				return len(sites) == 0
			}
			if len(sites) != 1 || sites[0].BlockedTrackersCount != expected {
				return false
			}

			balance, err := ledger.SumBalance(ctx, "u1")
			if err != nil {
				return false
			}
			return balance.Equal(rate.Mul(decimal.NewFromInt(expected)))
		},
		gen.SliceOf(gen.Int64Range(-3, 50)),
	))

	properties.TestingRun(t)
}

// Property: balance always equals earned minus spent minus transferred over
// the full history, regardless of the order entries arrive in.
func TestLedger_BalanceMatchesSignedSum(t *testing.T) {
	properties := gopter.NewProperties(nil)

	kinds := []types.TransactionKind{types.KindEarn, types.KindSpend, types.KindTransfer}

	properties.Property("stored and derived balances agree", prop.ForAll(
		func(moves []int) bool {
			store := newFakeLedgerStore("u1")
			svc := NewLedgerService(store, nil)
			ctx := context.Background()

			expected := decimal.Zero
			for i, m := range moves {
				kind := kinds[i%len(kinds)]
				amount := decimal.NewFromInt(int64(m))
				if _, err := svc.Append(ctx, &AppendInput{
					UserID: "u1",
					Kind:   kind,
					Amount: amount,
				}); err != nil {
					return false
				}
				if kind == types.KindEarn {
					expected = expected.Add(amount)
				} else {
					expected = expected.Sub(amount)
				}
			}

			derived, err := svc.BalanceOf(ctx, "u1")
			if err != nil {
				return false
			}
			stored, err := store.StoredBalance(ctx, "u1")
			if err != nil {
				return false
			}
			return derived.Equal(expected) && stored.Equal(expected)
		},
		gen.SliceOf(gen.IntRange(1, 1000)),
	))

	properties.TestingRun(t)
}
