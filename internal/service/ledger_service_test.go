package service

import (
	"context"
	"sort"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "github.com/tracker-tokens/internal/errors"
	"github.com/tracker-tokens/internal/models"
	"github.com/tracker-tokens/internal/types"
)

// fakeLedgerStore is an in-memory LedgerStore with the same semantics as the
// Postgres repository: strictly increasing ids, per-user balance maintained
// alongside each append.
type fakeLedgerStore struct {
	entries  []*models.TokenTransaction
	balances map[string]decimal.Decimal
	nextID   int64
	users    map[string]bool
}

func newFakeLedgerStore(users ...string) *fakeLedgerStore {
	s := &fakeLedgerStore{
		balances: make(map[string]decimal.Decimal),
		users:    make(map[string]bool),
		nextID:   1,
	}
	for _, u := range users {
		s.users[u] = true
		s.balances[u] = decimal.Zero
	}
	return s
}

func (s *fakeLedgerStore) Append(ctx context.Context, entry *models.TokenTransaction) error {
	if !s.users[entry.UserID] {
		return apperrors.NewNotFoundError("user", entry.UserID)
	}
	entry.TransactionID = s.nextID
	s.nextID++
	s.entries = append(s.entries, entry)
	s.balances[entry.UserID] = s.balances[entry.UserID].Add(entry.SignedAmount())
	return nil
}

func (s *fakeLedgerStore) QueryByUser(ctx context.Context, userID string, kind *types.TransactionKind, limit int) ([]*models.TokenTransaction, error) {
	var out []*models.TokenTransaction
	for _, e := range s.entries {
		if e.UserID != userID {
			continue
		}
		if kind != nil && e.Kind != *kind {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].TransactionID > out[j].TransactionID
		}
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *fakeLedgerStore) SumBalance(ctx context.Context, userID string) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, e := range s.entries {
		if e.UserID == userID {
			sum = sum.Add(e.SignedAmount())
		}
	}
	return sum, nil
}

func (s *fakeLedgerStore) StoredBalance(ctx context.Context, userID string) (decimal.Decimal, error) {
	return s.balances[userID], nil
}

// fakeBalanceCache records cache interactions.
type fakeBalanceCache struct {
	values             map[string]decimal.Decimal
	invalidated        []string
	setFailures        bool
	invalidateFailures bool
	missEverything     bool
}

func newFakeBalanceCache() *fakeBalanceCache {
	return &fakeBalanceCache{values: make(map[string]decimal.Decimal)}
}

func (c *fakeBalanceCache) GetBalance(ctx context.Context, userID string) (decimal.Decimal, error) {
	if c.missEverything {
		return decimal.Zero, apperrors.NewCacheError("get", nil)
	}
	if v, ok := c.values[userID]; ok {
		return v, nil
	}
	return decimal.Zero, apperrors.NewCacheError("get", nil)
}

func (c *fakeBalanceCache) SetBalance(ctx context.Context, userID string, balance decimal.Decimal) error {
	if c.setFailures {
		return apperrors.NewCacheError("set", nil)
	}
	c.values[userID] = balance
	return nil
}

func (c *fakeBalanceCache) InvalidateUser(ctx context.Context, userID string) error {
	if c.invalidateFailures {
		return apperrors.NewCacheError("invalidate", nil)
	}
	delete(c.values, userID)
	c.invalidated = append(c.invalidated, userID)
	return nil
}

func TestAppend_RejectsInvalidInput(t *testing.T) {
	svc := NewLedgerService(newFakeLedgerStore("u1"), nil)
	ctx := context.Background()

	tests := []struct {
		name  string
		input *AppendInput
		code  string
	}{
		{
			name:  "empty user",
			input: &AppendInput{UserID: "", Kind: types.KindEarn, Amount: decimal.NewFromInt(1)},
			code:  types.CodeInvalidArgument,
		},
		{
			name:  "unknown kind",
			input: &AppendInput{UserID: "u1", Kind: "refund", Amount: decimal.NewFromInt(1)},
			code:  types.CodeInvalidArgument,
		},
		{
			name:  "zero amount",
			input: &AppendInput{UserID: "u1", Kind: types.KindEarn, Amount: decimal.Zero},
			code:  types.CodeInvalidAmount,
		},
		{
			name:  "negative amount",
			input: &AppendInput{UserID: "u1", Kind: types.KindSpend, Amount: decimal.NewFromInt(-5)},
			code:  types.CodeInvalidAmount,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Append(ctx, tt.input)
			require.Error(t, err)
			assert.Equal(t, tt.code, apperrors.Categorize(err).Code)
		})
	}
}

func TestAppend_UnknownUser(t *testing.T) {
	svc := NewLedgerService(newFakeLedgerStore("u1"), nil)

	_, err := svc.Append(context.Background(), &AppendInput{
		UserID: "ghost",
		Kind:   types.KindEarn,
		Amount: decimal.NewFromInt(1),
	})
	require.Error(t, err)
	assert.Equal(t, types.CodeNotFound, apperrors.Categorize(err).Code)
}

func TestAppend_AssignsStrictlyIncreasingIDs(t *testing.T) {
	store := newFakeLedgerStore("u1")
	svc := NewLedgerService(store, nil)
	ctx := context.Background()

	var lastID int64
	for i := 0; i < 5; i++ {
		tx, err := svc.Append(ctx, &AppendInput{
			UserID: "u1",
			Kind:   types.KindEarn,
			Amount: decimal.NewFromInt(1),
		})
		require.NoError(t, err)
		assert.Greater(t, tx.TransactionID, lastID)
		lastID = tx.TransactionID
	}
}

func TestAppend_InvalidatesCache(t *testing.T) {
	cache := newFakeBalanceCache()
	cache.values["u1"] = decimal.NewFromInt(99)
	svc := NewLedgerService(newFakeLedgerStore("u1"), cache)

	_, err := svc.Append(context.Background(), &AppendInput{
		UserID: "u1",
		Kind:   types.KindEarn,
		Amount: decimal.NewFromInt(1),
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"u1"}, cache.invalidated)
	assert.NotContains(t, cache.values, "u1")
}

func TestQuery_RoundTripMostRecentFirst(t *testing.T) {
	store := newFakeLedgerStore("u1")
	svc := NewLedgerService(store, nil)
	ctx := context.Background()

	site := "a.com"
	appended, err := svc.Append(ctx, &AppendInput{
		UserID:          "u1",
		Kind:            types.KindEarn,
		Amount:          decimal.RequireFromString("0.05"),
		Description:     "Blocked 5 trackers on a.com",
		RelatedEntityID: &site,
	})
	require.NoError(t, err)

	_, err = svc.Append(ctx, &AppendInput{
		UserID: "u1",
		Kind:   types.KindSpend,
		Amount: decimal.NewFromInt(2),
	})
	require.NoError(t, err)

	result, err := svc.Query(ctx, &QueryInput{UserID: "u1"})
	require.NoError(t, err)

	require.Equal(t, 2, result.Count)
	// Most recent first: the spend was appended last.
	assert.Equal(t, types.KindSpend, result.Transactions[0].Kind)

	got := result.Transactions[1]
	assert.Equal(t, appended.TransactionID, got.TransactionID)
	assert.Equal(t, appended.Kind, got.Kind)
	assert.True(t, appended.Amount.Equal(got.Amount))
	assert.Equal(t, appended.Description, got.Description)
	assert.Equal(t, appended.Timestamp, got.Timestamp)
	require.NotNil(t, got.RelatedEntityID)
	assert.Equal(t, "a.com", *got.RelatedEntityID)
}

func TestQuery_TotalsCoverFilteredSetOnly(t *testing.T) {
	store := newFakeLedgerStore("u1")
	svc := NewLedgerService(store, nil)
	ctx := context.Background()

	for _, in := range []*AppendInput{
		{UserID: "u1", Kind: types.KindEarn, Amount: decimal.NewFromInt(10)},
		{UserID: "u1", Kind: types.KindSpend, Amount: decimal.NewFromInt(3)},
		{UserID: "u1", Kind: types.KindTransfer, Amount: decimal.NewFromInt(2)},
	} {
		_, err := svc.Append(ctx, in)
		require.NoError(t, err)
	}

	all, err := svc.Query(ctx, &QueryInput{UserID: "u1"})
	require.NoError(t, err)
	assert.True(t, all.Totals.Earned.Equal(decimal.NewFromInt(10)))
	assert.True(t, all.Totals.Spent.Equal(decimal.NewFromInt(3)))
	assert.True(t, all.Totals.Transferred.Equal(decimal.NewFromInt(2)))

	earnOnly, err := svc.Query(ctx, &QueryInput{UserID: "u1", Kind: "earn"})
	require.NoError(t, err)
	assert.Equal(t, 1, earnOnly.Count)
	assert.True(t, earnOnly.Totals.Earned.Equal(decimal.NewFromInt(10)))
	assert.True(t, earnOnly.Totals.Spent.IsZero())
}

func TestQuery_LimitBounds(t *testing.T) {
	store := newFakeLedgerStore("u1")
	svc := NewLedgerService(store, nil)
	ctx := context.Background()

	for i := 0; i < DefaultQueryLimit+5; i++ {
		_, err := svc.Append(ctx, &AppendInput{
			UserID: "u1",
			Kind:   types.KindEarn,
			Amount: decimal.NewFromInt(1),
		})
		require.NoError(t, err)
	}

	defaulted, err := svc.Query(ctx, &QueryInput{UserID: "u1", Limit: 0})
	require.NoError(t, err)
	assert.Equal(t, DefaultQueryLimit, defaulted.Count)

	capped, err := svc.Query(ctx, &QueryInput{UserID: "u1", Limit: MaxQueryLimit + 1000})
	require.NoError(t, err)
	assert.Equal(t, DefaultQueryLimit+5, capped.Count)
}

func TestQuery_RejectsUnknownKindFilter(t *testing.T) {
	svc := NewLedgerService(newFakeLedgerStore("u1"), nil)

	_, err := svc.Query(context.Background(), &QueryInput{UserID: "u1", Kind: "bogus"})
	require.Error(t, err)
	assert.Equal(t, types.CodeInvalidArgument, apperrors.Categorize(err).Code)
}

func TestQuery_AllFilterMatchesNoFilter(t *testing.T) {
	store := newFakeLedgerStore("u1")
	svc := NewLedgerService(store, nil)
	ctx := context.Background()

	_, err := svc.Append(ctx, &AppendInput{UserID: "u1", Kind: types.KindEarn, Amount: decimal.NewFromInt(1)})
	require.NoError(t, err)

	all, err := svc.Query(ctx, &QueryInput{UserID: "u1", Kind: "all"})
	require.NoError(t, err)
	assert.Equal(t, 1, all.Count)
}

func TestBalanceOf_DerivesFromLedger(t *testing.T) {
	store := newFakeLedgerStore("u1")
	svc := NewLedgerService(store, nil)
	ctx := context.Background()

	_, err := svc.Append(ctx, &AppendInput{UserID: "u1", Kind: types.KindEarn, Amount: decimal.NewFromInt(10)})
	require.NoError(t, err)
	_, err = svc.Append(ctx, &AppendInput{UserID: "u1", Kind: types.KindSpend, Amount: decimal.NewFromInt(3)})
	require.NoError(t, err)
	_, err = svc.Append(ctx, &AppendInput{UserID: "u1", Kind: types.KindTransfer, Amount: decimal.NewFromInt(2)})
	require.NoError(t, err)

	balance, err := svc.BalanceOf(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(5)), "got %s", balance)
}

func TestBalanceOf_DerivedWinsOverStoredMismatch(t *testing.T) {
	store := newFakeLedgerStore("u1")
	svc := NewLedgerService(store, nil)
	ctx := context.Background()

	_, err := svc.Append(ctx, &AppendInput{UserID: "u1", Kind: types.KindEarn, Amount: decimal.NewFromInt(10)})
	require.NoError(t, err)

	// Corrupt the incremental column; the ledger is the source of truth.
	store.balances["u1"] = decimal.NewFromInt(999)

	balance, err := svc.BalanceOf(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(10)))
}

func TestBalanceOf_ReadYourWritesThroughCache(t *testing.T) {
	store := newFakeLedgerStore("u1")
	cache := newFakeBalanceCache()
	svc := NewLedgerService(store, cache)
	ctx := context.Background()

	_, err := svc.Append(ctx, &AppendInput{UserID: "u1", Kind: types.KindEarn, Amount: decimal.NewFromInt(10)})
	require.NoError(t, err)

	first, err := svc.BalanceOf(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, first.Equal(decimal.NewFromInt(10)))

	// A write after the cache fill must still be visible immediately.
	_, err = svc.Append(ctx, &AppendInput{UserID: "u1", Kind: types.KindSpend, Amount: decimal.NewFromInt(4)})
	require.NoError(t, err)

	second, err := svc.BalanceOf(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, second.Equal(decimal.NewFromInt(6)), "got %s", second)
}

func TestBalanceOf_CacheSetFailureDegrades(t *testing.T) {
	store := newFakeLedgerStore("u1")
	cache := newFakeBalanceCache()
	cache.missEverything = true
	cache.setFailures = true
	svc := NewLedgerService(store, cache)
	ctx := context.Background()

	_, err := svc.Append(ctx, &AppendInput{UserID: "u1", Kind: types.KindEarn, Amount: decimal.NewFromInt(7)})
	require.NoError(t, err)

	balance, err := svc.BalanceOf(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(7)))
}
