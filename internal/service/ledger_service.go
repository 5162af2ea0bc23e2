// Package service implements the engine's business logic on top of narrow
// repository interfaces.
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

// Query result size bounds. The default matches what polling clients request.
const (
	DefaultQueryLimit = 10
	MaxQueryLimit     = 100
)

// LedgerStore is the persistence contract for the append-only token ledger.
// Implementations must enforce per-user atomicity: Append serializes writes
// for the same user and applies the balance effect in the same transaction as
// the inserted entry.
type LedgerStore interface {
	Append(ctx context.Context, entry *models.TokenTransaction) error
	QueryByUser(ctx context.Context, userID string, kind *types.TransactionKind, limit int) ([]*models.TokenTransaction, error)
	SumBalance(ctx context.Context, userID string) (decimal.Decimal, error)
	StoredBalance(ctx context.Context, userID string) (decimal.Decimal, error)
}

// BalanceCache caches derived balances. Implementations may be absent (nil
// service field) in which case every read derives from the ledger.
type BalanceCache interface {
	GetBalance(ctx context.Context, userID string) (decimal.Decimal, error)
	SetBalance(ctx context.Context, userID string, balance decimal.Decimal) error
	InvalidateUser(ctx context.Context, userID string) error
}

// LedgerService handles token ledger operations
type LedgerService struct {
	store LedgerStore
	cache BalanceCache
}

// NewLedgerService creates a new ledger service. cache may be nil.
func NewLedgerService(store LedgerStore, cache BalanceCache) *LedgerService {
	return &LedgerService{
		store: store,
		cache: cache,
	}
}

// AppendInput represents input for appending a ledger entry
type AppendInput struct {
	UserID          string                `json:"userId"`
	Kind            types.TransactionKind `json:"type"`
	Amount          decimal.Decimal       `json:"amount"`
	Description     string                `json:"description,omitempty"`
	RelatedEntityID *string               `json:"relatedEntityId,omitempty"`
}

// Append validates and appends a single ledger entry, returning the stored
// transaction with its assigned id and timestamp.
func (s *LedgerService) Append(ctx context.Context, input *AppendInput) (*models.TokenTransaction, error) {
	if strings.TrimSpace(input.UserID) == "" {
		return nil, apperrors.NewInvalidArgumentError("userId", "must not be empty")
	}
	if !types.ValidTransactionKind(input.Kind) {
		return nil, apperrors.NewInvalidArgumentError("type", fmt.Sprintf("unknown transaction type: %s", input.Kind))
	}
	if input.Amount.Sign() <= 0 {
		return nil, apperrors.NewInvalidAmountError(input.Amount.String())
	}

	entry := &models.TokenTransaction{
		UserID:          input.UserID,
		Kind:            input.Kind,
		Amount:          input.Amount,
		Timestamp:       time.Now().UTC(),
		Description:     input.Description,
		RelatedEntityID: input.RelatedEntityID,
	}

	if err := s.store.Append(ctx, entry); err != nil {
		return nil, err
	}

	s.invalidate(ctx, input.UserID)

	return entry, nil
}

// QueryInput represents input for querying the ledger
type QueryInput struct {
	UserID string
	Kind   string // "", "all", or one of the transaction kinds
	Limit  int
}

// QueryResult represents the outcome of a ledger query. Totals cover the
// returned (filtered and limited) transactions, not the full ledger.
type QueryResult struct {
	Transactions []*models.TokenTransaction `json:"transactions"`
	Totals       models.TransactionTotals   `json:"totals"`
	Count        int                        `json:"count"`
}

// Query returns a user's transactions most recent first.
func (s *LedgerService) Query(ctx context.Context, input *QueryInput) (*QueryResult, error) {
	if strings.TrimSpace(input.UserID) == "" {
		return nil, apperrors.NewInvalidArgumentError("userId", "must not be empty")
	}

	var kindFilter *types.TransactionKind
	if input.Kind != "" && input.Kind != "all" {
		kind := types.TransactionKind(input.Kind)
		if !types.ValidTransactionKind(kind) {
			return nil, apperrors.NewInvalidArgumentError("type", fmt.Sprintf("unknown transaction type: %s", input.Kind))
		}
		kindFilter = &kind
	}

	limit := input.Limit
	if limit <= 0 {
		limit = DefaultQueryLimit
	}
	if limit > MaxQueryLimit {
		limit = MaxQueryLimit
	}

	txs, err := s.store.QueryByUser(ctx, input.UserID, kindFilter, limit)
	if err != nil {
		return nil, err
	}
	if txs == nil {
		txs = []*models.TokenTransaction{}
	}

	return &QueryResult{
		Transactions: txs,
		Totals:       models.SumTransactions(txs),
		Count:        len(txs),
	}, nil
}

// BalanceOf returns the user's balance derived from the full ledger history.
// The incremental balance column is checked against the derivation and a
// mismatch is logged; the derived value always wins.
func (s *LedgerService) BalanceOf(ctx context.Context, userID string) (decimal.Decimal, error) {
	if strings.TrimSpace(userID) == "" {
		return decimal.Zero, apperrors.NewInvalidArgumentError("userId", "must not be empty")
	}

	if s.cache != nil {
		if balance, err := s.cache.GetBalance(ctx, userID); err == nil {
			return balance, nil
		}
	}

	derived, err := s.store.SumBalance(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}

	stored, err := s.store.StoredBalance(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}
	if !derived.Equal(stored) {
		logging.FromContext(ctx).WithFields(map[string]interface{}{
			"userId":  userID,
			"derived": derived.String(),
			"stored":  stored.String(),
		}).Error("ledger balance mismatch, serving derived value")
	}

	if s.cache != nil {
		if err := s.cache.SetBalance(ctx, userID, derived); err != nil {
			logging.FromContext(ctx).WithError(err).Warn("failed to cache balance")
		}
	}

	return derived, nil
}

// invalidate drops cached values after a committed write so subsequent reads
// observe it. Cache failures degrade to recomputation after TTL expiry.
func (s *LedgerService) invalidate(ctx context.Context, userID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateUser(ctx, userID); err != nil {
		logging.FromContext(ctx).WithError(err).WithField("userId", userID).Warn("failed to invalidate balance cache")
	}
}
