package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/tracker-tokens/internal/types"
)

// TokenTransaction represents a single immutable entry in the token ledger.
// The ledger is append-only: no update or delete path exists anywhere in the
// codebase, and TransactionID is assigned from a strictly increasing sequence.
type TokenTransaction struct {
	TransactionID   int64                 `json:"transactionId"`
	UserID          string                `json:"userId"`
	Kind            types.TransactionKind `json:"type"`
	Amount          decimal.Decimal       `json:"amount"`
	Timestamp       time.Time             `json:"timestamp"`
	Description     string                `json:"description,omitempty"`
	RelatedEntityID *string               `json:"relatedEntityId,omitempty"`
}

// SignedAmount returns the amount as it contributes to the user's balance:
// earn credits, spend and transfer debit.
func (t *TokenTransaction) SignedAmount() decimal.Decimal {
	if t.Kind == types.KindEarn {
		return t.Amount
	}
	return t.Amount.Neg()
}

// TransactionTotals aggregates amounts per kind over a result set
type TransactionTotals struct {
	Earned      decimal.Decimal `json:"earned"`
	Spent       decimal.Decimal `json:"spent"`
	Transferred decimal.Decimal `json:"transferred"`
}

// SumTransactions computes per-kind totals over the given transactions.
// Totals cover exactly the transactions passed in, not the full ledger.
func SumTransactions(txs []*TokenTransaction) TransactionTotals {
	totals := TransactionTotals{
		Earned:      decimal.Zero,
		Spent:       decimal.Zero,
		Transferred: decimal.Zero,
	}
	for _, tx := range txs {
		switch tx.Kind {
		case types.KindEarn:
			totals.Earned = totals.Earned.Add(tx.Amount)
		case types.KindSpend:
			totals.Spent = totals.Spent.Add(tx.Amount)
		case types.KindTransfer:
			totals.Transferred = totals.Transferred.Add(tx.Amount)
		}
	}
	return totals
}
