package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	apperrors "github.com/tracker-tokens/internal/errors"
	"github.com/tracker-tokens/internal/models"
	"github.com/tracker-tokens/internal/types"
)

// LedgerRepository persists the append-only token transaction ledger.
//
// Every mutating operation locks the owning user row FOR UPDATE, which
// serializes concurrent writes for the same user while letting different
// users proceed independently. The incremental balance on the users table is
// maintained in the same transaction as each appended entry, so readers never
// observe a ledger entry without its balance effect or vice versa.
type LedgerRepository struct {
	db *PostgresDB
}

// NewLedgerRepository creates a new ledger repository
func NewLedgerRepository(db *PostgresDB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// Append atomically inserts a ledger entry and applies its signed amount to
// the user's incremental balance. The entry's TransactionID and Timestamp are
// assigned here; all other fields must be set by the caller.
func (r *LedgerRepository) Append(ctx context.Context, entry *models.TokenTransaction) error {
	tx, err := r.db.Pool().Begin(ctx)
	if err != nil {
		return apperrors.NewDatabaseError("ledger append", err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck // no-op after commit

	if err := lockUser(ctx, tx, entry.UserID); err != nil {
		return err
	}

	if err := insertLedgerEntry(ctx, tx, entry); err != nil {
		return err
	}

	if err := applyBalanceDelta(ctx, tx, entry.UserID, entry.SignedAmount()); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return apperrors.NewDatabaseError("ledger append commit", err)
	}

	return nil
}

// QueryByUser returns the user's transactions ordered most recent first,
// optionally filtered by kind and bounded by limit.
func (r *LedgerRepository) QueryByUser(ctx context.Context, userID string, kind *types.TransactionKind, limit int) ([]*models.TokenTransaction, error) {
	if err := r.checkUserExists(ctx, userID); err != nil {
		return nil, err
	}

	query := `
		SELECT transaction_id, user_id, kind, amount::text, created_at, description, related_entity_id
		FROM token_transactions
		WHERE user_id = $1
	`
	args := []interface{}{userID}

	if kind != nil {
		query += ` AND kind = $2`
		args = append(args, string(*kind))
	}

	query += fmt.Sprintf(` ORDER BY created_at DESC, transaction_id DESC LIMIT $%d`, len(args)+1)
	args = append(args, limit)

	rows, err := r.db.Pool().Query(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewDatabaseError("ledger query", err)
	}
	defer rows.Close()

	var txs []*models.TokenTransaction
	for rows.Next() {
		entry, err := scanLedgerEntry(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.NewDatabaseError("ledger query", err)
	}

	return txs, nil
}

// SumBalance derives the user's balance from the full ledger history:
// earn credits, spend and transfer debit. This is the source of truth; the
// incremental users.token_balance column must always agree with it.
func (r *LedgerRepository) SumBalance(ctx context.Context, userID string) (decimal.Decimal, error) {
	if err := r.checkUserExists(ctx, userID); err != nil {
		return decimal.Zero, err
	}

	query := `
		SELECT COALESCE(SUM(
			CASE WHEN kind = 'earn' THEN amount ELSE -amount END
		), 0)::text
		FROM token_transactions
		WHERE user_id = $1
	`

	var balanceStr string
	if err := r.db.Pool().QueryRow(ctx, query, userID).Scan(&balanceStr); err != nil {
		return decimal.Zero, apperrors.NewDatabaseError("balance derivation", err)
	}

	balance, err := decimal.NewFromString(balanceStr)
	if err != nil {
		return decimal.Zero, apperrors.NewInternalError("failed to parse derived balance", err)
	}

	return balance, nil
}

// StoredBalance reads the incrementally maintained balance column.
// Used for reconciliation against SumBalance.
func (r *LedgerRepository) StoredBalance(ctx context.Context, userID string) (decimal.Decimal, error) {
	var balanceStr string
	err := r.db.Pool().QueryRow(ctx,
		`SELECT token_balance::text FROM users WHERE user_id = $1`, userID,
	).Scan(&balanceStr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, apperrors.NewNotFoundError("user", userID)
		}
		return decimal.Zero, apperrors.NewDatabaseError("stored balance read", err)
	}

	balance, err := decimal.NewFromString(balanceStr)
	if err != nil {
		return decimal.Zero, apperrors.NewInternalError("failed to parse stored balance", err)
	}

	return balance, nil
}

func (r *LedgerRepository) checkUserExists(ctx context.Context, userID string) error {
	var exists bool
	err := r.db.Pool().QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE user_id = $1)`, userID,
	).Scan(&exists)
	if err != nil {
		return apperrors.NewDatabaseError("user existence check", err)
	}
	if !exists {
		return apperrors.NewNotFoundError("user", userID)
	}
	return nil
}

// lockUser serializes writes for a single user by locking their row.
// Returns NotFound when the user does not exist.
func lockUser(ctx context.Context, tx pgx.Tx, userID string) error {
	var id string
	err := tx.QueryRow(ctx,
		`SELECT user_id FROM users WHERE user_id = $1 FOR UPDATE`, userID,
	).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFoundError("user", userID)
		}
		return apperrors.NewDatabaseError("user lock", err)
	}
	return nil
}

// insertLedgerEntry inserts a ledger row and fills in the assigned
// transaction id. The entry's timestamp must already be set.
func insertLedgerEntry(ctx context.Context, tx pgx.Tx, entry *models.TokenTransaction) error {
	err := tx.QueryRow(ctx, `
		INSERT INTO token_transactions (user_id, kind, amount, created_at, description, related_entity_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING transaction_id
	`,
		entry.UserID,
		string(entry.Kind),
		entry.Amount.String(),
		entry.Timestamp,
		entry.Description,
		entry.RelatedEntityID,
	).Scan(&entry.TransactionID)
	if err != nil {
		return apperrors.NewDatabaseError("ledger insert", err)
	}
	return nil
}

// applyBalanceDelta applies a signed amount to the incremental balance.
func applyBalanceDelta(ctx context.Context, tx pgx.Tx, userID string, delta decimal.Decimal) error {
	tag, err := tx.Exec(ctx, `
		UPDATE users
		SET token_balance = token_balance + $2::numeric, updated_at = NOW()
		WHERE user_id = $1
	`, userID, delta.String())
	if err != nil {
		return apperrors.NewDatabaseError("balance update", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NewNotFoundError("user", userID)
	}
	return nil
}

// pgx row scanner shared by Query paths
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanLedgerEntry(row rowScanner) (*models.TokenTransaction, error) {
	var (
		entry     models.TokenTransaction
		kind      string
		amountStr string
	)

	err := row.Scan(
		&entry.TransactionID,
		&entry.UserID,
		&kind,
		&amountStr,
		&entry.Timestamp,
		&entry.Description,
		&entry.RelatedEntityID,
	)
	if err != nil {
		return nil, apperrors.NewDatabaseError("ledger scan", err)
	}

	entry.Kind = types.TransactionKind(kind)
	entry.Amount, err = decimal.NewFromString(amountStr)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to parse ledger amount", err)
	}

	return &entry, nil
}
