package credit

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) EnsureAccount(ctx context.Context, userID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO user_credits (user_id, balance)
		VALUES ($1, 0)
		ON CONFLICT (user_id) DO NOTHING
	`, userID)
	return err
}

func (r *Repository) GetBalance(ctx context.Context, userID uuid.UUID) (int64, error) {
	if err := r.EnsureAccount(ctx, userID); err != nil {
		return 0, err
	}

	var balance int64
	err := r.db.GetContext(ctx, &balance, `SELECT balance FROM user_credits WHERE user_id = $1`, userID)
	return balance, err
}

// GrantTx increments the balance and records a purchase inside an existing
// transaction. Payment confirmation uses it so the status flip and the
// credit grant commit atomically.
func (r *Repository) GrantTx(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, amount int64, referenceID string) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO user_credits (user_id, balance)
		VALUES ($1, 0)
		ON CONFLICT (user_id) DO NOTHING
	`, userID); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE user_credits SET balance = balance + $2, updated_at = now() WHERE user_id = $1
	`, userID, amount); err != nil {
		return err
	}

	return insertTransaction(ctx, tx, userID, amount, TransactionTypePurchase, referenceID)
}

// Deduct atomically withdraws amount if and only if the balance covers it.
func (r *Repository) Deduct(ctx context.Context, userID uuid.UUID, amount int64, referenceID string) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}

	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE user_credits
		SET balance = balance - $2, updated_at = now()
		WHERE user_id = $1 AND balance >= $2
	`, userID, amount)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrInsufficientCredits
	}

	if err := insertTransaction(ctx, tx, userID, -amount, TransactionTypeDeduction, referenceID); err != nil {
		return err
	}

	return tx.Commit()
}

// Refund returns previously deducted credits, typically after a failed analysis.
func (r *Repository) Refund(ctx context.Context, userID uuid.UUID, amount int64, referenceID string) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}

	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		UPDATE user_credits SET balance = balance + $2, updated_at = now() WHERE user_id = $1
	`, userID, amount); err != nil {
		return err
	}

	if err := insertTransaction(ctx, tx, userID, amount, TransactionTypeRefund, referenceID); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *Repository) ListTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Transaction, error) {
	txs := []Transaction{}
	err := r.db.SelectContext(ctx, &txs, `
		SELECT id, user_id, amount, type, reference_id, created_at
		FROM credit_transactions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	return txs, err
}

func insertTransaction(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, amount int64, txType TransactionType, referenceID string) error {
	var ref interface{}
	if referenceID == "" {
		ref = nil
	} else {
		ref = referenceID
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO credit_transactions (user_id, amount, type, reference_id)
		VALUES ($1, $2, $3, $4)
	`, userID, amount, string(txType), ref)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicateReference
		}
		return err
	}
	return nil
}
