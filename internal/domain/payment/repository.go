package payment

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// Store persists payment intents. Every status transition is a guarded
// update: the WHERE clause names the states the transition is legal from
// and a zero row count means another request already moved the intent.
type Store interface {
	Create(ctx context.Context, intent *Intent) error
	GetByIDAndUser(ctx context.Context, id, userID uuid.UUID) (*Intent, error)
	MarkProcessing(ctx context.Context, id uuid.UUID, txRef string) (bool, error)
	MarkCancelled(ctx context.Context, id uuid.UUID, reason string) (bool, error)
	MarkFailed(ctx context.Context, id uuid.UUID, txRef, reason string) (bool, error)
	ConfirmAndGrant(ctx context.Context, intent *Intent, status Status, txRef string, observed decimal.Decimal) (bool, error)
}

// CreditGranter applies a credit purchase inside the confirmation transaction.
type CreditGranter interface {
	GrantTx(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, amount int64, referenceID string) error
}

type Repository struct {
	db      *sqlx.DB
	credits CreditGranter
}

func NewRepository(db *sqlx.DB, credits CreditGranter) *Repository {
	return &Repository{db: db, credits: credits}
}

func (r *Repository) Create(ctx context.Context, intent *Intent) error {
	return r.db.QueryRowxContext(ctx, `
		INSERT INTO payment_intents
			(user_id, kind, sender_address, receiver_address, expected_amount, network, status, credits_to_grant, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at
	`, intent.UserID, string(intent.Kind), intent.SenderAddress, intent.ReceiverAddress,
		intent.ExpectedAmount, intent.Network, string(intent.Status), intent.CreditsToGrant,
		intent.ExpiresAt,
	).Scan(&intent.ID, &intent.CreatedAt)
}

func (r *Repository) GetByIDAndUser(ctx context.Context, id, userID uuid.UUID) (*Intent, error) {
	var intent Intent
	err := r.db.GetContext(ctx, &intent, `
		SELECT id, user_id, kind, sender_address, receiver_address, expected_amount,
		       observed_amount, network, status, credits_to_grant, tx_ref,
		       failure_reason, created_at, expires_at, verified_at
		FROM payment_intents
		WHERE id = $1 AND user_id = $2
	`, id, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &intent, nil
}

func (r *Repository) MarkProcessing(ctx context.Context, id uuid.UUID, txRef string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE payment_intents
		SET status = $2, tx_ref = $3
		WHERE id = $1 AND status = $4
	`, id, string(StatusProcessing), txRef, string(StatusPending))
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	return rows > 0, err
}

func (r *Repository) MarkCancelled(ctx context.Context, id uuid.UUID, reason string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE payment_intents
		SET status = $2, failure_reason = $3
		WHERE id = $1 AND status IN ($4, $5)
	`, id, string(StatusCancelled), reason, string(StatusPending), string(StatusProcessing))
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	return rows > 0, err
}

func (r *Repository) MarkFailed(ctx context.Context, id uuid.UUID, txRef, reason string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE payment_intents
		SET status = $2, tx_ref = COALESCE(NULLIF($3, ''), tx_ref), failure_reason = $4
		WHERE id = $1 AND status IN ($5, $6)
	`, id, string(StatusFailed), txRef, reason, string(StatusPending), string(StatusProcessing))
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	return rows > 0, err
}

// ConfirmAndGrant flips the intent to its terminal success state and grants
// the credits in one transaction. A false return means the intent was no
// longer in a confirmable state, so no credits were granted here.
func (r *Repository) ConfirmAndGrant(ctx context.Context, intent *Intent, status Status, txRef string, observed decimal.Decimal) (bool, error) {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	res, err := tx.ExecContext(ctx, `
		UPDATE payment_intents
		SET status = $2, tx_ref = $3, observed_amount = $4, verified_at = $5
		WHERE id = $1 AND status IN ($6, $7)
	`, intent.ID, string(status), txRef, observed, now,
		string(StatusPending), string(StatusProcessing))
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if rows == 0 {
		return false, nil
	}

	if err := r.credits.GrantTx(ctx, tx, intent.UserID, intent.CreditsToGrant, intent.ID.String()); err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}

	intent.Status = status
	intent.TxRef = &txRef
	intent.ObservedAmount = decimal.NullDecimal{Decimal: observed, Valid: true}
	intent.VerifiedAt = &now
	return true, nil
}
