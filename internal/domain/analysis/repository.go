package analysis

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, p *Prediction) error {
	return r.db.QueryRowxContext(ctx, `
		INSERT INTO prediction_history
			(id, user_id, timeframe, recommendation, entry, stop_loss, take_profit, confidence, reasoning, structured, outcome)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at
	`, p.ID, p.UserID, p.Timeframe, p.Recommendation, p.Entry, p.StopLoss, p.TakeProfit,
		p.Confidence, p.Reasoning, p.Structured, string(p.Outcome),
	).Scan(&p.CreatedAt)
}

func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Prediction, error) {
	preds := []Prediction{}
	err := r.db.SelectContext(ctx, &preds, `
		SELECT id, user_id, timeframe, recommendation, entry, stop_loss, take_profit,
		       confidence, reasoning, structured, outcome, created_at
		FROM prediction_history
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	return preds, err
}

func (r *Repository) GetByIDAndUser(ctx context.Context, id, userID uuid.UUID) (*Prediction, error) {
	var p Prediction
	err := r.db.GetContext(ctx, &p, `
		SELECT id, user_id, timeframe, recommendation, entry, stop_loss, take_profit,
		       confidence, reasoning, structured, outcome, created_at
		FROM prediction_history
		WHERE id = $1 AND user_id = $2
	`, id, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *Repository) UpdateOutcome(ctx context.Context, id, userID uuid.UUID, outcome Outcome) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE prediction_history
		SET outcome = $3
		WHERE id = $1 AND user_id = $2
	`, id, userID, string(outcome))
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}
