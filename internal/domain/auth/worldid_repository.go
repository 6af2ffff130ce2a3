package auth

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// WorldIDVerification links a verified World ID nullifier hash to a user.
// The nullifier hash is unique per person and action, so it is the account
// key for World ID logins.
type WorldIDVerification struct {
	ID                uuid.UUID `db:"id"`
	UserID            uuid.UUID `db:"user_id"`
	NullifierHash     string    `db:"nullifier_hash"`
	MerkleRoot        string    `db:"merkle_root"`
	VerificationLevel string    `db:"verification_level"`
	Signal            string    `db:"signal"`
	CreatedAt         time.Time `db:"created_at"`
}

// WorldIDStore persists nullifier-to-user links.
type WorldIDStore interface {
	Create(ctx context.Context, v *WorldIDVerification) error
	GetByNullifier(ctx context.Context, nullifierHash string) (*WorldIDVerification, error)
}

type WorldIDRepository struct {
	db *sqlx.DB
}

func NewWorldIDRepository(db *sqlx.DB) *WorldIDRepository {
	return &WorldIDRepository{db: db}
}

func (r *WorldIDRepository) Create(ctx context.Context, v *WorldIDVerification) error {
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO world_id_verifications (id, user_id, nullifier_hash, merkle_root, verification_level, signal)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, v.ID, v.UserID, v.NullifierHash, v.MerkleRoot, v.VerificationLevel, v.Signal).Scan(&v.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrNullifierTaken
		}
		return err
	}
	return nil
}

func (r *WorldIDRepository) GetByNullifier(ctx context.Context, nullifierHash string) (*WorldIDVerification, error) {
	var v WorldIDVerification
	err := r.db.GetContext(ctx, &v, `
		SELECT * FROM world_id_verifications WHERE nullifier_hash = $1
	`, nullifierHash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrVerificationNotFound
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}
