package user

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// User represents an account. Password-based and wallet-based accounts share
// the table: a wallet-only account carries no password hash.
type User struct {
	ID            uuid.UUID      `db:"id"`
	Email         string         `db:"email"`
	PasswordHash  sql.NullString `db:"password_hash"`
	WalletAddress sql.NullString `db:"wallet_address"`
	CreatedAt     time.Time      `db:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at"`
}
