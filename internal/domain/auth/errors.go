package auth

import "errors"

var (
	ErrEmailAlreadyExists   = errors.New("email already registered")
	ErrInvalidCredentials   = errors.New("invalid email or password")
	ErrRefreshTokenRequired = errors.New("refresh token required")
	ErrInvalidRefreshToken  = errors.New("invalid refresh token")
	ErrUserNotFound         = errors.New("user not found")
	ErrInvalidWalletAddress = errors.New("invalid wallet address")
	ErrNonceExpired         = errors.New("nonce expired or not issued")
	ErrInvalidSignature     = errors.New("signature does not match address")
	ErrNullifierTaken       = errors.New("nullifier hash already registered")
	ErrVerificationNotFound = errors.New("world id verification not found")
)
