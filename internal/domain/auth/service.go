package auth

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/lunapredict/luna-api/internal/domain/user"
	"github.com/lunapredict/luna-api/internal/pkg/jwt"
	"github.com/lunapredict/luna-api/internal/pkg/password"
	"github.com/lunapredict/luna-api/internal/pkg/worldid"
)

// CreditProvisioner opens a zero-balance credit account for new users and
// reports the current balance.
type CreditProvisioner interface {
	EnsureAccount(ctx context.Context, userID uuid.UUID) error
	GetBalance(ctx context.Context, userID uuid.UUID) (int64, error)
}

// ProofVerifier checks a World ID zero-knowledge proof with the Worldcoin
// developer API.
type ProofVerifier interface {
	Verify(ctx context.Context, p worldid.Proof) error
}

// Service handles authentication business logic
type Service struct {
	userRepo   user.Repository
	jwtService *jwt.Service
	redis      *redis.Client
	nonces     *NonceStore
	credits    CreditProvisioner
	verifier   ProofVerifier
	worldIDs   WorldIDStore
}

// NewService creates auth service
func NewService(userRepo user.Repository, jwtService *jwt.Service, rdb *redis.Client, credits CreditProvisioner, verifier ProofVerifier, worldIDs WorldIDStore) *Service {
	return &Service{
		userRepo:   userRepo,
		jwtService: jwtService,
		redis:      rdb,
		nonces:     NewNonceStore(rdb),
		credits:    credits,
		verifier:   verifier,
		worldIDs:   worldIDs,
	}
}

// Register creates a new password-based account
func (s *Service) Register(ctx context.Context, req *RegisterRequest) (*AuthResponse, error) {
	email := normalizeEmail(req.Email)

	existing, _ := s.userRepo.GetByEmail(ctx, email)
	if existing != nil {
		return nil, ErrEmailAlreadyExists
	}

	hash, err := password.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	u := &user.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: sql.NullString{String: hash, Valid: true},
	}
	if err := s.userRepo.Create(ctx, u); err != nil {
		if err == user.ErrEmailTaken {
			return nil, ErrEmailAlreadyExists
		}
		return nil, err
	}

	if err := s.credits.EnsureAccount(ctx, u.ID); err != nil {
		log.Error().Err(err).Str("user_id", u.ID.String()).Msg("failed to provision credit account")
	}

	log.Info().Str("user_id", u.ID.String()).Msg("user registered")
	return s.generateTokens(ctx, u)
}

// Login authenticates a password-based account
func (s *Service) Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error) {
	u, err := s.userRepo.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil || u == nil {
		return nil, ErrInvalidCredentials
	}
	if !u.PasswordHash.Valid || !password.Verify(req.Password, u.PasswordHash.String) {
		return nil, ErrInvalidCredentials
	}

	return s.generateTokens(ctx, u)
}

// WalletNonce issues a single-use nonce the wallet must sign to log in
func (s *Service) WalletNonce(ctx context.Context, address string) (*NonceResponse, error) {
	if !common.IsHexAddress(address) {
		return nil, ErrInvalidWalletAddress
	}

	nonce, err := s.nonces.Issue(ctx, address)
	if err != nil {
		return nil, err
	}
	return &NonceResponse{Nonce: nonce, Message: SignInMessage(nonce)}, nil
}

// WalletLogin verifies a personal signature over the issued nonce and signs
// the wallet in, creating the account on first login.
func (s *Service) WalletLogin(ctx context.Context, req *WalletLoginRequest) (*AuthResponse, error) {
	if !common.IsHexAddress(req.Address) {
		return nil, ErrInvalidWalletAddress
	}

	nonce, err := s.nonces.Consume(ctx, req.Address)
	if err != nil {
		return nil, err
	}

	signer, err := RecoverSigner(SignInMessage(nonce), req.Signature)
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(signer.Hex(), req.Address) {
		return nil, ErrInvalidSignature
	}

	u, err := s.userRepo.GetByWallet(ctx, req.Address)
	if err != nil {
		if err != user.ErrNotFound {
			return nil, err
		}
		u, err = s.provisionWalletUser(ctx, signer.Hex())
		if err != nil {
			return nil, err
		}
	}

	return s.generateTokens(ctx, u)
}

func (s *Service) provisionWalletUser(ctx context.Context, address string) (*user.User, error) {
	u := &user.User{
		ID:            uuid.New(),
		Email:         fmt.Sprintf("%s@wallet.local", strings.ToLower(address)),
		WalletAddress: sql.NullString{String: address, Valid: true},
	}
	if err := s.userRepo.Create(ctx, u); err != nil {
		if err == user.ErrWalletTaken {
			// Lost a race against a concurrent first login.
			return s.userRepo.GetByWallet(ctx, address)
		}
		return nil, err
	}

	if err := s.credits.EnsureAccount(ctx, u.ID); err != nil {
		log.Error().Err(err).Str("user_id", u.ID.String()).Msg("failed to provision credit account")
	}

	log.Info().Str("user_id", u.ID.String()).Str("wallet", address).Msg("wallet user provisioned")
	return u, nil
}

// WorldIDLogin verifies a World ID proof and signs the person in. The
// nullifier hash identifies the account, so a returning person lands on the
// same user no matter which device they verify from.
func (s *Service) WorldIDLogin(ctx context.Context, req *WorldIDLoginRequest) (*AuthResponse, error) {
	err := s.verifier.Verify(ctx, worldid.Proof{
		Proof:             req.Proof,
		MerkleRoot:        req.MerkleRoot,
		NullifierHash:     req.NullifierHash,
		VerificationLevel: req.VerificationLevel,
		Signal:            req.Signal,
	})
	if err != nil {
		return nil, err
	}

	existing, err := s.worldIDs.GetByNullifier(ctx, req.NullifierHash)
	if err == nil {
		u, err := s.userRepo.GetByID(ctx, existing.UserID)
		if err != nil || u == nil {
			return nil, ErrUserNotFound
		}
		return s.generateTokens(ctx, u)
	}
	if err != ErrVerificationNotFound {
		return nil, err
	}

	u, err := s.provisionWorldIDUser(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.generateTokens(ctx, u)
}

func (s *Service) provisionWorldIDUser(ctx context.Context, req *WorldIDLoginRequest) (*user.User, error) {
	u := &user.User{
		ID:    uuid.New(),
		Email: fmt.Sprintf("worldid_%s@worldid.local", nullifierTag(req.NullifierHash)),
	}
	if err := s.userRepo.Create(ctx, u); err != nil {
		return nil, err
	}

	level := req.VerificationLevel
	if level == "" {
		level = "orb"
	}
	err := s.worldIDs.Create(ctx, &WorldIDVerification{
		ID:                uuid.New(),
		UserID:            u.ID,
		NullifierHash:     req.NullifierHash,
		MerkleRoot:        req.MerkleRoot,
		VerificationLevel: level,
		Signal:            req.Signal,
	})
	if err == ErrNullifierTaken {
		// Lost a race against a concurrent first login with the same proof.
		existing, lookupErr := s.worldIDs.GetByNullifier(ctx, req.NullifierHash)
		if lookupErr != nil {
			return nil, lookupErr
		}
		return s.userRepo.GetByID(ctx, existing.UserID)
	}
	if err != nil {
		return nil, err
	}

	if err := s.credits.EnsureAccount(ctx, u.ID); err != nil {
		log.Error().Err(err).Str("user_id", u.ID.String()).Msg("failed to provision credit account")
	}

	log.Info().Str("user_id", u.ID.String()).Msg("world id user provisioned")
	return u, nil
}

// nullifierTag shortens a nullifier hash into an email-safe local part.
func nullifierTag(nullifierHash string) string {
	tag := strings.ToLower(strings.TrimPrefix(nullifierHash, "0x"))
	if len(tag) > 16 {
		tag = tag[:16]
	}
	return tag
}

// Refresh rotates a refresh token and issues a new token pair
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*AuthResponse, error) {
	if refreshToken == "" {
		return nil, ErrRefreshTokenRequired
	}

	claims, err := s.jwtService.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, ErrInvalidRefreshToken
	}

	// Only tokens on the allow-list may refresh. Rotation removes the
	// old entry so a replayed token fails here.
	userID, err := s.getRefreshToken(ctx, claims.ID)
	if err != nil || userID != claims.UserID {
		return nil, ErrInvalidRefreshToken
	}

	u, err := s.userRepo.GetByID(ctx, userID)
	if err != nil || u == nil {
		return nil, ErrUserNotFound
	}

	_ = s.deleteRefreshToken(ctx, claims.ID)
	return s.generateTokens(ctx, u)
}

// Logout invalidates a refresh token
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	claims, err := s.jwtService.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil
	}
	return s.deleteRefreshToken(ctx, claims.ID)
}

// GetCurrentUser returns the authenticated user's profile
func (s *Service) GetCurrentUser(ctx context.Context, userID uuid.UUID) (*MeResponse, error) {
	u, err := s.userRepo.GetByID(ctx, userID)
	if err != nil || u == nil {
		return nil, ErrUserNotFound
	}
	balance, err := s.credits.GetBalance(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &MeResponse{User: newUserResponse(u), Credits: balance}, nil
}

func (s *Service) generateTokens(ctx context.Context, u *user.User) (*AuthResponse, error) {
	accessToken, err := s.jwtService.GenerateAccessToken(u.ID)
	if err != nil {
		return nil, err
	}

	refreshToken, jti, _, err := s.jwtService.GenerateRefreshToken(u.ID)
	if err != nil {
		return nil, err
	}

	if err := s.storeRefreshToken(ctx, jti, u.ID); err != nil {
		return nil, err
	}

	return &AuthResponse{
		User: newUserResponse(u),
		Tokens: TokensResponse{
			AccessToken:  accessToken,
			RefreshToken: refreshToken,
			ExpiresIn:    int(s.jwtService.GetAccessTTL().Seconds()),
		},
	}, nil
}

func newUserResponse(u *user.User) UserResponse {
	resp := UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
	}
	if u.WalletAddress.Valid {
		resp.WalletAddress = u.WalletAddress.String
	}
	return resp
}

func (s *Service) storeRefreshToken(ctx context.Context, jti string, userID uuid.UUID) error {
	return s.redis.Set(ctx, "refresh:"+jti, userID.String(), s.jwtService.GetRefreshTTL()).Err()
}

func (s *Service) getRefreshToken(ctx context.Context, jti string) (uuid.UUID, error) {
	val, err := s.redis.Get(ctx, "refresh:"+jti).Result()
	if err != nil {
		return uuid.Nil, ErrInvalidRefreshToken
	}
	return uuid.Parse(val)
}

func (s *Service) deleteRefreshToken(ctx context.Context, jti string) error {
	return s.redis.Del(ctx, "refresh:"+jti).Err()
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
