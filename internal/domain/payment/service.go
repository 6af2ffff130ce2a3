package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/lunapredict/luna-api/internal/pkg/evmrpc"
	"github.com/lunapredict/luna-api/internal/pkg/helius"
)

// SolanaOracle answers balance and recent-transaction queries for an address.
type SolanaOracle interface {
	Balance(ctx context.Context, address string) (decimal.Decimal, error)
	RecentTransactions(ctx context.Context, address string, limit int) ([]helius.Transaction, error)
}

// TokenOracle resolves a transaction hash on an EVM network.
type TokenOracle interface {
	TransactionByHash(ctx context.Context, network, hash string) (*ethtypes.Transaction, bool, error)
}

// Config carries the payment terms served to clients.
type Config struct {
	// Native SOL terms.
	SolReceiver string
	SolAmount   decimal.Decimal
	SolCredits  int64

	// WLD token terms.
	WldReceiver    string
	WldToken       string
	WldAmount      decimal.Decimal
	WldCredits     int64
	DefaultNetwork string
	StrictVerify   bool

	// Window is how long an intent stays payable.
	Window time.Duration

	// Lookback is how many recent receiver transactions are scanned per verify.
	Lookback int
}

type Service struct {
	store  Store
	solana SolanaOracle
	tokens TokenOracle
	cfg    Config
}

func NewService(store Store, solana SolanaOracle, tokens TokenOracle, cfg Config) *Service {
	if cfg.Lookback <= 0 {
		cfg.Lookback = 10
	}
	if cfg.Window <= 0 {
		cfg.Window = 2 * time.Minute
	}
	return &Service{store: store, solana: solana, tokens: tokens, cfg: cfg}
}

// InitSolana opens a native SOL payment intent after checking the sender
// wallet can cover the expected amount.
func (s *Service) InitSolana(ctx context.Context, userID uuid.UUID, senderAddress string) (*Intent, error) {
	if !helius.ValidateAddress(senderAddress) {
		return nil, ErrInvalidAddress
	}

	balance, err := s.solana.Balance(ctx, senderAddress)
	if err != nil {
		if errors.Is(err, helius.ErrUnavailable) {
			return nil, fmt.Errorf("%w: %v", ErrOracleUnavailable, err)
		}
		return nil, err
	}
	if balance.LessThan(s.cfg.SolAmount) {
		return nil, &InsufficientFundsError{Required: s.cfg.SolAmount, Available: balance}
	}

	now := time.Now().UTC()
	intent := &Intent{
		UserID:          userID,
		Kind:            KindSolana,
		SenderAddress:   senderAddress,
		ReceiverAddress: s.cfg.SolReceiver,
		ExpectedAmount:  s.cfg.SolAmount,
		Status:          StatusPending,
		CreditsToGrant:  s.cfg.SolCredits,
		ExpiresAt:       now.Add(s.cfg.Window),
	}
	if err := s.store.Create(ctx, intent); err != nil {
		return nil, err
	}

	log.Info().
		Str("payment_id", intent.ID.String()).
		Str("user_id", userID.String()).
		Str("sender", senderAddress).
		Str("amount", s.cfg.SolAmount.String()).
		Msg("solana payment intent created")
	return intent, nil
}

// InitWorldcoin opens a WLD token payment intent on the given network.
func (s *Service) InitWorldcoin(ctx context.Context, userID uuid.UUID, network string) (*Intent, error) {
	if network == "" {
		network = s.cfg.DefaultNetwork
	}
	switch network {
	case evmrpc.NetworkWorldChain, evmrpc.NetworkOptimism:
	default:
		return nil, ErrInvalidNetwork
	}

	now := time.Now().UTC()
	intent := &Intent{
		UserID:          userID,
		Kind:            KindWorldcoin,
		ReceiverAddress: s.cfg.WldReceiver,
		ExpectedAmount:  s.cfg.WldAmount,
		Network:         network,
		Status:          StatusPending,
		CreditsToGrant:  s.cfg.WldCredits,
		ExpiresAt:       now.Add(s.cfg.Window),
	}
	if err := s.store.Create(ctx, intent); err != nil {
		return nil, err
	}

	log.Info().
		Str("payment_id", intent.ID.String()).
		Str("user_id", userID.String()).
		Str("network", network).
		Str("amount", s.cfg.WldAmount.String()).
		Msg("worldcoin payment intent created")
	return intent, nil
}

// Get returns a user's intent without attempting reconciliation.
func (s *Service) Get(ctx context.Context, userID, paymentID uuid.UUID) (*Intent, error) {
	return s.store.GetByIDAndUser(ctx, paymentID, userID)
}

// VerifySolana reconciles a native SOL intent against the receiver's recent
// transactions. Safe to call repeatedly: a settled intent is returned as-is
// and credits are granted at most once.
func (s *Service) VerifySolana(ctx context.Context, userID, paymentID uuid.UUID) (*Intent, error) {
	intent, err := s.store.GetByIDAndUser(ctx, paymentID, userID)
	if err != nil {
		return nil, err
	}
	if intent.Kind != KindSolana {
		return nil, ErrKindMismatch
	}
	if intent.Terminal() {
		return intent, nil
	}
	if expired, err := s.expireIfDue(ctx, intent); expired || err != nil {
		return intent, err
	}

	txs, err := s.solana.RecentTransactions(ctx, intent.ReceiverAddress, s.cfg.Lookback)
	if err != nil {
		if errors.Is(err, helius.ErrUnavailable) {
			// Leave the intent pending. The client keeps polling.
			return intent, fmt.Errorf("%w: %v", ErrOracleUnavailable, err)
		}
		return nil, err
	}

	for i := range txs {
		tx := &txs[i]
		if tx.Timestamp.Before(intent.CreatedAt) || tx.Timestamp.After(intent.ExpiresAt) {
			continue
		}
		if !tx.Involves(intent.SenderAddress) {
			continue
		}
		for _, transfer := range tx.NativeTransfers {
			if transfer.From != intent.SenderAddress || transfer.To != intent.ReceiverAddress {
				continue
			}
			if !intent.AmountMatches(transfer.Amount) {
				continue
			}
			return s.settle(ctx, intent, StatusVerified, tx.Signature, transfer.Amount)
		}
	}

	return intent, nil
}

// VerifyWorldcoin records a submitted transaction hash and reconciles it
// against the chain. The first submission moves the intent to processing;
// repeated calls keep verifying the recorded hash.
func (s *Service) VerifyWorldcoin(ctx context.Context, userID, paymentID uuid.UUID, txHash string) (*Intent, error) {
	intent, err := s.store.GetByIDAndUser(ctx, paymentID, userID)
	if err != nil {
		return nil, err
	}
	if intent.Kind != KindWorldcoin {
		return nil, ErrKindMismatch
	}
	if intent.Terminal() {
		return intent, nil
	}
	if expired, err := s.expireIfDue(ctx, intent); expired || err != nil {
		return intent, err
	}

	if intent.Status == StatusPending {
		if !evmrpc.ValidTxHash(txHash) {
			return nil, ErrInvalidTxHash
		}
		moved, err := s.store.MarkProcessing(ctx, intent.ID, txHash)
		if err != nil {
			return nil, err
		}
		if !moved {
			return s.store.GetByIDAndUser(ctx, intent.ID, userID)
		}
		intent.Status = StatusProcessing
		intent.TxRef = &txHash
	}

	// The recorded hash wins over whatever was submitted on a retry.
	hash := txHash
	if intent.TxRef != nil {
		hash = *intent.TxRef
	}

	tx, pending, err := s.tokens.TransactionByHash(ctx, intent.Network, hash)
	if err != nil {
		if errors.Is(err, evmrpc.ErrTxNotFound) {
			return s.fail(ctx, intent, hash, "transaction not found on chain")
		}
		if errors.Is(err, evmrpc.ErrUnavailable) {
			return intent, fmt.Errorf("%w: %v", ErrOracleUnavailable, err)
		}
		return nil, err
	}
	if pending {
		// Not mined yet. The client keeps polling.
		return intent, nil
	}

	if !s.cfg.StrictVerify {
		return s.settle(ctx, intent, StatusConfirmed, hash, intent.ExpectedAmount)
	}

	transfer, ok := evmrpc.DecodeTransfer(tx)
	if !ok {
		return s.fail(ctx, intent, hash, "not a token transfer")
	}
	if !strings.EqualFold(transfer.Token.Hex(), s.cfg.WldToken) {
		return s.fail(ctx, intent, hash, "wrong token contract")
	}
	if !strings.EqualFold(transfer.Recipient.Hex(), intent.ReceiverAddress) {
		return s.fail(ctx, intent, hash, "wrong recipient")
	}
	if !intent.AmountMatches(transfer.Amount) {
		return s.fail(ctx, intent, hash, "amount outside tolerance")
	}

	return s.settle(ctx, intent, StatusConfirmed, hash, transfer.Amount)
}

// expireIfDue cancels an intent whose window has elapsed. Expiry is lazy:
// nothing scans for stale intents, the next verify observes it.
func (s *Service) expireIfDue(ctx context.Context, intent *Intent) (bool, error) {
	if !intent.Expired(time.Now().UTC()) {
		return false, nil
	}
	reason := "verification window expired"
	moved, err := s.store.MarkCancelled(ctx, intent.ID, reason)
	if err != nil {
		return true, err
	}
	if moved {
		intent.Status = StatusCancelled
		intent.FailureReason = &reason
		log.Info().Str("payment_id", intent.ID.String()).Msg("payment intent expired")
	}
	return true, nil
}

func (s *Service) settle(ctx context.Context, intent *Intent, status Status, txRef string, observed decimal.Decimal) (*Intent, error) {
	moved, err := s.store.ConfirmAndGrant(ctx, intent, status, txRef, observed)
	if err != nil {
		return nil, err
	}
	if !moved {
		// Lost the race against a concurrent verify. Return whatever won.
		return s.store.GetByIDAndUser(ctx, intent.ID, intent.UserID)
	}

	log.Info().
		Str("payment_id", intent.ID.String()).
		Str("user_id", intent.UserID.String()).
		Str("tx_ref", txRef).
		Str("amount", observed.String()).
		Int64("credits", intent.CreditsToGrant).
		Msg("payment settled, credits granted")
	return intent, nil
}

func (s *Service) fail(ctx context.Context, intent *Intent, txRef, reason string) (*Intent, error) {
	moved, err := s.store.MarkFailed(ctx, intent.ID, txRef, reason)
	if err != nil {
		return nil, err
	}
	if !moved {
		return s.store.GetByIDAndUser(ctx, intent.ID, intent.UserID)
	}
	intent.Status = StatusFailed
	intent.FailureReason = &reason
	log.Warn().
		Str("payment_id", intent.ID.String()).
		Str("tx_ref", txRef).
		Str("reason", reason).
		Msg("payment verification failed")
	return intent, nil
}
