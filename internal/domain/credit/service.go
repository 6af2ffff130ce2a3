package credit

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type Service struct {
	repo *Repository
}

func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) GetBalance(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.repo.GetBalance(ctx, userID)
}

func (s *Service) EnsureAccount(ctx context.Context, userID uuid.UUID) error {
	return s.repo.EnsureAccount(ctx, userID)
}

func (s *Service) Deduct(ctx context.Context, userID uuid.UUID, amount int64, referenceID string) error {
	if err := s.repo.Deduct(ctx, userID, amount, referenceID); err != nil {
		return err
	}
	log.Info().Str("user_id", userID.String()).Int64("amount", amount).Str("reference_id", referenceID).Msg("credits deducted")
	return nil
}

func (s *Service) Refund(ctx context.Context, userID uuid.UUID, amount int64, referenceID string) error {
	if err := s.repo.Refund(ctx, userID, amount, referenceID); err != nil {
		return err
	}
	log.Info().Str("user_id", userID.String()).Int64("amount", amount).Str("reference_id", referenceID).Msg("credits refunded")
	return nil
}

func (s *Service) History(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Transaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListTransactions(ctx, userID, limit, offset)
}
