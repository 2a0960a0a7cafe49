package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mmeshcher/affiliate-backoffice/internal/model"
	"github.com/mmeshcher/affiliate-backoffice/internal/repository"
)

// InsufficientBalanceNote задаёт заметку, с которой заявка отклоняется автоматически при одобрении.
const InsufficientBalanceNote = "Saldo insuficiente al momento de aprobar"

// GetBalance возвращает баланс партнёра.
func (s *Service) GetBalance(ctx context.Context, affiliateID uuid.UUID) (model.Balance, error) {
	return s.repo.GetBalance(ctx, affiliateID)
}

// ListTransactions возвращает журнал баллов партнёра.
func (s *Service) ListTransactions(ctx context.Context, affiliateID uuid.UUID, f model.TransactionFilter) ([]model.PointTransaction, error) {
	return s.repo.ListTransactions(ctx, affiliateID, f)
}

// RequestExchange создаёт заявку на обмен баллов. Баланс не проверяется: заявка может
// превышать доступный остаток, проверка выполняется при одобрении. Деактивированный
// партнёр получает ErrAffiliateInactive.
func (s *Service) RequestExchange(ctx context.Context, affiliateID uuid.UUID, points decimal.Decimal, exchangeType model.ExchangeType) (*model.PointExchange, error) {
	points = points.Round(2)
	if !points.IsPositive() {
		return nil, invalid("points_requested debe ser mayor que cero")
	}
	if !exchangeType.Valid() {
		return nil, invalid("exchange_type inválido: %q", exchangeType)
	}
	if err := s.requireActive(ctx, affiliateID); err != nil {
		return nil, err
	}

	e := &model.PointExchange{
		AffiliateID:     affiliateID,
		PointsRequested: points,
		ExchangeType:    exchangeType,
	}
	if err := s.repo.CreateExchange(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// ListExchanges возвращает заявки на обмен по фильтру.
func (s *Service) ListExchanges(ctx context.Context, f model.ExchangeFilter) ([]model.PointExchange, error) {
	return s.repo.ListExchanges(ctx, f)
}

// ApproveExchange одобряет заявку. Если к моменту одобрения баланса не хватает, заявка
// переводится в rejected с заметкой InsufficientBalanceNote и возвращается вместе
// с repository.ErrInsufficientBalance.
func (s *Service) ApproveExchange(ctx context.Context, id uuid.UUID, note string) (*model.PointExchange, error) {
	e, err := s.repo.ApproveExchange(ctx, id, strings.TrimSpace(note), InsufficientBalanceNote)
	switch {
	case errors.Is(err, repository.ErrInsufficientBalance):
		s.logger.Info("exchange auto-rejected", zap.String("exchange_id", id.String()))
		return e, err
	case errors.Is(err, ErrAffiliateInactive):
		s.logger.Warn("exchange approval for inactive affiliate", zap.String("exchange_id", id.String()))
		return nil, err
	case err != nil:
		return nil, err
	}

	s.logger.Info("exchange approved",
		zap.String("exchange_id", id.String()),
		zap.String("affiliate_id", e.AffiliateID.String()),
		zap.String("points", e.PointsRequested.StringFixed(2)),
	)
	return e, nil
}

// RejectExchange отклоняет заявку с заметкой администратора.
func (s *Service) RejectExchange(ctx context.Context, id uuid.UUID, note string) (*model.PointExchange, error) {
	return s.repo.RejectExchange(ctx, id, strings.TrimSpace(note))
}

// Adjustment описывает ручную корректировку баланса администратором.
type Adjustment struct {
	AffiliateID uuid.UUID
	Direction   model.Direction
	Points      decimal.Decimal
	Category    model.Category
	Description string
}

var adjustmentCategories = map[model.Category]bool{
	model.CategoryManual: true,
	model.CategoryBonus:  true,
	model.CategoryRefund: true,
}

// Adjust записывает ручную корректировку. Корректировка, уводящая баланс в минус,
// отклоняется с repository.ErrInsufficientBalance.
func (s *Service) Adjust(ctx context.Context, a Adjustment) (model.Balance, error) {
	points := a.Points.Round(2)
	if !points.IsPositive() {
		return model.Balance{}, invalid("amount debe ser mayor que cero")
	}
	if a.Direction != model.DirectionIn && a.Direction != model.DirectionOut {
		return model.Balance{}, invalid("direction debe ser IN u OUT")
	}

	category := a.Category
	if category == "" {
		category = model.CategoryManual
	}
	if !adjustmentCategories[category] {
		return model.Balance{}, invalid("category inválida: %q", category)
	}

	description := strings.TrimSpace(a.Description)
	if description == "" {
		description = fmt.Sprintf("Ajuste %s", strings.ToLower(string(a.Direction)))
	}

	balance, err := s.repo.AdjustBalance(ctx, &model.PointTransaction{
		AffiliateID: a.AffiliateID,
		Points:      points,
		Direction:   a.Direction,
		Category:    category,
		Status:      model.TransactionConfirmed,
		Description: description,
		ActorType:   model.ActorAdmin,
	})
	if err != nil {
		return model.Balance{}, err
	}

	s.logger.Info("balance adjusted",
		zap.String("affiliate_id", a.AffiliateID.String()),
		zap.String("direction", string(a.Direction)),
		zap.String("points", points.StringFixed(2)),
	)
	return balance, nil
}
