package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mmeshcher/affiliate-backoffice/internal/model"
	"github.com/mmeshcher/affiliate-backoffice/internal/repository"
	"github.com/mmeshcher/affiliate-backoffice/internal/shopify"
)

// CommissionRate задаёт долю суммы заказа, начисляемая партнёру.
var CommissionRate = decimal.NewFromFloat(0.10)

// Атрибуты заказа, по которым определяется партнёр и корзина.
const (
	attrAffiliateID    = "affiliate_id"
	attrRef            = "ref"
	attrSharecartToken = "sharecart_token"
)

// Причины, по которым заказ не приводит к начислению.
const (
	ReasonNotPaid          = "not_paid"
	ReasonNoAffiliate      = "no_affiliate"
	ReasonUnknownAffiliate = "unknown_affiliate"
	ReasonInactive         = "inactive_affiliate"
	ReasonDuplicate        = "duplicate"
	ReasonZeroCommission   = "zero_commission"
)

// OrderResult описывает результат обработки оплаченного заказа.
type OrderResult struct {
	Credited           bool
	Reason             string
	AffiliateID        uuid.UUID
	Points             decimal.Decimal
	TransactionID      int64
	SharecartCompleted bool
}

// Commission рассчитывает комиссию с суммы заказа, округляя до сотых.
func Commission(total decimal.Decimal) decimal.Decimal {
	return total.Mul(CommissionRate).Round(2)
}

// ProcessPaidOrder начисляет партнёру комиссию за оплаченный заказ. Повторная доставка
// того же заказа ничего не начисляет.
func (s *Service) ProcessPaidOrder(ctx context.Context, order shopify.Order) (OrderResult, error) {
	log := s.logger.With(zap.Int64("order_id", order.ID))

	if !order.Paid() {
		return OrderResult{Reason: ReasonNotPaid}, nil
	}

	res := OrderResult{}

	if token := order.Attribute(attrSharecartToken); token != "" {
		_, err := s.repo.CompleteSharecart(ctx, token, order.OrderID())
		switch {
		case err == nil:
			res.SharecartCompleted = true
		case errors.Is(err, repository.ErrSharecartNotFound):
			log.Debug("sharecart not pending", zap.String("token", token))
		default:
			log.Warn("complete sharecart", zap.Error(err))
		}
	}

	raw := order.Attribute(attrAffiliateID, attrRef)
	affiliateID, err := uuid.Parse(raw)
	if err != nil {
		res.Reason = ReasonNoAffiliate
		return res, nil
	}
	res.AffiliateID = affiliateID
	log = log.With(zap.String("affiliate_id", affiliateID.String()))

	affiliate, err := s.repo.GetAffiliate(ctx, affiliateID)
	if err != nil {
		if errors.Is(err, repository.ErrAffiliateNotFound) {
			res.Reason = ReasonUnknownAffiliate
			return res, nil
		}
		return res, err
	}
	if affiliate.Status == model.AffiliateStatusInactive {
		res.Reason = ReasonInactive
		return res, nil
	}

	exists, err := s.repo.HasReference(ctx, order.OrderID(), model.ReferenceShopifyOrder, model.CategoryEarning)
	if err != nil {
		return res, err
	}
	if exists {
		res.Reason = ReasonDuplicate
		return res, nil
	}

	points := Commission(order.TotalPrice)
	if !points.IsPositive() {
		res.Reason = ReasonZeroCommission
		return res, nil
	}

	t := &model.PointTransaction{
		AffiliateID:   affiliateID,
		Points:        points,
		Direction:     model.DirectionIn,
		Category:      model.CategoryEarning,
		Status:        model.TransactionConfirmed,
		ReferenceID:   order.OrderID(),
		ReferenceType: model.ReferenceShopifyOrder,
		Description:   fmt.Sprintf("Comisión pedido %s", orderLabel(order)),
		ActorType:     model.ActorWebhook,
	}
	if err := s.repo.CreditTransaction(ctx, t); err != nil {
		if errors.Is(err, repository.ErrDuplicateReference) {
			res.Reason = ReasonDuplicate
			return res, nil
		}
		return res, err
	}

	log.Info("commission credited", zap.String("points", points.StringFixed(2)))

	res.Credited = true
	res.Points = points
	res.TransactionID = t.ID
	return res, nil
}

func orderLabel(o shopify.Order) string {
	if o.Name != "" {
		return o.Name
	}
	return o.OrderID()
}
