package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mmeshcher/affiliate-backoffice/internal/model"
	"github.com/mmeshcher/affiliate-backoffice/internal/shopify"
	"github.com/mmeshcher/affiliate-backoffice/internal/validation"
)

// NewAffiliate содержит данные для регистрации партнёра администратором.
type NewAffiliate struct {
	Name                string
	Email               string
	Phone               string
	ShopifyCustomerID   *int64
	ShopifyCollectionID string
	CLABE               string
	Status              model.AffiliateStatus
}

// CreateAffiliate регистрирует партнёра. Если указан Shopify ID и настроен клиент магазина,
// пустые имя, email и телефон дополняются данными покупателя.
func (s *Service) CreateAffiliate(ctx context.Context, in NewAffiliate) (*model.Affiliate, error) {
	if in.ShopifyCustomerID != nil && s.storefront != nil {
		s.enrichFromShopify(ctx, &in)
	}

	a := &model.Affiliate{
		Name:                strings.TrimSpace(in.Name),
		Email:               strings.ToLower(strings.TrimSpace(in.Email)),
		Phone:               strings.TrimSpace(in.Phone),
		ShopifyCustomerID:   in.ShopifyCustomerID,
		ShopifyCollectionID: strings.TrimSpace(in.ShopifyCollectionID),
		CLABE:               strings.TrimSpace(in.CLABE),
		Status:              in.Status,
	}
	if a.Status == "" {
		a.Status = model.AffiliateStatusPending
	}

	if a.Name == "" {
		return nil, invalid("name es obligatorio")
	}
	if _, err := mail.ParseAddress(a.Email); err != nil {
		return nil, invalid("email inválido")
	}
	if !a.Status.Valid() {
		return nil, invalid("status inválido: %q", a.Status)
	}
	if a.CLABE != "" && !validation.IsValidCLABE(a.CLABE) {
		return nil, invalid("CLABE inválida")
	}

	if err := s.repo.CreateAffiliate(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Service) enrichFromShopify(ctx context.Context, in *NewAffiliate) {
	c, err := s.storefront.GetCustomer(ctx, *in.ShopifyCustomerID)
	if err != nil {
		if !errors.Is(err, shopify.ErrNotFound) {
			s.logger.Warn("fetch shopify customer", zap.Int64("customer_id", *in.ShopifyCustomerID), zap.Error(err))
		}
		return
	}
	if strings.TrimSpace(in.Name) == "" {
		in.Name = c.FullName()
	}
	if strings.TrimSpace(in.Email) == "" {
		in.Email = c.Email
	}
	if strings.TrimSpace(in.Phone) == "" {
		in.Phone = c.Phone
	}
}

// GetAffiliate возвращает партнёра по идентификатору.
func (s *Service) GetAffiliate(ctx context.Context, id uuid.UUID) (*model.Affiliate, error) {
	return s.repo.GetAffiliate(ctx, id)
}

// ListAffiliates возвращает партнёров по фильтру.
func (s *Service) ListAffiliates(ctx context.Context, f model.AffiliateFilter) ([]model.Affiliate, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, invalid("status inválido: %q", f.Status)
	}
	f.Search = strings.TrimSpace(f.Search)
	return s.repo.ListAffiliates(ctx, f)
}

// UpdateAffiliate изменяет профиль партнёра.
func (s *Service) UpdateAffiliate(ctx context.Context, id uuid.UUID, u model.AffiliateUpdate) (*model.Affiliate, error) {
	if u.Name != nil {
		name := strings.TrimSpace(*u.Name)
		if name == "" {
			return nil, invalid("name no puede estar vacío")
		}
		u.Name = &name
	}
	if u.CLABE != nil {
		clabe := strings.TrimSpace(*u.CLABE)
		if clabe != "" && !validation.IsValidCLABE(clabe) {
			return nil, invalid("CLABE inválida")
		}
		u.CLABE = &clabe
	}
	return s.repo.UpdateAffiliate(ctx, id, u)
}

// SetAffiliateStatus меняет статус партнёра.
func (s *Service) SetAffiliateStatus(ctx context.Context, id uuid.UUID, status model.AffiliateStatus) (*model.Affiliate, error) {
	if !status.Valid() {
		return nil, invalid("status inválido: %q", status)
	}
	if err := s.repo.SetAffiliateStatus(ctx, id, status); err != nil {
		return nil, err
	}
	s.logger.Info("affiliate status changed", zap.String("affiliate_id", id.String()), zap.String("status", string(status)))
	return s.repo.GetAffiliate(ctx, id)
}

// requireActive отказывает деактивированному партнёру в операциях с баллами и корзинами.
func (s *Service) requireActive(ctx context.Context, id uuid.UUID) error {
	a, err := s.repo.GetAffiliate(ctx, id)
	if err != nil {
		return err
	}
	if a.Status == model.AffiliateStatusInactive {
		return ErrAffiliateInactive
	}
	return nil
}
