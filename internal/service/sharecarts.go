package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/mmeshcher/affiliate-backoffice/internal/model"
)

const maxSharecartItems = 100

// CreateSharecart сохраняет предзаполненную корзину партнёра и генерирует её токен.
func (s *Service) CreateSharecart(ctx context.Context, affiliateID uuid.UUID, items []model.SharecartItem) (*model.Sharecart, error) {
	if s.shopDomain == "" {
		return nil, ErrDisabled
	}
	if len(items) == 0 {
		return nil, invalid("la canasta está vacía")
	}
	if len(items) > maxSharecartItems {
		return nil, invalid("máximo %d productos", maxSharecartItems)
	}
	for i, item := range items {
		if item.VariantID <= 0 || item.Quantity <= 0 {
			return nil, invalid("producto %d inválido", i+1)
		}
	}
	if err := s.requireActive(ctx, affiliateID); err != nil {
		return nil, err
	}

	sc := &model.Sharecart{
		Token:       strings.ReplaceAll(uuid.NewString(), "-", ""),
		AffiliateID: affiliateID,
		Items:       items,
	}
	if err := s.repo.CreateSharecart(ctx, sc); err != nil {
		return nil, err
	}
	return sc, nil
}

// ListSharecarts возвращает корзины; affiliateID == nil означает все корзины.
func (s *Service) ListSharecarts(ctx context.Context, affiliateID *uuid.UUID, status model.SharecartStatus, limit, offset int) ([]model.Sharecart, error) {
	if status != "" && status != model.SharecartPending && status != model.SharecartCompleted {
		return nil, invalid("status inválido: %q", status)
	}
	return s.repo.ListSharecarts(ctx, affiliateID, status, limit, offset)
}

// ShareURL строит ссылку на корзину магазина, в атрибуты которой зашиты токен и партнёр.
func (s *Service) ShareURL(sc model.Sharecart) string {
	return ShareURL(s.shopDomain, sc)
}

// ShareURL строит ссылку вида https://<shop>/cart/<variant:qty,...>?attributes[...]=...
func ShareURL(shopDomain string, sc model.Sharecart) string {
	host := strings.TrimPrefix(strings.TrimPrefix(shopDomain, "https://"), "http://")
	host = strings.TrimRight(host, "/")

	parts := make([]string, len(sc.Items))
	for i, item := range sc.Items {
		parts[i] = fmt.Sprintf("%d:%d", item.VariantID, item.Quantity)
	}

	return fmt.Sprintf("https://%s/cart/%s?attributes[%s]=%s&attributes[%s]=%s",
		host, strings.Join(parts, ","),
		attrSharecartToken, sc.Token,
		attrAffiliateID, sc.AffiliateID)
}
