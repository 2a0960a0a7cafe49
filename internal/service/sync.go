package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/affiliate-backoffice/internal/shopify"
)

// SyncResult описывает итог сверки витрин партнёров с магазином.
type SyncResult struct {
	Checked int `json:"checked"`
	Updated int `json:"updated"`
	Failed  int `json:"failed"`
}

// SyncStorefronts сверяет признак storefront_active каждого партнёра с коллекцией
// с фактической публикацией коллекции в магазине. Удалённая коллекция считается неактивной.
func (s *Service) SyncStorefronts(ctx context.Context) (SyncResult, error) {
	var res SyncResult

	if s.storefront == nil {
		return res, ErrDisabled
	}

	affiliates, err := s.repo.ListAffiliatesWithCollection(ctx)
	if err != nil {
		return res, err
	}

	for _, a := range affiliates {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.Checked++

		log := s.logger.With(
			zap.String("affiliate_id", a.ID.String()),
			zap.String("collection_id", a.ShopifyCollectionID),
		)

		published, err := s.storefront.CollectionPublished(ctx, a.ShopifyCollectionID)
		if err != nil && !errors.Is(err, shopify.ErrNotFound) {
			log.Warn("check collection", zap.Error(err))
			res.Failed++
			continue
		}

		changed, err := s.repo.SetStorefrontActive(ctx, a.ID, published)
		if err != nil {
			log.Warn("store storefront status", zap.Error(err))
			res.Failed++
			continue
		}
		if changed {
			res.Updated++
		}
	}

	s.logger.Info("storefront sync finished",
		zap.Int("checked", res.Checked),
		zap.Int("updated", res.Updated),
		zap.Int("failed", res.Failed),
	)
	return res, nil
}

// RunStorefrontSync периодически запускает SyncStorefronts до отмены контекста.
// Нулевой интервал или ненастроенный магазин отключают фоновую сверку.
func (s *Service) RunStorefrontSync(ctx context.Context, interval time.Duration) {
	if interval <= 0 || s.storefront == nil {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.SyncStorefronts(ctx); err != nil && ctx.Err() == nil {
				s.logger.Error("storefront sync", zap.Error(err))
			}
		}
	}
}
