package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mmeshcher/affiliate-backoffice/internal/content"
	"github.com/mmeshcher/affiliate-backoffice/internal/model"
)

const maxContentItems = 50

// ListContent возвращает баннеры или новости. Источники по порядку: БД, локальный файл,
// встроенный список. Пустой результат источника считается его недоступностью.
func (s *Service) ListContent(ctx context.Context, kind model.ContentKind, includeInactive bool) []model.ContentItem {
	items := s.loadContent(ctx, kind)
	if includeInactive {
		return items
	}

	active := make([]model.ContentItem, 0, len(items))
	for _, item := range items {
		if item.Active {
			active = append(active, item)
		}
	}
	return active
}

func (s *Service) loadContent(ctx context.Context, kind model.ContentKind) []model.ContentItem {
	log := s.logger.With(zap.String("kind", string(kind)))

	items, err := s.repo.ListContent(ctx, kind)
	if err != nil {
		log.Warn("load content from database", zap.Error(err))
	}
	if err == nil && len(items) > 0 {
		return items
	}

	if s.files != nil {
		items, err := s.files.Load(kind)
		if err != nil {
			log.Warn("load content from file", zap.Error(err))
		}
		if err == nil && len(items) > 0 {
			return items
		}
	}

	return content.Defaults(kind)
}

// ReplaceContent заменяет упорядоченный список элементов. Список пишется в БД и в файл;
// операция успешна, если удалась хотя бы одна запись.
func (s *Service) ReplaceContent(ctx context.Context, kind model.ContentKind, items []model.ContentItem) ([]model.ContentItem, error) {
	if kind != model.ContentBanner && kind != model.ContentNews {
		return nil, invalid("tipo de contenido inválido: %q", kind)
	}
	if len(items) > maxContentItems {
		return nil, invalid("máximo %d elementos", maxContentItems)
	}

	normalized := make([]model.ContentItem, len(items))
	seen := make(map[uuid.UUID]struct{}, len(items))
	for i, item := range items {
		item.Title = strings.TrimSpace(item.Title)
		item.ImageURL = strings.TrimSpace(item.ImageURL)
		item.LinkURL = strings.TrimSpace(item.LinkURL)
		if kind == model.ContentBanner && item.ImageURL == "" {
			return nil, invalid("el elemento %d requiere image_url", i+1)
		}
		if kind == model.ContentNews && item.Title == "" {
			return nil, invalid("el elemento %d requiere title", i+1)
		}
		if item.ID == uuid.Nil {
			item.ID = uuid.New()
		}
		if _, ok := seen[item.ID]; ok {
			return nil, invalid("id duplicado en el elemento %d", i+1)
		}
		seen[item.ID] = struct{}{}
		item.Kind = kind
		item.Position = i
		normalized[i] = item
	}

	log := s.logger.With(zap.String("kind", string(kind)))

	dbErr := s.repo.ReplaceContent(ctx, kind, normalized)
	if dbErr != nil {
		log.Error("save content to database", zap.Error(dbErr))
	}

	fileErr := errors.New("file store not configured")
	if s.files != nil {
		fileErr = s.files.Save(kind, normalized)
		if fileErr != nil {
			log.Error("save content to file", zap.Error(fileErr))
		}
	}

	if dbErr != nil && fileErr != nil {
		return nil, errors.Join(dbErr, fileErr)
	}
	return normalized, nil
}
