package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/mmeshcher/affiliate-backoffice/internal/reporting"
	"github.com/mmeshcher/affiliate-backoffice/internal/sheets"
)

const maxReportRange = 366 * 24 * time.Hour

// CommissionReport возвращает отчёт по комиссиям за полуинтервал [from, to).
func (s *Service) CommissionReport(ctx context.Context, from, to time.Time) ([]reporting.CommissionRow, error) {
	if s.reports == nil {
		return nil, ErrDisabled
	}
	if !from.Before(to) {
		return nil, invalid("from debe ser anterior a to")
	}
	if to.Sub(from) > maxReportRange {
		return nil, invalid("el rango máximo es de un año")
	}
	return s.reports.Commissions(ctx, from, to)
}

// LegacyProfile возвращает устаревший профиль партнёра из таблицы.
func (s *Service) LegacyProfile(ctx context.Context, affiliateID uuid.UUID) (sheets.Profile, error) {
	if s.legacy == nil {
		return nil, ErrDisabled
	}
	a, err := s.repo.GetAffiliate(ctx, affiliateID)
	if err != nil {
		return nil, err
	}
	return s.legacy.Get(ctx, a.Email)
}

// PatchLegacyProfile обновляет перечисленные колонки устаревшего профиля партнёра.
func (s *Service) PatchLegacyProfile(ctx context.Context, affiliateID uuid.UUID, changes sheets.Profile) (sheets.Profile, error) {
	if s.legacy == nil {
		return nil, ErrDisabled
	}
	if len(changes) == 0 {
		return nil, invalid("no hay cambios")
	}
	a, err := s.repo.GetAffiliate(ctx, affiliateID)
	if err != nil {
		return nil, err
	}
	return s.legacy.Patch(ctx, a.Email, changes)
}
