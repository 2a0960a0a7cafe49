package service

import (
	"context"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/mmeshcher/affiliate-backoffice/internal/model"
	"github.com/mmeshcher/affiliate-backoffice/internal/sso"
)

// LoginWithSSO проверяет токен, пришедший с витрины, и возвращает партнёра, которому
// выдаётся сессия. Ошибки проверки токена возвращаются из пакета sso как есть.
func (s *Service) LoginWithSSO(ctx context.Context, tok sso.Token) (*model.Affiliate, error) {
	if s.sso == nil {
		return nil, ErrDisabled
	}

	customerID, err := s.sso.Verify(tok)
	if err != nil {
		return nil, err
	}

	a, err := s.repo.GetAffiliateByShopifyCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if a.Status == model.AffiliateStatusInactive {
		return nil, ErrAffiliateInactive
	}
	return a, nil
}

// AuthenticateAdmin проверяет email и пароль администратора по настроенному bcrypt-хешу.
func (s *Service) AuthenticateAdmin(email, password string) error {
	if s.adminEmail == "" || s.adminPasswordHash == "" {
		return ErrDisabled
	}
	if !strings.EqualFold(strings.TrimSpace(email), s.adminEmail) {
		return ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(s.adminPasswordHash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}
