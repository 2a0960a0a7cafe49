// Package service реализует бизнес-логику бэк-офиса партнёрской программы.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mmeshcher/affiliate-backoffice/internal/model"
	"github.com/mmeshcher/affiliate-backoffice/internal/reporting"
	"github.com/mmeshcher/affiliate-backoffice/internal/sheets"
	"github.com/mmeshcher/affiliate-backoffice/internal/shopify"
	"github.com/mmeshcher/affiliate-backoffice/internal/sso"
)

// ErrDisabled возвращается, если внешняя интеграция не настроена.
var ErrDisabled = errors.New("integration is not configured")

// ErrInvalidCredentials возвращается при неверном email или пароле администратора.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrAffiliateInactive возвращается, когда деактивированный партнёр входит в кабинет
// или пытается распорядиться баллами.
var ErrAffiliateInactive = model.ErrAffiliateInactive

// ValidationError описывает некорректные входные данные; Message показывается клиенту.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error
	Ping(ctx context.Context) error

	CreateAffiliate(ctx context.Context, a *model.Affiliate) error
	GetAffiliate(ctx context.Context, id uuid.UUID) (*model.Affiliate, error)
	GetAffiliateByShopifyCustomer(ctx context.Context, customerID int64) (*model.Affiliate, error)
	ListAffiliates(ctx context.Context, f model.AffiliateFilter) ([]model.Affiliate, error)
	ListAffiliatesWithCollection(ctx context.Context) ([]model.Affiliate, error)
	UpdateAffiliate(ctx context.Context, id uuid.UUID, u model.AffiliateUpdate) (*model.Affiliate, error)
	SetAffiliateStatus(ctx context.Context, id uuid.UUID, status model.AffiliateStatus) error
	SetStorefrontActive(ctx context.Context, id uuid.UUID, active bool) (bool, error)

	GetBalance(ctx context.Context, affiliateID uuid.UUID) (model.Balance, error)
	ListTransactions(ctx context.Context, affiliateID uuid.UUID, f model.TransactionFilter) ([]model.PointTransaction, error)
	HasReference(ctx context.Context, referenceID, referenceType string, category model.Category) (bool, error)
	CreditTransaction(ctx context.Context, t *model.PointTransaction) error
	AdjustBalance(ctx context.Context, t *model.PointTransaction) (model.Balance, error)
	CreateExchange(ctx context.Context, e *model.PointExchange) error
	GetExchange(ctx context.Context, id uuid.UUID) (*model.PointExchange, error)
	ListExchanges(ctx context.Context, f model.ExchangeFilter) ([]model.PointExchange, error)
	ApproveExchange(ctx context.Context, id uuid.UUID, note, rejectNote string) (*model.PointExchange, error)
	RejectExchange(ctx context.Context, id uuid.UUID, note string) (*model.PointExchange, error)

	ListContent(ctx context.Context, kind model.ContentKind) ([]model.ContentItem, error)
	ReplaceContent(ctx context.Context, kind model.ContentKind, items []model.ContentItem) error

	CreateSharecart(ctx context.Context, s *model.Sharecart) error
	ListSharecarts(ctx context.Context, affiliateID *uuid.UUID, status model.SharecartStatus, limit, offset int) ([]model.Sharecart, error)
	CompleteSharecart(ctx context.Context, token, orderID string) (*model.Sharecart, error)
}

// Storefront описывает операции Admin API магазина, нужные сервису.
type Storefront interface {
	CollectionPublished(ctx context.Context, collectionID string) (bool, error)
	GetCustomer(ctx context.Context, id int64) (*shopify.Customer, error)
}

// ContentFiles описывает резервное файловое хранилище баннеров и новостей.
type ContentFiles interface {
	Load(kind model.ContentKind) ([]model.ContentItem, error)
	Save(kind model.ContentKind, items []model.ContentItem) error
}

// Reports строит отчёты по комиссиям.
type Reports interface {
	Commissions(ctx context.Context, from, to time.Time) ([]reporting.CommissionRow, error)
}

// LegacyProfiles даёт доступ к устаревшим профилям партнёров.
type LegacyProfiles interface {
	Get(ctx context.Context, email string) (sheets.Profile, error)
	Patch(ctx context.Context, email string, changes sheets.Profile) (sheets.Profile, error)
}

// Deps содержит необязательные зависимости сервиса. Незаданные интеграции
// приводят к ErrDisabled в соответствующих операциях.
type Deps struct {
	Logger     *zap.Logger
	Storefront Storefront
	Files      ContentFiles
	Reports    Reports
	Legacy     LegacyProfiles
	SSO        *sso.Codec

	ShopDomain        string
	AdminEmail        string
	AdminPasswordHash string
}

// Service содержит бизнес-логику бэк-офиса.
type Service struct {
	repo       Repository
	logger     *zap.Logger
	storefront Storefront
	files      ContentFiles
	reports    Reports
	legacy     LegacyProfiles
	sso        *sso.Codec

	shopDomain        string
	adminEmail        string
	adminPasswordHash string
}

// NewService создаёт новый сервис с указанным репозиторием и зависимостями.
func NewService(repo Repository, deps Deps) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		repo:              repo,
		logger:            logger,
		storefront:        deps.Storefront,
		files:             deps.Files,
		reports:           deps.Reports,
		legacy:            deps.Legacy,
		sso:               deps.SSO,
		shopDomain:        deps.ShopDomain,
		adminEmail:        deps.AdminEmail,
		adminPasswordHash: deps.AdminPasswordHash,
	}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// Ping проверяет доступность хранилища.
func (s *Service) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}
