// Package handler содержит HTTP-обработчики API бэк-офиса партнёрской программы.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mmeshcher/affiliate-backoffice/internal/middleware"
	"github.com/mmeshcher/affiliate-backoffice/internal/model"
	"github.com/mmeshcher/affiliate-backoffice/internal/reporting"
	"github.com/mmeshcher/affiliate-backoffice/internal/repository"
	"github.com/mmeshcher/affiliate-backoffice/internal/service"
	"github.com/mmeshcher/affiliate-backoffice/internal/sheets"
	"github.com/mmeshcher/affiliate-backoffice/internal/shopify"
	"github.com/mmeshcher/affiliate-backoffice/internal/sso"
)

const maxBodyBytes = 1 << 20

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	Ping(ctx context.Context) error

	CreateAffiliate(ctx context.Context, in service.NewAffiliate) (*model.Affiliate, error)
	GetAffiliate(ctx context.Context, id uuid.UUID) (*model.Affiliate, error)
	ListAffiliates(ctx context.Context, f model.AffiliateFilter) ([]model.Affiliate, error)
	UpdateAffiliate(ctx context.Context, id uuid.UUID, u model.AffiliateUpdate) (*model.Affiliate, error)
	SetAffiliateStatus(ctx context.Context, id uuid.UUID, status model.AffiliateStatus) (*model.Affiliate, error)

	GetBalance(ctx context.Context, affiliateID uuid.UUID) (model.Balance, error)
	ListTransactions(ctx context.Context, affiliateID uuid.UUID, f model.TransactionFilter) ([]model.PointTransaction, error)
	RequestExchange(ctx context.Context, affiliateID uuid.UUID, points decimal.Decimal, exchangeType model.ExchangeType) (*model.PointExchange, error)
	ListExchanges(ctx context.Context, f model.ExchangeFilter) ([]model.PointExchange, error)
	ApproveExchange(ctx context.Context, id uuid.UUID, note string) (*model.PointExchange, error)
	RejectExchange(ctx context.Context, id uuid.UUID, note string) (*model.PointExchange, error)
	Adjust(ctx context.Context, a service.Adjustment) (model.Balance, error)

	ProcessPaidOrder(ctx context.Context, order shopify.Order) (service.OrderResult, error)

	LoginWithSSO(ctx context.Context, tok sso.Token) (*model.Affiliate, error)
	AuthenticateAdmin(email, password string) error

	ListContent(ctx context.Context, kind model.ContentKind, includeInactive bool) []model.ContentItem
	ReplaceContent(ctx context.Context, kind model.ContentKind, items []model.ContentItem) ([]model.ContentItem, error)

	CreateSharecart(ctx context.Context, affiliateID uuid.UUID, items []model.SharecartItem) (*model.Sharecart, error)
	ListSharecarts(ctx context.Context, affiliateID *uuid.UUID, status model.SharecartStatus, limit, offset int) ([]model.Sharecart, error)
	ShareURL(sc model.Sharecart) string

	SyncStorefronts(ctx context.Context) (service.SyncResult, error)
	CommissionReport(ctx context.Context, from, to time.Time) ([]reporting.CommissionRow, error)
	LegacyProfile(ctx context.Context, affiliateID uuid.UUID) (sheets.Profile, error)
	PatchLegacyProfile(ctx context.Context, affiliateID uuid.UUID, changes sheets.Profile) (sheets.Profile, error)
}

// Options содержит секреты интеграций, проверяемые на уровне HTTP.
type Options struct {
	WebhookSecret string
	CronSecret    string
}

// Handler реализует HTTP-обработчики API бэк-офиса.
type Handler struct {
	service        Service
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
	adminAuth      *middleware.AdminAuth
	opts           Options
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AuthMiddleware, admin *middleware.AdminAuth, opts Options) *Handler {
	return &Handler{
		service:        s,
		logger:         logger,
		authMiddleware: auth,
		adminAuth:      admin,
		opts:           opts,
	}
}

type envelope map[string]any

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	body["success"] = true
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{"success": false, "error": message})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "JSON inválido")
		return false
	}
	return true
}

// fail сопоставляет ошибку бизнес-логики с HTTP-статусом и сообщением.
func (h *Handler) fail(w http.ResponseWriter, err error, msg string, fields ...zap.Field) {
	var ve *service.ValidationError

	switch {
	case errors.As(err, &ve):
		writeError(w, http.StatusBadRequest, ve.Message)
	case errors.Is(err, sso.ErrMissingParams):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, sheets.ErrInvalidColumn):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, sso.ErrMalformed), errors.Is(err, sso.ErrInvalidSignature), errors.Is(err, sso.ErrExpired):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "Credenciales inválidas")
	case errors.Is(err, service.ErrAffiliateInactive):
		writeError(w, http.StatusForbidden, "Afiliado inactivo")
	case errors.Is(err, repository.ErrAffiliateNotFound):
		writeError(w, http.StatusNotFound, "Afiliado no encontrado")
	case errors.Is(err, repository.ErrExchangeNotFound):
		writeError(w, http.StatusNotFound, "Solicitud no encontrada")
	case errors.Is(err, repository.ErrSharecartNotFound):
		writeError(w, http.StatusNotFound, "Carrito no encontrado")
	case errors.Is(err, sheets.ErrNotFound):
		writeError(w, http.StatusNotFound, "Perfil no encontrado")
	case errors.Is(err, repository.ErrExchangeNotPending):
		writeError(w, http.StatusConflict, "La solicitud ya fue procesada")
	case errors.Is(err, repository.ErrAffiliateExists):
		writeError(w, http.StatusConflict, "El afiliado ya existe")
	case errors.Is(err, repository.ErrDuplicateReference):
		writeError(w, http.StatusConflict, "Transacción duplicada")
	case errors.Is(err, repository.ErrInsufficientBalance):
		writeError(w, http.StatusUnprocessableEntity, "Insufficient balance")
	case errors.Is(err, service.ErrDisabled):
		writeError(w, http.StatusServiceUnavailable, "Integración no configurada")
	default:
		h.logger.Error(msg, append(fields, zap.Error(err))...)
		writeError(w, http.StatusInternalServerError, "Error interno")
	}
}

func uuidParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		writeError(w, http.StatusBadRequest, "id inválido")
		return uuid.Nil, false
	}
	return id, true
}

func optionalUUIDQuery(w http.ResponseWriter, r *http.Request, name string) (*uuid.UUID, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("%s inválido", name))
		return nil, false
	}
	return &id, true
}

func pagination(w http.ResponseWriter, r *http.Request) (limit, offset int, ok bool) {
	q := r.URL.Query()
	for _, p := range []struct {
		name string
		dst  *int
	}{{"limit", &limit}, {"offset", &offset}} {
		raw := q.Get(p.name)
		if raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("%s inválido", p.name))
			return 0, 0, false
		}
		*p.dst = v
	}
	return limit, offset, true
}

func affiliateFromContext(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, ok := middleware.GetAffiliateIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "No autorizado")
	}
	return id, ok
}
