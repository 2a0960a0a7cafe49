package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mmeshcher/affiliate-backoffice/internal/model"
	"github.com/mmeshcher/affiliate-backoffice/internal/repository"
	"github.com/mmeshcher/affiliate-backoffice/internal/service"
	"github.com/mmeshcher/affiliate-backoffice/internal/sheets"
)

// writeLedger отдаёт баланс и журнал партнёра с фильтрами status, category, limit, offset.
func (h *Handler) writeLedger(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	limit, offset, ok := pagination(w, r)
	if !ok {
		return
	}

	balance, err := h.service.GetBalance(r.Context(), id)
	if err != nil {
		h.fail(w, err, "get balance", zap.String("affiliate_id", id.String()))
		return
	}

	q := r.URL.Query()
	txs, err := h.service.ListTransactions(r.Context(), id, model.TransactionFilter{
		Status:   model.TransactionStatus(q.Get("status")),
		Category: model.Category(q.Get("category")),
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		h.fail(w, err, "list transactions", zap.String("affiliate_id", id.String()))
		return
	}

	writeJSON(w, http.StatusOK, envelope{"balance": toBalance(balance), "transactions": toTransactions(txs)})
}

// ListAffiliates возвращает партнёров с фильтрами status, search, limit, offset.
func (h *Handler) ListAffiliates(w http.ResponseWriter, r *http.Request) {
	limit, offset, ok := pagination(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	list, err := h.service.ListAffiliates(r.Context(), model.AffiliateFilter{
		Status: model.AffiliateStatus(q.Get("status")),
		Search: q.Get("search"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		h.fail(w, err, "list affiliates")
		return
	}

	writeJSON(w, http.StatusOK, envelope{"affiliates": toAffiliates(list)})
}

type createAffiliateRequest struct {
	Name                string                `json:"name"`
	Email               string                `json:"email"`
	Phone               string                `json:"phone"`
	ShopifyCustomerID   *int64                `json:"shopify_customer_id"`
	ShopifyCollectionID string                `json:"shopify_collection_id"`
	CLABE               string                `json:"clabe_interbancaria"`
	Status              model.AffiliateStatus `json:"status"`
}

// CreateAffiliate регистрирует партнёра.
func (h *Handler) CreateAffiliate(w http.ResponseWriter, r *http.Request) {
	var req createAffiliateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	a, err := h.service.CreateAffiliate(r.Context(), service.NewAffiliate{
		Name:                req.Name,
		Email:               req.Email,
		Phone:               req.Phone,
		ShopifyCustomerID:   req.ShopifyCustomerID,
		ShopifyCollectionID: req.ShopifyCollectionID,
		CLABE:               req.CLABE,
		Status:              req.Status,
	})
	if err != nil {
		h.fail(w, err, "create affiliate")
		return
	}

	writeJSON(w, http.StatusCreated, envelope{"affiliate": toAffiliate(a)})
}

// GetAffiliate возвращает партнёра вместе с его балансом.
func (h *Handler) GetAffiliate(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	a, err := h.service.GetAffiliate(r.Context(), id)
	if err != nil {
		h.fail(w, err, "get affiliate", zap.String("affiliate_id", id.String()))
		return
	}

	balance, err := h.service.GetBalance(r.Context(), id)
	if err != nil {
		h.fail(w, err, "get balance", zap.String("affiliate_id", id.String()))
		return
	}

	writeJSON(w, http.StatusOK, envelope{"affiliate": toAffiliate(a), "balance": toBalance(balance)})
}

type updateAffiliateRequest struct {
	Name                *string `json:"name"`
	Phone               *string `json:"phone"`
	ShopifyCollectionID *string `json:"shopify_collection_id"`
	CLABE               *string `json:"clabe_interbancaria"`
}

// UpdateAffiliate изменяет переданные поля профиля партнёра.
func (h *Handler) UpdateAffiliate(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	var req updateAffiliateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	a, err := h.service.UpdateAffiliate(r.Context(), id, model.AffiliateUpdate{
		Name:                req.Name,
		Phone:               req.Phone,
		ShopifyCollectionID: req.ShopifyCollectionID,
		CLABE:               req.CLABE,
	})
	if err != nil {
		h.fail(w, err, "update affiliate", zap.String("affiliate_id", id.String()))
		return
	}

	writeJSON(w, http.StatusOK, envelope{"affiliate": toAffiliate(a)})
}

type statusRequest struct {
	Status model.AffiliateStatus `json:"status"`
}

// SetAffiliateStatus меняет статус партнёра.
func (h *Handler) SetAffiliateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	var req statusRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	a, err := h.service.SetAffiliateStatus(r.Context(), id, req.Status)
	if err != nil {
		h.fail(w, err, "set affiliate status", zap.String("affiliate_id", id.String()))
		return
	}

	writeJSON(w, http.StatusOK, envelope{"affiliate": toAffiliate(a)})
}

// AffiliatePoints возвращает баланс и журнал указанного партнёра.
func (h *Handler) AffiliatePoints(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "affiliateID")
	if !ok {
		return
	}
	h.writeLedger(w, r, id)
}

type adjustRequest struct {
	AffiliateID uuid.UUID       `json:"affiliate_id"`
	Direction   model.Direction `json:"direction"`
	Amount      decimal.Decimal `json:"amount"`
	Category    model.Category  `json:"category"`
	Description string          `json:"description"`
}

// Adjust выполняет ручную корректировку баланса партнёра.
func (h *Handler) Adjust(w http.ResponseWriter, r *http.Request) {
	var req adjustRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if req.AffiliateID == uuid.Nil {
		writeError(w, http.StatusBadRequest, "affiliate_id es obligatorio")
		return
	}

	balance, err := h.service.Adjust(r.Context(), service.Adjustment{
		AffiliateID: req.AffiliateID,
		Direction:   req.Direction,
		Points:      req.Amount,
		Category:    req.Category,
		Description: req.Description,
	})
	if err != nil {
		h.fail(w, err, "adjust balance", zap.String("affiliate_id", req.AffiliateID.String()))
		return
	}

	writeJSON(w, http.StatusOK, envelope{"balance": toBalance(balance)})
}

// ListExchanges возвращает заявки на обмен с фильтрами status, affiliate_id, limit, offset.
func (h *Handler) ListExchanges(w http.ResponseWriter, r *http.Request) {
	limit, offset, ok := pagination(w, r)
	if !ok {
		return
	}

	affiliateID, ok := optionalUUIDQuery(w, r, "affiliate_id")
	if !ok {
		return
	}

	list, err := h.service.ListExchanges(r.Context(), model.ExchangeFilter{
		AffiliateID: affiliateID,
		Status:      model.ExchangeStatus(r.URL.Query().Get("status")),
		Limit:       limit,
		Offset:      offset,
	})
	if err != nil {
		h.fail(w, err, "list exchanges")
		return
	}

	writeJSON(w, http.StatusOK, envelope{"exchanges": toExchanges(list)})
}

type noteRequest struct {
	Note string `json:"note"`
}

// decodeNote читает необязательную заметку администратора; пустое тело допустимо.
func decodeNote(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req noteRequest
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req)
	if err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "JSON inválido")
		return "", false
	}
	return req.Note, true
}

// ApproveExchange одобряет заявку. При нехватке баланса заявка отклоняется автоматически,
// а ответ содержит её итоговое состояние со статусом 422.
func (h *Handler) ApproveExchange(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	note, ok := decodeNote(w, r)
	if !ok {
		return
	}

	e, err := h.service.ApproveExchange(r.Context(), id, note)
	if errors.Is(err, repository.ErrInsufficientBalance) && e != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_ = json.NewEncoder(w).Encode(envelope{
			"success":  false,
			"error":    e.AdminNote,
			"exchange": toExchange(e),
		})
		return
	}
	if err != nil {
		h.fail(w, err, "approve exchange", zap.String("exchange_id", id.String()))
		return
	}

	writeJSON(w, http.StatusOK, envelope{"exchange": toExchange(e)})
}

// RejectExchange отклоняет заявку с заметкой администратора.
func (h *Handler) RejectExchange(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	note, ok := decodeNote(w, r)
	if !ok {
		return
	}

	e, err := h.service.RejectExchange(r.Context(), id, note)
	if err != nil {
		h.fail(w, err, "reject exchange", zap.String("exchange_id", id.String()))
		return
	}

	writeJSON(w, http.StatusOK, envelope{"exchange": toExchange(e)})
}

// ListSharecarts возвращает все корзины с фильтрами status, affiliate_id, limit, offset.
func (h *Handler) ListSharecarts(w http.ResponseWriter, r *http.Request) {
	limit, offset, ok := pagination(w, r)
	if !ok {
		return
	}

	affiliateID, ok := optionalUUIDQuery(w, r, "affiliate_id")
	if !ok {
		return
	}

	carts, err := h.service.ListSharecarts(r.Context(), affiliateID, model.SharecartStatus(r.URL.Query().Get("status")), limit, offset)
	if err != nil {
		h.fail(w, err, "list sharecarts")
		return
	}

	writeJSON(w, http.StatusOK, envelope{"sharecarts": h.toSharecarts(carts)})
}

// AdminContent возвращает все элементы указанного вида, включая неактивные.
func (h *Handler) AdminContent(kind model.ContentKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, envelope{"items": h.service.ListContent(r.Context(), kind, true)})
	}
}

// contentItemRequest повторяет model.ContentItem; пропущенный active означает true.
type contentItemRequest struct {
	ID       uuid.UUID `json:"id"`
	Title    string    `json:"title"`
	ImageURL string    `json:"image_url"`
	LinkURL  string    `json:"link_url"`
	Body     string    `json:"body"`
	Active   *bool     `json:"active"`
}

func (c contentItemRequest) toModel() model.ContentItem {
	active := true
	if c.Active != nil {
		active = *c.Active
	}
	return model.ContentItem{
		ID:       c.ID,
		Title:    c.Title,
		ImageURL: c.ImageURL,
		LinkURL:  c.LinkURL,
		Body:     c.Body,
		Active:   active,
	}
}

type contentRequest struct {
	Items []contentItemRequest `json:"items"`
}

// ReplaceContent заменяет упорядоченный список баннеров или новостей.
func (h *Handler) ReplaceContent(kind model.ContentKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req contentRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		in := make([]model.ContentItem, len(req.Items))
		for i, item := range req.Items {
			in[i] = item.toModel()
		}

		items, err := h.service.ReplaceContent(r.Context(), kind, in)
		if err != nil {
			h.fail(w, err, "replace content", zap.String("kind", string(kind)))
			return
		}

		writeJSON(w, http.StatusOK, envelope{"items": items})
	}
}

func parseReportDate(raw string, endOfRange bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, err
	}
	if endOfRange {
		t = t.AddDate(0, 0, 1)
	}
	return t, nil
}

// CommissionReport возвращает отчёт по комиссиям за период from..to (даты включительно).
func (h *Handler) CommissionReport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	from, err := parseReportDate(q.Get("from"), false)
	if err != nil {
		writeError(w, http.StatusBadRequest, "from inválido")
		return
	}
	to, err := parseReportDate(q.Get("to"), true)
	if err != nil {
		writeError(w, http.StatusBadRequest, "to inválido")
		return
	}

	rows, err := h.service.CommissionReport(r.Context(), from, to)
	if err != nil {
		h.fail(w, err, "commission report")
		return
	}

	writeJSON(w, http.StatusOK, envelope{"rows": rows})
}

// LegacyProfile возвращает устаревший профиль партнёра из таблицы.
func (h *Handler) LegacyProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	p, err := h.service.LegacyProfile(r.Context(), id)
	if err != nil {
		h.fail(w, err, "get legacy profile", zap.String("affiliate_id", id.String()))
		return
	}

	writeJSON(w, http.StatusOK, envelope{"profile": p})
}

// PatchLegacyProfile обновляет колонки устаревшего профиля партнёра.
func (h *Handler) PatchLegacyProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	var changes sheets.Profile
	if !decodeJSON(w, r, &changes) {
		return
	}

	p, err := h.service.PatchLegacyProfile(r.Context(), id, changes)
	if err != nil {
		h.fail(w, err, "patch legacy profile", zap.String("affiliate_id", id.String()))
		return
	}

	writeJSON(w, http.StatusOK, envelope{"profile": p})
}
