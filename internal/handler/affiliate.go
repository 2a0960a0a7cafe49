package handler

import (
	"net/http"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mmeshcher/affiliate-backoffice/internal/model"
)

// Me возвращает профиль текущего партнёра.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	id, ok := affiliateFromContext(w, r)
	if !ok {
		return
	}

	a, err := h.service.GetAffiliate(r.Context(), id)
	if err != nil {
		h.fail(w, err, "get affiliate", zap.String("affiliate_id", id.String()))
		return
	}

	writeJSON(w, http.StatusOK, envelope{"affiliate": toAffiliate(a)})
}

// Points возвращает баланс и журнал баллов текущего партнёра.
func (h *Handler) Points(w http.ResponseWriter, r *http.Request) {
	id, ok := affiliateFromContext(w, r)
	if !ok {
		return
	}
	h.writeLedger(w, r, id)
}

// Wallet возвращает баланс и заявки на обмен текущего партнёра.
func (h *Handler) Wallet(w http.ResponseWriter, r *http.Request) {
	id, ok := affiliateFromContext(w, r)
	if !ok {
		return
	}

	balance, err := h.service.GetBalance(r.Context(), id)
	if err != nil {
		h.fail(w, err, "get balance", zap.String("affiliate_id", id.String()))
		return
	}

	exchanges, err := h.service.ListExchanges(r.Context(), model.ExchangeFilter{AffiliateID: &id})
	if err != nil {
		h.fail(w, err, "list exchanges", zap.String("affiliate_id", id.String()))
		return
	}

	writeJSON(w, http.StatusOK, envelope{"balance": toBalance(balance), "exchanges": toExchanges(exchanges)})
}

// MyExchanges возвращает заявки на обмен текущего партнёра.
func (h *Handler) MyExchanges(w http.ResponseWriter, r *http.Request) {
	id, ok := affiliateFromContext(w, r)
	if !ok {
		return
	}

	limit, offset, ok := pagination(w, r)
	if !ok {
		return
	}

	exchanges, err := h.service.ListExchanges(r.Context(), model.ExchangeFilter{
		AffiliateID: &id,
		Status:      model.ExchangeStatus(r.URL.Query().Get("status")),
		Limit:       limit,
		Offset:      offset,
	})
	if err != nil {
		h.fail(w, err, "list exchanges", zap.String("affiliate_id", id.String()))
		return
	}

	writeJSON(w, http.StatusOK, envelope{"exchanges": toExchanges(exchanges)})
}

type exchangeRequest struct {
	PointsRequested decimal.Decimal    `json:"points_requested"`
	ExchangeType    model.ExchangeType `json:"exchange_type"`
}

// RequestExchange создаёт заявку на обмен баллов текущего партнёра.
func (h *Handler) RequestExchange(w http.ResponseWriter, r *http.Request) {
	id, ok := affiliateFromContext(w, r)
	if !ok {
		return
	}

	var req exchangeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	e, err := h.service.RequestExchange(r.Context(), id, req.PointsRequested, req.ExchangeType)
	if err != nil {
		h.fail(w, err, "request exchange", zap.String("affiliate_id", id.String()))
		return
	}

	writeJSON(w, http.StatusCreated, envelope{"exchange": toExchange(e)})
}

// MySharecarts возвращает корзины текущего партнёра.
func (h *Handler) MySharecarts(w http.ResponseWriter, r *http.Request) {
	id, ok := affiliateFromContext(w, r)
	if !ok {
		return
	}

	limit, offset, ok := pagination(w, r)
	if !ok {
		return
	}

	carts, err := h.service.ListSharecarts(r.Context(), &id, model.SharecartStatus(r.URL.Query().Get("status")), limit, offset)
	if err != nil {
		h.fail(w, err, "list sharecarts", zap.String("affiliate_id", id.String()))
		return
	}

	writeJSON(w, http.StatusOK, envelope{"sharecarts": h.toSharecarts(carts)})
}

type sharecartRequest struct {
	Items []model.SharecartItem `json:"items"`
}

// CreateSharecart создаёт корзину текущего партнёра и возвращает ссылку на неё.
func (h *Handler) CreateSharecart(w http.ResponseWriter, r *http.Request) {
	id, ok := affiliateFromContext(w, r)
	if !ok {
		return
	}

	var req sharecartRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	sc, err := h.service.CreateSharecart(r.Context(), id, req.Items)
	if err != nil {
		h.fail(w, err, "create sharecart", zap.String("affiliate_id", id.String()))
		return
	}

	writeJSON(w, http.StatusCreated, envelope{"sharecart": h.toSharecarts([]model.Sharecart{*sc})[0]})
}
