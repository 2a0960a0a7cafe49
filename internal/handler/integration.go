package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/affiliate-backoffice/internal/model"
	"github.com/mmeshcher/affiliate-backoffice/internal/shopify"
	"github.com/mmeshcher/affiliate-backoffice/internal/sso"
)

// ShopifyOrderPaid обрабатывает вебхук orders/paid: проверяет подпись по сырому телу
// и начисляет комиссию партнёру.
func (h *Handler) ShopifyOrderPaid(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Cuerpo inválido")
		return
	}

	if !shopify.VerifyWebhook(body, r.Header.Get(shopify.HMACHeader), h.opts.WebhookSecret) {
		h.logger.Warn("webhook signature mismatch", zap.String("topic", r.Header.Get("X-Shopify-Topic")))
		writeError(w, http.StatusUnauthorized, "Firma inválida")
		return
	}

	var order shopify.Order
	if err := json.Unmarshal(body, &order); err != nil {
		writeError(w, http.StatusBadRequest, "JSON inválido")
		return
	}

	res, err := h.service.ProcessPaidOrder(r.Context(), order)
	if err != nil {
		h.fail(w, err, "process paid order", zap.Int64("order_id", order.ID))
		return
	}

	if !res.Credited {
		writeJSON(w, http.StatusOK, envelope{"status": "ignored", "reason": res.Reason})
		return
	}

	writeJSON(w, http.StatusOK, envelope{
		"status":         "credited",
		"affiliate_id":   res.AffiliateID,
		"points":         pointsJSON(res.Points),
		"transaction_id": res.TransactionID,
	})
}

// SSO обменивает токен витрины (enc, t, sig) на cookie сессии партнёра.
// Необязательный параметр redirect задаёт локальный путь для перехода после входа.
func (h *Handler) SSO(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	tok := sso.Token{Enc: q.Get("enc"), T: q.Get("t"), Sig: q.Get("sig")}

	a, err := h.service.LoginWithSSO(r.Context(), tok)
	if err != nil {
		h.fail(w, err, "sso login")
		return
	}

	if err := h.authMiddleware.SetSession(w, r, a.ID); err != nil {
		h.fail(w, err, "save session", zap.String("affiliate_id", a.ID.String()))
		return
	}

	if target := q.Get("redirect"); isLocalPath(target) {
		http.Redirect(w, r, target, http.StatusFound)
		return
	}

	writeJSON(w, http.StatusOK, envelope{"affiliate": toAffiliate(a)})
}

func isLocalPath(p string) bool {
	return strings.HasPrefix(p, "/") && !strings.HasPrefix(p, "//") && !strings.Contains(p, `\`)
}

// Logout удаляет cookie сессии партнёра.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.authMiddleware.ClearSession(w, r); err != nil {
		h.fail(w, err, "clear session")
		return
	}
	writeJSON(w, http.StatusOK, envelope{})
}

type adminLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AdminLogin выдаёт bearer-токен администратору.
func (h *Handler) AdminLogin(w http.ResponseWriter, r *http.Request) {
	var req adminLoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email y password son obligatorios")
		return
	}

	if err := h.service.AuthenticateAdmin(req.Email, req.Password); err != nil {
		h.fail(w, err, "admin login")
		return
	}

	token, expires, err := h.adminAuth.Issue(strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		h.fail(w, err, "issue admin token")
		return
	}

	writeJSON(w, http.StatusOK, envelope{"token": token, "expires_at": expires.Format(time.RFC3339)})
}

// Cron запускает сверку витрин партнёров с магазином.
func (h *Handler) Cron(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.SyncStorefronts(r.Context())
	if err != nil {
		h.fail(w, err, "storefront sync")
		return
	}
	writeJSON(w, http.StatusOK, envelope{"result": res})
}

// Banners возвращает активные баннеры главной страницы.
func (h *Handler) Banners(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, envelope{"items": h.service.ListContent(r.Context(), model.ContentBanner, false)})
}

// News возвращает активные новости главной страницы.
func (h *Handler) News(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, envelope{"items": h.service.ListContent(r.Context(), model.ContentNews, false)})
}

// Health проверяет доступность БД.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Ping(r.Context()); err != nil {
		h.logger.Warn("health check", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	writeJSON(w, http.StatusOK, envelope{})
}
