package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	custommiddleware "github.com/mmeshcher/affiliate-backoffice/internal/middleware"
	"github.com/mmeshcher/affiliate-backoffice/internal/model"
)

// SetupRouter настраивает HTTP-маршруты и middleware бэк-офиса.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)
		r.Get("/banners", h.Banners)
		r.Get("/news", h.News)

		r.Post("/webhooks/shopify/orders-paid", h.ShopifyOrderPaid)

		r.Get("/session/sso", h.SSO)
		r.Post("/session/logout", h.Logout)

		r.With(custommiddleware.CronAuth(h.opts.CronSecret)).Get("/cron", h.Cron)

		r.Route("/affiliates", func(r chi.Router) {
			r.Use(h.authMiddleware.Middleware)

			r.Get("/me", h.Me)
			r.Get("/points", h.Points)
			r.Get("/wallet", h.Wallet)

			r.Get("/exchanges", h.MyExchanges)
			r.Post("/exchanges", h.RequestExchange)

			r.Get("/sharecarts", h.MySharecarts)
			r.Post("/sharecarts", h.CreateSharecart)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Post("/login", h.AdminLogin)

			r.Group(func(r chi.Router) {
				r.Use(h.adminAuth.Middleware)

				r.Get("/affiliates", h.ListAffiliates)
				r.Post("/affiliates", h.CreateAffiliate)
				r.Get("/affiliates/{id}", h.GetAffiliate)
				r.Patch("/affiliates/{id}", h.UpdateAffiliate)
				r.Patch("/affiliates/{id}/status", h.SetAffiliateStatus)
				r.Get("/affiliates/{id}/legacy", h.LegacyProfile)
				r.Patch("/affiliates/{id}/legacy", h.PatchLegacyProfile)

				r.Post("/points/adjust", h.Adjust)
				r.Get("/points/{affiliateID}", h.AffiliatePoints)

				r.Get("/exchanges", h.ListExchanges)
				r.Post("/exchanges/{id}/approve", h.ApproveExchange)
				r.Post("/exchanges/{id}/reject", h.RejectExchange)

				r.Get("/sharecarts", h.ListSharecarts)

				r.Get("/banners", h.AdminContent(model.ContentBanner))
				r.Put("/banners", h.ReplaceContent(model.ContentBanner))
				r.Get("/news", h.AdminContent(model.ContentNews))
				r.Put("/news", h.ReplaceContent(model.ContentNews))

				r.Get("/reports/commissions", h.CommissionReport)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, http.StatusText(http.StatusNotFound))
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, http.StatusText(http.StatusMethodNotAllowed))
	})

	return r
}
