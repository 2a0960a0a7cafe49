package handler

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mmeshcher/affiliate-backoffice/internal/model"
)

func pointsJSON(d decimal.Decimal) json.Number {
	return json.Number(d.StringFixed(2))
}

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}

type affiliateResponse struct {
	ID                  uuid.UUID `json:"id"`
	Name                string    `json:"name"`
	Email               string    `json:"email"`
	Phone               string    `json:"phone"`
	ShopifyCustomerID   *int64    `json:"shopify_customer_id"`
	ShopifyCollectionID string    `json:"shopify_collection_id"`
	Status              string    `json:"status"`
	CLABE               string    `json:"clabe_interbancaria"`
	StorefrontActive    bool      `json:"storefront_active"`
	CreatedAt           string    `json:"created_at"`
	UpdatedAt           string    `json:"updated_at"`
}

func toAffiliate(a *model.Affiliate) affiliateResponse {
	return affiliateResponse{
		ID:                  a.ID,
		Name:                a.Name,
		Email:               a.Email,
		Phone:               a.Phone,
		ShopifyCustomerID:   a.ShopifyCustomerID,
		ShopifyCollectionID: a.ShopifyCollectionID,
		Status:              string(a.Status),
		CLABE:               a.CLABE,
		StorefrontActive:    a.StorefrontActive,
		CreatedAt:           a.CreatedAt.Format(time.RFC3339),
		UpdatedAt:           a.UpdatedAt.Format(time.RFC3339),
	}
}

func toAffiliates(list []model.Affiliate) []affiliateResponse {
	resp := make([]affiliateResponse, 0, len(list))
	for i := range list {
		resp = append(resp, toAffiliate(&list[i]))
	}
	return resp
}

type balanceResponse struct {
	Available json.Number `json:"available"`
	Pending   json.Number `json:"pending"`
	TotalIn   json.Number `json:"total_in"`
	TotalOut  json.Number `json:"total_out"`
}

func toBalance(b model.Balance) balanceResponse {
	return balanceResponse{
		Available: pointsJSON(b.Available),
		Pending:   pointsJSON(b.Pending),
		TotalIn:   pointsJSON(b.TotalIn),
		TotalOut:  pointsJSON(b.TotalOut),
	}
}

type transactionResponse struct {
	ID            int64       `json:"id"`
	Points        json.Number `json:"points"`
	Direction     string      `json:"direction"`
	Category      string      `json:"category"`
	Status        string      `json:"status"`
	ReferenceID   string      `json:"reference_id,omitempty"`
	ReferenceType string      `json:"reference_type,omitempty"`
	Description   string      `json:"description"`
	ActorType     string      `json:"actor_type"`
	CreatedAt     string      `json:"created_at"`
}

func toTransactions(list []model.PointTransaction) []transactionResponse {
	resp := make([]transactionResponse, 0, len(list))
	for _, t := range list {
		resp = append(resp, transactionResponse{
			ID:            t.ID,
			Points:        pointsJSON(t.Points),
			Direction:     string(t.Direction),
			Category:      string(t.Category),
			Status:        string(t.Status),
			ReferenceID:   t.ReferenceID,
			ReferenceType: t.ReferenceType,
			Description:   t.Description,
			ActorType:     string(t.ActorType),
			CreatedAt:     t.CreatedAt.Format(time.RFC3339),
		})
	}
	return resp
}

type exchangeResponse struct {
	ID              uuid.UUID   `json:"id"`
	AffiliateID     uuid.UUID   `json:"customer_id"`
	PointsRequested json.Number `json:"points_requested"`
	ExchangeType    string      `json:"exchange_type"`
	Status          string      `json:"status"`
	RequestedAt     string      `json:"requested_at"`
	ProcessedAt     *string     `json:"processed_at"`
	AdminNote       string      `json:"admin_note"`
}

func toExchange(e *model.PointExchange) exchangeResponse {
	return exchangeResponse{
		ID:              e.ID,
		AffiliateID:     e.AffiliateID,
		PointsRequested: pointsJSON(e.PointsRequested),
		ExchangeType:    string(e.ExchangeType),
		Status:          string(e.Status),
		RequestedAt:     e.RequestedAt.Format(time.RFC3339),
		ProcessedAt:     formatTime(e.ProcessedAt),
		AdminNote:       e.AdminNote,
	}
}

func toExchanges(list []model.PointExchange) []exchangeResponse {
	resp := make([]exchangeResponse, 0, len(list))
	for i := range list {
		resp = append(resp, toExchange(&list[i]))
	}
	return resp
}

type sharecartResponse struct {
	ID             uuid.UUID             `json:"id"`
	Token          string                `json:"token"`
	AffiliateID    uuid.UUID             `json:"customer_id"`
	Items          []model.SharecartItem `json:"items"`
	Status         string                `json:"status"`
	ShopifyOrderID string                `json:"shopify_order_id,omitempty"`
	URL            string                `json:"url"`
	CreatedAt      string                `json:"created_at"`
	CompletedAt    *string               `json:"completed_at"`
}

func (h *Handler) toSharecarts(list []model.Sharecart) []sharecartResponse {
	resp := make([]sharecartResponse, 0, len(list))
	for _, s := range list {
		resp = append(resp, sharecartResponse{
			ID:             s.ID,
			Token:          s.Token,
			AffiliateID:    s.AffiliateID,
			Items:          s.Items,
			Status:         string(s.Status),
			ShopifyOrderID: s.ShopifyOrderID,
			URL:            h.service.ShareURL(s),
			CreatedAt:      s.CreatedAt.Format(time.RFC3339),
			CompletedAt:    formatTime(s.CompletedAt),
		})
	}
	return resp
}
