// Package model содержит доменные сущности бэк-офиса партнёрской программы.
package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AffiliateStatus описывает статус партнёра.
type AffiliateStatus string

const (
	AffiliateStatusActive   AffiliateStatus = "active"
	AffiliateStatusInactive AffiliateStatus = "inactive"
	AffiliateStatusPending  AffiliateStatus = "pending"
)

// Valid сообщает, является ли статус допустимым.
func (s AffiliateStatus) Valid() bool {
	switch s {
	case AffiliateStatusActive, AffiliateStatusInactive, AffiliateStatusPending:
		return true
	}
	return false
}

// Affiliate представляет зарегистрированного партнёра-профессионала.
type Affiliate struct {
	ID                  uuid.UUID
	Name                string
	Email               string
	Phone               string
	ShopifyCustomerID   *int64
	ShopifyCollectionID string
	Status              AffiliateStatus
	CLABE               string
	StorefrontActive    bool
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// AffiliateFilter задаёт условия выборки партнёров.
type AffiliateFilter struct {
	Status AffiliateStatus
	Search string
	Limit  int
	Offset int
}

// AffiliateUpdate содержит изменяемые администратором поля партнёра. Nil означает «не менять».
type AffiliateUpdate struct {
	Name                *string
	Phone               *string
	ShopifyCollectionID *string
	CLABE               *string
}

// Direction задаёт направление движения баллов.
type Direction string

const (
	DirectionIn  Direction = "IN"
	DirectionOut Direction = "OUT"
)

// Category описывает происхождение транзакции.
type Category string

const (
	CategoryEarning  Category = "earning"
	CategoryManual   Category = "manual"
	CategoryBonus    Category = "bonus"
	CategoryExchange Category = "exchange"
	CategoryRefund   Category = "refund"
)

// TransactionStatus описывает статус транзакции.
type TransactionStatus string

const (
	TransactionPending   TransactionStatus = "pending"
	TransactionConfirmed TransactionStatus = "confirmed"
	TransactionCancelled TransactionStatus = "cancelled"
)

// ActorType описывает инициатора транзакции.
type ActorType string

const (
	ActorSystem    ActorType = "system"
	ActorAdmin     ActorType = "admin"
	ActorAffiliate ActorType = "affiliate"
	ActorWebhook   ActorType = "webhook"
)

// Типы внешних ссылок транзакций.
const (
	ReferenceShopifyOrder  = "shopify_order"
	ReferencePointExchange = "point_exchange"
)

// PointTransaction описывает неизменяемую запись журнала баллов.
type PointTransaction struct {
	ID            int64
	AffiliateID   uuid.UUID
	Points        decimal.Decimal
	Direction     Direction
	Category      Category
	Status        TransactionStatus
	ReferenceID   string
	ReferenceType string
	Description   string
	ActorType     ActorType
	CreatedAt     time.Time
}

// TransactionFilter задаёт условия выборки журнала.
type TransactionFilter struct {
	Status   TransactionStatus
	Category Category
	Limit    int
	Offset   int
}

// Balance содержит баланс партнёра, рассчитанный по журналу.
type Balance struct {
	Available decimal.Decimal
	Pending   decimal.Decimal
	TotalIn   decimal.Decimal
	TotalOut  decimal.Decimal
}

// ExchangeType описывает способ обмена баллов.
type ExchangeType string

const (
	ExchangeCash     ExchangeType = "cash"
	ExchangeDiscount ExchangeType = "discount"
	ExchangeProduct  ExchangeType = "product"
)

// Valid сообщает, является ли тип обмена допустимым.
func (t ExchangeType) Valid() bool {
	switch t {
	case ExchangeCash, ExchangeDiscount, ExchangeProduct:
		return true
	}
	return false
}

// ExchangeStatus описывает статус заявки на обмен.
type ExchangeStatus string

const (
	ExchangePending  ExchangeStatus = "pending"
	ExchangeApproved ExchangeStatus = "approved"
	ExchangeRejected ExchangeStatus = "rejected"
)

// PointExchange описывает заявку партнёра на вывод или обмен баллов.
type PointExchange struct {
	ID              uuid.UUID
	AffiliateID     uuid.UUID
	PointsRequested decimal.Decimal
	ExchangeType    ExchangeType
	Status          ExchangeStatus
	RequestedAt     time.Time
	ProcessedAt     *time.Time
	AdminNote       string
}

// ExchangeFilter задаёт условия выборки заявок.
type ExchangeFilter struct {
	AffiliateID *uuid.UUID
	Status      ExchangeStatus
	Limit       int
	Offset      int
}

// ContentKind различает баннеры и новости главной страницы.
type ContentKind string

const (
	ContentBanner ContentKind = "banner"
	ContentNews   ContentKind = "news"
)

// ContentItem описывает элемент карусели баннеров или ленты новостей.
type ContentItem struct {
	ID       uuid.UUID   `json:"id"`
	Kind     ContentKind `json:"kind"`
	Position int         `json:"position"`
	Title    string      `json:"title"`
	ImageURL string      `json:"image_url,omitempty"`
	LinkURL  string      `json:"link_url,omitempty"`
	Body     string      `json:"body,omitempty"`
	Active   bool        `json:"active"`
}

// SharecartStatus описывает статус корзины.
type SharecartStatus string

const (
	SharecartPending   SharecartStatus = "pending"
	SharecartCompleted SharecartStatus = "completed"
)

// SharecartItem описывает позицию предзаполненной корзины.
type SharecartItem struct {
	VariantID int64 `json:"variant_id"`
	Quantity  int   `json:"quantity"`
}

// Sharecart описывает ссылку на предзаполненную корзину Shopify.
type Sharecart struct {
	ID             uuid.UUID
	Token          string
	AffiliateID    uuid.UUID
	Items          []SharecartItem
	Status         SharecartStatus
	ShopifyOrderID string
	CreatedAt      time.Time
	CompletedAt    *time.Time
}
