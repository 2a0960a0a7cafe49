package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/affiliate-backoffice/internal/model"
	"github.com/mmeshcher/affiliate-backoffice/internal/shopify"
)

func paidOrder(id int64, total string, attrs ...shopify.NoteAttribute) shopify.Order {
	return shopify.Order{
		ID:              id,
		Name:            "#1001",
		FinancialStatus: "paid",
		TotalPrice:      points(total),
		Currency:        "MXN",
		NoteAttributes:  attrs,
	}
}

func TestCommission(t *testing.T) {
	tests := []struct {
		total string
		want  string
	}{
		{total: "1000", want: "100.00"},
		{total: "1234.56", want: "123.46"},
		{total: "0.04", want: "0.00"},
		{total: "99.95", want: "10.00"},
	}

	for _, tt := range tests {
		t.Run(tt.total, func(t *testing.T) {
			assert.Equal(t, tt.want, Commission(points(tt.total)).StringFixed(2))
		})
	}
}

func TestProcessPaidOrder_IsIdempotent(t *testing.T) {
	repo := newMemRepo()
	id := repo.addAffiliate(model.AffiliateStatusActive)
	svc := NewService(repo, Deps{})
	ctx := context.Background()

	order := paidOrder(5001, "1500.00", shopify.NoteAttribute{Name: "affiliate_id", Value: id.String()})

	first, err := svc.ProcessPaidOrder(ctx, order)
	require.NoError(t, err)
	assert.True(t, first.Credited)
	assert.Equal(t, "150.00", first.Points.StringFixed(2))

	second, err := svc.ProcessPaidOrder(ctx, order)
	require.NoError(t, err)
	assert.False(t, second.Credited)
	assert.Equal(t, ReasonDuplicate, second.Reason)

	txs, err := svc.ListTransactions(ctx, id, model.TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, model.DirectionIn, txs[0].Direction)
	assert.Equal(t, model.CategoryEarning, txs[0].Category)
	assert.Equal(t, model.ActorWebhook, txs[0].ActorType)
	assert.Equal(t, "5001", txs[0].ReferenceID)
	assert.Equal(t, model.ReferenceShopifyOrder, txs[0].ReferenceType)
}

func TestProcessPaidOrder_ConcurrentDeliveryCaughtByUniqueIndex(t *testing.T) {
	repo := newMemRepo()
	id := repo.addAffiliate(model.AffiliateStatusActive)
	svc := NewService(repo, Deps{})
	ctx := context.Background()

	order := paidOrder(5002, "100", shopify.NoteAttribute{Name: "ref", Value: id.String()})

	_, err := svc.ProcessPaidOrder(ctx, order)
	require.NoError(t, err)

	repo.skipReferenceCheck = true
	res, err := svc.ProcessPaidOrder(ctx, order)
	require.NoError(t, err)
	assert.Equal(t, ReasonDuplicate, res.Reason)
	assert.Equal(t, 1, repo.txCount())
}

func TestProcessPaidOrder_Ignored(t *testing.T) {
	repo := newMemRepo()
	active := repo.addAffiliate(model.AffiliateStatusActive)
	inactive := repo.addAffiliate(model.AffiliateStatusInactive)
	svc := NewService(repo, Deps{})

	notPaid := paidOrder(1, "100", shopify.NoteAttribute{Name: "affiliate_id", Value: active.String()})
	notPaid.FinancialStatus = "pending"

	tests := []struct {
		name   string
		order  shopify.Order
		reason string
	}{
		{name: "not paid", order: notPaid, reason: ReasonNotPaid},
		{name: "no attributes", order: paidOrder(2, "100"), reason: ReasonNoAffiliate},
		{name: "malformed id", order: paidOrder(3, "100", shopify.NoteAttribute{Name: "affiliate_id", Value: "42"}), reason: ReasonNoAffiliate},
		{name: "unknown affiliate", order: paidOrder(4, "100", shopify.NoteAttribute{Name: "affiliate_id", Value: uuid.NewString()}), reason: ReasonUnknownAffiliate},
		{name: "inactive affiliate", order: paidOrder(5, "100", shopify.NoteAttribute{Name: "affiliate_id", Value: inactive.String()}), reason: ReasonInactive},
		{name: "free order", order: paidOrder(6, "0", shopify.NoteAttribute{Name: "affiliate_id", Value: active.String()}), reason: ReasonZeroCommission},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := svc.ProcessPaidOrder(context.Background(), tt.order)
			require.NoError(t, err)
			assert.False(t, res.Credited)
			assert.Equal(t, tt.reason, res.Reason)
		})
	}
	assert.Zero(t, repo.txCount())
}

func TestProcessPaidOrder_CompletesSharecart(t *testing.T) {
	repo := newMemRepo()
	id := repo.addAffiliate(model.AffiliateStatusActive)
	svc := NewService(repo, Deps{ShopDomain: "brand.myshopify.com"})
	ctx := context.Background()

	sc, err := svc.CreateSharecart(ctx, id, []model.SharecartItem{{VariantID: 11, Quantity: 2}})
	require.NoError(t, err)

	res, err := svc.ProcessPaidOrder(ctx, paidOrder(7001, "250",
		shopify.NoteAttribute{Name: "sharecart_token", Value: sc.Token},
		shopify.NoteAttribute{Name: "affiliate_id", Value: id.String()},
	))
	require.NoError(t, err)
	assert.True(t, res.Credited)
	assert.True(t, res.SharecartCompleted)

	carts, err := svc.ListSharecarts(ctx, &id, model.SharecartCompleted, 0, 0)
	require.NoError(t, err)
	require.Len(t, carts, 1)
	assert.Equal(t, "7001", carts[0].ShopifyOrderID)
}
