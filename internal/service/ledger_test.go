package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/affiliate-backoffice/internal/model"
	"github.com/mmeshcher/affiliate-backoffice/internal/repository"
)

func points(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestAdjust_RejectsOverdraft(t *testing.T) {
	repo := newMemRepo()
	id := repo.addAffiliate(model.AffiliateStatusActive)
	repo.addTx(id, model.DirectionIn, "100")
	repo.addTx(id, model.DirectionOut, "30")
	svc := NewService(repo, Deps{})
	ctx := context.Background()

	balance, err := svc.GetBalance(ctx, id)
	require.NoError(t, err)
	assert.True(t, balance.Available.Equal(points("70")), "available = %s", balance.Available)

	_, err = svc.Adjust(ctx, Adjustment{AffiliateID: id, Direction: model.DirectionOut, Points: points("80")})
	require.ErrorIs(t, err, repository.ErrInsufficientBalance)
	assert.Equal(t, "insufficient balance", err.Error())
	assert.Equal(t, 2, repo.txCount())

	balance, err = svc.Adjust(ctx, Adjustment{AffiliateID: id, Direction: model.DirectionOut, Points: points("70")})
	require.NoError(t, err)
	assert.True(t, balance.Available.IsZero())

	txs, err := svc.ListTransactions(ctx, id, model.TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, txs, 3)
	assert.Equal(t, model.CategoryManual, txs[0].Category)
	assert.Equal(t, model.ActorAdmin, txs[0].ActorType)
	assert.Equal(t, model.TransactionConfirmed, txs[0].Status)
}

func TestAdjust_Validation(t *testing.T) {
	repo := newMemRepo()
	id := repo.addAffiliate(model.AffiliateStatusActive)
	svc := NewService(repo, Deps{})

	tests := []struct {
		name string
		adj  Adjustment
	}{
		{name: "zero amount", adj: Adjustment{AffiliateID: id, Direction: model.DirectionIn, Points: decimal.Zero}},
		{name: "negative amount", adj: Adjustment{AffiliateID: id, Direction: model.DirectionIn, Points: points("-5")}},
		{name: "rounds to zero", adj: Adjustment{AffiliateID: id, Direction: model.DirectionIn, Points: points("0.001")}},
		{name: "unknown direction", adj: Adjustment{AffiliateID: id, Direction: "SIDEWAYS", Points: points("5")}},
		{name: "earning is not an adjustment", adj: Adjustment{AffiliateID: id, Direction: model.DirectionIn, Points: points("5"), Category: model.CategoryEarning}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Adjust(context.Background(), tt.adj)
			var ve *ValidationError
			assert.ErrorAs(t, err, &ve)
		})
	}
	assert.Zero(t, repo.txCount())
}

func TestAdjust_BonusCategory(t *testing.T) {
	repo := newMemRepo()
	id := repo.addAffiliate(model.AffiliateStatusActive)
	svc := NewService(repo, Deps{})

	balance, err := svc.Adjust(context.Background(), Adjustment{
		AffiliateID: id,
		Direction:   model.DirectionIn,
		Points:      points("12.345"),
		Category:    model.CategoryBonus,
		Description: "Bono de bienvenida",
	})
	require.NoError(t, err)
	assert.Equal(t, "12.35", balance.Available.StringFixed(2))
}

func TestExchange_OverSubscribedRequestIsAutoRejected(t *testing.T) {
	repo := newMemRepo()
	id := repo.addAffiliate(model.AffiliateStatusActive)
	repo.addTx(id, model.DirectionIn, "200")
	svc := NewService(repo, Deps{})
	ctx := context.Background()

	e, err := svc.RequestExchange(ctx, id, points("500"), model.ExchangeCash)
	require.NoError(t, err)
	assert.Equal(t, model.ExchangePending, e.Status)

	resolved, err := svc.ApproveExchange(ctx, e.ID, "ok")
	require.ErrorIs(t, err, repository.ErrInsufficientBalance)
	require.NotNil(t, resolved)
	assert.Equal(t, model.ExchangeRejected, resolved.Status)
	assert.Equal(t, "Saldo insuficiente al momento de aprobar", resolved.AdminNote)
	assert.NotNil(t, resolved.ProcessedAt)

	balance, err := svc.GetBalance(ctx, id)
	require.NoError(t, err)
	assert.True(t, balance.Available.Equal(points("200")))
}

func TestExchange_ApproveDebitsOnce(t *testing.T) {
	repo := newMemRepo()
	id := repo.addAffiliate(model.AffiliateStatusActive)
	repo.addTx(id, model.DirectionIn, "300")
	svc := NewService(repo, Deps{})
	ctx := context.Background()

	e, err := svc.RequestExchange(ctx, id, points("120.50"), model.ExchangeDiscount)
	require.NoError(t, err)

	approved, err := svc.ApproveExchange(ctx, e.ID, " pagado ")
	require.NoError(t, err)
	assert.Equal(t, model.ExchangeApproved, approved.Status)
	assert.Equal(t, "pagado", approved.AdminNote)

	count := repo.txCount()

	_, err = svc.ApproveExchange(ctx, e.ID, "otra vez")
	require.ErrorIs(t, err, repository.ErrExchangeNotPending)
	_, err = svc.RejectExchange(ctx, e.ID, "tarde")
	require.ErrorIs(t, err, repository.ErrExchangeNotPending)
	assert.Equal(t, count, repo.txCount())

	balance, err := svc.GetBalance(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "179.50", balance.Available.StringFixed(2))

	txs, err := svc.ListTransactions(ctx, id, model.TransactionFilter{})
	require.NoError(t, err)
	assert.Equal(t, model.CategoryExchange, txs[0].Category)
	assert.Equal(t, e.ID.String(), txs[0].ReferenceID)
	assert.Equal(t, model.ReferencePointExchange, txs[0].ReferenceType)
}

func TestExchange_Reject(t *testing.T) {
	repo := newMemRepo()
	id := repo.addAffiliate(model.AffiliateStatusActive)
	svc := NewService(repo, Deps{})
	ctx := context.Background()

	e, err := svc.RequestExchange(ctx, id, points("10"), model.ExchangeProduct)
	require.NoError(t, err)

	rejected, err := svc.RejectExchange(ctx, e.ID, "Producto agotado")
	require.NoError(t, err)
	assert.Equal(t, model.ExchangeRejected, rejected.Status)
	assert.Equal(t, "Producto agotado", rejected.AdminNote)
	assert.Zero(t, repo.txCount())
}

func TestRequestExchange_Validation(t *testing.T) {
	svc := NewService(newMemRepo(), Deps{})
	var ve *ValidationError

	_, err := svc.RequestExchange(context.Background(), uuid.New(), decimal.Zero, model.ExchangeCash)
	assert.ErrorAs(t, err, &ve)

	_, err = svc.RequestExchange(context.Background(), uuid.New(), points("10"), "gift")
	assert.ErrorAs(t, err, &ve)
}

func TestInactiveAffiliateCannotMovePoints(t *testing.T) {
	repo := newMemRepo()
	id := repo.addAffiliate(model.AffiliateStatusActive)
	repo.addTx(id, model.DirectionIn, "100")
	svc := NewService(repo, Deps{ShopDomain: "brand.myshopify.com"})
	ctx := context.Background()

	e, err := svc.RequestExchange(ctx, id, points("50"), model.ExchangeCash)
	require.NoError(t, err)

	_, err = svc.SetAffiliateStatus(ctx, id, model.AffiliateStatusInactive)
	require.NoError(t, err)

	_, err = svc.RequestExchange(ctx, id, points("50"), model.ExchangeCash)
	assert.ErrorIs(t, err, ErrAffiliateInactive)

	_, err = svc.CreateSharecart(ctx, id, []model.SharecartItem{{VariantID: 1, Quantity: 1}})
	assert.ErrorIs(t, err, ErrAffiliateInactive)

	_, err = svc.ApproveExchange(ctx, e.ID, "ok")
	require.ErrorIs(t, err, ErrAffiliateInactive)

	stored, err := repo.GetExchange(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ExchangePending, stored.Status)
	assert.Equal(t, 1, repo.txCount())

	rejected, err := svc.RejectExchange(ctx, e.ID, "cuenta desactivada")
	require.NoError(t, err)
	assert.Equal(t, model.ExchangeRejected, rejected.Status)
}
