package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/affiliate-backoffice/internal/model"
)

func TestShareURL(t *testing.T) {
	affiliateID := uuid.MustParse("7f1c2d6e-3a1b-4c5d-8e9f-001122334455")
	sc := model.Sharecart{
		Token:       "abc123",
		AffiliateID: affiliateID,
		Items: []model.SharecartItem{
			{VariantID: 4411, Quantity: 2},
			{VariantID: 4412, Quantity: 1},
		},
	}

	want := "https://brand.myshopify.com/cart/4411:2,4412:1" +
		"?attributes[sharecart_token]=abc123" +
		"&attributes[affiliate_id]=7f1c2d6e-3a1b-4c5d-8e9f-001122334455"

	assert.Equal(t, want, ShareURL("brand.myshopify.com", sc))
	assert.Equal(t, want, ShareURL("https://brand.myshopify.com/", sc))
}

func TestCreateSharecart(t *testing.T) {
	repo := newMemRepo()
	id := repo.addAffiliate(model.AffiliateStatusActive)
	svc := NewService(repo, Deps{ShopDomain: "brand.myshopify.com"})
	ctx := context.Background()

	sc, err := svc.CreateSharecart(ctx, id, []model.SharecartItem{{VariantID: 1, Quantity: 3}})
	require.NoError(t, err)
	assert.Equal(t, model.SharecartPending, sc.Status)
	assert.Len(t, sc.Token, 32)
	assert.Contains(t, svc.ShareURL(*sc), "/cart/1:3?")

	var ve *ValidationError
	_, err = svc.CreateSharecart(ctx, id, nil)
	assert.ErrorAs(t, err, &ve)
	_, err = svc.CreateSharecart(ctx, id, []model.SharecartItem{{VariantID: 1, Quantity: 0}})
	assert.ErrorAs(t, err, &ve)
	_, err = svc.ListSharecarts(ctx, nil, "lost", 0, 0)
	assert.ErrorAs(t, err, &ve)

	disabled := NewService(repo, Deps{})
	_, err = disabled.CreateSharecart(ctx, id, []model.SharecartItem{{VariantID: 1, Quantity: 1}})
	assert.ErrorIs(t, err, ErrDisabled)
}
