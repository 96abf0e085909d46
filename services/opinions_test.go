package services

import (
	"context"
	"strings"
	"testing"

	"rewards-dashboard/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitOpinion(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.connect(t, walletA)

	o, err := env.svc.Opinions.Submit(ctx, OpinionInput{WalletAddress: walletA, Rating: 5, Message: "  love it  "})
	require.NoError(t, err)
	assert.Equal(t, "love it", o.Message)
	require.NotNil(t, o.UserID)
	assert.Equal(t, u.ID, *o.UserID)

	anon, err := env.svc.Opinions.Submit(ctx, OpinionInput{WalletAddress: walletB, Message: "who am I"})
	require.NoError(t, err)
	assert.Nil(t, anon.UserID)
	assert.Equal(t, walletB, anon.WalletAddress)

	page, err := env.svc.Opinions.List(ctx, models.Page{Page: 1, Size: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.TotalItems)
}

func TestSubmitOpinionValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	cases := map[string]OpinionInput{
		"empty":      {Message: "   "},
		"too long":   {Message: strings.Repeat("x", 2001)},
		"bad rating": {Message: "ok", Rating: 6},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := env.svc.Opinions.Submit(ctx, in)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}

	_, err := env.svc.Opinions.Submit(ctx, OpinionInput{Message: "hi", WalletAddress: "0xnope"})
	assert.ErrorIs(t, err, ErrInvalidWallet)
}
