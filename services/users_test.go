package services

import (
	"context"
	"testing"

	"rewards-dashboard/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strp(s string) *string { return &s }

func TestConnectCreatesOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first, err := env.svc.Users.Connect(ctx, "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed", "")
	require.NoError(t, err)
	assert.True(t, first.Created)
	assert.Equal(t, walletA, first.User.WalletAddress)
	assert.Len(t, first.User.ReferralCode, 8)

	second, err := env.svc.Users.Connect(ctx, walletA, "")
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, first.User.ID, second.User.ID)
}

func TestConnectRejectsBadWallet(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.svc.Users.Connect(context.Background(), "0x1234", "")
	assert.ErrorIs(t, err, ErrInvalidWallet)
}

func TestConnectWithReferral(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	referrer := env.connect(t, walletA)

	res, err := env.svc.Users.Connect(ctx, walletB, referrer.ReferralCode)
	require.NoError(t, err)
	require.True(t, res.Created)
	assert.Equal(t, int64(50), res.User.Points)
	require.NotNil(t, res.User.ReferredBy)
	assert.Equal(t, referrer.ID, *res.User.ReferredBy)

	after := env.user(t, walletA)
	assert.Equal(t, int64(100), after.Points)
	assert.Equal(t, 1, after.ReferralCount)

	refs, err := env.svc.Users.Referrals(ctx, walletA)
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, walletB, refs[0].WalletAddress)
}

func TestConnectUnknownReferralCode(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.svc.Users.Connect(context.Background(), walletA, "NOPE1234")
	assert.ErrorIs(t, err, ErrUnknownReferralCode)

	_, err = env.svc.Users.Get(context.Background(), walletA)
	assert.ErrorIs(t, err, ErrUserNotFound, "failed referral must not create the user")
}

func TestApplyReferral(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.connect(t, walletA)
	b := env.connect(t, walletB)

	_, err := env.svc.Users.ApplyReferral(ctx, walletB, b.ReferralCode)
	assert.ErrorIs(t, err, ErrSelfReferral)

	res, err := env.svc.Users.ApplyReferral(ctx, walletB, a.ReferralCode)
	require.NoError(t, err)
	assert.Equal(t, int64(50), res.User.Points)

	_, err = env.svc.Users.ApplyReferral(ctx, walletB, a.ReferralCode)
	assert.ErrorIs(t, err, ErrAlreadyReferred)

	// a cannot now be referred by b
	_, err = env.svc.Users.ApplyReferral(ctx, walletA, b.ReferralCode)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestGetUnknownWallet(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.svc.Users.Get(context.Background(), walletC)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUpdateProfileAwardsBonusOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.connect(t, walletA)

	u, rc, err := env.svc.Users.UpdateProfile(ctx, walletA, models.ProfilePatch{
		Username: strp("alice"),
		Email:    strp("alice@example.com"),
	})
	require.NoError(t, err)
	assert.Zero(t, rc.Total())
	assert.Equal(t, 28, ProfileCompletionOf(u).Percentage)

	full := models.ProfilePatch{
		Twitter:   strp("alice"),
		Discord:   strp("alice#1"),
		Telegram:  strp("alice_t"),
		AvatarURL: strp("https://cdn.example.com/a.png"),
		Bio:       strp("hello"),
	}
	u, rc, err = env.svc.Users.UpdateProfile(ctx, walletA, full)
	require.NoError(t, err)
	assert.Equal(t, int64(200), rc.Total())
	assert.Equal(t, int64(200), u.Points)
	assert.True(t, u.ProfileBonusAwarded)

	_, rc, err = env.svc.Users.UpdateProfile(ctx, walletA, models.ProfilePatch{Bio: strp("changed")})
	require.NoError(t, err)
	assert.Zero(t, rc.Total())
	assert.Equal(t, int64(200), env.user(t, walletA).Points)
}

func TestUpdateProfileValidation(t *testing.T) {
	env := newTestEnv(t)
	env.connect(t, walletA)

	cases := map[string]models.ProfilePatch{
		"username": {Username: strp("a b")},
		"email":    {Email: strp("not-an-email")},
		"avatar":   {AvatarURL: strp("ftp://x/y.png")},
	}
	for name, patch := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, err := env.svc.Users.UpdateProfile(context.Background(), walletA, patch)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestHistoryNewestFirst(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.connect(t, walletA)
	t1 := env.task(t, "Follow on X", 30)
	t2 := env.task(t, "Join Discord", 40)

	_, err := env.svc.Tasks.Complete(ctx, walletA, t1.ID)
	require.NoError(t, err)
	env.advance(1)
	_, err = env.svc.Tasks.Complete(ctx, walletA, t2.ID)
	require.NoError(t, err)

	page, err := env.svc.Users.History(ctx, walletA, models.Page{Page: 1, Size: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.TotalItems)
	assert.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Items, 1)
	assert.Equal(t, int64(40), page.Items[0].Points)
}
