package service

import (
	"context"
	"testing"

	"marketplace/internal/config"
	"marketplace/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetWallet(t *testing.T) {
	db := newTestDB(t)
	f := newFixtures(t, db)
	svc := NewAccountService(db)

	seller := f.user("seller", "12.5", model.RoleSeller)

	wallet, err := svc.GetWallet(context.Background(), seller.ID)
	require.NoError(t, err)
	assert.Equal(t, seller.ID, wallet.UserID)
	assert.Equal(t, model.RoleSeller, wallet.Role)
	assert.True(t, dec("12.5").Equal(wallet.Balance))

	_, err = svc.GetWallet(context.Background(), 999)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestListTransactionsPaginates(t *testing.T) {
	db := newTestDB(t)
	f := newFixtures(t, db)
	svc := NewAccountService(db)
	redeem := NewRedeemService(db, config.Default(), testLogger())
	ctx := context.Background()

	user := f.user("u", "0", model.RoleUser)
	for _, code := range []string{"C1", "C2", "C3"} {
		seedCode(t, f, code, "1", 1)
		_, err := redeem.Redeem(ctx, &RedeemRequest{UserID: user.ID, Code: code})
		require.NoError(t, err)
	}

	page, err := svc.ListTransactions(ctx, user.ID, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "C3", page.Items[0].Reference)

	page, err = svc.ListTransactions(ctx, user.ID, 2, 2)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "C1", page.Items[0].Reference)

	page, err = svc.ListTransactions(ctx, user.ID, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Len(t, page.Items, 3)
}
