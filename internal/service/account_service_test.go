package service

import (
	"context"
	"testing"

	"github.com/alexanderramin/quitplan/internal/domain"
	"github.com/alexanderramin/quitplan/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountService_SetPushToken(t *testing.T) {
	database := testutil.NewTestDB(t)
	svc := NewAccountService(testutil.NewTestUoW(database), testutil.NewManualClock(testutil.Epoch))
	ctx := context.Background()
	member := testutil.NewMemberID()

	_, err := svc.GetAccount(ctx, member)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	acct, err := svc.SetPushToken(ctx, member, " device-1 ")
	require.NoError(t, err)
	require.True(t, acct.HasTarget())
	assert.Equal(t, "device-1", *acct.PushToken)

	again, err := svc.SetPushToken(ctx, member, "")
	require.NoError(t, err)
	assert.Equal(t, acct.ID, again.ID, "the account is reused")
	assert.False(t, again.HasTarget())

	got, err := svc.GetAccount(ctx, member)
	require.NoError(t, err)
	assert.Nil(t, got.PushToken)

	_, err = svc.SetPushToken(ctx, " ", "device-2")
	assert.Error(t, err)
}
