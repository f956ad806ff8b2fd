package application_test

import (
	"testing"

	"github.com/pali-wallet/palid/internal/core/application"
	"github.com/pali-wallet/palid/internal/core/domain"
	"github.com/stretchr/testify/require"
)

const dappOrigin = "https://dapp.example.com"

func TestConnectionRequests(t *testing.T) {
	w := newUnlockedWallet(t, nil)
	svc := application.NewConnectionsService(w.repoManager, w.pubsub)

	_, err := svc.RequestConnection(ctx, " / ")
	require.ErrorIs(t, err, application.ErrInvalidOrigin)

	nonce, err := svc.RequestConnection(ctx, dappOrigin+"/")
	require.NoError(t, err)
	require.NotEmpty(t, nonce)

	rejected, err := svc.RequestConnection(ctx, "https://other.example.com")
	require.NoError(t, err)
	require.NotEqual(t, nonce, rejected)

	pending := svc.PendingConnections(ctx)
	require.Len(t, pending, 2)
	require.Equal(t, dappOrigin, pending[0].Origin)

	require.NoError(t, svc.RejectConnection(ctx, rejected))
	err = svc.RejectConnection(ctx, rejected)
	require.ErrorIs(t, err, application.ErrConnectionRequestNotFound)

	err = svc.ApproveConnection(ctx, nonce, 42)
	require.ErrorIs(t, err, domain.ErrAccountNotFound)

	// A failed approval consumes the request.
	err = svc.ApproveConnection(ctx, nonce, 0)
	require.ErrorIs(t, err, application.ErrConnectionRequestNotFound)

	nonce, err = svc.RequestConnection(ctx, dappOrigin)
	require.NoError(t, err)
	require.NoError(t, svc.ApproveConnection(ctx, nonce, 0))
	require.Empty(t, svc.PendingConnections(ctx))

	connected, err := svc.IsConnected(ctx, dappOrigin)
	require.NoError(t, err)
	require.True(t, connected)

	events := w.events.byType(application.EventAccountConnected)
	require.Len(t, events, 1)
	require.Equal(t, dappOrigin, events[0].Origin)
	require.Equal(t, application.Connection{Origin: dappOrigin, AccountID: 0}, events[0].Payload)
}

func TestOriginConnectedToOneAccount(t *testing.T) {
	w := newUnlockedWallet(t, nil)
	svc := application.NewConnectionsService(w.repoManager, w.pubsub)

	second, err := w.walletSvc.CreateAccount(ctx, "")
	require.NoError(t, err)

	_, err = svc.ConnectedAccount(ctx, dappOrigin)
	require.ErrorIs(t, err, application.ErrOriginNotConnected)

	require.NoError(t, svc.Connect(ctx, dappOrigin, 0))
	require.NoError(t, svc.Connect(ctx, dappOrigin+"/", second.ID))

	account, err := svc.ConnectedAccount(ctx, dappOrigin)
	require.NoError(t, err)
	require.Equal(t, second.ID, account.ID)

	first, err := w.walletSvc.GetAccount(ctx, 0)
	require.NoError(t, err)
	require.False(t, first.IsConnectedTo(dappOrigin))

	connections, err := svc.ListConnections(ctx)
	require.NoError(t, err)
	require.Equal(t, []application.Connection{
		{Origin: dappOrigin, AccountID: second.ID},
	}, connections)

	err = svc.ChangeConnectedAccount(ctx, "https://unknown.example.com", 0)
	require.ErrorIs(t, err, application.ErrOriginNotConnected)

	require.NoError(t, svc.ChangeConnectedAccount(ctx, dappOrigin, 0))
	account, err = svc.ConnectedAccount(ctx, dappOrigin)
	require.NoError(t, err)
	require.Equal(t, 0, account.ID)

	require.NoError(t, svc.Disconnect(ctx, dappOrigin))
	connected, err := svc.IsConnected(ctx, dappOrigin)
	require.NoError(t, err)
	require.False(t, connected)

	err = svc.Disconnect(ctx, dappOrigin)
	require.ErrorIs(t, err, application.ErrOriginNotConnected)

	connections, err = svc.ListConnections(ctx)
	require.NoError(t, err)
	require.Empty(t, connections)
}
