package application_test

import (
	"testing"

	"github.com/pali-wallet/palid/internal/core/application"
	"github.com/pali-wallet/palid/internal/core/domain"
	"github.com/stretchr/testify/require"
)

func TestContacts(t *testing.T) {
	w := newUnlockedWallet(t, nil)
	svc := application.NewContactsService(w.repoManager, w.networks)

	account, err := w.walletSvc.ActiveAccount(ctx)
	require.NoError(t, err)
	testnetAddress := account.Address[domain.NetworkTestnet]
	mainAddress := account.Address[domain.NetworkMain]

	_, err = svc.Add(ctx, "bob", testnetAddress, "regtest")
	require.ErrorIs(t, err, domain.ErrUnknownNetwork)

	_, err = svc.Add(ctx, "bob", mainAddress, domain.NetworkTestnet)
	require.ErrorIs(t, err, domain.ErrInvalidAddress)

	_, err = svc.Add(ctx, " ", testnetAddress, domain.NetworkTestnet)
	require.ErrorIs(t, err, domain.ErrInvalidLabel)

	bob, err := svc.Add(ctx, "bob", testnetAddress, domain.NetworkTestnet)
	require.NoError(t, err)
	require.NotEmpty(t, bob.ID)

	alice, err := svc.Add(ctx, "Alice", mainAddress, domain.NetworkMain)
	require.NoError(t, err)

	web3, err := svc.Add(ctx, "carol", account.Web3Address, domain.NetworkWeb3)
	require.NoError(t, err)

	contacts, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, contacts, 3)
	require.Equal(t, "Alice", contacts[0].Label)
	require.Equal(t, "bob", contacts[1].Label)
	require.Equal(t, "carol", contacts[2].Label)

	_, err = svc.Update(ctx, bob.ID, "", mainAddress)
	require.ErrorIs(t, err, domain.ErrInvalidAddress)

	updated, err := svc.Update(ctx, bob.ID, "Bob", "")
	require.NoError(t, err)
	require.Equal(t, "Bob", updated.Label)
	require.Equal(t, testnetAddress, updated.Address)

	got, err := svc.Get(ctx, bob.ID)
	require.NoError(t, err)
	require.Equal(t, *updated, *got)

	require.NoError(t, svc.Remove(ctx, alice.ID))
	_, err = svc.Get(ctx, alice.ID)
	require.ErrorIs(t, err, domain.ErrContactNotFound)

	err = svc.Remove(ctx, alice.ID)
	require.ErrorIs(t, err, domain.ErrContactNotFound)

	contacts, err = svc.List(ctx)
	require.NoError(t, err)
	require.Equal(t, []domain.Contact{*updated, *web3}, contacts)
}
