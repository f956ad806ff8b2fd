package application_test

import (
	"context"
	"strings"
	"testing"

	"github.com/pali-wallet/palid/internal/core/application"
	"github.com/pali-wallet/palid/internal/core/domain"
	"github.com/pali-wallet/palid/internal/core/ports"
	"github.com/pali-wallet/palid/internal/infrastructure/storage/db/inmemory"
	"github.com/pali-wallet/palid/pkg/explorer"
	"github.com/pali-wallet/palid/pkg/wallet"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const (
	password    = "Sup3rS3cr3tP4ssw0rd!"
	newPassword = "An0th3rS3cr3tP4ssw0rd!"
	web3RPCURL  = "http://localhost:8545"
)

var ctx = context.Background()

type testWallet struct {
	walletSvc   application.WalletService
	repoManager ports.RepoManager
	networks    domain.Networks
	explorers   ports.ExplorerProvider
	pubsub      application.PubSubService
	events      *eventRecorder
}

// newTestWallet returns a wallet service connected to testnet whose
// indexer is explorerSvc. The wallet is not initialized.
func newTestWallet(t *testing.T, explorerSvc explorer.Service) *testWallet {
	repoManager := inmemory.NewRepoManager()
	networks := domain.NewNetworks("", "", web3RPCURL, 57)
	explorers := application.NewExplorerRegistry(
		networks, func(domain.Network) (explorer.Service, error) {
			return explorerSvc, nil
		},
	)
	events := &eventRecorder{}
	pubsub := application.NewPubSubService(nil)
	pubsub.AddListener(events)

	walletSvc, err := application.NewWalletService(
		repoManager, networks, explorers, pubsub, domain.NetworkTestnet,
	)
	require.NoError(t, err)
	t.Cleanup(walletSvc.Close)

	return &testWallet{walletSvc, repoManager, networks, explorers, pubsub, events}
}

// newUnlockedWallet returns a test wallet already created and unlocked.
func newUnlockedWallet(t *testing.T, explorerSvc explorer.Service) *testWallet {
	w := newTestWallet(t, explorerSvc)

	mnemonic, err := w.walletSvc.GenSeed(ctx)
	require.NoError(t, err)
	require.NoError(t, w.walletSvc.CreateWallet(ctx, mnemonic, password))
	require.NoError(t, w.walletSvc.Unlock(ctx, password))
	return w
}

func (w *testWallet) setBalance(t *testing.T, accountID int, balance string) {
	require.NoError(t, w.repoManager.AccountRepository().UpdateAccount(
		ctx, accountID, func(a *domain.Account) (*domain.Account, error) {
			a.Balance = decimal.RequireFromString(balance)
			return a, nil
		},
	))
}

func TestNewWalletService(t *testing.T) {
	networks := domain.NewNetworks("", "", "", 0)
	_, err := application.NewWalletService(
		inmemory.NewRepoManager(), networks, nil,
		application.NewPubSubService(nil), "regtest",
	)
	require.ErrorIs(t, err, domain.ErrUnknownNetwork)
}

func TestWalletLifecycle(t *testing.T) {
	w := newTestWallet(t, nil)
	svc := w.walletSvc

	status, err := svc.Status(ctx)
	require.NoError(t, err)
	require.False(t, status.Initialized)
	require.False(t, status.Unlocked)

	err = svc.Unlock(ctx, password)
	require.ErrorIs(t, err, application.ErrWalletNotInitialized)

	mnemonic, err := svc.GenSeed(ctx)
	require.NoError(t, err)
	require.Len(t, mnemonic, 12)

	require.NoError(t, svc.CreateWallet(ctx, mnemonic, password))
	err = svc.CreateWallet(ctx, mnemonic, password)
	require.ErrorIs(t, err, domain.ErrVaultAlreadyInitialized)

	err = svc.Unlock(ctx, "wrong password")
	require.ErrorIs(t, err, domain.ErrVaultInvalidPassphrase)

	require.NoError(t, svc.Unlock(ctx, password))
	require.Len(t, w.events.byType(application.EventWalletUnlocked), 1)

	status, err = svc.Status(ctx)
	require.NoError(t, err)
	require.True(t, status.Initialized)
	require.True(t, status.Unlocked)
	require.Equal(t, domain.NetworkTestnet, status.Network)
	require.Zero(t, status.ActiveAccountID)

	err = svc.ChangePassword(ctx, password, newPassword)
	require.ErrorIs(t, err, application.ErrWalletMustBeLocked)

	session, err := svc.Session()
	require.NoError(t, err)

	require.NoError(t, svc.Lock(ctx))
	require.Len(t, w.events.byType(application.EventWalletLocked), 1)
	require.Error(t, session.Context().Err())

	_, err = svc.Session()
	require.ErrorIs(t, err, application.ErrWalletLocked)

	err = svc.ChangePassword(ctx, "wrong password", newPassword)
	require.ErrorIs(t, err, domain.ErrVaultInvalidPassphrase)

	require.NoError(t, svc.ChangePassword(ctx, password, newPassword))

	err = svc.Unlock(ctx, password)
	require.ErrorIs(t, err, domain.ErrVaultInvalidPassphrase)
	require.NoError(t, svc.Unlock(ctx, newPassword))

	session, err = svc.Session()
	require.NoError(t, err)
	account, err := svc.ActiveAccount(ctx)
	require.NoError(t, err)
	_, err = account.Xprv(domain.NetworkTestnet, newPassword)
	require.NoError(t, err)
	require.NotNil(t, session.Wallet())
}

func TestImportWallet(t *testing.T) {
	w := newTestWallet(t, nil)

	err := w.walletSvc.ImportWallet(ctx, []string{"not", "a", "mnemonic"}, password)
	require.ErrorIs(t, err, wallet.ErrInvalidMnemonic)

	mnemonic, err := wallet.NewMnemonic(wallet.NewMnemonicOpts{EntropySize: 128})
	require.NoError(t, err)
	require.NoError(t, w.walletSvc.ImportWallet(ctx, mnemonic, password))

	accounts, err := w.walletSvc.ListAccounts(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
}

func TestDeleteWallet(t *testing.T) {
	w := newUnlockedWallet(t, nil)

	err := w.walletSvc.DeleteWallet(ctx, "wrong password")
	require.ErrorIs(t, err, domain.ErrVaultInvalidPassphrase)

	require.NoError(t, w.walletSvc.DeleteWallet(ctx, password))

	status, err := w.walletSvc.Status(ctx)
	require.NoError(t, err)
	require.False(t, status.Initialized)
	require.False(t, status.Unlocked)

	accounts, err := w.walletSvc.ListAccounts(ctx)
	require.NoError(t, err)
	require.Empty(t, accounts)
}

func TestAccounts(t *testing.T) {
	w := newTestWallet(t, nil)
	svc := w.walletSvc

	mnemonic, err := svc.GenSeed(ctx)
	require.NoError(t, err)
	require.NoError(t, svc.CreateWallet(ctx, mnemonic, password))

	_, err = svc.CreateAccount(ctx, "Savings")
	require.ErrorIs(t, err, application.ErrWalletLocked)

	require.NoError(t, svc.Unlock(ctx, password))

	account, err := svc.CreateAccount(ctx, "Savings")
	require.NoError(t, err)
	require.Equal(t, 1, account.ID)
	require.Equal(t, uint32(1), account.Index)
	require.Equal(t, "Savings", account.Label)

	accounts, err := svc.ListAccounts(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	require.Equal(t, "Account 1", accounts[0].Label)
	require.Equal(t, "Savings", accounts[1].Label)

	for _, a := range accounts {
		require.True(t, strings.HasPrefix(a.Address[domain.NetworkTestnet], "tsys1q"))
		require.True(t, strings.HasPrefix(a.Address[domain.NetworkMain], "sys1q"))
		require.True(t, strings.HasPrefix(a.Web3Address, "0x"))
		require.NotEqual(t, a.Address[domain.NetworkTestnet], a.ChangeAddress[domain.NetworkTestnet])
	}
	require.NotEqual(t, accounts[0].Web3Address, accounts[1].Web3Address)

	require.NoError(t, svc.SwitchAccount(ctx, account.ID))
	status, err := svc.Status(ctx)
	require.NoError(t, err)
	require.Equal(t, account.ID, status.ActiveAccountID)

	events := w.events.byType(application.EventWalletUpdated)
	require.Len(t, events, 1)
	require.Equal(t, account.ID, events[0].AccountID)

	err = svc.SwitchAccount(ctx, 99)
	require.ErrorIs(t, err, domain.ErrAccountNotFound)

	err = svc.RenameAccount(ctx, account.ID, "  ")
	require.ErrorIs(t, err, domain.ErrInvalidLabel)

	require.NoError(t, svc.RenameAccount(ctx, account.ID, "Holidays"))
	renamed, err := svc.GetAccount(ctx, account.ID)
	require.NoError(t, err)
	require.Equal(t, "Holidays", renamed.Label)
}

func TestImportTrezorAccount(t *testing.T) {
	w := newUnlockedWallet(t, nil)
	svc := w.walletSvc

	active, err := svc.ActiveAccount(ctx)
	require.NoError(t, err)
	xpub, err := active.Xpub(domain.NetworkTestnet)
	require.NoError(t, err)

	_, err = svc.ImportTrezorAccount(ctx, "not an xpub", "", "m/84'/1'/0'")
	require.ErrorIs(t, err, domain.ErrInvalidXpub)

	account, err := svc.ImportTrezorAccount(ctx, xpub, "Trezor", "m/84'/1'/0'")
	require.NoError(t, err)
	require.True(t, account.IsTrezorWallet)
	require.Equal(t, 1, account.ID)
	require.Equal(t, active.Address[domain.NetworkTestnet], account.Address[domain.NetworkTestnet])

	_, err = account.Xprv(domain.NetworkTestnet, password)
	require.ErrorIs(t, err, domain.ErrAccountReadOnly)

	next, err := svc.CreateAccount(ctx, "")
	require.NoError(t, err)
	require.Equal(t, 2, next.ID)
	require.Equal(t, uint32(1), next.Index)
}

func TestSwitchNetwork(t *testing.T) {
	w := newUnlockedWallet(t, &mockExplorer{})
	svc := w.walletSvc

	w.setBalance(t, 0, "1.5")

	session, err := svc.Session()
	require.NoError(t, err)
	session.Stage(&domain.SendRequest{})
	require.Len(t, session.Snapshot(), 1)

	err = svc.SwitchNetwork(ctx, "regtest")
	require.ErrorIs(t, err, domain.ErrUnknownNetwork)

	require.NoError(t, svc.SwitchNetwork(ctx, domain.NetworkMain))

	network, err := svc.ActiveNetwork(ctx)
	require.NoError(t, err)
	require.Equal(t, domain.NetworkMain, network.ID)

	account, err := svc.ActiveAccount(ctx)
	require.NoError(t, err)
	require.True(t, account.Balance.IsZero())
	require.Empty(t, session.Snapshot())

	events := w.events.byType(application.EventNetworkChanged)
	require.Len(t, events, 1)
	require.Equal(t, domain.NetworkMain, events[0].Network)

	require.Len(t, svc.Networks(), 3)

	explorerSvc, err := svc.Explorer(ctx)
	require.NoError(t, err)
	require.NotNil(t, explorerSvc)

	require.NoError(t, svc.SwitchNetwork(ctx, domain.NetworkWeb3))
	_, err = svc.Explorer(ctx)
	require.ErrorIs(t, err, domain.ErrUnsupportedOnNetwork)

	_, err = svc.ImportTrezorAccount(ctx, "xpub", "", "m/84'/57'/0'")
	require.ErrorIs(t, err, domain.ErrUnsupportedOnNetwork)
}
