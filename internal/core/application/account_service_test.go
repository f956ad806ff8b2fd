package application_test

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/pali-wallet/palid/internal/core/application"
	"github.com/pali-wallet/palid/internal/core/domain"
	"github.com/pali-wallet/palid/internal/core/ports"
	"github.com/pali-wallet/palid/pkg/explorer"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type testAccountService struct {
	*testWallet
	accountSvc application.AccountService
	explorer   *mockExplorer
	builder    *mockTxBuilder
	signers    *mockSignerProvider
	web3       *mockWeb3Client
	listener   application.BlockchainListener
}

// newTestAccountService returns an account service on top of an unlocked
// wallet. The service is created after unlocking so that no watcher runs
// in background.
func newTestAccountService(t *testing.T, network string) *testAccountService {
	return newTestAccountServiceWithListener(
		t, network, newInstantListener(), 10*time.Second,
	)
}

func newTestAccountServiceWithListener(
	t *testing.T, network string, listener application.BlockchainListener,
	timeout time.Duration,
) *testAccountService {
	explorerSvc := &mockExplorer{}
	w := newUnlockedWallet(t, explorerSvc)
	if network != domain.NetworkTestnet {
		require.NoError(t, w.walletSvc.SwitchNetwork(ctx, network))
	}

	builder := &mockTxBuilder{}
	signers := &mockSignerProvider{}
	web3 := &mockWeb3Client{}

	accountSvc, err := application.NewAccountService(application.AccountServiceOpts{
		WalletService:       w.walletSvc,
		RepoManager:         w.repoManager,
		Explorers:           w.explorers,
		TxBuilder:           builder,
		Signers:             signers,
		Web3Client:          web3,
		Listener:            listener,
		PubSub:              w.pubsub,
		MinConfirmations:    1,
		ConfirmationTimeout: timeout,
	})
	require.NoError(t, err)

	return &testAccountService{
		w, accountSvc, explorerSvc, builder, signers, web3, listener,
	}
}

func (s *testAccountService) activeAccount(t *testing.T) *domain.Account {
	account, err := s.walletSvc.ActiveAccount(ctx)
	require.NoError(t, err)
	return account
}

func newTestPacket(t *testing.T) *psbt.Packet {
	prevHash, err := chainhash.NewHashFromStr(strings.Repeat("ab", 32))
	require.NoError(t, err)

	packet, err := psbt.New(
		[]*wire.OutPoint{wire.NewOutPoint(prevHash, 0)},
		[]*wire.TxOut{wire.NewTxOut(50000000, []byte{0x51})},
		2, 0, []uint32{wire.MaxTxInSequenceNum},
	)
	require.NoError(t, err)
	return packet
}

func newSignedPacket(t *testing.T) *psbt.Packet {
	packet := newTestPacket(t)
	packet.Inputs[0].FinalScriptSig = []byte{0x51}
	return packet
}

func TestNewAccountService(t *testing.T) {
	w := newTestWallet(t, nil)
	valid := application.AccountServiceOpts{
		WalletService: w.walletSvc,
		RepoManager:   w.repoManager,
		Explorers:     w.explorers,
		TxBuilder:     &mockTxBuilder{},
		Signers:       &mockSignerProvider{},
		Listener:      newInstantListener(),
		PubSub:        w.pubsub,
	}

	tests := []struct {
		name   string
		mutate func(o *application.AccountServiceOpts)
	}{
		{"missing wallet service", func(o *application.AccountServiceOpts) { o.WalletService = nil }},
		{"missing repo manager", func(o *application.AccountServiceOpts) { o.RepoManager = nil }},
		{"missing explorers", func(o *application.AccountServiceOpts) { o.Explorers = nil }},
		{"missing tx builder", func(o *application.AccountServiceOpts) { o.TxBuilder = nil }},
		{"missing signers", func(o *application.AccountServiceOpts) { o.Signers = nil }},
		{"missing listener", func(o *application.AccountServiceOpts) { o.Listener = nil }},
		{"missing pubsub", func(o *application.AccountServiceOpts) { o.PubSub = nil }},
		{"negative confirmations", func(o *application.AccountServiceOpts) { o.MinConfirmations = -1 }},
		{"negative timeout", func(o *application.AccountServiceOpts) { o.ConfirmationTimeout = -time.Second }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := valid
			tt.mutate(&opts)
			_, err := application.NewAccountService(opts)
			require.Error(t, err)
		})
	}

	_, err := application.NewAccountService(valid)
	require.NoError(t, err)
}

func TestStage(t *testing.T) {
	s := newTestAccountService(t, domain.NetworkTestnet)
	account := s.activeAccount(t)
	to := account.Address[domain.NetworkTestnet]

	err := s.accountSvc.Stage(ctx, &domain.SendRequest{
		To:     "sys1qnotonthisnetwork",
		Amount: decimal.NewFromInt(1),
	})
	require.ErrorIs(t, err, domain.ErrInvalidAddress)

	err = s.accountSvc.Stage(ctx, &domain.SendRequest{To: to})
	require.ErrorIs(t, err, domain.ErrInvalidAmount)

	req := &domain.SendRequest{
		To:     to,
		Amount: decimal.RequireFromString("0.5"),
		WalletParams: domain.WalletParams{
			Fee: decimal.RequireFromString("0.5"),
			RBF: true,
		},
	}
	require.NoError(t, s.accountSvc.Stage(ctx, req))

	staged, err := s.accountSvc.GetStagedRequest(ctx, domain.KindSend)
	require.NoError(t, err)
	require.Same(t, req, staged)
	require.True(t, staged.Params().Fee.IsZero())
	require.False(t, staged.Params().RBF)

	require.NoError(t, s.accountSvc.SetWalletParams(ctx, domain.KindSend, domain.WalletParams{
		Fee: decimal.RequireFromString("0.0001"),
	}))
	require.Equal(t, "0.0001", req.Fee.String())

	err = s.accountSvc.SetWalletParams(ctx, domain.KindMintAsset, domain.WalletParams{})
	require.ErrorIs(t, err, application.ErrNoStagedRequest)

	items, err := s.accountSvc.GetTransactionItem(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)

	require.NoError(t, s.accountSvc.ClearTransactionItem(ctx, domain.KindSend))
	items, err = s.accountSvc.GetTransactionItem(ctx)
	require.NoError(t, err)
	require.Empty(t, items)

	require.NoError(t, s.walletSvc.Lock(ctx))
	err = s.accountSvc.Stage(ctx, req)
	require.ErrorIs(t, err, application.ErrWalletLocked)
	_, err = s.accountSvc.Confirm(ctx, domain.KindSend)
	require.ErrorIs(t, err, application.ErrWalletLocked)
}

func TestConfirmErrors(t *testing.T) {
	s := newTestAccountService(t, domain.NetworkTestnet)
	account := s.activeAccount(t)

	_, err := s.accountSvc.Confirm(ctx, domain.KindSend)
	require.ErrorIs(t, err, application.ErrNoStagedRequest)

	require.NoError(t, s.accountSvc.Stage(ctx, &domain.SendRequest{
		To:     account.Address[domain.NetworkTestnet],
		Amount: decimal.NewFromInt(1),
	}))
	_, err = s.accountSvc.Confirm(ctx, domain.KindSend)
	require.ErrorIs(t, err, application.ErrZeroBalance)

	staged, err := s.accountSvc.GetStagedRequest(ctx, domain.KindSend)
	require.NoError(t, err)
	require.NotNil(t, staged)
}

func TestConfirmSend(t *testing.T) {
	s := newTestAccountService(t, domain.NetworkTestnet)
	account := s.activeAccount(t)
	s.setBalance(t, account.ID, "1")

	xpub, err := account.Xpub(domain.NetworkTestnet)
	require.NoError(t, err)
	to := account.Address[domain.NetworkTestnet]

	signer := &mockSigner{}
	signer.On("Sign", mock.Anything, mock.Anything).Return(newSignedPacket(t), 1, nil)
	s.signers.On("SoftwareSigner", domain.NetworkTestnet, mock.Anything).Return(signer, nil)
	s.builder.On("BuildSend", mock.Anything, mock.MatchedBy(func(opts ports.SendOpts) bool {
		return opts.To == to &&
			opts.Amount == 50000000 &&
			opts.AssetGuid == "" &&
			opts.Xpub == xpub &&
			opts.ChangeAddress == account.ChangeAddress[domain.NetworkTestnet] &&
			opts.RBF
	})).Return(&ports.UnsignedTx{
		Packet: newTestPacket(t),
		Fee:    2000,
		Value:  50000000,
	}, nil)
	s.explorer.On("BroadcastTransaction", mock.Anything, mock.Anything).Return("txid0", nil)

	require.NoError(t, s.accountSvc.Stage(ctx, &domain.SendRequest{
		To:     to,
		Amount: decimal.RequireFromString("0.5"),
	}))
	require.NoError(t, s.accountSvc.SetWalletParams(ctx, domain.KindSend, domain.WalletParams{
		RBF: true,
	}))

	handle, err := s.accountSvc.Confirm(ctx, domain.KindSend)
	require.NoError(t, err)
	require.NotEmpty(t, handle.ID())

	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	flow, err := handle.Wait(waitCtx)
	require.NoError(t, err)
	require.Contains(t, []domain.FlowStatus{
		domain.FlowPendingConfirmation, domain.FlowConfirmed,
	}, flow.Status)
	require.Equal(t, []string{"txid0"}, flow.TxIDs)

	require.Eventually(t, func() bool {
		f, err := s.accountSvc.GetFlow(ctx, handle.ID())
		return err == nil && f.Status == domain.FlowConfirmed
	}, 5*time.Second, 50*time.Millisecond)

	staged, err := s.accountSvc.GetStagedRequest(ctx, domain.KindSend)
	require.NoError(t, err)
	require.Nil(t, staged)

	updated := s.activeAccount(t)
	require.NotEmpty(t, updated.Transactions)
	require.Equal(t, "txid0", updated.Transactions[0].TxID)
	require.True(t, updated.Transactions[0].Pending)
	require.Equal(t, uint64(2000), updated.Transactions[0].Fees)
	require.NotEmpty(t, s.events.byType(application.EventTransactionsUpdated))
	require.NotEmpty(t, s.events.byType(application.EventFlowUpdated))

	flows, err := s.accountSvc.ListFlows(ctx, account.ID)
	require.NoError(t, err)
	require.Len(t, flows, 1)

	s.builder.AssertExpectations(t)
	signer.AssertExpectations(t)
	s.explorer.AssertExpectations(t)
}

func TestConfirmFailedBuild(t *testing.T) {
	s := newTestAccountService(t, domain.NetworkTestnet)
	account := s.activeAccount(t)
	s.setBalance(t, account.ID, "1")

	s.signers.On("SoftwareSigner", domain.NetworkTestnet, mock.Anything).
		Return(&mockSigner{}, nil)
	s.builder.On("BuildSend", mock.Anything, mock.Anything).
		Return(nil, fmt.Errorf("insufficient funds"))

	require.NoError(t, s.accountSvc.Stage(ctx, &domain.SendRequest{
		To:     account.Address[domain.NetworkTestnet],
		Amount: decimal.RequireFromString("0.5"),
	}))
	handle, err := s.accountSvc.Confirm(ctx, domain.KindSend)
	require.NoError(t, err)

	flow, err := handle.Wait(ctx)
	require.NoError(t, err)
	require.Equal(t, domain.FlowFailed, flow.Status)
	require.Contains(t, flow.Error, "insufficient funds")
	require.Empty(t, flow.TxIDs)

	session, err := s.walletSvc.Session()
	require.NoError(t, err)
	require.False(t, session.IsInFlight(domain.KindSend))

	require.Eventually(t, func() bool {
		err := s.accountSvc.CancelFlow(ctx, handle.ID())
		return errors.Is(err, domain.ErrInvalidFlowTransition)
	}, 5*time.Second, 50*time.Millisecond)
}

func TestConfirmWeb3Send(t *testing.T) {
	s := newTestAccountService(t, domain.NetworkWeb3)
	account := s.activeAccount(t)
	s.setBalance(t, account.ID, "3")

	amount := decimal.RequireFromString("1.25")
	s.web3.On("SendNative", mock.Anything, mock.Anything, account.Web3Address, amount).
		Return("0xhash", nil)

	err := s.accountSvc.Stage(ctx, &domain.SendRequest{
		To:      account.Web3Address,
		Amount:  amount,
		IsToken: true,
		Token:   "123",
	})
	require.ErrorIs(t, err, domain.ErrUnsupportedOnNetwork)

	require.NoError(t, s.accountSvc.Stage(ctx, &domain.SendRequest{
		To:     account.Web3Address,
		Amount: amount,
	}))
	handle, err := s.accountSvc.Confirm(ctx, domain.KindSend)
	require.NoError(t, err)

	flow, err := handle.Wait(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"0xhash"}, flow.TxIDs)

	updated := s.activeAccount(t)
	require.Equal(t, "0xhash", updated.Transactions[0].TxID)
	require.Equal(t, uint64(125000000), updated.Transactions[0].Value)

	s.web3.AssertExpectations(t)
}

func TestRefreshAccount(t *testing.T) {
	s := newTestAccountService(t, domain.NetworkTestnet)
	account := s.activeAccount(t)
	xpub, err := account.Xpub(domain.NetworkTestnet)
	require.NoError(t, err)

	s.explorer.On("GetAccount", mock.Anything, xpub, explorer.AccountOpts{
		Details:  explorer.DetailsTxs,
		Tokens:   explorer.TokensUsed,
		PageSize: 30,
	}).Return(&explorer.Account{
		Balance: 150000000,
		Tokens: []explorer.Token{
			{Type: explorer.TokenTypeXpubAddress, Path: "m/84'/1'/0'/0/0", Transfers: 2},
			{Type: explorer.TokenTypeXpubAddress, Path: "m/84'/1'/0'/0/1", Transfers: 1},
			{Type: explorer.TokenTypeXpubAddress, Path: "m/84'/1'/0'/1/0", Transfers: 0},
		},
		Transactions: []explorer.Transaction{
			{Txid: "aa", Confirmations: 3, Value: 100, Fees: 10},
			{Txid: "bb", Confirmations: 0, Value: 200, TokenType: "SPTAssetActivate"},
		},
	}, nil)

	updated, err := s.accountSvc.RefreshAccount(ctx, account.ID)
	require.NoError(t, err)
	require.Equal(t, "1.5", updated.Balance.String())
	require.Len(t, updated.Transactions, 2)
	require.False(t, updated.Transactions[0].Pending)
	require.True(t, updated.Transactions[1].Pending)
	require.Equal(t, domain.KindNewAsset, updated.Transactions[1].Kind)
	require.NotEqual(t, account.Address[domain.NetworkTestnet], updated.Address[domain.NetworkTestnet])
	require.Equal(t, account.ChangeAddress[domain.NetworkTestnet], updated.ChangeAddress[domain.NetworkTestnet])

	events := s.events.byType(application.EventWalletUpdated)
	require.Len(t, events, 1)
	require.Equal(t, account.ID, events[0].AccountID)

	change, err := s.accountSvc.GetChangeAddress(ctx, account.ID)
	require.NoError(t, err)
	require.Equal(t, updated.ChangeAddress[domain.NetworkTestnet], change)

	_, err = s.accountSvc.RefreshAccount(ctx, 99)
	require.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func TestRefreshAccountUnavailable(t *testing.T) {
	s := newTestAccountService(t, domain.NetworkTestnet)
	account := s.activeAccount(t)

	s.explorer.On("GetAccount", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, explorer.ErrUnavailable)

	_, err := s.accountSvc.RefreshAccount(ctx, account.ID)
	require.ErrorIs(t, err, application.ErrServiceUnavailable)
	require.True(t, application.IsRetryable(err))
}

func TestRefreshWeb3Account(t *testing.T) {
	s := newTestAccountService(t, domain.NetworkWeb3)
	account := s.activeAccount(t)

	s.web3.On("GetBalance", mock.Anything, account.Web3Address).
		Return(decimal.RequireFromString("2.5"), nil)

	updated, err := s.accountSvc.RefreshAccount(ctx, account.ID)
	require.NoError(t, err)
	require.Equal(t, "2.5", updated.Balance.String())

	change, err := s.accountSvc.GetChangeAddress(ctx, account.ID)
	require.NoError(t, err)
	require.Equal(t, account.Web3Address, change)

	require.NoError(t, s.accountSvc.UpdateTokensState(ctx))

	_, err = s.accountSvc.GetUserMintedTokens(ctx, account.ID)
	require.ErrorIs(t, err, domain.ErrUnsupportedOnNetwork)
}

func TestUpdateTokensState(t *testing.T) {
	s := newTestAccountService(t, domain.NetworkTestnet)
	account := s.activeAccount(t)
	xpub, err := account.Xpub(domain.NetworkTestnet)
	require.NoError(t, err)

	s.explorer.On("GetAccount", mock.Anything, xpub, explorer.AccountOpts{
		Details: explorer.DetailsTokenBalances,
		Tokens:  explorer.TokensNonZero,
	}).Return(&explorer.Account{
		Tokens: []explorer.Token{
			{Type: explorer.TokenTypeXpubAddress, Path: "m/84'/1'/0'/0/0"},
			{
				Type:      explorer.TokenTypeSPTAllocated,
				AssetGuid: "123456",
				Balance:   1000,
				Decimals:  2,
				Symbol:    base64.StdEncoding.EncodeToString([]byte("TST")),
			},
		},
	}, nil)
	s.explorer.On("GetAsset", mock.Anything, "123456").Return(&explorer.Asset{
		AssetGuid:   "123456",
		Symbol:      "TST",
		Description: "test token",
		MaxSupply:   100000,
		Decimals:    2,
	}, nil)

	require.NoError(t, s.accountSvc.UpdateTokensState(ctx))
	require.NoError(t, s.accountSvc.UpdateTokensState(ctx))

	holdings, err := s.accountSvc.GetHoldingsData(ctx, account.ID)
	require.NoError(t, err)
	require.Equal(t, []domain.Holding{{
		AssetGuid:   "123456",
		Symbol:      "TST",
		Description: "test token",
		Balance:     1000,
		Decimals:    2,
	}}, holdings)

	s.explorer.AssertNumberOfCalls(t, "GetAsset", 1)
	require.Len(t, s.events.byType(application.EventTokensUpdated), 1)

	_, err = s.accountSvc.GetHoldingsData(ctx, 99)
	require.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func TestGetUserMintedTokens(t *testing.T) {
	s := newTestAccountService(t, domain.NetworkTestnet)
	account := s.activeAccount(t)
	xpub, err := account.Xpub(domain.NetworkTestnet)
	require.NoError(t, err)

	s.builder.On("OwnedAssets", mock.Anything, domain.NetworkTestnet, xpub).
		Return([]string{"654321"}, nil)
	s.explorer.On("GetAsset", mock.Anything, "654321").Return(&explorer.Asset{
		AssetGuid: "654321",
		Symbol:    "MINE",
		MaxSupply: 1,
	}, nil)

	tokens, err := s.accountSvc.GetUserMintedTokens(ctx, account.ID)
	require.NoError(t, err)
	require.Len(t, tokens, 1)
	require.Equal(t, "MINE", tokens[0].Symbol)
	require.True(t, tokens[0].IsNFT)

	_, err = s.accountSvc.GetAssetData(ctx, "not a guid")
	require.Error(t, err)

	token, err := s.accountSvc.GetAssetData(ctx, "654321")
	require.NoError(t, err)
	require.Equal(t, "MINE", token.Symbol)
}

func TestGetConnectedAccountXpub(t *testing.T) {
	s := newTestAccountService(t, domain.NetworkTestnet)
	account := s.activeAccount(t)
	connectionsSvc := application.NewConnectionsService(s.repoManager, s.pubsub)

	_, err := s.accountSvc.GetConnectedAccountXpub(ctx, dappOrigin)
	require.ErrorIs(t, err, application.ErrOriginNotConnected)

	require.NoError(t, connectionsSvc.Connect(ctx, dappOrigin, account.ID))

	xpub, err := s.accountSvc.GetConnectedAccountXpub(ctx, dappOrigin)
	require.NoError(t, err)
	expected, err := account.Xpub(domain.NetworkTestnet)
	require.NoError(t, err)
	require.Equal(t, expected, xpub)
}
