package domain_test

import (
	"os"
	"strings"
	"testing"

	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/pali-wallet/palid/internal/core/domain"
	"github.com/pali-wallet/palid/pkg/wallet"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var (
	testMnemonic = strings.Split(
		"abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about", " ",
	)
	networks = domain.NewNetworks(
		"https://blockbook.test", "https://blockbook-dev.test", "http://localhost:8545", 57,
	)
	mainnet, _ = networks.Get(domain.NetworkMain)
	testnet, _ = networks.Get(domain.NetworkTestnet)
	web3, _    = networks.Get(domain.NetworkWeb3)
)

func TestMain(m *testing.M) {
	wallet.ScryptN = 1 << 10
	os.Exit(m.Run())
}

func sysAddress(t *testing.T, hrp string) string {
	program := make([]byte, 20)
	for i := range program {
		program[i] = byte(i)
	}
	conv, err := bech32.ConvertBits(program, 8, 5, true)
	require.NoError(t, err)
	addr, err := bech32.Encode(hrp, append([]byte{0}, conv...))
	require.NoError(t, err)
	return addr
}

func TestNetworks(t *testing.T) {
	require.True(t, mainnet.IsSyscoin())
	require.False(t, web3.IsSyscoin())
	require.Equal(t, int64(57), web3.ChainID)

	_, err := networks.Get("regtest")
	require.ErrorIs(t, err, domain.ErrUnknownNetwork)

	noWeb3 := domain.NewNetworks("https://a", "https://b", "", 0)
	_, err = noWeb3.Get(domain.NetworkWeb3)
	require.ErrorIs(t, err, domain.ErrUnknownNetwork)
}

func TestVault(t *testing.T) {
	_, err := domain.NewVault(nil, "pass", domain.NetworkMain)
	require.ErrorIs(t, err, domain.ErrNullMnemonicOrPassphrase)
	_, err = domain.NewVault([]string{"not", "valid"}, "pass", domain.NetworkMain)
	require.ErrorIs(t, err, wallet.ErrInvalidMnemonic)

	v, err := domain.NewVault(testMnemonic, "pass", domain.NetworkMain)
	require.NoError(t, err)
	require.True(t, v.IsInitialized())
	require.Equal(t, domain.NetworkMain, v.ActiveNetwork)

	_, err = v.Unlock("wrong")
	require.ErrorIs(t, err, domain.ErrVaultInvalidPassphrase)

	mnemonic, err := v.Unlock("pass")
	require.NoError(t, err)
	require.Equal(t, testMnemonic, mnemonic)

	require.ErrorIs(t, v.ChangePassphrase("wrong", "newpass"), domain.ErrVaultInvalidPassphrase)
	require.NoError(t, v.ChangePassphrase("pass", "newpass"))
	_, err = v.Unlock("pass")
	require.Error(t, err)
	mnemonic, err = v.Unlock("newpass")
	require.NoError(t, err)
	require.Equal(t, testMnemonic, mnemonic)

	id, index := v.NextAccount()
	require.Equal(t, 0, id)
	require.Equal(t, uint32(0), index)
	require.Equal(t, 1, v.NextHardwareAccountID())
	id, index = v.NextAccount()
	require.Equal(t, 2, id)
	require.Equal(t, uint32(1), index)
}

func TestAccountKeys(t *testing.T) {
	w, err := wallet.NewWalletFromMnemonic(wallet.NewWalletFromMnemonicOpts{
		Mnemonic: testMnemonic,
	})
	require.NoError(t, err)
	xpub, xprv, err := w.AccountKeys(wallet.AccountKeysOpts{Network: domain.NetworkMain})
	require.NoError(t, err)

	account := domain.NewAccount(0, 0, "")
	require.Equal(t, "Account 1", account.Label)

	_, err = account.Xpub(domain.NetworkMain)
	require.ErrorIs(t, err, domain.ErrAccountMissingKeys)

	require.NoError(t, account.SetKeys(domain.NetworkMain, xpub, xprv, "pass"))
	gotXpub, err := account.Xpub(domain.NetworkMain)
	require.NoError(t, err)
	require.Equal(t, xpub, gotXpub)

	gotXprv, err := account.Xprv(domain.NetworkMain, "pass")
	require.NoError(t, err)
	require.Equal(t, xprv, gotXprv)

	require.NoError(t, account.ChangePassphrase("pass", "newpass"))
	gotXprv, err = account.Xprv(domain.NetworkMain, "newpass")
	require.NoError(t, err)
	require.Equal(t, xprv, gotXprv)

	trezor, err := domain.NewTrezorAccount(1, "Trezor", domain.NetworkMain, xpub, "m/84'/57'/0'")
	require.NoError(t, err)
	require.True(t, trezor.IsTrezorWallet)
	_, err = trezor.Xprv(domain.NetworkMain, "pass")
	require.ErrorIs(t, err, domain.ErrAccountReadOnly)

	_, err = domain.NewTrezorAccount(1, "Trezor", domain.NetworkMain, xprv, "m/84'/57'/0'")
	require.Error(t, err)
}

func TestAccountConnections(t *testing.T) {
	account := domain.NewAccount(0, 0, "main")
	origin := "https://app.example"

	require.False(t, account.IsConnectedTo(origin))
	account.Connect(origin)
	account.Connect(origin)
	require.True(t, account.IsConnectedTo(origin))
	require.Len(t, account.ConnectedTo, 1)

	require.True(t, account.Disconnect(origin))
	require.False(t, account.Disconnect(origin))
	require.False(t, account.IsConnectedTo(origin))
}

func TestAccountTransactions(t *testing.T) {
	account := domain.NewAccount(0, 0, "main")

	pending := domain.NewPendingTransaction("aa", domain.KindSend, 500000000, 226)
	require.Zero(t, pending.Confirmations)
	require.True(t, pending.Pending)
	require.False(t, pending.IsConfirmed())

	require.True(t, account.UnshiftTransaction(pending))
	require.False(t, account.UnshiftTransaction(pending))
	require.True(t, account.UnshiftTransaction(domain.NewPendingTransaction("bb", domain.KindSend, 1, 1)))
	require.Equal(t, "bb", account.Transactions[0].TxID)

	remote := []domain.Transaction{
		{TxID: "aa", Confirmations: 1},
		{TxID: "cc", Confirmations: 10},
	}
	account.MergeTransactions(remote)
	require.Len(t, account.Transactions, 3)
	require.Equal(t, "bb", account.Transactions[0].TxID)
	require.Equal(t, "aa", account.Transactions[1].TxID)
	require.Equal(t, 1, account.Transactions[1].Confirmations)

	account.ResetNetworkState()
	require.Empty(t, account.Transactions)
	require.True(t, account.Balance.IsZero())
}

func TestWalletTokens(t *testing.T) {
	w := domain.NewWalletTokens(0, domain.NetworkMain, "zpub")
	remote := []domain.TokenBalance{
		{AssetGuid: "100", Symbol: "QQ==", Balance: 5, Decimals: 8},
		{AssetGuid: "200", Symbol: "Qg==", Balance: 7, Decimals: 8},
		{AssetGuid: "100", Balance: 1, Decimals: 8},
	}

	missing := w.Missing(remote)
	require.Equal(t, []string{"100", "200"}, missing)

	fetched := []domain.Token{
		{AssetGuid: "100", Symbol: "A", Decimals: 8},
		{AssetGuid: "200", Symbol: "B", Decimals: 8},
	}
	require.True(t, w.Apply(remote, fetched))
	require.Len(t, w.Tokens, 2)
	require.Len(t, w.Holdings, 2)

	h, ok := w.Holding("100")
	require.True(t, ok)
	require.Equal(t, "A", h.Symbol)
	require.Equal(t, uint64(6), h.Balance)

	require.Empty(t, w.Missing(remote))

	tokens := make(map[string]domain.Token, len(w.Tokens))
	for k, v := range w.Tokens {
		tokens[k] = v
	}
	holdings := append([]domain.Holding{}, w.Holdings...)

	require.False(t, w.Apply(remote, nil))
	require.Equal(t, tokens, w.Tokens)
	require.Equal(t, holdings, w.Holdings)

	require.True(t, w.Apply(remote[:1], nil))
	require.Len(t, w.Holdings, 1)
}

func TestIsNFTAsset(t *testing.T) {
	require.True(t, domain.IsNFTAsset("4294967397", 8, 0))
	require.True(t, domain.IsNFTAsset("100", 8, 100000000))
	require.True(t, domain.IsNFTAsset("100", 0, 1))
	require.False(t, domain.IsNFTAsset("100", 8, 1))
	require.False(t, domain.IsNFTAsset("100", 2, 1000))
}

func TestTxFlow(t *testing.T) {
	t.Run("single step", func(t *testing.T) {
		flow := domain.NewTxFlow(domain.KindSend, 0, domain.NetworkMain, 1)
		require.NotEmpty(t, flow.ID)
		require.Equal(t, domain.FlowStaged, flow.Status)

		require.ErrorIs(t, flow.Transition(domain.FlowConfirmed), domain.ErrInvalidFlowTransition)
		require.ErrorIs(t, flow.Broadcasted("aa"), domain.ErrInvalidFlowTransition)

		require.NoError(t, flow.Submit())
		require.NoError(t, flow.Broadcasted("aa"))
		require.Equal(t, domain.FlowPendingConfirmation, flow.Status)
		require.Equal(t, "aa", flow.LastTxID())

		require.ErrorIs(t, flow.Submit(), domain.ErrInvalidFlowTransition)
		require.NoError(t, flow.Confirm(""))
		require.True(t, flow.IsTerminal())

		for _, s := range []domain.FlowStatus{
			domain.FlowStaged, domain.FlowSubmitting, domain.FlowPendingConfirmation,
			domain.FlowConfirmed, domain.FlowFailed,
		} {
			require.ErrorIs(t, flow.Transition(s), domain.ErrInvalidFlowTransition)
		}
	})

	t.Run("multi step", func(t *testing.T) {
		flow := domain.NewTxFlow(domain.KindNewNFT, 0, domain.NetworkMain, 3)
		for i, txid := range []string{"aa", "bb", "cc"} {
			require.NoError(t, flow.Submit())
			require.Equal(t, i+1, flow.Step)
			require.NoError(t, flow.Broadcasted(txid))
		}
		require.Equal(t, []string{"aa", "bb", "cc"}, flow.TxIDs)
		require.NoError(t, flow.Confirm("123"))
		require.Equal(t, "123", flow.Result)
	})

	t.Run("failure", func(t *testing.T) {
		flow := domain.NewTxFlow(domain.KindMintAsset, 0, domain.NetworkMain, 1)
		require.NoError(t, flow.Submit())
		require.NoError(t, flow.Fail(domain.ErrInvalidAmount))
		require.Equal(t, domain.ErrInvalidAmount.Error(), flow.Error)
		require.ErrorIs(t, flow.Fail(nil), domain.ErrInvalidFlowTransition)
		require.Equal(t, "FAILED", flow.Status.String())
	})
}

func TestRequests(t *testing.T) {
	mainAddr := sysAddress(t, "sys")
	testAddr := sysAddress(t, "tsys")
	evmAddr := "0x9858EfFD232B4033E47d90003D41EC34EcaEda94"
	flags := uint8(200)
	validFlags := uint8(0)

	tests := []struct {
		name    string
		req     domain.TxRequest
		network domain.Network
		err     error
	}{
		{"send", &domain.SendRequest{To: mainAddr, Amount: decimal.NewFromInt(5)}, mainnet, nil},
		{"send wrong network", &domain.SendRequest{To: mainAddr, Amount: decimal.NewFromInt(5)}, testnet, domain.ErrInvalidAddress},
		{"send testnet", &domain.SendRequest{To: testAddr, Amount: decimal.NewFromInt(5)}, testnet, nil},
		{"send zero", &domain.SendRequest{To: mainAddr}, mainnet, domain.ErrInvalidAmount},
		{"send token", &domain.SendRequest{To: mainAddr, Amount: decimal.NewFromInt(1), IsToken: true}, mainnet, domain.ErrInvalidAssetGuid},
		{"send web3", &domain.SendRequest{To: evmAddr, Amount: decimal.NewFromInt(1)}, web3, nil},
		{"send web3 token", &domain.SendRequest{To: evmAddr, Amount: decimal.NewFromInt(1), IsToken: true, Token: "1"}, web3, domain.ErrUnsupportedOnNetwork},
		{"send negative fee", &domain.SendRequest{To: mainAddr, Amount: decimal.NewFromInt(1), WalletParams: domain.WalletParams{Fee: decimal.NewFromInt(-1)}}, mainnet, domain.ErrInvalidFee},
		{"new asset", &domain.NewAssetRequest{Symbol: "TEST", MaxSupply: decimal.NewFromInt(100), InitialSupply: decimal.NewFromInt(10), Receiver: mainAddr}, mainnet, nil},
		{"new asset symbol", &domain.NewAssetRequest{Symbol: "TOOLONGSYM", MaxSupply: decimal.NewFromInt(100)}, mainnet, domain.ErrInvalidSymbol},
		{"new asset supply", &domain.NewAssetRequest{Symbol: "T", MaxSupply: decimal.NewFromInt(1), InitialSupply: decimal.NewFromInt(2)}, mainnet, domain.ErrInvalidSupply},
		{"new asset precision", &domain.NewAssetRequest{Symbol: "T", Precision: 9, MaxSupply: decimal.NewFromInt(1)}, mainnet, domain.ErrInvalidPrecision},
		{"new asset web3", &domain.NewAssetRequest{Symbol: "T", MaxSupply: decimal.NewFromInt(1)}, web3, domain.ErrUnsupportedOnNetwork},
		{"mint", &domain.MintAssetRequest{AssetGuid: "123", Amount: decimal.NewFromInt(1)}, mainnet, nil},
		{"mint guid", &domain.MintAssetRequest{AssetGuid: "abc", Amount: decimal.NewFromInt(1)}, mainnet, domain.ErrInvalidAssetGuid},
		{"nft", &domain.NewNFTRequest{Symbol: "NFT", Receiver: mainAddr}, mainnet, nil},
		{"update", &domain.UpdateAssetRequest{AssetGuid: "123", Contract: evmAddr}, mainnet, nil},
		{"update flags", &domain.UpdateAssetRequest{AssetGuid: "123", CapabilityFlags: &validFlags}, mainnet, nil},
		{"update invalid flags", &domain.UpdateAssetRequest{AssetGuid: "123", CapabilityFlags: &flags}, mainnet, domain.ErrInvalidCapabilityFlags},
		{"update contract", &domain.UpdateAssetRequest{AssetGuid: "123", Contract: "0x12"}, mainnet, domain.ErrInvalidContract},
		{"update empty", &domain.UpdateAssetRequest{AssetGuid: "123"}, mainnet, domain.ErrEmptyUpdate},
		{"transfer", &domain.TransferOwnershipRequest{AssetGuid: "123", NewOwner: mainAddr}, mainnet, nil},
		{"transfer owner", &domain.TransferOwnershipRequest{AssetGuid: "123", NewOwner: testAddr}, mainnet, domain.ErrInvalidAddress},
		{"psbt", &domain.SignPSBTRequest{PSBT: "not-a-psbt"}, mainnet, domain.ErrInvalidPSBT},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate(tt.network)
			if tt.err == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.err)
		})
	}
}

func TestTxRequestWalletParams(t *testing.T) {
	for _, kind := range domain.AllTxKinds {
		req, err := domain.NewTxRequest(kind)
		require.NoError(t, err)
		require.Equal(t, kind, req.Kind())

		params := domain.WalletParams{Fee: decimal.RequireFromString("0.00001"), RBF: true}
		req.SetWalletParams(params)
		require.True(t, req.Params().Fee.Equal(params.Fee))
		require.True(t, req.Params().RBF)
	}

	_, err := domain.NewTxRequest("unknown")
	require.ErrorIs(t, err, domain.ErrUnknownTxKind)

	kind, err := domain.ParseTxKind("new-nft")
	require.NoError(t, err)
	require.Equal(t, domain.KindNewNFT, kind)
}

func TestContact(t *testing.T) {
	contact, err := domain.NewContact(" Alice ", sysAddress(t, "sys"), mainnet)
	require.NoError(t, err)
	require.Equal(t, "Alice", contact.Label)
	require.NotEmpty(t, contact.ID)

	_, err = domain.NewContact("", sysAddress(t, "sys"), mainnet)
	require.ErrorIs(t, err, domain.ErrInvalidLabel)
	_, err = domain.NewContact("Bob", sysAddress(t, "sys"), testnet)
	require.ErrorIs(t, err, domain.ErrInvalidAddress)
}
