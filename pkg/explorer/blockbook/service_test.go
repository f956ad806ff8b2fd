package blockbook_test

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/pali-wallet/palid/pkg/explorer"
	"github.com/pali-wallet/palid/pkg/explorer/blockbook"
	"github.com/stretchr/testify/require"
)

const (
	testXpub = "zpub6rFR7y4Q2AijBEqTUquhVz398htDFrtymD9xYYfG1m4wAcvPhXNfE3EfH1r1ADqtfSdVCToUG868RvUUkgDKf31mGDtKsAYz2oz2AGutZYs"
	testTxid = "8d2ad1e2f1a8b4f4e0c4d5b0f2f8cfa0b6d8f9e4a2b1c3d5e7f90123456789ab"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) explorer.Service {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	svc, err := blockbook.NewService(blockbook.Opts{
		URL:             server.URL,
		RateLimit:       1000,
		SkipHealthCheck: true,
	})
	require.NoError(t, err)
	return svc
}

func TestNewService(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/api/v2", r.URL.Path)
			fmt.Fprint(w, `{"blockbook":{"bestHeight":1500},"backend":{"blocks":1501}}`)
		}))
		defer server.Close()

		svc, err := blockbook.NewService(blockbook.Opts{URL: server.URL + "/"})
		require.NoError(t, err)

		height, err := svc.GetBlockHeight(context.Background())
		require.NoError(t, err)
		require.Equal(t, 1501, height)
	})

	t.Run("invalid", func(t *testing.T) {
		_, err := blockbook.NewService(blockbook.Opts{})
		require.Error(t, err)

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		_, err = blockbook.NewService(blockbook.Opts{URL: server.URL})
		require.ErrorIs(t, err, explorer.ErrUnavailable)
	})
}

func TestGetAccount(t *testing.T) {
	svc := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v2/xpub/"+testXpub, r.URL.Path)
		require.Equal(t, "txs", r.URL.Query().Get("details"))
		require.Equal(t, "nonzero", r.URL.Query().Get("tokens"))
		fmt.Fprint(w, `{
			"address": "`+testXpub+`",
			"balance": "150000000",
			"unconfirmedBalance": "-1000",
			"txs": 2,
			"transactions": [{"txid": "`+testTxid+`", "confirmations": 3, "fees": "226"}],
			"tokens": [
				{"type": "XPUBAddress", "name": "sys1qtest", "path": "m/84'/57'/0'/0/0", "transfers": 2},
				{"type": "SPTAllocated", "name": "341906151", "assetGuid": "341906151", "decimals": 8, "balance": "500", "symbol": "VEVTVA=="}
			]
		}`)
	})

	account, err := svc.GetAccount(context.Background(), testXpub, explorer.AccountOpts{
		Details: explorer.DetailsTxs,
		Tokens:  explorer.TokensNonZero,
	})
	require.NoError(t, err)
	require.Equal(t, uint64(150000000), account.Balance.Uint64())
	require.Equal(t, int64(-1000), account.UnconfirmedDelta())
	require.Len(t, account.Transactions, 1)
	require.Equal(t, uint64(226), account.Transactions[0].Fees.Uint64())
	require.Len(t, account.SPTTokens(), 1)
	require.Len(t, account.Addresses(), 1)
	require.Equal(t, uint64(500), account.SPTTokens()[0].Balance.Uint64())
}

func TestGetAsset(t *testing.T) {
	svc := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v2/asset/341906151":
			require.Equal(t, "basic", r.URL.Query().Get("details"))
			fmt.Fprint(w, `{"asset": {
				"assetGuid": "341906151",
				"symbol": "VEVTVA==",
				"pubData": {"desc": "bXkgdG9rZW4="},
				"contract": "0x",
				"totalSupply": "1000",
				"maxSupply": "100000",
				"decimals": 8,
				"updateCapabilityFlags": 127
			}}`)
		default:
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"error": "Asset not found"}`)
		}
	})

	asset, err := svc.GetAsset(context.Background(), "341906151")
	require.NoError(t, err)
	require.Equal(t, "TEST", asset.Symbol)
	require.Equal(t, "my token", asset.Description)
	require.Equal(t, uint64(100000), asset.MaxSupply.Uint64())
	require.Equal(t, uint8(127), asset.UpdateCapabilityFlags)

	_, err = svc.GetAsset(context.Background(), "1")
	require.ErrorIs(t, err, explorer.ErrNotFound)
}

func TestDecodeBase64(t *testing.T) {
	require.Equal(t, "SYSX", explorer.DecodeBase64("U1lTWA=="))
	require.Equal(t, "not base64!", explorer.DecodeBase64("not base64!"))
	require.Empty(t, explorer.DecodeBase64(""))
}

func TestGetConfirmations(t *testing.T) {
	svc := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, testTxid) {
			fmt.Fprint(w, `{"txid": "`+testTxid+`", "confirmations": 4, "hex": "0200"}`)
			return
		}
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error": "Transaction 'ff' not found"}`)
	})

	confirmations, err := svc.GetConfirmations(context.Background(), testTxid)
	require.NoError(t, err)
	require.Equal(t, 4, confirmations)

	confirmations, err = svc.GetConfirmations(context.Background(), "ff")
	require.NoError(t, err)
	require.Zero(t, confirmations)

	txhex, err := svc.GetRawTransaction(context.Background(), testTxid)
	require.NoError(t, err)
	require.Equal(t, "0200", txhex)
}

func TestBroadcastTransaction(t *testing.T) {
	svc := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/v2/sendtx/", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		if string(body) == "00" {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"error": {"message": "TX decode failed"}}`)
			return
		}
		fmt.Fprint(w, `{"result": "`+testTxid+`"}`)
	})

	txid, err := svc.BroadcastTransaction(context.Background(), "0200ff")
	require.NoError(t, err)
	require.Equal(t, testTxid, txid)

	_, err = svc.BroadcastTransaction(context.Background(), "00")
	require.ErrorIs(t, err, explorer.ErrBadRequest)
	require.Contains(t, err.Error(), "TX decode failed")

	_, err = svc.BroadcastTransaction(context.Background(), "")
	require.Error(t, err)
}

func TestEstimateFee(t *testing.T) {
	svc := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v2/estimatefee/1" {
			fmt.Fprint(w, `{"result": "-1"}`)
			return
		}
		fmt.Fprint(w, `{"result": "0.00010000"}`)
	})

	fee, err := svc.EstimateFee(context.Background(), 10)
	require.NoError(t, err)
	require.Equal(t, "0.0001", fee)

	_, err = svc.EstimateFee(context.Background(), 1)
	require.Error(t, err)
}

func TestGetUtxos(t *testing.T) {
	svc := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "true", r.URL.Query().Get("confirmed"))
		fmt.Fprint(w, `[
			{"txid": "`+testTxid+`", "vout": 1, "value": "100000000", "confirmations": 5, "path": "m/84'/57'/0'/0/1"},
			{"txid": "`+testTxid+`", "vout": 2, "value": "980", "confirmations": 5, "path": "m/84'/57'/0'/1/0", "assetInfo": {"assetGuid": "341906151", "value": "500"}}
		]`)
	})

	utxos, err := svc.GetUtxos(context.Background(), testXpub, true)
	require.NoError(t, err)
	require.Len(t, utxos, 2)
	require.False(t, utxos[0].IsAsset())
	require.True(t, utxos[1].IsAsset())
	require.Equal(t, uint64(500), utxos[1].AssetInfo.Value.Uint64())
	require.Equal(t, testTxid+":1", utxos[0].Key())
}

func TestServerErrors(t *testing.T) {
	var calls int32
	svc := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := svc.GetTransaction(context.Background(), testTxid)
	require.ErrorIs(t, err, explorer.ErrUnavailable)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = svc.GetTransaction(ctx, testTxid)
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, int32(1), atomic.LoadInt32(&calls))
}
