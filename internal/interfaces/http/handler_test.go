package httpinterface_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pali-wallet/palid/internal/core/application"
	"github.com/pali-wallet/palid/internal/core/domain"
	"github.com/pali-wallet/palid/internal/core/ports"
	"github.com/pali-wallet/palid/internal/infrastructure/storage/db/inmemory"
	"github.com/pali-wallet/palid/internal/interfaces"
	httpinterface "github.com/pali-wallet/palid/internal/interfaces/http"
	"github.com/pali-wallet/palid/pkg/explorer"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const password = "Sup3rS3cr3tP4ssw0rd!"

type accountService struct {
	mock.Mock
	application.AccountService
}

func (m *accountService) Stage(_ context.Context, req domain.TxRequest) error {
	args := m.Called(req)
	return args.Error(0)
}

func (m *accountService) GetTransactionItem(
	_ context.Context,
) (map[domain.TxKind]domain.TxRequest, error) {
	args := m.Called()
	var res map[domain.TxKind]domain.TxRequest
	if a := args.Get(0); a != nil {
		res = a.(map[domain.TxKind]domain.TxRequest)
	}
	return res, args.Error(1)
}

func (m *accountService) ClearTransactionItem(
	_ context.Context, kind domain.TxKind,
) error {
	args := m.Called(kind)
	return args.Error(0)
}

func (m *accountService) Confirm(
	_ context.Context, kind domain.TxKind,
) (*application.FlowHandle, error) {
	args := m.Called(kind)
	var res *application.FlowHandle
	if a := args.Get(0); a != nil {
		res = a.(*application.FlowHandle)
	}
	return res, args.Error(1)
}

type testServer struct {
	handler    http.Handler
	accountSvc *accountService
}

func newTestServer(t *testing.T) *testServer {
	repoManager := inmemory.NewRepoManager()
	networks := domain.NewNetworks("", "", "", 0)
	explorers := application.NewExplorerRegistry(
		networks, func(domain.Network) (explorer.Service, error) {
			return nil, fmt.Errorf("offline")
		},
	)
	pubsub := application.NewPubSubService(nil)

	walletSvc, err := application.NewWalletService(
		repoManager, networks, explorers, pubsub, domain.NetworkTestnet,
	)
	require.NoError(t, err)
	t.Cleanup(walletSvc.Close)

	accountSvc := &accountService{}
	handler, err := httpinterface.NewHandler(httpinterface.HandlerOpts{
		WalletSvc:      walletSvc,
		AccountSvc:     accountSvc,
		ConnectionsSvc: application.NewConnectionsService(repoManager, pubsub),
		ContactsSvc:    application.NewContactsService(repoManager, networks),
		PubSubSvc:      pubsub,
	})
	require.NoError(t, err)

	return &testServer{handler, accountSvc}
}

func (s *testServer) do(
	t *testing.T, method, path string, body interface{},
) *httptest.ResponseRecorder {
	buf := &bytes.Buffer{}
	if body != nil {
		require.NoError(t, json.NewEncoder(buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, buf)
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

// unlocked creates and unlocks the wallet of the server.
func (s *testServer) unlocked(t *testing.T) *testServer {
	rec := s.do(t, http.MethodPost, "/v1/wallet/genseed", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	seed := struct {
		Mnemonic []string `json:"mnemonic"`
	}{}
	decode(t, rec, &seed)

	rec = s.do(t, http.MethodPost, "/v1/wallet/create", map[string]interface{}{
		"mnemonic": seed.Mnemonic, "password": password,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(t, http.MethodPost, "/v1/wallet/unlock", map[string]string{
		"password": password,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	return s
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func requireError(
	t *testing.T, rec *httptest.ResponseRecorder, code int, target error,
) {
	require.Equal(t, code, rec.Code)
	reply := interfaces.ErrorReply{}
	decode(t, rec, &reply)
	require.Equal(t, code, reply.Code)
	if target != nil {
		require.Contains(t, reply.Message, target.Error())
	}
}

func TestNewHandler(t *testing.T) {
	walletSvc, err := application.NewWalletService(
		inmemory.NewRepoManager(), domain.NewNetworks("", "", "", 0), nil,
		application.NewPubSubService(nil), domain.NetworkTestnet,
	)
	require.NoError(t, err)
	defer walletSvc.Close()

	tests := []struct {
		name string
		opts httpinterface.HandlerOpts
		err  string
	}{
		{
			name: "missing wallet service",
			opts: httpinterface.HandlerOpts{},
			err:  "missing wallet service",
		},
		{
			name: "missing account service",
			opts: httpinterface.HandlerOpts{WalletSvc: walletSvc},
			err:  "missing account service",
		},
		{
			name: "missing connections service",
			opts: httpinterface.HandlerOpts{
				WalletSvc:  walletSvc,
				AccountSvc: &accountService{},
			},
			err: "missing connections service",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, err := httpinterface.NewHandler(tt.opts)
			require.EqualError(t, err, tt.err)
			require.Nil(t, handler)
		})
	}
}

func TestWalletEndpoints(t *testing.T) {
	s := newTestServer(t)

	status := application.WalletStatus{}
	rec := s.do(t, http.MethodGet, "/v1/wallet/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &status)
	require.False(t, status.Initialized)
	require.Equal(t, domain.NetworkTestnet, status.Network)

	rec = s.do(t, http.MethodPost, "/v1/wallet/unlock", map[string]string{
		"password": password,
	})
	requireError(t, rec, http.StatusNotFound, application.ErrWalletNotInitialized)

	rec = s.do(t, http.MethodPost, "/v1/wallet/genseed", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	seed := struct {
		Mnemonic []string `json:"mnemonic"`
	}{}
	decode(t, rec, &seed)
	require.Len(t, seed.Mnemonic, 12)

	rec = s.do(t, http.MethodPost, "/v1/wallet/create", map[string]interface{}{
		"mnemonic": seed.Mnemonic, "password": password,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &status)
	require.True(t, status.Initialized)
	require.False(t, status.Unlocked)

	rec = s.do(t, http.MethodPost, "/v1/wallet/create", map[string]interface{}{
		"mnemonic": seed.Mnemonic, "password": password,
	})
	requireError(t, rec, http.StatusConflict, domain.ErrVaultAlreadyInitialized)

	rec = s.do(t, http.MethodPost, "/v1/wallet/unlock", map[string]string{
		"password": "wrong password",
	})
	requireError(t, rec, http.StatusUnauthorized, domain.ErrVaultInvalidPassphrase)

	req := httptest.NewRequest(
		http.MethodPost, "/v1/wallet/unlock", bytes.NewBufferString("{"),
	)
	rec = httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	requireError(t, rec, http.StatusBadRequest, interfaces.ErrBadRequest)

	rec = s.do(t, http.MethodPost, "/v1/wallet/unlock", map[string]string{
		"password": password,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &status)
	require.True(t, status.Unlocked)
	require.Equal(t, 0, status.ActiveAccountID)

	rec = s.do(t, http.MethodPost, "/v1/wallet/changepassword", map[string]string{
		"currentPassword": password, "newPassword": "N3wP4ssw0rd!",
	})
	requireError(t, rec, http.StatusConflict, application.ErrWalletMustBeLocked)

	rec = s.do(t, http.MethodPost, "/v1/wallet/lock", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &status)
	require.False(t, status.Unlocked)

	rec = s.do(t, http.MethodPost, "/v1/wallet/changepassword", map[string]string{
		"currentPassword": password, "newPassword": "N3wP4ssw0rd!",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/v1/wallet/genseed", nil)
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestAccountEndpoints(t *testing.T) {
	s := newTestServer(t).unlocked(t)

	rec := s.do(t, http.MethodPost, "/v1/accounts", map[string]string{
		"label": "Savings",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	account := interfaces.AccountView{}
	decode(t, rec, &account)
	require.Equal(t, 1, account.ID)
	require.Equal(t, "Savings", account.Label)
	require.NotEmpty(t, account.Xpub)
	require.NotEmpty(t, account.Address)

	rec = s.do(t, http.MethodGet, "/v1/accounts", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := struct {
		Accounts []interfaces.AccountView `json:"accounts"`
	}{}
	decode(t, rec, &list)
	require.Len(t, list.Accounts, 2)
	require.Equal(t, "Account 1", list.Accounts[0].Label)

	rec = s.do(t, http.MethodPost, "/v1/accounts/1/switch", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(t, http.MethodGet, "/v1/wallet/status", nil)
	status := application.WalletStatus{}
	decode(t, rec, &status)
	require.Equal(t, 1, status.ActiveAccountID)

	rec = s.do(t, http.MethodPost, "/v1/accounts/1/rename", map[string]string{
		"label": "Vault",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &account)
	require.Equal(t, "Vault", account.Label)

	rec = s.do(t, http.MethodGet, "/v1/accounts/abc", nil)
	requireError(t, rec, http.StatusBadRequest, interfaces.ErrBadRequest)

	rec = s.do(t, http.MethodGet, "/v1/accounts/9", nil)
	requireError(t, rec, http.StatusNotFound, domain.ErrAccountNotFound)

	rec = s.do(t, http.MethodPost, "/v1/accounts/trezor", map[string]string{
		"xpub": "invalid", "label": "Trezor",
	})
	requireError(t, rec, http.StatusBadRequest, domain.ErrInvalidXpub)
}

func TestNetworkEndpoints(t *testing.T) {
	s := newTestServer(t).unlocked(t)

	rec := s.do(t, http.MethodGet, "/v1/networks", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := struct {
		Networks []interfaces.NetworkView `json:"networks"`
	}{}
	decode(t, rec, &list)
	require.NotEmpty(t, list.Networks)
	active := 0
	for _, n := range list.Networks {
		if n.Active {
			active++
			require.Equal(t, domain.NetworkTestnet, n.ID)
		}
	}
	require.Equal(t, 1, active)

	rec = s.do(t, http.MethodGet, "/v1/accounts/0", nil)
	account := interfaces.AccountView{}
	decode(t, rec, &account)

	rec = s.do(t, http.MethodGet, "/v1/address/"+account.Address, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	check := struct {
		Address string `json:"address"`
		Network string `json:"network"`
		IsValid bool   `json:"isValid"`
	}{}
	decode(t, rec, &check)
	require.Equal(t, account.Address, check.Address)
	require.Equal(t, domain.NetworkTestnet, check.Network)
	require.True(t, check.IsValid)

	rec = s.do(t, http.MethodGet, "/v1/address/notanaddress", nil)
	decode(t, rec, &check)
	require.False(t, check.IsValid)

	rec = s.do(t, http.MethodPost, "/v1/network", map[string]string{
		"network": "regtest",
	})
	requireError(t, rec, http.StatusBadRequest, domain.ErrUnknownNetwork)

	rec = s.do(t, http.MethodPost, "/v1/network", map[string]string{
		"network": domain.NetworkMain,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	status := application.WalletStatus{}
	decode(t, rec, &status)
	require.Equal(t, domain.NetworkMain, status.Network)

	rec = s.do(t, http.MethodGet, "/v1/price/usd", nil)
	requireError(t, rec, http.StatusBadRequest, interfaces.ErrBadRequest)

	rec = s.do(t, http.MethodGet, "/v1/accounts/0/fiat", nil)
	requireError(t, rec, http.StatusBadRequest, interfaces.ErrBadRequest)
}

func TestTxEndpoints(t *testing.T) {
	s := newTestServer(t).unlocked(t)

	rec := s.do(t, http.MethodPost, "/v1/tx/burn/stage", nil)
	requireError(t, rec, http.StatusBadRequest, domain.ErrUnknownTxKind)

	s.accountSvc.On("Stage", mock.MatchedBy(func(req domain.TxRequest) bool {
		send, ok := req.(*domain.SendRequest)
		return ok && send.To == "tsys1qaddress" && send.Amount.String() == "0.5"
	})).Return(nil).Once()
	s.accountSvc.On("Stage", mock.Anything).Return(domain.ErrInvalidAddress)

	rec = s.do(t, http.MethodPost, "/v1/tx/send/stage", map[string]interface{}{
		"toAddress": "tsys1qaddress", "amount": "0.5",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	staged := struct {
		Kind    string                 `json:"kind"`
		Request map[string]interface{} `json:"request"`
	}{}
	decode(t, rec, &staged)
	require.Equal(t, string(domain.KindSend), staged.Kind)
	require.Equal(t, "tsys1qaddress", staged.Request["toAddress"])

	rec = s.do(t, http.MethodPost, "/v1/tx/send/stage", map[string]interface{}{
		"toAddress": "sys1qaddress", "amount": "0.5",
	})
	requireError(t, rec, http.StatusBadRequest, domain.ErrInvalidAddress)

	s.accountSvc.On("GetTransactionItem").Return(
		map[domain.TxKind]domain.TxRequest{
			domain.KindSend: &domain.SendRequest{To: "tsys1qaddress"},
		}, nil,
	)
	rec = s.do(t, http.MethodGet, "/v1/tx/staged", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	items := struct {
		Staged map[string]interface{} `json:"staged"`
	}{}
	decode(t, rec, &items)
	require.Len(t, items.Staged, len(domain.AllTxKinds))
	require.NotNil(t, items.Staged[string(domain.KindSend)])
	require.Nil(t, items.Staged[string(domain.KindSignPSBT)])

	rec = s.do(t, http.MethodPost, "/v1/tx/send/confirm?wait=maybe", nil)
	requireError(t, rec, http.StatusBadRequest, interfaces.ErrBadRequest)
	rec = s.do(t, http.MethodPost, "/v1/tx/send/confirm?wait=true&timeout=-1s", nil)
	requireError(t, rec, http.StatusBadRequest, interfaces.ErrBadRequest)

	s.accountSvc.On("Confirm", domain.KindSend).
		Return(nil, application.ErrZeroBalance).Once()
	rec = s.do(t, http.MethodPost, "/v1/tx/send/confirm", nil)
	requireError(t, rec, http.StatusBadRequest, application.ErrZeroBalance)

	s.accountSvc.On("ClearTransactionItem", domain.KindSend).Return(nil)
	rec = s.do(t, http.MethodDelete, "/v1/tx/send", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	s.accountSvc.On("Confirm", domain.KindSend).
		Return(nil, application.ErrNoStagedRequest)
	rec = s.do(t, http.MethodPost, "/v1/tx/send/confirm?wait=true&timeout=1s", nil)
	requireError(t, rec, http.StatusNotFound, application.ErrNoStagedRequest)

	s.accountSvc.AssertExpectations(t)
}

func TestContactEndpoints(t *testing.T) {
	s := newTestServer(t).unlocked(t)

	rec := s.do(t, http.MethodGet, "/v1/accounts/0", nil)
	account := interfaces.AccountView{}
	decode(t, rec, &account)

	rec = s.do(t, http.MethodPost, "/v1/contacts", map[string]string{
		"label": "bob", "address": account.Address,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	contact := interfaces.ContactView{}
	decode(t, rec, &contact)
	require.NotEmpty(t, contact.ID)
	require.Equal(t, domain.NetworkTestnet, contact.Network)

	rec = s.do(t, http.MethodPost, "/v1/contacts", map[string]string{
		"label": "alice", "address": "notanaddress",
	})
	requireError(t, rec, http.StatusBadRequest, domain.ErrInvalidAddress)

	rec = s.do(t, http.MethodGet, "/v1/contacts", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := struct {
		Contacts []interfaces.ContactView `json:"contacts"`
	}{}
	decode(t, rec, &list)
	require.Equal(t, []interfaces.ContactView{contact}, list.Contacts)

	rec = s.do(t, http.MethodPut, "/v1/contacts/"+contact.ID, map[string]string{
		"label": "Bob",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &contact)
	require.Equal(t, "Bob", contact.Label)

	rec = s.do(t, http.MethodDelete, "/v1/contacts/"+contact.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/v1/contacts/"+contact.ID, nil)
	requireError(t, rec, http.StatusNotFound, domain.ErrContactNotFound)
}

func TestConnectionEndpoints(t *testing.T) {
	s := newTestServer(t).unlocked(t)

	rec := s.do(t, http.MethodGet, "/v1/connections/pending", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	pending := struct {
		Pending []interfaces.PendingConnectionView `json:"pending"`
	}{}
	decode(t, rec, &pending)
	require.Empty(t, pending.Pending)

	rec = s.do(t, http.MethodPost, "/v1/connections/approve", map[string]interface{}{
		"nonce": "unknown", "accountId": 0,
	})
	requireError(
		t, rec, http.StatusNotFound, application.ErrConnectionRequestNotFound,
	)

	rec = s.do(t, http.MethodPost, "/v1/connections/disconnect", map[string]string{
		"origin": "https://dapp.example.com",
	})
	requireError(t, rec, http.StatusUnauthorized, application.ErrOriginNotConnected)

	rec = s.do(t, http.MethodGet, "/v1/connections", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	conns := struct {
		Connections []interfaces.ConnectionView `json:"connections"`
	}{}
	decode(t, rec, &conns)
	require.Empty(t, conns.Connections)
}

func TestWebhookEndpoints(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/v1/webhooks", map[string]string{
		"endpoint": "http://localhost:8080/hook", "topic": ports.AnyTopic,
	})
	requireError(
		t, rec, http.StatusBadRequest,
		application.ErrWebhookManagerNotInitialized,
	)

	rec = s.do(t, http.MethodGet, "/v1/webhooks", nil)
	requireError(
		t, rec, http.StatusBadRequest,
		application.ErrWebhookManagerNotInitialized,
	)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, rec.Body.String())
}
