package httpinterface

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/pali-wallet/palid/internal/core/application"
	"github.com/pali-wallet/palid/internal/interfaces"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

const (
	maxBodySize = 1 << 20
	// maxConfirmWait caps the time a confirm request can be held open while
	// waiting for its flow to settle.
	maxConfirmWait = 10 * time.Minute
)

// HandlerOpts defines the services exposed by the REST API. PriceSvc is
// optional.
type HandlerOpts struct {
	WalletSvc      application.WalletService
	AccountSvc     application.AccountService
	ConnectionsSvc application.ConnectionsService
	ContactsSvc    application.ContactsService
	PriceSvc       application.PriceService
	PubSubSvc      application.PubSubService
}

func (o HandlerOpts) validate() error {
	if o.WalletSvc == nil {
		return fmt.Errorf("missing wallet service")
	}
	if o.AccountSvc == nil {
		return fmt.Errorf("missing account service")
	}
	if o.ConnectionsSvc == nil {
		return fmt.Errorf("missing connections service")
	}
	if o.ContactsSvc == nil {
		return fmt.Errorf("missing contacts service")
	}
	if o.PubSubSvc == nil {
		return fmt.Errorf("missing pubsub service")
	}
	return nil
}

type handler struct {
	walletSvc      application.WalletService
	accountSvc     application.AccountService
	connectionsSvc application.ConnectionsService
	contactsSvc    application.ContactsService
	priceSvc       application.PriceService
	pubsubSvc      application.PubSubService
}

// NewHandler returns the handler of the /v1 REST API used by the popup and
// the CLI, with the prometheus metrics served at /metrics.
func NewHandler(opts HandlerOpts) (http.Handler, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	h := &handler{
		walletSvc:      opts.WalletSvc,
		accountSvc:     opts.AccountSvc,
		connectionsSvc: opts.ConnectionsSvc,
		contactsSvc:    opts.ContactsSvc,
		priceSvc:       opts.PriceSvc,
		pubsubSvc:      opts.PubSubSvc,
	}

	mux := http.NewServeMux()

	mux.HandleFunc("POST /v1/wallet/genseed", h.genSeed)
	mux.HandleFunc("POST /v1/wallet/create", h.createWallet)
	mux.HandleFunc("POST /v1/wallet/import", h.importWallet)
	mux.HandleFunc("POST /v1/wallet/unlock", h.unlockWallet)
	mux.HandleFunc("POST /v1/wallet/lock", h.lockWallet)
	mux.HandleFunc("POST /v1/wallet/changepassword", h.changePassword)
	mux.HandleFunc("POST /v1/wallet/delete", h.deleteWallet)
	mux.HandleFunc("GET /v1/wallet/status", h.walletStatus)

	mux.HandleFunc("GET /v1/accounts", h.listAccounts)
	mux.HandleFunc("POST /v1/accounts", h.createAccount)
	mux.HandleFunc("POST /v1/accounts/trezor", h.importTrezorAccount)
	mux.HandleFunc("GET /v1/accounts/{id}", h.getAccount)
	mux.HandleFunc("POST /v1/accounts/{id}/switch", h.switchAccount)
	mux.HandleFunc("POST /v1/accounts/{id}/rename", h.renameAccount)
	mux.HandleFunc("POST /v1/accounts/{id}/refresh", h.refreshAccount)
	mux.HandleFunc("GET /v1/accounts/{id}/flows", h.listFlows)
	mux.HandleFunc("GET /v1/accounts/{id}/holdings", h.getHoldings)
	mux.HandleFunc("GET /v1/accounts/{id}/minted", h.getMintedTokens)
	mux.HandleFunc("GET /v1/accounts/{id}/change-address", h.getChangeAddress)
	mux.HandleFunc("GET /v1/accounts/{id}/fiat", h.getFiatBalance)

	mux.HandleFunc("GET /v1/networks", h.listNetworks)
	mux.HandleFunc("POST /v1/network", h.switchNetwork)
	mux.HandleFunc("GET /v1/address/{address}", h.checkAddress)
	mux.HandleFunc("GET /v1/price/{currency}", h.getPrice)

	mux.HandleFunc("POST /v1/tx/{kind}/stage", h.stage)
	mux.HandleFunc("POST /v1/tx/{kind}/wallet-params", h.setWalletParams)
	mux.HandleFunc("GET /v1/tx/staged", h.getStaged)
	mux.HandleFunc("DELETE /v1/tx/{kind}", h.clearStaged)
	mux.HandleFunc("POST /v1/tx/{kind}/confirm", h.confirm)
	mux.HandleFunc("GET /v1/flows/{id}", h.getFlow)
	mux.HandleFunc("POST /v1/flows/{id}/cancel", h.cancelFlow)

	mux.HandleFunc("POST /v1/tokens/update", h.updateTokens)
	mux.HandleFunc("GET /v1/assets/{guid}", h.getAsset)

	mux.HandleFunc("GET /v1/contacts", h.listContacts)
	mux.HandleFunc("POST /v1/contacts", h.addContact)
	mux.HandleFunc("GET /v1/contacts/{id}", h.getContact)
	mux.HandleFunc("PUT /v1/contacts/{id}", h.updateContact)
	mux.HandleFunc("DELETE /v1/contacts/{id}", h.removeContact)

	mux.HandleFunc("GET /v1/connections", h.listConnections)
	mux.HandleFunc("GET /v1/connections/pending", h.listPendingConnections)
	mux.HandleFunc("POST /v1/connections/approve", h.approveConnection)
	mux.HandleFunc("POST /v1/connections/reject", h.rejectConnection)
	mux.HandleFunc("POST /v1/connections/change", h.changeConnectedAccount)
	mux.HandleFunc("POST /v1/connections/disconnect", h.disconnect)

	mux.HandleFunc("GET /v1/webhooks", h.listWebhooks)
	mux.HandleFunc("POST /v1/webhooks", h.addWebhook)
	mux.HandleFunc("DELETE /v1/webhooks/{id}", h.removeWebhook)

	mux.Handle("GET /metrics", promhttp.Handler())

	return withLogger(mux), nil
}

// withLogger logs every request at debug level.
func withLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Debugf("%s %s", r.Method, r.URL.Path)
		next.ServeHTTP(w, r)
	})
}

func decodeBody(r *http.Request, v interface{}) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		return fmt.Errorf("%w: %s", interfaces.ErrBadRequest, err)
	}
	if len(body) <= 0 {
		return nil
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: invalid json body: %s", interfaces.ErrBadRequest, err)
	}
	return nil
}

func pathInt(r *http.Request, name string) (int, error) {
	value := r.PathValue(name)
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return -1, fmt.Errorf("%w: invalid %s %q", interfaces.ErrBadRequest, name, value)
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		v = struct{}{}
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Warn("failed to write http response")
	}
}

func writeError(w http.ResponseWriter, err error) {
	reply := interfaces.NewErrorReply(err)
	if reply.Code == http.StatusInternalServerError {
		log.WithError(err).Warn("http request failed")
	}
	writeJSON(w, reply.Code, reply)
}
