package httpinterface

import (
	"fmt"
	"net/http"

	"github.com/pali-wallet/palid/internal/interfaces"
)

func (h *handler) listAccounts(w http.ResponseWriter, r *http.Request) {
	network, err := h.walletSvc.ActiveNetwork(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	accounts, err := h.walletSvc.ListAccounts(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	views := make([]interfaces.AccountView, 0, len(accounts))
	for _, a := range accounts {
		views = append(views, interfaces.NewAccountView(a, network))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"accounts": views})
}

func (h *handler) createAccount(w http.ResponseWriter, r *http.Request) {
	req := labelRequest{}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	account, err := h.walletSvc.CreateAccount(r.Context(), req.Label)
	if err != nil {
		writeError(w, err)
		return
	}
	h.writeAccount(w, r, account.ID)
}

func (h *handler) importTrezorAccount(w http.ResponseWriter, r *http.Request) {
	req := trezorAccountRequest{}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	account, err := h.walletSvc.ImportTrezorAccount(
		r.Context(), req.Xpub, req.Label, req.Path,
	)
	if err != nil {
		writeError(w, err)
		return
	}
	h.writeAccount(w, r, account.ID)
}

func (h *handler) getAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	h.writeAccount(w, r, id)
}

func (h *handler) switchAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.walletSvc.SwitchAccount(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	h.writeAccount(w, r, id)
}

func (h *handler) renameAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	req := labelRequest{}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.walletSvc.RenameAccount(r.Context(), id, req.Label); err != nil {
		writeError(w, err)
		return
	}
	h.writeAccount(w, r, id)
}

func (h *handler) refreshAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	if _, err := h.accountSvc.RefreshAccount(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	h.writeAccount(w, r, id)
}

func (h *handler) getChangeAddress(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	address, err := h.accountSvc.GetChangeAddress(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"address": address})
}

func (h *handler) getFiatBalance(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	if h.priceSvc == nil {
		writeError(w, fmt.Errorf(
			"%w: price feed disabled", interfaces.ErrBadRequest,
		))
		return
	}
	balance, err := h.priceSvc.FiatBalance(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, balance)
}

func (h *handler) writeAccount(w http.ResponseWriter, r *http.Request, id int) {
	network, err := h.walletSvc.ActiveNetwork(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	account, err := h.walletSvc.GetAccount(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, interfaces.NewAccountView(*account, network))
}
