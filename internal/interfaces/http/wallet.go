package httpinterface

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/pali-wallet/palid/internal/core/domain"
	"github.com/pali-wallet/palid/internal/interfaces"
)

func (h *handler) genSeed(w http.ResponseWriter, r *http.Request) {
	mnemonic, err := h.walletSvc.GenSeed(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"mnemonic": mnemonic})
}

func (h *handler) createWallet(w http.ResponseWriter, r *http.Request) {
	req := mnemonicRequest{}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.walletSvc.CreateWallet(
		r.Context(), req.Mnemonic, req.Password,
	); err != nil {
		writeError(w, err)
		return
	}
	h.walletStatus(w, r)
}

func (h *handler) importWallet(w http.ResponseWriter, r *http.Request) {
	req := mnemonicRequest{}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.walletSvc.ImportWallet(
		r.Context(), req.Mnemonic, req.Password,
	); err != nil {
		writeError(w, err)
		return
	}
	h.walletStatus(w, r)
}

func (h *handler) unlockWallet(w http.ResponseWriter, r *http.Request) {
	req := passwordRequest{}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.walletSvc.Unlock(r.Context(), req.Password); err != nil {
		writeError(w, err)
		return
	}
	h.walletStatus(w, r)
}

func (h *handler) lockWallet(w http.ResponseWriter, r *http.Request) {
	if err := h.walletSvc.Lock(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	h.walletStatus(w, r)
}

func (h *handler) changePassword(w http.ResponseWriter, r *http.Request) {
	req := changePasswordRequest{}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.walletSvc.ChangePassword(
		r.Context(), req.CurrentPassword, req.NewPassword,
	); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

func (h *handler) deleteWallet(w http.ResponseWriter, r *http.Request) {
	req := passwordRequest{}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.walletSvc.DeleteWallet(r.Context(), req.Password); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

func (h *handler) walletStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.walletSvc.Status(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *handler) listNetworks(w http.ResponseWriter, r *http.Request) {
	active := ""
	if network, err := h.walletSvc.ActiveNetwork(r.Context()); err == nil {
		active = network.ID
	}
	networks := h.walletSvc.Networks()
	views := make([]interfaces.NetworkView, 0, len(networks))
	for _, n := range networks {
		views = append(views, interfaces.NewNetworkView(n, n.ID == active))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"networks": views})
}

func (h *handler) switchNetwork(w http.ResponseWriter, r *http.Request) {
	req := networkRequest{}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.walletSvc.SwitchNetwork(r.Context(), req.Network); err != nil {
		writeError(w, err)
		return
	}
	h.walletStatus(w, r)
}

func (h *handler) checkAddress(w http.ResponseWriter, r *http.Request) {
	address := strings.TrimSpace(r.PathValue("address"))
	network, err := h.activeNetwork(r)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"address": address,
		"network": network.ID,
		"isValid": network.IsValidAddress(address),
	})
}

func (h *handler) getPrice(w http.ResponseWriter, r *http.Request) {
	if h.priceSvc == nil {
		writeError(w, fmt.Errorf(
			"%w: price feed disabled", interfaces.ErrBadRequest,
		))
		return
	}
	price, err := h.priceSvc.GetPrice(r.PathValue("currency"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, price)
}

// activeNetwork returns the network selected in the wallet, or the network
// of the status if the wallet is not initialized yet.
func (h *handler) activeNetwork(r *http.Request) (domain.Network, error) {
	network, err := h.walletSvc.ActiveNetwork(r.Context())
	if err == nil {
		return network, nil
	}
	status, statusErr := h.walletSvc.Status(r.Context())
	if statusErr != nil {
		return domain.Network{}, err
	}
	for _, n := range h.walletSvc.Networks() {
		if n.ID == status.Network {
			return n, nil
		}
	}
	return domain.Network{}, err
}
