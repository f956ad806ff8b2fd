package httpinterface

import (
	"net/http"

	"github.com/pali-wallet/palid/internal/interfaces"
)

func (h *handler) listConnections(w http.ResponseWriter, r *http.Request) {
	conns, err := h.connectionsSvc.ListConnections(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"connections": interfaces.NewConnectionViews(conns),
	})
}

func (h *handler) listPendingConnections(w http.ResponseWriter, r *http.Request) {
	reqs := h.connectionsSvc.PendingConnections(r.Context())
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"pending": interfaces.NewPendingConnectionViews(reqs),
	})
}

func (h *handler) approveConnection(w http.ResponseWriter, r *http.Request) {
	req := approveConnectionRequest{}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.connectionsSvc.ApproveConnection(
		r.Context(), req.Nonce, req.AccountID,
	); err != nil {
		writeError(w, err)
		return
	}
	h.listConnections(w, r)
}

func (h *handler) rejectConnection(w http.ResponseWriter, r *http.Request) {
	req := approveConnectionRequest{}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.connectionsSvc.RejectConnection(r.Context(), req.Nonce); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

func (h *handler) changeConnectedAccount(w http.ResponseWriter, r *http.Request) {
	req := connectionRequest{}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.connectionsSvc.ChangeConnectedAccount(
		r.Context(), req.Origin, req.AccountID,
	); err != nil {
		writeError(w, err)
		return
	}
	h.listConnections(w, r)
}

func (h *handler) disconnect(w http.ResponseWriter, r *http.Request) {
	req := connectionRequest{}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.connectionsSvc.Disconnect(r.Context(), req.Origin); err != nil {
		writeError(w, err)
		return
	}
	h.listConnections(w, r)
}
