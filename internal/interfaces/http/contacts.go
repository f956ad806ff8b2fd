package httpinterface

import (
	"net/http"

	"github.com/pali-wallet/palid/internal/interfaces"
)

func (h *handler) listContacts(w http.ResponseWriter, r *http.Request) {
	contacts, err := h.contactsSvc.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	views := make([]interfaces.ContactView, 0, len(contacts))
	for _, c := range contacts {
		views = append(views, interfaces.NewContactView(c))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"contacts": views})
}

func (h *handler) addContact(w http.ResponseWriter, r *http.Request) {
	req := contactRequest{}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Network == "" {
		network, err := h.activeNetwork(r)
		if err != nil {
			writeError(w, err)
			return
		}
		req.Network = network.ID
	}
	contact, err := h.contactsSvc.Add(
		r.Context(), req.Label, req.Address, req.Network,
	)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, interfaces.NewContactView(*contact))
}

func (h *handler) getContact(w http.ResponseWriter, r *http.Request) {
	contact, err := h.contactsSvc.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, interfaces.NewContactView(*contact))
}

func (h *handler) updateContact(w http.ResponseWriter, r *http.Request) {
	req := contactRequest{}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	contact, err := h.contactsSvc.Update(
		r.Context(), r.PathValue("id"), req.Label, req.Address,
	)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, interfaces.NewContactView(*contact))
}

func (h *handler) removeContact(w http.ResponseWriter, r *http.Request) {
	if err := h.contactsSvc.Remove(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}
