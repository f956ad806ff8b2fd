package httpinterface

import (
	"net/http"
)

func (h *handler) listWebhooks(w http.ResponseWriter, r *http.Request) {
	hooks, err := h.pubsubSvc.ListWebhooks(r.URL.Query().Get("topic"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"webhooks": hooks})
}

func (h *handler) addWebhook(w http.ResponseWriter, r *http.Request) {
	req := webhookRequest{}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	id, err := h.pubsubSvc.AddWebhook(req.Endpoint, req.Topic, req.Secret)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id})
}

func (h *handler) removeWebhook(w http.ResponseWriter, r *http.Request) {
	if err := h.pubsubSvc.RemoveWebhook(
		r.URL.Query().Get("topic"), r.PathValue("id"),
	); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}
