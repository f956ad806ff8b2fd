package httpinterface

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/pali-wallet/palid/internal/core/domain"
	"github.com/pali-wallet/palid/internal/interfaces"
)

func (h *handler) stage(w http.ResponseWriter, r *http.Request) {
	kind, err := domain.ParseTxKind(r.PathValue("kind"))
	if err != nil {
		writeError(w, err)
		return
	}
	req, err := domain.NewTxRequest(kind)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := decodeBody(r, req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.accountSvc.Stage(r.Context(), req); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"kind": kind, "request": req,
	})
}

func (h *handler) setWalletParams(w http.ResponseWriter, r *http.Request) {
	kind, err := domain.ParseTxKind(r.PathValue("kind"))
	if err != nil {
		writeError(w, err)
		return
	}
	params := domain.WalletParams{}
	if err := decodeBody(r, &params); err != nil {
		writeError(w, err)
		return
	}
	if err := h.accountSvc.SetWalletParams(r.Context(), kind, params); err != nil {
		writeError(w, err)
		return
	}
	req, err := h.accountSvc.GetStagedRequest(r.Context(), kind)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"kind": kind, "request": req,
	})
}

func (h *handler) getStaged(w http.ResponseWriter, r *http.Request) {
	items, err := h.accountSvc.GetTransactionItem(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	staged := make(map[string]domain.TxRequest, len(domain.AllTxKinds))
	for _, kind := range domain.AllTxKinds {
		staged[string(kind)] = items[kind]
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"staged": staged})
}

func (h *handler) clearStaged(w http.ResponseWriter, r *http.Request) {
	kind, err := domain.ParseTxKind(r.PathValue("kind"))
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.accountSvc.ClearTransactionItem(r.Context(), kind); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

// confirm starts the flow of the request staged for the kind. With wait set
// the reply is held until the flow settles or the timeout expires, in which
// case the current state of the flow is returned with status accepted.
func (h *handler) confirm(w http.ResponseWriter, r *http.Request) {
	kind, err := domain.ParseTxKind(r.PathValue("kind"))
	if err != nil {
		writeError(w, err)
		return
	}
	wait, timeout, err := parseWaitParams(r)
	if err != nil {
		writeError(w, err)
		return
	}

	handle, err := h.accountSvc.Confirm(r.Context(), kind)
	if err != nil {
		writeError(w, err)
		return
	}
	if !wait {
		writeJSON(w, http.StatusAccepted, interfaces.NewFlowView(handle.Flow()))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()

	flow, err := handle.Wait(ctx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			writeJSON(w, http.StatusAccepted, interfaces.NewFlowView(flow))
			return
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, interfaces.NewFlowView(flow))
}

func (h *handler) getFlow(w http.ResponseWriter, r *http.Request) {
	flow, err := h.accountSvc.GetFlow(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, interfaces.NewFlowView(*flow))
}

func (h *handler) cancelFlow(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.accountSvc.CancelFlow(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	flow, err := h.accountSvc.GetFlow(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, interfaces.NewFlowView(*flow))
}

func (h *handler) listFlows(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	flows, err := h.accountSvc.ListFlows(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	views := make([]interfaces.FlowView, 0, len(flows))
	for _, f := range flows {
		views = append(views, interfaces.NewFlowView(f))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"flows": views})
}

func parseWaitParams(r *http.Request) (bool, time.Duration, error) {
	query := r.URL.Query()
	wait := false
	if str := query.Get("wait"); str != "" {
		b, err := strconv.ParseBool(str)
		if err != nil {
			return false, 0, fmt.Errorf(
				"%w: invalid wait %q", interfaces.ErrBadRequest, str,
			)
		}
		wait = b
	}
	timeout := maxConfirmWait
	if str := query.Get("timeout"); str != "" {
		d, err := time.ParseDuration(str)
		if err != nil || d <= 0 {
			return false, 0, fmt.Errorf(
				"%w: invalid timeout %q", interfaces.ErrBadRequest, str,
			)
		}
		if d < timeout {
			timeout = d
		}
	}
	return wait, timeout, nil
}
