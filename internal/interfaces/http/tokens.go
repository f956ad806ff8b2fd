package httpinterface

import (
	"net/http"

	"github.com/pali-wallet/palid/internal/interfaces"
)

func (h *handler) getHoldings(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	holdings, err := h.accountSvc.GetHoldingsData(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"holdings": interfaces.NewHoldingViews(holdings),
	})
}

func (h *handler) getMintedTokens(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	tokens, err := h.accountSvc.GetUserMintedTokens(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	views := make([]interfaces.TokenView, 0, len(tokens))
	for _, t := range tokens {
		views = append(views, interfaces.NewTokenView(t))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"tokens": views})
}

func (h *handler) updateTokens(w http.ResponseWriter, r *http.Request) {
	if err := h.accountSvc.UpdateTokensState(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

func (h *handler) getAsset(w http.ResponseWriter, r *http.Request) {
	token, err := h.accountSvc.GetAssetData(r.Context(), r.PathValue("guid"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, interfaces.NewTokenView(*token))
}
