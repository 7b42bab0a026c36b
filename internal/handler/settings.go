package handler

import (
	"net/http"

	"github.com/xenking/boutiq/internal/repository"
)

type settingsPayload struct {
	StoreName string `json:"storeName"`
	Banner    string `json:"banner"`
}

// GetSettings returns the storefront profile.
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	p, err := h.settings.GetProfile(r.Context())
	if err != nil {
		internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settingsPayload{StoreName: p.StoreName, Banner: p.Banner})
}

// UpdateSettings rewrites the storefront profile.
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsPayload
	if !decodeBody(w, r, &req) {
		return
	}

	err := h.settings.UpdateProfile(r.Context(), repository.Profile{
		StoreName: req.StoreName,
		Banner:    req.Banner,
	})
	if err != nil {
		internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}
