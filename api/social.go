package api

import (
	"net/http"

	"github.com/garnizeh/clipmarket/internal/identity"
	"github.com/garnizeh/clipmarket/internal/social"
)

type SocialHandler struct {
	social *social.Service
}

func NewSocialHandler(s *social.Service) *SocialHandler {
	return &SocialHandler{social: s}
}

type refreshRequest struct {
	Platform string `json:"platform"`
}

func (h *SocialHandler) Connect(w http.ResponseWriter, r *http.Request) {
	var in social.ConnectInput
	if err := decodeBody(r, "social_connect", &in); err != nil {
		writeError(w, r, err)
		return
	}

	a, err := h.social.Connect(r.Context(), identity.FromContext(r.Context()), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, a, http.StatusOK)
}

func (h *SocialHandler) Accounts(w http.ResponseWriter, r *http.Request) {
	as, err := h.social.Accounts(r.Context(), identity.FromContext(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, nonNil(as), http.StatusOK)
}

// Refresh always answers success. A malformed body only means nothing is
// scheduled.
func (h *SocialHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeBody(r, "social_refresh", &req); err != nil {
		logger.Debug("refresh: ignoring body", "err", err, "request_id", RequestID(r.Context()))
	}

	h.social.RequestRefresh(r.Context(), identity.FromContext(r.Context()), req.Platform)
	writeJSON(w, map[string]bool{"success": true}, http.StatusOK)
}
