package api

import (
	"fmt"
	"net/http"

	"github.com/garnizeh/clipmarket/internal/common"
	"github.com/garnizeh/clipmarket/internal/identity"
	"github.com/garnizeh/clipmarket/internal/twofactor"
	"github.com/garnizeh/clipmarket/pkg/repository"
)

type TwoFactorHandler struct {
	manager *twofactor.Manager
	users   repository.UserRepo
	tokens  *TokenIssuer
}

func NewTwoFactorHandler(manager *twofactor.Manager, users repository.UserRepo, tokens *TokenIssuer) *TwoFactorHandler {
	return &TwoFactorHandler{manager: manager, users: users, tokens: tokens}
}

type verifyRequest struct {
	Code string `json:"code"`
}

type verifyResponse struct {
	twofactor.Verification
	// Token is the full session token, set when the caller signed in with
	// an mfa-pending one.
	Token string `json:"token,omitempty"`
}

func (h *TwoFactorHandler) Secret(w http.ResponseWriter, r *http.Request) {
	enrollment, err := h.manager.GenerateSecret(r.Context(), identity.FromContext(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, enrollment, http.StatusOK)
}

func (h *TwoFactorHandler) Enable(w http.ResponseWriter, r *http.Request) {
	var in twofactor.EnableInput
	if err := decodeBody(r, "twofactor_enable", &in); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.manager.Enable(r.Context(), identity.FromContext(r.Context()), in); err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, map[string]bool{"enabled": true}, http.StatusOK)
}

func (h *TwoFactorHandler) Disable(w http.ResponseWriter, r *http.Request) {
	var in twofactor.DisableInput
	if err := decodeBody(r, "twofactor_disable", &in); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.manager.Disable(r.Context(), identity.FromContext(r.Context()), in); err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, map[string]bool{"enabled": false}, http.StatusOK)
}

func (h *TwoFactorHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := decodeBody(r, "twofactor_verify", &req); err != nil {
		writeError(w, r, err)
		return
	}

	ctx := r.Context()
	actor := identity.FromContext(ctx)

	v, err := h.manager.VerifyCode(ctx, actor, req.Code)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := verifyResponse{Verification: v}
	if actor.MFAPending {
		u, err := h.users.GetUserByID(ctx, actor.UserID)
		if err != nil {
			writeError(w, r, fmt.Errorf("load user: %w", err))
			return
		}
		if u == nil {
			writeError(w, r, common.ErrUnauthenticated)
			return
		}
		if resp.Token, err = h.tokens.Issue(u, false); err != nil {
			writeError(w, r, err)
			return
		}
	}
	writeData(w, resp, http.StatusOK)
}
