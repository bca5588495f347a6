package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/garnizeh/clipmarket/internal/common"
	"github.com/garnizeh/clipmarket/internal/models"
	"github.com/garnizeh/clipmarket/internal/validation"
	"github.com/garnizeh/clipmarket/pkg/repository"
)

var errBadCredentials = fmt.Errorf("%w: credentials not found", common.ErrUnauthenticated)

type AuthHandler struct {
	users  repository.UserRepo
	tokens *TokenIssuer
}

// NewAuthHandler creates a new AuthHandler with required dependencies.
func NewAuthHandler(users repository.UserRepo, tokens *TokenIssuer) *AuthHandler {
	return &AuthHandler{users: users, tokens: tokens}
}

type signupRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Email       string `json:"email" validate:"required,email,max=254"`
	Password    string `json:"password" validate:"required,min=8,max=72"`
	AccountType string `json:"accountType" validate:"required,oneof=brand creator"`
}

type signinRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Token       string       `json:"token"`
	MFARequired bool         `json:"mfaRequired"`
	User        *models.User `json:"user,omitempty"`
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decodeBody(r, "signup", &req); err != nil {
		writeError(w, r, err)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := validation.Struct(req); err != nil {
		writeError(w, r, err)
		return
	}

	ctx := r.Context()

	existing, err := h.users.GetUserByEmail(ctx, req.Email)
	if err != nil {
		writeError(w, r, fmt.Errorf("lookup email: %w", err))
		return
	}
	if existing != nil {
		writeErrorCode(w, http.StatusConflict, "conflict", "email already registered")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, r, fmt.Errorf("hash password: %w", err))
		return
	}

	u := &models.User{
		Name:         req.Name,
		Email:        req.Email,
		AccountType:  models.AccountType(req.AccountType),
		PasswordHash: string(hash),
	}
	id, err := h.users.CreateUser(ctx, u)
	if err != nil {
		writeError(w, r, fmt.Errorf("create user: %w", err))
		return
	}
	u.ID = id

	token, err := h.tokens.Issue(u, false)
	if err != nil {
		writeError(w, r, err)
		return
	}

	logger.Info("user signed up", slog.Int64("user_id", id), slog.String("account_type", req.AccountType))
	writeData(w, authResponse{Token: token, User: u}, http.StatusCreated)
}

// Signin checks the password. Accounts with two-factor enabled get a
// short-lived mfa-pending token that only /v1/2fa/verify accepts.
func (h *AuthHandler) Signin(w http.ResponseWriter, r *http.Request) {
	var req signinRequest
	if err := decodeBody(r, "signin", &req); err != nil {
		writeError(w, r, err)
		return
	}

	ctx := r.Context()

	u, err := h.users.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		writeError(w, r, fmt.Errorf("lookup user: %w", err))
		return
	}
	if u == nil || u.PasswordHash == "" {
		writeError(w, r, errBadCredentials)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			writeError(w, r, errBadCredentials)
			return
		}
		writeError(w, r, fmt.Errorf("compare password: %w", err))
		return
	}

	pending := u.TwoFactorEnabled
	token, err := h.tokens.Issue(u, pending)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := authResponse{Token: token, MFARequired: pending}
	if !pending {
		resp.User = u
	}
	writeData(w, resp, http.StatusOK)
}

func (h *AuthHandler) Signout(w http.ResponseWriter, r *http.Request) {
	// For stateless JWT, signout is client-side (just delete token)
	writeData(w, map[string]string{"message": "signed out"}, http.StatusOK)
}
