package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Authenticator é o que o AuthHandler precisa do caso de uso de sessão.
type Authenticator interface {
	Login(ctx context.Context, accountID, credential string) (string, error)
	Logout(ctx context.Context, token string) error
}

type AuthHandler struct {
	auth Authenticator
}

func NewAuthHandler(auth Authenticator) *AuthHandler {
	return &AuthHandler{auth: auth}
}

type LoginRequest struct {
	AccountID  string `json:"accountId" validate:"required,max=128"`
	Credential string `json:"credential" validate:"required,max=256"`
}

type LoginResponse struct {
	Token string `json:"token"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	token, err := h.auth.Login(r.Context(), req.AccountID, req.Credential)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, LoginResponse{Token: token})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.Logout(r.Context(), chi.URLParam(r, "token")); err != nil {
		respondDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
