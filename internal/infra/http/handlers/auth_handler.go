package handlers

import (
	"context"
	"crypto/subtle"
	"net/http"

	"github.com/xavierca1/ligue-crm/internal/infra/http/middleware"
	"github.com/xavierca1/ligue-crm/internal/usecase"
	"github.com/xavierca1/ligue-crm/pkg/logger"
)

const AuthBridgeHeader = "X-Auth-Bridge-Token"

type SignInService interface {
	Execute(ctx context.Context, input usecase.SignInInput) (*usecase.SignInOutput, error)
}

type AuthHandler struct {
	signIn      SignInService
	bridgeToken string
	log         *logger.Logger
}

func NewAuthHandler(signIn SignInService, bridgeToken string, log *logger.Logger) *AuthHandler {
	if log == nil {
		log = logger.Global()
	}
	return &AuthHandler{signIn: signIn, bridgeToken: bridgeToken, log: log.Named("auth_handler")}
}

// SignIn is called by the OAuth bridge once the identity provider verified
// the user. Without a configured bridge token every call is refused.
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	got := r.Header.Get(AuthBridgeHeader)
	if h.bridgeToken == "" || subtle.ConstantTimeCompare([]byte(got), []byte(h.bridgeToken)) != 1 {
		writeErrorCode(w, http.StatusUnauthorized, usecase.CodeUnauthenticated, "bridge token inválido")
		return
	}

	var input usecase.SignInInput
	if !decodeJSON(w, r, &input) {
		return
	}

	out, err := h.signIn.Execute(r.Context(), input)
	if err != nil {
		respondError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

type MeResponse struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	writeJSON(w, http.StatusOK, MeResponse{
		UserID: middleware.GetUserID(ctx),
		Email:  middleware.GetUserEmail(ctx),
		Role:   string(middleware.GetRole(ctx)),
	})
}
