package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/xavierca1/ligue-crm/internal/entity"
	"github.com/xavierca1/ligue-crm/internal/usecase"
	"github.com/xavierca1/ligue-crm/pkg/logger"
)

type UserService interface {
	List(ctx context.Context, status entity.UserStatus) ([]*entity.User, error)
	Update(ctx context.Context, id string, input usecase.UpdateUserInput) (*entity.User, error)
}

type UserHandler struct {
	users UserService
	log   *logger.Logger
}

func NewUserHandler(users UserService, log *logger.Logger) *UserHandler {
	if log == nil {
		log = logger.Global()
	}
	return &UserHandler{users: users, log: log.Named("user_handler")}
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context(), entity.UserStatus(r.URL.Query().Get("status")))
	if err != nil {
		respondError(w, h.log, err)
		return
	}
	if users == nil {
		users = []*entity.User{}
	}
	writeJSON(w, http.StatusOK, users)
}

func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	var input usecase.UpdateUserInput
	if !decodeJSON(w, r, &input) {
		return
	}

	user, err := h.users.Update(r.Context(), chi.URLParam(r, "id"), input)
	if err != nil {
		respondError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
