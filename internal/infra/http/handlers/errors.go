package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/xavierca1/ligue-crm/internal/infra/http/middleware"
	"github.com/xavierca1/ligue-crm/internal/usecase"
	"github.com/xavierca1/ligue-crm/pkg/logger"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeErrorCode(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, ErrorResponse{Error: code, Message: msg})
}

// respondError maps use case errors to HTTP statuses. Technical details
// never reach the client.
func respondError(w http.ResponseWriter, log *logger.Logger, err error) {
	var de *usecase.DomainError
	if errors.As(err, &de) {
		writeErrorCode(w, domainStatus(de.Code), de.Code, de.Message)
		return
	}

	var te *usecase.TechnicalError
	if errors.As(err, &te) {
		// every technical failure is a 500; the code tells integration
		// failures apart for the client
		if te.Code == usecase.CodeExternalService {
			middleware.RecordIntegrationError("manychat")
		}
		log.Error("Erro técnico", zap.String("code", te.Code), zap.Error(err))
		writeErrorCode(w, http.StatusInternalServerError, te.Code, te.Message)
		return
	}

	log.Error("Erro inesperado", zap.Error(err))
	writeErrorCode(w, http.StatusInternalServerError, "INTERNAL_ERROR", "erro interno")
}

func domainStatus(code string) int {
	switch code {
	case usecase.CodeNotFound:
		return http.StatusNotFound
	case usecase.CodeValidation, usecase.CodeSameStage, usecase.CodeTransitionNotAllowed, usecase.CodeMissingEventType:
		return http.StatusUnprocessableEntity
	case usecase.CodePermissionDenied:
		return http.StatusForbidden
	case usecase.CodeUnauthenticated:
		return http.StatusUnauthorized
	default:
		return http.StatusBadRequest
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeErrorCode(w, http.StatusBadRequest, "INVALID_JSON", "JSON inválido")
		return false
	}
	return true
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}

// actor identifies the caller in audit trails.
func actor(r *http.Request) string {
	if email := middleware.GetUserEmail(r.Context()); email != "" {
		return email
	}
	return middleware.GetUserID(r.Context())
}
