package handlers

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/xavierca1/ligue-crm/internal/infra/http/middleware"
	"github.com/xavierca1/ligue-crm/internal/usecase"
	"github.com/xavierca1/ligue-crm/pkg/logger"
)

const (
	WebhookTokenHeader = "X-Webhook-Token"
	maxWebhookBody     = 1 << 20
)

type WebhookProcessor interface {
	Execute(ctx context.Context, raw map[string]any) (*usecase.WebhookResult, error)
}

type WebhookHandler struct {
	processor WebhookProcessor
	token     string
	log       *logger.Logger
}

// NewWebhookHandler builds the ManyChat webhook endpoint. An empty token
// disables the shared-secret check.
func NewWebhookHandler(processor WebhookProcessor, token string, log *logger.Logger) *WebhookHandler {
	if log == nil {
		log = logger.Global()
	}
	return &WebhookHandler{processor: processor, token: token, log: log.Named("webhook")}
}

// Handle always answers 200 once the caller is authenticated, so the
// platform never retries a payload we already logged as failed.
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	if h.token != "" {
		got := r.Header.Get(WebhookTokenHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(h.token)) != 1 {
			writeErrorCode(w, http.StatusUnauthorized, usecase.CodeUnauthenticated, "token de webhook inválido")
			return
		}
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		h.log.Warn("Falha ao ler corpo do webhook", zap.Error(err))
		h.ack(w)
		return
	}

	var raw map[string]any
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		h.log.Warn("Webhook com JSON inválido", zap.Error(err), zap.ByteString("body", body))
		middleware.RecordWebhookEvent("", "invalid")
		h.ack(w)
		return
	}

	res, err := h.processor.Execute(r.Context(), raw)
	eventType := ""
	if res != nil {
		eventType = res.EventType
	}
	outcome := webhookOutcome(res, err)
	switch outcome {
	case "rejected":
		h.log.Warn("Webhook rejeitado", zap.String("event_type", eventType), zap.Error(err))
	case "error":
		h.log.Error("Falha ao processar webhook", zap.String("event_type", eventType), zap.Error(err))
	case "ignored":
		h.log.Info("Evento de webhook ignorado", zap.String("event_type", eventType))
	case "processed":
		h.log.Debug("Webhook processado",
			zap.String("event_type", eventType),
			logger.LeadID(res.LeadID),
			logger.ConversationID(res.ConversationID),
		)
	}
	middleware.RecordWebhookEvent(eventType, outcome)

	h.ack(w)
}

func (h *WebhookHandler) ack(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}

// webhookOutcome labels a delivery for the webhook metric. Payloads the
// domain refuses are "rejected"; infrastructure failures are "error".
func webhookOutcome(res *usecase.WebhookResult, err error) string {
	switch {
	case err != nil && usecase.IsDomainError(err):
		return "rejected"
	case err != nil:
		return "error"
	case res.Ignored:
		return "ignored"
	case res.Duplicate:
		return "duplicate"
	default:
		return "processed"
	}
}
