package handlers

import (
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/xavierca1/ligue-crm/internal/infra/http/middleware"
	"github.com/xavierca1/ligue-crm/internal/infra/notify"
	"github.com/xavierca1/ligue-crm/pkg/logger"
)

type StreamRegistry interface {
	Register(userID string) (string, <-chan notify.Event)
	Unregister(id string)
	Touch(id string)
}

type NotificationHandler struct {
	registry  StreamRegistry
	heartbeat time.Duration
	log       *logger.Logger
}

func NewNotificationHandler(registry StreamRegistry, heartbeat time.Duration, log *logger.Logger) *NotificationHandler {
	if log == nil {
		log = logger.Global()
	}
	if heartbeat <= 0 {
		heartbeat = 30 * time.Second
	}
	return &NotificationHandler{registry: registry, heartbeat: heartbeat, log: log.Named("sse")}
}

// Stream holds the connection open and relays registry events as SSE.
func (h *NotificationHandler) Stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeErrorCode(w, http.StatusInternalServerError, "STREAMING_UNSUPPORTED", "streaming não suportado")
		return
	}

	userID := middleware.GetUserID(r.Context())
	id, events := h.registry.Register(userID)
	defer h.registry.Unregister(id)
	middleware.SSEConnected()
	defer middleware.SSEDisconnected()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	fmt.Fprintf(w, "event: connected\ndata: {\"connection_id\":%q}\n\n", id)
	flusher.Flush()

	h.log.Debug("Conexão SSE aberta", zap.String("connection_id", id), zap.String("user_id", userID))

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, open := <-events:
			if !open {
				// pruned by the registry
				return
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Name, ev.Data)
			flusher.Flush()
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
			h.registry.Touch(id)
		}
	}
}
