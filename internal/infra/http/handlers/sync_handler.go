package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/xavierca1/ligue-crm/internal/usecase"
	"github.com/xavierca1/ligue-crm/pkg/logger"
)

type SubscriberSyncer interface {
	Execute(ctx context.Context, input usecase.SyncInput) (*usecase.SyncReport, error)
}

type SyncHandler struct {
	syncer SubscriberSyncer
	log    *logger.Logger
}

func NewSyncHandler(syncer SubscriberSyncer, log *logger.Logger) *SyncHandler {
	if log == nil {
		log = logger.Global()
	}
	return &SyncHandler{syncer: syncer, log: log.Named("sync_handler")}
}

// Subscribers runs the bulk sync inline. An empty body refreshes every
// linked lead.
func (h *SyncHandler) Subscribers(w http.ResponseWriter, r *http.Request) {
	var input usecase.SyncInput
	if r.ContentLength != 0 && !decodeJSON(w, r, &input) {
		return
	}

	report, err := h.syncer.Execute(r.Context(), input)
	if err != nil {
		respondError(w, h.log, err)
		return
	}

	h.log.Info("Sincronização concluída",
		zap.String("actor", actor(r)),
		zap.Int("processed", report.Processed),
		zap.Int("errors", len(report.Errors)),
	)
	writeJSON(w, http.StatusOK, report)
}
