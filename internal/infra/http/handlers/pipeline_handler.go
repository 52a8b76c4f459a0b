package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/xavierca1/ligue-crm/internal/entity"
	"github.com/xavierca1/ligue-crm/internal/infra/http/middleware"
	"github.com/xavierca1/ligue-crm/internal/usecase"
	"github.com/xavierca1/ligue-crm/pkg/logger"
)

type StageMover interface {
	Execute(ctx context.Context, input usecase.MoveStageInput) (*usecase.MoveStageOutput, error)
}

type PipelineQuery interface {
	History(ctx context.Context, leadID string) ([]*entity.PipelineHistoryEntry, error)
	Report(ctx context.Context) ([]entity.StageSummary, error)
}

type PipelineHandler struct {
	mover StageMover
	query PipelineQuery
	log   *logger.Logger
}

func NewPipelineHandler(mover StageMover, query PipelineQuery, log *logger.Logger) *PipelineHandler {
	if log == nil {
		log = logger.Global()
	}
	return &PipelineHandler{mover: mover, query: query, log: log.Named("pipeline_handler")}
}

func (h *PipelineHandler) MoveStage(w http.ResponseWriter, r *http.Request) {
	var input usecase.MoveStageInput
	if !decodeJSON(w, r, &input) {
		return
	}
	input.LeadID = chi.URLParam(r, "id")
	input.Actor = actor(r)
	input.Type = entity.TransitionManual

	out, err := h.mover.Execute(r.Context(), input)
	if err != nil {
		respondError(w, h.log, err)
		return
	}
	middleware.RecordStageMove(string(input.ToStage), string(input.Type))
	if out.Warnings == nil {
		out.Warnings = []string{}
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *PipelineHandler) History(w http.ResponseWriter, r *http.Request) {
	entries, err := h.query.History(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, h.log, err)
		return
	}
	if entries == nil {
		entries = []*entity.PipelineHistoryEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

type PipelineReportResponse struct {
	Stages      []entity.StageSummary `json:"stages"`
	TotalLeads  int                   `json:"total_leads"`
	WeightedSum float64               `json:"weighted_sum"`
}

func (h *PipelineHandler) Report(w http.ResponseWriter, r *http.Request) {
	stages, err := h.query.Report(r.Context())
	if err != nil {
		respondError(w, h.log, err)
		return
	}

	resp := PipelineReportResponse{Stages: stages}
	for _, s := range stages {
		resp.TotalLeads += s.Leads
		resp.WeightedSum += s.WeightedAmount
	}
	writeJSON(w, http.StatusOK, resp)
}
