package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/xavierca1/ligue-crm/internal/entity"
	"github.com/xavierca1/ligue-crm/internal/usecase"
	"github.com/xavierca1/ligue-crm/pkg/logger"
)

type LeadService interface {
	Create(ctx context.Context, input usecase.CreateLeadInput, actor string) (*usecase.LeadOutput, error)
	Get(ctx context.Context, id string) (*usecase.LeadOutput, error)
	List(ctx context.Context, filter entity.LeadFilter) ([]*entity.Lead, error)
	Update(ctx context.Context, id string, input usecase.UpdateLeadInput) (*entity.Lead, error)
	AddTag(ctx context.Context, id, tag string) (*entity.Lead, error)
	RemoveTag(ctx context.Context, id, tag string) (*entity.Lead, error)
	SetCustomField(ctx context.Context, id, field, value string) (*entity.Lead, error)
	Delete(ctx context.Context, id, actor string) error
	CheckDuplicity(ctx context.Context, phone, email string) (bool, error)
}

type LeadHandler struct {
	leads LeadService
	log   *logger.Logger
}

func NewLeadHandler(leads LeadService, log *logger.Logger) *LeadHandler {
	if log == nil {
		log = logger.Global()
	}
	return &LeadHandler{leads: leads, log: log.Named("lead_handler")}
}

type TagRequest struct {
	Tag string `json:"tag"`
}

type CustomFieldRequest struct {
	Value string `json:"value"`
}

type ListResponse[T any] struct {
	Items  []T `json:"items"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

func (h *LeadHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input usecase.CreateLeadInput
	if !decodeJSON(w, r, &input) {
		return
	}

	out, err := h.leads.Create(r.Context(), input, actor(r))
	if err != nil {
		respondError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (h *LeadHandler) Get(w http.ResponseWriter, r *http.Request) {
	out, err := h.leads.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *LeadHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := entity.LeadFilter{
		Status: entity.LeadStatus(q.Get("status")),
		Stage:  entity.Stage(q.Get("stage")),
		Search: strings.TrimSpace(q.Get("search")),
		Limit:  queryInt(r, "limit", 50),
		Offset: queryInt(r, "offset", 0),
	}

	leads, err := h.leads.List(r.Context(), filter)
	if err != nil {
		respondError(w, h.log, err)
		return
	}
	if leads == nil {
		leads = []*entity.Lead{}
	}
	writeJSON(w, http.StatusOK, ListResponse[*entity.Lead]{Items: leads, Limit: filter.Limit, Offset: filter.Offset})
}

func (h *LeadHandler) Update(w http.ResponseWriter, r *http.Request) {
	var input usecase.UpdateLeadInput
	if !decodeJSON(w, r, &input) {
		return
	}

	lead, err := h.leads.Update(r.Context(), chi.URLParam(r, "id"), input)
	if err != nil {
		respondError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, lead)
}

func (h *LeadHandler) AddTag(w http.ResponseWriter, r *http.Request) {
	var req TagRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	lead, err := h.leads.AddTag(r.Context(), chi.URLParam(r, "id"), req.Tag)
	if err != nil {
		respondError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, lead)
}

func (h *LeadHandler) RemoveTag(w http.ResponseWriter, r *http.Request) {
	lead, err := h.leads.RemoveTag(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "tag"))
	if err != nil {
		respondError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, lead)
}

func (h *LeadHandler) SetCustomField(w http.ResponseWriter, r *http.Request) {
	var req CustomFieldRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	lead, err := h.leads.SetCustomField(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "field"), req.Value)
	if err != nil {
		respondError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, lead)
}

// Delete is the admin cleanup path, the only hard delete of a lead.
func (h *LeadHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.leads.Delete(r.Context(), chi.URLParam(r, "id"), actor(r)); err != nil {
		respondError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *LeadHandler) CheckDuplicity(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	dup, err := h.leads.CheckDuplicity(r.Context(), q.Get("phone"), q.Get("email"))
	if err != nil {
		respondError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"duplicate": dup})
}
