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

type InboxService interface {
	ListConversations(ctx context.Context, filter entity.ConversationFilter) ([]*entity.Conversation, error)
	Messages(ctx context.Context, conversationID string, limit, offset int) ([]*entity.Message, error)
	MarkRead(ctx context.Context, conversationID string) (int, error)
	Assign(ctx context.Context, conversationID, userID, actor string) (*entity.Conversation, error)
	Close(ctx context.Context, conversationID string) (*entity.Conversation, error)
	Send(ctx context.Context, input usecase.SendMessageInput) (*entity.Message, error)
}

type InboxHandler struct {
	inbox InboxService
	log   *logger.Logger
}

func NewInboxHandler(inbox InboxService, log *logger.Logger) *InboxHandler {
	if log == nil {
		log = logger.Global()
	}
	return &InboxHandler{inbox: inbox, log: log.Named("inbox_handler")}
}

type AssignRequest struct {
	UserID string `json:"user_id"`
}

func (h *InboxHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := entity.ConversationFilter{
		Status:     entity.ConversationStatus(q.Get("status")),
		AssignedTo: q.Get("assigned_to"),
		Limit:      queryInt(r, "limit", 50),
		Offset:     queryInt(r, "offset", 0),
	}
	if v := q.Get("channel"); v != "" {
		filter.Channel = entity.ParseChannel(v)
	}
	if filter.AssignedTo == "me" {
		filter.AssignedTo = middleware.GetUserID(r.Context())
	}

	convs, err := h.inbox.ListConversations(r.Context(), filter)
	if err != nil {
		respondError(w, h.log, err)
		return
	}
	if convs == nil {
		convs = []*entity.Conversation{}
	}
	writeJSON(w, http.StatusOK, ListResponse[*entity.Conversation]{Items: convs, Limit: filter.Limit, Offset: filter.Offset})
}

func (h *InboxHandler) Messages(w http.ResponseWriter, r *http.Request) {
	limit, offset := queryInt(r, "limit", 100), queryInt(r, "offset", 0)
	msgs, err := h.inbox.Messages(r.Context(), chi.URLParam(r, "id"), limit, offset)
	if err != nil {
		respondError(w, h.log, err)
		return
	}
	if msgs == nil {
		msgs = []*entity.Message{}
	}
	writeJSON(w, http.StatusOK, ListResponse[*entity.Message]{Items: msgs, Limit: limit, Offset: offset})
}

func (h *InboxHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	n, err := h.inbox.MarkRead(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"marked": n})
}

// Assign gives the conversation to user_id, or to the caller when omitted.
func (h *InboxHandler) Assign(w http.ResponseWriter, r *http.Request) {
	var req AssignRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}
	if req.UserID == "" {
		req.UserID = middleware.GetUserID(r.Context())
	}

	conv, err := h.inbox.Assign(r.Context(), chi.URLParam(r, "id"), req.UserID, actor(r))
	if err != nil {
		respondError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

func (h *InboxHandler) Close(w http.ResponseWriter, r *http.Request) {
	conv, err := h.inbox.Close(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

func (h *InboxHandler) Send(w http.ResponseWriter, r *http.Request) {
	var input usecase.SendMessageInput
	if !decodeJSON(w, r, &input) {
		return
	}
	input.ConversationID = chi.URLParam(r, "id")
	input.Actor = actor(r)

	msg, err := h.inbox.Send(r.Context(), input)
	if err != nil {
		respondError(w, h.log, err)
		return
	}
	middleware.RecordMessageSent(string(msg.Type))
	writeJSON(w, http.StatusCreated, msg)
}
