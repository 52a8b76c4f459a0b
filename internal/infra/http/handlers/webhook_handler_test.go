package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/xavierca1/ligue-crm/internal/usecase"
	"github.com/xavierca1/ligue-crm/pkg/logger"
)

func postWebhook(h *WebhookHandler, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/manychat", strings.NewReader(body))
	if token != "" {
		req.Header.Set(WebhookTokenHeader, token)
	}
	rec := httptest.NewRecorder()
	h.Handle(rec, req)
	return rec
}

func TestWebhookAlwaysAcknowledges(t *testing.T) {
	cases := []struct {
		name   string
		body   string
		result *usecase.WebhookResult
		err    error
	}{
		{"processed", `{"id":123,"last_input_text":"hola"}`, &usecase.WebhookResult{EventType: "message_received", LeadID: "l1"}, nil},
		{"ignored", `{"event_type":"survey_done","subscriber":{"id":"1"}}`, &usecase.WebhookResult{EventType: "survey_done", Ignored: true}, nil},
		{"duplicate", `{"id":123,"last_input_text":"hola"}`, &usecase.WebhookResult{EventType: "message_received", Duplicate: true}, nil},
		{"missing event type", `{"foo":"bar"}`, nil, &usecase.DomainError{Code: usecase.CodeMissingEventType, Message: "sem event_type"}},
		{"processing failure", `{"id":1}`, &usecase.WebhookResult{EventType: "subscriber_updated"}, assert.AnError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := new(MockWebhookProcessor)
			p.On("Execute", mock.Anything, mock.Anything).Return(tc.result, tc.err)
			h := NewWebhookHandler(p, "", logger.NewNop())

			rec := postWebhook(h, "", tc.body)

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.JSONEq(t, `{"received":true}`, rec.Body.String())
			p.AssertExpectations(t)
		})
	}
}

func TestWebhookOutcome(t *testing.T) {
	cases := []struct {
		want string
		res  *usecase.WebhookResult
		err  error
	}{
		{"processed", &usecase.WebhookResult{EventType: "message_received"}, nil},
		{"ignored", &usecase.WebhookResult{Ignored: true}, nil},
		{"duplicate", &usecase.WebhookResult{Duplicate: true}, nil},
		{"rejected", nil, &usecase.DomainError{Code: usecase.CodeMissingEventType}},
		{"rejected", &usecase.WebhookResult{EventType: "tag_added"}, fmt.Errorf("tag: %w", &usecase.DomainError{Code: usecase.CodeValidation})},
		{"error", &usecase.WebhookResult{}, &usecase.TechnicalError{Code: usecase.CodeDatabase, Err: assert.AnError}},
		{"error", nil, assert.AnError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, webhookOutcome(tc.res, tc.err), "%v", tc.err)
	}
}

func TestWebhookInvalidJSON(t *testing.T) {
	p := new(MockWebhookProcessor)
	h := NewWebhookHandler(p, "", logger.NewNop())

	rec := postWebhook(h, "", `{not json`)

	assert.Equal(t, http.StatusOK, rec.Code)
	p.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything)
}

func TestWebhookToken(t *testing.T) {
	p := new(MockWebhookProcessor)
	p.On("Execute", mock.Anything, mock.Anything).Return(&usecase.WebhookResult{EventType: "new_subscriber"}, nil)
	h := NewWebhookHandler(p, "secret", logger.NewNop())

	assert.Equal(t, http.StatusUnauthorized, postWebhook(h, "wrong", `{"id":1}`).Code)
	assert.Equal(t, http.StatusUnauthorized, postWebhook(h, "", `{"id":1}`).Code)
	assert.Equal(t, http.StatusOK, postWebhook(h, "secret", `{"id":1}`).Code)
	p.AssertNumberOfCalls(t, "Execute", 1)
}

func TestWebhookNumbersKeepPrecision(t *testing.T) {
	p := new(MockWebhookProcessor)
	p.On("Execute", mock.Anything, mock.MatchedBy(func(raw map[string]any) bool {
		n, ok := raw["id"].(json.Number)
		return ok && n.String() == "1234567890123456789"
	})).Return(&usecase.WebhookResult{EventType: "subscriber_updated"}, nil)
	h := NewWebhookHandler(p, "", logger.NewNop())

	postWebhook(h, "", `{"id":1234567890123456789}`)
	p.AssertExpectations(t)
}
