package manychat

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/xavierca1/ligue-crm/internal/entity"
)

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

type SubscriberResponse struct {
	ID              json.Number   `json:"id"`
	PageID          json.Number   `json:"page_id"`
	FirstName       string        `json:"first_name"`
	LastName        string        `json:"last_name"`
	Name            string        `json:"name"`
	Phone           string        `json:"phone"`
	WhatsAppPhone   string        `json:"whatsapp_phone"`
	Email           string        `json:"email"`
	IGID            json.Number   `json:"ig_id"`
	IGUsername      string        `json:"ig_username"`
	Subscribed      string        `json:"subscribed"`
	LastInteraction string        `json:"last_interaction"`
	LastInputText   string        `json:"last_input_text"`
	Tags            []TagDTO      `json:"tags"`
	CustomFields    []CustomField `json:"custom_fields"`
}

type TagDTO struct {
	ID   json.Number `json:"id"`
	Name string      `json:"name"`
}

type CustomField struct {
	ID    json.Number `json:"id"`
	Name  string      `json:"name"`
	Type  string      `json:"type"`
	Value any         `json:"value"`
}

type tagRequest struct {
	SubscriberID string `json:"subscriber_id"`
	TagName      string `json:"tag_name"`
}

type customFieldRequest struct {
	SubscriberID string `json:"subscriber_id"`
	FieldName    string `json:"field_name"`
	FieldValue   string `json:"field_value"`
}

type sendContentRequest struct {
	SubscriberID string      `json:"subscriber_id"`
	Data         sendContent `json:"data"`
	MessageTag   string      `json:"message_tag,omitempty"`
}

type sendContent struct {
	Version string      `json:"version"`
	Content contentBody `json:"content"`
}

type contentBody struct {
	Type     string        `json:"type,omitempty"`
	Messages []textMessage `json:"messages"`
}

type textMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type sendResponse struct {
	MessageID string `json:"message_id"`
	MID       string `json:"mid"`
}

func (s SubscriberResponse) ToEntity() *entity.Subscriber {
	sub := &entity.Subscriber{
		ID:              s.ID.String(),
		FirstName:       s.FirstName,
		LastName:        s.LastName,
		Name:            s.Name,
		Phone:           s.Phone,
		WhatsAppPhone:   s.WhatsAppPhone,
		Email:           s.Email,
		InstagramID:     s.IGID.String(),
		InstagramUser:   s.IGUsername,
		PageID:          s.PageID.String(),
		LastInputText:   s.LastInputText,
		Subscribed:      parseTime(s.Subscribed),
		LastInteraction: parseTime(s.LastInteraction),
		CustomFields:    map[string]string{},
	}
	for _, t := range s.Tags {
		if t.Name != "" {
			sub.Tags = append(sub.Tags, t.Name)
		}
	}
	for _, f := range s.CustomFields {
		if v := fieldValue(f.Value); f.Name != "" && v != "" {
			sub.CustomFields[f.Name] = v
		}
	}
	return sub
}

func fieldValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	default:
		b, _ := json.Marshal(t)
		return string(b)
	}
}

func parseTime(v string) *time.Time {
	if v == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05-0700", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, v); err == nil {
			return &t
		}
	}
	return nil
}
