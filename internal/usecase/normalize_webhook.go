package usecase

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xavierca1/ligue-crm/internal/entity"
)

const (
	EventMessageReceived   = "message_received"
	EventMessageSent       = "message_sent"
	EventNewSubscriber     = "new_subscriber"
	EventSubscriberUpdated = "subscriber_updated"
	EventTagAdded          = "tag_added"
	EventTagRemoved        = "tag_removed"
)

// Campos que identificam o formato "snapshot de contato" (sem event_type).
var contactFields = []string{"id", "first_name", "last_input_text", "key"}

type InboundMessage struct {
	ID        string             `json:"id"`
	Text      string             `json:"text"`
	Type      entity.MessageType `json:"type"`
	Direction entity.Direction   `json:"direction"`
	IsBot     bool               `json:"is_bot"`
	Timestamp time.Time          `json:"timestamp"`
}

// WebhookEvent is the single shape the rest of the service consumes.
type WebhookEvent struct {
	EventType   string            `json:"event_type"`
	Subscriber  entity.Subscriber `json:"subscriber"`
	Message     *InboundMessage   `json:"message,omitempty"`
	Tag         string            `json:"tag,omitempty"`
	Synthesized bool              `json:"synthesized"`
}

// NormalizeWebhook turns either platform payload shape into a WebhookEvent.
// now is used for synthesized message ids and timestamps.
func NormalizeWebhook(raw map[string]any, now time.Time) (*WebhookEvent, error) {
	if raw == nil {
		return nil, missingEventType()
	}

	if eventType := firstString(raw, "event_type", "type"); eventType != "" {
		return normalizeEnvelope(raw, eventType, now), nil
	}

	if hasAny(raw, contactFields...) {
		return normalizeSnapshot(raw, now), nil
	}

	return nil, missingEventType()
}

func missingEventType() error {
	return &DomainError{Code: CodeMissingEventType, Message: "payload sem event_type e sem dados de contato"}
}

func normalizeEnvelope(raw map[string]any, eventType string, now time.Time) *WebhookEvent {
	ev := &WebhookEvent{EventType: strings.ToLower(strings.TrimSpace(eventType))}

	if sub, ok := raw["subscriber"].(map[string]any); ok {
		ev.Subscriber = parseSubscriber(sub)
	} else if id := firstString(raw, "subscriber_id"); id != "" {
		ev.Subscriber = entity.Subscriber{ID: id}
	}

	if msg, ok := raw["message"].(map[string]any); ok {
		m := &InboundMessage{
			ID:        firstString(msg, "id", "mid", "message_id"),
			Text:      firstString(msg, "text", "content", "body"),
			Type:      entity.ParseMessageType(firstString(msg, "type")),
			Direction: entity.DirectionInbound,
			Timestamp: parseTime(msg["timestamp"], now),
		}
		if ev.EventType == EventMessageSent || firstString(msg, "direction") == string(entity.DirectionOutbound) {
			m.Direction = entity.DirectionOutbound
			m.IsBot = true
		}
		if m.ID == "" {
			m.ID = syntheticMessageID(ev.Subscriber.ID, now)
		}
		ev.Message = m
	}

	if tag, ok := raw["tag"].(map[string]any); ok {
		ev.Tag = firstString(tag, "name")
	} else {
		ev.Tag = firstString(raw, "tag", "tag_name")
	}

	return ev
}

func normalizeSnapshot(raw map[string]any, now time.Time) *WebhookEvent {
	sub := parseSubscriber(raw)
	ev := &WebhookEvent{Subscriber: sub, Synthesized: true}

	switch {
	case strings.TrimSpace(sub.LastInputText) != "":
		ev.EventType = EventMessageReceived
		ev.Message = &InboundMessage{
			ID:        syntheticMessageID(sub.ID, now),
			Text:      sub.LastInputText,
			Type:      entity.MessageText,
			Direction: entity.DirectionInbound,
			Timestamp: now,
		}
	case sub.Subscribed != nil && sub.LastInteraction == nil:
		ev.EventType = EventNewSubscriber
	default:
		ev.EventType = EventSubscriberUpdated
	}
	return ev
}

// syntheticMessageID is "<contactID>_<unix millis>". Two deliveries for the
// same contact inside the same millisecond collide.
func syntheticMessageID(contactID string, now time.Time) string {
	if contactID == "" {
		contactID = "anon"
	}
	return fmt.Sprintf("%s_%d", contactID, now.UnixMilli())
}

// outboundMessageID is the fallback id for messages the CRM sent when the
// platform returns none. The prefix keeps it apart from inbound ids.
func outboundMessageID(contactID string, now time.Time) string {
	return "out_" + syntheticMessageID(contactID, now)
}

func parseSubscriber(raw map[string]any) entity.Subscriber {
	sub := entity.Subscriber{
		ID:            firstString(raw, "id", "subscriber_id"),
		FirstName:     firstString(raw, "first_name"),
		LastName:      firstString(raw, "last_name"),
		Name:          firstString(raw, "name"),
		Phone:         firstString(raw, "phone"),
		WhatsAppPhone: firstString(raw, "whatsapp_phone"),
		Email:         firstString(raw, "email"),
		InstagramID:   firstString(raw, "ig_id"),
		InstagramUser: firstString(raw, "ig_username"),
		PageID:        firstString(raw, "page_id"),
		LastInputText: firstString(raw, "last_input_text"),
		Tags:          parseTags(raw["tags"]),
		CustomFields:  parseCustomFields(raw["custom_fields"]),
	}

	// "key" vem como "user:123"
	if sub.ID == "" {
		if key := firstString(raw, "key"); key != "" {
			if i := strings.LastIndex(key, ":"); i >= 0 {
				sub.ID = key[i+1:]
			} else {
				sub.ID = key
			}
		}
	}

	if t := parseOptionalTime(raw["subscribed"]); t != nil {
		sub.Subscribed = t
	}
	if t := parseOptionalTime(raw["last_interaction"]); t != nil {
		sub.LastInteraction = t
	}
	return sub
}

func parseTags(v any) []string {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	tags := make([]string, 0, len(list))
	for _, item := range list {
		switch t := item.(type) {
		case string:
			if t != "" {
				tags = append(tags, t)
			}
		case map[string]any:
			if name := firstString(t, "name"); name != "" {
				tags = append(tags, name)
			}
		}
	}
	return tags
}

func parseCustomFields(v any) map[string]string {
	out := map[string]string{}
	switch fields := v.(type) {
	case []any:
		for _, item := range fields {
			f, ok := item.(map[string]any)
			if !ok {
				continue
			}
			name := firstString(f, "name")
			if name == "" {
				continue
			}
			if val := asString(f["value"]); val != "" {
				out[name] = val
			}
		}
	case map[string]any:
		for k, val := range fields {
			if s := asString(val); s != "" {
				out[k] = s
			}
		}
	}
	return out
}

func hasAny(raw map[string]any, keys ...string) bool {
	for _, k := range keys {
		if asString(raw[k]) != "" {
			return true
		}
	}
	return false
}

func firstString(raw map[string]any, keys ...string) string {
	for _, k := range keys {
		if s := asString(raw[k]); s != "" {
			return s
		}
	}
	return ""
}

func asString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		if t {
			return "true"
		}
		return ""
	default:
		return ""
	}
}

func parseOptionalTime(v any) *time.Time {
	s := asString(v)
	if s == "" {
		return nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t
	}
	if t, err := time.Parse("2006-01-02 15:04:05", s); err == nil {
		return &t
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		var t time.Time
		if n > 1e12 {
			t = time.UnixMilli(n)
		} else {
			t = time.Unix(n, 0)
		}
		return &t
	}
	return nil
}

func parseTime(v any, fallback time.Time) time.Time {
	if t := parseOptionalTime(v); t != nil {
		return *t
	}
	return fallback
}
