package entity

import (
	"strings"
	"time"
)

// Subscriber is the messaging platform's view of a contact. It is fetched on
// demand and never persisted as-is.
type Subscriber struct {
	ID              string            `json:"id"`
	FirstName       string            `json:"first_name"`
	LastName        string            `json:"last_name"`
	Name            string            `json:"name"`
	Phone           string            `json:"phone"`
	WhatsAppPhone   string            `json:"whatsapp_phone"`
	Email           string            `json:"email"`
	InstagramID     string            `json:"ig_id"`
	InstagramUser   string            `json:"ig_username"`
	PageID          string            `json:"page_id"`
	Subscribed      *time.Time        `json:"subscribed,omitempty"`
	LastInteraction *time.Time        `json:"last_interaction,omitempty"`
	LastInputText   string            `json:"last_input_text,omitempty"`
	Tags            []string          `json:"tags"`
	CustomFields    map[string]string `json:"custom_fields"`
}

// AnyPhone returns the whatsapp phone when known, the regular phone otherwise.
func (s Subscriber) AnyPhone() string {
	if p := strings.TrimSpace(s.WhatsAppPhone); p != "" {
		return p
	}
	return strings.TrimSpace(s.Phone)
}

// DisplayName picks the best available name for a lead.
func (s Subscriber) DisplayName() string {
	if n := strings.TrimSpace(s.Name); n != "" {
		return n
	}
	full := strings.TrimSpace(strings.TrimSpace(s.FirstName) + " " + strings.TrimSpace(s.LastName))
	if full != "" {
		return full
	}
	if s.InstagramUser != "" {
		return "@" + s.InstagramUser
	}
	return ""
}
