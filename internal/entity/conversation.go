package entity

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type ConversationStatus string

const (
	ConversationOpen     ConversationStatus = "open"
	ConversationAssigned ConversationStatus = "assigned"
	ConversationClosed   ConversationStatus = "closed"
)

type Conversation struct {
	ID             string             `json:"id"`
	LeadID         *string            `json:"lead_id,omitempty"`
	Channel        Channel            `json:"channel"`
	PlatformID     string             `json:"platform_id"`
	Status         ConversationStatus `json:"status"`
	AssignedTo     *string            `json:"assigned_to,omitempty"`
	UnreadCount    int                `json:"unread_count"`
	LastActivityAt time.Time          `json:"last_activity_at"`
	CreatedAt      time.Time          `json:"created_at"`
}

func NewConversation(leadID string, ch Channel, platformID string) *Conversation {
	now := time.Now()
	c := &Conversation{
		ID:             uuid.New().String(),
		Channel:        ch,
		PlatformID:     platformID,
		Status:         ConversationOpen,
		LastActivityAt: now,
		CreatedAt:      now,
	}
	if leadID != "" {
		c.LeadID = &leadID
	}
	return c
}

type ConversationFilter struct {
	Status     ConversationStatus
	Channel    Channel
	AssignedTo string
	Limit      int
	Offset     int
}

type ConversationRepositoryInterface interface {
	Create(ctx context.Context, c *Conversation) error
	Update(ctx context.Context, c *Conversation) error
	Delete(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (*Conversation, error)
	FindByChannelAndPlatformID(ctx context.Context, ch Channel, platformID string) (*Conversation, error)
	FindByLeadID(ctx context.Context, leadID string) ([]*Conversation, error)
	List(ctx context.Context, filter ConversationFilter) ([]*Conversation, error)
	LeadsWithDuplicates(ctx context.Context) ([]string, error)
	Touch(ctx context.Context, id string, at time.Time, incrementUnread bool) error
}
