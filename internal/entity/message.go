package entity

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

type MessageType string

const (
	MessageText  MessageType = "text"
	MessageImage MessageType = "image"
	MessageVideo MessageType = "video"
	MessageAudio MessageType = "audio"
	MessageFile  MessageType = "file"
)

func ParseMessageType(v string) MessageType {
	switch MessageType(v) {
	case MessageImage, MessageVideo, MessageAudio, MessageFile:
		return MessageType(v)
	default:
		return MessageText
	}
}

type Message struct {
	ID             string      `json:"id"`
	ConversationID string      `json:"conversation_id"`
	Direction      Direction   `json:"direction"`
	Content        string      `json:"content"`
	Type           MessageType `json:"type"`
	SentAt         time.Time   `json:"sent_at"`
	ReadAt         *time.Time  `json:"read_at,omitempty"`
	IsBot          bool        `json:"is_bot"`
	ExternalID     *string     `json:"external_id,omitempty"`
}

func NewMessage(conversationID string, dir Direction, content string, typ MessageType, sentAt time.Time) *Message {
	return &Message{
		ID:             uuid.New().String(),
		ConversationID: conversationID,
		Direction:      dir,
		Content:        content,
		Type:           typ,
		SentAt:         sentAt,
	}
}

type MessageRepositoryInterface interface {
	Create(ctx context.Context, m *Message) error
	FindByExternalID(ctx context.Context, externalID string) (*Message, error)
	ListByConversation(ctx context.Context, conversationID string, limit, offset int) ([]*Message, error)
	CountByConversation(ctx context.Context, conversationID string) (int, error)
	Reassign(ctx context.Context, fromConversationID, toConversationID string) (int, error)
	MarkRead(ctx context.Context, conversationID string, at time.Time) (int, error)
}
