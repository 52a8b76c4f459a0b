package usecase

import (
	"context"

	"github.com/xavierca1/ligue-crm/internal/entity"
	"github.com/xavierca1/ligue-crm/internal/infra/queue"
)

// MessagingPlatform is the external messaging automation platform.
type MessagingPlatform interface {
	GetSubscriber(ctx context.Context, subscriberID string) (*entity.Subscriber, error)
	FindSubscriberByPhone(ctx context.Context, phone string) (*entity.Subscriber, error)
	AddTag(ctx context.Context, subscriberID, tag string) error
	RemoveTag(ctx context.Context, subscriberID, tag string) error
	SetCustomField(ctx context.Context, subscriberID, field, value string) error
	SendText(ctx context.Context, subscriberID string, ch entity.Channel, text string) (string, error)
}

type QueueProducerInterface = queue.QueueProducerInterface

// InboxNotifier pushes realtime events to connected agents.
type InboxNotifier interface {
	Broadcast(event string, data any) int
	SendToUser(userID, event string, data any) int
}

// SubscriberInvalidator drops a locally cached subscriber snapshot.
type SubscriberInvalidator interface {
	Invalidate(ctx context.Context, subscriberID string)
}

type EmailService interface {
	SendPendingSignup(to []string, user *entity.User) error
	SendDealWon(to, leadName string, amount float64) error
}
