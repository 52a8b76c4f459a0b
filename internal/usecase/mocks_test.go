package usecase

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/xavierca1/ligue-crm/internal/entity"
	"github.com/xavierca1/ligue-crm/internal/infra/queue"
)

type MockPlatform struct {
	mock.Mock
}

func (m *MockPlatform) GetSubscriber(ctx context.Context, subscriberID string) (*entity.Subscriber, error) {
	args := m.Called(ctx, subscriberID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Subscriber), args.Error(1)
}

func (m *MockPlatform) FindSubscriberByPhone(ctx context.Context, phone string) (*entity.Subscriber, error) {
	args := m.Called(ctx, phone)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Subscriber), args.Error(1)
}

func (m *MockPlatform) AddTag(ctx context.Context, subscriberID, tag string) error {
	return m.Called(ctx, subscriberID, tag).Error(0)
}

func (m *MockPlatform) RemoveTag(ctx context.Context, subscriberID, tag string) error {
	return m.Called(ctx, subscriberID, tag).Error(0)
}

func (m *MockPlatform) SetCustomField(ctx context.Context, subscriberID, field, value string) error {
	return m.Called(ctx, subscriberID, field, value).Error(0)
}

func (m *MockPlatform) SendText(ctx context.Context, subscriberID string, ch entity.Channel, text string) (string, error) {
	args := m.Called(ctx, subscriberID, ch, text)
	return args.String(0), args.Error(1)
}

type MockQueueProducer struct {
	mock.Mock
}

func (m *MockQueueProducer) PublishStageEntered(ctx context.Context, payload queue.StageEnteredPayload) error {
	return m.Called(ctx, payload).Error(0)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Broadcast(event string, data any) int {
	return m.Called(event, data).Int(0)
}

func (m *MockNotifier) SendToUser(userID, event string, data any) int {
	return m.Called(userID, event, data).Int(0)
}

type MockEmailService struct {
	mock.Mock
}

func (m *MockEmailService) SendPendingSignup(to []string, user *entity.User) error {
	return m.Called(to, user).Error(0)
}

func (m *MockEmailService) SendDealWon(to, leadName string, amount float64) error {
	return m.Called(to, leadName, amount).Error(0)
}

type MockTokenIssuer struct {
	mock.Mock
}

func (m *MockTokenIssuer) Issue(user *entity.User) (string, error) {
	args := m.Called(user)
	return args.String(0), args.Error(1)
}

type MockInvalidator struct {
	mock.Mock
}

func (m *MockInvalidator) Invalidate(ctx context.Context, subscriberID string) {
	m.Called(ctx, subscriberID)
}
