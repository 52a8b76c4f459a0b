package handlers

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/xavierca1/ligue-crm/internal/entity"
	"github.com/xavierca1/ligue-crm/internal/usecase"
)

type MockLeadService struct {
	mock.Mock
}

func (m *MockLeadService) Create(ctx context.Context, input usecase.CreateLeadInput, actor string) (*usecase.LeadOutput, error) {
	args := m.Called(ctx, input, actor)
	out, _ := args.Get(0).(*usecase.LeadOutput)
	return out, args.Error(1)
}

func (m *MockLeadService) Get(ctx context.Context, id string) (*usecase.LeadOutput, error) {
	args := m.Called(ctx, id)
	out, _ := args.Get(0).(*usecase.LeadOutput)
	return out, args.Error(1)
}

func (m *MockLeadService) List(ctx context.Context, filter entity.LeadFilter) ([]*entity.Lead, error) {
	args := m.Called(ctx, filter)
	out, _ := args.Get(0).([]*entity.Lead)
	return out, args.Error(1)
}

func (m *MockLeadService) Update(ctx context.Context, id string, input usecase.UpdateLeadInput) (*entity.Lead, error) {
	args := m.Called(ctx, id, input)
	out, _ := args.Get(0).(*entity.Lead)
	return out, args.Error(1)
}

func (m *MockLeadService) AddTag(ctx context.Context, id, tag string) (*entity.Lead, error) {
	args := m.Called(ctx, id, tag)
	out, _ := args.Get(0).(*entity.Lead)
	return out, args.Error(1)
}

func (m *MockLeadService) RemoveTag(ctx context.Context, id, tag string) (*entity.Lead, error) {
	args := m.Called(ctx, id, tag)
	out, _ := args.Get(0).(*entity.Lead)
	return out, args.Error(1)
}

func (m *MockLeadService) SetCustomField(ctx context.Context, id, field, value string) (*entity.Lead, error) {
	args := m.Called(ctx, id, field, value)
	out, _ := args.Get(0).(*entity.Lead)
	return out, args.Error(1)
}

func (m *MockLeadService) Delete(ctx context.Context, id, actor string) error {
	return m.Called(ctx, id, actor).Error(0)
}

func (m *MockLeadService) CheckDuplicity(ctx context.Context, phone, email string) (bool, error) {
	args := m.Called(ctx, phone, email)
	return args.Bool(0), args.Error(1)
}

type MockStageMover struct {
	mock.Mock
}

func (m *MockStageMover) Execute(ctx context.Context, input usecase.MoveStageInput) (*usecase.MoveStageOutput, error) {
	args := m.Called(ctx, input)
	out, _ := args.Get(0).(*usecase.MoveStageOutput)
	return out, args.Error(1)
}

type MockPipelineQuery struct {
	mock.Mock
}

func (m *MockPipelineQuery) History(ctx context.Context, leadID string) ([]*entity.PipelineHistoryEntry, error) {
	args := m.Called(ctx, leadID)
	out, _ := args.Get(0).([]*entity.PipelineHistoryEntry)
	return out, args.Error(1)
}

func (m *MockPipelineQuery) Report(ctx context.Context) ([]entity.StageSummary, error) {
	args := m.Called(ctx)
	out, _ := args.Get(0).([]entity.StageSummary)
	return out, args.Error(1)
}

type MockInbox struct {
	mock.Mock
}

func (m *MockInbox) ListConversations(ctx context.Context, filter entity.ConversationFilter) ([]*entity.Conversation, error) {
	args := m.Called(ctx, filter)
	out, _ := args.Get(0).([]*entity.Conversation)
	return out, args.Error(1)
}

func (m *MockInbox) Messages(ctx context.Context, conversationID string, limit, offset int) ([]*entity.Message, error) {
	args := m.Called(ctx, conversationID, limit, offset)
	out, _ := args.Get(0).([]*entity.Message)
	return out, args.Error(1)
}

func (m *MockInbox) MarkRead(ctx context.Context, conversationID string) (int, error) {
	args := m.Called(ctx, conversationID)
	return args.Int(0), args.Error(1)
}

func (m *MockInbox) Assign(ctx context.Context, conversationID, userID, actor string) (*entity.Conversation, error) {
	args := m.Called(ctx, conversationID, userID, actor)
	out, _ := args.Get(0).(*entity.Conversation)
	return out, args.Error(1)
}

func (m *MockInbox) Close(ctx context.Context, conversationID string) (*entity.Conversation, error) {
	args := m.Called(ctx, conversationID)
	out, _ := args.Get(0).(*entity.Conversation)
	return out, args.Error(1)
}

func (m *MockInbox) Send(ctx context.Context, input usecase.SendMessageInput) (*entity.Message, error) {
	args := m.Called(ctx, input)
	out, _ := args.Get(0).(*entity.Message)
	return out, args.Error(1)
}

type MockWebhookProcessor struct {
	mock.Mock
}

func (m *MockWebhookProcessor) Execute(ctx context.Context, raw map[string]any) (*usecase.WebhookResult, error) {
	args := m.Called(ctx, raw)
	out, _ := args.Get(0).(*usecase.WebhookResult)
	return out, args.Error(1)
}

type MockSignIn struct {
	mock.Mock
}

func (m *MockSignIn) Execute(ctx context.Context, input usecase.SignInInput) (*usecase.SignInOutput, error) {
	args := m.Called(ctx, input)
	out, _ := args.Get(0).(*usecase.SignInOutput)
	return out, args.Error(1)
}

type MockUsers struct {
	mock.Mock
}

func (m *MockUsers) List(ctx context.Context, status entity.UserStatus) ([]*entity.User, error) {
	args := m.Called(ctx, status)
	out, _ := args.Get(0).([]*entity.User)
	return out, args.Error(1)
}

func (m *MockUsers) Update(ctx context.Context, id string, input usecase.UpdateUserInput) (*entity.User, error) {
	args := m.Called(ctx, id, input)
	out, _ := args.Get(0).(*entity.User)
	return out, args.Error(1)
}

type MockSyncer struct {
	mock.Mock
}

func (m *MockSyncer) Execute(ctx context.Context, input usecase.SyncInput) (*usecase.SyncReport, error) {
	args := m.Called(ctx, input)
	out, _ := args.Get(0).(*usecase.SyncReport)
	return out, args.Error(1)
}
