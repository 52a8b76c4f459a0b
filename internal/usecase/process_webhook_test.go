package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/xavierca1/ligue-crm/internal/entity"
	"github.com/xavierca1/ligue-crm/pkg/logger"
)

type crmFixture struct {
	leads    *memLeads
	pipeline *memPipeline
	convs    *memConversations
	msgs     *memMessages
	platform *MockPlatform
	notifier *MockNotifier
	syncer   *LeadSyncer
}

func newCRMFixture() *crmFixture {
	f := &crmFixture{
		leads:    newMemLeads(),
		pipeline: newMemPipeline(),
		convs:    newMemConversations(),
		msgs:     &memMessages{},
		platform: &MockPlatform{},
		notifier: &MockNotifier{},
	}
	reconciler := NewConversationReconciler(f.convs, f.msgs, logger.NewNop())
	f.syncer = NewLeadSyncer(f.leads, f.pipeline, reconciler, logger.NewNop())
	f.syncer.Now = func() time.Time { return fixedNow }
	return f
}

func (f *crmFixture) webhook() *ProcessWebhookUseCase {
	uc := NewProcessWebhookUseCase(f.syncer, f.leads, f.convs, f.msgs, f.platform, f.notifier, logger.NewNop())
	uc.Now = func() time.Time { return fixedNow }
	return uc
}

func TestProcessWebhookSnapshotMessage(t *testing.T) {
	f := newCRMFixture()
	f.notifier.On("Broadcast", "inbox.message", mock.Anything).Return(1).Once()
	uc := f.webhook()

	raw := decode(t, `{"id":"321","first_name":"Juan","whatsapp_phone":"+5491155556789","last_input_text":"hola"}`)
	res, err := uc.Execute(context.Background(), raw)
	require.NoError(t, err)

	assert.Equal(t, EventMessageReceived, res.EventType)
	assert.NotEmpty(t, res.LeadID)
	assert.NotEmpty(t, res.ConversationID)
	assert.NotEmpty(t, res.MessageID)
	assert.False(t, res.Duplicate)

	lead, err := f.leads.FindBySubscriberID(context.Background(), "321")
	require.NoError(t, err)
	assert.Equal(t, "Juan", lead.Name)
	assert.Equal(t, "+5491155556789", lead.Phone)

	rec, err := f.pipeline.FindByLeadID(context.Background(), lead.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StageNew, rec.Stage)

	conv, err := f.convs.FindByID(context.Background(), res.ConversationID)
	require.NoError(t, err)
	assert.Equal(t, entity.ChannelWhatsApp, conv.Channel)
	assert.Equal(t, "+5491155556789", conv.PlatformID)
	assert.Equal(t, 1, conv.UnreadCount)

	require.Len(t, f.msgs.rows, 1)
	assert.Equal(t, "hola", f.msgs.rows[0].Content)
	assert.Equal(t, "321_1715351400000", *f.msgs.rows[0].ExternalID)

	// same delivery again: no new rows
	res2, err := uc.Execute(context.Background(), raw)
	require.NoError(t, err)
	assert.True(t, res2.Duplicate)
	assert.Equal(t, res.MessageID, res2.MessageID)
	assert.Len(t, f.msgs.rows, 1)
	assert.Len(t, f.leads.rows, 1)
	assert.Len(t, f.convs.rows, 1)
	f.notifier.AssertExpectations(t)
}

func TestProcessWebhookFetchesSubscriberForBareEnvelope(t *testing.T) {
	f := newCRMFixture()
	f.platform.On("GetSubscriber", mock.Anything, "77").Return(&entity.Subscriber{
		ID: "77", Name: "Ana", InstagramID: "ig-77", InstagramUser: "ana",
	}, nil)
	uc := f.webhook()

	res, err := uc.Execute(context.Background(), decode(t, `{"event_type":"new_subscriber","subscriber":{"id":"77"}}`))
	require.NoError(t, err)

	conv, err := f.convs.FindByID(context.Background(), res.ConversationID)
	require.NoError(t, err)
	assert.Equal(t, entity.ChannelInstagram, conv.Channel)
	assert.Equal(t, "77", conv.PlatformID)
	f.platform.AssertExpectations(t)
}

func TestProcessWebhookPlatformFailureFallsBackToPayload(t *testing.T) {
	f := newCRMFixture()
	f.platform.On("GetSubscriber", mock.Anything, "77").Return(nil, errBoom)
	uc := f.webhook()

	res, err := uc.Execute(context.Background(), decode(t, `{"event_type":"subscriber_updated","subscriber":{"id":"77","name":"Ana"}}`))
	require.NoError(t, err)
	assert.NotEmpty(t, res.LeadID)

	conv, _ := f.convs.FindByID(context.Background(), res.ConversationID)
	assert.Equal(t, entity.ChannelUnknown, conv.Channel)
}

func TestProcessWebhookOutboundMessage(t *testing.T) {
	f := newCRMFixture()
	f.notifier.On("Broadcast", "inbox.message", mock.Anything).Return(0)
	uc := f.webhook()

	body := `{"event_type":"message_sent","subscriber":{"id":"5","phone":"1155556789"},"message":{"id":"out-1","text":"Gracias!"}}`
	res, err := uc.Execute(context.Background(), decode(t, body))
	require.NoError(t, err)

	require.Len(t, f.msgs.rows, 1)
	m := f.msgs.rows[0]
	assert.Equal(t, entity.DirectionOutbound, m.Direction)
	assert.True(t, m.IsBot)

	conv, _ := f.convs.FindByID(context.Background(), res.ConversationID)
	assert.Equal(t, 0, conv.UnreadCount)
}

func TestProcessWebhookTagEvents(t *testing.T) {
	f := newCRMFixture()
	uc := f.webhook()

	_, err := uc.Execute(context.Background(), decode(t, `{"id":"9","first_name":"Leo","phone":"+5491100000000"}`))
	require.NoError(t, err)

	_, err = uc.Execute(context.Background(), decode(t, `{"event_type":"tag_added","subscriber":{"id":"9"},"tag":{"name":"vip"}}`))
	require.NoError(t, err)
	lead, _ := f.leads.FindBySubscriberID(context.Background(), "9")
	assert.True(t, lead.HasTag("vip"))

	_, err = uc.Execute(context.Background(), decode(t, `{"event_type":"tag_removed","subscriber":{"id":"9"},"tag":"VIP"}`))
	require.NoError(t, err)
	lead, _ = f.leads.FindBySubscriberID(context.Background(), "9")
	assert.False(t, lead.HasTag("vip"))
}

func TestProcessWebhookEvictsCachedSubscriber(t *testing.T) {
	f := newCRMFixture()
	f.notifier.On("Broadcast", "inbox.message", mock.Anything).Return(0)
	cache := &MockInvalidator{}
	cache.On("Invalidate", mock.Anything, "9").Return()
	uc := f.webhook()
	uc.Cache = cache

	bodies := []string{
		`{"id":"9","first_name":"Leo","phone":"+5491100000000"}`,
		`{"event_type":"tag_added","subscriber":{"id":"9"},"tag":{"name":"vip"}}`,
		`{"event_type":"subscriber_updated","subscriber":{"id":"9","email":"leo@ligue.com","phone":"+5491100000000"}}`,
		`{"event_type":"message_received","subscriber":{"id":"9","phone":"+5491100000000"},"message":{"id":"m-1","text":"oi"}}`,
	}
	for _, body := range bodies {
		_, err := uc.Execute(context.Background(), decode(t, body))
		require.NoError(t, err)
	}

	cache.AssertNumberOfCalls(t, "Invalidate", len(bodies))
}

func TestProcessWebhookKeepsMessageWhenConversationRaces(t *testing.T) {
	f := newCRMFixture()
	f.notifier.On("Broadcast", "inbox.message", mock.Anything).Return(0)

	racing := &racingConversations{memConversations: f.convs, race: func(leadID string) {
		conv := entity.NewConversation(leadID, entity.ChannelWhatsApp, "+5491155556789")
		require.NoError(t, f.convs.Create(context.Background(), conv))
	}}
	f.syncer.Reconciler = NewConversationReconciler(racing, f.msgs, logger.NewNop())

	raw := decode(t, `{"id":"321","first_name":"Juan","whatsapp_phone":"+5491155556789","last_input_text":"hola"}`)
	res, err := f.webhook().Execute(context.Background(), raw)
	require.NoError(t, err)

	assert.NotEmpty(t, res.ConversationID)
	assert.NotEmpty(t, res.MessageID)
	assert.Len(t, f.convs.rows, 1)
	require.Len(t, f.msgs.rows, 1)
	assert.Equal(t, res.ConversationID, f.msgs.rows[0].ConversationID)
}

func TestProcessWebhookIgnoresUnknownType(t *testing.T) {
	f := newCRMFixture()
	res, err := f.webhook().Execute(context.Background(), decode(t, `{"event_type":"flow_completed","subscriber":{"id":"1"}}`))
	require.NoError(t, err)
	assert.True(t, res.Ignored)
	assert.Empty(t, f.leads.rows)
}

func TestProcessWebhookMissingEventType(t *testing.T) {
	f := newCRMFixture()
	_, err := f.webhook().Execute(context.Background(), decode(t, `{"foo":1}`))
	assert.True(t, HasCode(err, CodeMissingEventType))
}

func TestLeadSyncerLinksExistingLeadByPhone(t *testing.T) {
	f := newCRMFixture()
	existing, err := entity.NewLead("Carla", "+5491155550000", "")
	require.NoError(t, err)
	require.NoError(t, f.leads.Create(context.Background(), existing))

	out, err := f.syncer.Apply(context.Background(), entity.Subscriber{ID: "sub-9", WhatsAppPhone: "+54 9 11 5555-0000"})
	require.NoError(t, err)

	assert.False(t, out.Created)
	assert.True(t, out.Linked)
	assert.Equal(t, existing.ID, out.Lead.ID)
	stored, _ := f.leads.FindByID(context.Background(), existing.ID)
	require.NotNil(t, stored.SubscriberID)
	assert.Equal(t, "sub-9", *stored.SubscriberID)
	assert.Equal(t, "Carla", stored.Name)
}

func TestLeadSyncerRemovesLeadWhenPipelineFails(t *testing.T) {
	f := newCRMFixture()
	f.pipeline.failHistory = errBoom

	_, err := f.syncer.Apply(context.Background(), entity.Subscriber{ID: "1", Name: "X"})
	require.Error(t, err)
	assert.Empty(t, f.leads.rows)
}
