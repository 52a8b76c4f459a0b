package usecase

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xavierca1/ligue-crm/internal/entity"
)

var fixedNow = time.Date(2024, 5, 10, 14, 30, 0, 0, time.UTC)

func decode(t *testing.T, body string) map[string]any {
	t.Helper()
	var raw map[string]any
	dec := json.NewDecoder(strings.NewReader(body))
	dec.UseNumber()
	require.NoError(t, dec.Decode(&raw))
	return raw
}

func TestNormalizeSnapshotWithLastInput(t *testing.T) {
	ev, err := NormalizeWebhook(decode(t, `{"id":123,"last_input_text":"hola"}`), fixedNow)
	require.NoError(t, err)

	assert.Equal(t, EventMessageReceived, ev.EventType)
	assert.True(t, ev.Synthesized)
	assert.Equal(t, "123", ev.Subscriber.ID)
	require.NotNil(t, ev.Message)
	assert.Equal(t, "hola", ev.Message.Text)
	assert.Equal(t, "123_1715351400000", ev.Message.ID)
	assert.Equal(t, entity.DirectionInbound, ev.Message.Direction)
}

func TestNormalizeSnapshotFloatID(t *testing.T) {
	raw := map[string]any{"id": float64(987654321), "last_input_text": "oi"}
	ev, err := NormalizeWebhook(raw, fixedNow)
	require.NoError(t, err)
	assert.Equal(t, "987654321", ev.Subscriber.ID)
}

func TestNormalizeSnapshotSynthesizedTypes(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{
			name: "subscribed without interaction",
			body: `{"id":"1","first_name":"Ana","subscribed":"2024-05-01T10:00:00Z"}`,
			want: EventNewSubscriber,
		},
		{
			name: "subscribed with interaction",
			body: `{"id":"1","first_name":"Ana","subscribed":"2024-05-01T10:00:00Z","last_interaction":"2024-05-02T10:00:00Z"}`,
			want: EventSubscriberUpdated,
		},
		{
			name: "bare contact",
			body: `{"first_name":"Ana"}`,
			want: EventSubscriberUpdated,
		},
		{
			name: "blank last input",
			body: `{"id":"1","last_input_text":"   "}`,
			want: EventSubscriberUpdated,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ev, err := NormalizeWebhook(decode(t, tc.body), fixedNow)
			require.NoError(t, err)
			assert.Equal(t, tc.want, ev.EventType)
			assert.Nil(t, ev.Message)
		})
	}
}

func TestNormalizeSnapshotKeyFallback(t *testing.T) {
	ev, err := NormalizeWebhook(decode(t, `{"key":"user:77","phone":"+5491155556789"}`), fixedNow)
	require.NoError(t, err)
	assert.Equal(t, "77", ev.Subscriber.ID)
	assert.Equal(t, entity.ChannelWhatsApp, entity.DetectChannel(ev.Subscriber))
}

func TestNormalizeMissingEventType(t *testing.T) {
	for _, body := range []string{`{}`, `{"foo":"bar"}`, `{"id":""}`} {
		_, err := NormalizeWebhook(decode(t, body), fixedNow)
		assert.True(t, HasCode(err, CodeMissingEventType), body)
	}

	_, err := NormalizeWebhook(nil, fixedNow)
	assert.True(t, HasCode(err, CodeMissingEventType))
}

func TestNormalizeEnvelope(t *testing.T) {
	body := `{
		"event_type": "message_received",
		"subscriber": {
			"id": "9",
			"name": "Lucía",
			"ig_id": "1789",
			"ig_username": "lucia",
			"tags": [{"id": 1, "name": "vip"}, "promo"],
			"custom_fields": [{"id": 2, "name": "zona", "value": "CABA"}, {"id": 3, "name": "vazio", "value": null}]
		},
		"message": {"id": "mid.1", "text": "quiero info", "type": "image", "timestamp": 1715350000}
	}`
	ev, err := NormalizeWebhook(decode(t, body), fixedNow)
	require.NoError(t, err)

	assert.Equal(t, EventMessageReceived, ev.EventType)
	assert.False(t, ev.Synthesized)
	assert.Equal(t, "9", ev.Subscriber.ID)
	assert.Equal(t, []string{"vip", "promo"}, ev.Subscriber.Tags)
	assert.Equal(t, map[string]string{"zona": "CABA"}, ev.Subscriber.CustomFields)
	assert.Equal(t, entity.ChannelInstagram, entity.DetectChannel(ev.Subscriber))

	require.NotNil(t, ev.Message)
	assert.Equal(t, "mid.1", ev.Message.ID)
	assert.Equal(t, entity.MessageImage, ev.Message.Type)
	assert.Equal(t, time.Unix(1715350000, 0), ev.Message.Timestamp)
}

func TestNormalizeEnvelopeTypeAlias(t *testing.T) {
	ev, err := NormalizeWebhook(decode(t, `{"type":"Tag_Added","subscriber_id":"5","tag":{"name":"vip"}}`), fixedNow)
	require.NoError(t, err)
	assert.Equal(t, EventTagAdded, ev.EventType)
	assert.Equal(t, "5", ev.Subscriber.ID)
	assert.Equal(t, "vip", ev.Tag)
}

func TestNormalizeEnvelopeOutboundWithoutID(t *testing.T) {
	ev, err := NormalizeWebhook(decode(t, `{"event_type":"message_sent","subscriber":{"id":"5"},"message":{"text":"hola!"}}`), fixedNow)
	require.NoError(t, err)
	require.NotNil(t, ev.Message)
	assert.Equal(t, entity.DirectionOutbound, ev.Message.Direction)
	assert.True(t, ev.Message.IsBot)
	assert.Equal(t, "5_1715351400000", ev.Message.ID)
	assert.Equal(t, fixedNow, ev.Message.Timestamp)
}
