package manychat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xavierca1/ligue-crm/internal/entity"
	"github.com/xavierca1/ligue-crm/pkg/logger"
)

const statusSuccess = "success"

type Client struct {
	apiToken   string
	baseURL    string
	httpClient *http.Client
	log        *logger.Logger
}

func NewClient(apiToken, baseURL string, timeout time.Duration, log *logger.Logger) *Client {
	if log == nil {
		log = logger.Global()
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		apiToken:   apiToken,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		log:        log.Named("manychat"),
	}
}

func (c *Client) GetSubscriber(ctx context.Context, subscriberID string) (*entity.Subscriber, error) {
	q := url.Values{"subscriber_id": {subscriberID}}
	var sub SubscriberResponse
	if err := c.get(ctx, "/fb/subscriber/getInfo", q, &sub); err != nil {
		return nil, fmt.Errorf("erro ao buscar subscriber %s: %w", subscriberID, err)
	}
	if sub.ID.String() == "" {
		return nil, entity.ErrSubscriberNotFound
	}
	return sub.ToEntity(), nil
}

// FindSubscriberByPhone looks the contact up by its phone system field.
func (c *Client) FindSubscriberByPhone(ctx context.Context, phone string) (*entity.Subscriber, error) {
	q := url.Values{"phone": {phone}}
	var raw json.RawMessage
	if err := c.get(ctx, "/fb/subscriber/findBySystemField", q, &raw); err != nil {
		return nil, fmt.Errorf("erro ao buscar subscriber por telefone: %w", err)
	}

	// the endpoint answers either a single object or a list
	var subs []SubscriberResponse
	if err := json.Unmarshal(raw, &subs); err != nil {
		var one SubscriberResponse
		if err := json.Unmarshal(raw, &one); err != nil {
			return nil, fmt.Errorf("resposta inválida do manychat: %w", err)
		}
		subs = []SubscriberResponse{one}
	}
	for _, s := range subs {
		if s.ID.String() != "" {
			return s.ToEntity(), nil
		}
	}
	return nil, entity.ErrSubscriberNotFound
}

func (c *Client) AddTag(ctx context.Context, subscriberID, tag string) error {
	body := tagRequest{SubscriberID: subscriberID, TagName: tag}
	if err := c.post(ctx, "/fb/subscriber/addTagByName", body, nil); err != nil {
		return fmt.Errorf("erro ao adicionar tag %s: %w", tag, err)
	}
	return nil
}

func (c *Client) RemoveTag(ctx context.Context, subscriberID, tag string) error {
	body := tagRequest{SubscriberID: subscriberID, TagName: tag}
	if err := c.post(ctx, "/fb/subscriber/removeTagByName", body, nil); err != nil {
		return fmt.Errorf("erro ao remover tag %s: %w", tag, err)
	}
	return nil
}

func (c *Client) SetCustomField(ctx context.Context, subscriberID, field, value string) error {
	body := customFieldRequest{SubscriberID: subscriberID, FieldName: field, FieldValue: value}
	if err := c.post(ctx, "/fb/subscriber/setCustomFieldByName", body, nil); err != nil {
		return fmt.Errorf("erro ao definir campo %s: %w", field, err)
	}
	return nil
}

// SendText sends a plain text message using the content variant of the
// channel. The platform rarely returns a message id; an empty id is not an error.
func (c *Client) SendText(ctx context.Context, subscriberID string, ch entity.Channel, text string) (string, error) {
	body := sendContentRequest{
		SubscriberID: subscriberID,
		Data: sendContent{
			Version: "v2",
			Content: contentBody{
				Type:     contentType(ch),
				Messages: []textMessage{{Type: "text", Text: text}},
			},
		},
	}
	if ch == entity.ChannelFacebook {
		body.MessageTag = "ACCOUNT_UPDATE"
	}

	var out sendResponse
	if err := c.post(ctx, "/fb/sending/sendContent", body, &out); err != nil {
		return "", fmt.Errorf("erro ao enviar mensagem via %s: %w", ch, err)
	}
	if out.MessageID != "" {
		return out.MessageID, nil
	}
	return out.MID, nil
}

func contentType(ch entity.Channel) string {
	switch ch {
	case entity.ChannelWhatsApp:
		return "whatsapp"
	case entity.ChannelInstagram:
		return "instagram"
	default:
		return ""
	}
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewBuffer(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	if c.apiToken == "" {
		c.log.Warn("ManyChat: API token não configurado")
		return fmt.Errorf("manychat não configurado")
	}
	c.addAuthHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	var env envelope
	_ = json.Unmarshal(body, &env)

	if resp.StatusCode != http.StatusOK || (env.Status != "" && env.Status != statusSuccess) {
		if isNotFound(resp.StatusCode, env.Message) {
			return entity.ErrSubscriberNotFound
		}
		c.log.Warn("ManyChat respondeu com erro",
			zap.String("path", req.URL.Path),
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(body)),
		)
		return fmt.Errorf("manychat: %d - %s", resp.StatusCode, string(body))
	}

	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("resposta inválida do manychat: %w", err)
	}
	return nil
}

func isNotFound(status int, msg string) bool {
	if status == http.StatusNotFound {
		return true
	}
	m := strings.ToLower(msg)
	return strings.Contains(m, "not found") || strings.Contains(m, "does not exist")
}

func (c *Client) addAuthHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.apiToken)
	req.Header.Set("Accept", "application/json")
}
