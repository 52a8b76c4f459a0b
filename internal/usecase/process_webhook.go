package usecase

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/xavierca1/ligue-crm/internal/entity"
	"github.com/xavierca1/ligue-crm/pkg/logger"
)

type WebhookResult struct {
	EventType      string `json:"event_type"`
	LeadID         string `json:"lead_id,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`
	MessageID      string `json:"message_id,omitempty"`
	Duplicate      bool   `json:"duplicate,omitempty"`
	Ignored        bool   `json:"ignored,omitempty"`
}

type ProcessWebhookUseCase struct {
	Syncer   *LeadSyncer
	LeadRepo entity.LeadRepositoryInterface
	ConvRepo entity.ConversationRepositoryInterface
	MsgRepo  entity.MessageRepositoryInterface
	Platform MessagingPlatform
	Notifier InboxNotifier
	Cache    SubscriberInvalidator
	Now      func() time.Time
	log      *logger.Logger
}

func NewProcessWebhookUseCase(
	syncer *LeadSyncer,
	leadRepo entity.LeadRepositoryInterface,
	convRepo entity.ConversationRepositoryInterface,
	msgRepo entity.MessageRepositoryInterface,
	platform MessagingPlatform,
	notifier InboxNotifier,
	log *logger.Logger,
) *ProcessWebhookUseCase {
	if log == nil {
		log = logger.Global()
	}
	return &ProcessWebhookUseCase{
		Syncer:   syncer,
		LeadRepo: leadRepo,
		ConvRepo: convRepo,
		MsgRepo:  msgRepo,
		Platform: platform,
		Notifier: notifier,
		Now:      time.Now,
		log:      log.Named("webhook"),
	}
}

func (uc *ProcessWebhookUseCase) Execute(ctx context.Context, raw map[string]any) (*WebhookResult, error) {
	ev, err := NormalizeWebhook(raw, uc.Now())
	if err != nil {
		return nil, err
	}

	res := &WebhookResult{EventType: ev.EventType}
	log := uc.log.Ctx(ctx).With(zap.String("event_type", ev.EventType), logger.SubscriberID(ev.Subscriber.ID))

	// every event means the platform copy changed; drop it before any refetch
	if uc.Cache != nil {
		uc.Cache.Invalidate(ctx, ev.Subscriber.ID)
	}

	switch ev.EventType {
	case EventNewSubscriber, EventSubscriberUpdated:
		synced, err := uc.apply(ctx, ev)
		if err != nil {
			return nil, err
		}
		res.LeadID, res.ConversationID = synced.Lead.ID, synced.ConversationID

	case EventMessageReceived, EventMessageSent:
		synced, err := uc.apply(ctx, ev)
		if err != nil {
			return nil, err
		}
		res.LeadID, res.ConversationID = synced.Lead.ID, synced.ConversationID
		if ev.Message == nil {
			log.Warn("evento de mensagem sem corpo")
			return res, nil
		}
		if synced.ConversationID == "" {
			return res, dbErr("mensagem sem conversa de destino", errors.New("reconciliação falhou"))
		}
		msg, dup, err := uc.storeMessage(ctx, synced, ev.Message)
		if err != nil {
			return res, err
		}
		res.Duplicate = dup
		if msg != nil {
			res.MessageID = msg.ID
		}

	case EventTagAdded, EventTagRemoved:
		if err := uc.applyTag(ctx, ev); err != nil {
			return nil, err
		}

	default:
		log.Info("tipo de evento ignorado")
		res.Ignored = true
	}

	return res, nil
}

// apply upserts the lead for the event. Envelopes often carry only the
// subscriber id, in which case the full snapshot is fetched first.
func (uc *ProcessWebhookUseCase) apply(ctx context.Context, ev *WebhookEvent) (*SyncedLead, error) {
	sub := ev.Subscriber
	if sub.ID == "" {
		return nil, invalid("evento sem subscriber")
	}
	if uc.Platform != nil && entity.DetectChannel(sub) == entity.ChannelUnknown {
		full, err := uc.Platform.GetSubscriber(ctx, sub.ID)
		if err != nil {
			uc.log.Warn("snapshot do subscriber indisponível, usando payload", logger.SubscriberID(sub.ID), zap.Error(err))
		} else if full != nil {
			if full.LastInputText == "" {
				full.LastInputText = sub.LastInputText
			}
			sub = *full
		}
	}
	return uc.Syncer.Apply(ctx, sub)
}

func (uc *ProcessWebhookUseCase) storeMessage(ctx context.Context, synced *SyncedLead, in *InboundMessage) (*entity.Message, bool, error) {
	if in.ID != "" {
		existing, err := uc.MsgRepo.FindByExternalID(ctx, in.ID)
		if err != nil && !errors.Is(err, entity.ErrMessageNotFound) {
			return nil, false, dbErr("buscar mensagem", err)
		}
		if existing != nil {
			return existing, true, nil
		}
	}

	msg := entity.NewMessage(synced.ConversationID, in.Direction, in.Text, in.Type, in.Timestamp)
	msg.IsBot = in.IsBot
	if in.ID != "" {
		extID := in.ID
		msg.ExternalID = &extID
	}
	if err := uc.MsgRepo.Create(ctx, msg); err != nil {
		if errors.Is(err, entity.ErrDuplicate) {
			return nil, true, nil
		}
		return nil, false, dbErr("gravar mensagem", err)
	}

	inbound := in.Direction == entity.DirectionInbound
	if err := uc.ConvRepo.Touch(ctx, synced.ConversationID, in.Timestamp, inbound); err != nil {
		uc.log.Warn("falha ao atualizar atividade da conversa", logger.ConversationID(synced.ConversationID), zap.Error(err))
	}

	if uc.Notifier != nil {
		uc.Notifier.Broadcast("inbox.message", map[string]any{
			"conversation_id": synced.ConversationID,
			"lead_id":         synced.Lead.ID,
			"channel":         synced.Channel,
			"message":         msg,
		})
	}
	return msg, false, nil
}

func (uc *ProcessWebhookUseCase) applyTag(ctx context.Context, ev *WebhookEvent) error {
	if ev.Tag == "" {
		return invalid("evento de tag sem nome da tag")
	}
	lead, err := uc.LeadRepo.FindBySubscriberID(ctx, ev.Subscriber.ID)
	if err != nil {
		if !errors.Is(err, entity.ErrLeadNotFound) {
			return dbErr("buscar lead", err)
		}
		synced, err := uc.apply(ctx, ev)
		if err != nil {
			return err
		}
		lead = synced.Lead
	}

	var changed bool
	if ev.EventType == EventTagAdded {
		changed = lead.AddTag(ev.Tag)
	} else {
		changed = lead.RemoveTag(ev.Tag)
	}
	if !changed {
		return nil
	}
	lead.UpdatedAt = uc.Now()
	if err := uc.LeadRepo.Update(ctx, lead); err != nil {
		return dbErr("atualizar tags do lead", err)
	}
	return nil
}
