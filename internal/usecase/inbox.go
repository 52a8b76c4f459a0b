package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xavierca1/ligue-crm/internal/entity"
	"github.com/xavierca1/ligue-crm/pkg/logger"
)

type InboxUseCase struct {
	ConvRepo entity.ConversationRepositoryInterface
	MsgRepo  entity.MessageRepositoryInterface
	LeadRepo entity.LeadRepositoryInterface
	Platform MessagingPlatform
	Notifier InboxNotifier
	Now      func() time.Time
	log      *logger.Logger
}

func NewInboxUseCase(
	convRepo entity.ConversationRepositoryInterface,
	msgRepo entity.MessageRepositoryInterface,
	leadRepo entity.LeadRepositoryInterface,
	platform MessagingPlatform,
	notifier InboxNotifier,
	log *logger.Logger,
) *InboxUseCase {
	if log == nil {
		log = logger.Global()
	}
	return &InboxUseCase{
		ConvRepo: convRepo,
		MsgRepo:  msgRepo,
		LeadRepo: leadRepo,
		Platform: platform,
		Notifier: notifier,
		Now:      time.Now,
		log:      log.Named("inbox"),
	}
}

func (uc *InboxUseCase) ListConversations(ctx context.Context, filter entity.ConversationFilter) ([]*entity.Conversation, error) {
	if filter.Limit <= 0 || filter.Limit > 200 {
		filter.Limit = 50
	}
	if filter.Channel == entity.ChannelUnknown {
		return nil, invalid("canal inválido")
	}
	convs, err := uc.ConvRepo.List(ctx, filter)
	if err != nil {
		return nil, dbErr("listar conversas", err)
	}
	return convs, nil
}

func (uc *InboxUseCase) Messages(ctx context.Context, conversationID string, limit, offset int) ([]*entity.Message, error) {
	if _, err := uc.conversation(ctx, conversationID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	msgs, err := uc.MsgRepo.ListByConversation(ctx, conversationID, limit, offset)
	if err != nil {
		return nil, dbErr("listar mensagens", err)
	}
	return msgs, nil
}

func (uc *InboxUseCase) MarkRead(ctx context.Context, conversationID string) (int, error) {
	conv, err := uc.conversation(ctx, conversationID)
	if err != nil {
		return 0, err
	}
	n, err := uc.MsgRepo.MarkRead(ctx, conv.ID, uc.Now())
	if err != nil {
		return 0, dbErr("marcar mensagens como lidas", err)
	}
	if conv.UnreadCount != 0 {
		conv.UnreadCount = 0
		if err := uc.ConvRepo.Update(ctx, conv); err != nil {
			return 0, dbErr("zerar não lidas", err)
		}
	}
	return n, nil
}

func (uc *InboxUseCase) Assign(ctx context.Context, conversationID, userID, actor string) (*entity.Conversation, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, invalid("user_id é obrigatório")
	}
	conv, err := uc.conversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	conv.AssignedTo = &userID
	conv.Status = entity.ConversationAssigned
	if err := uc.ConvRepo.Update(ctx, conv); err != nil {
		return nil, dbErr("atribuir conversa", err)
	}

	if uc.Notifier != nil {
		uc.Notifier.SendToUser(userID, "inbox.assigned", conv)
	}
	uc.log.Info("conversa atribuída",
		logger.ConversationID(conv.ID),
		zap.String("user_id", userID),
		zap.String("actor", actor),
	)
	return conv, nil
}

func (uc *InboxUseCase) Close(ctx context.Context, conversationID string) (*entity.Conversation, error) {
	conv, err := uc.conversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if conv.Status == entity.ConversationClosed {
		return conv, nil
	}
	conv.Status = entity.ConversationClosed
	if err := uc.ConvRepo.Update(ctx, conv); err != nil {
		return nil, dbErr("encerrar conversa", err)
	}
	if uc.Notifier != nil {
		uc.Notifier.Broadcast("inbox.closed", conv)
	}
	return conv, nil
}

// Send delivers an agent reply through the platform and records it.
func (uc *InboxUseCase) Send(ctx context.Context, input SendMessageInput) (*entity.Message, error) {
	content := strings.TrimSpace(input.Content)
	if content == "" {
		return nil, invalid("mensagem vazia")
	}
	conv, err := uc.conversation(ctx, input.ConversationID)
	if err != nil {
		return nil, err
	}
	if conv.Status == entity.ConversationClosed {
		return nil, invalid("conversa encerrada")
	}
	if conv.LeadID == nil {
		return nil, invalid("conversa sem lead vinculado")
	}

	lead, err := uc.LeadRepo.FindByID(ctx, *conv.LeadID)
	if err != nil {
		if errors.Is(err, entity.ErrLeadNotFound) {
			return nil, notFound("lead %s não encontrado", *conv.LeadID)
		}
		return nil, dbErr("buscar lead", err)
	}
	if lead.SubscriberID == nil {
		return nil, invalid("lead sem subscriber na plataforma")
	}
	subID := *lead.SubscriberID

	ch := conv.Channel
	sub, err := uc.Platform.GetSubscriber(ctx, subID)
	switch {
	case err == nil && sub != nil:
		ch = entity.DetectChannel(*sub)
	case err == nil:
	case ch == entity.ChannelUnknown:
		return nil, externalErr("plataforma de mensagens", err)
	default:
		uc.log.Warn("canal do subscriber indisponível, usando canal da conversa",
			logger.SubscriberID(subID), zap.Error(err))
	}

	extID, err := uc.Platform.SendText(ctx, subID, ch, content)
	if err != nil {
		return nil, externalErr("plataforma de mensagens", err)
	}

	now := uc.Now()
	if extID == "" {
		extID = outboundMessageID(subID, now)
	}
	msg := entity.NewMessage(conv.ID, entity.DirectionOutbound, content, entity.MessageText, now)
	msg.ExternalID = &extID
	if err := uc.MsgRepo.Create(ctx, msg); err != nil {
		return nil, dbErr("gravar mensagem enviada", err)
	}
	if err := uc.ConvRepo.Touch(ctx, conv.ID, now, false); err != nil {
		uc.log.Warn("falha ao atualizar atividade da conversa", logger.ConversationID(conv.ID), zap.Error(err))
	}

	if uc.Notifier != nil {
		uc.Notifier.Broadcast("inbox.message", map[string]any{
			"conversation_id": conv.ID,
			"lead_id":         lead.ID,
			"channel":         ch,
			"message":         msg,
		})
	}
	uc.log.Ctx(ctx).Info("mensagem enviada",
		logger.ConversationID(conv.ID),
		zap.String("channel", string(ch)),
		zap.String("actor", input.Actor),
	)
	return msg, nil
}

func (uc *InboxUseCase) conversation(ctx context.Context, id string) (*entity.Conversation, error) {
	conv, err := uc.ConvRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, entity.ErrConversationNotFound) {
			return nil, notFound("conversa %s não encontrada", id)
		}
		return nil, dbErr("buscar conversa", err)
	}
	return conv, nil
}
