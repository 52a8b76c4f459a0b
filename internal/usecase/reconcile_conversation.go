package usecase

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/xavierca1/ligue-crm/internal/entity"
	"github.com/xavierca1/ligue-crm/pkg/logger"
)

// ConversationReconciler keeps a lead down to a single conversation across
// channels. It takes no locks: two concurrent deliveries for the same lead can
// still produce a duplicate, which the sweeper collapses later.
type ConversationReconciler struct {
	ConvRepo entity.ConversationRepositoryInterface
	MsgRepo  entity.MessageRepositoryInterface
	log      *logger.Logger
}

func NewConversationReconciler(
	convRepo entity.ConversationRepositoryInterface,
	msgRepo entity.MessageRepositoryInterface,
	log *logger.Logger,
) *ConversationReconciler {
	if log == nil {
		log = logger.Global()
	}
	return &ConversationReconciler{
		ConvRepo: convRepo,
		MsgRepo:  msgRepo,
		log:      log.Named("reconciler"),
	}
}

// Reconcile returns the id of the conversation that should receive traffic
// for lead on (ch, platformID), creating or merging rows as needed.
func (r *ConversationReconciler) Reconcile(ctx context.Context, lead *entity.Lead, ch entity.Channel, platformID string) (string, error) {
	if lead == nil || lead.ID == "" {
		return "", invalid("lead obrigatório para reconciliar conversa")
	}
	if platformID == "" {
		return "", invalid("platform_id obrigatório para reconciliar conversa")
	}

	log := r.log.With(
		logger.LeadID(lead.ID),
		zap.String("channel", string(ch)),
		zap.String("platform_id", platformID),
	)

	found, err := r.ConvRepo.FindByChannelAndPlatformID(ctx, ch, platformID)
	if err != nil && !errors.Is(err, entity.ErrConversationNotFound) {
		log.Error("falha ao buscar conversa", zap.Error(err))
		return "", dbErr("buscar conversa", err)
	}

	leadConvs, err := r.ConvRepo.FindByLeadID(ctx, lead.ID)
	if err != nil {
		log.Error("falha ao listar conversas do lead", zap.Error(err))
		return "", dbErr("listar conversas do lead", err)
	}

	if found == nil {
		if len(leadConvs) > 0 {
			adopted := mostRecent(leadConvs)
			log.Debug("conversa existente adotada", logger.ConversationID(adopted.ID))
			return adopted.ID, nil
		}

		conv := entity.NewConversation(lead.ID, ch, platformID)
		err := r.ConvRepo.Create(ctx, conv)
		if err == nil {
			log.Info("conversa criada", logger.ConversationID(conv.ID))
			return conv.ID, nil
		}
		if !errors.Is(err, entity.ErrDuplicate) {
			log.Error("falha ao criar conversa", zap.Error(err))
			return "", dbErr("criar conversa", err)
		}

		// another delivery created (channel, platform_id) between lookup and insert
		found, err = r.ConvRepo.FindByChannelAndPlatformID(ctx, ch, platformID)
		if err != nil {
			log.Error("conversa concorrente não encontrada", zap.Error(err))
			return "", dbErr("buscar conversa concorrente", err)
		}
		log.Info("conversa criada por entrega concorrente", logger.ConversationID(found.ID))
	}

	if found.LeadID == nil {
		found.LeadID = &lead.ID
		if err := r.ConvRepo.Update(ctx, found); err != nil {
			log.Error("falha ao vincular conversa ao lead", zap.Error(err))
			return "", dbErr("vincular conversa", err)
		}
	} else if *found.LeadID != lead.ID {
		log.Warn("conversa pertence a outro lead, sem merge",
			logger.ConversationID(found.ID),
			zap.String("owner_lead_id", *found.LeadID),
		)
		return found.ID, nil
	}

	survivor := found
	for _, other := range leadConvs {
		if other.ID == survivor.ID || other.Channel == found.Channel {
			continue
		}
		survivor, err = r.merge(ctx, survivor, other)
		if err != nil {
			log.Error("merge de conversas abandonado", zap.Error(err))
			return "", err
		}
	}
	return survivor.ID, nil
}

// Collapse merges every conversation of a lead into one and returns the
// survivor id. Used by the duplicate sweeper.
func (r *ConversationReconciler) Collapse(ctx context.Context, leadID string) (string, error) {
	convs, err := r.ConvRepo.FindByLeadID(ctx, leadID)
	if err != nil {
		return "", dbErr("listar conversas do lead", err)
	}
	if len(convs) == 0 {
		return "", notFound("lead %s sem conversas", leadID)
	}

	survivor := convs[0]
	for _, other := range convs[1:] {
		survivor, err = r.merge(ctx, survivor, other)
		if err != nil {
			r.log.Error("colapso abandonado", logger.LeadID(leadID), zap.Error(err))
			return "", err
		}
	}
	return survivor.ID, nil
}

// merge keeps the conversation with more messages (ties go to the most
// recent activity), moves the loser's messages over and deletes it.
func (r *ConversationReconciler) merge(ctx context.Context, a, b *entity.Conversation) (*entity.Conversation, error) {
	countA, err := r.MsgRepo.CountByConversation(ctx, a.ID)
	if err != nil {
		return nil, dbErr("contar mensagens", err)
	}
	countB, err := r.MsgRepo.CountByConversation(ctx, b.ID)
	if err != nil {
		return nil, dbErr("contar mensagens", err)
	}

	survivor, loser := a, b
	if countB > countA || (countB == countA && b.LastActivityAt.After(a.LastActivityAt)) {
		survivor, loser = b, a
	}

	moved, err := r.MsgRepo.Reassign(ctx, loser.ID, survivor.ID)
	if err != nil {
		return nil, dbErr("mover mensagens", err)
	}

	if survivor.LeadID == nil && loser.LeadID != nil {
		leadID := *loser.LeadID
		survivor.LeadID = &leadID
	}
	if loser.LastActivityAt.After(survivor.LastActivityAt) {
		survivor.LastActivityAt = loser.LastActivityAt
	}
	survivor.UnreadCount += loser.UnreadCount

	if err := r.ConvRepo.Update(ctx, survivor); err != nil {
		return nil, dbErr("atualizar conversa sobrevivente", err)
	}
	if err := r.ConvRepo.Delete(ctx, loser.ID); err != nil {
		return nil, dbErr("remover conversa duplicada", err)
	}

	r.log.Info("conversas mescladas",
		zap.String("survivor_id", survivor.ID),
		zap.String("survivor_channel", string(survivor.Channel)),
		zap.String("removed_id", loser.ID),
		zap.String("removed_channel", string(loser.Channel)),
		zap.Int("messages_moved", moved),
	)
	return survivor, nil
}

func mostRecent(convs []*entity.Conversation) *entity.Conversation {
	latest := convs[0]
	for _, c := range convs[1:] {
		if c.LastActivityAt.After(latest.LastActivityAt) {
			latest = c
		}
	}
	return latest
}
