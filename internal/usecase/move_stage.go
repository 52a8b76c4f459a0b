package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xavierca1/ligue-crm/internal/entity"
	"github.com/xavierca1/ligue-crm/internal/infra/queue"
	"github.com/xavierca1/ligue-crm/pkg/logger"
)

type MoveStageUseCase struct {
	LeadRepo     entity.LeadRepositoryInterface
	PipelineRepo entity.PipelineRepositoryInterface
	Platform     MessagingPlatform
	Queue        QueueProducerInterface
	Notifier     InboxNotifier
	Now          func() time.Time
	log          *logger.Logger
}

func NewMoveStageUseCase(
	leadRepo entity.LeadRepositoryInterface,
	pipelineRepo entity.PipelineRepositoryInterface,
	platform MessagingPlatform,
	producer QueueProducerInterface,
	notifier InboxNotifier,
	log *logger.Logger,
) *MoveStageUseCase {
	if log == nil {
		log = logger.Global()
	}
	return &MoveStageUseCase{
		LeadRepo:     leadRepo,
		PipelineRepo: pipelineRepo,
		Platform:     platform,
		Queue:        producer,
		Notifier:     notifier,
		Now:          time.Now,
		log:          log.Named("pipeline"),
	}
}

func (uc *MoveStageUseCase) Execute(ctx context.Context, input MoveStageInput) (*MoveStageOutput, error) {
	if input.LeadID == "" {
		return nil, invalid("lead_id é obrigatório")
	}
	if !input.ToStage.Valid() {
		return nil, invalid("etapa de destino inválida: %q", input.ToStage)
	}
	if input.FromStage != "" && !input.FromStage.Valid() {
		return nil, invalid("etapa de origem inválida: %q", input.FromStage)
	}
	if input.FromStage != "" && input.FromStage == input.ToStage {
		_, err := checkTransition(input.FromStage, input.ToStage)
		return nil, err
	}
	if input.Actor == "" {
		input.Actor = SystemActor
	}
	if input.Type == "" {
		input.Type = entity.TransitionManual
	}

	lead, err := uc.LeadRepo.FindByID(ctx, input.LeadID)
	if err != nil {
		if errors.Is(err, entity.ErrLeadNotFound) {
			return nil, notFound("lead %s não encontrado", input.LeadID)
		}
		return nil, dbErr("buscar lead", err)
	}

	now := uc.Now()
	rec, err := uc.PipelineRepo.FindByLeadID(ctx, lead.ID)
	missing := errors.Is(err, entity.ErrPipelineNotFound)
	if err != nil && !missing {
		return nil, dbErr("buscar pipeline", err)
	}

	from := entity.InitialStage
	if !missing {
		from = rec.Stage
	}
	if input.FromStage != "" && input.FromStage != from {
		return nil, invalid("etapa de origem desatualizada: lead está em %s", from)
	}

	// rules are checked before a missing record is opened
	warnings, err := checkTransition(from, input.ToStage)
	if err != nil {
		return nil, err
	}

	if missing {
		if rec, _, err = ensurePipeline(ctx, uc.PipelineRepo, lead.ID, input.Actor, now); err != nil {
			return nil, err
		}
		from = rec.Stage
	}

	previous := *rec
	rec.Stage = input.ToStage
	rec.Probability = input.ToStage.Probability()
	rec.StageEnteredAt = now
	rec.UpdatedAt = now

	entry := &entity.PipelineHistoryEntry{
		ID:              uuid.New().String(),
		LeadID:          lead.ID,
		FromStage:       &from,
		ToStage:         input.ToStage,
		Type:            input.Type,
		Actor:           input.Actor,
		DurationSeconds: int64(now.Sub(previous.StageEnteredAt).Seconds()),
		CreatedAt:       now,
	}
	if input.Reason != "" {
		reason := input.Reason
		entry.Reason = &reason
	}

	tx := NewTransaction(uc.log)
	tx.AddOperation("update_stage", func(ctx context.Context) error {
		return uc.PipelineRepo.UpdateStage(ctx, rec)
	})
	tx.AddCompensation("restore_stage", func(ctx context.Context) error {
		return uc.PipelineRepo.UpdateStage(ctx, &previous)
	})
	tx.AddOperation("append_history", func(ctx context.Context) error {
		return uc.PipelineRepo.AppendHistory(ctx, entry)
	})
	if err := tx.Execute(ctx); err != nil {
		*rec = previous
		return nil, dbErr("mover etapa", err)
	}

	uc.retag(ctx, lead, from, input.ToStage)
	uc.publish(ctx, lead, from, input, now)

	out := &MoveStageOutput{Pipeline: rec, History: entry, Warnings: warnings}
	if uc.Notifier != nil {
		uc.Notifier.Broadcast("pipeline.stage_changed", out)
	}

	uc.log.Ctx(ctx).Info("etapa alterada",
		logger.LeadID(lead.ID),
		zap.String("from", string(from)),
		zap.String("to", string(input.ToStage)),
		zap.String("actor", input.Actor),
		zap.Strings("warnings", warnings),
	)
	return out, nil
}

// retag is best-effort: a failure here never undoes the move.
func (uc *MoveStageUseCase) retag(ctx context.Context, lead *entity.Lead, from, to entity.Stage) {
	lead.RemoveTag(from.Tag())
	lead.AddTag(to.Tag())
	switch to {
	case entity.StageWon:
		lead.Status = entity.LeadStatusConverted
	case entity.StageLost:
		lead.Status = entity.LeadStatusLost
	default:
		if lead.Status == entity.LeadStatusNew && to != entity.StageNew {
			lead.Status = entity.LeadStatusActive
		}
	}
	lead.UpdatedAt = uc.Now()

	if err := uc.LeadRepo.Update(ctx, lead); err != nil {
		uc.log.Warn("falha ao atualizar tags locais", logger.LeadID(lead.ID), zap.Error(err))
	}

	if lead.SubscriberID == nil || uc.Platform == nil {
		return
	}
	subID := *lead.SubscriberID
	if err := uc.Platform.RemoveTag(ctx, subID, from.Tag()); err != nil {
		uc.log.Warn("falha ao remover tag na plataforma", logger.SubscriberID(subID), zap.Error(err))
	}
	if err := uc.Platform.AddTag(ctx, subID, to.Tag()); err != nil {
		uc.log.Warn("falha ao aplicar tag na plataforma", logger.SubscriberID(subID), zap.Error(err))
	}
}

func (uc *MoveStageUseCase) publish(ctx context.Context, lead *entity.Lead, from entity.Stage, input MoveStageInput, at time.Time) {
	if uc.Queue == nil {
		return
	}
	payload := queue.StageEnteredPayload{
		LeadID:    lead.ID,
		LeadName:  lead.Name,
		FromStage: string(from),
		ToStage:   string(input.ToStage),
		Actor:     input.Actor,
		Amount:    lead.DesiredAmount,
		EnteredAt: at,
	}
	if lead.SubscriberID != nil {
		payload.SubscriberID = *lead.SubscriberID
	}
	if err := uc.Queue.PublishStageEntered(ctx, payload); err != nil {
		uc.log.Warn("falha ao publicar automação de etapa", logger.LeadID(lead.ID), zap.Error(err))
	}
}
