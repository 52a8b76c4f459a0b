package usecase

import (
	"context"

	"go.uber.org/zap"

	"github.com/xavierca1/ligue-crm/internal/entity"
	"github.com/xavierca1/ligue-crm/internal/infra/queue"
	"github.com/xavierca1/ligue-crm/pkg/logger"
)

const StageCustomField = "etapa_pipeline"

// StageAutomationUseCase consumes stage-entered events: mirrors the stage on
// the platform and tells the responsible agent when a deal is won.
type StageAutomationUseCase struct {
	Platform       MessagingPlatform
	ConvRepo       entity.ConversationRepositoryInterface
	UserRepo       entity.UserRepositoryInterface
	Email          EmailService
	FallbackEmails []string
	log            *logger.Logger
}

func NewStageAutomationUseCase(
	platform MessagingPlatform,
	convRepo entity.ConversationRepositoryInterface,
	userRepo entity.UserRepositoryInterface,
	email EmailService,
	fallbackEmails []string,
	log *logger.Logger,
) *StageAutomationUseCase {
	if log == nil {
		log = logger.Global()
	}
	return &StageAutomationUseCase{
		Platform:       platform,
		ConvRepo:       convRepo,
		UserRepo:       userRepo,
		Email:          email,
		FallbackEmails: fallbackEmails,
		log:            log.Named("automation"),
	}
}

var _ queue.AutomationHandler = (*StageAutomationUseCase)(nil)

func (uc *StageAutomationUseCase) HandleStageEntered(ctx context.Context, p queue.StageEnteredPayload) error {
	log := uc.log.With(logger.LeadID(p.LeadID), zap.String("stage", p.ToStage))

	if p.SubscriberID != "" && uc.Platform != nil {
		if err := uc.Platform.SetCustomField(ctx, p.SubscriberID, StageCustomField, p.ToStage); err != nil {
			log.Error("falha ao gravar etapa na plataforma", zap.Error(err))
			return externalErr("plataforma de mensagens", err)
		}
	}

	if entity.Stage(p.ToStage) == entity.StageWon && uc.Email != nil {
		for _, to := range uc.recipients(ctx, p.LeadID) {
			if err := uc.Email.SendDealWon(to, p.LeadName, p.Amount); err != nil {
				log.Warn("falha ao enviar e-mail de venda ganha", zap.String("to", to), zap.Error(err))
			}
		}
	}

	log.Info("automação de etapa executada")
	return nil
}

// recipients resolves the agents assigned to the lead's conversations,
// falling back to the configured addresses.
func (uc *StageAutomationUseCase) recipients(ctx context.Context, leadID string) []string {
	var out []string
	seen := map[string]bool{}

	if uc.ConvRepo != nil && uc.UserRepo != nil {
		convs, err := uc.ConvRepo.FindByLeadID(ctx, leadID)
		if err != nil {
			uc.log.Warn("falha ao buscar conversas do lead", logger.LeadID(leadID), zap.Error(err))
		}
		for _, c := range convs {
			if c.AssignedTo == nil || seen[*c.AssignedTo] {
				continue
			}
			seen[*c.AssignedTo] = true
			user, err := uc.UserRepo.FindByID(ctx, *c.AssignedTo)
			if err != nil {
				continue
			}
			out = append(out, user.Email)
		}
	}

	if len(out) == 0 {
		out = append(out, uc.FallbackEmails...)
	}
	return out
}
