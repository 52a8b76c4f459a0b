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

type LeadUseCase struct {
	LeadRepo     entity.LeadRepositoryInterface
	PipelineRepo entity.PipelineRepositoryInterface
	Platform     MessagingPlatform
	Now          func() time.Time
	log          *logger.Logger
}

func NewLeadUseCase(
	leadRepo entity.LeadRepositoryInterface,
	pipelineRepo entity.PipelineRepositoryInterface,
	platform MessagingPlatform,
	log *logger.Logger,
) *LeadUseCase {
	if log == nil {
		log = logger.Global()
	}
	return &LeadUseCase{
		LeadRepo:     leadRepo,
		PipelineRepo: pipelineRepo,
		Platform:     platform,
		Now:          time.Now,
		log:          log.Named("leads"),
	}
}

// Create stores a manual lead together with its pipeline record. If the
// pipeline write fails the lead is removed again.
func (uc *LeadUseCase) Create(ctx context.Context, input CreateLeadInput, actor string) (*LeadOutput, error) {
	if errs := ValidateCreateLeadInput(input); len(errs) > 0 {
		return nil, validationFailure(errs)
	}

	phone := NormalizePhone(input.Phone)
	if phone != "" || input.Email != "" {
		dup, err := uc.LeadRepo.CheckDuplicity(ctx, phone, input.Email)
		if err != nil {
			return nil, dbErr("verificar duplicidade", err)
		}
		if dup {
			return nil, invalid("já existe um lead com este telefone ou e-mail")
		}
	}

	lead, err := entity.NewLead(input.Name, phone, strings.TrimSpace(input.Email))
	if err != nil {
		return nil, invalid("%s", err.Error())
	}
	now := uc.Now()
	lead.CreatedAt, lead.UpdatedAt = now, now
	lead.CUIT = input.CUIT
	lead.DNI = input.DNI
	lead.Income = input.Income
	lead.Zone = input.Zone
	lead.DesiredProduct = input.DesiredProduct
	lead.DesiredAmount = input.DesiredAmount
	for _, t := range input.Tags {
		lead.AddTag(t)
	}
	for k, v := range input.CustomFields {
		lead.CustomFields[k] = v
	}
	if input.SubscriberID != "" {
		subID := input.SubscriberID
		lead.SubscriberID = &subID
	}
	if actor == "" {
		actor = SystemActor
	}

	var rec *entity.PipelineRecord
	tx := NewTransaction(uc.log)
	tx.AddOperation("create_lead", func(ctx context.Context) error {
		return uc.LeadRepo.Create(ctx, lead)
	})
	tx.AddCompensation("delete_lead", func(ctx context.Context) error {
		return uc.LeadRepo.Delete(ctx, lead.ID)
	})
	tx.AddOperation("create_pipeline", func(ctx context.Context) error {
		var err error
		rec, _, err = ensurePipeline(ctx, uc.PipelineRepo, lead.ID, actor, now)
		return err
	})
	if err := tx.Execute(ctx); err != nil {
		if errors.Is(err, entity.ErrDuplicate) {
			return nil, invalid("já existe um lead com este telefone ou e-mail")
		}
		return nil, dbErr("criar lead", err)
	}

	uc.log.Info("lead criado", logger.LeadID(lead.ID), zap.String("actor", actor))
	return &LeadOutput{Lead: lead, Pipeline: rec}, nil
}

func (uc *LeadUseCase) Get(ctx context.Context, id string) (*LeadOutput, error) {
	lead, err := uc.find(ctx, id)
	if err != nil {
		return nil, err
	}
	rec, err := uc.PipelineRepo.FindByLeadID(ctx, id)
	if err != nil && !errors.Is(err, entity.ErrPipelineNotFound) {
		return nil, dbErr("buscar pipeline", err)
	}
	return &LeadOutput{Lead: lead, Pipeline: rec}, nil
}

func (uc *LeadUseCase) List(ctx context.Context, filter entity.LeadFilter) ([]*entity.Lead, error) {
	if filter.Limit <= 0 || filter.Limit > 200 {
		filter.Limit = 50
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	if filter.Stage != "" && !filter.Stage.Valid() {
		return nil, invalid("etapa inválida: %q", filter.Stage)
	}
	leads, err := uc.LeadRepo.List(ctx, filter)
	if err != nil {
		return nil, dbErr("listar leads", err)
	}
	return leads, nil
}

func (uc *LeadUseCase) Update(ctx context.Context, id string, input UpdateLeadInput) (*entity.Lead, error) {
	if errs := ValidateUpdateLeadInput(input); len(errs) > 0 {
		return nil, validationFailure(errs)
	}
	lead, err := uc.find(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		lead.Name = strings.TrimSpace(*input.Name)
	}
	if input.Phone != nil {
		lead.Phone = NormalizePhone(*input.Phone)
	}
	if input.Email != nil {
		lead.Email = strings.TrimSpace(*input.Email)
	}
	if input.CUIT != nil {
		lead.CUIT = *input.CUIT
	}
	if input.DNI != nil {
		lead.DNI = *input.DNI
	}
	if input.Income != nil {
		lead.Income = *input.Income
	}
	if input.Zone != nil {
		lead.Zone = *input.Zone
	}
	if input.DesiredProduct != nil {
		lead.DesiredProduct = *input.DesiredProduct
	}
	if input.DesiredAmount != nil {
		lead.DesiredAmount = *input.DesiredAmount
	}
	if input.Status != nil {
		lead.Status = *input.Status
	}
	if err := lead.Validate(); err != nil {
		return nil, invalid("%s", err.Error())
	}

	lead.UpdatedAt = uc.Now()
	if err := uc.LeadRepo.Update(ctx, lead); err != nil {
		return nil, dbErr("atualizar lead", err)
	}
	return lead, nil
}

func (uc *LeadUseCase) AddTag(ctx context.Context, id, tag string) (*entity.Lead, error) {
	return uc.changeTag(ctx, id, tag, true)
}

func (uc *LeadUseCase) RemoveTag(ctx context.Context, id, tag string) (*entity.Lead, error) {
	return uc.changeTag(ctx, id, tag, false)
}

func (uc *LeadUseCase) changeTag(ctx context.Context, id, tag string, add bool) (*entity.Lead, error) {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return nil, invalid("tag vazia")
	}
	lead, err := uc.find(ctx, id)
	if err != nil {
		return nil, err
	}

	var changed bool
	if add {
		changed = lead.AddTag(tag)
	} else {
		changed = lead.RemoveTag(tag)
	}
	if changed {
		lead.UpdatedAt = uc.Now()
		if err := uc.LeadRepo.Update(ctx, lead); err != nil {
			return nil, dbErr("atualizar tags", err)
		}
	}

	if lead.SubscriberID != nil && uc.Platform != nil {
		if add {
			err = uc.Platform.AddTag(ctx, *lead.SubscriberID, tag)
		} else {
			err = uc.Platform.RemoveTag(ctx, *lead.SubscriberID, tag)
		}
		if err != nil {
			uc.log.Warn("falha ao espelhar tag na plataforma", logger.LeadID(id), zap.String("tag", tag), zap.Error(err))
		}
	}
	return lead, nil
}

func (uc *LeadUseCase) SetCustomField(ctx context.Context, id, field, value string) (*entity.Lead, error) {
	field = strings.TrimSpace(field)
	if field == "" {
		return nil, invalid("campo personalizado sem nome")
	}
	lead, err := uc.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if lead.CustomFields == nil {
		lead.CustomFields = map[string]string{}
	}
	lead.CustomFields[field] = value
	lead.UpdatedAt = uc.Now()
	if err := uc.LeadRepo.Update(ctx, lead); err != nil {
		return nil, dbErr("atualizar campo personalizado", err)
	}

	if lead.SubscriberID != nil && uc.Platform != nil {
		if err := uc.Platform.SetCustomField(ctx, *lead.SubscriberID, field, value); err != nil {
			uc.log.Warn("falha ao espelhar campo na plataforma", logger.LeadID(id), zap.String("field", field), zap.Error(err))
		}
	}
	return lead, nil
}

// Delete is the admin cleanup path, the only hard delete of a lead.
func (uc *LeadUseCase) Delete(ctx context.Context, id, actor string) error {
	if _, err := uc.find(ctx, id); err != nil {
		return err
	}
	if err := uc.LeadRepo.Delete(ctx, id); err != nil {
		return dbErr("remover lead", err)
	}
	uc.log.Warn("lead removido", logger.LeadID(id), zap.String("actor", actor))
	return nil
}

func (uc *LeadUseCase) CheckDuplicity(ctx context.Context, phone, email string) (bool, error) {
	dup, err := uc.LeadRepo.CheckDuplicity(ctx, NormalizePhone(phone), strings.TrimSpace(email))
	if err != nil {
		return false, dbErr("verificar duplicidade", err)
	}
	return dup, nil
}

func (uc *LeadUseCase) find(ctx context.Context, id string) (*entity.Lead, error) {
	lead, err := uc.LeadRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, entity.ErrLeadNotFound) {
			return nil, notFound("lead %s não encontrado", id)
		}
		return nil, dbErr("buscar lead", err)
	}
	return lead, nil
}
