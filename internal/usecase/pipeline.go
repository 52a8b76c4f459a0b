package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/xavierca1/ligue-crm/internal/entity"
)

const SystemActor = "system"

// ensurePipeline returns the lead's pipeline record, creating it at the
// initial stage (with its opening history entry) when missing.
func ensurePipeline(ctx context.Context, repo entity.PipelineRepositoryInterface, leadID, actor string, now time.Time) (*entity.PipelineRecord, bool, error) {
	rec, err := repo.FindByLeadID(ctx, leadID)
	if err == nil {
		return rec, false, nil
	}
	if !errors.Is(err, entity.ErrPipelineNotFound) {
		return nil, false, dbErr("buscar pipeline", err)
	}

	rec = entity.NewPipelineRecord(leadID, now)
	if err := repo.Create(ctx, rec); err != nil {
		return nil, false, dbErr("criar pipeline", err)
	}
	if err := repo.AppendHistory(ctx, &entity.PipelineHistoryEntry{
		ID:        uuid.New().String(),
		LeadID:    leadID,
		ToStage:   rec.Stage,
		Type:      entity.TransitionAutomatic,
		Actor:     actor,
		CreatedAt: now,
	}); err != nil {
		return nil, false, dbErr("registrar histórico inicial", err)
	}
	return rec, true, nil
}

// checkTransition applies the movement rules. Hard violations are errors,
// soft ones come back as warnings.
func checkTransition(from, to entity.Stage) ([]string, error) {
	if from == to {
		return nil, &DomainError{Code: CodeSameStage, Message: fmt.Sprintf("lead já está na etapa %s", to)}
	}

	if from == entity.StageNew && (to == entity.StageProposal || to == entity.StageNegotiation) {
		return nil, &DomainError{
			Code:    CodeTransitionNotAllowed,
			Message: fmt.Sprintf("transição %s → %s não permitida", from, to),
		}
	}

	warnings := []string{}
	fromOrder, toOrder := from.Order(), to.Order()
	if !to.Terminal() && toOrder-fromOrder > 1 {
		warnings = append(warnings, fmt.Sprintf("movimento pula %d etapa(s) entre %s e %s", toOrder-fromOrder-1, from, to))
	}
	if toOrder < fromOrder {
		warnings = append(warnings, fmt.Sprintf("movimento retrocede de %s para %s", from, to))
	}
	return warnings, nil
}

type PipelineQueryUseCase struct {
	LeadRepo     entity.LeadRepositoryInterface
	PipelineRepo entity.PipelineRepositoryInterface
}

func NewPipelineQueryUseCase(leadRepo entity.LeadRepositoryInterface, pipelineRepo entity.PipelineRepositoryInterface) *PipelineQueryUseCase {
	return &PipelineQueryUseCase{LeadRepo: leadRepo, PipelineRepo: pipelineRepo}
}

func (uc *PipelineQueryUseCase) History(ctx context.Context, leadID string) ([]*entity.PipelineHistoryEntry, error) {
	if _, err := uc.LeadRepo.FindByID(ctx, leadID); err != nil {
		if errors.Is(err, entity.ErrLeadNotFound) {
			return nil, notFound("lead %s não encontrado", leadID)
		}
		return nil, dbErr("buscar lead", err)
	}
	entries, err := uc.PipelineRepo.History(ctx, leadID)
	if err != nil {
		return nil, dbErr("listar histórico", err)
	}
	return entries, nil
}

// Report returns one row per stage, in board order, including empty stages.
func (uc *PipelineQueryUseCase) Report(ctx context.Context) ([]entity.StageSummary, error) {
	rows, err := uc.PipelineRepo.Summary(ctx)
	if err != nil {
		return nil, dbErr("resumo do pipeline", err)
	}

	byStage := make(map[entity.Stage]entity.StageSummary, len(rows))
	for _, r := range rows {
		byStage[r.Stage] = r
	}

	out := make([]entity.StageSummary, 0, len(entity.AllStages()))
	for _, st := range entity.AllStages() {
		row, ok := byStage[st]
		if !ok {
			row = entity.StageSummary{Stage: st}
		}
		row.WeightedAmount = row.TotalAmount * float64(st.Probability()) / 100
		out = append(out, row)
	}
	return out, nil
}
