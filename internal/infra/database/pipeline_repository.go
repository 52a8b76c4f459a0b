package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/xavierca1/ligue-crm/internal/entity"
)

type PipelineRepository struct {
	DB *sql.DB
}

func NewPipelineRepository(db *sql.DB) *PipelineRepository {
	return &PipelineRepository{DB: db}
}

func (r *PipelineRepository) Create(ctx context.Context, rec *entity.PipelineRecord) error {
	query := `
		INSERT INTO pipeline (lead_id, stage, probability, stage_entered_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.DB.ExecContext(ctx, query, rec.LeadID, rec.Stage, rec.Probability, rec.StageEnteredAt, rec.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return entity.ErrDuplicate
		}
		return fmt.Errorf("erro ao criar pipeline: %w", err)
	}
	return nil
}

func (r *PipelineRepository) FindByLeadID(ctx context.Context, leadID string) (*entity.PipelineRecord, error) {
	var rec entity.PipelineRecord
	err := r.DB.QueryRowContext(ctx,
		`SELECT lead_id, stage, probability, stage_entered_at, updated_at FROM pipeline WHERE lead_id = $1`,
		leadID,
	).Scan(&rec.LeadID, &rec.Stage, &rec.Probability, &rec.StageEnteredAt, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, entity.ErrPipelineNotFound
		}
		return nil, fmt.Errorf("erro ao buscar pipeline: %w", err)
	}
	return &rec, nil
}

func (r *PipelineRepository) UpdateStage(ctx context.Context, rec *entity.PipelineRecord) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE pipeline SET stage = $2, probability = $3, stage_entered_at = $4, updated_at = $5 WHERE lead_id = $1`,
		rec.LeadID, rec.Stage, rec.Probability, rec.StageEnteredAt, rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("erro ao atualizar etapa: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return entity.ErrPipelineNotFound
	}
	return nil
}

func (r *PipelineRepository) AppendHistory(ctx context.Context, e *entity.PipelineHistoryEntry) error {
	var from *string
	if e.FromStage != nil {
		s := string(*e.FromStage)
		from = &s
	}
	query := `
		INSERT INTO pipeline_history (id, lead_id, from_stage, to_stage, transition_type, reason, actor, duration_seconds, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.DB.ExecContext(ctx, query,
		e.ID, e.LeadID, from, e.ToStage, e.Type, e.Reason, e.Actor, e.DurationSeconds, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("erro ao gravar histórico: %w", err)
	}
	return nil
}

func (r *PipelineRepository) History(ctx context.Context, leadID string) ([]*entity.PipelineHistoryEntry, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, lead_id, from_stage, to_stage, transition_type, reason, actor, duration_seconds, created_at
		FROM pipeline_history WHERE lead_id = $1 ORDER BY created_at, id
	`, leadID)
	if err != nil {
		return nil, fmt.Errorf("erro ao listar histórico: %w", err)
	}
	defer rows.Close()

	var out []*entity.PipelineHistoryEntry
	for rows.Next() {
		var (
			e      entity.PipelineHistoryEntry
			from   sql.NullString
			reason sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.LeadID, &from, &e.ToStage, &e.Type, &reason, &e.Actor, &e.DurationSeconds, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("erro ao ler histórico: %w", err)
		}
		if from.Valid {
			st := entity.Stage(from.String)
			e.FromStage = &st
		}
		e.Reason = ptrFromNull(reason)
		out = append(out, &e)
	}
	return out, rows.Err()
}

// Summary aggregates the board per stage. Days in stage are measured
// against the database clock.
func (r *PipelineRepository) Summary(ctx context.Context) ([]entity.StageSummary, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT p.stage,
			COUNT(*),
			COALESCE(SUM(l.desired_amount), 0),
			COALESCE(SUM(l.desired_amount * p.probability / 100.0), 0),
			COALESCE(AVG(EXTRACT(EPOCH FROM (NOW() - p.stage_entered_at)) / 86400.0), 0)
		FROM pipeline p
		JOIN leads l ON l.id = p.lead_id
		GROUP BY p.stage
	`)
	if err != nil {
		return nil, fmt.Errorf("erro ao resumir pipeline: %w", err)
	}
	defer rows.Close()

	var out []entity.StageSummary
	for rows.Next() {
		var s entity.StageSummary
		if err := rows.Scan(&s.Stage, &s.Leads, &s.TotalAmount, &s.WeightedAmount, &s.AvgDaysInStage); err != nil {
			return nil, fmt.Errorf("erro ao ler resumo: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
