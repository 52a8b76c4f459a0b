package entity

import (
	"context"
	"time"
)

type Stage string

const (
	StageNew         Stage = "new"
	StageContacted   Stage = "contacted"
	StageQualified   Stage = "qualified"
	StageProposal    Stage = "proposal"
	StageNegotiation Stage = "negotiation"
	StageWon         Stage = "won"
	StageLost        Stage = "lost"
)

// InitialStage is where every pipeline record starts.
const InitialStage = StageNew

// OrderedStages lists the non-terminal stages in funnel order.
var OrderedStages = []Stage{StageNew, StageContacted, StageQualified, StageProposal, StageNegotiation}

var stageProbability = map[Stage]int{
	StageNew:         10,
	StageContacted:   20,
	StageQualified:   40,
	StageProposal:    60,
	StageNegotiation: 80,
	StageWon:         100,
	StageLost:        0,
}

func (s Stage) Valid() bool {
	_, ok := stageProbability[s]
	return ok
}

func (s Stage) Terminal() bool {
	return s == StageWon || s == StageLost
}

// Probability is the close probability in percent implied by the stage.
func (s Stage) Probability() int {
	return stageProbability[s]
}

// Order returns the funnel position. Terminal stages sit after the last
// ordered stage.
func (s Stage) Order() int {
	for i, st := range OrderedStages {
		if st == s {
			return i
		}
	}
	if s.Terminal() {
		return len(OrderedStages)
	}
	return -1
}

// Tag is the platform tag that mirrors the stage on the subscriber.
func (s Stage) Tag() string {
	return "etapa_" + string(s)
}

// AllStages returns ordered + terminal stages.
func AllStages() []Stage {
	out := append([]Stage{}, OrderedStages...)
	return append(out, StageWon, StageLost)
}

type TransitionType string

const (
	TransitionManual    TransitionType = "manual"
	TransitionAutomatic TransitionType = "automatic"
)

type PipelineRecord struct {
	LeadID         string    `json:"lead_id"`
	Stage          Stage     `json:"stage"`
	Probability    int       `json:"probability"`
	StageEnteredAt time.Time `json:"stage_entered_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func NewPipelineRecord(leadID string, now time.Time) *PipelineRecord {
	return &PipelineRecord{
		LeadID:         leadID,
		Stage:          InitialStage,
		Probability:    InitialStage.Probability(),
		StageEnteredAt: now,
		UpdatedAt:      now,
	}
}

// PipelineHistoryEntry is append-only.
type PipelineHistoryEntry struct {
	ID              string         `json:"id"`
	LeadID          string         `json:"lead_id"`
	FromStage       *Stage         `json:"from_stage"`
	ToStage         Stage          `json:"to_stage"`
	Type            TransitionType `json:"transition_type"`
	Reason          *string        `json:"reason,omitempty"`
	Actor           string         `json:"actor"`
	DurationSeconds int64          `json:"duration_seconds"`
	CreatedAt       time.Time      `json:"created_at"`
}

type StageSummary struct {
	Stage          Stage   `json:"stage"`
	Leads          int     `json:"leads"`
	TotalAmount    float64 `json:"total_amount"`
	WeightedAmount float64 `json:"weighted_amount"`
	AvgDaysInStage float64 `json:"avg_days_in_stage"`
}

type PipelineRepositoryInterface interface {
	Create(ctx context.Context, rec *PipelineRecord) error
	FindByLeadID(ctx context.Context, leadID string) (*PipelineRecord, error)
	UpdateStage(ctx context.Context, rec *PipelineRecord) error
	AppendHistory(ctx context.Context, entry *PipelineHistoryEntry) error
	History(ctx context.Context, leadID string) ([]*PipelineHistoryEntry, error)
	Summary(ctx context.Context) ([]StageSummary, error)
}
