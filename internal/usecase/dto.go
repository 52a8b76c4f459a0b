package usecase

import (
	"time"

	"github.com/xavierca1/ligue-crm/internal/entity"
)

type CreateLeadInput struct {
	Name           string            `json:"name"`
	Phone          string            `json:"phone"`
	Email          string            `json:"email"`
	CUIT           string            `json:"cuit"`
	DNI            string            `json:"dni"`
	Income         float64           `json:"income"`
	Zone           string            `json:"zone"`
	DesiredProduct string            `json:"desired_product"`
	DesiredAmount  float64           `json:"desired_amount"`
	Tags           []string          `json:"tags"`
	CustomFields   map[string]string `json:"custom_fields"`
	SubscriberID   string            `json:"subscriber_id"`
}

type UpdateLeadInput struct {
	Name           *string            `json:"name"`
	Phone          *string            `json:"phone"`
	Email          *string            `json:"email"`
	CUIT           *string            `json:"cuit"`
	DNI            *string            `json:"dni"`
	Income         *float64           `json:"income"`
	Zone           *string            `json:"zone"`
	DesiredProduct *string            `json:"desired_product"`
	DesiredAmount  *float64           `json:"desired_amount"`
	Status         *entity.LeadStatus `json:"status"`
}

type LeadOutput struct {
	Lead     *entity.Lead           `json:"lead"`
	Pipeline *entity.PipelineRecord `json:"pipeline,omitempty"`
}

type MoveStageInput struct {
	LeadID    string                `json:"lead_id"`
	FromStage entity.Stage          `json:"from_stage"`
	ToStage   entity.Stage          `json:"to_stage"`
	Reason    string                `json:"reason"`
	Actor     string                `json:"-"`
	Type      entity.TransitionType `json:"-"`
}

type MoveStageOutput struct {
	Pipeline *entity.PipelineRecord       `json:"pipeline"`
	History  *entity.PipelineHistoryEntry `json:"history"`
	Warnings []string                     `json:"warnings"`
}

type SendMessageInput struct {
	ConversationID string `json:"-"`
	Content        string `json:"content"`
	Actor          string `json:"-"`
}

type SyncInput struct {
	SubscriberIDs []string `json:"subscriber_ids"`
	LinkByPhone   bool     `json:"link_by_phone"`
}

type SyncError struct {
	Ref   string `json:"ref"`
	Error string `json:"error"`
}

type SyncReport struct {
	Processed int           `json:"processed"`
	Created   int           `json:"created"`
	Updated   int           `json:"updated"`
	Linked    int           `json:"linked"`
	Errors    []SyncError   `json:"errors"`
	Duration  time.Duration `json:"duration"`
}

func (r *SyncReport) fail(ref string, err error) {
	r.Errors = append(r.Errors, SyncError{Ref: ref, Error: err.Error()})
}

type SignInInput struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

type SignInOutput struct {
	User  *entity.User `json:"user"`
	Token string       `json:"token"`
}
