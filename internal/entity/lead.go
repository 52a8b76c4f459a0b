package entity

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

type LeadStatus string

const (
	LeadStatusNew       LeadStatus = "new"
	LeadStatusActive    LeadStatus = "active"
	LeadStatusConverted LeadStatus = "converted"
	LeadStatusLost      LeadStatus = "lost"
	LeadStatusArchived  LeadStatus = "archived"
)

type Lead struct {
	ID             string            `json:"id"`
	Name           string            `json:"name"`
	Phone          string            `json:"phone,omitempty"`
	Email          string            `json:"email,omitempty"`
	CUIT           string            `json:"cuit,omitempty"`
	DNI            string            `json:"dni,omitempty"`
	Income         float64           `json:"income,omitempty"`
	Zone           string            `json:"zone,omitempty"`
	DesiredProduct string            `json:"desired_product,omitempty"`
	DesiredAmount  float64           `json:"desired_amount,omitempty"`
	Tags           []string          `json:"tags"`
	CustomFields   map[string]string `json:"custom_fields"`
	SubscriberID   *string           `json:"subscriber_id,omitempty"`
	Status         LeadStatus        `json:"status"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// NewLead builds a lead with a fresh id. Name may be empty for leads created
// from an anonymous first message; the phone or subscriber id identifies them.
func NewLead(name, phone, email string) (*Lead, error) {
	lead := &Lead{
		ID:           uuid.New().String(),
		Name:         strings.TrimSpace(name),
		Phone:        strings.TrimSpace(phone),
		Email:        strings.TrimSpace(email),
		Tags:         []string{},
		CustomFields: map[string]string{},
		Status:       LeadStatusNew,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	if err := lead.Validate(); err != nil {
		return nil, err
	}
	return lead, nil
}

func (l *Lead) Validate() error {
	if l.Name == "" && l.Phone == "" && l.Email == "" && l.SubscriberID == nil {
		return errors.New("lead needs a name, phone, email or subscriber id")
	}
	return nil
}

// HasTag compares case-insensitively, the platform does the same.
func (l *Lead) HasTag(tag string) bool {
	for _, t := range l.Tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

func (l *Lead) AddTag(tag string) bool {
	tag = strings.TrimSpace(tag)
	if tag == "" || l.HasTag(tag) {
		return false
	}
	l.Tags = append(l.Tags, tag)
	return true
}

func (l *Lead) RemoveTag(tag string) bool {
	out := l.Tags[:0]
	removed := false
	for _, t := range l.Tags {
		if strings.EqualFold(t, tag) {
			removed = true
			continue
		}
		out = append(out, t)
	}
	l.Tags = out
	return removed
}

type LeadFilter struct {
	Status LeadStatus
	Stage  Stage
	Search string
	Limit  int
	Offset int
}

type LeadRepositoryInterface interface {
	Create(ctx context.Context, lead *Lead) error
	Update(ctx context.Context, lead *Lead) error
	Delete(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (*Lead, error)
	FindBySubscriberID(ctx context.Context, subscriberID string) (*Lead, error)
	FindByPhone(ctx context.Context, phone string) (*Lead, error)
	List(ctx context.Context, filter LeadFilter) ([]*Lead, error)
	ListLinked(ctx context.Context) ([]*Lead, error)
	ListUnlinkedWithPhone(ctx context.Context) ([]*Lead, error)
	CheckDuplicity(ctx context.Context, phone, email string) (bool, error)
}
