package usecase

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/xavierca1/ligue-crm/internal/entity"
	"github.com/xavierca1/ligue-crm/pkg/logger"
)

// SyncedLead is the outcome of applying one subscriber snapshot.
type SyncedLead struct {
	Lead           *entity.Lead
	Pipeline       *entity.PipelineRecord
	Channel        entity.Channel
	ConversationID string
	Created        bool
	Updated        bool
	Linked         bool
}

// LeadSyncer applies subscriber snapshots from the messaging platform to
// the local lead, pipeline and conversation rows.
type LeadSyncer struct {
	LeadRepo     entity.LeadRepositoryInterface
	PipelineRepo entity.PipelineRepositoryInterface
	Reconciler   *ConversationReconciler
	Now          func() time.Time
	log          *logger.Logger
}

func NewLeadSyncer(
	leadRepo entity.LeadRepositoryInterface,
	pipelineRepo entity.PipelineRepositoryInterface,
	reconciler *ConversationReconciler,
	log *logger.Logger,
) *LeadSyncer {
	if log == nil {
		log = logger.Global()
	}
	return &LeadSyncer{
		LeadRepo:     leadRepo,
		PipelineRepo: pipelineRepo,
		Reconciler:   reconciler,
		Now:          time.Now,
		log:          log.Named("lead_sync"),
	}
}

func (s *LeadSyncer) Apply(ctx context.Context, sub entity.Subscriber) (*SyncedLead, error) {
	if sub.ID == "" {
		return nil, invalid("subscriber sem id")
	}

	out := &SyncedLead{}
	lead, err := s.LeadRepo.FindBySubscriberID(ctx, sub.ID)
	if err != nil && !errors.Is(err, entity.ErrLeadNotFound) {
		return nil, dbErr("buscar lead por subscriber", err)
	}

	if lead == nil {
		if phone := NormalizePhone(sub.AnyPhone()); phone != "" {
			lead, err = s.LeadRepo.FindByPhone(ctx, phone)
			if err != nil && !errors.Is(err, entity.ErrLeadNotFound) {
				return nil, dbErr("buscar lead por telefone", err)
			}
			if lead != nil && lead.SubscriberID == nil {
				subID := sub.ID
				lead.SubscriberID = &subID
				out.Linked = true
			}
		}
	}

	now := s.Now()
	if lead == nil {
		lead, out.Pipeline, err = s.create(ctx, sub, now)
		if err != nil {
			return nil, err
		}
		out.Created = true
	} else {
		if mergeSubscriber(lead, sub) || out.Linked {
			lead.UpdatedAt = now
			if err := s.LeadRepo.Update(ctx, lead); err != nil {
				return nil, dbErr("atualizar lead", err)
			}
			out.Updated = true
		}
		out.Pipeline, _, err = ensurePipeline(ctx, s.PipelineRepo, lead.ID, SystemActor, now)
		if err != nil {
			return nil, err
		}
	}
	out.Lead = lead

	out.Channel = entity.DetectChannel(sub)
	if s.Reconciler != nil {
		convID, err := s.Reconciler.Reconcile(ctx, lead, out.Channel, entity.PlatformIdentifier(sub, out.Channel))
		if err != nil {
			s.log.Warn("reconciliação abandonada",
				logger.LeadID(lead.ID),
				logger.SubscriberID(sub.ID),
				zap.Error(err),
			)
		}
		out.ConversationID = convID
	}
	return out, nil
}

func (s *LeadSyncer) create(ctx context.Context, sub entity.Subscriber, now time.Time) (*entity.Lead, *entity.PipelineRecord, error) {
	name := sub.DisplayName()
	if name == "" {
		name = "Contato " + sub.ID
	}
	lead, err := entity.NewLead(name, NormalizePhone(sub.AnyPhone()), sub.Email)
	if err != nil {
		return nil, nil, invalid("%s", err.Error())
	}
	subID := sub.ID
	lead.SubscriberID = &subID
	lead.CreatedAt, lead.UpdatedAt = now, now
	mergeSubscriber(lead, sub)

	var rec *entity.PipelineRecord
	tx := NewTransaction(s.log)
	tx.AddOperation("create_lead", func(ctx context.Context) error {
		return s.LeadRepo.Create(ctx, lead)
	})
	tx.AddCompensation("delete_lead", func(ctx context.Context) error {
		return s.LeadRepo.Delete(ctx, lead.ID)
	})
	tx.AddOperation("ensure_pipeline", func(ctx context.Context) error {
		var err error
		rec, _, err = ensurePipeline(ctx, s.PipelineRepo, lead.ID, SystemActor, now)
		return err
	})
	if err := tx.Execute(ctx); err != nil {
		if errors.Is(err, entity.ErrDuplicate) {
			return nil, nil, invalid("lead duplicado para subscriber %s", sub.ID)
		}
		return nil, nil, dbErr("criar lead", err)
	}

	s.log.Info("lead criado a partir do subscriber",
		logger.LeadID(lead.ID),
		logger.SubscriberID(sub.ID),
	)
	return lead, rec, nil
}

// mergeSubscriber fills blanks on the lead from the snapshot and reports
// whether anything changed. Local values win over platform values.
func mergeSubscriber(lead *entity.Lead, sub entity.Subscriber) bool {
	changed := false
	set := func(dst *string, v string) {
		if *dst == "" && v != "" {
			*dst = v
			changed = true
		}
	}
	set(&lead.Name, sub.DisplayName())
	set(&lead.Phone, NormalizePhone(sub.AnyPhone()))
	set(&lead.Email, sub.Email)

	for _, t := range sub.Tags {
		if lead.AddTag(t) {
			changed = true
		}
	}

	if lead.CustomFields == nil {
		lead.CustomFields = map[string]string{}
	}
	for k, v := range sub.CustomFields {
		if lead.CustomFields[k] != v {
			lead.CustomFields[k] = v
			changed = true
		}
	}
	return changed
}
