package usecase

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/xavierca1/ligue-crm/internal/entity"
	"github.com/xavierca1/ligue-crm/pkg/logger"
)

// SyncSubscribersUseCase pulls subscriber snapshots from the platform for
// every linked lead. Calls are sequential with a fixed pause between them to
// stay under the platform rate limit.
type SyncSubscribersUseCase struct {
	LeadRepo entity.LeadRepositoryInterface
	Platform MessagingPlatform
	Syncer   *LeadSyncer
	Delay    time.Duration
	Sleep    func(ctx context.Context, d time.Duration) error
	log      *logger.Logger
}

func NewSyncSubscribersUseCase(
	leadRepo entity.LeadRepositoryInterface,
	platform MessagingPlatform,
	syncer *LeadSyncer,
	delay time.Duration,
	log *logger.Logger,
) *SyncSubscribersUseCase {
	if log == nil {
		log = logger.Global()
	}
	return &SyncSubscribersUseCase{
		LeadRepo: leadRepo,
		Platform: platform,
		Syncer:   syncer,
		Delay:    delay,
		Sleep:    sleepCtx,
		log:      log.Named("sync"),
	}
}

func (uc *SyncSubscribersUseCase) Execute(ctx context.Context, input SyncInput) (*SyncReport, error) {
	start := time.Now()
	report := &SyncReport{Errors: []SyncError{}}

	if input.LinkByPhone {
		if err := uc.linkByPhone(ctx, report); err != nil {
			return nil, err
		}
	}

	ids := input.SubscriberIDs
	if len(ids) == 0 {
		leads, err := uc.LeadRepo.ListLinked(ctx)
		if err != nil {
			return nil, dbErr("listar leads vinculados", err)
		}
		for _, l := range leads {
			if l.SubscriberID != nil {
				ids = append(ids, *l.SubscriberID)
			}
		}
	}

	for i, id := range ids {
		if i > 0 {
			if err := uc.Sleep(ctx, uc.Delay); err != nil {
				return report, err
			}
		}
		report.Processed++

		sub, err := uc.Platform.GetSubscriber(ctx, id)
		if err != nil {
			report.fail(id, err)
			continue
		}
		synced, err := uc.Syncer.Apply(ctx, *sub)
		if err != nil {
			report.fail(id, err)
			continue
		}
		switch {
		case synced.Created:
			report.Created++
		case synced.Updated:
			report.Updated++
		}
		if synced.Linked {
			report.Linked++
		}
	}

	report.Duration = time.Since(start)
	uc.log.Info("sincronização concluída",
		zap.Int("processed", report.Processed),
		zap.Int("created", report.Created),
		zap.Int("updated", report.Updated),
		zap.Int("linked", report.Linked),
		zap.Int("errors", len(report.Errors)),
		zap.Duration("duration", report.Duration),
	)
	return report, nil
}

// linkByPhone attaches a subscriber id to leads that only have a phone.
func (uc *SyncSubscribersUseCase) linkByPhone(ctx context.Context, report *SyncReport) error {
	leads, err := uc.LeadRepo.ListUnlinkedWithPhone(ctx)
	if err != nil {
		return dbErr("listar leads sem vínculo", err)
	}

	for i, lead := range leads {
		if i > 0 {
			if err := uc.Sleep(ctx, uc.Delay); err != nil {
				return err
			}
		}
		sub, err := uc.Platform.FindSubscriberByPhone(ctx, NormalizePhone(lead.Phone))
		if err != nil {
			if !errors.Is(err, entity.ErrSubscriberNotFound) {
				report.fail(lead.ID, err)
			}
			continue
		}
		subID := sub.ID
		lead.SubscriberID = &subID
		lead.UpdatedAt = time.Now()
		if err := uc.LeadRepo.Update(ctx, lead); err != nil {
			report.fail(lead.ID, err)
			continue
		}
		report.Linked++
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
