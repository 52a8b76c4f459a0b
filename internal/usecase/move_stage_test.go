package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/xavierca1/ligue-crm/internal/entity"
	"github.com/xavierca1/ligue-crm/internal/infra/queue"
	"github.com/xavierca1/ligue-crm/pkg/logger"
)

type moveFixture struct {
	leads    *memLeads
	pipeline *memPipeline
	platform *MockPlatform
	producer *MockQueueProducer
	uc       *MoveStageUseCase
	lead     *entity.Lead
}

func newMoveFixture(t *testing.T, stage entity.Stage) *moveFixture {
	t.Helper()
	f := &moveFixture{
		leads:    newMemLeads(),
		pipeline: newMemPipeline(),
		platform: &MockPlatform{},
		producer: &MockQueueProducer{},
	}
	f.uc = NewMoveStageUseCase(f.leads, f.pipeline, f.platform, f.producer, nil, logger.NewNop())
	f.uc.Now = func() time.Time { return fixedNow }

	f.lead = testLead(t)
	subID := "sub-1"
	f.lead.SubscriberID = &subID
	f.lead.DesiredAmount = 1500
	require.NoError(t, f.leads.Create(context.Background(), f.lead))

	if stage != "" {
		rec := entity.NewPipelineRecord(f.lead.ID, fixedNow.Add(-2*time.Hour))
		rec.Stage = stage
		rec.Probability = stage.Probability()
		require.NoError(t, f.pipeline.Create(context.Background(), rec))
	}
	return f
}

func (f *moveFixture) expectSideEffects(from, to entity.Stage) {
	f.platform.On("RemoveTag", mock.Anything, "sub-1", from.Tag()).Return(nil)
	f.platform.On("AddTag", mock.Anything, "sub-1", to.Tag()).Return(nil)
	f.producer.On("PublishStageEntered", mock.Anything, mock.MatchedBy(func(p queue.StageEnteredPayload) bool {
		return p.LeadID == f.lead.ID && p.ToStage == string(to) && p.FromStage == string(from) && p.SubscriberID == "sub-1"
	})).Return(nil)
}

func TestMoveStageSameStageWritesNoHistory(t *testing.T) {
	f := newMoveFixture(t, entity.StageContacted)

	_, err := f.uc.Execute(context.Background(), MoveStageInput{
		LeadID: f.lead.ID, FromStage: entity.StageContacted, ToStage: entity.StageContacted,
	})
	assert.True(t, HasCode(err, CodeSameStage))

	_, err = f.uc.Execute(context.Background(), MoveStageInput{LeadID: f.lead.ID, ToStage: entity.StageContacted})
	assert.True(t, HasCode(err, CodeSameStage))

	assert.Empty(t, f.pipeline.history)
	assert.Zero(t, f.pipeline.updateCalls)
	f.platform.AssertNotCalled(t, "AddTag", mock.Anything, mock.Anything, mock.Anything)
}

func TestMoveStageHardRules(t *testing.T) {
	for _, to := range []entity.Stage{entity.StageProposal, entity.StageNegotiation} {
		f := newMoveFixture(t, entity.StageNew)
		_, err := f.uc.Execute(context.Background(), MoveStageInput{LeadID: f.lead.ID, ToStage: to})
		assert.True(t, HasCode(err, CodeTransitionNotAllowed), string(to))
		assert.Empty(t, f.pipeline.history)
	}
}

func TestMoveStageForwardWithSkipWarning(t *testing.T) {
	f := newMoveFixture(t, entity.StageNew)
	f.expectSideEffects(entity.StageNew, entity.StageQualified)

	out, err := f.uc.Execute(context.Background(), MoveStageInput{
		LeadID:  f.lead.ID,
		ToStage: entity.StageQualified,
		Reason:  "respondeu rápido",
		Actor:   "agent@ligue.com",
	})
	require.NoError(t, err)

	assert.Equal(t, entity.StageQualified, out.Pipeline.Stage)
	assert.Equal(t, 40, out.Pipeline.Probability)
	assert.Equal(t, fixedNow, out.Pipeline.StageEnteredAt)
	assert.Len(t, out.Warnings, 1)

	require.Len(t, f.pipeline.history, 1)
	h := f.pipeline.history[0]
	require.NotNil(t, h.FromStage)
	assert.Equal(t, entity.StageNew, *h.FromStage)
	assert.Equal(t, entity.StageQualified, h.ToStage)
	assert.Equal(t, int64(7200), h.DurationSeconds)
	assert.Equal(t, "agent@ligue.com", h.Actor)
	assert.Equal(t, entity.TransitionManual, h.Type)
	require.NotNil(t, h.Reason)

	stored, _ := f.leads.FindByID(context.Background(), f.lead.ID)
	assert.True(t, stored.HasTag("etapa_qualified"))
	assert.Equal(t, entity.LeadStatusActive, stored.Status)

	f.platform.AssertExpectations(t)
	f.producer.AssertExpectations(t)
}

func TestMoveStageBackwardWarns(t *testing.T) {
	f := newMoveFixture(t, entity.StageNegotiation)
	f.expectSideEffects(entity.StageNegotiation, entity.StageContacted)

	out, err := f.uc.Execute(context.Background(), MoveStageInput{LeadID: f.lead.ID, ToStage: entity.StageContacted})
	require.NoError(t, err)
	require.Len(t, out.Warnings, 1)
	assert.Contains(t, out.Warnings[0], "retrocede")
}

func TestMoveStageToTerminalSkipsWithoutWarning(t *testing.T) {
	f := newMoveFixture(t, entity.StageContacted)
	f.expectSideEffects(entity.StageContacted, entity.StageWon)

	out, err := f.uc.Execute(context.Background(), MoveStageInput{LeadID: f.lead.ID, ToStage: entity.StageWon})
	require.NoError(t, err)
	assert.Empty(t, out.Warnings)
	assert.Equal(t, 100, out.Pipeline.Probability)

	stored, _ := f.leads.FindByID(context.Background(), f.lead.ID)
	assert.Equal(t, entity.LeadStatusConverted, stored.Status)
}

func TestMoveStageCreatesMissingRecord(t *testing.T) {
	f := newMoveFixture(t, "")
	f.expectSideEffects(entity.StageNew, entity.StageContacted)

	out, err := f.uc.Execute(context.Background(), MoveStageInput{LeadID: f.lead.ID, ToStage: entity.StageContacted})
	require.NoError(t, err)
	assert.Equal(t, entity.StageContacted, out.Pipeline.Stage)

	require.Len(t, f.pipeline.history, 2)
	assert.Nil(t, f.pipeline.history[0].FromStage)
	assert.Equal(t, entity.StageNew, f.pipeline.history[0].ToStage)
	assert.Equal(t, entity.StageNew, *f.pipeline.history[1].FromStage)
}

func TestMoveStageRejectedMoveLeavesMissingRecordAlone(t *testing.T) {
	for _, to := range []entity.Stage{entity.StageNew, entity.StageProposal} {
		f := newMoveFixture(t, "")

		_, err := f.uc.Execute(context.Background(), MoveStageInput{LeadID: f.lead.ID, ToStage: to})
		require.Error(t, err, string(to))

		assert.Empty(t, f.pipeline.rows, string(to))
		assert.Empty(t, f.pipeline.history, string(to))
	}

	f := newMoveFixture(t, "")
	_, err := f.uc.Execute(context.Background(), MoveStageInput{LeadID: f.lead.ID, ToStage: entity.StageNew})
	assert.True(t, HasCode(err, CodeSameStage))
}

func TestMoveStageStaleFromStage(t *testing.T) {
	f := newMoveFixture(t, entity.StageQualified)

	_, err := f.uc.Execute(context.Background(), MoveStageInput{
		LeadID: f.lead.ID, FromStage: entity.StageContacted, ToStage: entity.StageProposal,
	})
	assert.True(t, HasCode(err, CodeValidation))
	assert.Empty(t, f.pipeline.history)
}

func TestMoveStageInvalidInput(t *testing.T) {
	f := newMoveFixture(t, entity.StageNew)

	_, err := f.uc.Execute(context.Background(), MoveStageInput{LeadID: f.lead.ID, ToStage: "closed"})
	assert.True(t, HasCode(err, CodeValidation))

	_, err = f.uc.Execute(context.Background(), MoveStageInput{LeadID: "missing", ToStage: entity.StageContacted})
	assert.True(t, HasCode(err, CodeNotFound))
}

func TestMoveStageRestoresStageWhenHistoryFails(t *testing.T) {
	f := newMoveFixture(t, entity.StageContacted)
	f.pipeline.failHistory = errBoom

	_, err := f.uc.Execute(context.Background(), MoveStageInput{LeadID: f.lead.ID, ToStage: entity.StageQualified})
	require.Error(t, err)
	assert.True(t, IsTechnicalError(err))

	rec, _ := f.pipeline.FindByLeadID(context.Background(), f.lead.ID)
	assert.Equal(t, entity.StageContacted, rec.Stage)
	f.producer.AssertNotCalled(t, "PublishStageEntered", mock.Anything, mock.Anything)
}

func TestMoveStageSideEffectFailuresDoNotBlock(t *testing.T) {
	f := newMoveFixture(t, entity.StageNew)
	f.platform.On("RemoveTag", mock.Anything, mock.Anything, mock.Anything).Return(errBoom)
	f.platform.On("AddTag", mock.Anything, mock.Anything, mock.Anything).Return(errBoom)
	f.producer.On("PublishStageEntered", mock.Anything, mock.Anything).Return(errBoom)

	out, err := f.uc.Execute(context.Background(), MoveStageInput{LeadID: f.lead.ID, ToStage: entity.StageContacted})
	require.NoError(t, err)
	assert.Equal(t, entity.StageContacted, out.Pipeline.Stage)
	assert.Len(t, f.pipeline.history, 1)
}
