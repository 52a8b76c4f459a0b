package usecase

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/xavierca1/ligue-crm/internal/entity"
)

// In-memory repositories for use case tests. Records are copied on the way
// in and out so tests observe only what was persisted.

type memLeads struct {
	rows       map[string]*entity.Lead
	failCreate error
}

func newMemLeads() *memLeads { return &memLeads{rows: map[string]*entity.Lead{}} }

func copyLead(l *entity.Lead) *entity.Lead {
	c := *l
	c.Tags = append([]string{}, l.Tags...)
	c.CustomFields = map[string]string{}
	for k, v := range l.CustomFields {
		c.CustomFields[k] = v
	}
	return &c
}

func (r *memLeads) Create(_ context.Context, l *entity.Lead) error {
	if r.failCreate != nil {
		return r.failCreate
	}
	r.rows[l.ID] = copyLead(l)
	return nil
}

func (r *memLeads) Update(_ context.Context, l *entity.Lead) error {
	if _, ok := r.rows[l.ID]; !ok {
		return entity.ErrLeadNotFound
	}
	r.rows[l.ID] = copyLead(l)
	return nil
}

func (r *memLeads) Delete(_ context.Context, id string) error {
	delete(r.rows, id)
	return nil
}

func (r *memLeads) FindByID(_ context.Context, id string) (*entity.Lead, error) {
	if l, ok := r.rows[id]; ok {
		return copyLead(l), nil
	}
	return nil, entity.ErrLeadNotFound
}

func (r *memLeads) FindBySubscriberID(_ context.Context, subID string) (*entity.Lead, error) {
	for _, l := range r.rows {
		if l.SubscriberID != nil && *l.SubscriberID == subID {
			return copyLead(l), nil
		}
	}
	return nil, entity.ErrLeadNotFound
}

func (r *memLeads) FindByPhone(_ context.Context, phone string) (*entity.Lead, error) {
	for _, l := range r.rows {
		if phone != "" && l.Phone == phone {
			return copyLead(l), nil
		}
	}
	return nil, entity.ErrLeadNotFound
}

func (r *memLeads) List(_ context.Context, f entity.LeadFilter) ([]*entity.Lead, error) {
	var out []*entity.Lead
	for _, l := range r.rows {
		if f.Status != "" && l.Status != f.Status {
			continue
		}
		if f.Search != "" && !strings.Contains(strings.ToLower(l.Name), strings.ToLower(f.Search)) {
			continue
		}
		out = append(out, copyLead(l))
	}
	return out, nil
}

func (r *memLeads) ListLinked(_ context.Context) ([]*entity.Lead, error) {
	var out []*entity.Lead
	for _, l := range r.rows {
		if l.SubscriberID != nil {
			out = append(out, copyLead(l))
		}
	}
	sort.Slice(out, func(i, j int) bool { return *out[i].SubscriberID < *out[j].SubscriberID })
	return out, nil
}

func (r *memLeads) ListUnlinkedWithPhone(_ context.Context) ([]*entity.Lead, error) {
	var out []*entity.Lead
	for _, l := range r.rows {
		if l.SubscriberID == nil && l.Phone != "" {
			out = append(out, copyLead(l))
		}
	}
	return out, nil
}

func (r *memLeads) CheckDuplicity(_ context.Context, phone, email string) (bool, error) {
	for _, l := range r.rows {
		if (phone != "" && l.Phone == phone) || (email != "" && strings.EqualFold(l.Email, email)) {
			return true, nil
		}
	}
	return false, nil
}

type memPipeline struct {
	rows        map[string]*entity.PipelineRecord
	history     []*entity.PipelineHistoryEntry
	failHistory error
	updateCalls int
}

func newMemPipeline() *memPipeline {
	return &memPipeline{rows: map[string]*entity.PipelineRecord{}}
}

func (r *memPipeline) Create(_ context.Context, rec *entity.PipelineRecord) error {
	if _, ok := r.rows[rec.LeadID]; ok {
		return entity.ErrDuplicate
	}
	c := *rec
	r.rows[rec.LeadID] = &c
	return nil
}

func (r *memPipeline) FindByLeadID(_ context.Context, leadID string) (*entity.PipelineRecord, error) {
	if rec, ok := r.rows[leadID]; ok {
		c := *rec
		return &c, nil
	}
	return nil, entity.ErrPipelineNotFound
}

func (r *memPipeline) UpdateStage(_ context.Context, rec *entity.PipelineRecord) error {
	r.updateCalls++
	c := *rec
	r.rows[rec.LeadID] = &c
	return nil
}

func (r *memPipeline) AppendHistory(_ context.Context, e *entity.PipelineHistoryEntry) error {
	if r.failHistory != nil {
		return r.failHistory
	}
	c := *e
	r.history = append(r.history, &c)
	return nil
}

func (r *memPipeline) History(_ context.Context, leadID string) ([]*entity.PipelineHistoryEntry, error) {
	var out []*entity.PipelineHistoryEntry
	for _, e := range r.history {
		if e.LeadID == leadID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *memPipeline) Summary(_ context.Context) ([]entity.StageSummary, error) {
	counts := map[entity.Stage]int{}
	for _, rec := range r.rows {
		counts[rec.Stage]++
	}
	var out []entity.StageSummary
	for st, n := range counts {
		out = append(out, entity.StageSummary{Stage: st, Leads: n})
	}
	return out, nil
}

type memConversations struct {
	rows map[string]*entity.Conversation
}

func newMemConversations() *memConversations {
	return &memConversations{rows: map[string]*entity.Conversation{}}
}

func copyConv(c *entity.Conversation) *entity.Conversation {
	cp := *c
	return &cp
}

func (r *memConversations) Create(_ context.Context, c *entity.Conversation) error {
	for _, existing := range r.rows {
		if existing.Channel == c.Channel && existing.PlatformID == c.PlatformID {
			return entity.ErrDuplicate
		}
	}
	r.rows[c.ID] = copyConv(c)
	return nil
}

func (r *memConversations) Update(_ context.Context, c *entity.Conversation) error {
	if _, ok := r.rows[c.ID]; !ok {
		return entity.ErrConversationNotFound
	}
	r.rows[c.ID] = copyConv(c)
	return nil
}

func (r *memConversations) Delete(_ context.Context, id string) error {
	delete(r.rows, id)
	return nil
}

func (r *memConversations) FindByID(_ context.Context, id string) (*entity.Conversation, error) {
	if c, ok := r.rows[id]; ok {
		return copyConv(c), nil
	}
	return nil, entity.ErrConversationNotFound
}

func (r *memConversations) FindByChannelAndPlatformID(_ context.Context, ch entity.Channel, platformID string) (*entity.Conversation, error) {
	for _, c := range r.rows {
		if c.Channel == ch && c.PlatformID == platformID {
			return copyConv(c), nil
		}
	}
	return nil, entity.ErrConversationNotFound
}

func (r *memConversations) FindByLeadID(_ context.Context, leadID string) ([]*entity.Conversation, error) {
	var out []*entity.Conversation
	for _, c := range r.rows {
		if c.LeadID != nil && *c.LeadID == leadID {
			out = append(out, copyConv(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// racingConversations runs race once, right after FindByLeadID lists the
// lead's rows, to simulate a concurrent delivery inserting its conversation.
type racingConversations struct {
	*memConversations
	race func(leadID string)
}

func (r *racingConversations) FindByLeadID(ctx context.Context, leadID string) ([]*entity.Conversation, error) {
	out, err := r.memConversations.FindByLeadID(ctx, leadID)
	if r.race != nil {
		race := r.race
		r.race = nil
		race(leadID)
	}
	return out, err
}

func (r *memConversations) List(_ context.Context, f entity.ConversationFilter) ([]*entity.Conversation, error) {
	var out []*entity.Conversation
	for _, c := range r.rows {
		if f.Status != "" && c.Status != f.Status {
			continue
		}
		if f.Channel != "" && c.Channel != f.Channel {
			continue
		}
		out = append(out, copyConv(c))
	}
	return out, nil
}

func (r *memConversations) LeadsWithDuplicates(_ context.Context) ([]string, error) {
	counts := map[string]int{}
	for _, c := range r.rows {
		if c.LeadID != nil {
			counts[*c.LeadID]++
		}
	}
	var out []string
	for id, n := range counts {
		if n > 1 {
			out = append(out, id)
		}
	}
	return out, nil
}

func (r *memConversations) Touch(_ context.Context, id string, at time.Time, incrementUnread bool) error {
	c, ok := r.rows[id]
	if !ok {
		return entity.ErrConversationNotFound
	}
	if at.After(c.LastActivityAt) {
		c.LastActivityAt = at
	}
	if incrementUnread {
		c.UnreadCount++
	}
	return nil
}

type memMessages struct {
	rows []*entity.Message
}

func (r *memMessages) Create(_ context.Context, m *entity.Message) error {
	if m.ExternalID != nil {
		for _, existing := range r.rows {
			if existing.ExternalID != nil && *existing.ExternalID == *m.ExternalID {
				return entity.ErrDuplicate
			}
		}
	}
	c := *m
	r.rows = append(r.rows, &c)
	return nil
}

func (r *memMessages) FindByExternalID(_ context.Context, externalID string) (*entity.Message, error) {
	for _, m := range r.rows {
		if m.ExternalID != nil && *m.ExternalID == externalID {
			c := *m
			return &c, nil
		}
	}
	return nil, entity.ErrMessageNotFound
}

func (r *memMessages) ListByConversation(_ context.Context, convID string, limit, offset int) ([]*entity.Message, error) {
	var out []*entity.Message
	for _, m := range r.rows {
		if m.ConversationID == convID {
			out = append(out, m)
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (r *memMessages) CountByConversation(_ context.Context, convID string) (int, error) {
	n := 0
	for _, m := range r.rows {
		if m.ConversationID == convID {
			n++
		}
	}
	return n, nil
}

func (r *memMessages) Reassign(_ context.Context, from, to string) (int, error) {
	n := 0
	for _, m := range r.rows {
		if m.ConversationID == from {
			m.ConversationID = to
			n++
		}
	}
	return n, nil
}

func (r *memMessages) MarkRead(_ context.Context, convID string, at time.Time) (int, error) {
	n := 0
	for _, m := range r.rows {
		if m.ConversationID == convID && m.Direction == entity.DirectionInbound && m.ReadAt == nil {
			t := at
			m.ReadAt = &t
			n++
		}
	}
	return n, nil
}

type memUsers struct {
	rows map[string]*entity.User
}

func newMemUsers() *memUsers { return &memUsers{rows: map[string]*entity.User{}} }

func (r *memUsers) Create(_ context.Context, u *entity.User) error {
	c := *u
	r.rows[u.ID] = &c
	return nil
}

func (r *memUsers) Update(_ context.Context, u *entity.User) error {
	c := *u
	r.rows[u.ID] = &c
	return nil
}

func (r *memUsers) FindByID(_ context.Context, id string) (*entity.User, error) {
	if u, ok := r.rows[id]; ok {
		c := *u
		return &c, nil
	}
	return nil, entity.ErrUserNotFound
}

func (r *memUsers) FindByEmail(_ context.Context, email string) (*entity.User, error) {
	for _, u := range r.rows {
		if strings.EqualFold(u.Email, email) {
			c := *u
			return &c, nil
		}
	}
	return nil, entity.ErrUserNotFound
}

func (r *memUsers) List(_ context.Context, status entity.UserStatus) ([]*entity.User, error) {
	var out []*entity.User
	for _, u := range r.rows {
		if status == "" || u.Status == status {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r *memUsers) TouchLogin(_ context.Context, id string, at time.Time) error {
	u, ok := r.rows[id]
	if !ok {
		return entity.ErrUserNotFound
	}
	u.LastLoginAt = &at
	return nil
}

var errBoom = errors.New("boom")
