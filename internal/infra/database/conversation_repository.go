package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xavierca1/ligue-crm/internal/entity"
)

type ConversationRepository struct {
	DB *sql.DB
}

func NewConversationRepository(db *sql.DB) *ConversationRepository {
	return &ConversationRepository{DB: db}
}

const conversationColumns = `id, lead_id, channel, platform_id, status, assigned_to, unread_count, last_activity_at, created_at`

func (r *ConversationRepository) Create(ctx context.Context, c *entity.Conversation) error {
	query := `
		INSERT INTO conversations (id, lead_id, channel, platform_id, status, assigned_to, unread_count, last_activity_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.DB.ExecContext(ctx, query,
		c.ID, c.LeadID, c.Channel, c.PlatformID, c.Status, c.AssignedTo, c.UnreadCount, c.LastActivityAt, c.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return entity.ErrDuplicate
		}
		return fmt.Errorf("erro ao criar conversa: %w", err)
	}
	return nil
}

func (r *ConversationRepository) Update(ctx context.Context, c *entity.Conversation) error {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE conversations SET lead_id = $2, status = $3, assigned_to = $4, unread_count = $5, last_activity_at = $6
		WHERE id = $1
	`, c.ID, c.LeadID, c.Status, c.AssignedTo, c.UnreadCount, c.LastActivityAt)
	if err != nil {
		return fmt.Errorf("erro ao atualizar conversa: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return entity.ErrConversationNotFound
	}
	return nil
}

func (r *ConversationRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.DB.ExecContext(ctx, `DELETE FROM conversations WHERE id = $1`, id); err != nil {
		return fmt.Errorf("erro ao remover conversa: %w", err)
	}
	return nil
}

func (r *ConversationRepository) FindByID(ctx context.Context, id string) (*entity.Conversation, error) {
	return r.findOne(ctx, `SELECT `+conversationColumns+` FROM conversations WHERE id = $1`, id)
}

func (r *ConversationRepository) FindByChannelAndPlatformID(ctx context.Context, ch entity.Channel, platformID string) (*entity.Conversation, error) {
	return r.findOne(ctx, `SELECT `+conversationColumns+` FROM conversations WHERE channel = $1 AND platform_id = $2`, ch, platformID)
}

func (r *ConversationRepository) FindByLeadID(ctx context.Context, leadID string) ([]*entity.Conversation, error) {
	return r.findMany(ctx, `SELECT `+conversationColumns+` FROM conversations WHERE lead_id = $1 ORDER BY created_at`, leadID)
}

func (r *ConversationRepository) List(ctx context.Context, f entity.ConversationFilter) ([]*entity.Conversation, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.Status != "" {
		add("status = $%d", f.Status)
	}
	if f.Channel != "" {
		add("channel = $%d", f.Channel)
	}
	if f.AssignedTo != "" {
		add("assigned_to = $%d", f.AssignedTo)
	}

	query := `SELECT ` + conversationColumns + ` FROM conversations`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	args = append(args, f.Limit, f.Offset)
	query += fmt.Sprintf(` ORDER BY last_activity_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))
	return r.findMany(ctx, query, args...)
}

func (r *ConversationRepository) LeadsWithDuplicates(ctx context.Context) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT lead_id FROM conversations
		WHERE lead_id IS NOT NULL
		GROUP BY lead_id HAVING COUNT(*) > 1
	`)
	if err != nil {
		return nil, fmt.Errorf("erro ao buscar duplicadas: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *ConversationRepository) Touch(ctx context.Context, id string, at time.Time, incrementUnread bool) error {
	inc := 0
	if incrementUnread {
		inc = 1
	}
	res, err := r.DB.ExecContext(ctx, `
		UPDATE conversations
		SET last_activity_at = GREATEST(last_activity_at, $2), unread_count = unread_count + $3
		WHERE id = $1
	`, id, at, inc)
	if err != nil {
		return fmt.Errorf("erro ao atualizar atividade: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return entity.ErrConversationNotFound
	}
	return nil
}

func (r *ConversationRepository) findOne(ctx context.Context, query string, args ...any) (*entity.Conversation, error) {
	c, err := scanConversation(r.DB.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, entity.ErrConversationNotFound
		}
		return nil, fmt.Errorf("erro ao buscar conversa: %w", err)
	}
	return c, nil
}

func (r *ConversationRepository) findMany(ctx context.Context, query string, args ...any) ([]*entity.Conversation, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("erro ao listar conversas: %w", err)
	}
	defer rows.Close()

	var out []*entity.Conversation
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, fmt.Errorf("erro ao ler conversa: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanConversation(row rowScanner) (*entity.Conversation, error) {
	var c entity.Conversation
	var leadID, assigned sql.NullString
	err := row.Scan(&c.ID, &leadID, &c.Channel, &c.PlatformID, &c.Status, &assigned, &c.UnreadCount, &c.LastActivityAt, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	c.LeadID = ptrFromNull(leadID)
	c.AssignedTo = ptrFromNull(assigned)
	return &c, nil
}
