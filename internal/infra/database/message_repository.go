package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/xavierca1/ligue-crm/internal/entity"
)

type MessageRepository struct {
	DB *sql.DB
}

func NewMessageRepository(db *sql.DB) *MessageRepository {
	return &MessageRepository{DB: db}
}

const messageColumns = `id, conversation_id, direction, content, type, sent_at, read_at, is_bot, external_id`

func (r *MessageRepository) Create(ctx context.Context, m *entity.Message) error {
	query := `
		INSERT INTO messages (id, conversation_id, direction, content, type, sent_at, read_at, is_bot, external_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.DB.ExecContext(ctx, query,
		m.ID, m.ConversationID, m.Direction, m.Content, m.Type, m.SentAt, m.ReadAt, m.IsBot, m.ExternalID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return entity.ErrDuplicate
		}
		return fmt.Errorf("erro ao gravar mensagem: %w", err)
	}
	return nil
}

func (r *MessageRepository) FindByExternalID(ctx context.Context, externalID string) (*entity.Message, error) {
	m, err := scanMessage(r.DB.QueryRowContext(ctx, `SELECT `+messageColumns+` FROM messages WHERE external_id = $1`, externalID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, entity.ErrMessageNotFound
		}
		return nil, fmt.Errorf("erro ao buscar mensagem: %w", err)
	}
	return m, nil
}

func (r *MessageRepository) ListByConversation(ctx context.Context, conversationID string, limit, offset int) ([]*entity.Message, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT `+messageColumns+` FROM messages
		WHERE conversation_id = $1
		ORDER BY sent_at, id
		LIMIT $2 OFFSET $3
	`, conversationID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("erro ao listar mensagens: %w", err)
	}
	defer rows.Close()

	var out []*entity.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("erro ao ler mensagem: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *MessageRepository) CountByConversation(ctx context.Context, conversationID string) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages WHERE conversation_id = $1`, conversationID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("erro ao contar mensagens: %w", err)
	}
	return n, nil
}

func (r *MessageRepository) Reassign(ctx context.Context, fromConversationID, toConversationID string) (int, error) {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE messages SET conversation_id = $2 WHERE conversation_id = $1`,
		fromConversationID, toConversationID,
	)
	if err != nil {
		return 0, fmt.Errorf("erro ao mover mensagens: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (r *MessageRepository) MarkRead(ctx context.Context, conversationID string, at time.Time) (int, error) {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE messages SET read_at = $2
		WHERE conversation_id = $1 AND direction = 'inbound' AND read_at IS NULL
	`, conversationID, at)
	if err != nil {
		return 0, fmt.Errorf("erro ao marcar leitura: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func scanMessage(row rowScanner) (*entity.Message, error) {
	var m entity.Message
	var readAt sql.NullTime
	var extID sql.NullString
	err := row.Scan(&m.ID, &m.ConversationID, &m.Direction, &m.Content, &m.Type, &m.SentAt, &readAt, &m.IsBot, &extID)
	if err != nil {
		return nil, err
	}
	m.ReadAt = timeFromNull(readAt)
	m.ExternalID = ptrFromNull(extID)
	return &m, nil
}
