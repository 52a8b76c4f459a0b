package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/xavierca1/ligue-crm/internal/entity"
)

type LeadRepository struct {
	DB *sql.DB
}

func NewLeadRepository(db *sql.DB) *LeadRepository {
	return &LeadRepository{DB: db}
}

const leadColumns = `l.id, l.name, l.phone, l.email, l.cuit, l.dni, l.income, l.zone,
	l.desired_product, l.desired_amount, l.tags, l.custom_fields, l.subscriber_id,
	l.status, l.created_at, l.updated_at`

func (r *LeadRepository) Create(ctx context.Context, lead *entity.Lead) error {
	fields, err := json.Marshal(customFields(lead))
	if err != nil {
		return fmt.Errorf("erro ao serializar campos personalizados: %w", err)
	}

	query := `
		INSERT INTO leads (id, name, phone, email, cuit, dni, income, zone, desired_product,
			desired_amount, tags, custom_fields, subscriber_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`
	_, err = r.DB.ExecContext(ctx, query,
		lead.ID,
		lead.Name,
		nullString(lead.Phone),
		nullString(lead.Email),
		nullString(lead.CUIT),
		nullString(lead.DNI),
		lead.Income,
		nullString(lead.Zone),
		nullString(lead.DesiredProduct),
		lead.DesiredAmount,
		pq.Array(tags(lead)),
		fields,
		lead.SubscriberID,
		lead.Status,
		lead.CreatedAt,
		lead.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return entity.ErrDuplicate
		}
		return fmt.Errorf("erro ao criar lead: %w", err)
	}
	return nil
}

func (r *LeadRepository) Update(ctx context.Context, lead *entity.Lead) error {
	fields, err := json.Marshal(customFields(lead))
	if err != nil {
		return fmt.Errorf("erro ao serializar campos personalizados: %w", err)
	}

	query := `
		UPDATE leads SET name = $2, phone = $3, email = $4, cuit = $5, dni = $6, income = $7,
			zone = $8, desired_product = $9, desired_amount = $10, tags = $11,
			custom_fields = $12, subscriber_id = $13, status = $14, updated_at = $15
		WHERE id = $1
	`
	res, err := r.DB.ExecContext(ctx, query,
		lead.ID,
		lead.Name,
		nullString(lead.Phone),
		nullString(lead.Email),
		nullString(lead.CUIT),
		nullString(lead.DNI),
		lead.Income,
		nullString(lead.Zone),
		nullString(lead.DesiredProduct),
		lead.DesiredAmount,
		pq.Array(tags(lead)),
		fields,
		lead.SubscriberID,
		lead.Status,
		lead.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return entity.ErrDuplicate
		}
		return fmt.Errorf("erro ao atualizar lead: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return entity.ErrLeadNotFound
	}
	return nil
}

func (r *LeadRepository) Delete(ctx context.Context, id string) error {
	_, err := r.DB.ExecContext(ctx, `DELETE FROM leads WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("erro ao remover lead: %w", err)
	}
	return nil
}

func (r *LeadRepository) FindByID(ctx context.Context, id string) (*entity.Lead, error) {
	return r.findOne(ctx, `SELECT `+leadColumns+` FROM leads l WHERE l.id = $1`, id)
}

func (r *LeadRepository) FindBySubscriberID(ctx context.Context, subscriberID string) (*entity.Lead, error) {
	return r.findOne(ctx, `SELECT `+leadColumns+` FROM leads l WHERE l.subscriber_id = $1`, subscriberID)
}

func (r *LeadRepository) FindByPhone(ctx context.Context, phone string) (*entity.Lead, error) {
	return r.findOne(ctx, `SELECT `+leadColumns+` FROM leads l WHERE l.phone = $1 ORDER BY l.created_at LIMIT 1`, phone)
}

func (r *LeadRepository) List(ctx context.Context, f entity.LeadFilter) ([]*entity.Lead, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.Status != "" {
		add("l.status = $%d", f.Status)
	}
	if f.Stage != "" {
		add("p.stage = $%d", f.Stage)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		add("(l.name ILIKE $%[1]d OR l.phone ILIKE $%[1]d OR l.email ILIKE $%[1]d)", "%"+s+"%")
	}

	query := `SELECT ` + leadColumns + ` FROM leads l LEFT JOIN pipeline p ON p.lead_id = l.id`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	args = append(args, f.Limit, f.Offset)
	query += fmt.Sprintf(` ORDER BY l.updated_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	return r.findMany(ctx, query, args...)
}

func (r *LeadRepository) ListLinked(ctx context.Context) ([]*entity.Lead, error) {
	return r.findMany(ctx, `SELECT `+leadColumns+` FROM leads l WHERE l.subscriber_id IS NOT NULL ORDER BY l.created_at`)
}

func (r *LeadRepository) ListUnlinkedWithPhone(ctx context.Context) ([]*entity.Lead, error) {
	return r.findMany(ctx, `SELECT `+leadColumns+` FROM leads l
		WHERE l.subscriber_id IS NULL AND l.phone IS NOT NULL AND l.phone <> '' ORDER BY l.created_at`)
}

func (r *LeadRepository) CheckDuplicity(ctx context.Context, phone, email string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM leads WHERE ($1 <> '' AND phone = $1) OR ($2 <> '' AND lower(email) = lower($2)))`
	var exists bool
	if err := r.DB.QueryRowContext(ctx, query, phone, email).Scan(&exists); err != nil {
		return false, fmt.Errorf("erro ao verificar duplicidade: %w", err)
	}
	return exists, nil
}

func (r *LeadRepository) findOne(ctx context.Context, query string, args ...any) (*entity.Lead, error) {
	lead, err := scanLead(r.DB.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, entity.ErrLeadNotFound
		}
		return nil, fmt.Errorf("erro ao buscar lead: %w", err)
	}
	return lead, nil
}

func (r *LeadRepository) findMany(ctx context.Context, query string, args ...any) ([]*entity.Lead, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("erro ao listar leads: %w", err)
	}
	defer rows.Close()

	var out []*entity.Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("erro ao ler lead: %w", err)
		}
		out = append(out, lead)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLead(row rowScanner) (*entity.Lead, error) {
	var l entity.Lead
	var phone, email, cuit, dni, zone, product, sub sql.NullString
	var fields []byte
	err := row.Scan(
		&l.ID, &l.Name, &phone, &email, &cuit, &dni, &l.Income, &zone,
		&product, &l.DesiredAmount, pq.Array(&l.Tags), &fields, &sub,
		&l.Status, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	l.Phone, l.Email, l.CUIT, l.DNI = fromNull(phone), fromNull(email), fromNull(cuit), fromNull(dni)
	l.Zone, l.DesiredProduct = fromNull(zone), fromNull(product)
	l.SubscriberID = ptrFromNull(sub)

	l.CustomFields = map[string]string{}
	if len(fields) > 0 {
		if err := json.Unmarshal(fields, &l.CustomFields); err != nil {
			return nil, fmt.Errorf("custom_fields inválido: %w", err)
		}
	}
	if l.Tags == nil {
		l.Tags = []string{}
	}
	return &l, nil
}

func tags(l *entity.Lead) []string {
	if l.Tags == nil {
		return []string{}
	}
	return l.Tags
}

func customFields(l *entity.Lead) map[string]string {
	if l.CustomFields == nil {
		return map[string]string{}
	}
	return l.CustomFields
}
