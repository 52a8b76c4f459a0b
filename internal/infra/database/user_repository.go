package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/xavierca1/ligue-crm/internal/entity"
)

type UserRepository struct {
	DB *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{DB: db}
}

const userColumns = `id, email, name, role, status, created_at, last_login_at`

func (r *UserRepository) Create(ctx context.Context, u *entity.User) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO users (id, email, name, role, status, created_at, last_login_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, u.ID, u.Email, u.Name, u.Role, u.Status, u.CreatedAt, u.LastLoginAt)
	if err != nil {
		if isUniqueViolation(err) {
			return entity.ErrDuplicate
		}
		return fmt.Errorf("erro ao criar usuário: %w", err)
	}
	return nil
}

func (r *UserRepository) Update(ctx context.Context, u *entity.User) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE users SET name = $2, role = $3, status = $4 WHERE id = $1`,
		u.ID, u.Name, u.Role, u.Status,
	)
	if err != nil {
		return fmt.Errorf("erro ao atualizar usuário: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return entity.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*entity.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email)
}

func (r *UserRepository) List(ctx context.Context, status entity.UserStatus) ([]*entity.User, error) {
	query := `SELECT ` + userColumns + ` FROM users`
	var args []any
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, status)
	}
	query += ` ORDER BY created_at`

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("erro ao listar usuários: %w", err)
	}
	defer rows.Close()

	var out []*entity.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("erro ao ler usuário: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *UserRepository) TouchLogin(ctx context.Context, id string, at time.Time) error {
	if _, err := r.DB.ExecContext(ctx, `UPDATE users SET last_login_at = $2 WHERE id = $1`, id, at); err != nil {
		return fmt.Errorf("erro ao registrar login: %w", err)
	}
	return nil
}

func (r *UserRepository) findOne(ctx context.Context, query string, args ...any) (*entity.User, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, entity.ErrUserNotFound
		}
		return nil, fmt.Errorf("erro ao buscar usuário: %w", err)
	}
	return u, nil
}

func scanUser(row rowScanner) (*entity.User, error) {
	var u entity.User
	var lastLogin sql.NullTime
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.Status, &u.CreatedAt, &lastLogin); err != nil {
		return nil, err
	}
	u.LastLoginAt = timeFromNull(lastLogin)
	return &u, nil
}
