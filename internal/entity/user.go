package entity

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type UserStatus string

const (
	UserActive   UserStatus = "active"
	UserPending  UserStatus = "pending"
	UserDisabled UserStatus = "disabled"
)

type User struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	Name        string     `json:"name"`
	Role        string     `json:"role"`
	Status      UserStatus `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

func NewUser(email, name, role string, status UserStatus) *User {
	return &User{
		ID:        uuid.New().String(),
		Email:     email,
		Name:      name,
		Role:      role,
		Status:    status,
		CreatedAt: time.Now(),
	}
}

type UserRepositoryInterface interface {
	Create(ctx context.Context, u *User) error
	Update(ctx context.Context, u *User) error
	FindByID(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context, status UserStatus) ([]*User, error)
	TouchLogin(ctx context.Context, id string, at time.Time) error
}
