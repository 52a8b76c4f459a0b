package usecase

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xavierca1/ligue-crm/internal/entity"
	"github.com/xavierca1/ligue-crm/internal/rbac"
	"github.com/xavierca1/ligue-crm/pkg/logger"
)

type TokenIssuer interface {
	Issue(user *entity.User) (string, error)
}

// AccessPolicy decides who gets in without manual approval.
type AccessPolicy struct {
	AdminEmails    []string
	AllowedEmails  []string
	AllowedDomains []string
}

func (p AccessPolicy) isAdmin(email string) bool {
	return containsFold(p.AdminEmails, email)
}

func (p AccessPolicy) allowed(email string) bool {
	if p.isAdmin(email) || containsFold(p.AllowedEmails, email) {
		return true
	}
	if at := strings.LastIndex(email, "@"); at >= 0 {
		return containsFold(p.AllowedDomains, email[at+1:])
	}
	return false
}

type SignInUseCase struct {
	UserRepo entity.UserRepositoryInterface
	Tokens   TokenIssuer
	Email    EmailService
	Policy   AccessPolicy
	Now      func() time.Time
	log      *logger.Logger
}

func NewSignInUseCase(
	userRepo entity.UserRepositoryInterface,
	tokens TokenIssuer,
	email EmailService,
	policy AccessPolicy,
	log *logger.Logger,
) *SignInUseCase {
	if log == nil {
		log = logger.Global()
	}
	return &SignInUseCase{
		UserRepo: userRepo,
		Tokens:   tokens,
		Email:    email,
		Policy:   policy,
		Now:      time.Now,
		log:      log.Named("auth"),
	}
}

// Execute receives an identity already verified by the OAuth bridge.
func (uc *SignInUseCase) Execute(ctx context.Context, input SignInInput) (*SignInOutput, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, invalid("e-mail inválido")
	}

	user, err := uc.UserRepo.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, entity.ErrUserNotFound) {
		return nil, dbErr("buscar usuário", err)
	}

	if user == nil {
		user, err = uc.register(ctx, email, strings.TrimSpace(input.Name))
		if err != nil {
			return nil, err
		}
	}

	switch user.Status {
	case entity.UserPending:
		return nil, denied("cadastro aguardando aprovação")
	case entity.UserDisabled:
		return nil, denied("usuário desativado")
	}

	token, err := uc.Tokens.Issue(user)
	if err != nil {
		return nil, &TechnicalError{Code: CodeUnauthenticated, Message: "falha ao emitir token", Err: err}
	}

	now := uc.Now()
	if err := uc.UserRepo.TouchLogin(ctx, user.ID, now); err != nil {
		uc.log.Warn("falha ao registrar login", zap.String("user_id", user.ID), zap.Error(err))
	}
	user.LastLoginAt = &now

	return &SignInOutput{User: user, Token: token}, nil
}

func (uc *SignInUseCase) register(ctx context.Context, email, name string) (*entity.User, error) {
	role, status := rbac.RoleViewer, entity.UserPending
	switch {
	case uc.Policy.isAdmin(email):
		role, status = rbac.RoleAdmin, entity.UserActive
	case uc.Policy.allowed(email):
		role, status = rbac.RoleAgent, entity.UserActive
	}

	if name == "" {
		name = email
	}
	user := entity.NewUser(email, name, string(role), status)
	user.CreatedAt = uc.Now()
	if err := uc.UserRepo.Create(ctx, user); err != nil {
		return nil, dbErr("criar usuário", err)
	}

	uc.log.Info("usuário registrado",
		zap.String("user_id", user.ID),
		zap.String("role", user.Role),
		zap.String("status", string(user.Status)),
	)

	if status == entity.UserPending && uc.Email != nil && len(uc.Policy.AdminEmails) > 0 {
		if err := uc.Email.SendPendingSignup(uc.Policy.AdminEmails, user); err != nil {
			uc.log.Warn("falha ao avisar admins do cadastro pendente", zap.Error(err))
		}
	}
	return user, nil
}

type UserUseCase struct {
	UserRepo entity.UserRepositoryInterface
}

func NewUserUseCase(userRepo entity.UserRepositoryInterface) *UserUseCase {
	return &UserUseCase{UserRepo: userRepo}
}

func (uc *UserUseCase) List(ctx context.Context, status entity.UserStatus) ([]*entity.User, error) {
	users, err := uc.UserRepo.List(ctx, status)
	if err != nil {
		return nil, dbErr("listar usuários", err)
	}
	return users, nil
}

type UpdateUserInput struct {
	Role   *string            `json:"role"`
	Status *entity.UserStatus `json:"status"`
}

// Update approves, disables or re-roles a user.
func (uc *UserUseCase) Update(ctx context.Context, id string, input UpdateUserInput) (*entity.User, error) {
	user, err := uc.UserRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, entity.ErrUserNotFound) {
			return nil, notFound("usuário %s não encontrado", id)
		}
		return nil, dbErr("buscar usuário", err)
	}

	if input.Role != nil {
		if !rbac.Valid(*input.Role) {
			return nil, invalid("papel inválido: %q", *input.Role)
		}
		user.Role = *input.Role
	}
	if input.Status != nil {
		switch *input.Status {
		case entity.UserActive, entity.UserPending, entity.UserDisabled:
			user.Status = *input.Status
		default:
			return nil, invalid("status inválido: %q", *input.Status)
		}
	}

	if err := uc.UserRepo.Update(ctx, user); err != nil {
		return nil, dbErr("atualizar usuário", err)
	}
	return user, nil
}

func containsFold(list []string, v string) bool {
	for _, item := range list {
		if strings.EqualFold(strings.TrimSpace(item), v) {
			return true
		}
	}
	return false
}
