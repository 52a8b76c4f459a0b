package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/xavierca1/ligue-crm/internal/entity"
	"github.com/xavierca1/ligue-crm/pkg/logger"
)

func newSignIn() (*SignInUseCase, *memUsers, *MockTokenIssuer, *MockEmailService) {
	users, tokens, email := newMemUsers(), &MockTokenIssuer{}, &MockEmailService{}
	uc := NewSignInUseCase(users, tokens, email, AccessPolicy{
		AdminEmails:    []string{"boss@ligue.com"},
		AllowedEmails:  []string{"friend@gmail.com"},
		AllowedDomains: []string{"ligue.com"},
	}, logger.NewNop())
	uc.Now = func() time.Time { return fixedNow }
	return uc, users, tokens, email
}

func TestSignInAdminBootstrap(t *testing.T) {
	uc, users, tokens, _ := newSignIn()
	tokens.On("Issue", mock.Anything).Return("jwt-token", nil)

	out, err := uc.Execute(context.Background(), SignInInput{Email: " Boss@Ligue.com ", Name: "Boss"})
	require.NoError(t, err)
	assert.Equal(t, "jwt-token", out.Token)
	assert.Equal(t, "admin", out.User.Role)
	assert.Equal(t, entity.UserActive, out.User.Status)
	assert.Equal(t, "boss@ligue.com", out.User.Email)

	stored := users.rows[out.User.ID]
	require.NotNil(t, stored.LastLoginAt)
	assert.Equal(t, fixedNow, *stored.LastLoginAt)
}

func TestSignInAllowListedBecomesAgent(t *testing.T) {
	for _, email := range []string{"ana@ligue.com", "friend@gmail.com"} {
		uc, _, tokens, _ := newSignIn()
		tokens.On("Issue", mock.Anything).Return("t", nil)

		out, err := uc.Execute(context.Background(), SignInInput{Email: email})
		require.NoError(t, err, email)
		assert.Equal(t, "agent", out.User.Role)
		assert.Equal(t, email, out.User.Name)
	}
}

func TestSignInUnknownUserIsPending(t *testing.T) {
	uc, users, tokens, email := newSignIn()
	email.On("SendPendingSignup", []string{"boss@ligue.com"}, mock.Anything).Return(nil).Once()

	_, err := uc.Execute(context.Background(), SignInInput{Email: "stranger@gmail.com", Name: "S"})
	assert.True(t, HasCode(err, CodePermissionDenied))
	require.Len(t, users.rows, 1)

	// second attempt does not notify again
	_, err = uc.Execute(context.Background(), SignInInput{Email: "stranger@gmail.com"})
	assert.True(t, HasCode(err, CodePermissionDenied))

	tokens.AssertNotCalled(t, "Issue", mock.Anything)
	email.AssertExpectations(t)
}

func TestSignInDisabledUser(t *testing.T) {
	uc, users, _, _ := newSignIn()
	u := entity.NewUser("ana@ligue.com", "Ana", "agent", entity.UserDisabled)
	require.NoError(t, users.Create(context.Background(), u))

	_, err := uc.Execute(context.Background(), SignInInput{Email: "ana@ligue.com"})
	assert.True(t, HasCode(err, CodePermissionDenied))
}

func TestSignInInvalidEmail(t *testing.T) {
	uc, _, _, _ := newSignIn()
	_, err := uc.Execute(context.Background(), SignInInput{Email: "nope"})
	assert.True(t, HasCode(err, CodeValidation))
}

func TestUserUpdateApprovesAndChangesRole(t *testing.T) {
	users := newMemUsers()
	u := entity.NewUser("s@gmail.com", "S", "viewer", entity.UserPending)
	require.NoError(t, users.Create(context.Background(), u))
	uc := NewUserUseCase(users)

	role, status := "manager", entity.UserActive
	updated, err := uc.Update(context.Background(), u.ID, UpdateUserInput{Role: &role, Status: &status})
	require.NoError(t, err)
	assert.Equal(t, "manager", updated.Role)
	assert.Equal(t, entity.UserActive, updated.Status)

	bad := "owner"
	_, err = uc.Update(context.Background(), u.ID, UpdateUserInput{Role: &bad})
	assert.True(t, HasCode(err, CodeValidation))

	_, err = uc.Update(context.Background(), "missing", UpdateUserInput{Role: &role})
	assert.True(t, HasCode(err, CodeNotFound))
}
