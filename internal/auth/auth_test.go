package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minhanhland/inventory/internal/domain"
	"github.com/minhanhland/inventory/internal/store"
)

type fakeUsers struct {
	store.UsersRepository
	users map[string]*domain.User
}

func (f *fakeUsers) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	u, ok := f.users[username]
	if !ok {
		return nil, store.ErrNotFound
	}
	return u, nil
}

func newTestService(t *testing.T) (*Service, *domain.User) {
	t.Helper()
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)

	user := &domain.User{
		ID:           "u1",
		Username:     "alice",
		Role:         domain.RoleAdmin,
		PasswordHash: hash,
	}
	users := &fakeUsers{users: map[string]*domain.User{"alice": user}}
	return NewService(users, "test-signing-key", time.Hour), user
}

func TestLoginSuccess(t *testing.T) {
	svc, want := newTestService(t)

	user, token, err := svc.Login(context.Background(), "alice", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, want.ID, user.ID)
	require.NotEmpty(t, token)

	claims, err := svc.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.Subject)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, domain.RoleAdmin, claims.Role)
}

func TestLoginWrongPassword(t *testing.T) {
	svc, _ := newTestService(t)
	_, _, err := svc.Login(context.Background(), "alice", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginUnknownUser(t *testing.T) {
	svc, _ := newTestService(t)
	_, _, err := svc.Login(context.Background(), "mallory", "s3cret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestParseTokenRejectsWrongKey(t *testing.T) {
	svc, user := newTestService(t)
	token, err := svc.IssueToken(user)
	require.NoError(t, err)

	other := NewService(nil, "another-key", time.Hour)
	_, err = other.ParseToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseTokenRejectsExpired(t *testing.T) {
	svc, user := newTestService(t)
	token, err := svc.IssueToken(user)
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = svc.ParseToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseTokenRejectsGarbage(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.ParseToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
