package service

import (
	"context"
	"testing"
	"time"

	"github.com/parley-chat/session-service/internal/domain"
	"github.com/parley-chat/session-service/internal/security"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memUserStore struct {
	users []*domain.User
}

func (s *memUserStore) Create(_ context.Context, u *domain.User) (*domain.User, error) {
	u.ID = uuid.New().String()
	u.CreatedAt = time.Now()
	s.users = append(s.users, u)
	return u, nil
}

func (s *memUserStore) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (s *memUserStore) GetByUsernameOrEmail(_ context.Context, username, email string) (*domain.User, error) {
	for _, u := range s.users {
		if u.Username == username || u.Email == email {
			return u, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func newAuthService(store UserStore) *AuthService {
	signer := security.NewTokenSigner([]byte("test-secret"), "session-service", time.Hour)
	return NewAuthService(store, signer)
}

func TestAuthService_RegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	store := &memUserStore{}
	svc := newAuthService(store)

	u, err := svc.Register(ctx, "alice", "alice@example.com", "hunter22")
	require.NoError(t, err)
	assert.NotEmpty(t, u.ID)
	assert.NotEqual(t, "hunter22", u.PasswordHash)

	logged, token, err := svc.Login(ctx, "alice@example.com", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, u.ID, logged.ID)
	assert.NotEmpty(t, token)
}

func TestAuthService_RegisterDuplicate(t *testing.T) {
	ctx := context.Background()
	svc := newAuthService(&memUserStore{})

	_, err := svc.Register(ctx, "bob", "bob@example.com", "hunter22")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "bob", "other@example.com", "hunter22")
	assert.ErrorIs(t, err, domain.ErrUserExists)

	_, err = svc.Register(ctx, "bob2", "bob@example.com", "hunter22")
	assert.ErrorIs(t, err, domain.ErrUserExists)
}

func TestAuthService_LoginFailures(t *testing.T) {
	ctx := context.Background()
	svc := newAuthService(&memUserStore{})

	_, _, err := svc.Login(ctx, "nobody@example.com", "whatever")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	_, err = svc.Register(ctx, "carol", "carol@example.com", "hunter22")
	require.NoError(t, err)

	_, _, err = svc.Login(ctx, "carol@example.com", "wrongpass")
	assert.ErrorIs(t, err, domain.ErrWrongPassword)
}

func TestAuthService_RegisterValidation(t *testing.T) {
	ctx := context.Background()
	svc := newAuthService(&memUserStore{})

	_, err := svc.Register(ctx, "", "x@example.com", "hunter22")
	assert.Error(t, err)

	_, err = svc.Register(ctx, "dave", "dave@example.com", "short")
	assert.ErrorIs(t, err, security.ErrPasswordTooShort)
}
