package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/parley-chat/session-service/internal/domain"
	"github.com/parley-chat/session-service/internal/security"
)

type UserStore interface {
	Create(ctx context.Context, u *domain.User) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByUsernameOrEmail(ctx context.Context, username, email string) (*domain.User, error)
}

type AuthService struct {
	users  UserStore
	signer *security.TokenSigner
}

func NewAuthService(users UserStore, signer *security.TokenSigner) *AuthService {
	return &AuthService{users: users, signer: signer}
}

// Register creates a user with a bcrypt-hashed password.
func (s *AuthService) Register(ctx context.Context, username, email, password string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" || email == "" {
		return nil, fmt.Errorf("username and email are required")
	}

	if _, err := s.users.GetByUsernameOrEmail(ctx, username, email); err == nil {
		return nil, domain.ErrUserExists
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, fmt.Errorf("users.GetByUsernameOrEmail: %w", err)
	}

	hash, err := security.HashPassword(password, nil)
	if err != nil {
		return nil, err
	}

	u, err := s.users.Create(ctx, &domain.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
	})
	if err != nil {
		return nil, fmt.Errorf("users.Create: %w", err)
	}
	return u, nil
}

// Login checks credentials and issues an access token.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, string, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, "", err
	}
	if security.ComparePassword(u.PasswordHash, password) != nil {
		return nil, "", domain.ErrWrongPassword
	}

	token, err := s.signer.Sign(u.ID, u.Username)
	if err != nil {
		return nil, "", fmt.Errorf("sign token: %w", err)
	}
	return u, token, nil
}
