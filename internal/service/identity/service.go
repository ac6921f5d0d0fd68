// Package identity resolves bearer tokens to users. Tokens are issued out of
// band (seed tooling); there is no login flow.
package identity

import (
	"context"
	"errors"
	"strings"
	"time"

	"storefront/internal/domain"
)

var ErrInvalidToken = errors.New("invalid token")

type userStore interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
}

type Service struct {
	users  userStore
	tokens *tokenManager
}

func New(users userStore, tokens tokenStore) *Service {
	return &Service{users: users, tokens: newTokenManager(tokens)}
}

// Authenticate returns the user owning token.
func (s *Service) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidToken
	}
	userID, ok := s.tokens.Validate(ctx, token)
	if !ok {
		return nil, ErrInvalidToken
	}
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	return u, nil
}

// Issue creates an access token for userID valid for ttl.
func (s *Service) Issue(ctx context.Context, userID string, ttl time.Duration) (string, time.Time, error) {
	if strings.TrimSpace(userID) == "" {
		return "", time.Time{}, domain.InvalidInput("User ID is required")
	}
	return s.tokens.Issue(ctx, userID, ttl)
}
