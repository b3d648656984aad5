package services

import (
	"context"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/onnwee/agrisync/backend/internal/domaincache"
	"github.com/onnwee/agrisync/backend/internal/models"
)

type AuthRepository interface {
	Profile(ctx context.Context, token string) (models.AuthProfile, error)
}

// AuthService resolves access tokens to profiles, caching each session.
type AuthService struct {
	repo   AuthRepository
	caches *domaincache.Caches
	group  singleflight.Group
}

func NewAuthService(repo AuthRepository, caches *domaincache.Caches) *AuthService {
	return &AuthService{repo: repo, caches: caches}
}

func (s *AuthService) Profile(ctx context.Context, token string) (models.AuthProfile, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return models.AuthProfile{}, ErrUnauthenticated
	}
	c := s.caches.Auth
	return readThrough(ctx, &s.group, "auth.profile",
		domaincache.SessionKey(token),
		func(ctx context.Context) (models.AuthProfile, bool) { return c.GetSession(ctx, token) },
		func(ctx context.Context) (models.AuthProfile, error) { return s.repo.Profile(ctx, token) },
		func(ctx context.Context, v models.AuthProfile) { c.SetSession(ctx, token, v) },
	)
}

// SignOut forgets the cached session for token.
func (s *AuthService) SignOut(ctx context.Context, token string) {
	s.caches.Auth.InvalidateSession(ctx, strings.TrimSpace(token))
}
